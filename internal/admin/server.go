// Package admin serves the HTTP control surface: health, metrics, the
// local solver process table and the instance pool.
package admin

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/danmuck/mapdlctl/internal/auth"
	"github.com/danmuck/mapdlctl/internal/observability"
	"github.com/danmuck/mapdlctl/internal/pool"
	"github.com/danmuck/mapdlctl/internal/procs"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const Version = "0.1.0"

type Server struct {
	ID       string
	Addr     string
	Appeared time.Time

	Table procs.Table
	// Pool is optional.
	Pool *pool.Pool
	// Auth guards the POST routes when set.
	Auth auth.Validator

	router *gin.Engine
	log    zerolog.Logger
}

func New(id, addr string, table procs.Table, p *pool.Pool, corsOrigins []string) *Server {
	observability.RegisterMetrics()
	logger := observability.Component("admin")
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestID(logger))
	r.Use(observability.RequestLogger(logger))
	r.Use(observability.RequestMetrics(id))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	if table == nil {
		table = procs.SystemTable{}
	}
	s := &Server{
		ID:       id,
		Addr:     addr,
		Appeared: time.Now(),
		Table:    table,
		Pool:     p,
		router:   r,
		log:      logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) registerRoutes() {
	r := s.router
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Appeared).String(),
			"service": s.ID,
			"version": Version,
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/ready", func(c *gin.Context) {
		ready := true
		if s.Pool != nil {
			st := s.Pool.Status()
			ready = !st.Closed && st.Ready+st.Busy > 0
		}
		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"ready":   ready,
			"uptime":  time.Since(s.Appeared).String(),
			"service": s.ID,
			"version": Version,
		})
	})

	r.GET("/instances", func(c *gin.Context) {
		only, _ := strconv.ParseBool(c.Query("instances"))
		rows, err := procs.List(c.Request.Context(), s.Table, procs.ListOptions{InstancesOnly: only})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if rows == nil {
			rows = []procs.Instance{}
		}
		c.JSON(http.StatusOK, gin.H{"instances": rows})
	})

	r.POST("/instances/stop", s.requireToken, func(c *gin.Context) {
		var req procs.StopRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}
		res, err := procs.Stop(c.Request.Context(), s.Table, req)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, procs.ErrNoSuchProcess) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, res)
	})

	r.GET("/pool", func(c *gin.Context) {
		if s.Pool == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no pool configured"})
			return
		}
		c.JSON(http.StatusOK, s.Pool.Status())
	})

	r.POST("/pool/run", s.requireToken, func(c *gin.Context) {
		if s.Pool == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no pool configured"})
			return
		}
		var body struct {
			Command string `json:"command" binding:"required"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		out, target, err := s.runOnPool(c.Request.Context(), body.Command)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, pool.ErrClosed) {
				status = http.StatusServiceUnavailable
			}
			c.JSON(status, gin.H{"error": err.Error(), "target": target})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "target": target, "output": out})
	})
}

func (s *Server) requireToken(c *gin.Context) {
	if s.Auth == nil {
		c.Next()
		return
	}
	if err := auth.Check(s.Auth, c.GetHeader("Authorization")); err != nil {
		l := observability.FromContext(c.Request.Context(), s.log)
		l.Warn().Err(err).Str("route", c.FullPath()).Msg("rejected admin request")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	c.Next()
}

func (s *Server) runOnPool(ctx context.Context, command string) (string, string, error) {
	lease, err := s.Pool.Next(ctx)
	if err != nil {
		return "", "", err
	}
	defer lease.Release()
	l := observability.FromContext(ctx, s.log)
	target := lease.Session().Target()
	out, err := lease.Session().Run(ctx, command)
	if err != nil {
		l.Error().Err(err).Str("target", target).Str("command", command).Msg("pool command failed")
		return out, target, err
	}
	l.Info().Str("target", target).Str("command", command).Msg("pool command executed")
	return out, target, nil
}

// Serve blocks until ctx ends, then shuts the listener down.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{Addr: s.Addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info().Str("addr", s.Addr).Msg("admin api listening")
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	}
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
