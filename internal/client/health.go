package client

import (
	"context"
	"time"

	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// Health asks the server's health service for its serving status.
func (c *Client) Health(ctx context.Context) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, c.translate("Health.Check", err)
	}
	return resp.GetStatus(), nil
}

// watchHealth consumes the health Watch stream. Losing the stream while not
// exiting marks the session exited.
func (c *Client) watchHealth(ctx context.Context) {
	defer c.bg.Done()
	stream, err := c.health.Watch(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		c.log.Debug().Err(err).Msg("health watch unavailable")
		return
	}
	for {
		resp, err := stream.Recv()
		if err != nil {
			if ctx.Err() != nil || c.exiting.Load() {
				return
			}
			if status.Code(err) == codes.Unimplemented {
				c.log.Debug().Msg("health watch not implemented by server")
				return
			}
			c.markExited("lost health watch: " + err.Error())
			return
		}
		c.log.Debug().Str("status", resp.GetStatus().String()).Msg("health")
	}
}

// heartbeat keeps a remote session alive and notices a dead server.
func (c *Client) heartbeat(ctx context.Context, every time.Duration) {
	defer c.bg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.exited.Load() {
				return
			}
			if c.InNonInteractive() {
				continue
			}
			if !c.IsAlive(ctx) {
				c.log.Debug().Msg("heartbeat: solver not alive")
				return
			}
		}
	}
}
