package apdlmath

import (
	"context"
	"fmt"
)

// Solver is a solver-side linear system engine (*LSENGINE).
type Solver struct {
	id string
	m  *Math
	a  *Mat
}

func (s *Solver) ID() string { return s.id }

// Factorize binds a to the solver and factorizes it. An empty algo selects
// LAPACK for dense and DSP for sparse matrices.
func (s *Solver) Factorize(ctx context.Context, a *Mat, algo string) error {
	if algo == "" {
		algo = "LAPACK"
		if a.Sparse() {
			algo = "DSP"
		}
	}
	if err := s.m.cmd(ctx, "*LSENGINE", algo, s.id, a.id); err != nil {
		return err
	}
	if err := s.m.cmd(ctx, "*LSFACTOR", s.id); err != nil {
		return err
	}
	s.a = a
	return nil
}

// Solve solves A x = b with the factorized matrix. A nil x is allocated as
// a copy of b.
func (s *Solver) Solve(ctx context.Context, b, x *Vec) (*Vec, error) {
	if s.a == nil {
		return nil, fmt.Errorf("%w: solver %s has not been factorized", ErrInvalidArg, s.id)
	}
	if x == nil {
		var err error
		if x, err = b.Copy(ctx); err != nil {
			return nil, err
		}
	}
	if err := s.m.cmd(ctx, "*LSBAC", s.id, b.id, x.id); err != nil {
		return nil, err
	}
	return x, nil
}

func (s *Solver) Free(ctx context.Context) error {
	return s.m.cmd(ctx, "*FREE", s.id)
}
