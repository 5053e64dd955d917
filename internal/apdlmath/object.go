package apdlmath

import (
	"context"
	"fmt"
	"strings"

	"github.com/danmuck/mapdlctl/internal/apdl"
	"github.com/danmuck/mapdlctl/internal/client"
	"github.com/danmuck/mapdlctl/internal/mapdlpb"
)

// Object is a vector or matrix handle.
type Object interface {
	ID() string
	Kind() mapdlpb.ObjType
	base() *object
}

type object struct {
	id   string
	kind mapdlpb.ObjType
	m    *Math
}

func (o *object) ID() string { return o.id }

func (o *object) Kind() mapdlpb.ObjType { return o.kind }

func (o *object) base() *object { return o }

func (o *object) String() string { return fmt.Sprintf("APDLMath %s %s", o.kind, o.id) }

func (o *object) label() string { return "*" + o.kind.String() }

func (o *object) initialize(ctx context.Context, init Init) error {
	switch init {
	case InitZeros:
		return o.m.cmd(ctx, "*INIT", o.id, "ZERO")
	case InitOnes:
		return o.Const(ctx, 1)
	case InitRand:
		return o.m.cmd(ctx, "*INIT", o.id, "RAND")
	}
	return nil
}

func (o *object) Zeros(ctx context.Context) error { return o.initialize(ctx, InitZeros) }

func (o *object) Ones(ctx context.Context) error { return o.initialize(ctx, InitOnes) }

func (o *object) Rand(ctx context.Context) error { return o.initialize(ctx, InitRand) }

// Const sets every value to v.
func (o *object) Const(ctx context.Context, v float64) error {
	return o.m.cmd(ctx, "*INIT", o.id, "CONST", v)
}

// DataType asks the solver for the stored value type.
func (o *object) DataType(ctx context.Context) (mapdlpb.ValueType, error) {
	info, err := o.m.s.DataInfo(ctx, o.id)
	if err != nil {
		return 0, err
	}
	return info.Stype, nil
}

func (o *object) letter(ctx context.Context) (string, error) {
	vt, err := o.DataType(ctx)
	if err != nil {
		return "", err
	}
	return letter(vt)
}

func (o *object) copyTo(ctx context.Context, extra ...any) (string, error) {
	l, err := o.letter(ctx)
	if err != nil {
		return "", err
	}
	name := o.m.NewName()
	args := append([]any{name, l, "COPY", o.id}, extra...)
	return name, o.m.cmd(ctx, o.label(), args...)
}

// Norm computes NRM2, NRM1 or NRMINF. An empty order means NRM2.
func (o *object) Norm(ctx context.Context, order string) (float64, error) {
	order = strings.ToUpper(order)
	switch order {
	case "":
		order = "NRM2"
	case "NRM2", "NRM1", "NRMINF":
	default:
		return 0, fmt.Errorf("%w: norm %q, want NRM2, NRM1 or NRMINF", ErrInvalidArg, order)
	}
	if err := o.m.cmd(ctx, "*NRM", o.id, order, scratchParam); err != nil {
		return 0, err
	}
	return o.m.scalar(ctx, scratchParam)
}

// Axpy computes o = val1*x + val2*o in place.
func (o *object) Axpy(ctx context.Context, x Object, val1, val2 float64) error {
	return o.m.cmd(ctx, "*AXPY", val1, 0, x.ID(), val2, 0, o.id)
}

// Scale multiplies every value by v in place.
func (o *object) Scale(ctx context.Context, v float64) error {
	return o.m.cmd(ctx, "*SCAL", o.id, v)
}

// Div divides every value by v in place.
func (o *object) Div(ctx context.Context, v float64) error {
	if v == 0 {
		return fmt.Errorf("%w: division by zero", ErrInvalidArg)
	}
	return o.Scale(ctx, 1/v)
}

// Print returns the solver's *PRINT listing.
func (o *object) Print(ctx context.Context) (string, error) {
	return o.m.s.Run(ctx, apdl.Command("*PRINT", o.id), client.Unmute())
}

// Free deletes the object in the solver.
func (o *object) Free(ctx context.Context) error {
	return o.m.cmd(ctx, "*FREE", o.id)
}
