package ledger

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// =============================================================================
// OUTCOME - Uniform result of every call
// =============================================================================

// Status is the top-level result of a call.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Outcome is returned by every dispatched call. On error, Code and Err
// describe the failure and no state was changed.
type Outcome struct {
	Status  Status
	Message string
	Payload []byte
	Code    Code
	Err     error
}

// OK reports whether the call succeeded.
func (o Outcome) OK() bool { return o.Status == StatusSuccess }

// Success builds a success outcome.
func Success(message string) Outcome {
	return Outcome{Status: StatusSuccess, Message: message}
}

// Failure builds an error outcome from err.
func Failure(err error) Outcome {
	return Outcome{Status: StatusError, Message: err.Error(), Code: CodeOf(err), Err: err}
}

// =============================================================================
// DISPATCHER
// =============================================================================

// Handler is what a host runtime drives: a function name plus ordered
// arguments in, an Outcome out.
type Handler interface {
	Handle(ctx context.Context, function string, args []string) Outcome
}

type handlerFunc func(ctx context.Context, args []string) (string, error)

// Dispatcher routes function names to engine handlers.
type Dispatcher struct {
	engine *Engine
	logger *zap.Logger
	routes map[string]handlerFunc
}

var _ Handler = (*Dispatcher)(nil)

// NewDispatcher creates a dispatcher for engine.
func NewDispatcher(engine *Engine, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{engine: engine, logger: logger}
	d.routes = map[string]handlerFunc{
		FnRecharge:    engine.Recharge,
		FnTransfer:    engine.Transfer,
		FnOrderPay:    engine.OrderPay,
		FnOrderRefund: engine.OrderRefund,
		FnWithdraw:    engine.Withdraw,
		FnTest: func(_ context.Context, args []string) (string, error) {
			if err := checkArity(FnTest, args); err != nil {
				return "", err
			}
			return "test success!", nil
		},
	}
	return d
}

// Engine returns the engine behind the dispatcher.
func (d *Dispatcher) Engine() *Engine { return d.engine }

// Handle routes an invoke call. Arguments are forwarded unchanged.
func (d *Dispatcher) Handle(ctx context.Context, function string, args []string) Outcome {
	fn, ok := d.routes[function]
	if !ok {
		fn = func(context.Context, []string) (string, error) {
			return "", &UnknownFunctionError{Name: function}
		}
	}
	return d.run(ctx, "invoke", function, args, fn)
}

// Init routes the host's one-time init call. Only the function name
// "init" is accepted.
func (d *Dispatcher) Init(ctx context.Context, function string, args []string) Outcome {
	fn := d.engine.Init
	if function != FnInit {
		fn = func(context.Context, []string) (string, error) {
			return "", &UnknownFunctionError{Name: function}
		}
	}
	return d.run(ctx, "init", function, args, fn)
}

func (d *Dispatcher) run(ctx context.Context, phase, function string, args []string, fn handlerFunc) (out Outcome) {
	log := d.logger.With(zap.String("phase", phase), zap.String("function", function))
	log.Info(phase+" begin", zap.Int("args", len(args)))

	defer func() {
		if r := recover(); r != nil {
			log.Error(phase+" panic", zap.Any("panic", r), zap.Stack("stack"))
			out = Outcome{
				Status:  StatusError,
				Message: "internal error",
				Code:    CodeInternal,
				Err:     fmt.Errorf("panic in %s: %v", function, r),
			}
		}
	}()

	msg, err := fn(ctx, args)
	if err != nil {
		out = Failure(err)
		if out.Code == CodeStoreAccess || out.Code == CodeInternal {
			log.Error(phase+" failed", zap.String("code", string(out.Code)), zap.Error(err))
		} else {
			log.Warn(phase+" rejected", zap.String("code", string(out.Code)), zap.Error(err))
		}
		return out
	}

	out = Success(msg)
	log.Info(phase+" success", zap.String("message", msg))
	return out
}
