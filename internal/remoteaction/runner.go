package remoteaction

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/paydesk/internal/obs"
)

var runnerNopLogger = zerolog.Nop()

// Runner gates remote operations behind an optional confirmation and resolves
// each response to exactly one reaction. A Runner holds no per-run state and is
// safe for concurrent use.
type Runner struct {
	Caller    Caller
	Confirmer Confirmer
	Logger    *zerolog.Logger
}

// NewRunner constructs a Runner around the provided collaborators.
func NewRunner(caller Caller, confirmer Confirmer, logger zerolog.Logger) *Runner {
	return &Runner{Caller: caller, Confirmer: confirmer, Logger: &logger}
}

// Run executes req and blocks until its reaction has returned. When req fails
// validation nothing is called and the outcome is Declined alongside an error
// wrapping ErrInvalidRequest.
func (r *Runner) Run(ctx context.Context, req Request) (Outcome, error) {
	res := r.run(ctx, req)
	return res.Outcome, res.Err
}

// Go executes req in the background. The returned channel yields exactly one
// Result and is then closed.
func (r *Runner) Go(ctx context.Context, req Request) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		out <- r.run(ctx, req)
	}()
	return out
}

func (r *Runner) run(ctx context.Context, req Request) Result {
	if err := r.check(req); err != nil {
		return Result{Outcome: Declined, Err: err}
	}

	runID := uuid.NewString()
	logger := r.loggerFor(ctx).With().
		Str("run_id", runID).
		Str("operation", req.Operation).
		Logger()

	if req.Prompt != "" && !r.Confirmer.Confirm(ctx, req.Prompt) {
		observe(req.Operation, Declined, 0)
		logger.Info().Str("outcome", Declined.String()).Msg("remote_action")
		return Result{Outcome: Declined}
	}

	ctx, span := otel.Tracer("remoteaction").Start(ctx, "RemoteAction "+req.Operation)
	defer span.End()
	span.SetAttributes(
		attribute.String("remote_action.operation", req.Operation),
		attribute.String("remote_action.run_id", runID),
	)

	start := time.Now()
	resp := r.Caller.Call(ctx, req.Operation, req.Args)
	elapsed := time.Since(start)

	outcome := Failed
	if Truthy(resp) {
		outcome = Succeeded
	}
	span.SetAttributes(attribute.String("remote_action.outcome", outcome.String()))
	if outcome == Failed {
		span.SetStatus(codes.Error, resp.Reason())
		if resp.Err != nil {
			span.RecordError(resp.Err)
		}
	}
	observe(req.Operation, outcome, elapsed)

	evt := logger.Info()
	if outcome == Failed {
		evt = logger.Warn().Str("reason", resp.Reason())
		if resp.Err != nil {
			evt = evt.Err(resp.Err)
		}
	}
	evt.Str("outcome", outcome.String()).
		Int64("duration_ms", elapsed.Milliseconds()).
		Msg("remote_action")

	if outcome == Succeeded {
		req.OnSuccess(ctx, resp)
	} else {
		req.OnFailure(ctx, resp)
	}
	return Result{Outcome: outcome, Response: resp}
}

func (r *Runner) check(req Request) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if r == nil || r.Caller == nil {
		return fmt.Errorf("%w: caller not configured", ErrInvalidRequest)
	}
	if req.Prompt != "" && r.Confirmer == nil {
		return fmt.Errorf("%w: confirmer not configured", ErrInvalidRequest)
	}
	return nil
}

func (r *Runner) loggerFor(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	if r.Logger == nil {
		return &runnerNopLogger
	}
	return r.Logger
}

func observe(operation string, outcome Outcome, elapsed time.Duration) {
	if obs.RemoteActionTotal != nil {
		obs.RemoteActionTotal.WithLabelValues(operation, outcome.String()).Inc()
	}
	if outcome != Declined && obs.RemoteActionLatency != nil {
		obs.RemoteActionLatency.WithLabelValues(operation).Observe(obs.DurationMillis(elapsed))
	}
}
