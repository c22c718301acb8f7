package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"airlock/internal/logging"
	"airlock/internal/services"
)

// Runner executes named pipeline steps. Implementations decide how a step is
// observed; the pipeline only requires that fn runs and its error is returned.
type Runner interface {
	Run(ctx context.Context, name string, fn func(context.Context) error) error
}

// NewRunner returns the production runner: each step logs start and finish
// with its duration, tagged with a per-invocation request id.
func NewRunner(logger *slog.Logger) Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &loggingRunner{logger: logger}
}

type loggingRunner struct {
	logger *slog.Logger
}

func (r *loggingRunner) Run(ctx context.Context, name string, fn func(context.Context) error) error {
	if _, ok := services.RequestIDFromContext(ctx); !ok {
		ctx = services.WithRequestID(ctx, uuid.NewString())
	}
	ctx = services.WithStep(ctx, name)
	logger := logging.WithContext(ctx, r.logger)

	logger.Debug("step started", logging.String(logging.FieldEventType, "step_start"))
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if err != nil {
		logger.Error("step failed",
			logging.Error(err),
			logging.Duration("elapsed", elapsed),
			logging.String(logging.FieldEventType, "step_failed"),
		)
		return err
	}
	logger.Debug("step finished",
		logging.Duration("elapsed", elapsed),
		logging.String(logging.FieldEventType, "step_finish"),
	)
	return nil
}
