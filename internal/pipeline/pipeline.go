package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"airlock/internal/airlock"
	"airlock/internal/blob"
	"airlock/internal/config"
	"airlock/internal/grading"
	"airlock/internal/logging"
	"airlock/internal/notifications"
	"airlock/internal/parser"
	"airlock/internal/services"
)

// UploadEvent triggers ingestion of a staged document. ItemID is optional;
// when zero the pipeline resolves the item by asset and file path.
type UploadEvent struct {
	FilePath string
	AssetID  string
	UserID   string
	ItemID   int64
}

// Pipeline ingests uploaded documents end to end.
type Pipeline struct {
	store    *airlock.Store
	blobs    *blob.Store
	parse    parser.Parser
	engine   *grading.Engine
	notifier notifications.Service
	runner   Runner
	logger   *slog.Logger
}

// New builds a pipeline from its collaborators. A nil runner gets the
// production logging runner; a nil logger is silenced.
func New(cfg *config.Config, store *airlock.Store, blobs *blob.Store, p parser.Parser, notifier notifications.Service, runner Runner, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "pipeline")
	if runner == nil {
		runner = NewRunner(logger)
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	return &Pipeline{
		store:    store,
		blobs:    blobs,
		parse:    p,
		engine:   grading.NewEngine(cfg.Grading.ConfidenceThreshold),
		notifier: notifier,
		runner:   runner,
		logger:   logger,
	}
}

// Process runs the ingestion flow for one upload. It returns the resolved
// item id. A resolution failure (the item cannot be found) is returned as an
// error with no status written; every later failure is absorbed into the
// item's ERROR status and Process still reports success to the caller.
func (p *Pipeline) Process(ctx context.Context, event UploadEvent) (int64, error) {
	var item *airlock.Item
	err := p.runner.Run(ctx, "resolve-item", func(ctx context.Context) error {
		var err error
		item, err = p.resolveItem(ctx, event)
		return err
	})
	if err != nil {
		return 0, err
	}

	ctx = services.WithItemID(ctx, item.ID)
	logger := logging.WithContext(ctx, p.logger)

	if runErr := p.processResolved(ctx, item); runErr != nil {
		if errors.Is(runErr, context.Canceled) && ctx.Err() != nil {
			// Shutdown took the context; leave the item for the next run.
			logger.Warn("ingestion interrupted by shutdown", logging.Error(runErr))
			return item.ID, nil
		}
		message := services.Message(runErr)
		logger.Error("ingestion failed", logging.Error(runErr))
		if markErr := p.store.MarkError(ctx, item.ID, message); markErr != nil {
			logger.Error("persisting failure state failed", logging.Error(markErr))
		}
		if notifyErr := p.notifier.Publish(ctx, notifications.EventPipelineFailed, notifications.Payload{
			"item_id": strconv.FormatInt(item.ID, 10),
			"reason":  message,
		}); notifyErr != nil {
			logger.Warn("failure notification not delivered", logging.Error(notifyErr))
		}
	}
	return item.ID, nil
}

func (p *Pipeline) resolveItem(ctx context.Context, event UploadEvent) (*airlock.Item, error) {
	if event.ItemID != 0 {
		item, err := p.store.GetByID(ctx, event.ItemID)
		if err != nil {
			return nil, services.Wrap(services.ErrNotFound, "pipeline", "resolve-item",
				fmt.Sprintf("load item %d", event.ItemID), err)
		}
		if item == nil {
			return nil, services.Wrap(services.ErrNotFound, "pipeline", "resolve-item",
				fmt.Sprintf("item %d not found", event.ItemID), nil)
		}
		return item, nil
	}

	item, err := p.store.FindBySource(ctx, event.AssetID, event.FilePath)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "pipeline", "resolve-item",
			fmt.Sprintf("find item for %s", event.FilePath), err)
	}
	if item == nil {
		return nil, services.Wrap(services.ErrNotFound, "pipeline", "resolve-item",
			fmt.Sprintf("no item for asset %q path %q", event.AssetID, event.FilePath), nil)
	}
	return item, nil
}

func (p *Pipeline) processResolved(ctx context.Context, item *airlock.Item) error {
	if err := p.runner.Run(ctx, "mark-processing", func(ctx context.Context) error {
		return p.store.MarkProcessing(ctx, item.ID)
	}); err != nil {
		return err
	}

	var data []byte
	if err := p.runner.Run(ctx, "fetch-bytes", func(ctx context.Context) error {
		var err error
		data, err = p.blobs.Download(ctx, item.SourcePath)
		return err
	}); err != nil {
		return err
	}

	var transactions []parser.Transaction
	if err := p.runner.Run(ctx, "parse", func(ctx context.Context) error {
		mime := parser.MIMEForPath(item.SourcePath)
		var err error
		transactions, err = p.parse.Parse(ctx, data, mime)
		return err
	}); err != nil {
		return err
	}

	var confidence float64
	if err := p.runner.Run(ctx, "score", func(ctx context.Context) error {
		confidence = grading.Score(transactions)
		return nil
	}); err != nil {
		return err
	}

	// A parser that found nothing still produced a readable document; keep
	// the list non-nil so grading treats it as empty rather than malformed.
	if transactions == nil {
		transactions = []parser.Transaction{}
	}
	payload := &airlock.Payload{Transactions: transactions}
	var grade grading.Result
	if err := p.runner.Run(ctx, "grade", func(ctx context.Context) error {
		grade = p.engine.Grade(payload, confidence, item.AssetID)
		return nil
	}); err != nil {
		return err
	}

	if err := p.runner.Run(ctx, "persist", func(ctx context.Context) error {
		encoded, err := airlock.EncodePayload(payload)
		if err != nil {
			return err
		}
		return p.store.PersistReview(ctx, item.ID, encoded, confidence, grade.Level)
	}); err != nil {
		return err
	}

	// Best effort; a lost push never fails an ingested item.
	_ = p.runner.Run(ctx, "notify", func(ctx context.Context) error {
		err := p.notifier.Publish(ctx, notifications.EventReviewReady, notifications.Payload{
			"item_id":     strconv.FormatInt(item.ID, 10),
			"name":        item.OriginalName,
			"trust_level": string(grade.Level),
		})
		if err != nil {
			logging.WithContext(ctx, p.logger).Warn("review notification not delivered", logging.Error(err))
		}
		return nil
	})

	return nil
}
