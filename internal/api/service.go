package api

import (
	"context"
	"fmt"

	"airlock/internal/airlock"
	"airlock/internal/blob"
	"airlock/internal/config"
	"airlock/internal/grading"
	"airlock/internal/ledger"
	"airlock/internal/parser"
	"airlock/internal/services"
)

// QueueService exposes airlock operations returning API DTOs.
type QueueService struct {
	store  *airlock.Store
	ledger *ledger.Store
	blobs  *blob.Store
	engine *grading.Engine
}

// NewQueueService constructs a QueueService around the stores.
func NewQueueService(cfg *config.Config, store *airlock.Store, lstore *ledger.Store, blobs *blob.Store) *QueueService {
	return &QueueService{
		store:  store,
		ledger: lstore,
		blobs:  blobs,
		engine: grading.NewEngine(cfg.Grading.ConfidenceThreshold),
	}
}

// Upload stages a document: content is written to the blob store when given,
// then a QUEUED item is created for the manager to pick up.
func (s *QueueService) Upload(ctx context.Context, req UploadRequest) (Item, error) {
	sourcePath := req.FilePath
	if len(req.Content) > 0 {
		name := req.FileName
		if name == "" {
			name = "document"
		}
		saved, err := s.blobs.Save(ctx, name, []byte(req.Content))
		if err != nil {
			return Item{}, err
		}
		sourcePath = saved
	}
	if sourcePath == "" {
		return Item{}, services.Wrap(services.ErrValidation, "api", "upload",
			"either content or filePath is required", nil)
	}

	item, err := s.store.Create(ctx, airlock.NewItem{
		AssetID:      req.AssetID,
		SourcePath:   sourcePath,
		OriginalName: req.FileName,
		UserID:       req.UserID,
	})
	if err != nil {
		return Item{}, err
	}
	return FromItem(item), nil
}

// List returns items filtered by status.
func (s *QueueService) List(ctx context.Context, statuses ...airlock.Status) ([]Item, error) {
	items, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromItems(items), nil
}

// Describe fetches a single item.
func (s *QueueService) Describe(ctx context.Context, id int64) (*Item, error) {
	item, err := s.store.GetByID(ctx, id)
	if err != nil || item == nil {
		return nil, err
	}
	dto := FromItem(item)
	return &dto, nil
}

// UpdatePayload replaces an item's extracted transactions while it awaits
// review. The replacement is regraded synchronously at full confidence, the
// reviewer having vouched for every row.
func (s *QueueService) UpdatePayload(ctx context.Context, id int64, req UpdatePayloadRequest) (Item, error) {
	item, err := s.store.GetByID(ctx, id)
	if err != nil {
		return Item{}, err
	}
	if item == nil {
		return Item{}, services.Wrap(services.ErrNotFound, "api", "update-payload",
			fmt.Sprintf("item %d not found", id), nil)
	}
	if item.Status != airlock.StatusReviewNeeded {
		return Item{}, services.Wrap(services.ErrValidation, "api", "update-payload",
			fmt.Sprintf("item %d is %s; only items awaiting review can be edited", id, item.Status), nil)
	}

	payload := &airlock.Payload{Transactions: make([]parser.Transaction, 0, len(req.Transactions))}
	for _, tx := range req.Transactions {
		payload.Transactions = append(payload.Transactions, parser.Transaction{
			Date:         tx.Date,
			Amount:       tx.Amount,
			Currency:     tx.Currency,
			Description:  tx.Description,
			Counterparty: tx.Counterparty,
			Confidence:   1.0,
		})
	}

	const editedConfidence = 1.0
	grade := s.engine.Grade(payload, editedConfidence, item.AssetID)

	encoded, err := airlock.EncodePayload(payload)
	if err != nil {
		return Item{}, err
	}
	item.PayloadJSON = encoded
	item.Confidence = editedConfidence
	item.TrustLevel = grade.Level
	if err := s.store.Update(ctx, item); err != nil {
		return Item{}, err
	}
	refreshed, err := s.store.GetByID(ctx, id)
	if err != nil {
		return Item{}, err
	}
	return FromItem(refreshed), nil
}

// Requeue sends an errored item back through the pipeline.
func (s *QueueService) Requeue(ctx context.Context, id int64) error {
	return s.store.Requeue(ctx, id)
}

// Stats returns item counts keyed by status string.
func (s *QueueService) Stats(ctx context.Context) (map[string]int, error) {
	summary, err := s.store.Health(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]int{
		string(airlock.StatusQueued):       summary.Queued,
		string(airlock.StatusProcessing):   summary.Processing,
		string(airlock.StatusReviewNeeded): summary.ReviewNeeded,
		string(airlock.StatusError):        summary.Errored,
		string(airlock.StatusCommitted):    summary.Committed,
	}, nil
}

// ListGhosts returns ghost entries filtered by status.
func (s *QueueService) ListGhosts(ctx context.Context, statuses ...ledger.GhostStatus) ([]Ghost, error) {
	ghosts, err := s.ledger.ListGhosts(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromGhosts(ghosts), nil
}

// CreateGhost registers an expected movement.
func (s *QueueService) CreateGhost(ctx context.Context, req GhostCreateRequest) (Ghost, error) {
	ghost, err := s.ledger.CreateGhost(ctx, ledger.NewGhost{
		AssetID:        req.AssetID,
		ExpectedAmount: req.ExpectedAmount,
		ExpectedDate:   req.ExpectedDate,
		Description:    req.Description,
	})
	if err != nil {
		return Ghost{}, err
	}
	return FromGhost(ghost), nil
}
