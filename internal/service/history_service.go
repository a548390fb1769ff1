package service

import (
	"context"
	"errors"
	"time"

	"github.com/got3nks/amutorrent-sub002/internal/domain"
	"github.com/got3nks/amutorrent-sub002/internal/repository"
)

// HistoryService records finished transfers and serves them back to the UI.
type HistoryService interface {
	RecordFinished(ctx context.Context, record *domain.TransferRecord) (*domain.TransferRecord, error)
	ListRecent(ctx context.Context, limit int) ([]domain.TransferRecord, error)
	Delete(ctx context.Context, id int64) error
	Prune(ctx context.Context, keep time.Duration) (int64, error)
}

type historyService struct {
	history repository.HistoryRepository
}

func NewHistoryService(history repository.HistoryRepository) HistoryService {
	return &historyService{
		history: history,
	}
}

func (s *historyService) RecordFinished(ctx context.Context, record *domain.TransferRecord) (*domain.TransferRecord, error) {
	if record == nil {
		return nil, errors.New("transfer record is required")
	}
	if record.Hash == "" {
		return nil, errors.New("transfer hash is required")
	}
	if record.FinishedAt.IsZero() {
		record.FinishedAt = time.Now().UTC()
	}

	id, err := s.history.Record(ctx, record)
	if err != nil {
		return nil, err
	}
	record.ID = id
	return record, nil
}

func (s *historyService) ListRecent(ctx context.Context, limit int) ([]domain.TransferRecord, error) {
	return s.history.List(ctx, limit)
}

func (s *historyService) Delete(ctx context.Context, id int64) error {
	return s.history.Delete(ctx, id)
}

func (s *historyService) Prune(ctx context.Context, keep time.Duration) (int64, error) {
	if keep <= 0 {
		return 0, errors.New("retention window must be positive")
	}
	return s.history.DeleteOlderThan(ctx, time.Now().UTC().Add(-keep))
}
