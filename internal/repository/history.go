package repository

import (
	"context"
	"time"

	"github.com/got3nks/amutorrent-sub002/internal/domain"
)

// HistoryRepository persists completed transfers. The daemon forgets a
// torrent once it is erased; this log is what survives.
type HistoryRepository interface {
	Init(ctx context.Context) error
	Record(ctx context.Context, record *domain.TransferRecord) (int64, error)
	List(ctx context.Context, limit int) ([]domain.TransferRecord, error)
	Delete(ctx context.Context, id int64) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
