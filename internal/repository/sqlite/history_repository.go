package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/got3nks/amutorrent-sub002/internal/domain"
	"github.com/got3nks/amutorrent-sub002/internal/repository"
)

const createHistoryTable = `
CREATE TABLE IF NOT EXISTS transfer_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	hash TEXT NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	size INTEGER NOT NULL DEFAULT 0,
	label TEXT NOT NULL DEFAULT '',
	finished_at DATETIME NOT NULL,
	created_at DATETIME NOT NULL
);
`

type HistoryRepository struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) repository.HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createHistoryTable); err != nil {
		return fmt.Errorf("create transfer_history table: %w", err)
	}
	if err := r.ensureHistoryColumns(ctx); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_transfer_history_finished_at ON transfer_history (finished_at)`); err != nil {
		return fmt.Errorf("create transfer_history index: %w", err)
	}
	return nil
}

func (r *HistoryRepository) ensureHistoryColumns(ctx context.Context) error {
	rows, err := r.db.QueryContext(ctx, `PRAGMA table_info(transfer_history)`)
	if err != nil {
		return fmt.Errorf("describe transfer_history table: %w", err)
	}
	defer rows.Close()

	columns := map[string]struct{}{}
	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notnull   int
			dfltValue any
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return fmt.Errorf("scan pragma table info: %w", err)
		}
		columns[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate pragma table info: %w", err)
	}

	// label arrived after the first schema; migrate old databases in place.
	if _, exists := columns["label"]; !exists {
		if _, err := r.db.ExecContext(ctx,
			`ALTER TABLE transfer_history ADD COLUMN label TEXT NOT NULL DEFAULT ''`); err != nil {
			return fmt.Errorf("add column label: %w", err)
		}
	}
	return nil
}

func (r *HistoryRepository) Record(ctx context.Context, record *domain.TransferRecord) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
INSERT INTO transfer_history (hash, name, size, label, finished_at, created_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		record.Hash,
		record.Name,
		record.Size,
		record.Label,
		record.FinishedAt.UTC(),
		time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert transfer record: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("transfer record last insert id: %w", err)
	}
	record.ID = id
	return id, nil
}

func (r *HistoryRepository) List(ctx context.Context, limit int) ([]domain.TransferRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, hash, name, size, label, finished_at
FROM transfer_history
ORDER BY finished_at DESC, id DESC
LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query transfer history: %w", err)
	}
	defer rows.Close()

	records := []domain.TransferRecord{}
	for rows.Next() {
		var (
			record     domain.TransferRecord
			finishedAt time.Time
		)
		if err := rows.Scan(
			&record.ID,
			&record.Hash,
			&record.Name,
			&record.Size,
			&record.Label,
			&finishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan transfer record: %w", err)
		}
		record.FinishedAt = finishedAt.UTC()
		records = append(records, record)
	}

	return records, rows.Err()
}

func (r *HistoryRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transfer_history WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete transfer record: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transfer record delete rows affected: %w", err)
	}
	if aff == 0 {
		return fmt.Errorf("transfer record not found")
	}
	return nil
}

func (r *HistoryRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transfer_history WHERE finished_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune transfer history: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune rows affected: %w", err)
	}
	return aff, nil
}
