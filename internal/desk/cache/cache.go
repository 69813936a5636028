// Package cache keeps the last good raw batch per source so a restarted
// desk can show records before its first live fetch. Only what the backend
// returned is stored; decrypted signatures never reach disk.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/visitdesk/internal/dbx"
	"github.com/dmitrijs2005/visitdesk/internal/desk/models"
)

type Repository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

func NewRepository(db dbx.DBTX, dialect dbx.Dialect) *Repository {
	return &Repository{db: db, dialect: dialect}
}

func (r *Repository) q(query string) string { return dbx.Rebind(r.dialect, query) }

// Save replaces the stored batch for src.
func (r *Repository) Save(ctx context.Context, src models.Source, raws []models.RawRecord, fetchedAt time.Time) error {
	if raws == nil {
		raws = []models.RawRecord{}
	}
	payload, err := json.Marshal(raws)
	if err != nil {
		return fmt.Errorf("encode %s batch: %w", src, err)
	}

	_, err = r.db.ExecContext(ctx, r.q(`
		INSERT INTO source_snapshots (source, payload, record_count, fetched_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (source) DO UPDATE SET
			payload = excluded.payload,
			record_count = excluded.record_count,
			fetched_at = excluded.fetched_at`),
		string(src), string(payload), len(raws), fetchedAt.UnixMilli())
	return err
}

// Load returns the stored batch for src and when it was fetched.
// A missing batch returns sql.ErrNoRows.
func (r *Repository) Load(ctx context.Context, src models.Source) ([]models.RawRecord, time.Time, error) {
	var payload string
	var ms int64

	err := r.db.QueryRowContext(ctx, r.q(`SELECT payload, fetched_at FROM source_snapshots WHERE source = ?`), string(src)).
		Scan(&payload, &ms)
	if err != nil {
		return nil, time.Time{}, err
	}

	var raws []models.RawRecord
	if err := json.Unmarshal([]byte(payload), &raws); err != nil {
		return nil, time.Time{}, fmt.Errorf("decode %s batch: %w", src, err)
	}
	return raws, time.UnixMilli(ms), nil
}

// LoadAll returns every stored batch keyed by source.
func (r *Repository) LoadAll(ctx context.Context) (map[models.Source][]models.RawRecord, error) {
	out := make(map[models.Source][]models.RawRecord, len(models.Sources))
	for _, src := range models.Sources {
		raws, _, err := r.Load(ctx, src)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[src] = raws
	}
	return out, nil
}

// Clear drops every stored batch.
func (r *Repository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM source_snapshots`)
	return err
}
