package journal

import (
	"context"
	"strings"
	"time"

	"github.com/dmitrijs2005/visitdesk/internal/dbx"
)

// SQLStore persists entries in SQLite or PostgreSQL.
type SQLStore struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

func NewSQLStore(db dbx.DBTX, dialect dbx.Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

func (s *SQLStore) Append(ctx context.Context, e Entry) error {
	e = prepare(e)
	_, err := s.db.ExecContext(ctx, dbx.Rebind(s.dialect, `
		INSERT INTO journal_entries (id, record_id, source, action, operator, reason, outcome, error, at_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		e.ID, e.RecordID, e.Source, e.Action, e.Operator, e.Reason, string(e.Outcome), e.Error, e.At.UnixMilli())
	return err
}

func (s *SQLStore) List(ctx context.Context, q Query) ([]Entry, error) {
	var where []string
	var args []any
	if q.Source != "" {
		where = append(where, "source = ?")
		args = append(args, q.Source)
	}
	if q.RecordID != "" {
		where = append(where, "record_id = ?")
		args = append(args, q.RecordID)
	}

	query := `SELECT id, record_id, source, action, operator, reason, outcome, error, at_ms FROM journal_entries`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY at_ms DESC, id DESC LIMIT ?"
	args = append(args, q.limit())

	rows, err := s.db.QueryContext(ctx, dbx.Rebind(s.dialect, query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		var outcome string
		var ms int64
		if err := rows.Scan(&e.ID, &e.RecordID, &e.Source, &e.Action, &e.Operator, &e.Reason, &outcome, &e.Error, &ms); err != nil {
			return nil, err
		}
		e.Outcome = Outcome(outcome)
		e.At = time.UnixMilli(ms).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
