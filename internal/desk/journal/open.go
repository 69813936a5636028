package journal

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/visitdesk/internal/desk/storage"
)

// Open returns a journal for dsn: "memory" keeps entries in process, any
// other value is opened through storage.Open. The returned db is nil for
// the memory store; the caller owns closing it.
func Open(ctx context.Context, dsn string) (Store, *sql.DB, error) {
	if dsn == "memory" || dsn == "" {
		return NewMemoryStore(), nil, nil
	}
	db, d, err := storage.Open(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	return NewSQLStore(db, d), db, nil
}
