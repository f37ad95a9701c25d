package labs

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/spigell/labconnect/internal/domain"
)

// SQLStore reads the lab table directly from Postgres or SQLite.
type SQLStore struct {
	DB     *sql.DB
	table  string
	logger *zap.Logger
}

// OpenSQL opens a database for backend (postgres or sqlite) and verifies the connection.
func OpenSQL(ctx context.Context, backend, dsn string) (*sql.DB, error) {
	var driver string
	switch backend {
	case BackendPostgres:
		driver = "postgres"
	case BackendSQLite:
		driver = "sqlite"
	default:
		return nil, fmt.Errorf("unsupported sql backend: %s", backend)
	}

	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%s dsn is required", backend)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", backend, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", backend, err)
	}
	return db, nil
}

func NewSQLStore(db *sql.DB, table string, logger *zap.Logger) *SQLStore {
	if table = strings.TrimSpace(table); table == "" {
		table = DefaultTable
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLStore{DB: db, table: table, logger: logger}
}

func (s *SQLStore) All(ctx context.Context) ([]domain.LabRecord, error) {
	query := "SELECT * FROM " + pq.QuoteIdentifier(s.table)

	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", s.table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var items []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}

		row := make(map[string]any, len(columns))
		for i, column := range columns {
			row[column] = values[i]
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.logger.Debug("got rows from database", zap.String("table", s.table), zap.Int("rows", len(items)))

	return decodeRows(items)
}
