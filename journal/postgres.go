package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type eventRow struct {
	bun.BaseModel `bun:"table:auction_events"`

	RunID      string    `bun:"run_id,pk,type:uuid"`
	Seq        int64     `bun:"seq,pk"`
	Kind       string    `bun:"kind,notnull"`
	Payload    []byte    `bun:"payload,type:bytea,notnull"`
	PrevHash   string    `bun:"prev_hash,notnull"`
	Hash       string    `bun:"hash,notnull,unique"`
	RecordedAt time.Time `bun:"recorded_at,notnull"`
}

func toRow(e Entry) *eventRow {
	return &eventRow{
		RunID:      e.RunID,
		Seq:        int64(e.Seq),
		Kind:       e.Kind,
		Payload:    e.Payload,
		PrevHash:   e.PrevHash,
		Hash:       e.Hash,
		RecordedAt: e.RecordedAt,
	}
}

func (r *eventRow) entry() Entry {
	return Entry{
		RunID:      r.RunID,
		Seq:        uint64(r.Seq),
		Kind:       r.Kind,
		Payload:    r.Payload,
		PrevHash:   r.PrevHash,
		Hash:       r.Hash,
		RecordedAt: r.RecordedAt,
	}
}

// PostgresStore mirrors journal entries into the auction_events table.
type PostgresStore struct {
	pool *pgxpool.Pool
	db   *bun.DB
}

// OpenPostgres connects to dsn, checks the connection and creates the table if needed.
func OpenPostgres(ctx context.Context, dsn string, poolSize int) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if poolSize > 0 {
		poolConfig.MaxConns = int32(poolSize)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	store := &PostgresStore{pool: pool, db: bun.NewDB(sqldb, pgdialect.New())}

	if _, err := store.db.NewCreateTable().Model((*eventRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create auction_events table: %w", err)
	}

	log.Printf("INFO: Journal mirror connected to %s/%s", poolConfig.ConnConfig.Host, poolConfig.ConnConfig.Database)
	return store, nil
}

func (s *PostgresStore) Append(ctx context.Context, e Entry) error {
	if _, err := s.db.NewInsert().Model(toRow(e)).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert journal entry %d: %w", e.Seq, err)
	}
	return nil
}

// Load returns every entry of a run in sequence order.
func (s *PostgresStore) Load(ctx context.Context, runID string) ([]Entry, error) {
	var rows []eventRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("run_id = ?", runID).
		Order("seq ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load journal run %s: %w", runID, err)
	}

	entries := make([]Entry, 0, len(rows))
	for i := range rows {
		entries = append(entries, rows[i].entry())
	}
	return entries, nil
}

// Runs lists the recorded run ids, oldest first.
func (s *PostgresStore) Runs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT run_id::text FROM auction_events GROUP BY run_id ORDER BY MIN(recorded_at)`)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal runs: %w", err)
	}
	defer rows.Close()

	var runs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan run id: %w", err)
		}
		runs = append(runs, id)
	}
	return runs, rows.Err()
}

func (s *PostgresStore) Close() {
	if err := s.db.Close(); err != nil {
		log.Printf("WARNING: Failed to close journal database: %v", err)
	}
	s.pool.Close()
}
