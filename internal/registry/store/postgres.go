package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lib/pq"

	"didregistry/internal/registry/models"
	"didregistry/pkg/platform/sentinel"
)

// Schema creates the registry tables. One table keyed by identifier, one for
// the ordered key sets, one single-row table for the allocator counter.
const Schema = `
CREATE TABLE IF NOT EXISTS did_records (
	id         BYTEA PRIMARY KEY,
	controller BYTEA NOT NULL,
	subject    BYTEA NOT NULL,
	created    TIMESTAMPTZ NOT NULL,
	updated    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS did_keys (
	did      BYTEA NOT NULL REFERENCES did_records(id) ON DELETE CASCADE,
	position INT NOT NULL,
	x        BYTEA NOT NULL,
	y        BYTEA NOT NULL,
	purpose  TEXT NOT NULL,
	curve    TEXT NOT NULL,
	PRIMARY KEY (did, position)
);

CREATE TABLE IF NOT EXISTS allocator_nonce (
	id   INT PRIMARY KEY CHECK (id = 1),
	next BIGINT NOT NULL
);

INSERT INTO allocator_nonce (id, next) VALUES (1, 0) ON CONFLICT (id) DO NOTHING;
`

// uniqueViolation is the Postgres error code for duplicate primary keys.
const uniqueViolation = "23505"

// Postgres persists records in PostgreSQL. Per-identifier atomicity comes
// from SELECT ... FOR UPDATE inside a transaction: the row lock covers the
// validate callback and the mutation.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed record store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema creates the tables if they do not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (p *Postgres) Create(ctx context.Context, record *models.DIDRecord) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO did_records (id, controller, subject, created, updated)
		VALUES ($1, $2, $3, $4, $5)
	`, record.ID.Bytes(), record.Controller.Bytes(), record.Subject.Bytes(), record.Created, record.Updated)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return fmt.Errorf("identifier %s already registered: %w", record.ID, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

func (p *Postgres) Find(ctx context.Context, id common.Hash) (*models.DIDRecord, error) {
	return p.load(ctx, p.db, id, false)
}

func (p *Postgres) Execute(ctx context.Context, id common.Hash,
	validate func(*models.DIDRecord) error,
	apply func(*models.DIDRecord)) (*models.DIDRecord, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	record, err := p.load(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}
	if err := validate(record); err != nil {
		return nil, err
	}

	before := len(record.Keys)
	apply(record)

	_, err = tx.ExecContext(ctx, `
		UPDATE did_records SET controller = $2, updated = $3 WHERE id = $1
	`, id.Bytes(), record.Controller.Bytes(), record.Updated)
	if err != nil {
		return nil, fmt.Errorf("update record: %w", err)
	}
	for pos := before; pos < len(record.Keys); pos++ {
		key := record.Keys[pos]
		_, err = tx.ExecContext(ctx, `
			INSERT INTO did_keys (did, position, x, y, purpose, curve)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, id.Bytes(), pos, key.X[:], key.Y[:], key.Purpose.String(), key.Curve)
		if err != nil {
			return nil, fmt.Errorf("insert key: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return record, nil
}

func (p *Postgres) Delete(ctx context.Context, id common.Hash, validate func(*models.DIDRecord) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	record, err := p.load(ctx, tx, id, true)
	if err != nil {
		return err
	}
	if err := validate(record); err != nil {
		return err
	}

	// did_keys rows go with the record via ON DELETE CASCADE.
	if _, err := tx.ExecContext(ctx, `DELETE FROM did_records WHERE id = $1`, id.Bytes()); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// querier lets load run against the pool or an open transaction.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (p *Postgres) load(ctx context.Context, q querier, id common.Hash, forUpdate bool) (*models.DIDRecord, error) {
	query := `SELECT controller, subject, created, updated FROM did_records WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var (
		controller, subject []byte
		created, updated    time.Time
	)
	err := q.QueryRowContext(ctx, query, id.Bytes()).Scan(&controller, &subject, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("identifier %s: %w", id, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("load record: %w", err)
	}

	record := &models.DIDRecord{
		ID:         id,
		Controller: common.BytesToAddress(controller),
		Subject:    common.BytesToAddress(subject),
		Created:    created,
		Updated:    updated,
	}

	rows, err := q.QueryContext(ctx, `
		SELECT x, y, purpose, curve FROM did_keys WHERE did = $1 ORDER BY position
	`, id.Bytes())
	if err != nil {
		return nil, fmt.Errorf("load keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			x, y           []byte
			purpose, curve string
		)
		if err := rows.Scan(&x, &y, &purpose, &curve); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		key := models.Key{Purpose: models.KeyPurpose(purpose), Curve: curve}
		copy(key.X[:], x)
		copy(key.Y[:], y)
		record.Keys = append(record.Keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keys: %w", err)
	}
	return record, nil
}

// PostgresNonceSource persists the allocator counter so identifiers are never
// reused across restarts.
type PostgresNonceSource struct {
	db *sql.DB
}

func NewPostgresNonceSource(db *sql.DB) *PostgresNonceSource {
	return &PostgresNonceSource{db: db}
}

func (s *PostgresNonceSource) Next(ctx context.Context) (uint64, error) {
	var next int64
	err := s.db.QueryRowContext(ctx, `
		UPDATE allocator_nonce SET next = next + 1 WHERE id = 1 RETURNING next - 1
	`).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("advance allocator nonce: %w", err)
	}
	return uint64(next), nil
}
