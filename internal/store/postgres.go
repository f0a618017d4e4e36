package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool, for deployments where
// multiple serve instances share one job registry.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS phone_jobs (
	id           TEXT PRIMARY KEY,
	company_url  TEXT NOT NULL,
	company_name TEXT NOT NULL,
	contact_ids  JSONB NOT NULL,
	status       TEXT NOT NULL DEFAULT 'pending',
	contacts     JSONB NOT NULL DEFAULT '[]',
	created_at   TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_phone_jobs_status ON phone_jobs(status);
CREATE INDEX IF NOT EXISTS idx_phone_jobs_created_at ON phone_jobs(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateJob(ctx context.Context, job *model.Job) error {
	idsJSON, err := json.Marshal(job.ContactIDs)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal contact ids")
	}

	status := job.Status
	if status == "" {
		status = model.JobStatusPending
	}
	createdAt := job.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO phone_jobs (id, company_url, company_name, contact_ids, status, contacts, created_at)
		 VALUES ($1, $2, $3, $4, $5, '[]', $6)`,
		job.JobID, job.CompanyURL, job.CompanyName, string(idsJSON), string(status), createdAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateJob
		}
		return eris.Wrapf(err, "postgres: insert job %s", job.JobID)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, company_url, company_name, contact_ids, status, contacts, created_at, completed_at
		 FROM phone_jobs WHERE id = $1`,
		jobID,
	)

	var j model.Job
	var idsJSON, contactsJSON []byte
	var completedAt *time.Time
	err := row.Scan(&j.JobID, &j.CompanyURL, &j.CompanyName, &idsJSON, &j.Status, &contactsJSON, &j.CreatedAt, &completedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get job %s", jobID)
	}

	if err := json.Unmarshal(idsJSON, &j.ContactIDs); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal contact ids")
	}
	if err := json.Unmarshal(contactsJSON, &j.EnrichedContacts); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal contacts")
	}
	if j.EnrichedContacts == nil {
		j.EnrichedContacts = []model.Contact{}
	}
	j.CompletedAt = completedAt
	return &j, nil
}

func (s *PostgresStore) UpdateJob(ctx context.Context, jobID string, contacts []model.Contact, status model.JobStatus) error {
	if status == "" {
		status = model.JobStatusCompleted
	}
	if contacts == nil {
		contacts = []model.Contact{}
	}

	contactsJSON, err := json.Marshal(contacts)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal contacts")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE phone_jobs SET contacts = $1, status = $2, completed_at = $3 WHERE id = $4`,
		string(contactsJSON), string(status), time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update job %s", jobID)
	}
	if tag.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteExpired(ctx context.Context, olderThan time.Duration) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM phone_jobs WHERE created_at < $1`,
		time.Now().UTC().Add(-olderThan),
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired jobs")
	}
	return int(tag.RowsAffected()), nil
}
