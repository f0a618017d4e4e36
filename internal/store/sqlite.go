package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/prospect-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It lets a serve
// instance and CLI invocations share job state through a single file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS phone_jobs (
	id           TEXT PRIMARY KEY,
	company_url  TEXT NOT NULL,
	company_name TEXT NOT NULL,
	contact_ids  TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'pending',
	contacts     TEXT NOT NULL DEFAULT '[]',
	created_at   DATETIME NOT NULL,
	completed_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_phone_jobs_status ON phone_jobs(status);
CREATE INDEX IF NOT EXISTS idx_phone_jobs_created_at ON phone_jobs(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateJob(ctx context.Context, job *model.Job) error {
	idsJSON, err := json.Marshal(job.ContactIDs)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal contact ids")
	}

	status := job.Status
	if status == "" {
		status = model.JobStatusPending
	}
	createdAt := job.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO phone_jobs (id, company_url, company_name, contact_ids, status, contacts, created_at)
		 VALUES (?, ?, ?, ?, ?, '[]', ?)`,
		job.JobID, job.CompanyURL, job.CompanyName, string(idsJSON), string(status), createdAt,
	)
	if err != nil {
		// modernc/sqlite surfaces constraint violations only by message text.
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return ErrDuplicateJob
		}
		return eris.Wrapf(err, "sqlite: insert job %s", job.JobID)
	}
	return nil
}

func (s *SQLiteStore) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, company_url, company_name, contact_ids, status, contacts, created_at, completed_at
		 FROM phone_jobs WHERE id = ?`,
		jobID,
	)

	var j model.Job
	var idsJSON, contactsJSON string
	var completedAt sql.NullTime
	err := row.Scan(&j.JobID, &j.CompanyURL, &j.CompanyName, &idsJSON, &j.Status, &contactsJSON, &j.CreatedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get job %s", jobID)
	}

	if err := json.Unmarshal([]byte(idsJSON), &j.ContactIDs); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal contact ids")
	}
	if err := json.Unmarshal([]byte(contactsJSON), &j.EnrichedContacts); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal contacts")
	}
	if j.EnrichedContacts == nil {
		j.EnrichedContacts = []model.Contact{}
	}
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		j.CompletedAt = &t
	}
	return &j, nil
}

func (s *SQLiteStore) UpdateJob(ctx context.Context, jobID string, contacts []model.Contact, status model.JobStatus) error {
	if status == "" {
		status = model.JobStatusCompleted
	}
	if contacts == nil {
		contacts = []model.Contact{}
	}

	contactsJSON, err := json.Marshal(contacts)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal contacts")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE phone_jobs SET contacts = ?, status = ?, completed_at = ? WHERE id = ?`,
		string(contactsJSON), string(status), time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update job %s", jobID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return ErrJobNotFound
	}
	return nil
}

func (s *SQLiteStore) DeleteExpired(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM phone_jobs WHERE created_at < ?`, cutoff,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired jobs")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}
