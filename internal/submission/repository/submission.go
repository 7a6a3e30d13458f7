package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"runpad/internal/common/db"
)

var (
	ErrSubmissionNotFound = errors.New("submission not found")
)

// Submission represents one code execution request and its judged results.
// Source, stdin and stdout are stored base64-encoded, as the judge expects
// and returns them. JSON tags match the public API payload, which is also
// the shape cached in Redis.
type Submission struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	LanguageID  int       `json:"language_id"`
	SourceCode  string    `json:"source_code"`
	Stdin       string    `json:"stdin"`
	Stdout      *string   `json:"stdout"`
	Time        *string   `json:"time"`
	Memory      *int64    `json:"memory"`
	Status      string    `json:"status"`
	Token       string    `json:"token"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// ResultUpdate carries the judge fields refreshed by a reconciliation pass.
type ResultUpdate struct {
	Stdout *string
	Time   *string
	Memory *int64
	Status string
}

// SubmissionRepository defines submission persistence interfaces.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *Submission) error
	GetByID(ctx context.Context, id string) (*Submission, error)
	List(ctx context.Context) ([]*Submission, error)
	ListByStatuses(ctx context.Context, statuses []string) ([]*Submission, error)
	UpdateResult(ctx context.Context, id string, update ResultUpdate) (*Submission, error)
	Delete(ctx context.Context, id string) error
}

// MySQLSubmissionRepository implements SubmissionRepository with MySQL.
type MySQLSubmissionRepository struct {
	db db.Database
}

// NewSubmissionRepository creates a submission repository.
func NewSubmissionRepository(database db.Database) SubmissionRepository {
	return &MySQLSubmissionRepository{db: database}
}

const submissionColumns = "id, username, language_id, source_code, stdin, stdout, time, memory, status, token, submitted_at"

// Create inserts a submission record.
func (r *MySQLSubmissionRepository) Create(ctx context.Context, submission *Submission) error {
	if submission == nil {
		return errors.New("submission is nil")
	}
	if submission.ID == "" {
		return errors.New("id is required")
	}
	if submission.Username == "" {
		return errors.New("username is required")
	}
	if submission.LanguageID <= 0 {
		return errors.New("languageID is required")
	}

	query := `
		INSERT INTO submissions
		(id, username, language_id, source_code, stdin, stdout, time, memory, status, token, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(
		ctx,
		query,
		submission.ID,
		submission.Username,
		submission.LanguageID,
		submission.SourceCode,
		submission.Stdin,
		submission.Stdout,
		submission.Time,
		submission.Memory,
		submission.Status,
		submission.Token,
		submission.SubmittedAt,
	)
	return err
}

// GetByID retrieves a submission by id.
func (r *MySQLSubmissionRepository) GetByID(ctx context.Context, id string) (*Submission, error) {
	if id == "" {
		return nil, errors.New("id is required")
	}
	query := "SELECT " + submissionColumns + " FROM submissions WHERE id = ? LIMIT 1"
	row := r.db.QueryRow(ctx, query, id)
	submission, err := scanSubmission(row)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	return submission, nil
}

// List returns all submissions ordered by submission time ascending.
func (r *MySQLSubmissionRepository) List(ctx context.Context) ([]*Submission, error) {
	query := "SELECT " + submissionColumns + " FROM submissions ORDER BY submitted_at ASC"
	return r.queryMany(ctx, query)
}

// ListByStatuses returns submissions whose status is in the given set,
// ordered by submission time ascending.
func (r *MySQLSubmissionRepository) ListByStatuses(ctx context.Context, statuses []string) ([]*Submission, error) {
	if len(statuses) == 0 {
		return []*Submission{}, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(statuses)), ", ")
	query := "SELECT " + submissionColumns + " FROM submissions WHERE status IN (" + placeholders + ") ORDER BY submitted_at ASC"
	args := make([]interface{}, 0, len(statuses))
	for _, status := range statuses {
		args = append(args, status)
	}
	return r.queryMany(ctx, query, args...)
}

// UpdateResult applies refreshed judge fields to a submission and returns the
// updated row.
func (r *MySQLSubmissionRepository) UpdateResult(ctx context.Context, id string, update ResultUpdate) (*Submission, error) {
	if id == "" {
		return nil, errors.New("id is required")
	}
	query := "UPDATE submissions SET stdout = ?, time = ?, memory = ?, status = ? WHERE id = ?"
	if _, err := r.db.Exec(ctx, query, update.Stdout, update.Time, update.Memory, update.Status, id); err != nil {
		return nil, err
	}
	// MySQL reports zero affected rows when values did not change, so
	// existence is confirmed by the follow-up read instead.
	return r.GetByID(ctx, id)
}

// Delete removes a submission by id.
func (r *MySQLSubmissionRepository) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("id is required")
	}
	result, err := r.db.Exec(ctx, "DELETE FROM submissions WHERE id = ?", id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSubmissionNotFound
	}
	return nil
}

func (r *MySQLSubmissionRepository) queryMany(ctx context.Context, query string, args ...interface{}) ([]*Submission, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	submissions := make([]*Submission, 0)
	for rows.Next() {
		submission := &Submission{}
		if err := rows.Scan(
			&submission.ID,
			&submission.Username,
			&submission.LanguageID,
			&submission.SourceCode,
			&submission.Stdin,
			&submission.Stdout,
			&submission.Time,
			&submission.Memory,
			&submission.Status,
			&submission.Token,
			&submission.SubmittedAt,
		); err != nil {
			return nil, err
		}
		submissions = append(submissions, submission)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return submissions, nil
}

func scanSubmission(row db.Row) (*Submission, error) {
	submission := &Submission{}
	if err := row.Scan(
		&submission.ID,
		&submission.Username,
		&submission.LanguageID,
		&submission.SourceCode,
		&submission.Stdin,
		&submission.Stdout,
		&submission.Time,
		&submission.Memory,
		&submission.Status,
		&submission.Token,
		&submission.SubmittedAt,
	); err != nil {
		return nil, err
	}
	return submission, nil
}
