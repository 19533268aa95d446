package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"veristage/internal/kyc/schema"
	"veristage/internal/kyc/workflow"
	"veristage/pkg/domain"
	"veristage/pkg/platform/sentinel"
)

// PostgresArchive keeps an append-only local record of every assembled
// submission payload for compliance retention. Rows are written once at
// terminal submission and never updated.
type PostgresArchive struct {
	pool *pgxpool.Pool
}

func NewPostgresArchive(pool *pgxpool.Pool) *PostgresArchive {
	return &PostgresArchive{pool: pool}
}

// SaveSubmission archives one assembled submission.
func (a *PostgresArchive) SaveSubmission(ctx context.Context, sub workflow.Submission) error {
	fields, err := json.Marshal(sub.Fields)
	if err != nil {
		return fmt.Errorf("marshal submission fields: %w", err)
	}
	documents, err := json.Marshal(sub.Documents)
	if err != nil {
		return fmt.Errorf("marshal submission documents: %w", err)
	}
	incomplete := make([]int, 0, len(sub.IncompleteStages))
	for _, st := range sub.IncompleteStages {
		incomplete = append(incomplete, int(st))
	}

	_, err = a.pool.Exec(ctx, `
		INSERT INTO submission_archive
			(submission_id, applicant_id, account_type, fields, documents, force_completed, incomplete_stages, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		sub.SubmissionID.String(),
		sub.ApplicantID.String(),
		string(sub.AccountType),
		fields,
		documents,
		sub.ForceCompleted,
		incomplete,
		sub.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("archive submission: %w", err)
	}
	return nil
}

// FindSubmission returns one archived submission by its ID.
func (a *PostgresArchive) FindSubmission(ctx context.Context, submissionID domain.SubmissionID) (workflow.Submission, error) {
	row := a.pool.QueryRow(ctx, `
		SELECT submission_id, applicant_id, account_type, fields, documents, force_completed, incomplete_stages, submitted_at
		FROM submission_archive
		WHERE submission_id = $1`,
		submissionID.String(),
	)

	var (
		sub           workflow.Submission
		subID, appID  string
		accountType   string
		fieldsJSON    []byte
		documentsJSON []byte
		incomplete    []int
	)
	err := row.Scan(&subID, &appID, &accountType, &fieldsJSON, &documentsJSON,
		&sub.ForceCompleted, &incomplete, &sub.SubmittedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return workflow.Submission{}, sentinel.ErrNotFound
		}
		return workflow.Submission{}, fmt.Errorf("find archived submission: %w", err)
	}

	if sub.SubmissionID, err = domain.ParseSubmissionID(subID); err != nil {
		return workflow.Submission{}, fmt.Errorf("scan archived submission id: %w", err)
	}
	if sub.ApplicantID, err = domain.ParseApplicantID(appID); err != nil {
		return workflow.Submission{}, fmt.Errorf("scan archived applicant id: %w", err)
	}
	sub.AccountType = domain.AccountType(accountType)
	if err := json.Unmarshal(fieldsJSON, &sub.Fields); err != nil {
		return workflow.Submission{}, fmt.Errorf("decode archived fields: %w", err)
	}
	if err := json.Unmarshal(documentsJSON, &sub.Documents); err != nil {
		return workflow.Submission{}, fmt.Errorf("decode archived documents: %w", err)
	}
	for _, st := range incomplete {
		sub.IncompleteStages = append(sub.IncompleteStages, schema.StageID(st))
	}
	return sub, nil
}

// Close releases the pool.
func (a *PostgresArchive) Close() {
	a.pool.Close()
}
