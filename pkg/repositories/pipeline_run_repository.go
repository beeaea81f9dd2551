package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/apperrors"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/database"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/models"
)

// PipelineRunRepository keeps a history of pipeline executions.
type PipelineRunRepository interface {
	Create(ctx context.Context, run *models.PipelineRun) error
	Update(ctx context.Context, run *models.PipelineRun) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.PipelineRun, error)
	ListRecent(ctx context.Context, namespace string, limit int) ([]*models.PipelineRun, error)
}

type pipelineRunRepository struct {
	db *database.DB
}

// NewPipelineRunRepository creates a new PipelineRunRepository.
func NewPipelineRunRepository(db *database.DB) PipelineRunRepository {
	return &pipelineRunRepository{db: db}
}

var _ PipelineRunRepository = (*pipelineRunRepository)(nil)

func (r *pipelineRunRepository) Create(ctx context.Context, run *models.PipelineRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	nodesJSON, err := json.Marshal(run.Nodes)
	if err != nil {
		return fmt.Errorf("failed to encode nodes: %w", err)
	}

	query := `
		INSERT INTO pipeline_runs (
			id, namespace, export_id, feature_group, already_existed,
			job_name, job_status, nodes, error_message, started_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = r.db.Exec(ctx, query, runArgs(run, nodesJSON)...)
	if err != nil {
		return fmt.Errorf("failed to create pipeline run: %w", err)
	}
	return nil
}

func (r *pipelineRunRepository) Update(ctx context.Context, run *models.PipelineRun) error {
	nodesJSON, err := json.Marshal(run.Nodes)
	if err != nil {
		return fmt.Errorf("failed to encode nodes: %w", err)
	}

	query := `
		UPDATE pipeline_runs SET
			namespace = $2, export_id = $3, feature_group = $4, already_existed = $5,
			job_name = $6, job_status = $7, nodes = $8, error_message = $9,
			started_at = $10, completed_at = $11
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, runArgs(run, nodesJSON)...)
	if err != nil {
		return fmt.Errorf("failed to update pipeline run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("pipeline run %s: %w", run.ID, apperrors.ErrNotFound)
	}
	return nil
}

func (r *pipelineRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PipelineRun, error) {
	query := `
		SELECT id, namespace, export_id, feature_group, already_existed,
		       job_name, job_status, nodes, error_message, started_at, completed_at
		FROM pipeline_runs
		WHERE id = $1`

	run, err := scanPipelineRun(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("pipeline run %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get pipeline run: %w", err)
	}
	return run, nil
}

func (r *pipelineRunRepository) ListRecent(ctx context.Context, namespace string, limit int) ([]*models.PipelineRun, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, namespace, export_id, feature_group, already_existed,
		       job_name, job_status, nodes, error_message, started_at, completed_at
		FROM pipeline_runs
		WHERE namespace = $1
		ORDER BY started_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, namespace, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pipeline runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.PipelineRun
	for rows.Next() {
		run, err := scanPipelineRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pipeline run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pipeline runs: %w", err)
	}
	return runs, nil
}

func runArgs(run *models.PipelineRun, nodesJSON []byte) []any {
	var featureGroup, jobName, jobStatus string
	if run.FeatureGroup != nil {
		featureGroup = run.FeatureGroup.Name
	}
	if run.Job != nil {
		jobName = run.Job.JobName
		jobStatus = string(run.Job.Status)
	}
	var errorMessage *string
	if run.ErrorMessage != "" {
		errorMessage = &run.ErrorMessage
	}
	return []any{
		run.ID, run.Namespace, run.ExportID, featureGroup, run.AlreadyExisted,
		jobName, jobStatus, nodesJSON, errorMessage, run.StartedAt, run.CompletedAt,
	}
}

func scanPipelineRun(row pgx.Row) (*models.PipelineRun, error) {
	var (
		run          models.PipelineRun
		featureGroup string
		jobName      string
		jobStatus    string
		nodesJSON    []byte
		errorMessage *string
	)
	err := row.Scan(
		&run.ID, &run.Namespace, &run.ExportID, &featureGroup, &run.AlreadyExisted,
		&jobName, &jobStatus, &nodesJSON, &errorMessage, &run.StartedAt, &run.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	if featureGroup != "" {
		run.FeatureGroup = &models.FeatureGroupHandle{Name: featureGroup}
	}
	if jobName != "" || jobStatus != "" {
		run.Job = &models.JobOutcome{JobName: jobName, Status: models.JobStatus(jobStatus)}
	}
	if errorMessage != nil {
		run.ErrorMessage = *errorMessage
	}
	if len(nodesJSON) > 0 {
		if err := json.Unmarshal(nodesJSON, &run.Nodes); err != nil {
			return nil, fmt.Errorf("failed to decode nodes: %w", err)
		}
	}
	return &run, nil
}
