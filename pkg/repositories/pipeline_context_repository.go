package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/apperrors"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/database"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/models"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/retry"
)

// uniqueViolation is the SQLSTATE for a duplicate key.
const uniqueViolation = "23505"

// PipelineContextRepository stores every saved pipeline context as a new row.
// Load returns the highest version for a namespace.
type PipelineContextRepository interface {
	Load(ctx context.Context, namespace string) (*models.PipelineContext, error)
	Save(ctx context.Context, pctx *models.PipelineContext) (int64, error)
	ListVersions(ctx context.Context, namespace string) ([]*models.PipelineContext, error)
}

type pipelineContextRepository struct {
	db        *database.DB
	saveRetry *retry.Config
}

// NewPipelineContextRepository creates a new PipelineContextRepository.
func NewPipelineContextRepository(db *database.DB) PipelineContextRepository {
	return &pipelineContextRepository{
		db: db,
		saveRetry: &retry.Config{
			MaxRetries:   10,
			InitialDelay: 10 * time.Millisecond,
			MaxDelay:     250 * time.Millisecond,
			Multiplier:   2.0,
			JitterFactor: 0.5,
		},
	}
}

var _ PipelineContextRepository = (*pipelineContextRepository)(nil)

func (r *pipelineContextRepository) Load(ctx context.Context, namespace string) (*models.PipelineContext, error) {
	query := `
		SELECT version, payload, created_at
		FROM pipeline_contexts
		WHERE namespace = $1
		ORDER BY version DESC
		LIMIT 1`

	pctx, err := scanPipelineContext(r.db.QueryRow(ctx, query, namespace), namespace)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("pipeline context %q: %w", namespace, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load pipeline context: %w", err)
	}
	return pctx, nil
}

// Save inserts the next version. Concurrent saves never lock each other
// out: a save that loses the race for a version number retries and takes the
// next one, so the later writer wins.
func (r *pipelineContextRepository) Save(ctx context.Context, pctx *models.PipelineContext) (int64, error) {
	saved := pctx.Clone()
	saved.Version = 0
	saved.UpdatedAt = time.Time{}

	payload, err := json.Marshal(saved)
	if err != nil {
		return 0, fmt.Errorf("failed to encode pipeline context: %w", err)
	}

	query := `
		INSERT INTO pipeline_contexts (namespace, version, payload)
		SELECT $1, COALESCE(MAX(version), 0) + 1, $2
		FROM pipeline_contexts
		WHERE namespace = $1
		RETURNING version`

	var (
		version int64
		fatal   error
	)
	err = retry.Do(ctx, r.saveRetry, func() error {
		err := r.db.QueryRow(ctx, query, pctx.Namespace, payload).Scan(&version)
		if isUniqueViolation(err) {
			return err
		}
		fatal = err
		return nil
	})
	if err == nil {
		err = fatal
	}
	if err != nil {
		return 0, fmt.Errorf("failed to save pipeline context: %w", err)
	}
	return version, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func (r *pipelineContextRepository) ListVersions(ctx context.Context, namespace string) ([]*models.PipelineContext, error) {
	query := `
		SELECT version, payload, created_at
		FROM pipeline_contexts
		WHERE namespace = $1
		ORDER BY version ASC`

	rows, err := r.db.Query(ctx, query, namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to list pipeline contexts: %w", err)
	}
	defer rows.Close()

	var out []*models.PipelineContext
	for rows.Next() {
		pctx, err := scanPipelineContext(rows, namespace)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pipeline context: %w", err)
		}
		out = append(out, pctx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pipeline contexts: %w", err)
	}
	return out, nil
}

func scanPipelineContext(row pgx.Row, namespace string) (*models.PipelineContext, error) {
	var (
		version   int64
		payload   []byte
		createdAt time.Time
	)
	if err := row.Scan(&version, &payload, &createdAt); err != nil {
		return nil, err
	}

	var pctx models.PipelineContext
	if err := json.Unmarshal(payload, &pctx); err != nil {
		return nil, fmt.Errorf("failed to decode pipeline context: %w", err)
	}
	pctx.Namespace = namespace
	pctx.Version = version
	pctx.UpdatedAt = createdAt.UTC()
	return &pctx, nil
}
