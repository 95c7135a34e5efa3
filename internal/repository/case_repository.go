package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/caselog-api/internal/models"
)

// CaseRepository reads and writes emergency_cases rows.
type CaseRepository struct {
	db *sqlx.DB
}

// NewCaseRepository creates a new instance of CaseRepository.
func NewCaseRepository(db *sqlx.DB) *CaseRepository {
	return &CaseRepository{db: db}
}

// ListAll returns every row, newest first. Rows are scanned into maps so legacy
// column spellings reach the normalizer untouched.
func (r *CaseRepository) ListAll(ctx context.Context) ([]models.RawCase, error) {
	const query = `SELECT * FROM emergency_cases ORDER BY created_at DESC`
	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	out := make([]models.RawCase, 0)
	for rows.Next() {
		row := make(map[string]interface{})
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		out = append(out, models.RawCase(row))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cases: %w", err)
	}
	return out, nil
}

// FindByID returns one row by its unique identifier or sql.ErrNoRows.
func (r *CaseRepository) FindByID(ctx context.Context, id string) (models.RawCase, error) {
	query := r.db.Rebind(`SELECT * FROM emergency_cases WHERE case_unique_id = ? LIMIT 1`)
	row := make(map[string]interface{})
	if err := r.db.QueryRowxContext(ctx, query, id).MapScan(row); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find case by id: %w", err)
	}
	return models.RawCase(row), nil
}

// Insert stores a submitted case.
func (r *CaseRepository) Insert(ctx context.Context, c *models.NewCase) error {
	const query = `INSERT INTO emergency_cases (case_unique_id, rescuer_name, rescuer_rank, trainer, date, case_code, case_details, created_at) VALUES (:case_unique_id, :rescuer_name, :rescuer_rank, :trainer, :date, :case_code, :case_details, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, c); err != nil {
		return fmt.Errorf("insert case: %w", err)
	}
	return nil
}

// Delete removes one case and reports how many rows went away.
func (r *CaseRepository) Delete(ctx context.Context, id string) (int64, error) {
	query := r.db.Rebind(`DELETE FROM emergency_cases WHERE case_unique_id = ?`)
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("delete case: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// DeleteMany removes every case whose identifier is in ids.
func (r *CaseRepository) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(`DELETE FROM emergency_cases WHERE case_unique_id IN (?)`, ids)
	if err != nil {
		return 0, fmt.Errorf("build delete cases query: %w", err)
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("delete cases: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Ping checks the store is reachable.
func (r *CaseRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
