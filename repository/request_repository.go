package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"tierledger/database"
	"tierledger/models"
	"tierledger/service"
)

// requestTables maps each request kind to its envelope table. The three
// tables share one column layout.
var requestTables = map[models.RequestKind]string{
	models.RequestKindDeposit:  "deposits",
	models.RequestKindWithdraw: "withdraws",
	models.RequestKindBonus:    "bonus_requests",
}

const requestColumns = `
	id, account_id, amount, payment_mode_id, status, reject_reason, remarks,
	processed_by, processed_at, created_at, updated_at`

// RequestRepository implements the RequestRepository interface for one request kind
type RequestRepository struct {
	q     queryable
	kind  models.RequestKind
	table string
}

// NewRequestRepository creates a request repository for the given kind
func NewRequestRepository(db *database.DB, kind models.RequestKind) (*RequestRepository, error) {
	return newRequestRepository(db.Pool, kind)
}

// newRequestRepositoryWithTx creates a request repository with a transaction
func newRequestRepositoryWithTx(tx queryable, kind models.RequestKind) (*RequestRepository, error) {
	return newRequestRepository(tx, kind)
}

func newRequestRepository(q queryable, kind models.RequestKind) (*RequestRepository, error) {
	table, ok := requestTables[kind]
	if !ok {
		return nil, fmt.Errorf("unknown request kind %q", kind)
	}
	return &RequestRepository{q: q, kind: kind, table: table}, nil
}

func (r *RequestRepository) scan(row pgx.Row) (*models.Request, error) {
	req := models.Request{Kind: r.kind}
	err := row.Scan(
		&req.ID,
		&req.AccountID,
		&req.Amount,
		&req.PaymentModeID,
		&req.Status,
		&req.RejectReason,
		&req.Remarks,
		&req.ProcessedBy,
		&req.ProcessedAt,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// Create inserts a request envelope
func (r *RequestRepository) Create(ctx context.Context, req *models.Request) error {
	if req.Status == "" {
		req.Status = models.RequestStatusPending
	}
	query := `
		INSERT INTO ` + r.table + ` (account_id, amount, payment_mode_id, status, remarks)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := r.q.QueryRow(ctx, query,
		req.AccountID,
		req.Amount,
		req.PaymentModeID,
		req.Status,
		req.Remarks,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", r.kind, err)
	}
	req.Kind = r.kind
	return nil
}

// GetByID retrieves a request
func (r *RequestRepository) GetByID(ctx context.Context, id int64) (*models.Request, error) {
	return r.get(ctx, `SELECT `+requestColumns+` FROM `+r.table+` WHERE id = $1`, id)
}

// GetByIDForUpdate retrieves a request and holds its row lock
func (r *RequestRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Request, error) {
	return r.get(ctx, `SELECT `+requestColumns+` FROM `+r.table+` WHERE id = $1 FOR UPDATE`, id)
}

func (r *RequestRepository) get(ctx context.Context, query string, id int64) (*models.Request, error) {
	req, err := r.scan(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s request %d: %w", r.kind, id, err)
	}
	return req, nil
}

// UpdateStatus persists the lifecycle fields of a request
func (r *RequestRepository) UpdateStatus(ctx context.Context, req *models.Request) error {
	query := `
		UPDATE ` + r.table + `
		SET status = $2, reject_reason = $3, processed_by = $4, processed_at = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.q.QueryRow(ctx, query,
		req.ID,
		req.Status,
		req.RejectReason,
		req.ProcessedBy,
		req.ProcessedAt,
	).Scan(&req.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s request %d not found", r.kind, req.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update %s request %d: %w", r.kind, req.ID, err)
	}
	return nil
}

// List returns requests matching the filter, newest first
func (r *RequestRepository) List(ctx context.Context, filter service.RequestFilter) ([]*models.Request, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM ` + r.table + `
		WHERE ($1::bigint[] IS NULL OR account_id = ANY($1))
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`
	// A nil account list encodes as NULL and matches every account
	rows, err := r.q.Query(ctx, query, filter.AccountIDs, filter.Status, filter.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s requests: %w", r.kind, err)
	}
	defer rows.Close()

	var requests []*models.Request
	for rows.Next() {
		req, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s request: %w", r.kind, err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s requests: %w", r.kind, err)
	}
	return requests, nil
}
