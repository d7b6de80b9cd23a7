package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"tierledger/database"
	"tierledger/models"
)

const accountColumns = `
	id, username, name, role, parent_id, referred_by_id, password_hash, pin,
	main_balance, bonus_balance, pl_balance, exposure_balance,
	exposure_limit, commission_percentage, is_active, created_at, updated_at`

// AccountRepository implements the AccountRepository interface
type AccountRepository struct {
	q queryable
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{q: db.Pool}
}

// newAccountRepositoryWithTx creates a new account repository with a transaction
func newAccountRepositoryWithTx(tx queryable) *AccountRepository {
	return &AccountRepository{q: tx}
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(
		&a.ID,
		&a.Username,
		&a.Name,
		&a.Role,
		&a.ParentID,
		&a.ReferredByID,
		&a.PasswordHash,
		&a.PIN,
		&a.MainBalance,
		&a.BonusBalance,
		&a.PLBalance,
		&a.ExposureBalance,
		&a.ExposureLimit,
		&a.CommissionPercentage,
		&a.IsActive,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepository) getOne(ctx context.Context, query string, args ...any) (*models.Account, error) {
	account, err := scanAccount(r.q.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return account, err
}

func (r *AccountRepository) list(ctx context.Context, query string, args ...any) ([]*models.Account, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// GetByID retrieves an account by ID
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	account, err := r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get account %d: %w", id, err)
	}
	return account, nil
}

// GetByUsername retrieves an account by exact username
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	account, err := r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get account by username: %w", err)
	}
	return account, nil
}

// GetByIDForUpdate retrieves an account and holds its row lock until the transaction ends
func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Account, error) {
	account, err := r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to lock account %d: %w", id, err)
	}
	return account, nil
}

// LockAccounts locks the given accounts in ascending ID order so that two
// transactions locking overlapping sets can never deadlock
func (r *AccountRepository) LockAccounts(ctx context.Context, ids ...int64) (map[int64]*models.Account, error) {
	unique := make([]int64, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i] < unique[j] })

	accounts, err := r.list(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ANY($1) ORDER BY id FOR UPDATE`, unique)
	if err != nil {
		return nil, fmt.Errorf("failed to lock accounts %v: %w", unique, err)
	}

	result := make(map[int64]*models.Account, len(accounts))
	for _, a := range accounts {
		result[a.ID] = a
	}
	return result, nil
}

// Create inserts a new account
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (
			username, name, role, parent_id, referred_by_id, password_hash, pin,
			main_balance, bonus_balance, pl_balance, exposure_balance,
			exposure_limit, commission_percentage, is_active
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at
	`
	err := r.q.QueryRow(ctx, query,
		account.Username,
		account.Name,
		account.Role,
		account.ParentID,
		account.ReferredByID,
		account.PasswordHash,
		account.PIN,
		account.MainBalance,
		account.BonusBalance,
		account.PLBalance,
		account.ExposureBalance,
		account.ExposureLimit,
		account.CommissionPercentage,
		account.IsActive,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create account %s: %w", account.Username, err)
	}
	return nil
}

// UpdateWallets persists all four wallet balances
func (r *AccountRepository) UpdateWallets(ctx context.Context, account *models.Account) error {
	query := `
		UPDATE accounts
		SET main_balance = $2, bonus_balance = $3, pl_balance = $4, exposure_balance = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.q.QueryRow(ctx, query,
		account.ID,
		account.MainBalance,
		account.BonusBalance,
		account.PLBalance,
		account.ExposureBalance,
	).Scan(&account.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("account %d not found", account.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update wallets of account %d: %w", account.ID, err)
	}
	return nil
}

// UpdateCredentials persists the password hash and PIN
func (r *AccountRepository) UpdateCredentials(ctx context.Context, account *models.Account) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE accounts SET password_hash = $2, pin = $3, updated_at = NOW() WHERE id = $1`,
		account.ID, account.PasswordHash, account.PIN)
	if err != nil {
		return fmt.Errorf("failed to update credentials of account %d: %w", account.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account %d not found", account.ID)
	}
	return nil
}

// ListByParent returns the direct children of parentID
func (r *AccountRepository) ListByParent(ctx context.Context, parentID int64, role *models.Role) ([]*models.Account, error) {
	accounts, err := r.list(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE parent_id = $1 AND ($2::text IS NULL OR role = $2)
		ORDER BY id`, parentID, role)
	if err != nil {
		return nil, fmt.Errorf("failed to list children of account %d: %w", parentID, err)
	}
	return accounts, nil
}

// ListByGrandparent returns accounts whose parent's parent is grandparentID
func (r *AccountRepository) ListByGrandparent(ctx context.Context, grandparentID int64) ([]*models.Account, error) {
	accounts, err := r.list(ctx, `
		SELECT `+prefixed("a", accountColumns)+`
		FROM accounts a
		JOIN accounts p ON p.id = a.parent_id
		WHERE p.parent_id = $1
		ORDER BY a.id`, grandparentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list grandchildren of account %d: %w", grandparentID, err)
	}
	return accounts, nil
}

// ListAll returns every account, optionally of one role
func (r *AccountRepository) ListAll(ctx context.Context, role *models.Role) ([]*models.Account, error) {
	accounts, err := r.list(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE $1::text IS NULL OR role = $1
		ORDER BY id`, role)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

// FirstByRole returns the oldest account with the role
func (r *AccountRepository) FirstByRole(ctx context.Context, role models.Role) (*models.Account, error) {
	account, err := r.getOne(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE role = $1 ORDER BY id LIMIT 1`, role)
	if err != nil {
		return nil, fmt.Errorf("failed to get first %s: %w", role, err)
	}
	return account, nil
}
