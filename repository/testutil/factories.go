package testutil

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"tierledger/database"
	"tierledger/models"
)

// TestPassword and TestPIN are the credentials of every account built here
const (
	TestPassword = "secret-password"
	TestPIN      = "1234"
)

var testPasswordHash string

func passwordHash(t *testing.T) string {
	if testPasswordHash == "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
		require.NoError(t, err)
		testPasswordHash = string(hash)
	}
	return testPasswordHash
}

// CreateTestAccount builds an account with zero balances and the test credentials
func CreateTestAccount(t *testing.T, username string, role models.Role, parentID *int64) *models.Account {
	return &models.Account{
		Username:             username,
		Name:                 username,
		Role:                 role,
		ParentID:             parentID,
		PasswordHash:         passwordHash(t),
		PIN:                  TestPIN,
		MainBalance:          decimal.Zero,
		BonusBalance:         decimal.Zero,
		PLBalance:            decimal.Zero,
		ExposureBalance:      decimal.Zero,
		ExposureLimit:        decimal.Zero,
		CommissionPercentage: models.DefaultCommissionPercentage,
		IsActive:             true,
	}
}

// InsertAccount stores an account with the given main balance directly in the database
func InsertAccount(t *testing.T, db *database.DB, username string, role models.Role, parentID *int64, mainBalance string) *models.Account {
	account := CreateTestAccount(t, username, role, parentID)
	account.MainBalance = decimal.RequireFromString(mainBalance)

	err := db.QueryRow(context.Background(), `
		INSERT INTO accounts (username, name, role, parent_id, password_hash, pin, main_balance, commission_percentage)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`,
		account.Username, account.Name, account.Role, account.ParentID,
		account.PasswordHash, account.PIN, account.MainBalance, account.CommissionPercentage,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	require.NoError(t, err)
	return account
}

// Hierarchy is one full Powerhouse → Super → Master → Player chain
type Hierarchy struct {
	Powerhouse *models.Account
	Super      *models.Account
	Master     *models.Account
	Player     *models.Account
}

// InsertHierarchy stores a chain with the given main balances
func InsertHierarchy(t *testing.T, db *database.DB, prefix string, superBalance, masterBalance, playerBalance string) *Hierarchy {
	h := &Hierarchy{}
	h.Powerhouse = InsertAccount(t, db, prefix+"_powerhouse", models.RolePowerhouse, nil, "0")
	h.Super = InsertAccount(t, db, prefix+"_super", models.RoleSuper, &h.Powerhouse.ID, superBalance)
	h.Master = InsertAccount(t, db, prefix+"_master", models.RoleMaster, &h.Super.ID, masterBalance)
	h.Player = InsertAccount(t, db, prefix+"_player", models.RolePlayer, &h.Master.ID, playerBalance)
	return h
}

// InsertApprovedPaymentMode gives an account an approved payout destination
func InsertApprovedPaymentMode(t *testing.T, db *database.DB, accountID int64) {
	_, err := db.Exec(context.Background(), `
		INSERT INTO payment_modes (account_id, name, type, wallet_phone, status)
		VALUES ($1, 'Test wallet', 'ewallet', '0123456789', 'approved')`, accountID)
	require.NoError(t, err)
}

// CreateTestBonusRule builds an active flat rule of the given type
func CreateTestBonusRule(bonusType models.BonusType, amount string) *models.BonusRule {
	return &models.BonusRule{
		Name:         string(bonusType) + " bonus",
		BonusType:    bonusType,
		RewardType:   models.RewardTypeFlat,
		RewardAmount: decimal.RequireFromString(amount),
		IsActive:     true,
	}
}
