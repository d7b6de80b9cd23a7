package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"tierledger/models"
)

const (
	testPassword = "hunter22"
	testPIN      = "4321"
)

var testHash = func() string {
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return string(hash)
}()

func newTestAccount(id int64, username string, role models.Role, parent *models.Account, main string) *models.Account {
	a := &models.Account{
		ID:           id,
		Username:     username,
		Role:         role,
		PasswordHash: testHash,
		PIN:          testPIN,
		MainBalance:  decimal.RequireFromString(main),
		IsActive:     true,
	}
	if parent != nil {
		pid := parent.ID
		a.ParentID = &pid
	}
	return a
}

// chain builds Powerhouse(1) → Super(2) → Master(3) → Player(4)
func chain(superMain, masterMain, playerMain string) (ph, sup, master, player *models.Account) {
	ph = newTestAccount(1, "root", models.RolePowerhouse, nil, "0")
	sup = newTestAccount(2, "super", models.RoleSuper, ph, superMain)
	master = newTestAccount(3, "master", models.RoleMaster, sup, masterMain)
	player = newTestAccount(4, "player", models.RolePlayer, master, playerMain)
	return
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	if !actual.Equal(dec(expected)) {
		t.Errorf("expected %s, got %s", expected, actual.String())
	}
}

// copyAccount returns a detached copy so lock results do not alias loads
func copyAccount(a *models.Account) *models.Account {
	c := *a
	return &c
}
