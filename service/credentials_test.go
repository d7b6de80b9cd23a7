package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tierledger/models"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)

	account := &models.Account{PasswordHash: hash}
	assert.True(t, passwordMatches(account, "s3cret"))
	assert.False(t, passwordMatches(account, "wrong"))
	assert.False(t, passwordMatches(account, ""))
}

func TestVerifyCredential(t *testing.T) {
	actor := newTestAccount(1, "actor", models.RoleSuper, nil, "0")
	noPIN := newTestAccount(2, "nopin", models.RoleSuper, nil, "0")
	noPIN.PIN = ""

	tests := []struct {
		name     string
		actor    *models.Account
		policy   CredentialPolicy
		cred     Credential
		expected error
	}{
		{"none needs nothing", actor, CredentialNone, Credential{}, nil},
		{"pin ok", actor, CredentialPIN, Credential{PIN: testPIN}, nil},
		{"pin missing", actor, CredentialPIN, Credential{}, ErrCredentialRequired},
		{"pin wrong", actor, CredentialPIN, Credential{PIN: "1111"}, ErrInvalidPIN},
		{"pin policy ignores password", actor, CredentialPIN, Credential{Password: testPassword}, ErrCredentialRequired},
		{"account without pin", noPIN, CredentialPIN, Credential{PIN: "anything"}, ErrInvalidPIN},
		{"password ok", actor, CredentialPassword, Credential{Password: testPassword}, nil},
		{"password wrong", actor, CredentialPassword, Credential{Password: "nope"}, ErrInvalidPassword},
		{"either via pin", actor, CredentialPINOrPassword, Credential{PIN: testPIN}, nil},
		{"either via password", actor, CredentialPINOrPassword, Credential{Password: testPassword}, nil},
		{"either with wrong pin and good password", actor, CredentialPINOrPassword, Credential{PIN: "0", Password: testPassword}, ErrInvalidPIN},
		{"either wrong password", actor, CredentialPINOrPassword, Credential{Password: "nope"}, ErrInvalidPassword},
		{"either missing", actor, CredentialPINOrPassword, Credential{}, ErrCredentialRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifyCredential(tt.actor, tt.policy, tt.cred)
			if tt.expected == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}
