package service

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"tierledger/models"
)

// Credential is the secondary credential re-entered for a sensitive action
type Credential struct {
	PIN      string
	Password string
}

// HashPassword returns the bcrypt hash stored on an account
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func passwordMatches(account *models.Account, password string) bool {
	if password == "" || account.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) == nil
}

func pinMatches(account *models.Account, pin string) bool {
	if pin == "" || account.PIN == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(account.PIN), []byte(pin)) == 1
}

// VerifyCredential checks cred against actor under the given policy
func VerifyCredential(actor *models.Account, policy CredentialPolicy, cred Credential) error {
	switch policy {
	case CredentialNone:
		return nil
	case CredentialPIN:
		if cred.PIN == "" {
			return ErrCredentialRequired
		}
		if !pinMatches(actor, cred.PIN) {
			return ErrInvalidPIN
		}
		return nil
	case CredentialPassword:
		if !passwordMatches(actor, cred.Password) {
			return ErrInvalidPassword
		}
		return nil
	case CredentialPINOrPassword:
		// A supplied PIN is decisive; the password is only tried without one
		if cred.PIN != "" {
			if !pinMatches(actor, cred.PIN) {
				return ErrInvalidPIN
			}
			return nil
		}
		if cred.Password != "" {
			if !passwordMatches(actor, cred.Password) {
				return ErrInvalidPassword
			}
			return nil
		}
		return ErrCredentialRequired
	}
	return fmt.Errorf("unknown credential policy %s", policy)
}
