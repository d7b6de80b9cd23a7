package service

import (
	"context"
	"fmt"

	"tierledger/models"
)

// Operation names a guarded mutation
type Operation string

const (
	OpApprove         Operation = "approve"
	OpReject          Operation = "reject"
	OpDirectDeposit   Operation = "direct_deposit"
	OpDirectWithdraw  Operation = "direct_withdraw"
	OpResetCredential Operation = "reset_credential"
	OpCreateAccount   Operation = "create_account"
	OpSettle          Operation = "settle"
	OpTransfer        Operation = "transfer"
	OpUpdateSettings  Operation = "update_settings"
	OpSyncCatalog     Operation = "sync_catalog"
)

// CredentialPolicy is the secondary credential an operation requires
type CredentialPolicy int

const (
	CredentialNone CredentialPolicy = iota
	CredentialPIN
	CredentialPINOrPassword
	CredentialPassword
)

func (p CredentialPolicy) String() string {
	switch p {
	case CredentialNone:
		return "none"
	case CredentialPIN:
		return "pin"
	case CredentialPINOrPassword:
		return "pin_or_password"
	case CredentialPassword:
		return "password"
	}
	return fmt.Sprintf("CredentialPolicy(%d)", int(p))
}

type policyKey struct {
	actor  models.Role
	target models.Role
	op     Operation
}

// policies lists every permitted (actor, target, operation) triple.
// A triple missing from the table is not permitted at all.
var policies = buildPolicies()

func buildPolicies() map[policyKey]CredentialPolicy {
	p := make(map[policyKey]CredentialPolicy)

	// Powerhouse may approve for anyone below it, Super and Master within their subtree
	adminOps := []Operation{OpApprove, OpReject, OpDirectDeposit, OpDirectWithdraw, OpResetCredential}
	for _, op := range adminOps {
		for _, target := range []models.Role{models.RoleSuper, models.RoleMaster, models.RolePlayer} {
			p[policyKey{models.RolePowerhouse, target, op}] = CredentialPINOrPassword
		}
		p[policyKey{models.RoleSuper, models.RoleMaster, op}] = CredentialPIN
		p[policyKey{models.RoleSuper, models.RolePlayer, op}] = CredentialPIN
		p[policyKey{models.RoleMaster, models.RolePlayer, op}] = CredentialPIN
	}

	p[policyKey{models.RolePowerhouse, models.RoleSuper, OpCreateAccount}] = CredentialNone
	p[policyKey{models.RoleSuper, models.RoleMaster, OpCreateAccount}] = CredentialNone
	p[policyKey{models.RoleMaster, models.RolePlayer, OpCreateAccount}] = CredentialNone

	p[policyKey{models.RoleSuper, models.RoleMaster, OpSettle}] = CredentialPIN
	p[policyKey{models.RolePlayer, models.RolePlayer, OpTransfer}] = CredentialPassword
	p[policyKey{models.RolePowerhouse, models.RolePowerhouse, OpUpdateSettings}] = CredentialPINOrPassword
	p[policyKey{models.RolePowerhouse, models.RolePowerhouse, OpSyncCatalog}] = CredentialNone

	return p
}

// PolicyFor returns the credential policy for the operation, or
// ErrRoleNotPermitted when the roles may not perform it at all
func PolicyFor(actor, target models.Role, op Operation) (CredentialPolicy, error) {
	policy, ok := policies[policyKey{actor, target, op}]
	if !ok {
		return CredentialNone, ErrRoleNotPermitted
	}
	return policy, nil
}

// InScope reports whether actor may read or mutate target.
// targetParent is only consulted when a Super looks at a Player.
func InScope(actor, target, targetParent *models.Account) bool {
	if actor == nil || target == nil {
		return false
	}
	if actor.ID == target.ID {
		return true
	}

	switch actor.Role {
	case models.RolePowerhouse:
		return true
	case models.RoleSuper:
		switch target.Role {
		case models.RoleMaster:
			return target.IsChildOf(actor)
		case models.RolePlayer:
			return targetParent != nil && target.IsChildOf(targetParent) &&
				targetParent.Role == models.RoleMaster && targetParent.IsChildOf(actor)
		}
	case models.RoleMaster:
		return target.Role == models.RolePlayer && target.IsChildOf(actor)
	}
	return false
}

// checkScope loads what InScope needs and fails with ErrOutOfScope
func checkScope(ctx context.Context, accounts AccountRepository, actor, target *models.Account) error {
	var parent *models.Account
	if actor.Role == models.RoleSuper && target.Role == models.RolePlayer && target.ParentID != nil {
		var err error
		parent, err = accounts.GetByID(ctx, *target.ParentID)
		if err != nil {
			return fmt.Errorf("failed to load parent of account %d: %w", target.ID, err)
		}
	}
	if !InScope(actor, target, parent) {
		return ErrOutOfScope
	}
	return nil
}

// authorize runs the full guard: the operation must be permitted for the
// role pair, the target must be in scope and the credential must verify.
// Nothing has been mutated when it returns an error.
func authorize(ctx context.Context, accounts AccountRepository, actor, target *models.Account, op Operation, cred Credential) error {
	policy, err := PolicyFor(actor.Role, target.Role, op)
	if err != nil {
		return err
	}
	if err := checkScope(ctx, accounts, actor, target); err != nil {
		return err
	}
	return VerifyCredential(actor, policy, cred)
}

// scopeAccountIDs lists the account IDs actor may see. A nil slice means every account.
func scopeAccountIDs(ctx context.Context, accounts AccountRepository, actor *models.Account) ([]int64, error) {
	if actor.Role == models.RolePowerhouse {
		return nil, nil
	}

	visible, err := scopedAccounts(ctx, accounts, actor, nil)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(visible)+1)
	ids = append(ids, actor.ID)
	for _, a := range visible {
		ids = append(ids, a.ID)
	}
	return ids, nil
}

// scopedAccounts returns the accounts below actor that it may see, excluding actor itself
func scopedAccounts(ctx context.Context, accounts AccountRepository, actor *models.Account, role *models.Role) ([]*models.Account, error) {
	var (
		result []*models.Account
		err    error
	)

	switch actor.Role {
	case models.RolePowerhouse:
		result, err = accounts.ListAll(ctx, role)
		if err != nil {
			return nil, fmt.Errorf("failed to list accounts: %w", err)
		}
		filtered := result[:0]
		for _, a := range result {
			if a.ID != actor.ID {
				filtered = append(filtered, a)
			}
		}
		return filtered, nil
	case models.RoleSuper:
		if role == nil || *role == models.RoleMaster {
			masters, err := accounts.ListByParent(ctx, actor.ID, nil)
			if err != nil {
				return nil, fmt.Errorf("failed to list masters: %w", err)
			}
			result = append(result, masters...)
		}
		if role == nil || *role == models.RolePlayer {
			players, err := accounts.ListByGrandparent(ctx, actor.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to list players: %w", err)
			}
			result = append(result, players...)
		}
		return result, nil
	case models.RoleMaster:
		if role != nil && *role != models.RolePlayer {
			return nil, nil
		}
		result, err = accounts.ListByParent(ctx, actor.ID, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to list players: %w", err)
		}
		return result, nil
	}
	return nil, nil
}
