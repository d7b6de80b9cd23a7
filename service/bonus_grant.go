package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"tierledger/models"
)

type bonusGranter struct {
	uowFactory UnitOfWorkFactory
	now        func() time.Time
}

// NewBonusGranter creates the automatic welcome and referral bonus granter
func NewBonusGranter(uowFactory UnitOfWorkFactory) BonusGranter {
	return &bonusGranter{
		uowFactory: uowFactory,
		now:        time.Now,
	}
}

type grantTerms struct {
	name         string
	bonusType    models.BonusType
	noRule       string
	noParent     string
	parentMustBe *models.Role
	outRemarkFmt string
	inRemark     string
}

var (
	masterRole = models.RoleMaster

	welcomeGrant = grantTerms{
		name:         "welcome",
		bonusType:    models.BonusTypeWelcome,
		noRule:       "No active welcome bonus rule",
		noParent:     "Player has no parent master",
		parentMustBe: &masterRole,
		outRemarkFmt: "Welcome bonus for %s",
		inRemark:     "Welcome bonus",
	}
	referralGrant = grantTerms{
		name:         "referral",
		bonusType:    models.BonusTypeReferral,
		noRule:       "No active referral bonus rule",
		noParent:     "Referrer has no parent",
		outRemarkFmt: "Referral bonus for %s",
		inRemark:     "Referral bonus",
	}
)

const (
	reasonInvalidReward      = "Invalid reward amount"
	reasonParentInsufficient = "Parent has insufficient balance"
)

// GrantWelcome pays the active welcome rule's reward from the new account's
// parent Master into its bonus wallet
func (g *bonusGranter) GrantWelcome(ctx context.Context, accountID int64) (models.GrantResult, error) {
	return g.grant(ctx, welcomeGrant, accountID)
}

// GrantReferral pays the active referral rule's reward from the referrer's
// parent into the referrer's bonus wallet
func (g *bonusGranter) GrantReferral(ctx context.Context, referrerID int64) (models.GrantResult, error) {
	return g.grant(ctx, referralGrant, referrerID)
}

// grant is best effort: a missing rule, parent or balance is reported in the
// result, and only infrastructure failures come back as errors
func (g *bonusGranter) grant(ctx context.Context, terms grantTerms, beneficiaryID int64) (models.GrantResult, error) {
	result := models.GrantResult{AccountID: beneficiaryID}

	uow := g.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return result, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	rule, err := uow.BonusRuleRepository().GetActive(ctx, terms.bonusType, g.now())
	if err != nil {
		return result, fmt.Errorf("failed to get %s bonus rule: %w", terms.bonusType, err)
	}
	if rule == nil {
		result.Reason = terms.noRule
		return result, nil
	}

	beneficiary, err := uow.AccountRepository().GetByID(ctx, beneficiaryID)
	if err != nil {
		return result, fmt.Errorf("failed to get account: %w", err)
	}
	if beneficiary == nil {
		return result, ErrAccountNotFound
	}
	if beneficiary.ParentID == nil {
		result.Reason = terms.noParent
		return result, nil
	}

	account, parent, err := lockWithParent(ctx, uow, beneficiary)
	if err != nil {
		if errors.Is(err, ErrMissingParent) {
			result.Reason = terms.noParent
			return result, nil
		}
		return result, err
	}
	if terms.parentMustBe != nil && parent.Role != *terms.parentMustBe {
		result.Reason = terms.noParent
		return result, nil
	}

	amount := rule.FlatReward()
	if !amount.IsPositive() {
		result.Reason = reasonInvalidReward
		return result, nil
	}
	result.Amount = amount
	if !parent.CanCover(models.WalletMain, amount) {
		result.Reason = reasonParentInsufficient
		return result, nil
	}

	if _, err := TransferFunds(ctx, uow, Movement{
		From:       parent,
		FromWallet: models.WalletMain,
		To:         account,
		ToWallet:   models.WalletBonus,
		Amount:     amount,
		Type:       models.TransactionTypeBonus,
		OutRemarks: fmt.Sprintf(terms.outRemarkFmt, account.Username),
		InRemarks:  terms.inRemark,
	}); err != nil {
		return result, err
	}

	if err := uow.Commit(); err != nil {
		return result, fmt.Errorf("failed to commit transaction: %w", err)
	}

	result.Applied = true
	log.WithFields(log.Fields{
		"grant":     terms.name,
		"accountID": account.ID,
		"parentID":  parent.ID,
		"ruleID":    rule.ID,
		"amount":    amount.StringFixed(2),
	}).Info("Bonus granted")

	return result, nil
}
