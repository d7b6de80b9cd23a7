package service

import (
	"context"
	"fmt"

	"tierledger/models"
)

// applyBonus pays an approved bonus request out of the parent's main wallet
// into the owner's bonus wallet
func applyBonus(ctx context.Context, uow UnitOfWork, actor, owner *models.Account, req *models.Request) error {
	if rootApproval(actor, owner) {
		account, err := lockSingle(ctx, uow, owner.ID)
		if err != nil {
			return err
		}
		_, err = CreditAccount(ctx, uow, account, models.WalletBonus, req.Amount, models.TransactionTypeBonus,
			fmt.Sprintf("Bonus request #%d approved", req.ID))
		return err
	}

	account, parent, err := lockWithParent(ctx, uow, owner)
	if err != nil {
		return err
	}
	if !parent.CanCover(models.WalletMain, req.Amount) {
		return ErrParentInsufficientBalance
	}

	_, err = TransferFunds(ctx, uow, Movement{
		From:       parent,
		FromWallet: models.WalletMain,
		To:         account,
		ToWallet:   models.WalletBonus,
		Amount:     req.Amount,
		Type:       models.TransactionTypeBonus,
		OutRemarks: fmt.Sprintf("Bonus request #%d for %s", req.ID, account.Username),
		InRemarks:  fmt.Sprintf("Bonus request #%d approved", req.ID),
	})
	return err
}
