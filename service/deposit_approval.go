package service

import (
	"context"
	"fmt"

	"tierledger/models"
)

// applyDeposit moves the deposit amount from the owner's parent into the
// owner's main wallet. A Powerhouse approving a Super's deposit mints the
// amount instead, since the Super's parent is the root.
func applyDeposit(ctx context.Context, uow UnitOfWork, actor, owner *models.Account, req *models.Request) error {
	if rootApproval(actor, owner) {
		account, err := lockSingle(ctx, uow, owner.ID)
		if err != nil {
			return err
		}
		_, err = CreditAccount(ctx, uow, account, models.WalletMain, req.Amount, models.TransactionTypeDeposit,
			fmt.Sprintf("Deposit #%d approved", req.ID))
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
		ToWallet:   models.WalletMain,
		Amount:     req.Amount,
		Type:       models.TransactionTypeDeposit,
		OutRemarks: fmt.Sprintf("Deposit #%d for %s", req.ID, account.Username),
		InRemarks:  fmt.Sprintf("Deposit #%d approved", req.ID),
	})
	return err
}
