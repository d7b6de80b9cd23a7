package service

import (
	"context"
	"fmt"

	"tierledger/models"
)

// applyWithdraw moves the withdraw amount from the owner's main wallet back
// to its parent. A Powerhouse approving a Super's withdraw burns the amount.
func applyWithdraw(ctx context.Context, uow UnitOfWork, actor, owner *models.Account, req *models.Request) error {
	if rootApproval(actor, owner) {
		account, err := lockSingle(ctx, uow, owner.ID)
		if err != nil {
			return err
		}
		if !account.CanCover(models.WalletMain, req.Amount) {
			return ErrInsufficientBalance
		}
		_, err = DebitAccount(ctx, uow, account, models.WalletMain, req.Amount, models.TransactionTypeWithdraw, "Withdraw approved")
		return err
	}

	if owner.ParentID == nil {
		return ErrMissingParent
	}
	if owner.Role == models.RolePlayer {
		if err := checkPaymentMode(ctx, uow, owner); err != nil {
			return err
		}
	}

	account, parent, err := lockWithParent(ctx, uow, owner)
	if err != nil {
		return err
	}
	if !account.CanCover(models.WalletMain, req.Amount) {
		return ErrInsufficientBalance
	}

	_, err = TransferFunds(ctx, uow, Movement{
		From:       account,
		FromWallet: models.WalletMain,
		To:         parent,
		ToWallet:   models.WalletMain,
		Amount:     req.Amount,
		Type:       models.TransactionTypeWithdraw,
		OutRemarks: "Withdraw approved",
		InRemarks:  fmt.Sprintf("Withdraw from %s", account.Username),
	})
	return err
}

// checkPaymentMode requires an approved payout destination on the player
// or, failing that, on its parent
func checkPaymentMode(ctx context.Context, uow UnitOfWork, player *models.Account) error {
	modes := uow.PaymentModeRepository()

	ok, err := modes.HasApproved(ctx, player.ID)
	if err != nil {
		return fmt.Errorf("failed to check payment modes: %w", err)
	}
	if ok {
		return nil
	}

	ok, err = modes.HasApproved(ctx, *player.ParentID)
	if err != nil {
		return fmt.Errorf("failed to check parent payment modes: %w", err)
	}
	if !ok {
		return ErrPaymentMethodNotApproved
	}
	return nil
}
