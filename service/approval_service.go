package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"tierledger/events"
	"tierledger/models"
)

type approvalService struct {
	uowFactory UnitOfWorkFactory
	now        func() time.Time
}

// NewApprovalService creates the deposit, withdraw and bonus request service
func NewApprovalService(uowFactory UnitOfWorkFactory) ApprovalService {
	return &approvalService{
		uowFactory: uowFactory,
		now:        time.Now,
	}
}

// NewRequest carries the fields of a request created by its owner
type NewRequest struct {
	Kind          models.RequestKind
	OwnerID       int64
	Amount        decimal.Decimal
	PaymentModeID *int64
	Remarks       string
	Client        models.ClientInfo
}

func (s *approvalService) Create(ctx context.Context, in NewRequest) (*models.Request, error) {
	if !in.Kind.Valid() {
		return nil, ErrInvalidRequestKind
	}
	if !in.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	owner, err := uow.AccountRepository().GetByID(ctx, in.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if owner == nil {
		return nil, ErrAccountNotFound
	}
	if !owner.IsActive {
		return nil, ErrInactiveAccount
	}

	settings, err := uow.SettingsRepository().Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	if err := checkAmountLimits(in.Kind, in.Amount, settings); err != nil {
		return nil, err
	}

	req := &models.Request{
		Kind:          in.Kind,
		AccountID:     owner.ID,
		Amount:        in.Amount,
		PaymentModeID: in.PaymentModeID,
		Status:        models.RequestStatusPending,
		Remarks:       in.Remarks,
	}
	if err := uow.RequestRepository(in.Kind).Create(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", in.Kind, err)
	}

	if action, ok := requestActivity[in.Kind]; ok {
		remarks := fmt.Sprintf("%s request #%d for %s", in.Kind, req.ID, in.Amount.StringFixed(2))
		if err := recordActivity(ctx, uow, owner.ID, action, in.Client, remarks, nil); err != nil {
			return nil, err
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"kind":      in.Kind,
		"requestID": req.ID,
		"accountID": owner.ID,
		"amount":    in.Amount.StringFixed(2),
	}).Info("Request created")

	return req, nil
}

var requestActivity = map[models.RequestKind]models.ActivityAction{
	models.RequestKindDeposit:  models.ActivityDepositRequest,
	models.RequestKindWithdraw: models.ActivityWithdrawRequest,
}

func checkAmountLimits(kind models.RequestKind, amount decimal.Decimal, settings *models.SuperSetting) error {
	if settings == nil {
		return nil
	}
	var minimum, maximum decimal.Decimal
	switch kind {
	case models.RequestKindDeposit:
		minimum, maximum = settings.MinDeposit, settings.MaxDeposit
	case models.RequestKindWithdraw:
		minimum, maximum = settings.MinWithdraw, settings.MaxWithdraw
	default:
		return nil
	}
	// Zero means no limit
	if minimum.IsPositive() && amount.LessThan(minimum) {
		return newLedgerError(ErrValidation, fmt.Sprintf("Minimum %s amount is %s.", kind, minimum.StringFixed(2)))
	}
	if maximum.IsPositive() && amount.GreaterThan(maximum) {
		return newLedgerError(ErrValidation, fmt.Sprintf("Maximum %s amount is %s.", kind, maximum.StringFixed(2)))
	}
	return nil
}

func (s *approvalService) Approve(ctx context.Context, kind models.RequestKind, actorID, requestID int64, cred Credential) (*models.Request, error) {
	if !kind.Valid() {
		return nil, ErrInvalidRequestKind
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	actor, req, owner, err := s.loadPending(ctx, uow, kind, actorID, requestID)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, uow.AccountRepository(), actor, owner, OpApprove, cred); err != nil {
		return nil, err
	}

	if err := s.apply(ctx, uow, actor, owner, req); err != nil {
		return nil, err
	}
	if err := s.finish(ctx, uow, actor, req, models.RequestStatusApproved); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"kind":      kind,
		"requestID": req.ID,
		"actorID":   actor.ID,
		"accountID": owner.ID,
		"amount":    req.Amount.StringFixed(2),
	}).Info("Request approved")

	return req, nil
}

func (s *approvalService) Reject(ctx context.Context, kind models.RequestKind, actorID, requestID int64, reason string, cred Credential) (*models.Request, error) {
	if !kind.Valid() {
		return nil, ErrInvalidRequestKind
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	actor, req, owner, err := s.loadPending(ctx, uow, kind, actorID, requestID)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, uow.AccountRepository(), actor, owner, OpReject, cred); err != nil {
		return nil, err
	}

	req.RejectReason = reason
	if err := s.finish(ctx, uow, actor, req, models.RequestStatusRejected); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"kind":      kind,
		"requestID": req.ID,
		"actorID":   actor.ID,
		"reason":    reason,
	}).Info("Request rejected")

	return req, nil
}

func (s *approvalService) Cancel(ctx context.Context, kind models.RequestKind, ownerID, requestID int64) (*models.Request, error) {
	if !kind.Valid() {
		return nil, ErrInvalidRequestKind
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	actor, req, _, err := s.loadPending(ctx, uow, kind, ownerID, requestID)
	if err != nil {
		return nil, err
	}
	if req.AccountID != actor.ID {
		return nil, ErrOutOfScope
	}

	if err := s.finish(ctx, uow, actor, req, models.RequestStatusCancelled); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"kind":      kind,
		"requestID": req.ID,
		"accountID": actor.ID,
	}).Info("Request cancelled")

	return req, nil
}

func (s *approvalService) DirectDeposit(ctx context.Context, actorID, targetID int64, amount decimal.Decimal, cred Credential) (*models.Request, error) {
	return s.direct(ctx, models.RequestKindDeposit, OpDirectDeposit, actorID, targetID, amount, cred)
}

func (s *approvalService) DirectWithdraw(ctx context.Context, actorID, targetID int64, amount decimal.Decimal, cred Credential) (*models.Request, error) {
	return s.direct(ctx, models.RequestKindWithdraw, OpDirectWithdraw, actorID, targetID, amount, cred)
}

// direct creates and approves a request in one unit of work, so a failed
// approval leaves no envelope behind
func (s *approvalService) direct(ctx context.Context, kind models.RequestKind, op Operation, actorID, targetID int64, amount decimal.Decimal, cred Credential) (*models.Request, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	accounts := uow.AccountRepository()
	actor, err := accounts.GetByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get actor: %w", err)
	}
	if actor == nil {
		return nil, ErrAccountNotFound
	}
	target, err := accounts.GetByID(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to get target account: %w", err)
	}
	if target == nil {
		return nil, ErrAccountNotFound
	}
	if err := authorize(ctx, accounts, actor, target, op, cred); err != nil {
		return nil, err
	}

	req := &models.Request{
		Kind:      kind,
		AccountID: target.ID,
		Amount:    amount,
		Status:    models.RequestStatusPending,
		Remarks:   fmt.Sprintf("Direct %s by %s", kind, actor.Username),
	}
	if err := uow.RequestRepository(kind).Create(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", kind, err)
	}

	if err := s.apply(ctx, uow, actor, target, req); err != nil {
		return nil, err
	}
	if err := s.finish(ctx, uow, actor, req, models.RequestStatusApproved); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"kind":      kind,
		"requestID": req.ID,
		"actorID":   actor.ID,
		"accountID": target.ID,
		"amount":    amount.StringFixed(2),
	}).Info("Direct request approved")

	return req, nil
}

func (s *approvalService) List(ctx context.Context, kind models.RequestKind, actorID int64, status *models.RequestStatus, limit int) ([]*models.Request, error) {
	if !kind.Valid() {
		return nil, ErrInvalidRequestKind
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	actor, err := uow.AccountRepository().GetByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get actor: %w", err)
	}
	if actor == nil {
		return nil, ErrAccountNotFound
	}

	ids, err := scopeAccountIDs(ctx, uow.AccountRepository(), actor)
	if err != nil {
		return nil, err
	}

	requests, err := uow.RequestRepository(kind).List(ctx, RequestFilter{
		AccountIDs: ids,
		Status:     status,
		Limit:      clampLimit(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s requests: %w", kind, err)
	}
	return requests, nil
}

// loadPending loads the actor, the row-locked request and its owner.
// The request must still be pending once the lock is held.
func (s *approvalService) loadPending(ctx context.Context, uow UnitOfWork, kind models.RequestKind, actorID, requestID int64) (*models.Account, *models.Request, *models.Account, error) {
	accounts := uow.AccountRepository()

	actor, err := accounts.GetByID(ctx, actorID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to get actor: %w", err)
	}
	if actor == nil {
		return nil, nil, nil, ErrAccountNotFound
	}

	req, err := uow.RequestRepository(kind).GetByIDForUpdate(ctx, requestID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to get %s request: %w", kind, err)
	}
	if req == nil {
		return nil, nil, nil, ErrRequestNotFound
	}
	if !req.IsPending() {
		return nil, nil, nil, ErrRequestNotPending
	}

	owner, err := accounts.GetByID(ctx, req.AccountID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to get request owner: %w", err)
	}
	if owner == nil {
		return nil, nil, nil, ErrAccountNotFound
	}
	return actor, req, owner, nil
}

// apply performs the balance movement of an approval
func (s *approvalService) apply(ctx context.Context, uow UnitOfWork, actor, owner *models.Account, req *models.Request) error {
	switch req.Kind {
	case models.RequestKindDeposit:
		return applyDeposit(ctx, uow, actor, owner, req)
	case models.RequestKindWithdraw:
		return applyWithdraw(ctx, uow, actor, owner, req)
	case models.RequestKindBonus:
		return applyBonus(ctx, uow, actor, owner, req)
	}
	return ErrInvalidRequestKind
}

// finish moves the request to its terminal status and queues the event
func (s *approvalService) finish(ctx context.Context, uow UnitOfWork, actor *models.Account, req *models.Request, status models.RequestStatus) error {
	req.MarkProcessed(status, actor.ID, s.now())
	if err := uow.RequestRepository(req.Kind).UpdateStatus(ctx, req); err != nil {
		return fmt.Errorf("failed to update %s request %d: %w", req.Kind, req.ID, err)
	}

	uow.EventBus().Publish(events.RequestProcessedEvent{
		Kind:      req.Kind,
		RequestID: req.ID,
		AccountID: req.AccountID,
		ActorID:   actor.ID,
		Status:    status,
		Amount:    req.Amount,
	})
	return nil
}

// rootApproval reports whether the approval mints into or burns from a Super
// with no counterparty leg
func rootApproval(actor, owner *models.Account) bool {
	return actor.Role == models.RolePowerhouse && owner.Role == models.RoleSuper
}

// lockWithParent row-locks the owner and its parent
func lockWithParent(ctx context.Context, uow UnitOfWork, owner *models.Account) (*models.Account, *models.Account, error) {
	if owner.ParentID == nil {
		return nil, nil, ErrMissingParent
	}
	locked, err := uow.AccountRepository().LockAccounts(ctx, owner.ID, *owner.ParentID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lock accounts: %w", err)
	}
	o, parent := locked[owner.ID], locked[*owner.ParentID]
	if o == nil {
		return nil, nil, ErrAccountNotFound
	}
	if parent == nil {
		return nil, nil, ErrMissingParent
	}
	return o, parent, nil
}

func lockSingle(ctx context.Context, uow UnitOfWork, id int64) (*models.Account, error) {
	account, err := uow.AccountRepository().GetByIDForUpdate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to lock account %d: %w", id, err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 500 {
		return 500
	}
	return limit
}
