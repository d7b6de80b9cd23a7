package models

import "time"

type ActivityAction string

const (
	ActivityLogin           ActivityAction = "login"
	ActivityLogout          ActivityAction = "logout"
	ActivityBetPlaced       ActivityAction = "bet_placed"
	ActivityPasswordChange  ActivityAction = "password_change"
	ActivityProfileUpdate   ActivityAction = "profile_update"
	ActivityKYCRequest      ActivityAction = "kyc_request"
	ActivityDepositRequest  ActivityAction = "deposit_request"
	ActivityWithdrawRequest ActivityAction = "withdraw_request"
	ActivityMessage         ActivityAction = "message"
	ActivityTransferCoin    ActivityAction = "transfer_coin"
)

const (
	MaxActivityIPLength      = 45
	MaxActivityDeviceLength  = 255
	MaxActivityRemarksLength = 500
)

// ActivityLog is an append-only audit of account actions
type ActivityLog struct {
	ID        int64          `db:"id"`
	AccountID *int64         `db:"account_id"`
	IP        string         `db:"ip"`
	Device    string         `db:"device"`
	GameID    *int64         `db:"game_id"`
	Action    ActivityAction `db:"action"`
	Remarks   string         `db:"remarks"`
	CreatedAt time.Time      `db:"created_at"`
}

// ClientInfo carries the request origin recorded on activity logs
type ClientInfo struct {
	IP     string
	Device string
}
