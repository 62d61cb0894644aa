package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	DepositPending   = "pending"
	DepositCompleted = "completed"
	DepositFailed    = "failed"

	WithdrawalPending   = "Pending"
	WithdrawalConfirmed = "Confirmed"
	WithdrawalRejected  = "Rejected"

	ActionDeposit    = "deposit"
	ActionWithdrawal = "withdrawal"

	TxTypeDeposit    = "deposit"
	TxTypeWithdrawal = "withdrawal"
	TxTypeAdjustment = "adjustment"

	TxStatusPending   = "pending"
	TxStatusCompleted = "completed"
	TxStatusFailed    = "failed"
)

type User struct {
	ID           int64           `db:"id" json:"id"`
	TelegramID   int64           `db:"telegram_id" json:"telegram_id"`
	Username     *string         `db:"username" json:"username,omitempty"`
	FirstName    *string         `db:"first_name" json:"first_name,omitempty"`
	LastName     *string         `db:"last_name" json:"last_name,omitempty"`
	Balance      decimal.Decimal `db:"balance" json:"balance"`
	Profit       decimal.Decimal `db:"profit" json:"profit"`
	ReferralCode *string         `db:"referral_code" json:"referral_code,omitempty"`
	ReferredBy   *int64          `db:"referred_by" json:"referred_by,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

func (u User) DisplayName() string {
	switch {
	case u.FirstName != nil && *u.FirstName != "":
		return *u.FirstName
	case u.Username != nil && *u.Username != "":
		return *u.Username
	default:
		return "there"
	}
}

type DepositRequest struct {
	ID              int64            `db:"id" json:"id"`
	UserID          int64            `db:"user_id" json:"user_id"`
	DepositID       string           `db:"deposit_id" json:"deposit_id"`
	TransactionID   string           `db:"transaction_id" json:"transaction_id"`
	Amount          decimal.Decimal  `db:"amount" json:"amount"`
	Currency        string           `db:"currency" json:"currency"`
	ConversionRate  *decimal.Decimal `db:"conversion_rate" json:"conversion_rate,omitempty"`
	ConvertedAmount *decimal.Decimal `db:"converted_amount" json:"converted_amount,omitempty"`
	Status          string           `db:"status" json:"status"`
	AccountName     *string          `db:"account_name" json:"account_name,omitempty"`
	AccountNumber   *string          `db:"account_number" json:"account_number,omitempty"`
	BankCode        *string          `db:"bank_code" json:"bank_code,omitempty"`
	ExpiredAt       *time.Time       `db:"expired_at" json:"expired_at,omitempty"`
	CreditedAt      *time.Time       `db:"credited_at" json:"credited_at,omitempty"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updated_at"`
}

// CreditAmount is what the owner's balance grows by once the deposit
// completes: the converted amount when the exchange reported one, else the
// raw amount.
func (d DepositRequest) CreditAmount() decimal.Decimal {
	if d.Converted() {
		return *d.ConvertedAmount
	}
	return d.Amount
}

func (d DepositRequest) Converted() bool {
	return d.ConvertedAmount != nil && d.ConvertedAmount.IsPositive()
}

type WithdrawalRequest struct {
	ID             int64           `db:"id" json:"id"`
	UserID         *int64          `db:"user_id" json:"user_id,omitempty"`
	WithdrawalID   string          `db:"withdrawal_id" json:"withdrawal_id"`
	TransactionID  string          `db:"transaction_id" json:"transaction_id"`
	Currency       string          `db:"currency" json:"currency"`
	Amount         decimal.Decimal `db:"amount" json:"amount"`
	NetworkFee     decimal.Decimal `db:"network_fee" json:"network_fee"`
	Address        string          `db:"address" json:"address"`
	AddressTag     *string         `db:"address_tag" json:"address_tag,omitempty"`
	NetworkID      int64           `db:"network_id" json:"network_id"`
	NetworkName    string          `db:"network_name" json:"network_name"`
	Status         string          `db:"status" json:"status"`
	RejectedReason *string         `db:"rejected_reason" json:"rejected_reason,omitempty"`
	TxnHash        *string         `db:"txn_hash" json:"txn_hash,omitempty"`
	ExplorerURL    *string         `db:"explorer_url" json:"explorer_url,omitempty"`
	ConfirmedAt    *time.Time      `db:"confirmed_at" json:"confirmed_at,omitempty"`
	DebitedAt      *time.Time      `db:"debited_at" json:"debited_at,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// DebitAmount is what leaves the owner's balance on confirmation: the amount
// sent on-chain plus the network fee withheld from the request.
func (w WithdrawalRequest) DebitAmount() decimal.Decimal {
	return w.Amount.Add(w.NetworkFee)
}

type ActionToken struct {
	Token     string     `db:"token" json:"token"`
	UserID    int64      `db:"user_id" json:"user_id"`
	Action    string     `db:"action" json:"action"`
	IsUsed    bool       `db:"is_used" json:"is_used"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UsedAt    *time.Time `db:"used_at" json:"used_at,omitempty"`
}

type CryptoAddress struct {
	ID        int64     `db:"id" json:"id"`
	Currency  string    `db:"currency" json:"currency"`
	Network   string    `db:"network" json:"network"`
	Address   string    `db:"address" json:"address"`
	Memo      *string   `db:"memo" json:"memo,omitempty"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type Transaction struct {
	ID              string          `db:"id" json:"id"`
	UserID          int64           `db:"user_id" json:"user_id"`
	TransactionType string          `db:"transaction_type" json:"transaction_type"`
	Currency        string          `db:"currency" json:"currency"`
	Amount          decimal.Decimal `db:"amount" json:"amount"`
	Status          string          `db:"status" json:"status"`
	TxHash          *string         `db:"tx_hash" json:"tx_hash,omitempty"`
	WalletAddress   *string         `db:"wallet_address" json:"wallet_address,omitempty"`
	Reference       string          `db:"reference" json:"reference"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

type FAQ struct {
	ID        int64  `db:"id" json:"id"`
	Category  string `db:"category" json:"category"`
	Question  string `db:"question" json:"question"`
	Answer    string `db:"answer" json:"answer"`
	SortOrder int    `db:"sort_order" json:"sort_order"`
	IsActive  bool   `db:"is_active" json:"is_active"`
}

type Admin struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	AdminID    *int64    `db:"admin_id" json:"admin_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	EntityType string    `db:"entity_type" json:"entity_type"`
	EntityID   string    `db:"entity_id" json:"entity_id"`
	Details    string    `db:"details" json:"details"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
