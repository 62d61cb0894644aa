package exchange

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrBelowMinimumDeposit = errors.New("exchange: deposit below minimum")
	ErrInvalidBankCode     = errors.New("exchange: bank code not allowed")
	ErrInvalidAmount       = errors.New("exchange: invalid amount")
	ErrInvalidWithdrawal   = errors.New("exchange: currency, address and network id are required")
)

// APIError is a non-2xx answer from the exchange.
type APIError struct {
	StatusCode int
	Body       string
	Op         string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("exchange API returned status %d for %s: %s", e.StatusCode, e.Op, e.Body)
}

// TransportError means the request may or may not have reached the exchange.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("exchange transport error for %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

func IsTransportError(err error) bool {
	var tErr *TransportError
	return errors.As(err, &tErr)
}

type fiatDepositBody struct {
	Amount   json.Number `json:"amount"`
	BankCode string      `json:"bank_code"`
}

type cryptoWithdrawalBody struct {
	Currency   string      `json:"currency"`
	Amount     json.Number `json:"amount"`
	Address    string      `json:"address"`
	NetworkID  int64       `json:"network_id"`
	AddressTag string      `json:"address_tag,omitempty"`
}

type WithdrawalParams struct {
	Currency   string
	Amount     decimal.Decimal
	Address    string
	NetworkID  int64
	AddressTag string
}

type FiatDeposit struct {
	DepositID     FlexString      `json:"deposit_id"`
	TransactionID FlexString      `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	AccountName   string          `json:"account_name"`
	AccountNumber FlexString      `json:"account_number"`
	BankCode      string          `json:"bank_code"`
	ExpiredAt     FlexTime        `json:"expired_at"`
	Status        string          `json:"status"`
}

type CryptoWithdrawal struct {
	WithdrawalID  FlexString      `json:"withdrawal_id"`
	TransactionID FlexString      `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Address       string          `json:"address"`
	NetworkID     FlexString      `json:"network_id"`
	Status        string          `json:"status"`
}

type DepositAddress struct {
	Currency  string     `json:"currency"`
	Network   string     `json:"network"`
	NetworkID FlexString `json:"network_id"`
	Address   string     `json:"address"`
	Memo      string     `json:"memo"`
	Tag       string     `json:"address_tag"`
}

func (a DepositAddress) MemoOrTag() string {
	if a.Memo != "" {
		return a.Memo
	}
	return a.Tag
}

// FlexString accepts a JSON string or number.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("flex string: %w", err)
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string {
	return string(f)
}

// FlexTime accepts RFC 3339 strings, "2006-01-02 15:04:05" strings and unix
// seconds.
type FlexTime struct {
	time.Time
}

func (t *FlexTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if string(data) == "null" || string(data) == `""` {
		t.Time = time.Time{}
		return nil
	}
	if len(data) > 0 && data[0] != '"' {
		var secs int64
		if err := json.Unmarshal(data, &secs); err != nil {
			return fmt.Errorf("flex time: %w", err)
		}
		t.Time = time.Unix(secs, 0).UTC()
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if parsed, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("flex time: unsupported format %q", s)
}

func (t FlexTime) Ptr() *time.Time {
	if t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}
