package validator

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	playground "github.com/go-playground/validator/v10"

	"mobeebot/internal/money"
)

var (
	ErrInvalidUsername = errors.New("invalid username")
	ErrInvalidPassword = errors.New("invalid password")
)

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{3,30}$`)
	bankCodeRegex = regexp.MustCompile(`^[A-Za-z]{2,12}$`)
	addressRegex  = regexp.MustCompile(`^[A-Za-z0-9:_.\-]{10,128}$`)
)

var validate = newValidate()

func newValidate() *playground.Validate {
	v := playground.New()
	_ = v.RegisterValidation("amount", func(fl playground.FieldLevel) bool {
		_, err := money.ParseAmount(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("bank_code", func(fl playground.FieldLevel) bool {
		return bankCodeRegex.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("wallet_address", func(fl playground.FieldLevel) bool {
		return addressRegex.MatchString(fl.Field().String())
	})
	return v
}

type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, f[k]))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var errs playground.ValidationErrors
	if !errors.As(err, &errs) {
		return err
	}
	fields := make(FieldErrors, len(errs))
	for _, e := range errs {
		fields[strings.ToLower(e.Field())] = e.Tag()
	}
	return fields
}

type DepositLink struct {
	UserID   int64  `validate:"required,gt=0"`
	Amount   string `validate:"required,amount"`
	BankCode string `validate:"required,bank_code"`
	Token    string `validate:"omitempty,max=64"`
}

type WithdrawLink struct {
	UserID    int64  `validate:"required,gt=0"`
	Currency  string `validate:"required,alphanum,min=2,max=10"`
	Amount    string `validate:"required,amount"`
	Address   string `validate:"required,wallet_address"`
	NetworkID int64  `validate:"required,gt=0"`
	Token     string `validate:"omitempty,max=64"`
}

type StatusChange struct {
	Status          string `json:"status" validate:"required,max=32"`
	ConversionRate  string `json:"conversion_rate" validate:"omitempty,amount"`
	ConvertedAmount string `json:"converted_amount" validate:"omitempty,amount"`
	TxnHash         string `json:"txn_hash" validate:"omitempty,max=200"`
	ExplorerURL     string `json:"explorer_url" validate:"omitempty,url"`
	Reason          string `json:"reason" validate:"omitempty,max=500"`
}

type BalanceAdjustment struct {
	Delta  string `json:"delta" validate:"required"`
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

type Login struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < 8 {
		return ErrInvalidPassword
	}
	return nil
}
