package session

import (
	"context"

	"github.com/shopspring/decimal"
)

type Step string

const (
	StepIdle            Step = "idle"
	StepAwaitingAmount  Step = "awaiting_amount"
	StepAwaitingAddress Step = "awaiting_address"
)

const (
	FlowDeposit    = "deposit"
	FlowWithdrawal = "withdrawal"
)

// State is what the bot remembers about one chat between updates.
type State struct {
	Step      Step            `json:"step"`
	Flow      string          `json:"flow,omitempty"`
	Currency  string          `json:"currency,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	NetworkID int64           `json:"network_id,omitempty"`
}

func Idle() State {
	return State{Step: StepIdle}
}

func AwaitingAmount(flow, currency string, networkID int64) State {
	return State{Step: StepAwaitingAmount, Flow: flow, Currency: currency, NetworkID: networkID}
}

func (s State) AwaitingAddress(amount decimal.Decimal) State {
	s.Step = StepAwaitingAddress
	s.Amount = amount
	return s
}

func (s State) IsIdle() bool {
	return s.Step == "" || s.Step == StepIdle
}

type Store interface {
	Get(ctx context.Context, chatID int64) (State, error)
	Set(ctx context.Context, chatID int64, state State) error
	Clear(ctx context.Context, chatID int64) error
}
