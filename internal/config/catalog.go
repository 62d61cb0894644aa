package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

// Catalog is the static product configuration: which banks accept fiat
// deposits and which networks crypto withdrawals may be sent over.
type Catalog struct {
	Fiat               FiatConfig          `yaml:"fiat"`
	BalanceCurrency    string              `yaml:"balance_currency"`
	WithdrawalNetworks []WithdrawalNetwork `yaml:"withdrawal_networks"`
	SupportUsername    string              `yaml:"support_username"`
}

type FiatConfig struct {
	Currency   string          `yaml:"currency"`
	MinDeposit decimal.Decimal `yaml:"-"`
	MinRaw     string          `yaml:"min_deposit"`
	Banks      []string        `yaml:"banks"`
}

type WithdrawalNetwork struct {
	Currency         string          `yaml:"currency"`
	NetworkID        int64           `yaml:"network_id"`
	NetworkName      string          `yaml:"network_name"`
	FeeRaw           string          `yaml:"fee"`
	MinAmountRaw     string          `yaml:"min_amount"`
	MinAddressLength int             `yaml:"min_address_length"`
	Fee              decimal.Decimal `yaml:"-"`
	MinAmount        decimal.Decimal `yaml:"-"`
}

func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("unable to read %s: %w", path, err)
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return Catalog{}, fmt.Errorf("unable to parse catalog: %w", err)
	}
	if err := catalog.normalize(); err != nil {
		return Catalog{}, err
	}
	return catalog, nil
}

func (c *Catalog) normalize() error {
	c.Fiat.Currency = strings.ToUpper(strings.TrimSpace(c.Fiat.Currency))
	if c.Fiat.Currency == "" {
		c.Fiat.Currency = "IDR"
	}
	min, err := parseDecimal(c.Fiat.MinRaw, "10000")
	if err != nil {
		return fmt.Errorf("fiat.min_deposit: %w", err)
	}
	c.Fiat.MinDeposit = min
	if len(c.Fiat.Banks) == 0 {
		return fmt.Errorf("fiat.banks must not be empty")
	}
	for i, bank := range c.Fiat.Banks {
		c.Fiat.Banks[i] = strings.ToUpper(strings.TrimSpace(bank))
	}
	c.BalanceCurrency = strings.ToUpper(strings.TrimSpace(c.BalanceCurrency))
	if c.BalanceCurrency == "" {
		c.BalanceCurrency = "USDT"
	}
	c.SupportUsername = strings.TrimPrefix(strings.TrimSpace(c.SupportUsername), "@")

	for i := range c.WithdrawalNetworks {
		n := &c.WithdrawalNetworks[i]
		n.Currency = strings.ToUpper(strings.TrimSpace(n.Currency))
		if n.Currency == "" {
			return fmt.Errorf("withdrawal network at index %d missing currency", i)
		}
		if n.NetworkID <= 0 {
			return fmt.Errorf("withdrawal network at index %d missing network_id", i)
		}
		if n.Fee, err = parseDecimal(n.FeeRaw, "0"); err != nil {
			return fmt.Errorf("withdrawal network %s fee: %w", n.Currency, err)
		}
		if n.MinAmount, err = parseDecimal(n.MinAmountRaw, "0"); err != nil {
			return fmt.Errorf("withdrawal network %s min_amount: %w", n.Currency, err)
		}
		if n.Fee.IsNegative() || n.MinAmount.IsNegative() {
			return fmt.Errorf("withdrawal network %s has negative limits", n.Currency)
		}
		if n.MinAddressLength <= 0 {
			n.MinAddressLength = 26
		}
	}
	return nil
}

func (c Catalog) Network(currency string) (WithdrawalNetwork, bool) {
	currency = strings.ToUpper(currency)
	for _, n := range c.WithdrawalNetworks {
		if n.Currency == currency {
			return n, true
		}
	}
	return WithdrawalNetwork{}, false
}

func (c Catalog) NetworkByID(currency string, networkID int64) (WithdrawalNetwork, bool) {
	currency = strings.ToUpper(currency)
	for _, n := range c.WithdrawalNetworks {
		if n.Currency == currency && n.NetworkID == networkID {
			return n, true
		}
	}
	return WithdrawalNetwork{}, false
}

func (c Catalog) WithdrawCurrencies() []string {
	seen := map[string]bool{}
	var out []string
	for _, n := range c.WithdrawalNetworks {
		if !seen[n.Currency] {
			seen[n.Currency] = true
			out = append(out, n.Currency)
		}
	}
	return out
}

func (c Catalog) IsFiat(currency string) bool {
	return strings.EqualFold(currency, c.Fiat.Currency)
}

func parseDecimal(raw, fallback string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = fallback
	}
	return decimal.NewFromString(raw)
}
