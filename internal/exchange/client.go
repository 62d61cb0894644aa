package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/net/http2"

	"mobeebot/internal/signer"
)

const (
	fiatDepositsPath       = "/v1/wallets/fiat-deposits"
	cryptoWithdrawalsPath  = "/v1/wallets/crypto-withdrawals"
	balancesPath           = "/v1/wallets/balances"
	addressesPath          = "/v1/wallets/addresses"
	maxResponseBody        = 1 << 20
	defaultTimeout         = 15 * time.Second
	defaultMinDepositUnits = 10000
)

var DefaultBanks = []string{"BNI", "BRI", "MANDIRI", "PERMATA", "CIMB"}

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	MinDeposit decimal.Decimal
	Banks      []string
	HTTPClient *http.Client
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	signer     *signer.Signer
	minDeposit decimal.Decimal
	banks      map[string]bool
}

func New(opts Options, s *signer.Signer) (*Client, error) {
	if s == nil {
		return nil, signer.ErrMissingCredentials
	}
	base := strings.TrimSuffix(opts.BaseURL, "/")
	if base == "" {
		return nil, errors.New("exchange: base url is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		var err error
		httpClient, err = newHTTPClient(opts.Timeout)
		if err != nil {
			return nil, err
		}
	}
	minDeposit := opts.MinDeposit
	if minDeposit.IsZero() {
		minDeposit = decimal.NewFromInt(defaultMinDepositUnits)
	}
	banks := opts.Banks
	if len(banks) == 0 {
		banks = DefaultBanks
	}
	allowed := make(map[string]bool, len(banks))
	for _, b := range banks {
		allowed[strings.ToUpper(b)] = true
	}
	return &Client{
		baseURL:    base,
		httpClient: httpClient,
		signer:     s,
		minDeposit: minDeposit,
		banks:      allowed,
	}, nil
}

func newHTTPClient(timeout time.Duration) (*http.Client, error) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	if err := http2.ConfigureTransport(tr); err != nil {
		return nil, fmt.Errorf("exchange: configure transport: %w", err)
	}
	return &http.Client{Transport: tr, Timeout: timeout}, nil
}

func (c *Client) BankAllowed(code string) bool {
	return c.banks[strings.ToUpper(code)]
}

func (c *Client) ValidateFiatDeposit(amount decimal.Decimal, bankCode string) error {
	if !amount.IsPositive() || !amount.Equal(amount.Truncate(0)) {
		return ErrInvalidAmount
	}
	if amount.LessThan(c.minDeposit) {
		return ErrBelowMinimumDeposit
	}
	if !c.BankAllowed(bankCode) {
		return ErrInvalidBankCode
	}
	return nil
}

func (c *Client) CreateFiatDeposit(ctx context.Context, amount decimal.Decimal, bankCode string) (*FiatDeposit, error) {
	if err := c.ValidateFiatDeposit(amount, bankCode); err != nil {
		return nil, err
	}
	body := fiatDepositBody{
		Amount:   json.Number(amount.String()),
		BankCode: strings.ToUpper(bankCode),
	}
	var out FiatDeposit
	if err := c.do(ctx, http.MethodPost, fiatDepositsPath, nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateCryptoWithdrawal(ctx context.Context, params WithdrawalParams) (*CryptoWithdrawal, error) {
	if !params.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if strings.TrimSpace(params.Address) == "" || params.Currency == "" || params.NetworkID <= 0 {
		return nil, ErrInvalidWithdrawal
	}
	body := cryptoWithdrawalBody{
		Currency:   strings.ToUpper(params.Currency),
		Amount:     json.Number(params.Amount.String()),
		Address:    params.Address,
		NetworkID:  params.NetworkID,
		AddressTag: params.AddressTag,
	}
	var out CryptoWithdrawal
	if err := c.do(ctx, http.MethodPost, cryptoWithdrawalsPath, nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetBalances(ctx context.Context, currency string) (map[string]decimal.Decimal, error) {
	var query url.Values
	if currency != "" {
		query = url.Values{"currency": {strings.ToUpper(currency)}}
	}
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, balancesPath, query, nil, &raw); err != nil {
		return nil, err
	}
	return parseBalances(raw)
}

func (c *Client) GetAllAddresses(ctx context.Context) ([]DepositAddress, error) {
	var out []DepositAddress
	if err := c.do(ctx, http.MethodGet, addressesPath, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	op := method + " " + path

	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("exchange: encode %s: %w", op, err)
		}
		payload = encoded
	}

	headers, err := c.signer.Sign(method, path, payload)
	if err != nil {
		return err
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	headers.Apply(req)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		zap.L().Warn("exchange request failed", zap.String("op", op), zap.Error(err))
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	zap.L().Debug("exchange response",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(started)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody), Op: op}
	}
	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(unwrapEnvelope(respBody), out); err != nil {
		return fmt.Errorf("exchange: decode %s: %w", op, err)
	}
	return nil
}

func unwrapEnvelope(body []byte) []byte {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Data) > 0 && string(envelope.Data) != "null" {
		return envelope.Data
	}
	return body
}

func parseBalances(raw json.RawMessage) (map[string]decimal.Decimal, error) {
	var list []struct {
		Currency  string           `json:"currency"`
		Balance   *decimal.Decimal `json:"balance"`
		Available *decimal.Decimal `json:"available"`
	}
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make(map[string]decimal.Decimal, len(list))
		for _, item := range list {
			switch {
			case item.Balance != nil:
				out[strings.ToUpper(item.Currency)] = *item.Balance
			case item.Available != nil:
				out[strings.ToUpper(item.Currency)] = *item.Available
			default:
				out[strings.ToUpper(item.Currency)] = decimal.Zero
			}
		}
		return out, nil
	}
	var flat map[string]decimal.Decimal
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("exchange: decode balances: %w", err)
	}
	out := make(map[string]decimal.Decimal, len(flat))
	for k, v := range flat {
		out[strings.ToUpper(k)] = v
	}
	return out, nil
}
