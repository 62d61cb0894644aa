package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"mobeebot/internal/models"
	"mobeebot/internal/services"
	"mobeebot/internal/signer"
	"mobeebot/internal/store"
)

func postCallback(h *Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/callbacks/exchange", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return serve(h, req)
}

func TestExchangeCallbackVerifiesSignature(t *testing.T) {
	callbackSigner, err := signer.New("mobee-key", "callback-secret")
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	reconciled := false
	h := newTestHandler(func(d *Deps) {
		d.Verifier = callbackSigner
		d.Deposits = stubDepositStore{getByDepositIDFn: func(ctx context.Context, depositID string) (models.DepositRequest, error) {
			return models.DepositRequest{ID: 5, DepositID: depositID}, nil
		}}
		d.Reconciler = stubReconciler{depositFn: func(ctx context.Context, id int64, update services.DepositUpdate) (services.DepositOutcome, error) {
			reconciled = true
			return services.DepositOutcome{Deposit: models.DepositRequest{ID: id, Status: models.DepositCompleted}, Changed: true}, nil
		}}
	})
	body := []byte(`{"type":"fiat_deposit","id":"dep-1","status":"completed"}`)

	signed := httptest.NewRequest(http.MethodPost, "/callbacks/exchange", strings.NewReader(string(body)))
	headers, err := callbackSigner.Sign(http.MethodPost, "/callbacks/exchange", body)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	headers.Apply(signed)
	if rr := serve(h, signed); rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for signed callback, got %d (%s)", rr.Code, rr.Body.String())
	}
	if !reconciled {
		t.Fatalf("expected reconciler to run")
	}

	reconciled = false
	tampered := httptest.NewRequest(http.MethodPost, "/callbacks/exchange", strings.NewReader(`{"type":"fiat_deposit","id":"dep-2","status":"completed"}`))
	headers.Apply(tampered)
	if rr := serve(h, tampered); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for tampered body, got %d", rr.Code)
	}
	if reconciled {
		t.Fatalf("reconciler must not run for a rejected callback")
	}
}

func TestExchangeCallbackDepositPassesConversion(t *testing.T) {
	var got services.DepositUpdate
	var gotID int64
	h := newTestHandler(func(d *Deps) {
		d.Deposits = stubDepositStore{getByDepositIDFn: func(ctx context.Context, depositID string) (models.DepositRequest, error) {
			if depositID != "dep-9" {
				return models.DepositRequest{}, store.ErrNotFound
			}
			return models.DepositRequest{ID: 9}, nil
		}}
		d.Reconciler = stubReconciler{depositFn: func(ctx context.Context, id int64, update services.DepositUpdate) (services.DepositOutcome, error) {
			gotID, got = id, update
			return services.DepositOutcome{Deposit: models.DepositRequest{ID: id, Status: models.DepositCompleted}, Changed: true}, nil
		}}
	})
	rr := postCallback(h, `{"type":"fiat_deposit","id":"dep-9","status":"COMPLETED","conversion_rate":"15789.47","converted_amount":"0.95"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rr.Code, rr.Body.String())
	}
	if gotID != 9 || got.Source != services.SourceExchange || got.Status != "COMPLETED" {
		t.Fatalf("unexpected update %d %+v", gotID, got)
	}
	if got.ConvertedAmount == nil || !got.ConvertedAmount.Equal(decimal.RequireFromString("0.95")) {
		t.Fatalf("expected converted amount 0.95, got %v", got.ConvertedAmount)
	}
	if got.AdminID != nil {
		t.Fatalf("exchange updates carry no admin")
	}
	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != models.DepositCompleted || resp["changed"] != true {
		t.Fatalf("unexpected response %v", resp)
	}
}

func TestExchangeCallbackWithdrawal(t *testing.T) {
	var got services.WithdrawalUpdate
	h := newTestHandler(func(d *Deps) {
		d.Withdrawals = stubWithdrawalStore{getByWithdrawalIDFn: func(ctx context.Context, withdrawalID string) (models.WithdrawalRequest, error) {
			return models.WithdrawalRequest{ID: 3, WithdrawalID: withdrawalID}, nil
		}}
		d.Reconciler = stubReconciler{withdrawalFn: func(ctx context.Context, id int64, update services.WithdrawalUpdate) (services.WithdrawalOutcome, error) {
			got = update
			return services.WithdrawalOutcome{Withdrawal: models.WithdrawalRequest{ID: id, Status: models.WithdrawalConfirmed}, Changed: true}, nil
		}}
	})
	rr := postCallback(h, `{"type":"crypto_withdrawal","id":"wd-3","status":"confirmed","txn_hash":"0xabc","explorer_url":"https://etherscan.io/tx/0xabc"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rr.Code, rr.Body.String())
	}
	if got.TxnHash == nil || *got.TxnHash != "0xabc" || got.ExplorerURL == nil || got.RejectedReason != nil {
		t.Fatalf("unexpected withdrawal update %+v", got)
	}
}

func TestExchangeCallbackFailures(t *testing.T) {
	cases := []struct {
		name     string
		body     string
		verify   error
		lookup   error
		reconcil error
		want     int
	}{
		{name: "bad signature", body: `{"type":"fiat_deposit","id":"d","status":"completed"}`, verify: signer.ErrInvalidSignature, want: http.StatusUnauthorized},
		{name: "stale", body: `{"type":"fiat_deposit","id":"d","status":"completed"}`, verify: signer.ErrStaleTimestamp, want: http.StatusUnauthorized},
		{name: "malformed", body: `{"type":`, want: http.StatusBadRequest},
		{name: "unknown type", body: `{"type":"refund","id":"d","status":"completed"}`, want: http.StatusBadRequest},
		{name: "unknown request", body: `{"type":"fiat_deposit","id":"d","status":"completed"}`, lookup: store.ErrNotFound, want: http.StatusNotFound},
		{name: "lookup failure", body: `{"type":"fiat_deposit","id":"d","status":"completed"}`, lookup: errors.New("db down"), want: http.StatusInternalServerError},
		{name: "invalid transition", body: `{"type":"fiat_deposit","id":"d","status":"pending"}`, reconcil: services.ErrInvalidTransition, want: http.StatusConflict},
		{name: "invalid status", body: `{"type":"fiat_deposit","id":"d","status":"sideways"}`, reconcil: services.ErrInvalidStatus, want: http.StatusBadRequest},
		{name: "uncovered debit", body: `{"type":"fiat_deposit","id":"d","status":"completed"}`, reconcil: services.ErrInsufficientFunds, want: http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandler(func(d *Deps) {
				d.Verifier = stubVerifier{verifyFn: func(method, path, timestamp, signature string, body []byte, maxSkew time.Duration) error {
					if path != "/callbacks/exchange" || maxSkew != 5*time.Minute {
						t.Errorf("unexpected verify args %s %s", path, maxSkew)
					}
					return tc.verify
				}}
				d.Deposits = stubDepositStore{getByDepositIDFn: func(ctx context.Context, depositID string) (models.DepositRequest, error) {
					return models.DepositRequest{ID: 1}, tc.lookup
				}}
				d.Reconciler = stubReconciler{depositFn: func(ctx context.Context, id int64, update services.DepositUpdate) (services.DepositOutcome, error) {
					return services.DepositOutcome{}, tc.reconcil
				}}
			})
			if rr := postCallback(h, tc.body); rr.Code != tc.want {
				t.Fatalf("expected %d, got %d (%s)", tc.want, rr.Code, rr.Body.String())
			}
		})
	}
}
