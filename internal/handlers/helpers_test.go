package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"mobeebot/internal/auth"
	"mobeebot/internal/config"
	"mobeebot/internal/exchange"
	"mobeebot/internal/models"
	"mobeebot/internal/services"
	"mobeebot/internal/store"
	"mobeebot/internal/websocket"
)

const testJWTSecret = "test-secret"

type fakeTxRunner struct {
	withTxFn func(ctx context.Context, fn func(*sqlx.Tx) error) error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.withTxFn != nil {
		return f.withTxFn(ctx, fn)
	}
	return fn(nil)
}

type stubBot struct {
	handleFn func(ctx context.Context, update tgbotapi.Update) error
}

func (s stubBot) HandleUpdate(ctx context.Context, update tgbotapi.Update) error {
	if s.handleFn == nil {
		return nil
	}
	return s.handleFn(ctx, update)
}

type stubRequests struct {
	createDepositFn    func(ctx context.Context, input services.DepositInput) (models.DepositRequest, error)
	createWithdrawalFn func(ctx context.Context, input services.WithdrawalInput) (models.WithdrawalRequest, error)
}

func (s stubRequests) CreateDeposit(ctx context.Context, input services.DepositInput) (models.DepositRequest, error) {
	if s.createDepositFn == nil {
		return models.DepositRequest{}, nil
	}
	return s.createDepositFn(ctx, input)
}

func (s stubRequests) CreateWithdrawal(ctx context.Context, input services.WithdrawalInput) (models.WithdrawalRequest, error) {
	if s.createWithdrawalFn == nil {
		return models.WithdrawalRequest{}, nil
	}
	return s.createWithdrawalFn(ctx, input)
}

type stubReconciler struct {
	depositFn    func(ctx context.Context, id int64, update services.DepositUpdate) (services.DepositOutcome, error)
	withdrawalFn func(ctx context.Context, id int64, update services.WithdrawalUpdate) (services.WithdrawalOutcome, error)
	adjustFn     func(ctx context.Context, input services.AdjustmentInput) (decimal.Decimal, error)
}

func (s stubReconciler) UpdateDepositStatus(ctx context.Context, id int64, update services.DepositUpdate) (services.DepositOutcome, error) {
	if s.depositFn == nil {
		return services.DepositOutcome{}, nil
	}
	return s.depositFn(ctx, id, update)
}

func (s stubReconciler) UpdateWithdrawalStatus(ctx context.Context, id int64, update services.WithdrawalUpdate) (services.WithdrawalOutcome, error) {
	if s.withdrawalFn == nil {
		return services.WithdrawalOutcome{}, nil
	}
	return s.withdrawalFn(ctx, id, update)
}

func (s stubReconciler) AdjustBalance(ctx context.Context, input services.AdjustmentInput) (decimal.Decimal, error) {
	if s.adjustFn == nil {
		return decimal.Zero, nil
	}
	return s.adjustFn(ctx, input)
}

type stubUserStore struct {
	getByIDFn func(ctx context.Context, id int64) (models.User, error)
	listFn    func(ctx context.Context, limit, offset int) ([]models.User, error)
}

func (s stubUserStore) GetByID(ctx context.Context, id int64) (models.User, error) {
	if s.getByIDFn == nil {
		return models.User{}, store.ErrNotFound
	}
	return s.getByIDFn(ctx, id)
}

func (s stubUserStore) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, limit, offset)
}

type stubDepositStore struct {
	getByDepositIDFn func(ctx context.Context, depositID string) (models.DepositRequest, error)
	listFn           func(ctx context.Context, status string, limit, offset int) ([]models.DepositRequest, error)
}

func (s stubDepositStore) GetByDepositID(ctx context.Context, depositID string) (models.DepositRequest, error) {
	if s.getByDepositIDFn == nil {
		return models.DepositRequest{}, store.ErrNotFound
	}
	return s.getByDepositIDFn(ctx, depositID)
}

func (s stubDepositStore) List(ctx context.Context, status string, limit, offset int) ([]models.DepositRequest, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, status, limit, offset)
}

type stubWithdrawalStore struct {
	getByWithdrawalIDFn func(ctx context.Context, withdrawalID string) (models.WithdrawalRequest, error)
	listFn              func(ctx context.Context, status string, limit, offset int) ([]models.WithdrawalRequest, error)
}

func (s stubWithdrawalStore) GetByWithdrawalID(ctx context.Context, withdrawalID string) (models.WithdrawalRequest, error) {
	if s.getByWithdrawalIDFn == nil {
		return models.WithdrawalRequest{}, store.ErrNotFound
	}
	return s.getByWithdrawalIDFn(ctx, withdrawalID)
}

func (s stubWithdrawalStore) List(ctx context.Context, status string, limit, offset int) ([]models.WithdrawalRequest, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, status, limit, offset)
}

type stubAdminStore struct {
	getByUsernameFn func(ctx context.Context, username string) (models.Admin, error)
	getByIDFn       func(ctx context.Context, id int64) (models.Admin, error)
}

func (s stubAdminStore) GetByUsername(ctx context.Context, username string) (models.Admin, error) {
	if s.getByUsernameFn == nil {
		return models.Admin{}, store.ErrNotFound
	}
	return s.getByUsernameFn(ctx, username)
}

func (s stubAdminStore) GetByID(ctx context.Context, id int64) (models.Admin, error) {
	if s.getByIDFn == nil {
		return models.Admin{}, store.ErrNotFound
	}
	return s.getByIDFn(ctx, id)
}

type stubAuditStore struct {
	logFn  func(ctx context.Context, tx store.Execer, adminID *int64, action, entityType, entityID, details string) error
	listFn func(ctx context.Context, limit, offset int) ([]models.AuditLog, error)
}

func (s stubAuditStore) Log(ctx context.Context, tx store.Execer, adminID *int64, action, entityType, entityID, details string) error {
	if s.logFn == nil {
		return nil
	}
	return s.logFn(ctx, tx, adminID, action, entityType, entityID, details)
}

func (s stubAuditStore) List(ctx context.Context, limit, offset int) ([]models.AuditLog, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, limit, offset)
}

type stubAddressStore struct {
	upsertFn func(ctx context.Context, tx store.Execer, a models.CryptoAddress) error
}

func (s stubAddressStore) Upsert(ctx context.Context, tx store.Execer, a models.CryptoAddress) error {
	if s.upsertFn == nil {
		return nil
	}
	return s.upsertFn(ctx, tx, a)
}

type stubExchange struct {
	balancesFn  func(ctx context.Context, currency string) (map[string]decimal.Decimal, error)
	addressesFn func(ctx context.Context) ([]exchange.DepositAddress, error)
}

func (s stubExchange) GetBalances(ctx context.Context, currency string) (map[string]decimal.Decimal, error) {
	if s.balancesFn == nil {
		return map[string]decimal.Decimal{}, nil
	}
	return s.balancesFn(ctx, currency)
}

func (s stubExchange) GetAllAddresses(ctx context.Context) ([]exchange.DepositAddress, error) {
	if s.addressesFn == nil {
		return nil, nil
	}
	return s.addressesFn(ctx)
}

type stubVerifier struct {
	verifyFn func(method, path, timestamp, signature string, body []byte, maxSkew time.Duration) error
}

func (s stubVerifier) Verify(method, path, timestamp, signature string, body []byte, maxSkew time.Duration) error {
	if s.verifyFn == nil {
		return nil
	}
	return s.verifyFn(method, path, timestamp, signature, body, maxSkew)
}

func testConfig() config.Config {
	return config.Config{
		BotUsername:     "MobeeBot",
		WebhookPath:     "webhook",
		WebhookTimeout:  time.Second,
		JWTSecret:       testJWTSecret,
		JWTTTL:          time.Hour,
		AllowedOrigins:  "*",
		CallbackMaxSkew: 5 * time.Minute,
	}
}

// newTestHandler builds a handler whose collaborators all default to stubs.
func newTestHandler(mutate func(*Deps)) *Handler {
	deps := Deps{
		Config:      testConfig(),
		TxRunner:    fakeTxRunner{},
		Bot:         stubBot{},
		Requests:    stubRequests{},
		Reconciler:  stubReconciler{},
		Users:       stubUserStore{},
		Deposits:    stubDepositStore{},
		Withdrawals: stubWithdrawalStore{},
		Admins:      stubAdminStore{},
		Audit:       stubAuditStore{},
		Addresses:   stubAddressStore{},
		Exchange:    stubExchange{},
		Verifier:    stubVerifier{},
		Hub:         websocket.NewHub(),
	}
	if mutate != nil {
		mutate(&deps)
	}
	return New(deps)
}

func withURLParams(req *http.Request, params map[string]string) *http.Request {
	routeCtx := chi.NewRouteContext()
	for key, value := range params {
		routeCtx.URLParams.Add(key, value)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

// adminToken signs a token for an admin the stub store will also return.
func adminToken(t *testing.T, id int64, role string) string {
	t.Helper()
	token, err := auth.GenerateToken(testJWTSecret, id, role, time.Minute)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	return token
}

func adminStoreWith(admins ...models.Admin) stubAdminStore {
	return stubAdminStore{
		getByIDFn: func(ctx context.Context, id int64) (models.Admin, error) {
			for _, a := range admins {
				if a.ID == id {
					return a, nil
				}
			}
			return models.Admin{}, store.ErrNotFound
		},
		getByUsernameFn: func(ctx context.Context, username string) (models.Admin, error) {
			for _, a := range admins {
				if a.Username == username {
					return a, nil
				}
			}
			return models.Admin{}, store.ErrNotFound
		},
	}
}

func serve(h *Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)
	return rr
}
