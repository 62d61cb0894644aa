package services

import (
	"context"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"mobeebot/internal/exchange"
	"mobeebot/internal/models"
	"mobeebot/internal/store"
	"mobeebot/internal/websocket"
)

type fakeTxRunner struct {
	err error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

// memDB keeps rows in maps and applies the same conditional updates the SQL
// stores do, so racing callers see the same winners and losers.
type memDB struct {
	mu          sync.Mutex
	nextID      int64
	users       map[int64]*models.User
	deposits    map[int64]*models.DepositRequest
	withdrawals map[int64]*models.WithdrawalRequest
	ledger      map[string]models.Transaction
	tokens      map[string]*models.ActionToken
	audits      []string
	adjusts     int
}

func newMemDB() *memDB {
	return &memDB{
		nextID:      100,
		users:       make(map[int64]*models.User),
		deposits:    make(map[int64]*models.DepositRequest),
		withdrawals: make(map[int64]*models.WithdrawalRequest),
		ledger:      make(map[string]models.Transaction),
		tokens:      make(map[string]*models.ActionToken),
	}
}

func (m *memDB) addUser(id, telegramID int64, balance string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id] = &models.User{ID: id, TelegramID: telegramID, Balance: decimal.RequireFromString(balance)}
}

func (m *memDB) balance(id int64) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id].Balance
}

type memUsers struct{ db *memDB }

func (u memUsers) GetByTelegramID(ctx context.Context, telegramID int64) (models.User, error) {
	u.db.mu.Lock()
	defer u.db.mu.Unlock()
	for _, user := range u.db.users {
		if user.TelegramID == telegramID {
			return *user, nil
		}
	}
	return models.User{}, store.ErrNotFound
}

func (u memUsers) GetByID(ctx context.Context, id int64) (models.User, error) {
	u.db.mu.Lock()
	defer u.db.mu.Unlock()
	user, ok := u.db.users[id]
	if !ok {
		return models.User{}, store.ErrNotFound
	}
	return *user, nil
}

func (u memUsers) GetForUpdate(ctx context.Context, tx store.Getter, id int64) (models.User, error) {
	return u.GetByID(ctx, id)
}

func (u memUsers) AdjustBalance(ctx context.Context, tx store.Getter, id int64, delta decimal.Decimal) (decimal.Decimal, error) {
	u.db.mu.Lock()
	defer u.db.mu.Unlock()
	user, ok := u.db.users[id]
	if !ok {
		return decimal.Zero, store.ErrBalanceConstraint
	}
	next := user.Balance.Add(delta)
	if next.IsNegative() {
		return decimal.Zero, store.ErrBalanceConstraint
	}
	user.Balance = next
	u.db.adjusts++
	return next, nil
}

type memDeposits struct{ db *memDB }

func (d memDeposits) Create(ctx context.Context, tx store.Getter, dep *models.DepositRequest) error {
	d.db.mu.Lock()
	defer d.db.mu.Unlock()
	for _, existing := range d.db.deposits {
		if existing.DepositID == dep.DepositID || existing.TransactionID == dep.TransactionID {
			return store.ErrDuplicate
		}
	}
	d.db.nextID++
	dep.ID = d.db.nextID
	copied := *dep
	d.db.deposits[dep.ID] = &copied
	return nil
}

func (d memDeposits) GetForUpdate(ctx context.Context, tx store.Getter, id int64) (models.DepositRequest, error) {
	d.db.mu.Lock()
	defer d.db.mu.Unlock()
	dep, ok := d.db.deposits[id]
	if !ok {
		return models.DepositRequest{}, store.ErrNotFound
	}
	return *dep, nil
}

func (d memDeposits) TransitionStatus(ctx context.Context, tx store.Execer, id int64, status string, rate, converted *decimal.Decimal) (int64, error) {
	d.db.mu.Lock()
	defer d.db.mu.Unlock()
	dep, ok := d.db.deposits[id]
	if !ok || dep.Status != models.DepositPending {
		return 0, nil
	}
	dep.Status = status
	if rate != nil {
		dep.ConversionRate = rate
	}
	if converted != nil {
		dep.ConvertedAmount = converted
	}
	return 1, nil
}

func (d memDeposits) MarkCredited(ctx context.Context, tx store.Execer, id int64) (int64, error) {
	d.db.mu.Lock()
	defer d.db.mu.Unlock()
	dep, ok := d.db.deposits[id]
	if !ok || dep.Status != models.DepositCompleted || dep.CreditedAt != nil {
		return 0, nil
	}
	now := time.Now()
	dep.CreditedAt = &now
	return 1, nil
}

type memWithdrawals struct{ db *memDB }

func (w memWithdrawals) Create(ctx context.Context, tx store.Getter, wd *models.WithdrawalRequest) error {
	w.db.mu.Lock()
	defer w.db.mu.Unlock()
	for _, existing := range w.db.withdrawals {
		if existing.WithdrawalID == wd.WithdrawalID || existing.TransactionID == wd.TransactionID {
			return store.ErrDuplicate
		}
	}
	w.db.nextID++
	wd.ID = w.db.nextID
	copied := *wd
	w.db.withdrawals[wd.ID] = &copied
	return nil
}

func (w memWithdrawals) GetForUpdate(ctx context.Context, tx store.Getter, id int64) (models.WithdrawalRequest, error) {
	w.db.mu.Lock()
	defer w.db.mu.Unlock()
	wd, ok := w.db.withdrawals[id]
	if !ok {
		return models.WithdrawalRequest{}, store.ErrNotFound
	}
	return *wd, nil
}

func (w memWithdrawals) TransitionStatus(ctx context.Context, tx store.Execer, id int64, t store.WithdrawalTransition) (int64, error) {
	w.db.mu.Lock()
	defer w.db.mu.Unlock()
	wd, ok := w.db.withdrawals[id]
	if !ok || wd.Status != models.WithdrawalPending {
		return 0, nil
	}
	wd.Status = t.Status
	if t.TxnHash != nil {
		wd.TxnHash = t.TxnHash
	}
	if t.RejectedReason != nil {
		wd.RejectedReason = t.RejectedReason
	}
	return 1, nil
}

func (w memWithdrawals) MarkDebited(ctx context.Context, tx store.Execer, id int64) (int64, error) {
	w.db.mu.Lock()
	defer w.db.mu.Unlock()
	wd, ok := w.db.withdrawals[id]
	if !ok || wd.Status != models.WithdrawalConfirmed || wd.DebitedAt != nil {
		return 0, nil
	}
	now := time.Now()
	wd.DebitedAt = &now
	return 1, nil
}

func (w memWithdrawals) PendingDebits(ctx context.Context, userID int64) (decimal.Decimal, error) {
	w.db.mu.Lock()
	defer w.db.mu.Unlock()
	total := decimal.Zero
	for _, wd := range w.db.withdrawals {
		if wd.UserID != nil && *wd.UserID == userID && wd.Status == models.WithdrawalPending {
			total = total.Add(wd.DebitAmount())
		}
	}
	return total, nil
}

type memLedger struct{ db *memDB }

func (l memLedger) Create(ctx context.Context, tx store.Execer, t models.Transaction) error {
	l.db.mu.Lock()
	defer l.db.mu.Unlock()
	if _, ok := l.db.ledger[t.Reference]; ok {
		return store.ErrDuplicate
	}
	l.db.ledger[t.Reference] = t
	return nil
}

func (l memLedger) UpdateByReference(ctx context.Context, tx store.Execer, reference string, t models.Transaction) (int64, error) {
	l.db.mu.Lock()
	defer l.db.mu.Unlock()
	existing, ok := l.db.ledger[reference]
	if !ok {
		return 0, nil
	}
	existing.Status = t.Status
	existing.Amount = t.Amount
	existing.Currency = t.Currency
	if t.TxHash != nil {
		existing.TxHash = t.TxHash
	}
	l.db.ledger[reference] = existing
	return 1, nil
}

type memAudit struct{ db *memDB }

func (a memAudit) Log(ctx context.Context, tx store.Execer, adminID *int64, action, entityType, entityID, details string) error {
	a.db.mu.Lock()
	defer a.db.mu.Unlock()
	a.db.audits = append(a.db.audits, action)
	return nil
}

type memTokens struct{ db *memDB }

func (t memTokens) Create(ctx context.Context, token string, userID int64, action string) error {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	t.db.tokens[token] = &models.ActionToken{Token: token, UserID: userID, Action: action}
	return nil
}

func (t memTokens) Consume(ctx context.Context, token string, userID int64, action string) (bool, error) {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	row, ok := t.db.tokens[token]
	if !ok || row.IsUsed || row.UserID != userID || row.Action != action {
		return false, nil
	}
	row.IsUsed = true
	return true, nil
}

type notification struct {
	kind       string
	telegramID int64
	amount     decimal.Decimal
	balance    decimal.Decimal
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notification
}

func (n *recordingNotifier) record(e notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	return nil
}

func (n *recordingNotifier) count(kind string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	total := 0
	for _, e := range n.events {
		if e.kind == kind {
			total++
		}
	}
	return total
}

func (n *recordingNotifier) DepositCreated(ctx context.Context, telegramID int64, d models.DepositRequest) error {
	return n.record(notification{kind: "deposit_created", telegramID: telegramID, amount: d.Amount})
}

func (n *recordingNotifier) DepositCompleted(ctx context.Context, telegramID int64, d models.DepositRequest, credited, balance decimal.Decimal) error {
	return n.record(notification{kind: "deposit_completed", telegramID: telegramID, amount: credited, balance: balance})
}

func (n *recordingNotifier) DepositFailed(ctx context.Context, telegramID int64, d models.DepositRequest) error {
	return n.record(notification{kind: "deposit_failed", telegramID: telegramID})
}

func (n *recordingNotifier) WithdrawalSubmitted(ctx context.Context, telegramID int64, w models.WithdrawalRequest) error {
	return n.record(notification{kind: "withdrawal_submitted", telegramID: telegramID, amount: w.Amount})
}

func (n *recordingNotifier) WithdrawalConfirmed(ctx context.Context, telegramID int64, w models.WithdrawalRequest, balance decimal.Decimal) error {
	return n.record(notification{kind: "withdrawal_confirmed", telegramID: telegramID, amount: w.DebitAmount(), balance: balance})
}

func (n *recordingNotifier) WithdrawalRejected(ctx context.Context, telegramID int64, w models.WithdrawalRequest) error {
	return n.record(notification{kind: "withdrawal_rejected", telegramID: telegramID})
}

type recordingHub struct {
	mu     sync.Mutex
	events []websocket.RequestEvent
}

func (h *recordingHub) BroadcastRequest(event websocket.RequestEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
}

type stubExchange struct {
	validateFn   func(amount decimal.Decimal, bankCode string) error
	depositFn    func(ctx context.Context, amount decimal.Decimal, bankCode string) (*exchange.FiatDeposit, error)
	withdrawalFn func(ctx context.Context, params exchange.WithdrawalParams) (*exchange.CryptoWithdrawal, error)
	calls        int
}

func (s *stubExchange) ValidateFiatDeposit(amount decimal.Decimal, bankCode string) error {
	if s.validateFn == nil {
		return nil
	}
	return s.validateFn(amount, bankCode)
}

func (s *stubExchange) CreateFiatDeposit(ctx context.Context, amount decimal.Decimal, bankCode string) (*exchange.FiatDeposit, error) {
	s.calls++
	return s.depositFn(ctx, amount, bankCode)
}

func (s *stubExchange) CreateCryptoWithdrawal(ctx context.Context, params exchange.WithdrawalParams) (*exchange.CryptoWithdrawal, error) {
	s.calls++
	return s.withdrawalFn(ctx, params)
}

type fixture struct {
	db       *memDB
	notifier *recordingNotifier
	hub      *recordingHub
}

func newFixture() fixture {
	return fixture{db: newMemDB(), notifier: &recordingNotifier{}, hub: &recordingHub{}}
}

func (f fixture) reconciler() *Reconciler {
	return NewReconciler(fakeTxRunner{}, memUsers{f.db}, memDeposits{f.db}, memWithdrawals{f.db}, memLedger{f.db}, memAudit{f.db}, f.notifier, f.hub, "USDT")
}

func decPtr(value string) *decimal.Decimal {
	d := decimal.RequireFromString(value)
	return &d
}

func int64Ptr(value int64) *int64 {
	return &value
}

func strPtr(value string) *string {
	return &value
}
