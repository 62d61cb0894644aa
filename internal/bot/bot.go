package bot

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"mobeebot/internal/config"
	"mobeebot/internal/models"
	"mobeebot/internal/session"
	"mobeebot/internal/store"
)

// Sender is the part of *tgbotapi.BotAPI the bot talks through.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type UserStore interface {
	Upsert(ctx context.Context, profile store.TelegramProfile, referralCode string) (models.User, bool, error)
	GetByReferralCode(ctx context.Context, code string) (models.User, error)
	SetReferrer(ctx context.Context, userID, referrerID int64) (bool, error)
	CountReferrals(ctx context.Context, userID int64) (int, error)
}

type PendingDebits interface {
	PendingDebits(ctx context.Context, userID int64) (decimal.Decimal, error)
}

type LedgerReader interface {
	ListByUser(ctx context.Context, userID int64, limit int) ([]models.Transaction, error)
}

type AddressReader interface {
	ListActive(ctx context.Context, currency string) ([]models.CryptoAddress, error)
	Currencies(ctx context.Context) ([]string, error)
}

type FAQReader interface {
	Categories(ctx context.Context) ([]string, error)
	ByCategory(ctx context.Context, category string) ([]models.FAQ, error)
}

type Requests interface {
	IssueToken(ctx context.Context, userID int64, action string) (string, error)
	CheckWithdrawal(user models.User, pending decimal.Decimal, currency string, networkID int64, amount decimal.Decimal) (config.WithdrawalNetwork, error)
}

type Deps struct {
	Sender      Sender
	Users       UserStore
	Withdrawals PendingDebits
	Ledger      LedgerReader
	Addresses   AddressReader
	FAQs        FAQReader
	Requests    Requests
	Sessions    session.Store
	Catalog     config.Catalog
	PublicDomain string
	BotUsername  string
}

type Handler struct {
	sender      Sender
	users       UserStore
	withdrawals PendingDebits
	ledger      LedgerReader
	addresses   AddressReader
	faqs        FAQReader
	requests    Requests
	sessions    session.Store
	catalog     config.Catalog
	publicURL   string
	botUsername string
}

func New(deps Deps) *Handler {
	publicURL := strings.TrimSuffix(deps.PublicDomain, "/")
	if publicURL != "" && !strings.Contains(publicURL, "://") {
		publicURL = "https://" + publicURL
	}
	return &Handler{
		sender:      deps.Sender,
		users:       deps.Users,
		withdrawals: deps.Withdrawals,
		ledger:      deps.Ledger,
		addresses:   deps.Addresses,
		faqs:        deps.FAQs,
		requests:    deps.Requests,
		sessions:    deps.Sessions,
		catalog:     deps.Catalog,
		publicURL:   publicURL,
		botUsername: deps.BotUsername,
	}
}

// HandleUpdate processes one update. Failures inside a flow are logged and
// answered with a generic message; only an expired context is returned so
// the webhook can report the timeout.
func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) error {
	var (
		chatID int64
		err    error
	)
	switch {
	case update.CallbackQuery != nil:
		chatID = callbackChatID(update.CallbackQuery)
		err = h.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		if update.Message.Chat != nil {
			chatID = update.Message.Chat.ID
		}
		err = h.handleMessage(ctx, update.Message)
	default:
		return nil
	}
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	zap.L().Error("update handling failed",
		zap.Int("update_id", update.UpdateID),
		zap.Int64("chat_id", chatID),
		zap.Error(err))
	if chatID != 0 {
		if sendErr := h.send(chatID, msgGenericFailure, mainMenuKeyboard()); sendErr != nil {
			zap.L().Warn("failure message not delivered", zap.Int64("chat_id", chatID), zap.Error(sendErr))
		}
	}
	return nil
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil || msg.Chat == nil {
		return nil
	}
	chatID := msg.Chat.ID
	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			return h.start(ctx, msg)
		case "cancel":
			if err := h.sessions.Clear(ctx, chatID); err != nil {
				return err
			}
			return h.send(chatID, msgCancelled, mainMenuKeyboard())
		case "menu":
			return h.send(chatID, msgMainMenu, mainMenuKeyboard())
		default:
			return h.send(chatID, msgUnknownCommand, mainMenuKeyboard())
		}
	}

	state, err := h.sessions.Get(ctx, chatID)
	if err != nil {
		return err
	}
	switch state.Step {
	case session.StepAwaitingAmount:
		return h.captureAmount(ctx, msg, state)
	case session.StepAwaitingAddress:
		return h.captureAddress(ctx, msg, state)
	default:
		return h.send(chatID, msgMainMenu, mainMenuKeyboard())
	}
}

func (h *Handler) start(ctx context.Context, msg *tgbotapi.Message) error {
	user, created, err := h.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	if code := strings.TrimSpace(msg.CommandArguments()); code != "" && user.ReferredBy == nil {
		h.recordReferral(ctx, user, code)
	}
	if err := h.sessions.Clear(ctx, msg.Chat.ID); err != nil {
		return err
	}
	if created {
		zap.L().Info("user registered", zap.Int64("user_id", user.ID), zap.Int64("telegram_id", user.TelegramID))
	}
	return h.send(msg.Chat.ID, welcomeText(user), mainMenuKeyboard())
}

func (h *Handler) recordReferral(ctx context.Context, user models.User, code string) {
	referrer, err := h.users.GetByReferralCode(ctx, code)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			zap.L().Warn("referral lookup failed", zap.String("code", code), zap.Error(err))
		}
		return
	}
	if referrer.ID == user.ID {
		return
	}
	linked, err := h.users.SetReferrer(ctx, user.ID, referrer.ID)
	if err != nil {
		zap.L().Warn("referral link failed", zap.Int64("user_id", user.ID), zap.Error(err))
		return
	}
	if linked {
		zap.L().Info("referral recorded", zap.Int64("user_id", user.ID), zap.Int64("referrer_id", referrer.ID))
	}
}

func (h *Handler) ensureUser(ctx context.Context, from *tgbotapi.User) (models.User, bool, error) {
	profile := store.TelegramProfile{
		TelegramID: from.ID,
		Username:   from.UserName,
		FirstName:  from.FirstName,
		LastName:   from.LastName,
	}
	user, created, err := h.users.Upsert(ctx, profile, newReferralCode())
	if errors.Is(err, store.ErrDuplicate) {
		zap.L().Warn("referral code collision", zap.Int64("telegram_id", from.ID))
		return h.users.Upsert(ctx, profile, newReferralCode())
	}
	return user, created, err
}

func newReferralCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func callbackChatID(q *tgbotapi.CallbackQuery) int64 {
	if q.Message != nil && q.Message.Chat != nil {
		return q.Message.Chat.ID
	}
	if q.From != nil {
		return q.From.ID
	}
	return 0
}

func (h *Handler) send(chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	return sendHTML(h.sender, chatID, text, markup)
}

func sendHTML(sender Sender, chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if markup != nil {
		msg.ReplyMarkup = *markup
	}
	_, err := sender.Send(msg)
	return err
}

func (h *Handler) show(chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	if messageID == 0 {
		return h.send(chatID, text, markup)
	}
	var edit tgbotapi.EditMessageTextConfig
	if markup != nil {
		edit = tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, *markup)
	} else {
		edit = tgbotapi.NewEditMessageText(chatID, messageID, text)
	}
	edit.ParseMode = tgbotapi.ModeHTML
	edit.DisableWebPagePreview = true
	_, err := h.sender.Send(edit)
	return err
}
