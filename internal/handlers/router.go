package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"mobeebot/internal/auth"
	"mobeebot/internal/config"
	"mobeebot/internal/db"
	"mobeebot/internal/middleware"
	"mobeebot/internal/websocket"
)

type Handler struct {
	cfg         config.Config
	txRunner    db.TxRunner
	bot         UpdateHandler
	requests    RequestService
	reconciler  Reconciler
	users       UserStore
	deposits    DepositStore
	withdrawals WithdrawalStore
	admins      AdminStore
	audit       AuditStore
	addresses   AddressStore
	exchange    ExchangeReader
	verifier    CallbackVerifier
	hub         *websocket.Hub
}

type Deps struct {
	Config      config.Config
	TxRunner    db.TxRunner
	Bot         UpdateHandler
	Requests    RequestService
	Reconciler  Reconciler
	Users       UserStore
	Deposits    DepositStore
	Withdrawals WithdrawalStore
	Admins      AdminStore
	Audit       AuditStore
	Addresses   AddressStore
	Exchange    ExchangeReader
	Verifier    CallbackVerifier
	Hub         *websocket.Hub
}

func New(deps Deps) *Handler {
	return &Handler{
		cfg:         deps.Config,
		txRunner:    deps.TxRunner,
		bot:         deps.Bot,
		requests:    deps.Requests,
		reconciler:  deps.Reconciler,
		users:       deps.Users,
		deposits:    deps.Deposits,
		withdrawals: deps.Withdrawals,
		admins:      deps.Admins,
		audit:       deps.Audit,
		addresses:   deps.Addresses,
		exchange:    deps.Exchange,
		verifier:    deps.Verifier,
		hub:         deps.Hub,
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.RequestLogger(zap.L()))
	router.Use(chimiddleware.Recoverer)

	router.HandleFunc("/"+h.cfg.WebhookPath, h.Webhook)
	router.Get("/create-deposit/{userID}/{amount}/{bankCode}", h.CreateDeposit)
	router.Get("/create-deposit/{userID}/{amount}/{bankCode}/{token}", h.CreateDeposit)
	router.Get("/create-withdraw/{userID}/{currency}/{amount}/{address}/{networkID}", h.CreateWithdraw)
	router.Get("/create-withdraw/{userID}/{currency}/{amount}/{address}/{networkID}/{token}", h.CreateWithdraw)
	router.Post("/callbacks/exchange", h.ExchangeCallback)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	router.Route("/admin", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.allowedOrigins(),
			AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
		r.Post("/login", h.AdminLogin)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(h.cfg.JWTSecret))
			viewer := middleware.RequireRole(h.admins, auth.RoleViewer)
			operator := middleware.RequireRole(h.admins, auth.RoleOperator)
			super := middleware.RequireRole(h.admins, auth.RoleSuper)

			r.With(viewer).Get("/users", h.AdminListUsers)
			r.With(viewer).Get("/users/{id}", h.AdminGetUser)
			r.With(super).Post("/users/{id}/adjust", h.AdminAdjustBalance)
			r.With(viewer).Get("/deposits", h.AdminListDeposits)
			r.With(operator).Patch("/deposits/{id}/status", h.AdminUpdateDepositStatus)
			r.With(viewer).Get("/withdrawals", h.AdminListWithdrawals)
			r.With(operator).Patch("/withdrawals/{id}/status", h.AdminUpdateWithdrawalStatus)
			r.With(viewer).Get("/exchange/balances", h.AdminExchangeBalances)
			r.With(super).Post("/addresses/sync", h.AdminSyncAddresses)
			r.With(viewer).Get("/audit", h.AdminListAuditLogs)
			r.With(viewer).Get("/ws", h.AdminWS)
		})
	})
	return router
}

func (h *Handler) allowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(h.cfg.AllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.allowedOrigins() {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}
