package routes

import (
	"net/http"
	"os"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/zjoart/go-invest-ledger/internal/auth"
	"github.com/zjoart/go-invest-ledger/internal/investment"
	"github.com/zjoart/go-invest-ledger/internal/key"
	"github.com/zjoart/go-invest-ledger/internal/middleware"
	"github.com/zjoart/go-invest-ledger/internal/notification"
	"github.com/zjoart/go-invest-ledger/internal/platform"
	"github.com/zjoart/go-invest-ledger/internal/referral"
	"github.com/zjoart/go-invest-ledger/internal/user"
	"github.com/zjoart/go-invest-ledger/internal/wallet"
	"github.com/zjoart/go-invest-ledger/pkg/config"
	"github.com/zjoart/go-invest-ledger/pkg/events"
	"github.com/zjoart/go-invest-ledger/pkg/logger"
)

// LedgerOptions maps configuration onto the ledger service settings.
func LedgerOptions(cfg config.Config) wallet.Options {
	return wallet.Options{
		Currency:                  cfg.Currency,
		Deposit:                   wallet.AmountLimits{Min: cfg.MinDepositAmount, Max: cfg.MaxTransactionAmount},
		Withdrawal:                wallet.AmountLimits{Min: cfg.MinWithdrawalAmount, Max: cfg.MaxTransactionAmount},
		WelcomeBonus:              cfg.WelcomeBonus,
		ReferralCommissionPercent: cfg.ReferralCommissionPercent,
		TxRetries:                 cfg.TxMaxRetries,
	}
}

func RegisterRoutes(r *mux.Router, cfg config.Config, db *gorm.DB, publisher events.Publisher) http.Handler {
	userRepo := user.NewRepository(db)
	keyRepo := key.NewRepository(db)
	accountRepo := platform.NewRepository(db)

	ledger := wallet.NewService(db, wallet.NewRepository(db), userRepo, publisher, LedgerOptions(cfg))
	authService := auth.NewService(cfg, ledger, userRepo)
	referralService := referral.NewService(ledger, referral.NewRepository(db), userRepo)
	investmentService := investment.NewService(ledger, investment.NewRepository(db))

	authHandler := auth.NewHandler(authService)
	usersHandler := auth.NewUsersHandler(userRepo, ledger)
	keyHandler := key.NewHandler(key.NewService(keyRepo, cfg.MaxActiveKeys))
	walletHandler := wallet.NewHandler(ledger, accountRepo)
	reviewHandler := wallet.NewReviewHandler(ledger)
	referralHandler := referral.NewHandler(referralService)
	investmentHandler := investment.NewHandler(investmentService)
	accountHandler := platform.NewHandler(accountRepo)
	notificationHandler := notification.NewHandler(notification.NewRepository(db))

	jwtAuth := auth.JWTMiddleware(cfg, userRepo)
	unifiedAuth := auth.UnifiedAuthMiddleware(cfg, keyRepo, userRepo)
	reviewers := auth.RequireRole(user.RoleAgent, user.RoleAdmin)
	admins := auth.RequireRole(user.RoleAdmin)
	canRead := auth.RequirePermission(key.PermissionRead)
	canReview := auth.RequirePermission(key.PermissionReview)
	canAdjust := auth.RequirePermission(key.PermissionAdjust)

	r.Use(middleware.LoggingMiddleware)
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	limiter := middleware.NewRateLimiter(rate.Limit(5), 10)
	authR := r.PathPrefix("/api/auth").Subrouter()
	authR.Use(limiter.Limit)
	authR.HandleFunc("/register", authHandler.Register).Methods("POST")
	authR.HandleFunc("/login", authHandler.Login).Methods("POST")
	authR.HandleFunc("/google", authHandler.GoogleLogin).Methods("GET")
	authR.HandleFunc("/google/callback", authHandler.GoogleCallback).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	userR := api.PathPrefix("").Subrouter()
	userR.Use(jwtAuth)
	userR.HandleFunc("/me", usersHandler.Me).Methods("GET")
	userR.HandleFunc("/wallet", walletHandler.GetWallet).Methods("GET")
	userR.HandleFunc("/wallet/transactions", walletHandler.GetTransactions).Methods("GET")
	userR.HandleFunc("/wallet/deposit", walletHandler.SubmitDeposit).Methods("POST")
	userR.HandleFunc("/wallet/withdraw", walletHandler.SubmitWithdrawal).Methods("POST")
	userR.HandleFunc("/payment-accounts", accountHandler.ListAccounts).Methods("GET")
	userR.HandleFunc("/plans", investmentHandler.ListPlans).Methods("GET")
	userR.HandleFunc("/investments", investmentHandler.Purchase).Methods("POST")
	userR.HandleFunc("/investments", investmentHandler.List).Methods("GET")
	userR.HandleFunc("/investments/{id}/claim", investmentHandler.Claim).Methods("POST")
	userR.HandleFunc("/referrals", referralHandler.Request).Methods("POST")
	userR.HandleFunc("/referrals", referralHandler.List).Methods("GET")
	userR.HandleFunc("/referrals/team", referralHandler.Team).Methods("GET")
	userR.HandleFunc("/referrals/{id}/accept", referralHandler.Accept).Methods("POST")
	userR.HandleFunc("/referrals/{id}/reject", referralHandler.Reject).Methods("POST")
	userR.HandleFunc("/notifications", notificationHandler.List).Methods("GET")
	userR.HandleFunc("/notifications/read", notificationHandler.MarkAllRead).Methods("POST")
	userR.HandleFunc("/notifications/{id}/read", notificationHandler.MarkRead).Methods("POST")

	keysR := api.PathPrefix("/keys").Subrouter()
	keysR.Use(jwtAuth, reviewers)
	keysR.HandleFunc("", keyHandler.CreateAPIKey).Methods("POST")
	keysR.HandleFunc("", keyHandler.ListAPIKeys).Methods("GET")
	keysR.HandleFunc("/rollover", keyHandler.RolloverAPIKey).Methods("POST")
	keysR.HandleFunc("/revoke", keyHandler.RevokeAPIKey).Methods("POST")

	reviewR := api.PathPrefix("/review").Subrouter()
	reviewR.Use(unifiedAuth, reviewers)
	reviewR.Handle("/transactions", canRead(http.HandlerFunc(reviewHandler.ListTransactions))).Methods("GET")
	reviewR.Handle("/transactions/{id}/approve", canReview(http.HandlerFunc(reviewHandler.Approve))).Methods("POST")
	reviewR.Handle("/transactions/{id}/reject", canReview(http.HandlerFunc(reviewHandler.Reject))).Methods("POST")

	adminR := api.PathPrefix("/admin").Subrouter()
	adminR.Use(unifiedAuth, admins)
	adminR.Handle("/transactions/{id}/revoke", canAdjust(http.HandlerFunc(reviewHandler.Revoke))).Methods("POST")
	adminR.Handle("/transactions/{id}", canAdjust(http.HandlerFunc(reviewHandler.Edit))).Methods("PUT")
	adminR.Handle("/transactions/{id}", canAdjust(http.HandlerFunc(reviewHandler.Delete))).Methods("DELETE")
	adminR.Handle("/users", canRead(http.HandlerFunc(usersHandler.ListUsers))).Methods("GET")
	adminR.Handle("/users/{id}/role", canAdjust(http.HandlerFunc(usersHandler.UpdateRole))).Methods("PUT")
	adminR.Handle("/users/{id}/adjust", canAdjust(http.HandlerFunc(reviewHandler.AdjustStatistic))).Methods("POST")
	adminR.Handle("/plans", canAdjust(http.HandlerFunc(investmentHandler.CreatePlan))).Methods("POST")
	adminR.Handle("/plans/{id}", canAdjust(http.HandlerFunc(investmentHandler.UpdatePlan))).Methods("PUT")
	adminR.Handle("/payment-accounts", canAdjust(http.HandlerFunc(accountHandler.CreateAccount))).Methods("POST")
	adminR.Handle("/payment-accounts/{id}", canAdjust(http.HandlerFunc(accountHandler.UpdateAccount))).Methods("PUT")

	if cfg.Env != "production" {
		r.HandleFunc("/swagger.yaml", func(w http.ResponseWriter, r *http.Request) {
			content, err := os.ReadFile("docs/swagger.yaml")
			if err != nil {
				logger.Error("Failed to read swagger.yaml", logger.WithError(err))
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			modifiedContent := strings.NewReplacer(
				"{{BASE_URL}}", "/",
				"{{CURRENCY}}", cfg.Currency,
				"{{MIN_DEPOSIT_AMOUNT}}", cfg.MinDepositAmount.String(),
				"{{MIN_WITHDRAWAL_AMOUNT}}", cfg.MinWithdrawalAmount.String(),
			).Replace(string(content))

			w.Header().Set("Content-Type", "application/yaml")
			w.Write([]byte(modifiedContent))
		})

		r.PathPrefix("/swagger/").Handler(httpSwagger.Handler(
			httpSwagger.URL("/swagger.yaml"),
		))
		logger.Info("Swagger documentation enabled at /swagger/index.html")
	}

	corsObj := handlers.CORS(
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-API-Key", middleware.RequestIDHeader}),
	)

	return corsObj(r)
}
