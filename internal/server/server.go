package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"aviator/internal/auth"
	"aviator/internal/config"
	"aviator/internal/game"
	"aviator/internal/logger"
	"aviator/internal/user"
	"aviator/internal/wallet"
)

type Server struct {
	router *gin.Engine
	engine *game.Engine
	config *config.Config
}

func New(db *sqlx.DB, rdb *redis.Client, cfg *config.Config) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(corsMiddleware())

	hub := game.NewHub()
	store := game.NewRepository(db)
	ledger := wallet.NewRepository(db)
	recent := game.NewRecentCrashes(rdb, 30)
	engine := game.NewEngine(cfg, db, store, ledger, hub, recent)

	userHandler := user.NewHandler(db, ledger, cfg.JWTSecret, cfg.WelcomeBonusCents)
	walletHandler := wallet.NewHandlerWithLedger(ledger)
	gameHandler := game.NewHandler(engine, store, recent)

	public := router.Group("/auth")
	public.Use(RateLimitMiddleware(5, 10))
	{
		public.POST("/register", userHandler.Register)
		public.POST("/login", userHandler.Login)
		public.POST("/refresh", userHandler.Refresh)
	}

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)

	router.GET("/me", authMiddleware, userHandler.GetMe)

	walletGroup := router.Group("/wallet")
	walletGroup.Use(authMiddleware)
	{
		walletGroup.GET("/balance", walletHandler.GetBalance)
		walletGroup.POST("/deposit", walletHandler.Deposit)
		walletGroup.POST("/withdraw", walletHandler.Withdraw)
		walletGroup.GET("/transactions", walletHandler.ListTransactions)
	}

	betting := router.Group("/betting")
	{
		betting.GET("/current-round", gameHandler.CurrentRound)
		betting.GET("/leaderboard", gameHandler.Leaderboard)
		betting.GET("/recent-crashes", gameHandler.RecentCrashes)
		betting.GET("/verify/:roundId", gameHandler.Verify)

		protected := betting.Group("")
		protected.Use(authMiddleware)
		{
			protected.POST("/place-bet", gameHandler.PlaceBet)
			protected.POST("/cashout/:betId", gameHandler.Cashout)
			protected.GET("/active-bets", gameHandler.ActiveBets)
			protected.GET("/history", gameHandler.History)
			protected.GET("/stream", hub.ServeWS)
		}
	}

	admin := router.Group("/admin")
	admin.Use(authMiddleware, auth.RequireRole("admin"))
	{
		admin.GET("/rounds/:roundId", AdminGetRound(store))
	}

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())

	return &Server{
		router: router,
		engine: engine,
		config: cfg,
	}
}

// Router exposes the mux for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start runs the round loop and the HTTP listener until ctx is cancelled,
// then drains both. The engine force-crashes the live round on the way
// out so no flight survives a restart.
func (s *Server) Start(ctx context.Context) error {
	go s.engine.Run(ctx)

	srv := &http.Server{
		Addr:    ":" + s.config.Port,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
