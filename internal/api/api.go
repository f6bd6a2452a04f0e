package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"golang.org/x/oauth2"

	"github.com/kamas-trade/kamasbot/internal/config"
	"github.com/kamas-trade/kamasbot/internal/ledger"
	"github.com/kamas-trade/kamasbot/internal/logger"
	"github.com/kamas-trade/kamasbot/internal/stock"
)

// Ledger is implemented by *report.Service.
type Ledger interface {
	Snapshot(ctx context.Context, guildID int64) (ledger.Report, error)
	Rebuild(ctx context.Context, guildID int64) (ledger.Report, error)
	ResetToZero(ctx context.Context, guildID int64) error
}

// Stock is implemented by *stock.Service.
type Stock interface {
	Balances(ctx context.Context, guildID int64) ([]stock.Balance, int64, error)
}

// Pinger is implemented by *db.DB.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Members is implemented by *discordgo.Session. Roles are read with the bot's
// credentials since the user's OAuth2 scopes do not cover them.
type Members interface {
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
}

type API struct {
	router      *mux.Router
	config      *config.Config
	oauthConfig *oauth2.Config
	jwtSecret   []byte
	discord     *discordClient

	ledger  Ledger
	stock   Stock
	db      Pinger
	members Members

	server *http.Server
}

func New(cfg *config.Config, l Ledger, s Stock, database Pinger, members Members) *API {
	api := &API{
		router:    mux.NewRouter(),
		config:    cfg,
		jwtSecret: []byte(cfg.JWTSecret),
		discord:   newDiscordClient(discordAPIBase),
		ledger:    l,
		stock:     s,
		db:        database,
		members:   members,
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.DiscordClientID,
			ClientSecret: cfg.DiscordClientSecret,
			RedirectURL:  cfg.DiscordRedirectURI,
			Scopes:       []string{"identify", "guilds"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://discord.com/api/oauth2/authorize",
				TokenURL: "https://discord.com/api/oauth2/token",
			},
		},
	}

	api.setupRoutes()
	return api
}

func (a *API) setupRoutes() {
	// Health
	a.router.HandleFunc("/", a.handleRoot).Methods("GET", "HEAD")
	a.router.HandleFunc("/healthz", a.handleHealth).Methods("GET")

	// Auth endpoints
	if a.config.OAuthEnabled() {
		a.router.HandleFunc("/api/auth/login", a.handleLogin).Methods("GET")
		a.router.HandleFunc("/api/auth/callback", a.handleCallback).Methods("GET")
		a.router.HandleFunc("/api/auth/logout", a.handleLogout).Methods("POST")
	}

	// Protected endpoints
	protected := a.router.PathPrefix("/api/guilds/{guild_id:[0-9]+}").Subrouter()
	protected.Use(a.authMiddleware, a.guildMiddleware, a.adminMiddleware)

	protected.HandleFunc("/ledger", a.handleGetLedger).Methods("GET")
	protected.HandleFunc("/ledger/rebuild", a.handleRebuildLedger).Methods("POST")
	protected.HandleFunc("/ledger/reset", a.handleResetLedger).Methods("POST")
	protected.HandleFunc("/stock", a.handleGetStock).Methods("GET")
}

// Handler returns the router wrapped with CORS.
func (a *API) Handler() http.Handler {
	// Note: When AllowedOrigins is "*", AllowCredentials must be false for security
	corsOptions := cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	}
	return cors.New(corsOptions).Handler(a.router)
}

// Start serves until Shutdown is called.
func (a *API) Start() error {
	a.server = &http.Server{
		Addr:              a.config.WebBind,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.L().Infof("API server listening on http://%s", a.config.WebBind)
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *API) Shutdown(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}
