package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

type Config struct {
	// Discord Bot
	DiscordToken string
	AdminRoleID  string

	// Ledger channels
	DataLogChannelID    string
	DataReportChannelID string

	// Stock channels
	StockGlobalChannelID string
	StockAdminsChannelID string

	// Tickets
	TicketHubChannelID     string
	TicketArchiveChannelID string
	TicketCategoryID       string

	// Discord OAuth2
	DiscordClientID     string
	DiscordClientSecret string
	DiscordRedirectURI  string

	// Database
	DatabaseURL string

	// Locking across replicas
	RedisAddr     string
	RedisPassword string

	// Movement events
	KafkaBrokers []string
	KafkaTopic   string

	// Web Server
	WebBind      string
	WebUIBaseURL string

	// Session
	JWTSecret string

	ReportLocation *time.Location
	// RefreshInterval is how often summaries are re-rendered in the
	// background. Zero disables the worker.
	RefreshInterval time.Duration
	LogLevel        string
}

func Load() (*Config, error) {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := &Config{
		DiscordToken:           os.Getenv("DISCORD_TOKEN"),
		AdminRoleID:            os.Getenv("ADMIN_ROLE_ID"),
		DataLogChannelID:       os.Getenv("DATA_LOG_CHANNEL_ID"),
		DataReportChannelID:    os.Getenv("DATA_REPORT_CHANNEL_ID"),
		StockGlobalChannelID:   os.Getenv("STOCK_GLOBAL_CHANNEL_ID"),
		StockAdminsChannelID:   os.Getenv("STOCK_ADMINS_CHANNEL_ID"),
		TicketHubChannelID:     os.Getenv("TICKET_HUB_CHANNEL_ID"),
		TicketArchiveChannelID: os.Getenv("TICKET_ARCHIVE_CHANNEL_ID"),
		TicketCategoryID:       os.Getenv("TICKET_CATEGORY_ID"),
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		RedisAddr:              os.Getenv("REDIS_ADDR"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		KafkaBrokers:           splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:             getEnvDefault("KAFKA_TOPIC", "kamas.stock.movements"),
		WebBind:                webBind(),
		DiscordClientID:        os.Getenv("DISCORD_CLIENT_ID"),
		DiscordClientSecret:    os.Getenv("DISCORD_CLIENT_SECRET"),
		DiscordRedirectURI:     getEnvDefault("DISCORD_REDIRECT_URI", "http://localhost:10000/api/auth/callback"),
		JWTSecret:              getEnvDefault("JWT_SECRET", "dev-only-change-me"),
		LogLevel:               getEnvDefault("LOG_LEVEL", "info"),
	}

	// Extract base URL from redirect URI
	cfg.WebUIBaseURL = extractBaseURL(cfg.DiscordRedirectURI)

	loc, err := time.LoadLocation(getEnvDefault("REPORT_TIMEZONE", "Europe/Paris"))
	if err != nil {
		return nil, fmt.Errorf("invalid REPORT_TIMEZONE: %w", err)
	}
	cfg.ReportLocation = loc

	refresh, err := time.ParseDuration(getEnvDefault("REFRESH_INTERVAL", "30m"))
	if err != nil || refresh < 0 {
		return nil, fmt.Errorf("invalid REFRESH_INTERVAL %q", os.Getenv("REFRESH_INTERVAL"))
	}
	cfg.RefreshInterval = refresh

	required := []struct {
		name  string
		value string
	}{
		{"DISCORD_TOKEN", cfg.DiscordToken},
		{"DATABASE_URL", cfg.DatabaseURL},
		{"ADMIN_ROLE_ID", cfg.AdminRoleID},
		{"DATA_LOG_CHANNEL_ID", cfg.DataLogChannelID},
		{"DATA_REPORT_CHANNEL_ID", cfg.DataReportChannelID},
		{"STOCK_GLOBAL_CHANNEL_ID", cfg.StockGlobalChannelID},
		{"STOCK_ADMINS_CHANNEL_ID", cfg.StockAdminsChannelID},
	}
	for _, r := range required {
		if r.value == "" {
			return nil, fmt.Errorf("%s is required", r.name)
		}
	}

	for _, id := range []struct {
		name  string
		value string
	}{
		{"ADMIN_ROLE_ID", cfg.AdminRoleID},
		{"DATA_LOG_CHANNEL_ID", cfg.DataLogChannelID},
		{"DATA_REPORT_CHANNEL_ID", cfg.DataReportChannelID},
		{"STOCK_GLOBAL_CHANNEL_ID", cfg.StockGlobalChannelID},
		{"STOCK_ADMINS_CHANNEL_ID", cfg.StockAdminsChannelID},
		{"TICKET_HUB_CHANNEL_ID", cfg.TicketHubChannelID},
		{"TICKET_ARCHIVE_CHANNEL_ID", cfg.TicketArchiveChannelID},
		{"TICKET_CATEGORY_ID", cfg.TicketCategoryID},
	} {
		if id.value == "" {
			continue
		}
		if _, err := strconv.ParseUint(id.value, 10, 64); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", id.name, err)
		}
	}

	return cfg, nil
}

// OAuthEnabled reports whether the web login flow can be offered.
func (c *Config) OAuthEnabled() bool {
	return c.DiscordClientID != "" && c.DiscordClientSecret != ""
}

func getEnvDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// webBind honours WEB_BIND first, then the PORT variable set by hosting
// platforms.
func webBind() string {
	if bind := os.Getenv("WEB_BIND"); bind != "" {
		return bind
	}
	if port := os.Getenv("PORT"); port != "" {
		return "0.0.0.0:" + port
	}
	return "0.0.0.0:10000"
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func extractBaseURL(redirectURI string) string {
	// e.g., "http://localhost:10000/api/auth/callback" -> "http://localhost:10000"
	parsed, err := url.Parse(redirectURI)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "http://localhost:10000"
	}

	return fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host)
}
