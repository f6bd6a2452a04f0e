package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("DATABASE_URL", "postgres://localhost/kamas")
	t.Setenv("ADMIN_ROLE_ID", "900")
	t.Setenv("DATA_LOG_CHANNEL_ID", "100")
	t.Setenv("DATA_REPORT_CHANNEL_ID", "101")
	t.Setenv("STOCK_GLOBAL_CHANNEL_ID", "200")
	t.Setenv("STOCK_ADMINS_CHANNEL_ID", "201")
	for _, k := range []string{"WEB_BIND", "PORT", "KAFKA_BROKERS", "KAFKA_TOPIC", "REPORT_TIMEZONE", "REFRESH_INTERVAL", "TICKET_HUB_CHANNEL_ID", "DISCORD_REDIRECT_URI"} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:10000", cfg.WebBind)
	assert.Equal(t, "kamas.stock.movements", cfg.KafkaTopic)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "Europe/Paris", cfg.ReportLocation.String())
	assert.Equal(t, 30*time.Minute, cfg.RefreshInterval)
	assert.Equal(t, "http://localhost:10000", cfg.WebUIBaseURL)
	assert.False(t, cfg.OAuthEnabled())
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "8080")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("REPORT_TIMEZONE", "UTC")
	t.Setenv("REFRESH_INTERVAL", "0")
	t.Setenv("DISCORD_REDIRECT_URI", "https://kamas.example/api/auth/callback")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8080", cfg.WebBind)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, time.UTC.String(), cfg.ReportLocation.String())
	assert.Zero(t, cfg.RefreshInterval)
	assert.Equal(t, "https://kamas.example", cfg.WebUIBaseURL)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"missing token", "DISCORD_TOKEN", ""},
		{"missing journal channel", "DATA_LOG_CHANNEL_ID", ""},
		{"non numeric role", "ADMIN_ROLE_ID", "admins"},
		{"non numeric ticket hub", "TICKET_HUB_CHANNEL_ID", "hub"},
		{"bad timezone", "REPORT_TIMEZONE", "Mars/Olympus"},
		{"bad refresh interval", "REFRESH_INTERVAL", "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
