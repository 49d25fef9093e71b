package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://api.markket.place", cfg.CMSURL)
	assert.Equal(t, cfg.CMSURL, cfg.APIURL)
	assert.Equal(t, 6*time.Second, cfg.SyncInterval)
	assert.Equal(t, ".markket/content.db", cfg.DB)
	assert.Equal(t, language.AmericanEnglish, cfg.Language())
	assert.Equal(t, slog.LevelInfo, cfg.Level())
	assert.Error(t, cfg.RequireStore())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PUBLIC_STRAPI_URL", "http://cms.local:1337")
	t.Setenv("PUBLIC_STORE_SLUG", "shop")
	t.Setenv("MARKKET_API_URL", "http://api.local")
	t.Setenv("MARKKET_SYNC_INTERVAL", "1m")
	t.Setenv("MARKKET_LOCALE", "de-DE")
	t.Setenv("MARKKET_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://cms.local:1337", cfg.CMSURL)
	assert.Equal(t, "http://api.local", cfg.APIURL)
	assert.Equal(t, time.Minute, cfg.SyncInterval)
	assert.Equal(t, language.MustParse("de-DE"), cfg.Language())
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.NoError(t, cfg.RequireStore())
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("MARKKET_SYNC_INTERVAL", "soon")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestValidate(t *testing.T) {
	cfg := Config{CMSURL: "not a url", APIURL: "http://ok", SyncInterval: 0}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cms url")
	assert.Contains(t, err.Error(), "sync interval")
}

func TestFallbacks(t *testing.T) {
	cfg := Config{Locale: "??", LogLevel: "loud"}
	assert.Equal(t, language.AmericanEnglish, cfg.Language())
	assert.Equal(t, slog.LevelInfo, cfg.Level())
}
