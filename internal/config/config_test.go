package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnhindia1-ui/collab/internal/auth"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("COLLAB_SESSION_SECRET", secret)
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "mysql", cfg.CatalogDriver)
	assert.Equal(t, "item", cfg.CatalogTable)
	assert.Empty(t, cfg.UsersPath)
	assert.Equal(t, auth.AnyAdminOrSuperadmin, cfg.EditPolicy)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.EqualValues(t, 5, cfg.ResetLimit)
	assert.Equal(t, 15*time.Minute, cfg.ResetWindow)
	assert.False(t, cfg.Production())
}

func TestFromEnvRequiresSecret(t *testing.T) {
	t.Setenv("COLLAB_SESSION_SECRET", "")
	_, err := FromEnv()
	assert.ErrorIs(t, err, ErrMissingSecret)

	t.Setenv("COLLAB_SESSION_SECRET", "short")
	_, err = FromEnv()
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("COLLAB_SESSION_SECRET", secret)
	t.Setenv("COLLAB_ENV", "production")
	t.Setenv("COLLAB_DB_DRIVER", "sqlite")
	t.Setenv("COLLAB_CONTENT_EDIT_POLICY", "owner_or_superadmin")
	t.Setenv("COLLAB_RESET_WINDOW", "1h")
	t.Setenv("COLLAB_LOG_FORMAT", "JSON")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.Production())
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, auth.OwnerOrSuperadmin, cfg.EditPolicy)
	assert.Equal(t, time.Hour, cfg.ResetWindow)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestFromEnvRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"COLLAB_DB_DRIVER":           "mysql",
		"COLLAB_CATALOG_DRIVER":      "oracle",
		"COLLAB_CONTENT_EDIT_POLICY": "everyone",
		"COLLAB_SMTP_PORT":           "70000",
		"COLLAB_RESET_LIMIT":         "0",
		"COLLAB_RESET_WINDOW":        "soon",
		"COLLAB_LOG_LEVEL":           "loud",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv("COLLAB_SESSION_SECRET", secret)
			t.Setenv(key, val)
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
