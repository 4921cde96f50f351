package auth_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/schoolmed/go-authclient"
)

func TestDefaultConfig(t *testing.T) {
	cfg := auth.DefaultConfig()
	assert.Equal(t, auth.SessionTTL, cfg.SessionTTL)
	assert.Equal(t, auth.ExpiryWarningThreshold, cfg.WarningThreshold)
	assert.Equal(t, auth.OTPTTL, cfg.OTPTTL)
	assert.Equal(t, auth.ActivityThrottle, cfg.ActivityThrottle)
	assert.Equal(t, auth.DefaultPhoneRegion, cfg.PhoneRegion)
}

func TestLoadConfigOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.yaml")
	content := `
backend_url: https://portal.example.com/api
session_ttl: 45m
otp_ttl: 90s
phone_region: US
store_path: /var/lib/portal/session.json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := auth.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://portal.example.com/api", cfg.BackendURL)
	assert.Equal(t, 45*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 90*time.Second, cfg.OTPTTL)
	assert.Equal(t, "US", cfg.PhoneRegion)
	assert.Equal(t, "/var/lib/portal/session.json", cfg.StorePath)

	// Unset values keep their defaults.
	assert.Equal(t, auth.ExpiryWarningThreshold, cfg.WarningThreshold)
	assert.Equal(t, auth.ActivityThrottle, cfg.ActivityThrottle)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := auth.LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
