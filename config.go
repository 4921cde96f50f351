package auth

import (
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/spf13/viper"
)

// Config carries the tunables for the auth core. Zero values fall back to
// the package defaults.
type Config struct {
	BackendURL       string        `mapstructure:"backend_url"`
	SessionTTL       time.Duration `mapstructure:"session_ttl"`
	WarningThreshold time.Duration `mapstructure:"warning_threshold"`
	OTPTTL           time.Duration `mapstructure:"otp_ttl"`
	ActivityThrottle time.Duration `mapstructure:"activity_throttle"`
	HTTPTimeout      time.Duration `mapstructure:"http_timeout"`
	PhoneRegion      string        `mapstructure:"phone_region"`
	StorePath        string        `mapstructure:"store_path"`
}

// DefaultConfig returns the portal's stock settings.
func DefaultConfig() Config {
	return Config{
		SessionTTL:       SessionTTL,
		WarningThreshold: ExpiryWarningThreshold,
		OTPTTL:           OTPTTL,
		ActivityThrottle: ActivityThrottle,
		HTTPTimeout:      10 * time.Second,
		PhoneRegion:      DefaultPhoneRegion,
	}
}

// LoadConfig reads a yaml/json config file and overlays it on the
// defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return cfg, goerrors.Wrap(err, goerrors.CategoryOperation, "unable to read auth config")
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to decode auth config")
	}

	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = SessionTTL
	}
	if cfg.WarningThreshold <= 0 {
		cfg.WarningThreshold = ExpiryWarningThreshold
	}
	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = OTPTTL
	}
	if cfg.ActivityThrottle <= 0 {
		cfg.ActivityThrottle = ActivityThrottle
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}
	if cfg.PhoneRegion == "" {
		cfg.PhoneRegion = DefaultPhoneRegion
	}

	return cfg, nil
}
