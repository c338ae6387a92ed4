package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Database:     DatabaseConfig{URL: "postgres://localhost/morchid"},
		JWT:          JWTConfig{Secret: "access", RefreshSecret: "refresh"},
		Storage:      StorageConfig{MaxUploadBytes: 1024},
		Verification: VerificationConfig{MinRejectionReasonLength: 10, MaxRejectionReasonLength: 500, MinLicenseLength: 5},
		Routes:       RoutesConfig{ProximityMeters: 50},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing database url", func(c *Config) { c.Database.URL = "" }, "DATABASE_URL"},
		{"missing jwt secret", func(c *Config) { c.JWT.Secret = "" }, "JWT_SECRET"},
		{"missing refresh secret", func(c *Config) { c.JWT.RefreshSecret = "" }, "JWT_REFRESH_SECRET"},
		{"zero upload limit", func(c *Config) { c.Storage.MaxUploadBytes = 0 }, "UPLOAD_MAX_BYTES"},
		{"zero reason length", func(c *Config) { c.Verification.MinRejectionReasonLength = 0 }, "REJECTION_REASON_MIN_LENGTH"},
		{"max below min", func(c *Config) { c.Verification.MaxRejectionReasonLength = 5 }, "REJECTION_REASON_MAX_LENGTH"},
		{"zero proximity", func(c *Config) { c.Routes.ProximityMeters = 0 }, "ROUTE_PROXIMITY_METERS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/morchid")
	t.Setenv("JWT_SECRET", "access")
	t.Setenv("JWT_REFRESH_SECRET", "refresh")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.ma, https://b.ma ,")
	t.Setenv("SEARCH_CACHE_TTL_SECONDS", "45")
	t.Setenv("ROUTE_PROXIMITY_METERS", "75.5")
	t.Setenv("BCRYPT_COST", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://a.ma", "https://b.ma"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 45*time.Second, cfg.Redis.SearchCacheTTL)
	assert.Equal(t, 75.5, cfg.Routes.ProximityMeters)
	assert.Equal(t, 12, cfg.Security.BcryptCost)
	assert.Equal(t, 10, cfg.Verification.MinRejectionReasonLength)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "access")
	t.Setenv("JWT_REFRESH_SECRET", "refresh")

	cfg, err := Load()
	assert.Error(t, err)
	assert.Nil(t, cfg)
}
