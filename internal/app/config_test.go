package app

import (
	"testing"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLoader() aconfig.Config {
	return aconfig.Config{
		EnvPrefix: "BAZAAR",
		SkipFiles: true,
		SkipFlags: true,
	}
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name: "defaults with memory storage",
			env: map[string]string{
				"BAZAAR_STORAGE":    "memory",
				"BAZAAR_JWT_SECRET": "s",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "0.0.0.0:8080", cfg.Addr)
				assert.Equal(t, "INR", cfg.Currency)
				assert.Equal(t, 2, cfg.Notify.Workers)
				assert.Equal(t, 10*time.Second, cfg.Razorpay.Timeout)
				assert.Equal(t, []string{"*"}, cfg.CORS.Origins)
			},
		},
		{
			name: "platform variables",
			env: map[string]string{
				"DATABASE_URL": "postgres://localhost/bazaar",
				"JWT_SECRET":   "s",
				"PORT":         "9000",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, StoragePostgres, cfg.Storage)
				assert.Equal(t, "postgres://localhost/bazaar", cfg.DatabaseURL)
				assert.Equal(t, "0.0.0.0:9000", cfg.Addr)
			},
		},
		{
			name: "nested sections",
			env: map[string]string{
				"BAZAAR_STORAGE":               "memory",
				"BAZAAR_JWT_SECRET":            "s",
				"BAZAAR_RAZORPAY_KEY_SECRET":   "rzp",
				"BAZAAR_TELEGRAM_ADMIN_CHAT_ID": "42",
				"BAZAAR_NOTIFY_QUEUE_SIZE":     "8",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "rzp", cfg.Razorpay.KeySecret)
				assert.Equal(t, "42", cfg.Telegram.AdminChatID)
				assert.Equal(t, 8, cfg.Notify.QueueSize)
			},
		},
		{
			name:    "postgres without url",
			env:     map[string]string{"BAZAAR_JWT_SECRET": "s"},
			wantErr: "database URL is required",
		},
		{
			name:    "missing jwt secret",
			env:     map[string]string{"BAZAAR_STORAGE": "memory"},
			wantErr: "JWT secret is required",
		},
		{
			name:    "unknown storage",
			env:     map[string]string{"BAZAAR_STORAGE": "redis", "BAZAAR_JWT_SECRET": "s"},
			wantErr: `unknown storage "redis"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{"DATABASE_URL", "JWT_SECRET", "PORT"} {
				t.Setenv(k, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := loadConfig(testLoader())
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}
