package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  address: ":9090"
jwt:
  secret: "s3cret"
paddle:
  api_key: "pdl_key"
  webhook_secret: "whsec"
  environment: "production"
database:
  tx_timeout: "3s"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, "production", cfg.Paddle.Environment)
	assert.Equal(t, 3*time.Second, cfg.Database.TxTimeout)
	assert.Equal(t, 15*time.Second, cfg.Paddle.CheckoutTimeout)
	assert.Equal(t, "planmarket", cfg.Database.Name)
	assert.Equal(t, 72*time.Hour, cfg.Redis.EventTTL)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("PADDLE_API_KEY", "env-key")
	t.Setenv("PADDLE_WEBHOOK_SECRET", "env-whsec")
	t.Setenv("SERVER_ADDRESS", ":7000")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "env-secret", cfg.JWT.Secret)
	assert.Equal(t, "env-whsec", cfg.Paddle.WebhookSecret)
	assert.Equal(t, ":7000", cfg.Server.Address)
}

func TestValidateRequiresSecrets(t *testing.T) {
	err := Config{}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt.secret")
	assert.Contains(t, err.Error(), "paddle.api_key")
	assert.Contains(t, err.Error(), "paddle.webhook_secret")
}
