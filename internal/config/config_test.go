package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	c := Load()

	assert.Equal(t, "8080", c.AppPort)
	assert.Equal(t, "00:00", c.ScanAt)
	assert.Equal(t, 3, c.DispatchMaxAttempts)
	assert.Equal(t, time.Second, c.DispatchBaseBackoff)
	assert.Equal(t, ChannelLog, c.NotifyChannel)
	assert.Equal(t, 5*time.Minute, c.IdempotencyTTL())
	require.NoError(t, c.Validate())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SCAN_AT", "02:30")
	t.Setenv("SCAN_INTERVAL", "1h")
	t.Setenv("DISPATCH_WORKERS", "8")
	t.Setenv("DISPATCH_BASE_BACKOFF", "250ms")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("DISPATCH_BATCH_SIZE", "not-a-number")

	c := Load()
	h, m, err := c.ScanTime()
	require.NoError(t, err)
	assert.Equal(t, []int{2, 30}, []int{h, m})
	assert.Equal(t, time.Hour, c.ScanInterval)
	assert.Equal(t, 8, c.DispatchWorkers)
	assert.Equal(t, 250*time.Millisecond, c.DispatchBaseBackoff)
	assert.Equal(t, 3, c.RedisDB)
	assert.Equal(t, 50, c.DispatchBatchSize, "unparsable values fall back to the default")
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("APP_PORT=9090\nMYSQL_DB=ledger_test\n"), 0o600))
	t.Chdir(dir)
	t.Setenv("MYSQL_DB", "from_env")
	// unset so the file applies; t.Setenv restores the original afterwards
	t.Setenv("APP_PORT", "")
	require.NoError(t, os.Unsetenv("APP_PORT"))

	c := Load()
	assert.Equal(t, "9090", c.AppPort)
	assert.Equal(t, "from_env", c.MySQLDB, "environment wins over .env")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		mut  func(c *Config)
		want string
	}{
		{"bad scan time", func(c *Config) { c.ScanAt = "25:00" }, "SCAN_AT"},
		{"bad mysql port", func(c *Config) { c.MySQLPort = "abc" }, "MYSQL_PORT"},
		{"missing mysql host", func(c *Config) { c.MySQLHost = "" }, "MySQL"},
		{"zero backoff", func(c *Config) { c.DispatchBaseBackoff = 0 }, "DISPATCH_BASE_BACKOFF"},
		{"no workers", func(c *Config) { c.DispatchWorkers = 0 }, "DISPATCH_WORKERS"},
		{"smtp without host", func(c *Config) { c.NotifyChannel = ChannelSMTP }, "SMTP_HOST"},
		{"webhook without url", func(c *Config) { c.NotifyChannel = ChannelWebhook }, "WEBHOOK_URL"},
		{"unknown channel", func(c *Config) { c.NotifyChannel = "pigeon" }, "NOTIFY_CHANNEL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			c := Load()
			tt.mut(c)
			err := c.Validate()
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.want), err.Error())
		})
	}
}

func TestMySQLDSN(t *testing.T) {
	c := &Config{MySQLUser: "u", MySQLPass: "p", MySQLHost: "db", MySQLPort: "3306", MySQLDB: "ledger"}
	assert.Equal(t, "u:p@tcp(db:3306)/ledger?parseTime=true&loc=UTC&charset=utf8mb4", c.MySQLDSN())
}
