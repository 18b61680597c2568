package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	ChannelLog     = "log"
	ChannelSMTP    = "smtp"
	ChannelWebhook = "webhook"
)

type Config struct {
	AppPort string

	MySQLHost string
	MySQLPort string
	MySQLDB   string
	MySQLUser string
	MySQLPass string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	IdempTTLSecs int

	LogLevel    string
	LogEncoding string

	// ScanAt is the daily HH:MM (UTC) of the overdue scan; ScanInterval,
	// when set, replaces it with a fixed period.
	ScanAt       string
	ScanInterval time.Duration
	ScanLockTTL  time.Duration

	DispatchWorkers        int
	DispatchPollInterval   time.Duration
	DispatchBatchSize      int
	DispatchMaxAttempts    int
	DispatchBaseBackoff    time.Duration
	DispatchAttemptTimeout time.Duration
	DispatchLease          time.Duration
	DedupeTTL              time.Duration

	NotifyChannel string
	SMTPHost      string
	SMTPPort      int
	SMTPUser      string
	SMTPPass      string
	SMTPFrom      string
	WebhookURL    string

	DashboardURL string
	RepaymentURL string
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getint(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func getduration(k string, d time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if n, err := time.ParseDuration(v); err == nil {
			return n
		}
	}
	return d
}

// Load reads the environment, after an optional .env file in the working
// directory. Existing variables win over the file.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		AppPort:   getenv("APP_PORT", "8080"),
		MySQLHost: getenv("MYSQL_HOST", "mysql"),
		MySQLPort: getenv("MYSQL_PORT", "3306"),
		MySQLDB:   getenv("MYSQL_DB", "loanledger"),
		MySQLUser: getenv("MYSQL_USER", "loanledger"),
		MySQLPass: getenv("MYSQL_PASS", "loanledger"),

		RedisAddr:     getenv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getint("REDIS_DB", 0),
		IdempTTLSecs:  getint("IDEMPOTENCY_TTL_SECONDS", 300),

		LogLevel:    getenv("LOG_LEVEL", "info"),
		LogEncoding: getenv("LOG_ENCODING", "json"),

		ScanAt:       getenv("SCAN_AT", "00:00"),
		ScanInterval: getduration("SCAN_INTERVAL", 0),
		ScanLockTTL:  getduration("SCAN_LOCK_TTL", 10*time.Minute),

		DispatchWorkers:        getint("DISPATCH_WORKERS", 4),
		DispatchPollInterval:   getduration("DISPATCH_POLL_INTERVAL", 5*time.Second),
		DispatchBatchSize:      getint("DISPATCH_BATCH_SIZE", 50),
		DispatchMaxAttempts:    getint("DISPATCH_MAX_ATTEMPTS", 3),
		DispatchBaseBackoff:    getduration("DISPATCH_BASE_BACKOFF", time.Second),
		DispatchAttemptTimeout: getduration("DISPATCH_ATTEMPT_TIMEOUT", 10*time.Second),
		DispatchLease:          getduration("DISPATCH_LEASE", 2*time.Minute),
		DedupeTTL:              getduration("DEDUPE_TTL", 7*24*time.Hour),

		NotifyChannel: getenv("NOTIFY_CHANNEL", ChannelLog),
		SMTPHost:      getenv("SMTP_HOST", ""),
		SMTPPort:      getint("SMTP_PORT", 587),
		SMTPUser:      getenv("SMTP_USER", ""),
		SMTPPass:      getenv("SMTP_PASS", ""),
		SMTPFrom:      getenv("SMTP_FROM", ""),
		WebhookURL:    getenv("WEBHOOK_URL", ""),

		DashboardURL: getenv("DASHBOARD_URL", "https://app.example.com/loans"),
		RepaymentURL: getenv("REPAYMENT_URL", "https://app.example.com/repayments"),
	}
}

func (c *Config) Validate() error {
	if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
		return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
	}
	if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
		return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
	}
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	if _, _, err := c.ScanTime(); err != nil {
		return err
	}
	if c.ScanInterval < 0 {
		return errors.New("SCAN_INTERVAL must not be negative")
	}
	if c.DispatchWorkers <= 0 || c.DispatchBatchSize <= 0 || c.DispatchMaxAttempts <= 0 {
		return errors.New("DISPATCH_WORKERS, DISPATCH_BATCH_SIZE and DISPATCH_MAX_ATTEMPTS must be positive")
	}
	for name, d := range map[string]time.Duration{
		"SCAN_LOCK_TTL":            c.ScanLockTTL,
		"DISPATCH_POLL_INTERVAL":   c.DispatchPollInterval,
		"DISPATCH_BASE_BACKOFF":    c.DispatchBaseBackoff,
		"DISPATCH_ATTEMPT_TIMEOUT": c.DispatchAttemptTimeout,
		"DISPATCH_LEASE":           c.DispatchLease,
		"DEDUPE_TTL":               c.DedupeTTL,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	switch c.NotifyChannel {
	case ChannelLog:
	case ChannelSMTP:
		if c.SMTPHost == "" || c.SMTPFrom == "" {
			return errors.New("NOTIFY_CHANNEL=smtp needs SMTP_HOST and SMTP_FROM")
		}
	case ChannelWebhook:
		if c.WebhookURL == "" {
			return errors.New("NOTIFY_CHANNEL=webhook needs WEBHOOK_URL")
		}
	default:
		return fmt.Errorf("unknown NOTIFY_CHANNEL %q", c.NotifyChannel)
	}
	return nil
}

// ScanTime parses SCAN_AT.
func (c *Config) ScanTime() (hour, minute int, err error) {
	t, err := time.Parse("15:04", c.ScanAt)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid SCAN_AT %q, want HH:MM", c.ScanAt)
	}
	return t.Hour(), t.Minute(), nil
}

func (c *Config) IdempotencyTTL() time.Duration {
	return time.Duration(c.IdempTTLSecs) * time.Second
}

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// parseTime is needed for DATE/DATETIME columns
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&charset=utf8mb4",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}
