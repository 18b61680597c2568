// Package app assembles the ledger from configuration. Both the API server
// and the operator CLI start from here.
package app

import (
	"context"
	"errors"
	"net/http"

	"loanledger/internal/adapter/channel"
	httpadp "loanledger/internal/adapter/http"
	"loanledger/internal/adapter/middleware"
	"loanledger/internal/adapter/repository/mysql"
	"loanledger/internal/config"
	"loanledger/internal/infrastructure/cache"
	"loanledger/internal/infrastructure/db"
	"loanledger/internal/usecase/approval"
	"loanledger/internal/usecase/investment"
	"loanledger/internal/usecase/loan"
	"loanledger/internal/usecase/notification"
	"loanledger/internal/usecase/overdue"
	"loanledger/internal/usecase/repayment"
	"loanledger/pkg/worker"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type App struct {
	Config *config.Config
	Log    *zap.Logger
	DB     *gorm.DB
	Redis  *redis.Client

	Loans       *loan.Usecase
	Approvals   *approval.Usecase
	Repayments  *repayment.Usecase
	Investments *investment.Usecase
	Scanner     *overdue.Scanner
	Dispatcher  *notification.Dispatcher

	pool *worker.Pool
}

// New connects to MySQL and Redis and builds every usecase.
func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	opts := db.DefaultOptions()
	if cfg.LogLevel == "debug" {
		opts.LogLevel = logger.Info
	}
	gdb, err := db.OpenGorm(cfg.MySQLDSN(), opts, log)
	if err != nil {
		return nil, err
	}
	rdb, err := cache.OpenRedis(context.Background(), cache.RedisOptions{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		closeDB(gdb)
		return nil, err
	}
	a, err := Assemble(cfg, log, gdb, rdb)
	if err != nil {
		closeDB(gdb)
		_ = rdb.Close()
		return nil, err
	}
	return a, nil
}

// Assemble wires the usecases on top of open connections.
func Assemble(cfg *config.Config, log *zap.Logger, gdb *gorm.DB, rdb *redis.Client) (*App, error) {
	ch, err := NewChannel(cfg, log)
	if err != nil {
		return nil, err
	}
	renderer, err := notification.NewRenderer(notification.Links{
		DashboardURL: cfg.DashboardURL,
		RepaymentURL: cfg.RepaymentURL,
	})
	if err != nil {
		return nil, err
	}

	tx := mysql.NewGormUoW(gdb)
	pool := worker.NewPool(cfg.DispatchWorkers)
	dispatcher := notification.NewDispatcher(tx, mysql.NewOutboxRepository(gdb), ch, renderer, notification.Config{
		Workers:        cfg.DispatchWorkers,
		PollInterval:   cfg.DispatchPollInterval,
		BatchSize:      cfg.DispatchBatchSize,
		MaxAttempts:    cfg.DispatchMaxAttempts,
		BaseBackoff:    cfg.DispatchBaseBackoff,
		AttemptTimeout: cfg.DispatchAttemptTimeout,
		Lease:          cfg.DispatchLease,
	}, log.Named("dispatcher")).
		WithPool(pool).
		WithDeduper(cache.NewDeduper(rdb, cfg.DedupeTTL))

	repayments := repayment.NewUsecase(tx, mysql.NewRepaymentRepository(gdb), dispatcher, log.Named("repayment"))

	return &App{
		Config:      cfg,
		Log:         log,
		DB:          gdb,
		Redis:       rdb,
		Loans:       loan.NewUsecase(mysql.NewLoanRepository(gdb), log.Named("loan")),
		Approvals:   approval.NewUsecase(tx, dispatcher, log.Named("approval")),
		Repayments:  repayments,
		Investments: investment.NewUsecase(tx, mysql.NewInvestmentRepository(gdb), log.Named("investment")),
		Scanner:     overdue.NewScanner(repayments, cache.NewLocker(rdb), cfg.ScanLockTTL, log.Named("overdue")),
		Dispatcher:  dispatcher,
		pool:        pool,
	}, nil
}

// NewChannel picks the delivery channel named by NOTIFY_CHANNEL.
func NewChannel(cfg *config.Config, log *zap.Logger) (notification.Channel, error) {
	switch cfg.NotifyChannel {
	case config.ChannelLog, "":
		return channel.NewLog(log.Named("notify")), nil
	case config.ChannelSMTP:
		return channel.NewSMTP(channel.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.SMTPFrom,
		}, log.Named("smtp")), nil
	case config.ChannelWebhook:
		return channel.NewWebhook(cfg.WebhookURL, &http.Client{Timeout: cfg.DispatchAttemptTimeout}), nil
	}
	return nil, errors.New("unknown notification channel " + cfg.NotifyChannel)
}

func (a *App) Migrate() error { return mysql.Migrate(a.DB) }

// Scheduler runs the overdue scan daily at SCAN_AT, or every SCAN_INTERVAL
// when that is set.
func (a *App) Scheduler() (*overdue.Scheduler, error) {
	log := a.Log.Named("scheduler")
	if a.Config.ScanInterval > 0 {
		return overdue.NewIntervalScheduler(a.Scanner, a.Config.ScanInterval, log), nil
	}
	h, m, err := a.Config.ScanTime()
	if err != nil {
		return nil, err
	}
	return overdue.NewDailyScheduler(a.Scanner, h, m, log), nil
}

// Echo builds the HTTP server with every route mounted.
func (a *App) Echo() (*echo.Echo, error) {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return nil, err
	}
	e := httpadp.NewEcho(a.Log.Named("http"))
	httpadp.Register(e, httpadp.Handlers{
		Health:      httpadp.NewHandler(sqlDB),
		Loans:       httpadp.NewLoanHandler(a.Loans),
		Approvals:   httpadp.NewApprovalHandler(a.Approvals),
		Repayments:  httpadp.NewRepaymentHandler(a.Repayments),
		Investments: httpadp.NewInvestmentHandler(a.Investments),
		Admin:       httpadp.NewAdminHandler(a.Dispatcher, a.Scanner),
	}, middleware.Idempotency(a.Redis, middleware.IdempotencyConfig{
		TTL:    a.Config.IdempotencyTTL(),
		Logger: a.Log.Named("idempotency"),
	}))
	return e, nil
}

// Close stops the delivery pool, then releases Redis and MySQL.
func (a *App) Close() {
	a.pool.Stop()
	if err := a.Redis.Close(); err != nil {
		a.Log.Warn("close redis", zap.Error(err))
	}
	closeDB(a.DB)
}

func closeDB(gdb *gorm.DB) {
	if sqlDB, err := gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
