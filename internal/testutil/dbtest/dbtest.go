// Package dbtest opens a migrated in-memory sqlite database for tests.
package dbtest

import (
	"testing"

	"loanledger/internal/domain/approval"
	"loanledger/internal/domain/investment"
	"loanledger/internal/domain/loan"
	"loanledger/internal/domain/outbox"
	"loanledger/internal/domain/repayment"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open returns a fresh database. A single connection is kept so that
// transactions serialize the way row locks do on MySQL; callers must not
// touch the outer handle while inside a transaction.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&loan.Loan{}, &repayment.Repayment{}, &approval.Approval{}, &investment.Investment{}, &outbox.Intent{}); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return db
}
