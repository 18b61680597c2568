package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

type Handlers struct {
	Health      *Handler
	Loans       *LoanHandler
	Approvals   *ApprovalHandler
	Repayments  *RepaymentHandler
	Investments *InvestmentHandler
	Admin       *AdminHandler
}

// NewEcho returns an echo instance with the validator, panic recovery and
// request logging into log.
func NewEcho(log *zap.Logger) *echo.Echo {
	if log == nil {
		log = zap.NewNop()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.RequestID != "" {
				fields = append(fields, zap.String("request_id", v.RequestID))
			}
			if v.Error != nil {
				log.Error("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			log.Info("request", fields...)
			return nil
		},
	}))
	return e
}

// Register mounts every route. idem guards the mutating ledger routes and
// may be nil.
func Register(e *echo.Echo, h Handlers, idem echo.MiddlewareFunc) {
	var guard []echo.MiddlewareFunc
	if idem != nil {
		guard = append(guard, idem)
	}

	e.GET("/health", h.Health.Health)

	loans := e.Group("/loans")
	loans.POST("", h.Loans.CreateLoan, guard...)
	loans.GET("/pending", h.Loans.ListPending)
	loans.GET("/borrower/:borrower_id", h.Loans.ListByBorrower)
	loans.GET("/:loan_id", h.Loans.GetLoan)
	loans.GET("/:loan_id/repayments", h.Repayments.ListByLoan)
	loans.POST("/:loan_id/approve", h.Approvals.ApproveLoan, guard...)
	loans.POST("/:loan_id/reject", h.Approvals.RejectLoan, guard...)
	loans.GET("/:loan_id/investments", h.Investments.ListByLoan)
	loans.POST("/:loan_id/disburse", h.Investments.Disburse, guard...)
	loans.POST("/:loan_id/default", h.Repayments.DefaultLoan, guard...)

	inv := e.Group("/investments")
	inv.POST("", h.Investments.Invest, guard...)
	inv.GET("/investor/:investor_id", h.Investments.ListByInvestor)
	inv.GET("/:investment_id", h.Investments.Get)
	inv.POST("/:investment_id/confirm", h.Investments.Confirm, guard...)

	rp := e.Group("/repayments")
	rp.POST("", h.Repayments.CreatePlan, guard...)
	rp.POST("/pay", h.Repayments.Pay, guard...)
	rp.POST("/:repayment_id/settle", h.Repayments.Settle, guard...)
	rp.GET("/borrower/:borrower_id", h.Repayments.ListByBorrower)
	rp.GET("/borrower/:borrower_id/pending", h.Repayments.ListPending)
	rp.GET("/borrower/:borrower_id/date-range", h.Repayments.ListByDateRange)

	admin := e.Group("/admin")
	admin.GET("/notifications/failed", h.Admin.ListFailed)
	admin.GET("/notifications/stats", h.Admin.Stats)
	admin.POST("/notifications/:id/redrive", h.Admin.Redrive)
	admin.POST("/overdue/scan", h.Admin.RunScan)
}
