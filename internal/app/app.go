// Package app assembles services, handlers and routes into a runnable API.
// cmd/api serves the result; cmd/budgetctl reuses the service graph.
package app

import (
	"gorm.io/gorm"

	"famledger/internal/config"
	"famledger/internal/logger"
	"famledger/internal/notify"
	"famledger/internal/services"
)

// Services is the wired service graph.
type Services struct {
	Users         services.UserServicer
	Families      services.FamilyServicer
	Categories    services.CategoryServicer
	Ledger        services.LedgerServicer
	Budgets       services.BudgetServicer
	Notifications services.NotificationServicer
	Alerts        services.AlertServicer
	Audit         services.AuditServicer
}

// NewServices wires every service against db. Ledger mutations feed budget
// usage, and budget alerts are delivered through publisher.
func NewServices(db *gorm.DB, cfg *config.Config, publisher notify.Publisher) *Services {
	families := services.NewFamilyService(db)
	budgets := services.NewBudgetService(db, services.NewLedgerQuery(db), families, cfg.RecalcWorkers)
	notifications := services.NewNotificationService(db, families, publisher)

	return &Services{
		Users:         services.NewUserService(db),
		Families:      families,
		Categories:    services.NewCategoryService(db, families),
		Ledger:        services.NewLedgerService(db, families, budgets),
		Budgets:       budgets,
		Notifications: notifications,
		Alerts:        services.NewAlertService(db, families, notifications, cfg.AlertTitle),
		Audit:         services.NewAuditService(db),
	}
}

// NewPublisher connects to the configured broker, or falls back to a
// publisher that only logs when AMQP_URL is empty.
func NewPublisher(cfg *config.Config) (notify.Publisher, error) {
	if cfg.AMQPURL == "" {
		logger.Named("notify").Info("AMQP_URL not set, notifications will only be stored")
		return notify.LogPublisher{}, nil
	}
	return notify.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
}
