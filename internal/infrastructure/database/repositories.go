package database

import (
	"github.com/meshpay/payment-service/internal/adapter/repository"
	domainRepository "github.com/meshpay/payment-service/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Repositories aggregates all persistence-layer repositories.
type Repositories struct {
	Transactions domainRepository.TransactionRepository
	Ledger       domainRepository.EventLedger
	Anomalies    domainRepository.AnomalyRepository
}

// NewRepositories wires repository implementations over a database connection.
func NewRepositories(db *gorm.DB, log *zap.Logger) *Repositories {
	return &Repositories{
		Transactions: repository.NewTransactionRepository(db, log),
		Ledger:       repository.NewEventLedgerRepository(db, log),
		Anomalies:    repository.NewAnomalyRepository(db, log),
	}
}
