package service

import (
	"sync"

	"go.uber.org/zap"

	"synapse-service/internal/config"
	"synapse-service/internal/events"
	"synapse-service/internal/repository/redis"
	"synapse-service/internal/repository/sqldb"
)

// Repositories groups the table gateways the services depend on.
type Repositories struct {
	Customers sqldb.CustomerRepository
	Devices   sqldb.DeviceRepository
	Packages  sqldb.PackageRepository
	Payments  sqldb.PaymentRepository
	Audits    sqldb.AuditRepository
}

// ServiceFactory creates and manages service instances
type ServiceFactory struct {
	repos     Repositories
	sessions  redis.SessionStore
	publisher events.Publisher
	cfg       *config.Config
	logger    *zap.Logger

	authOnce       sync.Once
	authService    *AuthService
	backOfficeOnce sync.Once
	backOffice     *BackOfficeService
}

func NewServiceFactory(
	repos Repositories,
	sessions redis.SessionStore,
	publisher events.Publisher,
	cfg *config.Config,
	logger *zap.Logger,
) *ServiceFactory {
	return &ServiceFactory{
		repos:     repos,
		sessions:  sessions,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
	}
}

// AuthService returns the auth service instance (singleton)
func (f *ServiceFactory) AuthService() *AuthService {
	f.authOnce.Do(func() {
		f.authService = NewAuthService(
			f.repos.Customers,
			f.repos.Devices,
			f.sessions,
			f.publisher,
			f.cfg.Session,
			f.cfg.Auth,
			f.logger,
		)
	})
	return f.authService
}

// BackOfficeService returns the back-office service instance (singleton)
func (f *ServiceFactory) BackOfficeService() *BackOfficeService {
	f.backOfficeOnce.Do(func() {
		f.backOffice = NewBackOfficeService(
			f.repos.Customers,
			f.repos.Devices,
			f.repos.Packages,
			f.repos.Payments,
			f.repos.Audits,
		)
	})
	return f.backOffice
}
