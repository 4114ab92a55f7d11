package service

import (
	"context"
	"errors"

	"synapse-service/internal/models"
	"synapse-service/internal/repository/sqldb"
)

var ErrNotFound = errors.New("not found")

// BackOfficeService serves the read-only ACL-protected endpoints.
type BackOfficeService struct {
	customers sqldb.CustomerRepository
	devices   sqldb.DeviceRepository
	packages  sqldb.PackageRepository
	payments  sqldb.PaymentRepository
	audits    sqldb.AuditRepository
}

func NewBackOfficeService(
	customers sqldb.CustomerRepository,
	devices sqldb.DeviceRepository,
	packages sqldb.PackageRepository,
	payments sqldb.PaymentRepository,
	audits sqldb.AuditRepository,
) *BackOfficeService {
	return &BackOfficeService{
		customers: customers,
		devices:   devices,
		packages:  packages,
		payments:  payments,
		audits:    audits,
	}
}

func notFound(err error) error {
	if errors.Is(err, sqldb.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *BackOfficeService) Customer(ctx context.Context, id int64) (*models.Customer, error) {
	c, err := s.customers.GetByID(ctx, id)
	return c, notFound(err)
}

// CustomerDevices fails with ErrNotFound for an unknown customer rather than
// returning an empty list.
func (s *BackOfficeService) CustomerDevices(ctx context.Context, customerID int64) ([]models.Device, error) {
	if _, err := s.customers.GetByID(ctx, customerID); err != nil {
		return nil, notFound(err)
	}
	return s.devices.GetByCustomerID(ctx, customerID)
}

func (s *BackOfficeService) Device(ctx context.Context, id int64) (*models.Device, error) {
	d, err := s.devices.GetByID(ctx, id)
	return d, notFound(err)
}

func (s *BackOfficeService) Packages(ctx context.Context) ([]models.Package, error) {
	return s.packages.FetchAll(ctx)
}

func (s *BackOfficeService) Package(ctx context.Context, id int64) (*models.Package, error) {
	p, err := s.packages.GetByID(ctx, id)
	return p, notFound(err)
}

func (s *BackOfficeService) Payment(ctx context.Context, id int64) (*models.Payment, error) {
	p, err := s.payments.GetByID(ctx, id)
	return p, notFound(err)
}

func (s *BackOfficeService) Audit(ctx context.Context, id int64) (*models.Audit, error) {
	a, err := s.audits.GetByID(ctx, id)
	return a, notFound(err)
}

func (s *BackOfficeService) Payments(ctx context.Context) ([]models.Payment, error) {
	return s.payments.FetchAll(ctx)
}

func (s *BackOfficeService) Audits(ctx context.Context) ([]models.Audit, error) {
	return s.audits.FetchAll(ctx)
}
