package sqldb

import (
	"context"

	"synapse-service/internal/models"
)

// CustomerRepository defines the customer table operations
type CustomerRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Customer, error)
	GetByActivationCode(ctx context.Context, activationCode string) (*models.Customer, error)
	Authenticate(ctx context.Context, activationCode, pin string, companyID int64) (*models.Customer, error)
	AuthenticateByDevice(ctx context.Context, activationCode, pin, deviceExternalID string, companyID int64) ([]models.CustomerDeviceRow, error)
	Save(ctx context.Context, customer *models.Customer) (int64, error)
}

// DeviceRepository defines the device table operations
type DeviceRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Device, error)
	GetByCustomerID(ctx context.Context, customerID int64) ([]models.Device, error)
	Save(ctx context.Context, device *models.Device) (int64, error)
}

// Read-only back-office tables

type PackageRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Package, error)
	FetchAll(ctx context.Context) ([]models.Package, error)
}

type PaymentRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Payment, error)
	FetchAll(ctx context.Context) ([]models.Payment, error)
}

type AuditRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Audit, error)
	FetchAll(ctx context.Context) ([]models.Audit, error)
}
