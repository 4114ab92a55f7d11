package sqldb

import (
	"context"

	"synapse-service/internal/models"
)

var deviceColumns = []string{
	"device_name", "device_vutv_device_id", "device_cust_id", "device_active", "device_activation",
}

type DeviceTable struct {
	table
}

func NewDeviceTable(client *SQLClient) *DeviceTable {
	return &DeviceTable{table{client: client, name: "device", pk: "device_id", columns: deviceColumns}}
}

func (t *DeviceTable) GetByID(ctx context.Context, id int64) (*models.Device, error) {
	var d models.Device
	if err := t.getByID(ctx, &d, id); err != nil {
		return nil, err
	}
	return &d, nil
}

// GetByCustomerID returns every device of a customer, empty when there are none.
func (t *DeviceTable) GetByCustomerID(ctx context.Context, customerID int64) ([]models.Device, error) {
	devices := []models.Device{}
	if err := t.fetchAll(ctx, &devices, "device_cust_id = ?", customerID); err != nil {
		return nil, err
	}
	return devices, nil
}

func (t *DeviceTable) Save(ctx context.Context, d *models.Device) (int64, error) {
	id, err := t.save(ctx, d.ID, []interface{}{
		d.Name, d.ExternalID, d.CustomerID, d.Active, d.Activation,
	})
	if err != nil {
		return 0, err
	}
	d.ID = id
	return id, nil
}
