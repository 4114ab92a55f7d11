package service

import (
	"context"
	"sync"

	"synapse-service/internal/events"
	"synapse-service/internal/models"
	"synapse-service/internal/repository/sqldb"
)

type fakeCustomers struct {
	customers []models.Customer
	devices   *fakeDevices
	// extraRows duplicates join rows to emulate more than one match
	extraRows int
	err       error
}

func (f *fakeCustomers) GetByID(_ context.Context, id int64) (*models.Customer, error) {
	for _, c := range f.customers {
		if c.ID == id {
			c := c
			return &c, nil
		}
	}
	return nil, sqldb.ErrNotFound
}

func (f *fakeCustomers) GetByActivationCode(_ context.Context, code string) (*models.Customer, error) {
	for _, c := range f.customers {
		if c.ActivationCode == code {
			c := c
			return &c, nil
		}
	}
	return nil, sqldb.ErrNotFound
}

func (f *fakeCustomers) Authenticate(_ context.Context, code, pin string, companyID int64) (*models.Customer, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, c := range f.customers {
		if c.ActivationCode == code && c.Pin == pin && c.CompanyID == companyID {
			c := c
			return &c, nil
		}
	}
	return nil, sqldb.ErrNotFound
}

func (f *fakeCustomers) AuthenticateByDevice(ctx context.Context, code, pin, deviceID string, companyID int64) ([]models.CustomerDeviceRow, error) {
	if f.err != nil {
		return nil, f.err
	}
	c, err := f.Authenticate(ctx, code, pin, companyID)
	if err != nil {
		return []models.CustomerDeviceRow{}, nil
	}
	row := models.CustomerDeviceRow{CustomerID: c.ID, CompanyID: c.CompanyID, ActivationCode: c.ActivationCode}
	if d := f.devices.byExternal(c.ID, deviceID); d != nil {
		row.DeviceID, row.DeviceExternalID = &d.ID, &d.ExternalID
	}
	rows := []models.CustomerDeviceRow{row}
	for i := 0; i < f.extraRows; i++ {
		rows = append(rows, row)
	}
	return rows, nil
}

func (f *fakeCustomers) Save(_ context.Context, c *models.Customer) (int64, error) {
	c.ID = int64(len(f.customers) + 1)
	f.customers = append(f.customers, *c)
	return c.ID, nil
}

type fakeDevices struct {
	mu      sync.Mutex
	devices []models.Device
}

func (f *fakeDevices) byExternal(customerID int64, externalID string) *models.Device {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.devices {
		if f.devices[i].CustomerID == customerID && f.devices[i].ExternalID == externalID {
			d := f.devices[i]
			return &d
		}
	}
	return nil
}

func (f *fakeDevices) GetByID(_ context.Context, id int64) (*models.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.devices {
		if d.ID == id {
			d := d
			return &d, nil
		}
	}
	return nil, sqldb.ErrNotFound
}

func (f *fakeDevices) GetByCustomerID(_ context.Context, customerID int64) ([]models.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Device{}
	for _, d := range f.devices {
		if d.CustomerID == customerID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDevices) Save(_ context.Context, d *models.Device) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d.ID = int64(len(f.devices) + 1)
	f.devices = append(f.devices, *d)
	return d.ID, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, evt events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}
