package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synapse-service/internal/models"
)

func TestBackOfficeService(t *testing.T) {
	devices := &fakeDevices{devices: []models.Device{{ID: 4, CustomerID: 1, ExternalID: "abc"}}}
	customers := &fakeCustomers{devices: devices, customers: []models.Customer{{ID: 1, ActivationCode: "1000"}}}
	svc := NewBackOfficeService(customers, devices, nil, nil, nil)
	ctx := context.Background()

	c, err := svc.Customer(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "1000", c.ActivationCode)

	_, err = svc.Customer(ctx, 9)
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := svc.CustomerDevices(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.CustomerDevices(ctx, 9)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Device(ctx, 5)
	assert.ErrorIs(t, err, ErrNotFound)
}
