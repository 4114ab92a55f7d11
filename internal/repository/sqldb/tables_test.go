package sqldb

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synapse-service/internal/models"
)

func newMockClient(t *testing.T, driver string) (*SQLClient, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLClientFromDB("customers", sqlx.NewDb(db, driver)), mock
}

func TestCustomerTable_AuthenticateByDevice(t *testing.T) {
	client, mock := newMockClient(t, "postgres")
	customers := NewCustomerTable(client)

	cols := []string{"customer_id", "customer_company_id", "customer_activation_code", "device_id", "device_vutv_device_id"}
	mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN device d ON d.device_cust_id = c.customer_id AND d.device_vutv_device_id = $1")).
		WithArgs("abc123", "1234", "1000", int64(5)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(int64(1), int64(5), "1000", nil, nil))

	rows, err := customers.AuthenticateByDevice(context.Background(), "1000", "1234", "abc123", 5)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].CustomerID)
	assert.Nil(t, rows[0].DeviceID)
	assert.Nil(t, rows[0].DeviceExternalID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomerTable_AuthenticateByDeviceNoMatch(t *testing.T) {
	client, mock := newMockClient(t, "mysql")
	customers := NewCustomerTable(client)

	mock.ExpectQuery(regexp.QuoteMeta("d.device_vutv_device_id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"customer_id"}))

	rows, err := customers.AuthenticateByDevice(context.Background(), "1000", "9999", "abc123", 5)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCustomerTable_Authenticate(t *testing.T) {
	client, mock := newMockClient(t, "postgres")
	customers := NewCustomerTable(client)

	mock.ExpectQuery(regexp.QuoteMeta("FROM customer WHERE customer_activation_code = $1 AND customer_pin = $2 AND customer_company_id = $3 LIMIT 1")).
		WithArgs("1000", "1234", int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"customer_id", "customer_company_id", "customer_pin", "customer_activation_code"}).
			AddRow(int64(9), int64(5), "1234", "1000"))

	c, err := customers.Authenticate(context.Background(), "1000", "1234", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(9), c.ID)
	assert.Equal(t, "1000", c.ActivationCode)
}

func TestCustomerTable_GetByIDNotFound(t *testing.T) {
	client, mock := newMockClient(t, "postgres")
	customers := NewCustomerTable(client)

	mock.ExpectQuery(regexp.QuoteMeta("FROM customer WHERE customer_id = $1 LIMIT 1")).
		WithArgs(int64(404)).
		WillReturnError(sql.ErrNoRows)

	_, err := customers.GetByID(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeviceTable_SaveInsertPostgres(t *testing.T) {
	client, mock := newMockClient(t, "postgres")
	devices := NewDeviceTable(client)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO device (device_name, device_vutv_device_id, device_cust_id, device_active, device_activation) VALUES ($1, $2, $3, $4, $5) RETURNING device_id")).
		WithArgs("test", "abc123", int64(1), true, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"device_id"}).AddRow(int64(42)))

	d := &models.Device{Name: "test", ExternalID: "abc123", CustomerID: 1, Active: true, Activation: time.Now()}
	id, err := devices.Save(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, int64(42), d.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeviceTable_SaveInsertSQLite(t *testing.T) {
	client, mock := newMockClient(t, "sqlite3")
	devices := NewDeviceTable(client)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO device (device_name, device_vutv_device_id, device_cust_id, device_active, device_activation) VALUES (?, ?, ?, ?, ?)")).
		WillReturnResult(sqlmock.NewResult(7, 1))

	id, err := devices.Save(context.Background(), &models.Device{Name: "test", ExternalID: "x1", CustomerID: 1, Active: true})
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
}

func TestDeviceTable_SaveUpdateMissingRow(t *testing.T) {
	client, mock := newMockClient(t, "postgres")
	devices := NewDeviceTable(client)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE device SET device_name = $1")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM device WHERE device_id = $1")).
		WithArgs(int64(13)).
		WillReturnError(sql.ErrNoRows)

	_, err := devices.Save(context.Background(), &models.Device{ID: 13, Name: "test"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeviceTable_GetByCustomerID(t *testing.T) {
	client, mock := newMockClient(t, "postgres")
	devices := NewDeviceTable(client)

	now := time.Now()
	cols := []string{"device_id", "device_name", "device_vutv_device_id", "device_cust_id", "device_active", "device_activation"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM device WHERE device_cust_id = $1 ORDER BY device_id")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(int64(1), "test", "abc", int64(1), true, now).
			AddRow(int64(2), "tv", "def", int64(1), false, now))

	list, err := devices.GetByCustomerID(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "def", list[1].ExternalID)
	assert.False(t, list[1].Active)
}

func TestPackageTable_FetchAll(t *testing.T) {
	client, mock := newMockClient(t, "mysql")
	packages := NewPackageTable(client)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT package_id, package_name, package_description, package_price, package_active FROM package ORDER BY package_id")).
		WillReturnRows(sqlmock.NewRows([]string{"package_id", "package_name", "package_description", "package_price", "package_active"}).
			AddRow(int64(1), "Basic", nil, 9.99, true))

	list, err := packages.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Basic", list[0].Name)
	assert.Nil(t, list[0].Description)
}
