package sqldb

import (
	"context"
	"fmt"

	"synapse-service/internal/models"
)

var customerColumns = []string{
	"customer_company_id", "customer_title", "customer_first_name", "customer_last_name",
	"customer_dob", "customer_username", "customer_email", "customer_password",
	"customer_address_1", "customer_address_2", "customer_address_3", "customer_city",
	"customer_postcode", "customer_country", "customer_mobile", "customer_pin",
	"customer_parental_pin", "customer_activation_code", "customer_created",
	"customer_affiliate_id", "customer_modby", "customer_moddate",
}

// authenticateByDeviceQuery keeps the device match in the ON clause so a customer
// without the requested device still yields one row with NULL device columns.
const authenticateByDeviceQuery = `SELECT c.customer_id, c.customer_company_id, c.customer_activation_code,
       d.device_id, d.device_vutv_device_id
  FROM customer c
  LEFT JOIN device d ON d.device_cust_id = c.customer_id AND d.device_vutv_device_id = ?
 WHERE c.customer_pin = ? AND c.customer_activation_code = ? AND c.customer_company_id = ?`

type CustomerTable struct {
	table
}

func NewCustomerTable(client *SQLClient) *CustomerTable {
	return &CustomerTable{table{client: client, name: "customer", pk: "customer_id", columns: customerColumns}}
}

func (t *CustomerTable) GetByID(ctx context.Context, id int64) (*models.Customer, error) {
	var c models.Customer
	if err := t.getByID(ctx, &c, id); err != nil {
		return nil, err
	}
	return &c, nil
}

func (t *CustomerTable) GetByActivationCode(ctx context.Context, activationCode string) (*models.Customer, error) {
	var c models.Customer
	if err := t.fetchRow(ctx, &c, "customer_activation_code = ?", activationCode); err != nil {
		return nil, err
	}
	return &c, nil
}

// Authenticate matches the identity column (activation code) and credential column (pin)
// within a company.
func (t *CustomerTable) Authenticate(ctx context.Context, activationCode, pin string, companyID int64) (*models.Customer, error) {
	var c models.Customer
	err := t.fetchRow(ctx, &c,
		"customer_activation_code = ? AND customer_pin = ? AND customer_company_id = ?",
		activationCode, pin, companyID)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (t *CustomerTable) AuthenticateByDevice(ctx context.Context, activationCode, pin, deviceExternalID string, companyID int64) ([]models.CustomerDeviceRow, error) {
	rows := []models.CustomerDeviceRow{}
	query := t.client.DB.Rebind(authenticateByDeviceQuery)
	if err := t.client.DB.SelectContext(ctx, &rows, query, deviceExternalID, pin, activationCode, companyID); err != nil {
		return nil, fmt.Errorf("failed to authenticate customer by device: %w", err)
	}
	return rows, nil
}

// Save inserts a new customer when ID is zero, otherwise updates it. ID is set on insert.
func (t *CustomerTable) Save(ctx context.Context, c *models.Customer) (int64, error) {
	id, err := t.save(ctx, c.ID, []interface{}{
		c.CompanyID, c.Title, c.FirstName, c.LastName,
		c.DOB, c.Username, c.Email, c.Password,
		c.Address1, c.Address2, c.Address3, c.City,
		c.Postcode, c.Country, c.Mobile, c.Pin,
		c.ParentalPin, c.ActivationCode, c.Created,
		c.AffiliateID, c.ModBy, c.ModDate,
	})
	if err != nil {
		return 0, err
	}
	c.ID = id
	return id, nil
}
