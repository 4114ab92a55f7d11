package models

import "time"

// Customer is a row of the customer table. Credentials never leave the service in JSON.
type Customer struct {
	ID             int64      `db:"customer_id" json:"customer_id"`
	CompanyID      int64      `db:"customer_company_id" json:"customer_company_id"`
	Title          *string    `db:"customer_title" json:"customer_title,omitempty"`
	FirstName      *string    `db:"customer_first_name" json:"customer_first_name,omitempty"`
	LastName       *string    `db:"customer_last_name" json:"customer_last_name,omitempty"`
	DOB            *time.Time `db:"customer_dob" json:"customer_dob,omitempty"`
	Username       *string    `db:"customer_username" json:"customer_username,omitempty"`
	Email          *string    `db:"customer_email" json:"customer_email,omitempty"`
	Password       *string    `db:"customer_password" json:"-"`
	Address1       *string    `db:"customer_address_1" json:"customer_address_1,omitempty"`
	Address2       *string    `db:"customer_address_2" json:"customer_address_2,omitempty"`
	Address3       *string    `db:"customer_address_3" json:"customer_address_3,omitempty"`
	City           *string    `db:"customer_city" json:"customer_city,omitempty"`
	Postcode       *string    `db:"customer_postcode" json:"customer_postcode,omitempty"`
	Country        *string    `db:"customer_country" json:"customer_country,omitempty"`
	Mobile         *string    `db:"customer_mobile" json:"customer_mobile,omitempty"`
	Pin            string     `db:"customer_pin" json:"-"`
	ParentalPin    *string    `db:"customer_parental_pin" json:"-"`
	ActivationCode string     `db:"customer_activation_code" json:"customer_activation_code"`
	Created        *time.Time `db:"customer_created" json:"customer_created,omitempty"`
	AffiliateID    *int64     `db:"customer_affiliate_id" json:"customer_affiliate_id,omitempty"`
	ModBy          *string    `db:"customer_modby" json:"customer_modby,omitempty"`
	ModDate        *time.Time `db:"customer_moddate" json:"customer_moddate,omitempty"`
}

// CustomerDeviceRow is one row of the customer LEFT JOIN device authentication query.
// Device columns are nil when the customer has no device with the requested external id.
type CustomerDeviceRow struct {
	CustomerID       int64   `db:"customer_id"`
	CompanyID        int64   `db:"customer_company_id"`
	ActivationCode   string  `db:"customer_activation_code"`
	DeviceID         *int64  `db:"device_id"`
	DeviceExternalID *string `db:"device_vutv_device_id"`
}
