package models

import "time"

type Package struct {
	ID          int64   `db:"package_id" json:"package_id"`
	Name        string  `db:"package_name" json:"package_name"`
	Description *string `db:"package_description" json:"package_description,omitempty"`
	Price       float64 `db:"package_price" json:"package_price"`
	Active      bool    `db:"package_active" json:"package_active"`
}

type Payment struct {
	ID         int64     `db:"payment_id" json:"payment_id"`
	CustomerID int64     `db:"payment_cust_id" json:"payment_cust_id"`
	PackageID  int64     `db:"payment_package_id" json:"payment_package_id"`
	Amount     float64   `db:"payment_amount" json:"payment_amount"`
	Reference  *string   `db:"payment_reference" json:"payment_reference,omitempty"`
	CreatedOn  time.Time `db:"payment_created_on" json:"payment_created_on"`
}

type Audit struct {
	ID             int64     `db:"audit_id" json:"audit_id"`
	PaymentID      *int64    `db:"audit_payment_id" json:"audit_payment_id,omitempty"`
	CreatedOn      time.Time `db:"audit_created_on" json:"audit_created_on"`
	Message        *string   `db:"audit_message" json:"audit_message,omitempty"`
	MessageComment *string   `db:"audit_message_comment" json:"audit_message_comment,omitempty"`
}
