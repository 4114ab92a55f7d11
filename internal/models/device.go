package models

import "time"

// ActivationLayout is the timestamp layout written to device_activation.
const ActivationLayout = "2006-01-02 15:04:05"

type Device struct {
	ID         int64     `db:"device_id" json:"device_id"`
	Name       string    `db:"device_name" json:"device_name"`
	ExternalID string    `db:"device_vutv_device_id" json:"device_vutv_device_id"`
	CustomerID int64     `db:"device_cust_id" json:"device_cust_id"`
	Active     bool      `db:"device_active" json:"device_active"`
	Activation time.Time `db:"device_activation" json:"device_activation"`
}
