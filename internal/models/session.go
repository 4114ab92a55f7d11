package models

import "time"

// Session is the server-side bag written on a successful login.
type Session struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"userid"`
	CompanyID string    `json:"companyid"`
	DeviceID  string    `json:"deviceid"`
	CreatedAt time.Time `json:"created_at"`
}
