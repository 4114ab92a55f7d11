package validation

import "net/url"

// LoginInput is the filtered query of GET /login.
type LoginInput struct {
	UserID    string `form:"userid" validate:"required,int"`
	Pin       string `form:"pin" validate:"required,int"`
	DeviceID  string `form:"deviceid" validate:"required,alnum"`
	CompanyID string `form:"companyid" validate:"required,int"`
	Verbos    string `form:"verbos" validate:"omitempty,oneof=y n"`
}

func LoginFromQuery(q url.Values) *LoginInput {
	return &LoginInput{
		UserID:    param(q, "userid"),
		Pin:       param(q, "pin"),
		DeviceID:  param(q, "deviceid"),
		CompanyID: param(q, "companyid"),
		Verbos:    param(q, "verbos"),
	}
}

func (in *LoginInput) Company() int64 { return mustInt(in.CompanyID) }
func (in *LoginInput) Verbose() bool  { return in.Verbos == "y" }

// AuthSessionInput is the filtered query of GET /authsession.
type AuthSessionInput struct {
	UserID    string `form:"userid" validate:"required,int"`
	Pin       string `form:"pin" validate:"required,int"`
	DeviceID  string `form:"deviceid" validate:"required,alnum"`
	CompanyID string `form:"companyid" validate:"required,int"`
	Session   string `form:"session" validate:"required,alnum"`
	Verbos    string `form:"verbos" validate:"omitempty,oneof=y n"`
}

func AuthSessionFromQuery(q url.Values) *AuthSessionInput {
	return &AuthSessionInput{
		UserID:    param(q, "userid"),
		Pin:       param(q, "pin"),
		DeviceID:  param(q, "deviceid"),
		CompanyID: param(q, "companyid"),
		Session:   param(q, "session"),
		Verbos:    param(q, "verbos"),
	}
}

func (in *AuthSessionInput) messages() map[string]string {
	return map[string]string{"deviceid.alnum": "Device ID is an alnum"}
}

func (in *AuthSessionInput) Company() int64 { return mustInt(in.CompanyID) }
func (in *AuthSessionInput) Verbose() bool  { return in.Verbos == "y" }

// RegisterDeviceInput is the filtered query of GET /registerDevice.
type RegisterDeviceInput struct {
	UserID    string `form:"userid" validate:"required,int"`
	Pin       string `form:"pin" validate:"required,int"`
	CompanyID string `form:"companyid" validate:"required,int"`
	Verbos    string `form:"verbos" validate:"omitempty,oneof=y n"`
}

func RegisterDeviceFromQuery(q url.Values) *RegisterDeviceInput {
	return &RegisterDeviceInput{
		UserID:    param(q, "userid"),
		Pin:       param(q, "pin"),
		CompanyID: param(q, "companyid"),
		Verbos:    param(q, "verbos"),
	}
}

func (in *RegisterDeviceInput) Company() int64 { return mustInt(in.CompanyID) }
func (in *RegisterDeviceInput) Verbose() bool  { return in.Verbos == "y" }
