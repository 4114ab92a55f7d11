package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"synapse-service/internal/config"
	"synapse-service/internal/events"
	"synapse-service/internal/metrics"
	"synapse-service/internal/models"
	"synapse-service/internal/repository/redis"
	"synapse-service/internal/repository/sqldb"
	"synapse-service/internal/validation"
)

// Envelope error codes map onto these.
var (
	ErrInvalidInput       = errors.New("invalid input")              // 3
	ErrInvalidCredentials = errors.New("invalid credentials")        // 1
	ErrDeviceExists       = errors.New("device already registered") // 2
)

const (
	flowLogin       = "login"
	flowAuthSession = "authsession"
	flowRegister    = "register"
)

// RequestMeta carries transport details the flows record but do not authenticate with.
type RequestMeta struct {
	RemoteIP  string
	SessionID string // session presented by the caller, destroyed on login
}

type LoginResult struct {
	SessionID string
}

type ProvisionResult struct {
	DeviceID    string
	ReportingID string
}

// AuthService implements the device login and provisioning flows.
type AuthService struct {
	customers sqldb.CustomerRepository
	devices   sqldb.DeviceRepository
	sessions  redis.SessionStore
	publisher events.Publisher
	sessCfg   config.SessionConfig
	authCfg   config.AuthConfig
	logger    *zap.Logger
	now       func() time.Time
}

func NewAuthService(
	customers sqldb.CustomerRepository,
	devices sqldb.DeviceRepository,
	sessions redis.SessionStore,
	publisher events.Publisher,
	sessCfg config.SessionConfig,
	authCfg config.AuthConfig,
	logger *zap.Logger,
) *AuthService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		customers: customers,
		devices:   devices,
		sessions:  sessions,
		publisher: publisher,
		sessCfg:   sessCfg,
		authCfg:   authCfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Login authenticates by activation code, pin and company, then opens a fresh session.
func (s *AuthService) Login(ctx context.Context, in *validation.LoginInput, meta RequestMeta) (*LoginResult, error) {
	if err := validation.Validate(in); err != nil {
		s.record(ctx, flowLogin, events.LoginInvalid, "invalid", meta, in.UserID, in.CompanyID, in.DeviceID, err.Error())
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	_, err := s.customers.Authenticate(ctx, in.UserID, in.Pin, in.Company())
	if errors.Is(err, sqldb.ErrNotFound) {
		s.record(ctx, flowLogin, events.LoginFailed, "failure", meta, in.UserID, in.CompanyID, in.DeviceID, "")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate customer: %w", err)
	}

	sessionID, err := s.sessions.Regenerate(ctx, meta.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to regenerate session: %w", err)
	}

	if err := s.sessions.SetIdentity(ctx, sessionID, in.UserID, s.sessCfg.TTL); err != nil {
		return nil, err
	}

	session := &models.Session{
		SessionID: sessionID,
		UserID:    in.UserID,
		CompanyID: in.CompanyID,
		DeviceID:  in.DeviceID,
		CreatedAt: s.now().UTC(),
	}
	if err := s.sessions.Save(ctx, session, s.sessCfg.TTL); err != nil {
		return nil, err
	}

	metrics.RecordSessionCreated()
	s.logger.Info("Customer logged in",
		zap.String("user_id", in.UserID),
		zap.String("company_id", in.CompanyID),
		zap.String("device_id", in.DeviceID))

	evtMeta := meta
	evtMeta.SessionID = sessionID
	s.record(ctx, flowLogin, events.LoginSucceeded, "success", evtMeta, in.UserID, in.CompanyID, in.DeviceID, "")

	return &LoginResult{SessionID: sessionID}, nil
}

// AuthSession authenticates against the customer/device join and provisions the
// customer's first device.
func (s *AuthService) AuthSession(ctx context.Context, in *validation.AuthSessionInput, meta RequestMeta) (*ProvisionResult, error) {
	meta.SessionID = in.Session

	if err := validation.Validate(in); err != nil {
		s.record(ctx, flowAuthSession, events.AuthSessionInvalid, "invalid", meta, in.UserID, in.CompanyID, in.DeviceID, err.Error())
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	rows, err := s.customers.AuthenticateByDevice(ctx, in.UserID, in.Pin, in.DeviceID, in.Company())
	if err != nil {
		return nil, err
	}

	if !s.rowsAuthenticate(len(rows)) {
		s.record(ctx, flowAuthSession, events.AuthSessionFailed, "failure", meta, in.UserID, in.CompanyID, in.DeviceID, "User ID not found")
		return nil, ErrInvalidCredentials
	}

	if s.sessCfg.Verify {
		if err := s.verifySession(ctx, in); err != nil {
			s.record(ctx, flowAuthSession, events.AuthSessionFailed, "failure", meta, in.UserID, in.CompanyID, in.DeviceID, err.Error())
			return nil, err
		}
	}

	result, err := s.provision(ctx, rows[0].CustomerID)
	if errors.Is(err, ErrDeviceExists) {
		s.record(ctx, flowAuthSession, events.AuthSessionDeviceExists, "failure", meta, in.UserID, in.CompanyID, in.DeviceID, "A device is associated to this userid")
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	metrics.RecordDeviceProvisioned(flowAuthSession)
	s.record(ctx, flowAuthSession, events.AuthSessionDeviceProvisioned, "success", meta, in.UserID, in.CompanyID, result.DeviceID, "")
	return result, nil
}

// RegisterDevice authenticates like Login, without a session, and provisions a device.
func (s *AuthService) RegisterDevice(ctx context.Context, in *validation.RegisterDeviceInput, meta RequestMeta) (*ProvisionResult, error) {
	if err := validation.Validate(in); err != nil {
		s.record(ctx, flowRegister, events.RegisterInvalid, "invalid", meta, in.UserID, in.CompanyID, "", err.Error())
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	customer, err := s.customers.Authenticate(ctx, in.UserID, in.Pin, in.Company())
	if errors.Is(err, sqldb.ErrNotFound) {
		s.record(ctx, flowRegister, events.RegisterFailed, "failure", meta, in.UserID, in.CompanyID, "", "")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate customer: %w", err)
	}

	result, err := s.provision(ctx, customer.ID)
	if errors.Is(err, ErrDeviceExists) {
		s.record(ctx, flowRegister, events.RegisterDeviceExists, "failure", meta, in.UserID, in.CompanyID, "", "")
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	metrics.RecordDeviceProvisioned(flowRegister)
	s.record(ctx, flowRegister, events.RegisterDeviceProvisioned, "success", meta, in.UserID, in.CompanyID, result.DeviceID, "")
	return result, nil
}

func (s *AuthService) rowsAuthenticate(count int) bool {
	if s.authCfg.LegacyRowCheck {
		return count > 1
	}
	return count >= 1
}

func (s *AuthService) verifySession(ctx context.Context, in *validation.AuthSessionInput) error {
	session, err := s.sessions.Get(ctx, in.Session)
	if errors.Is(err, redis.ErrSessionNotFound) {
		return fmt.Errorf("%w: unknown session", ErrInvalidCredentials)
	}
	if err != nil {
		return err
	}
	if session.UserID != in.UserID || session.CompanyID != in.CompanyID {
		return fmt.Errorf("%w: session belongs to another customer", ErrInvalidCredentials)
	}
	return nil
}

// provision creates the customer's device unless one already exists.
func (s *AuthService) provision(ctx context.Context, customerID int64) (*ProvisionResult, error) {
	existing, err := s.devices.GetByCustomerID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up devices: %w", err)
	}
	if len(existing) > 0 {
		return nil, ErrDeviceExists
	}

	device := &models.Device{
		Name:       s.authCfg.DeviceName,
		ExternalID: newExternalID(),
		CustomerID: customerID,
		Active:     true,
		Activation: s.now().UTC().Truncate(time.Second),
	}
	if _, err := s.devices.Save(ctx, device); err != nil {
		return nil, fmt.Errorf("failed to create device: %w", err)
	}

	s.logger.Info("Device provisioned",
		zap.Int64("customer_id", customerID),
		zap.Int64("device_id", device.ID),
		zap.String("external_id", device.ExternalID),
		zap.String("activation", device.Activation.Format(models.ActivationLayout)))

	// TODO: allocate real reporting ids once the reporting service exposes them; this is a fixed placeholder.
	return &ProvisionResult{DeviceID: device.ExternalID, ReportingID: s.authCfg.ReportingID}, nil
}

// newExternalID returns 32 lowercase hex characters, alphanumeric like every device id.
func newExternalID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (s *AuthService) record(ctx context.Context, flow, eventType, outcome string, meta RequestMeta, userID, companyID, deviceID, detail string) {
	metrics.RecordAuthOutcome(flow, outcome)

	evt := events.New(eventType, outcome)
	evt.UserID = userID
	evt.CompanyID = companyID
	evt.DeviceID = deviceID
	evt.SessionID = meta.SessionID
	evt.RemoteIP = meta.RemoteIP
	evt.Detail = detail

	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Warn("Failed to publish auth event", zap.String("type", eventType), zap.Error(err))
	}
}
