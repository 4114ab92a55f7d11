package handler

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"synapse-service/internal/config"
	"synapse-service/internal/service"
	"synapse-service/internal/util"
	"synapse-service/internal/validation"
)

// Envelope error codes returned to devices.
const (
	codeInvalidCredentials = 1
	codeDeviceExists       = 2
	codeInvalidInput       = 3
)

// SynapseHandler serves the public device endpoints. Every outcome, including failures,
// is an HTTP 200 with a synapse envelope; only infrastructure errors fall through to the
// exception strategy.
type SynapseHandler struct {
	auth    *service.AuthService
	render  *Renderer
	session config.SessionConfig
	logger  *zap.Logger
}

func NewSynapseHandler(auth *service.AuthService, render *Renderer, session config.SessionConfig, logger *zap.Logger) *SynapseHandler {
	return &SynapseHandler{auth: auth, render: render, session: session, logger: logger}
}

type envelope struct {
	Synapse interface{} `json:"synapse"`
}

type errorPayload struct {
	Error    int               `json:"error"`
	Messages validation.Errors `json:"messages,omitempty"`
}

type loginPayload struct {
	Session       string `json:"session"`
	ContentLength int    `json:"contentlength"`
	UserStatus    string `json:"userstatus"`
}

type devicePayload struct {
	DeviceID    string `json:"deviceId"`
	ReportingID string `json:"reportingId"`
}

// Login handles GET /login
func (h *SynapseHandler) Login(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	in := validation.LoginFromQuery(r.URL.Query())

	meta := h.meta(r)
	if c, err := r.Cookie(h.session.CookieName); err == nil {
		meta.SessionID = c.Value
	}

	res, err := h.auth.Login(r.Context(), in, meta)
	if err != nil {
		h.respondWithError(w, r, err, in.Verbose())
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.session.CookieName,
		Value:    res.SessionID,
		Path:     "/",
		MaxAge:   int(h.session.TTL.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	h.render.JSON(w, r, http.StatusOK, envelope{Synapse: loginPayload{
		Session:       res.SessionID,
		ContentLength: 0,
		UserStatus:    "active",
	}})
	h.logger.Debug("Login served", util.Duration("duration", time.Since(start)))
}

// AuthSession handles GET /authsession
func (h *SynapseHandler) AuthSession(w http.ResponseWriter, r *http.Request) {
	in := validation.AuthSessionFromQuery(r.URL.Query())

	res, err := h.auth.AuthSession(r.Context(), in, h.meta(r))
	if err != nil {
		h.respondWithError(w, r, err, in.Verbose())
		return
	}
	h.render.JSON(w, r, http.StatusOK, envelope{Synapse: devicePayload{DeviceID: res.DeviceID, ReportingID: res.ReportingID}})
}

// RegisterDevice handles GET /registerDevice
func (h *SynapseHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	in := validation.RegisterDeviceFromQuery(r.URL.Query())

	res, err := h.auth.RegisterDevice(r.Context(), in, h.meta(r))
	if err != nil {
		h.respondWithError(w, r, err, in.Verbose())
		return
	}
	h.render.JSON(w, r, http.StatusOK, envelope{Synapse: devicePayload{DeviceID: res.DeviceID, ReportingID: res.ReportingID}})
}

func (h *SynapseHandler) meta(r *http.Request) service.RequestMeta {
	return service.RequestMeta{RemoteIP: remoteIP(r)}
}

func (h *SynapseHandler) respondWithError(w http.ResponseWriter, r *http.Request, err error, verbose bool) {
	code := getEnvelopeCode(err)
	if code == 0 {
		h.render.Exception(w, r, err)
		return
	}

	payload := errorPayload{Error: code}
	if code == codeInvalidInput && verbose {
		payload.Messages = validation.Messages(err)
	}
	h.render.JSON(w, r, http.StatusOK, envelope{Synapse: payload})
}

func getEnvelopeCode(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return codeInvalidInput
	case errors.Is(err, service.ErrInvalidCredentials):
		return codeInvalidCredentials
	case errors.Is(err, service.ErrDeviceExists):
		return codeDeviceExists
	default:
		return 0
	}
}
