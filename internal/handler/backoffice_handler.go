package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"synapse-service/internal/service"
	"synapse-service/internal/userapi"
)

// BackOfficeHandler serves the ACL-protected read endpoints.
type BackOfficeHandler struct {
	svc    *service.BackOfficeService
	render *Renderer
	logger *zap.Logger
}

func NewBackOfficeHandler(svc *service.BackOfficeService, render *Renderer, logger *zap.Logger) *BackOfficeHandler {
	return &BackOfficeHandler{svc: svc, render: render, logger: logger}
}

// RegisterRoutes mounts the back-office routes on an already authorized router.
func (h *BackOfficeHandler) RegisterRoutes(r chi.Router) {
	r.Get("/customers/{id}", h.GetCustomer)
	r.Get("/customers/{id}/devices", h.GetCustomerDevices)
	r.Get("/devices/{id}", h.GetDevice)
	r.Get("/packages", h.ListPackages)
	r.Get("/packages/{id}", h.GetPackage)
	r.Get("/payments", h.ListPayments)
	r.Get("/payments/{id}", h.GetPayment)
	r.Get("/audits", h.ListAudits)
	r.Get("/audits/{id}", h.GetAudit)
	r.Get("/identity", h.GetIdentity)
}

func (h *BackOfficeHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	customer, err := h.svc.Customer(r.Context(), id)
	h.respond(w, r, customer, err)
}

func (h *BackOfficeHandler) GetCustomerDevices(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	devices, err := h.svc.CustomerDevices(r.Context(), id)
	h.respond(w, r, devices, err)
}

func (h *BackOfficeHandler) GetDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	device, err := h.svc.Device(r.Context(), id)
	h.respond(w, r, device, err)
}

func (h *BackOfficeHandler) ListPackages(w http.ResponseWriter, r *http.Request) {
	packages, err := h.svc.Packages(r.Context())
	h.respond(w, r, packages, err)
}

func (h *BackOfficeHandler) GetPackage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	pkg, err := h.svc.Package(r.Context(), id)
	h.respond(w, r, pkg, err)
}

func (h *BackOfficeHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.svc.Payments(r.Context())
	h.respond(w, r, payments, err)
}

func (h *BackOfficeHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	payment, err := h.svc.Payment(r.Context(), id)
	h.respond(w, r, payment, err)
}

func (h *BackOfficeHandler) ListAudits(w http.ResponseWriter, r *http.Request) {
	audits, err := h.svc.Audits(r.Context())
	h.respond(w, r, audits, err)
}

func (h *BackOfficeHandler) GetAudit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	audit, err := h.svc.Audit(r.Context(), id)
	h.respond(w, r, audit, err)
}

type identityResponse struct {
	Identity      userapi.Identity                `json:"identity"`
	Organisations map[string]userapi.Organisation `json:"organisations"`
	Applications  map[string]userapi.Application  `json:"applications"`
}

// GetIdentity describes the presented SSO token.
func (h *BackOfficeHandler) GetIdentity(w http.ResponseWriter, r *http.Request) {
	user := userapi.FromContext(r.Context())
	if user == nil {
		h.render.Status(w, r, http.StatusUnauthorized, "no sso token")
		return
	}

	ctx := r.Context()
	identity, err := user.GetIdentity(ctx)
	if err != nil {
		h.render.Exception(w, r, err)
		return
	}
	organisations, err := user.GetOrganisations(ctx)
	if err != nil {
		h.render.Exception(w, r, err)
		return
	}
	applications, err := user.GetApplications(ctx, nil)
	if err != nil {
		h.render.Exception(w, r, err)
		return
	}

	h.render.JSON(w, r, http.StatusOK, identityResponse{
		Identity:      identity,
		Organisations: organisations,
		Applications:  applications,
	})
}

func (h *BackOfficeHandler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.render.Status(w, r, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func (h *BackOfficeHandler) respond(w http.ResponseWriter, r *http.Request, v interface{}, err error) {
	switch {
	case err == nil:
		h.render.JSON(w, r, http.StatusOK, v)
	case errors.Is(err, service.ErrNotFound):
		h.render.Status(w, r, http.StatusNotFound, "not found")
	default:
		h.render.Exception(w, r, err)
	}
}
