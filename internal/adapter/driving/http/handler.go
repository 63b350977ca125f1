// Package httphandler is the HTTP driving adapter: a JSON API consumed by the
// browser UI, covering the session lifecycle, the loan application wizard and
// the read-only portfolio views.
package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/jcalloway/lenddesk/internal/application"
	"github.com/jcalloway/lenddesk/internal/domain/model"
	"github.com/jcalloway/lenddesk/internal/domain/port/driven"
)

// Handler serves the REST API backed by the application services.
type Handler struct {
	session   *application.SessionService
	workflow  *application.WorkflowService
	portfolio *application.PortfolioService
	logger    *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	session *application.SessionService,
	workflow *application.WorkflowService,
	portfolio *application.PortfolioService,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		session:   session,
		workflow:  workflow,
		portfolio: portfolio,
		logger:    logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware. Everything past login, registration
// and health sits behind the session gate.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/session", h.Login)
	mux.HandleFunc("DELETE /api/v1/session", h.Logout)
	mux.HandleFunc("GET /api/v1/session", h.SessionStatus)
	mux.HandleFunc("POST /api/v1/register", h.Register)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	protected := http.NewServeMux()
	protected.HandleFunc("GET /api/v1/profile", h.Profile)
	protected.HandleFunc("PUT /api/v1/profile", h.UpdateProfile)
	protected.HandleFunc("PUT /api/v1/settings", h.UpdateSettings)

	protected.HandleFunc("POST /api/v1/wizard", h.StartWizard)
	protected.HandleFunc("GET /api/v1/wizard", h.WizardState)
	protected.HandleFunc("DELETE /api/v1/wizard", h.AbandonWizard)
	protected.HandleFunc("POST /api/v1/wizard/initial-info", h.SubmitInitialInfo)
	protected.HandleFunc("POST /api/v1/wizard/business-info", h.SubmitBusinessInfo)
	protected.HandleFunc("POST /api/v1/wizard/financial-info", h.SubmitFinancialInfo)
	protected.HandleFunc("POST /api/v1/wizard/loan-details", h.SubmitLoanDetails)
	protected.HandleFunc("POST /api/v1/wizard/accept", h.AcceptOffer)
	protected.HandleFunc("POST /api/v1/wizard/decline", h.DeclineOffer)

	protected.HandleFunc("GET /api/v1/applications", h.ListApplications)
	protected.HandleFunc("GET /api/v1/applications/{id}", h.GetApplication)
	protected.HandleFunc("GET /api/v1/loans", h.ListLoans)
	protected.HandleFunc("GET /api/v1/loans/{id}", h.GetLoan)
	protected.HandleFunc("GET /api/v1/loans/{id}/payments", h.ListLoanPayments)
	protected.HandleFunc("GET /api/v1/payments", h.ListPayments)

	mux.Handle("/api/v1/", requireSession(h.session, protected))

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Login exchanges an email/password pair for a session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	identity, err := h.session.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, driven.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, SessionResponse{
		Authenticated: true,
		Subject:       identity.Subject,
		Email:         identity.Email,
	})
}

// Logout discards the session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.session.Deauthenticate(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// SessionStatus reports whether a session is live and who it belongs to.
func (h *Handler) SessionStatus(w http.ResponseWriter, _ *http.Request) {
	identity, ok := h.session.CurrentIdentity()
	if !ok {
		writeJSON(w, http.StatusOK, SessionResponse{Authenticated: false})
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{
		Authenticated: true,
		Subject:       identity.Subject,
		Email:         identity.Email,
	})
}

// Register creates a new account. The browser logs in separately afterwards.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	err := h.session.Register(r.Context(), model.Registration{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

// Profile returns the account profile.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.session.Profile(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ProfileResponse{
		ID:        profile.ID,
		Email:     profile.Email,
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
		Phone:     profile.Phone,
	})
}

// UpdateProfile updates the account profile.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req ProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.session.UpdateProfile(r.Context(), model.UserProfile{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateSettings updates the account's notification settings.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.session.UpdateSettings(r.Context(), model.UserSettings{
		EmailNotifications: req.EmailNotifications,
		PaymentReminders:   req.PaymentReminders,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StartWizard opens a fresh application draft at step 1.
func (h *Handler) StartWizard(w http.ResponseWriter, _ *http.Request) {
	view := h.workflow.Begin()
	writeJSON(w, http.StatusCreated, toDraftResponse(view))
}

// WizardState returns the current draft snapshot.
func (h *Handler) WizardState(w http.ResponseWriter, _ *http.Request) {
	view, err := h.workflow.Snapshot()
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDraftResponse(view))
}

// AbandonWizard discards the draft without touching the server.
func (h *Handler) AbandonWizard(w http.ResponseWriter, _ *http.Request) {
	h.workflow.Abandon()
	w.WriteHeader(http.StatusNoContent)
}

// SubmitInitialInfo runs the wizard's first transition.
func (h *Handler) SubmitInitialInfo(w http.ResponseWriter, r *http.Request) {
	var req InitialInfoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	view, err := h.workflow.SubmitInitialInfo(r.Context(), model.InitialInfo{
		BusinessName: req.BusinessName,
		TaxID:        req.TaxID,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDraftResponse(view))
}

// SubmitBusinessInfo runs the wizard's business profile transition.
func (h *Handler) SubmitBusinessInfo(w http.ResponseWriter, r *http.Request) {
	var req BusinessInfoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	view, err := h.workflow.SubmitBusinessInfo(r.Context(), model.BusinessInfo{
		BusinessType:  req.BusinessType,
		Industry:      req.Industry,
		BusinessYears: req.BusinessYears,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDraftResponse(view))
}

// SubmitFinancialInfo runs the wizard's financial profile transition.
func (h *Handler) SubmitFinancialInfo(w http.ResponseWriter, r *http.Request) {
	var req FinancialInfoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	view, err := h.workflow.SubmitFinancialInfo(r.Context(), model.FinancialInfo{
		AnnualRevenue: req.AnnualRevenue,
		MonthlyProfit: req.MonthlyProfit,
		BankAccount: model.BankReference{
			BankName:      req.BankName,
			AccountNumber: req.AccountNumber,
		},
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDraftResponse(view))
}

// SubmitLoanDetails runs the wizard's final input transition: the loan request
// fields are saved and the application is submitted for a decision.
func (h *Handler) SubmitLoanDetails(w http.ResponseWriter, r *http.Request) {
	var req LoanDetailsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	view, err := h.workflow.SubmitLoanDetails(r.Context(), model.LoanDetails{
		LoanAmount:  req.LoanAmount,
		LoanPurpose: req.LoanPurpose,
		TermMonths:  req.TermMonths,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDraftResponse(view))
}

// AcceptOffer commits an approved offer into a funded loan.
func (h *Handler) AcceptOffer(w http.ResponseWriter, r *http.Request) {
	loan, err := h.workflow.AcceptOffer(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLoanResponse(loan))
}

// DeclineOffer walks away from an approved offer.
func (h *Handler) DeclineOffer(w http.ResponseWriter, r *http.Request) {
	if err := h.workflow.DeclineOffer(r.Context()); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListApplications returns the user's loan applications.
func (h *Handler) ListApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := h.portfolio.Applications(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	resp := make([]ApplicationResponse, 0, len(apps))
	for _, app := range apps {
		resp = append(resp, toApplicationResponse(app))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetApplication returns one application by identifier.
func (h *Handler) GetApplication(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid application id")
		return
	}

	app, err := h.portfolio.Application(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if app == nil {
		writeError(w, http.StatusNotFound, "application not found")
		return
	}
	writeJSON(w, http.StatusOK, toApplicationResponse(*app))
}

// ListLoans returns the user's funded loans.
func (h *Handler) ListLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.portfolio.Loans(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	resp := make([]LoanResponse, 0, len(loans))
	for _, loan := range loans {
		resp = append(resp, toLoanResponse(loan))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetLoan returns one loan by identifier.
func (h *Handler) GetLoan(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid loan id")
		return
	}

	loan, err := h.portfolio.Loan(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if loan == nil {
		writeError(w, http.StatusNotFound, "loan not found")
		return
	}
	writeJSON(w, http.StatusOK, toLoanResponse(*loan))
}

// ListLoanPayments returns the payment schedule of one loan.
func (h *Handler) ListLoanPayments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid loan id")
		return
	}

	payments, err := h.portfolio.LoanPayments(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	resp := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		resp = append(resp, toPaymentResponse(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListPayments returns scheduled payments across all loans.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.portfolio.Payments(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	resp := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		resp = append(resp, toPaymentResponse(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// writeServiceError maps application and gateway errors onto HTTP responses.
// Messages originating from the lending API are sanitized before they are
// echoed to the browser.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var vErr *application.ValidationError
	var authErr *driven.AuthError
	var apiErr *driven.APIError
	var transportErr *driven.TransportError

	switch {
	case errors.As(err, &vErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:  "validation failed",
			Fields: vErr.Fields,
		})
	case errors.As(err, &authErr):
		// The session is already evicted; tell the browser to go log in again.
		writeAuthRequired(w, sanitize(authErr.Message))
	case errors.Is(err, application.ErrNoDraft):
		writeError(w, http.StatusNotFound, "no loan application in progress")
	case errors.Is(err, application.ErrWrongStep),
		errors.Is(err, application.ErrDraftClosed),
		errors.Is(err, application.ErrNotApproved):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, application.ErrTransitionInFlight):
		writeError(w, http.StatusConflict, "a step submission is already in flight")
	case errors.As(err, &apiErr):
		writeError(w, http.StatusBadGateway, sanitize(apiErr.Message))
	case errors.As(err, &transportErr):
		writeError(w, http.StatusBadGateway, "lending api unreachable")
	case errors.Is(err, application.ErrNoClient):
		writeError(w, http.StatusServiceUnavailable, "lending api client not configured")
	default:
		h.logger.Error("unhandled service error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}
