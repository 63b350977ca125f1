package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/jcalloway/lenddesk/internal/application"
	"github.com/jcalloway/lenddesk/internal/domain/model"
)

// messagePolicy strips all markup from strings that originate outside this
// process before they are echoed to the browser. Upstream error messages are
// the only untrusted text this API reflects.
var messagePolicy = bluemonday.StrictPolicy()

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeAuthRequired writes the 401 body that sends the browser back to the
// login view.
func writeAuthRequired(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusUnauthorized, errorResponse{Error: message, Redirect: "/login"})
}

// sanitize strips markup from an upstream-supplied message.
func sanitize(message string) string {
	return messagePolicy.Sanitize(message)
}

// errorResponse is the standard error response body. Redirect is set only on
// authentication failures and names the view the browser should move to.
type errorResponse struct {
	Error    string            `json:"error"`
	Redirect string            `json:"redirect,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
}

// LoginRequest is the JSON body for the create-session endpoint.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the JSON body for the registration endpoint.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// SessionResponse is the JSON representation of the session state.
type SessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	Subject       string `json:"subject,omitempty"`
	Email         string `json:"email,omitempty"`
}

// ProfileRequest is the JSON body for the profile update endpoint.
type ProfileRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// ProfileResponse is the JSON representation of the account profile.
type ProfileResponse struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// SettingsRequest is the JSON body for the settings update endpoint.
type SettingsRequest struct {
	EmailNotifications bool `json:"email_notifications"`
	PaymentReminders   bool `json:"payment_reminders"`
}

// InitialInfoRequest is the JSON body for the wizard's first step.
type InitialInfoRequest struct {
	BusinessName string `json:"business_name"`
	TaxID        string `json:"tax_id"`
}

// BusinessInfoRequest is the JSON body for the wizard's business profile step.
type BusinessInfoRequest struct {
	BusinessType  string `json:"business_type"`
	Industry      string `json:"industry"`
	BusinessYears int    `json:"business_years"`
}

// FinancialInfoRequest is the JSON body for the wizard's financial step.
type FinancialInfoRequest struct {
	AnnualRevenue float64 `json:"annual_revenue"`
	MonthlyProfit float64 `json:"monthly_profit"`
	BankName      string  `json:"bank_name"`
	AccountNumber string  `json:"account_number"`
}

// LoanDetailsRequest is the JSON body for the wizard's loan request step.
type LoanDetailsRequest struct {
	LoanAmount  float64 `json:"loan_amount"`
	LoanPurpose string  `json:"loan_purpose"`
	TermMonths  int     `json:"loan_term"`
}

// OfferResponse is the JSON representation of an approved offer.
type OfferResponse struct {
	Amount         float64 `json:"amount"`
	InterestRate   float64 `json:"interest_rate"`
	TermMonths     int     `json:"term_months"`
	MonthlyPayment float64 `json:"monthly_payment"`
	TotalCost      float64 `json:"total_cost"`
}

// DraftResponse is the JSON representation of the wizard's state.
type DraftResponse struct {
	Step          int            `json:"step"`
	ApplicationID int64          `json:"application_id,omitempty"`
	BusinessName  string         `json:"business_name,omitempty"`
	DetailsSaved  bool           `json:"details_saved"`
	Decision      string         `json:"decision,omitempty"`
	Offer         *OfferResponse `json:"offer,omitempty"`
	Closed        bool           `json:"closed"`
}

// ApplicationResponse is the JSON representation of a loan application.
type ApplicationResponse struct {
	ID           int64   `json:"id"`
	BusinessName string  `json:"business_name"`
	Status       string  `json:"status"`
	LoanAmount   float64 `json:"loan_amount"`
	TermMonths   int     `json:"term_months"`
	InterestRate float64 `json:"interest_rate"`
	CreatedAt    string  `json:"created_at"`
	SubmittedAt  string  `json:"submitted_at,omitempty"`
}

// LoanResponse is the JSON representation of a funded loan.
type LoanResponse struct {
	ID               int64   `json:"id"`
	ApplicationID    int64   `json:"application_id"`
	BusinessName     string  `json:"business_name"`
	Amount           float64 `json:"amount"`
	InterestRate     float64 `json:"interest_rate"`
	TermDays         int     `json:"term_days"`
	RemainingBalance float64 `json:"remaining_balance"`
	Status           string  `json:"status"`
	CreatedAt        string  `json:"created_at"`
}

// PaymentResponse is the JSON representation of a scheduled payment.
type PaymentResponse struct {
	ID     int64   `json:"id"`
	LoanID int64   `json:"loan_id"`
	Amount float64 `json:"amount"`
	Status string  `json:"status"`
	DueAt  string  `json:"due_at"`
	PaidAt string  `json:"paid_at,omitempty"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// toDraftResponse converts a wizard snapshot to its JSON representation.
func toDraftResponse(v application.DraftView) DraftResponse {
	resp := DraftResponse{
		Step:          int(v.Step),
		ApplicationID: v.ApplicationID,
		BusinessName:  v.BusinessName,
		DetailsSaved:  v.DetailsSaved,
		Decision:      string(v.Decision),
		Closed:        v.Closed,
	}
	if v.Offer != nil {
		resp.Offer = &OfferResponse{
			Amount:         v.Offer.Amount,
			InterestRate:   v.Offer.InterestRate,
			TermMonths:     v.Offer.TermMonths,
			MonthlyPayment: v.Offer.MonthlyPayment,
			TotalCost:      v.Offer.TotalCost,
		}
	}
	return resp
}

// toApplicationResponse converts a domain LoanApplication to its JSON representation.
func toApplicationResponse(app model.LoanApplication) ApplicationResponse {
	resp := ApplicationResponse{
		ID:           app.ID,
		BusinessName: app.BusinessName,
		Status:       string(app.Status),
		LoanAmount:   app.LoanAmount,
		TermMonths:   app.TermMonths,
		InterestRate: app.InterestRate,
		CreatedAt:    app.CreatedAt.UTC().Format(time.RFC3339),
	}
	if !app.SubmittedAt.IsZero() {
		resp.SubmittedAt = app.SubmittedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

// toLoanResponse converts a domain Loan to its JSON representation.
func toLoanResponse(loan model.Loan) LoanResponse {
	return LoanResponse{
		ID:               loan.ID,
		ApplicationID:    loan.ApplicationID,
		BusinessName:     loan.BusinessName,
		Amount:           loan.Amount,
		InterestRate:     loan.InterestRate,
		TermDays:         loan.TermDays,
		RemainingBalance: loan.RemainingBalance,
		Status:           string(loan.Status),
		CreatedAt:        loan.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// toPaymentResponse converts a domain Payment to its JSON representation.
func toPaymentResponse(p model.Payment) PaymentResponse {
	resp := PaymentResponse{
		ID:     p.ID,
		LoanID: p.LoanID,
		Amount: p.Amount,
		Status: string(p.Status),
		DueAt:  p.DueAt.UTC().Format(time.RFC3339),
	}
	if !p.PaidAt.IsZero() {
		resp.PaidAt = p.PaidAt.UTC().Format(time.RFC3339)
	}
	return resp
}
