package lendingapi

import (
	"time"

	"github.com/jcalloway/lenddesk/internal/domain/model"
)

// --- Request bodies ---

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

type initialInfoDTO struct {
	BusinessName string `json:"business_name"`
	TaxID        string `json:"tax_id"`
}

type businessInfoDTO struct {
	BusinessType  string `json:"business_type"`
	Industry      string `json:"industry"`
	BusinessYears int    `json:"business_years"`
}

type bankAccountDTO struct {
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
}

type financialInfoDTO struct {
	AnnualRevenue float64        `json:"annual_revenue"`
	MonthlyProfit float64        `json:"monthly_profit"`
	BankAccount   bankAccountDTO `json:"business_bank_account"`
}

type loanDetailsDTO struct {
	LoanAmount  float64 `json:"loan_amount"`
	LoanPurpose string  `json:"loan_purpose"`
	LoanTerm    int     `json:"loan_term"`
}

type profileDTO struct {
	ID        int64  `json:"id,omitempty"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone,omitempty"`
}

func (d profileDTO) toModel() model.UserProfile {
	return model.UserProfile{
		ID:        d.ID,
		Email:     d.Email,
		FirstName: d.FirstName,
		LastName:  d.LastName,
		Phone:     d.Phone,
	}
}

type settingsDTO struct {
	EmailNotifications bool `json:"email_notifications"`
	PaymentReminders   bool `json:"payment_reminders"`
}

// --- Response envelopes ---

type loginResponse struct {
	AccessToken string `json:"access_token"`
}

type profileEnvelope struct {
	User profileDTO `json:"user"`
}

type applicationEnvelope struct {
	Message     string         `json:"message"`
	Application applicationDTO `json:"application"`
}

type applicationListEnvelope struct {
	Applications []applicationDTO `json:"applications"`
}

type loanEnvelope struct {
	Message string  `json:"message"`
	Loan    loanDTO `json:"loan"`
}

type loanListEnvelope struct {
	Loans []loanDTO `json:"loans"`
}

type paymentListEnvelope struct {
	Payments []paymentDTO `json:"payments"`
}

// applicationDTO mirrors the server's application resource. The offer fields
// (loan_amount, loan_interest_rate, loan_term and the derived pair) are
// populated only after submission.
type applicationDTO struct {
	ID                 int64   `json:"id"`
	BusinessName       string  `json:"business_name"`
	TaxID              string  `json:"tax_id"`
	Status             string  `json:"status"`
	LoanAmount         float64 `json:"loan_amount"`
	LoanInterestRate   float64 `json:"loan_interest_rate"`
	LoanTerm           int     `json:"loan_term"`
	LoanMonthlyPayment float64 `json:"loan_monthly_payment"`
	LoanTotalAmount    float64 `json:"loan_total_amount"`
	CreatedAt          string  `json:"created_at"`
	SubmittedAt        string  `json:"submitted_at"`
}

func (d applicationDTO) toModel() model.LoanApplication {
	return model.LoanApplication{
		ID:           d.ID,
		BusinessName: d.BusinessName,
		TaxID:        d.TaxID,
		Status:       model.ApplicationStatus(d.Status),
		LoanAmount:   d.LoanAmount,
		TermMonths:   d.LoanTerm,
		InterestRate: d.LoanInterestRate,
		CreatedAt:    parseTime(d.CreatedAt),
		SubmittedAt:  parseTime(d.SubmittedAt),
	}
}

// offerTerms maps the verbatim offer fields of an approved application.
func (d applicationDTO) offerTerms() model.OfferTerms {
	return model.OfferTerms{
		Amount:         d.LoanAmount,
		InterestRate:   d.LoanInterestRate,
		TermMonths:     d.LoanTerm,
		MonthlyPayment: d.LoanMonthlyPayment,
		TotalCost:      d.LoanTotalAmount,
	}
}

type loanDTO struct {
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

func (d loanDTO) toModel() model.Loan {
	return model.Loan{
		ID:               d.ID,
		ApplicationID:    d.ApplicationID,
		BusinessName:     d.BusinessName,
		Amount:           d.Amount,
		InterestRate:     d.InterestRate,
		TermDays:         d.TermDays,
		RemainingBalance: d.RemainingBalance,
		Status:           model.LoanStatus(d.Status),
		CreatedAt:        parseTime(d.CreatedAt),
	}
}

type paymentDTO struct {
	ID       int64   `json:"id"`
	LoanID   int64   `json:"loan_id"`
	Amount   float64 `json:"amount"`
	Status   string  `json:"status"`
	DueDate  string  `json:"due_date"`
	PaidDate string  `json:"paid_date"`
}

func (d paymentDTO) toModel() model.Payment {
	return model.Payment{
		ID:     d.ID,
		LoanID: d.LoanID,
		Amount: d.Amount,
		Status: model.PaymentStatus(d.Status),
		DueAt:  parseTime(d.DueDate),
		PaidAt: parseTime(d.PaidDate),
	}
}

// parseTime accepts the two timestamp layouts the API emits. Unparseable or
// empty values map to the zero time; timestamps are display-only here.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
