package model

import (
	"math"
	"time"
)

// InitialInfo is the step-1 payload that creates the server-side application.
type InitialInfo struct {
	BusinessName string
	TaxID        string
}

// BusinessInfo is the step-2 business profile payload.
type BusinessInfo struct {
	BusinessType  string
	Industry      string
	BusinessYears int
}

// BankReference identifies the business bank account collected at step 3.
type BankReference struct {
	BankName      string
	AccountNumber string
}

// FinancialInfo is the step-3 financial profile payload.
type FinancialInfo struct {
	AnnualRevenue float64
	MonthlyProfit float64
	BankAccount   BankReference
}

// LoanDetails is the step-4 loan request payload.
type LoanDetails struct {
	LoanAmount  float64
	LoanPurpose string
	TermMonths  int
}

// OfferTerms carries the approved offer returned by the decision engine.
// Amount, InterestRate and TermMonths are stored verbatim from the submit
// response; MonthlyPayment and TotalCost are filled from the response when
// present and otherwise derived with the annuity formula.
type OfferTerms struct {
	Amount         float64
	InterestRate   float64 // annual rate as a fraction, e.g. 0.12
	TermMonths     int
	MonthlyPayment float64
	TotalCost      float64
}

// FillDerived computes MonthlyPayment and TotalCost from the verbatim terms
// when the server response omitted them. A zero term or amount leaves the
// derived fields untouched.
func (o *OfferTerms) FillDerived() {
	if o.TermMonths <= 0 || o.Amount <= 0 {
		return
	}
	if o.MonthlyPayment == 0 {
		o.MonthlyPayment = round2(annuityPayment(o.Amount, o.InterestRate, o.TermMonths))
	}
	if o.TotalCost == 0 {
		o.TotalCost = round2(o.MonthlyPayment * float64(o.TermMonths))
	}
}

// annuityPayment returns the fixed monthly installment for a principal at the
// given annual rate over n months. A zero rate degrades to straight division.
func annuityPayment(principal, annualRate float64, months int) float64 {
	n := float64(months)
	if annualRate == 0 {
		return principal / n
	}
	r := annualRate / 12
	return principal * r / (1 - math.Pow(1+r, -n))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// DecisionResult is the outcome of submitting an application for a decision.
// Offer is non-nil only when Status is approved.
type DecisionResult struct {
	Status ApplicationStatus
	Offer  *OfferTerms
}

// Decision maps the server's post-submit status onto the wizard's terminal
// decision outcomes.
func (d DecisionResult) Decision() Decision {
	switch d.Status {
	case ApplicationStatusApproved:
		return DecisionApproved
	case ApplicationStatusDeclined:
		return DecisionDeclined
	default:
		// submitted, undecided and anything unrecognized wait on the server.
		return DecisionPending
	}
}

// LoanApplication is the server's view of an application, consumed read-only
// by the list and detail pages.
type LoanApplication struct {
	ID           int64
	BusinessName string
	TaxID        string
	Status       ApplicationStatus
	LoanAmount   float64
	TermMonths   int
	InterestRate float64
	CreatedAt    time.Time
	SubmittedAt  time.Time
}
