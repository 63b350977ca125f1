package application

import (
	"regexp"
	"slices"
	"strings"

	"github.com/jcalloway/lenddesk/internal/domain/model"
)

// maxLoanAmount is the largest loan the platform offers.
const maxLoanAmount = 50000

var (
	taxIDPattern         = regexp.MustCompile(`^[0-9]{9}$`)
	accountNumberPattern = regexp.MustCompile(`^[0-9]{4,17}$`)
)

// ValidationError reports field-level problems with a step's input. It is
// produced locally, never reaches the network layer and never mutates the
// workflow state.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+": "+msg)
	}
	slices.Sort(parts)
	return "validation failed: " + strings.Join(parts, "; ")
}

// fieldErrors accumulates per-field messages and collapses to nil when clean.
type fieldErrors map[string]string

func (f fieldErrors) toError() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}

func validateInitialInfo(info model.InitialInfo) error {
	errs := fieldErrors{}
	if strings.TrimSpace(info.BusinessName) == "" {
		errs["business_name"] = "business name is required"
	} else if len(info.BusinessName) > 100 {
		errs["business_name"] = "business name cannot exceed 100 characters"
	}
	if !taxIDPattern.MatchString(info.TaxID) {
		errs["tax_id"] = "tax id must be exactly 9 digits"
	}
	return errs.toError()
}

func validateBusinessInfo(info model.BusinessInfo) error {
	errs := fieldErrors{}
	if !slices.Contains(model.BusinessTypes, info.BusinessType) {
		errs["business_type"] = "unknown business type"
	}
	if !slices.Contains(model.Industries, info.Industry) {
		errs["industry"] = "unknown industry"
	}
	if info.BusinessYears <= 0 {
		errs["business_years"] = "years in business must be a positive integer"
	}
	return errs.toError()
}

func validateFinancialInfo(info model.FinancialInfo) error {
	errs := fieldErrors{}
	if info.AnnualRevenue <= 0 {
		errs["annual_revenue"] = "annual revenue must be positive"
	}
	if info.MonthlyProfit <= 0 {
		errs["monthly_profit"] = "monthly profit must be positive"
	}
	if strings.TrimSpace(info.BankAccount.BankName) == "" {
		errs["bank_name"] = "bank name is required"
	}
	if !accountNumberPattern.MatchString(info.BankAccount.AccountNumber) {
		errs["account_number"] = "account number must be 4 to 17 digits"
	}
	return errs.toError()
}

func validateLoanDetails(details model.LoanDetails) error {
	errs := fieldErrors{}
	if details.LoanAmount <= 0 {
		errs["loan_amount"] = "loan amount must be positive"
	} else if details.LoanAmount > maxLoanAmount {
		errs["loan_amount"] = "loan amount cannot exceed $50,000"
	}
	if strings.TrimSpace(details.LoanPurpose) == "" {
		errs["loan_purpose"] = "loan purpose is required"
	} else if len(details.LoanPurpose) > 500 {
		errs["loan_purpose"] = "loan purpose cannot exceed 500 characters"
	}
	if !slices.Contains(model.LoanTermMonths, details.TermMonths) {
		errs["loan_term"] = "loan term must be 6, 12, 24, 36, 48 or 60 months"
	}
	return errs.toError()
}
