package model

// ApplicationStatus represents the server-side state of a loan application.
type ApplicationStatus string

const (
	ApplicationStatusDraft     ApplicationStatus = "draft"
	ApplicationStatusSubmitted ApplicationStatus = "submitted"
	ApplicationStatusApproved  ApplicationStatus = "approved"
	ApplicationStatusUndecided ApplicationStatus = "undecided"
	ApplicationStatusDeclined  ApplicationStatus = "declined"
	ApplicationStatusCancelled ApplicationStatus = "cancelled"
	ApplicationStatusFunded    ApplicationStatus = "funded"
)

// Decision is the terminal outcome the wizard derives from the submit
// response. Approved unlocks the accept/decline sub-flow; Pending and
// Declined are informational terminal states.
type Decision string

const (
	DecisionNone     Decision = ""
	DecisionApproved Decision = "approved"
	DecisionPending  Decision = "pending"
	DecisionDeclined Decision = "declined"
)

// LoanStatus represents the state of a funded loan.
type LoanStatus string

const (
	LoanStatusActive    LoanStatus = "active"
	LoanStatusClosed    LoanStatus = "closed"
	LoanStatusDefaulted LoanStatus = "defaulted"
)

// PaymentStatus represents the state of a scheduled loan payment.
type PaymentStatus string

const (
	PaymentStatusScheduled PaymentStatus = "scheduled"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusLate      PaymentStatus = "late"
)

// BusinessType values accepted by the wizard's business profile step.
var BusinessTypes = []string{"llc", "corporation", "partnership", "sole_proprietorship", "other"}

// Industries accepted by the wizard's business profile step.
var Industries = []string{
	"retail", "hospitality", "technology", "healthcare", "education",
	"manufacturing", "finance", "construction", "agriculture", "other",
}

// LoanTermMonths is the enumerated set of allowed loan terms.
var LoanTermMonths = []int{6, 12, 24, 36, 48, 60}
