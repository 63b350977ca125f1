package model

import "time"

// Loan is a funded loan as reported by the lending API. Created by the
// funding transition; the client never mutates it afterward.
type Loan struct {
	ID               int64
	ApplicationID    int64
	BusinessName     string
	Amount           float64
	InterestRate     float64
	TermDays         int
	RemainingBalance float64
	Status           LoanStatus
	CreatedAt        time.Time
}

// Payment is one entry of a loan's server-generated payment schedule.
type Payment struct {
	ID     int64
	LoanID int64
	Amount float64
	Status PaymentStatus
	DueAt  time.Time
	PaidAt time.Time
}
