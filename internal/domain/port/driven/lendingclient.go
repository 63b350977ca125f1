package driven

import (
	"context"

	"github.com/jcalloway/lenddesk/internal/domain/model"
)

// TokenSource is the seam between the request gateway and the session layer.
// The gateway reads the current bearer token through it and reports
// authorization failures back through it.
type TokenSource interface {
	// Token returns the current bearer token, or "" when no valid credential
	// is held. The returned value is a snapshot for a single call.
	Token() string

	// HandleAuthFailure is invoked by the gateway after any call comes back
	// with an authorization failure. Implementations evict the stored
	// credential and fire the redirect-to-login side effect at most once per
	// credential, no matter how many concurrent calls fail.
	HandleAuthFailure()
}

// LendingClient is the driven port for the remote lending platform API.
// All methods return *AuthError, *APIError or *TransportError on failure.
type LendingClient interface {
	// Login exchanges credentials for a bearer token.
	// Returns ErrInvalidCredentials when the server rejects the pair.
	Login(ctx context.Context, email, password string) (string, error)
	Register(ctx context.Context, reg model.Registration) error
	Me(ctx context.Context) (model.UserProfile, error)
	UpdateProfile(ctx context.Context, profile model.UserProfile) error
	UpdateSettings(ctx context.Context, settings model.UserSettings) error

	// CreateApplication performs the step-1 call and returns the
	// server-assigned application id.
	CreateApplication(ctx context.Context, info model.InitialInfo) (int64, error)
	SaveBusinessInfo(ctx context.Context, id int64, info model.BusinessInfo) error
	SaveFinancialInfo(ctx context.Context, id int64, info model.FinancialInfo) error
	SaveLoanDetails(ctx context.Context, id int64, details model.LoanDetails) error
	SubmitApplication(ctx context.Context, id int64) (model.DecisionResult, error)
	CancelApplication(ctx context.Context, id int64) error

	// FundLoan commits an approved application into a loan.
	FundLoan(ctx context.Context, applicationID int64) (model.Loan, error)

	ListApplications(ctx context.Context) ([]model.LoanApplication, error)
	GetApplication(ctx context.Context, id int64) (*model.LoanApplication, error)
	ListLoans(ctx context.Context) ([]model.Loan, error)
	GetLoan(ctx context.Context, id int64) (*model.Loan, error)
	ListPayments(ctx context.Context) ([]model.Payment, error)
	PaymentsForLoan(ctx context.Context, loanID int64) ([]model.Payment, error)
}
