package application

import (
	"context"

	"github.com/jcalloway/lenddesk/internal/domain/model"
)

// PortfolioService is a thin read-through for the list and detail views:
// applications, loans and payment schedules. It keeps no client-side state;
// the gateway's response cache handles conditional re-fetching.
type PortfolioService struct {
	provider *ClientProvider
}

// NewPortfolioService creates a PortfolioService.
func NewPortfolioService(provider *ClientProvider) *PortfolioService {
	return &PortfolioService{provider: provider}
}

// Applications lists the user's loan applications.
func (s *PortfolioService) Applications(ctx context.Context) ([]model.LoanApplication, error) {
	client := s.provider.Get()
	if client == nil {
		return nil, ErrNoClient
	}
	return client.ListApplications(ctx)
}

// Application returns one application, or nil when it does not exist.
func (s *PortfolioService) Application(ctx context.Context, id int64) (*model.LoanApplication, error) {
	client := s.provider.Get()
	if client == nil {
		return nil, ErrNoClient
	}
	return client.GetApplication(ctx, id)
}

// Loans lists the user's funded loans.
func (s *PortfolioService) Loans(ctx context.Context) ([]model.Loan, error) {
	client := s.provider.Get()
	if client == nil {
		return nil, ErrNoClient
	}
	return client.ListLoans(ctx)
}

// Loan returns one loan, or nil when it does not exist.
func (s *PortfolioService) Loan(ctx context.Context, id int64) (*model.Loan, error) {
	client := s.provider.Get()
	if client == nil {
		return nil, ErrNoClient
	}
	return client.GetLoan(ctx, id)
}

// Payments lists scheduled payments across all of the user's loans.
func (s *PortfolioService) Payments(ctx context.Context) ([]model.Payment, error) {
	client := s.provider.Get()
	if client == nil {
		return nil, ErrNoClient
	}
	return client.ListPayments(ctx)
}

// LoanPayments lists the payment schedule of one loan.
func (s *PortfolioService) LoanPayments(ctx context.Context, loanID int64) ([]model.Payment, error) {
	client := s.provider.Get()
	if client == nil {
		return nil, ErrNoClient
	}
	return client.PaymentsForLoan(ctx, loanID)
}
