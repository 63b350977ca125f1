package application

import (
	"context"
	"sync"

	"github.com/jcalloway/lenddesk/internal/domain/model"
	"github.com/jcalloway/lenddesk/internal/domain/port/driven"
)

// fakeLendingClient is a scriptable LendingClient for application-layer
// tests. Error fields are returned verbatim; call counters record traffic.
type fakeLendingClient struct {
	mu sync.Mutex

	loginToken string
	loginErr   error

	createID    int64
	createErr   error
	createCalls int
	// createHook runs inside CreateApplication before returning, letting
	// tests simulate gateway side effects such as auth-failure reporting.
	createHook func()

	saveBusinessErr   error
	saveBusinessCalls int

	saveFinancialErr   error
	saveFinancialCalls int

	saveDetailsErr   error
	saveDetailsCalls int
	// block, when non-nil, parks the next SaveBusinessInfo call until closed.
	block chan struct{}

	submitResult model.DecisionResult
	submitErr    error
	submitCalls  int

	cancelErr   error
	cancelCalls int

	fundLoan  model.Loan
	fundErr   error
	fundCalls int
}

var _ driven.LendingClient = (*fakeLendingClient)(nil)

func (f *fakeLendingClient) Login(context.Context, string, string) (string, error) {
	return f.loginToken, f.loginErr
}

func (f *fakeLendingClient) Register(context.Context, model.Registration) error { return nil }

func (f *fakeLendingClient) Me(context.Context) (model.UserProfile, error) {
	return model.UserProfile{}, nil
}

func (f *fakeLendingClient) UpdateProfile(context.Context, model.UserProfile) error { return nil }

func (f *fakeLendingClient) UpdateSettings(context.Context, model.UserSettings) error { return nil }

func (f *fakeLendingClient) CreateApplication(context.Context, model.InitialInfo) (int64, error) {
	f.mu.Lock()
	f.createCalls++
	hook := f.createHook
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return f.createID, f.createErr
}

func (f *fakeLendingClient) SaveBusinessInfo(context.Context, int64, model.BusinessInfo) error {
	f.mu.Lock()
	f.saveBusinessCalls++
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return f.saveBusinessErr
}

func (f *fakeLendingClient) SaveFinancialInfo(context.Context, int64, model.FinancialInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveFinancialCalls++
	return f.saveFinancialErr
}

func (f *fakeLendingClient) SaveLoanDetails(context.Context, int64, model.LoanDetails) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveDetailsCalls++
	return f.saveDetailsErr
}

func (f *fakeLendingClient) SubmitApplication(context.Context, int64) (model.DecisionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitCalls++
	return f.submitResult, f.submitErr
}

func (f *fakeLendingClient) CancelApplication(context.Context, int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelCalls++
	return f.cancelErr
}

func (f *fakeLendingClient) FundLoan(context.Context, int64) (model.Loan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fundCalls++
	return f.fundLoan, f.fundErr
}

func (f *fakeLendingClient) ListApplications(context.Context) ([]model.LoanApplication, error) {
	return nil, nil
}

func (f *fakeLendingClient) GetApplication(context.Context, int64) (*model.LoanApplication, error) {
	return nil, nil
}

func (f *fakeLendingClient) ListLoans(context.Context) ([]model.Loan, error) { return nil, nil }

func (f *fakeLendingClient) GetLoan(context.Context, int64) (*model.Loan, error) { return nil, nil }

func (f *fakeLendingClient) ListPayments(context.Context) ([]model.Payment, error) { return nil, nil }

func (f *fakeLendingClient) PaymentsForLoan(context.Context, int64) ([]model.Payment, error) {
	return nil, nil
}

// fakeTokenStore is an in-memory TokenStore recording traffic.
type fakeTokenStore struct {
	mu         sync.Mutex
	token      string
	saveErr    error
	loadErr    error
	clearCalls int
}

var _ driven.TokenStore = (*fakeTokenStore)(nil)

func (f *fakeTokenStore) Save(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.token = token
	return nil
}

func (f *fakeTokenStore) Load(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token, f.loadErr
}

func (f *fakeTokenStore) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearCalls++
	f.token = ""
	return nil
}

func (f *fakeTokenStore) stored() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeTokenStore) clears() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clearCalls
}
