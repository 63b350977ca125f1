package application

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcalloway/lenddesk/internal/domain/model"
	"github.com/jcalloway/lenddesk/internal/domain/port/driven"
)

func newTestWorkflow(client driven.LendingClient) *WorkflowService {
	return NewWorkflowService(NewClientProvider(client), slog.New(slog.DiscardHandler))
}

func validInitialInfo() model.InitialInfo {
	return model.InitialInfo{BusinessName: "Acme LLC", TaxID: "123456789"}
}

func validBusinessInfo() model.BusinessInfo {
	return model.BusinessInfo{BusinessType: "llc", Industry: "retail", BusinessYears: 5}
}

func validFinancialInfo() model.FinancialInfo {
	return model.FinancialInfo{
		AnnualRevenue: 250000,
		MonthlyProfit: 8000,
		BankAccount:   model.BankReference{BankName: "First Bank", AccountNumber: "12345678"},
	}
}

func validLoanDetails() model.LoanDetails {
	return model.LoanDetails{LoanAmount: 10000, LoanPurpose: "inventory", TermMonths: 12}
}

// approvedResult scripts the decision engine approving the request verbatim.
func approvedResult() model.DecisionResult {
	offer := model.OfferTerms{Amount: 10000, InterestRate: 0.12, TermMonths: 12}
	offer.FillDerived()
	return model.DecisionResult{Status: model.ApplicationStatusApproved, Offer: &offer}
}

func TestWizard_HappyPathKeepsIdentifier(t *testing.T) {
	client := &fakeLendingClient{createID: 42, submitResult: approvedResult()}
	wf := newTestWorkflow(client)
	ctx := context.Background()

	wf.Begin()

	view, err := wf.SubmitInitialInfo(ctx, validInitialInfo())
	require.NoError(t, err)
	assert.Equal(t, int64(42), view.ApplicationID)
	assert.Equal(t, StepBusinessInfo, view.Step)

	view, err = wf.SubmitBusinessInfo(ctx, validBusinessInfo())
	require.NoError(t, err)
	assert.Equal(t, int64(42), view.ApplicationID)
	assert.Equal(t, StepFinancialInfo, view.Step)

	view, err = wf.SubmitFinancialInfo(ctx, validFinancialInfo())
	require.NoError(t, err)
	assert.Equal(t, int64(42), view.ApplicationID)
	assert.Equal(t, StepLoanDetails, view.Step)

	view, err = wf.SubmitLoanDetails(ctx, validLoanDetails())
	require.NoError(t, err)
	assert.Equal(t, int64(42), view.ApplicationID, "identifier assigned at step 1 must survive to step 5")
	assert.Equal(t, StepDecision, view.Step)
	assert.Equal(t, model.DecisionApproved, view.Decision)

	require.NotNil(t, view.Offer)
	assert.Equal(t, 10000.0, view.Offer.Amount)
	assert.Equal(t, 0.12, view.Offer.InterestRate)
	assert.Equal(t, 12, view.Offer.TermMonths)

	assert.Equal(t, 1, client.createCalls)
	assert.Equal(t, 1, client.submitCalls)
}

func TestWizard_StepOneCreatesIdentifierExactlyOnce(t *testing.T) {
	client := &fakeLendingClient{createID: 42, saveBusinessErr: &driven.TransportError{Err: context.DeadlineExceeded}}
	wf := newTestWorkflow(client)
	ctx := context.Background()

	wf.Begin()
	_, err := wf.SubmitInitialInfo(ctx, validInitialInfo())
	require.NoError(t, err)

	// Step 2 fails; the draft must stay at step 2 with the same identifier.
	view, err := wf.SubmitBusinessInfo(ctx, validBusinessInfo())
	require.Error(t, err)
	assert.Equal(t, StepBusinessInfo, view.Step)
	assert.Equal(t, int64(42), view.ApplicationID)

	// Retry reuses the identifier; no second application is created.
	client.saveBusinessErr = nil
	view, err = wf.SubmitBusinessInfo(ctx, validBusinessInfo())
	require.NoError(t, err)
	assert.Equal(t, int64(42), view.ApplicationID)
	assert.Equal(t, 1, client.createCalls, "retry must not create a duplicate application")
	assert.Equal(t, 2, client.saveBusinessCalls)
}

func TestWizard_SaveFailureSkipsSubmit(t *testing.T) {
	client := &fakeLendingClient{
		createID:       42,
		saveDetailsErr: &driven.APIError{StatusCode: 503, Message: "decision engine unavailable"},
		submitResult:   approvedResult(),
	}
	wf := newTestWorkflow(client)
	ctx := context.Background()

	wf.Begin()
	mustReachLoanDetails(t, wf, ctx)

	// First attempt: save fails, so the submit call is never issued.
	view, err := wf.SubmitLoanDetails(ctx, validLoanDetails())
	require.Error(t, err)
	assert.Equal(t, StepLoanDetails, view.Step)
	assert.Equal(t, int64(42), view.ApplicationID)
	assert.Zero(t, client.submitCalls, "submit must not run after a failed save")

	// Retry: both calls run; exactly one successful submit in total.
	client.saveDetailsErr = nil
	view, err = wf.SubmitLoanDetails(ctx, validLoanDetails())
	require.NoError(t, err)
	assert.Equal(t, int64(42), view.ApplicationID)
	assert.Equal(t, StepDecision, view.Step)
	assert.Equal(t, 1, client.submitCalls)
}

func TestWizard_SubmitFailureAfterSaveIsResumable(t *testing.T) {
	client := &fakeLendingClient{
		createID:     42,
		submitErr:    &driven.TransportError{Err: context.DeadlineExceeded},
		submitResult: approvedResult(),
	}
	wf := newTestWorkflow(client)
	ctx := context.Background()

	wf.Begin()
	mustReachLoanDetails(t, wf, ctx)

	view, err := wf.SubmitLoanDetails(ctx, validLoanDetails())
	require.Error(t, err)
	assert.Equal(t, StepLoanDetails, view.Step)
	assert.True(t, view.DetailsSaved, "saved details survive a failed submit")

	client.submitErr = nil
	view, err = wf.SubmitLoanDetails(ctx, validLoanDetails())
	require.NoError(t, err)
	assert.Equal(t, StepDecision, view.Step)
	assert.Equal(t, int64(42), view.ApplicationID)
}

func TestWizard_ValidationFailureNeverReachesNetwork(t *testing.T) {
	client := &fakeLendingClient{createID: 42}
	wf := newTestWorkflow(client)
	ctx := context.Background()

	wf.Begin()

	_, err := wf.SubmitInitialInfo(ctx, model.InitialInfo{BusinessName: "Acme LLC", TaxID: "12345"})

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Fields, "tax_id")
	assert.Zero(t, client.createCalls)

	view, err := wf.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, StepInitialInfo, view.Step)
	assert.Zero(t, view.ApplicationID)
}

func TestWizard_AuthFailureAtStepOneLeavesDraftUntouched(t *testing.T) {
	// End-to-end shape: the gateway reports the 401 to the session, the
	// session evicts and fires the redirect hook once, and the draft stays
	// at step 1 with no identifier.
	store := &fakeTokenStore{}
	client := &fakeLendingClient{}
	client.loginToken = signedToken(t, "17", time.Now().Add(time.Hour))
	session := newTestSession(client, store)

	var redirects int
	session.SetEvictionHook(func() { redirects++ })

	_, err := session.Authenticate(context.Background(), "owner@acme.test", "hunter2")
	require.NoError(t, err)

	client.createErr = &driven.AuthError{Message: "Invalid access token"}
	client.createHook = session.HandleAuthFailure

	wf := newTestWorkflow(client)
	wf.Begin()

	view, err := wf.SubmitInitialInfo(context.Background(), validInitialInfo())

	var authErr *driven.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, StepInitialInfo, view.Step)
	assert.Zero(t, view.ApplicationID)
	assert.Equal(t, 1, redirects)
	assert.False(t, session.IsAuthenticated())
}

func TestWizard_AcceptOfferClosesDraft(t *testing.T) {
	client := &fakeLendingClient{
		createID:     42,
		submitResult: approvedResult(),
		fundLoan:     model.Loan{ID: 7, ApplicationID: 42, Status: model.LoanStatusActive},
	}
	wf := newTestWorkflow(client)
	ctx := context.Background()

	wf.Begin()
	mustReachDecision(t, wf, ctx)

	loan, err := wf.AcceptOffer(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), loan.ID)

	// The draft is discarded; no further transitions are possible.
	_, err = wf.AcceptOffer(ctx)
	assert.ErrorIs(t, err, ErrDraftClosed)
	_, err = wf.SubmitLoanDetails(ctx, validLoanDetails())
	assert.ErrorIs(t, err, ErrDraftClosed)
}

func TestWizard_AcceptOfferFailureKeepsDraftForRetry(t *testing.T) {
	client := &fakeLendingClient{
		createID:     42,
		submitResult: approvedResult(),
		fundErr:      &driven.TransportError{Err: context.DeadlineExceeded},
	}
	wf := newTestWorkflow(client)
	ctx := context.Background()

	wf.Begin()
	mustReachDecision(t, wf, ctx)

	_, err := wf.AcceptOffer(ctx)
	require.Error(t, err)

	view, err := wf.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, StepDecision, view.Step)
	assert.Equal(t, model.DecisionApproved, view.Decision)
	assert.False(t, view.Closed)

	client.fundErr = nil
	client.fundLoan = model.Loan{ID: 7}
	_, err = wf.AcceptOffer(ctx)
	assert.NoError(t, err)
}

func TestWizard_DeclineOfferCancelsApplication(t *testing.T) {
	client := &fakeLendingClient{createID: 42, submitResult: approvedResult()}
	wf := newTestWorkflow(client)
	ctx := context.Background()

	wf.Begin()
	mustReachDecision(t, wf, ctx)

	require.NoError(t, wf.DeclineOffer(ctx))
	assert.Equal(t, 1, client.cancelCalls)

	err := wf.DeclineOffer(ctx)
	assert.ErrorIs(t, err, ErrDraftClosed)
}

func TestWizard_PendingDecisionHasNoActions(t *testing.T) {
	client := &fakeLendingClient{
		createID:     42,
		submitResult: model.DecisionResult{Status: model.ApplicationStatusUndecided},
	}
	wf := newTestWorkflow(client)
	ctx := context.Background()

	wf.Begin()
	mustReachDecision(t, wf, ctx)

	view, err := wf.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, model.DecisionPending, view.Decision)
	assert.Nil(t, view.Offer)

	_, err = wf.AcceptOffer(ctx)
	assert.ErrorIs(t, err, ErrNotApproved)
	assert.ErrorIs(t, wf.DeclineOffer(ctx), ErrNotApproved)
}

func TestWizard_RejectsReentrantSubmission(t *testing.T) {
	client := &fakeLendingClient{createID: 42}
	client.block = make(chan struct{})
	wf := newTestWorkflow(client)
	ctx := context.Background()

	wf.Begin()
	_, err := wf.SubmitInitialInfo(ctx, validInitialInfo())
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = wf.SubmitBusinessInfo(ctx, validBusinessInfo())
	}()

	// Wait for the first submission to park inside the blocked call.
	require.Eventually(t, func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		return client.saveBusinessCalls == 1
	}, time.Second, time.Millisecond)

	_, err = wf.SubmitBusinessInfo(ctx, validBusinessInfo())
	assert.ErrorIs(t, err, ErrTransitionInFlight)

	close(client.block)
	<-done

	// With the prior call resolved, the draft has advanced normally.
	view, err := wf.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, StepFinancialInfo, view.Step)
}

func TestWizard_WrongStepRejected(t *testing.T) {
	client := &fakeLendingClient{createID: 42}
	wf := newTestWorkflow(client)
	ctx := context.Background()

	wf.Begin()

	_, err := wf.SubmitBusinessInfo(ctx, validBusinessInfo())
	assert.ErrorIs(t, err, ErrWrongStep)

	_, err = wf.SubmitInitialInfo(ctx, validInitialInfo())
	require.NoError(t, err)

	_, err = wf.SubmitInitialInfo(ctx, validInitialInfo())
	assert.ErrorIs(t, err, ErrWrongStep)
}

func TestWizard_NoDraft(t *testing.T) {
	wf := newTestWorkflow(&fakeLendingClient{})

	_, err := wf.Snapshot()
	assert.ErrorIs(t, err, ErrNoDraft)

	_, err = wf.SubmitInitialInfo(context.Background(), validInitialInfo())
	assert.ErrorIs(t, err, ErrNoDraft)
}

func TestWizard_AbandonDiscardsDraft(t *testing.T) {
	client := &fakeLendingClient{createID: 42}
	wf := newTestWorkflow(client)

	wf.Begin()
	_, err := wf.SubmitInitialInfo(context.Background(), validInitialInfo())
	require.NoError(t, err)

	wf.Abandon()

	_, err = wf.Snapshot()
	assert.ErrorIs(t, err, ErrNoDraft)
}

func TestWizard_BeginDuringInFlightTransitionDiscardsStaleResult(t *testing.T) {
	client := &fakeLendingClient{createID: 42}
	client.block = make(chan struct{})
	wf := newTestWorkflow(client)
	ctx := context.Background()

	wf.Begin()
	_, err := wf.SubmitInitialInfo(ctx, validInitialInfo())
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		_, err := wf.SubmitBusinessInfo(ctx, validBusinessInfo())
		errCh <- err
	}()

	// Wait for the submission to park inside the blocked call.
	require.Eventually(t, func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		return client.saveBusinessCalls == 1
	}, time.Second, time.Millisecond)

	// The user restarts the wizard while the call is still outstanding, then
	// the call resolves successfully against the discarded draft.
	wf.Begin()
	close(client.block)
	assert.ErrorIs(t, <-errCh, ErrNoDraft)

	// A stale transition must not advance a draft it does not belong to: the
	// fresh draft is still at step 1 with no identifier.
	view, err := wf.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, StepInitialInfo, view.Step)
	assert.Zero(t, view.ApplicationID)

	// And it is fully usable.
	view, err = wf.SubmitInitialInfo(ctx, validInitialInfo())
	require.NoError(t, err)
	assert.Equal(t, StepBusinessInfo, view.Step)
	assert.Equal(t, int64(42), view.ApplicationID)
}

func TestWizard_AbandonDuringInFlightTransitionDiscardsStaleResult(t *testing.T) {
	client := &fakeLendingClient{createID: 42}
	client.block = make(chan struct{})
	wf := newTestWorkflow(client)
	ctx := context.Background()

	wf.Begin()
	_, err := wf.SubmitInitialInfo(ctx, validInitialInfo())
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		_, err := wf.SubmitBusinessInfo(ctx, validBusinessInfo())
		errCh <- err
	}()

	require.Eventually(t, func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		return client.saveBusinessCalls == 1
	}, time.Second, time.Millisecond)

	wf.Abandon()
	close(client.block)
	assert.ErrorIs(t, <-errCh, ErrNoDraft)

	_, err = wf.Snapshot()
	assert.ErrorIs(t, err, ErrNoDraft)

	// A fresh draft opens cleanly after the stale call has settled.
	view := wf.Begin()
	assert.Equal(t, StepInitialInfo, view.Step)
	_, err = wf.SubmitInitialInfo(ctx, validInitialInfo())
	require.NoError(t, err)
}

// mustReachLoanDetails drives a fresh draft to step 4.
func mustReachLoanDetails(t *testing.T, wf *WorkflowService, ctx context.Context) {
	t.Helper()
	_, err := wf.SubmitInitialInfo(ctx, validInitialInfo())
	require.NoError(t, err)
	_, err = wf.SubmitBusinessInfo(ctx, validBusinessInfo())
	require.NoError(t, err)
	_, err = wf.SubmitFinancialInfo(ctx, validFinancialInfo())
	require.NoError(t, err)
}

// mustReachDecision drives a fresh draft through submission to step 5.
func mustReachDecision(t *testing.T, wf *WorkflowService, ctx context.Context) {
	t.Helper()
	mustReachLoanDetails(t, wf, ctx)
	_, err := wf.SubmitLoanDetails(ctx, validLoanDetails())
	require.NoError(t, err)
}
