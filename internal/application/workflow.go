package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/jcalloway/lenddesk/internal/domain/model"
	"github.com/jcalloway/lenddesk/internal/domain/port/driven"
)

// Step numbers the wizard's five states. Steps 1-4 collect input; step 5 is
// terminal and branches on the decision outcome.
type Step int

const (
	StepInitialInfo   Step = 1
	StepBusinessInfo  Step = 2
	StepFinancialInfo Step = 3
	StepLoanDetails   Step = 4
	StepDecision      Step = 5
)

var (
	// ErrNoDraft indicates no wizard is open.
	ErrNoDraft = errors.New("no loan application in progress")

	// ErrWrongStep indicates the submitted payload does not belong to the
	// draft's current step.
	ErrWrongStep = errors.New("input does not match the current wizard step")

	// ErrTransitionInFlight rejects re-entrant submission of a step while its
	// network call has not resolved yet.
	ErrTransitionInFlight = errors.New("a step submission is already in flight")

	// ErrDraftClosed indicates the draft was already funded, declined or abandoned.
	ErrDraftClosed = errors.New("the loan application draft is closed")

	// ErrNotApproved rejects accept/decline on a draft whose decision is not approved.
	ErrNotApproved = errors.New("the application is not approved")
)

// DraftView is an immutable snapshot of the wizard's state for rendering.
type DraftView struct {
	Step          Step
	ApplicationID int64
	BusinessName  string
	DetailsSaved  bool
	Decision      model.Decision
	Offer         *model.OfferTerms
	Closed        bool
}

// draft is the client-side shadow of the server application. The identifier
// is assigned exactly once, by the step-1 call, and survives every failed
// retry so the same server-side application is always re-addressed.
type draft struct {
	step         Step
	id           int64
	businessName string
	detailsSaved bool
	decision     model.Decision
	offer        *model.OfferTerms
	closed       bool
}

// WorkflowService drives the five-step loan application wizard. Each
// transition performs one network call (step 4: two, strictly sequential) and
// advances only on success; a failed call leaves the draft where it was so a
// corrected retry reuses the existing identifier instead of creating a
// duplicate application. One transition may be in flight per draft at a time.
//
// Begin and Abandon may replace the draft while a transition's network call is
// still outstanding. A transition therefore captures the draft pointer it was
// started on and settles against that pointer only: a result arriving for a
// draft that is no longer current is discarded as ErrNoDraft and never touches
// the replacement.
type WorkflowService struct {
	provider *ClientProvider
	logger   *slog.Logger

	mu       sync.Mutex
	draft    *draft
	inFlight bool
}

// NewWorkflowService creates a WorkflowService with no open draft.
func NewWorkflowService(provider *ClientProvider, logger *slog.Logger) *WorkflowService {
	return &WorkflowService{provider: provider, logger: logger}
}

// Begin opens a fresh draft at step 1, discarding any previous one. Mirrors
// the user opening the wizard. A transition still in flight on the old draft
// settles against that draft's pointer and cannot reach the new one.
func (s *WorkflowService) Begin() DraftView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = &draft{step: StepInitialInfo}
	s.inFlight = false
	return s.draft.view()
}

// Abandon discards the draft without touching the server. The server-side
// application, if one was created, stays addressable from the applications list.
func (s *WorkflowService) Abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = nil
	s.inFlight = false
}

// Snapshot returns the current draft state.
func (s *WorkflowService) Snapshot() (DraftView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft == nil {
		return DraftView{}, ErrNoDraft
	}
	return s.draft.view(), nil
}

// SubmitInitialInfo runs the 1→2 transition: validates, creates the server
// application and stores the returned identifier. On failure the draft stays
// at step 1 with no identifier.
func (s *WorkflowService) SubmitInitialInfo(ctx context.Context, info model.InitialInfo) (DraftView, error) {
	if err := validateInitialInfo(info); err != nil {
		return DraftView{}, err
	}

	client, d, err := s.begin(StepInitialInfo)
	if err != nil {
		return DraftView{}, err
	}

	id, err := client.CreateApplication(ctx, info)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft != d {
		// Replaced or abandoned while the call was in flight. The created
		// application, if any, stays addressable from the applications list.
		if err == nil {
			s.logger.Warn("discarding application created for a discarded draft", "application_id", id)
		}
		return DraftView{}, ErrNoDraft
	}
	s.inFlight = false
	if err != nil {
		s.logger.Warn("create application failed", "error", err)
		return d.view(), err
	}

	d.id = id
	d.businessName = info.BusinessName
	d.step = StepBusinessInfo
	s.logger.Info("application created", "application_id", id)
	return d.view(), nil
}

// SubmitBusinessInfo runs the 2→3 transition.
func (s *WorkflowService) SubmitBusinessInfo(ctx context.Context, info model.BusinessInfo) (DraftView, error) {
	if err := validateBusinessInfo(info); err != nil {
		return DraftView{}, err
	}

	client, d, err := s.begin(StepBusinessInfo)
	if err != nil {
		return DraftView{}, err
	}

	callErr := client.SaveBusinessInfo(ctx, d.id, info)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft != d {
		return DraftView{}, ErrNoDraft
	}
	s.inFlight = false
	if callErr != nil {
		s.logger.Warn("save business info failed", "application_id", d.id, "error", callErr)
		return d.view(), callErr
	}

	d.step = StepFinancialInfo
	return d.view(), nil
}

// SubmitFinancialInfo runs the 3→4 transition.
func (s *WorkflowService) SubmitFinancialInfo(ctx context.Context, info model.FinancialInfo) (DraftView, error) {
	if err := validateFinancialInfo(info); err != nil {
		return DraftView{}, err
	}

	client, d, err := s.begin(StepFinancialInfo)
	if err != nil {
		return DraftView{}, err
	}

	callErr := client.SaveFinancialInfo(ctx, d.id, info)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft != d {
		return DraftView{}, ErrNoDraft
	}
	s.inFlight = false
	if callErr != nil {
		s.logger.Warn("save financial info failed", "application_id", d.id, "error", callErr)
		return d.view(), callErr
	}

	d.step = StepLoanDetails
	return d.view(), nil
}

// SubmitLoanDetails runs the 4→5 transition: saves the loan request fields,
// then immediately submits the application for a decision. The two calls are
// strictly sequential. If the save succeeds but the submit fails, the draft
// stays at step 4 with the identifier intact; retrying re-runs both calls,
// which is safe because the save is idempotent by identifier and the server
// rejects submission of incomplete applications.
func (s *WorkflowService) SubmitLoanDetails(ctx context.Context, details model.LoanDetails) (DraftView, error) {
	if err := validateLoanDetails(details); err != nil {
		return DraftView{}, err
	}

	client, d, err := s.begin(StepLoanDetails)
	if err != nil {
		return DraftView{}, err
	}

	if err := client.SaveLoanDetails(ctx, d.id, details); err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.draft != d {
			return DraftView{}, ErrNoDraft
		}
		s.inFlight = false
		s.logger.Warn("save loan details failed", "application_id", d.id, "error", err)
		return d.view(), err
	}

	s.mu.Lock()
	d.detailsSaved = true
	s.mu.Unlock()

	result, err := client.SubmitApplication(ctx, d.id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft != d {
		return DraftView{}, ErrNoDraft
	}
	s.inFlight = false
	if err != nil {
		s.logger.Warn("submit application failed", "application_id", d.id, "error", err)
		return d.view(), err
	}

	d.decision = result.Decision()
	d.offer = result.Offer
	d.step = StepDecision
	s.logger.Info("application submitted", "application_id", d.id, "decision", d.decision)
	return d.view(), nil
}

// AcceptOffer commits the approved offer into a funded loan and closes the
// draft. On failure the draft remains at step 5/approved for retry.
func (s *WorkflowService) AcceptOffer(ctx context.Context) (model.Loan, error) {
	client, d, err := s.beginDecision()
	if err != nil {
		return model.Loan{}, err
	}

	loan, callErr := client.FundLoan(ctx, d.id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft != d {
		return model.Loan{}, ErrNoDraft
	}
	s.inFlight = false
	if callErr != nil {
		s.logger.Warn("fund loan failed", "application_id", d.id, "error", callErr)
		return model.Loan{}, callErr
	}

	d.closed = true
	s.logger.Info("loan funded", "application_id", d.id, "loan_id", loan.ID)
	return loan, nil
}

// DeclineOffer cancels the approved application and closes the draft. On
// failure the draft remains at step 5/approved for retry.
func (s *WorkflowService) DeclineOffer(ctx context.Context) error {
	client, d, err := s.beginDecision()
	if err != nil {
		return err
	}

	callErr := client.CancelApplication(ctx, d.id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft != d {
		return ErrNoDraft
	}
	s.inFlight = false
	if callErr != nil {
		s.logger.Warn("cancel application failed", "application_id", d.id, "error", callErr)
		return callErr
	}

	d.closed = true
	s.logger.Info("offer declined", "application_id", d.id)
	return nil
}

// begin checks the draft's preconditions for a step transition, marks it in
// flight and returns the draft pointer the transition belongs to. Steps past
// the first require the server-assigned identifier; the id is immutable once
// set, so callers may read it off the returned pointer without the lock.
func (s *WorkflowService) begin(step Step) (driven.LendingClient, *draft, error) {
	client := s.provider.Get()
	if client == nil {
		return nil, nil, ErrNoClient
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.draft == nil:
		return nil, nil, ErrNoDraft
	case s.draft.closed:
		return nil, nil, ErrDraftClosed
	case s.inFlight:
		return nil, nil, ErrTransitionInFlight
	case s.draft.step != step:
		return nil, nil, ErrWrongStep
	case step > StepInitialInfo && s.draft.id == 0:
		// Unreachable while advance-on-success holds, but the draft must
		// never address the server without an identifier.
		return nil, nil, ErrWrongStep
	}

	s.inFlight = true
	return client, s.draft, nil
}

// beginDecision checks the accept/decline preconditions: a step-5 draft whose
// decision is approved.
func (s *WorkflowService) beginDecision() (driven.LendingClient, *draft, error) {
	client := s.provider.Get()
	if client == nil {
		return nil, nil, ErrNoClient
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.draft == nil:
		return nil, nil, ErrNoDraft
	case s.draft.closed:
		return nil, nil, ErrDraftClosed
	case s.inFlight:
		return nil, nil, ErrTransitionInFlight
	case s.draft.step != StepDecision || s.draft.decision != model.DecisionApproved:
		return nil, nil, ErrNotApproved
	}

	s.inFlight = true
	return client, s.draft, nil
}

func (d *draft) view() DraftView {
	v := DraftView{
		Step:          d.step,
		ApplicationID: d.id,
		BusinessName:  d.businessName,
		DetailsSaved:  d.detailsSaved,
		Decision:      d.decision,
		Closed:        d.closed,
	}
	if d.offer != nil {
		offer := *d.offer
		v.Offer = &offer
	}
	return v
}
