// Package lendingapi implements the LendingClient port against the remote
// lending platform's REST API. It is the single egress point for network
// calls: the transport stack attaches the bearer credential, and 401
// responses are reported to the session layer before the failure is
// propagated. No call is ever retried with a different credential.
package lendingapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gregjones/httpcache"

	"github.com/jcalloway/lenddesk/internal/domain/model"
	"github.com/jcalloway/lenddesk/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.LendingClient = (*Client)(nil)

// Client implements the driven.LendingClient port.
type Client struct {
	base   *url.URL
	http   *http.Client
	tokens driven.TokenSource
}

// NewClient creates a lending API client with the following transport stack:
//  1. authTransport (bearer header + X-Request-ID correlation)
//  2. httpcache (ETag-based conditional request caching for the GET endpoints)
//
// The client timeout is a safety net alongside context cancellation; zero
// falls back to 30 seconds.
func NewClient(baseURL string, tokens driven.TokenSource, timeout time.Duration) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	cacheTransport := httpcache.NewMemoryCacheTransport()
	transport := newAuthTransport(cacheTransport, tokens)

	return &Client{
		base:   base,
		http:   &http.Client{Transport: transport, Timeout: timeout},
		tokens: tokens,
	}, nil
}

// NewClientWithHTTPClient creates a Client with a custom http.Client.
// Intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string, tokens driven.TokenSource) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	return &Client{base: base, http: httpClient, tokens: tokens}, nil
}

// Login exchanges an email/password pair for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var resp loginResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", loginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		var authErr *driven.AuthError
		if errors.As(err, &authErr) {
			return "", driven.ErrInvalidCredentials
		}
		return "", err
	}
	if resp.AccessToken == "" {
		return "", &driven.APIError{StatusCode: http.StatusOK, Message: "login response carried no access token"}
	}
	return resp.AccessToken, nil
}

// Register creates a new account.
func (c *Client) Register(ctx context.Context, reg model.Registration) error {
	return c.do(ctx, http.MethodPost, "/auth/register", registerRequest{
		Email:     reg.Email,
		Password:  reg.Password,
		FirstName: reg.FirstName,
		LastName:  reg.LastName,
	}, nil)
}

// Me fetches the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (model.UserProfile, error) {
	var resp profileEnvelope
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &resp); err != nil {
		return model.UserProfile{}, err
	}
	return resp.User.toModel(), nil
}

// UpdateProfile updates the authenticated user's profile.
func (c *Client) UpdateProfile(ctx context.Context, profile model.UserProfile) error {
	return c.do(ctx, http.MethodPut, "/auth/me", profileDTO{
		Email:     profile.Email,
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
		Phone:     profile.Phone,
	}, nil)
}

// UpdateSettings updates the authenticated user's notification settings.
func (c *Client) UpdateSettings(ctx context.Context, settings model.UserSettings) error {
	return c.do(ctx, http.MethodPut, "/auth/settings", settingsDTO{
		EmailNotifications: settings.EmailNotifications,
		PaymentReminders:   settings.PaymentReminders,
	}, nil)
}

// CreateApplication performs the step-1 call and returns the server-assigned
// application id.
func (c *Client) CreateApplication(ctx context.Context, info model.InitialInfo) (int64, error) {
	var resp applicationEnvelope
	err := c.do(ctx, http.MethodPost, "/loan-applications", initialInfoDTO{
		BusinessName: info.BusinessName,
		TaxID:        info.TaxID,
	}, &resp)
	if err != nil {
		return 0, err
	}
	if resp.Application.ID == 0 {
		return 0, &driven.APIError{StatusCode: http.StatusOK, Message: "create response carried no application id"}
	}
	return resp.Application.ID, nil
}

// SaveBusinessInfo extends the application with the step-2 business profile.
func (c *Client) SaveBusinessInfo(ctx context.Context, id int64, info model.BusinessInfo) error {
	path := fmt.Sprintf("/loan-applications/%d/steps/business-info", id)
	return c.do(ctx, http.MethodPost, path, businessInfoDTO{
		BusinessType:  info.BusinessType,
		Industry:      info.Industry,
		BusinessYears: info.BusinessYears,
	}, nil)
}

// SaveFinancialInfo extends the application with the step-3 financial profile.
func (c *Client) SaveFinancialInfo(ctx context.Context, id int64, info model.FinancialInfo) error {
	path := fmt.Sprintf("/loan-applications/%d/steps/financial-info", id)
	return c.do(ctx, http.MethodPost, path, financialInfoDTO{
		AnnualRevenue: info.AnnualRevenue,
		MonthlyProfit: info.MonthlyProfit,
		BankAccount: bankAccountDTO{
			BankName:      info.BankAccount.BankName,
			AccountNumber: info.BankAccount.AccountNumber,
		},
	}, nil)
}

// SaveLoanDetails extends the application with the step-4 loan request.
func (c *Client) SaveLoanDetails(ctx context.Context, id int64, details model.LoanDetails) error {
	path := fmt.Sprintf("/loan-applications/%d/steps/loan-details", id)
	return c.do(ctx, http.MethodPost, path, loanDetailsDTO{
		LoanAmount:  details.LoanAmount,
		LoanPurpose: details.LoanPurpose,
		LoanTerm:    details.TermMonths,
	}, nil)
}

// SubmitApplication submits a completed application for a decision. The
// server rejects submissions whose step data is incomplete, so a stale submit
// after a failed save cannot slip through.
func (c *Client) SubmitApplication(ctx context.Context, id int64) (model.DecisionResult, error) {
	path := fmt.Sprintf("/loan-applications/%d/submit", id)
	var resp applicationEnvelope
	if err := c.do(ctx, http.MethodPost, path, nil, &resp); err != nil {
		return model.DecisionResult{}, err
	}

	result := model.DecisionResult{Status: model.ApplicationStatus(resp.Application.Status)}
	if result.Status == model.ApplicationStatusApproved {
		offer := resp.Application.offerTerms()
		offer.FillDerived()
		result.Offer = &offer
	}
	return result, nil
}

// CancelApplication cancels an application (declining an approved offer).
func (c *Client) CancelApplication(ctx context.Context, id int64) error {
	path := fmt.Sprintf("/loan-applications/%d/cancel", id)
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

// FundLoan commits an approved application into a funded loan.
func (c *Client) FundLoan(ctx context.Context, applicationID int64) (model.Loan, error) {
	path := fmt.Sprintf("/loans/application/%d/fund", applicationID)
	var resp loanEnvelope
	if err := c.do(ctx, http.MethodPost, path, nil, &resp); err != nil {
		return model.Loan{}, err
	}
	return resp.Loan.toModel(), nil
}

// ListApplications returns the user's loan applications.
func (c *Client) ListApplications(ctx context.Context) ([]model.LoanApplication, error) {
	var resp applicationListEnvelope
	if err := c.do(ctx, http.MethodGet, "/loan-applications", nil, &resp); err != nil {
		return nil, err
	}
	apps := make([]model.LoanApplication, 0, len(resp.Applications))
	for _, dto := range resp.Applications {
		apps = append(apps, dto.toModel())
	}
	return apps, nil
}

// GetApplication returns a single application, or nil when not found.
func (c *Client) GetApplication(ctx context.Context, id int64) (*model.LoanApplication, error) {
	var resp applicationEnvelope
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/loan-applications/%d", id), nil, &resp)
	if err != nil {
		var apiErr *driven.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	app := resp.Application.toModel()
	return &app, nil
}

// ListLoans returns the user's funded loans.
func (c *Client) ListLoans(ctx context.Context) ([]model.Loan, error) {
	var resp loanListEnvelope
	if err := c.do(ctx, http.MethodGet, "/loans", nil, &resp); err != nil {
		return nil, err
	}
	loans := make([]model.Loan, 0, len(resp.Loans))
	for _, dto := range resp.Loans {
		loans = append(loans, dto.toModel())
	}
	return loans, nil
}

// GetLoan returns a single loan, or nil when not found.
func (c *Client) GetLoan(ctx context.Context, id int64) (*model.Loan, error) {
	var resp loanEnvelope
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/loans/%d", id), nil, &resp)
	if err != nil {
		var apiErr *driven.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	loan := resp.Loan.toModel()
	return &loan, nil
}

// ListPayments returns all scheduled payments across the user's loans.
func (c *Client) ListPayments(ctx context.Context) ([]model.Payment, error) {
	return c.listPayments(ctx, "/payments")
}

// PaymentsForLoan returns the payment schedule of one loan.
func (c *Client) PaymentsForLoan(ctx context.Context, loanID int64) ([]model.Payment, error) {
	return c.listPayments(ctx, fmt.Sprintf("/payments/loan/%d", loanID))
}

func (c *Client) listPayments(ctx context.Context, path string) ([]model.Payment, error) {
	var resp paymentListEnvelope
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	payments := make([]model.Payment, 0, len(resp.Payments))
	for _, dto := range resp.Payments {
		payments = append(payments, dto.toModel())
	}
	return payments, nil
}

// do issues one request against the lending API and decodes the JSON
// response into out (when out is non-nil). Failures map onto the port error
// taxonomy: transport problems become *TransportError, 401 becomes
// *AuthError after notifying the TokenSource, and every other non-2xx status
// becomes *APIError carrying the server's message verbatim.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	u := c.base.JoinPath(path)

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &driven.TransportError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &driven.TransportError{Err: err}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		// Eviction and the redirect side effect happen in the session layer,
		// at most once per credential; the original failure is propagated
		// unchanged and never retried here.
		c.tokens.HandleAuthFailure()
		return &driven.AuthError{Message: serverMessage(data)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &driven.APIError{StatusCode: resp.StatusCode, Message: serverMessage(data)}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response for %s %s: %w", method, path, err)
		}
	}
	return nil
}

// serverMessage extracts the human-readable explanation from an error body.
// The API uses both {"error": ...} and {"message": ...}; prefer message when
// both are present since it is the user-facing one.
func serverMessage(data []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return "request rejected"
	}
	if body.Message != "" {
		return body.Message
	}
	if body.Error != "" {
		return body.Error
	}
	return "request rejected"
}
