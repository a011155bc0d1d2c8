package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/yndnr/fintrack-go/internal/cli/connection"
	"github.com/yndnr/fintrack-go/internal/core/domain"
)

// API paths, relative to the client's base URL.
const (
	SummaryPath      = "/dashboard/summary"
	AnalyticsPath    = "/analytics"
	TransactionsPath = "/transactions"
)

// Requester sends authenticated requests. *connection.Client implements it.
type Requester interface {
	Request(ctx context.Context, path string, opts *connection.RequestOptions) (*http.Response, error)
}

// FinanceService reads and writes the user's finance data.
//
// Errors are *connection.APIError for rejected requests and
// *connection.SessionExpiredError when the token is no longer valid.
type FinanceService struct {
	client Requester
}

func NewFinanceService(client Requester) *FinanceService {
	return &FinanceService{client: client}
}

// Summary fetches the dashboard totals and recent transactions.
func (s *FinanceService) Summary(ctx context.Context) (*domain.Summary, error) {
	var sum domain.Summary
	if err := s.do(ctx, http.MethodGet, SummaryPath, nil, &sum); err != nil {
		return nil, fmt.Errorf("fetch summary: %w", err)
	}
	sum.Normalize()
	return &sum, nil
}

// Analytics fetches monthly and per-category aggregates.
func (s *FinanceService) Analytics(ctx context.Context) (*domain.Analytics, error) {
	var a domain.Analytics
	if err := s.do(ctx, http.MethodGet, AnalyticsPath, nil, &a); err != nil {
		return nil, fmt.Errorf("fetch analytics: %w", err)
	}
	if a.MonthlyData == nil {
		a.MonthlyData = []domain.MonthlyPoint{}
	}
	if a.CategoryData == nil {
		a.CategoryData = []domain.CategoryTotal{}
	}
	return &a, nil
}

// CreateTransaction validates tx and posts it. The returned transaction
// is the API's copy, including its id.
func (s *FinanceService) CreateTransaction(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	var created domain.Transaction
	if err := s.do(ctx, http.MethodPost, TransactionsPath, tx.Input(), &created); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}
	return &created, nil
}

// UpdateTransaction replaces the transaction with the given id.
func (s *FinanceService) UpdateTransaction(ctx context.Context, id string, tx domain.Transaction) (*domain.Transaction, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.ErrMissingField.WithDetails("id")
	}
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	var updated domain.Transaction
	if err := s.do(ctx, http.MethodPut, transactionPath(id), tx.Input(), &updated); err != nil {
		return nil, fmt.Errorf("update transaction %s: %w", id, err)
	}
	return &updated, nil
}

// DeleteTransaction removes the transaction with the given id.
func (s *FinanceService) DeleteTransaction(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return domain.ErrMissingField.WithDetails("id")
	}
	if err := s.do(ctx, http.MethodDelete, transactionPath(id), nil, nil); err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	return nil
}

func transactionPath(id string) string {
	return TransactionsPath + "/" + url.PathEscape(id)
}

func (s *FinanceService) do(ctx context.Context, method, path string, body, target any) error {
	opts := &connection.RequestOptions{Method: method}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		opts.Body = string(data)
	}
	resp, err := s.client.Request(ctx, path, opts)
	if err != nil {
		return err
	}
	return connection.ParseResponse(resp, target)
}
