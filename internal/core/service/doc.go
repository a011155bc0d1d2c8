// Package service implements the client-side operations of fintrack on
// top of the session-aware API client.
//
//   - AuthService: login, registration, logout and session status
//   - FinanceService: dashboard, analytics and transaction CRUD
//   - Importer: bulk creation of transactions from CSV or JSON
//
// Services hold no state of their own beyond their collaborators and
// are safe for concurrent use.
package service
