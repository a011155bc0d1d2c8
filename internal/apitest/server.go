// Package apitest runs an in-memory fake of the fintrack remote API for
// tests. It implements the endpoints the client uses with the same
// request and response shapes, issues opaque tokens and answers 401 to
// unknown ones.
package apitest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/yndnr/fintrack-go/internal/core/domain"
)

// Prefix is the path under which the API is mounted, matching the
// default base URL of the client.
const Prefix = "/api"

type user struct {
	name     string
	email    string
	password string
}

// Server is a running fake API. Close it when done.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	users    map[string]user   // by email
	tokens   map[string]string // token -> email
	txs      map[string][]domain.Transaction
	requests map[string]int // "METHOD /path" -> count
}

// New starts a fake API.
func New() *Server {
	s := &Server{
		users:    make(map[string]user),
		tokens:   make(map[string]string),
		txs:      make(map[string][]domain.Transaction),
		requests: make(map[string]int),
	}
	s.Server = httptest.NewServer(s.router())
	return s
}

// BaseURL is the value to configure as the client's server.
func (s *Server) BaseURL() string {
	return s.URL + Prefix
}

func (s *Server) router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.count)
	api := r.PathPrefix(Prefix).Subrouter()
	api.HandleFunc("/auth", s.handleAuth).Methods(http.MethodPost)

	protected := api.NewRoute().Subrouter()
	protected.Use(s.requireToken)
	protected.HandleFunc("/dashboard/summary", s.handleSummary).Methods(http.MethodGet)
	protected.HandleFunc("/analytics", s.handleAnalytics).Methods(http.MethodGet)
	protected.HandleFunc("/transactions", s.handleCreate).Methods(http.MethodPost)
	protected.HandleFunc("/transactions/{id}", s.handleUpdate).Methods(http.MethodPut)
	protected.HandleFunc("/transactions/{id}", s.handleDelete).Methods(http.MethodDelete)
	return r
}

// AddUser registers an account directly.
func (s *Server) AddUser(name, email, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[email] = user{name: name, email: email, password: password}
}

// IssueToken returns a valid token for email, creating the user when
// needed.
func (s *Server) IssueToken(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[email]; !ok {
		s.users[email] = user{name: email, email: email}
	}
	return s.newTokenLocked(email)
}

// RevokeTokens invalidates every issued token, so the next protected
// request gets a 401.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = make(map[string]string)
}

// Seed stores transactions for email, assigning ids where missing.
func (s *Server) Seed(email string, txs ...domain.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range txs {
		if tx.ID == "" {
			tx.ID = uuid.NewString()
		}
		s.txs[email] = append(s.txs[email], tx)
	}
}

// Transactions returns a copy of the stored transactions for email.
func (s *Server) Transactions(email string) []domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Transaction(nil), s.txs[email]...)
}

// Requests returns how many requests matched "METHOD /path".
func (s *Server) Requests(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[key]
}

func (s *Server) newTokenLocked(email string) string {
	token := uuid.NewString()
	s.tokens[token] = email
	return token
}

type ctxEmail struct{}

func emailFrom(r *http.Request) string {
	email, _ := r.Context().Value(ctxEmail{}).(string)
	return email
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests[r.Method+" "+strings.TrimPrefix(r.URL.Path, Prefix)]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		email, valid := s.tokens[token]
		s.mu.Unlock()
		if !ok || !valid {
			writeMessage(w, http.StatusUnauthorized, "Not authorized, token failed")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxEmail{}, email)))
	})
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email == "" || body.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Please provide email and password")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, exists := s.users[body.Email]
	if body.Name != "" {
		if exists {
			writeMessage(w, http.StatusBadRequest, "User already exists")
			return
		}
		u = user{name: body.Name, email: body.Email, password: body.Password}
		s.users[body.Email] = u
	} else if !exists || u.password != body.Password {
		writeMessage(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token": s.newTokenLocked(u.email),
		"user":  map[string]string{"name": u.name, "email": u.email},
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	txs := s.Transactions(emailFrom(r))

	var income, expense domain.Money
	for _, tx := range txs {
		if tx.Type == domain.TxIncome {
			income += tx.Amount
		} else {
			expense += tx.Amount
		}
	}
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].Date > txs[j].Date })
	if len(txs) > 5 {
		txs = txs[:5]
	}
	writeJSON(w, http.StatusOK, domain.Summary{
		TotalIncome:        income,
		TotalExpense:       expense,
		Balance:            income - expense,
		RecentTransactions: append([]domain.Transaction{}, txs...),
	})
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	txs := s.Transactions(emailFrom(r))

	months := map[string]*domain.MonthlyPoint{}
	categories := map[string]domain.Money{}
	for _, tx := range txs {
		day := tx.Day()
		month := day
		if len(day) >= 7 {
			month = day[:7]
		}
		p, ok := months[month]
		if !ok {
			p = &domain.MonthlyPoint{Month: month}
			months[month] = p
		}
		if tx.Type == domain.TxIncome {
			p.Income += tx.Amount
		} else {
			p.Expense += tx.Amount
			categories[tx.Category] += tx.Amount
		}
	}

	monthly := make([]domain.MonthlyPoint, 0, len(months))
	for _, p := range months {
		monthly = append(monthly, *p)
	}
	sort.Slice(monthly, func(i, j int) bool { return monthly[i].Month < monthly[j].Month })

	type categoryTotal struct {
		ID    string       `json:"_id"`
		Total domain.Money `json:"total"`
	}
	cats := make([]categoryTotal, 0, len(categories))
	for name, total := range categories {
		cats = append(cats, categoryTotal{ID: name, Total: total})
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i].Total > cats[j].Total })

	writeJSON(w, http.StatusOK, map[string]any{"monthlyData": monthly, "categoryData": cats})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var in domain.TransactionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid transaction")
		return
	}
	tx := domain.Transaction{ID: uuid.NewString(), Type: in.Type, Amount: in.Amount, Category: in.Category, Note: in.Note, Date: in.Date}
	if err := tx.Validate(); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	s.Seed(emailFrom(r), tx)
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var in domain.TransactionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid transaction")
		return
	}

	email := emailFrom(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, tx := range s.txs[email] {
		if tx.ID == id {
			updated := domain.Transaction{ID: id, Type: in.Type, Amount: in.Amount, Category: in.Category, Note: in.Note, Date: in.Date}
			s.txs[email][i] = updated
			writeJSON(w, http.StatusOK, updated)
			return
		}
	}
	writeMessage(w, http.StatusNotFound, "Transaction not found")
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	email := emailFrom(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, tx := range s.txs[email] {
		if tx.ID == id {
			s.txs[email] = append(s.txs[email][:i], s.txs[email][i+1:]...)
			writeJSON(w, http.StatusOK, map[string]string{"message": "Transaction removed"})
			return
		}
	}
	writeMessage(w, http.StatusNotFound, "Transaction not found")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

