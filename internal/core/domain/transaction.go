package domain

import (
	"strings"
	"time"
)

// DateLayout is the date format the remote API accepts.
const DateLayout = "2006-01-02"

// TxType is the direction of a transaction.
type TxType string

const (
	TxIncome  TxType = "income"
	TxExpense TxType = "expense"
)

// ParseTxType accepts "income" or "expense" in any case.
func ParseTxType(s string) (TxType, error) {
	switch t := TxType(strings.ToLower(strings.TrimSpace(s))); t {
	case TxIncome, TxExpense:
		return t, nil
	}
	return "", ErrInvalidType.WithDetails(s)
}

// Valid reports whether t is a known type.
func (t TxType) Valid() bool {
	return t == TxIncome || t == TxExpense
}

// Transaction is a single income or expense entry.
type Transaction struct {
	ID       string `json:"_id,omitempty" yaml:"id,omitempty"`
	Type     TxType `json:"type" yaml:"type"`
	Amount   Money  `json:"amount" yaml:"amount"`
	Category string `json:"category" yaml:"category"`
	Note     string `json:"note" yaml:"note,omitempty"`
	Date     string `json:"date" yaml:"date"`
}

// TransactionInput is the body of POST and PUT /transactions.
type TransactionInput struct {
	Type     TxType `json:"type"`
	Amount   Money  `json:"amount"`
	Category string `json:"category"`
	Note     string `json:"note"`
	Date     string `json:"date"`
}

// Input returns the request body for t with the date normalized.
func (t Transaction) Input() TransactionInput {
	return TransactionInput{
		Type:     t.Type,
		Amount:   t.Amount,
		Category: strings.TrimSpace(t.Category),
		Note:     t.Note,
		Date:     t.Day(),
	}
}

// Day returns the date part of Date. The API may answer with a full
// timestamp.
func (t Transaction) Day() string {
	if ts, err := time.Parse(time.RFC3339Nano, t.Date); err == nil {
		return ts.UTC().Format(DateLayout)
	}
	return t.Date
}

// Validate checks the fields required to create or update t.
func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidType.WithDetails(string(t.Type))
	}
	if t.Amount <= 0 {
		return ErrInvalidAmount.WithDetails("amount must be greater than zero")
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrMissingField.WithDetails("category")
	}
	if t.Date == "" {
		return ErrMissingField.WithDetails("date")
	}
	if _, err := time.Parse(DateLayout, t.Day()); err != nil {
		return ErrInvalidDate.WithDetails(t.Date).WithCause(err)
	}
	return nil
}

// Signed returns the amount with expenses negative.
func (t Transaction) Signed() Money {
	if t.Type == TxExpense {
		return -t.Amount
	}
	return t.Amount
}
