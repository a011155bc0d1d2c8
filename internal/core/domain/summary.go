package domain

import (
	"bytes"
	"encoding/json"
)

// Summary is the dashboard view returned by GET /dashboard/summary.
type Summary struct {
	TotalIncome        Money         `json:"totalIncome" yaml:"total_income"`
	TotalExpense       Money         `json:"totalExpense" yaml:"total_expense"`
	Balance            Money         `json:"balance" yaml:"balance"`
	RecentTransactions []Transaction `json:"recentTransactions" yaml:"recent_transactions"`
}

// Normalize fills in defaults for fields the API omitted.
func (s *Summary) Normalize() {
	if s.RecentTransactions == nil {
		s.RecentTransactions = []Transaction{}
	}
}

// MonthlyPoint is income and expense for one month.
type MonthlyPoint struct {
	Month   string `json:"month" yaml:"month"`
	Income  Money  `json:"income" yaml:"income"`
	Expense Money  `json:"expense" yaml:"expense"`
}

// CategoryTotal is the total spent in one category.
type CategoryTotal struct {
	Category string `json:"category" yaml:"category"`
	Amount   Money  `json:"amount" yaml:"amount"`
}

// Analytics is the aggregate view returned by GET /analytics.
type Analytics struct {
	MonthlyData  []MonthlyPoint  `json:"monthlyData" yaml:"monthly"`
	CategoryData []CategoryTotal `json:"categoryData" yaml:"categories"`
}

// UnmarshalJSON decodes the API shape. Category entries arrive as
// {_id, total}. A field that is missing or not an array decodes as an
// empty list.
func (a *Analytics) UnmarshalJSON(data []byte) error {
	var raw struct {
		MonthlyData  json.RawMessage `json:"monthlyData"`
		CategoryData json.RawMessage `json:"categoryData"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	a.MonthlyData = []MonthlyPoint{}
	if isArray(raw.MonthlyData) {
		if err := json.Unmarshal(raw.MonthlyData, &a.MonthlyData); err != nil {
			return err
		}
	}

	a.CategoryData = []CategoryTotal{}
	if isArray(raw.CategoryData) {
		var entries []struct {
			ID    string `json:"_id"`
			Total Money  `json:"total"`
		}
		if err := json.Unmarshal(raw.CategoryData, &entries); err != nil {
			return err
		}
		for _, e := range entries {
			a.CategoryData = append(a.CategoryData, CategoryTotal{Category: e.ID, Amount: e.Total})
		}
	}
	return nil
}

func isArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}
