package command

import (
	"github.com/urfave/cli/v2"

	"github.com/yndnr/fintrack-go/internal/cli/output"
	"github.com/yndnr/fintrack-go/internal/core/domain"
	"github.com/yndnr/fintrack-go/internal/core/service"
)

// DashboardCommand shows totals and recent transactions.
func DashboardCommand() *cli.Command {
	return &cli.Command{
		Name:    "dashboard",
		Aliases: []string{"dash"},
		Usage:   "Show totals and recent transactions",
		Action:  dashboard,
	}
}

// AnalyticsCommand shows monthly and per-category figures.
func AnalyticsCommand() *cli.Command {
	return &cli.Command{
		Name:   "analytics",
		Usage:  "Show monthly income and expenses and spending by category",
		Action: analytics,
	}
}

func financeService(c *cli.Context) (*Runtime, *service.FinanceService, error) {
	rt, cl, err := client(c)
	if err != nil {
		return nil, nil, err
	}
	return rt, service.NewFinanceService(cl), nil
}

func dashboard(c *cli.Context) error {
	rt, fin, err := financeService(c)
	if err != nil {
		return err
	}
	ctx, cancel := rt.requestContext(c)
	defer cancel()

	sum, err := fin.Summary(ctx)
	if err != nil {
		return fail(c, "dashboard", err)
	}
	return render(c, summaryView{sum})
}

func analytics(c *cli.Context) error {
	rt, fin, err := financeService(c)
	if err != nil {
		return err
	}
	ctx, cancel := rt.requestContext(c)
	defer cancel()

	a, err := fin.Analytics(ctx)
	if err != nil {
		return fail(c, "analytics", err)
	}
	return render(c, analyticsView{a})
}

type summaryView struct {
	*domain.Summary
}

func (v summaryView) View() any { return v.Summary }

func (v summaryView) Tables(wide bool) []*output.Table {
	totals := output.NewTable("", "INCOME", "EXPENSES", "BALANCE")
	totals.AddRow(v.TotalIncome.String(), v.TotalExpense.String(), v.Balance.String())
	return []*output.Table{totals, transactionsTable("Recent transactions", v.RecentTransactions, wide)}
}

// transactionsTable lays out transactions; the id column is wide-only.
func transactionsTable(title string, txs []domain.Transaction, wide bool) *output.Table {
	headers := []string{"DATE", "TYPE", "CATEGORY", "AMOUNT", "NOTE"}
	if wide {
		headers = append([]string{"ID"}, headers...)
	}
	t := output.NewTable(title, headers...)
	for _, tx := range txs {
		row := []string{tx.Day(), string(tx.Type), tx.Category, tx.Signed().String(), dash(tx.Note)}
		if wide {
			row = append([]string{tx.ID}, row...)
		}
		t.AddRow(row...)
	}
	return t
}

type analyticsView struct {
	*domain.Analytics
}

func (v analyticsView) View() any { return v.Analytics }

func (v analyticsView) Tables(bool) []*output.Table {
	monthly := output.NewTable("Monthly", "MONTH", "INCOME", "EXPENSES", "NET")
	for _, m := range v.MonthlyData {
		monthly.AddRow(m.Month, m.Income.String(), m.Expense.String(), (m.Income - m.Expense).String())
	}
	categories := output.NewTable("Spending by category", "CATEGORY", "AMOUNT")
	for _, ct := range v.CategoryData {
		categories.AddRow(ct.Category, ct.Amount.String())
	}
	return []*output.Table{monthly, categories}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
