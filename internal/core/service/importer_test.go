package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/fintrack-go/internal/cli/connection"
	"github.com/yndnr/fintrack-go/internal/core/domain"
	"github.com/yndnr/fintrack-go/internal/telemetry/metric"
)

const sampleCSV = `type,amount,category,note,date
expense,12.50,Food,lunch,2024-03-01
income,"2500,00",Salary,,2024-03-31
expense,12.5,food,lunch,2024-03-01
expense,abc,Food,,2024-03-02
gift,10,Other,,2024-03-02
expense,3,Coffee,,03/04/2024
`

func TestParseImport_CSV(t *testing.T) {
	rows, err := ParseImport(strings.NewReader(sampleCSV), FormatCSV)
	if err != nil {
		t.Fatalf("ParseImport() error = %v", err)
	}
	if len(rows) != 6 {
		t.Fatalf("rows = %d, want 6", len(rows))
	}
	if rows[0].Line != 2 || rows[0].Tx.Amount != 1250 || rows[0].Tx.Note != "lunch" {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if rows[1].Tx.Amount != 250000 || rows[1].Tx.Type != domain.TxIncome {
		t.Errorf("row 1 = %+v", rows[1])
	}
	if !errors.Is(rows[3].Err, domain.ErrInvalidAmount) {
		t.Errorf("row 3 error = %v", rows[3].Err)
	}
	if !errors.Is(rows[4].Err, domain.ErrInvalidType) {
		t.Errorf("row 4 error = %v", rows[4].Err)
	}
}

func TestParseImport_CSVMissingColumn(t *testing.T) {
	_, err := ParseImport(strings.NewReader("type,amount,date\n"), FormatCSV)
	if err == nil || !strings.Contains(err.Error(), `"category"`) {
		t.Errorf("ParseImport() error = %v", err)
	}
}

func TestParseImport_JSON(t *testing.T) {
	in := `[
		{"type":"expense","amount":9.99,"category":"Music","date":"2024-01-02"},
		{"type":"INCOME","amount":"100","category":"Gift","date":"2024-01-03","_id":"ignored"},
		{"type":"expense","amount":{},"category":"x","date":"2024-01-04"}
	]`
	rows, err := ParseImport(strings.NewReader(in), FormatJSON)
	if err != nil {
		t.Fatalf("ParseImport() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d", len(rows))
	}
	if rows[0].Tx.Amount != 999 || rows[1].Tx.Type != domain.TxIncome || rows[1].Tx.ID != "" {
		t.Errorf("rows = %+v", rows[:2])
	}
	if rows[2].Err == nil || rows[2].Line != 3 {
		t.Errorf("row 3 = %+v", rows[2])
	}

	if _, err := ParseImport(strings.NewReader(`{"not":"array"}`), FormatJSON); err == nil {
		t.Error("non-array JSON should fail")
	}
}

func TestImporter_AgainstAPI(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, testEmail)
	reg := metric.NewRegistry()
	im := NewImporter(NewFinanceService(env.client), reg, nil)

	report, err := im.Import(context.Background(), strings.NewReader(sampleCSV), ImportOptions{Format: FormatCSV, Concurrency: 2})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if report.Total != 6 || report.Created != 2 || report.Skipped != 1 || len(report.Failed) != 3 {
		t.Errorf("report = %+v", report)
	}
	for i := 1; i < len(report.Failed); i++ {
		if report.Failed[i-1].Line > report.Failed[i].Line {
			t.Errorf("failures not sorted: %+v", report.Failed)
		}
	}
	if n := len(env.api.Transactions(testEmail)); n != 2 {
		t.Errorf("stored transactions = %d, want 2", n)
	}
	if got := testutil.ToFloat64(reg.ImportedTransactions.WithLabelValues("created")); got != 2 {
		t.Errorf("created metric = %v, want 2", got)
	}
}

type fakeCreator struct {
	mu       sync.Mutex
	calls    atomic.Int32
	inFlight atomic.Int32
	maxSeen  int32
	fail     func(tx domain.Transaction) error
}

func (f *fakeCreator) CreateTransaction(_ context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	f.mu.Lock()
	if n > f.maxSeen {
		f.maxSeen = n
	}
	f.mu.Unlock()
	if f.fail != nil {
		if err := f.fail(tx); err != nil {
			return nil, err
		}
	}
	return &tx, nil
}

func manyRows(n int) string {
	var b strings.Builder
	b.WriteString("type,amount,category,date\n")
	for i := 1; i <= n; i++ {
		b.WriteString("expense,")
		b.WriteString(strings.Repeat("1", i%9+1))
		b.WriteString(".")
		b.WriteString(string(rune('0' + i%10)))
		b.WriteString(",Cat")
		b.WriteString(string(rune('A' + i%26)))
		b.WriteString(",2024-01-01\n")
	}
	return b.String()
}

func TestImporter_ConcurrencyLimit(t *testing.T) {
	fc := &fakeCreator{}
	im := NewImporter(fc, nil, nil)

	report, err := im.Import(context.Background(), strings.NewReader(manyRows(40)), ImportOptions{Concurrency: 3})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if report.Created+report.Skipped != 40 {
		t.Errorf("report = %+v", report)
	}
	if fc.maxSeen > 3 {
		t.Errorf("max in flight = %d, want <= 3", fc.maxSeen)
	}
}

func TestImporter_Progress(t *testing.T) {
	var last, calls int
	opts := ImportOptions{Concurrency: 2, OnProgress: func(done, total int) {
		calls++
		last = done
		if total != 3 {
			t.Errorf("total = %d, want 3", total)
		}
	}}
	in := "type,amount,category,date\nexpense,1,A,2024-01-01\nexpense,2,B,2024-01-01\nexpense,3,C,2024-01-01\n"
	if _, err := NewImporter(&fakeCreator{}, nil, nil).Import(context.Background(), strings.NewReader(in), opts); err != nil {
		t.Fatal(err)
	}
	if calls != 3 || last != 3 {
		t.Errorf("progress calls = %d, last = %d", calls, last)
	}
}

func TestImporter_RequestFailureIsReported(t *testing.T) {
	fc := &fakeCreator{fail: func(tx domain.Transaction) error {
		if tx.Category == "Rent" {
			return &connection.APIError{Status: 500, Message: "boom"}
		}
		return nil
	}}
	in := "type,amount,category,date\nexpense,1,Rent,2024-01-01\nexpense,2,Food,2024-01-01\n"

	report, err := NewImporter(fc, nil, nil).Import(context.Background(), strings.NewReader(in), ImportOptions{})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if report.Created != 1 || len(report.Failed) != 1 || report.Failed[0].Line != 2 {
		t.Errorf("report = %+v", report)
	}
}

func TestImporter_SessionExpiryAborts(t *testing.T) {
	fc := &fakeCreator{fail: func(domain.Transaction) error {
		return &connection.SessionExpiredError{Path: TransactionsPath}
	}}

	report, err := NewImporter(fc, nil, nil).Import(context.Background(), strings.NewReader(manyRows(30)), ImportOptions{Concurrency: 1})
	if !errors.Is(err, connection.ErrSessionExpired) {
		t.Fatalf("Import() error = %v, want session expired", err)
	}
	if report == nil || report.Created != 0 {
		t.Errorf("report = %+v", report)
	}
	if calls := fc.calls.Load(); calls >= 30 {
		t.Errorf("creator called %d times, import did not stop", calls)
	}
}

func TestImporter_RateLimited(t *testing.T) {
	fc := &fakeCreator{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewImporter(fc, nil, nil).Import(ctx, strings.NewReader(manyRows(5)), ImportOptions{Rate: 1})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Import() error = %v, want context.Canceled", err)
	}
	if fc.calls.Load() != 0 {
		t.Errorf("calls = %d, want 0", fc.calls.Load())
	}
}

func TestParseImportFormat(t *testing.T) {
	if f, err := ParseImportFormat("JSON"); err != nil || f != FormatJSON {
		t.Errorf("ParseImportFormat(JSON) = %q, %v", f, err)
	}
	if _, err := ParseImportFormat("xlsx"); err == nil {
		t.Error("xlsx should be rejected")
	}
}
