package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/spaolacci/murmur3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/yndnr/fintrack-go/internal/cli/connection"
	"github.com/yndnr/fintrack-go/internal/core/domain"
	"github.com/yndnr/fintrack-go/internal/telemetry/logger"
	"github.com/yndnr/fintrack-go/internal/telemetry/metric"
)

// ImportFormat is the layout of an import file.
type ImportFormat string

const (
	FormatCSV  ImportFormat = "csv"
	FormatJSON ImportFormat = "json"
)

// ParseImportFormat accepts "csv" or "json".
func ParseImportFormat(s string) (ImportFormat, error) {
	switch f := ImportFormat(strings.ToLower(s)); f {
	case FormatCSV, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("unsupported import format %q", s)
}

// ImportOptions tunes an import.
type ImportOptions struct {
	Format ImportFormat
	// Concurrency is the number of requests in flight (default 4).
	Concurrency int
	// Rate is the request rate per second; 0 means unlimited.
	Rate float64
	// Burst is the limiter bucket size (default 1).
	Burst int
	// OnProgress, when set, is called after each request with the
	// number of finished requests and the number scheduled.
	OnProgress func(done, total int)
}

// ImportFailure is a row that was not created.
type ImportFailure struct {
	Line   int    `json:"line" yaml:"line"`
	Reason string `json:"reason" yaml:"reason"`
}

// ImportReport summarizes an import.
type ImportReport struct {
	Total   int             `json:"total" yaml:"total"`
	Created int             `json:"created" yaml:"created"`
	Skipped int             `json:"skipped" yaml:"skipped"`
	Failed  []ImportFailure `json:"failed" yaml:"failed"`
}

// TransactionCreator is implemented by FinanceService.
type TransactionCreator interface {
	CreateTransaction(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error)
}

// Importer creates transactions in bulk.
type Importer struct {
	creator TransactionCreator
	metrics *metric.Registry
	log     logger.Logger
}

func NewImporter(creator TransactionCreator, metrics *metric.Registry, log logger.Logger) *Importer {
	if log == nil {
		log = logger.Default()
	}
	return &Importer{creator: creator, metrics: metrics, log: log}
}

// ImportRow is one parsed input record. Err is set when the record
// could not be turned into a transaction.
type ImportRow struct {
	Line int
	Tx   domain.Transaction
	Err  error
}

// Import reads r and creates every valid, non-duplicate transaction.
// Invalid rows and rejected requests are listed in the report. A
// session expiry stops the import and is returned with the partial
// report.
func (im *Importer) Import(ctx context.Context, r io.Reader, opts ImportOptions) (*ImportReport, error) {
	rows, err := ParseImport(r, opts.Format)
	if err != nil {
		return nil, err
	}

	report := &ImportReport{Total: len(rows), Failed: []ImportFailure{}}
	seen := make(map[uint64]struct{}, len(rows))
	var pending []ImportRow
	for _, row := range rows {
		if row.Err == nil {
			row.Err = row.Tx.Validate()
		}
		if row.Err != nil {
			report.Failed = append(report.Failed, ImportFailure{Line: row.Line, Reason: row.Err.Error()})
			continue
		}
		fp := fingerprint(row.Tx)
		if _, dup := seen[fp]; dup {
			report.Skipped++
			continue
		}
		seen[fp] = struct{}{}
		pending = append(pending, row)
	}

	err = im.create(ctx, pending, opts, report)

	sort.Slice(report.Failed, func(i, j int) bool { return report.Failed[i].Line < report.Failed[j].Line })
	im.metrics.Imported("created", report.Created)
	im.metrics.Imported("skipped", report.Skipped)
	im.metrics.Imported("failed", len(report.Failed))
	im.log.WithContext(ctx).Info("import finished",
		"total", report.Total, "created", report.Created,
		"skipped", report.Skipped, "failed", len(report.Failed))
	return report, err
}

func (im *Importer) create(ctx context.Context, rows []ImportRow, opts ImportOptions, report *ImportReport) error {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	limit := rate.Inf
	if opts.Rate > 0 {
		limit = rate.Limit(opts.Rate)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	limiter := rate.NewLimiter(limit, burst)

	var (
		mu       sync.Mutex
		finished int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, row := range rows {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				return err
			}
			_, err := im.creator.CreateTransaction(gctx, row.Tx)
			if errors.Is(err, connection.ErrSessionExpired) {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			finished++
			if opts.OnProgress != nil {
				opts.OnProgress(finished, len(rows))
			}
			if err != nil {
				report.Failed = append(report.Failed, ImportFailure{Line: row.Line, Reason: err.Error()})
				return nil
			}
			report.Created++
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// fingerprint identifies a transaction by its normalized content.
func fingerprint(tx domain.Transaction) uint64 {
	key := strings.Join([]string{
		string(tx.Type),
		strconv.FormatInt(int64(tx.Amount), 10),
		strings.ToLower(strings.TrimSpace(tx.Category)),
		strings.TrimSpace(tx.Note),
		tx.Day(),
	}, "\x1f")
	return murmur3.Sum64([]byte(key))
}

// ParseImport decodes r into rows. Decoding problems that affect the
// whole input are returned as an error; per-row problems are recorded
// on the row.
func ParseImport(r io.Reader, format ImportFormat) ([]ImportRow, error) {
	switch format {
	case FormatCSV, "":
		return parseCSV(r)
	case FormatJSON:
		return parseJSON(r)
	default:
		return nil, fmt.Errorf("unsupported import format %q", format)
	}
}

var csvColumns = []string{"type", "amount", "category", "note", "date"}

// parseCSV reads a file with a header row naming the columns. note is
// optional; the others are required.
func parseCSV(r io.Reader) ([]ImportRow, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range csvColumns {
		if _, ok := idx[col]; !ok && col != "note" {
			return nil, fmt.Errorf("csv header is missing column %q", col)
		}
	}

	var rows []ImportRow
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		field := func(name string) string {
			i, ok := idx[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		row := ImportRow{Line: line}
		row.Tx.Category = field("category")
		row.Tx.Note = field("note")
		row.Tx.Date = field("date")
		row.Tx.Type, row.Err = domain.ParseTxType(field("type"))
		if row.Err == nil {
			row.Tx.Amount, row.Err = domain.ParseMoney(field("amount"))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// parseJSON reads an array of transaction objects. Line is the 1-based
// position in the array.
func parseJSON(r io.Reader) ([]ImportRow, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode json import: %w", err)
	}
	rows := make([]ImportRow, 0, len(raw))
	for i, item := range raw {
		row := ImportRow{Line: i + 1}
		if err := json.Unmarshal(item, &row.Tx); err != nil {
			row.Err = fmt.Errorf("decode entry: %w", err)
		} else if row.Tx.Type, err = domain.ParseTxType(string(row.Tx.Type)); err != nil {
			row.Err = err
		}
		row.Tx.ID = ""
		rows = append(rows, row)
	}
	return rows, nil
}
