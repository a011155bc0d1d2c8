package command

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/fintrack-go/internal/cli/output"
	"github.com/yndnr/fintrack-go/internal/core/domain"
	"github.com/yndnr/fintrack-go/internal/core/service"
)

// TxCommand returns the transaction subcommand group.
func TxCommand() *cli.Command {
	return &cli.Command{
		Name:    "tx",
		Aliases: []string{"transaction"},
		Usage:   "Manage transactions",
		Subcommands: []*cli.Command{
			{
				Name:   "add",
				Usage:  "Record a transaction",
				Flags:  txFlags(false),
				Action: txAdd,
			},
			{
				Name:   "edit",
				Usage:  "Replace a transaction",
				Flags:  append([]cli.Flag{idFlag()}, txFlags(true)...),
				Action: txEdit,
			},
			{
				Name:    "delete",
				Aliases: []string{"rm"},
				Usage:   "Delete a transaction",
				Flags: []cli.Flag{
					idFlag(),
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "skip confirmation",
					},
				},
				Action: txDelete,
			},
			{
				Name:      "import",
				Usage:     "Create transactions from a CSV or JSON file",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "format",
						Usage: "csv or json (default from the file extension)",
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "requests in flight (default from config)",
					},
					&cli.Float64Flag{
						Name:  "rate",
						Usage: "requests per second, 0 for unlimited (default from config)",
					},
				},
				Action: txImport,
			},
		},
	}
}

func idFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "id",
		Usage:    "transaction id",
		Required: true,
	}
}

// txFlags returns the transaction fields. Every field is required for
// edit, which replaces the whole transaction.
func txFlags(edit bool) []cli.Flag {
	date := &cli.StringFlag{
		Name:    "date",
		Aliases: []string{"d"},
		Usage:   "date as YYYY-MM-DD (default today)",
	}
	if edit {
		date.Usage = "date as YYYY-MM-DD"
		date.Required = true
	}
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "type",
			Aliases:  []string{"t"},
			Usage:    "income or expense",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "amount",
			Aliases:  []string{"a"},
			Usage:    "positive amount, e.g. 12.50",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "category",
			Aliases:  []string{"C"},
			Usage:    "category name",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "note",
			Aliases: []string{"n"},
			Usage:   "free-form note",
		},
		date,
	}
}

// transactionFromFlags builds and validates a transaction.
func transactionFromFlags(c *cli.Context) (domain.Transaction, error) {
	typ, err := domain.ParseTxType(c.String("type"))
	if err != nil {
		return domain.Transaction{}, err
	}
	amount, err := domain.ParseMoney(c.String("amount"))
	if err != nil {
		return domain.Transaction{}, err
	}
	date := c.String("date")
	if date == "" {
		date = time.Now().Format(domain.DateLayout)
	}
	tx := domain.Transaction{
		Type:     typ,
		Amount:   amount,
		Category: strings.TrimSpace(c.String("category")),
		Note:     strings.TrimSpace(c.String("note")),
		Date:     date,
	}
	return tx, tx.Validate()
}

func txAdd(c *cli.Context) error {
	rt, fin, err := financeService(c)
	if err != nil {
		return err
	}
	tx, err := transactionFromFlags(c)
	if err != nil {
		return fail(c, "add transaction", err)
	}

	ctx, cancel := rt.requestContext(c)
	defer cancel()

	created, err := fin.CreateTransaction(ctx, tx)
	if err != nil {
		return fail(c, "add transaction", err)
	}
	return render(c, created)
}

func txEdit(c *cli.Context) error {
	rt, fin, err := financeService(c)
	if err != nil {
		return err
	}
	tx, err := transactionFromFlags(c)
	if err != nil {
		return fail(c, "edit transaction", err)
	}

	ctx, cancel := rt.requestContext(c)
	defer cancel()

	updated, err := fin.UpdateTransaction(ctx, c.String("id"), tx)
	if err != nil {
		return fail(c, "edit transaction", err)
	}
	return render(c, updated)
}

func txDelete(c *cli.Context) error {
	rt, fin, err := financeService(c)
	if err != nil {
		return err
	}
	id := c.String("id")

	if !c.Bool("force") {
		ok, err := rt.confirm(fmt.Sprintf("Delete transaction %s?", id))
		if err != nil {
			return fail(c, "delete transaction", err)
		}
		if !ok {
			fmt.Fprintln(c.App.Writer, "Cancelled")
			return nil
		}
	}

	ctx, cancel := rt.requestContext(c)
	defer cancel()

	if err := fin.DeleteTransaction(ctx, id); err != nil {
		return fail(c, "delete transaction", err)
	}
	fmt.Fprintf(c.App.Writer, "Transaction %s deleted\n", id)
	return nil
}

func txImport(c *cli.Context) error {
	if c.NArg() != 1 {
		return fail(c, "import", fmt.Errorf("expected exactly one FILE argument"))
	}
	path := c.Args().First()

	name := c.String("format")
	if name == "" {
		name = strings.TrimPrefix(filepath.Ext(path), ".")
	}
	format, err := service.ParseImportFormat(name)
	if err != nil {
		return fail(c, "import", err)
	}

	rt, fin, err := financeService(c)
	if err != nil {
		return err
	}
	cfg := rt.Config()
	opts := service.ImportOptions{
		Format:      format,
		Concurrency: cfg.Import.Concurrency,
		Rate:        cfg.Import.Rate,
		Burst:       cfg.Import.Burst,
	}
	if c.IsSet("concurrency") {
		opts.Concurrency = c.Int("concurrency")
	}
	if c.IsSet("rate") {
		opts.Rate = c.Float64("rate")
	}

	f, err := os.Open(path)
	if err != nil {
		return fail(c, "import", err)
	}
	defer f.Close()

	bar := output.NewProgressBar(c.App.ErrWriter, "Importing", 0)
	progressed := false
	opts.OnProgress = func(done, total int) {
		progressed = true
		bar.Set(done, total)
	}

	// The import as a whole is not bounded by the per-request timeout.
	report, err := service.NewImporter(fin, rt.Metrics, rt.Logger).Import(c.Context, f, opts)
	if progressed {
		bar.Finish()
	}
	if report != nil {
		if rerr := render(c, importView{report}); rerr != nil {
			return rerr
		}
	}
	if err != nil {
		return fail(c, "import", err)
	}
	return nil
}

type importView struct {
	*service.ImportReport
}

func (v importView) View() any { return v.ImportReport }

func (v importView) Tables(bool) []*output.Table {
	totals := output.NewTable("", "TOTAL", "CREATED", "SKIPPED", "FAILED")
	totals.AddRow(strconv.Itoa(v.Total), strconv.Itoa(v.Created), strconv.Itoa(v.Skipped), strconv.Itoa(len(v.Failed)))
	tables := []*output.Table{totals}
	if len(v.Failed) > 0 {
		failed := output.NewTable("Failed rows", "LINE", "REASON")
		for _, f := range v.Failed {
			failed.AddRow(strconv.Itoa(f.Line), f.Reason)
		}
		tables = append(tables, failed)
	}
	return tables
}
