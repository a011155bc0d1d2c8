package command

import (
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/yndnr/fintrack-go/internal/cli/output"
	"github.com/yndnr/fintrack-go/internal/core/domain"
	"github.com/yndnr/fintrack-go/internal/storage/archive"
)

// ExportCommand archives the dashboard and analytics into SQLite.
func ExportCommand() *cli.Command {
	return &cli.Command{
		Name:   "export",
		Usage:  "Save a snapshot of the dashboard and analytics to a local database",
		Flags:  []cli.Flag{dbFlag()},
		Action: exportSnapshot,
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List stored snapshots",
				Flags:  []cli.Flag{dbFlag()},
				Action: exportList,
			},
			{
				Name:      "show",
				Usage:     "Show a stored snapshot",
				ArgsUsage: "ID",
				Flags:     []cli.Flag{dbFlag()},
				Action:    exportShow,
			},
		},
	}
}

func dbFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "db",
		Usage: "snapshot database (default ~/.fintrack/archive.db)",
	}
}

func openArchive(c *cli.Context, rt *Runtime) (*archive.Archive, error) {
	path := c.String("db")
	if path == "" {
		path = rt.Config().ArchivePath()
	}
	a, err := archive.Open(path)
	if err != nil {
		return nil, err
	}
	rt.Logger.Debug("archive opened", "path", path)
	return a, nil
}

func exportSnapshot(c *cli.Context) error {
	rt, fin, err := financeService(c)
	if err != nil {
		return err
	}
	ctx, cancel := rt.requestContext(c)
	defer cancel()

	var (
		sum *domain.Summary
		an  *domain.Analytics
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sum, err = fin.Summary(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		an, err = fin.Analytics(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return fail(c, "export", err)
	}

	a, err := openArchive(c, rt)
	if err != nil {
		return fail(c, "export", err)
	}
	defer a.Close()

	id, err := a.Write(ctx, archive.Snapshot{
		Server:    rt.Config().Server,
		Summary:   *sum,
		Analytics: *an,
	})
	if err != nil {
		return fail(c, "export", err)
	}
	fmt.Fprintf(c.App.Writer, "Snapshot %d saved\n", id)
	return nil
}

func exportList(c *cli.Context) error {
	rt, err := GetRuntime(c)
	if err != nil {
		return err
	}
	a, err := openArchive(c, rt)
	if err != nil {
		return fail(c, "list snapshots", err)
	}
	defer a.Close()

	infos, err := a.List(c.Context)
	if err != nil {
		return fail(c, "list snapshots", err)
	}
	return render(c, infos)
}

func exportShow(c *cli.Context) error {
	id, err := strconv.ParseInt(c.Args().First(), 10, 64)
	if err != nil || c.NArg() != 1 {
		return fail(c, "show snapshot", fmt.Errorf("expected one numeric snapshot ID"))
	}
	rt, err := GetRuntime(c)
	if err != nil {
		return err
	}
	a, err := openArchive(c, rt)
	if err != nil {
		return fail(c, "show snapshot", err)
	}
	defer a.Close()

	s, err := a.Load(c.Context, id)
	if err != nil {
		return fail(c, "show snapshot", err)
	}
	return render(c, snapshotView{id: id, Snapshot: s})
}

type snapshotView struct {
	id int64
	*archive.Snapshot
}

func (v snapshotView) View() any {
	return map[string]any{
		"id":        v.id,
		"taken_at":  v.TakenAt,
		"server":    v.Server,
		"summary":   v.Summary,
		"analytics": v.Analytics,
	}
}

func (v snapshotView) Tables(wide bool) []*output.Table {
	head := output.NewTable("", "TAKEN AT", "SERVER")
	head.AddRow(v.TakenAt.Local().Format("2006-01-02 15:04"), v.Server)
	tables := []*output.Table{head}
	tables = append(tables, summaryView{&v.Summary}.Tables(wide)...)
	return append(tables, analyticsView{&v.Analytics}.Tables(wide)...)
}
