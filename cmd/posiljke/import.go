package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/erazemk/posiljke/internal/config"
	"github.com/erazemk/posiljke/internal/sheet"
	"github.com/erazemk/posiljke/internal/shipment"
	"github.com/erazemk/posiljke/internal/store"
)

type importArgs struct {
	file     string
	user     string
	encoding string
}

func cmdImport(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	commonFlags(fs, cfg)

	var ia importArgs
	fs.StringVar(&ia.file, "file", "", "")
	fs.StringVar(&ia.file, "f", "", "")
	fs.StringVar(&ia.user, "user", "", "")
	fs.StringVar(&ia.user, "u", "", "")
	fs.StringVar(&ia.encoding, "encoding", "", "")
	fs.StringVar(&ia.encoding, "e", "", "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, usage+`
Import flags:
  -f, -file <path>        CSV file to import, "-" for stdin (required)
  -u, -user <name>        user the packages are created by (required)
  -e, -encoding <name>    input encoding: `+strings.Join(sheet.Encodings(), ", ")+` (default: utf-8)
`+commonUsage)
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if ia.file == "" || ia.user == "" {
		fs.Usage()
		return errors.New("-file and -user are required")
	}

	var in io.Reader = os.Stdin
	if ia.file != "-" {
		f, err := os.Open(ia.file)
		if err != nil {
			return fmt.Errorf("opening input: %w", err)
		}
		defer f.Close()
		in = f
	}

	// An existing database is required; import never creates one.
	if _, err := os.Stat(cfg.DBPath); err != nil {
		return fmt.Errorf("database %s: %w", cfg.DBPath, err)
	}
	a, err := newApp(cfg, "")
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rep, err := runImport(ctx, a, in, ia, os.Stdout)
	if err != nil {
		return err
	}
	if rep.Cancelled {
		return errors.New("import cancelled, rows after the last written batch were not imported")
	}
	if rep.ErrorCount > 0 {
		return fmt.Errorf("%d of %d rows failed", rep.ErrorCount, rep.Total)
	}
	return nil
}

// runImport authenticates the named user and imports in, writing progress
// lines and a summary to out.
func runImport(ctx context.Context, a *app, in io.Reader, ia importArgs, out io.Writer) (*shipment.Report, error) {
	user, err := store.GetUserByUsername(ctx, a.db, ia.user)
	if err != nil {
		return nil, err
	}
	if user == nil || user.DeletedAt != nil {
		return nil, fmt.Errorf("%w: unknown user %q", shipment.ErrUnauthenticated, ia.user)
	}

	importer := shipment.NewImporter(a.deps(shipment.StaticIdentity(user.ID)), a.pipelineConfig())
	rep, err := importer.ImportCSV(ctx, in, shipment.Options{
		Destination: a.cfg.DestinationBranch,
		Encoding:    ia.encoding,
		Progress: func(processed, total int) {
			fmt.Fprintf(out, "processed %d/%d rows\n", processed, total)
		},
	})
	if err != nil {
		return nil, err
	}

	printSummary(out, rep)
	return rep, nil
}

func printSummary(out io.Writer, rep *shipment.Report) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Rows:     %d\n", rep.Total)
	fmt.Fprintf(out, "Created:  %d\n", rep.SuccessCount)
	fmt.Fprintf(out, "Skipped:  %d\n", rep.SkippedCount)
	fmt.Fprintf(out, "Failed:   %d\n", rep.ErrorCount)
	fmt.Fprintf(out, "Warnings: %d\n", rep.WarningCount)

	printList(out, "Errors", rep.Errors, rep.ErrorCount)
	printList(out, "Warnings", rep.Warnings, rep.WarningCount)
}

func printList(out io.Writer, title string, lines []string, total int) {
	if len(lines) == 0 {
		return
	}
	fmt.Fprintf(out, "\n%s:\n", title)
	for _, l := range lines {
		fmt.Fprintf(out, "  %s\n", l)
	}
	if more := total - len(lines); more > 0 {
		fmt.Fprintf(out, "  ... and %d more\n", more)
	}
}
