package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/erazemk/posiljke/internal/api"
	"github.com/erazemk/posiljke/internal/config"
	"github.com/erazemk/posiljke/internal/shipment"
	"github.com/erazemk/posiljke/internal/store"
)

const usage = `Usage: posiljke [serve|import] [flags]

Commands:
  serve    run the HTTP API (default)
  import   create packages from a CSV file

Run "posiljke <command> -h" for command flags.
`

func main() {
	args := os.Args[1:]
	cmd := "serve"
	if len(args) > 0 && (args[0] == "serve" || args[0] == "import") {
		cmd, args = args[0], args[1:]
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	switch cmd {
	case "serve":
		err = cmdServe(cfg, args)
	case "import":
		err = cmdImport(cfg, args)
	}
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// commonFlags registers the flags every command shares. Values start from
// the environment so flags only override.
func commonFlags(fs *flag.FlagSet, cfg *config.Config) {
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "")
	fs.StringVar(&cfg.DBPath, "d", cfg.DBPath, "")
	fs.StringVar(&cfg.LogFile, "log", cfg.LogFile, "")
	fs.StringVar(&cfg.LogFile, "l", cfg.LogFile, "")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "")
	fs.StringVar(&cfg.DestinationBranch, "dest", cfg.DestinationBranch, "")
	fs.IntVar(&cfg.BatchSize, "batch", cfg.BatchSize, "")
}

const commonUsage = `  -d, -db <path>          SQLite database path (default: posiljke.sqlite3)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -log-level <level>      debug, info, warn or error (default: info)
  -dest <branch>          default destination branch (default: the default branch)
  -batch <n>              rows written per batch (default: 50, at most 1000)
  -h, -help               show this help and exit
`

func cmdServe(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	commonFlags(fs, cfg)

	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "")
	fs.StringVar(&cfg.Addr, "a", cfg.Addr, "")

	var adminUser string
	fs.StringVar(&adminUser, "user", "admin", "")
	fs.StringVar(&adminUser, "u", "admin", "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, usage+`
Serve flags:
  -a, -addr <host:port>   listen address (default: :8080)
  -u, -user <name>        admin username on first run (default: admin)
`+commonUsage)
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}

	a, err := newApp(cfg, adminUser)
	if err != nil {
		return err
	}
	defer a.close()

	jwtSecret, err := store.GetJWTSecret(context.Background(), a.db)
	if err != nil {
		return fmt.Errorf("getting JWT secret: %w", err)
	}

	deps := a.deps(api.ClaimsIdentity())
	pcfg := a.pipelineConfig()
	router := api.NewRouter(a.db, jwtSecret,
		shipment.NewImporter(deps, pcfg),
		shipment.NewCreator(deps, pcfg),
		a.logger,
	)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		a.logger.Info("shutdown signal received", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			a.logger.Error("server forced to shutdown", zap.Error(err))
		}
	}()

	a.logger.Info("server started", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving: %w", err)
	}

	a.logger.Info("server stopped, closing database")
	return nil
}
