package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-account-go/internal/account"
	"github.com/ovaphlow/pitchfork/service-account-go/internal/account/repo"
	"github.com/ovaphlow/pitchfork/service-account-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-account-go/pkg/utilities"
)

const (
	storePostgres = "postgres"
	storeMemory   = "memory"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run parses global flags, wires what the command needs and executes it.
// It returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("accountctl", pflag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.SetOutput(stderr)
	envFile := fs.String("env-file", ".env", "dotenv file loaded before reading the environment")
	storeKind := fs.String("store", storePostgres, "account store: postgres or memory")
	passwordStdin := fs.Bool("password-stdin", false, "read passwords from stdin, one per line, instead of the terminal")
	fs.Usage = func() { printUsage(stderr, fs) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	rest := fs.Args()
	if len(rest) == 0 {
		printUsage(stderr, fs)
		return 2
	}
	cmd, ok := lookupCommand(rest[0])
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", rest[0])
		printUsage(stderr, fs)
		return 2
	}

	// load .env file if present so the env parsers pick values from it
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(stderr, "warning: load %s: %v\n", *envFile, err)
	}

	logCfg, err := utilities.ConfigFromEnv()
	if err != nil {
		fmt.Fprintf(stderr, "failed to read logger config: %v\n", err)
		return 1
	}
	lg, err := utilities.Init(logCfg)
	if err != nil {
		fmt.Fprintf(stderr, "failed to init logger: %v\n", err)
		return 1
	}
	defer lg.Sync()

	a := &app{
		ctx:           ctx,
		log:           lg.Sugar(),
		in:            bufio.NewReader(stdin),
		out:           stdout,
		errOut:        stderr,
		passwordStdin: *passwordStdin,
	}
	if err := a.setup(cmd.needs, *storeKind); err != nil {
		return exitCode(stderr, err)
	}
	defer a.close()

	return exitCode(stderr, cmd.run(a, rest[1:]))
}

type requirement int

const (
	needNothing requirement = iota
	needConfig
	needStore
	needService
)

// app carries the wired dependencies shared by all commands.
type app struct {
	ctx           context.Context
	log           *zap.SugaredLogger
	cfg           account.Config
	db            *sql.DB
	store         account.Store
	svc           *account.AccountService
	in            *bufio.Reader
	out           io.Writer
	errOut        io.Writer
	passwordStdin bool
}

func (a *app) setup(n requirement, storeKind string) error {
	if n == needNothing {
		return nil
	}
	cfg, err := account.ConfigFromEnv()
	if err != nil {
		return err
	}
	a.cfg = cfg
	if n == needConfig {
		return nil
	}

	ids := utilities.NewIDGeneratorFromEnv()
	switch storeKind {
	case storePostgres:
		dbCfg, err := database.ConfigFromEnv()
		if err != nil {
			return err
		}
		db, err := database.Connect(dbCfg)
		if err != nil {
			return fmt.Errorf("db connect: %w", err)
		}
		a.db = db
		a.store = repo.NewAccountRepo(sqlx.NewDb(db, dbCfg.Driver), ids)
	case storeMemory:
		a.store = repo.NewMemoryRepo(ids)
	default:
		return usageErrorf("unknown store %q (want %s or %s)", storeKind, storePostgres, storeMemory)
	}
	if n == needStore {
		return nil
	}

	svc, err := account.NewFromConfig(a.store, a.cfg, a.log)
	if err != nil {
		return err
	}
	a.svc = svc
	return nil
}

func (a *app) close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warnw("close db", "err", err)
		}
	}
}

// migrate applies the schema when the store is backed by PostgreSQL.
func (a *app) migrate() error {
	if a.db == nil {
		a.log.Debugw("no database, skipping migrations")
		return nil
	}
	if err := database.Migrate(a.ctx, a.db); err != nil {
		return err
	}
	a.log.Infow("migrations applied")
	return nil
}

type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func usageErrorf(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

func exitCode(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	var ue *usageError
	if errors.As(err, &ue) {
		fmt.Fprintf(w, "usage error: %v\n", err)
		return 2
	}
	if errors.Is(err, account.ErrConfiguration) {
		fmt.Fprintf(w, "configuration error: %v\n", err)
		return 1
	}
	fmt.Fprintf(w, "error: %v\n", err)
	return 1
}

func printUsage(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintln(w, "usage: accountctl [global flags] <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-14s %s\n", c.name, c.summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run \"accountctl bootstrap\" once per deployment before any other command.")
	fmt.Fprintln(w, "It applies migrations and makes sure the admin account exists.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "global flags:")
	fmt.Fprint(w, fs.FlagUsages())
}
