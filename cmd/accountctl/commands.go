package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/ovaphlow/pitchfork/service-account-go/internal/account"
	"github.com/ovaphlow/pitchfork/service-account-go/internal/account/entity"
)

type command struct {
	name    string
	summary string
	needs   requirement
	run     func(a *app, args []string) error
}

var commands = []command{
	{"migrate", "apply database migrations", needStore, runMigrate},
	{"bootstrap", "migrate and make sure an admin account exists", needService, runBootstrap},
	{"create", "create an account", needService, runCreate},
	{"login", "authenticate and print a session token", needService, runLogin},
	{"passwd", "change the password of an account", needService, runPasswd},
	{"update", "update names, role or password of an account", needService, runUpdate},
	{"delete", "delete an account", needService, runDelete},
	{"activate", "allow an account to log in", needService, runActivate},
	{"deactivate", "stop an account from logging in", needService, runDeactivate},
	{"list", "list all accounts", needService, runList},
	{"show", "show one account by id", needService, runShow},
	{"show-key", "show the account owning an access key", needService, runShowKey},
	{"default-admin", "show the default admin account", needService, runDefaultAdmin},
	{"verify-token", "verify a session token and print its claims", needService, runVerifyToken},
	{"genhash", "print a bcrypt hash for a password", needConfig, runGenhash},
}

func lookupCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func newFlagSet(a *app, name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

// parseFlags parses args and checks the number of positional arguments.
func parseFlags(fs *pflag.FlagSet, args []string, positional ...string) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		return nil, usageErrorf("%s: %v", fs.Name(), err)
	}
	rest := fs.Args()
	if len(rest) != len(positional) {
		want := ""
		for _, p := range positional {
			want += " <" + p + ">"
		}
		return nil, usageErrorf("usage: accountctl %s [flags]%s", fs.Name(), want)
	}
	return rest, nil
}

func runMigrate(a *app, args []string) error {
	if _, err := parseFlags(newFlagSet(a, "migrate"), args); err != nil {
		return err
	}
	if err := a.migrate(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "migrations up to date")
	return nil
}

func runBootstrap(a *app, args []string) error {
	if _, err := parseFlags(newFlagSet(a, "bootstrap"), args); err != nil {
		return err
	}
	if err := a.migrate(); err != nil {
		return err
	}
	if err := a.svc.EnsureAdminExists(a.ctx); err != nil {
		return err
	}
	admin, err := a.svc.GetDefaultAdmin(a.ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "admin account ready: %s (%s)\n", admin.Username, admin.ID)
	return nil
}

func runCreate(a *app, args []string) error {
	fs := newFlagSet(a, "create")
	username := fs.StringP("username", "u", "", "login name (required)")
	firstName := fs.String("first-name", "", "first name")
	lastName := fs.String("last-name", "", "last name")
	role := fs.String("role", string(entity.RoleUser), "role: admin or user")
	if _, err := parseFlags(fs, args); err != nil {
		return err
	}
	if *username == "" {
		return usageErrorf("create: --username is required")
	}
	pw, err := a.readNewSecret("Password")
	if err != nil {
		return err
	}
	view, err := a.svc.CreateAccount(a.ctx, account.CreateAccountInput{
		Username:  *username,
		Password:  pw,
		FirstName: *firstName,
		LastName:  *lastName,
		Role:      entity.Role(*role),
	})
	if err != nil {
		return err
	}
	return printJSON(a.out, view)
}

func runLogin(a *app, args []string) error {
	fs := newFlagSet(a, "login")
	username := fs.StringP("username", "u", "", "login name (required)")
	if _, err := parseFlags(fs, args); err != nil {
		return err
	}
	if *username == "" {
		return usageErrorf("login: --username is required")
	}
	pw, err := a.readSecret("Password")
	if err != nil {
		return err
	}
	sess, err := a.svc.Authenticate(a.ctx, *username, pw)
	if err != nil {
		return err
	}
	return printJSON(a.out, struct {
		Token     string              `json:"token"`
		ExpiresAt time.Time           `json:"expiresAt"`
		Account   *entity.AccountView `json:"account"`
	}{sess.Token, sess.ExpiresAt, sess.Account})
}

func runPasswd(a *app, args []string) error {
	rest, err := parseFlags(newFlagSet(a, "passwd"), args, "id")
	if err != nil {
		return err
	}
	oldPw, err := a.readSecret("Current password")
	if err != nil {
		return err
	}
	newPw, err := a.readNewSecret("New password")
	if err != nil {
		return err
	}
	if err := a.svc.ChangePassword(a.ctx, rest[0], oldPw, newPw); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "password changed")
	return nil
}

func runUpdate(a *app, args []string) error {
	fs := newFlagSet(a, "update")
	firstName := fs.String("first-name", "", "new first name")
	lastName := fs.String("last-name", "", "new last name")
	role := fs.String("role", "", "new role: admin or user")
	password := fs.Bool("password", false, "prompt for a new password")
	rest, err := parseFlags(fs, args, "id")
	if err != nil {
		return err
	}

	var in account.UpdateAccountInput
	if fs.Changed("first-name") {
		in.FirstName = firstName
	}
	if fs.Changed("last-name") {
		in.LastName = lastName
	}
	if fs.Changed("role") {
		r := entity.Role(*role)
		in.Role = &r
	}
	if *password {
		pw, err := a.readNewSecret("New password")
		if err != nil {
			return err
		}
		in.Password = &pw
	}
	if in == (account.UpdateAccountInput{}) {
		return usageErrorf("update: nothing to change")
	}
	if err := a.svc.UpdateAccount(a.ctx, rest[0], in); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "account updated")
	return nil
}

func runDelete(a *app, args []string) error {
	rest, err := parseFlags(newFlagSet(a, "delete"), args, "id")
	if err != nil {
		return err
	}
	if err := a.svc.DeleteAccount(a.ctx, rest[0]); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "account deleted")
	return nil
}

func runActivate(a *app, args []string) error {
	rest, err := parseFlags(newFlagSet(a, "activate"), args, "id")
	if err != nil {
		return err
	}
	if err := a.svc.ActivateAccount(a.ctx, rest[0]); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "account activated")
	return nil
}

func runDeactivate(a *app, args []string) error {
	rest, err := parseFlags(newFlagSet(a, "deactivate"), args, "id")
	if err != nil {
		return err
	}
	if err := a.svc.DeactivateAccount(a.ctx, rest[0]); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "account deactivated")
	return nil
}

func runList(a *app, args []string) error {
	fs := newFlagSet(a, "list")
	asJSON := fs.Bool("json", false, "print JSON instead of a table")
	if _, err := parseFlags(fs, args); err != nil {
		return err
	}
	list, err := a.svc.ListAccounts(a.ctx)
	if err != nil {
		return err
	}
	if *asJSON {
		return printJSON(a.out, list)
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSERNAME\tNAME\tROLE\tACTIVE\tCREATED")
	for _, v := range list {
		name := strings.TrimSpace(v.FirstName + " " + v.LastName)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\n", v.ID, v.Username, name, v.Role, v.IsActive, v.CreatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func runShow(a *app, args []string) error {
	rest, err := parseFlags(newFlagSet(a, "show"), args, "id")
	if err != nil {
		return err
	}
	view, err := a.svc.GetAccountByID(a.ctx, rest[0])
	if err != nil {
		return err
	}
	return printJSON(a.out, view)
}

func runShowKey(a *app, args []string) error {
	rest, err := parseFlags(newFlagSet(a, "show-key"), args, "access-key")
	if err != nil {
		return err
	}
	view, err := a.svc.GetAccountByAccessKey(a.ctx, rest[0])
	if err != nil {
		return err
	}
	return printJSON(a.out, view)
}

func runDefaultAdmin(a *app, args []string) error {
	if _, err := parseFlags(newFlagSet(a, "default-admin"), args); err != nil {
		return err
	}
	view, err := a.svc.GetDefaultAdmin(a.ctx)
	if err != nil {
		return err
	}
	return printJSON(a.out, view)
}

// runVerifyToken takes the token as argument, or reads it from stdin when the
// argument is omitted so it stays out of shell history.
func runVerifyToken(a *app, args []string) error {
	fs := newFlagSet(a, "verify-token")
	if err := fs.Parse(args); err != nil {
		return usageErrorf("verify-token: %v", err)
	}
	var token string
	switch fs.NArg() {
	case 0:
		line, err := a.in.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return fmt.Errorf("read token: %w", err)
		}
		token = strings.TrimSpace(line)
	case 1:
		token = fs.Arg(0)
	default:
		return usageErrorf("usage: accountctl verify-token [token]")
	}
	claims, err := a.svc.VerifyToken(token)
	if err != nil {
		return err
	}
	return printJSON(a.out, claims)
}

func runGenhash(a *app, args []string) error {
	if _, err := parseFlags(newFlagSet(a, "genhash"), args); err != nil {
		return err
	}
	pw, err := a.readNewSecret("Password")
	if err != nil {
		return err
	}
	if pw == "" {
		return usageErrorf("genhash: empty password")
	}
	h, err := account.BcryptHasher{Cost: a.cfg.BcryptCost}.Hash(pw)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, h)
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
