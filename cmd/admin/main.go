package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/tendant/simple-cms/pkg/cms"
	"github.com/tendant/simple-cms/pkg/cms/config"
)

const usage = `Simple CMS Admin CLI

A lightweight admin tool that works directly against the configured database.

USAGE:
  admin <command> [options]

COMMANDS:
  list               List records of one type (users, media, pages, posts)
  stats              Count records of every type
  create-user        Create a user with a hashed password
  migrate-passwords  Hash every stored password that is still plaintext

ENVIRONMENT VARIABLES:
  DATABASE_URL      memory, mongodb://... or postgres://... (default: memory)
  DATABASE_NAME     Mongo database name (default: cms)
  BCRYPT_COST       bcrypt work factor for new hashes

  Configuration can be loaded from a .env file in the current directory.
  Command line environment variables override .env file values.

EXAMPLES:
  # List users
  admin list --type=users

  # Count everything as JSON
  admin stats --json

  # Create an editor account
  admin create-user --username=ada --password=secret --name="Ada" --role=Editor

  # Convert plaintext passwords left by older deployments
  admin migrate-passwords

OPTIONS:
  --type=<type>        Record type for list (default: pages)
  --username=<name>    Username for create-user
  --password=<pw>      Password for create-user
  --name=<name>        Display name for create-user
  --role=<role>        Role for create-user (default: Administrator)
  --json               Output as JSON
`

func main() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Print(usage + "\n")
		os.Exit(1)
	}

	command := os.Args[1]

	// Check for help
	if command == "help" || command == "--help" || command == "-h" {
		fmt.Print(usage + "\n")
		os.Exit(0)
	}

	ctx := context.Background()
	svc, closeFn, err := createService(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create service: %v\n", err)
		os.Exit(1)
	}
	defer closeFn()

	if err := runCommand(ctx, os.Stdout, svc, command, parseFlags(os.Args[2:])); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		if errors.Is(err, errUnknownCommand) {
			fmt.Print(usage + "\n")
		}
		closeFn()
		os.Exit(1)
	}
}

var errUnknownCommand = errors.New("unknown command")

// createService builds the service from the environment with event logging
// and upload storage left at their in-memory defaults.
func createService(ctx context.Context) (cms.Service, func(), error) {
	serverConfig, err := config.Load(
		config.WithEnv(),
		config.WithMemoryStorage(),
		config.WithEventLogging(false),
	)
	if err != nil {
		return nil, nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	built, err := serverConfig.Build(ctx, logger)
	if err != nil {
		return nil, nil, err
	}

	closed := false
	return built.Service, func() {
		if closed {
			return
		}
		closed = true
		_ = built.Close(context.Background())
	}, nil
}

func runCommand(ctx context.Context, out io.Writer, svc cms.Service, command string, flags map[string]string) error {
	_, useJSON := flags["json"]

	switch command {
	case "list":
		return handleList(ctx, out, svc, flagOr(flags, "type", string(cms.RecordTypePages)), useJSON)
	case "stats":
		return handleStats(ctx, out, svc, useJSON)
	case "create-user":
		return handleCreateUser(ctx, out, svc, flags, useJSON)
	case "migrate-passwords":
		return handleMigratePasswords(ctx, out, svc, useJSON)
	default:
		return fmt.Errorf("%w: %s", errUnknownCommand, command)
	}
}

// parseFlags reads --key=value and bare --key arguments
func parseFlags(args []string) map[string]string {
	flags := map[string]string{}
	for _, arg := range args {
		key, value := parseFlag(arg)
		if key != "" {
			flags[key] = value
		}
	}
	return flags
}

func parseFlag(arg string) (string, string) {
	if len(arg) > 2 && arg[:2] == "--" {
		arg = arg[2:]
		for i, c := range arg {
			if c == '=' {
				return arg[:i], arg[i+1:]
			}
		}
		return arg, "true"
	}
	return "", ""
}

func flagOr(flags map[string]string, key, defaultValue string) string {
	if value := flags[key]; value != "" {
		return value
	}
	return defaultValue
}

func handleList(ctx context.Context, out io.Writer, svc cms.Service, recordType string, useJSON bool) error {
	docs, err := svc.List(ctx, cms.RecordType(recordType))
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", recordType, err)
	}

	if useJSON {
		return writeJSON(out, docs)
	}

	columns := listColumns(cms.RecordType(recordType))
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for i, col := range columns {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, col)
	}
	fmt.Fprintln(w)

	for _, doc := range docs {
		for i, col := range columns {
			if i > 0 {
				fmt.Fprint(w, "\t")
			}
			value := fmt.Sprint(doc[col])
			if doc[col] == nil || value == "" {
				value = "-"
			}
			fmt.Fprint(w, truncate(value, 30))
		}
		fmt.Fprintln(w)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nTotal: %d\n", len(docs))
	return nil
}

func listColumns(t cms.RecordType) []string {
	switch t {
	case cms.RecordTypeUsers:
		return []string{"id", "username", "name", "role"}
	case cms.RecordTypeMedia:
		return []string{"id", "name", "type", "size", "date"}
	default:
		return []string{"id", "title", "author", "status", "date"}
	}
}

func handleStats(ctx context.Context, out io.Writer, svc cms.Service, useJSON bool) error {
	counts := map[string]int{}
	for _, t := range cms.RecordTypes() {
		docs, err := svc.List(ctx, t)
		if err != nil {
			return fmt.Errorf("failed to count %s: %w", t, err)
		}
		counts[string(t)] = len(docs)
	}

	if useJSON {
		return writeJSON(out, counts)
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(out, "=== Record Counts ===")
	for _, name := range names {
		fmt.Fprintf(out, "  %-8s: %d\n", name, counts[name])
	}
	return nil
}

func handleCreateUser(ctx context.Context, out io.Writer, svc cms.Service, flags map[string]string, useJSON bool) error {
	user, err := svc.CreateUser(ctx, cms.CreateUserRequest{
		Name:     flags["name"],
		Username: flags["username"],
		Password: flags["password"],
		Role:     flags["role"],
	})
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	if useJSON {
		return writeJSON(out, user)
	}
	fmt.Fprintf(out, "Created user %s (%s) with role %s\n", user.Username, user.ID, user.Role)
	return nil
}

func handleMigratePasswords(ctx context.Context, out io.Writer, svc cms.Service, useJSON bool) error {
	n, err := svc.MigrateLegacyPasswords(ctx)
	if err != nil {
		return fmt.Errorf("failed to migrate passwords after %d users: %w", n, err)
	}

	if useJSON {
		return writeJSON(out, map[string]int{"migrated": n})
	}
	fmt.Fprintf(out, "Migrated %d legacy passwords\n", n)
	return nil
}

func writeJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

// truncate shortens s to maxLen runes, never splitting a character
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
