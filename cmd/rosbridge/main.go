// Package main is the entrypoint for the rosbridge client.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"

	"github.com/morezero/rosbridge/internal/config"
	"github.com/morezero/rosbridge/internal/server"
	"github.com/morezero/rosbridge/pkg/db"
	"github.com/morezero/rosbridge/pkg/msgs"
	"github.com/morezero/rosbridge/pkg/topicfile"
)

const usage = `Usage: rosbridge [command]
       rosbridge serve                Connect to the gateway and bridge topics (HTTP status on HTTP_PORT).
       rosbridge migrate up           Run database migrations for message recording.
       rosbridge migrate status       Show migration status.
       rosbridge ensure-db [name]     Create database if missing (default name: rosbridge_test). Uses DATABASE_URL host/user.
       rosbridge clear                Truncate recorded messages and status; schema is preserved.
       rosbridge topics [file]        Validate a topics file and show how each type will be decoded.

Commands:
  serve           (default) Start the bridge.
  migrate up      Run database migrations only.
  migrate status  Show current migration status.
  ensure-db       Create the database on the same host as DATABASE_URL.
  clear           Truncate ros_messages and ros_status.
  topics [file]   Check a topics file (default ROSBRIDGE_TOPICS_FILE, config/topics.yaml, topics.yaml).

Environment:
  ROSBRIDGE_URL                rosbridge server URL (default ws://127.0.0.1:9090)
  ROSBRIDGE_CLIENT_NAME        client name for logs and NATS (default rosbridge)
  ROSBRIDGE_RECONNECT_WAIT     delay between reconnect attempts (default 2s)
  ROSBRIDGE_MAX_RECONNECTS     reconnect attempts, 0 retries forever, negative never reconnects (default 0)
  ROSBRIDGE_WRITE_TIMEOUT      websocket write timeout (default 5s)
  ROSBRIDGE_HANDSHAKE_TIMEOUT  websocket handshake timeout (default 10s)
  ROSBRIDGE_TOPICS_FILE        topics file subscribed at startup
  COMMS_ENABLED                republish received messages to NATS (default false)
  COMMS_URL                    NATS URL (default nats://127.0.0.1:4222)
  COMMS_SUBJECT_PREFIX         NATS subject prefix (default ros)
  RECORD_ENABLED               record received messages to Postgres (default false)
  DATABASE_URL                 Postgres connection string
  RUN_MIGRATIONS               run migrations before serving (default false)
  MIGRATION_PATH               migrations directory (default migrations)
  ROSBRIDGE_HTTP_ADDR          HTTP status listen address, overrides HTTP_PORT
  HTTP_PORT                    HTTP status port (default 8080)
  HEALTH_CHECK_TIMEOUT         /health dependency check timeout (default 5s)
  LOG_LEVEL                    debug, info, warn or error (default info)
  LOG_FORMAT                   text, json or console (default text)
`

var errUsage = errors.New("usage")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "%v\n%s", err, usage)
			os.Exit(1)
		}
		log.Fatalf("rosbridge: %v", err)
	}
}

func run(args []string, out io.Writer) error {
	cmd := ""
	if len(args) > 0 {
		cmd = args[0]
	}

	switch cmd {
	case "migrate":
		if len(args) < 2 {
			return fmt.Errorf("%w: migrate requires a subcommand (up, status)", errUsage)
		}
		switch args[1] {
		case "up":
			return runMigrateUp()
		case "status":
			return runMigrateStatus(out)
		default:
			return fmt.Errorf("%w: unknown migrate subcommand %q (use up, status)", errUsage, args[1])
		}
	case "clear":
		return runClear()
	case "ensure-db":
		dbName := "rosbridge_test"
		if len(args) > 1 && args[1] != "" {
			dbName = args[1]
		}
		return runEnsureDB(out, dbName)
	case "topics":
		file := ""
		if len(args) > 1 {
			file = args[1]
		}
		return runTopics(out, file)
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	case "serve", "":
		return server.Run()
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func loadDBConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runMigrateUp() error {
	cfg, err := loadDBConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	if err := db.EnsureDatabase(ctx, cfg.DatabaseURL); err != nil {
		return err
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	migrations, err := db.LoadMigrationFiles(cfg.MigrationPath)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	if err := db.RunMigrations(ctx, pool, migrations); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func runMigrateStatus(out io.Writer) error {
	cfg, err := loadDBConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	state, err := db.MigrationStatus(ctx, pool, cfg.MigrationPath)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, state.String())
	return nil
}

func runClear() error {
	cfg, err := loadDBConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := db.ClearRecordings(ctx, pool); err != nil {
		return fmt.Errorf("clear recordings: %w", err)
	}
	return nil
}

func runEnsureDB(out io.Writer, dbName string) error {
	cfg, err := loadDBConfig()
	if err != nil {
		return err
	}
	targetURL, err := withDatabase(cfg.DatabaseURL, dbName)
	if err != nil {
		return err
	}
	if err := db.EnsureDatabase(context.Background(), targetURL); err != nil {
		return err
	}
	fmt.Fprintf(out, "Database %q is ready.\n", dbName)
	return nil
}

// withDatabase replaces the database name in a Postgres URL, keeping the
// query (e.g. sslmode).
func withDatabase(databaseURL, dbName string) (string, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	u.Path = "/" + dbName
	return u.String(), nil
}

func runTopics(out io.Writer, path string) error {
	f, err := topicfile.Load(path)
	if err != nil {
		return err
	}
	if len(f.Topics) == 0 {
		fmt.Fprintln(out, "No topics configured.")
		return nil
	}
	for _, e := range f.Topics {
		decoder := "catalog"
		if !msgs.Known(e.Type) {
			decoder = "raw"
		}
		fmt.Fprintf(out, "%s\t%s\t%s\n", e.Topic, e.Type, decoder)
	}
	return nil
}
