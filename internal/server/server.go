// Package server orchestrates all components: gateway connection, bridge
// client, optional NATS republishing and Postgres recording, HTTP status.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lmittmann/tint"
	comms "github.com/nats-io/nats.go"

	"github.com/morezero/rosbridge/internal/config"
	"github.com/morezero/rosbridge/pkg/bridge"
	"github.com/morezero/rosbridge/pkg/commsutil"
	"github.com/morezero/rosbridge/pkg/db"
	"github.com/morezero/rosbridge/pkg/events"
	"github.com/morezero/rosbridge/pkg/message"
	"github.com/morezero/rosbridge/pkg/msgs"
	"github.com/morezero/rosbridge/pkg/topicfile"
	"github.com/morezero/rosbridge/pkg/wsconn"
)

const logPrefix = "server:server"

// Server is the rosbridge orchestrator.
type Server struct {
	cfg        *config.Config
	client     bridgeStatus
	gateway    gatewayStatus
	db         pinger
	comms      commsStatus
	recordings messageLister
	httpServer *http.Server
}

// SetupLogging installs the default slog handler for LOG_LEVEL and LOG_FORMAT.
func SetupLogging(cfg *config.Config) {
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	var handler slog.Handler
	switch cfg.LogFormat {
	case config.LogFormatConsole:
		handler = tint.NewHandler(os.Stdout, &tint.Options{Level: logLevel, TimeFormat: "Jan _2 15:04:05.0000"})
	case config.LogFormatJSON:
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	}
	slog.SetDefault(slog.New(handler))
}

// Run starts the bridge, blocks until shutdown signal, then cleans up.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("%s - failed to load config: %w", logPrefix, err)
	}
	if err := cfg.ValidateForServe(); err != nil {
		return err
	}
	SetupLogging(cfg)

	slog.Info(fmt.Sprintf("%s - Starting rosbridge client %s", logPrefix, cfg.ClientName))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &Server{cfg: cfg}
	var publishers events.MultiPublisher

	// Step 1: Optional message recording
	var pool *pgxpool.Pool
	if cfg.RecordEnabled {
		pool, err = openRecording(ctx, cfg)
		if err != nil {
			return err
		}
		repo := db.NewRepository(pool)
		s.db = pool
		s.recordings = repo
		publishers = append(publishers, events.NewRecordingPublisher(repo))
	}

	// Step 2: Optional NATS republishing
	var nc *comms.Conn
	if cfg.COMMSEnabled {
		nc, err = commsutil.Connect(cfg.COMMSURL, cfg.ClientName, commsutil.ConnectOptions{})
		if err != nil {
			closePool(pool)
			return fmt.Errorf("%s - failed to connect to NATS: %w", logPrefix, err)
		}
		s.comms = nc
		publishers = append(publishers, events.NewCommsPublisher(nc, &events.CommsPublisherOpts{SubjectPrefix: cfg.COMMSSubjectPrefix}))
		slog.Info(fmt.Sprintf("%s - Republishing to NATS at %s", logPrefix, cfg.COMMSURL))
	}

	var publisher events.EventPublisher = &events.NoOpPublisher{}
	if len(publishers) > 0 {
		publisher = publishers
	}

	// Step 3: Bridge client over the gateway connection
	client, conn := newBridge(ctx, cfg, publisher)
	s.client = client
	s.gateway = conn

	if err := conn.Connect(ctx); err != nil {
		closeComms(nc)
		closePool(pool)
		return fmt.Errorf("%s - failed to connect to gateway: %w", logPrefix, err)
	}

	// Step 4: Subscribe to the topics file
	file, err := topicfile.Load(cfg.TopicsFile)
	if err != nil {
		_ = conn.Close()
		closeComms(nc)
		closePool(pool)
		return fmt.Errorf("%s - failed to load topics file: %w", logPrefix, err)
	}
	subscribeTopics(client, file)

	// Step 5: Start HTTP status server
	httpAddr := cfg.HTTPAddr
	if httpAddr == "" {
		httpAddr = fmt.Sprintf(":%d", cfg.HTTPPort)
	}
	s.httpServer = &http.Server{Addr: httpAddr, Handler: s.routes()}
	go func() {
		slog.Info(fmt.Sprintf("%s - HTTP status server listening on %s", logPrefix, httpAddr))
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error(fmt.Sprintf("%s - HTTP server error: %v", logPrefix, err))
		}
	}()

	slog.Info(fmt.Sprintf("%s - Rosbridge client is ready", logPrefix))

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info(fmt.Sprintf("%s - Received signal %s, shutting down", logPrefix, sig))

	// Graceful shutdown
	if err := client.Close(); err != nil {
		slog.Warn(fmt.Sprintf("%s - Unregister on shutdown: %v", logPrefix, err))
	}
	_ = conn.Close()
	_ = s.httpServer.Shutdown(ctx)
	closeComms(nc)
	closePool(pool)

	slog.Info(fmt.Sprintf("%s - Shutdown complete", logPrefix))
	return nil
}

// newBridge creates a client whose transport is a gateway connection. The
// connection feeds frames to the client and replays its registrations after
// every reconnect.
func newBridge(ctx context.Context, cfg *config.Config, publisher events.EventPublisher) (*bridge.Client, *wsconn.Conn) {
	var client *bridge.Client
	conn := wsconn.New(wsconn.Options{
		URL:              cfg.GatewayURL,
		HandshakeTimeout: cfg.HandshakeTimeout,
		WriteTimeout:     cfg.WriteTimeout,
		ReconnectWait:    cfg.ReconnectWait,
		MaxReconnects:    cfg.MaxReconnects,
		OnFrame: func(data []byte) {
			_ = client.HandleFrame(ctx, data)
		},
		OnConnect: func(connected bool, err error) {
			if !connected {
				return
			}
			if err := client.Resync(); err != nil {
				slog.Warn(fmt.Sprintf("%s - Resync after connect failed: %v", logPrefix, err))
			}
		},
	})
	client = bridge.NewClient(bridge.NewClientParams{
		Transport: conn,
		Publisher: publisher,
	})
	return client, conn
}

func openRecording(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.EnsureDatabase(ctx, cfg.DatabaseURL); err != nil {
		return nil, fmt.Errorf("%s - failed to ensure database: %w", logPrefix, err)
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to connect to database: %w", logPrefix, err)
	}
	if cfg.RunMigrations {
		migrations, err := db.LoadMigrationFiles(cfg.MigrationPath)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("%s - failed to load migrations: %w", logPrefix, err)
		}
		if err := db.RunMigrations(ctx, pool, migrations); err != nil {
			pool.Close()
			return nil, fmt.Errorf("%s - failed to run migrations: %w", logPrefix, err)
		}
	}
	slog.Info(fmt.Sprintf("%s - Recording messages to database", logPrefix))
	return pool, nil
}

// subscribeTopics subscribes to every topics file entry with the catalog
// parser for its type. Entries that fail are logged and skipped.
func subscribeTopics(client *bridge.Client, file *topicfile.File) int {
	n := 0
	for _, e := range file.Topics {
		topic := e.Topic
		if !msgs.Known(e.Type) {
			slog.Info(fmt.Sprintf("%s - %s has no catalog parser for %s, delivering raw", logPrefix, topic, e.Type))
		}
		cb := func(m message.Message) error {
			slog.Debug(fmt.Sprintf("%s - %s %s", logPrefix, topic, m.String()))
			return nil
		}
		if _, err := client.Subscribe(topic, e.Type, msgs.Lookup(e.Type), cb, e.Options()); err != nil {
			slog.Warn(fmt.Sprintf("%s - Subscribe %s failed: %v", logPrefix, topic, err))
			continue
		}
		n++
	}
	return n
}

func closeComms(nc *comms.Conn) {
	if nc != nil {
		_ = nc.Drain()
	}
}

func closePool(pool *pgxpool.Pool) {
	if pool != nil {
		pool.Close()
	}
}
