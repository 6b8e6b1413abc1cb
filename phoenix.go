// Package phoenix is the public API for embedding the machine monitor.
//
// Consumers construct an App, optionally overriding transport or storage,
// and run it:
//
//	app, err := phoenix.New(
//	    phoenix.WithVersion(version),
//	    phoenix.WithLogger(logger),
//	)
//	if err != nil { ... }
//	if err := app.Run(ctx); err != nil { ... }
//
// The import graph enforces a strict no-cycle rule: phoenix (root) imports
// internal/*, but internal/* never imports phoenix (root).
package phoenix

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/phoenix-mes/phoenix/api"
	"github.com/phoenix-mes/phoenix/internal/config"
	"github.com/phoenix-mes/phoenix/internal/engine"
	"github.com/phoenix-mes/phoenix/internal/ingest"
	"github.com/phoenix-mes/phoenix/internal/model"
	"github.com/phoenix-mes/phoenix/internal/server"
	"github.com/phoenix-mes/phoenix/internal/store"
	"github.com/phoenix-mes/phoenix/internal/telemetry"
)

// Transport is a source of raw controller log messages. The default App
// uses MQTT; tests and embedders may substitute replay or pipe transports.
type Transport interface {
	// Subscribe delivers messages to handler until ctx is cancelled.
	Subscribe(ctx context.Context, handler func(topic string, payload []byte)) error
}

// Notification is one machine state-change announcement.
type Notification struct {
	State string    `json:"state"`
	Line  string    `json:"line"`
	At    time.Time `json:"at"`
}

// Notifier receives machine notifications. Implementations must not block;
// the engine calls Notify inline on its event loop.
type Notifier interface {
	Notify(n Notification)
}

// App is the monitor lifecycle. Construct with New(), run with Run().
// App has no public fields — use New() options to configure it.
type App struct {
	cfg          config.Config
	store        store.Store
	engine       *engine.Engine
	loop         *ingest.Loop
	broker       *server.Broker
	srv          *server.Server
	otelShutdown telemetry.Shutdown
	logger       *slog.Logger
	version      string
}

// New wires the monitor: storage, recovery, event classification, the HTTP
// API and the MQTT transport. It does NOT start any goroutines or accept
// connections — call Run().
func New(opts ...Option) (*App, error) {
	o := resolvedOptions{}
	for _, fn := range opts {
		fn(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.port != 0 {
		cfg.Port = o.port
	}
	if o.brokerURL != "" {
		cfg.BrokerURL = o.brokerURL
	}
	if o.topic != "" {
		cfg.Topic = o.topic
	}
	if o.dataPath != "" {
		cfg.DataPath = o.dataPath
	}
	version := o.version
	if version == "" {
		version = "dev"
	}

	logger.Info("phoenix starting", "version", version, "port", cfg.Port, "data_path", cfg.DataPath)

	otelShutdown, err := telemetry.Init(context.Background(), cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	st := o.store
	if st == nil {
		st, err = store.Open(cfg.DataPath, logger)
		if err != nil {
			_ = otelShutdown(context.Background())
			return nil, fmt.Errorf("store: %w", err)
		}
	}

	broker := server.NewBroker(logger, cfg.EventBufferSize)
	var notifier engine.Notifier = broker
	if len(o.notifiers) > 0 {
		notifier = teeNotifier{broker: broker, extra: o.notifiers}
	}
	eng := engine.New(st, logger, engine.WithNotifier(notifier))

	var transport ingest.Transport
	if o.transport != nil {
		transport = transportAdapter{o.transport}
	} else {
		transport = ingest.NewMQTTTransport(ingest.MQTTConfig{
			BrokerURL: cfg.BrokerURL,
			Username:  cfg.BrokerUsername,
			Password:  cfg.BrokerPassword,
			Topic:     cfg.Topic,
		}, logger)
	}
	loop := ingest.NewLoop(transport, eng, logger)

	srv := server.New(server.ServerConfig{
		Engine:       eng,
		Broker:       broker,
		Logger:       logger,
		Port:         cfg.Port,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		Version:      version,
		OpenAPISpec:  api.OpenAPISpec,
		ExtraRoutes:  o.extraRoutes,
	})

	return &App{
		cfg:          cfg,
		store:        st,
		engine:       eng,
		loop:         loop,
		broker:       broker,
		srv:          srv,
		otelShutdown: otelShutdown,
		logger:       logger,
		version:      version,
	}, nil
}

// transportAdapter bridges the public Transport interface to the internal one.
type transportAdapter struct {
	t Transport
}

func (a transportAdapter) Subscribe(ctx context.Context, handler ingest.Handler) error {
	return a.t.Subscribe(ctx, handler)
}

// teeNotifier forwards each notification to the SSE broker and to every
// registered extra notifier.
type teeNotifier struct {
	broker *server.Broker
	extra  []Notifier
}

func (t teeNotifier) Notify(n model.Notification) {
	t.broker.Notify(n)
	pub := Notification{State: string(n.State), Line: n.Line, At: n.At}
	for _, notifier := range t.extra {
		notifier.Notify(pub)
	}
}

// Engine exposes the monitoring engine for embedders that query it directly.
func (a *App) Engine() *engine.Engine {
	return a.engine
}

// Handler returns the root HTTP handler for use in tests.
func (a *App) Handler() http.Handler {
	return a.srv.Handler()
}

// Run starts the engine loop, the ingestion transport and the HTTP server,
// then blocks until ctx is cancelled or a component fails. On return the
// active run has been flushed and the store closed.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.engine.Run(ctx)
	})
	g.Go(func() error {
		if err := a.loop.Run(ctx); err != nil && ctx.Err() == nil {
			return fmt.Errorf("ingest: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := a.srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()

	// The engine loop has flushed its final snapshot by now.
	if cerr := a.store.Close(); cerr != nil {
		a.logger.Error("store close", "error", cerr)
	}
	_ = a.otelShutdown(context.Background())

	a.logger.Info("phoenix stopped")
	return err
}
