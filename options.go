package phoenix

import (
	"log/slog"
	"net/http"

	"github.com/phoenix-mes/phoenix/internal/store"
)

// Option configures an App.
type Option func(*resolvedOptions)

// resolvedOptions holds all extension points after applying defaults.
// Unexported — callers use the With* functions.
type resolvedOptions struct {
	port        int
	brokerURL   string
	topic       string
	dataPath    string
	logger      *slog.Logger
	version     string
	store       store.Store
	transport   Transport
	notifiers   []Notifier
	extraRoutes func(mux *http.ServeMux)
}

// WithPort overrides the HTTP port from config (PHOENIX_PORT env var).
func WithPort(port int) Option {
	return func(o *resolvedOptions) { o.port = port }
}

// WithBrokerURL overrides the MQTT broker URL from config (PHOENIX_BROKER_URL env var).
func WithBrokerURL(url string) Option {
	return func(o *resolvedOptions) { o.brokerURL = url }
}

// WithTopic overrides the MQTT subscription topic from config (PHOENIX_TOPIC env var).
func WithTopic(topic string) Option {
	return func(o *resolvedOptions) { o.topic = topic }
}

// WithDataPath overrides the persistence path from config (PHOENIX_DATA_PATH env var).
// A .db or .sqlite suffix selects the SQLite backend.
func WithDataPath(path string) Option {
	return func(o *resolvedOptions) { o.dataPath = path }
}

// WithLogger sets the structured logger for the App.
// If not set, the default slog logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *resolvedOptions) { o.logger = logger }
}

// WithVersion sets the version string reported in the health endpoint and logs.
func WithVersion(version string) Option {
	return func(o *resolvedOptions) { o.version = version }
}

// WithStore replaces the persistence backend selected by the data path.
// The App takes ownership and closes it on shutdown.
func WithStore(st store.Store) Option {
	return func(o *resolvedOptions) { o.store = st }
}

// WithTransport replaces the MQTT transport with a custom message source,
// e.g. a log replay in tests.
func WithTransport(t Transport) Option {
	return func(o *resolvedOptions) { o.transport = t }
}

// WithNotifier registers an additional receiver for machine notifications,
// alongside the built-in SSE broker. Multiple notifiers may be registered;
// all receive every notification.
func WithNotifier(n Notifier) Option {
	return func(o *resolvedOptions) { o.notifiers = append(o.notifiers, n) }
}

// WithExtraRoutes registers additional routes on the shared HTTP mux.
func WithExtraRoutes(fn func(mux *http.ServeMux)) Option {
	return func(o *resolvedOptions) { o.extraRoutes = fn }
}
