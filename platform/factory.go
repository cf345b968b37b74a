package platform

import (
	"context"
	"fmt"
	"io"

	"github.com/schwarzerdavid/family-helper/platform/adapters/postgres"
	"github.com/schwarzerdavid/family-helper/platform/adapters/rabbitmq"
	"github.com/schwarzerdavid/family-helper/platform/adapters/s3"
	"github.com/schwarzerdavid/family-helper/platform/config"
	"github.com/schwarzerdavid/family-helper/platform/logger"
	"github.com/schwarzerdavid/family-helper/platform/metrics"
	"github.com/schwarzerdavid/family-helper/platform/stub"
	"github.com/schwarzerdavid/family-helper/platform/types"
)

// Services is the platform services container. All services are wired with
// the same logger so every log line carries the service and environment
// context.
type Services struct {
	Logger        types.Logger
	Config        types.Config
	Secrets       types.Secrets
	DB            types.Db
	PubSub        types.PubSub
	ObjectStorage types.ObjectStorage
	Cache         types.Cache
	FeatureFlags  types.FeatureFlags
	Tracer        types.Tracer
}

type options struct {
	environment   string
	loggerContext types.Fields
	useStubs      bool
	source        config.Source
	stdout        io.Writer
	stderr        io.Writer
	metrics       *metrics.Recorder
}

// Option configures the factory.
type Option func(*options)

// WithEnvironment sets the environment explicitly instead of detecting it
// from the configuration source.
func WithEnvironment(environment string) Option {
	return func(o *options) { o.environment = environment }
}

// WithLoggerContext merges extra base fields into the shared logger.
// Repeated options accumulate, later values winning per key.
func WithLoggerContext(fields types.Fields) Option {
	return func(o *options) {
		if o.loggerContext == nil {
			o.loggerContext = types.Fields{}
		}
		for k, v := range fields {
			o.loggerContext[k] = v
		}
	}
}

// WithStubs selects between stub and production implementations. Stubs are
// the default.
func WithStubs(useStubs bool) Option {
	return func(o *options) { o.useStubs = useStubs }
}

// WithSource sets where configuration, environment detection and stub
// secrets read from. Defaults to the process environment.
func WithSource(source config.Source) Option {
	return func(o *options) { o.source = source }
}

// WithStreams redirects the shared logger's output streams, mainly so
// tests can capture entries.
func WithStreams(stdout, stderr io.Writer) Option {
	return func(o *options) {
		o.stdout = stdout
		o.stderr = stderr
	}
}

// WithMetrics sets the recorder the production adapters report into.
// Without one, adapter metrics are disabled.
func WithMetrics(rec *metrics.Recorder) Option {
	return func(o *options) { o.metrics = rec }
}

// New creates a complete platform services container. Stub implementations
// are used by default so development environments need no external systems;
// production mode swaps in the PostgreSQL, RabbitMQ and S3 adapters and
// fails fast when any of them cannot connect.
func New(serviceName string, opts ...Option) (*Services, error) {
	if serviceName == "" {
		serviceName = "unknown-service"
	}

	o := &options{useStubs: true}
	for _, opt := range opts {
		opt(o)
	}
	if o.source == nil {
		o.source = config.EnvSource{}
	}

	environment := o.environment
	if environment == "" {
		environment = detectEnvironment(o.source)
	}

	// The logger comes first: every other service logs through it.
	baseFields := types.Fields{
		"service":     serviceName,
		"environment": environment,
	}
	for k, v := range o.loggerContext {
		baseFields[k] = v
	}
	log := logger.NewWithStreams(baseFields, o.stdout, o.stderr)

	cfg := config.New(o.source)

	services := &Services{
		Logger:       log,
		Config:       cfg,
		Secrets:      stub.NewSecrets(log, o.source),
		Cache:        stub.NewCache(log),
		FeatureFlags: stub.NewFeatureFlags(log),
		Tracer:       stub.NewTracer(log),
	}

	if o.useStubs {
		services.DB = stub.NewDatabase(log)
		services.PubSub = stub.NewPubSub(log)
		services.ObjectStorage = stub.NewObjectStorage(log)
	} else if err := wireProductionAdapters(services, cfg, log, o.metrics); err != nil {
		return nil, err
	}

	log.Info("Platform services initialized", types.Fields{
		"service_name": serviceName,
		"environment":  environment,
		"use_stubs":    o.useStubs,
		"services_created": []string{
			"logger", "config", "secrets", "db", "pubsub",
			"object_storage", "cache", "feature_flags", "tracer",
		},
	})

	return services, nil
}

// NewForTesting creates platform services configured for tests: the
// environment is forced to "test", a test_run marker joins the logger
// context and every implementation is a stub. The forced options make the
// error path unreachable, so failures panic instead of returning.
func NewForTesting(serviceName string, opts ...Option) *Services {
	if serviceName == "" {
		serviceName = "test-service"
	}

	forced := append(append([]Option{}, opts...),
		WithEnvironment("test"),
		WithLoggerContext(types.Fields{"test_run": true}),
		WithStubs(true),
	)

	services, err := New(serviceName, forced...)
	if err != nil {
		panic(fmt.Errorf("failed to create test platform services: %w", err))
	}
	return services
}

// wireProductionAdapters replaces the db, pubsub and object storage handles
// with real backends configured through the Config service. Secrets, cache,
// feature flags and tracer keep their stub implementations: they have no
// production backend in this module.
func wireProductionAdapters(services *Services, cfg types.Config, log types.Logger, rec *metrics.Recorder) error {
	dsn, err := requireString(cfg, "DATABASE_URL")
	if err != nil {
		return err
	}
	maxOpen, err := cfg.GetInt("DB_MAX_OPEN_CONNS", false, 25)
	if err != nil {
		return err
	}
	maxIdle, err := cfg.GetInt("DB_MAX_IDLE_CONNS", false, 5)
	if err != nil {
		return err
	}

	db, err := postgres.New(postgres.Config{
		DSN:          dsn,
		MaxOpenConns: maxOpen,
		MaxIdleConns: maxIdle,
	}, log, rec)
	if err != nil {
		return fmt.Errorf("failed to initialize postgres adapter: %w", err)
	}
	services.DB = db

	amqpURL, err := requireString(cfg, "RABBITMQ_URL")
	if err != nil {
		return err
	}
	prefetch, err := cfg.GetInt("RABBITMQ_PREFETCH_COUNT", false, 10)
	if err != nil {
		return err
	}

	pubsub, err := rabbitmq.New(rabbitmq.Config{
		URL:           amqpURL,
		PrefetchCount: prefetch,
	}, log, rec)
	if err != nil {
		return fmt.Errorf("failed to initialize rabbitmq adapter: %w", err)
	}
	services.PubSub = pubsub

	bucket, err := requireString(cfg, "S3_BUCKET")
	if err != nil {
		return err
	}
	region, err := optionalString(cfg, "AWS_REGION")
	if err != nil {
		return err
	}
	endpoint, err := optionalString(cfg, "S3_ENDPOINT")
	if err != nil {
		return err
	}
	accessKey, err := optionalString(cfg, "AWS_ACCESS_KEY_ID")
	if err != nil {
		return err
	}
	secretKey, err := optionalString(cfg, "AWS_SECRET_ACCESS_KEY")
	if err != nil {
		return err
	}

	storage, err := s3.New(context.Background(), s3.Config{
		Region:          region,
		Bucket:          bucket,
		Endpoint:        endpoint,
		AccessKeyID:     accessKey,
		SecretAccessKey: secretKey,
	}, log, rec)
	if err != nil {
		return fmt.Errorf("failed to initialize s3 adapter: %w", err)
	}
	services.ObjectStorage = storage

	return nil
}

// detectEnvironment resolves the runtime environment from the source,
// preferring ENVIRONMENT over the legacy ENV name.
func detectEnvironment(source config.Source) string {
	if env, ok := source.Lookup("ENVIRONMENT"); ok && env != "" {
		return env
	}
	if env, ok := source.Lookup("ENV"); ok && env != "" {
		return env
	}
	return "development"
}

func requireString(cfg types.Config, key string) (string, error) {
	value, err := cfg.Get(key, true)
	if err != nil {
		return "", err
	}
	s, ok := value.(string)
	if !ok {
		return "", config.NewConfigError("configuration value '%v' for key '%s' is not a string", value, key)
	}
	return s, nil
}

func optionalString(cfg types.Config, key string) (string, error) {
	value, err := cfg.Get(key, false, "")
	if err != nil {
		return "", err
	}
	s, ok := value.(string)
	if !ok {
		return "", config.NewConfigError("configuration value '%v' for key '%s' is not a string", value, key)
	}
	return s, nil
}
