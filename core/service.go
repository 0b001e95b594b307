package core

import (
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

// ErrorMapper normalizes arbitrary errors into the service error envelope.
type ErrorMapper func(err error) *goerrors.Error

// Service is the credential lifecycle manager plus the proxy operations that
// depend on it: OAuth handshake, calendar CRUD, upload signing, and asset
// deletion. Downstream providers are injected through capability interfaces.
type Service struct {
	config          Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorMapper     ErrorMapper
	credentialStore CredentialStore
	tokenExchanger  TokenExchanger
	identity        IdentityResolver
	authURLBuilder  AuthURLBuilder
	calendar        CalendarAPI
	storage         StorageAPI
	nowFn           func() time.Time
}

type serviceBuilder struct {
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorMapper     ErrorMapper
	credentialStore CredentialStore
	tokenExchanger  TokenExchanger
	identity        IdentityResolver
	authURLBuilder  AuthURLBuilder
	calendar        CalendarAPI
	storage         StorageAPI
	nowFn           func() time.Time
}

type Option func(*serviceBuilder)

func WithLogger(logger Logger) Option {
	return func(b *serviceBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *serviceBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *serviceBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *serviceBuilder) {
		b.errorMapper = mapper
	}
}

func WithCredentialStore(store CredentialStore) Option {
	return func(b *serviceBuilder) {
		b.credentialStore = store
	}
}

func WithTokenExchanger(exchanger TokenExchanger) Option {
	return func(b *serviceBuilder) {
		b.tokenExchanger = exchanger
	}
}

func WithIdentityResolver(resolver IdentityResolver) Option {
	return func(b *serviceBuilder) {
		b.identity = resolver
	}
}

func WithAuthURLBuilder(builder AuthURLBuilder) Option {
	return func(b *serviceBuilder) {
		b.authURLBuilder = builder
	}
}

func WithCalendarAPI(api CalendarAPI) Option {
	return func(b *serviceBuilder) {
		b.calendar = api
	}
}

func WithStorageAPI(api StorageAPI) Option {
	return func(b *serviceBuilder) {
		b.storage = api
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(b *serviceBuilder) {
		b.nowFn = now
	}
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	builder := serviceBuilder{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve(cfg.ServiceName, builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger(cfg.ServiceName); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = serviceErrorMapper
	}
	if builder.credentialStore == nil {
		builder.credentialStore = NewMemoryCredentialStore()
	}
	if builder.nowFn == nil {
		builder.nowFn = func() time.Time { return time.Now().UTC() }
	}

	return &Service{
		config:          cfg,
		logger:          logger,
		loggerProvider:  provider,
		metricsRecorder: builder.metricsRecorder,
		errorMapper:     builder.errorMapper,
		credentialStore: builder.credentialStore,
		tokenExchanger:  builder.tokenExchanger,
		identity:        builder.identity,
		authURLBuilder:  builder.authURLBuilder,
		calendar:        builder.calendar,
		storage:         builder.storage,
		nowFn:           builder.nowFn,
	}, nil
}

// Config returns a copy of the effective service configuration.
func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	if mapped := s.errorMapper(err); mapped != nil {
		return mapped
	}
	return err
}

func (s *Service) now() time.Time {
	if s == nil || s.nowFn == nil {
		return time.Now().UTC()
	}
	return s.nowFn().UTC()
}

func (s *Service) requireCredentialStore() error {
	if s == nil || s.credentialStore == nil {
		return fmt.Errorf("core: credential store is not configured")
	}
	return nil
}
