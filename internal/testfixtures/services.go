package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/custody-scheduler/internal/application"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// ConflictServiceDeps captures dependencies for constructing a conflict service.
type ConflictServiceDeps struct {
	Entries     application.EntryLookup
	Conflicts   application.ConflictStore
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
	CacheTTL    time.Duration
}

// NewConflictService builds a conflict service using the supplied dependencies
// combined with the factory defaults.
func (f *ServiceFactory) NewConflictService(deps ConflictServiceDeps) *application.ConflictService {
	idGen, now := f.defaults(deps.IDGenerator, deps.Now)
	return application.NewConflictServiceWithLogger(
		deps.Entries,
		deps.Conflicts,
		idGen,
		now,
		deps.Logger,
		application.WithAvailabilityCache(deps.CacheTTL),
	)
}

// ScheduleServiceDeps captures dependencies for constructing a schedule service.
type ScheduleServiceDeps struct {
	Entries     application.ScheduleRepository
	Detector    application.ConflictDetector
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewScheduleService builds a schedule service using the supplied dependencies.
func (f *ServiceFactory) NewScheduleService(deps ScheduleServiceDeps) *application.ScheduleService {
	idGen, now := f.defaults(deps.IDGenerator, deps.Now)
	return application.NewScheduleServiceWithLogger(
		deps.Entries,
		deps.Detector,
		idGen,
		now,
		deps.Logger,
	)
}

func (f *ServiceFactory) defaults(idGen func() string, now func() time.Time) (func() string, func() time.Time) {
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return idGen, now
}
