package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/bsmanager/internal/application"
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
	factory := &ServiceFactory{}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("todo")
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

// TodoServiceDeps captures dependencies for constructing a to-do service.
type TodoServiceDeps struct {
	Todos       application.TodoRepository
	IDGenerator func() string
	Now         func() time.Time
	Location    *time.Location
	Logger      *slog.Logger
}

// NewTodoService builds a to-do service using the supplied dependencies
// combined with the factory defaults.
func (f *ServiceFactory) NewTodoService(deps TodoServiceDeps) *application.TodoService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewTodoServiceWithLogger(
		deps.Todos,
		idGen,
		now,
		deps.Location,
		deps.Logger,
	)
}
