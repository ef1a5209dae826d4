package table

import (
	"context"
	"database/sql"
	"time"

	"table_admin/internal/audit"
	"table_admin/internal/cache"
	"table_admin/internal/observability"

	"github.com/sirupsen/logrus"
)

// DefaultQueryTimeout bounds every statement when no timeout is configured.
const DefaultQueryTimeout = 5 * time.Second

// systemTables are owned by the service and never exposed through row routes.
var systemTables = map[string]struct{}{
	"users":     {},
	"audit_log": {},
}

func IsSystemTable(name string) bool {
	_, ok := systemTables[name]
	return ok
}

type TableServiceInterface interface {
	ListTables(ctx context.Context) ([]string, error)
	CreateTable(ctx context.Context, actor audit.Actor, name string, columns Fields) error
	DropTable(ctx context.Context, actor audit.Actor, name string) error
	ListRows(ctx context.Context, name string, q ListQuery) ([]Row, error)
	InsertRow(ctx context.Context, actor audit.Actor, name string, row Fields) (any, error)
	UpdateRow(ctx context.Context, actor audit.Actor, name string, id int64, updates Fields) error
	DeleteRow(ctx context.Context, actor audit.Actor, name string, id int64) error
}

type TableService struct {
	repo      TableRepositoryInterface
	DB        *sql.DB
	cache     cache.TableListCache
	publisher audit.Publisher
	metrics   *observability.Metrics
	timeout   time.Duration
}

type ServiceOption func(*TableService)

func WithCache(c cache.TableListCache) ServiceOption {
	return func(s *TableService) { s.cache = c }
}

func WithPublisher(p audit.Publisher) ServiceOption {
	return func(s *TableService) { s.publisher = p }
}

func WithMetrics(m *observability.Metrics) ServiceOption {
	return func(s *TableService) { s.metrics = m }
}

func WithQueryTimeout(d time.Duration) ServiceOption {
	return func(s *TableService) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func NewTableService(repo TableRepositoryInterface, db *sql.DB, opts ...ServiceOption) TableServiceInterface {
	s := &TableService{
		repo:      repo,
		DB:        db,
		cache:     cache.NoopTableCache{},
		publisher: audit.NoopPublisher{},
		timeout:   DefaultQueryTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TableService) ListTables(ctx context.Context) ([]string, error) {
	if tables, ok := s.cache.GetTables(ctx); ok {
		return tables, nil
	}

	qctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tables, err := s.repo.ListTables(qctx, s.DB)
	if err != nil {
		return nil, err
	}

	s.cache.SetTables(ctx, tables)
	return tables, nil
}

func (s *TableService) CreateTable(ctx context.Context, actor audit.Actor, name string, columns Fields) error {
	qctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.repo.CreateTable(qctx, s.DB, name, columns); err != nil {
		return err
	}

	s.cache.Invalidate(ctx)
	s.record(ctx, audit.NewEvent(audit.ActionCreateTable, name, actor))
	return nil
}

func (s *TableService) DropTable(ctx context.Context, actor audit.Actor, name string) error {
	if err := guard(name); err != nil {
		return err
	}

	qctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.repo.DropTable(qctx, s.DB, name); err != nil {
		return err
	}

	s.cache.Invalidate(ctx)
	s.record(ctx, audit.NewEvent(audit.ActionDropTable, name, actor))
	return nil
}

func (s *TableService) ListRows(ctx context.Context, name string, q ListQuery) ([]Row, error) {
	if err := guard(name); err != nil {
		return nil, err
	}

	qctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.repo.ListRows(qctx, s.DB, name, q)
}

func (s *TableService) InsertRow(ctx context.Context, actor audit.Actor, name string, row Fields) (any, error) {
	if err := guard(name); err != nil {
		return nil, err
	}

	qctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	id, err := s.repo.InsertRow(qctx, s.DB, name, row)
	if err != nil {
		return nil, err
	}

	event := audit.NewEvent(audit.ActionInsertRow, name, actor)
	if rowID, ok := id.(int64); ok {
		event = event.WithRow(rowID)
	}
	s.record(ctx, event)
	return id, nil
}

func (s *TableService) UpdateRow(ctx context.Context, actor audit.Actor, name string, id int64, updates Fields) error {
	if err := guard(name); err != nil {
		return err
	}

	qctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.repo.UpdateRow(qctx, s.DB, name, id, updates); err != nil {
		return err
	}

	s.record(ctx, audit.NewEvent(audit.ActionUpdateRow, name, actor).WithRow(id))
	return nil
}

func (s *TableService) DeleteRow(ctx context.Context, actor audit.Actor, name string, id int64) error {
	if err := guard(name); err != nil {
		return err
	}

	qctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.repo.DeleteRow(qctx, s.DB, name, id); err != nil {
		return err
	}

	s.record(ctx, audit.NewEvent(audit.ActionDeleteRow, name, actor).WithRow(id))
	return nil
}

// guard validates name and refuses the service's own tables.
func guard(name string) error {
	if err := ValidateIdentifier(name); err != nil {
		return err
	}
	if IsSystemTable(name) {
		return ErrSystemTable
	}
	return nil
}

// record counts the mutation and publishes its audit event. Publish failures
// are logged and never returned.
func (s *TableService) record(ctx context.Context, event audit.Event) {
	s.metrics.Mutation(string(event.Action))

	if err := s.publisher.Publish(ctx, event); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"action": event.Action,
			"table":  event.Table,
		}).Warn("Failed to publish audit event")
	}
}
