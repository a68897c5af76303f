package records

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/vyrodovalexey/dashgw/internal/observability"
)

const recordsTracerName = "dashgw/records"

// ErrUserNotFound is returned when no user has the requested id.
var ErrUserNotFound = errors.New("user not found")

// NotFoundError reports a missing user. Its message matches what
// clients of the user service have always received.
type NotFoundError struct {
	UserID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("User %s not found", e.UserID)
}

// Is matches ErrUserNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrUserNotFound
}

// StoreConfig configures the database connections.
type StoreConfig struct {
	// PrimaryDSN receives writes and migrations.
	PrimaryDSN string

	// ReplicaDSNs serve reads in rotation. When empty, reads go to the primary.
	ReplicaDSNs []string

	SlowThreshold time.Duration
}

// Store reads records from a primary database and its read replicas.
type Store struct {
	primary  *gorm.DB
	replicas []*gorm.DB
	next     atomic.Uint64
	logger   observability.Logger
}

// Open connects to PostgreSQL using cfg.
func Open(cfg StoreConfig, logger observability.Logger) (*Store, error) {
	if cfg.PrimaryDSN == "" {
		return nil, errors.New("primary DSN is required")
	}

	gormCfg := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   newGormLogger(logger, cfg.SlowThreshold),
	}

	primary, err := gorm.Open(postgres.Open(cfg.PrimaryDSN), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to primary database: %w", err)
	}

	replicas := make([]*gorm.DB, 0, len(cfg.ReplicaDSNs))
	for i, dsn := range cfg.ReplicaDSNs {
		dsn = strings.TrimSpace(dsn)
		if dsn == "" {
			continue
		}
		db, err := gorm.Open(postgres.Open(dsn), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to replica %d: %w", i, err)
		}
		replicas = append(replicas, db)
	}

	return NewStore(primary, replicas, logger), nil
}

// NewStore creates a store over already opened connections.
func NewStore(primary *gorm.DB, replicas []*gorm.DB, logger observability.Logger) *Store {
	if logger == nil {
		logger = observability.NopLogger()
	}
	logger.Info("records store ready",
		observability.Int("replicas", len(replicas)),
	)
	return &Store{primary: primary, replicas: replicas, logger: logger}
}

// Migrate creates or updates the schema on the primary.
func (s *Store) Migrate(ctx context.Context) error {
	return s.primary.WithContext(ctx).AutoMigrate(&User{}, &Attendance{}, &Leave{})
}

// Writer returns the primary connection.
func (s *Store) Writer(ctx context.Context) *gorm.DB {
	return s.primary.WithContext(ctx)
}

// Reader returns the next replica in rotation, or the primary when
// there are no replicas.
func (s *Store) Reader(ctx context.Context) *gorm.DB {
	if len(s.replicas) == 0 {
		return s.primary.WithContext(ctx)
	}
	n := s.next.Add(1) - 1
	return s.replicas[n%uint64(len(s.replicas))].WithContext(ctx)
}

// Ping checks the primary connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.primary.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes every connection.
func (s *Store) Close() error {
	var errs []error
	for _, db := range append([]*gorm.DB{s.primary}, s.replicas...) {
		sqlDB, err := db.DB()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := sqlDB.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// GetUser returns the user with the given id, or a *NotFoundError.
func (s *Store) GetUser(ctx context.Context, userID int) (*User, error) {
	ctx, span := s.startSpan(ctx, "records.GetUser", userID)
	defer span.End()

	var u User
	err := s.Reader(ctx).Where("user_id = ?", userID).Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{UserID: fmt.Sprint(userID)}
	}
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return &u, nil
}

// AttendanceFor returns the attendance of a user for a month, oldest first.
func (s *Store) AttendanceFor(ctx context.Context, userID int, month string) ([]Attendance, error) {
	ctx, span := s.startSpan(ctx, "records.AttendanceFor", userID)
	defer span.End()

	rows := make([]Attendance, 0)
	err := s.Reader(ctx).
		Where("user_id = ? AND month = ?", userID, month).
		Order("date ASC").
		Find(&rows).Error
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return rows, nil
}

// LeavesFor returns the leave history of a user, most recent first.
func (s *Store) LeavesFor(ctx context.Context, userID int) ([]Leave, error) {
	ctx, span := s.startSpan(ctx, "records.LeavesFor", userID)
	defer span.End()

	rows := make([]Leave, 0)
	err := s.Reader(ctx).
		Where("user_id = ?", userID).
		Order("start_date DESC").
		Find(&rows).Error
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return rows, nil
}

func (s *Store) startSpan(ctx context.Context, name string, userID int) (context.Context, trace.Span) {
	return otel.Tracer(recordsTracerName).Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.Int("records.user_id", userID),
		),
	)
}

func recordSpanError(span trace.Span, err error) {
	span.SetStatus(codes.Error, err.Error())
	span.RecordError(err)
}

func newGormLogger(logger observability.Logger, slow time.Duration) gormLogger.Interface {
	if slow <= 0 {
		slow = time.Second
	}
	return gormLogger.New(
		gormWriter{logger: logger},
		gormLogger.Config{
			SlowThreshold:             slow,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// gormWriter routes gorm's printf-style output into the structured logger.
type gormWriter struct {
	logger observability.Logger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	if w.logger == nil {
		return
	}
	w.logger.Warn("database", observability.String("detail", fmt.Sprintf(format, args...)))
}
