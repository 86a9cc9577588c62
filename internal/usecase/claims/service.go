package claims

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"claimdesk/internal/bootstrap/logging"
	"claimdesk/internal/domain/activity"
	"claimdesk/internal/domain/claim"
	"claimdesk/internal/errs"
	"claimdesk/internal/ports"
)

const (
	defaultIDPrefix     = "CLM"
	defaultMaxFileBytes = 2 << 20
	defaultDashboardTTL = time.Minute

	cacheDashboardKey = "dashboard:v1"
)

var (
	errRepositoryRequired = errors.New("claim repository is required")
	errUnitOfWorkRequired = errors.New("claim unit of work is required")
	errActorRequired      = errors.New("actor is required")
)

type Service struct {
	repo      ports.ClaimRepository
	uow       ports.UnitOfWork
	cache     ports.Cache
	storage   ports.FileStorage
	reporter  ports.ReportGenerator
	notifier  ports.StatusNotifier
	publisher ports.NotificationPublisher

	dispatcher *Dispatcher

	idPrefix     string
	maxFileBytes int64
	transitions  claim.TransitionPolicy
	dashboardTTL time.Duration
	now          func() time.Time
	newID        func() string
}

type Option func(*Service)

func WithStorage(storage ports.FileStorage) Option {
	return func(s *Service) { s.storage = storage }
}

func WithReportGenerator(reporter ports.ReportGenerator) Option {
	return func(s *Service) { s.reporter = reporter }
}

func WithStatusNotifier(notifier ports.StatusNotifier) Option {
	return func(s *Service) { s.notifier = notifier }
}

func WithPublisher(publisher ports.NotificationPublisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

// WithDispatcher moves email notifications off the request path.
// Without one they run inline after the write has committed.
func WithDispatcher(dispatcher *Dispatcher) Option {
	return func(s *Service) { s.dispatcher = dispatcher }
}

func WithIDPrefix(prefix string) Option {
	return func(s *Service) {
		if prefix != "" {
			s.idPrefix = prefix
		}
	}
}

func WithMaxFileBytes(limit int64) Option {
	return func(s *Service) {
		if limit > 0 {
			s.maxFileBytes = limit
		}
	}
}

func WithTransitionPolicy(policy claim.TransitionPolicy) Option {
	return func(s *Service) {
		if policy != nil {
			s.transitions = policy
		}
	}
}

func WithDashboardTTL(ttl time.Duration) Option {
	return func(s *Service) { s.dashboardTTL = ttl }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService wires claim usecases with repository, transactions and optional cache.
func NewService(repo ports.ClaimRepository, uow ports.UnitOfWork, cache ports.Cache, opts ...Option) *Service {
	s := &Service{
		repo:         repo,
		uow:          uow,
		cache:        cache,
		idPrefix:     defaultIDPrefix,
		maxFileBytes: defaultMaxFileBytes,
		transitions:  claim.AnyTransition,
		dashboardTTL: defaultDashboardTTL,
		now:          func() time.Time { return time.Now().UTC() },
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Service) MaxFileBytes() int64 {
	return s.maxFileBytes
}

func (s *Service) checkWrite(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return errRepositoryRequired
	}
	if s.uow == nil {
		return errUnitOfWorkRequired
	}
	return nil
}

func (s *Service) checkRead(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return errRepositoryRequired
	}
	return nil
}

func (s *Service) stampNotifications(batch []activity.Notification) {
	for i := range batch {
		if batch[i].ID == "" {
			batch[i].ID = s.newID()
		}
	}
}

func (s *Service) createNotificationsTx(ctx context.Context, batch []activity.Notification) error {
	for _, n := range batch {
		if err := s.repo.CreateNotification(ctx, n); err != nil {
			return errs.Wrapf(err, "create notification %s", n.Message.Kind)
		}
	}
	return nil
}

// afterWrite runs the post-commit side effects that never fail the request.
func (s *Service) afterWrite(ctx context.Context, batch []activity.Notification) {
	if s.publisher != nil && len(batch) > 0 {
		s.publisher.Publish(ctx, batch)
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, cacheDashboardKey); err != nil {
			logging.Warn(ctx, "invalidate dashboard cache failed", slog.Any("err", errs.Loggable(err)))
		}
	}
}

func (s *Service) dispatch(ctx context.Context, name string, task Task) {
	if s.dispatcher != nil {
		s.dispatcher.Submit(ctx, name, task)
		return
	}
	if err := task(context.WithoutCancel(ctx)); err != nil {
		logging.Warn(ctx, "notification failed", slog.String("task", name), slog.Any("err", errs.Loggable(err)))
	}
}

func requireActor(actor claim.User) error {
	if actor.ID == "" {
		return errs.WrapKind(errActorRequired, errs.KindInvalidInput, "check actor")
	}
	return nil
}

func persistenceError(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errs.KindOf(err) != "" {
		return err
	}
	return errs.WrapKind(err, errs.KindPersistenceFailed, msg)
}
