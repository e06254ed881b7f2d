package approval

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/gdg-garage/vegfest-api/internal/audit"
	"github.com/gdg-garage/vegfest-api/internal/authz"
	"github.com/gdg-garage/vegfest-api/internal/models"
	"github.com/gdg-garage/vegfest-api/internal/sentinel"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const DefaultMaxAttempts = 3

// Store is the registration persistence the engine needs.
//
// ApplyTransition must commit the whole decision atomically and only if the
// registration is still at expectedVersion; otherwise it returns
// sentinel.ErrConflict and commits nothing.
type Store interface {
	FindRegistration(ctx context.Context, id uint) (*models.Registration, error)
	ApplyTransition(ctx context.Context, id uint, expectedVersion uint, d Decision) error
}

type StatusNotifier interface {
	NotifyStatusChange(reg models.Registration, label string, actorName string) error
}

type Result struct {
	Registration *models.Registration
	Decision     Decision
}

// Engine drives registration status under the two-approver quorum.
type Engine struct {
	store       Store
	recorder    audit.Recorder
	notifier    StatusNotifier
	logger      *slog.Logger
	metrics     *Metrics
	tracer      trace.Tracer
	maxAttempts int
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func WithNotifier(n StatusNotifier) Option {
	return func(e *Engine) {
		e.notifier = n
	}
}

func WithMaxAttempts(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

func New(store Store, recorder audit.Recorder, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, errors.New("approval: store is required")
	}
	if recorder == nil {
		return nil, errors.New("approval: audit recorder is required")
	}
	e := &Engine{
		store:       store,
		recorder:    recorder,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:      otel.Tracer("github.com/gdg-garage/vegfest-api/internal/approval"),
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// RequestStatusChange moves registration id towards requested on behalf of
// actor. Errors returned before the commit leave the registration untouched.
// The audit entry and notification are best effort.
func (e *Engine) RequestStatusChange(ctx context.Context, actor authz.Principal, id uint, requested models.RegistrationStatus) (*Result, error) {
	ctx, span := e.tracer.Start(ctx, "approval.RequestStatusChange", trace.WithAttributes(
		attribute.Int64("registration.id", int64(id)),
		attribute.String("registration.requested_status", string(requested)),
		attribute.Int64("admin.id", int64(actor.UserID)),
	))
	defer span.End()

	res, err := e.requestStatusChange(ctx, actor, id, requested)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("registration.status", string(res.Decision.To)))
	return res, nil
}

func (e *Engine) requestStatusChange(ctx context.Context, actor authz.Principal, id uint, requested models.RegistrationStatus) (*Result, error) {
	if err := actor.Require(authz.VoteRegistrations); err != nil {
		return nil, err
	}
	if !requested.Reviewable() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, requested)
	}

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		reg, err := e.store.FindRegistration(ctx, id)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, &StorageError{Op: "load registration", Err: err}
		}

		d, err := Transition(StateOf(reg), requested, actor.UserID)
		if err != nil {
			return nil, err
		}

		err = e.store.ApplyTransition(ctx, id, reg.Version, d)
		if errors.Is(err, sentinel.ErrConflict) {
			e.metrics.conflict()
			e.logger.WarnContext(ctx, "status change lost a concurrent update, retrying",
				"registration_id", id,
				"attempt", attempt,
			)
			continue
		}
		if err != nil {
			return nil, &StorageError{Op: "apply status change", Err: err}
		}

		reg.Status = d.To
		reg.Version++
		reg.SetApprovedBy(d.ApprovedBy.IDs())
		e.metrics.statusChanged(string(d.To))

		e.logger.InfoContext(ctx, "registration status changed",
			"registration_id", id,
			"admin_id", actor.UserID,
			"from", d.From,
			"to", d.To,
			"detail", d.Label,
		)

		e.recordAudit(ctx, actor, reg, d)
		e.notify(ctx, actor, reg, d)

		return &Result{Registration: reg, Decision: d}, nil
	}

	return nil, &StorageError{Op: "apply status change", Err: errAttemptsExhausted}
}

func (e *Engine) recordAudit(ctx context.Context, actor authz.Principal, reg *models.Registration, d Decision) {
	adminID := actor.UserID
	changes := audit.ChangeSet{audit.StatusChange{Old: string(d.From), New: string(d.To)}}
	if !d.Before.Equal(d.ApprovedBy) {
		changes = append(changes, audit.FieldChange{
			Field: "approved_by",
			Old:   d.Before.IDs(),
			New:   d.ApprovedBy.IDs(),
		})
	}

	entry := audit.Entry{
		AdminID:    &adminID,
		ActorName:  actor.DisplayName,
		EntityID:   reg.ID,
		EntityType: audit.EntityRegistration,
		Action:     d.Action,
		Target:     "status",
		Changes:    changes,
		Details:    d.Label,
	}

	// The status change is committed; a cancelled request must not lose its audit entry.
	if err := e.recorder.Record(context.WithoutCancel(ctx), entry); err != nil {
		e.metrics.auditFailed()
		e.logger.ErrorContext(ctx, "failed to record status change audit entry",
			"error", err,
			"registration_id", reg.ID,
			"action", d.Action,
		)
	}
}

func (e *Engine) notify(ctx context.Context, actor authz.Principal, reg *models.Registration, d Decision) {
	if e.notifier == nil {
		return
	}
	if d.To != models.StatusApproved && d.To != models.StatusDeclined {
		return
	}
	if err := e.notifier.NotifyStatusChange(*reg, d.Label, actor.DisplayName); err != nil {
		e.logger.WarnContext(ctx, "status change notification failed",
			"error", err,
			"registration_id", reg.ID,
		)
	}
}
