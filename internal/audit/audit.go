package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ActorType represents the type of entity performing an action
type ActorType string

const (
	ActorTypeUser   ActorType = "user"
	ActorTypeSystem ActorType = "system"
)

// ResourceType represents the type of resource being acted upon
type ResourceType string

const (
	ResourceTypeVideo  ResourceType = "video"
	ResourceTypeUpload ResourceType = "upload"
	ResourceTypeTeam   ResourceType = "team"
	ResourceTypeMember ResourceType = "member"
	ResourceTypeInvite ResourceType = "invite"
	ResourceTypeUser   ResourceType = "user"
)

// Action represents the action being performed
type Action string

const (
	ActionCreate          Action = "create"
	ActionUpdate          Action = "update"
	ActionDelete          Action = "delete"
	ActionComplete        Action = "complete"
	ActionCancel          Action = "cancel"
	ActionReap            Action = "reap"
	ActionRequestApproval Action = "request_approval"
	ActionApprove         Action = "approve"
	ActionReject          Action = "reject"
	ActionReplace         Action = "replace"
	ActionAccept          Action = "accept"
	ActionDecline         Action = "decline"
	ActionLeave           Action = "leave"
	ActionSignup          Action = "signup"
	ActionLogin           Action = "login"
	ActionPasswordReset   Action = "password_reset"
)

// Status represents the outcome of an action
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusDenied  Status = "denied"
)

const defaultWriteTimeout = 2 * time.Second

// Event represents an audit event
type Event struct {
	ID           uuid.UUID
	EventType    string
	ActorType    ActorType
	ActorID      *uuid.UUID
	ResourceType ResourceType
	ResourceID   *uuid.UUID
	Action       Action
	Status       Status
	IPAddress    string
	UserAgent    string
	RequestID    string
	Metadata     map[string]any
	ErrorMessage string
	CreatedAt    time.Time
}

// Store persists audit events.
type Store interface {
	Insert(ctx context.Context, event *Event) error
	Query(ctx context.Context, filter QueryFilter) ([]*Event, error)
}

// Logger writes audit events in the background so a slow or failing audit
// table never delays the request that produced the event.
type Logger struct {
	store   Store
	logger  *zap.Logger
	timeout time.Duration
	now     func() time.Time
	wg      sync.WaitGroup
}

func NewLogger(store Store, logger *zap.Logger) *Logger {
	return &Logger{
		store:   store,
		logger:  logger,
		timeout: defaultWriteTimeout,
		now:     time.Now,
	}
}

// Record fills in request details carried by ctx and stores the event
// asynchronously. A nil Logger discards events.
func (l *Logger) Record(ctx context.Context, event *Event) {
	if l == nil {
		return
	}

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = l.now()
	}
	if event.Status == "" {
		event.Status = StatusSuccess
	}
	if event.EventType == "" {
		event.EventType = string(event.Action) + "_" + string(event.ResourceType)
	}
	if event.ActorType == "" {
		if event.ActorID != nil {
			event.ActorType = ActorTypeUser
		} else {
			event.ActorType = ActorTypeSystem
		}
	}
	if req, ok := RequestFromContext(ctx); ok {
		event.IPAddress = req.IPAddress
		event.UserAgent = req.UserAgent
		event.RequestID = req.RequestID
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()

		writeCtx, cancel := context.WithTimeout(context.Background(), l.timeout)
		defer cancel()

		if err := l.store.Insert(writeCtx, event); err != nil {
			l.logger.Warn("audit log failed",
				zap.String("event_type", event.EventType),
				zap.String("request_id", event.RequestID),
				zap.Error(err))
		}
	}()
}

// Failure records a failed action with its error message.
func (l *Logger) Failure(ctx context.Context, event *Event, err error) {
	if l == nil || err == nil {
		return
	}
	event.Status = StatusFailure
	event.ErrorMessage = err.Error()
	l.Record(ctx, event)
}

// Denied records an action the permission model refused.
func (l *Logger) Denied(ctx context.Context, event *Event, err error) {
	if l == nil {
		return
	}
	event.Status = StatusDenied
	if err != nil {
		event.ErrorMessage = err.Error()
	}
	l.Record(ctx, event)
}

func (l *Logger) Query(ctx context.Context, filter QueryFilter) ([]*Event, error) {
	return l.store.Query(ctx, filter)
}

// Close waits for pending writes.
func (l *Logger) Close() {
	if l == nil {
		return
	}
	l.wg.Wait()
}

// Request is the per-request detail attached to every event.
type Request struct {
	IPAddress string
	UserAgent string
	RequestID string
}

type requestKey struct{}

func WithRequest(ctx context.Context, req Request) context.Context {
	return context.WithValue(ctx, requestKey{}, req)
}

func RequestFromContext(ctx context.Context) (Request, bool) {
	req, ok := ctx.Value(requestKey{}).(Request)
	return req, ok
}

// Middleware copies the client address, user agent and request id into
// the request context. Must run after the request id middleware.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx := WithRequest(req.Context(), Request{
				IPAddress: c.RealIP(),
				UserAgent: req.UserAgent(),
				RequestID: c.Response().Header().Get(echo.HeaderXRequestID),
			})
			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	}
}
