package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"uplora/internal/auth"
	"uplora/internal/config"
	"uplora/internal/realtime"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	contentTypeEventStream = "text/event-stream"
	sseRetryMillis         = 3000
	sseHeartbeat           = ": heartbeat\n\n"

	defaultHeartbeat      = 25 * time.Second
	defaultStreamLifetime = 270 * time.Second
)

// EventsHandler streams realtime events as server-sent events.
type EventsHandler struct {
	bus       Subscriber
	roles     TeamRoleResolver
	teams     TeamLister
	heartbeat time.Duration
	lifetime  time.Duration
	logger    *zap.Logger
}

func NewEventsHandler(bus Subscriber, roles TeamRoleResolver, teams TeamLister, cfg config.RealtimeConfig, logger *zap.Logger) *EventsHandler {
	heartbeat, lifetime := cfg.HeartbeatInterval, cfg.MaxConnectionLifetime
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	if lifetime <= 0 {
		lifetime = defaultStreamLifetime
	}

	return &EventsHandler{
		bus:       bus,
		roles:     roles,
		teams:     teams,
		heartbeat: heartbeat,
		lifetime:  lifetime,
		logger:    logger,
	}
}

// Stream subscribes the caller and writes events until the lifetime
// elapses, the client goes away or the bus shuts down. With ?teamId= the
// caller needs a role on that team; without it they receive their own
// events and those of the teams they belong to.
func (h *EventsHandler) Stream(c echo.Context) error {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	teamID, err := parseOptionalUUID(c.QueryParam(queryTeamID), msgInvalidTeamID)
	if err != nil {
		return err
	}

	filter := realtime.Filter{UserID: &userID}
	var guard func(realtime.Event) bool
	if teamID != nil {
		if _, err := h.roles.TeamRole(ctx, userID, *teamID); err != nil {
			return err
		}
		filter.TeamID = teamID
	} else {
		guard, err = h.memberGuard(c, userID)
		if err != nil {
			return err
		}
	}

	sub := h.bus.Subscribe(filter, guard)
	var once sync.Once
	closeStream := func() { once.Do(sub.Close) }
	defer closeStream()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, contentTypeEventStream)
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.Header().Set("X-Accel-Buffering", "no")
	res.WriteHeader(http.StatusOK)

	if _, err := fmt.Fprintf(res, "retry: %d\n\n", sseRetryMillis); err != nil {
		return nil
	}
	if err := writeEvent(res, realtime.Event{Type: realtime.EventReady, UserID: &userID, TeamID: teamID, At: time.Now()}); err != nil {
		return nil
	}
	res.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()
	deadline := time.NewTimer(h.lifetime)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-deadline.C:
			return nil
		case <-heartbeat.C:
			if _, err := fmt.Fprint(res, sseHeartbeat); err != nil {
				return nil
			}
			res.Flush()
		case e, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if err := writeEvent(res, e); err != nil {
				h.logger.Debug("sse write failed", zap.String("user_id", userID.String()), zap.Error(err))
				return nil
			}
			res.Flush()
		}
	}
}

// memberGuard admits personal events and events of teams the caller
// belongs to at subscribe time.
func (h *EventsHandler) memberGuard(c echo.Context, userID uuid.UUID) (func(realtime.Event) bool, error) {
	memberships, err := h.teams.List(c.Request().Context(), userID)
	if err != nil {
		return nil, err
	}

	teams := make(map[uuid.UUID]struct{}, len(memberships))
	for _, m := range memberships {
		teams[m.Team.ID] = struct{}{}
	}

	return func(e realtime.Event) bool {
		if e.TeamID == nil {
			return true
		}
		_, ok := teams[*e.TeamID]
		return ok
	}, nil
}

func writeEvent(w *echo.Response, e realtime.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, data)
	return err
}
