package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"tradeengine/src/model"
	"tradeengine/src/repository"
)

// Emitter publishes notifications and activity records: rows go to the
// store for polling clients, notification JSON is pushed to the websocket
// hub and to in-process subscribers. Emission failures are logged, never
// propagated into the trading path.
type Emitter struct {
	notifications *repository.NotificationRepository
	activities    *repository.ActivityRepository
	hub           *Hub
	userID        string
	now           func() time.Time

	mu          sync.Mutex
	subscribers []chan model.Notification
}

// NewEmitter wires the emitter. hub may be nil when no websocket delivery is
// wanted (tests, CLI runs).
func NewEmitter(
	notifications *repository.NotificationRepository,
	activities *repository.ActivityRepository,
	hub *Hub,
	userID string,
) *Emitter {
	return &Emitter{
		notifications: notifications,
		activities:    activities,
		hub:           hub,
		userID:        userID,
		now:           time.Now,
	}
}

// Subscribe returns a channel receiving every emitted notification. Slow
// subscribers have messages dropped rather than blocking settlement.
func (e *Emitter) Subscribe() <-chan model.Notification {
	ch := make(chan model.Notification, 32)

	e.mu.Lock()
	e.subscribers = append(e.subscribers, ch)
	e.mu.Unlock()

	return ch
}

// Notify persists and broadcasts one notification.
func (e *Emitter) Notify(ctx context.Context, kind, title, message, positionID string, payload map[string]any) {
	notification := model.Notification{
		ID:         uuid.NewString(),
		UserID:     e.userID,
		Kind:       kind,
		Title:      title,
		Message:    message,
		PositionID: positionID,
		Payload:    payload,
		CreatedAt:  e.now(),
	}

	if e.notifications != nil {
		if err := e.notifications.Create(ctx, &notification); err != nil {
			logger.WithError(err).WithField("kind", kind).Error("failed to persist notification")
		}
	}

	if e.hub != nil {
		if encoded, err := json.Marshal(notification); err == nil {
			e.hub.Broadcast(encoded)
		} else {
			logger.WithError(err).Error("failed to encode notification")
		}
	}

	e.mu.Lock()
	for _, ch := range e.subscribers {
		select {
		case ch <- notification:
		default:
		}
	}
	e.mu.Unlock()
}

// Activity appends one audit record.
func (e *Emitter) Activity(
	ctx context.Context,
	category, action, description string,
	amount decimal.Decimal,
	symbol, status string,
	meta map[string]any,
) {
	record := model.ActivityRecord{
		ID:          uuid.NewString(),
		UserID:      e.userID,
		Category:    category,
		Action:      action,
		Description: description,
		Amount:      amount,
		Symbol:      symbol,
		Status:      status,
		Meta:        meta,
		CreatedAt:   e.now(),
	}

	if e.activities != nil {
		if err := e.activities.Create(ctx, &record); err != nil {
			logger.WithError(err).WithField("action", action).Error("failed to persist activity record")
		}
	}
}
