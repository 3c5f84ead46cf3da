package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"tradeengine/src/engine"
	"tradeengine/src/model"
	"tradeengine/src/repository"
)

// SubmitTradeHandler accepts a trade request and returns the created
// position, or the rejection reason.
func SubmitTradeHandler(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var request model.TradeRequest
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&request); err != nil {
			logger.WithError(err).Warn("invalid trade payload")
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}

		position, err := eng.Submit(r.Context(), request)
		if err != nil {
			writeEngineError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if err := json.NewEncoder(w).Encode(position); err != nil {
			logger.WithError(err).Error("failed to encode position response")
		}
	}
}

// CancelOrderHandler cancels an untriggered pending limit/stop order.
func CancelOrderHandler(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if err := eng.CancelPendingOrder(r.Context(), id); err != nil {
			writeEngineError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

type overridePayload struct {
	Outcome string `json:"outcome"` // "won" or "lost"
}

// OverrideHandler forces a terminal state on an open position. Mounted
// behind the admin token middleware.
func OverrideHandler(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var payload overridePayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}

		var win bool
		switch payload.Outcome {
		case "won", "win":
			win = true
		case "lost", "lose":
			win = false
		default:
			http.Error(w, "outcome must be won or lost", http.StatusBadRequest)
			return
		}

		if err := eng.Override(r.Context(), id, win); err != nil {
			writeEngineError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// ListOpenHandler returns all open positions.
func ListOpenHandler(positions *repository.PositionRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		open, err := positions.FindOpen(r.Context())
		if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, open)
	}
}

// HistoryHandler lists positions with optional status/type/symbol filters.
func HistoryHandler(positions *repository.PositionRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		options := repository.PositionSearchOptions{
			InstrumentType: r.URL.Query().Get("type"),
			Status:         r.URL.Query().Get("status"),
			Symbol:         r.URL.Query().Get("symbol"),
			Limit:          20,
		}

		if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
			limit, err := strconv.Atoi(limitParam)
			if err != nil || limit <= 0 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			options.Limit = limit
		}
		if pageParam := r.URL.Query().Get("page"); pageParam != "" {
			page, err := strconv.Atoi(pageParam)
			if err != nil || page <= 0 {
				http.Error(w, "invalid page", http.StatusBadRequest)
				return
			}
			options.Offset = (page - 1) * options.Limit
		}

		results, err := positions.Search(r.Context(), options)
		if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, results)
	}
}

// StatisticsHandler returns aggregate win/loss counts and net profit.
func StatisticsHandler(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := eng.Statistics(r.Context(), r.URL.Query().Get("type"))
		if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, stats)
	}
}

// NotificationsHandler returns the newest notifications for polling clients.
func NotificationsHandler(notifications *repository.NotificationRepository, userID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		latest, err := notifications.FindLatest(r.Context(), userID, queryLimit(r, 20))
		if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, latest)
	}
}

// ActivityHandler returns the capped activity feed.
func ActivityHandler(activities *repository.ActivityRepository, userID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		latest, err := activities.FindLatest(r.Context(), userID, queryLimit(r, 20))
		if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, latest)
	}
}

func queryLimit(r *http.Request, fallback int) int {
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		if limit, err := strconv.Atoi(limitParam); err == nil && limit > 0 {
			return limit
		}
	}
	return fallback
}

func writeJSON(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(value); err != nil {
		logger.WithError(err).Error("failed to encode response")
	}
}

// writeEngineError maps engine sentinels onto HTTP statuses; the wrapped
// reason string is surfaced to the caller.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrInvalidRequest):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, engine.ErrInsufficientFunds):
		http.Error(w, err.Error(), http.StatusPaymentRequired)
	case errors.Is(err, engine.ErrPositionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, engine.ErrPositionAlreadyTerminal):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, engine.ErrPriceUnavailable):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		logger.WithError(err).Error("trade request failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
