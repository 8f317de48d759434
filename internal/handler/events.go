package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"storefront/internal/storage"
)

// eventKeepAlive is the interval between comment frames on an idle stream.
const eventKeepAlive = 25 * time.Second

// handleEvents streams change notifications for the shared catalog state and
// the calling profile as server-sent events. Each frame is a storage.Change;
// tabs compare its origin with their own id to skip echoes of their writes.
// GET /events
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	_, id, err := h.shopper(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	rc := http.NewResponseController(w)

	shared := h.store.Subscribe(storage.SharedNamespace)
	defer shared.Close()
	profile := h.store.Subscribe(storage.ProfileNamespace(id.Profile))
	defer profile.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		h.logger.ErrorContext(ctx, "event stream unsupported", slog.String("error", err.Error()))
		return
	}

	h.logger.DebugContext(ctx, "event stream opened",
		slog.String("profile", id.Profile),
		slog.String("tab", id.Tab),
	)

	ticker := time.NewTicker(eventKeepAlive)
	defer ticker.Stop()

	for {
		var change storage.Change
		var ok bool
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
			continue
		case change, ok = <-shared.C:
		case change, ok = <-profile.C:
		}
		if !ok {
			return
		}

		data, err := json.Marshal(change)
		if err != nil {
			h.logger.ErrorContext(ctx, "failed to encode change", slog.String("error", err.Error()))
			continue
		}
		if _, err := fmt.Fprintf(w, "event: change\ndata: %s\n\n", data); err != nil {
			return
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
