package web

import (
	"context"
	"encoding/json"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/cjeanneret/SnapGo/internal/hw/camera"
	"github.com/cjeanneret/SnapGo/internal/hw/gallery"
	"github.com/cjeanneret/SnapGo/internal/logic/session"
)

// Session is the controller surface the handlers drive.
type Session interface {
	RequestPermission(ctx context.Context) bool
	TakePhoto(ctx context.Context) error
	StartRecording(ctx context.Context) error
	StopRecording(ctx context.Context) error
	ToggleFacing() camera.Facing
	State() session.Snapshot
}

// AssetLister lists recently exported media, newest first.
type AssetLister interface {
	Recent(ctx context.Context, limit int) ([]gallery.Entry, error)
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Broadcaster *StatusBroadcaster
	Session     Session
	Assets      AssetLister
	staticFS    fs.FS
}

// NewHandlers creates handlers with the given dependencies.
// If sess is nil, action endpoints return 503 Service Unavailable.
func NewHandlers(broadcaster *StatusBroadcaster, sess Session, assets AssetLister, staticFS fs.FS) *Handlers {
	return &Handlers{
		Broadcaster: broadcaster,
		Session:     sess,
		Assets:      assets,
		staticFS:    staticFS,
	}
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handlers) sessionReady(w http.ResponseWriter) bool {
	if h.Session == nil {
		http.Error(w, "session not configured", http.StatusServiceUnavailable)
		return false
	}
	return true
}

// HandleState returns the current session snapshot as JSON.
func (h *Handlers) HandleState(w http.ResponseWriter, r *http.Request) {
	if !h.sessionReady(w) {
		return
	}
	h.writeJSON(w, http.StatusOK, h.Session.State())
}

// HandlePhoto handles POST /photo. The capture runs in a goroutine;
// its outcome reaches clients through the status stream and /state.
func (h *Handlers) HandlePhoto(w http.ResponseWriter, r *http.Request) {
	if !h.sessionReady(w) {
		return
	}

	go func() {
		// A capture task runs to completion or failure; errors are
		// already recorded in the session and broadcast.
		_ = h.Session.TakePhoto(context.Background())
	}()

	h.writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// HandleRecordingStart handles POST /recording/start.
func (h *Handlers) HandleRecordingStart(w http.ResponseWriter, r *http.Request) {
	if !h.sessionReady(w) {
		return
	}

	go func() {
		_ = h.Session.StartRecording(context.Background())
	}()

	h.writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// HandleRecordingStop handles POST /recording/stop. Stopping is quick, so
// it runs synchronously and returns the resulting snapshot.
func (h *Handlers) HandleRecordingStop(w http.ResponseWriter, r *http.Request) {
	if !h.sessionReady(w) {
		return
	}

	_ = h.Session.StopRecording(r.Context())
	h.writeJSON(w, http.StatusOK, h.Session.State())
}

// HandleToggleFacing handles POST /facing/toggle.
func (h *Handlers) HandleToggleFacing(w http.ResponseWriter, r *http.Request) {
	if !h.sessionReady(w) {
		return
	}
	facing := h.Session.ToggleFacing()
	h.writeJSON(w, http.StatusOK, map[string]string{"facing": string(facing)})
}

// HandlePermission handles POST /permission. The request blocks until the
// gatekeeper answers (a prompter may wait on the user).
func (h *Handlers) HandlePermission(w http.ResponseWriter, r *http.Request) {
	if !h.sessionReady(w) {
		return
	}
	granted := h.Session.RequestPermission(r.Context())
	h.writeJSON(w, http.StatusOK, map[string]bool{"granted": granted})
}

const defaultAssetLimit = 20

// HandleAssets handles GET /assets: the most recent gallery entries,
// newest first. An optional limit query parameter caps the count.
func (h *Handlers) HandleAssets(w http.ResponseWriter, r *http.Request) {
	if h.Assets == nil {
		http.Error(w, "media index not configured", http.StatusServiceUnavailable)
		return
	}

	limit := defaultAssetLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v <= 0 || v > 500 {
			http.Error(w, "limit must be 1-500", http.StatusBadRequest)
			return
		}
		limit = v
	}

	entries, err := h.Assets.Recent(r.Context(), limit)
	if err != nil {
		http.Error(w, "media index query failed", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []gallery.Entry{}
	}
	h.writeJSON(w, http.StatusOK, entries)
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	// Send initial comment to establish connection
	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	// Heartbeat while idle
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
