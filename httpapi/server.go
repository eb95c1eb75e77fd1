package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/webshell/internal/logx"
	"pkt.systems/webshell/internal/settingsui"
	"pkt.systems/webshell/internal/version"
	"pkt.systems/webshell/schema"
)

// Chrome is the browser chrome the API scripts.
type Chrome interface {
	Snapshot() schema.ChromeSnapshot
	CreateTab(ctx context.Context, url string) (schema.TabSnapshot, error)
	ActivateTab(ctx context.Context, id schema.TabID) bool
	CloseTab(ctx context.Context, id schema.TabID) error
	CloseActiveTab(ctx context.Context) error
	SubmitAddress(ctx context.Context, input string) (string, error)
	GoBack(ctx context.Context) error
	GoForward(ctx context.Context) error
	Reload(ctx context.Context) error
	GoHome(ctx context.Context) error
	Bookmarks() []schema.Bookmark
	OpenBookmark(ctx context.Context, index int) error
	Settings() schema.Settings
	Downloads() []schema.DownloadItem
}

// Server serves the control API.
type Server struct {
	cfg      Config
	chrome   Chrome
	settings settingsui.Backend
	hub      *Hub
	basePath string
}

// NewServer constructs an HTTP server.
func NewServer(cfg Config, chrome Chrome, settings settingsui.Backend, hub *Hub) *Server {
	return &Server{
		cfg:      cfg,
		chrome:   chrome,
		settings: settings,
		hub:      hub,
		basePath: normalizeBasePath(cfg.BasePath),
	}
}

// Handler returns an http.Handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.Handle("/assets/", http.StripPrefix("/assets/", http.FileServer(http.FS(assetsFS))))

	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/tabs", s.handleTabs)
	mux.HandleFunc("/api/tabs/activate", s.handleActivate)
	mux.HandleFunc("/api/tabs/close", s.handleClose)
	mux.HandleFunc("/api/address", s.handleAddress)
	mux.HandleFunc("/api/back", s.handleNav(s.chrome.GoBack))
	mux.HandleFunc("/api/forward", s.handleNav(s.chrome.GoForward))
	mux.HandleFunc("/api/reload", s.handleNav(s.chrome.Reload))
	mux.HandleFunc("/api/home", s.handleNav(s.chrome.GoHome))
	mux.HandleFunc("/api/bookmarks", s.handleBookmarks)
	mux.HandleFunc("/api/bookmarks/open", s.handleOpenBookmark)
	mux.HandleFunc("/api/settings", s.handleSettings)
	mux.HandleFunc("/api/downloads", s.handleDownloads)
	mux.HandleFunc("/api/stream", s.handleStream)

	handler := withRequestLogging(mux)
	if s.basePath == "" {
		return handler
	}
	prefix := s.basePath
	root := http.NewServeMux()
	root.Handle(prefix+"/", http.StripPrefix(prefix, handler))
	root.HandleFunc(prefix, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != prefix {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, prefix+"/", http.StatusTemporaryRedirect)
	})
	return root
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	stat, err := fs.Stat(assetsFS, "index.html")
	if err != nil {
		http.Error(w, "index not found", http.StatusInternalServerError)
		return
	}
	file, err := assetsFS.Open("index.html")
	if err != nil {
		http.Error(w, "index not found", http.StatusInternalServerError)
		return
	}
	defer file.Close()
	seeker, ok := file.(io.ReadSeeker)
	if !ok {
		http.Error(w, "index not seekable", http.StatusInternalServerError)
		return
	}
	http.ServeContent(w, r, "index.html", stat.ModTime(), seeker)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, version.Describe())
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.chrome.Snapshot())
}

func (s *Server) handleTabs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		snapshot := s.chrome.Snapshot()
		writeJSON(w, http.StatusOK, map[string]any{"tabs": snapshot.Tabs, "active_tab": snapshot.ActiveTab})
	case http.MethodPost:
		var payload struct {
			URL string `json:"url"`
		}
		if err := decodeOptionalJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		url := strings.TrimSpace(payload.URL)
		if url == "" {
			url = s.chrome.Settings().Homepage
		}
		tab, err := s.chrome.CreateTab(r.Context(), url)
		if err != nil {
			logx.WithURL(pslog.Ctx(r.Context()), url).Warn("http tab create failed", "err", err)
			writeError(w, http.StatusBadGateway, err)
			return
		}
		writeJSON(w, http.StatusOK, tab)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		ID schema.TabID `json:"id"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if !s.chrome.ActivateTab(r.Context(), payload.ID) {
		writeError(w, http.StatusNotFound, schema.ErrTabNotFound)
		return
	}
	writeJSON(w, http.StatusOK, s.chrome.Snapshot())
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		ID schema.TabID `json:"id"`
	}
	if err := decodeOptionalJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var err error
	if payload.ID == "" {
		err = s.chrome.CloseActiveTab(r.Context())
	} else {
		err = s.chrome.CloseTab(r.Context(), payload.ID)
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, s.chrome.Snapshot())
}

func (s *Server) handleAddress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Input string `json:"input"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	target, err := s.chrome.SubmitAddress(r.Context(), payload.Input)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	if target == "" {
		writeError(w, http.StatusBadRequest, schema.ErrEmptyInput)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"url": target})
}

func (s *Server) handleNav(action func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err := action(r.Context()); err != nil {
			pslog.Ctx(r.Context()).Warn("http navigation failed", "path", r.URL.Path, "err", err)
			writeError(w, http.StatusBadGateway, err)
			return
		}
		writeJSON(w, http.StatusOK, s.chrome.Snapshot())
	}
}

func (s *Server) handleBookmarks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookmarks": s.chrome.Bookmarks()})
}

func (s *Server) handleOpenBookmark(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Index int `json:"index"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if payload.Index < 0 || payload.Index >= len(s.chrome.Bookmarks()) {
		writeError(w, http.StatusNotFound, fmt.Errorf("bookmark %d not found", payload.Index))
		return
	}
	if err := s.chrome.OpenBookmark(r.Context(), payload.Index); err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, s.chrome.Snapshot())
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	if s.settings == nil {
		writeError(w, http.StatusServiceUnavailable, schema.ErrBridgeClosed)
		return
	}
	dialog := settingsui.New(s.settings)
	switch r.Method {
	case http.MethodGet:
		form, err := dialog.Open(r.Context())
		if err != nil {
			writeError(w, http.StatusBadGateway, err)
			return
		}
		writeJSON(w, http.StatusOK, form)
	case http.MethodPost:
		var form settingsui.Form
		if err := decodeJSON(r.Body, &form); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		settings, err := dialog.Submit(r.Context(), form)
		if err != nil {
			status := http.StatusBadGateway
			if errors.Is(err, schema.ErrInvalidSearchEngine) || errors.Is(err, schema.ErrInvalidHomepage) {
				status = http.StatusBadRequest
			}
			writeError(w, status, err)
			return
		}
		writeJSON(w, http.StatusOK, settings)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleDownloads(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"downloads": s.chrome.Downloads()})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("stream unsupported"))
		return
	}
	log := pslog.Ctx(r.Context())

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	lastID := parseUint(r.Header.Get("Last-Event-ID"))

	// Subscribe before the snapshot so nothing published in between is lost.
	ch, unsubscribe := s.hub.Subscribe()
	defer unsubscribe()

	snapshot := s.chrome.Snapshot()
	_ = writeSSEvent(w, StreamEvent{
		Type:      "snapshot",
		Snapshot:  &snapshot,
		Timestamp: time.Now(),
	})
	flusher.Flush()

	replayCount := 0
	cursor := streamCursor{last: lastID}
	if lastID > 0 {
		replay := s.hub.Replay(lastID)
		replayCount = len(replay)
		for _, event := range replay {
			if cursor.admit(event) {
				_ = writeSSEvent(w, event)
			}
		}
		flusher.Flush()
	}

	notify := r.Context().Done()
	log.Info("http stream opened", "last_id", lastID, "replay", replayCount, "tabs", len(snapshot.Tabs))
	for {
		select {
		case <-notify:
			log.Info("http stream closed")
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			if !cursor.admit(event) {
				continue
			}
			_ = writeSSEvent(w, event)
			flusher.Flush()
		}
	}
}

// streamCursor remembers the last seq written to one stream client. Events
// published between Subscribe and Replay show up in both; the live copy is
// skipped.
type streamCursor struct {
	last uint64
}

func (c *streamCursor) admit(event StreamEvent) bool {
	if event.Seq <= c.last {
		return false
	}
	c.last = event.Seq
	return true
}

func decodeJSON(body io.Reader, target any) error {
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

// decodeOptionalJSON accepts an empty body.
func decodeOptionalJSON(body io.Reader, target any) error {
	if err := decodeJSON(body, target); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeSSEvent(w http.ResponseWriter, event StreamEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if event.Seq > 0 {
		_, _ = fmt.Fprintf(w, "id: %d\n", event.Seq)
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", strings.TrimSpace(string(data)))
	return nil
}

func parseUint(value string) uint64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}
