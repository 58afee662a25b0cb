package web

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/cors"

	"rokcal/internal/catalog"
	"rokcal/internal/config"
	"rokcal/internal/ics"
	"rokcal/internal/index"
	appLog "rokcal/internal/log"
	"rokcal/internal/metrics"
	"rokcal/internal/model"
	"rokcal/internal/nav"
	"rokcal/internal/view"
)

const dateLayout = "2006-01-02"

// Server exposes the calendar views, the JSON API, the iCalendar feed and
// the catalog proxy over one ServeMux.
type Server struct {
	cfg      *config.Config
	store    *catalog.Store
	renderer *view.Renderer
	metrics  *metrics.Manager
	proxy    *catalog.Fetcher
	loc      *time.Location
	now      func() time.Time
	mux      *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithClock overrides the clock used for "today" and default query values.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// WithProxyFetcher replaces the fetcher used by /api/events.
func WithProxyFetcher(f *catalog.Fetcher) Option {
	return func(s *Server) {
		if f != nil {
			s.proxy = f
		}
	}
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, store *catalog.Store, renderer *view.Renderer, m *metrics.Manager, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		store:    store,
		renderer: renderer,
		metrics:  m,
		loc:      cfg.Location(),
		now:      time.Now,
		mux:      http.NewServeMux(),
	}
	s.proxy = catalog.NewFetcher("",
		catalog.WithUserAgent(cfg.Proxy.UserAgent),
		catalog.WithHTTPClient(&http.Client{Timeout: cfg.Timeout()}),
	)
	for _, opt := range opts {
		opt(s)
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password disables auth.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="rokcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Serve listens on cfg.Listen until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		appLog.Info("shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.Handle("/metrics", s.metrics.Handler())

	proxyCORS := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		// handleProxy answers preflights itself with 200 and the full header set.
		OptionsPassthrough: true,
	})
	s.mux.Handle("/api/events", proxyCORS.Handler(http.HandlerFunc(s.handleProxy)))

	s.mux.HandleFunc("/api/state", s.handleState)
	s.mux.HandleFunc("/api/refresh", s.handleRefresh)
	s.mux.HandleFunc("/api/templates", s.handleTemplates)
	s.mux.HandleFunc("/api/occurrences", s.handleOccurrences)
	s.mux.HandleFunc("/api/month", s.handleMonth)
	s.mux.HandleFunc("/api/upcoming", s.handleUpcoming)

	s.mux.HandleFunc("/calendar", s.handleCalendar)
	s.mux.HandleFunc("/calendar/event", s.handleDetail)
	s.mux.HandleFunc("/calendar.ics", s.handleICS)
	s.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/calendar", http.StatusFound)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// proxyError is the failure body of /api/events.
type proxyError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// handleProxy relays the upstream catalog. The response is always JSON:
// the upstream events on success, or 500 with {error, message}.
func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type")

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodGet:
	default:
		// Not part of the 200/500 contract, which covers GET and OPTIONS.
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	events, err := s.proxy.Fetch(r.Context(), s.cfg.Proxy.Upstream)
	if err != nil {
		appLog.Error("proxy fetch failed", err)
		s.metrics.RecordProxy(http.StatusInternalServerError)
		writeJSON(w, http.StatusInternalServerError, proxyError{
			Error:   catalog.GenericFetchMessage,
			Message: proxyMessage(err),
		})
		return
	}
	if events == nil {
		events = []catalog.RemoteEvent{}
	}
	s.metrics.RecordProxy(http.StatusOK)
	writeJSON(w, http.StatusOK, events)
}

func proxyMessage(err error) string {
	var fe *catalog.FetchError
	if errors.As(err, &fe) {
		if fe.Message != "" {
			return fe.Message
		}
		if fe.Status != 0 {
			return "HTTP error! status: " + strconv.Itoa(fe.Status)
		}
	}
	return err.Error()
}

// stateResponse is the JSON shape for /api/state.
type stateResponse struct {
	Loading     bool      `json:"loading"`
	Error       string    `json:"error,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitzero"`
	Templates   int       `json:"templates"`
	Occurrences int       `json:"occurrences"`
	HorizonEnd  time.Time `json:"horizon_end,omitzero"`
	Truncated   []string  `json:"truncated,omitempty"`
	Warnings    int       `json:"warnings"`
	Source      string    `json:"source"`
	Timezone    string    `json:"timezone"`
	WeekStart   string    `json:"week_start"`
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) state() stateResponse {
	st := s.store.Status()
	resp := stateResponse{
		Loading:     st.Loading,
		UpdatedAt:   st.UpdatedAt,
		Templates:   st.Templates,
		Occurrences: st.Occurrences,
		Source:      s.cfg.Source.Mode,
		Timezone:    s.loc.String(),
		WeekStart:   s.cfg.WeekStart,
	}
	if st.Err != nil {
		resp.Error = catalog.UserMessage(st.Err)
	}
	if snap := s.store.Snapshot(); snap != nil {
		resp.HorizonEnd = snap.HorizonEnd
		resp.Truncated = snap.Truncated
		resp.Warnings = len(snap.Warnings)
	}
	return resp
}

// handleRefresh is the manual retry: it reloads the catalog and reports
// the resulting state.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	err := s.store.Refresh(r.Context())
	switch {
	case errors.Is(err, catalog.ErrSuperseded):
		writeJSON(w, http.StatusAccepted, s.state())
	case err != nil:
		writeJSON(w, http.StatusBadGateway, s.state())
	default:
		writeJSON(w, http.StatusOK, s.state())
	}
}

// occurrenceDTO is a JSON-friendly view of occurrences.
type occurrenceDTO struct {
	TemplateID string    `json:"template_id"`
	Title      string    `json:"title"`
	EventType  string    `json:"event_type"`
	Priority   string    `json:"priority"`
	Color      string    `json:"color"`
	Date       time.Time `json:"date"`
	End        time.Time `json:"end,omitzero"`
	Pattern    int       `json:"pattern"`
	Run        int       `json:"run"`
	IsStart    bool      `json:"is_start"`
	IsDuring   bool      `json:"is_during"`
}

func toDTOs(occs []model.Occurrence) ([]occurrenceDTO, error) {
	out := make([]occurrenceDTO, 0, len(occs))
	for _, o := range occs {
		color, err := o.Template.DisplayColor()
		if err != nil {
			return nil, err
		}
		out = append(out, occurrenceDTO{
			TemplateID: o.Template.ID,
			Title:      o.Template.Title,
			EventType:  string(o.Template.EventType),
			Priority:   string(o.Template.Priority),
			Color:      color,
			Date:       o.Date,
			End:        o.End,
			Pattern:    o.Pattern,
			Run:        o.Run,
			IsStart:    o.IsStart,
			IsDuring:   o.IsDuring,
		})
	}
	return out, nil
}

func (s *Server) writeOccurrences(w http.ResponseWriter, occs []model.Occurrence) {
	dtos, err := toDTOs(occs)
	if err != nil {
		appLog.Error("occurrence conversion failed", err)
		writeError(w, http.StatusInternalServerError, "failed to convert occurrences")
		return
	}
	writeJSON(w, http.StatusOK, dtos)
}

// snapshot returns the current snapshot or writes 503 when none exists.
func (s *Server) snapshot(w http.ResponseWriter) *catalog.Snapshot {
	snap := s.store.Snapshot()
	if snap == nil {
		msg := "catalog not loaded"
		if st := s.store.Status(); st.Err != nil {
			msg = catalog.UserMessage(st.Err)
		}
		writeError(w, http.StatusServiceUnavailable, msg)
	}
	return snap
}

func (s *Server) handleTemplates(w http.ResponseWriter, _ *http.Request) {
	snap := s.snapshot(w)
	if snap == nil {
		return
	}
	writeJSON(w, http.StatusOK, snap.Templates)
}

// handleOccurrences answers GET /api/occurrences?date=YYYY-MM-DD.
func (s *Server) handleOccurrences(w http.ResponseWriter, r *http.Request) {
	date, err := s.parseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}
	snap := s.snapshot(w)
	if snap == nil {
		return
	}
	s.writeOccurrences(w, snap.Index.OnDay(date))
}

// monthResponse is the JSON shape for /api/month.
type monthResponse struct {
	Year     int             `json:"year"`
	Month    int             `json:"month"`
	Total    int             `json:"total"`
	Days     int             `json:"days"`
	ByType   map[string]int  `json:"by_type"`
	Distinct []occurrenceDTO `json:"distinct"`
}

// handleMonth answers GET /api/month?year=&month=, defaulting to the
// current month.
func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	now := s.now().In(s.loc)
	q := r.URL.Query()
	year := parseIntDefault(q.Get("year"), now.Year())
	month := parseIntDefault(q.Get("month"), int(now.Month()))
	if month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "invalid month")
		return
	}
	snap := s.snapshot(w)
	if snap == nil {
		return
	}

	distinct, err := toDTOs(snap.Index.InMonth(year, time.Month(month)))
	if err != nil {
		appLog.Error("occurrence conversion failed", err)
		writeError(w, http.StatusInternalServerError, "failed to convert occurrences")
		return
	}
	stats := snap.Index.MonthStats(year, time.Month(month))
	byType := make(map[string]int, len(stats.ByType))
	for t, n := range stats.ByType {
		byType[string(t)] = n
	}
	writeJSON(w, http.StatusOK, monthResponse{
		Year:     year,
		Month:    month,
		Total:    stats.Total,
		Days:     stats.Days,
		ByType:   byType,
		Distinct: distinct,
	})
}

// handleUpcoming answers GET /api/upcoming?from=YYYY-MM-DD&limit=N.
func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := s.parseDate(q.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from")
		return
	}
	limit := parseIntDefault(q.Get("limit"), s.cfg.UpcomingLimit)
	snap := s.snapshot(w)
	if snap == nil {
		return
	}
	s.writeOccurrences(w, snap.Index.Upcoming(from, limit))
}

// handleCalendar renders the month or week view. Navigation is stateless:
// view and anchor describe the current page and nav applies one
// transition (prev, next, today) to it.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	now := s.now().In(s.loc)
	q := r.URL.Query()

	v := nav.Initial(now)
	if g := q.Get("view"); g != "" {
		gran, err := nav.ParseGranularity(g)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		v = v.SetGranularity(gran)
	}
	if a := q.Get("anchor"); a != "" {
		anchor, err := time.ParseInLocation(dateLayout, a, s.loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid anchor")
			return
		}
		v = v.JumpTo(anchor)
	}
	v = v.Apply(q.Get("nav"), now)

	snap := s.store.Snapshot()
	if snap == nil {
		if st := s.store.Status(); st.Err != nil {
			writeError(w, http.StatusServiceUnavailable, catalog.UserMessage(st.Err))
			return
		}
	}

	var idx *index.Index
	if snap != nil {
		idx = snap.Index
	}
	var buf bytes.Buffer
	if err := s.renderer.Calendar(&buf, idx, v, now); err != nil {
		appLog.Error("calendar render failed", err)
		writeError(w, http.StatusInternalServerError, "failed to render calendar")
		return
	}
	writeHTML(w, buf.Bytes())
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot(w)
	if snap == nil {
		return
	}
	tpl, ok := snap.Template(r.URL.Query().Get("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	var buf bytes.Buffer
	if err := s.renderer.Detail(&buf, tpl); err != nil {
		appLog.Error("detail render failed", err, "id", tpl.ID)
		writeError(w, http.StatusInternalServerError, "failed to render event")
		return
	}
	writeHTML(w, buf.Bytes())
}

func (s *Server) handleICS(w http.ResponseWriter, _ *http.Request) {
	snap := s.snapshot(w)
	if snap == nil {
		return
	}
	body := ics.Export(snap.Index.Starts(), ics.ExportOptions{
		Name:  "Rise of Kingdoms",
		Stamp: snap.UpdatedAt,
	})
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// parseDate parses YYYY-MM-DD in the display zone; empty means today.
func (s *Server) parseDate(v string) (time.Time, error) {
	if v == "" {
		return model.StartOfDay(s.now().In(s.loc)), nil
	}
	return time.ParseInLocation(dateLayout, v, s.loc)
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeHTML(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
