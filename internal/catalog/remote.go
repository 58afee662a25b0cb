package catalog

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	appLog "rokcal/internal/log"
	"rokcal/internal/model"
)

// GenericFetchMessage is shown when the server did not explain a failure.
const GenericFetchMessage = "Failed to fetch events"

// ErrorKind classifies a failed catalog fetch. Every kind is surfaced the
// same way; the kind exists for logs and metrics.
type ErrorKind string

const (
	KindTransport ErrorKind = "transport"
	KindStatus    ErrorKind = "status"
	KindServer    ErrorKind = "server"
	KindDecode    ErrorKind = "decode"
)

// FetchError is returned for every failed remote fetch.
type FetchError struct {
	Kind ErrorKind
	// Status is the HTTP status code, when a response was received.
	Status int
	// Message is the server-provided explanation, if any.
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	var b strings.Builder
	b.WriteString("catalog fetch: ")
	b.WriteString(string(e.Kind))
	if e.Status != 0 {
		b.WriteString(" status=" + strconv.Itoa(e.Status))
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *FetchError) Unwrap() error { return e.Err }

// UserMessage prefers the server's message over the generic one.
func (e *FetchError) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return GenericFetchMessage
}

// UserMessage extracts a displayable message from any fetch error.
func UserMessage(err error) string {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.UserMessage()
	}
	return GenericFetchMessage
}

// RemoteEvent is the wire shape of one element of the remote catalog.
type RemoteEvent struct {
	Pattern     []RemotePattern `json:"pattern"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Color       string          `json:"color"`
}

type RemotePattern struct {
	StartDate string       `json:"startDate"`
	Frequency string       `json:"frequency"`
	Duration  DurationDays `json:"duration"`
}

// DurationDays accepts a JSON number or a numeric string. Anything else
// decodes to 0, which the expander skips.
type DurationDays int

func (d *DurationDays) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		*d = 0
		return nil
	}
	*d = DurationDays(n)
	return nil
}

// serverError is the {error, message} body the proxy returns on failure.
type serverError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// DecodeRemote parses a remote catalog body. A JSON object carrying an
// "error" field is a server-reported failure.
func DecodeRemote(body []byte) ([]RemoteEvent, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var se serverError
		if err := json.Unmarshal(trimmed, &se); err == nil && se.Error != "" {
			return nil, &FetchError{Kind: KindServer, Message: se.Message, Err: errors.New(se.Error)}
		}
	}
	var events []RemoteEvent
	if err := json.Unmarshal(trimmed, &events); err != nil {
		return nil, &FetchError{Kind: KindDecode, Err: err}
	}
	return events, nil
}

// FromRemote translates remote events into canonical templates. Remote
// events have no type or id: they become EventSpecial with their own color
// and a positional id. Unparseable start dates leave a zero StartDate so
// the expander skips that pattern.
func FromRemote(events []RemoteEvent, loc *time.Location) []*model.Template {
	if loc == nil {
		loc = time.Local
	}
	out := make([]*model.Template, 0, len(events))
	for i, ev := range events {
		tpl := &model.Template{
			ID:          fmt.Sprintf("remote-%d", i),
			Title:       ev.Title,
			Description: ev.Description,
			Color:       ev.Color,
			EventType:   model.EventSpecial,
			Priority:    model.PriorityMedium,
			Repeatable:  true,
		}
		for j, p := range ev.Pattern {
			start, err := ParseTime(p.StartDate, loc)
			if err != nil {
				appLog.Warn("catalog: bad pattern start date", "template_id", tpl.ID, "pattern", j, "value", p.StartDate)
			} else {
				start = model.StartOfDay(start)
			}
			tpl.Patterns = append(tpl.Patterns, model.Pattern{
				StartDate:    start,
				Frequency:    model.Frequency(p.Frequency),
				DurationDays: int(p.Duration),
			})
		}
		out = append(out, tpl)
	}
	return out
}

// cacheEntry holds HTTP cache metadata for the remote catalog URL.
type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Fetcher downloads the remote catalog with conditional requests
// (ETag / Last-Modified) backed by a disk cache.
type Fetcher struct {
	client    *http.Client
	cacheDir  string
	userAgent string
	retries   int
	backoff   time.Duration
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithRetries enables up to n extra attempts with linear backoff.
func WithRetries(n int, backoff time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.retries = n
		}
		if backoff > 0 {
			f.backoff = backoff
		}
	}
}

func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// NewFetcher creates a Fetcher caching under cacheDir. An empty cacheDir
// disables the disk cache.
func NewFetcher(cacheDir string, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:   &http.Client{Timeout: 15 * time.Second},
		cacheDir: cacheDir,
		backoff:  500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads and decodes the remote catalog. Failed attempts are
// retried up to the configured count unless ctx is done.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]RemoteEvent, error) {
	var lastErr error
	for attempt := 0; attempt <= f.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, &FetchError{Kind: KindTransport, Err: ctx.Err()}
			case <-time.After(time.Duration(attempt) * f.backoff):
			}
		}
		events, err := f.fetchOnce(ctx, url)
		if err == nil {
			return events, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		appLog.Error("catalog fetch attempt failed", err, "attempt", attempt+1, "url", redactURL(url))
	}
	return nil, lastErr
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) ([]RemoteEvent, error) {
	if url == "" {
		return nil, &FetchError{Kind: KindTransport, Err: errors.New("source URL is empty")}
	}

	cachePath := f.cachePathForURL(url)
	var meta cacheEntry
	var cachedBody []byte
	if cachePath != "" {
		meta, _ = loadCacheMeta(cachePath)
		cachedBody, _ = os.ReadFile(filepath.Join(cachePath, "body.json"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindTransport, Err: err}
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	if len(cachedBody) > 0 {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	appLog.Info("catalog fetch start", "url", redactURL(url), "request_id", requestID)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Kind: KindTransport, Status: resp.StatusCode, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusNotModified && len(cachedBody) > 0:
		appLog.Info("catalog not modified; using cache", "url", redactURL(url), "request_id", requestID)
		return DecodeRemote(cachedBody)

	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		events, err := DecodeRemote(body)
		if err != nil {
			var fe *FetchError
			if errors.As(err, &fe) {
				fe.Status = resp.StatusCode
			}
			return nil, err
		}
		if cachePath != "" {
			newMeta := cacheEntry{
				URL:          url,
				ETag:         resp.Header.Get("ETag"),
				LastModified: resp.Header.Get("Last-Modified"),
			}
			if err := saveCache(cachePath, newMeta, body); err != nil {
				appLog.Error("catalog cache save failed", err, "url", redactURL(url))
			}
		}
		appLog.Info("catalog fetch success", "url", redactURL(url), "status", resp.StatusCode, "events", len(events), "request_id", requestID)
		return events, nil

	default:
		fe := &FetchError{Kind: KindStatus, Status: resp.StatusCode, Err: errors.New(resp.Status)}
		var se serverError
		if json.Unmarshal(body, &se) == nil && se.Message != "" {
			fe.Message = se.Message
		}
		return nil, fe
	}
}

func (f *Fetcher) cachePathForURL(url string) string {
	if f.cacheDir == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func loadCacheMeta(cachePath string) (cacheEntry, error) {
	var meta cacheEntry
	data, err := os.ReadFile(filepath.Join(cachePath, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheEntry{}, err
	}
	return meta, nil
}

func saveCache(cachePath string, meta cacheEntry, body []byte) error {
	if err := os.MkdirAll(cachePath, 0o700); err != nil {
		return err
	}
	// Write body first so meta never points at a missing body.
	if err := os.WriteFile(filepath.Join(cachePath, "body.json"), body, 0o600); err != nil {
		return err
	}
	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cachePath, "meta.json"), data, 0o600)
}

// redactURL keeps only scheme and host for logging.
func redactURL(u string) string {
	i := strings.Index(u, "://")
	if i == -1 {
		return "...(redacted)"
	}
	rest := u[i+3:]
	if j := strings.IndexByte(rest, '/'); j != -1 {
		rest = rest[:j]
	}
	return u[:i+3] + rest + "/...(redacted)"
}
