// Package remote is the capture agent's client for the photo storage
// server. It implements the upload sink, the deletion notifier and the
// telemetry exporter over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"inspection-capture/internal/capability"
	"inspection-capture/internal/database"
	"inspection-capture/internal/handlers"
	"inspection-capture/internal/logging"
	"inspection-capture/internal/media"
	"inspection-capture/internal/slot"
	"inspection-capture/internal/telemetry"
)

// ErrUnavailable is returned when the server cannot be reached.
var ErrUnavailable = errors.New("storage server unavailable")

// StatusError is a non-2xx response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.Code)
	}
	return fmt.Sprintf("server returned status %d: %s", e.Code, e.Message)
}

// Client talks to one storage server.
type Client struct {
	base      *url.URL
	http      *http.Client
	userAgent string

	mu    sync.RWMutex
	hints *capability.Report
}

// New creates a client for the server at baseURL. A scheme-less address is
// treated as http.
func New(baseURL string, timeout time.Duration, userAgent string) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("empty server URL")
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	base.Path = strings.TrimSuffix(base.Path, "/")
	base.RawQuery = ""
	base.Fragment = ""

	return &Client{
		base:      base,
		http:      &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}, nil
}

// SetHints makes every request carry report as client hint headers so the
// server can classify the agent the way it classifies a browser.
func (c *Client) SetHints(report capability.Report) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hints = &report
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = c.base.Path + path
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// Resolve turns a server-relative URL into an absolute one.
func (c *Client) Resolve(ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return c.base.ResolveReference(u).String()
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	c.mu.RLock()
	if c.hints != nil {
		capability.SetHints(req.Header, *c.hints)
	}
	c.mu.RUnlock()
	return req, nil
}

// do sends req and decodes a JSON response into out, if non-nil.
func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		if isNetworkError(err) {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode, Message: errorMessage(payload)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func errorMessage(payload []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(payload, &body) == nil && body.Error != "" {
		return body.Error
	}
	return strings.TrimSpace(string(payload))
}

func isNetworkError(err error) bool {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// Put uploads f to the slot and returns the absolute URL of the stored
// photo. progress, if set, receives the share of the body sent so far.
func (c *Client) Put(ctx context.Context, f media.File, s slot.Slot, progress func(int)) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if !f.LastModified.IsZero() {
		if err := writer.WriteField(handlers.FormLastModified, strconv.FormatInt(f.LastModified.UnixMilli(), 10)); err != nil {
			return "", fmt.Errorf("write lastModified field: %w", err)
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, handlers.FormFile, f.Name))
	header.Set("Content-Type", f.Type)
	part, err := writer.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("create file field: %w", err)
	}
	if _, err := part.Write(f.Data); err != nil {
		return "", fmt.Errorf("copy photo: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	size := int64(body.Len())
	var reader io.Reader = body
	if progress != nil {
		reader = &progressReader{r: body, total: size, report: progress}
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/slots/"+url.PathEscape(s.String())+"/photos", nil, reader)
	if err != nil {
		return "", err
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-Capture-Slot", s.String())

	var resp handlers.UploadResponse
	if err := c.do(req, &resp); err != nil {
		return "", err
	}
	logging.Debug("Uploaded %s to slot %s as %s (position %d)", f.Name, s, resp.ID, resp.Position)
	return c.Resolve(resp.URL), nil
}

// List returns the stored photos of a slot with absolute URLs.
func (c *Client) List(ctx context.Context, s slot.Slot) ([]database.Photo, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/slots/"+url.PathEscape(s.String())+"/photos", nil, http.NoBody)
	if err != nil {
		return nil, err
	}
	var photos []database.Photo
	if err := c.do(req, &photos); err != nil {
		return nil, err
	}
	for i := range photos {
		photos[i].URL = c.Resolve(photos[i].URL)
	}
	return photos, nil
}

// Delete notifies the server that the photo at the 0-based index of the
// slot was deleted.
func (c *Client) Delete(ctx context.Context, s slot.Slot, index int) error {
	path := fmt.Sprintf("/api/slots/%s/photos/%d", url.PathEscape(s.String()), index)
	req, err := c.newRequest(ctx, http.MethodDelete, path, nil, http.NoBody)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// Export implements telemetry.Exporter.
func (c *Client) Export(ctx context.Context, entry telemetry.Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode telemetry entry: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/telemetry", nil, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, nil)
}

// Report fetches the telemetry report. A negative since returns the
// operator's cleared view; otherwise every entry from since on.
func (c *Client) Report(ctx context.Context, since int) (handlers.TelemetryReport, error) {
	var query url.Values
	if since >= 0 {
		query = url.Values{"since": {strconv.Itoa(since)}}
	}
	req, err := c.newRequest(ctx, http.MethodGet, "/api/telemetry", query, http.NoBody)
	if err != nil {
		return handlers.TelemetryReport{}, err
	}
	var report handlers.TelemetryReport
	err = c.do(req, &report)
	return report, err
}

// ClearReport hides every current telemetry entry from the report.
func (c *Client) ClearReport(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/api/telemetry", nil, http.NoBody)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// Capabilities asks the server to classify this client.
func (c *Client) Capabilities(ctx context.Context) (handlers.CapabilitiesResponse, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/capabilities", nil, http.NoBody)
	if err != nil {
		return handlers.CapabilitiesResponse{}, err
	}
	var resp handlers.CapabilitiesResponse
	err = c.do(req, &resp)
	return resp, err
}

// progressReader reports percentages as the transport consumes the body.
// Reports are monotonic and end at 100.
type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	last   int
	report func(int)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.total > 0 {
		percent := int(p.read * 100 / p.total)
		if percent > p.last {
			p.last = percent
			p.report(percent)
		}
	}
	return n, err
}
