package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"inspection-capture/internal/metrics"
)

func TestResponseWriterWriteHeader(t *testing.T) {
	w := httptest.NewRecorder()
	rw := newResponseWriter(w)

	rw.WriteHeader(http.StatusNotFound)
	rw.WriteHeader(http.StatusInternalServerError)

	if rw.statusCode != http.StatusNotFound {
		t.Errorf("Expected status code 404, got %d", rw.statusCode)
	}
	if w.Code != http.StatusNotFound {
		t.Errorf("Underlying recorder got %d, want 404", w.Code)
	}
}

func TestResponseWriterWrite(t *testing.T) {
	w := httptest.NewRecorder()
	rw := newResponseWriter(w)

	data := []byte("test data")
	n, err := rw.Write(data)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if n != len(data) || rw.bytesWritten != int64(len(data)) {
		t.Errorf("Expected %d bytes written, got n=%d total=%d", len(data), n, rw.bytesWritten)
	}
	if !rw.wroteHeader {
		t.Error("Expected wroteHeader to be true after Write")
	}
}

func TestWrappedWritersUnwrap(t *testing.T) {
	w := httptest.NewRecorder()
	wrapped := []interface{ Unwrap() http.ResponseWriter }{
		newResponseWriter(w),
		newMetricsResponseWriter(w),
		newGzipResponseWriter(w, DefaultCompressionConfig()),
	}
	for i, rw := range wrapped {
		if rw.Unwrap() != w {
			t.Errorf("writer %d does not unwrap to the underlying recorder", i)
		}
	}
}

func TestSanitizeLogField(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Mozilla/5.0", "Mozilla/5.0"},
		{"newline forging", "a\r\nfake line", "a  fake line"},
		{"null byte", "a\x00b", "ab"},
		{"ansi escape", "\x1b[31mred", "[31mred"},
		{"tab kept", "a\tb", "a\tb"},
		{"bell dropped", "a\x07b", "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeLogField(tt.input); got != tt.want {
				t.Errorf("sanitizeLogField(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestEscapeW3CField(t *testing.T) {
	if got := escapeW3CField("curl/8.0"); got != "curl/8.0" {
		t.Errorf("unquoted field changed: %q", got)
	}
	if got := escapeW3CField(`a "b" c`); got != `"a ""b"" c"` {
		t.Errorf("escapeW3CField = %q", got)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "10.0.0.1, 10.0.0.2"}, "1.2.3.4:5", "10.0.0.1"},
		{"real ip", map[string]string{"X-Real-IP": "10.0.0.9"}, "1.2.3.4:5", "10.0.0.9"},
		{"remote addr", nil, "1.2.3.4:5678", "1.2.3.4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoggerMiddleware(t *testing.T) {
	tests := []struct {
		name          string
		method        string
		path          string
		config        LoggingConfig
		expectLogging bool
	}{
		{"logs uploads", http.MethodPost, "/api/slots/vin/photos", DefaultLoggingConfig(), true},
		{"skips photo reads by default", http.MethodGet, "/api/photos/abc", DefaultLoggingConfig(), false},
		{"logs photo reads when enabled", http.MethodGet, "/api/photos/abc", LoggingConfig{LogPhotoReads: true}, true},
		{"logs health checks when enabled", http.MethodGet, "/health", LoggingConfig{LogHealthChecks: true}, true},
		{"skips health checks when disabled", http.MethodGet, "/health", LoggingConfig{LogHealthChecks: false}, false},
		{"skips configured prefix", http.MethodGet, "/metrics", DefaultLoggingConfig(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var lines []string
			config := tt.config
			config.Output = func(line string) { lines = append(lines, line) }

			handler := Logger(config)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusCreated)
				w.Write([]byte("ok"))
			}))

			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			req.Header.Set("User-Agent", "capturectl test\nforged")
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != http.StatusCreated {
				t.Errorf("Expected status 201, got %d", w.Code)
			}
			if got := len(lines) == 1; got != tt.expectLogging {
				t.Fatalf("logged %d lines, expectLogging=%v", len(lines), tt.expectLogging)
			}
			if !tt.expectLogging {
				return
			}
			line := lines[0]
			if strings.Contains(line, "\n") {
				t.Errorf("log line contains newline: %q", line)
			}
			if !strings.Contains(line, " "+tt.path+" - 201 2 ") {
				t.Errorf("log line missing request fields: %q", line)
			}
			if !strings.Contains(line, `"capturectl test forged"`) {
				t.Errorf("user agent not escaped: %q", line)
			}
		})
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/slots", "/api/slots"},
		{"/api/slots/vin/photos", "/api/slots/{slot}/photos"},
		{"/api/slots/vin/photos/2", "/api/slots/{slot}/photos/{index}"},
		{"/api/slots/vin/photos/2/extra", "/api/slots/{slot}/photos/{index}"},
		{"/api/photos/3f2a", "/api/photos/{id}"},
		{"/api/telemetry", "/api/telemetry"},
		{"/api/unknown/a/b", "/api/unknown/{path}"},
		{"/health", "/health"},
		{"/static/a/b.js", "/static/{path}"},
		{"/", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := normalizePath(tt.path); got != tt.want {
				t.Errorf("normalizePath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestMetricsMiddlewareUsesRouteTemplate(t *testing.T) {
	r := mux.NewRouter()
	r.Use(Metrics(DefaultMetricsConfig()))
	r.HandleFunc("/api/slots/{slot}/photos/{index}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodDelete)

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodDelete, "/api/slots/{slot}/photos/{index}", "204")
	before := testutil.ToFloat64(counter)

	req := httptest.NewRequest(http.MethodDelete, "/api/slots/vin/photos/0", http.NoBody)
	r.ServeHTTP(httptest.NewRecorder(), req)

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("route counter increased by %v, want 1", got)
	}
}

func TestMetricsMiddlewareSkipPaths(t *testing.T) {
	called := false
	handler := Metrics(DefaultMetricsConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/health", "200")
	before := testutil.ToFloat64(counter)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

	if !called {
		t.Error("Expected handler to be called")
	}
	if got := testutil.ToFloat64(counter); got != before {
		t.Errorf("skipped path was recorded: %v -> %v", before, got)
	}
}

func TestCompressionMiddleware(t *testing.T) {
	large := strings.Repeat(`{"slot":"vin","position":1},`, 100)

	tests := []struct {
		name           string
		acceptEncoding string
		contentType    string
		body           string
		expectGzip     bool
	}{
		{"large json", "gzip", "application/json", large, true},
		{"small json", "gzip", "application/json", `{"ok":true}`, false},
		{"jpeg never compressed", "gzip", "image/jpeg", large, false},
		{"client without gzip", "", "application/json", large, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := Compression(DefaultCompressionConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(http.StatusAccepted)
				io.WriteString(w, tt.body)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/telemetry", http.NoBody)
			if tt.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != http.StatusAccepted {
				t.Errorf("status = %d, want 202", w.Code)
			}

			gzipped := w.Header().Get("Content-Encoding") == "gzip"
			if gzipped != tt.expectGzip {
				t.Fatalf("gzip = %v, want %v", gzipped, tt.expectGzip)
			}

			body := w.Body.Bytes()
			if gzipped {
				zr, err := gzip.NewReader(bytes.NewReader(body))
				if err != nil {
					t.Fatalf("gzip.NewReader: %v", err)
				}
				body, err = io.ReadAll(zr)
				if err != nil {
					t.Fatalf("read gzip body: %v", err)
				}
			}
			if string(body) != tt.body {
				t.Errorf("body mismatch: got %d bytes, want %d", len(body), len(tt.body))
			}
		})
	}
}

func TestCompressionWithMultipleWrites(t *testing.T) {
	handler := Compression(DefaultCompressionConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		for i := 0; i < 200; i++ {
			io.WriteString(w, `{"n":1}`)
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/slots/vin/photos", http.NoBody)
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	zr, err := gzip.NewReader(w.Body)
	if err != nil {
		t.Fatalf("expected gzip body: %v", err)
	}
	body, _ := io.ReadAll(zr)
	if want := strings.Repeat(`{"n":1}`, 200); string(body) != want {
		t.Errorf("decompressed body has %d bytes, want %d", len(body), len(want))
	}
}
