package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLogging(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		path    string
		handler http.HandlerFunc
		want    []string
	}{
		{
			name:   "explicit status",
			method: "POST",
			path:   "/cart/items",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusCreated)
				w.Write([]byte(`{"item_count":1}`))
			},
			want: []string{"method=POST", "path=/cart/items", "status=201"},
		},
		{
			name:   "implicit 200",
			method: "GET",
			path:   "/catalog",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"products":[]}`))
			},
			want: []string{"method=GET", "path=/catalog", "status=200"},
		},
		{
			name:   "precondition failure",
			method: "POST",
			path:   "/checkout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "login required", http.StatusConflict)
			},
			want: []string{"status=409"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))

			req := httptest.NewRequest(tt.method, tt.path, nil)
			Logging(logger)(tt.handler).ServeHTTP(httptest.NewRecorder(), req)

			logged := buf.String()
			for _, check := range tt.want {
				if !strings.Contains(logged, check) {
					t.Errorf("Log missing %q: %s", check, logged)
				}
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
		wantBody   string
		wantLog    string
	}{
		{
			name:       "panic before write",
			handler:    func(w http.ResponseWriter, r *http.Request) { panic("cart corrupted") },
			wantStatus: http.StatusInternalServerError,
			wantBody:   "INTERNAL_ERROR",
			wantLog:    "cart corrupted",
		},
		{
			name: "panic after write keeps response",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("partial"))
				panic("late failure")
			},
			wantStatus: http.StatusOK,
			wantBody:   "partial",
			wantLog:    "late failure",
		},
		{
			name: "no panic",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("ok"))
			},
			wantStatus: http.StatusOK,
			wantBody:   "ok",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))

			w := httptest.NewRecorder()
			Recovery(logger)(tt.handler).ServeHTTP(w, httptest.NewRequest("GET", "/orders", nil))

			if w.Code != tt.wantStatus {
				t.Errorf("Status = %d, want %d", w.Code, tt.wantStatus)
			}
			if !strings.Contains(w.Body.String(), tt.wantBody) {
				t.Errorf("Body = %s, want %s", w.Body.String(), tt.wantBody)
			}
			if tt.wantBody == "partial" && strings.Contains(w.Body.String(), "INTERNAL_ERROR") {
				t.Errorf("Body = %s, envelope written after headers", w.Body.String())
			}

			logged := buf.String()
			if tt.wantLog == "" {
				if logged != "" {
					t.Errorf("unexpected log: %s", logged)
				}
				return
			}
			if !strings.Contains(logged, "panic recovered") || !strings.Contains(logged, tt.wantLog) {
				t.Errorf("Log = %s, want panic recovered with %q", logged, tt.wantLog)
			}
		})
	}
}

func TestChain(t *testing.T) {
	var order []string

	middleware1 := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "m1-before")
			next.ServeHTTP(w, r)
			order = append(order, "m1-after")
		})
	}

	middleware2 := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "m2-before")
			next.ServeHTTP(w, r)
			order = append(order, "m2-after")
		})
	}

	handler := Chain(middleware1, middleware2)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	expected := []string{"m1-before", "m2-before", "handler", "m2-after", "m1-after"}
	if len(order) != len(expected) {
		t.Fatalf("Order length = %d, want %d", len(order), len(expected))
	}
	for i, v := range expected {
		if order[i] != v {
			t.Errorf("Order[%d] = %s, want %s", i, order[i], v)
		}
	}
}

func TestResponseWriterStatus(t *testing.T) {
	w := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

	rw.Write([]byte("{}"))
	rw.WriteHeader(http.StatusNotFound)

	if rw.status != http.StatusOK {
		t.Errorf("Status = %d, want %d", rw.status, http.StatusOK)
	}
	if w.Code != http.StatusOK {
		t.Errorf("Underlying status = %d, want %d", w.Code, http.StatusOK)
	}

	w = httptest.NewRecorder()
	rw = &responseWriter{ResponseWriter: w, status: http.StatusOK}
	rw.WriteHeader(http.StatusCreated)
	rw.WriteHeader(http.StatusConflict)

	if rw.status != http.StatusCreated || w.Code != http.StatusCreated {
		t.Errorf("Status = %d/%d, want %d", rw.status, w.Code, http.StatusCreated)
	}
}

func TestRequestIDGenerated(t *testing.T) {
	var seen string
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest("GET", "/cart", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if seen == "" {
		t.Fatal("request id missing from context")
	}
	if got := w.Header().Get(RequestIDHeader); got != seen {
		t.Errorf("%s = %q, want %q", RequestIDHeader, got, seen)
	}
}

func TestRequestIDPropagated(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"well formed", "req-123.abc_9", true},
		{"spaces rejected", "has spaces", false},
		{"newline rejected", "a\nb", false},
		{"too long", strings.Repeat("a", 129), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetRequestID(r.Context())
			}))

			req := httptest.NewRequest("GET", "/cart", nil)
			req.Header.Set(RequestIDHeader, tt.incoming)
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if (seen == tt.incoming) != tt.keep {
				t.Errorf("request id = %q, incoming %q, keep %v", seen, tt.incoming, tt.keep)
			}
			if seen == "" {
				t.Error("request id is empty")
			}
		})
	}
}

func TestLoggingIncludesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	handler := Chain(RequestID(), Logging(logger))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest("GET", "/orders", nil)
	req.Header.Set(RequestIDHeader, "abc-1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !strings.Contains(buf.String(), "request_id=abc-1") {
		t.Errorf("Log missing request_id: %s", buf.String())
	}
}

func TestResponseWriterFlush(t *testing.T) {
	w := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

	var flusher http.Flusher = rw
	flusher.Flush()

	if !w.Flushed {
		t.Error("underlying recorder was not flushed")
	}
	if !rw.wroteHeader {
		t.Error("wroteHeader should be true after Flush")
	}
	if rw.Unwrap() != w {
		t.Error("Unwrap() did not return the underlying writer")
	}
}
