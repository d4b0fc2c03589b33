package middleware_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/matiasleandrokruk/promptlab/internal/api/ctxkeys"
	"github.com/matiasleandrokruk/promptlab/internal/api/middleware"
	"github.com/matiasleandrokruk/promptlab/internal/infra/logging"
	pkgauth "github.com/matiasleandrokruk/promptlab/pkg/auth"
)

var testSecret = []byte("test-secret-key-32-chars-min!!!")

// nextHandler records that it ran and the context it saw.
func nextHandler(called *bool, capturedCtx *context.Context) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		if capturedCtx != nil {
			*capturedCtx = r.Context()
		}
		w.WriteHeader(http.StatusOK)
	})
}

func makeRequest(authHeader string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	return req
}

func validToken(t *testing.T, subject string) string {
	t.Helper()
	token, err := pkgauth.GenerateJWT(testSecret, subject, time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	return token
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	t.Parallel()

	good := validToken(t, "ana")
	parts := strings.Split(good, ".")
	forged := parts[0] + "." + strings.Split(validToken(t, "mallory"), ".")[1] + "." + parts[2]
	expired, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, &pkgauth.Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "ana",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}}).SignedString(testSecret)

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"empty bearer", "Bearer "},
		{"wrong scheme", "Basic " + good},
		{"lowercase scheme", "bearer " + good},
		{"garbage", "Bearer not-a-token"},
		{"tampered payload", "Bearer " + forged},
		{"expired", "Bearer " + expired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			called := false
			rr := httptest.NewRecorder()
			middleware.AuthMiddleware(testSecret)(nextHandler(&called, nil)).ServeHTTP(rr, makeRequest(tt.header))

			if rr.Code != http.StatusUnauthorized {
				t.Errorf("status = %d; want 401", rr.Code)
			}
			if called {
				t.Error("next handler ran for a rejected request")
			}
			var body map[string]string
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil || body["error"] == "" {
				t.Errorf("body = %q; want JSON error", rr.Body.String())
			}
		})
	}
}

func TestAuthMiddleware_ValidToken_InjectsSubject(t *testing.T) {
	t.Parallel()

	called := false
	var ctx context.Context
	rr := httptest.NewRecorder()
	req := makeRequest("Bearer " + validToken(t, "ana"))
	middleware.AuthMiddleware(testSecret)(nextHandler(&called, &ctx)).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK || !called {
		t.Fatalf("status = %d, called = %v; want 200, true", rr.Code, called)
	}
	if sub, _ := ctx.Value(ctxkeys.Subject).(string); sub != "ana" {
		t.Errorf("subject = %q; want ana", sub)
	}
}

func TestRequestLogger_LogsStatus(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logging.New(&buf, "info", "json")
	h := middleware.RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), makeRequest(""))

	out := buf.String()
	if !strings.Contains(out, `"status":418`) || !strings.Contains(out, `"path":"/api/v1/sessions"`) {
		t.Errorf("log line = %s", out)
	}
}

func TestRequestLogger_PreservesFlusher(t *testing.T) {
	t.Parallel()

	flushed := false
	h := middleware.RequestLogger(logging.Discard())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		f, ok := w.(http.Flusher)
		if !ok {
			t.Error("wrapped writer lost http.Flusher")
			return
		}
		f.Flush()
		flushed = true
	}))
	h.ServeHTTP(httptest.NewRecorder(), makeRequest(""))
	if !flushed {
		t.Error("handler did not flush")
	}
}
