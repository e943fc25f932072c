package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videotube/internal/httputil"
	"videotube/internal/logging"
	"videotube/internal/model"
	"videotube/internal/token"
)

func newSigner() *token.Signer {
	return token.NewSigner("access", "refresh", 15*time.Minute, time.Hour)
}

// echoAccount writes the account id the middleware stored, or "anonymous".
var echoAccount = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	id, ok := AccountIDFromContext(r.Context())
	if !ok {
		_, _ = w.Write([]byte("anonymous"))
		return
	}
	_, _ = w.Write([]byte(id.String()))
})

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func TestAuth_BearerHeader(t *testing.T) {
	signer := newSigner()
	id := uuid.New()
	raw, err := signer.IssueAccess(id, "alice")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec := httptest.NewRecorder()
	Auth(signer)(echoAccount).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id.String(), rec.Body.String())
}

func TestAuth_CookieFallback(t *testing.T) {
	signer := newSigner()
	id := uuid.New()
	raw, err := signer.IssueAccess(id, "alice")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: raw})
	rec := httptest.NewRecorder()
	Auth(signer)(echoAccount).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id.String(), rec.Body.String())
}

func TestAuth_Rejections(t *testing.T) {
	signer := newSigner()
	past := newSigner().WithClock(func() time.Time { return time.Now().Add(-time.Hour) })
	expired, err := past.IssueAccess(uuid.New(), "alice")
	require.NoError(t, err)
	_, _, err = signer.ParseAccess(expired)
	require.ErrorIs(t, err, model.ErrTokenExpired)

	cases := []struct {
		name   string
		header string
		code   string
	}{
		{"missing", "", httputil.ErrCodeUnauthorized},
		{"garbage", "Bearer not-a-token", model.CodeTokenInvalid},
		{"expired", "Bearer " + expired, model.CodeTokenExpired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			Auth(signer)(echoAccount).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, tc.code, errorCode(t, rec))
		})
	}
}

func TestAuth_RejectsRefreshToken(t *testing.T) {
	signer := newSigner()
	refresh, _, err := signer.IssueRefresh(uuid.New(), uuid.New())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+refresh)
	rec := httptest.NewRecorder()
	Auth(signer)(echoAccount).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOptionalAuth(t *testing.T) {
	signer := newSigner()
	id := uuid.New()
	raw, err := signer.IssueAccess(id, "alice")
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		want   string
	}{
		{"anonymous", "", "anonymous"},
		{"invalid token", "Bearer junk", "anonymous"},
		{"valid token", "Bearer " + raw, id.String()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			OptionalAuth(signer)(echoAccount).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tc.want, rec.Body.String())
		})
	}
}

func TestRequestID_PropagatesToLoggingContext(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logging.RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", seen)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-Id"))
}

func TestRequestLogger_PassesThroughStatus(t *testing.T) {
	h := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
