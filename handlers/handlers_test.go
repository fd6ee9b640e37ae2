package handlers

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studentform/studentform/backend/go-services/internal/kv"
	"github.com/studentform/studentform/backend/go-services/internal/query"
	"github.com/studentform/studentform/backend/go-services/internal/ratelimit"
	"github.com/studentform/studentform/backend/go-services/internal/records"
	"github.com/studentform/studentform/backend/go-services/internal/sessions"
	"github.com/studentform/studentform/backend/go-services/internal/submission"
	"github.com/studentform/studentform/backend/go-services/internal/validation"
	"github.com/studentform/studentform/backend/go-services/pkg/middleware"
)

const adminPassword = "s3cret-pass"

type fakeArchiver struct {
	name string
	data []byte
}

func (f *fakeArchiver) Archive(_ context.Context, name string, data []byte, _ string) (string, error) {
	f.name, f.data = name, data
	return "https://archive.example.org/" + name, nil
}

type pingFunc func(context.Context) error

func (p pingFunc) Ping(ctx context.Context) error { return p(ctx) }

type testEnv struct {
	router *gin.Engine
	store  *kv.MemoryStore
}

func newEnv(t *testing.T, mutate func(*Deps)) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := kv.NewMemoryStore()
	repo := records.NewRepository(store)
	counters := ratelimit.NewMemoryStore()
	pw, err := sessions.NewPasswordVerifier(adminPassword, "")
	require.NoError(t, err)

	d := Deps{
		Submissions:  submission.NewService(ratelimit.New("submit", counters, 3, 15*time.Minute), repo),
		Query:        query.NewService(repo, store, query.Options{}),
		Sessions:     sessions.NewService(sessions.NewKVRepository(store, ""), 24*time.Hour),
		Passwords:    pw,
		LoginLimiter: ratelimit.New("login", counters, 5, 15*time.Minute),
		Ready:        map[string]Pinger{"store": store},
		AllowPublic:  true,
	}
	if mutate != nil {
		mutate(&d)
	}
	r, err := NewRouter(d)
	require.NoError(t, err)
	return &testEnv{router: r, store: store}
}

func (e *testEnv) do(method, target, body, ip string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if ip != "" {
		req.RemoteAddr = ip + ":40000"
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) login(t *testing.T) *http.Cookie {
	t.Helper()
	w := e.do(http.MethodPost, "/api/login", `{"password":"`+adminPassword+`"}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func formBody(name, mobile string) string {
	nid := "23412341234" + strconv.Itoa(validation.NationalIDCheckDigit("23412341234"))
	return `{"name":"` + name + `","dob":"2004-05-06","mobile":"` + mobile + `","father":"Raj Verma","nationalId":"` + nid + `"}`
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), w.Body.String())
	return m
}

func TestSubmit_Created(t *testing.T) {
	env := newEnv(t, nil)
	w := env.do(http.MethodPost, "/api/submit", formBody("Asha Verma", "9123456789"), "10.0.0.1")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := decodeBody(t, w)
	require.Equal(t, true, body["success"])
	data := body["data"].(map[string]interface{})
	require.NotEmpty(t, data["id"])
	require.Equal(t, "Asha Verma", data["name"])
	require.NotEmpty(t, data["timestamp"])
}

func TestSubmit_InvalidMobileIs400(t *testing.T) {
	env := newEnv(t, nil)
	w := env.do(http.MethodPost, "/api/submit", formBody("Asha Verma", "5123456789"), "10.0.0.1")
	require.Equal(t, http.StatusBadRequest, w.Code)

	body := decodeBody(t, w)
	require.Equal(t, false, body["success"])
	require.Equal(t, "Validation failed", body["error"])
	require.Equal(t, []interface{}{validation.MsgMobile}, body["errors"])
	require.Contains(t, strings.ToLower(validation.MsgMobile), "mobile")
}

func TestSubmit_MissingFieldsAndMalformed(t *testing.T) {
	env := newEnv(t, nil)
	w := env.do(http.MethodPost, "/api/submit", `{"name":"Asha Verma"}`, "10.0.0.1")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, decodeBody(t, w)["error"], "dob, mobile, father, nationalId")

	w = env.do(http.MethodPost, "/api/submit", `{not json`, "10.0.0.1")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.NotContains(t, decodeBody(t, w), "details")
}

func TestSubmit_RateLimitedPerIP(t *testing.T) {
	env := newEnv(t, nil)
	for i := 0; i < 3; i++ {
		w := env.do(http.MethodPost, "/api/submit", formBody("Asha Verma", "9123456789"), "10.0.0.1")
		require.Equal(t, http.StatusCreated, w.Code)
	}
	w := env.do(http.MethodPost, "/api/submit", formBody("Asha Verma", "9123456789"), "10.0.0.1")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "900", w.Header().Get("Retry-After"))
	require.Equal(t, float64(900), decodeBody(t, w)["retryAfter"])

	w = env.do(http.MethodPost, "/api/submit", formBody("Asha Verma", "9123456789"), "10.0.0.2")
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestSubmitThenSearchFindsRecordOnce(t *testing.T) {
	env := newEnv(t, nil)
	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/submit", formBody("Zoya Qureshi", "9876543210"), "10.0.0.1").Code)
	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/submit", formBody("Asha Verma", "9123456789"), "10.0.0.2").Code)
	cookie := env.login(t)

	w := env.do(http.MethodGet, "/api/responses?search=zoya", "", "", cookie)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, "MISS", w.Header().Get("X-Cache"))

	var page query.Page
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.True(t, page.Success)
	require.Len(t, page.Data, 1)
	require.Equal(t, "Zoya Qureshi", page.Data[0].Name)
	require.Equal(t, 1, page.Pagination.Total)
	require.Equal(t, 2, page.Stats.Total)
	require.Equal(t, "zoya", page.Filters.Search)

	again := env.do(http.MethodGet, "/api/responses?search=zoya", "", "", cookie)
	require.Equal(t, "HIT", again.Header().Get("X-Cache"))
	require.Equal(t, w.Body.String(), again.Body.String())
}

func TestResponses_RequiresSessionUnlessPublic(t *testing.T) {
	env := newEnv(t, nil)
	require.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/api/responses", "", "").Code)
	require.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/api/responses", "", "",
		&http.Cookie{Name: middleware.SessionCookie, Value: "forged"}).Code)
	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/responses?public=1", "", "").Code)

	closed := newEnv(t, func(d *Deps) { d.AllowPublic = false })
	require.Equal(t, http.StatusUnauthorized, closed.do(http.MethodGet, "/api/responses?public=1", "", "").Code)
}

func TestLogin_CookieLifecycle(t *testing.T) {
	env := newEnv(t, nil)

	w := env.do(http.MethodPost, "/api/login", `{"password":"wrong"}`, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Empty(t, w.Result().Cookies())

	w = env.do(http.MethodPost, "/api/login", `{"password":"`+adminPassword+`"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	raw := w.Header().Get("Set-Cookie")
	assert.Contains(t, raw, "HttpOnly")
	assert.Contains(t, raw, "Path=/")
	assert.Contains(t, raw, "Max-Age=86400")
	assert.Contains(t, raw, "SameSite=Strict")
	assert.NotContains(t, raw, "Secure")
	cookie := w.Result().Cookies()[0]

	status := decodeBody(t, env.do(http.MethodGet, "/api/login", "", "", cookie))
	require.Equal(t, true, status["loggedIn"])
	require.Contains(t, status, "session")

	w = env.do(http.MethodDelete, "/api/login", "", "", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, w.Result().Cookies()[0].MaxAge < 0)

	status = decodeBody(t, env.do(http.MethodGet, "/api/login", "", "", cookie))
	require.Equal(t, false, status["loggedIn"])
	require.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/api/responses", "", "", cookie).Code)
}

func TestLogin_SecureCookieBehindTLSProxy(t *testing.T) {
	env := newEnv(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"password":"`+adminPassword+`"}`))
	req.Header.Set("X-Forwarded-Proto", "https")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, w.Result().Cookies()[0].Secure)
}

func TestLogin_RateLimited(t *testing.T) {
	env := newEnv(t, nil)
	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusUnauthorized, env.do(http.MethodPost, "/api/login", `{"password":"guess"}`, "10.0.0.9").Code)
	}
	w := env.do(http.MethodPost, "/api/login", `{"password":"`+adminPassword+`"}`, "10.0.0.9")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "900", w.Header().Get("Retry-After"))
}

func TestLogin_UnconfiguredPasswordAlwaysFails(t *testing.T) {
	env := newEnv(t, func(d *Deps) { d.Passwords = &sessions.PasswordVerifier{} })
	require.Equal(t, http.StatusUnauthorized, env.do(http.MethodPost, "/api/login", `{"password":""}`, "").Code)
}

func TestExport_CSVAttachment(t *testing.T) {
	env := newEnv(t, nil)
	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/submit", formBody("Asha Verma", "9123456789"), "10.0.0.1").Code)
	cookie := env.login(t)

	require.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/api/export", "", "").Code)
	require.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/api/export?public=1", "", "").Code)

	for _, format := range []string{"csv", "excel"} {
		w := env.do(http.MethodGet, "/api/export?format="+format, "", "", cookie)
		require.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, w.Header().Get("Content-Type"), "text/csv")
		require.Regexp(t, `^attachment; filename="student-responses-\d{4}-\d{2}-\d{2}\.csv"$`, w.Header().Get("Content-Disposition"))

		rows, err := csv.NewReader(w.Body).ReadAll()
		require.NoError(t, err)
		require.Len(t, rows, 2)
		require.Equal(t, "Asha Verma", rows[1][1])
	}

	w := env.do(http.MethodGet, "/api/export?format=json", "", "", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	var recs []records.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &recs))
	require.Len(t, recs, 1)

	require.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/api/export?format=pdf", "", "", cookie).Code)
}

func TestExport_Archive(t *testing.T) {
	env := newEnv(t, nil)
	cookie := env.login(t)
	require.Equal(t, http.StatusServiceUnavailable, env.do(http.MethodGet, "/api/export?archive=1", "", "", cookie).Code)

	arch := &fakeArchiver{}
	env = newEnv(t, func(d *Deps) { d.Archive = arch })
	cookie = env.login(t)
	w := env.do(http.MethodGet, "/api/export?archive=1&format=json", "", "", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	require.Equal(t, "https://archive.example.org/"+arch.name, body["url"])
	require.True(t, strings.HasSuffix(arch.name, ".json"))
	require.Equal(t, "[]\n", string(arch.data))
}

func TestPreflightOnEveryAPIPath(t *testing.T) {
	env := newEnv(t, nil)
	cases := map[string]string{
		"/api/submit":    "POST, OPTIONS",
		"/api/responses": "GET, OPTIONS",
		"/api/export":    "GET, OPTIONS",
		"/api/login":     "GET, POST, DELETE, OPTIONS",
	}
	for path, methods := range cases {
		w := env.do(http.MethodOptions, path, "", "")
		require.Equal(t, http.StatusNoContent, w.Code, path)
		require.Equal(t, methods, w.Header().Get("Access-Control-Allow-Methods"), path)
		require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"), path)
	}
}

func TestHealthAndReady(t *testing.T) {
	env := newEnv(t, nil)
	w := env.do(http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "healthy", w.Body.String())
	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/ready", "", "").Code)

	down := newEnv(t, func(d *Deps) {
		d.Ready["redis"] = pingFunc(func(context.Context) error { return errors.New("refused") })
	})
	w = down.do(http.MethodGet, "/ready", "", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decodeBody(t, w)
	require.Equal(t, map[string]interface{}{"store": true, "redis": false}, body["deps"])
}

// brokenIndexStore fails reads of the record index.
type brokenIndexStore struct {
	*kv.MemoryStore
}

func (b brokenIndexStore) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "submissions:index" {
		return nil, errors.New("connection reset")
	}
	return b.MemoryStore.Get(ctx, key)
}

func TestDebugFlagExposesCause(t *testing.T) {
	for _, debug := range []bool{false, true} {
		env := newEnv(t, func(d *Deps) {
			store := brokenIndexStore{kv.NewMemoryStore()}
			d.Query = query.NewService(records.NewRepository(store), store, query.Options{})
			d.Debug = debug
		})
		w := env.do(http.MethodGet, "/api/responses?public=1", "", "")
		require.Equal(t, http.StatusInternalServerError, w.Code)
		body := decodeBody(t, w)
		require.Equal(t, false, body["success"])
		if debug {
			require.Contains(t, body["details"], "connection reset")
		} else {
			require.NotContains(t, body, "details")
		}
	}
}
