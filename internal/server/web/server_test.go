package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/voicetranslator/internal/blobstore"
	"github.com/dmitrijs2005/voicetranslator/internal/common"
	"github.com/dmitrijs2005/voicetranslator/internal/logging"
	"github.com/dmitrijs2005/voicetranslator/internal/server/auth"
	"github.com/dmitrijs2005/voicetranslator/internal/server/models"
	"github.com/dmitrijs2005/voicetranslator/internal/speech"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

// --- fakes ---

type fakeAccounts struct {
	passwords  map[string]string
	err        error
	resolveErr error
}

func (f *fakeAccounts) Register(ctx context.Context, username, password, confirm string) (*models.Account, error) {
	if username == "" || password == "" {
		return nil, common.ErrValidation
	}
	if password != confirm {
		return nil, common.ErrPasswordMismatch
	}
	if _, ok := f.passwords[username]; ok {
		return nil, common.ErrDuplicateUsername
	}
	f.passwords[username] = password
	return &models.Account{ID: "id-" + username, Username: username}, nil
}

func (f *fakeAccounts) Authenticate(ctx context.Context, username, password string) (*models.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	if pw, ok := f.passwords[username]; !ok || pw != password {
		return nil, common.ErrInvalidCredentials
	}
	return &models.Account{ID: "id-" + username, Username: username}, nil
}

func (f *fakeAccounts) IssueSession(a *models.Account) (string, error) {
	return auth.GenerateToken(a.ID, a.Username, testSecret, time.Hour)
}

func (f *fakeAccounts) ResolveSession(ctx context.Context, token string) (*auth.Session, error) {
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	sess, err := auth.ParseToken(token, testSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorUnauthorized, err)
	}
	if _, ok := f.passwords[sess.Username]; !ok {
		return nil, common.ErrorUnauthorized
	}
	return sess, nil
}

func (f *fakeAccounts) SessionTTL() time.Duration { return time.Hour }

type fakeResults struct {
	byID  map[string]*models.Result
	audio map[string][]byte
	order []string
	err   error
}

func (f *fakeResults) Get(ctx context.Context, id, requester string) (*models.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if r.OwnerID != requester {
		return nil, common.ErrorForbidden
	}
	return r, nil
}

func (f *fakeResults) List(ctx context.Context, requester string) ([]*models.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []*models.Result{}
	for _, id := range f.order {
		if r := f.byID[id]; r.OwnerID == requester {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeResults) OpenAudio(ctx context.Context, blobID, requester string) (*blobstore.Object, io.ReadCloser, error) {
	for _, r := range f.byID {
		if r.OutputBlobID != blobID {
			continue
		}
		if r.OwnerID != requester {
			return nil, nil, common.ErrorForbidden
		}
		b := f.audio[blobID]
		return &blobstore.Object{ID: blobID, Filename: "translated_a.wav", ContentType: "audio/wav", Size: int64(len(b))},
			io.NopCloser(bytes.NewReader(b)), nil
	}
	return nil, nil, common.ErrorNotFound
}

type fakeRunner struct {
	results *fakeResults
	err     error
	calls   int
	got     []byte
}

func (f *fakeRunner) Run(ctx context.Context, owner string, audio []byte, filename string) (*models.Result, error) {
	f.calls++
	f.got = audio
	if f.err != nil {
		return nil, f.err
	}
	id := "r-new"
	rec := &models.Result{ID: id, OwnerID: owner, OriginalFilename: filename, OutputBlobID: "b-new",
		SourceLanguage: "fr", TranslatedText: "Hello", Status: models.ResultCompleted}
	f.results.byID[id] = rec
	f.results.order = append(f.results.order, id)
	return rec, nil
}

// --- harness ---

type harness struct {
	srv      *Server
	accounts *fakeAccounts
	results  *fakeResults
	runner   *fakeRunner
	logs     *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logs := &bytes.Buffer{}
	logger, err := logging.New(logs, "text", "debug")
	require.NoError(t, err)

	res := &fakeResults{
		byID: map[string]*models.Result{
			"r-alice": {ID: "r-alice", OwnerID: "id-alice", OutputBlobID: "b-alice", SourceLanguage: "fr",
				TranslatedText: "Good morning", OriginalFilename: "sample.wav", Status: models.ResultCompleted},
		},
		audio: map[string][]byte{"b-alice": []byte("RIFFalice")},
		order: []string{"r-alice"},
	}
	h := &harness{
		accounts: &fakeAccounts{passwords: map[string]string{"alice": "pw", "bob": "pw"}},
		results:  res,
		runner:   &fakeRunner{results: res},
		logs:     logs,
	}
	h.srv, err = NewServer(":0", logger, h.accounts, h.results, h.runner, 1<<20)
	require.NoError(t, err)
	return h
}

func (h *harness) do(t *testing.T, req *http.Request, user string) *httptest.ResponseRecorder {
	t.Helper()
	if user != "" {
		token, err := auth.GenerateToken("id-"+user, user, testSecret, time.Hour)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: common.SessionCookieName, Value: token})
	}
	w := httptest.NewRecorder()
	h.srv.Handler().ServeHTTP(w, req)
	return w
}

func uploadRequest(t *testing.T, filename string, data []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	if filename != "-" {
		fw, err := mw.CreateFormFile("audio", filename)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func formRequest(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func cookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// --- tests ---

func TestHealth(t *testing.T) {
	h := newHarness(t)
	w := h.do(t, httptest.NewRequest(http.MethodGet, "/health", nil), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestIndexRedirects(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, httptest.NewRequest(http.MethodGet, "/", nil), "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	w = h.do(t, httptest.NewRequest(http.MethodGet, "/", nil), "alice")
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))
}

func TestProtectedPagesRequireLogin(t *testing.T) {
	h := newHarness(t)
	for _, p := range []string{"/dashboard", "/upload", "/history", "/result/r-alice", "/audio/b-alice", "/logout"} {
		w := h.do(t, httptest.NewRequest(http.MethodGet, p, nil), "")
		assert.Equal(t, http.StatusFound, w.Code, p)
		assert.Equal(t, "/login", w.Header().Get("Location"), p)
	}
}

func TestInvalidSessionCookieIsCleared(t *testing.T) {
	h := newHarness(t)
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: common.SessionCookieName, Value: "garbage"})

	w := h.do(t, req, "")
	assert.Equal(t, "/login", w.Header().Get("Location"))
	c := cookie(w, common.SessionCookieName)
	require.NotNil(t, c)
	assert.Equal(t, "", c.Value)
}

func TestSessionForDeletedAccountIsCleared(t *testing.T) {
	h := newHarness(t)
	delete(h.accounts.passwords, "bob")

	w := h.do(t, httptest.NewRequest(http.MethodGet, "/dashboard", nil), "bob")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
	c := cookie(w, common.SessionCookieName)
	require.NotNil(t, c)
	assert.Equal(t, "", c.Value)
}

func TestSessionLookupFailure(t *testing.T) {
	h := newHarness(t)
	h.accounts.resolveErr = common.ErrorInternal

	w := h.do(t, httptest.NewRequest(http.MethodGet, "/dashboard", nil), "alice")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Nil(t, cookie(w, common.SessionCookieName))
	assert.Contains(t, h.logs.String(), "resolve session")
}

func TestLogin(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, formRequest("/login", url.Values{"username": {"alice"}, "password": {"pw"}}), "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))
	c := cookie(w, common.SessionCookieName)
	require.NotNil(t, c)
	assert.True(t, c.HttpOnly)

	sess, err := auth.ParseToken(c.Value, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "id-alice", sess.AccountID)
}

func TestLogin_FailuresLookAlike(t *testing.T) {
	h := newHarness(t)

	wrong := h.do(t, formRequest("/login", url.Values{"username": {"alice"}, "password": {"nope"}}), "")
	unknown := h.do(t, formRequest("/login", url.Values{"username": {"mallory"}, "password": {"nope"}}), "")

	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, wrong.Code, unknown.Code)
	assert.Contains(t, wrong.Body.String(), "Login unsuccessful")
	assert.Contains(t, unknown.Body.String(), "Login unsuccessful")
	assert.Nil(t, cookie(wrong, common.SessionCookieName))
}

func TestLogin_Blank(t *testing.T) {
	h := newHarness(t)
	w := h.do(t, formRequest("/login", url.Values{"username": {"alice"}}), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Please provide both")
}

func TestLogin_InternalError(t *testing.T) {
	h := newHarness(t)
	h.accounts.err = errors.New("db down")
	w := h.do(t, formRequest("/login", url.Values{"username": {"alice"}, "password": {"pw"}}), "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "db down")
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name     string
		form     url.Values
		wantCode int
		wantBody string
	}{
		{"duplicate", url.Values{"username": {"alice"}, "password": {"x"}, "confirmPassword": {"x"}}, http.StatusConflict, "Username already exists"},
		{"mismatch", url.Values{"username": {"carol"}, "password": {"x"}, "confirmPassword": {"y"}}, http.StatusBadRequest, "Passwords do not match"},
		{"blank", url.Values{"username": {""}, "password": {"x"}, "confirmPassword": {"x"}}, http.StatusBadRequest, "Please provide both"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			w := h.do(t, formRequest("/register", tt.form), "")
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}

	h := newHarness(t)
	w := h.do(t, formRequest("/register", url.Values{"username": {"carol"}, "password": {"x"}, "confirmPassword": {"x"}}), "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))
	assert.NotNil(t, cookie(w, common.SessionCookieName))
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	w := h.do(t, httptest.NewRequest(http.MethodGet, "/logout", nil), "alice")
	assert.Equal(t, "/login", w.Header().Get("Location"))
	c := cookie(w, common.SessionCookieName)
	require.NotNil(t, c)
	assert.Less(t, c.MaxAge, 0)
}

func TestUpload_Success(t *testing.T) {
	h := newHarness(t)
	w := h.do(t, uploadRequest(t, "sample.wav", []byte("RIFFdata")), "alice")

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/result/r-new", w.Header().Get("Location"))
	assert.Equal(t, 1, h.runner.calls)
	assert.Equal(t, []byte("RIFFdata"), h.runner.got)
}

func TestUpload_ValidationSkipsPipeline(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     []byte
		wantBody string
	}{
		{"no file", "-", nil, "No selected file"},
		{"text file", "notes.txt", []byte("hello"), "Only the following file formats"},
		{"no extension", "audio", []byte("RIFF"), "Only the following file formats"},
		{"empty file", "a.wav", nil, "empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			w := h.do(t, uploadRequest(t, tt.filename, tt.data), "alice")
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
			assert.Zero(t, h.runner.calls)
			assert.Len(t, h.results.byID, 1)
		})
	}
}

func TestUpload_TooLarge(t *testing.T) {
	h := newHarness(t)
	w := h.do(t, uploadRequest(t, "big.wav", bytes.Repeat([]byte{1}, 2<<20)), "alice")
	assert.GreaterOrEqual(t, w.Code, 400)
	assert.Zero(t, h.runner.calls)
}

func TestUpload_CapabilityFailure(t *testing.T) {
	h := newHarness(t)
	h.runner.err = errors.Join(common.ErrTranscription, errors.New("dial tcp 10.0.0.1: connection refused"))

	w := h.do(t, uploadRequest(t, "a.wav", []byte("RIFF")), "alice")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "Processing failed")
	assert.NotContains(t, w.Body.String(), "connection refused")
	assert.Contains(t, h.logs.String(), "connection refused")
}

func TestUpload_RejectedAudio(t *testing.T) {
	h := newHarness(t)
	h.runner.err = errors.Join(common.ErrTranscription, speech.ErrRejected)

	w := h.do(t, uploadRequest(t, "a.wav", []byte("RIFF")), "alice")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpload_BackendSizeLimit(t *testing.T) {
	h := newHarness(t)
	h.runner.err = fmt.Errorf("%w: %w", common.ErrTranscription, speech.ErrTooLarge)

	w := h.do(t, uploadRequest(t, "a.wav", []byte("RIFF")), "alice")
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), msgTooLarge)
}

func TestUpload_PersistenceFailure(t *testing.T) {
	h := newHarness(t)
	h.runner.err = errors.Join(common.ErrPersistence, errors.New("pq: deadlock"))

	w := h.do(t, uploadRequest(t, "a.wav", []byte("RIFF")), "alice")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "deadlock")
}

func TestResult_Owner(t *testing.T) {
	h := newHarness(t)
	w := h.do(t, httptest.NewRequest(http.MethodGet, "/result/r-alice", nil), "alice")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Good morning")
	assert.Contains(t, w.Body.String(), "/audio/b-alice")
}

func TestResult_ForeignLooksLikeMissing(t *testing.T) {
	h := newHarness(t)

	foreign := h.do(t, httptest.NewRequest(http.MethodGet, "/result/r-alice", nil), "bob")
	missing := h.do(t, httptest.NewRequest(http.MethodGet, "/result/nope", nil), "bob")

	for _, w := range []*httptest.ResponseRecorder{foreign, missing} {
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/dashboard", w.Header().Get("Location"))
		c := cookie(w, common.FlashCookieName)
		require.NotNil(t, c)
		v, err := url.QueryUnescape(c.Value)
		require.NoError(t, err)
		assert.Equal(t, "danger|Audio translation not found", v)
	}
	assert.Equal(t, foreign.Body.String(), missing.Body.String())
}

func TestFlashShownOnce(t *testing.T) {
	h := newHarness(t)
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: common.FlashCookieName, Value: url.QueryEscape("danger|Audio translation not found")})

	w := h.do(t, req, "alice")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Audio translation not found")
	c := cookie(w, common.FlashCookieName)
	require.NotNil(t, c)
	assert.Less(t, c.MaxAge, 0)
}

func TestHistory(t *testing.T) {
	h := newHarness(t)
	h.do(t, uploadRequest(t, "second.wav", []byte("RIFF")), "alice")

	w := h.do(t, httptest.NewRequest(http.MethodGet, "/history", nil), "alice")
	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Less(t, strings.Index(body, "sample.wav"), strings.Index(body, "second.wav"))

	again := h.do(t, httptest.NewRequest(http.MethodGet, "/history", nil), "alice")
	assert.Equal(t, body, again.Body.String())

	w = h.do(t, httptest.NewRequest(http.MethodGet, "/history", nil), "bob")
	assert.Contains(t, w.Body.String(), "No translations yet")
}

func TestHistory_Error(t *testing.T) {
	h := newHarness(t)
	h.results.err = errors.New("db down")
	w := h.do(t, httptest.NewRequest(http.MethodGet, "/history", nil), "alice")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAudio(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, httptest.NewRequest(http.MethodGet, "/audio/b-alice", nil), "alice")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio/wav", w.Header().Get("Content-Type"))
	assert.Equal(t, "RIFFalice", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "translated_a.wav")

	foreign := h.do(t, httptest.NewRequest(http.MethodGet, "/audio/b-alice", nil), "bob")
	missing := h.do(t, httptest.NewRequest(http.MethodGet, "/audio/b-none", nil), "bob")
	assert.Equal(t, http.StatusNotFound, foreign.Code)
	assert.Equal(t, foreign.Code, missing.Code)
	assert.Equal(t, foreign.Body.String(), missing.Body.String())
}
