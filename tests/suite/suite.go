// Package suite assembles the full HTTP stack over in-memory storage
// and a fake media store, for functional tests against the real router.
package suite

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"chiyabari/internal/config"
	authhttp "chiyabari/internal/http/auth"
	"chiyabari/internal/http/response"
	"chiyabari/internal/http/router"
	subhttp "chiyabari/internal/http/subscription"
	videohttp "chiyabari/internal/http/video"
	"chiyabari/internal/lib/jwt"
	"chiyabari/internal/lib/passhash"
	"chiyabari/internal/media"
	authservice "chiyabari/internal/services/auth"
	subservice "chiyabari/internal/services/subscription"
	videoservice "chiyabari/internal/services/video"
	"chiyabari/internal/storage/memory"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	AccessTTL  = time.Minute
	RefreshTTL = time.Hour
)

// Envelope is the wire format every endpoint answers with.
type Envelope struct {
	Data    json.RawMessage     `json:"data"`
	Message string              `json:"message"`
	Error   *response.ErrorBody `json:"error"`
}

// FakeUploader satisfies media.Uploader without any network.
type FakeUploader struct {
	mu      sync.Mutex
	uploads int
	Deleted []string
}

func (f *FakeUploader) Upload(_ context.Context, localPath string) (*media.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads++
	id := fmt.Sprintf("asset-%d", f.uploads)
	return &media.Asset{URL: "https://media.test/" + id, ID: id}, nil
}

func (f *FakeUploader) Delete(_ context.Context, assetID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Deleted = append(f.Deleted, assetID)
	return nil
}

type Suite struct {
	Engine  *gin.Engine
	Storage *memory.Storage
	Media   *FakeUploader
	Auth    *authservice.Auth
	Tokens  *jwt.Manager
}

func New(t *testing.T) *Suite {
	t.Helper()

	gin.SetMode(gin.TestMode)

	st := memory.New()
	up := &FakeUploader{}
	tokens := jwt.NewManager(config.AuthConfig{
		AccessSecret:  "access-test-secret",
		RefreshSecret: "refresh-test-secret",
		AccessTTL:     AccessTTL,
		RefreshTTL:    RefreshTTL,
	})
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	hasher := passhash.New(bcrypt.MinCost)

	authSvc := authservice.New(log, st, st, st, up, tokens, hasher)
	videoSvc := videoservice.New(log, st, st, up)
	subSvc := subservice.New(log, st, st)

	engine := router.New(config.CORSConfig{Origin: "http://localhost:5173"}, router.Handlers{
		Auth:          authhttp.NewHandler(authSvc, tokens.AccessTTL(), tokens.RefreshTTL()),
		Video:         videohttp.NewHandler(videoSvc),
		Subscription:  subhttp.NewHandler(subSvc),
		Authenticator: authSvc,
	})

	return &Suite{
		Engine:  engine,
		Storage: st,
		Media:   up,
		Auth:    authSvc,
		Tokens:  tokens,
	}
}

// Do runs one request through the router and returns the recorder.
func (s *Suite) Do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.Engine.ServeHTTP(rr, req)
	return rr
}

// JSONRequest builds a request with a JSON body and optional cookies.
func (s *Suite) JSONRequest(t *testing.T, method, target string, body any, cookies ...*http.Cookie) *http.Request {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	return req
}

// MultipartForm builds a multipart body: text fields plus small fake
// file parts for each field name in files.
func MultipartForm(t *testing.T, fields map[string]string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, value := range fields {
		require.NoError(t, w.WriteField(name, value))
	}
	for field, filename := range files {
		fw, err := w.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte("fake file bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

// Register submits the register form.
func (s *Suite) Register(t *testing.T, username, email, fullName, password string) *httptest.ResponseRecorder {
	t.Helper()

	body, contentType := MultipartForm(t, map[string]string{
		"username": username,
		"email":    email,
		"fullName": fullName,
		"password": password,
	}, map[string]string{
		"avatar": "avatar.png",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
	req.Header.Set("Content-Type", contentType)
	return s.Do(req)
}

// Login submits credentials and returns the recorder with auth cookies.
func (s *Suite) Login(t *testing.T, identifier, password string) *httptest.ResponseRecorder {
	t.Helper()

	req := s.JSONRequest(t, http.MethodPost, "/api/v1/users/login", map[string]string{
		"identifier": identifier,
		"password":   password,
	})
	return s.Do(req)
}

// Decode unmarshals the response envelope.
func Decode(t *testing.T, rr *httptest.ResponseRecorder) Envelope {
	t.Helper()

	var env Envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return env
}

// Cookie returns the named cookie set by the response, or nil.
func Cookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range rr.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}
