package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tunechat/internal/adapter/api"
	"tunechat/internal/adapter/api/handler"
	"tunechat/internal/adapter/api/middleware"
	"tunechat/internal/domain/entity"
	"tunechat/internal/infrastructure/memstore"
	"tunechat/internal/infrastructure/ratelimit"
	"tunechat/internal/infrastructure/websocket"
	"tunechat/internal/usecase"
	"tunechat/pkg/logger"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func TestMain(m *testing.M) {
	logger.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type messagesPage struct {
	Messages []entity.Message `json:"messages"`
	Total    int              `json:"total"`
}

type server struct {
	e *echo.Echo
}

func newServer(t *testing.T, limits map[string]ratelimit.Limit) *server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	store := memstore.New()
	blobs := memstore.NewBlobs()
	directory := memstore.NewDirectory(entity.Identity{UserID: "alice", DisplayName: "Alice"})

	sessions := usecase.NewSessionManager(ctx, usecase.SessionDeps{
		ConversationID: "global",
		Identities:     directory,
		Messages:       store,
		Presence:       store.Presence(),
		Groups:         store.Groups(),
		Blobs:          blobs,
		Options:        usecase.Options{SweepInterval: 10 * time.Millisecond},
	})
	wsManager := websocket.NewManager()
	wsManager.SetCommandHandler(sessions)
	wsManager.Start(ctx)

	handler.Setup(ctx, sessions, wsManager, handler.Config{MaxUploadBytes: 1 << 20, DevMode: true})

	if limits == nil {
		limits = ratelimit.DefaultLimits(1000)
	}
	e := echo.New()
	e.Validator = api.NewValidator()
	Setup(e, middleware.NewAuthMiddleware(directory), ratelimit.NewRateLimiter(limits))
	return &server{e: e}
}

func (s *server) do(t *testing.T, method, path, uid string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return s.serve(t, req, uid)
}

func (s *server) serve(t *testing.T, req *http.Request, uid string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	if uid != "" {
		req.Header.Set("Authorization", "Bearer "+memstore.DevToken(uid))
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		_ = json.Unmarshal(rec.Body.Bytes(), &env)
	}
	return rec, env
}

func (s *server) messages(t *testing.T, uid string) []entity.Message {
	t.Helper()
	rec, env := s.do(t, http.MethodGet, "/v1/conversation/messages", uid, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page messagesPage
	require.NoError(t, json.Unmarshal(env.Data, &page))
	return page.Messages
}

func TestHealth(t *testing.T) {
	s := newServer(t, nil)
	rec, _ := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "memory")
}

func TestConversationRequiresToken(t *testing.T) {
	s := newServer(t, nil)

	rec, _ := s.do(t, http.MethodGet, "/v1/conversation/messages", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/conversation/messages", nil)
	req.Header.Set("Authorization", "Bearer forged")
	rec, _ = s.serve(t, req, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSendTextAndReadBack(t *testing.T) {
	s := newServer(t, nil)

	rec, _ := s.do(t, http.MethodPost, "/v1/conversation/messages", "alice", map[string]string{"content": "hello"})
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool { return len(s.messages(t, "alice")) == 1 }, waitFor, tick)
	msg := s.messages(t, "alice")[0]
	assert.Equal(t, "hello", msg.Content)
	assert.Equal(t, "Alice", msg.SenderName)

	rec, env := s.do(t, http.MethodPost, "/v1/conversation/messages", "alice", map[string]string{"content": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestMessageMutations(t *testing.T) {
	s := newServer(t, nil)

	rec, _ := s.do(t, http.MethodPost, "/v1/conversation/messages", "alice", map[string]string{"content": "draft"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Eventually(t, func() bool { return len(s.messages(t, "alice")) == 1 }, waitFor, tick)
	id := s.messages(t, "alice")[0].ID

	// bob's engine starts on first use and may not have seen the message yet.
	var env envelope
	require.Eventually(t, func() bool {
		rec, env = s.do(t, http.MethodPost, "/v1/conversation/messages/"+id+"/reactions", "bob", map[string]string{"symbol": "🔥"})
		return rec.Code != http.StatusConflict
	}, waitFor, tick)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"reactions":["🔥"]}`, string(env.Data))

	rec, _ = s.do(t, http.MethodPatch, "/v1/conversation/messages/"+id, "bob", map[string]string{"content": "hijack"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = s.do(t, http.MethodPatch, "/v1/conversation/messages/"+id, "alice", map[string]string{"content": "final"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Eventually(t, func() bool {
		m := s.messages(t, "alice")
		return len(m) == 1 && m[0].Content == "final" && m[0].IsEdited
	}, waitFor, tick)

	rec, _ = s.do(t, http.MethodPut, "/v1/conversation/reply", "bob", map[string]string{"message_id": id})
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = s.do(t, http.MethodPost, "/v1/conversation/messages", "bob", map[string]string{"content": "agreed"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Eventually(t, func() bool {
		m := s.messages(t, "bob")
		return len(m) == 2 && m[1].ReplyTo != nil && m[1].ReplyTo.ID == id
	}, waitFor, tick)

	rec, _ = s.do(t, http.MethodDelete, "/v1/conversation/messages/"+id, "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Eventually(t, func() bool {
		m := s.messages(t, "alice")
		return len(m) == 1 && m[0].ID != id
	}, waitFor, tick)
}

func TestSendMediaMultipart(t *testing.T) {
	s := newServer(t, nil)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="files"; filename="cat.jpg"`)
	header.Set("Content-Type", "image/jpeg")
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte{0xff}, 2048))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/conversation/media", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec, env := s.serve(t, req, "alice")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var sent struct {
		TempID string `json:"temp_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &sent))
	assert.True(t, strings.HasPrefix(sent.TempID, entity.OptimisticIDPrefix))

	require.Eventually(t, func() bool {
		m := s.messages(t, "alice")
		return len(m) == 1 && m[0].Type == entity.MessageTypeImage && len(m[0].Attachments) == 1
	}, waitFor, tick)

	rec, _ = s.do(t, http.MethodPost, "/v1/conversation/media/"+sent.TempID+"/retry", "alice", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSendMediaRequiresFiles(t *testing.T) {
	s := newServer(t, nil)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("kind", "audio"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/conversation/media", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec, _ := s.serve(t, req, "alice")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGroupSettings(t *testing.T) {
	s := newServer(t, nil)

	rec, env := s.do(t, http.MethodGet, "/v1/group", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var group entity.Group
	require.NoError(t, json.Unmarshal(env.Data, &group))
	assert.Contains(t, group.Members, "alice")

	rec, _ = s.do(t, http.MethodPost, "/v1/group/admins", "alice", map[string]string{"user_id": "alice"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env = s.do(t, http.MethodPatch, "/v1/group", "alice", map[string]string{"name": "Late Night Listening"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &group))
	assert.Equal(t, "Late Night Listening", group.Name)

	rec, _ = s.do(t, http.MethodPatch, "/v1/group", "bob", map[string]string{"name": "Mine now"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = s.do(t, http.MethodDelete, "/v1/group/admins/alice", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendRateLimited(t *testing.T) {
	limits := ratelimit.DefaultLimits(1000)
	limits[ratelimit.ActionSendMessage] = ratelimit.Limit{PerMinute: 1, Burst: 1}
	s := newServer(t, limits)

	rec, _ := s.do(t, http.MethodPost, "/v1/conversation/messages", "alice", map[string]string{"content": "one"})
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec, env := s.do(t, http.MethodPost, "/v1/conversation/messages", "alice", map[string]string{"content": "two"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.NotNil(t, env.Error)
	assert.Equal(t, "TOO_MANY_REQUESTS", env.Error.Code)
}
