package http

import (
	"bytes"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	pubsub "gigpulse/internal/infrastructure/pubsub/adapter"
	queue "gigpulse/internal/infrastructure/queue/adapter"
	"gigpulse/internal/infrastructure/realtime"
	"gigpulse/internal/pkg/chat/application/task"
	"gigpulse/internal/pkg/chat/application/usecase"
	"gigpulse/internal/pkg/chat/persistence/repository/adapter"
	"gigpulse/internal/pkg/chat/presentation/controller"
	"gigpulse/internal/pkg/presence/application/tracker"
	presence "gigpulse/internal/pkg/presence/persistence/repository/adapter"
	"gigpulse/internal/pkg/schema"
)

type api struct {
	engine   *gin.Engine
	uc       *usecase.UseCases
	queue    *queue.MemoryQueue
	presence *presence.MemoryPresenceRepository
	tracker  *tracker.Tracker
}

func newAPI(t *testing.T) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := realtime.NewRegistry(pubsub.NewMemoryTransport(), zap.NewNop())
	router := realtime.NewRouter(registry, zap.NewNop())
	presenceRepo := presence.NewMemoryPresenceRepository()
	tr := tracker.NewTracker(presenceRepo, registry, tracker.Options{}, zap.NewNop())
	t.Cleanup(func() {
		router.Close()
		tr.Wait()
		registry.Close()
	})

	uc := usecase.NewUseCases(adapter.NewMemoryChatRepository(), registry, nil, 0, zap.NewNop())
	q := queue.NewMemoryQueue()

	engine := gin.New()
	v1 := engine.Group("/api/v1")
	RegisterRoutes(v1, uc, q)
	RegisterSocket(v1, controller.NewSocketController(router, uc, tr, zap.NewNop()))
	return &api{engine: engine, uc: uc, queue: q, presence: presenceRepo, tracker: tr}
}

func (a *api) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	a.engine.ServeHTTP(rec, req)
	return rec
}

func (a *api) createConversation(t *testing.T, userID string, others ...string) schema.Conversation {
	t.Helper()
	rec := a.do(t, nethttp.MethodPost, "/api/v1/conversations", userID, gin.H{"participant_ids": others})
	require.Equal(t, nethttp.StatusCreated, rec.Code, rec.Body.String())
	var conv schema.Conversation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))
	return conv
}

func TestConversationRoutes(t *testing.T) {
	a := newAPI(t)
	conv := a.createConversation(t, "alice", "bob")
	assert.ElementsMatch(t, []string{"alice", "bob"}, conv.ParticipantIDs)

	base := "/api/v1/conversations/" + conv.ID

	rec := a.do(t, nethttp.MethodPost, base+"/messages", "alice", gin.H{"content": "Hello"})
	require.Equal(t, nethttp.StatusCreated, rec.Code, rec.Body.String())
	rec = a.do(t, nethttp.MethodPost, base+"/messages", "alice", gin.H{"content": "How are you?"})
	require.Equal(t, nethttp.StatusCreated, rec.Code)

	rec = a.do(t, nethttp.MethodGet, base+"/unread", "bob", nil)
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.JSONEq(t, `{"conversation_id":"`+conv.ID+`","unread":2}`, rec.Body.String())

	rec = a.do(t, nethttp.MethodGet, base+"/messages?order=desc", "bob", nil)
	require.Equal(t, nethttp.StatusOK, rec.Code)
	var history struct {
		Messages []schema.Message `json:"messages"`
		Count    int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Equal(t, 2, history.Count)
	assert.Equal(t, "How are you?", history.Messages[0].Content)

	rec = a.do(t, nethttp.MethodPost, base+"/read", "bob", nil)
	require.Equal(t, nethttp.StatusOK, rec.Code)
	rec = a.do(t, nethttp.MethodGet, base+"/unread", "bob", nil)
	assert.JSONEq(t, `{"conversation_id":"`+conv.ID+`","unread":0}`, rec.Body.String())

	rec = a.do(t, nethttp.MethodGet, "/api/v1/conversations", "bob", nil)
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)

	rec = a.do(t, nethttp.MethodPost, base+"/typing", "alice", gin.H{"is_typing": true})
	require.Equal(t, nethttp.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(t, nethttp.MethodGet, base+"/participants", "bob", nil)
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"alice"`)
}

func TestConversationRoutes_Errors(t *testing.T) {
	a := newAPI(t)
	conv := a.createConversation(t, "alice", "bob")
	base := "/api/v1/conversations/" + conv.ID

	rec := a.do(t, nethttp.MethodGet, base+"/messages", "", nil)
	assert.Equal(t, nethttp.StatusUnauthorized, rec.Code)

	rec = a.do(t, nethttp.MethodPost, base+"/messages", "mallory", gin.H{"content": "hi"})
	assert.Equal(t, nethttp.StatusForbidden, rec.Code)

	rec = a.do(t, nethttp.MethodPost, base+"/messages", "alice", gin.H{"content": "   "})
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)

	// an unknown conversation has no participants, so the caller is not one
	rec = a.do(t, nethttp.MethodGet, "/api/v1/conversations/missing/messages", "alice", nil)
	assert.Equal(t, nethttp.StatusForbidden, rec.Code)

	rec = a.do(t, nethttp.MethodPost, base+"/typing", "alice", gin.H{})
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)
}

func TestEnqueueMessage(t *testing.T) {
	a := newAPI(t)
	conv := a.createConversation(t, "alice", "bob")

	rec := a.do(t, nethttp.MethodPost, "/api/v1/conversations/"+conv.ID+"/messages/async", "alice", gin.H{"content": "later"})
	require.Equal(t, nethttp.StatusAccepted, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"status":"queued"`)

	queued := a.queue.Enqueued(task.SendMessageTaskType)
	require.Len(t, queued, 1)
	var p task.SendMessageTaskPayload
	require.NoError(t, json.Unmarshal(queued[0].Task.Payload, &p))
	assert.Equal(t, task.SendMessageTaskPayload{ConversationID: conv.ID, SenderID: "alice", Content: "later"}, p)
}

type wsClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func dial(t *testing.T, srv *httptest.Server, userID string) *wsClient {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws?user_id=" + userID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	c := &wsClient{t: t, conn: conn}
	c.expect("connected")
	return c
}

func (c *wsClient) send(frame gin.H) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteJSON(frame))
}

func (c *wsClient) read() map[string]any {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame map[string]any
	require.NoError(c.t, c.conn.ReadJSON(&frame))
	return frame
}

// expect reads frames until one of type typ arrives.
func (c *wsClient) expect(typ string) map[string]any {
	c.t.Helper()
	for i := 0; i < 10; i++ {
		if frame := c.read(); frame["type"] == typ {
			return frame
		}
	}
	c.t.Fatalf("no %q frame received", typ)
	return nil
}

func TestSocket(t *testing.T) {
	a := newAPI(t)
	conv := a.createConversation(t, "alice", "bob")
	srv := httptest.NewServer(a.engine)
	defer srv.Close()

	bob := dial(t, srv, "bob")
	bob.send(gin.H{"type": "subscribe", "kind": "conversation", "id": conv.ID})
	ack := bob.expect("subscribed")
	assert.Equal(t, realtime.ConversationTopic(conv.ID), ack["topic"])

	alice := dial(t, srv, "alice")
	alice.send(gin.H{"type": "message", "conversation_id": conv.ID, "content": "Hello"})
	sent := alice.expect("sent")
	assert.Equal(t, "Hello", sent["message"].(map[string]any)["content"])

	ev := bob.expect("event")["event"].(map[string]any)
	assert.Equal(t, string(schema.EventMessage), ev["kind"])
	assert.Equal(t, "Hello", ev["message"].(map[string]any)["content"])

	bob.send(gin.H{"type": "subscribe", "kind": "user-notifications", "id": "alice"})
	errFrame := bob.expect("error")
	assert.Equal(t, "forbidden", errFrame["code"])

	bob.send(gin.H{"type": "presence", "status": "busy"})
	p := bob.expect("presence")["presence"].(map[string]any)
	assert.Equal(t, "busy", p["status"])

	mallory := dial(t, srv, "mallory")
	mallory.send(gin.H{"type": "subscribe", "kind": "conversation", "id": conv.ID})
	assert.Equal(t, "forbidden", mallory.expect("error")["code"])
	mallory.send(gin.H{"type": "bogus"})
	assert.Equal(t, "unsupported_type", mallory.expect("error")["code"])

	require.NoError(t, bob.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	_ = bob.conn.Close()

	assert.Eventually(t, func() bool {
		p, err := a.presence.Get(t.Context(), "bob")
		return err == nil && p.Status == schema.StatusOffline
	}, 2*time.Second, 10*time.Millisecond)

	_ = alice.conn.Close()
	_ = mallory.conn.Close()
}
