package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"gigpulse/internal/infrastructure/httpapi"
	"gigpulse/internal/infrastructure/realtime"
	"gigpulse/internal/pkg/chat/application/usecase"
	"gigpulse/internal/pkg/presence/application/tracker"
	"gigpulse/internal/pkg/schema"
)

// SocketController handles the websocket endpoint. Each connection owns one
// presence session and a set of registry subscriptions held by the router.
type SocketController struct {
	router          *realtime.Router
	chat            *usecase.UseCases
	presence        *tracker.Tracker
	logger          *zap.Logger
	inflightTimeout time.Duration
}

func NewSocketController(router *realtime.Router, uc *usecase.UseCases, presence *tracker.Tracker, logger *zap.Logger) *SocketController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SocketController{
		router:          router,
		chat:            uc,
		presence:        presence,
		logger:          logger.Named("socket"),
		inflightTimeout: 5 * time.Second,
	}
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The gateway in front of the service enforces origins.
		return true
	},
}

type inboundFrame struct {
	Type           string  `json:"type"`
	Kind           string  `json:"kind,omitempty"`
	ID             string  `json:"id,omitempty"`
	ConversationID string  `json:"conversation_id,omitempty"`
	Content        string  `json:"content,omitempty"`
	IsTyping       *bool   `json:"is_typing,omitempty"`
	Status         string  `json:"status,omitempty"`
	CurrentContext *string `json:"current_context,omitempty"`
}

type errorFrame struct {
	Type  string `json:"type"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

type ackFrame struct {
	Type           string `json:"type"`
	Topic          string `json:"topic,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type messageFrame struct {
	Type    string          `json:"type"`
	Message *schema.Message `json:"message"`
}

type readFrame struct {
	Type   string                        `json:"type"`
	Marker *schema.ParticipantReadMarker `json:"marker"`
}

type presenceFrame struct {
	Type     string               `json:"type"`
	Presence *schema.UserPresence `json:"presence"`
}

const defaultReadTimeout = 60 * time.Second

// socketSession is the per-connection state the frame handlers share.
type socketSession struct {
	conn     *realtime.Connection
	presence *tracker.Session
}

func (s *socketSession) activity() {
	if s.presence != nil {
		s.presence.Activity()
	}
}

// Handle upgrades HTTP connections to websocket and processes frames until the client disconnects.
func (ctl *SocketController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := httpapi.UserID(c)
		if userID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
			return
		}

		ws, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the response.
			ctl.logger.Debug("websocket upgrade failed", zap.Error(err))
			return
		}

		sess := &socketSession{conn: realtime.NewConnection(userID, ws)}
		ctl.router.Attach(sess.conn)
		defer func() {
			ctl.router.Detach(sess.conn)
			sess.conn.Close(websocket.CloseNormalClosure, "session closed")
		}()

		if ctl.presence != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.inflightTimeout)
			sess.presence, err = ctl.presence.StartSession(ctx, userID)
			cancel()
			if err != nil {
				ctl.logger.Warn("presence session not started", zap.String("user_id", userID), zap.Error(err))
			} else {
				defer sess.presence.Stop()
			}
		}

		ws.SetReadLimit(1 << 20) // 1MB payload cap
		_ = ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		})

		_ = sess.conn.SendJSON(ackFrame{Type: "connected"})

		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) ||
					errors.Is(err, websocket.ErrCloseSent) {
					return
				}
				ctl.replyError(sess.conn, "read_error", err.Error())
				return
			}
			_ = ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))

			var frame inboundFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				ctl.replyError(sess.conn, "bad_request", "invalid payload")
				continue
			}

			ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.inflightTimeout)
			ctl.dispatch(ctx, sess, frame)
			cancel()
		}
	}
}

func (ctl *SocketController) dispatch(ctx context.Context, sess *socketSession, frame inboundFrame) {
	// Every frame from the client counts as activity.
	sess.activity()

	switch frame.Type {
	case "subscribe":
		ctl.handleSubscribe(ctx, sess, frame)
	case "unsubscribe":
		ctl.handleUnsubscribe(sess, frame)
	case "message":
		ctl.handleMessage(ctx, sess, frame)
	case "typing":
		ctl.handleTyping(ctx, sess, frame)
	case "read":
		ctl.handleRead(ctx, sess, frame)
	case "presence":
		ctl.handlePresence(ctx, sess, frame)
	case "activity":
	default:
		ctl.replyError(sess.conn, "unsupported_type", "unknown frame type")
	}
}

func (ctl *SocketController) handleSubscribe(ctx context.Context, sess *socketSession, frame inboundFrame) {
	topic, err := realtime.ResolveTopic(frame.Kind, frame.ID)
	if err != nil {
		ctl.replyError(sess.conn, "bad_request", err.Error())
		return
	}

	userID := sess.conn.UserID
	switch frame.Kind {
	case realtime.TopicKindConversation:
		err := ctl.chat.Join.Execute(ctx, usecase.JoinConversationInput{ConversationID: frame.ID, UserID: userID})
		if err != nil {
			ctl.handleUseCaseError(sess.conn, err)
			return
		}
	case realtime.TopicKindUserNotifications:
		if frame.ID != userID {
			ctl.replyError(sess.conn, "forbidden", "cannot subscribe to another user's notifications")
			return
		}
	}

	if err := ctl.router.Join(topic, sess.conn); err != nil {
		ctl.logger.Warn("subscribe failed", zap.String("topic", topic), zap.Error(err))
		ctl.replyError(sess.conn, "internal_error", "subscribe failed")
		return
	}
	_ = sess.conn.SendJSON(ackFrame{Type: "subscribed", Topic: topic})

	if topic == realtime.PresenceTopic && ctl.presence != nil {
		// New subscribers start from the current snapshot.
		ev := schema.PresenceSyncEvent(ctl.presence.CurrentPresence())
		ev.Topic = topic
		_ = sess.conn.SendJSON(realtime.EventFrame{Type: "event", Event: ev})
	}
}

func (ctl *SocketController) handleUnsubscribe(sess *socketSession, frame inboundFrame) {
	topic, err := realtime.ResolveTopic(frame.Kind, frame.ID)
	if err != nil {
		ctl.replyError(sess.conn, "bad_request", err.Error())
		return
	}
	ctl.router.Leave(topic, sess.conn)
	_ = sess.conn.SendJSON(ackFrame{Type: "unsubscribed", Topic: topic})
}

func (ctl *SocketController) handleMessage(ctx context.Context, sess *socketSession, frame inboundFrame) {
	if frame.ConversationID == "" {
		ctl.replyError(sess.conn, "bad_request", "conversation_id is required")
		return
	}

	msg, err := ctl.chat.Send.Execute(ctx, usecase.SendMessageInput{
		ConversationID: frame.ConversationID,
		SenderID:       sess.conn.UserID,
		Content:        frame.Content,
	})
	if err != nil {
		ctl.handleUseCaseError(sess.conn, err)
		return
	}
	// Subscribers get the message event through the registry; this only acks the sender.
	_ = sess.conn.SendJSON(messageFrame{Type: "sent", Message: msg})
}

func (ctl *SocketController) handleTyping(ctx context.Context, sess *socketSession, frame inboundFrame) {
	if frame.ConversationID == "" || frame.IsTyping == nil {
		ctl.replyError(sess.conn, "bad_request", "conversation_id and is_typing are required")
		return
	}
	_, err := ctl.chat.SetTyping.Execute(ctx, usecase.SetTypingInput{
		ConversationID: frame.ConversationID,
		UserID:         sess.conn.UserID,
		IsTyping:       *frame.IsTyping,
	})
	if err != nil {
		ctl.handleUseCaseError(sess.conn, err)
	}
}

func (ctl *SocketController) handleRead(ctx context.Context, sess *socketSession, frame inboundFrame) {
	if frame.ConversationID == "" {
		ctl.replyError(sess.conn, "bad_request", "conversation_id is required")
		return
	}
	marker, err := ctl.chat.MarkRead.Execute(ctx, usecase.MarkReadInput{
		ConversationID: frame.ConversationID,
		UserID:         sess.conn.UserID,
	})
	if err != nil {
		ctl.handleUseCaseError(sess.conn, err)
		return
	}
	_ = sess.conn.SendJSON(readFrame{Type: "read", Marker: marker})
}

func (ctl *SocketController) handlePresence(ctx context.Context, sess *socketSession, frame inboundFrame) {
	if ctl.presence == nil {
		ctl.replyError(sess.conn, "unsupported_type", "presence is disabled")
		return
	}
	p, err := ctl.presence.SetStatus(ctx, sess.conn.UserID, schema.PresenceStatus(frame.Status), frame.CurrentContext)
	if err != nil {
		ctl.handleUseCaseError(sess.conn, err)
		return
	}
	_ = sess.conn.SendJSON(presenceFrame{Type: "presence", Presence: p})
}

func (ctl *SocketController) handleUseCaseError(conn *realtime.Connection, err error) {
	code := httpapi.Code(err)
	if code == "internal_error" {
		ctl.logger.Warn("socket frame failed", zap.String("user_id", conn.UserID), zap.Error(err))
	}
	ctl.replyError(conn, code, httpapi.Message(err))
}

func (ctl *SocketController) replyError(conn *realtime.Connection, code string, message string) {
	_ = conn.SendJSON(errorFrame{
		Type:  "error",
		Code:  code,
		Error: message,
	})
}
