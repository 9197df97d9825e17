package api

import (
	"context"
	"sync"

	"Koro/backend/go/internal/attachment"
	"Koro/backend/go/internal/koro_service/service"
	"Koro/backend/go/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// 客户端消息类型
const (
	msgTurn   = "turn"
	msgCancel = "cancel"
)

// 服务端消息类型
const (
	msgPartial = "partial"
	msgDone    = "done"
	msgError   = "error"
)

// ClientMessage 是客户端通过 WebSocket 发送的消息。
type ClientMessage struct {
	Type        string              `json:"type"`
	SessionID   string              `json:"sessionId,omitempty"`
	Prompt      string              `json:"prompt,omitempty"`
	Attachments []models.Attachment `json:"attachments,omitempty"`
}

// ServerMessage 是服务端推送的消息。
type ServerMessage struct {
	Type      string           `json:"type"`
	SessionID string           `json:"sessionId,omitempty"`
	Update    *service.Update  `json:"update,omitempty"`
	Outcome   *service.Outcome `json:"outcome,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// socket 串行化同一连接上的写操作。
type socket struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *socket) send(msg ServerMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(msg)
}

// ChatSocketHandler 升级为 WebSocket 连接，在同一连接上运行多个会话的回合。
// 连接断开时取消该连接发起的所有回合。
func (a *API) ChatSocketHandler(c *gin.Context) {
	uid := userID(c)
	conn, err := a.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		a.logger.WithError(models.NewErrorInfo(err, "websocket_error")).WithUser(uid).Error("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.WithoutCancel(c.Request.Context()))
	defer cancel()

	ws := &socket{conn: conn}
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		var msg ClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				a.logger.WithError(models.NewErrorInfo(err, "websocket_error")).WithUser(uid).Warn("chat socket closed unexpectedly")
			}
			cancel()
			return
		}

		switch msg.Type {
		case msgTurn:
			wg.Add(1)
			go func(msg ClientMessage) {
				defer wg.Done()
				a.runSocketTurn(ctx, ws, uid, msg)
			}(msg)
		case msgCancel:
			a.conv.Cancel(uid, msg.SessionID)
		default:
			_ = ws.send(ServerMessage{Type: msgError, SessionID: msg.SessionID, Error: "unknown message type: " + msg.Type})
		}
	}
}

func (a *API) runSocketTurn(ctx context.Context, ws *socket, uid string, msg ClientMessage) {
	attachments, err := attachment.NormalizeAll(msg.Attachments)
	if err != nil {
		_ = ws.send(ServerMessage{Type: msgError, SessionID: msg.SessionID, Error: err.Error()})
		return
	}
	out, err := a.conv.SubmitTurn(ctx, uid, msg.SessionID, msg.Prompt, attachments, func(u service.Update) {
		if err := ws.send(ServerMessage{Type: msgPartial, SessionID: u.SessionID, Update: &u}); err != nil {
			a.logger.WithError(models.NewErrorInfo(err, "websocket_error")).WithUser(uid).Debug("dropping partial update")
		}
	})
	if err != nil {
		_ = ws.send(ServerMessage{Type: msgError, SessionID: msg.SessionID, Error: err.Error()})
		return
	}
	_ = ws.send(ServerMessage{Type: msgDone, SessionID: out.SessionID, Outcome: out})
}
