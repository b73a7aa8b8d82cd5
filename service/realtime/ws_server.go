package realtime

import (
	stderrors "errors"
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"WProject/logger"
	"WProject/tools/errs"
	"WProject/tools/ids"
	"WProject/tools/security"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandleWS is the connection acceptor. The credential is verified once here;
// the resulting principal rides on the Session for every later frame.
func (s *Server) HandleWS(c *gin.Context) {
	token := bearerToken(c)
	principal, err := security.Verify(s.auth, token)
	if err != nil {
		// Refused before upgrade; the client must reconnect with a valid
		// credential.
		c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[ws] upgrade error: %v", err)
		return
	}

	sess := NewSession(ids.GenerateString(), principal)
	t := NewTransport(sess.ID, sendQueueSize)
	s.addSession(sess)
	s.caster.Attach(sess.ID, t)
	s.startWriter(ws, t)

	logger.Infof("[ws] client connected session=%s user=%s", sess.ID, principal.UserID)

	s.readLoop(ws, sess, t)
}

func (s *Server) readLoop(ws *websocket.Conn, sess *Session, t *Transport) {
	defer func() {
		s.Disconnect(sess)
		t.Close() // writer sends the close frame and shuts the socket
	}()

	_ = ws.SetReadDeadline(nowAdd(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(nowAdd(pongWait))
	})

	for {
		mt, data, rerr := ws.ReadMessage()
		if rerr != nil {
			if websocket.IsCloseError(rerr,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[ws] peer closed session=%s", sess.ID)
			} else if ne, ok := rerr.(net.Error); ok && ne.Timeout() {
				logger.Infof("[ws] read timeout session=%s", sess.ID)
			} else {
				logger.Infof("[ws] read err session=%s err=%v", sess.ID, rerr)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		frame, perr := ParseFrame(data)
		if perr != nil {
			s.caster.Send(sess.ID, EventError, ErrorBody{
				Code:   errs.CodeValidation,
				Detail: "malformed frame",
			})
			continue
		}

		h := s.disp.Get(frame.Event)
		if h == nil {
			s.caster.Send(sess.ID, EventError, ErrorBody{
				Event:  frame.Event,
				Code:   errs.CodeValidation,
				Detail: "unknown event",
			})
			continue
		}

		if err := h.Handle(&Context{S: s}, sess, frame.Data); err != nil {
			// Rejections are surfaced to the offending client only; the
			// connection and every other session stay untouched.
			var ce errs.CodeError
			if !stderrors.As(err, &ce) {
				ce = errs.ErrValidation.WithDetail(err.Error())
			}
			s.caster.Send(sess.ID, EventError, ErrorBody{
				Event:  frame.Event,
				Code:   ce.Code,
				Detail: ce.Error(),
			})
		}
	}
}

func bearerToken(c *gin.Context) string {
	if tok := strings.TrimSpace(c.Query("token")); tok != "" {
		return tok
	}
	authz := strings.TrimSpace(c.GetHeader("Authorization"))
	if authz != "" && strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return strings.TrimSpace(authz[len("bearer "):])
	}
	return ""
}
