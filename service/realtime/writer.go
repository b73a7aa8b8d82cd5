package realtime

import (
	"time"

	"github.com/gorilla/websocket"

	"WProject/logger"
	"WProject/tools/safe"
)

const (
	writeWait     = 10 * time.Second
	pingInterval  = 25 * time.Second
	pongWait      = 75 * time.Second
	sendQueueSize = 256
)

func nowAdd(d time.Duration) time.Time { return time.Now().Add(d) }

// startWriter runs the single writer goroutine for a connection: everything
// queued on the transport goes out here, interleaved with liveness pings.
// When the transport closes, the writer sends the close frame and shuts the
// socket, which also unblocks the read loop.
func (s *Server) startWriter(ws *websocket.Conn, t *Transport) {
	safe.Go(func() {
		ticker := time.NewTicker(pingInterval)
		defer func() {
			ticker.Stop()
			_ = ws.SetWriteDeadline(nowAdd(writeWait))
			_ = ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			_ = ws.Close()
		}()

		for {
			select {
			case payload, ok := <-t.Out():
				if !ok {
					return
				}
				_ = ws.SetWriteDeadline(nowAdd(writeWait))
				if err := ws.WriteMessage(websocket.TextMessage, payload); err != nil {
					logger.Infof("[ws] write err conn=%s err=%v", t.ConnID, err)
					return
				}
			case <-ticker.C:
				_ = ws.SetWriteDeadline(nowAdd(writeWait))
				if err := ws.WriteControl(websocket.PingMessage, []byte("ping"), nowAdd(writeWait)); err != nil {
					logger.Infof("[ws] ping err conn=%s err=%v", t.ConnID, err)
					return
				}
			}
		}
	})
}
