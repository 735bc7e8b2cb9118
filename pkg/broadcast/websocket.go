package broadcast

import (
	"io/ioutil"
	"net"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	inboxSize  = 16
	outboxSize = 100
)

// WebSocketConn is a Subscriber backed by a server side websocket. Text
// frames received from the client are put into Inbox.
type WebSocketConn struct {
	id     string
	conn   net.Conn
	Inbox  chan []byte
	outbox chan []byte

	terminateCh   chan struct{}
	terminateOnce sync.Once

	wg sync.WaitGroup
}

func NewWebSocketConn(conn net.Conn) *WebSocketConn {
	return &WebSocketConn{
		id:          uuid.NewString(),
		conn:        conn,
		Inbox:       make(chan []byte, inboxSize),
		outbox:      make(chan []byte, outboxSize),
		terminateCh: make(chan struct{}),
	}
}

func (c *WebSocketConn) ID() string {
	return c.id
}

// Start runs the reader and the writer.
func (c *WebSocketConn) Start() {
	c.wg.Add(2)
	go c.inboxHandler()
	go c.outboxHandler()
}

// Done is closed once the connection is terminated.
func (c *WebSocketConn) Done() <-chan struct{} {
	return c.terminateCh
}

func (c *WebSocketConn) Send(data []byte) bool {
	select {
	case <-c.terminateCh:
		return false
	default:
	}

	select {
	case c.outbox <- data:
		return true
	default:
		return false // Buffer is full
	}
}

// Close terminates the connection and waits for the reader and the writer.
func (c *WebSocketConn) Close() {
	c.terminate()
	c.conn.Close()
	c.wg.Wait()
	log.WithField("connection_id", c.id).Debug("websocket closed")
}

func (c *WebSocketConn) terminate() {
	c.terminateOnce.Do(func() {
		close(c.terminateCh)
	})
}

func (c *WebSocketConn) inboxHandler() {
	defer c.wg.Done()
	defer c.terminate()

	state := ws.StateServerSide
	ch := wsutil.ControlFrameHandler(c.conn, state)

	r := &wsutil.Reader{
		Source:         c.conn,
		State:          state,
		CheckUTF8:      true,
		OnIntermediate: ch,
	}

	for {
		h, err := r.NextFrame()
		if err != nil {
			log.WithField("connection_id", c.id).Debugf("websocket read frame error: %v", err)
			return
		}

		if h.OpCode.IsControl() {
			// On OpClose the socket was closed by the client
			if h.OpCode == ws.OpClose {
				log.WithField("connection_id", c.id).Info("websocket connection closed gracefully")
				return
			}

			if err = ch(h, r); err != nil {
				log.WithField("connection_id", c.id).Errorf("websocket handles control frame error: %v", err)
				return
			}
			continue
		}

		data, err := ioutil.ReadAll(r)
		if err != nil {
			log.WithField("connection_id", c.id).Errorf("websocket read error: %v", err)
			return
		}

		select {
		case c.Inbox <- data:
		case <-c.terminateCh:
			return
		}
	}
}

func (c *WebSocketConn) outboxHandler() {
	defer c.wg.Done()
	defer c.terminate()

	state := ws.StateServerSide
	w := wsutil.NewWriter(c.conn, state, 0)

	for {
		select {
		case data := <-c.outbox:
			if err := webSocketWriteText(c.conn, w, state, data); err != nil {
				log.WithField("connection_id", c.id).Errorf("websocket terminates because of write error: %v", err)
				return
			}
		case <-c.terminateCh:
			return
		}
	}
}

func webSocketWriteText(conn net.Conn, w *wsutil.Writer, state ws.State, data []byte) error {
	w.Reset(conn, state, ws.OpText)
	if _, err := w.Write(data); err != nil {
		return err
	}
	return w.Flush()
}
