package http

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"live-quiz-service/internal/stream"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

var (
	errStreamClosed = errors.New("stream closed")
	errSendBacklog  = errors.New("send backlog full")
)

// streamConn is the slice of *websocket.Conn the emitter writes through.
type streamConn interface {
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// wsEmitter adapts a websocket connection to stream.Emitter. All writes go
// through a buffered channel drained by a single writer goroutine, so the
// broadcast loop and keepalive pings never write concurrently. Send never
// blocks: a consumer that cannot drain its backlog is closed, so one stalled
// socket cannot hold up a broadcast pass for everyone else.
type wsEmitter struct {
	conn streamConn
	send chan stream.Event
	done chan struct{}
	once sync.Once
}

func newWSEmitter(conn *websocket.Conn) *wsEmitter {
	return newEmitter(conn)
}

func newEmitter(conn streamConn) *wsEmitter {
	e := &wsEmitter{
		conn: conn,
		send: make(chan stream.Event, 16),
		done: make(chan struct{}),
	}
	go e.writePump()
	return e
}

func (e *wsEmitter) Send(ev stream.Event) error {
	select {
	case <-e.done:
		return errStreamClosed
	default:
	}
	select {
	case e.send <- ev:
		return nil
	case <-e.done:
		return errStreamClosed
	default:
		_ = e.Close()
		return errSendBacklog
	}
}

func (e *wsEmitter) Close() error {
	e.once.Do(func() { close(e.done) })
	return e.conn.Close()
}

func (e *wsEmitter) writePump() {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case ev := <-e.send:
			_ = e.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := e.conn.WriteJSON(ev); err != nil {
				_ = e.Close()
				return
			}
		case <-ping.C:
			_ = e.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := e.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = e.Close()
				return
			}
		case <-e.done:
			return
		}
	}
}
