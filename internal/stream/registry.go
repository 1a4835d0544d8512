package stream

import (
	"log"
	"sync"
)

// Emitter is one open outbound stream to a client. Send returns an error
// when the underlying transport can no longer deliver; Close releases the
// stream and unblocks its writer.
type Emitter interface {
	Send(Event) error
	Close() error
}

// Conn ties an emitter to the user and quiz it serves.
type Conn struct {
	QuizID   int64
	Username string
	PIN      int
	emitter  Emitter
}

// Send forwards an event to the underlying stream.
func (c *Conn) Send(ev Event) error {
	return c.emitter.Send(ev)
}

// Registry tracks every active client stream, keyed by username. It never
// errors on absent entries; callers decide whether absence matters.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]*Conn
}

func NewRegistry() *Registry {
	return &Registry{byUser: make(map[string]*Conn)}
}

// Register stores a connection for username. A prior connection for the
// same username is superseded: its emitter is closed and it receives no
// further broadcasts.
func (r *Registry) Register(quizID int64, username string, pin int, emitter Emitter) *Conn {
	conn := &Conn{QuizID: quizID, Username: username, PIN: pin, emitter: emitter}

	r.mu.Lock()
	prev, existed := r.byUser[username]
	r.byUser[username] = conn
	r.mu.Unlock()

	if existed {
		log.Printf("superseding connection for %s", username)
		_ = prev.emitter.Close()
	}
	return conn
}

// FindByQuizID returns a snapshot of the connections registered for a quiz.
// The slice is stable for the duration of one broadcast pass even if joins
// and leaves happen concurrently.
func (r *Registry) FindByQuizID(quizID int64) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*Conn, 0, len(r.byUser))
	for _, conn := range r.byUser {
		if conn.QuizID == quizID {
			conns = append(conns, conn)
		}
	}
	return conns
}

// UsernameFor reports the username a connection is registered under. A
// superseded or removed handle yields false; broadcasters skip it instead
// of failing the whole pass.
func (r *Registry) UsernameFor(conn *Conn) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	current, ok := r.byUser[conn.Username]
	if !ok || current != conn {
		return "", false
	}
	return conn.Username, true
}

// Remove drops conn only if it is still the registered connection for
// its username. A superseded handle is left alone, so a dying socket's
// teardown can never take out the registration that replaced it.
func (r *Registry) Remove(conn *Conn) {
	r.mu.Lock()
	current, ok := r.byUser[conn.Username]
	if !ok || current != conn {
		r.mu.Unlock()
		return
	}
	delete(r.byUser, conn.Username)
	r.mu.Unlock()

	_ = conn.emitter.Close()
}

// RemoveByUsername drops the connection for username. Idempotent; safe to
// call from stream completion and timeout paths.
func (r *Registry) RemoveByUsername(username string) {
	r.mu.Lock()
	conn, ok := r.byUser[username]
	if ok {
		delete(r.byUser, username)
	}
	r.mu.Unlock()

	if ok {
		_ = conn.emitter.Close()
	}
}

// ClearByQuizID removes and closes every connection for a quiz.
func (r *Registry) ClearByQuizID(quizID int64) {
	r.mu.Lock()
	var cleared []*Conn
	for username, conn := range r.byUser {
		if conn.QuizID == quizID {
			cleared = append(cleared, conn)
			delete(r.byUser, username)
		}
	}
	r.mu.Unlock()

	for _, conn := range cleared {
		_ = conn.emitter.Close()
	}
}
