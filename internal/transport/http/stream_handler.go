package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/stream"
)

// StreamHandler exposes the live-session surface: websocket host/join
// streams plus the thin answer/stop/snapshot endpoints.
type StreamHandler struct {
	service     *app.SessionService
	registry    *stream.Registry
	upgrader    websocket.Upgrader
	idleTimeout time.Duration
}

func NewStreamHandler(service *app.SessionService, registry *stream.Registry, idleTimeout time.Duration) *StreamHandler {
	if idleTimeout <= 0 {
		idleTimeout = 5 * time.Minute
	}
	return &StreamHandler{
		service:  service,
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		idleTimeout: idleTimeout,
	}
}

// Register wires the handler's routes into mux.
func (h *StreamHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/host", h.ServeHost)
	mux.HandleFunc("GET /ws/join", h.ServeJoin)
	mux.HandleFunc("POST /api/quiz/{quizId}/answer", h.SubmitAnswer)
	mux.HandleFunc("POST /api/quiz/{quizId}/stop", h.StopSession)
	mux.HandleFunc("GET /api/quiz/{quizId}", h.GetSnapshot)
}

// ServeHost creates a session for a quiz and upgrades the request into the
// admin's stream. The joined event on that stream carries the issued PIN.
func (h *StreamHandler) ServeHost(w http.ResponseWriter, r *http.Request) {
	quizID, err := strconv.ParseInt(r.URL.Query().Get("quizId"), 10, 64)
	if err != nil || quizID == 0 {
		http.Error(w, "missing or invalid quizId", http.StatusBadRequest)
		return
	}
	username := r.URL.Query().Get("username")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}

	emitter := newWSEmitter(conn)
	_, sc, err := h.service.Create(r.Context(), quizID, username, emitter)
	if err != nil {
		log.Printf("create session for quiz %d failed: %v", quizID, err)
		_ = emitter.Send(errorEvent(err))
		_ = emitter.Close()
		return
	}

	h.readLoop(conn, sc)
}

// ServeJoin upgrades a participant's PIN-gated join into its stream.
func (h *StreamHandler) ServeJoin(w http.ResponseWriter, r *http.Request) {
	quizID, err := strconv.ParseInt(r.URL.Query().Get("quizId"), 10, 64)
	if err != nil || quizID == 0 {
		http.Error(w, "missing or invalid quizId", http.StatusBadRequest)
		return
	}
	username := r.URL.Query().Get("username")
	pin, err := strconv.Atoi(r.URL.Query().Get("pin"))
	if username == "" || err != nil || pin == 0 {
		http.Error(w, "missing username or pin", http.StatusBadRequest)
		return
	}

	// Validate before upgrading so a bad PIN gets a plain HTTP status
	// instead of a dead socket.
	session, ok := h.service.Session(quizID)
	if !ok || session.PIN != pin {
		http.Error(w, "invalid pin", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}

	emitter := newWSEmitter(conn)
	sc, err := h.service.Join(r.Context(), quizID, username, pin, emitter)
	if err != nil {
		log.Printf("join quiz %d as %s failed: %v", quizID, username, err)
		_ = emitter.Send(errorEvent(err))
		_ = emitter.Close()
		return
	}

	h.readLoop(conn, sc)
}

// readLoop holds the socket open and enforces the idle timeout: any read
// activity or pong resets the deadline, and expiry or close removes the
// connection from the registry. Removal targets the exact handle, so a
// socket that was superseded by a rejoin cannot deregister its successor
// on the way out.
func (h *StreamHandler) readLoop(conn *websocket.Conn, sc *stream.Conn) {
	defer h.registry.Remove(sc)

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(h.idleTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.idleTimeout))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			log.Printf("stream for %s closed: %v", sc.Username, err)
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(h.idleTimeout))
	}
}

// SubmitAnswer validates a choice and credits the score ledger when it is
// correct.
func (h *StreamHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	quizID, err := strconv.ParseInt(r.PathValue("quizId"), 10, 64)
	if err != nil {
		http.Error(w, "invalid quizId", http.StatusBadRequest)
		return
	}
	username := r.FormValue("username")
	questionID, _ := strconv.ParseInt(r.FormValue("questionId"), 10, 64)
	choice, _ := strconv.Atoi(r.FormValue("answer"))

	correct, err := h.service.SubmitAnswer(r.Context(), quizID, username, questionID, choice)
	if errors.Is(err, domain.ErrAmbiguousAnswer) {
		http.Error(w, "question is unanswerable", http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if correct {
		_, _ = w.Write([]byte("Correct!"))
		return
	}
	_, _ = w.Write([]byte("Incorrect"))
}

// StopSession tears down the live session for a quiz.
func (h *StreamHandler) StopSession(w http.ResponseWriter, r *http.Request) {
	quizID, err := strconv.ParseInt(r.PathValue("quizId"), 10, 64)
	if err != nil {
		http.Error(w, "invalid quizId", http.StatusBadRequest)
		return
	}
	h.service.Stop(quizID)
	w.WriteHeader(http.StatusNoContent)
}

// GetSnapshot serves the display projection of a quiz definition.
func (h *StreamHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	quizID, err := strconv.ParseInt(r.PathValue("quizId"), 10, 64)
	if err != nil {
		http.Error(w, "invalid quizId", http.StatusBadRequest)
		return
	}
	view, err := h.service.Snapshot(r.Context(), quizID)
	if app.IsNotFound(err) {
		http.Error(w, "quiz not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(view)
}

func errorEvent(err error) stream.Event {
	return stream.Event{Name: "error", Data: map[string]string{"message": err.Error()}}
}
