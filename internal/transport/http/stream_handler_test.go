package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/infra/memory"
	"live-quiz-service/internal/stream"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	registry := stream.NewRegistry()
	quizzes := memory.NewQuizRepository(memory.NewStaticQuizLoader(sampleQuizzes()), time.Minute)
	service := app.NewSessionService(memory.NewSessionStore(), quizzes, memory.NewScoreLedger(), registry, app.Timing{
		StartDelay:       100 * time.Millisecond,
		QuestionInterval: 200 * time.Millisecond,
	})
	handler := NewStreamHandler(service, registry, time.Minute)

	mux := http.NewServeMux()
	handler.Register(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestHostAndJoinFlow(t *testing.T) {
	server := newTestServer(t)

	host := dial(t, server, "/ws/host?quizId=1&username=host")
	defer host.Close()

	name, data := readNext(t, host, "joined")
	if name != "joined" {
		t.Fatalf("expected joined, got %s", name)
	}
	pin := int(data["pin"].(float64))
	if pin < 1000 || pin > 9999 {
		t.Fatalf("expected 4-digit pin in joined event, got %d", pin)
	}

	player := dial(t, server, "/ws/join?quizId=1&username=bob&pin="+strconv.Itoa(pin))
	defer player.Close()

	_, joined := readNext(t, player, "joined")
	if msg, _ := joined["message"].(string); !strings.Contains(msg, "bob") {
		t.Fatalf("expected join confirmation for bob, got %v", joined)
	}
	if _, hasPin := joined["pin"]; hasPin {
		t.Fatalf("participant joined payload must not expose the pin")
	}

	// The advance loop kicks in: admin gets the answer map, the player
	// gets ordinal choice numbers.
	_, adminQ := readNext(t, host, "question")
	if _, ok := adminQ["answers"].(map[string]any); !ok {
		t.Fatalf("expected answer map for admin, got %v", adminQ["answers"])
	}
	_, playerQ := readNext(t, player, "question")
	numbers, ok := playerQ["answers"].([]any)
	if !ok || len(numbers) != 3 {
		t.Fatalf("expected 3 ordinal choices for participant, got %v", playerQ["answers"])
	}

	// A correct submission scores.
	questionID := int64(playerQ["id"].(float64))
	resp, err := http.PostForm(server.URL+"/api/quiz/1/answer", url.Values{
		"username":   {"bob"},
		"questionId": {strconv.FormatInt(questionID, 10)},
		"answer":     {"2"},
	})
	if err != nil {
		t.Fatalf("post answer: %v", err)
	}
	body := readBody(t, resp)
	if body != "Correct!" {
		t.Fatalf("expected Correct!, got %q", body)
	}

	resp, err = http.PostForm(server.URL+"/api/quiz/1/answer", url.Values{
		"username":   {"bob"},
		"questionId": {strconv.FormatInt(questionID, 10)},
		"answer":     {"3"},
	})
	if err != nil {
		t.Fatalf("post answer: %v", err)
	}
	if body := readBody(t, resp); body != "Incorrect" {
		t.Fatalf("expected Incorrect, got %q", body)
	}
}

func TestJoinRejectsBadPIN(t *testing.T) {
	server := newTestServer(t)

	host := dial(t, server, "/ws/host?quizId=1&username=host")
	defer host.Close()
	readNext(t, host, "joined")

	wsURL := "ws" + server.URL[len("http"):] + "/ws/join?quizId=1&username=bob&pin=1"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatalf("expected dial to fail for bad pin")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad pin, got %+v", resp)
	}
}

func TestRejoinKeepsTheFreshStream(t *testing.T) {
	server := newTestServer(t)

	host := dial(t, server, "/ws/host?quizId=1&username=host")
	defer host.Close()
	_, data := readNext(t, host, "joined")
	pin := int(data["pin"].(float64))

	first := dial(t, server, "/ws/join?quizId=1&username=bob&pin="+strconv.Itoa(pin))
	defer first.Close()
	readNext(t, first, "joined")

	// bob reconnects; the fresh socket takes over the registration and
	// must be confirmed like any other join.
	second := dial(t, server, "/ws/join?quizId=1&username=bob&pin="+strconv.Itoa(pin))
	defer second.Close()
	readNext(t, second, "joined")

	// The superseded socket gets closed. Drain it until the close lands;
	// its read loop unwinding must not deregister the fresh connection.
	_ = first.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := first.ReadMessage(); err != nil {
			break
		}
	}

	// The fresh stream keeps receiving broadcasts.
	_, q := readNext(t, second, "question")
	if _, ok := q["answers"].([]any); !ok {
		t.Fatalf("expected question broadcast on the fresh stream, got %v", q)
	}
}

func TestHostRequiresQuizID(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/ws/host")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without quizId, got %d", resp.StatusCode)
	}
}

func TestStopEndsTheSession(t *testing.T) {
	server := newTestServer(t)

	host := dial(t, server, "/ws/host?quizId=1&username=host")
	defer host.Close()
	_, data := readNext(t, host, "joined")
	pin := int(data["pin"].(float64))

	player := dial(t, server, "/ws/join?quizId=1&username=bob&pin="+strconv.Itoa(pin))
	defer player.Close()
	readNext(t, player, "joined")

	req, _ := http.NewRequest(http.MethodPost, server.URL+"/api/quiz/1/stop", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	// The player's stream is closed; reads fail rather than delivering
	// another question.
	_ = player.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := player.ReadMessage(); err == nil {
		t.Fatalf("expected closed stream after stop")
	}
}

func TestSnapshotHidesAnswerKeys(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/quiz/1")
	if err != nil {
		t.Fatalf("get snapshot: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var view struct {
		Title     string `json:"title"`
		Questions []struct {
			Title   string            `json:"title"`
			Answers map[string]string `json:"answers"`
		} `json:"questions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(view.Questions) == 0 || len(view.Questions[0].Answers) == 0 {
		t.Fatalf("expected question projection, got %+v", view)
	}

	missing, err := http.Get(server.URL + "/api/quiz/999")
	if err != nil {
		t.Fatalf("get missing snapshot: %v", err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown quiz, got %d", missing.StatusCode)
	}
}

func dial(t *testing.T, server *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + server.URL[len("http"):] + path
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	return conn
}

func readNext(t *testing.T, conn *websocket.Conn, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Event string         `json:"event"`
		Data  map[string]any `json:"data"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Event != expect {
		t.Fatalf("expected event %s, got %s", expect, msg.Event)
	}
	return msg.Event, msg.Data
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(data)
}

func sampleQuizzes() map[int64]domain.Quiz {
	return map[int64]domain.Quiz{
		1: {
			ID:    1,
			Title: "Arithmetic",
			Questions: []domain.Question{
				{
					ID:    10,
					Title: "What is 2 + 2?",
					Answers: []domain.Answer{
						{No: 1, Content: "3"},
						{No: 2, Content: "4", Correct: true},
						{No: 3, Content: "5"},
					},
				},
			},
		},
	}
}
