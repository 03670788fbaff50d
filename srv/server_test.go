package srv

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"shiritori.exe.dev/config"
	"shiritori.exe.dev/game"
	"shiritori.exe.dev/wordbank"
)

func testConfig(t *testing.T) config.Config {
	return config.Config{
		DBPath:           filepath.Join(t.TempDir(), "test_server.sqlite3"),
		TurnBudget:       1000,
		TimeUnit:         5 * time.Millisecond,
		Language:         "ja",
		LogFormat:        "text",
		TableIdleTimeout: time.Minute,
		CleanupInterval:  time.Minute,
	}
}

func newTestServer(t *testing.T, cfg config.Config) (*Server, *httptest.Server) {
	t.Helper()
	server, err := New(cfg, wordbank.Default(), discardLogger())
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	t.Cleanup(func() { server.Close() })
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return server, ts
}

func dial(t *testing.T, ts *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %v: %v", msg["type"], err)
	}
}

// readUntil reads messages until one of type typ arrives, skipping others.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %s: %v", typ, err)
		}
		if msg["type"] == typ {
			return msg
		}
	}
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestServerSetup(t *testing.T) {
	server, _ := newTestServer(t, testConfig(t))
	if server.Tables == nil {
		t.Fatal("expected Tables to be initialized")
	}
	if _, ok := server.Results.(*SQLResults); !ok {
		t.Errorf("results = %T, want *SQLResults", server.Results)
	}

	cfg := testConfig(t)
	cfg.Results = config.ResultsMemory
	memServer, _ := newTestServer(t, cfg)
	if _, ok := memServer.Results.(*MemoryResults); !ok {
		t.Errorf("results = %T, want *MemoryResults", memServer.Results)
	}
	if memServer.DB != nil {
		t.Error("memory results should not open the database")
	}
}

func TestHTTPRoutes(t *testing.T) {
	_, ts := newTestServer(t, testConfig(t))

	var health map[string]any
	if code := getJSON(t, ts.URL+"/healthz", &health); code != http.StatusOK || health["status"] != "ok" {
		t.Errorf("healthz = %d %v", code, health)
	}
	if code := getJSON(t, ts.URL+"/api/results?limit=abc", nil); code != http.StatusBadRequest {
		t.Errorf("bad limit = %d", code)
	}
	if code := getJSON(t, ts.URL+"/api/results/missing", nil); code != http.StatusNotFound {
		t.Errorf("missing result = %d", code)
	}
	var results struct {
		Results []game.GameResult `json:"results"`
	}
	if code := getJSON(t, ts.URL+"/api/results", &results); code != http.StatusOK || len(results.Results) != 0 {
		t.Errorf("empty results = %d %+v", code, results)
	}
}

func TestWSHumanVsHuman(t *testing.T) {
	_, ts := newTestServer(t, testConfig(t))
	conn := dial(t, ts, "?lang=en")

	state := readUntil(t, conn, "session_state")
	if state["language"] != "en" {
		t.Errorf("language = %v", state["language"])
	}

	send(t, conn, map[string]any{"type": "start", "mode": "human-vs-human", "names": []string{"Alice"}})
	if msg := readUntil(t, conn, "error"); msg["code"] != "incomplete_setup" || msg["message"] != "Please enter player names" {
		t.Errorf("start error = %v", msg)
	}

	send(t, conn, map[string]any{"type": "start", "mode": "human-vs-human", "names": []string{"Alice", "Bob"}})
	state = readUntil(t, conn, "session_state")
	session := state["session"].(map[string]any)
	if session["phase"] != "playing" || session["currentTurn"] != "Alice" {
		t.Fatalf("session = %v", session)
	}

	send(t, conn, map[string]any{"type": "answer", "word": "しりとり"})
	if msg := readUntil(t, conn, "word_accepted"); msg["word"] != "しりとり" || msg["player"] != "Alice" {
		t.Errorf("accepted = %v", msg)
	}

	send(t, conn, map[string]any{"type": "answer", "word": "apple"})
	rejected := readUntil(t, conn, "answer_rejected")
	if rejected["code"] != "invalid_character_set" || rejected["message"] != "Only Hiragana and Katakana characters are allowed" {
		t.Errorf("rejected = %v", rejected)
	}

	send(t, conn, map[string]any{"type": "answer", "word": "いぬ"})
	if msg := readUntil(t, conn, "answer_rejected"); msg["code"] != "chain_mismatch" {
		t.Errorf("rejected = %v", msg)
	}

	for _, w := range []string{"りんご", "ごりら", "らいおん"} {
		send(t, conn, map[string]any{"type": "answer", "word": w})
		if msg := readUntil(t, conn, "word_accepted"); msg["word"] != w {
			t.Fatalf("accepted = %v, want %s", msg, w)
		}
	}
	over := readUntil(t, conn, "game_over")
	result := over["result"].(map[string]any)
	if result["winner"] != "Alice" || result["loser"] != "Bob" || result["reason"] != "terminal_word" {
		t.Errorf("result = %v", result)
	}
	if result["totalWords"] != float64(4) {
		t.Errorf("total words = %v", result["totalWords"])
	}

	var list struct {
		Results []game.GameResult `json:"results"`
	}
	getJSON(t, ts.URL+"/api/results", &list)
	if len(list.Results) != 1 || list.Results[0].Winner != "Alice" {
		t.Fatalf("results = %+v", list.Results)
	}
	var one game.GameResult
	if code := getJSON(t, ts.URL+"/api/results/"+list.Results[0].ID, &one); code != http.StatusOK {
		t.Fatalf("get result = %d", code)
	}
	if len(one.History) != 4 || one.WordCounts[0] != (game.ParticipantCount{Name: "Alice", Words: 2}) {
		t.Errorf("result = %+v", one)
	}

	var tables struct {
		Tables []TableInfo `json:"tables"`
	}
	getJSON(t, ts.URL+"/api/tables", &tables)
	if len(tables.Tables) != 1 || tables.Tables[0].Phase != "game_over" {
		t.Errorf("tables = %+v", tables.Tables)
	}

	send(t, conn, map[string]any{"type": "play_again"})
	state = readUntil(t, conn, "session_state")
	session = state["session"].(map[string]any)
	if session["phase"] != "playing" || len(session["usedWords"].([]any)) != 0 {
		t.Errorf("play again = %v", session)
	}

	send(t, conn, map[string]any{"type": "reset"})
	state = readUntil(t, conn, "session_state")
	if state["session"].(map[string]any)["phase"] != "setup" {
		t.Errorf("reset = %v", state)
	}

}

func TestWSHumanVsComputer(t *testing.T) {
	_, ts := newTestServer(t, testConfig(t))
	conn := dial(t, ts, "")
	readUntil(t, conn, "session_state")

	send(t, conn, map[string]any{"type": "start", "mode": "human-vs-computer", "names": []string{"Alice"}, "difficulty": "expert"})
	state := readUntil(t, conn, "session_state")
	participants := state["session"].(map[string]any)["participants"].([]any)
	if participants[1].(map[string]any)["name"] != "コンピューター" {
		t.Errorf("participants = %v", participants)
	}

	send(t, conn, map[string]any{"type": "answer", "word": "さくら"})
	readUntil(t, conn, "word_accepted")
	if msg := readUntil(t, conn, "opponent_thinking"); msg["message"] != "コンピューターが考え中..." {
		t.Errorf("thinking = %v", msg)
	}
	reply := readUntil(t, conn, "word_accepted")
	if reply["seat"] != float64(1) {
		t.Fatalf("reply = %v", reply)
	}
	session := reply["session"].(map[string]any)
	if session["currentTurn"] != "Alice" || session["running"] != true {
		t.Errorf("after reply = %v", session)
	}
}

func TestWSTimeUp(t *testing.T) {
	cfg := testConfig(t)
	cfg.TurnBudget = 2
	cfg.TimeUnit = 20 * time.Millisecond
	_, ts := newTestServer(t, cfg)
	conn := dial(t, ts, "?lang=en")
	readUntil(t, conn, "session_state")

	send(t, conn, map[string]any{"type": "start", "mode": "human-vs-human", "names": []string{"Alice", "Bob"}})
	if tick := readUntil(t, conn, "tick"); tick["timeLeft"] != float64(1) {
		t.Errorf("tick = %v", tick)
	}
	over := readUntil(t, conn, "game_over")
	result := over["result"].(map[string]any)
	if result["reason"] != "time_up" || result["winner"] != "Bob" {
		t.Errorf("result = %v", result)
	}
	if over["message"] != "Alice's time is up! Bob wins!" {
		t.Errorf("message = %v", over["message"])
	}
}

func TestWSPingAndUnknown(t *testing.T) {
	_, ts := newTestServer(t, testConfig(t))
	conn := dial(t, ts, "")
	readUntil(t, conn, "session_state")

	send(t, conn, map[string]any{"type": "ping"})
	readUntil(t, conn, "pong")

	send(t, conn, map[string]any{"type": "dance"})
	if msg := readUntil(t, conn, "error"); msg["code"] != "unknown_message" {
		t.Errorf("error = %v", msg)
	}
}

func TestWSDisconnectClosesTable(t *testing.T) {
	server, ts := newTestServer(t, testConfig(t))
	conn := dial(t, ts, "")
	readUntil(t, conn, "session_state")
	if server.Tables.Len() != 1 {
		t.Fatalf("tables = %d", server.Tables.Len())
	}
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for server.Tables.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if n := server.Tables.Len(); n != 0 {
		t.Errorf("tables after disconnect = %d", n)
	}
}

func TestMemoryResults(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryResults()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		m.Save(ctx, game.GameResult{ID: id, EndedAt: base.Add(time.Duration(i) * time.Minute)})
	}
	m.Save(ctx, game.GameResult{ID: "d", EndedAt: base.Add(2 * time.Minute)})

	list, _ := m.List(ctx, 3)
	ids := []string{list[0].ID, list[1].ID, list[2].ID}
	if len(list) != 3 || ids[0] != "d" || ids[1] != "c" || ids[2] != "b" {
		t.Errorf("order = %v", ids)
	}
	if _, err := m.Get(ctx, "zzz"); !errors.Is(err, ErrResultNotFound) {
		t.Errorf("Get missing = %v", err)
	}
	if r, err := m.Get(ctx, "a"); err != nil || r.ID != "a" {
		t.Errorf("Get a = %+v, %v", r, err)
	}
}

func TestSQLResultsRoundTrip(t *testing.T) {
	ctx := context.Background()
	server, _ := newTestServer(t, testConfig(t))
	store := server.Results

	in := game.GameResult{
		ID:         "r1",
		SessionID:  "s1",
		Mode:       game.HumanVsComputer,
		Difficulty: "hard",
		Winner:     "Alice",
		Loser:      "Computer",
		Reason:     game.ReasonNoLegalMove,
		TotalWords: 1,
		WordCounts: []game.ParticipantCount{{Name: "Alice", Words: 1}, {Name: "Computer", Words: 0}},
		History:    []game.WordEntry{{Word: "ねこ", Player: "Alice", Seat: 0, Time: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)}},
		EndedAt:    time.Date(2026, 5, 1, 0, 1, 0, 0, time.UTC),
	}
	if err := store.Save(ctx, in); err != nil {
		t.Fatal(err)
	}
	out, err := store.Get(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if out.Winner != in.Winner || out.Reason != in.Reason || out.Difficulty != in.Difficulty || !out.EndedAt.Equal(in.EndedAt) {
		t.Errorf("round trip = %+v", out)
	}
	if len(out.History) != 1 || out.History[0].Word != "ねこ" || len(out.WordCounts) != 2 {
		t.Errorf("round trip history = %+v counts = %+v", out.History, out.WordCounts)
	}
	if _, err := store.Get(ctx, "nope"); !errors.Is(err, ErrResultNotFound) {
		t.Errorf("Get missing = %v", err)
	}
}
