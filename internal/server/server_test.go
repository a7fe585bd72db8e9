package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"weekplan/internal/config"
	"weekplan/internal/db"
	"weekplan/internal/engine"
	"weekplan/internal/migrate"
)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, config.Default())
	e.Now = func() time.Time { return time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC) }
	handler, err := New(Config{Engine: e, BasePath: "/v0"})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor-Id", "tester")
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	data, err := io.ReadAll(res.Body)
	res.Body.Close()
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

// errorCode pulls the code out of the error envelope.
func errorCode(t *testing.T, data []byte) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("decode error envelope: %v (%s)", err, data)
	}
	return envelope.Error.Code
}

func TestWeekLifecycle(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/weeks", map[string]any{"id": "2026-02"})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create week: %d %s", res.StatusCode, data)
	}
	var created struct {
		ID        string `json:"id"`
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
	}
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.StartDate != "2026-01-05" || created.EndDate != "2026-01-11" {
		t.Fatalf("wrong dates: %+v", created)
	}

	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/weeks", map[string]any{"id": "2026-02"})
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate week should conflict: %d %s", res.StatusCode, data)
	}
	if code := errorCode(t, data); code != "week_exists" {
		t.Fatalf("expected week_exists, got %q", code)
	}

	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/weeks", map[string]any{"id": "2026-54"})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid id should be 400: %d %s", res.StatusCode, data)
	}
	if code := errorCode(t, data); code != "invalid_week_id" {
		t.Fatalf("expected invalid_week_id, got %q", code)
	}

	res, _ = doJSON(t, srv.Client(), http.MethodDelete, srv.URL+"/v0/weeks/2026-02", nil)
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("delete week: %d", res.StatusCode)
	}
	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/weeks/2026-02", nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("deleted week should be 404: %d", res.StatusCode)
	}
}

func TestRolloverOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/weeks", map[string]any{"id": "2026-01"})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create week: %d %s", res.StatusCode, data)
	}
	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/tasks", map[string]any{
		"week_id": "2026-01", "title": "unfinished",
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create task: %d %s", res.StatusCode, data)
	}
	var task struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &task); err != nil {
		t.Fatalf("decode task: %v", err)
	}
	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/backlog", map[string]any{
		"title": "someday", "priority": 1,
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create backlog item: %d %s", res.StatusCode, data)
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/rollover/plan?previous_week_id=2026-01", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("plan: %d %s", res.StatusCode, data)
	}
	var plan struct {
		IncompleteTasks []struct {
			ID       string `json:"id"`
			Selected bool   `json:"selected"`
		} `json:"incomplete_tasks"`
		BacklogItems []struct {
			Selected bool `json:"selected"`
		} `json:"backlog_items"`
	}
	if err := json.Unmarshal(data, &plan); err != nil {
		t.Fatalf("decode plan: %v", err)
	}
	if len(plan.IncompleteTasks) != 1 || !plan.IncompleteTasks[0].Selected {
		t.Fatalf("incomplete candidate missing or unselected: %+v", plan.IncompleteTasks)
	}
	if len(plan.BacklogItems) != 1 || plan.BacklogItems[0].Selected {
		t.Fatalf("backlog candidate wrong: %+v", plan.BacklogItems)
	}

	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/weeks/generate", map[string]any{
		"week_id":  "2026-02",
		"task_ids": []string{plan.IncompleteTasks[0].ID},
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("generate: %d %s", res.StatusCode, data)
	}
	var generated struct {
		TotalTasks int `json:"total_tasks"`
	}
	if err := json.Unmarshal(data, &generated); err != nil {
		t.Fatalf("decode week: %v", err)
	}
	if generated.TotalTasks != 1 {
		t.Fatalf("expected 1 task in generated week, got %d", generated.TotalTasks)
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/weeks/2026-02/tasks", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list tasks: %d %s", res.StatusCode, data)
	}
	var tasks []struct {
		Title             string  `json:"title"`
		StalenessCount    int     `json:"staleness_count"`
		PreviousVersionID *string `json:"previous_version_id"`
	}
	if err := json.Unmarshal(data, &tasks); err != nil {
		t.Fatalf("decode tasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].StalenessCount != 1 || tasks[0].PreviousVersionID == nil {
		t.Fatalf("carried task wrong: %+v", tasks)
	}
}

func TestTaskMutationsResolvePathID(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	if res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/weeks", map[string]any{"id": "2026-02"}); res.StatusCode != http.StatusCreated {
		t.Fatalf("create week: %d %s", res.StatusCode, data)
	}
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/tasks", map[string]any{
		"week_id": "2026-02", "title": "ship it",
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create task: %d %s", res.StatusCode, data)
	}
	var task struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &task); err != nil {
		t.Fatalf("decode task: %v", err)
	}

	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/tasks/"+task.ID+"/toggle", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("toggle: %d %s", res.StatusCode, data)
	}
	var toggled struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(data, &toggled); err != nil {
		t.Fatalf("decode toggled: %v", err)
	}
	if toggled.Status != "completed" {
		t.Fatalf("expected completed after toggle, got %q", toggled.Status)
	}

	res, data = doJSON(t, srv.Client(), http.MethodPatch, srv.URL+"/v0/tasks/"+task.ID, map[string]any{
		"title": "ship it already", "status": "pending",
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("patch: %d %s", res.StatusCode, data)
	}
	var patched struct {
		Title  string `json:"title"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(data, &patched); err != nil {
		t.Fatalf("decode patched: %v", err)
	}
	if patched.Title != "ship it already" || patched.Status != "pending" {
		t.Fatalf("patch not applied: %+v", patched)
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/weeks/2026-02/stats", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("stats: %d %s", res.StatusCode, data)
	}
	var stats WeekStatsResponse
	if err := json.Unmarshal(data, &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.CompletedTasks != 0 {
		t.Fatalf("stats not recomputed after status patch: %+v", stats)
	}

	res, _ = doJSON(t, srv.Client(), http.MethodDelete, srv.URL+"/v0/tasks/"+task.ID, nil)
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: %d", res.StatusCode)
	}
	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/tasks/"+task.ID, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("deleted task should be 404: %d %s", res.StatusCode, data)
	}
}

func TestWeekStatsAndScore(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	if res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/weeks", map[string]any{"id": "2026-02"}); res.StatusCode != http.StatusCreated {
		t.Fatalf("create week: %d %s", res.StatusCode, data)
	}
	var ids []string
	for _, title := range []string{"a", "b", "c", "d"} {
		res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/tasks", map[string]any{
			"week_id": "2026-02", "title": title,
		})
		if res.StatusCode != http.StatusCreated {
			t.Fatalf("create task: %d %s", res.StatusCode, data)
		}
		var task struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(data, &task); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, task.ID)
	}
	for _, id := range ids[:3] {
		if res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/tasks/"+id+"/toggle", nil); res.StatusCode != http.StatusOK {
			t.Fatalf("toggle: %d %s", res.StatusCode, data)
		}
	}

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/weeks/2026-02/stats", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("stats: %d %s", res.StatusCode, data)
	}
	var stats WeekStatsResponse
	if err := json.Unmarshal(data, &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.TotalTasks != 4 || stats.CompletedTasks != 3 {
		t.Fatalf("wrong counts: %+v", stats)
	}
	if stats.Percentage != 75 || stats.Score != "green" {
		t.Fatalf("wrong score: %+v", stats)
	}
}
