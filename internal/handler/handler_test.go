package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/ngochuy/onthisu/internal/model"
	"github.com/ngochuy/onthisu/internal/store"
)

type stubSource struct {
	rows map[model.Category][][]string
	err  error
}

func (s *stubSource) Rows(_ context.Context, cat model.Category) ([][]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.rows[cat], nil
}

func newTestServer(t *testing.T, src *stubSource) *httptest.Server {
	t.Helper()
	st, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	h := New(st, src)
	h.newRand = func() *rand.Rand { return rand.New(rand.NewPCG(1, 1)) }

	r := chi.NewRouter()
	h.Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func fullSource() *stubSource {
	rows := make(map[model.Category][][]string)
	for _, cat := range model.Categories() {
		n := model.Quota(cat) + 3
		for i := 0; i < n; i++ {
			if cat == model.CategoryTrueFalse {
				rows[cat] = append(rows[cat], []string{"tf", "sA", model.TruthTrue, "sB", model.TruthFalse, "sC", model.TruthTrue, "sD", model.TruthFalse, "vì"})
			} else {
				rows[cat] = append(rows[cat], []string{"q", "a", "b", "c", "d", "a"})
			}
		}
	}
	return &stubSource{rows: rows}
}

func decodeBody(t *testing.T, resp *http.Response, into any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func TestGetQuestions(t *testing.T) {
	srv := newTestServer(t, fullSource())

	resp, err := http.Get(srv.URL + "/sheet/question")
	if err != nil {
		t.Fatalf("GET /sheet/question: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Code    string           `json:"code"`
		Message string           `json:"message"`
		Data    []model.Question `json:"data"`
	}
	decodeBody(t, resp, &body)

	if body.Code != "success" {
		t.Errorf("code = %q, want success", body.Code)
	}
	// Full quotas: 8 + 6 + 4 + 2.
	if len(body.Data) != 20 {
		t.Errorf("got %d questions, want 20", len(body.Data))
	}
	counts := make(map[model.Category]int)
	for _, q := range body.Data {
		counts[q.Type]++
	}
	for _, cat := range model.Categories() {
		if counts[cat] != model.Quota(cat) {
			t.Errorf("category %q: %d questions, want quota %d", cat, counts[cat], model.Quota(cat))
		}
	}
}

func TestGetQuestionsEmptySource(t *testing.T) {
	srv := newTestServer(t, &stubSource{rows: map[model.Category][][]string{}})

	resp, err := http.Get(srv.URL + "/sheet/question")
	if err != nil {
		t.Fatalf("GET /sheet/question: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var raw bytes.Buffer
	if _, err := raw.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	resp.Body.Close()
	// Clients iterate data unconditionally; it must be an array, never null.
	if strings.Contains(raw.String(), `"data":null`) {
		t.Fatalf("body = %s, data must serialize as []", raw.String())
	}

	var body struct {
		Code string           `json:"code"`
		Data []model.Question `json:"data"`
	}
	if err := json.Unmarshal(raw.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Code != "success" {
		t.Errorf("code = %q, want success", body.Code)
	}
	if body.Data == nil || len(body.Data) != 0 {
		t.Errorf("data = %#v, want empty array", body.Data)
	}
}

func TestGetQuestionsSourceFailure(t *testing.T) {
	srv := newTestServer(t, &stubSource{err: errors.New("spreadsheet unreachable")})

	resp, err := http.Get(srv.URL + "/sheet/question")
	if err != nil {
		t.Fatalf("GET /sheet/question: %v", err)
	}
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}

	var body struct {
		Code  string `json:"code"`
		Error string `json:"error"`
	}
	decodeBody(t, resp, &body)
	if body.Code != "error" {
		t.Errorf("code = %q, want error", body.Code)
	}
	if !strings.Contains(body.Error, "spreadsheet unreachable") {
		t.Errorf("error = %q, should carry the cause", body.Error)
	}
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func TestSubmitScore(t *testing.T) {
	srv := newTestServer(t, fullSource())

	payload := `{
		"sessionId": "sess_abc",
		"userId": "Lan",
		"score": 17,
		"total": 20,
		"startedAt": "2026-03-10T09:00:00Z",
		"finishedAt": "2026-03-10T09:12:00Z",
		"meta": {"details": [{"questionId": 0, "userAnswer": "a", "correct": true}]},
		"questions": [{"questionId": 0, "type": "Nhận biết", "question": "q", "userAnswer": "a", "correctAnswer": "a", "isCorrect": true}]
	}`
	resp := postJSON(t, srv.URL+"/score/submit", payload)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Code string       `json:"code"`
		Data model.Result `json:"data"`
	}
	decodeBody(t, resp, &body)
	if body.Code != "success" || body.Data.SessionID != "sess_abc" {
		t.Errorf("body = %+v", body)
	}
	if body.Data.CreatedAt.IsZero() {
		t.Error("stored result missing server-assigned createdAt")
	}

	// The result must come back through history, newest first.
	resp, err := http.Get(srv.URL + "/score/user/Lan")
	if err != nil {
		t.Fatalf("GET history: %v", err)
	}
	var hist struct {
		Code  string         `json:"code"`
		Count int            `json:"count"`
		Data  []model.Result `json:"data"`
	}
	decodeBody(t, resp, &hist)
	if hist.Count != 1 || len(hist.Data) != 1 {
		t.Fatalf("history count = %d, want 1", hist.Count)
	}
	if hist.Data[0].Meta.Details[0].UserAnswer != "a" {
		t.Errorf("meta detail lost in round trip: %+v", hist.Data[0].Meta)
	}
}

func TestSubmitValidation(t *testing.T) {
	tests := []struct {
		name       string
		payload    string
		wantStatus int
	}{
		{"missing sessionId", `{"userId":"Lan","score":5,"total":10}`, http.StatusBadRequest},
		{"missing score", `{"sessionId":"sess_1","userId":"Lan","total":10}`, http.StatusBadRequest},
		{"missing total", `{"sessionId":"sess_1","userId":"Lan","score":5}`, http.StatusBadRequest},
		{"zero score and total are valid", `{"sessionId":"sess_1","userId":"Lan","score":0,"total":0}`, http.StatusOK},
		{"malformed json", `{"sessionId":`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, fullSource())
			resp := postJSON(t, srv.URL+"/score/submit", tt.payload)
			defer resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestHistoryMissingUser(t *testing.T) {
	srv := newTestServer(t, fullSource())

	for _, path := range []string{"/score/user", "/score/user/"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("GET %s status = %d, want 400", path, resp.StatusCode)
		}
	}
}

func TestHistoryUnknownUser(t *testing.T) {
	srv := newTestServer(t, fullSource())

	resp, err := http.Get(srv.URL + "/score/user/nobody")
	if err != nil {
		t.Fatalf("GET history: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		Code  string         `json:"code"`
		Count int            `json:"count"`
		Data  []model.Result `json:"data"`
	}
	decodeBody(t, resp, &body)
	if body.Count != 0 || body.Data == nil {
		t.Errorf("expected empty data array, got %+v", body)
	}
}
