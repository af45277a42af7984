package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dhakalaashish/pr-guidebook/internal/guidebook"
	"github.com/dhakalaashish/pr-guidebook/internal/logging"
	"github.com/gorilla/websocket"
)

type fakeService struct {
	prepared []guidebook.IssueRef
	implOpts guidebook.ImplementationOptions
	chosen   guidebook.PRChoice
	prNumber int
	err      error
}

func (f *fakeService) Prepare(ctx context.Context, ref guidebook.IssueRef) (guidebook.IssueContext, error) {
	f.prepared = append(f.prepared, ref)
	return guidebook.IssueContext{Title: "t"}, f.err
}

func (f *fakeService) GettingStarted(ctx context.Context, ref guidebook.IssueRef) (guidebook.Phase, error) {
	if f.err != nil {
		return nil, f.err
	}
	return guidebook.Phase{
		guidebook.StageClassify: {Stage: guidebook.StageClassify, Kind: guidebook.KindToken, Status: guidebook.StatusOK, Text: "feature"},
	}, nil
}

func (f *fakeService) Implementation(ctx context.Context, ref guidebook.IssueRef, opts guidebook.ImplementationOptions) (guidebook.Phase, error) {
	f.implOpts = opts
	return guidebook.Phase{
		guidebook.StageSteps: {Stage: guidebook.StageSteps, Kind: guidebook.KindList, Status: guidebook.StatusOK, Items: []string{"a", "b"}},
	}, f.err
}

func (f *fakeService) Review(ctx context.Context, ref guidebook.IssueRef, prNumber int) (guidebook.Phase, error) {
	f.prNumber = prNumber
	return guidebook.Phase{
		guidebook.StageTestPresence: {Stage: guidebook.StageTestPresence, Status: guidebook.StatusPlanNotSelected, Error: guidebook.ErrPlanNotSelected.Error()},
	}, f.err
}

func (f *fakeService) Choose(ctx context.Context, ref guidebook.IssueRef, choice guidebook.PRChoice) error {
	f.chosen = choice
	return f.err
}

const refBody = `"repo_author":"octo","repo_name":"widgets","issue_number":42`

func post(t *testing.T, h http.Handler, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("%s: response is not a JSON object: %q", path, w.Body.String())
	}
	return w, out
}

func newTestServer(svc Service) http.Handler {
	return NewServer(svc, nil, logging.Discard()).Handler()
}

func TestGenerateGuidebook(t *testing.T) {
	svc := &fakeService{}
	w, out := post(t, newTestServer(svc), "/api/generate_guidebook", `{"issueUrl":"https://github.com/octo/widgets/issues/42"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %v", w.Code, out)
	}
	if out["repo_author"] != "octo" || out["repo_name"] != "widgets" || out["issue_number"] != float64(42) {
		t.Fatalf("unexpected body: %v", out)
	}
	if len(svc.prepared) != 1 {
		t.Fatalf("expected one Prepare call")
	}

	w, out = post(t, newTestServer(svc), "/api/generate_guidebook", `{"issueUrl":"https://github.com/octo/widgets/pull/42"}`)
	if w.Code != http.StatusBadRequest || out["error"] == nil {
		t.Fatalf("expected 400 with error, got %d %v", w.Code, out)
	}
}

func TestGettingStartedGuide(t *testing.T) {
	w, out := post(t, newTestServer(&fakeService{}), "/api/getting_started_guide", "{"+refBody+"}")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %v", w.Code, out)
	}
	if out[guidebook.StageClassify] != "feature" {
		t.Fatalf("unexpected body: %v", out)
	}
}

func TestErrorsAreJSON(t *testing.T) {
	cases := []struct {
		name string
		svc  *fakeService
		body string
		code int
	}{
		{"malformed body", &fakeService{}, `{`, http.StatusBadRequest},
		{"missing ref", &fakeService{}, `{"repo_author":"octo"}`, http.StatusBadRequest},
		{"unknown issue", &fakeService{err: fmt.Errorf("issue context: %w", guidebook.ErrNotFound)}, "{" + refBody + "}", http.StatusNotFound},
		{"internal", &fakeService{err: fmt.Errorf("boom")}, "{" + refBody + "}", http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, out := post(t, newTestServer(tc.svc), "/api/getting_started_guide", tc.body)
			if w.Code != tc.code {
				t.Fatalf("status = %d, want %d", w.Code, tc.code)
			}
			if _, ok := out["error"].(string); !ok {
				t.Fatalf("expected error message, got %v", out)
			}
		})
	}
}

func TestImplementationGuide(t *testing.T) {
	svc := &fakeService{}
	w, out := post(t, newTestServer(svc), "/api/implementation_guide",
		"{"+refBody+`,"suggestion_level":5,"prTitle":"Theme switcher","prDescription":"Toggle"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %v", w.Code, out)
	}
	if svc.implOpts.Level != 5 || svc.implOpts.Choice == nil || svc.implOpts.Choice.Title != "Theme switcher" {
		t.Fatalf("unexpected options: %#v", svc.implOpts)
	}
	if items, ok := out[guidebook.StageSteps].([]any); !ok || len(items) != 2 {
		t.Fatalf("unexpected steps: %v", out)
	}

	post(t, newTestServer(svc), "/api/implementation_guide", "{"+refBody+"}")
	if svc.implOpts.Choice != nil {
		t.Fatalf("empty plan fields must not produce a choice")
	}
}

func TestChoosePlan(t *testing.T) {
	svc := &fakeService{}
	w, out := post(t, newTestServer(svc), "/api/choose_plan", "{"+refBody+`,"prTitle":"A","prDescription":"B"}`)
	if w.Code != http.StatusOK || out["status"] != "saved" {
		t.Fatalf("unexpected response %d %v", w.Code, out)
	}
	if svc.chosen != (guidebook.PRChoice{Title: "A", Description: "B"}) {
		t.Fatalf("unexpected choice %#v", svc.chosen)
	}
	w, _ = post(t, newTestServer(svc), "/api/choose_plan", "{"+refBody+"}")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestAutomatePRReview(t *testing.T) {
	svc := &fakeService{}
	w, out := post(t, newTestServer(svc), "/api/automate_PR_review", "{"+refBody+`,"pr_url":"https://github.com/octo/widgets/pull/7"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %v", w.Code, out)
	}
	if svc.prNumber != 7 {
		t.Fatalf("pr number = %d", svc.prNumber)
	}
	stage, ok := out[guidebook.StageTestPresence].(map[string]any)
	if !ok || stage["error"] != guidebook.ErrPlanNotSelected.Error() {
		t.Fatalf("unexpected body: %v", out)
	}

	for _, prURL := range []string{"not a pr", "https://github.com/other/widgets/pull/7"} {
		svc := &fakeService{}
		w, _ = post(t, newTestServer(svc), "/api/automate_PR_review", "{"+refBody+`,"pr_url":"`+prURL+`"}`)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", prURL, w.Code)
		}
		if svc.prNumber != 0 {
			t.Fatalf("%s: review should not run", prURL)
		}
	}
}

func TestEventsStream(t *testing.T) {
	hub := NewHub(logging.Discard())
	srv := httptest.NewServer(NewServer(&fakeService{}, hub, logging.Discard()).Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	ref := guidebook.IssueRef{Owner: "octo", Repo: "widgets", Number: 42}
	hub.Observe(guidebook.Event{Phase: guidebook.PhaseGettingStarted, Stage: guidebook.StageSteps, Status: guidebook.StatusOK, Issue: ref})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got guidebook.Event
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatal(err)
	}
	if got.Stage != guidebook.StageSteps || got.Issue != ref || got.Status != guidebook.StatusOK {
		t.Fatalf("unexpected event %#v", got)
	}
}
