package capabilities

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/applyflow/applyflow/pkg/backend"
)

func TestBuildersProduceNamedCapabilities(t *testing.T) {
	eng := &scriptedEngine{answer: "unused"}
	apps := backend.NewApplicationsClient("http://127.0.0.1:0")
	resumes := backend.NewResumesClient("http://127.0.0.1:0")

	cases := []struct {
		name  string
		build func() (*Capability, error)
	}{
		{"job_analytics_assistant", func() (*Capability, error) { return NewJobAnalytics(eng, apps) }},
		{"application_management_assistant", func() (*Capability, error) { return NewApplicationManagement(eng, apps) }},
		{"resume_assistant", func() (*Capability, error) { return NewResume(eng, resumes) }},
	}

	for _, tc := range cases {
		cap_, err := tc.build()
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if cap_.Name != tc.name {
			t.Errorf("expected name %q, got %q", tc.name, cap_.Name)
		}
		def, err := cap_.AsTool()
		if err != nil {
			t.Fatalf("%s: AsTool: %v", tc.name, err)
		}
		if def.Name != tc.name {
			t.Errorf("expected tool name %q, got %q", tc.name, def.Name)
		}
	}
}

func TestManagementCapabilityCreatesApplicationThroughBackend(t *testing.T) {
	var created backend.Application
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/applications" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&created); err != nil {
			t.Fatal(err)
		}
		created.ID = "app-1"
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(created)
	}))
	defer srv.Close()

	eng := &scriptedEngine{
		answer:   "created",
		callName: "create_application",
		callArgs: map[string]any{
			"user_id":   "user-1",
			"company":   "Acme",
			"job_title": "Engineer",
		},
	}
	cap_, err := NewApplicationManagement(eng, backend.NewApplicationsClient(srv.URL))
	if err != nil {
		t.Fatal(err)
	}

	answer := cap_.Handle(context.Background(), "log an application at Acme")
	if answer != "created" {
		t.Errorf("unexpected answer %q", answer)
	}
	if created.UserID != "user-1" || created.Company != "Acme" {
		t.Errorf("backend did not receive the expected record: %+v", created)
	}
}
