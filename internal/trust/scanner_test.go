package trust

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/depgate/internal/netguard"
	"github.com/ppiankov/depgate/internal/ratelimit"
)

func writeTestManifest(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "package.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestScanProjectRanksWorstFirst(t *testing.T) {
	stub := &registryStub{
		docs: map[string]map[string]any{
			"lodash":       healthyDoc("4.17.21", "4.17.17", "4.17.18", "4.17.19", "4.17.20", "4.17.21"),
			"event-stream": healthyDoc("3.3.6", "3.3.4", "3.3.5", "3.3.6", "4.0.0", "4.0.1"),
		},
		downloads: map[string]int64{"lodash": 4_000_000, "event-stream": 1_000_000},
	}
	path := writeTestManifest(t, `{
		"name": "demo",
		"dependencies": {"lodash": "^4.17.21", "event-stream": "3.3.6"}
	}`)

	s := NewScanner(newTestVerifier(t, stub, nil))
	report, err := s.ScanProject(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Findings) != 2 {
		t.Fatalf("expected 2 findings, got %d", len(report.Findings))
	}
	if report.Findings[0].Dependency.Name != "event-stream" {
		t.Errorf("worst finding should sort first, got %q", report.Findings[0].Dependency.Name)
	}
	if report.Unsafe() != 1 {
		t.Errorf("unsafe count = %d", report.Unsafe())
	}
	if len(report.Recommendations) == 0 {
		t.Fatal("expected a recommendation for the vulnerable package")
	}
	if want := "remove or replace event-stream@3.3.6"; len(report.Recommendations[0]) < len(want) || report.Recommendations[0][:len(want)] != want {
		t.Errorf("recommendation = %q", report.Recommendations[0])
	}
}

func TestScanProjectSurvivesOnePackageFailing(t *testing.T) {
	stub := &registryStub{
		docs:      map[string]map[string]any{"lodash": healthyDoc("4.17.21", "4.17.21")},
		downloads: map[string]int64{"lodash": 4_000_000},
	}
	path := writeTestManifest(t, `{
		"name": "demo",
		"dependencies": {"lodash": "^4.17.21", "ghost-pkg": "1.0.0"}
	}`)

	report, err := NewScanner(newTestVerifier(t, stub, nil)).ScanProject(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Findings) != 2 {
		t.Fatalf("expected 2 findings, got %d", len(report.Findings))
	}
	var failed *Finding
	for i := range report.Findings {
		if report.Findings[i].Dependency.Name == "ghost-pkg" {
			failed = &report.Findings[i]
		}
	}
	if failed == nil || failed.Err == nil {
		t.Fatal("ghost-pkg should carry a verification error")
	}
	if report.Unsafe() != 1 {
		t.Errorf("unsafe count = %d", report.Unsafe())
	}
}

func TestScanProjectMissingManifest(t *testing.T) {
	s := NewScanner(newTestVerifier(t, &registryStub{}, nil))
	if _, err := s.ScanProject(context.Background(), filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected error for missing manifest")
	}
}

func TestScanWaitsOutRateLimit(t *testing.T) {
	stub := &registryStub{
		docs: map[string]map[string]any{
			"express": healthyDoc("4.18.0", "4.18.0"),
			"lodash":  healthyDoc("4.17.21", "4.17.21"),
		},
		downloads: map[string]int64{"express": 2_000_000, "lodash": 4_000_000},
	}
	// One request per minute per host forces the second package into the
	// rate-limited path.
	limiter := ratelimit.New(ratelimit.Config{MaxRequests: 1, Window: time.Minute})
	client := netguard.New(netguard.Config{
		HTTPClient: &http.Client{Transport: rtFunc(stub.roundTrip)},
		BaseDelay:  time.Millisecond,
		MaxRetries: 1,
	}, nil, limiter, nil)

	s := NewScanner(NewVerifier(client, nil, nil, nil))
	var slept time.Duration
	s.sleep = func(ctx context.Context, d time.Duration) error {
		slept = d
		return nil
	}

	path := writeTestManifest(t, `{
		"name": "demo",
		"dependencies": {"express": "^4.18.0", "lodash": "^4.17.21"}
	}`)
	report, err := s.ScanProject(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if slept <= 0 {
		t.Error("scanner never waited out the quota")
	}
	if len(report.Findings) != 2 {
		t.Errorf("expected 2 findings, got %d", len(report.Findings))
	}
}

func TestPinnedVersion(t *testing.T) {
	cases := []struct {
		spec string
		want string
	}{
		{"^4.17.21", "4.17.21"},
		{"~1.2.3", "1.2.3"},
		{"1.2.3", "1.2.3"},
		{"=1.2.3", "1.2.3"},
		{">=1.0.0", ""},
		{"*", ""},
		{"latest", ""},
		{"1.x", ""},
	}
	for _, tc := range cases {
		if got := pinnedVersion(tc.spec); got != tc.want {
			t.Errorf("pinnedVersion(%q) = %q, want %q", tc.spec, got, tc.want)
		}
	}
}
