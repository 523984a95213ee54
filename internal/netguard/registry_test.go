package netguard

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func TestFetchPackageMetadataSanitizesName(t *testing.T) {
	c, st := newStubClient(t, Config{}, func(*http.Request) (*http.Response, error) {
		return respond(200, `{"name":"lodash"}`)
	})
	if _, err := c.FetchPackageMetadata(context.Background(), "../../../etc/passwd"); err == nil {
		t.Error("traversal name should be rejected before any fetch")
	}
	if len(st.requests) != 0 {
		t.Errorf("expected zero requests for rejected name, got %d", len(st.requests))
	}

	if _, err := c.FetchPackageMetadata(context.Background(), "lodash"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := st.requests[0].URL.Path; got != "/lodash" {
		t.Errorf("unexpected path %q", got)
	}
}

func TestFetchScopedPackageEscapesSeparator(t *testing.T) {
	c, st := newStubClient(t, Config{}, func(*http.Request) (*http.Response, error) {
		return respond(200, `{"name":"@types/node"}`)
	})
	if _, err := c.FetchPackageMetadata(context.Background(), "@types/node"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := st.requests[0].URL.RawPath; got != "/@types%2fnode" {
		t.Errorf("expected escaped scope separator, got %q", got)
	}
}

func TestLastPublishDate(t *testing.T) {
	meta := map[string]any{
		"time": map[string]any{
			"created": "2015-01-01T00:00:00Z",
			"1.0.0":   "2015-02-01T00:00:00Z",
			"2.0.0":   "2021-06-15T12:00:00Z",
		},
	}
	got, err := LastPublishDate(meta)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2021, 6, 15, 12, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("LastPublishDate = %s, want %s", got, want)
	}
}

func TestLastPublishDateMissing(t *testing.T) {
	for _, meta := range []map[string]any{
		{},
		{"time": "not a map"},
		{"time": map[string]any{"created": "2015-01-01T00:00:00Z"}},
		{"time": map[string]any{"1.0.0": "garbage"}},
	} {
		if _, err := LastPublishDate(meta); err == nil {
			t.Errorf("expected error for %v", meta)
		}
	}
}

func TestProjectInfoDegradesToDefaults(t *testing.T) {
	info := ProjectInfo("mystery", map[string]any{})
	if info.Name != "mystery" {
		t.Errorf("name = %q", info.Name)
	}
	if info.Description != "" || info.License != "" || info.VersionCount != 0 {
		t.Errorf("expected zero-value projection, got %+v", info)
	}
}

func TestProjectInfoFullDocument(t *testing.T) {
	meta := map[string]any{
		"description": "Lodash modular utilities.",
		"license":     "MIT",
		"repository":  map[string]any{"url": "git+https://github.com/lodash/lodash.git"},
		"author":      map[string]any{"name": "John-David Dalton"},
		"dist-tags":   map[string]any{"latest": "4.17.21"},
		"versions": map[string]any{
			"4.17.20": map[string]any{},
			"4.17.21": map[string]any{},
		},
		"time": map[string]any{
			"created": "2012-04-23T16:37:11.912Z",
			"4.17.21": "2021-02-20T15:42:16.891Z",
		},
	}
	info := ProjectInfo("lodash", meta)
	if info.License != "MIT" || info.LatestVersion != "4.17.21" || info.VersionCount != 2 {
		t.Errorf("unexpected projection: %+v", info)
	}
	if info.Author != "John-David Dalton" {
		t.Errorf("author = %q", info.Author)
	}
	if len(info.PublishTimes) != 1 {
		t.Errorf("expected 1 publish time, got %d", len(info.PublishTimes))
	}
}

func TestFetchWeeklyDownloads(t *testing.T) {
	c, _ := newStubClient(t, Config{}, func(req *http.Request) (*http.Response, error) {
		if req.URL.Host != "api.npmjs.org" {
			t.Errorf("unexpected host %q", req.URL.Host)
		}
		return respond(200, `{"downloads":4823192,"package":"lodash"}`)
	})
	n, err := c.FetchWeeklyDownloads(context.Background(), "lodash")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 4823192 {
		t.Errorf("downloads = %d", n)
	}
}
