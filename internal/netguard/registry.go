package netguard

import (
	"context"
	"strings"
	"time"

	"github.com/ppiankov/depgate/internal/secerr"
)

// registryHost is the package registry the gateway talks to.
const registryHost = "registry.npmjs.org"

// downloadsHost serves download-count statistics.
const downloadsHost = "api.npmjs.org"

// PackageInfo is the best-effort projection of registry metadata. Absent
// fields degrade to zero values rather than failing the fetch.
type PackageInfo struct {
	Name          string
	Description   string
	License       string
	RepositoryURL string
	Author        string
	LatestVersion string
	VersionCount  int
	Versions      []string
	PublishTimes  map[string]time.Time
}

// FetchPackageMetadata sanitizes name and fetches its full registry
// document. URLs are only ever built from an already-sanitized name.
func (c *Client) FetchPackageMetadata(ctx context.Context, name string) (map[string]any, error) {
	clean, err := c.validator.PackageName(name)
	if err != nil {
		return nil, err
	}
	return c.GetJSON(ctx, "https://"+registryHost+"/"+escapeName(clean))
}

// FetchWeeklyDownloads returns the package's last-week download count.
// Best effort: callers treat a failure here as non-fatal.
func (c *Client) FetchWeeklyDownloads(ctx context.Context, name string) (int64, error) {
	clean, err := c.validator.PackageName(name)
	if err != nil {
		return 0, err
	}
	payload, err := c.GetJSON(ctx, "https://"+downloadsHost+"/downloads/point/last-week/"+escapeName(clean))
	if err != nil {
		return 0, err
	}
	n, ok := payload["downloads"].(float64)
	if !ok {
		return 0, &secerr.ValidationError{Field: "registry_metadata", Rule: "downloads field missing"}
	}
	return int64(n), nil
}

// LastPublishDate derives the most recent publish time from a registry
// document's time map. Fails with a descriptive (payload-free) error when
// the metadata lacks it.
func LastPublishDate(meta map[string]any) (time.Time, error) {
	times, ok := meta["time"].(map[string]any)
	if !ok {
		return time.Time{}, &secerr.ValidationError{Field: "registry_metadata", Rule: "time map missing"}
	}

	var latest time.Time
	for key, v := range times {
		if key == "created" {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			continue
		}
		if t.After(latest) {
			latest = t
		}
	}
	if latest.IsZero() {
		return time.Time{}, &secerr.ValidationError{Field: "registry_metadata", Rule: "no parsable publish times"}
	}
	return latest, nil
}

// CreatedDate derives the package's first-publish time.
func CreatedDate(meta map[string]any) (time.Time, error) {
	times, ok := meta["time"].(map[string]any)
	if !ok {
		return time.Time{}, &secerr.ValidationError{Field: "registry_metadata", Rule: "time map missing"}
	}
	s, ok := times["created"].(string)
	if !ok {
		return time.Time{}, &secerr.ValidationError{Field: "registry_metadata", Rule: "created time missing"}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, &secerr.ValidationError{Field: "registry_metadata", Rule: "created time unparsable"}
	}
	return t, nil
}

// ProjectInfo builds a PackageInfo from a registry document, degrading to
// defaults on partial metadata instead of failing.
func ProjectInfo(name string, meta map[string]any) PackageInfo {
	info := PackageInfo{Name: name, PublishTimes: map[string]time.Time{}}

	if s, ok := meta["description"].(string); ok {
		info.Description = s
	}
	if s, ok := meta["license"].(string); ok {
		info.License = s
	}
	if repo, ok := meta["repository"].(map[string]any); ok {
		if s, ok := repo["url"].(string); ok {
			info.RepositoryURL = s
		}
	}
	if author, ok := meta["author"].(map[string]any); ok {
		if s, ok := author["name"].(string); ok {
			info.Author = s
		}
	} else if s, ok := meta["author"].(string); ok {
		info.Author = s
	}
	if tags, ok := meta["dist-tags"].(map[string]any); ok {
		if s, ok := tags["latest"].(string); ok {
			info.LatestVersion = s
		}
	}
	if versions, ok := meta["versions"].(map[string]any); ok {
		info.VersionCount = len(versions)
		for v := range versions {
			info.Versions = append(info.Versions, v)
		}
	}
	if times, ok := meta["time"].(map[string]any); ok {
		for ver, v := range times {
			if ver == "created" || ver == "modified" {
				continue
			}
			if s, ok := v.(string); ok {
				if t, err := time.Parse(time.RFC3339, s); err == nil {
					info.PublishTimes[ver] = t
				}
			}
		}
	}
	return info
}

// escapeName encodes a scoped package name for a registry path. The name
// has already passed the sanitizer, so only the scope separator needs
// escaping.
func escapeName(name string) string {
	if strings.HasPrefix(name, "@") {
		return strings.Replace(name, "/", "%2f", 1)
	}
	return name
}
