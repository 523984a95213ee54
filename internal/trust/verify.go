package trust

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/ppiankov/depgate/internal/model"
	"github.com/ppiankov/depgate/internal/netguard"
	"github.com/ppiankov/depgate/internal/secerr"
	"github.com/ppiankov/depgate/internal/secevent"
	"github.com/ppiankov/depgate/internal/trustcache"
)

const (
	youngPackageAge       = 30 * 24 * time.Hour
	churnWindow           = 7 * 24 * time.Hour
	churnMaxReleases      = 10
	defaultPublisherScore = 0.3
	lowTrustThreshold     = 0.4
	lowDownloadFloor      = 100
	goodDescriptionLen    = 20
	maturePackageAge      = 365 * 24 * time.Hour
)

// Verifier aggregates independent package checks into one verdict.
type Verifier struct {
	client *netguard.Client
	vulns  *VulnDB
	cache  *trustcache.Cache
	events secevent.Recorder
	now    func() time.Time
}

// NewVerifier creates a Verifier. A nil client gets the default gateway
// client, a nil vuln database the built-in advisories; the cache is
// optional and a nil recorder discards events.
func NewVerifier(client *netguard.Client, vulns *VulnDB, cache *trustcache.Cache, events secevent.Recorder) *Verifier {
	if client == nil {
		client = netguard.NewDefault()
	}
	if vulns == nil {
		vulns = DefaultVulnDB()
	}
	if events == nil {
		events = secevent.Nop{}
	}
	return &Verifier{client: client, vulns: vulns, cache: cache, events: events, now: time.Now}
}

// VerifyPackage fetches registry metadata for name and runs every check.
// version may be empty or "latest" to assess the latest published
// version. Fetch failures fail closed: no assessment is returned.
func (v *Verifier) VerifyPackage(ctx context.Context, name, version string) (*model.TrustAssessment, error) {
	if v.cache != nil && version != "" && version != "latest" {
		if cached, ok, err := v.cache.Get(name, version); err == nil && ok {
			return cached, nil
		}
	}

	meta, err := v.client.FetchPackageMetadata(ctx, name)
	if err != nil {
		v.events.Record(secevent.Event{
			Type:     secevent.TypeTrustCheckFailure,
			Severity: model.SevMedium,
			Details:  secerr.Mask("metadata fetch failed: " + err.Error()),
		})
		return nil, err
	}
	info := netguard.ProjectInfo(name, meta)
	if version == "" || version == "latest" {
		version = info.LatestVersion
	}

	a := &model.TrustAssessment{PackageName: name, Version: version}

	for _, adv := range v.vulns.Match(name, version) {
		a.Issues = append(a.Issues, model.Issue{
			Type:     "vulnerability",
			Severity: adv.Severity,
			Message:  fmt.Sprintf("%s: %s", adv.ID, adv.Title),
		})
	}
	for _, reason := range SuspicionReasons(name) {
		a.Issues = append(a.Issues, model.Issue{Type: "suspicious_name", Severity: model.SevHigh, Message: reason})
	}
	a.Issues = append(a.Issues, metadataIssues(info)...)

	created, createdErr := netguard.CreatedDate(meta)
	a.PublisherScore = publisherScore(info, created, createdErr == nil, v.now())
	if a.PublisherScore < lowTrustThreshold {
		a.Issues = append(a.Issues, model.Issue{
			Type:     "publisher_trust",
			Severity: model.SevMedium,
			Message:  "publisher trust score below threshold",
		})
	}

	if createdErr != nil {
		a.Issues = append(a.Issues, model.Issue{Type: "metadata", Severity: model.SevLow, Message: "publish history unavailable"})
	} else if v.now().Sub(created) < youngPackageAge {
		a.Issues = append(a.Issues, model.Issue{Type: "package_age", Severity: model.SevHigh, Message: "package first published less than 30 days ago"})
	}

	if n := v.recentReleases(info); n > churnMaxReleases {
		a.Issues = append(a.Issues, model.Issue{
			Type:     "version_churn",
			Severity: model.SevHigh,
			Message:  fmt.Sprintf("%d releases in the last 7 days", n),
		})
	}

	// Best effort: the downloads endpoint being down never fails a verdict.
	if downloads, err := v.client.FetchWeeklyDownloads(ctx, name); err == nil && downloads < lowDownloadFloor {
		a.Issues = append(a.Issues, model.Issue{Type: "downloads", Severity: model.SevLow, Message: "very low weekly download count"})
	}

	a.Safe = !a.WorstSeverity().Blocking()
	if !a.Safe {
		v.events.Record(secevent.Event{
			Type:     secevent.TypeTrustCheckFailure,
			Severity: a.WorstSeverity(),
			Details:  fmt.Sprintf("package failed trust checks with %d issues", len(a.Issues)),
		})
	}
	if v.cache != nil && a.Version != "" {
		if err := v.cache.Put(a); err != nil {
			v.events.Record(secevent.Event{
				Type:     secevent.TypeTrustCheckFailure,
				Severity: model.SevLow,
				Details:  "verdict cache write failed",
			})
		}
	}
	return a, nil
}

func metadataIssues(info netguard.PackageInfo) []model.Issue {
	var issues []model.Issue
	if info.Description == "" {
		issues = append(issues, model.Issue{Type: "metadata", Severity: model.SevLow, Message: "missing description"})
	}
	if info.RepositoryURL == "" {
		issues = append(issues, model.Issue{Type: "metadata", Severity: model.SevLow, Message: "missing repository link"})
	}
	if info.License == "" {
		issues = append(issues, model.Issue{Type: "metadata", Severity: model.SevLow, Message: "missing license"})
	}
	return issues
}

// publisherScore starts from the unknown-publisher baseline and adds
// credit for signals a serious maintainer usually has. Clamped to [0,1].
func publisherScore(info netguard.PackageInfo, created time.Time, hasCreated bool, now time.Time) float64 {
	score := defaultPublisherScore
	if info.RepositoryURL != "" {
		score += 0.2
	}
	if len(info.Description) >= goodDescriptionLen {
		score += 0.15
	}
	if info.License != "" {
		score += 0.1
	}
	if hasCreated && now.Sub(created) >= maturePackageAge {
		score += 0.15
	}
	if info.VersionCount >= 5 {
		score += 0.1
	}
	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score
}

// recentReleases counts semver-parsable versions published inside the
// churn window.
func (v *Verifier) recentReleases(info netguard.PackageInfo) int {
	cutoff := v.now().Add(-churnWindow)
	n := 0
	for ver, at := range info.PublishTimes {
		if _, err := semver.NewVersion(ver); err != nil {
			continue
		}
		if at.After(cutoff) {
			n++
		}
	}
	return n
}
