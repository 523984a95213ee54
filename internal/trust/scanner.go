package trust

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/ppiankov/depgate/internal/manifest"
	"github.com/ppiankov/depgate/internal/model"
	"github.com/ppiankov/depgate/internal/secerr"
)

// Finding is one dependency's scan outcome. Err is set when the verdict
// could not be produced at all; the dependency still counts as unsafe.
type Finding struct {
	Dependency manifest.Dependency
	Assessment *model.TrustAssessment
	Err        error
}

// Report is the aggregate outcome of scanning one manifest.
type Report struct {
	ManifestPath    string
	Findings        []Finding
	Recommendations []string
}

// Unsafe counts findings that are either failed or carry a blocking
// severity.
func (r *Report) Unsafe() int {
	n := 0
	for _, f := range r.Findings {
		if f.Err != nil || (f.Assessment != nil && !f.Assessment.Safe) {
			n++
		}
	}
	return n
}

// Scanner verifies every dependency a manifest declares.
type Scanner struct {
	verifier *Verifier
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewScanner wraps a Verifier for whole-project scans.
func NewScanner(v *Verifier) *Scanner {
	return &Scanner{verifier: v, sleep: ctxSleep}
}

// ScanProject loads the manifest at manifestPath and verifies each
// declared dependency. One package's failure never aborts the scan; it
// becomes an unsafe finding.
func (s *Scanner) ScanProject(ctx context.Context, manifestPath string) (*Report, error) {
	m, err := manifest.Load(manifestPath)
	if err != nil {
		return nil, err
	}
	report := &Report{ManifestPath: manifestPath}
	for _, dep := range m.AllDependencies() {
		a, err := s.verifyPaced(ctx, dep.Name, pinnedVersion(dep.Spec))
		if err != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		report.Findings = append(report.Findings, Finding{Dependency: dep, Assessment: a, Err: err})
	}
	rankFindings(report.Findings)
	report.Recommendations = recommendations(report.Findings)
	return report, nil
}

// verifyPaced waits out the per-host quota once per package instead of
// surfacing RateLimited mid-scan.
func (s *Scanner) verifyPaced(ctx context.Context, name, version string) (*model.TrustAssessment, error) {
	a, err := s.verifier.VerifyPackage(ctx, name, version)
	var rl *secerr.RateLimited
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		if serr := s.sleep(ctx, rl.RetryAfter); serr != nil {
			return nil, serr
		}
		return s.verifier.VerifyPackage(ctx, name, version)
	}
	return a, err
}

// pinnedVersion extracts an exact version from an npm range spec when
// the range pins one (^1.2.3, ~1.2.3, =1.2.3, 1.2.3). Anything else
// resolves to the latest published version.
func pinnedVersion(spec string) string {
	trimmed := strings.TrimLeft(strings.TrimSpace(spec), "^~=v")
	if _, err := semver.StrictNewVersion(trimmed); err != nil {
		return ""
	}
	return trimmed
}

func rankFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		return findingRank(findings[i]) > findingRank(findings[j])
	})
}

// findingRank orders findings worst-first: fetch failures sort with the
// blocking verdicts.
func findingRank(f Finding) int {
	if f.Err != nil {
		return model.SevRank[model.SevHigh]
	}
	if f.Assessment == nil {
		return 0
	}
	return model.SevRank[f.Assessment.WorstSeverity()]
}

func recommendations(findings []Finding) []string {
	var recs []string
	for _, f := range findings {
		switch {
		case f.Err != nil:
			recs = append(recs, fmt.Sprintf("could not verify %s: resolve before shipping", f.Dependency.Name))
		case f.Assessment != nil && !f.Assessment.Safe:
			worst := worstIssue(f.Assessment)
			recs = append(recs, fmt.Sprintf("remove or replace %s@%s: %s", f.Assessment.PackageName, f.Assessment.Version, worst.Message))
		case f.Assessment != nil && f.Assessment.WorstSeverity() == model.SevMedium:
			recs = append(recs, fmt.Sprintf("review %s@%s before relying on it", f.Assessment.PackageName, f.Assessment.Version))
		}
	}
	return recs
}

func worstIssue(a *model.TrustAssessment) model.Issue {
	var worst model.Issue
	for _, is := range a.Issues {
		if model.SevRank[is.Severity] >= model.SevRank[worst.Severity] {
			worst = is
		}
	}
	return worst
}

func ctxSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
