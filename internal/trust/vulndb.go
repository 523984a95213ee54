package trust

import (
	"github.com/Masterminds/semver/v3"

	"github.com/ppiankov/depgate/internal/model"
)

// Advisory is one known-vulnerable version range of a package.
type Advisory struct {
	ID       string
	Versions string // semver constraint, e.g. ">=10.1.1 <10.1.3"
	Severity model.Severity
	Title    string
}

// VulnDB is a local advisory lookup keyed by package name.
type VulnDB struct {
	byName map[string][]Advisory
}

// NewVulnDB builds a database from the given advisories.
func NewVulnDB(advisories map[string][]Advisory) *VulnDB {
	return &VulnDB{byName: advisories}
}

// DefaultVulnDB carries a small built-in set of well-known supply-chain
// incidents as a baseline; deployments extend it with their own feed.
func DefaultVulnDB() *VulnDB {
	return NewVulnDB(map[string][]Advisory{
		"event-stream": {
			{ID: "GHSA-mh6f-8j2x-4483", Versions: "3.3.6", Severity: model.SevCritical, Title: "flatmap-stream wallet-stealing payload"},
		},
		"ua-parser-js": {
			{ID: "GHSA-pjwm-rvh2-c87w", Versions: "0.7.29 || 0.8.0 || 1.0.0", Severity: model.SevCritical, Title: "hijacked release with cryptominer"},
		},
		"node-ipc": {
			{ID: "GHSA-97m3-w2cp-4xx6", Versions: ">=10.1.1 <10.1.3", Severity: model.SevCritical, Title: "destructive protestware payload"},
		},
		"coa": {
			{ID: "GHSA-73qr-pfmq-6rp8", Versions: ">=2.0.3 <=2.0.4 || >=2.1.1 <=2.1.3 || 3.0.1 || 3.1.3", Severity: model.SevCritical, Title: "hijacked release exfiltrating credentials"},
		},
		"rc": {
			{ID: "GHSA-g2q5-5433-rhrf", Versions: "1.2.9 || 1.3.9 || 2.3.9", Severity: model.SevCritical, Title: "hijacked release executing remote code"},
		},
		"colors": {
			{ID: "GHSA-5rqg-jm4f-cqx7", Versions: ">=1.4.1 <=1.4.44-liberty-2", Severity: model.SevHigh, Title: "sabotaged release with infinite loop"},
		},
	})
}

// Match returns the advisories applying to name@version. An unparsable
// version or constraint fails closed: every advisory for the name is
// returned.
func (d *VulnDB) Match(name, version string) []Advisory {
	advisories := d.byName[name]
	if len(advisories) == 0 {
		return nil
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return advisories
	}
	var hit []Advisory
	for _, adv := range advisories {
		c, err := semver.NewConstraint(adv.Versions)
		if err != nil || c.Check(v) {
			hit = append(hit, adv)
		}
	}
	return hit
}
