// Package trust scores packages for supply-chain risk: known
// vulnerabilities, suspicious names, publisher reputation, publish-age
// and version-churn anomalies, and download-count sanity.
package trust

import (
	"regexp"
	"strings"
)

var digitRun = regexp.MustCompile(`[0-9]{4,}`)

// Keyword lists are substring matches against the lowercased name.
var (
	privilegedKeywords = []string{"admin", "root-access", "sudo", "superuser", "privilege", "system32"}
	maliciousKeywords  = []string{"malware", "virus", "trojan", "backdoor", "keylog", "ransom", "stealer", "exploit", "payload", "botnet"}
)

// SuspicionReasons lists every naming heuristic the package name trips.
// An empty result means the name looks ordinary.
func SuspicionReasons(name string) []string {
	var reasons []string
	lower := strings.ToLower(name)
	bare := lower
	if strings.HasPrefix(bare, "@") {
		if i := strings.IndexByte(bare, '/'); i >= 0 {
			bare = bare[i+1:]
		}
	}

	if len(bare) == 1 {
		reasons = append(reasons, "single-character name")
	}
	if hasRepeatedRun(bare, 3) {
		reasons = append(reasons, "repeated-character run in name")
	}
	if digitRun.MatchString(bare) {
		reasons = append(reasons, "long digit run in name")
	}
	for _, kw := range privilegedKeywords {
		if strings.Contains(lower, kw) {
			reasons = append(reasons, "privileged keyword in name")
			break
		}
	}
	for _, kw := range maliciousKeywords {
		if strings.Contains(lower, kw) {
			reasons = append(reasons, "malicious keyword in name")
			break
		}
	}
	return reasons
}

// IsSuspiciousPackageName reports whether any naming heuristic fires.
func IsSuspiciousPackageName(name string) bool {
	return len(SuspicionReasons(name)) > 0
}

// hasRepeatedRun reports a run of n or more identical bytes. RE2 has no
// backreferences, so this is a plain scan.
func hasRepeatedRun(s string, n int) bool {
	run := 1
	for i := 1; i < len(s); i++ {
		if s[i] == s[i-1] {
			run++
			if run >= n {
				return true
			}
		} else {
			run = 1
		}
	}
	return false
}
