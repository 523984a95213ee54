package model

// Severity classifies how dangerous a finding is.
type Severity string

const (
	SevLow      Severity = "low"
	SevMedium   Severity = "medium"
	SevHigh     Severity = "high"
	SevCritical Severity = "critical"
)

// SevRank maps severity to a comparable integer for sorting and thresholds.
var SevRank = map[Severity]int{
	SevLow:      0,
	SevMedium:   1,
	SevHigh:     2,
	SevCritical: 3,
}

// Blocking reports whether a finding of this severity makes a package unsafe.
func (s Severity) Blocking() bool {
	return SevRank[s] >= SevRank[SevHigh]
}

// Decision is the gateway enforcement outcome.
type Decision string

const (
	Allow Decision = "allow"
	Warn  Decision = "warn"
	Deny  Decision = "deny"
)

// Issue is a single finding raised against a package.
type Issue struct {
	Type     string   `json:"type"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// TrustAssessment is the aggregate verdict for one package version.
type TrustAssessment struct {
	PackageName    string  `json:"package_name"`
	Version        string  `json:"version"`
	Safe           bool    `json:"safe"`
	Issues         []Issue `json:"issues"`
	PublisherScore float64 `json:"publisher_score"` // 0..1, higher is more trusted
}

// WorstSeverity returns the highest severity among the assessment's issues,
// or SevLow when there are none.
func (ta *TrustAssessment) WorstSeverity() Severity {
	worst := SevLow
	for _, is := range ta.Issues {
		if SevRank[is.Severity] > SevRank[worst] {
			worst = is.Severity
		}
	}
	return worst
}
