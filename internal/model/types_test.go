package model

import "testing"

func TestSeverityBlocking(t *testing.T) {
	tests := []struct {
		sev  Severity
		want bool
	}{
		{SevLow, false},
		{SevMedium, false},
		{SevHigh, true},
		{SevCritical, true},
	}
	for _, tt := range tests {
		if got := tt.sev.Blocking(); got != tt.want {
			t.Errorf("Blocking(%s) = %v, want %v", tt.sev, got, tt.want)
		}
	}
}

func TestWorstSeverityEmpty(t *testing.T) {
	ta := &TrustAssessment{}
	if got := ta.WorstSeverity(); got != SevLow {
		t.Errorf("expected low for empty issues, got %s", got)
	}
}

func TestWorstSeverityPicksHighest(t *testing.T) {
	ta := &TrustAssessment{
		Issues: []Issue{
			{Type: "metadata", Severity: SevLow},
			{Type: "vulnerability", Severity: SevCritical},
			{Type: "publisher", Severity: SevMedium},
		},
	}
	if got := ta.WorstSeverity(); got != SevCritical {
		t.Errorf("expected critical, got %s", got)
	}
}
