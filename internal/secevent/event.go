// Package secevent provides the gateway's append-only security event log:
// classified events, JSONL on disk, SHA-256 hash chaining for tamper
// evidence. Details are redacted before they reach this package.
package secevent

import (
	"github.com/ppiankov/depgate/internal/model"
)

// EventType classifies a security event.
type EventType string

const (
	TypeValidationFailure EventType = "validation_failure"
	TypePolicyBlock       EventType = "policy_block"
	TypeRateLimitHit      EventType = "rate_limit_hit"
	TypeResourceLimitHit  EventType = "resource_limit_hit"
	TypeExecution         EventType = "execution"
	TypeNetworkRequest    EventType = "network_request"
	TypeCryptoOperation   EventType = "crypto_operation"
	TypeTrustCheckFailure EventType = "trust_check_failure"
	TypeSecretLeak        EventType = "secret_leak"
)

// Event is one line in the hash-chained JSONL log. All fields are scalar
// (no map[string]any) to guarantee deterministic json.Marshal field order
// for reproducible hashing.
type Event struct {
	Timestamp string         `json:"ts"`
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Severity  model.Severity `json:"severity"`
	Details   string         `json:"details"` // already redacted by the caller
	PrevHash  string         `json:"prev_hash"`
}

// Recorder accepts security events. The file-backed Log is the production
// implementation; Nop discards, for call sites that run without a log.
type Recorder interface {
	Record(ev Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Record(Event) error { return nil }
