// Package sanitize is the validation choke point for all untrusted strings
// entering the gateway: package names, file paths, command arguments, and
// URLs. Validators are gates, not transforms: on success the input is
// returned unchanged; on failure the error names the violated rule class
// but never echoes the payload.
package sanitize

import (
	"regexp"
	"strings"

	"github.com/ppiankov/depgate/internal/secerr"
)

// maxPackageNameLen is the npm registry limit.
const maxPackageNameLen = 214

// namePattern is the authoritative allow-list for package names: optional
// @scope/ prefix, then lowercase alphanumerics, hyphen, dot, underscore,
// tilde. The deny-lists are defense in depth on top of this.
var namePattern = regexp.MustCompile(`^(?:@[a-z0-9][a-z0-9\-._~]*/)?[a-z0-9~][a-z0-9\-._~]*$`)

// Validator applies the configured lists to each input category.
// Construct once, share freely; it holds no mutable state.
type Validator struct {
	lists      Lists
	denyWordRe *regexp.Regexp
}

// New creates a Validator over the given lists.
func New(lists Lists) *Validator {
	return &Validator{
		lists:      lists,
		denyWordRe: compileWordPattern(lists.DenyWords),
	}
}

// NewDefault creates a Validator with the hardcoded default lists.
func NewDefault() *Validator {
	return New(DefaultLists())
}

// Lists returns a copy of the validator's configured lists.
func (v *Validator) Lists() Lists {
	return v.lists
}

// PackageName validates an untrusted package name. Returns the input
// unchanged on success.
func (v *Validator) PackageName(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", &secerr.ValidationError{Field: "package_name", Rule: "empty"}
	}
	if len(trimmed) > maxPackageNameLen {
		return "", &secerr.ValidationError{Field: "package_name", Rule: "exceeds maximum length"}
	}

	lower := strings.ToLower(trimmed)
	for _, deny := range v.lists.DenySubstrings {
		if strings.Contains(lower, deny) {
			return "", &secerr.ValidationError{Field: "package_name", Rule: "deny-listed substring"}
		}
	}
	if v.denyWordRe != nil && v.denyWordRe.MatchString(lower) {
		return "", &secerr.ValidationError{Field: "package_name", Rule: "deny-listed token"}
	}

	if !namePattern.MatchString(trimmed) {
		return "", &secerr.ValidationError{Field: "package_name", Rule: "not a valid registry name"}
	}

	for _, prefix := range v.lists.SensitiveNamePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return "", &secerr.ValidationError{Field: "package_name", Rule: "sensitive name prefix"}
		}
	}

	return raw, nil
}

// compileWordPattern builds a word-boundary alternation from the deny
// words. Returns nil for an empty list.
func compileWordPattern(words []string) *regexp.Regexp {
	if len(words) == 0 {
		return nil
	}
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
}
