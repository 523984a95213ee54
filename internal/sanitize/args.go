package sanitize

import (
	"strings"

	"github.com/ppiankov/depgate/internal/secerr"
)

// maxArgLen bounds a single command argument.
const maxArgLen = 1000

// CommandArgs validates a subprocess argument list. Each argument is
// checked against the shared deny substrings plus the redirection, control,
// and destructive-command tokens. Returns a fresh slice on success so the
// caller's input cannot be mutated afterwards.
func (v *Validator) CommandArgs(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		if len(arg) > maxArgLen {
			return nil, &secerr.ValidationError{Field: "command_arg", Rule: "exceeds maximum length"}
		}
		lower := strings.ToLower(arg)
		for _, deny := range v.lists.DenySubstrings {
			if strings.Contains(lower, deny) {
				return nil, &secerr.ValidationError{Field: "command_arg", Rule: "deny-listed substring"}
			}
		}
		for _, deny := range v.lists.DenyArgTokens {
			if strings.Contains(lower, deny) {
				return nil, &secerr.ValidationError{Field: "command_arg", Rule: "deny-listed token"}
			}
		}
		if v.denyWordRe != nil && v.denyWordRe.MatchString(lower) {
			return nil, &secerr.ValidationError{Field: "command_arg", Rule: "deny-listed token"}
		}
		out = append(out, arg)
	}
	return out, nil
}
