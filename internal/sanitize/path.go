package sanitize

import (
	"path/filepath"
	"strings"

	"github.com/ppiankov/depgate/internal/secerr"
)

// maxPathLen matches the most restrictive common filesystem path limit.
const maxPathLen = 260

// FilePath validates an untrusted path against a base directory. The
// resolved path must stay inside baseDir, avoid sensitive locations, and
// carry an allow-listed extension (if it has one). Returns the resolved
// absolute path.
func (v *Validator) FilePath(raw, baseDir string) (string, error) {
	if raw == "" {
		return "", &secerr.ValidationError{Field: "file_path", Rule: "empty"}
	}
	if len(raw) > maxPathLen {
		return "", &secerr.ValidationError{Field: "file_path", Rule: "exceeds maximum length"}
	}

	base, err := filepath.Abs(baseDir)
	if err != nil {
		return "", &secerr.ValidationError{Field: "base_dir", Rule: "not resolvable"}
	}

	var resolved string
	if filepath.IsAbs(raw) {
		resolved = filepath.Clean(raw)
	} else {
		resolved = filepath.Join(base, raw)
	}

	if resolved != base && !strings.HasPrefix(resolved, base+string(filepath.Separator)) {
		return "", &secerr.PolicyViolation{Rule: "path escapes base directory"}
	}

	if rule := v.sensitivePathRule(resolved); rule != "" {
		return "", &secerr.PolicyViolation{Rule: rule}
	}

	if ext := filepath.Ext(resolved); ext != "" {
		if !contains(v.lists.AllowedExtensions, strings.ToLower(ext)) {
			return "", &secerr.ValidationError{Field: "file_path", Rule: "extension not in allow-list"}
		}
	}

	return resolved, nil
}

// sensitivePathRule returns a non-empty rule name when the path touches a
// protected location. The .git pattern carves out .github/workflows so CI
// config stays reachable.
func (v *Validator) sensitivePathRule(path string) string {
	slashed := strings.ToLower(filepath.ToSlash(path))
	for _, pattern := range v.lists.SensitivePathPatterns {
		if !strings.Contains(slashed, pattern) {
			continue
		}
		if pattern == ".git" && strings.Contains(slashed, ".github/workflows") {
			continue
		}
		return "sensitive path: " + pattern
	}
	return ""
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
