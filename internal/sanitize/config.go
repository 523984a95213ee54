package sanitize

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Lists holds the injectable allow/deny configuration for all four input
// categories. The allow-list regex for package names is the authoritative
// control; the deny-lists are defense in depth.
type Lists struct {
	// DenySubstrings are rejected anywhere in a lowercased package name
	// or command argument.
	DenySubstrings []string `yaml:"deny_substrings"`
	// DenyWords are rejected only on word boundaries (bare shell invokers).
	DenyWords []string `yaml:"deny_words"`
	// DenyArgTokens extend DenySubstrings for command arguments with
	// redirection/control and destructive command tokens.
	DenyArgTokens []string `yaml:"deny_arg_tokens"`
	// SensitiveNamePrefixes reject package names that impersonate
	// filesystem or VCS internals.
	SensitiveNamePrefixes []string `yaml:"sensitive_name_prefixes"`
	// SensitivePathPatterns reject resolved paths that touch protected
	// locations. Matched by containment against the slashed path.
	SensitivePathPatterns []string `yaml:"sensitive_path_patterns"`
	// AllowedExtensions is the closed set of acceptable file extensions.
	AllowedExtensions []string `yaml:"allowed_extensions"`
	// AllowedHosts is the closed set of hostnames URLs may target.
	AllowedHosts []string `yaml:"allowed_hosts"`
}

// DefaultLists returns the hardcoded gateway defaults.
func DefaultLists() Lists {
	return Lists{
		DenySubstrings: []string{
			";", "|", "&", "$", "`", "(", ")", "{",
			"../", "..\\", "//",
			"file://", "http://", "https://", "ftp://", "data:",
			"curl", "wget", "bash", "powershell", "base64",
			"whoami", "rm ", "del ", "format",
		},
		DenyWords: []string{"sh", "cmd"},
		DenyArgTokens: []string{
			">", ">>", "<", "<<", "\n", "\t", "\\",
			"rm ", "del ", "mkfs", "dd ", "wget ", "curl ",
			"ssh", "ftp", "eval", "exec",
		},
		SensitiveNamePrefixes: []string{
			"node_modules", ".git", ".env", "etc/", "usr/", "var/", "tmp/",
		},
		SensitivePathPatterns: []string{
			"node_modules", ".git", ".env", ".ssh", ".aws", ".docker",
			"/etc/", "/usr/", "/var/", "/boot/", "/proc/", "/sys/",
			"windows/system32", "../..",
		},
		AllowedExtensions: []string{
			".json", ".js", ".ts", ".md", ".txt", ".yml", ".yaml", ".lock",
		},
		AllowedHosts: []string{
			"registry.npmjs.org", "api.npmjs.org", "api.github.com",
		},
	}
}

// LoadLists reads list overrides from a YAML file. Missing file falls back
// to defaults; a present but unparsable file is an error. Fields left empty
// in the file inherit the defaults so a partial override stays safe.
func LoadLists(path string) (Lists, error) {
	def := DefaultLists()
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return def, nil
		}
		path = filepath.Join(home, ".depgate", "sanitize.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return def, nil
		}
		return Lists{}, err
	}

	var loaded Lists
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return Lists{}, err
	}
	return mergeLists(def, loaded), nil
}

// mergeLists overlays non-empty fields from over onto base.
func mergeLists(base, over Lists) Lists {
	if len(over.DenySubstrings) > 0 {
		base.DenySubstrings = over.DenySubstrings
	}
	if len(over.DenyWords) > 0 {
		base.DenyWords = over.DenyWords
	}
	if len(over.DenyArgTokens) > 0 {
		base.DenyArgTokens = over.DenyArgTokens
	}
	if len(over.SensitiveNamePrefixes) > 0 {
		base.SensitiveNamePrefixes = over.SensitiveNamePrefixes
	}
	if len(over.SensitivePathPatterns) > 0 {
		base.SensitivePathPatterns = over.SensitivePathPatterns
	}
	if len(over.AllowedExtensions) > 0 {
		base.AllowedExtensions = over.AllowedExtensions
	}
	if len(over.AllowedHosts) > 0 {
		base.AllowedHosts = over.AllowedHosts
	}
	return base
}
