package dictionary

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestSplitIdentifier(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"snake case", "acct_open_dt", []string{"acct", "open", "dt"}},
		{"camel case", "acctOpenDt", []string{"acct", "open", "dt"}},
		{"mixed separators", "cust-email.addr", []string{"cust", "email", "addr"}},
		{"double underscore", "txn__amt", []string{"txn", "amt"}},
		{"single token", "balance", []string{"balance"}},
		{"empty", "", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SplitIdentifier(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitIdentifier(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLoadEmbeddedDefaults(t *testing.T) {
	d, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") failed: %v", err)
	}

	term, ok := d.LookupTerm("acct")
	if !ok || term != "account" {
		t.Errorf("LookupTerm(acct) = %q, %v; want account, true", term, ok)
	}
	if _, ok := d.LookupTerm("zzqq1"); ok {
		t.Error("LookupTerm(zzqq1) resolved unexpectedly")
	}

	patterns := d.PIIPatterns()
	if len(patterns) == 0 {
		t.Fatal("PIIPatterns() returned no patterns")
	}
	found := false
	for _, p := range patterns {
		if p.Category == CategorySSNLike && p.Keyword == "ssn" {
			found = true
		}
	}
	if !found {
		t.Error("expected ssn keyword under ssn_like category")
	}
}

func TestLoadOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terms.yaml")
	content := "terms:\n  foo: bar\npii_keywords:\n  contact:\n    - email\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	d, err := Load(path)
	if err != nil {
		t.Fatalf("Load(%q) failed: %v", path, err)
	}
	if term, ok := d.LookupTerm("FOO"); !ok || term != "bar" {
		t.Errorf("LookupTerm(FOO) = %q, %v; want bar, true", term, ok)
	}
	// Override replaces the embedded defaults entirely.
	if _, ok := d.LookupTerm("acct"); ok {
		t.Error("embedded terms leaked into override dictionary")
	}
}

func TestLoadFailures(t *testing.T) {
	if _, err := Load("/nonexistent/terms.yaml"); err == nil {
		t.Error("Load of missing file should fail")
	}

	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, []byte("pii_keywords: {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load of dictionary without terms should fail")
	}
}

func TestResolveTokens(t *testing.T) {
	d, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	words, resolved := d.ResolveTokens("acct_open_dt")
	if resolved != 2 {
		t.Errorf("resolved = %d, want 2", resolved)
	}
	if !reflect.DeepEqual(words, []string{"account", "open", "date"}) {
		t.Errorf("words = %v", words)
	}

	if got := d.Humanize("cust_bal_amt"); got != "customer balance amount" {
		t.Errorf("Humanize = %q", got)
	}

	_, resolved = d.ResolveTokens("zzqq1")
	if resolved != 0 {
		t.Errorf("resolved = %d, want 0 for unresolvable name", resolved)
	}
}
