package util

import "testing"

func TestSanitizeFileName(t *testing.T) {
	got, err := SanitizeFileName(" dir/ballot.pdf ")
	if err != nil {
		t.Fatalf("SanitizeFileName: %v", err)
	}
	if got != "dir_ballot.pdf" {
		t.Fatalf("unexpected name: %q", got)
	}
	if _, err := SanitizeFileName("../etc/passwd"); err == nil {
		t.Fatalf("expected traversal to be rejected")
	}
	if _, err := SanitizeFileName("   "); err == nil {
		t.Fatalf("expected blank name to be rejected")
	}
}

func TestHasExt(t *testing.T) {
	cases := map[string]bool{
		"ballot.pdf":  true,
		"BALLOT.PDF":  true,
		"ballot.docx": false,
		"ballot":      false,
		"":            false,
	}
	for name, want := range cases {
		if got := HasExt(name, ".pdf"); got != want {
			t.Fatalf("HasExt(%q) = %v, want %v", name, got, want)
		}
	}
}
