package main

import "testing"

func TestParseExtra(t *testing.T) {
	got, err := parseExtra([]string{"precinct=P-7", "round=2", "final=true", "note=a=b"})
	if err != nil {
		t.Fatal(err)
	}
	if got["precinct"] != "P-7" {
		t.Errorf("precinct: %v", got["precinct"])
	}
	if got["round"] != float64(2) {
		t.Errorf("round: %v (%T)", got["round"], got["round"])
	}
	if got["final"] != true {
		t.Errorf("final: %v", got["final"])
	}
	if got["note"] != "a=b" {
		t.Errorf("note: %v", got["note"])
	}

	if m, err := parseExtra(nil); err != nil || m != nil {
		t.Errorf("parseExtra(nil) = %v, %v", m, err)
	}
	for _, bad := range []string{"novalue", "=x", " =x"} {
		if _, err := parseExtra([]string{bad}); err == nil {
			t.Errorf("parseExtra(%q) should fail", bad)
		}
	}
}

func TestShortHash(t *testing.T) {
	if got := shortHash("abc"); got != "abc" {
		t.Errorf("shortHash(abc) = %q", got)
	}
	long := "0123456789abcdef0123"
	if got := shortHash(long); got != "0123456789abcdef…" {
		t.Errorf("shortHash(long) = %q", got)
	}
}
