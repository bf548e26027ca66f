package triemap

import (
	"net/netip"
	"testing"
)

func mustPrefix(t *testing.T, s string) netip.Prefix {
	t.Helper()
	p, err := netip.ParsePrefix(s)
	if err != nil {
		t.Fatalf("ParsePrefix(%q): %v", s, err)
	}
	return p
}

func TestLookupBest_LongestPrefixWins(t *testing.T) {
	tr := New[string](false)
	tr.Insert(mustPrefix(t, "10.0.0.0/8"), "A")
	tr.Insert(mustPrefix(t, "10.1.0.0/16"), "B")
	tr.Insert(mustPrefix(t, "10.1.2.0/24"), "C")

	got, ok := tr.LookupBest(mustPrefix(t, "10.1.2.5/32"))
	if !ok || got != "C" {
		t.Fatalf("expected C, got %q ok=%v", got, ok)
	}
}

func TestLookupFirst_LeastSpecific(t *testing.T) {
	tr := New[string](false)
	tr.Insert(mustPrefix(t, "10.0.0.0/8"), "A")
	tr.Insert(mustPrefix(t, "10.1.0.0/16"), "B")

	got, ok := tr.LookupFirst(mustPrefix(t, "10.1.2.5/32"))
	if !ok || got != "A" {
		t.Fatalf("expected A, got %q ok=%v", got, ok)
	}
}

func TestLookupAllLevels_Ordering(t *testing.T) {
	tr := New[string](false)
	tr.Insert(mustPrefix(t, "10.0.0.0/8"), "A")
	tr.Insert(mustPrefix(t, "10.1.0.0/16"), "B")
	tr.Insert(mustPrefix(t, "10.1.2.0/24"), "C")

	got := tr.LookupAllLevels(mustPrefix(t, "10.1.2.5/32"), 0)
	want := []string{"A", "B", "C"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestLookupNetExact(t *testing.T) {
	tr := New[string](false)
	tr.Insert(mustPrefix(t, "192.0.2.0/24"), "exact")
	tr.Insert(mustPrefix(t, "192.0.0.0/16"), "super")

	got := tr.LookupNetExact(mustPrefix(t, "192.0.2.0/24"))
	if len(got) != 1 || got[0] != "exact" {
		t.Fatalf("expected [exact], got %v", got)
	}
}

func TestLookupAllLevels_NoMatch(t *testing.T) {
	tr := New[string](false)
	tr.Insert(mustPrefix(t, "192.0.2.0/24"), "x")

	got := tr.LookupAllLevels(mustPrefix(t, "203.0.113.0/24"), 0)
	if len(got) != 0 {
		t.Fatalf("expected no match, got %v", got)
	}
}

func TestLookupAllLevels_MaxMatches(t *testing.T) {
	tr := New[string](false)
	tr.Insert(mustPrefix(t, "10.0.0.0/8"), "A")
	tr.Insert(mustPrefix(t, "10.1.0.0/16"), "B")
	tr.Insert(mustPrefix(t, "10.1.2.0/24"), "C")

	got := tr.LookupAllLevels(mustPrefix(t, "10.1.2.5/32"), 1)
	if len(got) != 1 || got[0] != "A" {
		t.Fatalf("expected [A], got %v", got)
	}
}

func TestLookupBest_IPv6(t *testing.T) {
	tr := New[string](true)
	tr.Insert(mustPrefix(t, "2001:db8::/32"), "A")
	tr.Insert(mustPrefix(t, "2001:db8:1::/48"), "B")

	got, ok := tr.LookupBest(mustPrefix(t, "2001:db8:1::1/128"))
	if !ok || got != "B" {
		t.Fatalf("expected B, got %q ok=%v", got, ok)
	}
}

func TestLookupBest_DefaultRoute(t *testing.T) {
	tr := New[string](false)
	tr.Insert(mustPrefix(t, "0.0.0.0/0"), "default")

	got, ok := tr.LookupBest(mustPrefix(t, "203.0.113.5/32"))
	if !ok || got != "default" {
		t.Fatalf("expected default, got %q ok=%v", got, ok)
	}
}
