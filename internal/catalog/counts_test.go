package catalog

import "testing"

// TestCountTabs verifies badge counts and their integrity.
func TestCountTabs(t *testing.T) {
	s := sampleSnapshot()
	c := CountTabs(s)

	want := map[string]int{
		"all":           5,
		"pending":       2,
		"approved":      1,
		"rejected":      0,
		"missing-info":  0,
		"not-submitted": 0,
		"incomplete":    0,
		"not-required":  0,
	}
	for key, n := range want {
		if c[key] != n {
			t.Errorf("count[%s] = %d, want %d", key, c[key], n)
		}
	}

	named := 0
	for _, tab := range Tabs()[1:] {
		named += c.Get(tab)
	}
	if named > c.Get(AllTab) {
		t.Errorf("named sum %d exceeds all %d", named, c.Get(AllTab))
	}
	if c.Get(AllTab) != len(s.Names) {
		t.Errorf("all = %d, want %d", c.Get(AllTab), len(s.Names))
	}
}

// TestCountTabsEmpty verifies every tab is present with zero.
func TestCountTabsEmpty(t *testing.T) {
	c := CountTabs(Empty())
	for _, tab := range Tabs() {
		if v, ok := c[tab.Key]; !ok || v != 0 {
			t.Errorf("count[%s] = %d (present=%v), want 0", tab.Key, v, ok)
		}
	}
}
