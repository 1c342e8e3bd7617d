package catalog

// TabCounts maps tab keys to badge counts. The "all" key holds the size
// of the unified name set.
type TabCounts map[string]int

// CountTabs counts categories per status over every reconciled name.
// Categories with an unknown or empty status only count towards "all".
func CountTabs(s *Snapshot) TabCounts {
	counts := make(TabCounts, len(tabs))
	for _, t := range tabs {
		counts[t.Key] = 0
	}
	counts[AllTab.Key] = len(s.Names)
	for _, name := range s.Names {
		status := s.Meta[name].Status
		for _, t := range tabs[1:] {
			if t.Status == status {
				counts[t.Key]++
				break
			}
		}
	}
	return counts
}

// Get returns the count for a tab.
func (c TabCounts) Get(t Tab) int {
	return c[t.Key]
}
