package catalog

// ViewState tracks which category blocks are expanded. Blocks start
// collapsed. The state survives filter changes and reloads because it is
// keyed by category name.
type ViewState struct {
	expanded map[string]bool
}

// NewViewState returns an all-collapsed view state.
func NewViewState() *ViewState {
	return &ViewState{expanded: make(map[string]bool)}
}

// Expanded reports whether name is expanded.
func (v *ViewState) Expanded(name string) bool {
	return v.expanded[name]
}

// Toggle flips name and returns the new state.
func (v *ViewState) Toggle(name string) bool {
	v.expanded[name] = !v.expanded[name]
	return v.expanded[name]
}

// SetAll expands or collapses every given name.
func (v *ViewState) SetAll(names []string, expanded bool) {
	for _, n := range names {
		v.expanded[n] = expanded
	}
}

// ExpandedNames returns the expanded subset of names, in the given order.
func (v *ViewState) ExpandedNames(names []string) []string {
	var out []string
	for _, n := range names {
		if v.expanded[n] {
			out = append(out, n)
		}
	}
	return out
}
