package catalog

import (
	"reflect"
	"testing"
)

// TestViewStateToggle verifies toggles are independent per name.
func TestViewStateToggle(t *testing.T) {
	v := NewViewState()
	if v.Expanded("A") {
		t.Fatal("default state is expanded")
	}
	if !v.Toggle("A") {
		t.Error("Toggle(A) = false, want true")
	}
	if v.Expanded("B") {
		t.Error("toggling A expanded B")
	}
	if v.Toggle("A") {
		t.Error("second Toggle(A) = true, want false")
	}
}

// TestViewStateSetAll covers expand-all and collapse-all.
func TestViewStateSetAll(t *testing.T) {
	v := NewViewState()
	v.Toggle("Z")
	v.SetAll([]string{"A", "B"}, true)

	if got := v.ExpandedNames([]string{"A", "B", "C", "Z"}); !reflect.DeepEqual(got, []string{"A", "B", "Z"}) {
		t.Errorf("ExpandedNames = %q", got)
	}
	v.SetAll([]string{"A"}, false)
	if v.Expanded("A") || !v.Expanded("B") {
		t.Error("collapse-all touched names outside its set")
	}
}
