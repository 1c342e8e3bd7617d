package forms

import (
	"strings"
	"testing"
)

func TestRegistry(t *testing.T) {
	want := []string{"AOUS-240", "AOUS-260", "AOUS-265", "AOUS-560", "MTU", "HZ"}
	got := Keys()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
	for _, f := range All() {
		if f.Title == "" || !strings.HasPrefix(f.URL, "https://share.teamforms.app/form/") {
			t.Errorf("form %s is incomplete: %+v", f.Key, f)
		}
	}
}

func TestAllReturnsCopy(t *testing.T) {
	a := All()
	a[0].Key = "changed"
	if All()[0].Key != "AOUS-240" {
		t.Error("All() exposed the registry")
	}
}

func TestLookup(t *testing.T) {
	f, ok := Lookup(" aous-265 ")
	if !ok || f.Key != "AOUS-265" {
		t.Errorf("Lookup(aous-265) = %+v, %v", f, ok)
	}
	if _, ok := Lookup("AOUS-999"); ok {
		t.Error("Lookup(AOUS-999) should fail")
	}
}

func TestBrowserURL(t *testing.T) {
	f, _ := Lookup("AOUS-240")
	got := f.BrowserURL()
	if strings.Contains(got, "embedMode") {
		t.Errorf("BrowserURL() = %q, want embedMode removed", got)
	}
	if !strings.HasPrefix(got, "https://share.teamforms.app/form/") {
		t.Errorf("BrowserURL() = %q", got)
	}

	plain, _ := Lookup("HZ")
	if plain.BrowserURL() != plain.URL {
		t.Errorf("BrowserURL() changed a URL without query: %q", plain.BrowserURL())
	}
}
