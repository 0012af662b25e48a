package conflict

import (
	"sort"
	"testing"
)

func TestExcludedVersionedBase(t *testing.T) {
	s := ForFeatures().Excluded([]string{"jaxrs-2.0", " JSONP-1.1 "})
	for _, name := range []string{"jaxrs-2.1", "jsonp-1.0", "JaxRS-2.0"} {
		if !s.Excludes(name) {
			t.Fatalf("%s should be excluded", name)
		}
	}
	for _, name := range []string{"jaxrsClient-2.1", "cdi-2.0"} {
		if s.Excludes(name) {
			t.Fatalf("%s should not be excluded", name)
		}
	}
	if !s.Declared("jaxrs-2.0") || s.Declared("jaxrs-2.1") {
		t.Fatalf("Declared mismatch")
	}
}

func TestExcludedBareNameMatchesByPrefix(t *testing.T) {
	s := ForFeatures().Excluded([]string{"servlet", "servlet-"})
	if !s.Excludes("servlet-4.0") {
		t.Fatalf("servlet-4.0 should be excluded by bare servlet")
	}
	if s.Excludes("sipServlet-1.1") {
		t.Fatalf("sipServlet-1.1 does not start with servlet")
	}
}

func TestPlatformFamilies(t *testing.T) {
	r := ForPlatforms()
	s := r.Excluded([]string{"javaee-8.0"})
	if !s.Excludes("jakartaee-10.0") || !s.Excludes("javaee-7.0") {
		t.Fatalf("javaee-8.0 should exclude jakartaee and other javaee versions")
	}
	if s.Excludes("microProfile-6.0") {
		t.Fatalf("microProfile is independent")
	}
	got := s.Bases()
	sort.Strings(got)
	if len(got) != 2 || got[0] != "jakartaee" || got[1] != "javaee" {
		t.Fatalf("Bases = %v", got)
	}

	if ForFeatures().Excluded([]string{"javaee-8.0"}).Excludes("jakartaee-10.0") {
		t.Fatalf("feature resolver must not apply family rules")
	}
}

func TestConflicts(t *testing.T) {
	r := ForPlatforms()
	tests := []struct {
		name     string
		declared []string
		with     string
		family   bool
		ok       bool
	}{
		{"jaxrs-2.1", []string{"jaxrs-2.0"}, "jaxrs-2.0", false, true},
		{"jaxrs-2.1", []string{"jaxrs-2.1"}, "", false, false},
		{"jaxrs-2.1", []string{"JAXRS-2.1"}, "", false, false},
		{"jakartaee-10.0", []string{"microProfile-6.0", "javaee-8.0"}, "javaee-8.0", true, true},
		{"microProfile-6.0", []string{"javaee-8.0"}, "", false, false},
		{"servlet", []string{"servlet-4.0"}, "", false, false},
	}
	for _, tt := range tests {
		c, ok := r.Conflicts(tt.name, tt.declared)
		if ok != tt.ok || c.With != tt.with || c.Family != tt.family {
			t.Fatalf("Conflicts(%q, %v) = %+v, %v", tt.name, tt.declared, c, ok)
		}
	}
}
