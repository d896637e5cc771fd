package eatsml

import (
	"eats/pkg/domain"
	"testing"
)

func TestIDMapKeepsKindsApart(t *testing.T) {
	m := NewIDMap()
	m.Bind(domain.KindCalendar, "x", 7)
	m.Bind(domain.KindScript, "x", 9)
	if id, ok := m.Resolve(domain.KindCalendar, "x"); !ok || id != 7 {
		t.Fatalf("calendar x = %d, %v", id, ok)
	}
	if id, ok := m.Resolve(domain.KindScript, "x"); !ok || id != 9 {
		t.Fatalf("script x = %d, %v", id, ok)
	}
	if _, ok := m.Resolve(domain.KindLanguage, "x"); ok {
		t.Fatalf("language x should not resolve")
	}
	m.Bind(domain.KindCalendar, "x", 8)
	if id, _ := m.Resolve(domain.KindCalendar, "x"); id != 8 {
		t.Fatalf("rebinding should replace, got %d", id)
	}
	if m.Len(domain.KindCalendar) != 1 || m.Len(domain.KindDate) != 0 {
		t.Fatalf("unexpected lengths")
	}
}
