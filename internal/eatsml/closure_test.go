package eatsml

import (
	"context"
	"eats/pkg/domain"
	"slices"
	"testing"
)

func TestClosureAddAndIDs(t *testing.T) {
	c := NewClosure()
	c.Add(domain.KindCalendar, 3)
	c.Add(domain.KindCalendar, 1)
	c.Add(domain.KindCalendar, 3)
	c.Add(domain.KindCalendar, 0)
	if got := c.IDs(domain.KindCalendar); !slices.Equal(got, []domain.ID{1, 3}) {
		t.Fatalf("IDs = %v", got)
	}
	if c.Len(domain.KindCalendar) != 2 || c.Len(domain.KindScript) != 0 {
		t.Fatalf("unexpected lengths")
	}
	if !c.Has(domain.KindCalendar, 1) || c.Has(domain.KindScript, 1) {
		t.Fatalf("Has confused kinds")
	}
}

func TestClosureWorklist(t *testing.T) {
	c := NewClosure()
	if !c.Visit(1) || c.Visit(1) {
		t.Fatalf("Visit should succeed exactly once")
	}
	c.Enqueue(1)
	c.Enqueue(0)
	for _, id := range []domain.ID{5, 2, 4, 2} {
		c.Enqueue(id)
	}
	if c.Pending() != 3 {
		t.Fatalf("pending = %d", c.Pending())
	}
	if got := c.Next(2); !slices.Equal(got, []domain.ID{2, 4}) {
		t.Fatalf("Next = %v", got)
	}
	c.Visit(5)
	if got := c.Next(2); got != nil {
		t.Fatalf("visited entity still pending: %v", got)
	}
	if !c.Visited(5) || c.Visited(2) {
		t.Fatalf("unexpected visited state")
	}
}

func TestClosureComplete(t *testing.T) {
	svc, f := newSeededService(t)
	p := addPerson(t, svc, f, "entity-000001", "Jane", "Doe")
	err := svc.Store().View(context.Background(), func(view domain.TransactionView) error {
		c := NewClosure()
		c.Add(domain.KindAuthorityRecord, p.Record.ID)
		c.Add(domain.KindNamePartType, f.GivenPart.ID)
		c.Add(domain.KindLanguage, f.English.ID)
		c.Complete(view)
		for _, want := range []struct {
			kind domain.Kind
			id   domain.ID
		}{
			{domain.KindAuthority, f.Authority.ID},
			{domain.KindCalendar, f.Gregorian.ID},
			{domain.KindDatePeriod, f.Lifespan.ID},
			{domain.KindDateType, f.Exact.ID},
			{domain.KindScript, f.Latin.ID},
			{domain.KindSystemNamePartType, f.Given.ID},
			{domain.KindSystemNamePartType, f.Family.ID},
		} {
			if !c.Has(want.kind, want.id) {
				t.Errorf("closure lacks %s %d", want.kind, want.id)
			}
		}
		if c.Has(domain.KindAuthority, f.Other.ID) || c.Has(domain.KindCalendar, f.Julian.ID) {
			t.Errorf("closure holds unreferenced vocabulary")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}
