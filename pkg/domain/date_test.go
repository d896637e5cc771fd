package domain

import "testing"

func testDateContext() DateContext {
	return DateContext{
		Calendars:         map[ID]string{1: "Gregorian", 2: "Julian"},
		DateTypes:         map[ID]string{1: "exact", 2: "circa"},
		Periods:           map[ID]string{1: "lifespan", 2: "floruit"},
		DefaultCalendarID: 1,
	}
}

func part(raw string, dateType ID) DatePart {
	return DatePart{Raw: raw, CalendarID: 1, DateTypeID: dateType, Confident: true}
}

func TestDateAssemble(t *testing.T) {
	ctx := testDateContext()
	cases := []struct {
		name  string
		build func(*Date)
		want  string
	}{
		{
			name: "empty",
			want: "[unspecified]",
		},
		{
			name:  "point date",
			build: func(d *Date) { d.SetPart(PointDate, part("1850", 1)) },
			want:  "1850",
		},
		{
			name: "point wins over start and end",
			build: func(d *Date) {
				d.SetPart(StartDate, part("1800", 1))
				d.SetPart(PointTerminusAnte, part("1850", 1))
			},
			want: "at or before 1850",
		},
		{
			name: "start and end with termini",
			build: func(d *Date) {
				d.SetPart(StartTerminusPost, part("1800", 1))
				d.SetPart(StartTerminusAnte, part("1810", 1))
				d.SetPart(EndDate, part("1870", 2))
			},
			want: "at or after 1800 and at or before 1810 – c. 1870",
		},
		{
			name: "unconfident non-default calendar",
			build: func(d *Date) {
				d.SetPart(PointDate, DatePart{Raw: "1700", CalendarID: 2, DateTypeID: 1})
			},
			want: "1700? (Julian calendar)",
		},
		{
			name: "floruit period",
			build: func(d *Date) {
				d.PeriodID = 2
				d.SetPart(PointDate, part("1820", 1))
			},
			want: "fl. 1820",
		},
		{
			name:  "open end",
			build: func(d *Date) { d.SetPart(StartDate, part("1800", 1)) },
			want:  "1800 –",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := Date{PeriodID: 1}
			if tc.build != nil {
				tc.build(&d)
			}
			if got := d.Assemble(ctx); got != tc.want {
				t.Fatalf("Assemble() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestParseDatePartType(t *testing.T) {
	for _, pt := range DatePartTypes() {
		got, ok := ParseDatePartType(pt.String())
		if !ok || got != pt {
			t.Fatalf("ParseDatePartType(%q) = %v, %v", pt.String(), got, ok)
		}
	}
	if _, ok := ParseDatePartType("middle_date"); ok {
		t.Fatalf("expected unknown part name to be rejected")
	}
}

func TestDateIsEmpty(t *testing.T) {
	var d Date
	if !d.IsEmpty() {
		t.Fatalf("zero date should be empty")
	}
	d.SetPart(EndTerminusAnte, part("1900", 1))
	if d.IsEmpty() {
		t.Fatalf("date with a part should not be empty")
	}
}

func TestPartTypeSegments(t *testing.T) {
	for _, pt := range DatePartTypes() {
		if got := PartType(pt.Segment(), pt.Bound()); got != pt {
			t.Fatalf("PartType(%d, %d) = %s, want %s", pt.Segment(), pt.Bound(), got, pt)
		}
	}
	if PartType(SegmentEnd, BoundTerminusAnte) != EndTerminusAnte {
		t.Fatalf("end terminus ante mismatch")
	}
	if PointDate.Segment() != SegmentPoint || PointDate.Bound() != BoundDate {
		t.Fatalf("point date decomposed wrongly")
	}
}
