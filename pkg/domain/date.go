package domain

import (
	"strings"
	"time"
)

// DatePartType indexes the nine sub-forms of a date: a terminus post quem,
// a date and a terminus ante quem for each of the start, point and end
// segments.
type DatePartType int

// Date part types in wire order.
const (
	StartTerminusPost DatePartType = iota
	StartDate
	StartTerminusAnte
	PointTerminusPost
	PointDate
	PointTerminusAnte
	EndTerminusPost
	EndDate
	EndTerminusAnte
	datePartCount
)

var datePartNames = [datePartCount]string{
	"start_terminus_post",
	"start_date",
	"start_terminus_ante",
	"point_terminus_post",
	"point_date",
	"point_terminus_ante",
	"end_terminus_post",
	"end_date",
	"end_terminus_ante",
}

// Segment is the start, point or end of a date.
type Segment int

// Bound is the kind of sub-form within a segment.
type Bound int

// Segments and bounds in wire order.
const (
	SegmentStart Segment = iota
	SegmentPoint
	SegmentEnd
)

const (
	BoundTerminusPost Bound = iota
	BoundDate
	BoundTerminusAnte
)

// PartType returns the part type for a segment and bound.
func PartType(s Segment, b Bound) DatePartType {
	return DatePartType(int(s)*3 + int(b))
}

// Segment returns the segment the part type belongs to.
func (t DatePartType) Segment() Segment { return Segment(int(t) / 3) }

// Bound returns the bound of the part type within its segment.
func (t DatePartType) Bound() Bound { return Bound(int(t) % 3) }

// DatePartTypes lists every part type in wire order.
func DatePartTypes() []DatePartType {
	out := make([]DatePartType, datePartCount)
	for i := range out {
		out[i] = DatePartType(i)
	}
	return out
}

func (t DatePartType) String() string {
	if t < 0 || t >= datePartCount {
		return "unknown"
	}
	return datePartNames[t]
}

// ParseDatePartType maps a wire name such as "point_date" to its type.
func ParseDatePartType(name string) (DatePartType, bool) {
	for i, n := range datePartNames {
		if n == name {
			return DatePartType(i), true
		}
	}
	return 0, false
}

// DatePart is one sub-form of a date. A part is set when Raw is non-empty.
type DatePart struct {
	Raw        string `json:"raw,omitempty"`
	Normalised string `json:"normalised,omitempty"`
	CalendarID ID     `json:"calendar_id,omitempty"`
	DateTypeID ID     `json:"date_type_id,omitempty"`
	Confident  bool   `json:"confident"`
}

// IsSet reports whether the part carries a raw value.
func (p DatePart) IsSet() bool { return p.Raw != "" }

// Date qualifies a property assertion in time.
type Date struct {
	ID           ID                      `json:"id"`
	AssertionID  ID                      `json:"assertion_id"`
	PeriodID     ID                      `json:"period_id"`
	Note         string                  `json:"note,omitempty"`
	Parts        [datePartCount]DatePart `json:"parts"`
	LastModified time.Time               `json:"last_modified"`
}

// Part returns the sub-form of the given type.
func (d Date) Part(t DatePartType) DatePart { return d.Parts[t] }

// SetPart replaces the sub-form of the given type.
func (d *Date) SetPart(t DatePartType, p DatePart) { d.Parts[t] = p }

// IsEmpty reports whether no sub-form is set.
func (d Date) IsEmpty() bool {
	for _, p := range d.Parts {
		if p.IsSet() {
			return false
		}
	}
	return true
}

// DateContext supplies the vocabulary labels date assembly depends on.
type DateContext struct {
	Calendars         map[ID]string
	DateTypes         map[ID]string
	Periods           map[ID]string
	DefaultCalendarID ID
}

// NewDateContext collects date vocabulary labels from a view. The default
// calendar is the default authority's default calendar.
func NewDateContext(view TransactionView) DateContext {
	ctx := DateContext{
		Calendars: make(map[ID]string),
		DateTypes: make(map[ID]string),
		Periods:   make(map[ID]string),
	}
	for _, c := range view.ListCalendars() {
		ctx.Calendars[c.ID] = c.Name
	}
	for _, t := range view.ListDateTypes() {
		ctx.DateTypes[t.ID] = t.Name
	}
	for _, p := range view.ListDatePeriods() {
		ctx.Periods[p.ID] = p.Name
	}
	if a, ok := DefaultAuthority(view); ok {
		ctx.DefaultCalendarID = a.DefaultCalendarID
	}
	return ctx
}

const unspecifiedDate = "[unspecified]"

// Assemble renders the date in human readable form, e.g.
// "c. 1850? – at or before 1900" or "fl. 1820".
func (d Date) Assemble(ctx DateContext) string {
	var out string
	if d.Parts[PointTerminusPost].IsSet() || d.Parts[PointDate].IsSet() || d.Parts[PointTerminusAnte].IsSet() {
		out = d.assembleSegment(ctx, PointTerminusPost)
	} else {
		start := d.assembleSegment(ctx, StartTerminusPost)
		end := d.assembleSegment(ctx, EndTerminusPost)
		if start != "" || end != "" {
			out = start + " – " + end
		}
	}
	if out == "" {
		return unspecifiedDate
	}
	prefix := ""
	if ctx.Periods[d.PeriodID] == "floruit" {
		prefix = "fl. "
	}
	return strings.TrimSpace(prefix + out)
}

// assembleSegment renders the segment whose terminus post quem is at first.
func (d Date) assembleSegment(ctx DateContext, first DatePartType) string {
	if date := d.assemblePart(ctx, first+1); date != "" {
		return date
	}
	post := d.assemblePart(ctx, first)
	ante := d.assemblePart(ctx, first+2)
	var date string
	if post != "" {
		date = "at or after " + post
		if ante != "" {
			date += " and "
		}
	}
	if ante != "" {
		date += "at or before " + ante
	}
	return date
}

func (d Date) assemblePart(ctx DateContext, t DatePartType) string {
	p := d.Parts[t]
	if !p.IsSet() {
		return ""
	}
	var b strings.Builder
	if ctx.DateTypes[p.DateTypeID] == "circa" {
		b.WriteString("c. ")
	}
	b.WriteString(p.Raw)
	if !p.Confident {
		b.WriteString("?")
	}
	if p.CalendarID != 0 && p.CalendarID != ctx.DefaultCalendarID {
		b.WriteString(" (")
		b.WriteString(ctx.Calendars[p.CalendarID])
		b.WriteString(" calendar)")
	}
	return b.String()
}
