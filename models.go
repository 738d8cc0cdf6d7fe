package main

import "time"

// WorkItem is one unit of production work moving toward quality inspection.
// The production system creates and mutates these rows; this service only
// reads them. Zero values stand in for SQL NULLs: an empty Inspector means
// "not yet inspected", a zero time means the date is not set.
type WorkItem struct {
	ID                int64
	OrderNumber       string
	PartName          string
	MachineName       string
	Operator          string
	Barcode           string // correlation key shared with priority markers
	Quantity          int64  // operator-produced amount
	DateStarted       time.Time
	DateFinished      time.Time
	Inspector         string
	InspectionDate    time.Time
	AcceptedAmount    int64
	DefectAmount      int64
	InspectionComment string
}

// Inspected reports whether quality inspection has completed for the item.
func (w WorkItem) Inspected() bool {
	return w.Inspector != "" && !w.InspectionDate.IsZero()
}

// PriorityMarker asserts urgency for a barcode. Markers are maintained
// independently of work items; several may share one barcode.
type PriorityMarker struct {
	Barcode     string
	OrderNumber string
	PartName    string
	IsPriority  bool
}

// QueueEntry is a work item with its resolved priority, built per request
// and never persisted.
type QueueEntry struct {
	WorkItem
	IsCriticalPriority bool
}

// AttributionBucket aggregates production or inspection totals for one
// identity. BucketDate is empty for cumulative buckets; Machine is set only
// for operator-role buckets.
type AttributionBucket struct {
	Identity    string
	Machine     string
	BucketDate  string // "2006-01-02" in shop-local time, "" = cumulative
	Positions   int64
	Produced    int64
	Accepted    int64
	Defects     int64
	QualityRate float64
	DefectRate  float64
	Efficiency  float64
	FirstDate   time.Time
	LastDate    time.Time
}

// InspectorIdentity is one distinct inspector as seen in the data, with the
// span of their recorded activity.
type InspectorIdentity struct {
	Identity    string
	TotalChecks int64
	FirstCheck  time.Time
	LastCheck   time.Time
}

// ResolveResult is the outcome of a surname lookup: every distinct inspector
// identity starting with the surname, plus their combined history. Ambiguity
// across same-surname people is preserved for the caller to present.
type ResolveResult struct {
	Query      string
	Surname    string
	Identities []string
	History    []WorkItem
}

// dayStart truncates t to midnight in loc.
func dayStart(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// windowStart returns midnight of the day `days` before now, so the window
// [windowStart, now] spans the trailing period inclusive of today.
func windowStart(now time.Time, loc *time.Location, days int) time.Time {
	return dayStart(now.In(loc).AddDate(0, 0, -days), loc)
}
