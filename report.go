package main

import (
	"fmt"
	"strings"
	"time"
)

// ShiftReport is the material for one end-of-day summary.
type ShiftReport struct {
	Date          time.Time
	PendingTotal  int
	CriticalTotal int
	OldestPending time.Time
	CheckedToday  int
	PartsToday    int64
	TopInspectors []AttributionBucket
}

// BuildShiftReport condenses the queue and today's inspections into report
// material for the scheduler.
func BuildShiftReport(now time.Time, queue []QueueEntry, today []WorkItem, inspectors []AttributionBucket) ShiftReport {
	r := ShiftReport{
		Date:          now,
		PendingTotal:  len(queue),
		CriticalTotal: CountPriority(queue),
		CheckedToday:  len(today),
		TopInspectors: inspectors,
	}
	if len(queue) > 0 {
		r.OldestPending = queue[0].DateFinished
		for _, e := range queue {
			if e.DateFinished.Before(r.OldestPending) {
				r.OldestPending = e.DateFinished
			}
		}
	}
	for _, w := range today {
		r.PartsToday += w.Quantity
	}
	return r
}

// FormatShiftReport renders the summary as Slack-flavored markdown.
func FormatShiftReport(r ShiftReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*QC shift summary — %s*\n", r.Date.Format("Mon Jan 2"))
	fmt.Fprintf(&b, "Awaiting inspection: %d", r.PendingTotal)
	if r.CriticalTotal > 0 {
		fmt.Fprintf(&b, " (%d critical)", r.CriticalTotal)
	}
	b.WriteString("\n")
	if !r.OldestPending.IsZero() {
		fmt.Fprintf(&b, "Oldest waiting since: %s\n", r.OldestPending.Format("Jan 2"))
	}
	fmt.Fprintf(&b, "Inspected today: %d positions, %d parts\n", r.CheckedToday, r.PartsToday)

	if len(r.TopInspectors) > 0 {
		b.WriteString("Top inspectors today:\n")
		limit := len(r.TopInspectors)
		if limit > 5 {
			limit = 5
		}
		for _, insp := range r.TopInspectors[:limit] {
			fmt.Fprintf(&b, "• %s — %d positions, %d parts\n", insp.Identity, insp.Positions, insp.Produced)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
