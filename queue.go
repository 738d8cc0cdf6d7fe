package main

import (
	"sort"
	"time"
)

// IsPending reports whether a work item is waiting for inspection: finished
// on or after the retention cutoff, produced a positive amount, and not yet
// assigned an inspector.
func IsPending(w WorkItem, cutoff time.Time) bool {
	if w.Inspector != "" {
		return false
	}
	if w.DateFinished.IsZero() || w.DateFinished.Before(cutoff) {
		return false
	}
	return w.Quantity > 0
}

// BuildQueue filters items down to pending work, attaches the canonical
// priority flag, orders critical items first and oldest-finished first
// within each tier, and caps the result. The cap is applied strictly after
// ordering so it never pushes a priority item out in favor of a newer
// non-priority one. limit <= 0 means no cap.
func BuildQueue(items []WorkItem, priority map[string]bool, cutoff time.Time, limit int) []QueueEntry {
	entries := make([]QueueEntry, 0, len(items))
	for _, w := range items {
		if !IsPending(w, cutoff) {
			continue
		}
		entries = append(entries, QueueEntry{
			WorkItem:           w,
			IsCriticalPriority: priority[w.Barcode],
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsCriticalPriority != entries[j].IsCriticalPriority {
			return entries[i].IsCriticalPriority
		}
		return entries[i].DateFinished.Before(entries[j].DateFinished)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}
