package main

// PriorityByKey collapses priority markers into one canonical flag per
// barcode: true if any marker for that barcode is priority. Collapsing here
// keeps the queue join one-to-one — a work item can never be duplicated by
// multiple markers sharing its barcode. Barcodes with no marker are simply
// absent and read as false.
func PriorityByKey(markers []PriorityMarker) map[string]bool {
	byKey := make(map[string]bool, len(markers))
	for _, m := range markers {
		if m.Barcode == "" {
			continue
		}
		byKey[m.Barcode] = byKey[m.Barcode] || m.IsPriority
	}
	return byKey
}

// CountPriority returns how many queue entries carry the critical flag.
func CountPriority(entries []QueueEntry) int {
	n := 0
	for _, e := range entries {
		if e.IsCriticalPriority {
			n++
		}
	}
	return n
}
