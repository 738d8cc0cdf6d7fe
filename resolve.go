package main

import (
	"sort"
	"strings"
)

// ExtractSurname returns the first whitespace-delimited token of a free-text
// name. Names arrive as "Surname FirstName Patronymic", so the leading token
// is the family name. An all-whitespace input falls back to the original
// string, which matches nothing.
func ExtractSurname(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return name
	}
	return fields[0]
}

// ResolveInspector matches inspection records against the surname extracted
// from query. The match is a case-sensitive prefix over the stored inspector
// identity, as the data records it. Every distinct matching identity is
// kept: two inspectors sharing a surname both appear, and disambiguation is
// left to the caller. Identities are ordered by record count descending,
// then name ascending; history keeps the repository order (inspection date
// descending).
func ResolveInspector(records []WorkItem, query string) ResolveResult {
	surname := ExtractSurname(query)
	result := ResolveResult{Query: query, Surname: surname}

	counts := make(map[string]int)
	for _, w := range records {
		if w.Inspector == "" || !strings.HasPrefix(w.Inspector, surname) {
			continue
		}
		if w.InspectionDate.IsZero() {
			continue
		}
		counts[w.Inspector]++
		result.History = append(result.History, w)
	}

	for identity := range counts {
		result.Identities = append(result.Identities, identity)
	}
	sort.Slice(result.Identities, func(i, j int) bool {
		a, b := result.Identities[i], result.Identities[j]
		if counts[a] != counts[b] {
			return counts[a] > counts[b]
		}
		return a < b
	})
	return result
}
