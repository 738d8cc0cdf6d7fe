package main

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Role selects which identity a work item is attributed to.
type Role string

const (
	RoleOperator  Role = "operator"
	RoleInspector Role = "inspector"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleOperator, RoleInspector:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role '%s': must be 'operator' or 'inspector'", s)
	}
}

// AttributionSummary totals the cumulative buckets of one aggregation.
type AttributionSummary struct {
	Identities int     `json:"total_identities"`
	Positions  int64   `json:"total_positions"`
	Produced   int64   `json:"total_produced"`
	Accepted   int64   `json:"total_accepted"`
	Defects    int64   `json:"total_defects"`
	AvgQuality float64 `json:"avg_quality"`
}

// Attribution is the full result of one aggregation run.
type Attribution struct {
	Role       Role
	Days       int
	Daily      []AttributionBucket
	Cumulative []AttributionBucket
	Summary    AttributionSummary
	Best       *AttributionBucket // operator role only, nil when empty
	Worst      *AttributionBucket
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// setRates fills the derived percentage columns. A zero denominator yields
// zero rates rather than an excluded or null bucket. Amounts exceeding the
// produced quantity are observed data and pass through uncapped, so rates
// above 100 are possible.
func (b *AttributionBucket) setRates() {
	if b.Produced > 0 {
		b.QualityRate = round2(float64(b.Accepted) / float64(b.Produced) * 100)
		b.DefectRate = round2(float64(b.Defects) / float64(b.Produced) * 100)
		b.Efficiency = b.QualityRate
	} else {
		b.QualityRate, b.DefectRate, b.Efficiency = 0, 0, 0
	}
}

// AggregateAttribution computes daily and cumulative attribution buckets
// over the trailing window [now-days .. now] in shop-local calendar days.
// Operator-role items are bucketed per (operator, machine) and may be
// narrowed to one machine; inspector-role items are bucketed per inspector.
// An empty input or an empty window yields empty buckets and a zeroed
// summary, not an error. A negative days value is rejected.
func AggregateAttribution(items []WorkItem, role Role, now time.Time, loc *time.Location, days int, machine string) (Attribution, error) {
	if days < 0 {
		return Attribution{}, fmt.Errorf("invalid days %d: must be >= 0", days)
	}
	if role != RoleOperator && role != RoleInspector {
		return Attribution{}, fmt.Errorf("unknown role '%s'", role)
	}

	start := windowStart(now, loc, days)
	daily := make(map[string]*AttributionBucket)
	cumulative := make(map[string]*AttributionBucket)

	for _, w := range items {
		var identity string
		var when time.Time
		switch role {
		case RoleOperator:
			identity, when = w.Operator, w.DateFinished
			if w.Quantity <= 0 {
				continue
			}
			if machine != "" && machine != "all" && w.MachineName != machine {
				continue
			}
		case RoleInspector:
			identity, when = w.Inspector, w.InspectionDate
		}
		if identity == "" || when.IsZero() || when.Before(start) {
			continue
		}

		machineKey := ""
		if role == RoleOperator {
			machineKey = w.MachineName
		}
		date := dayStart(when, loc).Format("2006-01-02")

		for _, target := range []struct {
			m    map[string]*AttributionBucket
			date string
		}{
			{daily, date},
			{cumulative, ""},
		} {
			key := identity + "\x00" + machineKey + "\x00" + target.date
			b, ok := target.m[key]
			if !ok {
				b = &AttributionBucket{Identity: identity, Machine: machineKey, BucketDate: target.date}
				target.m[key] = b
			}
			b.Positions++
			b.Produced += w.Quantity
			b.Accepted += w.AcceptedAmount
			b.Defects += w.DefectAmount
			if b.FirstDate.IsZero() || when.Before(b.FirstDate) {
				b.FirstDate = when
			}
			if when.After(b.LastDate) {
				b.LastDate = when
			}
		}
	}

	result := Attribution{Role: role, Days: days}
	for _, b := range daily {
		b.setRates()
		result.Daily = append(result.Daily, *b)
	}
	for _, b := range cumulative {
		b.setRates()
		result.Cumulative = append(result.Cumulative, *b)
	}

	// Newest day first, then identity, mirroring the dashboard tables.
	sort.Slice(result.Daily, func(i, j int) bool {
		if result.Daily[i].BucketDate != result.Daily[j].BucketDate {
			return result.Daily[i].BucketDate > result.Daily[j].BucketDate
		}
		if result.Daily[i].Identity != result.Daily[j].Identity {
			return result.Daily[i].Identity < result.Daily[j].Identity
		}
		return result.Daily[i].Machine < result.Daily[j].Machine
	})

	switch role {
	case RoleOperator:
		RankOperators(result.Cumulative)
		if len(result.Cumulative) > 0 {
			best := result.Cumulative[0]
			worst := result.Cumulative[len(result.Cumulative)-1]
			result.Best = &best
			result.Worst = &worst
		}
	case RoleInspector:
		sort.Slice(result.Cumulative, func(i, j int) bool {
			if result.Cumulative[i].Positions != result.Cumulative[j].Positions {
				return result.Cumulative[i].Positions > result.Cumulative[j].Positions
			}
			return result.Cumulative[i].Identity < result.Cumulative[j].Identity
		})
	}

	seen := make(map[string]bool)
	for _, b := range result.Cumulative {
		if !seen[b.Identity] {
			seen[b.Identity] = true
			result.Summary.Identities++
		}
		result.Summary.Positions += b.Positions
		result.Summary.Produced += b.Produced
		result.Summary.Accepted += b.Accepted
		result.Summary.Defects += b.Defects
	}
	if result.Summary.Produced > 0 {
		result.Summary.AvgQuality = round2(float64(result.Summary.Accepted) / float64(result.Summary.Produced) * 100)
	}

	return result, nil
}

// RankOperators orders cumulative operator buckets best-first by efficiency.
// Equal efficiency breaks ties by identity ascending, then machine
// ascending, so ranking is deterministic across runs.
func RankOperators(buckets []AttributionBucket) {
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Efficiency != buckets[j].Efficiency {
			return buckets[i].Efficiency > buckets[j].Efficiency
		}
		if buckets[i].Identity != buckets[j].Identity {
			return buckets[i].Identity < buckets[j].Identity
		}
		return buckets[i].Machine < buckets[j].Machine
	})
}
