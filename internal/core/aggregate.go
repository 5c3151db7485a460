package core

import (
	"sort"

	"fibretrace/pkg/domain"
)

// Aggregation folds over flat item snapshots. Every function here is pure and
// recomputes from scratch on each call; item volumes are small enough that
// incremental maintenance is not worth its complexity.

// CountByKind tallies items per kind.
func CountByKind(items []TraceableItem) map[ItemKind]int {
	counts := make(map[ItemKind]int, 3)
	for _, item := range items {
		counts[item.Kind()]++
	}
	return counts
}

// SumWeight sums WeightKg over items of one kind. Kinds without a weight
// field contribute zero; they are never an error.
func SumWeight(items []TraceableItem, kind ItemKind) float64 {
	var total float64
	for _, item := range items {
		if item.Kind() != kind {
			continue
		}
		switch record := item.(type) {
		case domain.SortedPack:
			total += record.WeightKg
		case domain.FibrePack:
			total += record.WeightKg
		}
	}
	return total
}

// MaterialWeight is one bucket of a material breakdown.
type MaterialWeight struct {
	Material      string  `json:"material"`
	TotalWeightKg float64 `json:"total_weight_kg"`
}

// MaterialBreakdown groups sorted packs by material and sums their weights,
// preserving the order materials first appear. Grouping is exact-string and
// case-sensitive: inconsistent casing from freeform entry produces separate
// buckets, which operators resolve by fixing their vocabulary, not by the
// engine normalizing silently.
func MaterialBreakdown(items []TraceableItem) []MaterialWeight {
	index := make(map[string]int)
	var breakdown []MaterialWeight
	for _, item := range items {
		pack, ok := item.(domain.SortedPack)
		if !ok {
			continue
		}
		i, ok := index[pack.Material]
		if !ok {
			i = len(breakdown)
			index[pack.Material] = i
			breakdown = append(breakdown, MaterialWeight{Material: pack.Material})
		}
		breakdown[i].TotalWeightKg += pack.WeightKg
	}
	return breakdown
}

// RecentActivity returns the n most recently created items across all kinds,
// newest first. The sort is stable, so items sharing a timestamp keep the
// order the caller supplied.
func RecentActivity(items []TraceableItem, n int) []TraceableItem {
	if n <= 0 {
		return nil
	}
	recent := append([]TraceableItem(nil), items...)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].Created().After(recent[j].Created())
	})
	if len(recent) > n {
		recent = recent[:n]
	}
	return recent
}

// PerActorCount counts items recorded by one actor.
func PerActorCount(items []TraceableItem, actorID string) int {
	count := 0
	for _, item := range items {
		if item.Creator() == actorID {
			count++
		}
	}
	return count
}
