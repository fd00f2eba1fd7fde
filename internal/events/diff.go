package events

import "github.com/spec-kit/helpdesk-service/internal/domain"

// ComputeCardDiff builds a field-level before/after diff between two card
// snapshots. Scalar fields report old/new values; the labels set is reduced
// to added/removed deltas.
func ComputeCardDiff(before, after *domain.Card) map[string]FieldDiff {
	diff := make(map[string]FieldDiff)
	if before == nil || after == nil {
		return diff
	}

	if before.Title != after.Title {
		diff["title"] = FieldDiff{Old: before.Title, New: after.Title}
	}
	if before.Status != after.Status {
		diff["status"] = FieldDiff{Old: string(before.Status), New: string(after.Status)}
	}
	if optional(before.AssignedTo) != optional(after.AssignedTo) {
		diff["assigned_to"] = FieldDiff{Old: optional(before.AssignedTo), New: optional(after.AssignedTo)}
	}
	if added, removed := setDelta(before.Labels, after.Labels); len(added) > 0 || len(removed) > 0 {
		diff["labels"] = FieldDiff{Added: added, Removed: removed}
	}
	return diff
}

func optional(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// setDelta reduces two string sets to what was added and what was removed.
func setDelta(before, after []string) (added, removed []string) {
	beforeSet := make(map[string]struct{}, len(before))
	for _, v := range before {
		beforeSet[v] = struct{}{}
	}
	afterSet := make(map[string]struct{}, len(after))
	for _, v := range after {
		afterSet[v] = struct{}{}
	}
	for _, v := range after {
		if _, ok := beforeSet[v]; !ok {
			added = append(added, v)
		}
	}
	for _, v := range before {
		if _, ok := afterSet[v]; !ok {
			removed = append(removed, v)
		}
	}
	return added, removed
}
