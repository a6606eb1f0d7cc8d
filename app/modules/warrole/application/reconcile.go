package warroleservice

import (
	"slices"
	"sort"
)

// Diff returns toAdd = B−A and toRemove = A−B, both sorted.
func Diff(a, b []string) (toAdd, toRemove []string) {
	inA := make(map[string]struct{}, len(a))
	for _, t := range a {
		inA[t] = struct{}{}
	}
	inB := make(map[string]struct{}, len(b))
	for _, t := range b {
		inB[t] = struct{}{}
	}
	for t := range inB {
		if _, ok := inA[t]; !ok {
			toAdd = append(toAdd, t)
		}
	}
	for t := range inA {
		if _, ok := inB[t]; !ok {
			toRemove = append(toRemove, t)
		}
	}
	sort.Strings(toAdd)
	sort.Strings(toRemove)
	return toAdd, toRemove
}

// Plan is the set of role mutations for one reconciliation.
type Plan struct {
	Revokes   []RoleChange
	Grants    []RoleChange
	Retained  []RoleChange
	Unclaimed []string
	// Complete is set when every tag in the current roster resolved.
	Complete bool
	// Next is the roster to persist when Complete.
	Next []RoleChange
}

// BuildPlan resolves the diff between prev and current into role changes.
//
// Tags are processed in sorted order. A removed tag is resolved through
// owners first and then through the user recorded on the previous roster.
// A user is revoked at most once and never while another of their accounts
// is in current. A user is granted at most once.
func BuildPlan(prev []RoleChange, current []string, owners map[string]int64) Plan {
	prevTags := make([]string, 0, len(prev))
	recorded := make(map[string]int64, len(prev))
	for _, e := range prev {
		prevTags = append(prevTags, e.Tag)
		recorded[e.Tag] = e.UserID
	}
	toAdd, toRemove := Diff(prevTags, current)

	var plan Plan
	unclaimed := map[string]struct{}{}

	staying := map[int64]struct{}{}
	curr := slices.Clone(current)
	sort.Strings(curr)
	curr = slices.Compact(curr)
	for _, t := range curr {
		if u, ok := owners[t]; ok {
			staying[u] = struct{}{}
			plan.Next = append(plan.Next, RoleChange{Tag: t, UserID: u})
		} else {
			unclaimed[t] = struct{}{}
		}
	}

	revoked := map[int64]struct{}{}
	for _, t := range toRemove {
		u, ok := owners[t]
		if !ok {
			unclaimed[t] = struct{}{}
			if u, ok = recorded[t]; !ok || u == 0 {
				continue
			}
		}
		change := RoleChange{Tag: t, UserID: u}
		if _, ok := staying[u]; ok {
			plan.Retained = append(plan.Retained, change)
			continue
		}
		if _, done := revoked[u]; done {
			continue
		}
		revoked[u] = struct{}{}
		plan.Revokes = append(plan.Revokes, change)
	}

	granted := map[int64]struct{}{}
	for _, t := range toAdd {
		u, ok := owners[t]
		if !ok {
			continue
		}
		if _, done := granted[u]; done {
			continue
		}
		granted[u] = struct{}{}
		plan.Grants = append(plan.Grants, RoleChange{Tag: t, UserID: u})
	}

	for t := range unclaimed {
		plan.Unclaimed = append(plan.Unclaimed, t)
	}
	sort.Strings(plan.Unclaimed)

	plan.Complete = true
	for _, t := range curr {
		if _, ok := unclaimed[t]; ok {
			plan.Complete = false
			break
		}
	}
	return plan
}
