package domain

import (
	"math/rand/v2"
	"sort"
)

// ReplenishQueue converts outstanding demand into new queue entries. It only
// triggers on an empty queue so a long-running queue is never reshuffled
// mid-flight: every member with positive demand gets exactly one slot, in a
// uniformly random order, and their remaining demand drops by one. The
// shuffle is injectable for deterministic tests; nil uses math/rand.
func ReplenishQueue(demand map[string]int, queue []string, shuffle func([]string)) []string {
	if len(queue) > 0 {
		return queue
	}
	recipients := make([]string, 0, len(demand))
	for name, count := range demand {
		if count > 0 {
			recipients = append(recipients, name)
		}
	}
	if len(recipients) == 0 {
		return queue
	}
	// Map iteration order is already unspecified; sort first so the shuffle
	// alone decides the permutation.
	sort.Strings(recipients)
	if shuffle == nil {
		shuffle = func(names []string) {
			rand.Shuffle(len(names), func(i, j int) {
				names[i], names[j] = names[j], names[i]
			})
		}
	}
	shuffle(recipients)
	for _, name := range recipients {
		demand[name]--
	}
	return append(queue, recipients...)
}

// RemoveFromQueue drops every queue entry for a member. Used when a member
// withdraws their demand entirely.
func RemoveFromQueue(queue []string, username string) []string {
	kept := queue[:0]
	for _, name := range queue {
		if name != username {
			kept = append(kept, name)
		}
	}
	return kept
}

// RemoveFirstFromQueue drops only the first queue entry for a member,
// preserving remaining duplicates from multiple units of demand.
func RemoveFirstFromQueue(queue []string, username string) []string {
	for i, name := range queue {
		if name == username {
			return append(queue[:i], queue[i+1:]...)
		}
	}
	return queue
}
