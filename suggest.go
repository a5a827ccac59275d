// suggest.go: "Did you mean" suggestions for unknown flags
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package janus

import (
	"sort"

	"github.com/agext/levenshtein"
)

const (
	// suggestionErrorRate is the share of the attempt length that the
	// best candidate may differ by.
	suggestionErrorRate = 0.50
	maxSuggestions      = 5
)

// suggestFlagNames returns the candidates closest to attempt. Each
// candidate is compared by its prefix of the attempt's length, so that
// "--verb" still finds "verbosity". Short attempts get no suggestions.
func suggestFlagNames(attempt string, candidates []string) []string {
	attemptRunes := []rune(attempt)
	if len(attemptRunes) <= 2 || len(candidates) == 0 {
		return nil
	}

	type scored struct {
		distance int
		name     string
	}
	scores := make([]scored, 0, len(candidates))
	for _, candidate := range candidates {
		prefix := []rune(candidate)
		if len(prefix) > len(attemptRunes) {
			prefix = prefix[:len(attemptRunes)]
		}
		scores = append(scores, scored{
			distance: levenshtein.Distance(attempt, string(prefix), nil),
			name:     candidate,
		})
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].distance != scores[j].distance {
			return scores[i].distance < scores[j].distance
		}
		return scores[i].name < scores[j].name
	})

	least := scores[0].distance
	if float64(least) >= suggestionErrorRate*float64(len(attemptRunes)) {
		return nil
	}
	var out []string
	for _, s := range scores {
		if s.distance != least || len(out) == maxSuggestions {
			break
		}
		out = append(out, s.name)
	}
	return out
}

func (fv *FlagValues) suggestions(attempt string) []string {
	var candidates []string
	for _, name := range append(fv.Names(), "flagfile", "undefok") {
		if name != attempt {
			candidates = append(candidates, name)
		}
	}
	return suggestFlagNames(attempt, candidates)
}
