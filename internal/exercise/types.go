// Package exercise classifies pose snapshots for each supported
// physiotherapy exercise: whether the current frame shows correct form, and
// which of the exercise's two pose states the body is in.
package exercise

import (
	"fmt"
	"strings"
)

// Type selects an exercise variant.
type Type string

const (
	HandsUp     Type = "handsUp"
	HandsCurl   Type = "handsCurl"
	SitAndReach Type = "sitAndReach"
)

// Types lists the supported exercises in display order.
var Types = []Type{HandsUp, HandsCurl, SitAndReach}

// State is a discrete pose-state label. The zero value means unset.
type State string

const (
	StateUnset    State = ""
	StateUp       State = "up"
	StateDown     State = "down"
	StateCurled   State = "curled"
	StateExtended State = "extended"
	StateReaching State = "reaching"
	StateUpright  State = "upright"
)

// typeAliases maps normalised spellings (lowercase, separators removed) to
// the canonical type. Clients send tab values ("handsUp"), display labels
// ("Sit & Reach") or snake case ("hands_curl").
var typeAliases = map[string]Type{
	"handsup":     HandsUp,
	"handup":      HandsUp,
	"raisehands":  HandsUp,
	"handscurl":   HandsCurl,
	"handcurl":    HandsCurl,
	"curl":        HandsCurl,
	"sitandreach": SitAndReach,
	"sitreach":    SitAndReach,
}

var typeNormalizer = strings.NewReplacer("&", "and", " ", "", "-", "", "_", "")

// ParseType resolves an exercise name in any of its accepted spellings.
func ParseType(s string) (Type, error) {
	key := typeNormalizer.Replace(strings.ToLower(strings.TrimSpace(s)))
	if t, ok := typeAliases[key]; ok {
		return t, nil
	}
	return "", fmt.Errorf("unknown exercise %q", s)
}
