// Package classify maps meet names to competition tiers and bodyweights to
// IPF weight classes.
package classify

import "strings"

// Tier is the competitive level of a meet. Lower values are higher tiers.
type Tier int

// Meet tiers.
const (
	International Tier = iota + 1
	National
	State
	Local
)

func (t Tier) String() string {
	switch t {
	case International:
		return "international"
	case National:
		return "national"
	case State:
		return "state"
	default:
		return "local"
	}
}

// ParseTier maps a tier label back to its Tier. Unknown labels are Local.
func ParseTier(s string) Tier {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "international":
		return International
	case "national":
		return National
	case "state":
		return State
	default:
		return Local
	}
}

// Rule tags meet names containing any of its keywords.
type Rule struct {
	Keywords []string
	Tier     Tier
}

// Match reports whether the lowercased name contains one of the keywords.
func (r Rule) Match(lowerName string) bool {
	for _, k := range r.Keywords {
		if strings.Contains(lowerName, k) {
			return true
		}
	}
	return false
}

// TierRules are evaluated in order and the first match wins. "national" is
// checked before the international keywords, so "International Open" is a
// national meet.
var TierRules = []Rule{
	{Keywords: []string{"national"}, Tier: National},
	{Keywords: []string{"international", "world", "commonwealth"}, Tier: International},
	{Keywords: []string{"state"}, Tier: State},
}

// ClassifyMeetTier returns the tier of a meet name, case-insensitively.
// Names matching no rule are Local.
func ClassifyMeetTier(meetName string) Tier {
	name := strings.ToLower(meetName)
	for _, r := range TierRules {
		if r.Match(name) {
			return r.Tier
		}
	}
	return Local
}
