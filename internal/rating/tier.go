package rating

type Tier struct {
	Threshold int
	Name      string
}

// Ascending threshold order matters: TierFor picks the last band reached.
var tiers = []Tier{
	{0, "Novice"},
	{1600, "Competitor"},
	{1800, "Pro"},
	{2000, "Master"},
	{2200, "Grand Master"},
}

// TierFor returns the name of the highest tier whose threshold is <= rating.
func TierFor(r int) string {
	name := tiers[0].Name
	for _, t := range tiers {
		if r >= t.Threshold {
			name = t.Name
		}
	}
	return name
}

// Tiers returns every tier in ascending threshold order. Callers that mirror
// tiers into external labels use this to revoke stale ones, keeping tier
// membership mutually exclusive.
func Tiers() []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	return out
}
