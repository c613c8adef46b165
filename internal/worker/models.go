package worker

// Model is one of the tracker's speed/accuracy trade-offs.
type Model struct {
	Tier        int
	Description string
}

// Models lists the tiers accepted by the tracker's -m flag, fastest first.
var Models = []Model{
	{-1, "Very very fast and very low accuracy"},
	{0, "Very fast, low accuracy model"},
	{1, "Slightly slower model with better accuracy"},
	{2, "Slower model with good accuracy"},
	{3, "Slowest, highest accuracy model"},
}

// DefaultModel is the tier used when none is requested.
const DefaultModel = 1

// ValidModel reports whether tier is accepted by the tracker.
func ValidModel(tier int) bool {
	for _, m := range Models {
		if m.Tier == tier {
			return true
		}
	}
	return false
}
