package domain

// Quality is the user-facing resolution tier. The remote side exposes a
// much finer-grained ladder; these three buckets act as a ceiling for
// both playback and downloads.
type Quality string

const (
	QualityHigh   Quality = "high"
	QualityMedium Quality = "medium"
	QualityLow    Quality = "low"
)

// Valid reports whether q is one of the known tiers.
func (q Quality) Valid() bool {
	switch q {
	case QualityHigh, QualityMedium, QualityLow:
		return true
	}
	return false
}

// degradations lists, per requested ceiling, the tiers to try in order.
// Resolution never upgrades above the ceiling.
var degradations = map[Quality][]Quality{
	QualityHigh:   {QualityHigh, QualityMedium, QualityLow},
	QualityMedium: {QualityMedium, QualityLow},
	QualityLow:    {QualityLow},
}

// URLAtMost picks a playable URL out of a quality→URL mapping, degrading
// from the requested ceiling down to the best available lower tier.
// The second return is false when nothing at or below the ceiling exists.
func URLAtMost(urls map[Quality]string, ceiling Quality) (string, bool) {
	for _, q := range degradations[ceiling] {
		if u, ok := urls[q]; ok && u != "" {
			return u, true
		}
	}
	return "", false
}
