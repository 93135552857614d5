package classify

// Urgency grades how quickly a complaint needs attention.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// Urgencies lists all valid urgency levels in ascending severity.
var Urgencies = []Urgency{UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical}

// Valid reports whether u is a recognized urgency level.
func (u Urgency) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return true
	}
	return false
}

// CategoryOther is the catch-all category. Unrecognized categories are
// coerced to it at the boundary, and the generic fallback routing rule
// is keyed on it.
const CategoryOther = "other"

// Categories is the closed set of complaint categories the engine
// understands.
var Categories = []string{
	"sewage", "drainage", "water", "electricity", "streetlight",
	"road", "pothole", "garbage", "cleanliness", "health",
	"mosquito", "disease", "transport", "traffic", "pollution",
	"noise", "tree", CategoryOther,
}

var categorySet = func() map[string]bool {
	m := make(map[string]bool, len(Categories))
	for _, c := range Categories {
		m[c] = true
	}
	return m
}()

// ValidCategory reports whether c is in the closed category set.
func ValidCategory(c string) bool { return categorySet[c] }

// Classification is the fully validated result of classifying a
// complaint text. The engine only ever operates on values that have
// passed through Normalize.
type Classification struct {
	Category   string  `json:"category"`
	Urgency    Urgency `json:"urgency"`
	Location   string  `json:"location,omitempty"`
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// NeedsReview reports whether the classification is too uncertain for
// automatic assignment. The threshold is policy, supplied by the caller.
func (c Classification) NeedsReview(threshold float64) bool {
	return c.Confidence < threshold
}

// Normalize coerces an untrusted classification into a valid one.
// Unknown categories become "other", unknown urgencies "medium", and
// confidence is clamped to [0,1]. This runs at the boundary so invalid
// values never reach the routing or lifecycle code.
func Normalize(c Classification) Classification {
	if !ValidCategory(c.Category) {
		c.Category = CategoryOther
	}
	if !c.Urgency.Valid() {
		c.Urgency = UrgencyMedium
	}
	if c.Intent == "" {
		c.Intent = "General complaint"
	}
	if c.Confidence < 0 {
		c.Confidence = 0
	}
	if c.Confidence > 1 {
		c.Confidence = 1
	}
	return c
}

// Fallback is the safe classification substituted when the external
// classifier fails. Its zero confidence forces manual review.
func Fallback() Classification {
	return Classification{
		Category:   CategoryOther,
		Urgency:    UrgencyMedium,
		Intent:     "Unable to classify automatically",
		Confidence: 0,
		Reasoning:  "classification unavailable",
	}
}
