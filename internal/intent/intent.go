// Package intent classifies a query string into one of four retrieval
// intents and emits the per-intent weight profiles the composite scorer
// consumes.
package intent

import (
	"regexp"
	"sort"
	"strings"

	"github.com/aayoawoyemi/ori-mnemos/internal/logging"
)

// Intent is one of the four query classifications the classifier assigns.
type Intent string

const (
	Semantic   Intent = "semantic"
	Episodic   Intent = "episodic"
	Procedural Intent = "procedural"
	Decision   Intent = "decision"
)

// rule pairs an intent with the case-insensitive regexes that count as a
// match for it. Order is fixed: the intent with the most matches wins,
// and any tie for the most matches (including all zero) defaults to
// Semantic.
type rule struct {
	intent   Intent
	patterns []*regexp.Regexp
}

func compile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}

var rules = []rule{
	{Decision, compile(`\bwhy did\b`, `\bwhy do we\b`, `\bwhich option\b`, `\bdecided to\b`, `\btrade-?off\b`, `\bchose\b`, `\bchoose\b`)},
	{Procedural, compile(`\bhow do i\b`, `\bhow to\b`, `\bsteps to\b`, `\brunbook\b`, `\bdeploy\b`, `\bsetup\b`, `\bset up\b`, `\bconfigure\b`)},
	{Episodic, compile(`\bwhen did\b`, `\blast time\b`, `\bremember when\b`, `\bwhat happened\b`, `\byesterday\b`, `\blast week\b`)},
	{Semantic, compile(`\bwhat is\b`, `\bwhat are\b`, `\bexplain\b`, `\bdefine\b`, `\bmeaning of\b`)},
}

// SpaceWeights are the six composite-scorer space weights for an intent,
// summing to 1.
type SpaceWeights struct {
	Text, Temporal, Vitality, Importance, Type, Community float64
}

// SplitWeights are the three text-field split weights for an intent,
// summing to 1.
type SplitWeights struct {
	Title, Description, Body float64
}

var spaceWeightTable = map[Intent]SpaceWeights{
	Episodic:   {Text: .40, Temporal: .25, Vitality: .15, Importance: .05, Type: .05, Community: .10},
	Procedural: {Text: .30, Temporal: .05, Vitality: .10, Importance: .30, Type: .10, Community: .15},
	Semantic:   {Text: .65, Temporal: .05, Vitality: .10, Importance: .10, Type: .05, Community: .05},
	Decision:   {Text: .30, Temporal: .15, Vitality: .10, Importance: .10, Type: .30, Community: .05},
}

var splitWeightTable = map[Intent]SplitWeights{
	Semantic:   {Title: .50, Description: .30, Body: .20},
	Episodic:   {Title: .20, Description: .20, Body: .60},
	Decision:   {Title: .40, Description: .40, Body: .20},
	Procedural: {Title: .30, Description: .30, Body: .40},
}

// SpaceWeightsFor returns the space-weight profile for an intent.
func SpaceWeightsFor(i Intent) SpaceWeights { return spaceWeightTable[i] }

// SplitWeightsFor returns the split-weight profile for an intent.
func SplitWeightsFor(i Intent) SplitWeights { return splitWeightTable[i] }

// Classification is the classifier's output.
type Classification struct {
	Intent     Intent
	Confidence float64
	Entities   []string
}

// Classify runs the fixed ordered rule table over query, then extracts
// entities by substring-matching against knownTitles (lowercased,
// preferring longer matches).
func Classify(query string, knownTitles []string) Classification {
	timer := logging.StartTimer(logging.CategoryIntent, "Classify")
	defer timer.Stop()

	counts := make(map[Intent]int, len(rules))
	maxCount := 0
	for _, r := range rules {
		count := 0
		for _, p := range r.patterns {
			if p.MatchString(query) {
				count++
			}
		}
		counts[r.intent] = count
		if count > maxCount {
			maxCount = count
		}
	}

	var atMax []Intent
	for _, r := range rules {
		if counts[r.intent] == maxCount {
			atMax = append(atMax, r.intent)
		}
	}

	best := Semantic
	bestCount := maxCount
	if len(atMax) == 1 {
		best = atMax[0]
	}
	// len(atMax) > 1 (a tie, including an all-zero tie) defaults to
	// Semantic.

	var confidence float64
	switch {
	case bestCount >= 2:
		confidence = 1.0
	case bestCount == 1:
		confidence = 0.7
	default:
		confidence = 0.5
	}

	return Classification{
		Intent:     best,
		Confidence: confidence,
		Entities:   extractEntities(query, knownTitles),
	}
}

// extractEntities substring-matches the lowercased query against known
// titles, longest title first, so a shorter title contained within a
// longer one never displaces it.
func extractEntities(query string, knownTitles []string) []string {
	lowerQuery := strings.ToLower(query)

	sorted := make([]string, len(knownTitles))
	copy(sorted, knownTitles)
	sort.Slice(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })

	var matched []string
	covered := make([]bool, len(lowerQuery))
	for _, title := range sorted {
		lowerTitle := strings.ToLower(title)
		if lowerTitle == "" {
			continue
		}
		idx := strings.Index(lowerQuery, lowerTitle)
		if idx < 0 {
			continue
		}
		end := idx + len(lowerTitle)
		overlap := false
		for i := idx; i < end; i++ {
			if covered[i] {
				overlap = true
				break
			}
		}
		if overlap {
			continue
		}
		for i := idx; i < end; i++ {
			covered[i] = true
		}
		matched = append(matched, title)
	}
	return matched
}

// TypeTarget returns the type-space target slots for an intent, used by
// the composite scorer's type-space cosine: decision targets the
// decision slot alone; procedural targets learning+insight;
// episodic and semantic both target idea+learning+insight. The type
// target carries no further per-intent bias, and semantic's split
// weights favor the title rather than the body.
func TypeTarget(i Intent) []string {
	switch i {
	case Decision:
		return []string{"decision"}
	case Procedural:
		return []string{"learning", "insight"}
	default: // Episodic, Semantic
		return []string{"idea", "learning", "insight"}
	}
}
