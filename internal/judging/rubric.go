package judging

import "strings"

// FlatItemCeiling is the per-item ceiling used for ranking math. Rankings
// deliberately do not consult each item's configured MaxPoints.
const FlatItemCeiling = 10.0

type Rubric []RubricItem

func DefaultRubric() Rubric {
	return Rubric{
		{Key: "problem", Label: "Introduction/Clarity", Description: "Imagination in thinking problem and solution. Interest in new, unknown, and complexity. Motivation.", MaxPoints: DefaultMaxPoints},
		{Key: "originality", Label: "Originality of Concept", Description: "Novelty in approach. Creativity and Innovation in thinking. Creativity in whole approach.", MaxPoints: DefaultMaxPoints},
		{Key: "description", Label: "Description of Concepts", Description: "How well did the team understand the problem? Connection to UN SDGs. Research and Analysis.", MaxPoints: DefaultMaxPoints},
		{Key: "viability", Label: "Viability of Concept", Description: "How well did the team think over their solution? Research and Analysis of Solution. Effectiveness.", MaxPoints: DefaultMaxPoints},
		{Key: "design", Label: "Description of Design", Description: "How much solution is actually done? Knowledge of Software/Hardware. Future Scope.", MaxPoints: DefaultMaxPoints},
		{Key: "delivery", Label: "Delivery/Presentation", Description: "Presented in a holistic way? Creativity in presentation. Confidence while answering.", MaxPoints: DefaultMaxPoints},
	}
}

func (r Rubric) Keys() []string {
	out := make([]string, len(r))
	for i, it := range r {
		out[i] = it.Key
	}
	return out
}

func (r Rubric) Find(key string) (RubricItem, bool) {
	for _, it := range r {
		if it.Key == key {
			return it, true
		}
	}
	return RubricItem{}, false
}

// MaxPossible is the ranking ceiling: item count times FlatItemCeiling.
func (r Rubric) MaxPossible() float64 {
	return float64(len(r)) * FlatItemCeiling
}

// normalize trims fields and fills in the default maxPoints.
func (r Rubric) normalize() Rubric {
	out := make(Rubric, len(r))
	for i, it := range r {
		it.Key = strings.TrimSpace(it.Key)
		it.Label = strings.TrimSpace(it.Label)
		it.Description = strings.TrimSpace(it.Description)
		if it.MaxPoints == 0 {
			it.MaxPoints = DefaultMaxPoints
		}
		out[i] = it
	}
	return out
}

func (r Rubric) validate() error {
	var p problems
	seen := map[string]bool{}
	for i, it := range r {
		if msgs := problemsOf(checkStruct(it)); len(msgs) > 0 {
			for _, msg := range msgs {
				p.addf("rubric[%d].%s", i, msg)
			}
			continue
		}
		if seen[it.Key] {
			p.addf("rubric[%d].key: duplicate key %q", i, it.Key)
		}
		seen[it.Key] = true
	}
	return p.err()
}

// checkScores verifies that scores covers exactly the rubric keys and that
// every value lies within [0, maxPoints] for its item.
func (r Rubric) checkScores(scores Scores) error {
	var p problems
	for _, it := range r {
		v, ok := scores[it.Key]
		if !ok {
			p.addf("scores.%s: required", it.Key)
			continue
		}
		if v < 0 || v > it.MaxPoints {
			p.addf("scores.%s: %v outside [0, %v]", it.Key, v, it.MaxPoints)
		}
	}
	for k := range scores {
		if _, ok := r.Find(k); !ok {
			p.addf("scores.%s: not in rubric", k)
		}
	}
	return p.err()
}
