package mastery

// LevelInput is the evidence EvaluateLevel classifies.
type LevelInput struct {
	Mastery          map[string]float64 `json:"mastery"`
	AvgAccuracy      float64            `json:"avgAccuracy"`
	CompletedLessons int                `json:"completedLessons"`
}

type levelRule struct {
	rank        Rank
	minMastery  float64
	minAccuracy float64
	minLessons  int
}

// Checked in order; the first rule met wins.
var levelRules = []levelRule{
	{RankMaster, 0.90, 0.90, 20},
	{RankAdvanced, 0.75, 0.80, 10},
	{RankIntermediate, 0.50, 0.70, 5},
}

// EvaluateLevel classifies a learner. Average mastery over an empty map is 0.
func EvaluateLevel(in LevelInput) Rank {
	avg := averageMastery(in.Mastery)
	for _, r := range levelRules {
		if avg >= r.minMastery && in.AvgAccuracy >= r.minAccuracy && in.CompletedLessons >= r.minLessons {
			return r.rank
		}
	}
	return RankBeginner
}

func averageMastery(m map[string]float64) float64 {
	if len(m) == 0 {
		return 0
	}
	var sum float64
	for _, v := range m {
		sum += v
	}
	return sum / float64(len(m))
}
