package catalog

// Lesson is the immutable metadata the recommender needs for one lesson.
type Lesson struct {
	ID       string     `json:"-" yaml:"-"`
	Title    string     `json:"title" yaml:"title"`
	Topic    string     `json:"topic" yaml:"topic"`
	Level    int        `json:"level" yaml:"level"`
	Prereqs  []string   `json:"prereqs" yaml:"prereqs"`
	Tags     []string   `json:"tags" yaml:"tags"`
	QuizPool []QuizItem `json:"quiz_pool" yaml:"quiz_pool"`
}

// QuizItem references a question in the quiz bank.
type QuizItem struct {
	ID         string   `json:"id" yaml:"id"`
	Difficulty *float64 `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
	Tags       []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// DefaultDifficulty is assumed for quiz items without a difficulty.
const DefaultDifficulty = 2.0

// EffectiveDifficulty returns the difficulty, or DefaultDifficulty when unset.
func (q QuizItem) EffectiveDifficulty() float64 {
	if q.Difficulty == nil {
		return DefaultDifficulty
	}
	return *q.Difficulty
}

// Catalog maps lesson id to its metadata.
type Catalog map[string]Lesson

// IDs returns the lesson ids in no particular order.
func (c Catalog) IDs() []string {
	ids := make([]string, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	return ids
}

// normalize fills ids from map keys and replaces nil slices.
func (c Catalog) normalize() {
	for id, l := range c {
		l.ID = id
		if l.Level < 0 {
			l.Level = 0
		}
		if l.Prereqs == nil {
			l.Prereqs = []string{}
		}
		if l.Tags == nil {
			l.Tags = []string{}
		}
		if l.QuizPool == nil {
			l.QuizPool = []QuizItem{}
		}
		c[id] = l
	}
}
