package curriculum

// Difficulty levels accepted for a subtopic.
const (
	MinDifficulty = 1
	MaxDifficulty = 3
)

// Subtopic is an atomic curriculum unit that a student practices and masters.
type Subtopic struct {
	ID               string   `yaml:"id" json:"id"`
	Name             string   `yaml:"name" json:"name"`
	Description      string   `yaml:"description" json:"description"`
	Difficulty       int      `yaml:"difficulty" json:"difficulty"`
	Prerequisites    []string `yaml:"prerequisites" json:"prerequisites"`
	EstimatedMinutes int      `yaml:"estimated_minutes" json:"estimated_minutes"`
	Examples         []string `yaml:"examples" json:"examples"`
	TopicID          string   `yaml:"-" json:"topic_id"`
}

// Topic groups subtopics that are authored together in one curriculum file.
type Topic struct {
	ID          string     `yaml:"id" json:"id"`
	Name        string     `yaml:"name" json:"name"`
	Description string     `yaml:"description" json:"description,omitempty"`
	Subtopics   []Subtopic `yaml:"subtopics" json:"subtopics"`
}
