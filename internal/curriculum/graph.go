package curriculum

import (
	"fmt"
	"slices"
	"strings"
)

// Graph is the immutable prerequisite DAG of subtopics.
// It is built once at start-up and is safe for concurrent reads.
type Graph struct {
	topics     []Topic
	nodes      []Subtopic
	index      map[string]int
	dependents map[string][]string
}

// NewGraph validates the topics and builds the graph. It rejects duplicate ids,
// out-of-range fields, dangling prerequisites and prerequisite cycles.
func NewGraph(topics []Topic) (*Graph, error) {
	g := &Graph{
		index:      make(map[string]int),
		dependents: make(map[string][]string),
	}

	topicIDs := make(map[string]bool, len(topics))
	for _, topic := range topics {
		if topic.ID == "" {
			return nil, fmt.Errorf("topic %q has no id", topic.Name)
		}
		if topicIDs[topic.ID] {
			return nil, fmt.Errorf("duplicate topic id %q", topic.ID)
		}
		topicIDs[topic.ID] = true

		for _, s := range topic.Subtopics {
			if err := checkSubtopic(s); err != nil {
				return nil, fmt.Errorf("topic %s: %w", topic.ID, err)
			}
			if _, dup := g.index[s.ID]; dup {
				return nil, fmt.Errorf("duplicate subtopic id %q", s.ID)
			}
			s.TopicID = topic.ID
			s.Prerequisites = slices.Clone(s.Prerequisites)
			s.Examples = slices.Clone(s.Examples)
			g.index[s.ID] = len(g.nodes)
			g.nodes = append(g.nodes, s)
		}
	}

	for _, s := range g.nodes {
		for _, pre := range s.Prerequisites {
			if pre == s.ID {
				return nil, fmt.Errorf("subtopic %q lists itself as a prerequisite", s.ID)
			}
			if _, ok := g.index[pre]; !ok {
				return nil, fmt.Errorf("subtopic %q: unknown prerequisite %q", s.ID, pre)
			}
			g.dependents[pre] = append(g.dependents[pre], s.ID)
		}
	}

	if cycle := g.findCycle(); cycle != nil {
		return nil, fmt.Errorf("prerequisite cycle: %s", strings.Join(cycle, " -> "))
	}

	for _, topic := range topics {
		t := topic
		t.Subtopics = nil
		for _, s := range topic.Subtopics {
			t.Subtopics = append(t.Subtopics, g.nodes[g.index[s.ID]])
		}
		g.topics = append(g.topics, t)
	}

	return g, nil
}

func checkSubtopic(s Subtopic) error {
	switch {
	case s.ID == "":
		return fmt.Errorf("subtopic %q has no id", s.Name)
	case s.Name == "":
		return fmt.Errorf("subtopic %q has no name", s.ID)
	case s.Difficulty < MinDifficulty || s.Difficulty > MaxDifficulty:
		return fmt.Errorf("subtopic %q: difficulty %d outside %d..%d", s.ID, s.Difficulty, MinDifficulty, MaxDifficulty)
	case s.EstimatedMinutes <= 0:
		return fmt.Errorf("subtopic %q: estimated_minutes must be positive", s.ID)
	}
	return nil
}

// findCycle returns the first prerequisite cycle found, or nil.
func (g *Graph) findCycle() []string {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make([]int, len(g.nodes))
	var path []string

	var visit func(i int) []string
	visit = func(i int) []string {
		state[i] = visiting
		path = append(path, g.nodes[i].ID)
		for _, pre := range g.nodes[i].Prerequisites {
			j := g.index[pre]
			switch state[j] {
			case visiting:
				start := slices.Index(path, pre)
				return append(slices.Clone(path[start:]), pre)
			case unvisited:
				if c := visit(j); c != nil {
					return c
				}
			}
		}
		path = path[:len(path)-1]
		state[i] = done
		return nil
	}

	for i := range g.nodes {
		if state[i] == unvisited {
			if c := visit(i); c != nil {
				return c
			}
		}
	}
	return nil
}

// Node returns a subtopic by ID.
func (g *Graph) Node(id string) (Subtopic, bool) {
	i, ok := g.index[id]
	if !ok {
		return Subtopic{}, false
	}
	return g.nodes[i], true
}

// Nodes returns every subtopic in curriculum order.
func (g *Graph) Nodes() []Subtopic {
	return slices.Clone(g.nodes)
}

// PrerequisitesOf returns the prerequisite IDs of a subtopic.
func (g *Graph) PrerequisitesOf(id string) ([]string, bool) {
	i, ok := g.index[id]
	if !ok {
		return nil, false
	}
	return slices.Clone(g.nodes[i].Prerequisites), true
}

// Dependents returns the subtopics that list id as a direct prerequisite.
func (g *Graph) Dependents(id string) []string {
	return slices.Clone(g.dependents[id])
}

// Topics returns the topics in load order.
func (g *Graph) Topics() []Topic {
	return slices.Clone(g.topics)
}

// Len returns the number of subtopics.
func (g *Graph) Len() int {
	return len(g.nodes)
}
