// Package gating derives lock state for curriculum subtopics from prerequisite mastery.
package gating

import (
	"fmt"
	"strings"

	"github.com/p-n-ai/pai-tutor/internal/curriculum"
	"github.com/p-n-ai/pai-tutor/internal/progress"
)

// Status is the derived state of one subtopic for one student. It is never stored.
type Status string

const (
	StatusLocked     Status = "locked"
	StatusNotStarted Status = "not-started"
	StatusInProgress Status = "in-progress"
	StatusMastered   Status = "mastered"
)

// View answers gating questions over one immutable snapshot of a student's progress.
type View struct {
	graph    *curriculum.Graph
	progress *progress.StudentProgress
	mastered map[string]bool
}

// NewView snapshots p. Later changes to p are not seen by the view.
func NewView(graph *curriculum.Graph, p *progress.StudentProgress) *View {
	if p == nil {
		p = progress.New("")
	} else {
		p = p.Clone()
	}
	return &View{
		graph:    graph,
		progress: p,
		mastered: p.MasteredSet(),
	}
}

// Graph returns the curriculum the view was built over.
func (v *View) Graph() *curriculum.Graph { return v.graph }

// Progress returns the student snapshot behind the view.
func (v *View) Progress() *progress.StudentProgress { return v.progress }

// IsUnlocked reports whether every prerequisite of id is mastered.
// Unknown ids are never unlocked.
func (v *View) IsUnlocked(id string) bool {
	return v.unlockedWith(id, v.mastered)
}

func (v *View) unlockedWith(id string, mastered map[string]bool) bool {
	pre, ok := v.graph.PrerequisitesOf(id)
	if !ok {
		return false
	}
	for _, p := range pre {
		if !mastered[p] {
			return false
		}
	}
	return true
}

// Status returns the derived status of id.
func (v *View) Status(id string) Status {
	if sp, ok := v.progress.Subtopic(id); ok {
		if sp.Mastered {
			return StatusMastered
		}
		if sp.AttemptCount > 0 {
			return StatusInProgress
		}
	}
	if v.IsUnlocked(id) {
		return StatusNotStarted
	}
	return StatusLocked
}

// MissingPrerequisites returns the unmastered prerequisites of id in declaration order.
func (v *View) MissingPrerequisites(id string) []string {
	pre, _ := v.graph.PrerequisitesOf(id)
	var missing []string
	for _, p := range pre {
		if !v.mastered[p] {
			missing = append(missing, p)
		}
	}
	return missing
}

// LockedReason explains why id is locked, or returns "" when it is unlocked.
func (v *View) LockedReason(id string) string {
	if _, ok := v.graph.Node(id); !ok || v.IsUnlocked(id) {
		return ""
	}

	missing := v.MissingPrerequisites(id)
	names := make([]string, len(missing))
	for i, m := range missing {
		names[i] = fmt.Sprintf("%q", v.name(m))
	}

	switch len(names) {
	case 1:
		return fmt.Sprintf("Master %s first", names[0])
	default:
		last := len(names) - 1
		return fmt.Sprintf("Master %s and %s first", strings.Join(names[:last], ", "), names[last])
	}
}

// UnlockedBy returns the subtopics that are locked now and would unlock if id
// were mastered, in curriculum order. The view is not changed.
func (v *View) UnlockedBy(id string) []string {
	if _, ok := v.graph.Node(id); !ok {
		return nil
	}

	simulated := make(map[string]bool, len(v.mastered)+1)
	for m := range v.mastered {
		simulated[m] = true
	}
	simulated[id] = true

	var out []string
	for _, n := range v.graph.Nodes() {
		if n.ID == id || v.IsUnlocked(n.ID) {
			continue
		}
		if v.unlockedWith(n.ID, simulated) {
			out = append(out, n.ID)
		}
	}
	return out
}

func (v *View) name(id string) string {
	if n, ok := v.graph.Node(id); ok {
		return n.Name
	}
	return id
}
