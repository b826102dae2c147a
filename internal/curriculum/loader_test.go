package curriculum_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/p-n-ai/pai-tutor/internal/curriculum"
)

func TestDefault(t *testing.T) {
	g, err := curriculum.Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if g.Len() == 0 {
		t.Fatal("Default() loaded no subtopics")
	}

	node, found := g.Node("sub-one-step")
	if !found {
		t.Fatal("Node(sub-one-step) not found")
	}
	if node.Difficulty != 1 {
		t.Errorf("Difficulty = %d, want 1", node.Difficulty)
	}
	if len(node.Prerequisites) != 0 {
		t.Errorf("Prerequisites = %v, want none", node.Prerequisites)
	}
	if node.TopicID != "linear-equations" {
		t.Errorf("TopicID = %q, want linear-equations", node.TopicID)
	}
}

func TestLoadDir_Topics(t *testing.T) {
	dir := setupTestCurriculum(t)

	g, err := curriculum.LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}

	nodes := g.Nodes()
	if len(nodes) != 3 {
		t.Fatalf("Nodes() = %d, want 3", len(nodes))
	}
	// Declaration order is preserved within a file.
	want := []string{"alpha", "beta", "gamma"}
	for i, id := range want {
		if nodes[i].ID != id {
			t.Errorf("nodes[%d].ID = %q, want %q", i, nodes[i].ID, id)
		}
	}

	topics := g.Topics()
	if len(topics) != 1 || topics[0].ID != "basics" {
		t.Errorf("Topics() = %+v, want one topic 'basics'", topics)
	}
}

func TestLoadDir_SkipsNonYAML(t *testing.T) {
	dir := setupTestCurriculum(t)
	os.WriteFile(filepath.Join(dir, "README.md"), []byte("# notes"), 0o644)

	g, err := curriculum.LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}
	if g.Len() != 3 {
		t.Errorf("Len() = %d, want 3", g.Len())
	}
}

func TestLoadDir_EmptyDir(t *testing.T) {
	g, err := curriculum.LoadDir(t.TempDir())
	if err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}
	if g.Len() != 0 {
		t.Errorf("Len() = %d, want 0 for empty dir", g.Len())
	}
}

func TestLoadDir_Missing(t *testing.T) {
	_, err := curriculum.LoadDir(filepath.Join(t.TempDir(), "nope"))
	if err == nil {
		t.Fatal("LoadDir() should fail for a missing directory")
	}
}

func TestLoadDir_SchemaViolation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "difficulty out of range",
			content: `
id: t
name: T
subtopics:
  - id: a
    name: A
    difficulty: 4
    estimated_minutes: 5
`,
			wantErr: "difficulty",
		},
		{
			name: "missing estimated minutes",
			content: `
id: t
name: T
subtopics:
  - id: a
    name: A
    difficulty: 1
`,
			wantErr: "estimated_minutes",
		},
		{
			name: "unknown field",
			content: `
id: t
name: T
subtopics:
  - id: a
    name: A
    difficulty: 1
    estimated_minutes: 5
    level: hard
`,
			wantErr: "level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			os.WriteFile(filepath.Join(dir, "topic.yaml"), []byte(tt.content), 0o644)

			_, err := curriculum.LoadDir(dir)
			if err == nil {
				t.Fatal("LoadDir() should reject the document")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDir_DanglingPrerequisite(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "topic.yaml"), []byte(`
id: t
name: T
subtopics:
  - id: a
    name: A
    difficulty: 1
    estimated_minutes: 5
    prerequisites: [ghost]
`), 0o644)

	_, err := curriculum.LoadDir(dir)
	if err == nil {
		t.Fatal("LoadDir() should reject a dangling prerequisite")
	}
	if !strings.Contains(err.Error(), "ghost") {
		t.Errorf("error = %v, want mention of ghost", err)
	}
}

func setupTestCurriculum(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	topicsDir := filepath.Join(dir, "algebra")
	os.MkdirAll(topicsDir, 0o755)

	os.WriteFile(filepath.Join(topicsDir, "01-basics.yaml"), []byte(`
id: basics
name: "Basics"
subtopics:
  - id: alpha
    name: Alpha
    difficulty: 1
    estimated_minutes: 10
    examples: ["1 + 1"]
  - id: beta
    name: Beta
    difficulty: 1
    estimated_minutes: 10
  - id: gamma
    name: Gamma
    difficulty: 2
    estimated_minutes: 15
    prerequisites: [alpha, beta]
`), 0o644)

	return dir
}
