package curriculum

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var defaultFS embed.FS

// Default returns the built-in algebra curriculum.
func Default() (*Graph, error) {
	sub, err := fs.Sub(defaultFS, "data")
	if err != nil {
		return nil, fmt.Errorf("opening embedded curriculum: %w", err)
	}
	return Load(sub)
}

// LoadDir loads a curriculum from a directory on disk.
func LoadDir(rootDir string) (*Graph, error) {
	info, err := os.Stat(rootDir)
	if err != nil {
		return nil, fmt.Errorf("loading curriculum: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("loading curriculum: %s is not a directory", rootDir)
	}
	return Load(os.DirFS(rootDir))
}

// Load walks fsys for topic YAML files and builds the prerequisite graph.
// Files are read in lexical path order so the graph order is stable.
func Load(fsys fs.FS) (*Graph, error) {
	var topics []Topic

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := path.Ext(p)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if strings.HasPrefix(path.Base(p), ".") {
			return nil
		}

		topic, err := loadTopic(fsys, p)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		topics = append(topics, topic)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading curriculum: %w", err)
	}

	g, err := NewGraph(topics)
	if err != nil {
		return nil, fmt.Errorf("building curriculum graph: %w", err)
	}

	slog.Info("curriculum loaded", "topics", len(topics), "subtopics", g.Len())
	return g, nil
}

func loadTopic(fsys fs.FS, p string) (Topic, error) {
	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		return Topic{}, err
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Topic{}, fmt.Errorf("parsing YAML: %w", err)
	}
	if err := validateDocument(doc); err != nil {
		return Topic{}, err
	}

	var topic Topic
	if err := yaml.Unmarshal(data, &topic); err != nil {
		return Topic{}, fmt.Errorf("decoding topic: %w", err)
	}
	return topic, nil
}
