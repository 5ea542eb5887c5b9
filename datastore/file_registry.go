package datastore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/UoMCS/bigscreen/models"
)

// FileRegistry serves sources from a YAML file. The file is read once; the
// registry is read-only apart from last-checked timestamps, which live in
// memory for the lifetime of the process.
//
//	sources:
//	  - id: 1
//	    name: Department news
//	    module: feed
//	    arguments:
//	      url: https://news.example.com/rss
//	      weight: "2"
//	  - name: Welcome
//	    module: static
//	    arguments: "html=<h1>Welcome</h1>"
type FileRegistry struct {
	sources []models.SlideSource

	mu      sync.Mutex
	checked map[int64]time.Time
}

type fileSource struct {
	ID        int64         `yaml:"id"`
	Name      string        `yaml:"name"`
	Module    string        `yaml:"module"`
	Arguments yamlArguments `yaml:"arguments"`
	Enabled   *bool         `yaml:"enabled"`
}

type fileDocument struct {
	Sources []fileSource `yaml:"sources"`
}

// yamlArguments accepts either a mapping or the semicolon-delimited string
// encoding used by the database.
type yamlArguments models.Arguments

func (a *yamlArguments) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		args, err := models.ParseArguments(node.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*a = yamlArguments(args)
		return nil
	case yaml.MappingNode:
		var m map[string]string
		if err := node.Decode(&m); err != nil {
			return err
		}
		*a = yamlArguments(m)
		return nil
	default:
		return fmt.Errorf("line %d: arguments must be a mapping or a key=value string", node.Line)
	}
}

func LoadFileRegistry(path string) (*FileRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file %s: %w", path, err)
	}
	return ParseFileRegistry(data)
}

// ParseFileRegistry builds a registry from YAML. Sources without an id are
// numbered by their position in the file.
func ParseFileRegistry(data []byte) (*FileRegistry, error) {
	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse sources file: %w", err)
	}

	seen := make(map[int64]bool, len(doc.Sources))
	sources := make([]models.SlideSource, 0, len(doc.Sources))
	for i, fs := range doc.Sources {
		id := fs.ID
		if id == 0 {
			id = int64(i + 1)
		}
		if seen[id] {
			return nil, fmt.Errorf("sources file: duplicate source id %d", id)
		}
		seen[id] = true

		if fs.Module == "" {
			return nil, fmt.Errorf("sources file: source %d has no module", id)
		}
		name := fs.Name
		if name == "" {
			name = fmt.Sprintf("%s-%d", fs.Module, id)
		}
		args := models.Arguments(fs.Arguments)
		if args == nil {
			args = models.Arguments{}
		}

		sources = append(sources, models.SlideSource{
			ID:         id,
			Name:       name,
			ModuleName: fs.Module,
			Arguments:  args,
			Enabled:    fs.Enabled == nil || *fs.Enabled,
		})
	}

	sort.SliceStable(sources, func(i, j int) bool {
		if sources[i].ModuleName != sources[j].ModuleName {
			return sources[i].ModuleName < sources[j].ModuleName
		}
		return sources[i].ID < sources[j].ID
	})

	return &FileRegistry{sources: sources, checked: map[int64]time.Time{}}, nil
}

// ErrReadOnly is returned by the write operations of a FileRegistry.
var ErrReadOnly = errors.New("source registry is read-only")

// Sources returns every configured source, enabled or not.
func (f *FileRegistry) Sources() []models.SlideSource {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]models.SlideSource, len(f.sources))
	for i, s := range f.sources {
		out[i] = f.withChecked(s)
	}
	return out
}

func (f *FileRegistry) GetSources(context.Context) ([]models.SlideSource, error) {
	return f.Sources(), nil
}

func (f *FileRegistry) CreateSource(context.Context, *models.SlideSource) error { return ErrReadOnly }
func (f *FileRegistry) UpdateSource(context.Context, *models.SlideSource) error { return ErrReadOnly }
func (f *FileRegistry) DeleteSource(context.Context, int64) error { return ErrReadOnly }

func (f *FileRegistry) GetSourceByID(_ context.Context, sourceID int64) (*models.SlideSource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, s := range f.sources {
		if s.ID == sourceID {
			found := f.withChecked(s)
			return &found, nil
		}
	}
	return nil, fmt.Errorf("source %d: %w", sourceID, ErrSourceNotFound)
}

func (f *FileRegistry) ListEnabledSources(_ context.Context) ([]models.SlideSource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]models.SlideSource, 0, len(f.sources))
	for _, s := range f.sources {
		if s.Enabled {
			out = append(out, f.withChecked(s))
		}
	}
	return out, nil
}

func (f *FileRegistry) MarkChecked(_ context.Context, sourceID int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, s := range f.sources {
		if s.ID == sourceID {
			f.checked[sourceID] = at.UTC()
			return nil
		}
	}
	return fmt.Errorf("source %d: %w", sourceID, ErrSourceNotFound)
}

// withChecked copies s and attaches its in-memory timestamp. Callers hold mu.
func (f *FileRegistry) withChecked(s models.SlideSource) models.SlideSource {
	args := make(models.Arguments, len(s.Arguments))
	for k, v := range s.Arguments {
		args[k] = v
	}
	s.Arguments = args
	if at, ok := f.checked[s.ID]; ok {
		s.LastCheckedAt = &at
	}
	return s
}
