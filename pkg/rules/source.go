package rules

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Source provides rule sets to the engine. Implementations perform any
// I/O themselves; the engine only sees plain structures.
type Source interface {
	// Load loads all rule sets from the source.
	Load(ctx context.Context) ([]*RuleSet, error)
}

// MemorySource is an in-memory rule source, used for the prebuilt library
// and in tests.
type MemorySource struct {
	mu   sync.Mutex
	sets []*RuleSet
}

// NewMemorySource creates an in-memory rule source.
func NewMemorySource(sets ...*RuleSet) *MemorySource {
	return &MemorySource{sets: sets}
}

// Load returns the rule sets stored in memory.
func (s *MemorySource) Load(ctx context.Context) ([]*RuleSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*RuleSet, len(s.sets))
	copy(out, s.sets)
	return out, nil
}

// SetRuleSets replaces the stored rule sets.
func (s *MemorySource) SetRuleSets(sets []*RuleSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets = sets
}

// FileSource loads rule sets from YAML files on disk. The path may be a
// single file or a directory, in which case every .yaml/.yml file is
// loaded.
type FileSource struct {
	path   string
	logger *slog.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
}

// NewFileSource creates a file-based rule source.
func NewFileSource(path string, logger *slog.Logger) *FileSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSource{path: path, logger: logger}
}

// Load loads all rule sets from the configured path.
func (s *FileSource) Load(ctx context.Context) ([]*RuleSet, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, &LoadError{Source: s.path, Cause: err}
	}

	if !info.IsDir() {
		return s.loadFile(s.path)
	}

	var sets []*RuleSet
	err = filepath.Walk(s.path, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		fileSets, err := s.loadFile(path)
		if err != nil {
			// Skip files that fail to parse; a bad file must not take
			// down the rest of the directory.
			s.logger.Warn("skipping invalid rule file", "path", path, "error", err)
			return nil
		}
		sets = append(sets, fileSets...)
		return nil
	})
	if err != nil {
		return nil, &LoadError{Source: s.path, Cause: err}
	}

	s.logger.Info("loaded rule sets", "path", s.path, "rule_sets", len(sets))
	return sets, nil
}

// loadFile loads one YAML rule file.
func (s *FileSource) loadFile(path string) ([]*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Source: path, Cause: err}
	}
	sets, err := ParseRuleSets(data)
	if err != nil {
		return nil, &LoadError{Source: path, Cause: err}
	}
	return sets, nil
}

// Watch watches the source path and invokes onChange after file events,
// debounced so an editor save (write + rename + chmod) triggers a single
// reload. Watch returns immediately; Close stops the watcher.
func (s *FileSource) Watch(ctx context.Context, onChange func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher != nil {
		return fmt.Errorf("file source already watching %q", s.path)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(s.path); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %q: %w", s.path, err)
	}

	s.watcher = watcher
	s.stopCh = make(chan struct{})

	go s.watchLoop(ctx, onChange)

	s.logger.Info("rule file watcher started", "path", s.path)
	return nil
}

// watchLoop drains fsnotify events and debounces reloads.
func (s *FileSource) watchLoop(ctx context.Context, onChange func()) {
	const debounce = 100 * time.Millisecond

	var timer *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			s.logger.Debug("rule file changed", "path", event.Name, "op", event.Op.String())
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Error("rule file watcher error", "error", err)
		case <-fire:
			onChange()
		}
	}
}

// Close stops the watcher if one is running.
func (s *FileSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher == nil {
		return nil
	}
	close(s.stopCh)
	err := s.watcher.Close()
	s.watcher = nil
	return err
}

// MultiSource concatenates rule sets from several sources, in order. The
// engine uses it to layer file-based rule sets on top of the prebuilt
// library.
type MultiSource struct {
	sources []Source
}

// NewMultiSource combines sources. Load order follows argument order.
func NewMultiSource(sources ...Source) *MultiSource {
	return &MultiSource{sources: sources}
}

// Load loads every underlying source and concatenates the results.
func (s *MultiSource) Load(ctx context.Context) ([]*RuleSet, error) {
	var out []*RuleSet
	for _, src := range s.sources {
		sets, err := src.Load(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, sets...)
	}
	return out, nil
}
