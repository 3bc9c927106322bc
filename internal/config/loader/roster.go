// Package loader serves the evaluator roster from a YAML file and hot-reloads
// it on change, so personas can be tuned without restarting the engine.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"autopilot/internal/decision"
	"autopilot/internal/logger"
)

type rosterFile struct {
	Evaluators []decision.Evaluator `yaml:"evaluators"`
}

// Snapshot is a read-only view of the roster at one version.
type Snapshot struct {
	Version    int64
	LoadedAt   time.Time
	Evaluators []decision.Evaluator
}

// ChangeListener is called with a fresh snapshot after each successful reload.
type ChangeListener func(Snapshot)

// RosterLoader watches one roster file. A reload that fails to parse or
// validate keeps the previous snapshot; the engine never sees a half-applied
// roster.
type RosterLoader struct {
	path    string
	watcher *fsnotify.Watcher

	mu        sync.RWMutex
	snapshot  Snapshot
	listeners []ChangeListener
}

func NewRosterLoader(path string) (*RosterLoader, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("roster loader requires a path")
	}
	l := &RosterLoader{path: path}
	if err := l.reload(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("roster watcher: %w", err)
	}
	// watch the directory: editors replace files rather than writing in place
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("roster watcher: %w", err)
	}
	l.watcher = watcher
	go l.watch()
	return l, nil
}

// Evaluators returns the current roster.
func (l *RosterLoader) Evaluators() []decision.Evaluator {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]decision.Evaluator, len(l.snapshot.Evaluators))
	copy(out, l.snapshot.Evaluators)
	return out
}

// Snapshot returns the current roster with its version.
func (l *RosterLoader) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return cloneSnapshot(l.snapshot)
}

// Subscribe registers a listener and immediately delivers the current
// snapshot to it.
func (l *RosterLoader) Subscribe(fn ChangeListener) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.listeners = append(l.listeners, fn)
	snap := cloneSnapshot(l.snapshot)
	l.mu.Unlock()
	go fn(snap)
}

func (l *RosterLoader) Close() error {
	if l.watcher != nil {
		return l.watcher.Close()
	}
	return nil
}

func (l *RosterLoader) watch() {
	for {
		select {
		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(l.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := l.reload(); err != nil {
				logger.Errorf("roster reload failed, keeping previous roster: %v", err)
				continue
			}
			l.notify()
		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			logger.Warnf("roster watcher: %v", err)
		}
	}
}

func (l *RosterLoader) reload() error {
	raw, err := os.ReadFile(l.path)
	if err != nil {
		return fmt.Errorf("read roster (%s): %w", l.path, err)
	}
	var file rosterFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse roster (%s): %w", l.path, err)
	}
	if err := validateRoster(file.Evaluators); err != nil {
		return fmt.Errorf("invalid roster (%s): %w", l.path, err)
	}

	l.mu.Lock()
	l.snapshot = Snapshot{
		Version:    l.snapshot.Version + 1,
		LoadedAt:   time.Now(),
		Evaluators: file.Evaluators,
	}
	version := l.snapshot.Version
	l.mu.Unlock()
	logger.Infof("roster loaded: %d evaluators (version %d)", len(file.Evaluators), version)
	return nil
}

func (l *RosterLoader) notify() {
	l.mu.RLock()
	snap := cloneSnapshot(l.snapshot)
	listeners := append([]ChangeListener(nil), l.listeners...)
	l.mu.RUnlock()
	for _, fn := range listeners {
		go fn(snap)
	}
}

func validateRoster(evaluators []decision.Evaluator) error {
	if len(evaluators) == 0 {
		return fmt.Errorf("roster requires at least one evaluator")
	}
	seen := map[string]bool{}
	for i, ev := range evaluators {
		id := strings.TrimSpace(ev.ID)
		if id == "" {
			return fmt.Errorf("evaluator #%d has no id", i+1)
		}
		if seen[id] {
			return fmt.Errorf("duplicate evaluator id: %s", id)
		}
		seen[id] = true
		if ev.Weight < 0 {
			return fmt.Errorf("evaluator %s has negative weight", id)
		}
	}
	return nil
}

func cloneSnapshot(s Snapshot) Snapshot {
	out := s
	out.Evaluators = make([]decision.Evaluator, len(s.Evaluators))
	copy(out.Evaluators, s.Evaluators)
	return out
}
