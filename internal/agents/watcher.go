package agents

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// CrewEvent represents a crew file change event.
type CrewEvent struct {
	Path  string
	Crew  *CrewFile
	Error error
}

// Watcher monitors a directory for crew file changes so the studio can
// pick up edited agent definitions without a restart.
type Watcher struct {
	loader   *Loader
	watchDir string
	watcher  *fsnotify.Watcher
	events   chan CrewEvent
	debounce time.Duration
	mu       sync.RWMutex
	crews    map[string]*CrewFile
	byPath   map[string]string // file path -> crew name, for removals
}

// NewWatcher creates a new crew file watcher.
func NewWatcher(loader *Loader, watchDir string) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		loader:   loader,
		watchDir: watchDir,
		watcher:  fsWatcher,
		events:   make(chan CrewEvent, 10),
		debounce: 100 * time.Millisecond,
		crews:    make(map[string]*CrewFile),
		byPath:   make(map[string]string),
	}, nil
}

// Events returns the channel that receives crew change events.
func (w *Watcher) Events() <-chan CrewEvent {
	return w.events
}

// Start begins watching the directory for crew file changes.
func (w *Watcher) Start(ctx context.Context) error {
	// Load existing crew files first
	if err := w.loadExisting(); err != nil {
		return fmt.Errorf("failed to load existing crews: %w", err)
	}

	if err := w.watcher.Add(w.watchDir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", w.watchDir, err)
	}

	go w.run(ctx)
	return nil
}

// Stop closes the watcher and cleans up resources.
func (w *Watcher) Stop() error {
	close(w.events)
	return w.watcher.Close()
}

// GetCrew returns a loaded crew by name.
func (w *Watcher) GetCrew(name string) (*CrewFile, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	crew, ok := w.crews[name]
	return crew, ok
}

// GetAllCrews returns all currently loaded crews.
func (w *Watcher) GetAllCrews() map[string]*CrewFile {
	w.mu.RLock()
	defer w.mu.RUnlock()
	result := make(map[string]*CrewFile, len(w.crews))
	for k, v := range w.crews {
		result[k] = v
	}
	return result
}

func (w *Watcher) loadExisting() error {
	entries, err := os.ReadDir(w.watchDir)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, entry := range entries {
		if entry.IsDir() || !isCrewFile(entry.Name()) {
			continue
		}
		path := filepath.Join(w.watchDir, entry.Name())
		crew, err := w.loader.LoadFile(path)
		if err != nil {
			return err
		}
		w.crews[crew.Name] = crew
		w.byPath[path] = crew.Name
	}

	return nil
}

func (w *Watcher) run(ctx context.Context) {
	// Debounce map to avoid multiple events for the same file
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if !isCrewFile(event.Name) {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				pending[event.Name] = time.Now()
			} else if event.Op&fsnotify.Remove != 0 {
				w.handleRemove(event.Name)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.events <- CrewEvent{Error: err}

		case <-ticker.C:
			// Process debounced events
			now := time.Now()
			for path, timestamp := range pending {
				if now.Sub(timestamp) >= w.debounce {
					w.handleUpdate(path)
					delete(pending, path)
				}
			}
		}
	}
}

func (w *Watcher) handleUpdate(path string) {
	crew, err := w.loader.LoadFile(path)
	if err != nil {
		w.events <- CrewEvent{
			Path:  path,
			Error: fmt.Errorf("failed to load crew %s: %w", path, err),
		}
		return
	}

	w.mu.Lock()
	// A rename inside the file retires the old crew name.
	if old, ok := w.byPath[path]; ok && old != crew.Name {
		delete(w.crews, old)
	}
	w.crews[crew.Name] = crew
	w.byPath[path] = crew.Name
	w.mu.Unlock()

	w.events <- CrewEvent{
		Path: path,
		Crew: crew,
	}
}

func (w *Watcher) handleRemove(path string) {
	w.mu.Lock()
	if name, ok := w.byPath[path]; ok {
		delete(w.crews, name)
		delete(w.byPath, path)
	}
	w.mu.Unlock()

	w.events <- CrewEvent{
		Path:  path,
		Error: fmt.Errorf("crew file removed: %s", path),
	}
}
