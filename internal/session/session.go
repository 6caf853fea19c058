// Package session keeps open projects in memory and serialises access to
// each of them.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/heimdex/ivtc-agent/internal/project"
)

var (
	ErrNotOpen     = errors.New("project is not open")
	ErrAlreadyOpen = errors.New("project is already open")
)

// Resolver maps a project ID to the path of its document. It lets With open
// a project on first use.
type Resolver func(ctx context.Context, id string) (string, error)

type entry struct {
	path string

	mu      sync.Mutex
	project *project.Project
}

// Registry holds the open projects keyed by catalog ID.
type Registry struct {
	resolve   Resolver
	undoSteps int
	logger    *slog.Logger

	mu      sync.Mutex
	entries map[string]*entry
}

// NewRegistry creates an empty registry. resolve may be nil, in which case
// only explicitly opened projects are reachable.
func NewRegistry(resolve Resolver, undoSteps int, logger *slog.Logger) *Registry {
	return &Registry{
		resolve:   resolve,
		undoSteps: undoSteps,
		logger:    logger,
		entries:   make(map[string]*entry),
	}
}

// Open reads the project document at path and registers it under id.
// Opening an ID twice returns ErrAlreadyOpen.
func (r *Registry) Open(id, path string) error {
	p, err := project.Read(path)
	if err != nil {
		return err
	}
	return r.Add(id, path, p)
}

// Add registers an in-memory project that will be saved to path.
func (r *Registry) Add(id, path string, p *project.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; ok {
		return fmt.Errorf("%s: %w", id, ErrAlreadyOpen)
	}
	if r.undoSteps > 0 {
		p.SetUndoSteps(r.undoSteps)
	}
	if p.HistoryLen() == 0 {
		p.Commit("open project")
	}
	r.entries[id] = &entry{path: path, project: p}

	if r.logger != nil {
		r.logger.Info("project opened", "project_id", id, "frames", p.SourceFrameCount())
	}
	return nil
}

// IsOpen reports whether id is registered.
func (r *Registry) IsOpen(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[id]
	return ok
}

// IDs returns the open project IDs in sorted order.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	slices.Sort(ids)
	return ids
}

// Path returns the document path of an open project.
func (r *Registry) Path(id string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return "", fmt.Errorf("%s: %w", id, ErrNotOpen)
	}
	return e.path, nil
}

func (r *Registry) lookup(ctx context.Context, id string) (*entry, error) {
	r.mu.Lock()
	e, ok := r.entries[id]
	r.mu.Unlock()
	if ok {
		return e, nil
	}
	if r.resolve == nil {
		return nil, fmt.Errorf("%s: %w", id, ErrNotOpen)
	}

	path, err := r.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.Open(id, path); err != nil && !errors.Is(err, ErrAlreadyOpen) {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("%s: %w", id, ErrNotOpen)
}

// With runs fn with exclusive access to the project. Projects not yet open
// are opened through the resolver.
func (r *Registry) With(ctx context.Context, id string, fn func(p *project.Project) error) error {
	e, err := r.lookup(ctx, id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.project)
}

// Save writes the project to its document path.
func (r *Registry) Save(ctx context.Context, id string) error {
	e, err := r.lookup(ctx, id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.save(id, r.logger)
}

func (e *entry) save(id string, logger *slog.Logger) error {
	if err := e.project.Write(e.path, false); err != nil {
		return fmt.Errorf("save project %s: %w", id, err)
	}
	if logger != nil {
		logger.Debug("project saved", "project_id", id)
	}
	return nil
}

// Replace swaps the open project for p, which starts a new history. The
// replacement is marked modified so the next save writes it.
func (r *Registry) Replace(ctx context.Context, id string, p *project.Project) error {
	e, err := r.lookup(ctx, id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if r.undoSteps > 0 {
		p.SetUndoSteps(r.undoSteps)
	}
	if p.HistoryLen() == 0 {
		p.Commit("replace project")
	}
	p.SetModified(true)
	e.project = p
	return nil
}

// Close forgets the project, saving it first when save is set.
func (r *Registry) Close(ctx context.Context, id string, save bool) error {
	r.mu.Lock()
	e, ok := r.entries[id]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrNotOpen)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if save && e.project.IsModified() {
		if err := e.save(id, r.logger); err != nil {
			return err
		}
	}

	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()

	if r.logger != nil {
		r.logger.Info("project closed", "project_id", id)
	}
	return nil
}

// SaveModified writes every open project with unsaved changes and returns
// how many were written. It keeps going after a failure.
func (r *Registry) SaveModified() (int, error) {
	var errs []error
	saved := 0
	for _, id := range r.IDs() {
		r.mu.Lock()
		e, ok := r.entries[id]
		r.mu.Unlock()
		if !ok {
			continue
		}

		e.mu.Lock()
		if e.project.IsModified() {
			if err := e.save(id, r.logger); err != nil {
				errs = append(errs, err)
			} else {
				saved++
			}
		}
		e.mu.Unlock()
	}
	return saved, errors.Join(errs...)
}

// RunAutosave saves modified projects every interval until ctx is done,
// then saves once more.
func (r *Registry) RunAutosave(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.autosave()
			return
		case <-ticker.C:
			r.autosave()
		}
	}
}

func (r *Registry) autosave() {
	saved, err := r.SaveModified()
	if r.logger == nil {
		return
	}
	if err != nil {
		r.logger.Warn("autosave failed", "error", err)
	}
	if saved > 0 {
		r.logger.Info("autosaved projects", "count", saved)
	}
}
