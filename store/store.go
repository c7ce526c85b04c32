// Package store is a small action-dispatched state container over the panel
// set. The editing core only needs dispatch plus an immutable snapshot per
// change; this reference implementation backs the orchestrator and tests.
package store

import (
	"fmt"
	"sync"

	"github.com/swilhoit/wrapstudio/panel"
)

// ActionType discriminates dispatched actions.
type ActionType string

const (
	// UpdatePanel merges a patch into one panel.
	UpdatePanel ActionType = "UPDATE_PANEL"
	// SetPanelStates replaces the content of all panels at once.
	SetPanelStates ActionType = "SET_PANEL_STATES"
)

// Action is one state mutation request.
type Action struct {
	Type   ActionType
	Panel  panel.Name
	Patch  panel.Patch
	Panels map[panel.Name]panel.Panel
}

// Listener receives the name of a changed panel and its new snapshot. For
// SET_PANEL_STATES it fires once per panel.
type Listener func(name panel.Name, p panel.Panel)

// Store wraps a panel set with dispatch/subscribe semantics.
type Store struct {
	mu        sync.Mutex
	set       *panel.Set
	listeners []Listener
}

func New(set *panel.Set) *Store {
	return &Store{set: set}
}

// Set exposes the underlying panel set for direct reads.
func (s *Store) Set() *panel.Set {
	return s.set
}

// Subscribe registers fn for every panel change. Not removable; stores live
// for one editor session.
func (s *Store) Subscribe(fn Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Snapshot returns copies of all panels.
func (s *Store) Snapshot() map[panel.Name]panel.Panel {
	return s.set.Snapshot()
}

// Get returns a copy of one panel. Together with Update this makes the
// store usable as the canvas controller's model, so controller syncs flow
// through dispatch and notify subscribers like any other edit.
func (s *Store) Get(name panel.Name) (panel.Panel, error) {
	return s.set.Get(name)
}

// Update applies a panel patch and notifies, returning whether the edit was
// propagated to the linked slave. UPDATE_PANEL actions route here.
func (s *Store) Update(name panel.Name, patch panel.Patch) (bool, error) {
	linked, err := s.set.Update(name, patch)
	if err != nil {
		return false, err
	}
	s.notify(name)
	if linked {
		s.notify(panel.Left)
	}
	return linked, nil
}

// Dispatch applies an action and notifies listeners with fresh snapshots.
func (s *Store) Dispatch(a Action) error {
	switch a.Type {
	case UpdatePanel:
		_, err := s.Update(a.Panel, a.Patch)
		return err
	case SetPanelStates:
		s.set.Replace(a.Panels)
		for _, name := range panel.Order() {
			s.notify(name)
		}
		return nil
	default:
		return fmt.Errorf("store: unknown action %q", a.Type)
	}
}

func (s *Store) notify(name panel.Name) {
	p, err := s.set.Get(name)
	if err != nil {
		return
	}
	s.mu.Lock()
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(name, p)
	}
}
