package grid

import (
	"fmt"
	"slices"
	"sync"
)

// SelectionTracker keeps the set of selected record ids across reloads and
// page turns. Whether the whole page is selected is always derived from the
// set and the ids of the currently loaded page.
type SelectionTracker struct {
	mu   sync.Mutex
	ids  map[string]struct{}
	page []string
}

// NewSelectionTracker returns an empty tracker.
func NewSelectionTracker() *SelectionTracker {
	return &SelectionTracker{ids: make(map[string]struct{})}
}

// SetPage records the ids of the currently loaded page.
func (s *SelectionTracker) SetPage(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = slices.Clone(ids)
}

// SelectAllOnPage adds every id of the loaded page.
func (s *SelectionTracker) SelectAllOnPage() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.page {
		s.ids[id] = struct{}{}
	}
}

// DeselectAllOnPage removes every id of the loaded page.
func (s *SelectionTracker) DeselectAllOnPage() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.page {
		delete(s.ids, id)
	}
}

// Toggle flips the selection of one record and reports the new state.
func (s *SelectionTracker) Toggle(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Set selects or deselects one record.
func (s *SelectionTracker) Set(id string, selected bool) {
	if id == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if selected {
		s.ids[id] = struct{}{}
		return
	}
	delete(s.ids, id)
}

// Clear empties the selection.
func (s *SelectionTracker) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = make(map[string]struct{})
}

// RestrictTo replaces the selection with a single record.
func (s *SelectionTracker) RestrictTo(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = map[string]struct{}{id: {}}
}

// IsSelected reports whether the record is selected.
func (s *SelectionTracker) IsSelected(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

// AllSelectedOnPage is true iff the loaded page is non-empty and every one of
// its ids is selected.
func (s *SelectionTracker) AllSelectedOnPage() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.page) == 0 {
		return false
	}
	for _, id := range s.page {
		if _, ok := s.ids[id]; !ok {
			return false
		}
	}
	return true
}

// IDs returns the selected ids in sorted order.
func (s *SelectionTracker) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Count returns the number of selected records.
func (s *SelectionTracker) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// CountLabel renders the selection count for the toolbar.
func (s *SelectionTracker) CountLabel() string {
	switch n := s.Count(); n {
	case 0:
		return ""
	case 1:
		return "1 selected"
	default:
		return fmt.Sprintf("%d selected", n)
	}
}

// snapshot returns a membership copy for view model building.
func (s *SelectionTracker) snapshot() map[string]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]struct{}, len(s.ids))
	for id := range s.ids {
		out[id] = struct{}{}
	}
	return out
}
