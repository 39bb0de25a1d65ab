package grid

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
	"unicode/utf8"
)

// minOwnerSearchLen is the shortest input that triggers a user search.
const minOwnerSearchLen = 2

// UserCandidate is a user that can become the new owner.
type UserCandidate struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	PhotoURL string `json:"photoUrl"`
	Title    string `json:"title"`
}

// UserSearcher looks up candidate owners.
type UserSearcher interface {
	SearchUsers(ctx context.Context, term string) ([]UserCandidate, error)
}

// ReassignResult is the owner reassignment service reply.
type ReassignResult struct {
	Success      bool   `json:"success"`
	SuccessCount int    `json:"successCount"`
	ErrorMessage string `json:"errorMessage"`
}

// OwnerReassigner changes the owner of records in bulk.
type OwnerReassigner interface {
	ChangeOwner(ctx context.Context, recordIDs []string, newOwnerID string) (ReassignResult, error)
}

// OwnerPhase is the state of the change owner modal.
type OwnerPhase string

const (
	PhaseIdle          OwnerPhase = "idle"
	PhaseOpen          OwnerPhase = "open"
	PhaseSearching     OwnerPhase = "searching"
	PhaseResultsReady  OwnerPhase = "results-ready"
	PhaseReadyToSubmit OwnerPhase = "ready-to-submit"
	PhaseSubmitting    OwnerPhase = "submitting"
)

// CandidateView is a search result annotated with its chosen state.
type CandidateView struct {
	UserCandidate
	Selected  bool   `json:"selected"`
	ItemClass string `json:"itemClass"`
}

// OwnerModalView is the render-ready state of the change owner modal.
type OwnerModalView struct {
	Open        bool            `json:"open"`
	Phase       OwnerPhase      `json:"phase"`
	SearchTerm  string          `json:"searchTerm"`
	Results     []CandidateView `json:"results"`
	Chosen      *UserCandidate  `json:"chosen,omitempty"`
	CanSubmit   bool            `json:"canSubmit"`
	ButtonLabel string          `json:"buttonLabel"`
	Error       string          `json:"error,omitempty"`
}

// OwnerWorkflowOptions configures an OwnerReassignmentWorkflow.
type OwnerWorkflowOptions struct {
	Debounce  time.Duration
	Scheduler Scheduler
	Notifier  Notifier
	Logger    *slog.Logger
	// OnSuccess runs after a successful reassignment, once the selection is
	// cleared and the modal closed.
	OnSuccess func(ctx context.Context)
}

// OwnerReassignmentWorkflow drives the bulk change owner modal.
type OwnerReassignmentWorkflow struct {
	mu         sync.Mutex
	searcher   UserSearcher
	reassigner OwnerReassigner
	selection  *SelectionTracker
	notifier   Notifier
	logger     *slog.Logger
	debouncer  *Debouncer
	onSuccess  func(ctx context.Context)

	open       bool
	modalSeq   uint64
	term       string
	results    []UserCandidate
	searched   bool
	searching  bool
	searchSeq  uint64
	chosen     *UserCandidate
	submitting bool
	lastErr    string
}

// NewOwnerReassignmentWorkflow wires the workflow to its services and the
// grid's selection.
func NewOwnerReassignmentWorkflow(searcher UserSearcher, reassigner OwnerReassigner, selection *SelectionTracker, opts OwnerWorkflowOptions) *OwnerReassignmentWorkflow {
	notifier := opts.Notifier
	if notifier == nil {
		notifier = discardNotifier{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &OwnerReassignmentWorkflow{
		searcher:   searcher,
		reassigner: reassigner,
		selection:  selection,
		notifier:   notifier,
		logger:     logger,
		debouncer:  NewDebouncer(opts.Debounce, opts.Scheduler),
		onSuccess:  opts.OnSuccess,
	}
}

// Open shows the modal with a fresh search. It is refused while a previous
// submission is still running.
func (w *OwnerReassignmentWorkflow) Open() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.submitting {
		return ErrSubmissionInFlight
	}
	w.resetLocked()
	w.open = true
	return nil
}

// Close hides the modal and forgets the search and chosen candidate.
func (w *OwnerReassignmentWorkflow) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resetLocked()
}

// resetLocked clears the modal state. An outstanding submission keeps its
// in-flight flag until it returns.
func (w *OwnerReassignmentWorkflow) resetLocked() {
	w.debouncer.Cancel()
	w.open = false
	w.modalSeq++
	w.term = ""
	w.results = nil
	w.searched = false
	w.searching = false
	w.searchSeq++
	w.chosen = nil
	w.lastErr = ""
}

// SetSearchTerm records the input and searches after the debounce period.
// Input shorter than two characters clears the results without a request.
func (w *OwnerReassignmentWorkflow) SetSearchTerm(ctx context.Context, term string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.open {
		return ErrModalClosed
	}
	w.term = term
	w.debouncer.Cancel()
	if utf8.RuneCountInString(term) < minOwnerSearchLen {
		w.results = nil
		w.searched = false
		w.searching = false
		w.searchSeq++
		return nil
	}
	ctx = context.WithoutCancel(ctx)
	w.debouncer.Submit(func() {
		w.search(ctx, term)
	})
	return nil
}

func (w *OwnerReassignmentWorkflow) search(ctx context.Context, term string) {
	w.mu.Lock()
	if !w.open || w.searcher == nil {
		w.mu.Unlock()
		return
	}
	w.searchSeq++
	seq := w.searchSeq
	w.searching = true
	w.mu.Unlock()

	results, err := w.searcher.SearchUsers(ctx, term)

	w.mu.Lock()
	defer w.mu.Unlock()
	if seq != w.searchSeq {
		return
	}
	w.searching = false
	w.searched = true
	if err != nil {
		w.logger.Warn("user search failed", slog.String("term", term), slog.Any("error", err))
		w.results = nil
		return
	}
	w.results = slices.Clone(results)
}

// Choose picks a candidate from the current results.
func (w *OwnerReassignmentWorkflow) Choose(userID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.open {
		return ErrModalClosed
	}
	idx := slices.IndexFunc(w.results, func(u UserCandidate) bool { return u.ID == userID })
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownCandidate, userID)
	}
	chosen := w.results[idx]
	w.chosen = &chosen
	return nil
}

// Submit reassigns the selected records to the chosen candidate. Service
// failures are surfaced through the notifier and keep the candidate and the
// selection for a retry; the returned error only reports refused submissions.
func (w *OwnerReassignmentWorkflow) Submit(ctx context.Context) error {
	w.mu.Lock()
	if !w.open {
		w.mu.Unlock()
		return ErrModalClosed
	}
	if w.submitting {
		w.mu.Unlock()
		return ErrSubmissionInFlight
	}
	ids := w.selection.IDs()
	if w.chosen == nil || len(ids) == 0 {
		w.mu.Unlock()
		return ErrNothingToSubmit
	}
	ownerID := w.chosen.ID
	w.submitting = true
	w.lastErr = ""
	seq := w.modalSeq
	w.mu.Unlock()

	res, err := w.change(ctx, ids, ownerID)

	w.mu.Lock()
	w.submitting = false
	closed := seq != w.modalSeq
	if err != nil || !res.Success {
		msg := res.ErrorMessage
		if err != nil {
			msg = ErrorMessage(err)
		}
		if msg == "" {
			msg = msgChangeOwnerErr
		}
		if !closed {
			w.lastErr = msg
		}
		w.mu.Unlock()
		w.logger.Warn("change owner failed", slog.Int("records", len(ids)), slog.String("error", msg))
		w.notifier.Notify(Toast{Title: "Error", Message: msg, Variant: ToastError})
		return nil
	}
	w.mu.Unlock()

	w.notifier.Notify(Toast{
		Title:   "Success",
		Message: fmt.Sprintf("Successfully changed owner for %d record(s)", res.SuccessCount),
		Variant: ToastSuccess,
	})
	// records changed either way; the selection is only cleared when the
	// modal that submitted it is still showing
	if !closed {
		w.selection.Clear()
		w.Close()
	}
	if w.onSuccess != nil {
		w.onSuccess(ctx)
	}
	return nil
}

func (w *OwnerReassignmentWorkflow) change(ctx context.Context, ids []string, ownerID string) (ReassignResult, error) {
	if w.reassigner == nil {
		return ReassignResult{}, fmt.Errorf("grid: no owner reassignment service")
	}
	return w.reassigner.ChangeOwner(ctx, ids, ownerID)
}

// Submitting reports whether a reassignment is outstanding.
func (w *OwnerReassignmentWorkflow) Submitting() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.submitting
}

// Phase derives the modal state.
func (w *OwnerReassignmentWorkflow) Phase() OwnerPhase {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.phaseLocked()
}

func (w *OwnerReassignmentWorkflow) phaseLocked() OwnerPhase {
	switch {
	case !w.open:
		return PhaseIdle
	case w.submitting:
		return PhaseSubmitting
	case w.chosen != nil:
		return PhaseReadyToSubmit
	case w.searching:
		return PhaseSearching
	case w.searched:
		return PhaseResultsReady
	default:
		return PhaseOpen
	}
}

// View renders the modal state.
func (w *OwnerReassignmentWorkflow) View() OwnerModalView {
	w.mu.Lock()
	defer w.mu.Unlock()
	view := OwnerModalView{
		Open:        w.open,
		Phase:       w.phaseLocked(),
		SearchTerm:  w.term,
		Results:     make([]CandidateView, len(w.results)),
		CanSubmit:   w.open && w.chosen != nil && !w.submitting && w.selection.Count() > 0,
		ButtonLabel: "Change Owner",
		Error:       w.lastErr,
	}
	if w.submitting {
		view.ButtonLabel = "Changing..."
	}
	if w.chosen != nil {
		chosen := *w.chosen
		view.Chosen = &chosen
	}
	for i, u := range w.results {
		selected := w.chosen != nil && w.chosen.ID == u.ID
		class := "user-item"
		if selected {
			class = "user-item user-item-selected"
		}
		view.Results[i] = CandidateView{UserCandidate: u, Selected: selected, ItemClass: class}
	}
	return view
}
