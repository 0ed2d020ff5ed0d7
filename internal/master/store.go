// Package master implements the Master Agent (§4.7): the top-level
// orchestrator that owns a session's loop history, advances branches
// through the Iteration Loop, and drives auto-management and the §5
// scheduler.
package master

import (
	"sync"
	"time"

	"go-litresearch/internal/domain"
)

// SessionStatus mirrors the §6 sessions:updateStatus vocabulary. It is
// distinct from domain.Status, which tracks an individual branch.
type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionRunning   SessionStatus = "running"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
)

// Session is the handle an external caller (CLI, UI) holds: one initial
// query plus every loop it has spawned. launch_research_loop appends a new
// entry rather than replacing the session.
type Session struct {
	ID           string
	InitialQuery string
	Status       SessionStatus
	Loops        map[int]*domain.LoopState
	CurrentLoop  int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CurrentState returns the session's active loop state, or nil if none has
// been started yet.
func (s *Session) CurrentState() *domain.LoopState {
	return s.Loops[s.CurrentLoop]
}

// Store is the in-memory State Store (§3/§4.7). It holds every session's
// loop history for the lifetime of the process; durable persistence is an
// explicit Non-goal (§1), so there is no snapshot-to-disk path here.
// Grounded on core/domain/aggregate.ResearchState's mutex-guarded aggregate
// shape, generalized from one research run to a registry of sessions.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore builds an empty Store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// GetOrCreate returns the named session, creating it in PENDING status if
// it doesn't exist yet.
func (st *Store) GetOrCreate(sessionID, initialQuery string, now time.Time) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.sessions[sessionID]; ok {
		return s
	}
	s := &Session{
		ID:           sessionID,
		InitialQuery: initialQuery,
		Status:       SessionPending,
		Loops:        make(map[int]*domain.LoopState),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	st.sessions[sessionID] = s
	return s
}

// Get returns the named session without creating it.
func (st *Store) Get(sessionID string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[sessionID]
	return s, ok
}

// AddLoop registers state as sessionID's loop_number and makes it current.
func (st *Store) AddLoop(sessionID string, state *domain.LoopState) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s := st.sessions[sessionID]
	if s == nil {
		return
	}
	s.Loops[state.LoopNumber] = state
	s.CurrentLoop = state.LoopNumber
	s.UpdatedAt = time.Now()
}

// SetStatus updates sessionID's status (sessions:updateStatus, §6).
func (st *Store) SetStatus(sessionID string, status SessionStatus) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if s := st.sessions[sessionID]; s != nil {
		s.Status = status
		s.UpdatedAt = time.Now()
	}
}

// BranchSnapshot is one branch's read-only status fan-out for get_status.
type BranchSnapshot struct {
	BranchID           string
	Query              string
	Mode               domain.Mode
	Status             domain.Status
	ParentBranchID     string
	PaperCount         int
	SummaryCount       int
	IterationCount     int
	ContextUtilization float64
}

// Snapshot is the get_status(branch_id?) result (§4.7): pure, and equal on
// repeated calls without intervening operations (§8).
type Snapshot struct {
	SessionID      string
	Status         SessionStatus
	LoopNumber     int
	TotalPapers    int
	TotalSummaries int
	Branches       []BranchSnapshot
}

// Snapshot builds a get_status read. branchID narrows to one branch; empty
// returns every branch in the session's current loop.
func (st *Store) Snapshot(sessionID, branchID string) (Snapshot, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[sessionID]
	if !ok {
		return Snapshot{}, false
	}
	snap := Snapshot{SessionID: sessionID, Status: s.Status, LoopNumber: s.CurrentLoop}

	state := s.CurrentState()
	if state == nil {
		return snap, true
	}
	snap.TotalPapers = state.TotalPapers()
	snap.TotalSummaries = state.TotalSummaries()
	for _, b := range state.Branches {
		if branchID != "" && b.ID != branchID {
			continue
		}
		snap.Branches = append(snap.Branches, BranchSnapshot{
			BranchID:           b.ID,
			Query:              b.Query,
			Mode:               b.Mode,
			Status:             b.Status,
			ParentBranchID:     b.ParentBranchID,
			PaperCount:         len(b.AccumulatedPapers),
			SummaryCount:       len(b.AccumulatedSummaries),
			IterationCount:     len(b.Iterations),
			ContextUtilization: b.ContextUtilization(),
		})
	}
	return snap, true
}
