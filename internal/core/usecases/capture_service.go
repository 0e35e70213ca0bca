package usecases

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/basobaas/plotline/internal/core/domain"
	"github.com/basobaas/plotline/internal/pkg/metrics"
)

// CaptureService owns the in-memory drawing sessions. Sessions are ephemeral
// by design: a session lives only while the user is drawing, and nothing
// about it touches durable storage until submission. Each session has a
// single mutator at a time, enforced per-session.
type CaptureService struct {
	mu       sync.Mutex
	sessions map[string]*captureSession

	toleranceM float64
	ttl        time.Duration
}

type captureSession struct {
	mu        sync.Mutex
	sketch    *domain.Sketch
	inFlight  bool
	touchedAt time.Time
}

// NewCaptureService creates a CaptureService with the given closure
// tolerance (meters) and idle-session TTL.
func NewCaptureService(toleranceMeters float64, ttl time.Duration) *CaptureService {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &CaptureService{
		sessions:   make(map[string]*captureSession),
		toleranceM: toleranceMeters,
		ttl:        ttl,
	}
}

// SessionView is a read snapshot of a session, shaped for rendering: the
// committed ring, the live preview cursor, and the confirm affordance.
type SessionView struct {
	ID         string             `json:"id"`
	State      domain.SketchState `json:"state"`
	Points     domain.Ring        `json:"points"`
	Preview    *domain.GeoPoint   `json:"preview,omitempty"`
	CanConfirm bool               `json:"can_confirm"`
	PointCount int                `json:"point_count"`
	SubmitBusy bool               `json:"submit_busy"`
}

// Start creates a new drawing session and returns its view.
func (s *CaptureService) Start() SessionView {
	id := uuid.NewString()

	sess := &captureSession{
		sketch:    domain.NewSketch(s.toleranceM),
		touchedAt: time.Now(),
	}
	sess.sketch.Start()

	s.mu.Lock()
	s.sessions[id] = sess
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	s.mu.Unlock()

	metrics.SessionsStarted.Inc()
	return view(id, sess)
}

// Tap feeds a map tap into a session.
func (s *CaptureService) Tap(id string, p domain.GeoPoint) (SessionView, domain.TapResult, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return SessionView{}, domain.TapResult{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.touchedAt = time.Now()

	res := sess.sketch.Tap(p)
	if res.Accepted {
		metrics.PointsCaptured.Inc()
	}
	if res.Closed {
		metrics.ClosuresDetected.Inc()
	}
	return view(id, sess), res, nil
}

// Cursor updates the live preview segment endpoint.
func (s *CaptureService) Cursor(id string, p domain.GeoPoint) (SessionView, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return SessionView{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.touchedAt = time.Now()
	sess.sketch.SetCursor(p)
	return view(id, sess), nil
}

// Undo pops the last captured point.
func (s *CaptureService) Undo(id string) (SessionView, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return SessionView{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.touchedAt = time.Now()
	sess.sketch.Undo()
	return view(id, sess), nil
}

// Clear empties the session's path and returns it to Idle.
func (s *CaptureService) Clear(id string) (SessionView, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return SessionView{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.touchedAt = time.Now()
	sess.sketch.Clear()
	return view(id, sess), nil
}

// Cancel discards the session entirely. Uncommitted state never reaches the
// plot store.
func (s *CaptureService) Cancel(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(s.sessions, id)
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	return nil
}

// Get returns a read snapshot of a session.
func (s *CaptureService) Get(id string) (SessionView, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return SessionView{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return view(id, sess), nil
}

// ConfirmArea computes the AreaResult for a closed session.
func (s *CaptureService) ConfirmArea(id string) (domain.AreaResult, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return domain.AreaResult{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.touchedAt = time.Now()
	return sess.sketch.Area()
}

// beginSubmit snapshots the closed ring and its area, and marks the session
// as having a submission in flight. The guard rejects re-entrant submits of
// the same session until endSubmit is called.
func (s *CaptureService) beginSubmit(id string) (domain.Ring, domain.AreaResult, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, domain.AreaResult{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.inFlight {
		return nil, domain.AreaResult{}, domain.ErrSubmissionInFlight
	}

	area, err := sess.sketch.Area()
	if err != nil {
		return nil, domain.AreaResult{}, err
	}

	sess.inFlight = true
	sess.touchedAt = time.Now()
	return sess.sketch.Ring(), area, nil
}

// endSubmit releases the in-flight guard. On success the sketch resets to
// Idle, ready for the next plot; on failure the closed ring is kept so the
// user can retry without redrawing.
func (s *CaptureService) endSubmit(id string, success bool) {
	sess, err := s.lookup(id)
	if err != nil {
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.inFlight = false
	if success {
		sess.sketch.Clear()
	}
}

// Count returns the number of live drawing sessions.
func (s *CaptureService) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep drops sessions idle for longer than the TTL. Run it periodically
// from a janitor goroutine.
func (s *CaptureService) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int
	for id, sess := range s.sessions {
		sess.mu.Lock()
		expired := now.Sub(sess.touchedAt) > s.ttl && !sess.inFlight
		sess.mu.Unlock()
		if expired {
			delete(s.sessions, id)
			removed++
		}
	}
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	return removed
}

func (s *CaptureService) lookup(id string) (*captureSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return sess, nil
}

func view(id string, sess *captureSession) SessionView {
	return SessionView{
		ID:         id,
		State:      sess.sketch.State(),
		Points:     sess.sketch.Ring(),
		Preview:    sess.sketch.Preview(),
		CanConfirm: sess.sketch.State() == domain.StateClosed,
		PointCount: len(sess.sketch.Ring()),
		SubmitBusy: sess.inFlight,
	}
}
