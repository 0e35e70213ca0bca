package domain

import "github.com/basobaas/plotline/internal/pkg/geospatial"

// SketchState is the drawing state of a capture session.
type SketchState string

const (
	StateIdle    SketchState = "idle"
	StateDrawing SketchState = "drawing"
	StateClosed  SketchState = "closed"
)

// DefaultClosureToleranceMeters is how close a tap must land to the first
// vertex to close the shape. The tolerance is a great-circle distance, so it
// behaves identically at any latitude; degree-epsilon checks do not.
const DefaultClosureToleranceMeters = 5.0

// Sketch is the point-capture state machine. It turns a stream of map taps
// into a validated, closed Ring. A Sketch has exactly one mutator context at
// a time; callers serialize access.
type Sketch struct {
	state      SketchState
	ring       Ring
	preview    *GeoPoint
	toleranceM float64
}

// NewSketch creates an idle sketch with the given closure tolerance in
// meters. Non-positive tolerances fall back to the default.
func NewSketch(toleranceMeters float64) *Sketch {
	if toleranceMeters <= 0 {
		toleranceMeters = DefaultClosureToleranceMeters
	}
	return &Sketch{state: StateIdle, toleranceM: toleranceMeters}
}

// TapResult reports what a tap did to the sketch.
type TapResult struct {
	Accepted bool `json:"accepted"`
	Closed   bool `json:"closed"`
}

// Start begins a drawing pass, discarding any prior path.
func (s *Sketch) Start() {
	s.ring = nil
	s.preview = nil
	s.state = StateDrawing
}

// Tap feeds one map tap into the state machine. Taps outside the Drawing
// state are silently ignored. A tap landing within the closure tolerance of
// the first vertex, once at least 3 points exist, appends an explicit
// duplicate of the first vertex and closes the shape. A tap identical to the
// previous vertex is dropped so the ring never holds an unintended
// consecutive duplicate.
func (s *Sketch) Tap(p GeoPoint) TapResult {
	if s.state != StateDrawing {
		return TapResult{}
	}

	if len(s.ring) >= 3 {
		first := s.ring[0]
		d := geospatial.Haversine(p.Lat, p.Lon, first.Lat, first.Lon)
		if d <= s.toleranceM {
			s.ring = append(s.ring, first)
			s.preview = nil
			s.state = StateClosed
			return TapResult{Accepted: true, Closed: true}
		}
	}

	if len(s.ring) > 0 && s.ring[len(s.ring)-1] == p {
		return TapResult{}
	}

	s.ring = append(s.ring, p)
	return TapResult{Accepted: true}
}

// Undo pops the last captured point. Removing the closing duplicate reopens
// the shape for editing; removing the last remaining point returns the
// sketch to Idle. Undo on an idle sketch is a no-op.
func (s *Sketch) Undo() {
	if s.state == StateIdle || len(s.ring) == 0 {
		return
	}

	s.ring = s.ring[:len(s.ring)-1]
	if s.state == StateClosed {
		s.state = StateDrawing
		return
	}
	if len(s.ring) == 0 {
		s.state = StateIdle
	}
}

// Clear discards the whole path and returns to Idle, regardless of state.
func (s *Sketch) Clear() {
	s.ring = nil
	s.preview = nil
	s.state = StateIdle
}

// SetCursor tracks the live preview segment endpoint (last committed point
// to current drag position). It is a rendering aid only: never part of the
// ring, only tracked while Drawing, and discarded on any state change.
func (s *Sketch) SetCursor(p GeoPoint) {
	if s.state != StateDrawing {
		return
	}
	s.preview = &p
}

// State returns the current drawing state.
func (s *Sketch) State() SketchState { return s.state }

// Ring returns a copy of the captured path.
func (s *Sketch) Ring() Ring {
	out := make(Ring, len(s.ring))
	copy(out, s.ring)
	return out
}

// Preview returns the live cursor position, or nil outside Drawing.
func (s *Sketch) Preview() *GeoPoint {
	if s.preview == nil {
		return nil
	}
	p := *s.preview
	return &p
}

// Area computes the AreaResult for the closed ring. It requires the Closed
// state; an open path with enough points is still being edited.
func (s *Sketch) Area() (AreaResult, error) {
	if s.state != StateClosed {
		if s.ring.Vertices() < 3 {
			return AreaResult{}, ErrInsufficientVertices
		}
		return AreaResult{}, ErrRingNotClosed
	}

	sqm, err := s.ring.AreaSqMeters()
	if err != nil {
		return AreaResult{}, err
	}
	return NewAreaResult(sqm), nil
}
