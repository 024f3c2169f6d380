package detection

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"facetrack/internal/camera"
	"facetrack/internal/clock"
	"facetrack/internal/identity"
	"facetrack/internal/logging"
)

var (
	// ErrStaleConfirmation is returned when Confirm names an event that is not
	// the one currently on display.
	ErrStaleConfirmation = errors.New("detection event is no longer current")
	ErrNotRunning        = errors.New("scanner is not running")
)

// State is the outer scanner state.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
)

// Phase is the scan cycle position while running.
type Phase string

const (
	PhaseScanning  Phase = "scanning"
	PhaseMatched   Phase = "matched"
	PhaseConfirmed Phase = "confirmed"
)

// Event is one simulated match.
type Event struct {
	ID         string            `json:"id"`
	Identity   identity.Identity `json:"user"`
	Confidence float64           `json:"confidence"`
	DetectedAt time.Time         `json:"detected_at"`
}

// Confirmation acknowledges that the operator accepted an Event.
type Confirmation struct {
	EventID     string            `json:"event_id"`
	Identity    identity.Identity `json:"user"`
	Confidence  float64           `json:"confidence"`
	ConfirmedAt time.Time         `json:"confirmed_at"`
}

// Snapshot is a copy of the loop state.
type Snapshot struct {
	State        State         `json:"state"`
	Phase        Phase         `json:"phase,omitempty"`
	Processing   bool          `json:"processing"`
	Scans        int           `json:"scans"`
	Feed         camera.Source `json:"feed"`
	Event        *Event        `json:"event,omitempty"`
	Confirmation *Confirmation `json:"confirmation,omitempty"`
}

// Random is the source used to pick identities and confidences.
type Random interface {
	IntN(n int) int
	Float64() float64
}

type globalRand struct{}

func (globalRand) IntN(n int) int   { return rand.IntN(n) }
func (globalRand) Float64() float64 { return rand.Float64() }

// Timing holds the fixed cycle durations.
type Timing struct {
	Period          time.Duration
	ProcessingDelay time.Duration
	DisplayWindow   time.Duration
	ConfirmWindow   time.Duration
}

// DefaultTiming matches the kiosk scanner: a scan every 10s, 2s of
// processing, a 4s match display and a 3s confirmation display.
var DefaultTiming = Timing{
	Period:          10 * time.Second,
	ProcessingDelay: 2 * time.Second,
	DisplayWindow:   4 * time.Second,
	ConfirmWindow:   3 * time.Second,
}

const (
	minConfidence   = 85.0
	confidenceRange = 15.0
)

// Hooks are optional callbacks, invoked without the loop lock held.
type Hooks struct {
	OnFeed    func(camera.Source)
	OnScan    func(scans int)
	OnMatch   func(Event)
	OnExpire  func(Event)
	OnConfirm func(Confirmation)
}

// Options configures a Loop. Zero values select defaults.
type Options struct {
	Timing     Timing
	Resolution camera.Resolution
	Clock      clock.Clock
	Random     Random
	Hooks      Hooks
	Logger     *slog.Logger
}

// Loop runs the simulated scan cycle. It exclusively owns the camera stream
// it acquires.
type Loop struct {
	dir    *identity.Directory
	device camera.Device
	timing Timing
	res    camera.Resolution
	clock  clock.Clock
	rand   Random
	hooks  Hooks
	logger *slog.Logger

	mu           sync.Mutex
	state        State
	phase        Phase
	processing   bool
	scans        int
	current      *Event
	confirmation *Confirmation
	stream       camera.Stream
	// gen changes on every Start and Stop; timer callbacks from an older
	// generation are ignored.
	gen     uint64
	tick    clock.Timer
	pending clock.Timer
}

// New creates an idle loop. A nil device behaves as camera.Unavailable.
func New(dir *identity.Directory, device camera.Device, opts Options) *Loop {
	if device == nil {
		device = camera.Unavailable{}
	}
	t := opts.Timing
	if t.Period <= 0 {
		t.Period = DefaultTiming.Period
	}
	if t.ProcessingDelay <= 0 {
		t.ProcessingDelay = DefaultTiming.ProcessingDelay
	}
	if t.DisplayWindow <= 0 {
		t.DisplayWindow = DefaultTiming.DisplayWindow
	}
	if t.ConfirmWindow <= 0 {
		t.ConfirmWindow = DefaultTiming.ConfirmWindow
	}
	if opts.Resolution.Width <= 0 || opts.Resolution.Height <= 0 {
		opts.Resolution = camera.DefaultResolution
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Random == nil {
		opts.Random = globalRand{}
	}
	return &Loop{
		dir:    dir,
		device: device,
		timing: t,
		res:    opts.Resolution,
		clock:  opts.Clock,
		rand:   opts.Random,
		hooks:  opts.Hooks,
		logger: logging.Or(opts.Logger).With("component", "detection"),
		state:  StateIdle,
	}
}

// Snapshot returns a copy of the current loop state.
func (l *Loop) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := Snapshot{
		State:      l.state,
		Phase:      l.phase,
		Processing: l.processing,
		Scans:      l.scans,
		Feed:       camera.SourceNone,
	}
	if l.stream != nil {
		s.Feed = l.stream.Source()
	}
	if l.current != nil {
		ev := *l.current
		s.Event = &ev
	}
	if l.confirmation != nil {
		c := *l.confirmation
		s.Confirmation = &c
	}
	return s
}

// Start moves the loop to running, schedules the first scan and acquires a
// camera stream. Acquisition failure falls back to the synthetic feed.
// Starting a running loop does nothing.
func (l *Loop) Start(ctx context.Context) {
	l.mu.Lock()
	if l.state == StateRunning {
		l.mu.Unlock()
		return
	}
	l.state = StateRunning
	l.phase = PhaseScanning
	l.gen++
	gen := l.gen
	l.tick = l.clock.AfterFunc(l.timing.Period, func() { l.onTick(gen) })
	l.mu.Unlock()
	l.logger.InfoContext(ctx, "scanner started")

	stream, err := l.device.Acquire(ctx, l.res)
	if err != nil || stream == nil {
		l.logger.WarnContext(ctx, "camera unavailable, using synthetic feed", "error", err)
		stream = camera.NewSynthetic(l.res)
	}
	stream = camera.Once(stream)

	l.mu.Lock()
	if l.gen != gen {
		l.mu.Unlock()
		l.release(ctx, stream)
		return
	}
	l.stream = stream
	l.mu.Unlock()

	if l.hooks.OnFeed != nil {
		l.hooks.OnFeed(stream.Source())
	}
}

// Stop returns the loop to idle from any phase, cancels every pending timer
// and releases the camera stream. Stopping an idle loop does nothing.
func (l *Loop) Stop() {
	l.mu.Lock()
	if l.state != StateRunning {
		l.mu.Unlock()
		return
	}
	l.state = StateIdle
	l.phase = ""
	l.gen++
	l.stopTimersLocked()
	l.processing = false
	l.current = nil
	l.confirmation = nil
	stream := l.stream
	l.stream = nil
	l.mu.Unlock()

	l.logger.Info("scanner stopped")
	if stream != nil {
		l.release(context.Background(), stream)
	}
}

// Close is Stop, for teardown paths.
func (l *Loop) Close() error {
	l.Stop()
	return nil
}

// Confirm accepts the current match. Any other event id is stale.
func (l *Loop) Confirm(eventID string) (Confirmation, error) {
	l.mu.Lock()
	if l.state != StateRunning || l.phase != PhaseMatched || l.current == nil || l.current.ID != eventID {
		l.mu.Unlock()
		return Confirmation{}, ErrStaleConfirmation
	}
	if l.pending != nil {
		l.pending.Stop()
	}
	c := Confirmation{
		EventID:     l.current.ID,
		Identity:    l.current.Identity,
		Confidence:  l.current.Confidence,
		ConfirmedAt: l.clock.Now(),
	}
	l.confirmation = &c
	l.phase = PhaseConfirmed
	gen := l.gen
	l.pending = l.clock.AfterFunc(l.timing.ConfirmWindow, func() { l.onConfirmElapsed(gen, eventID) })
	l.mu.Unlock()

	l.logger.Info("attendance confirmed", "event_id", c.EventID, "employee_id", c.Identity.EmployeeID)
	if l.hooks.OnConfirm != nil {
		l.hooks.OnConfirm(c)
	}
	return c, nil
}

// Frame renders the current feed. A Stop that lands while the frame is being
// rendered turns the result into ErrNotRunning.
func (l *Loop) Frame(ctx context.Context) (image.Image, camera.Source, error) {
	l.mu.Lock()
	stream, scans, gen := l.stream, l.scans, l.gen
	l.mu.Unlock()
	if stream == nil {
		return nil, camera.SourceNone, ErrNotRunning
	}
	img, err := stream.Frame(ctx, scans)

	l.mu.Lock()
	stopped := l.gen != gen
	l.mu.Unlock()
	if stopped {
		return nil, camera.SourceNone, ErrNotRunning
	}
	return img, stream.Source(), err
}

func (l *Loop) onTick(gen uint64) {
	l.mu.Lock()
	if l.gen != gen {
		l.mu.Unlock()
		return
	}
	l.tick = l.clock.AfterFunc(l.timing.Period, func() { l.onTick(gen) })
	if l.processing || l.current != nil || l.confirmation != nil {
		l.mu.Unlock()
		l.logger.Debug("scan skipped, previous event still on display")
		return
	}
	l.scans++
	scans := l.scans
	l.processing = true
	l.phase = PhaseScanning
	l.pending = l.clock.AfterFunc(l.timing.ProcessingDelay, func() { l.onProcessed(gen) })
	l.mu.Unlock()

	l.logger.Debug("scan started", "scans", scans)
	if l.hooks.OnScan != nil {
		l.hooks.OnScan(scans)
	}
}

func (l *Loop) onProcessed(gen uint64) {
	l.mu.Lock()
	if l.gen != gen || !l.processing {
		l.mu.Unlock()
		return
	}
	l.processing = false
	if l.dir == nil || l.dir.Len() == 0 {
		l.mu.Unlock()
		return
	}
	ev := Event{
		ID:         uuid.NewString(),
		Identity:   l.dir.At(l.rand.IntN(l.dir.Len())),
		Confidence: minConfidence + l.rand.Float64()*confidenceRange,
		DetectedAt: l.clock.Now(),
	}
	l.current = &ev
	l.phase = PhaseMatched
	l.pending = l.clock.AfterFunc(l.timing.DisplayWindow, func() { l.onDisplayElapsed(gen, ev.ID) })
	l.mu.Unlock()

	l.logger.Info("face matched", "event_id", ev.ID, "employee_id", ev.Identity.EmployeeID, "confidence", ev.Confidence)
	if l.hooks.OnMatch != nil {
		l.hooks.OnMatch(ev)
	}
}

func (l *Loop) onDisplayElapsed(gen uint64, eventID string) {
	l.mu.Lock()
	if l.gen != gen || l.phase != PhaseMatched || l.current == nil || l.current.ID != eventID {
		l.mu.Unlock()
		return
	}
	ev := *l.current
	l.current = nil
	l.phase = PhaseScanning
	l.mu.Unlock()

	l.logger.Debug("match expired", "event_id", ev.ID)
	if l.hooks.OnExpire != nil {
		l.hooks.OnExpire(ev)
	}
}

func (l *Loop) onConfirmElapsed(gen uint64, eventID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gen != gen || l.confirmation == nil || l.confirmation.EventID != eventID {
		return
	}
	l.current = nil
	l.confirmation = nil
	l.phase = PhaseScanning
}

func (l *Loop) stopTimersLocked() {
	if l.tick != nil {
		l.tick.Stop()
		l.tick = nil
	}
	if l.pending != nil {
		l.pending.Stop()
		l.pending = nil
	}
}

func (l *Loop) release(ctx context.Context, s camera.Stream) {
	if err := s.Close(); err != nil {
		l.logger.WarnContext(ctx, "release camera failed", "error", err)
	}
}
