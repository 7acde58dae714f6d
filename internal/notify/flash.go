package notify

import (
	"sync"
	"time"
)

// Phase is where a flash message is in its visibility lifecycle.
type Phase int

const (
	Hidden Phase = iota
	Visible
	Fading
)

const (
	DefaultHold = 3 * time.Second
	DefaultFade = 300 * time.Millisecond
)

// Flash shows one message at a time: visible for Hold, fading for Fade,
// then hidden. A new message replaces the current one and restarts the
// lifecycle.
type Flash struct {
	Hold time.Duration
	Fade time.Duration
	// OnChange is called (from a timer goroutine) whenever the phase changes.
	OnChange func()

	mu    sync.Mutex
	msg   Message
	phase Phase
	gen   uint64
	timer *time.Timer
}

// NewFlash returns a flash with the default timings.
func NewFlash() *Flash {
	return &Flash{Hold: DefaultHold, Fade: DefaultFade}
}

func (f *Flash) Notify(text string, sev Severity) {
	f.mu.Lock()
	if f.timer != nil {
		f.timer.Stop()
	}
	f.gen++
	gen := f.gen
	f.msg = Message{Text: text, Severity: sev}
	f.phase = Visible
	f.timer = time.AfterFunc(f.hold(), func() { f.advance(gen, Fading) })
	f.mu.Unlock()

	f.changed()
}

func (f *Flash) advance(gen uint64, next Phase) {
	f.mu.Lock()
	if gen != f.gen {
		f.mu.Unlock()
		return
	}
	f.phase = next
	if next == Fading {
		f.timer = time.AfterFunc(f.fade(), func() { f.advance(gen, Hidden) })
	} else {
		f.timer = nil
	}
	f.mu.Unlock()

	f.changed()
}

// Current returns the message and its phase. The message is zero when hidden.
func (f *Flash) Current() (Message, Phase) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.phase == Hidden {
		return Message{}, Hidden
	}
	return f.msg, f.phase
}

// Stop hides the message and cancels pending timers.
func (f *Flash) Stop() {
	f.mu.Lock()
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.gen++
	f.phase = Hidden
	f.mu.Unlock()
}

func (f *Flash) hold() time.Duration {
	if f.Hold <= 0 {
		return DefaultHold
	}
	return f.Hold
}

func (f *Flash) fade() time.Duration {
	if f.Fade <= 0 {
		return DefaultFade
	}
	return f.Fade
}

func (f *Flash) changed() {
	if f.OnChange != nil {
		f.OnChange()
	}
}
