// Package notify is the notification sink: short user-facing messages with
// a severity.
package notify

import (
	"sync"

	"github.com/liubaotong/favsync/internal/logging"
)

type Severity string

const (
	Info    Severity = "info"
	Success Severity = "success"
	Error   Severity = "error"
)

// Notifier accepts user-facing messages.
type Notifier interface {
	Notify(text string, sev Severity)
}

// Func adapts a function to Notifier.
type Func func(text string, sev Severity)

func (f Func) Notify(text string, sev Severity) { f(text, sev) }

// Discard drops every message.
var Discard Notifier = Func(func(string, Severity) {})

// LogNotifier writes messages to the structured log.
type LogNotifier struct{}

func (LogNotifier) Notify(text string, sev Severity) {
	ctx := map[string]interface{}{"severity": string(sev)}
	if sev == Error {
		logging.Warn(text, ctx)
		return
	}
	logging.Info(text, ctx)
}

// Multi fans a message out to several sinks.
type Multi []Notifier

func (m Multi) Notify(text string, sev Severity) {
	for _, n := range m {
		if n != nil {
			n.Notify(text, sev)
		}
	}
}

// Message is one recorded notification.
type Message struct {
	Text     string
	Severity Severity
}

// Recorder keeps every message it receives.
type Recorder struct {
	mu   sync.Mutex
	msgs []Message
}

func (r *Recorder) Notify(text string, sev Severity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, Message{Text: text, Severity: sev})
}

// Messages returns a copy of what was recorded so far.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.msgs))
	copy(out, r.msgs)
	return out
}

// Last returns the most recent message, if any.
func (r *Recorder) Last() (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.msgs) == 0 {
		return Message{}, false
	}
	return r.msgs[len(r.msgs)-1], true
}
