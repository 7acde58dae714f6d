// Package logging provides structured logging for favsync.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	global *logrus.Logger
	mu     sync.Mutex
)

// Options configures the global logger.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // text or json
}

// Init (re)configures the global logger. Unknown levels fall back to info.
func Init(out io.Writer, opts Options) *logrus.Logger {
	mu.Lock()
	defer mu.Unlock()

	l := logrus.New()
	l.SetOutput(out)

	level, err := logrus.ParseLevel(strings.TrimSpace(opts.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if strings.EqualFold(opts.Format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	global = l
	return l
}

// Get returns the global logger, creating an info-level stderr logger on
// first use.
func Get() *logrus.Logger {
	mu.Lock()
	l := global
	mu.Unlock()
	if l == nil {
		return Init(os.Stderr, Options{Level: "info"})
	}
	return l
}

// Discard silences the global logger. Tests use it to keep output clean.
func Discard() {
	Init(io.Discard, Options{Level: "error"})
}

func entry(context []map[string]interface{}) *logrus.Entry {
	fields := logrus.Fields{}
	for _, c := range context {
		for k, v := range c {
			fields[k] = v
		}
	}
	return Get().WithFields(fields)
}

func Debug(message string, context ...map[string]interface{}) {
	entry(context).Debug(message)
}

func Info(message string, context ...map[string]interface{}) {
	entry(context).Info(message)
}

func Warn(message string, context ...map[string]interface{}) {
	entry(context).Warn(message)
}

// Error logs message with err attached under the "error" key.
func Error(message string, err error, context ...map[string]interface{}) {
	e := entry(context)
	if err != nil {
		e = e.WithError(err)
	}
	e.Error(message)
}
