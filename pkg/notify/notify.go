// Package notify defines the status sink consumed by the orchestration core.
//
// The core emits human-readable status lines through the Notifier interface
// and never depends on the transport behind it; the default transport is the
// application logger, tests typically use a WriterNotifier.
package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/dbforge/xbak/pkg/plog"
)

// Notifier is a single sink for human-readable status lines.
type Notifier interface {
	Notify(message string)
}

// LogNotifier routes notifications through the application logger at NOTICE level.
type LogNotifier struct{}

// Notify implements the Notifier interface.
func (LogNotifier) Notify(message string) {
	plog.Notice(message)
}

// WriterNotifier writes one line per notification to an io.Writer.
// It is safe for concurrent use.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterNotifier creates a WriterNotifier for the given writer.
func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

// Notify implements the Notifier interface.
func (n *WriterNotifier) Notify(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintln(n.w, message)
}

// Recorder captures notifications in memory. Intended for tests.
type Recorder struct {
	mu   sync.Mutex
	msgs []string
}

// Notify implements the Notifier interface.
func (r *Recorder) Notify(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, message)
}

// Messages returns a copy of everything recorded so far.
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}

// MultiNotifier fans a notification out to several sinks.
type MultiNotifier []Notifier

// Notify implements the Notifier interface.
func (m MultiNotifier) Notify(message string) {
	for _, n := range m {
		n.Notify(message)
	}
}

// Statically assert that our types implement the interface.
var (
	_ Notifier = LogNotifier{}
	_ Notifier = (*WriterNotifier)(nil)
	_ Notifier = (*Recorder)(nil)
	_ Notifier = MultiNotifier(nil)
)
