package telemetry

import (
	"context"
	"sync"
	"time"

	"inspection-capture/internal/capability"
	"inspection-capture/internal/logging"
	"inspection-capture/internal/media"

	"github.com/google/uuid"
)

// exportTimeout bounds a single exporter call.
const exportTimeout = 10 * time.Second

// FileDetails is the file metadata captured with an entry.
type FileDetails struct {
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
	Format       string    `json:"format"`
}

// Entry is one immutable debug record.
type Entry struct {
	ID           string             `json:"id"`
	Timestamp    time.Time          `json:"timestamp"`
	Browser      capability.Browser `json:"browser"`
	UserAgent    string             `json:"userAgent,omitempty"`
	Capabilities capability.Report  `json:"capabilities"`
	File         *FileDetails       `json:"fileDetails,omitempty"`
	Error        string             `json:"error,omitempty"`
}

// Failed reports whether the entry records an error.
func (e Entry) Failed() bool {
	return e.Error != ""
}

// Exporter forwards entries elsewhere, e.g. to the storage server.
type Exporter interface {
	Export(ctx context.Context, entry Entry) error
}

// Observer counts recorded entries.
type Observer interface {
	ObserveEntry(browser string, failed bool)
}

// Log is the process-wide debug log. It is passed explicitly to the
// components that write to it.
type Log struct {
	env      capability.Environment
	observer Observer
	now      func() time.Time

	mu        sync.RWMutex
	entries   []Entry
	exporters []Exporter
	exports   sync.WaitGroup
}

// NewLog creates an empty log that probes env on every Record.
func NewLog(env capability.Environment, observer Observer) *Log {
	return &Log{
		env:      env,
		observer: observer,
		now:      time.Now,
	}
}

// AddExporter registers an exporter for entries recorded from now on.
func (l *Log) AddExporter(e Exporter) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.exporters = append(l.exporters, e)
}

// Record snapshots the capabilities, browser, file and error and appends
// the resulting entry. Both f and err may be nil.
func (l *Log) Record(f *media.File, err error) Entry {
	entry := Entry{
		ID:           uuid.NewString(),
		Timestamp:    l.now(),
		Browser:      capability.BrowserOf(l.env),
		Capabilities: capability.Probe(l.env),
	}
	if l.env != nil {
		entry.UserAgent = userAgent(l.env)
	}
	if f != nil {
		entry.File = &FileDetails{
			Name:         f.Name,
			Type:         f.Type,
			Size:         f.Size,
			LastModified: f.LastModified,
			Format:       media.SniffFormat(f.Data),
		}
	}
	if err != nil {
		entry.Error = err.Error()
	}

	l.append(entry, true)
	return entry
}

// Append adds an entry produced elsewhere, such as one ingested from a
// capture client. Exporters are not invoked.
func (l *Log) Append(entry Entry) Entry {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = l.now()
	}
	l.append(entry, false)
	return entry
}

func (l *Log) append(entry Entry, export bool) {
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	var exporters []Exporter
	if export {
		exporters = append(exporters, l.exporters...)
	}
	l.mu.Unlock()

	if l.observer != nil {
		l.observer.ObserveEntry(string(entry.Browser), entry.Failed())
	}
	if entry.Failed() {
		logging.Debug("Telemetry %s: %s (browser %s)", entry.ID, entry.Error, entry.Browser)
	}

	for _, e := range exporters {
		l.exports.Add(1)
		go func(e Exporter) {
			defer l.exports.Done()
			ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
			defer cancel()
			if err := e.Export(ctx, entry); err != nil {
				logging.Warn("Failed to export telemetry entry %s: %v", entry.ID, err)
			}
		}(e)
	}
}

// Flush waits for in-flight exports to finish.
func (l *Log) Flush() {
	l.exports.Wait()
}

// Report returns a copy of all entries in recording order.
func (l *Log) Report() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Since returns a copy of the entries from position offset on.
func (l *Log) Since(offset int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if offset < 0 {
		offset = 0
	}
	if offset >= len(l.entries) {
		return []Entry{}
	}
	out := make([]Entry, len(l.entries)-offset)
	copy(out, l.entries[offset:])
	return out
}

// Len returns the number of recorded entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

func userAgent(env capability.Environment) (ua string) {
	defer func() {
		if recover() != nil {
			ua = ""
		}
	}()
	return env.UserAgent()
}

// View is the operator-facing presentation of a Log. Clear hides what has
// been shown so far; the underlying log keeps every entry.
type View struct {
	log *Log

	mu     sync.Mutex
	offset int
}

// NewView creates a view showing every entry of log.
func NewView(log *Log) *View {
	return &View{log: log}
}

// NewViewAt creates a view that hides the first offset entries, restoring
// a Clear made by an earlier process.
func NewViewAt(log *Log, offset int) *View {
	return &View{log: log, offset: max(offset, 0)}
}

// Entries returns the entries recorded since the last Clear.
func (v *View) Entries() []Entry {
	v.mu.Lock()
	offset := v.offset
	v.mu.Unlock()
	return v.log.Since(offset)
}

// Clear hides all current entries from the view.
func (v *View) Clear() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.offset = v.log.Len()
}

// Offset returns the position of the first visible entry.
func (v *View) Offset() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.offset
}
