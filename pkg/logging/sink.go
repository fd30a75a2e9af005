package logging

import (
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

// EntrySink logs every line through a logrus entry at info level.
type EntrySink struct {
	Entry  *logrus.Entry
	Stream string
}

// NewEntrySink returns a sink tagging lines with the given stream name.
func NewEntrySink(entry *logrus.Entry, stream string) *EntrySink {
	return &EntrySink{Entry: entry, Stream: stream}
}

func (s *EntrySink) WriteLine(line string) {
	entry := s.Entry
	if entry == nil {
		entry = NewLogger("process")
	}
	if s.Stream != "" {
		entry = entry.WithField("stream", s.Stream)
	}
	entry.Info(line)
}

// WriterSink writes each line, newline terminated, to an io.Writer.
// It is safe for concurrent use.
type WriterSink struct {
	mu     sync.Mutex
	w      io.Writer
	prefix string
}

// NewWriterSink returns a sink writing to w with an optional line prefix.
func NewWriterSink(w io.Writer, prefix string) *WriterSink {
	return &WriterSink{w: w, prefix: prefix}
}

func (s *WriterSink) WriteLine(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "%s%s\n", s.prefix, line)
}

// RecordingSink keeps every line in memory.
type RecordingSink struct {
	mu    sync.Mutex
	lines []string
}

func (s *RecordingSink) WriteLine(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, line)
}

// Lines returns a copy of the recorded lines.
func (s *RecordingSink) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.lines))
	copy(out, s.lines)
	return out
}

type discardSink struct{}

func (discardSink) WriteLine(string) {}

// Discard drops every line.
var Discard = discardSink{}
