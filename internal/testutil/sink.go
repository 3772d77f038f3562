// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"bytes"
	"io"
	"strings"
	"sync"
)

type (
	// Entry is one line received by a RecordingSink.
	Entry struct {
		Ctx   string
		Text  string
		Error bool
	}

	// RecordingSink keeps every logged line in memory. It is safe for
	// concurrent use.
	RecordingSink struct {
		mu      sync.Mutex
		entries []Entry
	}

	sinkWriter struct {
		mu   sync.Mutex
		sink *RecordingSink
		ctx  string
		buf  bytes.Buffer
	}
)

// Log records text under ctx, one entry per line.
func (s *RecordingSink) Log(ctx, text string) {
	s.add(ctx, text, false)
}

// Error records text under ctx as an error.
func (s *RecordingSink) Error(ctx, text string) {
	s.add(ctx, text, true)
}

// Writer returns a writer that records each complete line under ctx.
func (s *RecordingSink) Writer(ctx string) io.Writer {
	return &sinkWriter{sink: s, ctx: ctx}
}

// Entries returns a copy of everything recorded so far.
func (s *RecordingSink) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.entries...)
}

// Texts returns the recorded lines for ctx, or all lines when ctx is empty.
func (s *RecordingSink) Texts(ctx string) []string {
	var out []string
	for _, e := range s.Entries() {
		if ctx == "" || e.Ctx == ctx {
			out = append(out, e.Text)
		}
	}
	return out
}

// Contains reports whether any line under ctx contains substr.
func (s *RecordingSink) Contains(ctx, substr string) bool {
	for _, text := range s.Texts(ctx) {
		if strings.Contains(text, substr) {
			return true
		}
	}
	return false
}

func (s *RecordingSink) add(ctx, text string, isErr bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		s.entries = append(s.entries, Entry{Ctx: ctx, Text: line, Error: isErr})
	}
}

func (w *sinkWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// Keep the partial line for the next write.
			w.buf.Reset()
			w.buf.WriteString(line)
			return len(p), nil
		}
		w.sink.add(w.ctx, strings.TrimRight(line, "\r\n"), false)
	}
}
