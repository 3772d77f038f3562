// SPDX-License-Identifier: MPL-2.0

package logsink

import (
	"bytes"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
)

// Sources with a fixed color.
const (
	SourceBleep     = "bleep"
	SourceTypeCheck = "tsc"
	SourceBundler   = "bundler"
)

var sourceColors = map[string]lipgloss.Color{
	SourceBleep:     lipgloss.Color("6"),
	SourceTypeCheck: lipgloss.Color("3"),
	SourceBundler:   lipgloss.Color("4"),
}

const (
	defaultColor = lipgloss.Color("8")
	errorColor   = lipgloss.Color("1")
)

type (
	// Sink receives tagged build output. Implementations must be safe for
	// concurrent use.
	Sink interface {
		Log(source, text string)
		Error(source, text string)
		// Writer returns a writer that logs each line written to it.
		Writer(source string) io.Writer
	}

	// Options mirror the log section of the configuration.
	Options struct {
		// Time prefixes each line with the wall clock.
		Time bool
		// Ctx prefixes each line with its source.
		Ctx bool
		// Heap prefixes each line with the process RSS.
		Heap bool
		// Color enables ANSI colors. When false, escapes in the text are
		// removed as well.
		Color bool
		// Level is a charmbracelet/log level name; lines below it are dropped.
		Level string
	}

	// Logger is the Sink used by the CLI.
	Logger struct {
		out     io.Writer
		opts    Options
		level   log.Level
		rss     func() uint64
		mu      sync.Mutex
		loggers map[string]*log.Logger
	}

	lineWriter struct {
		mu     sync.Mutex
		sink   Sink
		source string
		buf    bytes.Buffer
	}
)

// New creates a Logger writing to out.
func New(out io.Writer, opts Options) *Logger {
	level, err := log.ParseLevel(opts.Level)
	if err != nil {
		level = log.InfoLevel
	}
	return &Logger{
		out:     out,
		opts:    opts,
		level:   level,
		rss:     RSS,
		loggers: make(map[string]*log.Logger),
	}
}

// Log writes text under source, one entry per line.
func (l *Logger) Log(source, text string) {
	l.write(source, text, false)
}

// Error writes text under source at error level.
func (l *Logger) Error(source, text string) {
	l.write(source, text, true)
}

// Writer returns a line-buffered writer that logs under source.
func (l *Logger) Writer(source string) io.Writer {
	return &lineWriter{sink: l, source: source}
}

func (l *Logger) write(source, text string, isErr bool) {
	lg := l.logger(source)
	for _, line := range l.prepare(source, text) {
		if isErr {
			lg.Error(line)
		} else {
			lg.Info(line)
		}
	}
}

func (l *Logger) prepare(source, text string) []string {
	if !l.opts.Color {
		text = StripColor(text)
	}
	lines := SplitLines(text)
	for i, line := range lines {
		line = stripTimestamp(source, line)
		if l.opts.Heap {
			line = l.heapPrefix() + line
		}
		lines[i] = line
	}
	return lines
}

func (l *Logger) heapPrefix() string {
	rss := l.rss()
	style := lipgloss.NewStyle().Foreground(defaultColor)
	if rss > heavyRSS {
		style = style.Foreground(errorColor)
	}
	if !l.opts.Color {
		return FormatRSS(rss) + " "
	}
	return style.Render(FormatRSS(rss)) + " "
}

// logger returns the per-source logger, creating it on first use.
func (l *Logger) logger(source string) *log.Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lg, ok := l.loggers[source]; ok {
		return lg
	}

	lg := log.NewWithOptions(l.out, log.Options{
		ReportTimestamp: l.opts.Time,
		TimeFormat:      "15:04:05",
		Level:           l.level,
	})
	if l.opts.Ctx {
		lg.SetPrefix(source)
	}

	styles := log.DefaultStyles()
	// Plain lines carry no level label; errors keep theirs.
	delete(styles.Levels, log.InfoLevel)
	styles.Timestamp = lipgloss.NewStyle().Foreground(defaultColor)
	color, ok := sourceColors[source]
	if !ok {
		color = defaultColor
	}
	styles.Prefix = lipgloss.NewStyle().Foreground(color)
	styles.Levels[log.ErrorLevel] = styles.Levels[log.ErrorLevel].Foreground(errorColor)
	lg.SetStyles(styles)

	if !l.opts.Color {
		lg.SetColorProfile(termenv.Ascii)
	}

	l.loggers[source] = lg
	return lg
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		i := bytes.IndexAny(w.buf.Bytes(), "\n\r\f")
		if i < 0 {
			return len(p), nil
		}
		line := string(w.buf.Next(i + 1))
		w.sink.Log(w.source, line)
	}
}

// Flush logs any partial line still buffered.
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() > 0 {
		w.sink.Log(w.source, w.buf.String())
		w.buf.Reset()
	}
}

// Flush flushes w when it buffers partial lines.
func Flush(w io.Writer) {
	if f, ok := w.(interface{ Flush() }); ok {
		f.Flush()
	}
}
