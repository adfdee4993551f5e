package console

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rivo/tview"
)

// LogLevel represents the severity of a log message
type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

// LogMessage represents a single log entry
type LogMessage struct {
	Time    time.Time
	Level   LogLevel
	Message string
}

// LogManager keeps recent log lines and renders them into a text view. It
// is an io.Writer so zap can log straight into the panel.
type LogManager struct {
	textView    *tview.TextView
	messages    []LogMessage
	maxMessages int
	partial     []byte
	mu          sync.Mutex

	// onChange is called after the view content changes
	onChange func()
}

// NewLogManager creates a new log manager
func NewLogManager(maxMessages int) *LogManager {
	textView := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetMaxLines(maxMessages)
	textView.SetBorder(true).SetTitle(" Logs ")

	return &LogManager{
		textView:    textView,
		messages:    make([]LogMessage, 0, maxMessages),
		maxMessages: maxMessages,
	}
}

// View returns the tview component
func (lm *LogManager) View() tview.Primitive {
	return lm.textView
}

// Write splits p into lines and records each one. The level is taken from
// the zap console encoder's level column when present.
func (lm *LogManager) Write(p []byte) (int, error) {
	lm.mu.Lock()
	lm.partial = append(lm.partial, p...)
	var lines []string
	for {
		i := bytes.IndexByte(lm.partial, '\n')
		if i < 0 {
			break
		}
		lines = append(lines, string(lm.partial[:i]))
		lm.partial = lm.partial[i+1:]
	}
	lm.mu.Unlock()

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		level, msg := parseLine(line)
		lm.AddLog(level, "%s", msg)
	}
	return len(p), nil
}

// parseLine extracts the level from "<time>\t<LEVEL>\t<message...>".
func parseLine(line string) (LogLevel, string) {
	fields := strings.SplitN(line, "\t", 3)
	if len(fields) == 3 {
		switch lvl := LogLevel(strings.ToUpper(fields[1])); lvl {
		case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
			return lvl, fields[2]
		case "DPANIC", "PANIC", "FATAL":
			return LogLevelError, fields[2]
		}
	}
	return LogLevelInfo, line
}

// AddLog adds a log message with the specified level
func (lm *LogManager) AddLog(level LogLevel, format string, args ...interface{}) {
	lm.mu.Lock()
	lm.messages = append(lm.messages, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: fmt.Sprintf(format, args...),
	})
	if len(lm.messages) > lm.maxMessages {
		lm.messages = lm.messages[len(lm.messages)-lm.maxMessages:]
	}
	lm.refresh()
	onChange := lm.onChange
	lm.mu.Unlock()

	if onChange != nil {
		onChange()
	}
}

func (lm *LogManager) Info(format string, args ...interface{}) {
	lm.AddLog(LogLevelInfo, format, args...)
}

func (lm *LogManager) Warn(format string, args ...interface{}) {
	lm.AddLog(LogLevelWarn, format, args...)
}

func (lm *LogManager) Error(format string, args ...interface{}) {
	lm.AddLog(LogLevelError, format, args...)
}

// Messages returns a copy of the retained messages.
func (lm *LogManager) Messages() []LogMessage {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return append([]LogMessage(nil), lm.messages...)
}

// refresh redraws the text view; callers hold mu.
func (lm *LogManager) refresh() {
	var b strings.Builder
	for _, msg := range lm.messages {
		fmt.Fprintf(&b, "[gray]%s[-] [%s]%-5s[-] %s\n",
			msg.Time.Format("15:04:05"), colorForLevel(msg.Level), msg.Level, tview.Escape(msg.Message))
	}
	lm.textView.SetText(b.String())
	lm.textView.ScrollToEnd()
}

func colorForLevel(level LogLevel) string {
	switch level {
	case LogLevelDebug:
		return "gray"
	case LogLevelWarn:
		return "yellow"
	case LogLevelError:
		return "red"
	default:
		return "white"
	}
}
