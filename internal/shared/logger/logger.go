package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"time"
)

// Level: DEBUG, INFO, WARN, ERROR
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

func levelString(l Level) string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// ErrObj for error logs
type ErrObj struct {
	Msg   string `json:"msg"`
	Stack string `json:"stack,omitempty"`
}

// Entry strictly follows the required schema
type Entry struct {
	Timestamp     string         `json:"timestamp"`                // ISO 8601 (UTC)
	Level         string         `json:"level"`                    // INFO | DEBUG | WARN | ERROR
	Service       string         `json:"service"`                  // e.g., stream-processor
	Action        string         `json:"action"`                   // event name, e.g., batch_completed
	Message       string         `json:"message"`                  // human-readable
	Hostname      string         `json:"hostname"`                 // container/host
	CorrelationID string         `json:"correlation_id,omitempty"` // batch or record correlation id
	TripID        string         `json:"trip_id,omitempty"`        // when applicable
	Error         *ErrObj        `json:"error,omitempty"`          // only for ERROR
	Additional    map[string]any `json:"additional,omitempty"`     // optional extras
}

type Logger struct {
	service  string
	minLevel Level
	hostname string
	pretty   bool // если true, используем json.MarshalIndent

	outWriter io.Writer // stdout
	errWriter io.Writer // stderr для ошибок
	mu        sync.Mutex
}

// NewLogger stdout-only (recommended for prod)
func NewLogger(service string) *Logger {
	h, _ := os.Hostname()
	pretty := strings.ToLower(os.Getenv("LOG_PRETTY")) == "true"

	return &Logger{
		service:   service,
		minLevel:  ParseLevel(os.Getenv("LOG_LEVEL")),
		hostname:  h,
		pretty:    pretty,
		outWriter: os.Stdout,
		errWriter: os.Stderr,
	}
}

func (l *Logger) Debug(e Entry) { l.log(LevelDebug, e) }
func (l *Logger) Info(e Entry)  { l.log(LevelInfo, e) }
func (l *Logger) Warn(e Entry)  { l.log(LevelWarn, e) }
func (l *Logger) Error(e Entry) { l.log(LevelError, e) }
func (l *Logger) Fatal(e Entry) {
	// include stack automatically for fatal
	if e.Error == nil {
		e.Error = &ErrObj{Msg: e.Message, Stack: string(debug.Stack())}
	} else if e.Error.Stack == "" {
		e.Error.Stack = string(debug.Stack())
	}
	l.log(LevelError, e)
	os.Exit(1)
}

// WithCorrelation attaches a correlation id to every entry logged through it.
func (l *Logger) WithCorrelation(correlationID string) *ContextLogger {
	return &ContextLogger{parent: l, correlationID: correlationID}
}

type ContextLogger struct {
	parent        *Logger
	correlationID string
}

func (c *ContextLogger) Debug(e Entry) { c.parent.log(LevelDebug, c.merge(e)) }
func (c *ContextLogger) Info(e Entry)  { c.parent.log(LevelInfo, c.merge(e)) }
func (c *ContextLogger) Warn(e Entry)  { c.parent.log(LevelWarn, c.merge(e)) }
func (c *ContextLogger) Error(e Entry) { c.parent.log(LevelError, c.merge(e)) }

func (c *ContextLogger) merge(e Entry) Entry {
	if e.CorrelationID == "" {
		e.CorrelationID = c.correlationID
	}
	return e
}

func (l *Logger) log(level Level, e Entry) {
	if level < l.minLevel {
		return
	}

	// fill required fields
	if e.Timestamp == "" {
		e.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if e.Level == "" {
		e.Level = levelString(level)
	}
	if e.Service == "" {
		e.Service = l.service
	}
	if e.Hostname == "" {
		e.Hostname = l.hostname
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Выбираем writer в зависимости от уровня
	writer := l.outWriter
	if level == LevelError {
		writer = l.errWriter
	}

	var b []byte
	var err error
	if l.pretty {
		b, err = json.MarshalIndent(e, "", "  ")
	} else {
		b, err = json.Marshal(e)
	}
	if err != nil {
		// fallback: plain text to errWriter
		fmt.Fprintf(l.errWriter, `{"timestamp":"%s","level":"error","service":"%s","message":"failed to marshal log: %v"}`+"\n",
			time.Now().UTC().Format(time.RFC3339Nano), l.service, err)
		return
	}

	_, _ = writer.Write(b)
	_, _ = writer.Write([]byte("\n"))
}
