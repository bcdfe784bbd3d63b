package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

// LogEntry is the JSON shape of a single log line.
type LogEntry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Logger writes one JSON object per line.
type Logger struct {
	mu     *sync.Mutex
	out    io.Writer
	level  Level
	fields map[string]interface{}
}

func New() *Logger {
	return &Logger{
		mu:    &sync.Mutex{},
		out:   os.Stderr,
		level: LevelInfo,
	}
}

func (l *Logger) SetOutput(w io.Writer) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = w
	return l
}

func (l *Logger) SetLevel(level Level) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
	return l
}

// WithField returns a child logger that adds key to every entry. The child
// shares the parent's output and lock.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{
		mu:     l.mu,
		out:    l.out,
		level:  l.level,
		fields: merged,
	}
}

func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.log(LevelDebug, msg, fields...)
}

func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.log(LevelInfo, msg, fields...)
}

func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.log(LevelWarn, msg, fields...)
}

func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.log(LevelError, msg, fields...)
}

func (l *Logger) log(level Level, msg string, fields ...map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level.String(),
		Message:   msg,
	}
	if len(l.fields) > 0 || len(fields) > 0 {
		entry.Fields = make(map[string]interface{}, len(l.fields))
		for k, v := range l.fields {
			entry.Fields[k] = v
		}
		for _, f := range fields {
			for k, v := range f {
				entry.Fields[k] = v
			}
		}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		data = []byte(fmt.Sprintf(`{"level":%q,"message":%q}`, entry.Level, msg))
	}
	data = append(data, '\n')
	_, _ = l.out.Write(data)
}

// Default is the process-wide logger used by the package helpers.
var Default = New()

func SetDefaultLevel(level Level) {
	Default.SetLevel(level)
}

func Debug(msg string, fields ...map[string]interface{}) {
	Default.Debug(msg, fields...)
}

func Info(msg string, fields ...map[string]interface{}) {
	Default.Info(msg, fields...)
}

func Warn(msg string, fields ...map[string]interface{}) {
	Default.Warn(msg, fields...)
}

func Error(msg string, fields ...map[string]interface{}) {
	Default.Error(msg, fields...)
}
