package logger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/r3labs/sse/v2"
	"github.com/rs/zerolog"
)

const (
	// LogsStream is the SSE stream log lines are published on.
	LogsStream = "logs"

	defaultTimeFormat = time.Kitchen
)

// SSEPublisher is the part of *sse.Server the writer needs.
type SSEPublisher interface {
	Publish(id string, event *sse.Event)
}

// LogMessage is the payload of one SSE log event.
type LogMessage struct {
	Time    string `json:"time"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

func (m LogMessage) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// SSEWriter converts zerolog JSON lines into console-like text and publishes them.
type SSEWriter struct {
	SSE        SSEPublisher
	TimeFormat string
}

func NewSSEWriter(sse SSEPublisher, options ...func(w *SSEWriter)) SSEWriter {
	w := SSEWriter{
		SSE:        sse,
		TimeFormat: defaultTimeFormat,
	}

	for _, opt := range options {
		opt(&w)
	}

	return w
}

func (w SSEWriter) Write(p []byte) (int, error) {
	if w.SSE == nil {
		return 0, nil
	}

	var evt map[string]interface{}
	d := json.NewDecoder(bytes.NewReader(p))
	d.UseNumber()
	if err := d.Decode(&evt); err != nil {
		return 0, fmt.Errorf("cannot decode event: %w", err)
	}

	msg := LogMessage{
		Time:    w.formatTime(evt[zerolog.TimestampFieldName]),
		Level:   formatLevel(evt[zerolog.LevelFieldName]),
		Message: w.formatMessage(evt),
	}

	data, err := msg.Bytes()
	if err != nil {
		return 0, err
	}

	w.SSE.Publish(LogsStream, &sse.Event{Data: data})

	return len(p), nil
}

func (w SSEWriter) formatTime(v interface{}) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	ts, err := time.Parse(zerolog.TimeFieldFormat, s)
	if err != nil {
		return s
	}
	return ts.Local().Format(w.TimeFormat)
}

func formatLevel(v interface{}) string {
	l, ok := v.(string)
	if !ok {
		return "???"
	}
	switch l {
	case zerolog.LevelTraceValue:
		return "TRC"
	case zerolog.LevelDebugValue:
		return "DBG"
	case zerolog.LevelInfoValue:
		return "INF"
	case zerolog.LevelWarnValue:
		return "WRN"
	case zerolog.LevelErrorValue:
		return "ERR"
	case zerolog.LevelFatalValue:
		return "FTL"
	case zerolog.LevelPanicValue:
		return "PNC"
	}
	return l
}

// formatMessage renders "caller > message key=value ..." with fields sorted by name.
func (w SSEWriter) formatMessage(evt map[string]interface{}) string {
	buf := new(bytes.Buffer)

	if caller, ok := evt[zerolog.CallerFieldName].(string); ok && caller != "" {
		buf.WriteString(caller)
		buf.WriteString(" > ")
	}
	if msg, ok := evt[zerolog.MessageFieldName].(string); ok {
		buf.WriteString(msg)
	}

	fields := make([]string, 0, len(evt))
	for field := range evt {
		switch field {
		case zerolog.TimestampFieldName, zerolog.LevelFieldName, zerolog.MessageFieldName, zerolog.CallerFieldName:
			continue
		}
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		buf.WriteByte(' ')
		buf.WriteString(field)
		buf.WriteByte('=')
		buf.WriteString(formatValue(evt[field]))
	}

	return buf.String()
}

func formatValue(v interface{}) string {
	var s string
	switch value := v.(type) {
	case string:
		s = value
	case json.Number:
		return value.String()
	default:
		b, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprintf("[error: %v]", err)
		}
		return string(b)
	}
	if needsQuote(s) {
		return fmt.Sprintf("%q", s)
	}
	return s
}

func needsQuote(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool {
		return r < 0x20 || r == ' ' || r == '\\' || r == '"'
	}) >= 0
}
