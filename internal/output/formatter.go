package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/soren/sotto/internal/stream"
	"github.com/soren/sotto/internal/stt"
)

// Record is one transcript update as written to an output sink.
type Record struct {
	SessionID     string    `json:"session_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	Final         bool      `json:"final"`
	Text          string    `json:"text"`
	ConfirmedText string    `json:"confirmed_text"`

	Segments []stt.Segment    `json:"segments,omitempty"`
	Words    []stt.WordTiming `json:"words,omitempty"`
}

// RecordFromSnapshot flattens an engine snapshot into a record.
func RecordFromSnapshot(sessionID string, snap *stream.Snapshot, final bool) Record {
	rec := Record{
		SessionID:     sessionID,
		Timestamp:     time.Now(),
		Final:         final,
		Text:          snap.Text,
		ConfirmedText: snap.ConfirmedText,
	}
	rec.Segments = append(rec.Segments, snap.ConfirmedSegments...)
	rec.Segments = append(rec.Segments, snap.UnconfirmedSegments...)
	rec.Words = append(rec.Words, snap.ConfirmedWords...)
	rec.Words = append(rec.Words, snap.HypothesisWords...)
	return rec
}

// Event represents a system event
type Event struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Formatter is the interface for output formatters
type Formatter interface {
	// WriteUpdate writes a transcript update
	WriteUpdate(rec Record) error

	// WritePartial writes a partial (in-progress) result
	WritePartial(text string) error

	// WriteEvent writes a system event (e.g., status changes)
	WriteEvent(eventType, message string) error

	// Flush ensures all buffered output is written
	Flush() error

	// Close closes the formatter and releases resources
	Close() error
}

// NewFormatter returns the formatter for a config format name.
func NewFormatter(format string, w io.Writer) (Formatter, error) {
	switch format {
	case "json":
		return NewJSONFormatter(w), nil
	case "text", "":
		return NewPlainTextFormatter(w), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// JSONFormatter outputs transcript updates as JSON lines
type JSONFormatter struct {
	writer  io.Writer
	encoder *json.Encoder
	finals  []Record
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(writer io.Writer) *JSONFormatter {
	return &JSONFormatter{
		writer:  writer,
		encoder: json.NewEncoder(writer),
		finals:  make([]Record, 0),
	}
}

// WriteUpdate writes a transcript update in JSON format
func (j *JSONFormatter) WriteUpdate(rec Record) error {
	if rec.Final {
		// Only store final results
		j.finals = append(j.finals, rec)
	}
	return j.encoder.Encode(rec)
}

// WritePartial writes a partial result
func (j *JSONFormatter) WritePartial(text string) error {
	rec := Record{
		Text:      text,
		Timestamp: time.Now(),
	}
	return j.encoder.Encode(rec)
}

// WriteEvent writes a system event
func (j *JSONFormatter) WriteEvent(eventType, message string) error {
	event := Event{
		Type:      eventType,
		Message:   message,
		Timestamp: time.Now(),
	}
	return j.encoder.Encode(event)
}

// Flush ensures all buffered output is written
func (j *JSONFormatter) Flush() error {
	// JSON encoder writes immediately, nothing to flush
	return nil
}

// Close closes the formatter
func (j *JSONFormatter) Close() error {
	return nil
}

// Finals returns all final transcript records written so far
func (j *JSONFormatter) Finals() []Record {
	return j.finals
}

// PlainTextFormatter outputs final transcripts as plain text
type PlainTextFormatter struct {
	writer io.Writer
}

// NewPlainTextFormatter creates a new plain text formatter
func NewPlainTextFormatter(writer io.Writer) *PlainTextFormatter {
	return &PlainTextFormatter{
		writer: writer,
	}
}

// WriteUpdate writes a transcript update in plain text. Intermediate
// updates are skipped; the final text is what a text file should hold.
func (p *PlainTextFormatter) WriteUpdate(rec Record) error {
	if !rec.Final {
		return nil
	}
	_, err := fmt.Fprintln(p.writer, rec.Text)
	return err
}

// WritePartial writes a partial result (no-op for plain text)
func (p *PlainTextFormatter) WritePartial(text string) error {
	return nil
}

// WriteEvent writes a system event
func (p *PlainTextFormatter) WriteEvent(eventType, message string) error {
	timestamp := time.Now().Format("15:04:05")
	_, err := fmt.Fprintf(p.writer, "[%s] [%s] %s\n", timestamp, eventType, message)
	return err
}

// Flush ensures all buffered output is written
func (p *PlainTextFormatter) Flush() error {
	return nil
}

// Close closes the formatter
func (p *PlainTextFormatter) Close() error {
	return nil
}
