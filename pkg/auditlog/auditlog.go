// Package auditlog is the best-effort structured logger of
// SPEC_FULL.md §3/§4.7: every audit record is built with zerolog and
// shipped as the JSON payload of an order.info|debug|error message on
// the logs exchange. Publish failures never propagate — they fall back
// to a local console writer.
package auditlog

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Severity is the routing-key suffix used for an audit record
// (order.<severity>).
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityDebug Severity = "debug"
	SeverityError Severity = "error"
)

// Publisher is the minimal bus capability auditlog needs: it never talks
// to RabbitMQ directly to avoid a dependency cycle with internal/bus.
type Publisher interface {
	PublishMessage(exchange, routingKey string, message interface{}) error
}

// Record is the structured payload shipped to the logs exchange.
type Record struct {
	Measurement string                 `json:"measurement"`
	Service     string                 `json:"service"`
	Severity    Severity               `json:"severity"`
	Message     string                 `json:"message"`
	Fields      map[string]interface{} `json:"fields,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
}

// Logger decorates records with {measurement:"logs", service:<name>} and
// ships them to the logs exchange, falling back to a local zerolog
// console writer on publish failure.
type Logger struct {
	service   string
	exchange  string
	bus       Publisher
	fallback  zerolog.Logger
}

func New(service, exchange string, bus Publisher) *Logger {
	return &Logger{
		service:  service,
		exchange: exchange,
		bus:      bus,
		fallback: zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger(),
	}
}

func (l *Logger) Info(message string, fields map[string]interface{}) {
	l.emit(SeverityInfo, message, fields)
}

func (l *Logger) Debug(message string, fields map[string]interface{}) {
	l.emit(SeverityDebug, message, fields)
}

func (l *Logger) Error(message string, err error, fields map[string]interface{}) {
	if fields == nil {
		fields = map[string]interface{}{}
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	l.emit(SeverityError, message, fields)
}

func (l *Logger) emit(severity Severity, message string, fields map[string]interface{}) {
	rec := Record{
		Measurement: "logs",
		Service:     l.service,
		Severity:    severity,
		Message:     message,
		Fields:      fields,
		Timestamp:   time.Now().UTC(),
	}

	routingKey := "order." + string(severity)
	if err := l.bus.PublishMessage(l.exchange, routingKey, rec); err != nil {
		// LoggingFailure is swallowed per SPEC_FULL.md §8; fall back locally.
		ev := l.fallback.WithLevel(zerologLevel(severity)).Str("publish_error", err.Error())
		for k, v := range fields {
			ev = ev.Interface(k, v)
		}
		ev.Msg(message)
	}
}

func zerologLevel(s Severity) zerolog.Level {
	switch s {
	case SeverityError:
		return zerolog.ErrorLevel
	case SeverityDebug:
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}
