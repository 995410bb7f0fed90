// Package notify delivers operator-facing alerts (stop-price triggers,
// position mismatches, close-order failures) to zero or more external
// sinks. Grounded on original_source/trading_bot.py's send_notification,
// which fans a single message out to Lark and Telegram.
package notify

// Severity classifies a notification for sinks that want to style or
// filter on it.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// Message is a single alert payload delivered to every configured sink.
type Message struct {
	Severity Severity
	Text     string
}

// Sink delivers a Message to some external channel. Send must not block
// the engine loop for long; implementations should apply their own
// timeout.
type Sink interface {
	Send(msg Message)
}

// MultiSink fans a Message out to every configured sink, matching
// send_notification's "send to every configured channel" behavior.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink builds a MultiSink from zero or more sinks (nil sinks are
// skipped, so callers can pass conditionally-constructed sinks directly).
func NewMultiSink(sinks ...Sink) *MultiSink {
	filtered := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			filtered = append(filtered, s)
		}
	}
	return &MultiSink{sinks: filtered}
}

func (m *MultiSink) Send(msg Message) {
	for _, s := range m.sinks {
		s.Send(msg)
	}
}
