package notify

import "testing"

type recordingSink struct {
	received []Message
}

func (r *recordingSink) Send(msg Message) {
	r.received = append(r.received, msg)
}

func TestMultiSinkFansOutToEverySink(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	m := NewMultiSink(a, b)

	m.Send(Message{Severity: SeverityWarn, Text: "stop price hit"})

	for i, s := range []*recordingSink{a, b} {
		if len(s.received) != 1 {
			t.Fatalf("sink %d received %d messages, want 1", i, len(s.received))
		}
		if s.received[0].Text != "stop price hit" {
			t.Errorf("sink %d got text %q", i, s.received[0].Text)
		}
	}
}

func TestMultiSinkFiltersNilSinks(t *testing.T) {
	a := &recordingSink{}
	m := NewMultiSink(a, nil)

	// Must not panic despite the nil entry.
	m.Send(Message{Severity: SeverityInfo, Text: "hello"})

	if len(a.received) != 1 {
		t.Fatalf("received %d messages, want 1", len(a.received))
	}
}

func TestMultiSinkWithNoSinksDoesNotPanic(t *testing.T) {
	m := NewMultiSink()
	m.Send(Message{Severity: SeverityError, Text: "unreachable"})
}
