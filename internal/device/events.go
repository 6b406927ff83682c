package device

import "github.com/orbitlabs/orbit/internal/backend"

// EventKind discriminates incoming device event variants.
type EventKind int

const (
	// EventTabReceived carries tabs sent to this device.
	EventTabReceived EventKind = iota + 1
)

func (k EventKind) String() string {
	switch k {
	case EventTabReceived:
		return "tabReceived"
	default:
		return "unknown"
	}
}

// Event is an incoming device event surfaced to the application.
// From is nil when the sending device is unknown.
type Event struct {
	Kind    EventKind
	From    *backend.Device
	Entries []backend.TabEntry
}

// OutgoingEventKind discriminates outgoing device event variants.
type OutgoingEventKind int

const (
	// OutgoingSendTab delivers a title/URL pair to another device.
	OutgoingSendTab OutgoingEventKind = iota + 1
)

// OutgoingEvent is a command to send to another device in the constellation.
type OutgoingEvent struct {
	Kind  OutgoingEventKind
	Title string
	URL   string
}

// SendTab builds an outgoing send-tab event.
func SendTab(title, url string) OutgoingEvent {
	return OutgoingEvent{Kind: OutgoingSendTab, Title: title, URL: url}
}

// eventsFromAccount converts decoded account events into device events,
// dropping kinds this layer doesn't surface.
func eventsFromAccount(in []backend.AccountEvent) []Event {
	out := make([]Event, 0, len(in))
	for _, ev := range in {
		switch ev.Kind {
		case backend.AccountEventTabReceived:
			out = append(out, Event{
				Kind:    EventTabReceived,
				From:    ev.From,
				Entries: ev.Entries,
			})
		}
	}
	return out
}
