package enums

import "fmt"

// EventKind classifies a single stock mutation in the inventory history.
type EventKind string

const (
	EventKindAdd      EventKind = "add"
	EventKindRemove   EventKind = "remove"
	EventKindSet      EventKind = "set"
	EventKindAdjust   EventKind = "adjust"
	EventKindIncrease EventKind = "increase"
	EventKindDecrease EventKind = "decrease"
)

var validEventKinds = []EventKind{
	EventKindAdd,
	EventKindRemove,
	EventKindSet,
	EventKindAdjust,
	EventKindIncrease,
	EventKindDecrease,
}

// String implements fmt.Stringer.
func (k EventKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known EventKind.
func (k EventKind) IsValid() bool {
	for _, candidate := range validEventKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseEventKind converts raw input into an EventKind.
func ParseEventKind(value string) (EventKind, error) {
	for _, candidate := range validEventKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event kind %q", value)
}
