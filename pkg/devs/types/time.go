package types

import "fmt"

// Time is the opaque, totally ordered value a Timestamp carries. The core
// never assumes an integer or a floating-point representation; it only
// relies on the operations declared here.
type Time interface {
	// Less reports whether the receiver is strictly before other, using
	// whatever epsilon tolerance the concrete representation requires.
	Less(other Time) bool

	// Equal reports whether the receiver and other denote the same time,
	// within the representation's epsilon tolerance.
	Equal(other Time) bool

	// IsInfinity reports whether the value is the distinguished infinity.
	IsInfinity() bool

	// Add returns the receiver advanced by delta, saturating at infinity.
	Add(delta Time) Time

	// Sub returns the receiver minus delta. ok is false when the result
	// would be negative; callers treat that as a protocol violation.
	Sub(delta Time) (result Time, ok bool)

	String() string
}

// Timestamp pairs a Time value with a causal tie-breaking subfield, per
// the (time, causal) total order.
type Timestamp struct {
	At     Time
	Causal uint64
}

// Less implements the total order: compare At first, fall back to Causal.
func (t Timestamp) Less(o Timestamp) bool {
	if t.At.Equal(o.At) {
		return t.Causal < o.Causal
	}
	return t.At.Less(o.At)
}

func (t Timestamp) LessOrEqual(o Timestamp) bool {
	return t.Less(o) || t.Equal(o)
}

func (t Timestamp) Equal(o Timestamp) bool {
	return t.At.Equal(o.At) && t.Causal == o.Causal
}

func (t Timestamp) IsInfinity() bool {
	return t.At.IsInfinity()
}

// Add advances the timestamp by delta's At value, resetting causal to 0.
func (t Timestamp) Add(delta Timestamp) Timestamp {
	return Timestamp{At: t.At.Add(delta.At)}
}

// Sub subtracts delta from the timestamp. ok is false for a negative result.
func (t Timestamp) Sub(delta Timestamp) (Timestamp, bool) {
	at, ok := t.At.Sub(delta.At)
	if !ok {
		return Timestamp{}, false
	}
	return Timestamp{At: at}, true
}

func (t Timestamp) String() string {
	if t.Causal != 0 {
		return fmt.Sprintf("%s/%d", t.At.String(), t.Causal)
	}
	return t.At.String()
}

// NextCausal returns the same time with the causal field incremented,
// used to order a just-sent message strictly after the step that sent it.
func NextCausal(t Timestamp) Timestamp {
	return Timestamp{At: t.At, Causal: t.Causal + 1}
}

// MinTimestamp returns whichever of a, b sorts first.
func MinTimestamp(a, b Timestamp) Timestamp {
	if b.Less(a) {
		return b
	}
	return a
}

// MaxTimestamp returns whichever of a, b sorts last.
func MaxTimestamp(a, b Timestamp) Timestamp {
	if b.Less(a) {
		return a
	}
	return b
}
