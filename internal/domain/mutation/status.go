package mutation

// Status represents the lifecycle state of a mutation form
type Status string

// Mutation statuses
const (
	StatusDraft    Status = "DRAFT"
	StatusSent     Status = "SENT"
	StatusReceived Status = "RECEIVED"
	StatusPartial  Status = "PARTIAL"
)

// IsValid checks if the status is one of the known statuses
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusReceived, StatusPartial:
		return true
	}
	return false
}

// String returns the string representation
func (s Status) String() string {
	return string(s)
}

// IsFinal reports whether the status terminates the receive workflow.
// PARTIAL is not final: a partially received form may be received again.
func (s Status) IsFinal() bool {
	return s == StatusReceived
}

// ParseStatus maps a raw stored value onto a known status.
// Legacy rows may carry values written before the status set was fixed;
// those are reported as not ok and the caller decides how to render them.
func ParseStatus(raw string) (Status, bool) {
	s := Status(raw)
	if s.IsValid() {
		return s, true
	}
	return s, false
}

// MovementType distinguishes the two rows written per transferred item
type MovementType string

// Movement types. Each submitted item produces a "keluar" (outgoing) row
// for the sending outlet and a "masuk" (incoming) row for the receiver.
const (
	MovementOut MovementType = "keluar"
	MovementIn  MovementType = "masuk"
)

// IsValid checks if the movement type is known
func (m MovementType) IsValid() bool {
	return m == MovementOut || m == MovementIn
}
