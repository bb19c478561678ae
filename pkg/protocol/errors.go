package protocol

import "fmt"

// ExpertNotFoundError reports a registry lookup for an unknown expert id.
// It enables typed error discrimination via errors.As.
type ExpertNotFoundError struct {
	ID int
}

func (e *ExpertNotFoundError) Error() string {
	return fmt.Sprintf("expert %d not found", e.ID)
}

// DuplicateNameError reports a registration attempt with a name that is
// already taken (names are unique case-insensitively). Registration is
// rejected before any state mutation.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("expert name %q already registered", e.Name)
}

// TransportError reports a failed hand-off to the delivery transport.
// The router converts it into a failed delivery outcome; it never escapes
// a process-queue cycle as a hard error.
type TransportError struct {
	Target string // transport locator the delivery was addressed to
	Reason string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport delivery to %s failed: %s", e.Target, e.Reason)
}
