package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Status represents the delivery lifecycle state of a message.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
	StatusFailed    Status = "failed"
)

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusSent, StatusDelivered, StatusRead, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition may leave this status.
// delivered only admits read, so it is terminal for every other event.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusRead, StatusFailed:
		return true
	}
	return false
}

// transitions is the full reachability graph of the status state machine.
var transitions = map[Status][]Status{
	StatusPending:   {StatusSent, StatusFailed},
	StatusSent:      {StatusDelivered, StatusFailed},
	StatusDelivered: {StatusRead},
	StatusRead:      {},
	StatusFailed:    {},
}

// CanTransitionTo reports whether the graph contains an edge from s to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func ParseStatusFromString(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid status %q", ErrValidation, s)
	}
	return st, nil
}

// ParseProviderStatus maps a provider-reported status onto the internal
// enumeration. The table is closed: anything outside sent|delivered|read|failed
// is rejected with ErrUnknownStatus, never silently accepted.
func ParseProviderStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sent":
		return StatusSent, nil
	case "delivered":
		return StatusDelivered, nil
	case "read":
		return StatusRead, nil
	case "failed":
		return StatusFailed, nil
	}
	return "", fmt.Errorf("%w: provider status %q", ErrUnknownStatus, s)
}

// StatusSource identifies which component recorded a status transition.
type StatusSource string

const (
	SourceDispatcher StatusSource = "dispatcher"
	SourceProvider   StatusSource = "provider"
)

func (s StatusSource) String() string { return string(s) }

// StatusEvent is one accepted entry in a message's append-only status history.
type StatusEvent struct {
	ID        string
	MessageID string
	Status    Status
	Timestamp time.Time
	Source    StatusSource
	CreatedAt time.Time
}

// destinationPattern accepts international phone numbers: optional plus,
// then 9 to 15 digits.
var destinationPattern = regexp.MustCompile(`^\+?[1-9]\d{8,14}$`)

// ValidateDestination checks E.164-like formatting of a recipient number.
func ValidateDestination(destination string) error {
	if !destinationPattern.MatchString(strings.TrimSpace(destination)) {
		return fmt.Errorf("%w: destination %q is not a valid phone number", ErrValidation, destination)
	}
	return nil
}

// Message is the durable record of one logical send, including its resends.
type Message struct {
	ID                string
	Destination       string
	Body              string
	TemplateName      *string
	Language          *string
	OrderID           *string
	Variables         map[string]string
	Status            Status
	ProviderMessageID *string
	AttemptCount      int
	ErrorDetail       *string
	LastStatusAt      time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time

	// History is the ordered append-only log of accepted transitions.
	// Populated on detail lookups; nil on list results.
	History []StatusEvent
}

func (m *Message) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: message is required", ErrValidation)
	}
	if err := ValidateDestination(m.Destination); err != nil {
		return err
	}
	if strings.TrimSpace(m.Body) == "" {
		return fmt.Errorf("%w: body is required", ErrValidation)
	}
	if !m.Status.IsValid() {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, m.Status)
	}
	return nil
}

// IsTemplated reports whether the message was rendered from a template.
func (m *Message) IsTemplated() bool {
	return m.TemplateName != nil && *m.TemplateName != ""
}
