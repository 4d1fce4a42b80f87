package security

import "time"

const userAgentMaxLen = 100

// Event is an immutable record of a security-relevant occurrence. It is
// created by the JWT error classifier and consumed by the ThreatDetector and
// the EventLogger; nothing mutates it after construction except the
// detector's own kind-reclassification (brute force / suspicious pattern),
// which happens before the event is handed to the logger.
type Event struct {
	Timestamp time.Time
	Kind      Kind
	Origin    string
	UserAgent string
	RequestID string
	Subject   string // optional; empty if unknown
	TokenID   string // optional; empty if unknown (jti)
	Details   map[string]any
	Level     ThreatLevel
}

// NewEvent constructs an Event with the user agent truncated per spec §3.
func NewEvent(now time.Time, kind Kind, origin, userAgent, requestID string) Event {
	if len(userAgent) > userAgentMaxLen {
		userAgent = userAgent[:userAgentMaxLen]
	}
	return Event{
		Timestamp: now,
		Kind:      kind,
		Origin:    origin,
		UserAgent: userAgent,
		RequestID: requestID,
		Level:     LevelLow,
	}
}

// WithSubject sets the optional subject identifier and returns the event.
func (e Event) WithSubject(subject string) Event {
	e.Subject = subject
	return e
}

// WithTokenID sets the optional token identifier and returns the event.
func (e Event) WithTokenID(tokenID string) Event {
	e.TokenID = tokenID
	return e
}

// WithDetails sets the optional free-form details map and returns the event.
func (e Event) WithDetails(details map[string]any) Event {
	e.Details = details
	return e
}
