package queue

import (
	"regexp"
	"time"
)

// Status represents the queue status of a message as derived from the
// postqueue listing annotations.
type Status string

const (
	StatusActive   Status = "active"
	StatusDeferred Status = "deferred"
	StatusHeld     Status = "held"
	StatusBounced  Status = "bounced"
	StatusCorrupt  Status = "corrupt"
)

// Message represents one queued message reconstructed from the listing.
type Message struct {
	ID         string    `json:"id"`
	Size       int64     `json:"size"`
	Arrived    time.Time `json:"arrived"`
	Status     Status    `json:"status"`
	Sender     string    `json:"sender"`
	Recipients []string  `json:"recipients"`

	// Errors holds the delivery failure reasons recorded by the agent,
	// in listing order.
	Errors []string `json:"errors,omitempty"`

	// ParseError carries the diagnostic for a corrupt listing entry.
	// Corrupt entries are retained with best-effort fields so operators
	// can see parse failures instead of losing them.
	ParseError string `json:"parse_error,omitempty"`

	// Headers is nil until loaded by headers.Loader.
	Headers map[string][]string `json:"headers,omitempty"`
}

// LastError returns the most recent delivery failure reason, or "".
func (m *Message) LastError() string {
	if len(m.Errors) == 0 {
		return ""
	}
	return m.Errors[len(m.Errors)-1]
}

// HeadersLoaded reports whether the full header set has been fetched.
func (m *Message) HeadersLoaded() bool {
	return m.Headers != nil
}

// Summary aggregates the current snapshot: per-status counts and total
// queue size. Computed on demand, O(n) over the snapshot.
type Summary struct {
	Total    int            `json:"total"`
	Bytes    int64          `json:"bytes"`
	ByStatus map[Status]int `json:"by_status"`
	Oldest   time.Time      `json:"oldest,omitempty"`
}

var (
	// queueIDRe matches Postfix queue IDs, optionally suffixed with the
	// postqueue status marker (* active, ! held).
	queueIDRe = regexp.MustCompile(`^[A-F0-9]{10,12}[*!]?$`)

	// addrRe is a deliberately loose address check for recipient lines.
	// RFC 3696 validation is trickier than it is worth here.
	addrRe = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]+$`)
)

// IsQueueID reports whether s looks like a Postfix queue ID, with or
// without a trailing status marker.
func IsQueueID(s string) bool {
	return queueIDRe.MatchString(s)
}
