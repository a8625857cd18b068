package queue

import (
	"path"
	"strings"
	"time"
)

// Selector is a pure predicate over a message record. Selectors are
// values: combining them with And produces a new selector, so complex
// queries can be built once and reused across snapshots.
type Selector func(*Message) bool

// And combines selectors with logical AND semantics, short-circuiting
// on the first failing predicate. With no arguments it matches
// everything.
func And(sels ...Selector) Selector {
	return func(m *Message) bool {
		for _, sel := range sels {
			if !sel(m) {
				return false
			}
		}
		return true
	}
}

// MatchDate selects messages that arrived within [from, to], bounds
// inclusive. A zero time leaves that bound open. An inverted range
// (from after to) selects nothing rather than failing, which keeps
// combinators total.
func MatchDate(from, to time.Time) Selector {
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return func(*Message) bool { return false }
	}
	return func(m *Message) bool {
		if !from.IsZero() && m.Arrived.Before(from) {
			return false
		}
		if !to.IsZero() && m.Arrived.After(to) {
			return false
		}
		return true
	}
}

// MatchSize selects messages with size in [min, max] bytes, bounds
// inclusive. A max of zero leaves the upper bound open; a negative or
// absent minimum counts as zero, so a maximum-only selector matches
// everything up to max.
func MatchSize(min, max int64) Selector {
	if min < 0 {
		min = 0
	}
	if max > 0 && min > max {
		return func(*Message) bool { return false }
	}
	return func(m *Message) bool {
		if m.Size < min {
			return false
		}
		if max > 0 && m.Size > max {
			return false
		}
		return true
	}
}

// MatchSender selects messages whose sender matches pattern.
func MatchSender(pattern string) Selector {
	match := patternMatcher(pattern)
	return func(m *Message) bool {
		return match(m.Sender)
	}
}

// MatchRecipient selects messages with at least one recipient matching
// pattern.
func MatchRecipient(pattern string) Selector {
	match := patternMatcher(pattern)
	return func(m *Message) bool {
		for _, rcpt := range m.Recipients {
			if match(rcpt) {
				return true
			}
		}
		return false
	}
}

// MatchAddress selects messages whose sender or any recipient matches
// pattern.
func MatchAddress(pattern string) Selector {
	sender := MatchSender(pattern)
	rcpt := MatchRecipient(pattern)
	return func(m *Message) bool {
		return sender(m) || rcpt(m)
	}
}

// MatchID selects messages whose queue ID is in the given set.
// Membership is a hash lookup per record.
func MatchID(ids ...string) Selector {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[strings.TrimRight(id, "*!")] = struct{}{}
	}
	return func(m *Message) bool {
		_, ok := set[m.ID]
		return ok
	}
}

// MatchStatus selects messages in any of the given statuses.
func MatchStatus(statuses ...Status) Selector {
	set := make(map[Status]struct{}, len(statuses))
	for _, st := range statuses {
		set[st] = struct{}{}
	}
	return func(m *Message) bool {
		_, ok := set[m.Status]
		return ok
	}
}

// MatchError selects messages with a recorded delivery error
// containing substr, case-insensitively.
func MatchError(substr string) Selector {
	substr = strings.ToLower(substr)
	return func(m *Message) bool {
		for _, e := range m.Errors {
			if strings.Contains(strings.ToLower(e), substr) {
				return true
			}
		}
		return false
	}
}

// patternMatcher builds a case-insensitive matcher: patterns with
// wildcards (* or ?) match the whole value, anything else matches as a
// substring.
func patternMatcher(pattern string) func(string) bool {
	pattern = strings.ToLower(pattern)
	if strings.ContainsAny(pattern, "*?") {
		return func(v string) bool {
			ok, err := path.Match(pattern, strings.ToLower(v))
			return err == nil && ok
		}
	}
	return func(v string) bool {
		return strings.Contains(strings.ToLower(v), pattern)
	}
}
