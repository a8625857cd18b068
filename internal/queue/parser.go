package queue

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// postqueue prints arrival times without a year.
const arrivalLayout = "Mon Jan 2 15:04:05 2006"

// Parse converts the textual output of `postqueue -p` into message
// records, preserving listing order. Entries are blank line separated:
// a header line carries queue ID, size, arrival time and sender,
// parenthesised lines carry delivery errors and indented lines carry
// recipients. Malformed entries are retained with StatusCorrupt and a
// diagnostic instead of being dropped. Empty input yields no records.
func Parse(raw string) []*Message {
	return parse(raw, time.Now())
}

func parse(raw string, now time.Time) []*Message {
	var (
		msgs   []*Message
		cur    *Message
		marker byte
	)

	finalize := func() {
		if cur == nil {
			return
		}
		resolveStatus(cur, marker)
		msgs = append(msgs, cur)
		cur, marker = nil, 0
	}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)

		switch {
		case line == "":
			finalize()
			continue
		case strings.HasPrefix(line, "-Queue ID-"), strings.HasPrefix(line, "--"):
			// postqueue banner and footer lines
			finalize()
			continue
		case line == "Mail queue is empty":
			continue
		}

		fields := strings.Fields(line)

		if strings.HasPrefix(fields[0], "(") {
			// Delivery error, stored without the surrounding parenthesis.
			if cur == nil {
				cur = corruptEntry(line, "error line outside of a queue entry")
				continue
			}
			joined := strings.Join(fields, " ")
			cur.Errors = append(cur.Errors, strings.Trim(joined, "()"))
			continue
		}

		if IsQueueID(fields[0]) {
			finalize()
			cur, marker = parseHeaderLine(fields, now)
			continue
		}

		if cur == nil {
			// An entry that does not open with a valid queue ID. Keep it
			// visible to the operator instead of dropping it.
			cur = corruptEntry(line, fmt.Sprintf("malformed header line: %q", line))
			continue
		}

		// Recipient continuation line. Address validation is loose on
		// purpose; lines that do not look like an address at all are
		// wrapped fragments and are skipped.
		addr := strings.Join(fields, " ")
		if addrRe.MatchString(addr) {
			cur.Recipients = append(cur.Recipients, addr)
		}
	}
	finalize()

	return msgs
}

// parseHeaderLine builds a record from a listing header line:
//
//	C0004979687*    4769 Tue Apr 29 06:35:05  sender@domain.com
//
// The trailing marker on the queue ID maps to the message status.
func parseHeaderLine(fields []string, now time.Time) (*Message, byte) {
	id := fields[0]
	var marker byte
	if last := id[len(id)-1]; last == '*' || last == '!' {
		marker = last
		id = id[:len(id)-1]
	}

	m := &Message{ID: id}

	if len(fields) < 6 {
		m.Status = StatusCorrupt
		m.ParseError = fmt.Sprintf("short header line: %q", strings.Join(fields, " "))
		return m, marker
	}

	size, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil || size < 0 {
		m.Status = StatusCorrupt
		m.ParseError = fmt.Sprintf("invalid size %q", fields[1])
	} else {
		m.Size = size
	}

	arrived, err := parseArrival(fields[2:6], now)
	if err != nil {
		m.Status = StatusCorrupt
		m.ParseError = fmt.Sprintf("invalid arrival time %q", strings.Join(fields[2:6], " "))
	} else {
		m.Arrived = arrived
	}

	if len(fields) > 6 {
		m.Sender = strings.Join(fields[6:], " ")
	}

	return m, marker
}

// parseArrival parses "Dow Mon DD HH:MM:SS". The listing omits the
// year, so the current year is assumed; a result in the future means
// the message arrived last year.
func parseArrival(fields []string, now time.Time) (time.Time, error) {
	datestr := fmt.Sprintf("%s %d", strings.Join(fields, " "), now.Year())
	arrived, err := time.ParseInLocation(arrivalLayout, datestr, now.Location())
	if err != nil {
		return time.Time{}, err
	}
	if arrived.After(now) {
		arrived = arrived.AddDate(-1, 0, 0)
	}
	return arrived, nil
}

func corruptEntry(line, diag string) *Message {
	m := &Message{Status: StatusCorrupt, ParseError: diag}
	if fields := strings.Fields(line); len(fields) > 0 && !strings.HasPrefix(fields[0], "(") {
		m.ID = strings.TrimRight(fields[0], "*!")
	}
	return m
}

// resolveStatus derives the final status of a completed entry. The
// annotation table: * means active, ! means held; without a marker an
// empty sender is a bounce notification, recorded errors mean deferred
// and anything else is active.
func resolveStatus(m *Message, marker byte) {
	if m.Status == StatusCorrupt {
		if m.ParseError == "" {
			m.ParseError = "unparsable listing entry"
		}
		return
	}

	if len(m.Recipients) == 0 {
		m.Status = StatusCorrupt
		m.ParseError = "entry has no recipients"
		return
	}

	switch {
	case marker == '*':
		m.Status = StatusActive
	case marker == '!':
		m.Status = StatusHeld
	case m.Sender == "":
		m.Status = StatusBounced
	case len(m.Errors) > 0:
		m.Status = StatusDeferred
	default:
		m.Status = StatusActive
	}
}
