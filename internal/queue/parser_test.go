package queue

import (
	"strings"
	"testing"
	"time"
)

var parseNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

const sampleListing = `-Queue ID- --Size-- ----Arrival Time---- -Sender/Recipient-------
C0004979687     4769 Tue Apr 29 06:35:05  sender@domain.com
(connect to mx.remote1.org[10.0.0.1]:25: Connection timed out)
                                         first.rcpt@remote1.org
                                         second.rcpt@remote2.org

A1B2C3D4E5*     1234 Mon Apr 28 10:00:00  boss@domain.com
                                         someone@example.org

FEEDFACE01!     9999 Sun Apr 27 09:30:00  held@domain.com
                                         held.rcpt@example.org

-- 17 Kbytes in 3 Requests.`

func TestParse(t *testing.T) {
	msgs := parse(sampleListing, parseNow)
	if len(msgs) != 3 {
		t.Fatalf("parse() returned %d messages, want 3", len(msgs))
	}

	// Order preservation: records come out in listing order.
	wantIDs := []string{"C0004979687", "A1B2C3D4E5", "FEEDFACE01"}
	for i, want := range wantIDs {
		if msgs[i].ID != want {
			t.Errorf("msgs[%d].ID = %q, want %q", i, msgs[i].ID, want)
		}
	}

	first := msgs[0]
	if first.Size != 4769 {
		t.Errorf("Size = %d, want 4769", first.Size)
	}
	if first.Sender != "sender@domain.com" {
		t.Errorf("Sender = %q, want sender@domain.com", first.Sender)
	}
	if first.Status != StatusDeferred {
		t.Errorf("Status = %q, want %q", first.Status, StatusDeferred)
	}
	if got := first.LastError(); !strings.Contains(got, "Connection timed out") {
		t.Errorf("LastError() = %q, want a connection timeout", got)
	}
	wantRcpts := []string{"first.rcpt@remote1.org", "second.rcpt@remote2.org"}
	if len(first.Recipients) != len(wantRcpts) {
		t.Fatalf("Recipients = %v, want %v", first.Recipients, wantRcpts)
	}
	for i, want := range wantRcpts {
		if first.Recipients[i] != want {
			t.Errorf("Recipients[%d] = %q, want %q", i, first.Recipients[i], want)
		}
	}

	wantArrived := time.Date(2024, time.April, 29, 6, 35, 5, 0, time.UTC)
	if !first.Arrived.Equal(wantArrived) {
		t.Errorf("Arrived = %v, want %v", first.Arrived, wantArrived)
	}

	if msgs[1].Status != StatusActive {
		t.Errorf("active marker: Status = %q, want %q", msgs[1].Status, StatusActive)
	}
	if msgs[2].Status != StatusHeld {
		t.Errorf("hold marker: Status = %q, want %q", msgs[2].Status, StatusHeld)
	}
}

func TestParseEmptyInput(t *testing.T) {
	for _, raw := range []string{"", "\n\n", "Mail queue is empty"} {
		if msgs := parse(raw, parseNow); len(msgs) != 0 {
			t.Errorf("parse(%q) returned %d messages, want 0", raw, len(msgs))
		}
	}
}

func TestParseNoMarkerWithoutErrorsIsActive(t *testing.T) {
	raw := "ABCDEF0123     512 Mon Jun 10 08:00:00  a@x.com\n" +
		"                                         b@y.com\n"
	msgs := parse(raw, parseNow)
	if len(msgs) != 1 {
		t.Fatalf("parse() returned %d messages, want 1", len(msgs))
	}
	if msgs[0].Status != StatusActive {
		t.Errorf("Status = %q, want %q", msgs[0].Status, StatusActive)
	}
}

func TestParseEmptySenderIsBounce(t *testing.T) {
	raw := "ABCDEF0123     512 Mon Jun 10 08:00:00\n" +
		"                                         b@y.com\n"
	msgs := parse(raw, parseNow)
	if len(msgs) != 1 {
		t.Fatalf("parse() returned %d messages, want 1", len(msgs))
	}
	if msgs[0].Status != StatusBounced {
		t.Errorf("Status = %q, want %q", msgs[0].Status, StatusBounced)
	}
	if msgs[0].Sender != "" {
		t.Errorf("Sender = %q, want empty", msgs[0].Sender)
	}
}

func TestParseMalformedEntryIsCorrupt(t *testing.T) {
	raw := "A1A1A1A1A1     1000 Tue Jun 11 06:35:05  a@x.com\n" +
		"                                         r1@x.com\n" +
		"\n" +
		"B2B2B2B2B2  5000000 Tue Jun 11 07:00:00  b@x.com\n" +
		"(host refused)\n" +
		"                                         r2@x.com\n" +
		"\n" +
		"not-a-queue-entry at all\n"
	msgs := parse(raw, parseNow)
	if len(msgs) != 3 {
		t.Fatalf("parse() returned %d messages, want 3", len(msgs))
	}

	corrupt := msgs[2]
	if corrupt.Status != StatusCorrupt {
		t.Fatalf("Status = %q, want %q", corrupt.Status, StatusCorrupt)
	}
	if corrupt.ParseError == "" {
		t.Error("ParseError is empty, want a diagnostic")
	}
}

func TestParseInvalidSizeIsCorrupt(t *testing.T) {
	raw := "ABCDEF0123     12x4 Mon Jun 10 08:00:00  a@x.com\n" +
		"                                         b@y.com\n"
	msgs := parse(raw, parseNow)
	if len(msgs) != 1 {
		t.Fatalf("parse() returned %d messages, want 1", len(msgs))
	}
	if msgs[0].Status != StatusCorrupt {
		t.Errorf("Status = %q, want %q", msgs[0].Status, StatusCorrupt)
	}
	if !strings.Contains(msgs[0].ParseError, "invalid size") {
		t.Errorf("ParseError = %q, want invalid size diagnostic", msgs[0].ParseError)
	}
	// Best-effort fields survive for the operator.
	if msgs[0].ID != "ABCDEF0123" {
		t.Errorf("ID = %q, want ABCDEF0123", msgs[0].ID)
	}
}

func TestParseNoRecipientsIsCorrupt(t *testing.T) {
	raw := "ABCDEF0123     512 Mon Jun 10 08:00:00  a@x.com\n"
	msgs := parse(raw, parseNow)
	if len(msgs) != 1 {
		t.Fatalf("parse() returned %d messages, want 1", len(msgs))
	}
	if msgs[0].Status != StatusCorrupt {
		t.Errorf("Status = %q, want %q", msgs[0].Status, StatusCorrupt)
	}
}

func TestParseArrivalYearRollsBack(t *testing.T) {
	// June 15 snapshot: a December arrival cannot be this year.
	raw := "ABCDEF0123     512 Mon Dec 30 08:00:00  a@x.com\n" +
		"                                         b@y.com\n"
	msgs := parse(raw, parseNow)
	if len(msgs) != 1 {
		t.Fatalf("parse() returned %d messages, want 1", len(msgs))
	}
	if got := msgs[0].Arrived.Year(); got != 2023 {
		t.Errorf("Arrived.Year() = %d, want 2023", got)
	}
}

func TestIsQueueID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"C0004979687", true},
		{"ABCDEF0123", true},
		{"ABCDEF0123*", true},
		{"ABCDEF0123!", true},
		{"abcdef0123", false},
		{"SHORT", false},
		{"user@example.com", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsQueueID(tt.id); got != tt.want {
			t.Errorf("IsQueueID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}
