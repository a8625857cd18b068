package main

import (
	"testing"
	"time"

	"github.com/foxzi/postq/internal/queue"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"1000", 1000, false},
		{"10k", 10240, false},
		{"10K", 10240, false},
		{"2m", 2 * 1024 * 1024, false},
		{"1g", 1024 * 1024 * 1024, false},
		{"0", 0, false},
		{"-1", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := parseSize(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseSize(%q): expected error, got %d", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseSize(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseSize(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseTime(t *testing.T) {
	got, err := parseTime("2024-06-15 10:30:00")
	if err != nil {
		t.Fatalf("parseTime: %v", err)
	}
	want := time.Date(2024, 6, 15, 10, 30, 0, 0, time.Local)
	if !got.Equal(want) {
		t.Errorf("parseTime = %v, want %v", got, want)
	}

	got, err = parseTime("2024-06-15")
	if err != nil {
		t.Fatalf("parseTime date only: %v", err)
	}
	if got.Hour() != 0 || got.Day() != 15 {
		t.Errorf("parseTime date only = %v", got)
	}

	if _, err := parseTime("not a time"); err == nil {
		t.Error("parseTime accepted garbage")
	}
}

func TestSelectorFlagsBuild(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	msg := &queue.Message{
		ID:         "A1A1A1A1A1",
		Size:       5000,
		Arrived:    now.Add(-72 * time.Hour),
		Status:     queue.StatusDeferred,
		Sender:     "noreply@example.com",
		Recipients: []string{"user@remote.org"},
		Errors:     []string{"connection timed out"},
	}

	tests := []struct {
		name  string
		flags selectorFlags
		want  bool
	}{
		{"status match", selectorFlags{statuses: []string{"deferred"}}, true},
		{"status case-insensitive", selectorFlags{statuses: []string{"DEFERRED"}}, true},
		{"status miss", selectorFlags{statuses: []string{"held"}}, false},
		{"sender pattern", selectorFlags{sender: "*@example.com"}, true},
		{"rcpt substring", selectorFlags{rcpt: "remote.org"}, true},
		{"address either side", selectorFlags{address: "remote.org"}, true},
		{"error text", selectorFlags{errorText: "timed out"}, true},
		{"id", selectorFlags{ids: []string{"A1A1A1A1A1"}}, true},
		{"size window", selectorFlags{minSize: "1k", maxSize: "10k"}, true},
		{"size too small", selectorFlags{minSize: "10k"}, false},
		{"older than", selectorFlags{olderThan: 48 * time.Hour}, true},
		{"newer than excludes", selectorFlags{newerThan: 24 * time.Hour}, false},
		{"combined", selectorFlags{statuses: []string{"deferred"}, sender: "example.com", olderThan: 48 * time.Hour}, true},
		{"combined one miss", selectorFlags{statuses: []string{"deferred"}, sender: "other.net"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, hasSel, err := tt.flags.build(now)
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			if !hasSel {
				t.Fatal("build reported no selection flags")
			}
			if got := sel(msg); got != tt.want {
				t.Errorf("selector = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelectorFlagsBuildEmpty(t *testing.T) {
	var f selectorFlags
	sel, hasSel, err := f.build(time.Now())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if hasSel {
		t.Error("empty flags reported a selection")
	}
	if !sel(&queue.Message{ID: "B2B2B2B2B2"}) {
		t.Error("empty selector rejected a message")
	}
}

func TestSelectorFlagsBuildErrors(t *testing.T) {
	tests := []struct {
		name  string
		flags selectorFlags
	}{
		{"bad min size", selectorFlags{minSize: "lots"}},
		{"bad max size", selectorFlags{maxSize: "-5"}},
		{"bad since", selectorFlags{since: "yesterday"}},
		{"bad until", selectorFlags{until: "June"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := tt.flags.build(time.Now()); err == nil {
				t.Error("build accepted an invalid flag value")
			}
		})
	}
}

func TestSelectorFlagsDateBounds(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	f := selectorFlags{olderThan: 48 * time.Hour}
	from, to, err := f.dateBounds(now)
	if err != nil {
		t.Fatalf("dateBounds: %v", err)
	}
	if !from.IsZero() {
		t.Errorf("from = %v, want zero", from)
	}
	if want := now.Add(-48 * time.Hour); !to.Equal(want) {
		t.Errorf("to = %v, want %v", to, want)
	}

	f = selectorFlags{newerThan: 24 * time.Hour}
	from, _, err = f.dateBounds(now)
	if err != nil {
		t.Fatalf("dateBounds: %v", err)
	}
	if want := now.Add(-24 * time.Hour); !from.Equal(want) {
		t.Errorf("from = %v, want %v", from, want)
	}
}
