package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/foxzi/postq/internal/queue"
)

// selectorFlags holds the message selection flags shared by the
// listing and action commands. Every populated flag contributes one
// predicate; predicates combine with AND.
type selectorFlags struct {
	statuses  []string
	sender    string
	rcpt      string
	address   string
	errorText string
	ids       []string
	minSize   string
	maxSize   string
	since     string
	until     string
	olderThan time.Duration
	newerThan time.Duration
}

func (f *selectorFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.statuses, "status", nil, "select by status (active, deferred, held, bounced, corrupt)")
	cmd.Flags().StringVar(&f.sender, "sender", "", "select by sender pattern (substring or wildcard, case-insensitive)")
	cmd.Flags().StringVar(&f.rcpt, "rcpt", "", "select by recipient pattern")
	cmd.Flags().StringVar(&f.address, "address", "", "select by sender or recipient pattern")
	cmd.Flags().StringVar(&f.errorText, "error", "", "select by delivery error substring")
	cmd.Flags().StringSliceVar(&f.ids, "id", nil, "select by explicit queue ID (repeatable)")
	cmd.Flags().StringVar(&f.minSize, "min-size", "", "select messages of at least this size (e.g. 10k)")
	cmd.Flags().StringVar(&f.maxSize, "max-size", "", "select messages of at most this size")
	cmd.Flags().StringVar(&f.since, "since", "", "select messages that arrived on or after this time (YYYY-MM-DD[ HH:MM[:SS]])")
	cmd.Flags().StringVar(&f.until, "until", "", "select messages that arrived on or before this time")
	cmd.Flags().DurationVar(&f.olderThan, "older-than", 0, "select messages queued longer than this duration (e.g. 48h)")
	cmd.Flags().DurationVar(&f.newerThan, "newer-than", 0, "select messages queued at most this long")
}

// build assembles the combined selector. The second return value
// reports whether any selection flag was set at all.
func (f *selectorFlags) build(now time.Time) (queue.Selector, bool, error) {
	var sels []queue.Selector

	if len(f.statuses) > 0 {
		statuses := make([]queue.Status, len(f.statuses))
		for i, s := range f.statuses {
			statuses[i] = queue.Status(strings.ToLower(s))
		}
		sels = append(sels, queue.MatchStatus(statuses...))
	}
	if f.sender != "" {
		sels = append(sels, queue.MatchSender(f.sender))
	}
	if f.rcpt != "" {
		sels = append(sels, queue.MatchRecipient(f.rcpt))
	}
	if f.address != "" {
		sels = append(sels, queue.MatchAddress(f.address))
	}
	if f.errorText != "" {
		sels = append(sels, queue.MatchError(f.errorText))
	}
	if len(f.ids) > 0 {
		sels = append(sels, queue.MatchID(f.ids...))
	}

	if f.minSize != "" || f.maxSize != "" {
		var min, max int64
		var err error
		if f.minSize != "" {
			if min, err = parseSize(f.minSize); err != nil {
				return nil, false, fmt.Errorf("invalid --min-size: %w", err)
			}
		}
		if f.maxSize != "" {
			if max, err = parseSize(f.maxSize); err != nil {
				return nil, false, fmt.Errorf("invalid --max-size: %w", err)
			}
		}
		sels = append(sels, queue.MatchSize(min, max))
	}

	from, to, err := f.dateBounds(now)
	if err != nil {
		return nil, false, err
	}
	if !from.IsZero() || !to.IsZero() {
		sels = append(sels, queue.MatchDate(from, to))
	}

	if len(sels) == 0 {
		return queue.And(), false, nil
	}
	return queue.And(sels...), true, nil
}

func (f *selectorFlags) dateBounds(now time.Time) (from, to time.Time, err error) {
	if f.since != "" {
		if from, err = parseTime(f.since); err != nil {
			return from, to, fmt.Errorf("invalid --since: %w", err)
		}
	}
	if f.until != "" {
		if to, err = parseTime(f.until); err != nil {
			return from, to, fmt.Errorf("invalid --until: %w", err)
		}
	}
	if f.olderThan > 0 {
		to = now.Add(-f.olderThan)
	}
	if f.newerThan > 0 {
		from = now.Add(-f.newerThan)
	}
	return from, to, nil
}

var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	time.RFC3339,
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

// parseSize parses a byte count with an optional k/m/g suffix.
func parseSize(s string) (int64, error) {
	mult := int64(1)
	switch {
	case strings.HasSuffix(strings.ToLower(s), "k"):
		mult, s = 1024, s[:len(s)-1]
	case strings.HasSuffix(strings.ToLower(s), "m"):
		mult, s = 1024*1024, s[:len(s)-1]
	case strings.HasSuffix(strings.ToLower(s), "g"):
		mult, s = 1024*1024*1024, s[:len(s)-1]
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unrecognized size %q", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("size must not be negative")
	}
	return n * mult, nil
}
