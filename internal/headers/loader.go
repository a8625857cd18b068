// Package headers loads and decodes the full header set of a queued
// message on demand, using postcat.
package headers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"

	"github.com/foxzi/postq/internal/postfix"
	"github.com/foxzi/postq/internal/queue"
	"github.com/foxzi/postq/internal/source"
)

// ErrMessageGone is returned when the message left the queue between
// the snapshot and the header fetch. The condition is not transient,
// so callers report it instead of retrying.
var ErrMessageGone = errors.New("message no longer in queue")

// Loader fetches message headers lazily. Headers are cached on the
// record: a second Load for the same record returns the cached mapping
// without running postcat again.
type Loader struct {
	postcat string
	run     postfix.Runner
	logger  *slog.Logger
}

// NewLoader creates a header loader. An empty path falls back to the
// default postcat name.
func NewLoader(postcat string, run postfix.Runner, logger *slog.Logger) *Loader {
	if postcat == "" {
		postcat = postfix.DefaultCommands().Postcat
	}
	if run == nil {
		run = postfix.ExecRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{postcat: postcat, run: run, logger: logger}
}

// Load populates msg.Headers and returns the mapping. Encoded words
// are decoded to display text; a value that fails to decode is kept
// raw rather than failing the whole call.
func (l *Loader) Load(ctx context.Context, msg *queue.Message) (map[string][]string, error) {
	if msg.HeadersLoaded() {
		return msg.Headers, nil
	}

	out, err := l.run.Run(ctx, "", l.postcat, "-qh", msg.ID)
	if err != nil {
		if isGone(err) {
			return nil, fmt.Errorf("message %s: %w", msg.ID, ErrMessageGone)
		}
		return nil, fmt.Errorf("failed to fetch headers for %s: %w: %v", msg.ID, source.ErrUnavailable, err)
	}

	hdrs, err := parseHeaders(string(out))
	if err != nil {
		return nil, fmt.Errorf("failed to parse headers for %s: %w", msg.ID, err)
	}

	msg.Headers = hdrs
	l.logger.Debug("headers loaded", "id", msg.ID, "headers", len(hdrs))
	return hdrs, nil
}

// isGone recognizes the postcat failure for a queue file that no
// longer exists.
func isGone(err error) bool {
	s := err.Error()
	return strings.Contains(s, "No such file or directory") ||
		strings.Contains(s, "cannot open file")
}

// parseHeaders extracts the header block from postcat output: banner
// lines (*** ... ***) are skipped and collection stops at the first
// blank line, where the body starts.
func parseHeaders(raw string) (map[string][]string, error) {
	var block strings.Builder
	started := false
	for _, line := range strings.Split(raw, "\n") {
		if strings.HasPrefix(line, "*** ") {
			continue
		}
		if strings.TrimSpace(line) == "" {
			if started {
				break
			}
			continue
		}
		started = true
		block.WriteString(line)
		block.WriteString("\r\n")
	}
	block.WriteString("\r\n")

	entity, err := message.Read(strings.NewReader(block.String()))
	if err != nil && entity == nil {
		return nil, err
	}

	hdrs := make(map[string][]string)
	fields := entity.Header.Fields()
	for fields.Next() {
		// Text decodes encoded words using the declared charset; on an
		// unknown charset or a broken encoding the raw value is kept.
		text, err := fields.Text()
		if err != nil {
			text = fields.Value()
		}
		hdrs[fields.Key()] = append(hdrs[fields.Key()], text)
	}

	return hdrs, nil
}
