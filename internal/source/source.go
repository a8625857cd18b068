// Package source provides the raw queue listing inputs: the live
// postqueue command or a previously captured listing file.
package source

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/foxzi/postq/internal/postfix"
)

// ErrUnavailable is returned when the raw listing cannot be read.
var ErrUnavailable = errors.New("listing source unavailable")

// Listing produces the textual queue dump of the transfer agent.
type Listing interface {
	// Fetch returns the complete listing text.
	Fetch(ctx context.Context) (string, error)

	// String describes the source for logs and reload diagnostics.
	String() string
}

// Command reads the listing from `postqueue -p`.
type Command struct {
	path string
	run  postfix.Runner
}

// NewCommand creates a live listing source. An empty path falls back to
// the default postqueue name.
func NewCommand(path string, run postfix.Runner) *Command {
	if path == "" {
		path = postfix.DefaultCommands().Postqueue
	}
	if run == nil {
		run = postfix.ExecRunner{}
	}
	return &Command{path: path, run: run}
}

func (c *Command) Fetch(ctx context.Context) (string, error) {
	out, err := c.run.Run(ctx, "", c.path, "-p")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return string(out), nil
}

func (c *Command) String() string {
	return fmt.Sprintf("command:%s -p", c.path)
}

// File reads a captured listing from disk, for offline and test use.
type File struct {
	path string
}

func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Fetch(ctx context.Context) (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return string(data), nil
}

func (f *File) String() string {
	return "file:" + f.path
}
