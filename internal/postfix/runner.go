// Package postfix runs the Postfix command line utilities that postq
// wraps: postqueue, postcat and postsuper.
package postfix

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes one external command and returns its standard output.
// Stderr is captured separately and included in the returned error so
// failures can be diagnosed without re-running the command.
type Runner interface {
	Run(ctx context.Context, stdin string, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, stdin string, name string, args ...string) ([]byte, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return nil, fmt.Errorf("command %s not found: %w", name, err)
	}

	cmd := exec.CommandContext(ctx, path, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = strings.TrimSpace(stdout.String())
		}
		if detail != "" {
			return stdout.Bytes(), fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, detail)
		}
		return stdout.Bytes(), fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}

	return stdout.Bytes(), nil
}

// Commands holds the paths of the Postfix utilities. Names without a
// directory component are resolved through PATH at invocation time.
type Commands struct {
	Postqueue string
	Postcat   string
	Postsuper string
}

// DefaultCommands returns the standard utility names.
func DefaultCommands() Commands {
	return Commands{
		Postqueue: "postqueue",
		Postcat:   "postcat",
		Postsuper: "postsuper",
	}
}
