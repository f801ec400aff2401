// Package execx runs the external commands the pipeline drives and captures
// their output. All collaborators (uploader, package builder, metadata
// attacher, container runtime) go through the Runner interface so test
// doubles can stand in without spawning processes.
package execx

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/kballard/go-shellquote"
	"go.uber.org/zap"

	"github.com/genexomics/runpack/errors"
)

// Runner executes one external command and returns its standard output.
// A non-zero exit is returned as an error carrying the stderr tail.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout string, err error)
}

// CommandRunner is the real Runner backed by os/exec.
type CommandRunner struct {
	log *zap.SugaredLogger
}

// NewCommandRunner returns a Runner that logs each command line it executes.
func NewCommandRunner(log *zap.SugaredLogger) *CommandRunner {
	return &CommandRunner{log: log}
}

// Run executes name with args, returning captured stdout.
func (r *CommandRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	argv := append([]string{name}, args...)
	r.log.Debugw("exec", "command", shellquote.Join(argv...))

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := stderrTail(stderr.String()); msg != "" {
			return stdout.String(), errors.Wrapf(err, "%s failed: %s", name, msg)
		}
		return stdout.String(), errors.Wrapf(err, "%s failed", name)
	}
	return stdout.String(), nil
}

// SplitCommand splits a configured command line ("python3 bin/tool.py") into
// the executable and its leading arguments.
func SplitCommand(command string) (string, []string, error) {
	parts, err := shellquote.Split(command)
	if err != nil {
		return "", nil, errors.Wrapf(err, "invalid command line %q", command)
	}
	if len(parts) == 0 {
		return "", nil, errors.Newf("empty command line")
	}
	return parts[0], parts[1:], nil
}

// Lines splits captured output into trimmed, non-empty lines.
func Lines(output string) []string {
	var lines []string
	for _, line := range strings.Split(output, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// stderrTail keeps the last few lines of stderr so wrapped errors stay
// readable when a tool dumps a long traceback.
func stderrTail(stderr string) string {
	lines := Lines(stderr)
	if len(lines) > 3 {
		lines = lines[len(lines)-3:]
	}
	return strings.Join(lines, "; ")
}
