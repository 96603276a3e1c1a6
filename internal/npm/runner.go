package npm

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds a single npm invocation. Installs of large trees
// are slow but anything past this is treated as hung.
const DefaultTimeout = 10 * time.Minute

// ExecRunner runs npm as a subprocess with a per-command timeout.
type ExecRunner struct {
	// Timeout overrides DefaultTimeout when non-zero.
	Timeout time.Duration
}

// Run executes `npm args...` in dir and captures combined output.
// A non-zero exit or a deadline hit is reported through the Result,
// never as a Go error.
func (r *ExecRunner) Run(ctx context.Context, dir string, args ...string) Result {
	timeout := r.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "npm", args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()

	res := Result{Output: string(output)}
	if err == nil {
		res.OK = true
		return res
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		res.TimedOut = true
		res.Output = fmt.Sprintf("npm %s timed out after %s", strings.Join(args, " "), timeout)
		return res
	}

	if res.Output == "" {
		res.Output = err.Error()
	}
	return res
}

// InstallArgs builds the npm install arguments for a set of name@version
// pairs. Dev controls --save-dev vs --save-exact placement for the batch.
func InstallArgs(pkgs []string, dev, dryRun bool) []string {
	args := append([]string{"install"}, pkgs...)
	args = append(args, "--save-exact")
	if dev {
		args = append(args, "--save-dev")
	}
	if dryRun {
		args = append(args, "--dry-run")
	}
	return args
}
