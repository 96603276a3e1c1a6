// Package npm drives the npm command line as an opaque external process.
// Every invocation returns a Result instead of an error so callers can
// route failures through the conflict interpreter rather than unwinding.
package npm

import "context"

// Result is the outcome of one npm invocation.
type Result struct {
	// OK is true when the command exited zero.
	OK bool

	// Output is the combined stdout/stderr text, used for diagnostics
	// and conflict classification on failure.
	Output string

	// TimedOut is true when the command was killed by its deadline.
	TimedOut bool
}

// Runner executes npm commands in a project directory. The production
// implementation shells out; tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) Result
}

// Dependency is one declared dependency read from package.json,
// in declaration order.
type Dependency struct {
	Name string

	// Spec is the raw version constraint as declared (e.g. "^4.17.20").
	Spec string

	// Dev is true when the entry came from devDependencies.
	Dev bool
}

// Manifest is the parsed view of a project's package.json.
type Manifest struct {
	// Dependencies holds dependencies then devDependencies, each in
	// declaration order.
	Dependencies []Dependency

	// TestScript is the value of scripts.test, empty when absent.
	TestScript string
}
