package model

import "strings"

// CommandPlan is the ordered argument list for one encoder invocation,
// excluding the encoder binary itself.
type CommandPlan []string

// String joins the plan with spaces, for display only.
func (p CommandPlan) String() string {
	return strings.Join(p, " ")
}

// TaskResult is the outcome of one encoder run.
type TaskResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Success reports whether the encoder exited with status 0.
func (r TaskResult) Success() bool {
	return r.ExitCode == 0
}

// Diagnostic returns the last non-empty line of stderr, which is where the
// encoder reports why it failed.
func (r TaskResult) Diagnostic() string {
	lines := strings.Split(strings.TrimSpace(r.Stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
