package workflow

import (
	"errors"
	"fmt"
)

// ErrBackendUnavailable marks turn-fatal failures: the classifier,
// planner, or responder backend failed or returned something that does
// not parse. There is no safe default category or plan, so the turn
// must surface an explicit error instead of proceeding. Step-local
// failures (unknown tool, evidence parse) never carry this error; they
// are logged and skipped inside the executor.
var ErrBackendUnavailable = errors.New("backend unavailable")

func fatalErr(stage string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrBackendUnavailable, stage, err)
}
