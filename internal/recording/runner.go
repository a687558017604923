package recording

import (
	"context"
	"fmt"
	"os/exec"
)

// Runner is the subprocess boundary around the external transcoder.
// A non-zero exit surfaces as an error carrying the tool's output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// ExecRunner shells out for real.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w\n%s", name, err, out)
	}
	return nil
}
