package mets

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Validator checks a serialized METS document. Implementations return nil
// when the document is schema-valid.
type Validator interface {
	Validate(ctx context.Context, path string) error
}

// CommandValidator shells out to the configured XML validator. The contract
// with the external tool: exit 0 is a pass and combined output is the
// failure detail.
type CommandValidator struct {
	// Command is the validator invocation from the global configuration;
	// the first token is the executable.
	Command string
}

func (v *CommandValidator) Validate(ctx context.Context, path string) error {
	tokens := strings.Fields(v.Command)
	if len(tokens) == 0 {
		return fmt.Errorf("no XML validator configured")
	}
	args := append(tokens[1:], path)
	out, err := exec.CommandContext(ctx, tokens[0], args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
