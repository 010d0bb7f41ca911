// Package template expands placeholders in scenario payloads so that long or
// generated metric lines can be declared compactly.
package template

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/hulu/statsd-aggregator/internal/core"
)

// varPattern matches ${var}, ${env:VAR} and ${func(args)} placeholders.
var varPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Substitute replaces ${var}, ${env:VAR} and ${func(args)} placeholders in text.
// Returns all errors joined if several placeholders cannot be resolved.
// If text contains no placeholders, it is returned unchanged (fast path).
func Substitute(text string, vars core.Variables) (string, error) {
	if !strings.Contains(text, "${") {
		return text, nil
	}

	var errs []error
	result := varPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := match[2 : len(match)-1]

		if strings.HasPrefix(name, "env:") {
			envName := name[4:]
			if val, ok := os.LookupEnv(envName); ok {
				return val
			}
			errs = append(errs, fmt.Errorf("env var %q not set", envName))
			return match
		}

		if val, ok, err := evalFunction(name); ok {
			if err != nil {
				errs = append(errs, err)
				return match
			}
			return val
		}

		if vars != nil {
			if val, ok := vars.Get(name); ok {
				return fmt.Sprintf("%v", val)
			}
		}
		errs = append(errs, fmt.Errorf("variable %q not found", name))
		return match
	})

	if len(errs) > 0 {
		return "", errors.Join(errs...)
	}
	return result, nil
}
