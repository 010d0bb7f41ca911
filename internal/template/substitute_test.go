package template

import (
	"os"
	"strings"
	"testing"

	"github.com/hulu/statsd-aggregator/internal/core"
)

func TestSubstitute_NoPlaceholders(t *testing.T) {
	vars := core.NewVariables()
	text := "foo:1|c\n"

	result, err := Substitute(text, vars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != text {
		t.Errorf("expected %q, got %q", text, result)
	}
}

func TestSubstitute_SingleVariable(t *testing.T) {
	vars := core.NewVariables()
	vars.Set("prefix", "app")

	result, err := Substitute("${prefix}.requests:1|c", vars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "app.requests:1|c" {
		t.Errorf("expected 'app.requests:1|c', got %q", result)
	}
}

func TestSubstitute_MultipleVariables(t *testing.T) {
	vars := core.NewVariables()
	vars.Set("host", "web01")
	vars.Set("value", "42")

	result, err := Substitute("${host}.load:${value}|g", vars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "web01.load:42|g" {
		t.Errorf("expected 'web01.load:42|g', got %q", result)
	}
}

func TestSubstitute_EnvironmentVariable(t *testing.T) {
	t.Setenv("TEST_METRIC_PREFIX", "ci")

	result, err := Substitute("${env:TEST_METRIC_PREFIX}.builds:1|c", core.NewVariables())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ci.builds:1|c" {
		t.Errorf("expected 'ci.builds:1|c', got %q", result)
	}
}

func TestSubstitute_MissingVariable(t *testing.T) {
	_, err := Substitute("${missing}:1|c", core.NewVariables())
	if err == nil {
		t.Fatal("expected error for missing variable")
	}
	if !strings.Contains(err.Error(), `variable "missing" not found`) {
		t.Errorf("expected error mentioning missing variable, got: %v", err)
	}
}

func TestSubstitute_MissingEnvVariable(t *testing.T) {
	os.Unsetenv("NONEXISTENT_VAR")

	_, err := Substitute("${env:NONEXISTENT_VAR}:1|c", core.NewVariables())
	if err == nil {
		t.Fatal("expected error for missing env var")
	}
	if !strings.Contains(err.Error(), `env var "NONEXISTENT_VAR" not set`) {
		t.Errorf("expected error mentioning missing env var, got: %v", err)
	}
}

func TestSubstitute_MultipleErrors(t *testing.T) {
	_, err := Substitute("${missing1}:${missing2}|c", core.NewVariables())
	if err == nil {
		t.Fatal("expected errors for missing variables")
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "missing1") || !strings.Contains(errStr, "missing2") {
		t.Errorf("expected both missing variables in error, got: %v", err)
	}
}

func TestSubstitute_NilVariables(t *testing.T) {
	result, err := Substitute("${repeat(ab,3)}", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ababab" {
		t.Errorf("expected 'ababab', got %q", result)
	}
}

func TestSubstitute_NumericValue(t *testing.T) {
	vars := core.NewVariables()
	vars.Set("count", 42)

	result, err := Substitute("foo:${count}|c", vars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "foo:42|c" {
		t.Errorf("expected 'foo:42|c', got %q", result)
	}
}

func TestSubstitute_LongLine(t *testing.T) {
	result, err := Substitute("foo:${repeat(1,1500)}|c", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != len("foo:")+1500+len("|c") {
		t.Errorf("unexpected length %d", len(result))
	}
}

func BenchmarkSubstitute(b *testing.B) {
	vars := core.NewVariables()
	vars.Set("prefix", "app")
	text := "${prefix}.requests:1|c"

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = Substitute(text, vars)
	}
}

func BenchmarkSubstitute_NoVars(b *testing.B) {
	vars := core.NewVariables()
	text := "app.requests:1|c"

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = Substitute(text, vars)
	}
}
