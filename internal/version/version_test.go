package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	result := String()

	if !strings.HasPrefix(result, "promptlab version ") {
		t.Errorf("String() = %q, should start with 'promptlab version '", result)
	}
	if !strings.Contains(result, Version) || !strings.Contains(result, "built "+BuildTime) {
		t.Errorf("String() = %q, should contain version %q and build time %q", result, Version, BuildTime)
	}
}

func TestDefaultValues(t *testing.T) {
	if Version != "dev" {
		t.Errorf("Version = %q, want 'dev'", Version)
	}
	if BuildTime != "unknown" {
		t.Errorf("BuildTime = %q, want 'unknown'", BuildTime)
	}
}
