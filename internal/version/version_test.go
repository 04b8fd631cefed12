package version

import (
	"strings"
	"testing"
)

// setBuild overrides the build variables for the duration of a test.
func setBuild(t *testing.T, version, commit, buildTime string) {
	t.Helper()
	origVersion, origCommit, origBuildTime := Version, Commit, BuildTime
	t.Cleanup(func() {
		Version = origVersion
		Commit = origCommit
		BuildTime = origBuildTime
	})
	Version, Commit, BuildTime = version, commit, buildTime
}

func TestString(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		setBuild(t, "dev", "unknown", "unknown")

		result := String()

		if !strings.Contains(result, "dev") {
			t.Errorf("String() = %q, should contain 'dev'", result)
		}
		if !strings.Contains(result, "built") {
			t.Errorf("String() = %q, should contain 'built'", result)
		}
	})

	t.Run("custom values", func(t *testing.T) {
		setBuild(t, "1.2.3", "abc1234", "2024-01-15T10:00:00Z")

		expected := "1.2.3 (abc1234) built 2024-01-15T10:00:00Z"
		if result := String(); result != expected {
			t.Errorf("String() = %q, want %q", result, expected)
		}
	})
}

func TestGet(t *testing.T) {
	setBuild(t, "1.2.3", "abc1234", "2024-01-15T10:00:00Z")

	want := Info{Version: "1.2.3", Commit: "abc1234", BuildTime: "2024-01-15T10:00:00Z"}
	if got := Get(); got != want {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}
}

func TestUserAgent(t *testing.T) {
	setBuild(t, "0.4.0", "abc1234", "unknown")

	if got := UserAgent(); got != "chatlink/0.4.0" {
		t.Errorf("UserAgent() = %q, want %q", got, "chatlink/0.4.0")
	}
}

func TestDefaultValues(t *testing.T) {
	// ldflags may override these in release builds
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if Commit == "" {
		t.Error("Commit should not be empty")
	}
	if BuildTime == "" {
		t.Error("BuildTime should not be empty")
	}
}
