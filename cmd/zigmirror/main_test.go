package main

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestRun_Version(t *testing.T) {
	var out bytes.Buffer
	code := run(context.Background(), []string{"version"}, &out)

	if code != exitOK {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if !strings.Contains(out.String(), "zigmirror version") {
		t.Fatalf("expected version output, got %q", out.String())
	}
}

func TestRun_Default_PrintsUsage(t *testing.T) {
	var out bytes.Buffer
	code := run(context.Background(), nil, &out)

	if code != exitOK {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if !strings.Contains(out.String(), "Usage:") {
		t.Fatalf("expected help output, got %q", out.String())
	}
}

func TestRun_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  map[string]string
	}{
		{name: "unknown flag", args: []string{"--unknown-flag"}},
		{name: "unknown command", args: []string{"mirror-all-the-things"}},
		{name: "bad layout", args: []string{"routes", "--layout", "sharded"}},
		{name: "extra args to version", args: []string{"version", "now"}},
		{name: "bad policy flag", args: []string{"serve", "--on-read-error", "explode"}},
		{name: "bad policy env", args: []string{"routes"}, env: map[string]string{"MIRROR_ON_READ_ERROR": "explode"}},
		{name: "malformed port env", args: []string{"routes"}, env: map[string]string{"MIRROR_ZIG_PORT": "eighty"}},
		{
			name: "split ports collide",
			args: []string{"routes", "--layout", "split"},
			env:  map[string]string{"MIRROR_ZIG_PORT": "7000", "MIRROR_ZLS_PORT": "7000"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			var out bytes.Buffer
			code := run(context.Background(), tt.args, &out)
			if code != exitUsage {
				t.Fatalf("expected exit code 2, got %d (output %q)", code, out.String())
			}
			if !strings.Contains(out.String(), "Error:") {
				t.Fatalf("expected error output, got %q", out.String())
			}
		})
	}
}

func TestRun_BadConfigFileValueIsUsageError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mirror.yaml")
	if err := os.WriteFile(path, []byte("on_read_error: explode\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	var out bytes.Buffer
	if code := run(context.Background(), []string{"routes", "--config", path}, &out); code != exitUsage {
		t.Fatalf("expected exit code 2, got %d (output %q)", code, out.String())
	}
}

func TestRun_MissingConfigFileIsFailure(t *testing.T) {
	var out bytes.Buffer
	code := run(context.Background(), []string{"routes", "--config", filepath.Join(t.TempDir(), "nope.yaml")}, &out)
	if code != exitFailure {
		t.Fatalf("expected exit code 1, got %d (output %q)", code, out.String())
	}
}

func TestRun_FlagOverridesBadEnv(t *testing.T) {
	port := freePort(t)
	t.Setenv("MIRROR_ON_READ_ERROR", "explode")
	t.Setenv("MIRROR_UNIFIED_PORT", strconv.Itoa(port))
	t.Setenv("MIRROR_HOST", "127.0.0.1")
	t.Setenv("MIRROR_ASSET_DIR", t.TempDir())

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	var out bytes.Buffer
	code := run(ctx, []string{"serve", "--on-read-error", "status"}, &out)
	if code != exitOK {
		t.Fatalf("expected exit code 0, got %d (output %q)", code, out.String())
	}
}

func TestRun_UnifiedIgnoresSplitPorts(t *testing.T) {
	t.Setenv("MIRROR_ZIG_PORT", "7000")
	t.Setenv("MIRROR_ZLS_PORT", "7000")

	var out bytes.Buffer
	code := run(context.Background(), []string{"routes", "--layout", "unified"}, &out)
	if code != exitOK {
		t.Fatalf("expected exit code 0, got %d (output %q)", code, out.String())
	}
}

func TestRun_RoutesTable(t *testing.T) {
	var out bytes.Buffer
	code := run(context.Background(), []string{"routes", "--layout", "split"}, &out)
	if code != exitOK {
		t.Fatalf("expected exit code 0, got %d (output %q)", code, out.String())
	}

	got := out.String()
	for _, want := range []string{"zig :8000", "zls :9000", "/download/index.json", "/builds/", "400 Bad Request"} {
		if !strings.Contains(got, want) {
			t.Errorf("routes output missing %q:\n%s", want, got)
		}
	}
	// Exact routes are listed before prefix routes.
	if strings.Index(got, "zls-index") > strings.Index(got, "zls-artifact") {
		t.Errorf("expected zls-index before zls-artifact:\n%s", got)
	}
}

func TestRun_RoutesExplain(t *testing.T) {
	var out bytes.Buffer
	code := run(context.Background(), []string{"routes", "/zig", "/zls/index.json", "/zls/extra"}, &out)
	if code != exitOK {
		t.Fatalf("expected exit code 0, got %d", code)
	}

	got := out.String()
	for _, want := range []string{
		"unified :3000",
		"/zig -> zig-artifact",
		"/zls/index.json -> zls-index",
		"/zls/extra -> 200 ok",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("routes output missing %q:\n%s", want, got)
		}
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skip test due to listen error: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestRun_ServeStopsOnCancel(t *testing.T) {
	port := freePort(t)

	t.Setenv("MIRROR_UNIFIED_PORT", strconv.Itoa(port))
	t.Setenv("MIRROR_HOST", "127.0.0.1")
	t.Setenv("MIRROR_ASSET_DIR", t.TempDir())

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	var out bytes.Buffer
	code := run(ctx, []string{"serve"}, &out)
	if code != exitOK {
		t.Fatalf("expected exit code 0 after cancellation, got %d (output %q)", code, out.String())
	}
}
