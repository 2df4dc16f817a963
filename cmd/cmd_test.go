package cmd

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"
)

// captureStdout runs fn while redirecting os.Stdout, returning what it wrote.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("creating pipe: %v", err)
	}
	old := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = old }()

	fn()

	if err := w.Close(); err != nil {
		t.Fatalf("closing pipe: %v", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		t.Fatalf("reading pipe: %v", err)
	}
	return buf.String()
}

func TestExecuteUnknownCommand(t *testing.T) {
	oldArgs := os.Args
	os.Args = []string{"sabia", "bogus"}
	defer func() { os.Args = oldArgs }()

	err := Execute()
	if err == nil {
		t.Fatal("Execute() = nil, want error for unknown command")
	}
	if !strings.Contains(err.Error(), "unknown command: bogus") {
		t.Errorf("Execute() error = %v, want it to name the command", err)
	}
}

func TestExecuteHelp(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "no arguments", args: []string{"sabia"}},
		{name: "help command", args: []string{"sabia", "help"}},
		{name: "double dash", args: []string{"sabia", "--help"}},
		{name: "short flag", args: []string{"sabia", "-h"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldArgs := os.Args
			os.Args = tt.args
			defer func() { os.Args = oldArgs }()

			out := captureStdout(t, func() {
				if err := Execute(); err != nil {
					t.Errorf("Execute() = %v, want nil", err)
				}
			})

			for _, want := range []string{"Usage:", "sabia serve", "sabia ask", "GEMINI_API_KEY"} {
				if !strings.Contains(out, want) {
					t.Errorf("help output missing %q", want)
				}
			}
		})
	}
}

func TestExecuteVersion(t *testing.T) {
	oldArgs := os.Args
	os.Args = []string{"sabia", "--version"}
	defer func() { os.Args = oldArgs }()

	out := captureStdout(t, func() {
		if err := Execute(); err != nil {
			t.Errorf("Execute() = %v, want nil", err)
		}
	})

	for _, want := range []string{"Sabiá", AppVersion, "Build Time:", "Git Commit:"} {
		if !strings.Contains(out, want) {
			t.Errorf("version output missing %q", want)
		}
	}
}

func TestRunAskRequiresQuestion(t *testing.T) {
	oldArgs := os.Args
	os.Args = []string{"sabia", "ask"}
	defer func() { os.Args = oldArgs }()

	err := runAsk()
	if err == nil {
		t.Fatal("runAsk() = nil, want usage error")
	}
	if !strings.Contains(err.Error(), "usage:") {
		t.Errorf("runAsk() error = %v, want usage message", err)
	}
}
