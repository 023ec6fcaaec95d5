package commands

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"regexp"
	"testing"

	"github.com/pterm/pterm"

	"github.com/jmylchreest/hapd/pkg/client"
)

// captureStdout captures stdout during the execution of f, disables pterm color, and strips ANSI codes from the output.
func captureStdout(f func()) string {
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	oldPrintColor := pterm.PrintColor
	oldDefaultTableWriter := pterm.DefaultTable.Writer

	pterm.PrintColor = false
	pterm.DefaultTable.Writer = w

	outC := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		outC <- buf.String()
	}()

	f()

	_ = w.Close()
	os.Stdout = oldStdout

	pterm.PrintColor = oldPrintColor
	pterm.DefaultTable.Writer = oldDefaultTableWriter

	out := <-outC

	ansiRegex := regexp.MustCompile(`\x1b\[[0-9;]*m`)
	return ansiRegex.ReplaceAllString(out, "")
}

// execute runs hapctl with args against c and returns what it printed.
func execute(t *testing.T, c client.ClientInterface, args ...string) (string, error) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	root := NewRootCommand(logger, "1.0.0", "abc123", "2026-01-01")
	root.SetArgs(args)

	var err error
	out := captureStdout(func() {
		err = root.ExecuteContext(WithClient(context.Background(), c))
	})
	return out, err
}
