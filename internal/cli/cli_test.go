package cli

import (
	"bytes"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "ankigen version dev") {
		t.Errorf("output = %q", out)
	}
}

func TestGenerateCommand_MissingFile(t *testing.T) {
	_, err := execute(t, "generate", "no-such-file.pdf")
	if err == nil {
		t.Fatal("expected error for missing input file")
	}
	if !strings.Contains(err.Error(), "no-such-file.pdf") {
		t.Errorf("err = %v, want input path in message", err)
	}
}

func TestGenerateCommand_RequiresArg(t *testing.T) {
	if _, err := execute(t, "generate"); err == nil {
		t.Fatal("expected error when no file argument is given")
	}
}
