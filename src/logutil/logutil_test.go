package logutil

import (
	"bytes"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRedactKey(t *testing.T) {
	if got := RedactKey("short"); got != "********" {
		t.Errorf("RedactKey(short) = %q", got)
	}
	if got := RedactKey("sk-or-1234567890abcd"); got != "sk-o...abcd" {
		t.Errorf("RedactKey = %q", got)
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello World", "Hello World"},
		{"a\nb\tc\r", `a\nb\tc\r`},
		{"bell\x07", `bell\x07`},
		{strings.Repeat("x", 200), strings.Repeat("x", sanitizeMax) + "..."},
		{strings.Repeat("x", sanitizeMax), strings.Repeat("x", sanitizeMax)},
	}
	for _, tt := range tests {
		if got := Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, expected %q", tt.in, got, tt.want)
		}
	}
}

func TestRotatingWriterRotates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, LogFileName)
	w, err := newRotatingWriter(path, 16)
	if err != nil {
		t.Fatalf("newRotatingWriter: %v", err)
	}
	defer w.Close()

	for i := 0; i < 5; i++ {
		if _, err := w.Write([]byte("0123456789\n")); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	for _, p := range []string{path, archiveName(path, 1), archiveName(path, 2), archiveName(path, 3)} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("expected %s to exist: %v", filepath.Base(p), err)
		}
	}
	if _, err := os.Stat(archiveName(path, 4)); !os.IsNotExist(err) {
		t.Errorf("only %d archives should be kept", maxArchives)
	}
}

func TestSetupFileLogging(t *testing.T) {
	orig := log.Writer()
	defer log.SetOutput(orig)

	dir := t.TempDir()
	c := Setup(Options{FileLogging: true, Dir: dir})
	log.Printf("hello from test")
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !bytes.Contains(data, []byte("hello from test")) {
		t.Errorf("log file missing message: %q", data)
	}
}

func TestSetupDiscardByDefault(t *testing.T) {
	orig := log.Writer()
	defer log.SetOutput(orig)

	c := Setup(Options{})
	defer c.Close()
	if log.Writer() != io.Discard {
		t.Error("expected output to be discarded")
	}
}
