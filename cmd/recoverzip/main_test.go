package main

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"photo-recovery/internal/logging"
	"photo-recovery/internal/recovery"

	"github.com/klauspost/compress/zip"
	"github.com/spf13/pflag"
)

func writeArchive(t *testing.T, dir string, files map[string][]byte) string {
	t.Helper()
	path := filepath.Join(dir, "input.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for name, data := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func restoreLogLevel(t *testing.T) {
	original := logging.GetLevel()
	t.Cleanup(func() { logging.SetLevel(original) })
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
		check   func(t *testing.T, o *options)
	}{
		{
			name: "archive only",
			args: []string{"photos.zip"},
			check: func(t *testing.T, o *options) {
				if o.archive != "photos.zip" || o.output != "" || o.repair.ScanStep != 4 {
					t.Errorf("unexpected options %+v", o)
				}
			},
		},
		{
			name: "all flags",
			args: []string{"-o", "out.zip", "--keep", "-v", "--scan-step", "2", "--scan-limit", "64", "in.zip"},
			check: func(t *testing.T, o *options) {
				if o.output != "out.zip" || !o.keep || !o.verbose || o.repair.ScanStep != 2 || o.repair.ScanLimit != 64 {
					t.Errorf("unexpected options %+v", o)
				}
			},
		},
		{name: "missing archive", args: []string{}, wantErr: true},
		{name: "two archives", args: []string{"a.zip", "b.zip"}, wantErr: true},
		{name: "unknown flag", args: []string{"--nope", "a.zip"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			opts, err := parseFlags(tt.args, &stderr)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseFlags() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, opts)
			}
		})
	}
}

func TestParseFlagsVersion(t *testing.T) {
	var stderr bytes.Buffer
	_, err := parseFlags([]string{"--version"}, &stderr)
	if !errors.Is(err, pflag.ErrHelp) {
		t.Fatalf("parseFlags(--version) error = %v, want ErrHelp", err)
	}
	if !strings.HasPrefix(stderr.String(), "recoverzip ") {
		t.Errorf("version output = %q", stderr.String())
	}
}

func TestRunWritesOutput(t *testing.T) {
	restoreLogLevel(t)
	dir := t.TempDir()
	archive := writeArchive(t, dir, map[string][]byte{
		"DCIM/IMG_0001.jpg": jpegBytes(t, 64, 48),
		"DCIM/broken.jpg":   append(make([]byte, 50), jpegBytes(t, 32, 32)...),
		"readme.txt":        []byte("not a photo"),
	})
	output := filepath.Join(dir, "recovered.zip")
	workDir := filepath.Join(dir, "work")

	var stdout, stderr bytes.Buffer
	session, err := run(context.Background(), &options{
		archive:  archive,
		output:   output,
		workDir:  workDir,
		maxEntry: 1 << 20,
	}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}

	if session.Status != recovery.StatusCompleted || session.ImagesFound != 2 || session.RecoveredCount != 2 {
		t.Errorf("session = status %s, images %d, recovered %d", session.Status, session.ImagesFound, session.RecoveredCount)
	}
	for _, want := range []string{"Status:    completed", "IMG_0001.jpg", "jpeg_boundary", "Recovered photos written to"} {
		if !strings.Contains(stdout.String(), want) {
			t.Errorf("summary missing %q:\n%s", want, stdout.String())
		}
	}

	zr, err := zip.OpenReader(output)
	if err != nil {
		t.Fatalf("output is not a zip: %v", err)
	}
	defer zr.Close()
	if len(zr.File) != 2 {
		t.Errorf("output has %d entries, want 2", len(zr.File))
	}

	if _, err := os.Stat(workDir); !os.IsNotExist(err) {
		t.Errorf("working directory should be removed without --keep, stat err = %v", err)
	}
}

func TestRunKeepsWorkDir(t *testing.T) {
	restoreLogLevel(t)
	dir := t.TempDir()
	archive := writeArchive(t, dir, map[string][]byte{"a.jpg": jpegBytes(t, 16, 16)})
	workDir := filepath.Join(dir, "work")

	var stdout, stderr bytes.Buffer
	if _, err := run(context.Background(), &options{archive: archive, workDir: workDir, keep: true, verbose: true}, &stdout, &stderr); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(workDir, "extracted")); err != nil {
		t.Errorf("working directory should be kept: %v", err)
	}
	if !strings.Contains(stdout.String(), "Log:") || !strings.Contains(stdout.String(), "Found 1 files in archive") {
		t.Errorf("verbose summary should include the session log:\n%s", stdout.String())
	}
}

func TestRunFailedArchive(t *testing.T) {
	restoreLogLevel(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.zip")
	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	session, err := run(context.Background(), &options{archive: path, output: filepath.Join(dir, "out.zip")}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if session.Status != recovery.StatusFailed {
		t.Errorf("status = %s, want failed", session.Status)
	}
	if _, err := os.Stat(filepath.Join(dir, "out.zip")); !os.IsNotExist(err) {
		t.Error("no output should be written for a failed session")
	}
}

func TestRunMissingArchive(t *testing.T) {
	restoreLogLevel(t)
	var stdout, stderr bytes.Buffer
	if _, err := run(context.Background(), &options{archive: filepath.Join(t.TempDir(), "nope.zip")}, &stdout, &stderr); err == nil {
		t.Error("run() should fail for a missing archive")
	}
}
