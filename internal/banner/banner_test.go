package banner

import (
	"bytes"
	"image/png"
	"strings"
	"testing"
)

func TestQRPNG(t *testing.T) {
	b, err := QRPNG("http://192.168.1.10:8000", 256)
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 256 || img.Bounds().Dy() != 256 {
		t.Errorf("size = %v, want 256x256", img.Bounds())
	}
}

func TestQRPNGTooSmall(t *testing.T) {
	// A size below the code's module count is bumped, not an error.
	if _, err := QRPNG("http://192.168.1.10:8000", 1); err != nil {
		t.Fatal(err)
	}
}

func TestPrintQR(t *testing.T) {
	var buf strings.Builder
	if err := PrintQR(&buf, "http://192.168.1.10:8000"); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "██") {
		t.Error("no dark modules in output")
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) < 21 {
		t.Errorf("only %d lines, want at least a version-1 code", len(lines))
	}
	// Quiet zone: first and last lines are all blank.
	if strings.Contains(lines[0], "█") || strings.Contains(lines[len(lines)-1], "█") {
		t.Error("quiet zone not blank")
	}
}

func TestLocalIPNeverEmpty(t *testing.T) {
	if LocalIP() == "" {
		t.Fatal("empty ip")
	}
}
