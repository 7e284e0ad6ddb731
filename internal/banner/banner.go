// Package banner prints the scan-me startup banner: the server's LAN URL
// plus a QR code for it, and renders the same code as a PNG for the /qr
// endpoint.
package banner

import (
	"bytes"
	"fmt"
	"image/png"
	"io"
	"net"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
)

// LocalIP returns the machine's LAN IP, discovered by opening a UDP socket
// toward a public address (no packet is sent).
func LocalIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP.String()
	}
	return "127.0.0.1"
}

// QRPNG renders url as a QR code PNG of roughly the given pixel size.
func QRPNG(url string, size int) ([]byte, error) {
	code, err := qr.Encode(url, qr.M, qr.Auto)
	if err != nil {
		return nil, err
	}
	if size < code.Bounds().Dx() {
		size = code.Bounds().Dx()
	}
	scaled, err := barcode.Scale(code, size, size)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PrintQR writes an ASCII rendering of the QR code for url to w, two
// characters per module, with a one-module quiet zone.
func PrintQR(w io.Writer, url string) error {
	code, err := qr.Encode(url, qr.M, qr.Auto)
	if err != nil {
		return err
	}
	b := code.Bounds()
	dark := func(x, y int) bool {
		if x < b.Min.X || x >= b.Max.X || y < b.Min.Y || y >= b.Max.Y {
			return false // quiet zone
		}
		r, _, _, _ := code.At(x, y).RGBA()
		return r < 0x8000
	}
	for y := b.Min.Y - 1; y < b.Max.Y+1; y++ {
		for x := b.Min.X - 1; x < b.Max.X+1; x++ {
			if dark(x, y) {
				fmt.Fprint(w, "██")
			} else {
				fmt.Fprint(w, "  ")
			}
		}
		fmt.Fprintln(w)
	}
	return nil
}
