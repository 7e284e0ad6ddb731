package httpserver

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	// decoders
	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"duffel/internal/sandbox"
)

func (s *Server) handleThumb(w http.ResponseWriter, r *http.Request) {
	rel := sandbox.CleanRel(r.URL.Query().Get("path"))
	abs, err := sandbox.Resolve(s.cfg.Root, rel)
	if err != nil {
		http.Error(w, "bad path", http.StatusBadRequest)
		return
	}
	st, err := os.Stat(abs)
	if err != nil || st.IsDir() {
		http.NotFound(w, r)
		return
	}
	ext := strings.ToLower(filepath.Ext(abs))
	if !isImageExt(ext) {
		http.NotFound(w, r)
		return
	}

	thumbDir := filepath.Join(s.stateDir, "thumbs")
	_ = os.MkdirAll(thumbDir, 0o755)
	key := safeKey(rel) + "-" + fmt.Sprintf("%d", st.ModTime().Unix()) + ".jpg"
	thumbPath := filepath.Join(thumbDir, key)
	if b, err := os.ReadFile(thumbPath); err == nil {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		_, _ = w.Write(b)
		return
	}
	b, err := makeThumb(abs, 256)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	_ = os.WriteFile(thumbPath, b, 0o644)
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(b)
}

func safeKey(rel string) string {
	rel = strings.ReplaceAll(rel, "/", "_")
	rel = strings.ReplaceAll(rel, "\\", "_")
	rel = strings.ReplaceAll(rel, "..", "_")
	if rel == "" {
		rel = "root"
	}
	return rel
}

func makeThumb(absPath string, max int) ([]byte, error) {
	f, err := os.Open(absPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, os.ErrInvalid
	}
	if max <= 0 {
		max = 256
	}

	nw, nh := w, h
	if w > h {
		if w > max {
			nw = max
			nh = int(float64(h) * (float64(max) / float64(w)))
		}
	} else {
		if h > max {
			nh = max
			nw = int(float64(w) * (float64(max) / float64(h)))
		}
	}
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var out bytes.Buffer
	enc := jpeg.Options{Quality: 82}
	if err := jpeg.Encode(&out, dst, &enc); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
