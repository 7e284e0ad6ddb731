package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"go.uber.org/zap"

	"duffel/internal/banner"
	"duffel/internal/fsops"
	"duffel/internal/logging"
	"duffel/internal/metrics"
	"duffel/internal/sandbox"
)

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	rel := sandbox.CleanRel(r.URL.Query().Get("path"))
	items, err := s.tree.ListChildren(rel)
	if err != nil {
		s.fail(w, err)
		return
	}
	folders, err := s.tree.AllSubfolders()
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, map[string]any{
		"path":    rel,
		"items":   items,
		"folders": folders,
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(256 << 20); err != nil { // 256MiB memory+tmp
		http.Error(w, "bad multipart", http.StatusBadRequest)
		return
	}
	target := r.FormValue("target")
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		http.Error(w, "No files uploaded", http.StatusBadRequest)
		return
	}
	for _, fh := range files {
		if fh.Filename == "" {
			continue
		}
		dstAbs, err := sandbox.Resolve(s.cfg.Root, target, fh.Filename)
		if err != nil {
			s.fail(w, err)
			return
		}
		src, err := fh.Open()
		if err != nil {
			http.Error(w, "open upload", http.StatusBadRequest)
			return
		}
		sha, size, err := s.uploads.Save(r.Context(), dstAbs, src)
		_ = src.Close()
		if err != nil {
			http.Error(w, fmt.Sprintf("Upload failed: %v", err), http.StatusInternalServerError)
			return
		}
		metrics.RecordUpload(size)
		logging.WithContext(r.Context()).Debug("upload landed",
			zap.String("name", fh.Filename), zap.String("sha256", sha), zap.Int64("size", size))
	}
	writeOK(w)
}

func (s *Server) handleServeFile(w http.ResponseWriter, r *http.Request) {
	rel := pathParam(r, "/files/")
	abs, err := sandbox.Resolve(s.cfg.Root, rel)
	if err != nil {
		s.fail(w, err)
		return
	}
	st, err := os.Stat(abs)
	if err != nil || st.IsDir() {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	f, err := os.Open(abs)
	if err != nil {
		http.Error(w, "open failed", http.StatusInternalServerError)
		return
	}
	defer f.Close()
	if ct := contentTypeForName(st.Name()); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	http.ServeContent(w, r, st.Name(), st.ModTime(), f)
}

// countingWriter counts bytes for download metrics.
type countingWriter struct {
	w http.ResponseWriter
	n int64
}

func (cw *countingWriter) Write(b []byte) (int, error) {
	n, err := cw.w.Write(b)
	cw.n += int64(n)
	return n, err
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	rel := pathParam(r, "/download/")
	abs, err := sandbox.Resolve(s.cfg.Root, rel)
	if err != nil {
		s.fail(w, err)
		return
	}
	st, err := os.Stat(abs)
	if err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	if st.IsDir() {
		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", baseName(rel)+".zip"))
		cw := &countingWriter{w: w}
		if err := s.tree.WriteZip(r.Context(), cw, rel); err != nil {
			// Headers are gone; the truncated archive tells the client enough.
			logging.WithContext(r.Context()).Error("zip download failed",
				zap.String("path", rel), zap.Error(err))
		}
		metrics.RecordDownload(cw.n)
		return
	}

	f, err := os.Open(abs)
	if err != nil {
		http.Error(w, "open failed", http.StatusInternalServerError)
		return
	}
	defer f.Close()
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", st.Name()))
	http.ServeContent(w, r, st.Name(), st.ModTime(), f)
	metrics.RecordDownload(st.Size())
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	rel := pathParam(r, "/delete/")
	err := s.tree.Delete(rel)
	metrics.RecordMutation("delete", err)
	if err != nil {
		s.fail(w, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleDetails(w http.ResponseWriter, r *http.Request) {
	rel := pathParam(r, "/details/")
	st, err := s.tree.StatFile(rel)
	if err != nil {
		writeJSONError(w, err, http.StatusNotFound)
		return
	}
	abs, _ := sandbox.Resolve(s.cfg.Root, rel)
	fi, err := os.Stat(abs)
	if err != nil {
		writeJSONError(w, fsops.ErrNotFound, http.StatusNotFound)
		return
	}
	if fi.IsDir() {
		agg, err := s.tree.StatFolder(rel)
		if err != nil {
			writeJSONError(w, err, http.StatusNotFound)
			return
		}
		writeJSON(w, map[string]any{
			"name":    baseName(rel),
			"type":    "Folder",
			"size":    fsops.FormatSize(agg.TotalSize),
			"files":   agg.Files,
			"folders": agg.Folders,
			"ctime":   fsops.FormatTime(st.Created),
			"mtime":   fsops.FormatTime(st.Modified),
		})
		return
	}
	writeJSON(w, map[string]any{
		"name":  baseName(rel),
		"type":  "File",
		"size":  fsops.FormatSize(st.Size),
		"ctime": fsops.FormatTime(st.Created),
		"mtime": fsops.FormatTime(st.Modified),
	})
}

func writeJSONError(w http.ResponseWriter, err error, status int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	err := s.tree.Rename(r.FormValue("old"), r.FormValue("new"))
	metrics.RecordMutation("rename", err)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeOK(w)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	err := s.tree.Move(r.FormValue("source"), r.FormValue("dest"))
	metrics.RecordMutation("move", err)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeOK(w)
}

func (s *Server) handleCopy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	err := s.tree.Copy(r.FormValue("source"), r.FormValue("dest"))
	metrics.RecordMutation("copy", err)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeOK(w)
}

type bulkReq struct {
	Paths []string `json:"paths"`
	Dest  string   `json:"dest"`
}

func (s *Server) handleBulkCopy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req bulkReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if len(req.Paths) == 0 {
		http.Error(w, "No files specified", http.StatusBadRequest)
		return
	}
	err := s.tree.BulkCopy(req.Paths, req.Dest)
	metrics.RecordMutation("bulk_copy", err)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeOK(w)
}

func (s *Server) handleBulkDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req bulkReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if len(req.Paths) == 0 {
		http.Error(w, "No files specified", http.StatusBadRequest)
		return
	}
	err := s.tree.BulkDelete(req.Paths)
	metrics.RecordMutation("bulk_delete", err)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeOK(w)
}

func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	err := s.tree.CreateFolder(req.Path)
	metrics.RecordMutation("create_folder", err)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeOK(w)
}

func (s *Server) handleStorageStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.tree.StorageStats()
	if err != nil {
		writeJSONError(w, err, http.StatusInternalServerError)
		return
	}
	types := make(map[string]int, len(st.FileTypes))
	for _, tc := range st.FileTypes {
		types[tc.Ext] = tc.Count
	}
	writeJSON(w, map[string]any{
		"total_size":       fsops.FormatSize(st.TotalSize),
		"total_size_bytes": st.TotalSize,
		"file_count":       st.Files,
		"folder_count":     st.Folders,
		"file_types":       types,
	})
}

func (s *Server) handleReadText(w http.ResponseWriter, r *http.Request) {
	rel := pathParam(r, "/read-text/")
	content, err := s.tree.ReadText(rel)
	if err != nil {
		writeJSONError(w, err, errStatus(err))
		return
	}
	writeJSON(w, map[string]any{
		"content": content,
		"name":    baseName(rel),
	})
}

func (s *Server) handleSaveText(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	err := s.tree.WriteText(req.Path, req.Content)
	metrics.RecordMutation("save_text", err)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeOK(w)
}

func (s *Server) handleCreateFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Folder   string `json:"folder"`
		Filename string `json:"filename"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	err := s.tree.CreateFile(req.Folder, req.Filename)
	metrics.RecordMutation("create_file", err)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeOK(w)
}

func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	host := r.Host
	if host == "" {
		host = strings.TrimPrefix(s.cfg.Addr, "0.0.0.0")
	}
	b, err := banner.QRPNG("http://"+host+"/", 256)
	if err != nil {
		http.Error(w, "qr failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(b)
}
