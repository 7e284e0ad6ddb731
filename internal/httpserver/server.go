package httpserver

import (
	"embed"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/net/webdav"

	"duffel/internal/auth"
	"duffel/internal/config"
	"duffel/internal/fsops"
	"duffel/internal/links"
	"duffel/internal/metrics"
	"duffel/internal/sandbox"
	"duffel/internal/upload"
)

type Options struct {
	Config   config.Config
	StateDir string
}

type Server struct {
	cfg      config.Config
	stateDir string
	tree     *fsops.Tree
	links    *links.Store
	sessions *auth.Sessions
	uploads  *upload.Saver

	webFS fs.FS
}

//go:embed web/index.html web/assets/*
var embeddedWeb embed.FS

func New(opts Options) (*Server, error) {
	up, err := upload.New(opts.StateDir)
	if err != nil {
		return nil, err
	}
	sub, err := fs.Sub(embeddedWeb, "web")
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:      opts.Config,
		stateDir: opts.StateDir,
		tree:     fsops.New(opts.Config.Root, opts.Config.Reserved),
		links:    links.NewStore(filepath.Join(opts.StateDir, "links.json")),
		sessions: auth.NewSessions(0),
		uploads:  up,
		webFS:    sub,
	}, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// health
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "ok\n")
	})

	// session
	mux.HandleFunc("/login", s.handleLogin)
	mux.HandleFunc("/logout", s.handleLogout)

	// metrics
	mux.Handle("/metrics", metrics.Handler())

	// WebDAV over the managed root; the reserved folder stays off limits.
	dav := &webdav.Handler{
		Prefix:     "/dav",
		FileSystem: newDavFS(s.cfg.Root, s.cfg.Reserved),
		LockSystem: webdav.NewMemLS(),
	}
	mux.Handle("/dav/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.Authed(r.Context()) {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		rel := sandbox.CleanRel(strings.TrimPrefix(r.URL.Path, "/dav"))
		if sandbox.FirstSegment(rel) == s.cfg.Reserved {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		dav.ServeHTTP(w, r)
	}))

	// static assets
	assets, _ := fs.Sub(s.webFS, "assets")
	mux.Handle("/assets/", http.StripPrefix("/assets/", http.FileServer(http.FS(assets))))

	// UI index; /browse/<path> serves the same page, the client reads the
	// location and asks /api/list.
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		s.serveIndex(w)
	})
	mux.HandleFunc("/browse/", func(w http.ResponseWriter, r *http.Request) {
		if !auth.Authed(r.Context()) {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		s.serveIndex(w)
	})
	mux.Handle("/api/list", s.require(s.handleList))
	mux.HandleFunc("/qr", s.handleQR)

	// files
	mux.Handle("/upload", s.require(s.handleUpload))
	mux.Handle("/files/", s.require(s.handleServeFile))
	mux.Handle("/download/", s.require(s.handleDownload))
	mux.Handle("/delete/", s.require(s.handleDelete))
	mux.Handle("/details/", s.require(s.handleDetails))
	mux.Handle("/rename", s.require(s.handleRename))
	mux.Handle("/move", s.require(s.handleMove))
	mux.Handle("/copy", s.require(s.handleCopy))
	mux.Handle("/bulk-copy", s.require(s.handleBulkCopy))
	mux.Handle("/bulk-delete", s.require(s.handleBulkDelete))
	mux.Handle("/create-folder", s.require(s.handleCreateFolder))
	mux.Handle("/storage-stats", s.require(s.handleStorageStats))
	mux.Handle("/read-text/", s.require(s.handleReadText))
	mux.Handle("/save-text", s.require(s.handleSaveText))
	mux.Handle("/create-file", s.require(s.handleCreateFile))
	mux.Handle("/thumb", s.require(s.handleThumb))

	// links
	mux.HandleFunc("/links", s.handleLinks)
	mux.Handle("/links/add", s.require(s.handleLinkAdd))
	mux.Handle("/add-link", s.require(s.handleLinkAdd)) // legacy alias
	mux.Handle("/links/edit", s.require(s.handleLinkEdit))
	mux.Handle("/links/delete", s.require(s.handleLinkDelete))
	mux.Handle("/delete-link/", s.require(s.handleLinkDeleteByPath))

	return auth.Middleware(s.cfg.PasswordBcrypt, s.sessions, mux)
}

func (s *Server) serveIndex(w http.ResponseWriter) {
	b, err := fs.ReadFile(s.webFS, "index.html")
	if err != nil {
		http.Error(w, "missing ui", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(b)
}

func (s *Server) require(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.Authed(r.Context()) {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ok := auth.VerifyPassword(s.cfg.PasswordBcrypt, r.FormValue("p"))
	metrics.RecordAuthAttempt(ok)
	if ok {
		token, err := s.sessions.Issue()
		if err != nil {
			http.Error(w, "session failed", http.StatusInternalServerError)
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     auth.CookieName,
			Value:    token,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(auth.CookieName); err == nil {
		s.sessions.Revoke(c.Value)
	}
	http.SetCookie(w, &http.Cookie{Name: auth.CookieName, Value: "", Path: "/", MaxAge: -1})
	http.Redirect(w, r, "/", http.StatusFound)
}

// --- helpers ---

// errStatus maps the fsops/sandbox taxonomy onto HTTP statuses. Anything
// unrecognized is an internal failure reported with the underlying message;
// the request handler never crashes.
func errStatus(err error) int {
	switch {
	case errors.Is(err, sandbox.ErrUnsafePath):
		return http.StatusBadRequest
	case errors.Is(err, fsops.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, fsops.ErrNotText):
		return http.StatusBadRequest
	case errors.Is(err, fsops.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, fsops.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, fsops.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), errStatus(err))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "OK")
}

// pathParam extracts the relative path after a route prefix like "/files/".
func pathParam(r *http.Request, prefix string) string {
	return sandbox.CleanRel(strings.TrimPrefix(r.URL.Path, prefix))
}

func contentTypeForName(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return ""
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	// Fallbacks for systems with sparse mime tables.
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".mkv":
		return "video/x-matroska"
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".flac":
		return "audio/flac"
	case ".pdf":
		return "application/pdf"
	case ".txt", ".log", ".md", ".json", ".yaml", ".yml", ".toml", ".ini", ".cfg", ".conf", ".go", ".js", ".ts", ".py", ".rs", ".c", ".h", ".cpp", ".sh", ".css", ".html":
		return "text/plain; charset=utf-8"
	case ".zip":
		return "application/zip"
	case ".tar":
		return "application/x-tar"
	case ".gz":
		return "application/gzip"
	default:
		return ""
	}
}

func isImageExt(ext string) bool {
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return true
	default:
		return false
	}
}

// baseName of a slash-separated relative path.
func baseName(rel string) string {
	return path.Base("/" + rel)
}
