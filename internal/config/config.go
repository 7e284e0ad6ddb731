package config

// Config is intentionally small and JSON-friendly.
type Config struct {
	// Addr is the listen address, default "0.0.0.0:8000".
	Addr string `json:"addr"`

	// Root is the managed upload directory. All user-visible paths are
	// relative to it. Required.
	Root string `json:"root"`

	// Reserved is the hidden child of Root that holds internal state (the
	// links store, upload spool, thumbnail cache). Default: ".system".
	Reserved string `json:"reserved"`

	// PasswordBcrypt is the bcrypt hash of the single shared password.
	// Empty disables authentication (every request is treated as logged in).
	// Generate with: duffel passwd -p <password>
	PasswordBcrypt string `json:"passwordBcrypt"`

	// MaxUploadBytes caps a single upload request. Default: 5 GiB.
	MaxUploadBytes int64 `json:"maxUploadBytes"`

	// LogLevel is one of debug, info, warn, error. Default: info.
	LogLevel string `json:"logLevel"`

	// LogFormat is "json" or "console". Default: json.
	LogFormat string `json:"logFormat"`
}

const (
	DefaultAddr     = "0.0.0.0:8000"
	DefaultReserved = ".system"

	// 5 GiB
	DefaultMaxUploadBytes = 5 << 30
)

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.Reserved == "" {
		c.Reserved = DefaultReserved
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "json"
	}
}
