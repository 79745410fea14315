package config

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// BaseURL is the base URL of the application (e.g., "https://app.example.com").
	BaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`

	// UploadDir is the directory where uploaded resumes are stored.
	UploadDir string `env:"UPLOAD_DIR" envDefault:"uploads"`

	// MaxUploadBytes caps the size of a resume upload.
	MaxUploadBytes int64 `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"` // 10 MiB
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	if h.UploadDir == "" {
		h.UploadDir = "uploads"
	}
	if h.MaxUploadBytes < 1 {
		h.MaxUploadBytes = 10 << 20
	}
}
