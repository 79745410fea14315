package config

import "time"

// AuthConfig groups session and password configuration.
type AuthConfig struct {
	// SessionTTL is how long a login session stays valid in Redis.
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	// CookieName is the name of the session cookie.
	CookieName string `env:"SESSION_COOKIE_NAME" envDefault:"session_id"`

	// CookieDomain is the domain for session cookies.
	// Leave empty to use the request domain.
	CookieDomain string `env:"APP_COOKIE_DOMAIN" envDefault:""`

	// CookieSecure marks the session cookie Secure.
	// Disable only for local development over plain HTTP.
	CookieSecure bool `env:"SESSION_COOKIE_SECURE" envDefault:"true"`

	// BcryptCost is the bcrypt work factor for password hashing.
	BcryptCost int `env:"BCRYPT_COST" envDefault:"12"`
}

// Sanitize applies guardrails to auth configuration values.
func (a *AuthConfig) Sanitize() {
	if a.SessionTTL < time.Minute {
		a.SessionTTL = time.Minute
	}
	if a.CookieName == "" {
		a.CookieName = "session_id"
	}
	// bcrypt rejects costs outside [4, 31]; keep a sane floor for production use.
	if a.BcryptCost < 10 {
		a.BcryptCost = 10
	}
	if a.BcryptCost > 16 {
		a.BcryptCost = 16
	}
}
