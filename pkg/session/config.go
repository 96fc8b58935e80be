package session

import "time"

// Config holds session settings.
type Config struct {
	CookieName   string        `env:"SESSION_COOKIE_NAME" envDefault:"sid"`
	CookieDomain string        `env:"SESSION_COOKIE_DOMAIN"`
	TTL          time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	Secure       bool          `env:"SESSION_SECURE_COOKIES" envDefault:"false"`
	// Driver selects the store: "memory" or "redis".
	Driver string `env:"SESSION_DRIVER" envDefault:"memory"`
}

// DefaultConfig returns the settings used when no environment is set.
func DefaultConfig() Config {
	return Config{
		CookieName: "sid",
		TTL:        24 * time.Hour,
		Driver:     "memory",
	}
}
