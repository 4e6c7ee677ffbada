package security

import (
	"errors"

	"github.com/matthewhartstonge/argon2"
)

var ErrEmptyPassword = errors.New("password cannot be empty")

// Argon2Hasher hashes and verifies passwords using argon2id encoded hashes.
type Argon2Hasher struct {
	config argon2.Config
}

// Argon2Option customizes the argon2 parameters of an Argon2Hasher.
type Argon2Option func(*argon2.Config)

// WithMemoryCost sets the memory cost in KiB.
func WithMemoryCost(kib uint32) Argon2Option {
	return func(c *argon2.Config) {
		c.MemoryCost = kib
	}
}

// WithTimeCost sets the number of passes over memory.
func WithTimeCost(passes uint32) Argon2Option {
	return func(c *argon2.Config) {
		c.TimeCost = passes
	}
}

// NewArgon2Hasher creates an Argon2Hasher starting from the library defaults.
func NewArgon2Hasher(opts ...Argon2Option) *Argon2Hasher {
	cfg := argon2.DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Argon2Hasher{config: cfg}
}

// Hash returns the encoded argon2id hash of password.
func (h *Argon2Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	encoded, err := h.config.HashEncoded([]byte(password))
	if err != nil {
		return "", err
	}

	return string(encoded), nil
}

// Verify reports whether password matches the encoded hash. The comparison is
// constant time.
func (h *Argon2Hasher) Verify(password, encodedHash string) (bool, error) {
	if password == "" || encodedHash == "" {
		return false, nil
	}

	return argon2.VerifyEncoded([]byte(password), []byte(encodedHash))
}
