package config

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Environment variable names holding the opaque credentials
const (
	EnvAdminToken     = "HC_ADMIN_TOKEN"
	EnvApplicantToken = "HC_APPLICANT_TOKEN"
)

// Credentials holds the opaque credentials attached to outgoing API requests.
// Either may be empty; commands that need one check for it.
type Credentials struct {
	AdminToken     string
	ApplicantToken string
}

// LoadCredentials reads credentials from the process environment after loading
// ".env.<env>" (if present) without overriding variables that are already set
func LoadCredentials(env string) (*Credentials, error) {
	if env != "" {
		envFile := ".env." + env
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	return &Credentials{
		AdminToken:     os.Getenv(EnvAdminToken),
		ApplicantToken: os.Getenv(EnvApplicantToken),
	}, nil
}

// ApplicantFingerprint identifies the applicant credential without revealing it.
// It is empty when no applicant token is set.
func (c *Credentials) ApplicantFingerprint() string {
	if c == nil || c.ApplicantToken == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(c.ApplicantToken))
	return hex.EncodeToString(sum[:])[:16]
}
