package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validOAuthJSON = `{
  "installed": {
    "client_id": "test-client-id.apps.googleusercontent.com",
    "project_id": "test-project",
    "auth_uri": "https://accounts.google.com/o/oauth2/auth",
    "token_uri": "https://oauth2.googleapis.com/token",
    "auth_provider_x509_cert_url": "https://www.googleapis.com/oauth2/v1/certs",
    "client_secret": "test-secret",
    "redirect_uris": ["http://localhost"]
  }
}`

func validOAuthClient() *OAuthClientConfig {
	return &OAuthClientConfig{
		Installed: OAuthInstalled{
			ClientID:                "test-client-id.apps.googleusercontent.com",
			ProjectID:               "test-project",
			AuthURI:                 "https://accounts.google.com/o/oauth2/auth",
			TokenURI:                "https://oauth2.googleapis.com/token",
			AuthProviderX509CertURL: "https://www.googleapis.com/oauth2/v1/certs",
			ClientSecret:            "test-secret",
			RedirectURIs:            []string{"http://localhost"},
		},
	}
}

func TestValidateOAuthClient_ValidConfig(t *testing.T) {
	err := ValidateOAuthClient(validOAuthClient())
	assert.NoError(t, err)
}

func TestValidateOAuthClient_MissingClientID(t *testing.T) {
	cfg := validOAuthClient()
	cfg.Installed.ClientID = ""

	err := ValidateOAuthClient(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestValidateOAuthClient_InvalidURL(t *testing.T) {
	cfg := validOAuthClient()
	cfg.Installed.TokenURI = "not-a-valid-url"

	err := ValidateOAuthClient(cfg)
	assert.Error(t, err)
}

func TestValidateOAuthClient_EmptyRedirectURIs(t *testing.T) {
	cfg := validOAuthClient()
	cfg.Installed.RedirectURIs = []string{}

	err := ValidateOAuthClient(cfg)
	assert.Error(t, err)
}

func TestLoadOAuthClientFromPath_ValidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	oauthPath := filepath.Join(tmpDir, "oauthClient.json")
	require.NoError(t, os.WriteFile(oauthPath, []byte(validOAuthJSON), 0644))

	cfg, err := LoadOAuthClientFromPath(oauthPath)
	require.NoError(t, err)

	assert.Equal(t, "test-client-id.apps.googleusercontent.com", cfg.Installed.ClientID)
	assert.Equal(t, "https://oauth2.googleapis.com/token", cfg.Installed.TokenURI)
	require.Len(t, cfg.Installed.RedirectURIs, 1)
}

func TestLoadOAuthClientFromPath_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	oauthPath := filepath.Join(tmpDir, "invalid_oauth.json")
	require.NoError(t, os.WriteFile(oauthPath, []byte(`{"installed": {"client_id": "test" "x": 1}}`), 0644))

	_, err := LoadOAuthClientFromPath(oauthPath)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse oauth client file")
}

func TestLoadOAuthClientFromPath_FileNotFound(t *testing.T) {
	_, err := LoadOAuthClientFromPath("/nonexistent/path/oauthClient.json")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read oauth client file")
}

func TestLoadOAuthClientWithEnv_UsesEnvSuffix(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)
	require.NoError(t, os.WriteFile("oauthClient.test.json", []byte(validOAuthJSON), 0644))

	cfg, err := LoadOAuthClientWithEnv("test")
	require.NoError(t, err)
	assert.Equal(t, "test-project", cfg.Installed.ProjectID)
}
