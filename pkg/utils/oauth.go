package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/humanitycalls/volunteer-desk/internal/config"
)

const (
	AuthPort       = 3000
	authTimeout    = 5 * time.Minute
	callbackPath   = "/oauth/callback"
	tokenDirName   = ".humanity-calls/tokens"
	tokenFilePerms = 0600
	tokenDirPerms  = 0700
	tokenInfoURL   = "https://oauth2.googleapis.com/tokeninfo"
)

// ScopeSheets is the only Google scope the roster export needs
const ScopeSheets = "https://www.googleapis.com/auth/spreadsheets"

func requiredScopes() []string {
	return []string{ScopeSheets}
}

// GetOAuthConfig builds an oauth2 config that redirects to the local callback server
func GetOAuthConfig(oauthCfg *config.OAuthClientConfig) (*oauth2.Config, error) {
	raw, err := json.Marshal(oauthCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal oauth config: %w", err)
	}

	googleConfig, err := google.ConfigFromJSON(raw, requiredScopes()...)
	if err != nil {
		return nil, fmt.Errorf("failed to create google config: %w", err)
	}
	googleConfig.RedirectURL = fmt.Sprintf("http://localhost:%d%s", AuthPort, callbackPath)

	return googleConfig, nil
}

// TokenStore persists one token file per environment under Dir
type TokenStore struct {
	Dir string
}

// DefaultTokenStore keeps tokens in the user's home directory
func DefaultTokenStore() (*TokenStore, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return &TokenStore{Dir: filepath.Join(home, tokenDirName)}, nil
}

func (s *TokenStore) path(env string) string {
	return filepath.Join(s.Dir, fmt.Sprintf("token-%s.json", env))
}

// Load returns nil, nil when no token has been saved for env
func (s *TokenStore) Load(env string) (*oauth2.Token, error) {
	data, err := os.ReadFile(s.path(env))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}
	return &token, nil
}

// Save writes the token readable by the owner only
func (s *TokenStore) Save(env string, token *oauth2.Token) error {
	if err := os.MkdirAll(s.Dir, tokenDirPerms); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}
	if err := os.WriteFile(s.path(env), data, tokenFilePerms); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// Delete removes the token for env; a missing file is not an error
func (s *TokenStore) Delete(env string) error {
	if err := os.Remove(s.path(env)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete token file: %w", err)
	}
	return nil
}

// Authorizer obtains a Sheets token, reusing a saved one when it is still usable
// and otherwise running the browser consent flow against a local callback server
type Authorizer struct {
	Config *oauth2.Config
	Store  *TokenStore
	Logger *zap.Logger

	mu     sync.Mutex
	cached *oauth2.Token
}

// Token returns a valid token for env. Only one consent flow runs at a time.
func (a *Authorizer) Token(ctx context.Context, env string) (*oauth2.Token, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	logger := a.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if a.cached != nil && a.cached.Valid() {
		return a.cached, nil
	}

	saved, err := a.Store.Load(env)
	if err != nil {
		logger.Warn("Failed to load saved token", zap.Error(err))
	}
	if token := a.reuse(ctx, env, saved, logger); token != nil {
		a.cached = token
		return token, nil
	}

	authURL := a.Config.AuthCodeURL("state", oauth2.AccessTypeOffline)
	fmt.Printf("\nVisit this URL to authorize Google Sheets access:\n%s\n\n", authURL)

	code, err := listenForAuthCallback(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get authorization code: %w", err)
	}

	token, err := a.Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code for token: %w", err)
	}
	if err := validateTokenScopes(ctx, token); err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}

	if err := a.Store.Save(env, token); err != nil {
		logger.Warn("Failed to save token", zap.Error(err))
	}
	a.cached = token
	return token, nil
}

// reuse returns saved (refreshed if needed) when it carries the required scopes
func (a *Authorizer) reuse(ctx context.Context, env string, saved *oauth2.Token, logger *zap.Logger) *oauth2.Token {
	if saved == nil {
		return nil
	}

	token := saved
	if !saved.Valid() {
		if saved.RefreshToken == "" {
			return nil
		}
		refreshed, err := a.Config.TokenSource(ctx, saved).Token()
		if err != nil {
			logger.Debug("Token refresh failed", zap.Error(err))
			return nil
		}
		token = refreshed
	}

	if err := validateTokenScopes(ctx, token); err != nil {
		logger.Info("Saved token is missing scopes, starting a new consent flow", zap.Error(err))
		_ = a.Store.Delete(env)
		return nil
	}

	if token != saved {
		if err := a.Store.Save(env, token); err != nil {
			logger.Warn("Failed to save refreshed token", zap.Error(err))
		}
	}
	return token
}

func validateTokenScopes(ctx context.Context, token *oauth2.Token) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tokenInfoURL+"?access_token="+token.AccessToken, nil)
	if err != nil {
		return fmt.Errorf("failed to create tokeninfo request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call tokeninfo endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("tokeninfo request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var info struct {
		Scope string `json:"scope"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return fmt.Errorf("failed to decode tokeninfo response: %w", err)
	}

	if missing := missingScopes(info.Scope); len(missing) > 0 {
		return fmt.Errorf("token is missing required scopes: %v", missing)
	}
	return nil
}

// missingScopes lists required scopes absent from a space-separated grant
func missingScopes(granted string) []string {
	have := strings.Fields(granted)
	var missing []string
	for _, s := range requiredScopes() {
		if !slices.Contains(have, s) {
			missing = append(missing, s)
		}
	}
	return missing
}

// listenForAuthCallback serves the redirect on AuthPort until a code arrives
func listenForAuthCallback(ctx context.Context) (string, error) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "Authorization failed", http.StatusBadRequest)
			select {
			case errCh <- fmt.Errorf("no authorization code received"):
			default:
			}
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><h1>Authorization successful</h1><p>You can close this window.</p></body></html>")
		select {
		case codeCh <- code:
		default:
		}
	})

	listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", AuthPort))
	if err != nil {
		return "", fmt.Errorf("failed to listen on port %d: %w", AuthPort, err)
	}
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case errCh <- fmt.Errorf("server error: %w", err):
			default:
			}
		}
	}()

	timeoutCtx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()

	var code string
	select {
	case code = <-codeCh:
	case err = <-errCh:
	case <-timeoutCtx.Done():
		err = fmt.Errorf("authorization timed out after %v: %w", authTimeout, timeoutCtx.Err())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)

	if err != nil {
		return "", err
	}
	return code, nil
}
