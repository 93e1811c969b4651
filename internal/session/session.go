// Package session holds the client-side account state: the bearer token on
// disk and a small global config. The session is an explicit value passed to
// commands and the TUI, populated at login and cleared at logout.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"taskpilot-cli/internal/model"
)

const (
	credFileName   = "credentials.json"
	configFileName = "config.json"

	// DefaultBaseURL is where a locally run backend listens.
	DefaultBaseURL = "http://localhost:8080"
)

func ConfigDir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.taskpilot).
	if v := strings.TrimSpace(os.Getenv("TASKPILOT_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".taskpilot"), nil
}

type TokenInfo struct {
	Token     string     `json:"token"`
	Source    string     `json:"source"`     // "env" | "file"
	CreatedAt time.Time  `json:"created_at"` // when we saved to file
	ExpiresAt *time.Time `json:"expires_at"` // from the JWT, when readable
}

// Expired reports whether the token's known expiry has passed. Tokens with
// no readable expiry are assumed live; the backend is the judge anyway.
func (ti *TokenInfo) Expired() bool {
	return ti.ExpiresAt != nil && time.Now().After(*ti.ExpiresAt)
}

func credFilePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, credFileName), nil
}

// LoadToken returns nil, nil when not logged in.
func LoadToken() (*TokenInfo, error) {
	// 1) env override
	if env := strings.TrimSpace(os.Getenv("TASKPILOT_TOKEN")); env != "" {
		return &TokenInfo{Token: stripBearer(env), Source: "env"}, nil
	}

	// 2) file
	p, err := credFilePath()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	var ti TokenInfo
	if err := json.Unmarshal(b, &ti); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	ti.Token = stripBearer(ti.Token)
	return &ti, nil
}

func SaveToken(token string) error {
	token = stripBearer(strings.TrimSpace(token))
	if token == "" {
		return fmt.Errorf("empty token")
	}
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	ti := TokenInfo{
		Token:     token,
		Source:    "file",
		CreatedAt: time.Now(),
		ExpiresAt: tokenExpiry(token),
	}
	b, err := json.MarshalIndent(ti, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	p, _ := credFilePath()
	// Owner-only: this is a bearer credential.
	if err := os.WriteFile(p, b, 0o600); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

func ClearToken() error {
	p, err := credFilePath()
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}

// tokenExpiry reads the exp claim without verifying the signature; the
// client only uses it to warn before a doomed request.
func tokenExpiry(token string) *time.Time {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil
	}
	if claims.ExpiresAt == nil {
		return nil
	}
	t := claims.ExpiresAt.Time
	return &t
}

func stripBearer(s string) string {
	if strings.HasPrefix(strings.ToLower(s), "bearer ") {
		return strings.TrimSpace(s[7:])
	}
	return s
}

// Config is the global client config (~/.taskpilot/config.json).
type Config struct {
	// BaseURL overrides DefaultBaseURL when set.
	BaseURL string `json:"baseUrl,omitempty"`

	// User caches the last /users/me response so the TUI can render plan and
	// Notion status before the refresh lands. Never authoritative.
	User *model.User `json:"user,omitempty"`
}

func configPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

func LoadConfig() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func SaveConfig(cfg *Config) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	// Atomic rename so concurrent CLI + TUI writers cannot corrupt it.
	return atomicWriteFile(dir, configFileName+".*.tmp", path, b, 0o600)
}

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, perm)
	return os.Rename(tmp, path)
}

// BaseURL resolves the backend address: env, then config, then default.
func BaseURL(cfg *Config) string {
	if v := strings.TrimSpace(os.Getenv("TASKPILOT_API_URL")); v != "" {
		return v
	}
	if cfg != nil && strings.TrimSpace(cfg.BaseURL) != "" {
		return cfg.BaseURL
	}
	return DefaultBaseURL
}

// Session is the per-invocation account context.
type Session struct {
	Token string
	User  *model.User
}

// Current loads the stored token and cached user. Returns nil when not
// logged in.
func Current() (*Session, error) {
	ti, err := LoadToken()
	if err != nil {
		return nil, err
	}
	if ti == nil {
		return nil, nil
	}
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return &Session{Token: ti.Token, User: cfg.User}, nil
}

// Clear forgets both the token and the cached user.
func Clear() error {
	if err := ClearToken(); err != nil {
		return err
	}
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	if cfg.User == nil {
		return nil
	}
	cfg.User = nil
	return SaveConfig(cfg)
}
