package config

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// SecretStore resolves named secrets.
type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
}

// EnvironmentSecretStore reads secrets from environment variables. A
// variable KEY_FILE, when set, names a file holding the value of KEY.
type EnvironmentSecretStore struct{}

func NewEnvironmentSecretStore() *EnvironmentSecretStore { return &EnvironmentSecretStore{} }

func (EnvironmentSecretStore) Get(_ context.Context, key string) (string, error) {
	if path := os.Getenv(key + "_FILE"); path != "" {
		b, err := os.ReadFile(path) // #nosec G304 - operator supplied secret path
		if err != nil {
			return "", fmt.Errorf("read secret file for %s: %w", key, err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", fmt.Errorf("secret %s not set", key)
	}
	return v, nil
}

// GetWithDefault returns def when the secret is missing.
func (s EnvironmentSecretStore) GetWithDefault(ctx context.Context, key, def string) string {
	v, err := s.Get(ctx, key)
	if err != nil {
		return def
	}
	return v
}

// LoadSecretsFromEnv fills credentials from the environment secret store,
// leaving configured values in place when a secret is absent.
func (c *Config) LoadSecretsFromEnv(ctx context.Context) error {
	return c.LoadSecrets(ctx, NewEnvironmentSecretStore())
}

// LoadSecrets fills credentials from store and revalidates.
func (c *Config) LoadSecrets(ctx context.Context, store SecretStore) error {
	targets := []struct {
		key string
		dst *string
	}{
		{"SKILLFORGE_STORAGE_SQL_DSN", &c.Storage.SQL.DSN},
		{"SKILLFORGE_STORAGE_REDIS_PASSWORD", &c.Storage.Redis.Password},
		{"SKILLFORGE_WEBHOOK_SECRET", &c.Webhooks.Secret},
	}
	for _, t := range targets {
		if v, err := store.Get(ctx, t.key); err == nil {
			*t.dst = v
		}
	}
	if v, err := store.Get(ctx, "SKILLFORGE_SECURITY_API_KEYS"); err == nil {
		var keys []string
		for _, k := range strings.Split(v, ",") {
			if k = strings.TrimSpace(k); k != "" {
				keys = append(keys, k)
			}
		}
		c.Security.APIKeys = keys
	}
	return c.Validate()
}
