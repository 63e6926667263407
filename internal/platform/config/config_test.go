package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearAPIEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"API_SERVER_PORT",
		"API_SERVER_READ_TIMEOUT",
		"API_SERVER_WRITE_TIMEOUT",
		"API_SERVER_IDLE_TIMEOUT",
		"API_FIREBASE_PROJECT_ID",
		"API_FIREBASE_CREDENTIALS_FILE",
		"API_FIRESTORE_PROJECT_ID",
		"API_FIRESTORE_EMULATOR_HOST",
		"API_EVENTS_PROJECT_ID",
		"API_EVENTS_TOPIC",
		"API_EVENTS_ENABLED",
		"API_SECURITY_ENVIRONMENT",
		"API_SECURITY_OIDC_JWKS_URL",
		"API_SECURITY_OIDC_AUDIENCE",
		"API_SECURITY_OIDC_ISSUERS",
	}
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	clearAPIEnv(t)
	t.Setenv("API_FIREBASE_PROJECT_ID", "cg-dev")

	cfg, err := Load(context.Background(), WithEnvFile(filepath.Join(t.TempDir(), ".env.absent")))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Firestore.ProjectID != "cg-dev" {
		t.Errorf("expected firestore project to default to firebase project, got %s", cfg.Firestore.ProjectID)
	}
	if cfg.Events.Enabled {
		t.Errorf("expected event publishing disabled by default")
	}
	if cfg.Events.Topic != defaultEventTopic {
		t.Errorf("expected default event topic, got %s", cfg.Events.Topic)
	}
	if cfg.Security.Environment != "local" {
		t.Errorf("expected default security environment local, got %s", cfg.Security.Environment)
	}
	if cfg.Security.OIDC.JWKSURL != defaultOIDCJWKSURL {
		t.Errorf("expected default jwks url %s, got %s", defaultOIDCJWKSURL, cfg.Security.OIDC.JWKSURL)
	}
	if len(cfg.Security.OIDC.Issuers) != 1 || cfg.Security.OIDC.Issuers[0] != defaultSecurityIssuer {
		t.Errorf("expected default issuer, got %v", cfg.Security.OIDC.Issuers)
	}
}

func TestLoadWithOverridesAndSecrets(t *testing.T) {
	clearAPIEnv(t)
	t.Setenv("API_SERVER_PORT", "9090")
	t.Setenv("API_SERVER_IDLE_TIMEOUT", "2m")
	t.Setenv("API_FIREBASE_PROJECT_ID", "cg-prod")
	t.Setenv("API_FIRESTORE_PROJECT_ID", "cg-fire")
	t.Setenv("API_EVENTS_PROJECT_ID", "cg-events")
	t.Setenv("API_EVENTS_TOPIC", "catalog-updates")
	t.Setenv("API_EVENTS_ENABLED", "true")
	t.Setenv("API_SECURITY_ENVIRONMENT", "prod")
	t.Setenv("API_SECURITY_OIDC_AUDIENCE", "secret://oidc/audience")
	t.Setenv("API_SECURITY_OIDC_ISSUERS", "https://accounts.google.com, https://cloud.google.com/iap")
	t.Setenv("API_SECURITY_OIDC_JWKS_URL", "https://example.com/jwks.json")

	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		if ref == "secret://oidc/audience" {
			return "https://service.example.com", nil
		}
		return "", errors.New("not found")
	})

	cfg, err := Load(context.Background(), WithSecretResolver(resolver))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Server.IdleTimeout != 2*time.Minute {
		t.Errorf("unexpected idle timeout: %s", cfg.Server.IdleTimeout)
	}
	if cfg.Firestore.ProjectID != "cg-fire" {
		t.Errorf("unexpected firestore project %s", cfg.Firestore.ProjectID)
	}
	if !cfg.Events.Enabled || cfg.Events.Topic != "catalog-updates" || cfg.Events.ProjectID != "cg-events" {
		t.Errorf("unexpected events config %#v", cfg.Events)
	}
	if cfg.Security.Environment != "prod" {
		t.Errorf("expected security environment prod, got %s", cfg.Security.Environment)
	}
	if cfg.Security.OIDC.Audience != "https://service.example.com" {
		t.Errorf("expected resolved oidc audience, got %s", cfg.Security.OIDC.Audience)
	}
	if cfg.Security.OIDC.JWKSURL != "https://example.com/jwks.json" {
		t.Errorf("unexpected jwks url %s", cfg.Security.OIDC.JWKSURL)
	}
	if len(cfg.Security.OIDC.Issuers) != 2 {
		t.Errorf("expected 2 issuers, got %v", cfg.Security.OIDC.Issuers)
	}
}

func TestLoadDotEnvFallback(t *testing.T) {
	clearAPIEnv(t)
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env.test")
	content := "API_SERVER_PORT=7070\nAPI_FIREBASE_PROJECT_ID=cg-dot\n"
	if err := os.WriteFile(envPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write dotenv file: %v", err)
	}

	cfg, err := Load(context.Background(), WithEnvFile(envPath))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "7070" {
		t.Errorf("expected port from dotenv 7070, got %s", cfg.Server.Port)
	}
	if cfg.Firebase.ProjectID != "cg-dot" {
		t.Errorf("expected firebase project from dotenv, got %s", cfg.Firebase.ProjectID)
	}
}

func TestLoadProcessEnvWinsOverDotEnv(t *testing.T) {
	clearAPIEnv(t)
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env.test")
	if err := os.WriteFile(envPath, []byte("API_FIREBASE_PROJECT_ID=cg-dot\n"), 0o644); err != nil {
		t.Fatalf("failed to write dotenv file: %v", err)
	}
	t.Setenv("API_FIREBASE_PROJECT_ID", "cg-env")

	cfg, err := Load(context.Background(), WithEnvFile(envPath))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Firebase.ProjectID != "cg-env" {
		t.Errorf("process env must win, got %s", cfg.Firebase.ProjectID)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	clearAPIEnv(t)

	_, err := Load(context.Background(), WithEnvFile(filepath.Join(t.TempDir(), ".env.absent")))
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	found := false
	for _, field := range validation.Fields() {
		if field == "Firestore.ProjectID" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected Firestore.ProjectID in %v", validation.Fields())
	}
}

func TestLoadSecretResolverError(t *testing.T) {
	clearAPIEnv(t)
	t.Setenv("API_FIREBASE_PROJECT_ID", "cg-dev")
	t.Setenv("API_SECURITY_OIDC_AUDIENCE", "secret://missing")

	_, err := Load(context.Background())
	if err == nil {
		t.Fatal("expected secret resolution error, got nil")
	}
	var secretErr *SecretError
	if !errors.As(err, &secretErr) {
		t.Fatalf("expected SecretError, got %T", err)
	}
	if secretErr.Ref != "secret://missing" {
		t.Errorf("unexpected secret ref %s", secretErr.Ref)
	}
}

func TestEnvironmentValuesMergesSources(t *testing.T) {
	clearAPIEnv(t)
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env.test")
	content := "API_FIREBASE_PROJECT_ID=dot-project\nAPI_SECRET_FALLBACK_FILE=.dot.local\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("failed writing env file: %v", err)
	}

	t.Setenv("API_FIREBASE_PROJECT_ID", "os-project")

	values, err := EnvironmentValues(WithEnvFile(envPath))
	if err != nil {
		t.Fatalf("EnvironmentValues returned error: %v", err)
	}

	if got := values["API_FIREBASE_PROJECT_ID"]; got != "os-project" {
		t.Fatalf("expected system env to win, got %s", got)
	}
	if got := values["API_SECRET_FALLBACK_FILE"]; got != ".dot.local" {
		t.Fatalf("expected dotenv fallback file, got %s", got)
	}
}
