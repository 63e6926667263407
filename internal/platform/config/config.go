package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile             = ".env"
	defaultPort                = "8080"
	defaultReadTimeout         = 15 * time.Second
	defaultWriteTimeout        = 30 * time.Second
	defaultIdleTimeout         = 120 * time.Second
	defaultSecurityEnvironment = "local"
	defaultOIDCJWKSURL         = "https://www.googleapis.com/oauth2/v3/certs"
	defaultSecurityIssuer      = "https://accounts.google.com"
	defaultEventTopic          = "catalog-entity-updated"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server    ServerConfig
	Firebase  FirebaseConfig
	Firestore FirestoreConfig
	Events    EventsConfig
	Security  SecurityConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// FirebaseConfig stores Firebase project settings used for operator authentication.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

// FirestoreConfig stores document store parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// EventsConfig controls catalog event publishing.
type EventsConfig struct {
	ProjectID string
	Topic     string
	Enabled   bool
}

// SecurityConfig groups server-to-server authentication settings.
type SecurityConfig struct {
	Environment string
	OIDC        OIDCConfig
}

// OIDCConfig controls Google-signed token verification for internal routes.
type OIDCConfig struct {
	JWKSURL  string
	Audience string
	Issuers  []string
}

// SecretResolver resolves references to external secrets (e.g. Secret Manager URIs).
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret resolves the secret using the wrapped function.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// SecretError describes failures while resolving a secret reference.
type SecretError struct {
	Ref string
	Err error
}

// Error implements the error interface.
func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

// Unwrap exposes the underlying error.
func (e *SecretError) Unwrap() error { return e.Err }

type loadOptions struct {
	envFile  string
	resolver SecretResolver
}

// Option customises configuration loading.
type Option func(*loadOptions)

// WithEnvFile overrides the dotenv file consulted before the process environment.
func WithEnvFile(path string) Option {
	return func(o *loadOptions) {
		if strings.TrimSpace(path) != "" {
			o.envFile = path
		}
	}
}

// WithSecretResolver enables secret:// reference resolution during load.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loadOptions) {
		o.resolver = resolver
	}
}

// EnvironmentValues merges the optional dotenv file with the process environment.
// Process environment variables win over file entries.
func EnvironmentValues(opts ...Option) (map[string]string, error) {
	options := loadOptions{envFile: defaultEnvFile}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	values := make(map[string]string)
	if err := readEnvFile(options.envFile, values); err != nil {
		return nil, err
	}
	for _, entry := range os.Environ() {
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		values[parts[0]] = parts[1]
	}
	return values, nil
}

// Load builds the Config from environment values, resolving secret references
// and validating required fields.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := loadOptions{envFile: defaultEnvFile}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	values, err := EnvironmentValues(opts...)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) string {
		return strings.TrimSpace(values[key])
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         valueOrDefault(lookup("API_SERVER_PORT"), defaultPort),
			ReadTimeout:  durationOrDefault(lookup("API_SERVER_READ_TIMEOUT"), defaultReadTimeout),
			WriteTimeout: durationOrDefault(lookup("API_SERVER_WRITE_TIMEOUT"), defaultWriteTimeout),
			IdleTimeout:  durationOrDefault(lookup("API_SERVER_IDLE_TIMEOUT"), defaultIdleTimeout),
		},
		Firebase: FirebaseConfig{
			ProjectID:       lookup("API_FIREBASE_PROJECT_ID"),
			CredentialsFile: lookup("API_FIREBASE_CREDENTIALS_FILE"),
		},
		Firestore: FirestoreConfig{
			ProjectID:    valueOrDefault(lookup("API_FIRESTORE_PROJECT_ID"), lookup("API_FIREBASE_PROJECT_ID")),
			EmulatorHost: lookup("API_FIRESTORE_EMULATOR_HOST"),
		},
		Events: EventsConfig{
			ProjectID: valueOrDefault(lookup("API_EVENTS_PROJECT_ID"), lookup("API_FIREBASE_PROJECT_ID")),
			Topic:     valueOrDefault(lookup("API_EVENTS_TOPIC"), defaultEventTopic),
			Enabled:   boolOrDefault(lookup("API_EVENTS_ENABLED"), false),
		},
		Security: SecurityConfig{
			Environment: valueOrDefault(lookup("API_SECURITY_ENVIRONMENT"), defaultSecurityEnvironment),
			OIDC: OIDCConfig{
				JWKSURL:  valueOrDefault(lookup("API_SECURITY_OIDC_JWKS_URL"), defaultOIDCJWKSURL),
				Audience: lookup("API_SECURITY_OIDC_AUDIENCE"),
				Issuers:  splitList(valueOrDefault(lookup("API_SECURITY_OIDC_ISSUERS"), defaultSecurityIssuer)),
			},
		},
	}

	if err := resolveSecretFields(ctx, &cfg, options.resolver); err != nil {
		return Config{}, err
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// resolveSecretFields replaces secret:// references with resolved secret values.
func resolveSecretFields(ctx context.Context, cfg *Config, resolver SecretResolver) error {
	targets := []*string{
		&cfg.Firebase.CredentialsFile,
		&cfg.Security.OIDC.Audience,
	}
	for _, target := range targets {
		value := strings.TrimSpace(*target)
		if !strings.HasPrefix(value, "secret://") {
			continue
		}
		if resolver == nil {
			return &SecretError{Ref: value, Err: errors.New("no secret resolver configured")}
		}
		resolved, err := resolver.ResolveSecret(ctx, value)
		if err != nil {
			return &SecretError{Ref: value, Err: err}
		}
		*target = strings.TrimSpace(resolved)
	}
	return nil
}

func validate(cfg Config) error {
	var missing []string
	if strings.TrimSpace(cfg.Firestore.ProjectID) == "" {
		missing = append(missing, "Firestore.ProjectID")
	}
	if strings.TrimSpace(cfg.Server.Port) == "" {
		missing = append(missing, "Server.Port")
	}
	if cfg.Events.Enabled && strings.TrimSpace(cfg.Events.Topic) == "" {
		missing = append(missing, "Events.Topic")
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return &ValidationError{fields: missing}
}

func readEnvFile(path string, into map[string]string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: open env file %s: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, `"'`)
		if key == "" {
			continue
		}
		into[key] = value
	}
	return scanner.Err()
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func durationOrDefault(value string, fallback time.Duration) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	if parsed, err := time.ParseDuration(value); err == nil && parsed > 0 {
		return parsed
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return fallback
}

func boolOrDefault(value string, fallback bool) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
