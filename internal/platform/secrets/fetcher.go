package secrets

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	refScheme           = "secret://"
	defaultVersionAlias = "latest"
	localEnvironment    = "local"
	defaultFallbackPath = ".secrets.local"
)

var (
	// ErrInvalidRef is returned for references that do not follow secret://name[@version].
	ErrInvalidRef = errors.New("secrets: invalid secret reference")
	// ErrSecretNotFound is returned when Secret Manager has no matching secret version.
	ErrSecretNotFound = errors.New("secrets: secret not found")
)

type secretManagerClient interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

// Fetcher resolves secret:// references using Google Secret Manager.
// In the local environment it falls back to a plain key=value file so
// developers can run without cloud credentials.
type Fetcher struct {
	client     secretManagerClient
	ownsClient bool

	logger    *zap.Logger
	env       string
	projectID string

	fallbackPath string
	fallbackOnce sync.Once
	fallbackVals map[string]string
	fallbackErr  error

	mu    sync.RWMutex
	cache map[string]string
}

type fetcherConfig struct {
	logger       *zap.Logger
	env          string
	projectID    string
	fallbackPath string
	client       secretManagerClient
	clientOpts   []option.ClientOption
}

// Option customises Fetcher construction.
type Option func(*fetcherConfig)

// WithLogger sets the logger used for diagnostic output.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *fetcherConfig) {
		cfg.logger = logger
	}
}

// WithEnvironment selects the deployment environment; "local" enables file fallback.
func WithEnvironment(env string) Option {
	return func(cfg *fetcherConfig) {
		cfg.env = strings.ToLower(strings.TrimSpace(env))
	}
}

// WithProject configures the Google Cloud project that owns the secrets.
func WithProject(projectID string) Option {
	return func(cfg *fetcherConfig) {
		cfg.projectID = strings.TrimSpace(projectID)
	}
}

// WithFallbackPath overrides the local fallback file location.
func WithFallbackPath(path string) Option {
	return func(cfg *fetcherConfig) {
		if strings.TrimSpace(path) != "" {
			cfg.fallbackPath = path
		}
	}
}

// WithClient injects a pre-built Secret Manager client (used by tests).
func WithClient(client secretManagerClient) Option {
	return func(cfg *fetcherConfig) {
		cfg.client = client
	}
}

// WithClientOptions appends options used when the fetcher builds its own client.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(cfg *fetcherConfig) {
		cfg.clientOpts = append(cfg.clientOpts, opts...)
	}
}

// NewFetcher constructs a Fetcher. Outside the local environment a Secret
// Manager client is created eagerly so credential problems surface at startup.
func NewFetcher(ctx context.Context, opts ...Option) (*Fetcher, error) {
	cfg := fetcherConfig{
		logger:       zap.NewNop(),
		env:          localEnvironment,
		fallbackPath: defaultFallbackPath,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	fetcher := &Fetcher{
		client:       cfg.client,
		logger:       cfg.logger,
		env:          cfg.env,
		projectID:    cfg.projectID,
		fallbackPath: cfg.fallbackPath,
		cache:        make(map[string]string),
	}

	if fetcher.client == nil && fetcher.env != localEnvironment {
		client, err := secretmanager.NewClient(ctx, cfg.clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("secrets: create client: %w", err)
		}
		fetcher.client = client
		fetcher.ownsClient = true
	}

	return fetcher, nil
}

// Close releases the underlying Secret Manager client when owned by the fetcher.
func (f *Fetcher) Close() error {
	if f == nil || !f.ownsClient || f.client == nil {
		return nil
	}
	return f.client.Close()
}

// ResolveSecret resolves a secret://name[@version] reference. Resolved values
// are cached for the lifetime of the process.
func (f *Fetcher) ResolveSecret(ctx context.Context, ref string) (string, error) {
	name, version, err := parseRef(ref)
	if err != nil {
		return "", err
	}

	cacheKey := name + "@" + version
	f.mu.RLock()
	cached, ok := f.cache[cacheKey]
	f.mu.RUnlock()
	if ok {
		return cached, nil
	}

	value, err := f.fetch(ctx, name, version)
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	f.cache[cacheKey] = value
	f.mu.Unlock()

	f.logger.Debug("secret resolved", zap.String("secret", name), zap.String("version", version))
	return value, nil
}

func (f *Fetcher) fetch(ctx context.Context, name, version string) (string, error) {
	if f.client == nil {
		return f.fallback(name)
	}

	if strings.TrimSpace(f.projectID) == "" {
		return "", errors.New("secrets: project id is required")
	}

	resource := fmt.Sprintf("projects/%s/secrets/%s/versions/%s", f.projectID, name, version)
	start := time.Now()
	resp, err := f.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: resource})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return "", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
		}
		return "", fmt.Errorf("secrets: access %s: %w", name, err)
	}
	if resp == nil || resp.Payload == nil {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
	}

	f.logger.Debug("secret fetched",
		zap.String("secret", name),
		zap.Duration("latency", time.Since(start)),
	)
	return string(resp.Payload.Data), nil
}

func (f *Fetcher) fallback(name string) (string, error) {
	f.fallbackOnce.Do(func() {
		f.fallbackVals, f.fallbackErr = readFallbackFile(f.fallbackPath)
	})
	if f.fallbackErr != nil {
		return "", f.fallbackErr
	}
	value, ok := f.fallbackVals[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
	}
	return value, nil
}

func parseRef(ref string) (name, version string, err error) {
	trimmed := strings.TrimSpace(ref)
	if !strings.HasPrefix(trimmed, refScheme) {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	rest := strings.TrimPrefix(trimmed, refScheme)
	version = defaultVersionAlias
	if idx := strings.LastIndex(rest, "@"); idx >= 0 {
		version = strings.TrimSpace(rest[idx+1:])
		rest = rest[:idx]
	}
	name = strings.TrimSpace(rest)
	if name == "" || version == "" || strings.ContainsAny(name, "/ ") {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	return name, version, nil
}

func readFallbackFile(path string) (map[string]string, error) {
	values := make(map[string]string)
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return values, nil
		}
		return nil, fmt.Errorf("secrets: open fallback file %s: %w", path, err)
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
		if key == "" {
			continue
		}
		values[key] = strings.TrimSpace(parts[1])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("secrets: read fallback file %s: %w", path, err)
	}
	return values, nil
}
