package secrets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type stubSecretClient struct {
	responses map[string]string
	calls     int
	err       error
}

func (s *stubSecretClient) AccessSecretVersion(_ context.Context, req *secretmanagerpb.AccessSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	value, ok := s.responses[req.GetName()]
	if !ok {
		return nil, status.Error(codes.NotFound, "missing")
	}
	return &secretmanagerpb.AccessSecretVersionResponse{
		Payload: &secretmanagerpb.SecretPayload{Data: []byte(value)},
	}, nil
}

func (s *stubSecretClient) Close() error { return nil }

func TestResolveSecretFetchesAndCaches(t *testing.T) {
	client := &stubSecretClient{responses: map[string]string{
		"projects/acme/secrets/api-key/versions/latest": "s3cret",
	}}

	fetcher, err := NewFetcher(context.Background(),
		WithEnvironment("production"),
		WithProject("acme"),
		WithClient(client),
	)
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}

	for i := 0; i < 2; i++ {
		value, err := fetcher.ResolveSecret(context.Background(), "secret://api-key")
		if err != nil {
			t.Fatalf("ResolveSecret: %v", err)
		}
		if value != "s3cret" {
			t.Fatalf("unexpected value %q", value)
		}
	}
	if client.calls != 1 {
		t.Fatalf("expected a single backend call, got %d", client.calls)
	}
}

func TestResolveSecretVersionPin(t *testing.T) {
	client := &stubSecretClient{responses: map[string]string{
		"projects/acme/secrets/api-key/versions/7": "pinned",
	}}

	fetcher, err := NewFetcher(context.Background(),
		WithEnvironment("production"),
		WithProject("acme"),
		WithClient(client),
	)
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}

	value, err := fetcher.ResolveSecret(context.Background(), "secret://api-key@7")
	if err != nil {
		t.Fatalf("ResolveSecret: %v", err)
	}
	if value != "pinned" {
		t.Fatalf("unexpected value %q", value)
	}
}

func TestResolveSecretNotFound(t *testing.T) {
	client := &stubSecretClient{responses: map[string]string{}}

	fetcher, err := NewFetcher(context.Background(),
		WithEnvironment("production"),
		WithProject("acme"),
		WithClient(client),
	)
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}

	if _, err := fetcher.ResolveSecret(context.Background(), "secret://missing"); !errors.Is(err, ErrSecretNotFound) {
		t.Fatalf("expected ErrSecretNotFound, got %v", err)
	}
}

func TestResolveSecretInvalidRef(t *testing.T) {
	fetcher, err := NewFetcher(context.Background())
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}

	for _, ref := range []string{"", "api-key", "secret://", "secret://has space", "secret://a/b"} {
		if _, err := fetcher.ResolveSecret(context.Background(), ref); !errors.Is(err, ErrInvalidRef) {
			t.Fatalf("ref %q: expected ErrInvalidRef, got %v", ref, err)
		}
	}
}

func TestResolveSecretLocalFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".secrets.local")
	contents := "# local secrets\napi-key=from-file\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write fallback file: %v", err)
	}

	fetcher, err := NewFetcher(context.Background(),
		WithEnvironment("local"),
		WithFallbackPath(path),
	)
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}

	value, err := fetcher.ResolveSecret(context.Background(), "secret://api-key")
	if err != nil {
		t.Fatalf("ResolveSecret: %v", err)
	}
	if value != "from-file" {
		t.Fatalf("unexpected value %q", value)
	}

	if _, err := fetcher.ResolveSecret(context.Background(), "secret://absent"); !errors.Is(err, ErrSecretNotFound) {
		t.Fatalf("expected ErrSecretNotFound, got %v", err)
	}
}
