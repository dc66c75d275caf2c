package registry

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

// The service tests run the HTTP client against a real service instance, so
// they cover both sides of the wire format.
func setupRegistryServer(t *testing.T) (*Memory, *HTTPClient) {
	t.Helper()

	mem := NewMemory()
	service := NewService(mem, slog.New(slog.NewTextHandler(io.Discard, nil)))

	r := chi.NewRouter()
	service.RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return mem, NewHTTPClient(srv.URL)
}

func TestService_MintApproveTransferOwner(t *testing.T) {
	_, client := setupRegistryServer(t)
	ctx := context.Background()

	require.NoError(t, client.Mint(ctx, 0, "alice"))

	owner, err := client.OwnerOf(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, "alice", owner)

	require.NoError(t, client.Approve(ctx, "alice", 0, "house"))
	require.NoError(t, client.TransferCustody(ctx, "house", 0, "alice", "house"))

	owner, err = client.OwnerOf(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, "house", owner)
}

func TestService_RefusalsPropagate(t *testing.T) {
	_, client := setupRegistryServer(t)
	ctx := context.Background()

	_, err := client.OwnerOf(ctx, 42)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown asset")

	require.NoError(t, client.Mint(ctx, 0, "alice"))

	err = client.TransferCustody(ctx, "mallory", 0, "alice", "mallory")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not authorized")

	err = client.Mint(ctx, 0, "bob")
	require.Error(t, err)
	require.Contains(t, err.Error(), "already exists")
}

func TestHTTPResolver_RequiresURL(t *testing.T) {
	r := NewHTTPResolver()

	_, err := r.Resolve("not-a-url")
	require.Error(t, err)

	reg, err := r.Resolve("http://localhost:9999")
	require.NoError(t, err)
	require.NotNil(t, reg)

	// Resolving the same address returns the cached client.
	again, err := r.Resolve("http://localhost:9999")
	require.NoError(t, err)
	require.Same(t, reg, again)
}

func TestStaticResolver(t *testing.T) {
	r := NewStaticResolver()
	mem := NewMemory()
	r.Register("local", mem)

	reg, err := r.Resolve("local")
	require.NoError(t, err)
	require.Same(t, mem, reg)

	_, err = r.Resolve("other")
	require.Error(t, err)
}
