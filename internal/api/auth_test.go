package api

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"breezbook/internal/config"
	"breezbook/internal/models"
)

func TestAuthInterceptor(t *testing.T) {
	cfg := securedAPIConfig()
	interceptor := NewAuthInterceptor(cfg, nil).Unary()
	info := &grpc.UnaryServerInfo{FullMethod: methodGetAvailability}

	var seen config.APIClientKey
	handler := func(ctx context.Context, req any) (any, error) {
		seen, _ = clientFrom(ctx)
		return "ok", nil
	}

	t.Run("MissingMetadata", func(t *testing.T) {
		_, err := interceptor(context.Background(), "req", info, handler)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("InvalidKey", func(t *testing.T) {
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-api-key", "nope", "x-api-extra", "r-extra"))
		_, err := interceptor(ctx, "req", info, handler)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("InvalidExtra", func(t *testing.T) {
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-api-key", "reader", "x-api-extra", "nope"))
		_, err := interceptor(ctx, "req", info, handler)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("Valid", func(t *testing.T) {
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-api-key", "reader", "x-api-extra", "r-extra"))
		resp, err := interceptor(ctx, "req", info, handler)
		require.NoError(t, err)
		assert.Equal(t, "ok", resp)
		assert.Equal(t, "widget", seen.Name)
	})

	t.Run("PermissionDenied", func(t *testing.T) {
		restricted := securedAPIConfig()
		restricted.Auth.APIKeys[0].Permissions = []string{permWriteQuotes}
		ic := NewAuthInterceptor(restricted, nil).Unary()

		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-api-key", "reader", "x-api-extra", "r-extra"))
		_, err := ic(ctx, "req", info, handler)
		assert.Equal(t, codes.PermissionDenied, status.Code(err))
	})

	t.Run("Disabled", func(t *testing.T) {
		off := securedAPIConfig()
		off.Enabled = false
		resp, err := NewAuthInterceptor(off, nil).Unary()(context.Background(), "req", info, handler)
		require.NoError(t, err)
		assert.Equal(t, "ok", resp)
	})
}

func TestAuthInterceptor_RateLimit(t *testing.T) {
	cfg := config.APIConfig{
		Enabled: true,
		Auth:    config.APIAuthConfig{Enabled: false},
		RateLimit: config.APIRateLimitConfig{
			RPS:   1,
			Burst: 1,
		},
	}

	interceptor := NewAuthInterceptor(&cfg, nil).Unary()
	info := &grpc.UnaryServerInfo{FullMethod: "test"}
	handler := func(_ context.Context, req any) (any, error) { return "ok", nil }

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-api-key", "key1"))

	_, err := interceptor(ctx, "req", info, handler)
	assert.NoError(t, err)

	_, err = interceptor(ctx, "req", info, handler)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))

	other := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-api-key", "key2"))
	_, err = interceptor(other, "req", info, handler)
	assert.NoError(t, err, "limits are per client")
}

func TestLoggingUnaryInterceptor(t *testing.T) {
	interceptor := LoggingUnaryInterceptor(nil)
	info := &grpc.UnaryServerInfo{FullMethod: "test"}

	resp, err := interceptor(context.Background(), "req", info, func(ctx context.Context, req any) (any, error) {
		return "ok", nil
	})
	assert.NoError(t, err)
	assert.Equal(t, "ok", resp)

	boom := status.Error(codes.Internal, "boom")
	_, err = interceptor(context.Background(), "req", info, func(ctx context.Context, req any) (any, error) {
		return nil, boom
	})
	assert.Equal(t, boom, err)
}

func TestChainUnaryInterceptors(t *testing.T) {
	var order []string
	tag := func(name string) grpc.UnaryServerInterceptor {
		return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
			order = append(order, name)
			return handler(ctx, req)
		}
	}

	chain := ChainUnaryInterceptors(tag("a"), tag("b"), MetricsUnaryInterceptor())
	resp, err := chain(context.Background(), "req", &grpc.UnaryServerInfo{FullMethod: "test"}, func(ctx context.Context, req any) (any, error) {
		order = append(order, "handler")
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
	assert.Equal(t, []string{"a", "b", "handler"}, order)
}

func TestRequiredPermission(t *testing.T) {
	tests := []struct {
		method string
		want   string
	}{
		{methodGetAvailability, permReadAvailability},
		{methodListServices, permReadAvailability},
		{"/grpc.health.v1.Health/Check", ""},
		{"other", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, requiredPermission(tt.method))
	}
}

func TestAuthorize(t *testing.T) {
	scoped := config.APIClientKey{Permissions: []string{permReadAvailability}, Tenants: []string{"smarty"}}

	assert.NoError(t, authorize(context.Background(), permWriteBookings, "acme"), "no client means auth is off")

	ctx := withClient(context.Background(), scoped)
	assert.NoError(t, authorize(ctx, permReadAvailability, "smarty"))
	assert.ErrorIs(t, authorize(ctx, permWriteBookings, "smarty"), errPermissionDenied)
	assert.ErrorIs(t, authorize(ctx, permReadAvailability, "acme"), errTenantDenied)

	open := withClient(context.Background(), config.APIClientKey{})
	assert.NoError(t, authorize(open, permWriteTenants, "anyone"))
}

func TestGRPCError(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{models.NotFound("tenant", "x"), codes.NotFound},
		{models.Precondition("from", "bad", nil), codes.InvalidArgument},
		{errTenantDenied, codes.PermissionDenied},
		{models.ErrRateLimited, codes.ResourceExhausted},
		{status.Error(codes.Unavailable, "down"), codes.Unavailable},
		{errors.New("boom"), codes.Internal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, status.Code(grpcError(tt.err)), "%v", tt.err)
	}
	assert.NoError(t, grpcError(nil))
}

func TestParseAddOns(t *testing.T) {
	got, err := parseAddOns("wax:2, polish ,")
	require.NoError(t, err)
	assert.Equal(t, []models.AddOnOrder{{AddOnID: "wax", Quantity: 2}, {AddOnID: "polish", Quantity: 1}}, got)

	none, err := parseAddOns("")
	require.NoError(t, err)
	assert.Empty(t, none)

	for _, bad := range []string{"wax:x", "wax:-1", ":2"} {
		_, err := parseAddOns(bad)
		assert.ErrorIs(t, err, models.ErrPrecondition, bad)
	}
}
