package api

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"breezbook/internal/config"
)

const (
	apiKeyHeaderDefault   = "x-api-key"
	apiExtraHeaderDefault = "x-api-extra"
	permReadAvailability  = "read:availability"
	permReadQuotes        = "read:quotes"
	permWriteQuotes       = "write:quotes"
	permWriteBookings     = "write:bookings"
	permReadTenants       = "read:tenants"
	permWriteTenants      = "write:tenants"
	clientKeyUnknown      = "unknown"
)

// keyring resolves API clients by key. The extra header is compared in constant time.
type keyring struct {
	apiKeyHeader string
	extraHeader  string
	clients      map[string]config.APIClientKey
}

func newKeyring(cfg *config.APIConfig) *keyring {
	m := make(map[string]config.APIClientKey, len(cfg.Auth.APIKeys))
	for _, k := range cfg.Auth.APIKeys {
		m[k.Key] = k
	}

	apiKeyHeader := strings.ToLower(strings.TrimSpace(cfg.Auth.HeaderAPIKey))
	if apiKeyHeader == "" {
		apiKeyHeader = apiKeyHeaderDefault
	}
	extraHeader := strings.ToLower(strings.TrimSpace(cfg.Auth.HeaderExtra))
	if extraHeader == "" {
		extraHeader = apiExtraHeaderDefault
	}

	return &keyring{apiKeyHeader: apiKeyHeader, extraHeader: extraHeader, clients: m}
}

func (k *keyring) authenticate(apiKey, extra string) (config.APIClientKey, error) {
	if apiKey == "" || extra == "" {
		return config.APIClientKey{}, errMissingKey
	}
	client, ok := k.clients[apiKey]
	if !ok {
		return config.APIClientKey{}, errInvalidKey
	}
	if subtle.ConstantTimeCompare([]byte(client.Extra), []byte(extra)) != 1 {
		return config.APIClientKey{}, errInvalidExtra
	}
	return client, nil
}

// hasPermission treats an empty permission list as allow-all.
func hasPermission(client config.APIClientKey, required string) bool {
	if required == "" || len(client.Permissions) == 0 {
		return true
	}
	for _, p := range client.Permissions {
		if strings.TrimSpace(p) == required {
			return true
		}
	}
	return false
}

// allowsTenant treats an empty tenant list as all tenants.
func allowsTenant(client config.APIClientKey, tenant string) bool {
	if len(client.Tenants) == 0 {
		return true
	}
	for _, t := range client.Tenants {
		if strings.TrimSpace(t) == tenant {
			return true
		}
	}
	return false
}

type clientContextKey struct{}

func withClient(ctx context.Context, client config.APIClientKey) context.Context {
	return context.WithValue(ctx, clientContextKey{}, client)
}

func clientFrom(ctx context.Context) (config.APIClientKey, bool) {
	client, ok := ctx.Value(clientContextKey{}).(config.APIClientKey)
	return client, ok
}

// authorize checks the authenticated client, if any, against a permission and
// a tenant. Requests served with auth disabled carry no client and pass.
func authorize(ctx context.Context, permission, tenant string) error {
	client, ok := clientFrom(ctx)
	if !ok {
		return nil
	}
	if !hasPermission(client, permission) {
		return errPermissionDenied
	}
	if tenant != "" && !allowsTenant(client, tenant) {
		return errTenantDenied
	}
	return nil
}

type AuthInterceptor struct {
	cfg *config.APIConfig

	keys    *keyring
	limiter *RateLimiter
}

func NewAuthInterceptor(cfg *config.APIConfig, limiter *RateLimiter) *AuthInterceptor {
	if limiter == nil {
		limiter = NewRateLimiter(cfg)
	}
	return &AuthInterceptor{
		cfg:     cfg,
		keys:    newKeyring(cfg),
		limiter: limiter,
	}
}

func (a *AuthInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !a.cfg.Enabled {
			return handler(ctx, req)
		}

		if a.cfg.Auth.Enabled {
			var err error
			ctx, err = a.checkAuth(ctx, info.FullMethod)
			if err != nil {
				return nil, err
			}
		}
		if !a.limiter.allow(a.clientKey(ctx)) {
			return nil, status.Error(codes.ResourceExhausted, "rate limit exceeded")
		}

		return handler(ctx, req)
	}
}

func (a *AuthInterceptor) checkAuth(ctx context.Context, fullMethod string) (context.Context, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ctx, status.Error(codes.Unauthenticated, "missing metadata")
	}

	client, err := a.keys.authenticate(first(md.Get(a.keys.apiKeyHeader)), first(md.Get(a.keys.extraHeader)))
	if err != nil {
		return ctx, status.Error(codes.Unauthenticated, err.Error())
	}
	if !hasPermission(client, requiredPermission(fullMethod)) {
		return ctx, status.Error(codes.PermissionDenied, errPermissionDenied.Error())
	}
	return withClient(ctx, client), nil
}

func requiredPermission(fullMethod string) string {
	switch fullMethod {
	case methodGetAvailability, methodListServices:
		return permReadAvailability
	default:
		return ""
	}
}

func (a *AuthInterceptor) clientKey(ctx context.Context) string {
	md, _ := metadata.FromIncomingContext(ctx)
	if apiKey := first(md.Get(a.keys.apiKeyHeader)); apiKey != "" {
		return apiKey
	}

	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return clientKeyUnknown
}

func first(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return strings.TrimSpace(vals[0])
}

func LoggingUnaryInterceptor(logger *zerolog.Logger) grpc.UnaryServerInterceptor {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "grpc").Logger()
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		requestID := requestIDFromMetadata(ctx)
		_ = grpc.SetHeader(ctx, metadata.Pairs(requestIDMetadataKey, requestID))

		start := time.Now()
		resp, err := handler(ctx, req)
		dur := time.Since(start)

		code := status.Code(err)

		remote := clientKeyUnknown
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			remote = p.Addr.String()
		}

		event := base.Info()
		if code == codes.Internal || code == codes.Unknown {
			event = base.Error().Err(err)
		}
		event.
			Str("request_id", requestID).
			Str("method", info.FullMethod).
			Str("remote", remote).
			Str("code", code.String()).
			Dur("duration", dur).
			Msg("grpc request")

		return resp, err
	}
}

const requestIDMetadataKey = "x-request-id"

func requestIDFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if ok {
		if vals := md.Get(requestIDMetadataKey); len(vals) > 0 {
			if id := strings.TrimSpace(vals[0]); id != "" {
				return id
			}
		}
	}
	return uuid.NewString()
}
