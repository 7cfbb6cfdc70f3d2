package handler

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/wire"
)

var errUnauthorized = &requestError{status: http.StatusUnauthorized, msg: "unauthorized"}

// SecurityHandler authenticates admin requests via HMAC-SHA256 hashed API
// keys passed in the api_key header.
type SecurityHandler struct {
	apikeys auth.Repository
	pepper  []byte
}

// NewSecurityHandler creates a SecurityHandler with the given API key
// repository and HMAC pepper.
func NewSecurityHandler(apikeys auth.Repository, pepper []byte) *SecurityHandler {
	return &SecurityHandler{
		apikeys: apikeys,
		pepper:  pepper,
	}
}

// HandleAPIKey authenticates key by computing its HMAC, looking it up in
// the repository and comparing the stored hash in constant time.
func (s *SecurityHandler) HandleAPIKey(ctx context.Context, key string) (*auth.APIKeyInfo, error) {
	if key == "" {
		return nil, errors.New("api key missing")
	}
	hexHash := auth.HashKey(s.pepper, key)

	info, err := s.apikeys.FindByHash(ctx, hexHash)
	if err != nil {
		return nil, errors.Wrap(err, "find api key")
	}

	hash, _ := hex.DecodeString(hexHash)
	storedBytes, err := hex.DecodeString(info.KeyHash)
	if err != nil {
		return nil, errors.Wrap(err, "decode stored hash")
	}
	if subtle.ConstantTimeCompare(hash, storedBytes) != 1 {
		return nil, errors.New("api key hash mismatch")
	}
	return info, nil
}

// Require returns a middleware admitting only requests whose key grants
// scope.
func (s *SecurityHandler) Require(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			info, err := s.HandleAPIKey(ctx, r.Header.Get(wire.APIKeyHeader))
			if err != nil {
				zctx.From(ctx).Debug("API key rejected", zap.Error(err))
				writeJSON(w, http.StatusUnauthorized, wire.EncodeError(mapError(errUnauthorized)))
				return
			}
			if !info.Allows(scope) {
				zctx.From(ctx).Info("API key lacks scope",
					zap.String("key", info.Name),
					zap.String("scope", scope),
				)
				writeJSON(w, http.StatusForbidden, wire.EncodeError(mapError(errForbidden)))
				return
			}
			ctx = zctx.With(ctx, zap.String("api_key", info.Name))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
