package memory

import (
	"context"

	"github.com/xenking/storefront/internal/domain/auth"
)

var _ auth.Repository = (*APIKeyRepository)(nil)

// APIKeyRepository implements auth.Repository on a Store.
type APIKeyRepository struct {
	s *Store
}

func (r *APIKeyRepository) FindByHash(ctx context.Context, hash string) (*auth.APIKeyInfo, error) {
	defer r.s.lock(ctx)()
	k, ok := r.s.apiKeys[hash]
	if !ok {
		return nil, auth.ErrKeyNotFound
	}
	return &k, nil
}

// Upsert stores an API key under its hash.
func (r *APIKeyRepository) Upsert(ctx context.Context, info auth.APIKeyInfo) error {
	defer r.s.lock(ctx)()
	r.s.apiKeys[info.KeyHash] = info
	return nil
}
