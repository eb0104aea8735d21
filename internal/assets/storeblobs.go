package assets

import (
	"context"
	"errors"
	"fmt"

	"caringcms/api/internal/store"
)

// StoreBlobs keeps assets inside the content store itself, one revision per
// upload. A fresh path is created without a token; when the path already
// exists, the current token is fetched first and the write becomes an
// overwrite.
type StoreBlobs struct {
	store store.Store
}

func NewStoreBlobs(s store.Store) *StoreBlobs {
	return &StoreBlobs{store: s}
}

func (b *StoreBlobs) Put(ctx context.Context, path string, data []byte, contentType, message string) error {
	token := ""
	existing, err := b.store.Read(ctx, path)
	switch {
	case err == nil:
		token = existing.Token
	case errors.Is(err, store.ErrNotFound):
		// new asset
	default:
		return err
	}

	if _, err := b.store.Write(ctx, path, data, token, message); err != nil {
		return fmt.Errorf("store asset %s: %w", path, err)
	}
	return nil
}
