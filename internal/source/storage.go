package source

import (
	"context"
	"fmt"
	"image"
	"visual-comparator/internal/storage"
)

// StorageProvider reads images from local paths or storage URLs.
type StorageProvider struct {
	storage storage.Storage
}

func NewStorageProvider(s storage.Storage) *StorageProvider {
	return &StorageProvider{
		storage: s,
	}
}

func (p *StorageProvider) Image(ctx context.Context, ref string) (image.Image, error) {
	data, err := p.storage.Get(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", ref, err)
	}

	img, _, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ref, err)
	}
	return img, nil
}
