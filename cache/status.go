package cache

import (
	"context"
	"fmt"
	"time"

	"mediaUploader/database"
	"mediaUploader/models"
)

const (
	conversionKeyPrefix = "asset:conversion:"
	conversionTTL       = 10 * time.Minute
)

// ConversionCache keeps the latest conversion status per asset in redis so
// status polls don't hit postgres for in-flight conversions.
type ConversionCache struct {
	cache *database.Cache
}

func NewConversionCache(cache *database.Cache) *ConversionCache {
	return &ConversionCache{cache: cache}
}

func (cc *ConversionCache) Get(ctx context.Context, assetID string) (models.ConversionStatus, error) {
	key := fmt.Sprintf("%s%s", conversionKeyPrefix, assetID)

	data, err := cc.cache.Get(ctx, key)
	if err != nil {
		return "", err
	}
	return models.ConversionStatus(data), nil
}

func (cc *ConversionCache) Set(ctx context.Context, assetID string, status models.ConversionStatus) error {
	key := fmt.Sprintf("%s%s", conversionKeyPrefix, assetID)
	return cc.cache.Set(ctx, key, string(status), conversionTTL)
}

func (cc *ConversionCache) Delete(ctx context.Context, assetID string) error {
	key := fmt.Sprintf("%s%s", conversionKeyPrefix, assetID)
	return cc.cache.Del(ctx, key)
}
