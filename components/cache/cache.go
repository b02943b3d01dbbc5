// Package cache provides a benthos cache stored in an arangodb collection.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/benthosdev/benthos/v4/public/service"
	"github.com/shono-io/arangosh/components/arangodb"
	"github.com/shono-io/arangosh/core"
	"github.com/shono-io/arangosh/session"
	"github.com/sirupsen/logrus"
)

func init() {
	err := service.RegisterCache("arangodb", cacheConfig(), newCache)
	if err != nil {
		logrus.Panicf("failed to register cache: %v", err)
	}
}

func cacheConfig() *service.ConfigSpec {
	return service.NewConfigSpec().
		Summary("Stores cache entries as documents of an arangodb collection.").
		Field(service.NewStringField("collection").Description("The collection to use for storing cache entries.")).
		Fields(arangodb.ConfigFields()...)
}

func newCache(conf *service.ParsedConfig, mgr *service.Resources) (service.Cache, error) {
	s, err := arangodb.NewSessionFromConfig(conf)
	if err != nil {
		return nil, err
	}

	col, err := conf.FieldString("collection")
	if err != nil {
		return nil, fmt.Errorf("failed to parse collection: %w", err)
	}

	return &cache{s: s, collection: col, logger: mgr.Logger()}, nil
}

type entry struct {
	Key   string `json:"_key"`
	Value string `json:"value"`
}

type cache struct {
	s          *session.Session
	collection string
	logger     *service.Logger
}

func (c *cache) ref(key string) session.DocumentRef {
	return session.Ref(core.NewHandle(c.collection, key).String())
}

func (c *cache) Get(ctx context.Context, key string) ([]byte, error) {
	doc, err := c.s.Document(ctx, c.ref(key))
	if err != nil {
		if core.IsNotFound(err) {
			return nil, service.ErrKeyNotFound
		}
		return nil, err
	}

	v, ok := doc["value"].(string)
	if !ok {
		return nil, fmt.Errorf("cache entry %q has no value", key)
	}

	return []byte(v), nil
}

func (c *cache) Set(ctx context.Context, key string, value []byte, ttl *time.Duration) error {
	c.warnTTL(ttl)

	_, err := c.s.ReplaceDocument(ctx, c.ref(key), entry{Key: key, Value: string(value)}, session.ReplaceOptions{Overwrite: true})
	if err == nil {
		return nil
	}
	if !core.HasErrorNum(err, core.ErrorNumDocumentNotFound) {
		return err
	}

	return c.insert(ctx, key, value)
}

func (c *cache) Add(ctx context.Context, key string, value []byte, ttl *time.Duration) error {
	c.warnTTL(ttl)

	err := c.insert(ctx, key, value)
	if core.HasErrorNum(err, core.ErrorNumUniqueConstraintViolated) {
		return service.ErrKeyAlreadyExists
	}

	return err
}

func (c *cache) Delete(ctx context.Context, key string) error {
	_, err := c.s.RemoveDocument(ctx, c.ref(key), session.RemoveOptions{Overwrite: true})
	return err
}

func (c *cache) Close(ctx context.Context) error {
	return nil
}

func (c *cache) insert(ctx context.Context, key string, value []byte) error {
	if !core.IsValidKey(key) {
		return fmt.Errorf("%w: %q", core.ErrMalformedHandle, key)
	}

	col, err := c.s.ResolveCollection(ctx, c.collection)
	if err != nil {
		return err
	}
	if col == nil {
		return fmt.Errorf("%w: %q", core.ErrCollectionNotFound, c.collection)
	}

	_, err = col.Insert(ctx, entry{Key: key, Value: string(value)}, false)
	return err
}

func (c *cache) warnTTL(ttl *time.Duration) {
	if ttl != nil {
		c.logger.Debugf("ignoring ttl of %v, entries in %q do not expire", *ttl, c.collection)
	}
}
