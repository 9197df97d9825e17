package mongo

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"Koro/backend/go/internal/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultDatabase   = "koro"
	defaultCollection = "kv"
	connectTimeout    = 10 * time.Second
)

var (
	client  *mongo.Client
	once    sync.Once
	initErr error
)

// GetClient 使用单例模式初始化并返回一个 MongoDB 客户端实例。
func GetClient(cfg *config.MongoConfig) (*mongo.Client, error) {
	once.Do(func() {
		opts := options.Client().
			ApplyURI(cfg.Address).
			SetAppName("koro_service").
			SetServerSelectionTimeout(connectTimeout)
		if cfg.Username != "" && cfg.Password != "" {
			opts.SetAuth(options.Credential{
				Username: cfg.Username,
				Password: cfg.Password,
			})
		}

		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()

		c, err := mongo.Connect(ctx, opts)
		if err != nil {
			initErr = fmt.Errorf("无法连接到 MongoDB: %w", err)
			return
		}
		if err = c.Ping(ctx, nil); err != nil {
			_ = c.Disconnect(context.Background())
			initErr = fmt.Errorf("无法 Ping MongoDB: %w", err)
			return
		}

		log.Println("成功连接到 MongoDB")
		client = c
	})

	return client, initErr
}

// KVCollection 返回键值存储使用的集合，名称未配置时使用 koro.kv。
// 首次使用时为 updated_at 建索引，便于按最近写入清理过期的用户数据。
func KVCollection(ctx context.Context, cfg *config.MongoConfig) (*mongo.Collection, error) {
	c, err := GetClient(cfg)
	if err != nil {
		return nil, err
	}
	db, name := CollectionName(cfg)
	coll := c.Database(db).Collection(name)

	idx := mongo.IndexModel{
		Keys:    bson.D{{Key: "updated_at", Value: -1}},
		Options: options.Index().SetName("updated_at_desc"),
	}
	if _, err := coll.Indexes().CreateOne(ctx, idx); err != nil {
		return nil, fmt.Errorf("创建 %s.%s 索引失败: %w", db, name, err)
	}
	return coll, nil
}

// CollectionName 返回配置的数据库与集合名称，空值使用默认值。
func CollectionName(cfg *config.MongoConfig) (database, collection string) {
	database, collection = cfg.Database, cfg.Collection
	if database == "" {
		database = defaultDatabase
	}
	if collection == "" {
		collection = defaultCollection
	}
	return database, collection
}

// Close 安全地断开单例的 MongoDB 客户端连接。
func Close(ctx context.Context) error {
	if client != nil {
		return client.Disconnect(ctx)
	}
	return nil
}
