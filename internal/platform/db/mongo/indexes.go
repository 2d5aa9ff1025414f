package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// CollectionUsers はユーザーのコレクション名です。
const CollectionUsers = "users"

// IndexDefinition は作成するインデックスを表します。
type IndexDefinition struct {
	Collection string
	Name       string
	Keys       bson.D
	Unique     bool
}

// UserIndexes は users コレクションのインデックス定義を返します。
func UserIndexes() []IndexDefinition {
	return []IndexDefinition{
		{
			// メールアドレスの一意制約
			Collection: CollectionUsers,
			Name:       "idx_users_email_unique",
			Keys:       bson.D{{Key: "email", Value: 1}},
			Unique:     true,
		},
		{
			// 一覧の既定ソート
			Collection: CollectionUsers,
			Name:       "idx_users_created_at",
			Keys:       bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}},
		},
		{
			Collection: CollectionUsers,
			Name:       "idx_users_role_status",
			Keys:       bson.D{{Key: "role", Value: 1}, {Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
		},
	}
}

// EnsureIndexes はインデックスを作成します。何度呼び出しても安全です。
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for _, idx := range UserIndexes() {
		opts := options.Index().SetName(idx.Name)
		if idx.Unique {
			opts.SetUnique(true)
		}

		model := mongo.IndexModel{Keys: idx.Keys, Options: opts}
		if _, err := db.Collection(idx.Collection).Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("mongo: create index %s on %s: %w", idx.Name, idx.Collection, err)
		}
	}
	return nil
}
