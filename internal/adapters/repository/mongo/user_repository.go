// Package mongo は MongoDB を利用したユーザーストアです。
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/ogurasousui/codex-user-admin/internal/core/user"
)

type userDocument struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	Email     string        `bson:"email"`
	Name      string        `bson:"name"`
	Role      string        `bson:"role"`
	Status    string        `bson:"status"`
	CreatedAt time.Time     `bson:"created_at"`
	UpdatedAt time.Time     `bson:"updated_at"`
}

var _ user.Repository = (*UserRepository)(nil)

// UserRepository は MongoDB を利用したユーザー永続化の実装です。
type UserRepository struct {
	collection *mongo.Collection
	logger     *slog.Logger
}

// Option は UserRepository の設定を変更します。
type Option func(*UserRepository)

// WithLogger はロガーを設定します。
func WithLogger(logger *slog.Logger) Option {
	return func(r *UserRepository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewUserRepository は UserRepository を生成します。
func NewUserRepository(collection *mongo.Collection, opts ...Option) *UserRepository {
	r := &UserRepository{
		collection: collection,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Insert はユーザーを作成します。ID が空の場合は ObjectID を採番します。
func (r *UserRepository) Insert(ctx context.Context, u *user.User) (*user.User, error) {
	doc := toDocument(u)
	if u.ID == "" {
		doc.ID = bson.NewObjectID()
	} else {
		oid, err := bson.ObjectIDFromHex(u.ID)
		if err != nil {
			return nil, user.ErrInvalidID
		}
		doc.ID = oid
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return nil, translateMongoError(err)
	}

	return fromDocument(doc), nil
}

// UpdateByID は可変フィールドを更新します。
func (r *UserRepository) UpdateByID(ctx context.Context, u *user.User) (*user.User, error) {
	oid, err := bson.ObjectIDFromHex(u.ID)
	if err != nil {
		return nil, user.ErrUserNotFound
	}

	update := bson.M{"$set": bson.M{
		"email":      u.Email,
		"name":       u.Name,
		"role":       string(u.Role),
		"status":     string(u.Status),
		"updated_at": u.UpdatedAt,
	}}

	var doc userDocument
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return nil, translateMongoError(err)
	}

	return fromDocument(doc), nil
}

// DeleteByID はユーザーを削除します。
func (r *UserRepository) DeleteByID(ctx context.Context, id string) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return user.ErrUserNotFound
	}

	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return translateMongoError(err)
	}
	if res.DeletedCount == 0 {
		return user.ErrUserNotFound
	}
	return nil
}

// FindByID は ID でユーザーを取得します。
func (r *UserRepository) FindByID(ctx context.Context, id string) (*user.User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, user.ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

// FindByEmail はメールアドレスでユーザーを取得します。
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*user.User, error) {
	var doc userDocument
	if err := r.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			r.logger.ErrorContext(ctx, "failed to find user", slog.String("error", err.Error()))
		}
		return nil, translateMongoError(err)
	}
	return fromDocument(doc), nil
}

// Find は条件に一致するユーザーを created_at 降順で取得します。
func (r *UserRepository) Find(ctx context.Context, filter user.ListFilter, page user.Page) ([]*user.User, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(page.Offset)).
		SetLimit(int64(page.Limit))

	cursor, err := r.collection.Find(ctx, buildFilter(filter), opts)
	if err != nil {
		return nil, translateMongoError(err)
	}
	defer cursor.Close(ctx)

	users := make([]*user.User, 0, page.Limit)
	for cursor.Next(ctx) {
		var doc userDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongo: decode user: %w", err)
		}
		users = append(users, fromDocument(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("mongo: cursor: %w", err)
	}

	return users, nil
}

// Count は条件に一致するユーザー数を返します。
func (r *UserRepository) Count(ctx context.Context, filter user.ListFilter) (int, error) {
	n, err := r.collection.CountDocuments(ctx, buildFilter(filter))
	if err != nil {
		return 0, translateMongoError(err)
	}
	return int(n), nil
}

// buildFilter は ListFilter を MongoDB のクエリに変換します。
// メールアドレスは部分一致で、正規表現のメタ文字はエスケープします。
func buildFilter(filter user.ListFilter) bson.M {
	q := bson.M{}

	if filter.Email != "" {
		q["email"] = bson.M{"$regex": regexp.QuoteMeta(filter.Email), "$options": "i"}
	}
	if filter.Role != nil {
		q["role"] = string(*filter.Role)
	}
	if filter.Status != nil {
		q["status"] = string(*filter.Status)
	}
	if filter.Created != nil {
		q["created_at"] = bson.M{"$gte": filter.Created.From, "$lte": filter.Created.To}
	}

	return q
}

func toDocument(u *user.User) userDocument {
	return userDocument{
		Email:     u.Email,
		Name:      u.Name,
		Role:      string(u.Role),
		Status:    string(u.Status),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func fromDocument(doc userDocument) *user.User {
	return &user.User{
		ID:        doc.ID.Hex(),
		Email:     doc.Email,
		Name:      doc.Name,
		Role:      user.Role(doc.Role),
		Status:    user.Status(doc.Status),
		CreatedAt: doc.CreatedAt.UTC(),
		UpdatedAt: doc.UpdatedAt.UTC(),
	}
}

func translateMongoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return user.ErrUserNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return user.ErrEmailAlreadyExists
	}
	return fmt.Errorf("mongo: users: %w", err)
}
