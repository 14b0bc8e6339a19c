package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shestoi/warungpos/internal/repository"
)

// StateDocument представляет документ в коллекции MongoDB
type StateDocument struct {
	Key       string    `bson:"key"`
	Data      []byte    `bson:"data"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Repository реализует StateStore используя MongoDB
type Repository struct {
	client *mongo.Client
	db     *mongo.Database
	col    *mongo.Collection
}

// NewRepository создаёт новый MongoDB StateStore
// Создаёт уникальный индекс на key при инициализации
func NewRepository(client *mongo.Client, dbName string) *Repository {
	db := client.Database(dbName)
	col := db.Collection("state")

	// Уникальный индекс гарантирует один документ на ключ
	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "key", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Создаём индекс (если уже существует - игнорируем ошибку)
	_, _ = col.Indexes().CreateOne(ctx, indexModel)

	return &Repository{
		client: client,
		db:     db,
		col:    col,
	}
}

// Load читает снапшот по ключу из MongoDB
// Возвращает ErrNotFound, если ключ отсутствует
func (r *Repository) Load(ctx context.Context, key string) ([]byte, error) {
	var doc StateDocument
	err := r.col.FindOne(ctx, bson.M{"key": key}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return doc.Data, nil
}

// Save записывает снапшот по ключу в MongoDB (upsert)
func (r *Repository) Save(ctx context.Context, key string, data []byte) error {
	update := bson.M{
		"$set": bson.M{
			"data":       data,
			"updated_at": time.Now(),
		},
	}
	opts := options.Update().SetUpsert(true)

	_, err := r.col.UpdateOne(ctx, bson.M{"key": key}, update, opts)
	return err
}
