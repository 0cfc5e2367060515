package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sirosfoundation/go-xsf/internal/domain"
	"github.com/sirosfoundation/go-xsf/internal/storage"
)

// PersonStore implements MongoDB people storage
type PersonStore struct {
	collection *mongo.Collection
}

func (s *PersonStore) Create(ctx context.Context, person *domain.Person) error {
	if person.ID == "" {
		return storage.ErrInvalidInput
	}

	person.CreatedAt = time.Now()
	person.UpdatedAt = time.Now()

	_, err := s.collection.InsertOne(ctx, person)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create person: %w", err)
	}
	return nil
}

func (s *PersonStore) GetByID(ctx context.Context, id string) (*domain.Person, error) {
	var person domain.Person
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&person)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get person: %w", err)
	}
	return &person, nil
}

func (s *PersonStore) GetAll(ctx context.Context) ([]*domain.Person, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list people: %w", err)
	}
	defer cursor.Close(ctx)

	people := make([]*domain.Person, 0)
	if err := cursor.All(ctx, &people); err != nil {
		return nil, fmt.Errorf("failed to decode people: %w", err)
	}
	return people, nil
}

func (s *PersonStore) Update(ctx context.Context, person *domain.Person) error {
	person.UpdatedAt = time.Now()
	update := bson.M{
		"$set": bson.M{
			"first_name": person.FirstName,
			"last_name":  person.LastName,
			"location":   person.Location,
			"updated_at": person.UpdatedAt,
		},
	}

	result, err := s.collection.UpdateOne(ctx, bson.M{"_id": person.ID}, update)
	if err != nil {
		return fmt.Errorf("failed to update person: %w", err)
	}
	if result.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *PersonStore) Delete(ctx context.Context, id string) error {
	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete person: %w", err)
	}
	if result.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}
