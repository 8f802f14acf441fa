package mongodb

import (
	"context"
	"fmt"

	"staff_server/core/domain"
	"staff_server/core/port/out"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionUsers = "users"

// UserAdapter implements out.UserRepository using MongoDB. User ids are
// stored as plain strings in _id.
type UserAdapter struct {
	collection *mongo.Collection
}

var _ out.UserRepository = (*UserAdapter)(nil)

func NewUserAdapter(db *mongo.Database) *UserAdapter {
	return &UserAdapter{collection: db.Collection(collectionUsers)}
}

func (a *UserAdapter) EnsureIndexes(ctx context.Context) error {
	_, err := a.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetName("uniq_user_email").SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}
	return nil
}

type userDocument struct {
	ID    string `bson:"_id"`
	Name  string `bson:"name"`
	Email string `bson:"email"`
	Role  string `bson:"role"`
}

func (d *userDocument) toDomain() *domain.User {
	return &domain.User{ID: d.ID, Name: d.Name, Email: d.Email, Role: domain.Role(d.Role)}
}

func (a *UserAdapter) FindByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error) {
	users := make(map[string]*domain.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	cursor, err := a.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to find users: %w", err)
	}
	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	for i := range docs {
		users[docs[i].ID] = docs[i].toDomain()
	}
	return users, nil
}

func (a *UserAdapter) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var doc userDocument
	if err := a.collection.FindOne(ctx, bson.M{"email": email}).Decode(&doc); err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return doc.toDomain(), nil
}

func (a *UserAdapter) InsertMany(ctx context.Context, users []*domain.User) error {
	if len(users) == 0 {
		return nil
	}
	docs := make([]any, len(users))
	for i, u := range users {
		docs[i] = userDocument{ID: u.ID, Name: u.Name, Email: u.Email, Role: string(u.Role)}
	}
	if _, err := a.collection.InsertMany(ctx, docs); err != nil {
		return mapWriteError(fmt.Errorf("failed to insert users: %w", err))
	}
	return nil
}

func (a *UserAdapter) DeleteAll(ctx context.Context) (int64, error) {
	res, err := a.collection.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to delete users: %w", err)
	}
	return res.DeletedCount, nil
}
