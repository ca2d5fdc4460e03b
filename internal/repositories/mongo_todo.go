package repositories

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"todo-notes/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// documentValidationFailure is the server error code for $jsonSchema
// validator rejections.
const documentValidationFailure = 121

type todoDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Date        time.Time          `bson:"date"`
}

func (d todoDocument) toModel() models.Todo {
	return models.Todo{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Date:        d.Date.UTC(),
	}
}

// TodoValidator is the $jsonSchema collection validator mirroring the
// request schema: a non-empty string title and a string description.
func TodoValidator() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"title", "date"},
			"properties": bson.M{
				"title": bson.M{
					"bsonType":  "string",
					"minLength": 1,
				},
				"description": bson.M{
					"bsonType": "string",
				},
				"date": bson.M{
					"bsonType": "date",
				},
			},
		},
	}
}

type MongoTodoRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoTodoRepository(coll *mongo.Collection) *MongoTodoRepository {
	return &MongoTodoRepository{coll: coll, now: time.Now}
}

// EnsureSchema creates the collection with its validator, or attaches the
// validator to an existing collection, and creates the listing index.
func (r *MongoTodoRepository) EnsureSchema(ctx context.Context) error {
	db := r.coll.Database()
	name := r.coll.Name()

	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	if len(names) == 0 {
		opts := options.CreateCollection().SetValidator(TodoValidator())
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed to create collection %s: %w", name, err)
		}
	} else {
		cmd := bson.D{
			{Key: "collMod", Value: name},
			{Key: "validator", Value: TodoValidator()},
		}
		if err := db.RunCommand(ctx, cmd).Err(); err != nil {
			return fmt.Errorf("failed to update validator on %s: %w", name, err)
		}
	}

	_, err = r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}},
		Options: options.Index().SetName("date_desc"),
	})
	if err != nil {
		return fmt.Errorf("failed to create date index: %w", err)
	}
	return nil
}

func searchFilter(search string) bson.M {
	filter := bson.M{}
	if search != "" {
		filter["title"] = bson.M{
			"$regex":   regexp.QuoteMeta(search),
			"$options": "i",
		}
	}
	return filter
}

func (r *MongoTodoRepository) List(ctx context.Context, q models.ListQuery) ([]models.Todo, int64, error) {
	filter := searchFilter(q.Search)

	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(q.Skip())).
		SetLimit(int64(q.Limit))

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list todos: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []todoDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("failed to decode todos: %w", err)
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count todos: %w", err)
	}

	todos := make([]models.Todo, 0, len(docs))
	for _, doc := range docs {
		todos = append(todos, doc.toModel())
	}
	return todos, total, nil
}

func (r *MongoTodoRepository) Get(ctx context.Context, id string) (models.Todo, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.Todo{}, ErrNotFound
	}

	var doc todoDocument
	err = r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Todo{}, ErrNotFound
	}
	if err != nil {
		return models.Todo{}, fmt.Errorf("failed to get todo: %w", err)
	}
	return doc.toModel(), nil
}

func (r *MongoTodoRepository) Create(ctx context.Context, input models.TodoInput) (models.Todo, error) {
	doc := todoDocument{
		ID:          primitive.NewObjectID(),
		Title:       input.Title,
		Description: input.Description,
		Date:        r.now().UTC().Truncate(time.Millisecond),
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return models.Todo{}, translateMongoError("create", err)
	}
	return doc.toModel(), nil
}

func (r *MongoTodoRepository) Update(ctx context.Context, id string, patch models.TodoPatch) (models.Todo, error) {
	if patch.IsEmpty() {
		return r.Get(ctx, id)
	}

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.Todo{}, ErrNotFound
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc todoDocument
	err = r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M(patch.Fields())},
		opts,
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Todo{}, ErrNotFound
	}
	if err != nil {
		return models.Todo{}, translateMongoError("update", err)
	}
	return doc.toModel(), nil
}

func (r *MongoTodoRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete todo: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoTodoRepository) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return r.coll.Database().Client().Ping(ctx, nil)
}

func translateMongoError(op string, err error) error {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == documentValidationFailure {
				return fmt.Errorf("%w: %s", ErrValidation, e.Message)
			}
		}
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == documentValidationFailure {
		return fmt.Errorf("%w: %s", ErrValidation, ce.Message)
	}

	return fmt.Errorf("failed to %s todo: %w", op, err)
}
