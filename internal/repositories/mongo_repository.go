package repositories

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"inventory/internal/apperr"
	"inventory/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	productsCollection  = "products"
	customersCollection = "customers"
	purchasesCollection = "purchases"
	usersCollection     = "users"
)

// NewMongoStore builds a Store on a MongoDB database. Records are stored as
// documents keyed by their string ID.
func NewMongoStore(client *mongo.Client, db *mongo.Database) *Store {
	return &Store{
		Products:  &MongoProductRepository{coll: db.Collection(productsCollection), purchases: db.Collection(purchasesCollection)},
		Customers: &MongoCustomerRepository{coll: db.Collection(customersCollection), purchases: db.Collection(purchasesCollection)},
		Purchases: &MongoPurchaseRepository{coll: db.Collection(purchasesCollection)},
		Users:     &MongoUserRepository{coll: db.Collection(usersCollection)},
		Ledger:    NewMongoStockLedger(db),
		closeFn:   client.Disconnect,
	}
}

// EnsureMongoIndexes creates the unique and lookup indexes.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		productsCollection: {
			{Keys: bson.D{{Key: "sku", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
			{Keys: bson.D{{Key: "category", Value: 1}}},
		},
		purchasesCollection: {
			{Keys: bson.D{{Key: "productId", Value: 1}}},
			{Keys: bson.D{{Key: "customerId", Value: 1}}},
		},
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "confirmationToken", Value: 1}}, Options: options.Index().SetSparse(true)},
		},
	}
	for name, specs := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, specs); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}

var insertionOrder = options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})

func mongoFindAll[T any](ctx context.Context, coll *mongo.Collection, kind string) ([]T, error) {
	cur, err := coll.Find(ctx, bson.M{}, insertionOrder)
	if err != nil {
		return nil, fmt.Errorf("failed to get all %s: %w", kind, err)
	}
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", kind, err)
	}
	return out, nil
}

func mongoFindOne[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, kind, id string) (*T, error) {
	var out T
	if err := coll.FindOne(ctx, filter).Decode(&out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound(kind, id)
		}
		return nil, fmt.Errorf("failed to get %s %s: %w", kind, id, err)
	}
	return &out, nil
}

func mongoInsert(ctx context.Context, coll *mongo.Collection, doc any, kind string) error {
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("failed to create %s: %w", kind, apperr.ErrConflict)
		}
		return fmt.Errorf("failed to create %s: %w", kind, err)
	}
	return nil
}

// mongoReplace replaces a document, keeping its stored createdAt.
func mongoReplace(ctx context.Context, coll *mongo.Collection, id string, doc any, kind string) error {
	res, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("failed to update %s: %w", kind, apperr.ErrConflict)
		}
		return fmt.Errorf("failed to update %s: %w", kind, err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound(kind, id)
	}
	return nil
}

func mongoDeleteUnreferenced(ctx context.Context, coll, purchases *mongo.Collection, kind, field, id string) error {
	refs := func(ctx context.Context) (int64, error) {
		n, err := purchases.CountDocuments(ctx, bson.M{field: id})
		if err != nil {
			return 0, fmt.Errorf("failed to count purchases of %s %s: %w", kind, id, err)
		}
		return n, nil
	}
	n, err := refs(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return referencedErr(kind, id, n)
	}

	var doc bson.Raw
	if err := coll.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return apperr.NotFound(kind, id)
		}
		return fmt.Errorf("failed to delete %s: %w", kind, err)
	}

	// The restore must run even if the caller gives up.
	ctx = context.WithoutCancel(ctx)
	n, err = refs(ctx)
	if err == nil && n == 0 {
		return nil
	}
	if _, insertErr := coll.InsertOne(ctx, doc); insertErr != nil {
		log.Printf("Failed to restore %s %s after a concurrent purchase: %v", kind, id, insertErr)
		return errors.Join(err, insertErr)
	}
	if err != nil {
		return err
	}
	return referencedErr(kind, id, n)
}

// createdAtOf reads the stored creation time so replacements keep it.
func createdAtOf(ctx context.Context, coll *mongo.Collection, id, kind string) (time.Time, error) {
	var doc struct {
		CreatedAt time.Time `bson:"createdAt"`
	}
	opts := options.FindOne().SetProjection(bson.M{"createdAt": 1})
	if err := coll.FindOne(ctx, bson.M{"_id": id}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return time.Time{}, apperr.NotFound(kind, id)
		}
		return time.Time{}, fmt.Errorf("failed to get %s %s: %w", kind, id, err)
	}
	return doc.CreatedAt, nil
}

// MongoProductRepository is a MongoDB implementation of ProductRepository.
type MongoProductRepository struct {
	coll      *mongo.Collection
	purchases *mongo.Collection
}

func (r *MongoProductRepository) GetAll(ctx context.Context) ([]models.Product, error) {
	return mongoFindAll[models.Product](ctx, r.coll, "products")
}

func (r *MongoProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	return mongoFindOne[models.Product](ctx, r.coll, bson.M{"_id": id}, "product", id)
}

func (r *MongoProductRepository) GetBySKU(ctx context.Context, sku string) (*models.Product, error) {
	return mongoFindOne[models.Product](ctx, r.coll, bson.M{"sku": sku}, "product with SKU", sku)
}

func (r *MongoProductRepository) Create(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now
	return mongoInsert(ctx, r.coll, product, "product")
}

// Update $sets the fields present in in. Fields in is silent about, stock
// included, are left to whatever the ledger last wrote.
func (r *MongoProductRepository) Update(ctx context.Context, id string, in models.ProductInput) (*models.Product, error) {
	var values models.Product
	in.ApplyTo(&values)
	doc, err := toBSON(values)
	if err != nil {
		return nil, fmt.Errorf("failed to encode product %s: %w", id, err)
	}
	set := bson.M{"updatedAt": time.Now().UTC()}
	unset := bson.M{}
	for _, field := range in.Fields() {
		if v, ok := doc[field]; ok {
			set[field] = v
		} else {
			// omitempty fields such as a cleared sku
			unset[field] = ""
		}
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	var product models.Product
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&product); err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, apperr.NotFound("product", id)
		case mongo.IsDuplicateKeyError(err):
			return nil, fmt.Errorf("failed to update product: %w", apperr.ErrConflict)
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return &product, nil
}

func toBSON(v any) (bson.M, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Delete removes a product no purchase references. Without transactions
// the reference count is taken again after the delete; a purchase found then
// puts the product back.
func (r *MongoProductRepository) Delete(ctx context.Context, id string) error {
	return mongoDeleteUnreferenced(ctx, r.coll, r.purchases, "product", "productId", id)
}

// MongoCustomerRepository is a MongoDB implementation of CustomerRepository.
type MongoCustomerRepository struct {
	coll      *mongo.Collection
	purchases *mongo.Collection
}

func (r *MongoCustomerRepository) GetAll(ctx context.Context) ([]models.Customer, error) {
	return mongoFindAll[models.Customer](ctx, r.coll, "customers")
}

func (r *MongoCustomerRepository) GetByID(ctx context.Context, id string) (*models.Customer, error) {
	return mongoFindOne[models.Customer](ctx, r.coll, bson.M{"_id": id}, "customer", id)
}

func (r *MongoCustomerRepository) Create(ctx context.Context, customer *models.Customer) error {
	if customer.ID == "" {
		customer.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	customer.CreatedAt = now
	customer.UpdatedAt = now
	return mongoInsert(ctx, r.coll, customer, "customer")
}

func (r *MongoCustomerRepository) Update(ctx context.Context, customer *models.Customer) error {
	createdAt, err := createdAtOf(ctx, r.coll, customer.ID, "customer")
	if err != nil {
		return err
	}
	customer.CreatedAt = createdAt
	customer.UpdatedAt = time.Now().UTC()
	return mongoReplace(ctx, r.coll, customer.ID, customer, "customer")
}

func (r *MongoCustomerRepository) Delete(ctx context.Context, id string) error {
	return mongoDeleteUnreferenced(ctx, r.coll, r.purchases, "customer", "customerId", id)
}

// MongoPurchaseRepository is the read side of purchases on MongoDB.
type MongoPurchaseRepository struct {
	coll *mongo.Collection
}

func (r *MongoPurchaseRepository) GetAll(ctx context.Context) ([]models.Purchase, error) {
	return mongoFindAll[models.Purchase](ctx, r.coll, "purchases")
}

func (r *MongoPurchaseRepository) GetByID(ctx context.Context, id string) (*models.Purchase, error) {
	return mongoFindOne[models.Purchase](ctx, r.coll, bson.M{"_id": id}, "purchase", id)
}

// MongoUserRepository is a MongoDB implementation of UserRepository.
type MongoUserRepository struct {
	coll *mongo.Collection
}

func (r *MongoUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.Email = strings.ToLower(user.Email)
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	return mongoInsert(ctx, r.coll, user, "user")
}

func (r *MongoUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(email)
	return mongoFindOne[models.User](ctx, r.coll, bson.M{"email": email}, "user with email", email)
}

func (r *MongoUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return mongoFindOne[models.User](ctx, r.coll, bson.M{"_id": id}, "user", id)
}

func (r *MongoUserRepository) GetByConfirmationToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, apperr.NotFound("user with confirmation token", token)
	}
	return mongoFindOne[models.User](ctx, r.coll, bson.M{"confirmationToken": token}, "user with confirmation token", token)
}

func (r *MongoUserRepository) Update(ctx context.Context, user *models.User) error {
	createdAt, err := createdAtOf(ctx, r.coll, user.ID, "user")
	if err != nil {
		return err
	}
	user.CreatedAt = createdAt
	user.UpdatedAt = time.Now().UTC()
	return mongoReplace(ctx, r.coll, user.ID, user, "user")
}
