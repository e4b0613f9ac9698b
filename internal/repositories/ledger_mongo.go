package repositories

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"inventory/internal/apperr"
	"inventory/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStockLedger keeps purchases and stock consistent without
// multi-document transactions, which need a replica set. Each decrement is a
// single conditional $inc (matching only while stock >= n). Every operation
// takes stock before it gives any back, so when a later write fails the
// compensation only ever returns units and cannot drive stock negative.
type MongoStockLedger struct {
	products  *mongo.Collection
	customers *mongo.Collection
	purchases *mongo.Collection
	now       func() time.Time
}

// NewMongoStockLedger creates a new instance of MongoStockLedger.
func NewMongoStockLedger(db *mongo.Database) *MongoStockLedger {
	return &MongoStockLedger{
		products:  db.Collection(productsCollection),
		customers: db.Collection(customersCollection),
		purchases: db.Collection(purchasesCollection),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (l *MongoStockLedger) RecordPurchase(ctx context.Context, purchase *models.Purchase) (*StockChange, error) {
	now := l.now()
	if err := l.customerExists(ctx, purchase.CustomerID); err != nil {
		return nil, err
	}
	if err := preparePurchase(purchase, now); err != nil {
		return nil, err
	}
	stock, err := l.take(ctx, purchase.ProductID, purchase.Quantity, now)
	if err != nil {
		return nil, err
	}
	if _, err := l.purchases.InsertOne(ctx, purchase); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			err = apperr.ErrConflict
		}
		return nil, l.compensate(ctx, fmt.Errorf("failed to create purchase: %w", err),
			refund{purchase.ProductID, purchase.Quantity})
	}
	return &StockChange{Purchase: *purchase, Stock: map[string]int{purchase.ProductID: stock}}, nil
}

func (l *MongoStockLedger) EditPurchase(ctx context.Context, id string, edit models.PurchaseChange) (*StockChange, error) {
	now := l.now()
	var old models.Purchase
	if err := l.purchases.FindOne(ctx, bson.M{"_id": id}).Decode(&old); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("purchase", id)
		}
		return nil, fmt.Errorf("failed to load purchase %s: %w", id, err)
	}
	updated, err := applyChange(old, edit, now)
	if err != nil {
		return nil, err
	}
	if updated.CustomerID != old.CustomerID {
		if err := l.customerExists(ctx, updated.CustomerID); err != nil {
			return nil, err
		}
	}

	// takes run first; gives only after the purchase document is written.
	var takes, gives []refund
	if updated.ProductID == old.ProductID {
		switch delta := updated.Quantity - old.Quantity; {
		case delta > 0:
			takes = append(takes, refund{old.ProductID, delta})
		case delta < 0:
			gives = append(gives, refund{old.ProductID, -delta})
		}
	} else {
		takes = append(takes, refund{updated.ProductID, updated.Quantity})
		gives = append(gives, refund{old.ProductID, old.Quantity})
	}

	stock := map[string]int{}
	var undo []refund
	for _, t := range takes {
		level, err := l.take(ctx, t.productID, t.qty, now)
		if err != nil {
			if updated.ProductID == old.ProductID {
				err = creditHeldUnits(err, old.Quantity)
			}
			return nil, l.compensate(ctx, err, undo...)
		}
		stock[t.productID] = level
		undo = append(undo, t)
	}

	res, err := l.purchases.ReplaceOne(ctx, bson.M{"_id": id}, updated)
	if err == nil && res.MatchedCount == 0 {
		err = apperr.NotFound("purchase", id)
	}
	if err != nil {
		return nil, l.compensate(ctx, fmt.Errorf("failed to update purchase %s: %w", id, err), undo...)
	}

	for _, g := range gives {
		level, found, err := l.give(ctx, g.productID, g.qty, now)
		if err != nil {
			if _, restoreErr := l.purchases.ReplaceOne(context.WithoutCancel(ctx), bson.M{"_id": id}, old); restoreErr != nil {
				log.Printf("Failed to restore purchase %s after stock restore error: %v", id, restoreErr)
				err = errors.Join(err, restoreErr)
			}
			return nil, l.compensate(ctx, err, undo...)
		}
		if found {
			stock[g.productID] = level
		}
	}

	if len(takes)+len(gives) == 0 {
		level, found, err := l.stockOf(ctx, updated.ProductID)
		if err != nil {
			return nil, err
		}
		if found {
			stock[updated.ProductID] = level
		}
	}
	return &StockChange{Purchase: updated, Stock: stock}, nil
}

// creditHeldUnits reports availability the way an edit of the same product
// sees it: the units the purchase already holds count as available.
func creditHeldUnits(err error, held int) error {
	var stockErr *apperr.InsufficientStockError
	if errors.As(err, &stockErr) {
		credited := *stockErr
		credited.Requested += held
		credited.Available += held
		return &credited
	}
	return err
}

func (l *MongoStockLedger) DeletePurchase(ctx context.Context, id string) (*StockChange, error) {
	var purchase models.Purchase
	if err := l.purchases.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&purchase); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("purchase", id)
		}
		return nil, fmt.Errorf("failed to delete purchase %s: %w", id, err)
	}
	stock := map[string]int{}
	restored, found, err := l.give(ctx, purchase.ProductID, purchase.Quantity, l.now())
	if err != nil {
		if _, insertErr := l.purchases.InsertOne(ctx, purchase); insertErr != nil {
			log.Printf("Failed to reinstate purchase %s after stock restore error: %v", id, insertErr)
			return nil, errors.Join(err, insertErr)
		}
		return nil, err
	}
	if found {
		stock[purchase.ProductID] = restored
	}
	return &StockChange{Purchase: purchase, Stock: stock}, nil
}

func (l *MongoStockLedger) customerExists(ctx context.Context, id string) error {
	n, err := l.customers.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("failed to load customer %s: %w", id, err)
	}
	if n == 0 {
		return apperr.NotFound("customer", id)
	}
	return nil
}

var returnAfter = options.FindOneAndUpdate().
	SetReturnDocument(options.After).
	SetProjection(bson.M{"stock": 1})

// take decrements stock iff at least qty units are available.
func (l *MongoStockLedger) take(ctx context.Context, productID string, qty int, now time.Time) (int, error) {
	var doc struct {
		Stock int `bson:"stock"`
	}
	filter := bson.M{"_id": productID, "stock": bson.M{"$gte": qty}}
	update := bson.M{"$inc": bson.M{"stock": -qty}, "$set": bson.M{"updatedAt": now}}
	err := l.products.FindOneAndUpdate(ctx, filter, update, returnAfter).Decode(&doc)
	if err == nil {
		return doc.Stock, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return 0, fmt.Errorf("failed to decrement stock of product %s: %w", productID, err)
	}
	if err := l.products.FindOne(ctx, bson.M{"_id": productID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, apperr.NotFound("product", productID)
		}
		return 0, fmt.Errorf("failed to read stock of product %s: %w", productID, err)
	}
	return 0, &apperr.InsufficientStockError{ProductID: productID, Requested: qty, Available: doc.Stock}
}

// give increments stock. found is false when the product no longer exists.
func (l *MongoStockLedger) give(ctx context.Context, productID string, qty int, now time.Time) (int, bool, error) {
	var doc struct {
		Stock int `bson:"stock"`
	}
	update := bson.M{"$inc": bson.M{"stock": qty}, "$set": bson.M{"updatedAt": now}}
	err := l.products.FindOneAndUpdate(ctx, bson.M{"_id": productID}, update, returnAfter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to restore stock of product %s: %w", productID, err)
	}
	return doc.Stock, true, nil
}

func (l *MongoStockLedger) stockOf(ctx context.Context, productID string) (int, bool, error) {
	var doc struct {
		Stock int `bson:"stock"`
	}
	opts := options.FindOne().SetProjection(bson.M{"stock": 1})
	if err := l.products.FindOne(ctx, bson.M{"_id": productID}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to read stock of product %s: %w", productID, err)
	}
	return doc.Stock, true, nil
}

// refund is a quantity of a product's units; as an undo step it is always
// added back.
type refund struct {
	productID string
	qty       int
}

// compensate returns the refunded units in reverse order and returns cause,
// joined with any error hit while undoing.
func (l *MongoStockLedger) compensate(ctx context.Context, cause error, undo ...refund) error {
	// The caller's context may already be done; the rollback must still run.
	ctx = context.WithoutCancel(ctx)
	errs := []error{cause}
	for i := len(undo) - 1; i >= 0; i-- {
		r := undo[i]
		_, err := l.products.UpdateOne(ctx, bson.M{"_id": r.productID},
			bson.M{"$inc": bson.M{"stock": r.qty}, "$set": bson.M{"updatedAt": l.now()}})
		if err != nil {
			log.Printf("Failed to return %d units to product %s: %v", r.qty, r.productID, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
