package server

import (
	"context"
	"fmt"
	"log"

	"inventory/internal/config"
	"inventory/internal/repositories"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenStore connects to the backend named by cfg.DBDriver and prepares its
// schema.
func OpenStore(ctx context.Context, cfg *config.Config) (*repositories.Store, error) {
	switch cfg.DBDriver {
	case config.DriverMemory:
		log.Println("Using in-memory store; data is lost on exit")
		return repositories.NewMemoryStore().Store(), nil
	case config.DriverSQLite:
		return openGORM(sqlite.Open(cfg.DatabaseDSN), true)
	case config.DriverPostgres:
		return openGORM(postgres.Open(cfg.DatabaseDSN), false)
	case config.DriverMongo:
		return openMongo(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}
}

func openGORM(dialector gorm.Dialector, singleConn bool) (*repositories.Store, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if singleConn {
		// SQLite allows one writer; serialise instead of failing with SQLITE_BUSY.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := repositories.AutoMigrate(db); err != nil {
		return nil, err
	}
	log.Printf("Connected to %s database", dialector.Name())
	return repositories.NewGORMStore(db), nil
}

func openMongo(ctx context.Context, cfg *config.Config) (*repositories.Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	db := client.Database(cfg.MongoDatabase)
	if err := repositories.EnsureMongoIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, err
	}
	log.Printf("Connected to MongoDB database %s", cfg.MongoDatabase)
	return repositories.NewMongoStore(client, db), nil
}
