package config

import (
	"context"
	"fmt"

	"gestion-optica-api/utils"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectMongoDB builds the client without requiring the server to be up.
// The driver dials lazily; reachability is reported by the health check.
func ConnectMongoDB(cfg *Config) (*mongo.Client, error) {
	ctx, cancel := utils.WithTimeout(context.Background())
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetServerSelectionTimeout(cfg.HealthTimeout).
		SetAppName("gestion-optica-api")

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	return client, nil
}
