package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Commander is the slice of *mongo.Database the probe needs.
type Commander interface {
	RunCommand(ctx context.Context, runCommand interface{}, opts ...*options.RunCmdOptions) *mongo.SingleResult
}

// MongoProbe checks liveness of the persistence layer with a ping command.
type MongoProbe struct {
	db Commander
}

func NewMongoProbe(db *mongo.Database) *MongoProbe {
	return &MongoProbe{db: db}
}

func (p *MongoProbe) Name() string {
	return "database"
}

func (p *MongoProbe) Ping(ctx context.Context) error {
	var res bson.M
	if err := p.db.RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Decode(&res); err != nil {
		return fmt.Errorf("mongo ping: %w", err)
	}
	return nil
}
