package database

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type fakeCommander struct {
	err     error
	lastCmd interface{}
}

func (f *fakeCommander) RunCommand(_ context.Context, cmd interface{}, _ ...*options.RunCmdOptions) *mongo.SingleResult {
	f.lastCmd = cmd
	return mongo.NewSingleResultFromDocument(bson.D{{Key: "ok", Value: 1}}, f.err, nil)
}

func TestMongoProbePing(t *testing.T) {
	fake := &fakeCommander{}
	probe := &MongoProbe{db: fake}

	assert.NoError(t, probe.Ping(context.Background()))
	assert.Equal(t, bson.D{{Key: "ping", Value: 1}}, fake.lastCmd)
	assert.Equal(t, "database", probe.Name())
}

func TestMongoProbePingFailure(t *testing.T) {
	probe := &MongoProbe{db: &fakeCommander{err: errors.New("server selection timeout")}}

	err := probe.Ping(context.Background())
	assert.ErrorContains(t, err, "server selection timeout")
}
