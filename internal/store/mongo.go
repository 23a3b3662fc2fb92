package store

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectMongo dials uri, checks the connection and returns the named database.
func ConnectMongo(ctx context.Context, uri, database string) (*mongo.Client, *mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("mongodb connect: %w", err)
	}

	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("mongodb ping: %w", err)
	}

	db := client.Database(database)

	_, err = db.Collection(surveysCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.M{"creator": 1}},
	})
	if err != nil {
		log.WithField("component", "mongo").Errorf("mongodb index, err=%v", err)
	}

	return client, db, nil
}
