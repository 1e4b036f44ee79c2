// Moodtape - Mood-Conditioned Song Recommendation Service
// Copyright 2026 Moodtape Authors
// SPDX-License-Identifier: MIT
// https://github.com/moodtape/moodtape

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/moodtape/moodtape/internal/config"
	"github.com/moodtape/moodtape/internal/logging"
	"github.com/moodtape/moodtape/internal/metrics"
	"github.com/moodtape/moodtape/internal/models"
)

// MongoStore reads the song catalog from a MongoDB collection.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	timeout    time.Duration
	logger     zerolog.Logger
}

// NewMongoStore connects to MongoDB and verifies the connection.
func NewMongoStore(ctx context.Context, cfg *config.StoreConfig) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	s := &MongoStore{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		timeout:    cfg.Timeout,
		logger:     logging.With().Str("component", "store").Str("driver", "mongo").Logger(),
	}

	s.logger.Info().
		Str("database", cfg.Database).
		Str("collection", cfg.Collection).
		Msg("Connected to MongoDB song store")

	return s, nil
}

// GetAll returns every song in the collection.
func (s *MongoStore) GetAll(ctx context.Context) ([]models.Song, error) {
	return s.find(ctx, "get_all", bson.M{})
}

// GetByID returns one song by its ID, or ErrNotFound.
func (s *MongoStore) GetByID(ctx context.Context, id string) (*models.Song, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	var song models.Song
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&song)
	metrics.RecordStoreCall("get_by_id", time.Since(start), err)

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, s.unavailable("get_by_id", err)
	}
	return &song, nil
}

// FindByMood returns the songs labeled with the given mood.
func (s *MongoStore) FindByMood(ctx context.Context, mood models.Mood) ([]models.Song, error) {
	return s.find(ctx, "find_by_mood", bson.M{"song_emotion": string(mood)})
}

// CountsByMood returns the number of songs per mood label.
func (s *MongoStore) CountsByMood(ctx context.Context) (map[models.Mood]int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$song_emotion"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cursor, err := s.collection.Aggregate(ctx, pipeline)
	metrics.RecordStoreCall("counts_by_mood", time.Since(start), err)
	if err != nil {
		return nil, s.unavailable("counts_by_mood", err)
	}
	defer cursor.Close(ctx)

	counts := make(map[models.Mood]int)
	for cursor.Next(ctx) {
		var row struct {
			Mood  string `bson:"_id"`
			Count int    `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, s.unavailable("counts_by_mood", err)
		}
		counts[models.Mood(row.Mood)] += row.Count
	}
	if err := cursor.Err(); err != nil {
		return nil, s.unavailable("counts_by_mood", err)
	}
	return counts, nil
}

// Ping reports whether MongoDB is reachable.
func (s *MongoStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return s.unavailable("ping", err)
	}
	return nil
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect from mongodb: %w", err)
	}
	return nil
}

// find runs a filtered query and decodes all matches.
func (s *MongoStore) find(ctx context.Context, operation string, filter bson.M) ([]models.Song, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	cursor, err := s.collection.Find(ctx, filter)
	metrics.RecordStoreCall(operation, time.Since(start), err)
	if err != nil {
		return nil, s.unavailable(operation, err)
	}
	defer cursor.Close(ctx)

	var songs []models.Song
	if err := cursor.All(ctx, &songs); err != nil {
		return nil, s.unavailable(operation, err)
	}
	return songs, nil
}

// unavailable logs the backend failure and maps it to ErrUnavailable
// so callers can take the degraded path without inspecting driver
// error types.
func (s *MongoStore) unavailable(operation string, err error) error {
	s.logger.Error().Err(err).Str("operation", operation).Msg("MongoDB call failed")
	return fmt.Errorf("%s: %w", operation, ErrUnavailable)
}
