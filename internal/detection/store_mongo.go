// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

package detection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tomtom215/civicpulse/internal/logging"
)

// MongoConfig locates the reports collection of the reporting backend.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
}

// MongoSource reads reports written by the citizen reporting backend.
// Reporter and category are references that may be stored as ObjectIDs,
// strings or populated sub-documents; all three resolve to an ID string.
type MongoSource struct {
	client  *mongo.Client
	coll    *mongo.Collection
	timeout time.Duration
}

// mongoReport is the stored document shape.
type mongoReport struct {
	ID          primitive.ObjectID `bson:"_id"`
	ReportedBy  bson.RawValue      `bson:"reportedBy"`
	Category    bson.RawValue      `bson:"category"`
	Region      string             `bson:"region"`
	Location    *geoPoint          `bson:"location"`
	Status      string             `bson:"status"`
	IsImportant bool               `bson:"isImportant"`
	CreatedAt   time.Time          `bson:"createdAt"`
}

// geoPoint is a GeoJSON point; coordinates are [longitude, latitude].
type geoPoint struct {
	Type        string    `bson:"type"`
	Coordinates []float64 `bson:"coordinates"`
}

// ConnectMongoSource dials MongoDB, verifies the connection and ensures the
// indexes used by FetchActiveReports exist.
func ConnectMongoSource(ctx context.Context, cfg MongoConfig) (*MongoSource, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	dctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(dctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(dctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	src := &MongoSource{
		client:  client,
		coll:    client.Database(cfg.Database).Collection(cfg.Collection),
		timeout: cfg.Timeout,
	}
	if err := src.ensureIndexes(dctx); err != nil {
		logging.Warn().Err(err).Msg("Mongo index creation failed, queries may be slow")
	}
	logging.Info().
		Str("database", cfg.Database).
		Str("collection", cfg.Collection).
		Msg("Connected to MongoDB report source")
	return src, nil
}

// NewMongoSource wraps an existing collection.
func NewMongoSource(coll *mongo.Collection, timeout time.Duration) *MongoSource {
	return &MongoSource{coll: coll, timeout: timeout}
}

func (m *MongoSource) ensureIndexes(ctx context.Context) error {
	_, err := m.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "region", Value: 1}, {Key: "createdAt", Value: 1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
	})
	return err
}

// Close disconnects the client when the source owns it.
func (m *MongoSource) Close(ctx context.Context) error {
	if m.client == nil {
		return nil
	}
	return m.client.Disconnect(ctx)
}

// Ping checks the server.
func (m *MongoSource) Ping(ctx context.Context) error {
	if m.client == nil {
		return nil
	}
	return m.client.Ping(ctx, nil)
}

func activeFilter(region string) bson.M {
	statuses := make([]string, 0, 2)
	for _, s := range ActiveStatuses() {
		statuses = append(statuses, string(s))
	}
	filter := bson.M{"status": bson.M{"$in": statuses}}
	if region != "" {
		filter["region"] = region
	}
	return filter
}

// FetchActiveReports implements ReportSource. Documents that fail to decode
// are logged and skipped; the detector reports other malformed entries.
func (m *MongoSource) FetchActiveReports(ctx context.Context, region string) ([]Report, error) {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := m.coll.Find(ctx, activeFilter(region), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer func() { _ = cur.Close(context.Background()) }()

	var reports []Report
	for cur.Next(ctx) {
		var doc mongoReport
		if err := cur.Decode(&doc); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("Skipping undecodable report document")
			continue
		}
		reports = append(reports, doc.toReport())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reports: %w", err)
	}
	return reports, nil
}

// MarkImportant implements Flagger by setting isImportant and appending to
// the document's importantFlags history. A flag carrying a region only
// matches documents of that region.
func (m *MongoSource) MarkImportant(ctx context.Context, flag Flag) error {
	oid, err := primitive.ObjectIDFromHex(flag.ReportID)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrReportNotFound, flag.ReportID)
	}
	if flag.FlaggedAt.IsZero() {
		flag.FlaggedAt = time.Now().UTC()
	}

	update := bson.M{
		"$set": bson.M{"isImportant": true, "updatedAt": flag.FlaggedAt},
		"$push": bson.M{"importantFlags": bson.M{
			"flaggedBy": flag.FlaggedBy,
			"primaryId": flag.PrimaryID,
			"note":      flag.Note,
			"flaggedAt": flag.FlaggedAt,
		}},
	}
	filter := bson.M{"_id": oid}
	if flag.Region != "" {
		filter["region"] = flag.Region
	}
	res, err := m.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to flag report: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", ErrReportNotFound, flag.ReportID)
	}
	return nil
}

func (d *mongoReport) toReport() Report {
	r := Report{
		ID:         d.ID.Hex(),
		ReporterID: refID(d.ReportedBy),
		CategoryID: refID(d.Category),
		Region:     d.Region,
		Status:     Status(d.Status),
		Important:  d.IsImportant,
		CreatedAt:  d.CreatedAt,
	}
	if d.ID.IsZero() {
		r.ID = ""
	}
	if d.Location != nil && len(d.Location.Coordinates) == 2 {
		r.Location = &Coordinates{Longitude: d.Location.Coordinates[0], Latitude: d.Location.Coordinates[1]}
	}
	return r
}

var errUnresolvedRef = errors.New("unresolved reference")

// refID resolves a reference to its ID string. Unresolvable references
// yield "", which the detector treats as malformed.
func refID(v bson.RawValue) string {
	id, err := resolveRef(v)
	if err != nil {
		return ""
	}
	return id
}

func resolveRef(v bson.RawValue) (string, error) {
	if oid, ok := v.ObjectIDOK(); ok {
		return oid.Hex(), nil
	}
	if s, ok := v.StringValueOK(); ok && s != "" {
		return s, nil
	}
	if doc, ok := v.DocumentOK(); ok {
		inner, err := doc.LookupErr("_id")
		if err != nil {
			return "", fmt.Errorf("%w: populated document without _id", errUnresolvedRef)
		}
		return resolveRef(inner)
	}
	return "", errUnresolvedRef
}
