// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

//go:build integration

package detection

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tomtom215/civicpulse/internal/testinfra"
)

func TestMongoSource_Integration(t *testing.T) {
	testinfra.SkipIfNoDocker(t)

	ctx := context.Background()
	container, err := testinfra.NewMongoContainer(ctx)
	if err != nil {
		t.Fatalf("NewMongoContainer: %v", err)
	}
	defer testinfra.CleanupContainer(t, container)

	src, err := ConnectMongoSource(ctx, MongoConfig{
		URI:        container.URI,
		Database:   "civic",
		Collection: "reports",
		Timeout:    10 * time.Second,
	})
	if err != nil {
		t.Fatalf("ConnectMongoSource: %v", err)
	}
	defer func() { _ = src.Close(ctx) }()

	roads := primitive.NewObjectID()
	alice, bob := primitive.NewObjectID(), primitive.NewObjectID()
	base := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	first, second := primitive.NewObjectID(), primitive.NewObjectID()

	docs := []interface{}{
		bson.M{"_id": first, "reportedBy": alice, "category": roads, "region": "north", "status": "open",
			"location": bson.M{"type": "Point", "coordinates": []float64{13.4050, 52.5200}}, "createdAt": base},
		// Populated references, as the backend returns after a lookup.
		bson.M{"_id": second, "reportedBy": bson.M{"_id": bob, "name": "Bob"}, "category": bson.M{"_id": roads, "title": "Roads"},
			"region": "north", "status": "in_progress",
			"location": bson.M{"type": "Point", "coordinates": []float64{13.4050, 52.5203}}, "createdAt": base.Add(time.Minute)},
		bson.M{"_id": primitive.NewObjectID(), "reportedBy": alice, "category": roads, "region": "north", "status": "solved",
			"location": bson.M{"type": "Point", "coordinates": []float64{13.4050, 52.5201}}, "createdAt": base},
		bson.M{"_id": primitive.NewObjectID(), "reportedBy": bob, "category": roads, "region": "south", "status": "open",
			"location": bson.M{"type": "Point", "coordinates": []float64{11.5756, 48.1372}}, "createdAt": base},
	}
	if _, err := src.coll.InsertMany(ctx, docs); err != nil {
		t.Fatalf("InsertMany: %v", err)
	}

	reports, err := src.FetchActiveReports(ctx, "north")
	if err != nil {
		t.Fatalf("FetchActiveReports: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("reports = %d, want 2 active in north", len(reports))
	}
	if reports[0].ID != first.Hex() || reports[1].ReporterID != bob.Hex() || reports[1].CategoryID != roads.Hex() {
		t.Errorf("reports = %+v", reports)
	}

	detector, err := NewClusterDetector(DefaultDetectorConfig())
	if err != nil {
		t.Fatalf("NewClusterDetector: %v", err)
	}
	res, err := detector.Detect(ctx, reports)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(res.Groups) != 1 || res.Groups[0].Count != 2 {
		t.Fatalf("groups = %+v", res.Groups)
	}

	if err := src.MarkImportant(ctx, Flag{ReportID: second.Hex(), PrimaryID: first.Hex(), FlaggedBy: "ops"}); err != nil {
		t.Fatalf("MarkImportant: %v", err)
	}
	var stored struct {
		IsImportant    bool     `bson:"isImportant"`
		ImportantFlags []bson.M `bson:"importantFlags"`
	}
	if err := src.coll.FindOne(ctx, bson.M{"_id": second}).Decode(&stored); err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	if !stored.IsImportant || len(stored.ImportantFlags) != 1 {
		t.Errorf("stored = %+v", stored)
	}

	// A flag scoped to south does not reach a north report.
	err = src.MarkImportant(ctx, Flag{ReportID: first.Hex(), Region: "south", FlaggedBy: "south-ops"})
	if !errors.Is(err, ErrReportNotFound) {
		t.Errorf("MarkImportant cross-region = %v, want ErrReportNotFound", err)
	}
	if n, _ := src.coll.CountDocuments(ctx, bson.M{"_id": first, "isImportant": true}); n != 0 {
		t.Error("cross-region flag marked the report")
	}

	err = src.MarkImportant(ctx, Flag{ReportID: primitive.NewObjectID().Hex(), FlaggedBy: "ops"})
	if !errors.Is(err, ErrReportNotFound) {
		t.Errorf("MarkImportant unknown id = %v, want ErrReportNotFound", err)
	}
}
