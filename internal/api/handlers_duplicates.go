// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/tomtom215/civicpulse/internal/detection"
	"github.com/tomtom215/civicpulse/internal/logging"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100

	partialWarning = "detection stopped at its deadline; some duplicate groups may be missing"

	// PartialHeader marks a GeoJSON body built from a partial result.
	PartialHeader = "X-Partial-Result"
)

// Duplicates runs detection for ?region= and returns the groups, largest
// first. No duplicates is an empty list, not an error.
func (h *Handler) Duplicates(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	region, ok := resolveRegion(rw, r, r.URL.Query().Get("region"))
	if !ok {
		return
	}

	res, partial, ok := h.detect(rw, r, region)
	if !ok {
		return
	}

	meta := &APIMeta{Detection: detectionMeta(region, res)}
	if partial {
		meta.Partial = true
		meta.Warnings = append(meta.Warnings, partialWarning)
	}
	rw.SuccessWithMeta(groupsOrEmpty(res), meta)
}

// DuplicatesGeoJSON returns the groups as a GeoJSON FeatureCollection with
// one Point feature per group at its centroid.
func (h *Handler) DuplicatesGeoJSON(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	region, ok := resolveRegion(rw, r, r.URL.Query().Get("region"))
	if !ok {
		return
	}

	res, partial, ok := h.detect(rw, r, region)
	if !ok {
		return
	}

	body, err := json.Marshal(groupsToFeatureCollection(res.Groups))
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to encode GeoJSON")
		rw.InternalError("failed to encode GeoJSON")
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	if partial {
		w.Header().Set(PartialHeader, "true")
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Failed to write GeoJSON response")
	}
}

// DuplicatesLatest returns the most recent stored scan of ?region=.
func (h *Handler) DuplicatesLatest(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	region, ok := resolveRegion(rw, r, r.URL.Query().Get("region"))
	if !ok {
		return
	}

	snap, err := h.service.LatestScan(r.Context(), region)
	switch {
	case errors.Is(err, detection.ErrNoSnapshot):
		rw.NotFound("no stored scan for this region")
		return
	case err != nil:
		logging.Ctx(r.Context()).Error().Err(err).Str("region", region).Msg("Failed to load latest scan")
		rw.InternalError("failed to load stored scan")
		return
	}

	meta := &APIMeta{}
	if snap.Result != nil {
		meta.Detection = detectionMeta(region, snap.Result)
		if snap.Result.Partial {
			meta.Partial = true
			meta.Warnings = append(meta.Warnings, partialWarning)
		}
	}
	rw.SuccessWithMeta(snap, meta)
}

// DuplicatesHistory returns up to ?limit= retained scans of ?region=,
// newest first.
func (h *Handler) DuplicatesHistory(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	region, ok := resolveRegion(rw, r, r.URL.Query().Get("region"))
	if !ok {
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryLimit {
			rw.BadRequest("limit must be an integer between 1 and " + strconv.Itoa(maxHistoryLimit))
			return
		}
		limit = n
	}

	history, err := h.service.ScanHistory(r.Context(), region, limit)
	switch {
	case errors.Is(err, detection.ErrNoSnapshot):
		rw.NotFound("scan history is not enabled")
		return
	case err != nil:
		logging.Ctx(r.Context()).Error().Err(err).Str("region", region).Msg("Failed to load scan history")
		rw.InternalError("failed to load scan history")
		return
	}
	if history == nil {
		history = []detection.ScanSnapshot{}
	}
	rw.Success(history)
}

// detect runs the service and writes the error response itself when the
// pass produced nothing usable. A partial result is reported through partial.
func (h *Handler) detect(rw *ResponseWriter, r *http.Request, region string) (res *detection.Result, partial, ok bool) {
	res, err := h.service.FindDuplicates(r.Context(), region)
	switch {
	case err == nil:
		return res, false, true
	case errors.Is(err, detection.ErrPartialResult) && res != nil:
		logging.Ctx(r.Context()).Warn().Err(err).Str("region", region).Msg("Returning partial duplicate groups")
		return res, true, true
	case errors.Is(err, detection.ErrSourceUnavailable):
		rw.Error(http.StatusServiceUnavailable, ErrCodeDetectionFailed, "reports could not be loaded; try again later")
	default:
		logging.Ctx(r.Context()).Error().Err(err).Str("region", region).Msg("Duplicate detection failed")
		rw.Error(http.StatusInternalServerError, ErrCodeDetectionFailed, "duplicate detection failed")
	}
	return nil, false, false
}

func detectionMeta(region string, res *detection.Result) *DetectionMeta {
	return &DetectionMeta{
		Region:      region,
		Scanned:     res.Scanned,
		Active:      res.Active,
		Skipped:     res.Skipped(),
		TotalGroups: res.TotalGroups,
		Truncated:   res.TotalGroups > len(res.Groups),
		ComputedAt:  res.ComputedAt,
	}
}

func groupsOrEmpty(res *detection.Result) []detection.DuplicateGroup {
	if res.Groups == nil {
		return []detection.DuplicateGroup{}
	}
	return res.Groups
}

// groupsToFeatureCollection places each group at its centroid. GeoJSON
// coordinates are longitude first.
func groupsToFeatureCollection(groups []detection.DuplicateGroup) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(groups))}
	for i := range groups {
		g := &groups[i]
		point := geom.NewPointFlat(geom.XY, []float64{g.Centroid.Longitude, g.Centroid.Latitude})
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       g.Primary.ID,
			Geometry: point,
			Properties: map[string]interface{}{
				"count":     g.Count,
				"category":  g.Category,
				"primaryId": g.Primary.ID,
				"memberIds": g.MemberIDs(),
				"rank":      i + 1,
			},
		})
	}
	return fc
}
