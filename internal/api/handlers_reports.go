// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tomtom215/civicpulse/internal/detection"
	"github.com/tomtom215/civicpulse/internal/logging"
	"github.com/tomtom215/civicpulse/internal/validation"
)

// ingestRequest is the body of POST /api/v1/reports. Reporter and category
// are plain identifiers resolved by the caller.
type ingestRequest struct {
	ID         string   `json:"id" validate:"omitempty,max=64"`
	ReporterID string   `json:"reporterId" validate:"required,max=128"`
	CategoryID string   `json:"categoryId" validate:"required,max=64"`
	Region     string   `json:"region" validate:"omitempty,region_slug"`
	Latitude   *float64 `json:"latitude" validate:"required,latitude"`
	Longitude  *float64 `json:"longitude" validate:"required,longitude"`
	Status     string   `json:"status" validate:"omitempty,report_status"`
}

type flagRequest struct {
	PrimaryID string `json:"primaryId" validate:"omitempty,max=64"`
	Region    string `json:"region" validate:"omitempty,region_slug"`
	Note      string `json:"note" validate:"max=500"`
}

// SubmitReport stores a new report. Missing IDs are generated and the
// status defaults to open. A client-chosen ID that is already taken is a
// conflict; stored reports are never replaced through this endpoint.
func (h *Handler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req ingestRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		rw.BadRequest("invalid JSON body: " + err.Error())
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError(verr)
		return
	}
	region, ok := resolveRegion(rw, r, req.Region)
	if !ok {
		return
	}

	report := &detection.Report{
		ID:         req.ID,
		ReporterID: req.ReporterID,
		CategoryID: req.CategoryID,
		Region:     region,
		Location:   &detection.Coordinates{Latitude: *req.Latitude, Longitude: *req.Longitude},
		Status:     detection.Status(req.Status),
		CreatedAt:  time.Now().UTC(),
	}
	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	if report.Status == "" {
		report.Status = detection.StatusOpen
	}

	if err := h.service.SubmitReport(r.Context(), report); err != nil {
		h.writeWriteError(rw, r, err, "failed to store report")
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("report_id", report.ID).
		Str("category", report.CategoryID).
		Str("region", report.Region).
		Msg("Report submitted")
	rw.Created(report)
}

// FlagImportant marks the report {id} important after an operator reviewed
// its duplicate group. Region-scoped callers can only flag reports of their
// region; anything else is not found.
func (h *Handler) FlagImportant(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	reportID := chi.URLParam(r, "id")
	if reportID == "" || len(reportID) > 64 {
		rw.BadRequest("report id is required")
		return
	}

	var req flagRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		rw.BadRequest("invalid JSON body: " + err.Error())
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError(verr)
		return
	}
	region, ok := resolveRegion(rw, r, req.Region)
	if !ok {
		return
	}

	flag := detection.Flag{
		ReportID:  reportID,
		PrimaryID: req.PrimaryID,
		Region:    region,
		FlaggedBy: subjectName(r),
		Note:      req.Note,
		FlaggedAt: time.Now().UTC(),
	}
	if err := h.service.FlagImportant(r.Context(), flag); err != nil {
		h.writeWriteError(rw, r, err, "failed to flag report")
		return
	}
	rw.Success(flag)
}

func (h *Handler) writeWriteError(rw *ResponseWriter, r *http.Request, err error, message string) {
	switch {
	case errors.Is(err, detection.ErrReportNotFound):
		rw.NotFound("report not found")
	case errors.Is(err, detection.ErrReportExists):
		rw.Conflict("a report with this id already exists")
	case errors.Is(err, detection.ErrReadOnlySource):
		rw.Error(http.StatusNotImplemented, ErrCodeReadOnly, "the configured report source is read-only")
	default:
		logging.Ctx(r.Context()).Error().Err(err).Msg(message)
		rw.InternalError(message)
	}
}
