package handler

import (
	"net/http"
	"strings"

	"uplora/internal/auth"
	domain "uplora/internal/domain/upload"
	"uplora/internal/upload"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type UploadHandler struct {
	uploads UploadService
}

func NewUploadHandler(uploads UploadService) *UploadHandler {
	return &UploadHandler{uploads: uploads}
}

type InitUploadRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	TeamID      string `json:"teamId"`
}

type InitUploadResponse struct {
	UploadID    string     `json:"uploadId"`
	Key         string     `json:"key"`
	PartSize    int64      `json:"partSize"`
	TempID      uuid.UUID  `json:"tempId"`
	Filename    string     `json:"filename"`
	ContentType string     `json:"contentType"`
	TeamID      *uuid.UUID `json:"teamId"`
}

func (h *UploadHandler) Init(c echo.Context) error {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return err
	}

	var req InitUploadRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return err
	}

	teamID, err := parseOptionalUUID(req.TeamID, msgInvalidTeamID)
	if err != nil {
		return err
	}

	res, err := h.uploads.Init(c.Request().Context(), userID, upload.InitInput{
		Filename:    strings.TrimSpace(req.Filename),
		ContentType: strings.TrimSpace(req.ContentType),
		TeamID:      teamID,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, InitUploadResponse{
		UploadID:    res.UploadID,
		Key:         res.Key,
		PartSize:    res.PartSize,
		TempID:      res.TempID,
		Filename:    res.Filename,
		ContentType: res.ContentType,
		TeamID:      res.TeamID,
	})
}

type SignPartRequest struct {
	Key        string `json:"key"`
	UploadID   string `json:"uploadId"`
	PartNumber int64  `json:"partNumber"`
}

type SignPartResponse struct {
	URL string `json:"url"`
}

func (h *UploadHandler) Sign(c echo.Context) error {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return err
	}

	var req SignPartRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return err
	}

	url, err := h.uploads.Sign(c.Request().Context(), userID, upload.SignInput{
		Key:        req.Key,
		UploadID:   req.UploadID,
		PartNumber: req.PartNumber,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, SignPartResponse{URL: url})
}

type CompleteUploadRequest struct {
	Key      string        `json:"key"`
	UploadID string        `json:"uploadId"`
	Parts    []domain.Part `json:"parts"`
}

type CompleteUploadResponse struct {
	Videos        []VideoResponse `json:"videos"`
	LocksReleased int64           `json:"locksReleased"`
}

func newCompleteUploadResponse(res *upload.CompleteResult) CompleteUploadResponse {
	return CompleteUploadResponse{
		Videos:        newVideoResponses(res.Videos),
		LocksReleased: res.LocksReleased,
	}
}

func (h *UploadHandler) Complete(c echo.Context) error {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return err
	}

	var req CompleteUploadRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return err
	}

	res, err := h.uploads.Complete(c.Request().Context(), userID, upload.CompleteInput{
		Key:      req.Key,
		UploadID: req.UploadID,
		Parts:    req.Parts,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, newCompleteUploadResponse(res))
}

type PutCompleteRequest struct {
	Key string `json:"key"`
}

func (h *UploadHandler) PutComplete(c echo.Context) error {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return err
	}

	var req PutCompleteRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return err
	}

	res, err := h.uploads.PutComplete(c.Request().Context(), userID, req.Key)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, newCompleteUploadResponse(res))
}

type CancelUploadRequest struct {
	Key      string `json:"key"`
	UploadID string `json:"uploadId"`
}

// Cancel answers 200 for anything that passes validation, including an
// upload that was already cancelled.
func (h *UploadHandler) Cancel(c echo.Context) error {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return err
	}

	var req CancelUploadRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return err
	}

	if err := h.uploads.Cancel(c.Request().Context(), userID, upload.CancelInput{
		Key:      req.Key,
		UploadID: req.UploadID,
	}); err != nil {
		return err
	}

	return respondMessage(c, http.StatusOK, msgUploadCancelled)
}

type ReleaseLocksResponse struct {
	Released int64 `json:"released"`
}

func (h *UploadHandler) ReleaseLocks(c echo.Context) error {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return err
	}

	released := h.uploads.Release(c.Request().Context(), userID)
	return c.JSON(http.StatusOK, ReleaseLocksResponse{Released: released})
}

type CleanupLocksResponse struct {
	Reaped int `json:"reaped"`
}

// CleanupLocks runs the stale-lock reaper on demand.
func (h *UploadHandler) CleanupLocks(c echo.Context) error {
	reaped, err := h.uploads.ReapStaleLocks(c.Request().Context(), h.uploads.StaleLockAge())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, CleanupLocksResponse{Reaped: reaped})
}
