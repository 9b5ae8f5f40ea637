package handler

import (
	"context"
	"net/http"
	"strings"

	"uplora/internal/auth"
	"uplora/internal/domain/video"
	videosvc "uplora/internal/video"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// VideoHandler serves /api/videos. Routes under /:id run behind
// RequireVideoAction, which loads the video into the context.
type VideoHandler struct {
	videos VideoService
}

func NewVideoHandler(videos VideoService) *VideoHandler {
	return &VideoHandler{videos: videos}
}

type ListVideosResponse struct {
	Videos []VideoResponse `json:"videos"`
}

func (h *VideoHandler) List(c echo.Context) error {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return err
	}

	teamID, err := parseOptionalUUID(c.QueryParam(queryTeamID), msgInvalidTeamID)
	if err != nil {
		return err
	}
	limit, offset, err := pagination(c)
	if err != nil {
		return err
	}

	views, err := h.videos.List(c.Request().Context(), userID, videosvc.ListInput{
		TeamID: teamID,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return err
	}

	out := make([]VideoResponse, 0, len(views))
	for _, v := range views {
		out = append(out, newVideoResponse(v.Video, v.PlaybackURL))
	}
	return c.JSON(http.StatusOK, ListVideosResponse{Videos: out})
}

func (h *VideoHandler) Get(c echo.Context) error {
	v, err := auth.GetVideo(c)
	if err != nil {
		return err
	}

	view, err := h.videos.Get(c.Request().Context(), v)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, newVideoResponse(view.Video, view.PlaybackURL))
}

func (h *VideoHandler) RequestApproval(c echo.Context) error {
	return h.transition(c, h.videos.RequestApproval)
}

func (h *VideoHandler) Approve(c echo.Context) error {
	return h.transition(c, h.videos.Approve)
}

func (h *VideoHandler) Reject(c echo.Context) error {
	return h.transition(c, h.videos.Reject)
}

func (h *VideoHandler) Delete(c echo.Context) error {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return err
	}
	v, err := auth.GetVideo(c)
	if err != nil {
		return err
	}

	if err := h.videos.Delete(c.Request().Context(), userID, v); err != nil {
		return err
	}

	return respondMessage(c, http.StatusOK, msgVideoDeleted)
}

type ReplacePresignRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	SizeBytes   int64  `json:"sizeBytes"`
}

type ReplacePresignResponse struct {
	URL       string `json:"url"`
	Key       string `json:"key"`
	ExpiresIn int    `json:"expiresIn"`
}

func (h *VideoHandler) ReplacePresign(c echo.Context) error {
	v, err := auth.GetVideo(c)
	if err != nil {
		return err
	}

	var req ReplacePresignRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return err
	}

	target, err := h.videos.ReplacePresign(c.Request().Context(), v, videosvc.ReplacePresignInput{
		Filename:    strings.TrimSpace(req.Filename),
		ContentType: strings.TrimSpace(req.ContentType),
		SizeBytes:   req.SizeBytes,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, ReplacePresignResponse{
		URL:       target.URL,
		Key:       target.Key,
		ExpiresIn: int(target.ExpiresIn.Seconds()),
	})
}

type ReplaceCompleteRequest struct {
	Key         string `json:"key"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

func (h *VideoHandler) ReplaceComplete(c echo.Context) error {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return err
	}
	v, err := auth.GetVideo(c)
	if err != nil {
		return err
	}

	var req ReplaceCompleteRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return err
	}

	updated, err := h.videos.ReplaceComplete(c.Request().Context(), userID, v, videosvc.ReplaceCompleteInput{
		Key:         strings.TrimSpace(req.Key),
		Filename:    strings.TrimSpace(req.Filename),
		ContentType: strings.TrimSpace(req.ContentType),
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, newVideoResponse(updated, ""))
}

func (h *VideoHandler) transition(c echo.Context, step func(ctx context.Context, actorID uuid.UUID, v *video.Video) (*video.Video, error)) error {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return err
	}
	v, err := auth.GetVideo(c)
	if err != nil {
		return err
	}

	updated, err := step(c.Request().Context(), userID, v)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, newVideoResponse(updated, ""))
}
