// Package video exposes the video upload, listing and watch history
// endpoints.
package video

import (
	"errors"
	"net/http"
	"strconv"

	"chiyabari/internal/http/middleware"
	"chiyabari/internal/http/response"
	"chiyabari/internal/http/upload"
	videoservice "chiyabari/internal/services/video"
	"chiyabari/internal/storage"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	videos *videoservice.Service
}

func NewHandler(videos *videoservice.Service) *Handler {
	return &Handler{videos: videos}
}

// Upload handles the multipart upload form: title, description, a video
// file and a thumbnail.
func (h *Handler) Upload(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.KindUnauthorized, "unauthorized access")
		return
	}

	title := c.PostForm("title")
	if title == "" {
		response.Fail(c, http.StatusBadRequest, response.KindValidation, "title is required")
		return
	}

	videoFile, err := c.FormFile("videoFile")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.KindValidation, "video file is required")
		return
	}
	thumbFile, err := c.FormFile("thumbnail")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.KindValidation, "thumbnail is required")
		return
	}

	videoPath, cleanupVideo, err := upload.SaveTemp(c, videoFile)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.KindInternal, "failed to receive upload")
		return
	}
	defer cleanupVideo()

	thumbPath, cleanupThumb, err := upload.SaveTemp(c, thumbFile)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.KindInternal, "failed to receive upload")
		return
	}
	defer cleanupThumb()

	video, err := h.videos.Upload(c.Request.Context(), videoservice.UploadParams{
		OwnerID:       user.ID,
		Title:         title,
		Description:   c.PostForm("description"),
		VideoPath:     videoPath,
		ThumbnailPath: thumbPath,
	})
	if err != nil {
		if errors.Is(err, videoservice.ErrTitleRequired) {
			response.Fail(c, http.StatusBadRequest, response.KindValidation, "title is required")
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.KindInternal, "video upload failed")
		return
	}

	response.OK(c, http.StatusCreated, video, "video upload successful")
}

// List returns a page of published videos.
// Query: page, limit, sortBy, sortType, userId.
func (h *Handler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	filter := storage.VideoFilter{
		Owner:     c.Query("userId"),
		Page:      page,
		Limit:     limit,
		SortBy:    c.DefaultQuery("sortBy", "created_at"),
		Ascending: c.DefaultQuery("sortType", "desc") == "asc",
	}

	videos, err := h.videos.List(c.Request.Context(), filter)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.KindInternal, "failed to list videos")
		return
	}
	response.OK(c, http.StatusOK, videos, "videos fetched successfully")
}

// Get returns one video and records it in the watcher's history.
func (h *Handler) Get(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.KindUnauthorized, "unauthorized access")
		return
	}

	video, err := h.videos.Get(c.Request.Context(), c.Param("videoId"), user.ID)
	if err != nil {
		if errors.Is(err, videoservice.ErrVideoNotFound) {
			response.Fail(c, http.StatusNotFound, response.KindNotFound, "video not found")
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.KindInternal, "failed to fetch video")
		return
	}
	response.OK(c, http.StatusOK, video, "video fetched successfully")
}

// Update edits an owned video: title and description as form fields,
// plus an optional replacement thumbnail file.
func (h *Handler) Update(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.KindUnauthorized, "unauthorized access")
		return
	}

	params := videoservice.UpdateParams{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
	}

	if thumbFile, err := c.FormFile("thumbnail"); err == nil {
		path, cleanup, err := upload.SaveTemp(c, thumbFile)
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, response.KindInternal, "failed to receive upload")
			return
		}
		defer cleanup()
		params.ThumbnailPath = path
	}

	video, err := h.videos.Update(c.Request.Context(), c.Param("videoId"), user.ID, params)
	if err != nil {
		switch {
		case errors.Is(err, videoservice.ErrVideoNotFound):
			response.Fail(c, http.StatusNotFound, response.KindNotFound, "video not found")
		case errors.Is(err, videoservice.ErrNotOwner):
			response.Fail(c, http.StatusForbidden, response.KindValidation, "only the owner may modify this video")
		case errors.Is(err, videoservice.ErrNothingToUpdate):
			response.Fail(c, http.StatusBadRequest, response.KindValidation, "nothing to update")
		default:
			response.Fail(c, http.StatusInternalServerError, response.KindInternal, "failed to update video")
		}
		return
	}

	response.OK(c, http.StatusOK, video, "video updated successfully")
}

// Delete removes an owned video.
func (h *Handler) Delete(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.KindUnauthorized, "unauthorized access")
		return
	}

	err := h.videos.Delete(c.Request.Context(), c.Param("videoId"), user.ID)
	if err != nil {
		switch {
		case errors.Is(err, videoservice.ErrVideoNotFound):
			response.Fail(c, http.StatusNotFound, response.KindNotFound, "video not found")
		case errors.Is(err, videoservice.ErrNotOwner):
			response.Fail(c, http.StatusForbidden, response.KindValidation, "only the owner may delete this video")
		default:
			response.Fail(c, http.StatusInternalServerError, response.KindInternal, "failed to delete video")
		}
		return
	}
	response.OK(c, http.StatusOK, nil, "video deleted successfully")
}

// TogglePublish flips an owned video's publish flag.
func (h *Handler) TogglePublish(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.KindUnauthorized, "unauthorized access")
		return
	}

	video, err := h.videos.TogglePublish(c.Request.Context(), c.Param("videoId"), user.ID)
	if err != nil {
		switch {
		case errors.Is(err, videoservice.ErrVideoNotFound):
			response.Fail(c, http.StatusNotFound, response.KindNotFound, "video not found")
		case errors.Is(err, videoservice.ErrNotOwner):
			response.Fail(c, http.StatusForbidden, response.KindValidation, "only the owner may modify this video")
		default:
			response.Fail(c, http.StatusInternalServerError, response.KindInternal, "failed to update video")
		}
		return
	}
	response.OK(c, http.StatusOK, video, "publish status updated")
}

// WatchHistory returns the authenticated user's watched videos,
// most recent first.
func (h *Handler) WatchHistory(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.KindUnauthorized, "unauthorized access")
		return
	}

	videos, err := h.videos.WatchHistory(c.Request.Context(), user.ID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.KindInternal, "failed to fetch watch history")
		return
	}
	response.OK(c, http.StatusOK, videos, "watch history fetched successfully")
}
