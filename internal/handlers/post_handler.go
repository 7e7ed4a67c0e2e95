package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/driftline/driftline-backend/internal/apperr"
	"github.com/driftline/driftline-backend/internal/feed"
	"github.com/driftline/driftline-backend/internal/models"
	"github.com/driftline/driftline-backend/pkg/uploader"
	"github.com/labstack/echo/v4"
)

// PostHandler handles HTTP requests related to posts
type PostHandler struct {
	feedService *feed.Service
	uploads     uploader.Uploader // nil when image uploads are not configured
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(feedService *feed.Service, uploads uploader.Uploader) *PostHandler {
	return &PostHandler{feedService: feedService, uploads: uploads}
}

// RegisterPostRoutes registers post-related routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.POST("/posts", h.CreatePost)
	g.GET("/posts/:post_id", h.GetPost)
	g.DELETE("/posts/:post_id", h.DeletePost)
	g.POST("/posts/:post_id/replies", h.CreateReply)
}

// CreatePost creates a new post. Multipart requests may attach up to
// four images, which upload concurrently before the row is written; if
// any upload fails the whole request fails and nothing is kept.
func (h *PostHandler) CreatePost(c echo.Context) error {
	viewerID, err := requireViewer(c)
	if err != nil {
		return err
	}

	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		return h.createPostMultipart(c, viewerID)
	}

	var req models.CreatePostRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, apperr.Validation("body", "invalid request payload"))
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, apperr.Validation("body", err.Error()))
	}

	view, err := h.feedService.CreatePost(viewerID, req.Content, req.ImageURLs, 0)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusCreated, view)
}

func (h *PostHandler) createPostMultipart(c echo.Context, viewerID uint) error {
	content := c.FormValue("content")
	req := models.CreatePostRequest{Content: content}
	if err := c.Validate(&req); err != nil {
		return respondError(c, apperr.Validation("content", err.Error()))
	}

	form, err := c.MultipartForm()
	if err != nil {
		return respondError(c, apperr.Validation("body", "invalid multipart payload"))
	}

	fileHeaders := form.File["images"]
	if len(fileHeaders) > uploader.MaxImages {
		return respondError(c, apperr.Validation("images", fmt.Sprintf("at most %d images per post", uploader.MaxImages)))
	}

	var imageURLs []string
	if len(fileHeaders) > 0 {
		if h.uploads == nil {
			return respondError(c, apperr.Validation("images", "image uploads are not configured"))
		}
		files := make([]uploader.File, 0, len(fileHeaders))
		for i, fh := range fileHeaders {
			src, oerr := fh.Open()
			if oerr != nil {
				return respondError(c, apperr.Validation("images", "unreadable image upload"))
			}
			defer src.Close()
			files = append(files, uploader.File{
				Name:    fmt.Sprintf("posts/%d/%d-%d-%s", viewerID, time.Now().UnixNano(), i, fh.Filename),
				Content: src,
			})
		}
		imageURLs, err = uploader.UploadBatch(c.Request().Context(), h.uploads, files)
		if err != nil {
			return respondError(c, apperr.Internal(err))
		}
	}

	view, err := h.feedService.CreatePost(viewerID, content, imageURLs, 0)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusCreated, view)
}

// GetPost retrieves a single post with its viewer-specific enrichment
func (h *PostHandler) GetPost(c echo.Context) error {
	viewerID, err := requireViewer(c)
	if err != nil {
		return err
	}
	postID, err := parseUintParam(c.Param("post_id"))
	if err != nil {
		return respondError(c, apperr.Validation("post_id", "invalid post ID"))
	}

	view, err := h.feedService.GetPost(viewerID, postID)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, view)
}

// DeletePost soft-deletes the viewer's own post
func (h *PostHandler) DeletePost(c echo.Context) error {
	viewerID, err := requireViewer(c)
	if err != nil {
		return err
	}
	postID, err := parseUintParam(c.Param("post_id"))
	if err != nil {
		return respondError(c, apperr.Validation("post_id", "invalid post ID"))
	}

	if err := h.feedService.DeletePost(viewerID, postID); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// CreateReply creates a reply to an existing post
func (h *PostHandler) CreateReply(c echo.Context) error {
	viewerID, err := requireViewer(c)
	if err != nil {
		return err
	}
	postID, err := parseUintParam(c.Param("post_id"))
	if err != nil {
		return respondError(c, apperr.Validation("post_id", "invalid post ID"))
	}

	var req models.CreateReplyRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, apperr.Validation("body", "invalid request payload"))
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, apperr.Validation("content", err.Error()))
	}

	view, err := h.feedService.CreatePost(viewerID, req.Content, nil, postID)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusCreated, view)
}
