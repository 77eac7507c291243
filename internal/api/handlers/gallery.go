package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"ppe-monitor-go/internal/helpers"
	"ppe-monitor-go/internal/logging"
	"ppe-monitor-go/internal/models"
)

// GalleryProvider returns the recent violations, oldest first.
type GalleryProvider interface {
	Gallery() []models.GalleryItem
}

type GalleryHandler struct {
	gallery GalleryProvider
	quality int
}

func NewGalleryHandler(gallery GalleryProvider, quality int) *GalleryHandler {
	return &GalleryHandler{gallery: gallery, quality: quality}
}

type GalleryEntry struct {
	Index     int       `json:"index" example:"0"`
	Label     string    `json:"label" example:"NO-Hardhat"`
	Timestamp time.Time `json:"timestamp"`
	Width     int       `json:"width" example:"64"`
	Height    int       `json:"height" example:"128"`
	ImageURL  string    `json:"image_url" example:"/gallery/0/image"`
}

type GalleryResponse struct {
	Count   int            `json:"count" example:"2"`
	Entries []GalleryEntry `json:"entries"`
}

// @Summary List the violation gallery
// @Description Recent violation crops currently shown on screen, oldest first
// @Tags gallery
// @Produce json
// @Success 200 {object} GalleryResponse
// @Router /gallery [get]
func (h *GalleryHandler) ListGallery(c *gin.Context) {
	items := h.gallery.Gallery()
	entries := lo.Map(items, func(it models.GalleryItem, i int) GalleryEntry {
		b := it.Image.Bounds()
		return GalleryEntry{
			Index:     i,
			Label:     it.Label,
			Timestamp: it.Timestamp,
			Width:     b.Dx(),
			Height:    b.Dy(),
			ImageURL:  "/gallery/" + strconv.Itoa(i) + "/image",
		}
	})
	c.JSON(http.StatusOK, GalleryResponse{Count: len(entries), Entries: entries})
}

// @Summary Gallery image
// @Description JPEG of one gallery crop
// @Tags gallery
// @Produce image/jpeg
// @Param index path int true "Gallery index, 0 is the oldest"
// @Success 200 {file} binary
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /gallery/{index}/image [get]
func (h *GalleryHandler) GetImage(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "index must be a non-negative integer"})
		return
	}

	items := h.gallery.Gallery()
	if index >= len(items) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "gallery entry not found"})
		return
	}

	data, err := helpers.EncodeJPEG(items[index].Image, h.quality)
	if err != nil {
		logging.Error(c).Err(err).Int("index", index).Msg("Failed to encode gallery image")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to encode image"})
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "image/jpeg", data)
}
