package handler

import (
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/foodville/marketplace-api/internal/service"
)

const imageField = "image"

// readUpload opens the multipart image field. The returned file must be
// closed by the caller.
func readUpload(c *gin.Context) (service.Upload, multipart.File, bool) {
	header, err := c.FormFile(imageField)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": gin.H{imageField: "No file was submitted."}})
		return service.Upload{}, nil, false
	}
	file, err := header.Open()
	if err != nil {
		respondError(c, err)
		return service.Upload{}, nil, false
	}
	return service.Upload{Filename: header.Filename, Size: header.Size, Body: file}, file, true
}
