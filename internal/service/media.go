package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/foodville/marketplace-api/internal/asset"
)

func saveImage(ctx context.Context, media asset.Storage, dir string, upload Upload) (string, error) {
	path, err := media.Save(ctx, dir, upload.Filename, upload.Body, upload.Size)
	switch {
	case errors.Is(err, asset.ErrFileTooLarge):
		return "", NewValidationError("image", fmt.Sprintf("File size cannot exceed %d MB.", media.MaxBytes()/(1<<20)))
	case errors.Is(err, asset.ErrUnsupportedExt):
		return "", NewValidationError("image", "Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
	case err != nil:
		return "", fmt.Errorf("save image: %w", err)
	}
	return path, nil
}
