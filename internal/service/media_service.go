package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	"github.com/maheshrc27/threads-poster/internal/models"
	"github.com/maheshrc27/threads-poster/pkg/utils"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

var allowedImageTypes = map[string]struct{}{
	"jpg": {}, "jpeg": {}, "png": {}, "gif": {}, "webp": {},
}

// MediaService turns an image reference into a URL the Threads API can fetch.
type MediaService interface {
	ResolveImageURL(ctx context.Context, ref *models.ImageRef) (string, error)
}

type mediaService struct {
	store ObjectStore
}

// NewMediaService accepts a nil store; only http(s) images work then.
func NewMediaService(store ObjectStore) MediaService {
	return &mediaService{store: store}
}

func (s *mediaService) ResolveImageURL(ctx context.Context, ref *models.ImageRef) (string, error) {
	loc := ref.Location
	lower := strings.ToLower(loc)

	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return loc, nil
	case strings.HasPrefix(lower, "r2://"):
		if s.store == nil {
			return "", utils.Permanent(errors.New("r2 image reference requires R2 configuration"))
		}
		return s.store.PublicURL(loc[len("r2://"):]), nil
	}

	if s.store == nil {
		return "", utils.Permanent(fmt.Errorf("local image %s requires R2 configuration", loc))
	}

	fileBytes, err := os.ReadFile(loc)
	if err != nil {
		return "", utils.Permanent(fmt.Errorf("error reading image: %w", err))
	}

	fileType, err := filetype.Match(fileBytes)
	if err != nil || fileType == types.Unknown {
		return "", utils.Permanent(fmt.Errorf("unsupported file type for %s", loc))
	}
	if _, ok := allowedImageTypes[fileType.Extension]; !ok {
		return "", utils.Permanent(fmt.Errorf("file type %s is not allowed", fileType.Extension))
	}

	id, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	key := id + "." + fileType.Extension

	if err := s.store.UploadToR2(ctx, key, fileBytes, fileType.MIME.Value); err != nil {
		return "", fmt.Errorf("error uploading image: %w", err)
	}

	slog.Info("uploaded image", "path", loc, "key", key)
	return s.store.PublicURL(key), nil
}
