package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log"
	"strings"
	"time"

	mp4 "github.com/abema/go-mp4"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/DangLinWang11/tip-app-sub004/config"
	"github.com/DangLinWang11/tip-app-sub004/internal/draft"
)

const (
	maxImageBytes = 8 << 20  // images above this are recompressed
	maxImageEdge  = 1600     // px, longest edge after downscale
	jpegQuality   = 85
	thumbEdge     = 320
	mediumEdge    = 800

	maxVideoBytes   = 50 << 20
	maxVideoSeconds = 20.0

	uploadTimeout = 2 * time.Minute
)

// UploadFile is one user-selected file handed to the pipeline. Poster is an
// optional client-captured frame for videos, uploaded as the thumbnail.
type UploadFile struct {
	Name        string
	ContentType string
	Data        []byte
	Poster      []byte
}

// S3ObjectStore stores media blobs in the configured S3 bucket.
type S3ObjectStore struct {
	cfg *config.S3Config
}

func NewS3ObjectStore(cfg *config.S3Config) *S3ObjectStore {
	return &S3ObjectStore{cfg: cfg}
}

// Put uploads the blob and returns its download URL: the public object URL
// when the bucket policy allows it, a long-lived presigned URL otherwise.
func (s *S3ObjectStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.cfg.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	if s.cfg.PublicRead {
		return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.cfg.BucketName, key), nil
	}
	return s.cfg.GeneratePresignedURL(ctx, key, 7*24*time.Hour)
}

// MediaService validates, recompresses and uploads user-selected media
// without blocking the wizard.
type MediaService struct {
	store ObjectStore
}

func NewMediaService(store ObjectStore) *MediaService {
	return &MediaService{store: store}
}

// Upload stages one pending pool item per accepted file and returns their
// ids synchronously, positionally matching the accepted input files, before
// any network I/O happens. Files with MIME types that are neither image nor
// video are silently skipped. Each accepted file is then processed on its
// own goroutine; one file's failure never aborts its siblings.
func (m *MediaService) Upload(sess *draft.Session, files []UploadFile) []string {
	gen := sess.Generation()

	type staged struct {
		item draft.LocalMediaItem
		file UploadFile
	}
	var accepted []staged
	for _, f := range files {
		kind, ok := classifyKind(f.ContentType)
		if !ok {
			continue
		}
		accepted = append(accepted, staged{
			item: draft.LocalMediaItem{
				ID:        uuid.New().String(),
				Kind:      kind,
				Status:    draft.MediaUploading,
				LocalName: f.Name,
			},
			file: f,
		})
	}
	if len(accepted) == 0 {
		return nil
	}

	items := make([]draft.LocalMediaItem, len(accepted))
	ids := make([]string, len(accepted))
	for i, a := range accepted {
		items[i] = a.item
		ids[i] = a.item.ID
	}
	sess.StageMedia(items)

	for _, a := range accepted {
		go m.process(sess, gen, a.item, a.file)
	}
	return ids
}

// process runs the per-file pipeline. It outlives the originating request,
// so it carries its own timeout instead of the request context.
func (m *MediaService) process(sess *draft.Session, gen int64, item draft.LocalMediaItem, file UploadFile) {
	ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
	defer cancel()

	var err error
	switch item.Kind {
	case draft.MediaPhoto:
		err = m.processPhoto(ctx, sess, gen, item, file)
	case draft.MediaVideo:
		err = m.processVideo(ctx, sess, gen, item, file)
	}
	if err != nil {
		log.Printf("[MediaService] upload failed for %s: %v", file.Name, err)
		sess.FailMedia(gen, item.ID, err.Error())
	}
}

func (m *MediaService) processPhoto(ctx context.Context, sess *draft.Session, gen int64, item draft.LocalMediaItem, file UploadFile) error {
	img, err := imaging.Decode(bytes.NewReader(file.Data), imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("unable to decode image: %w", err)
	}

	data := file.Data
	contentType := file.ContentType
	ext := extensionFor(contentType)
	bounds := img.Bounds()
	if len(data) > maxImageBytes || bounds.Dx() > maxImageEdge || bounds.Dy() > maxImageEdge {
		img = imaging.Fit(img, maxImageEdge, maxImageEdge, imaging.Lanczos)
		data, err = encodeJPEG(img)
		if err != nil {
			return err
		}
		contentType = "image/jpeg"
		ext = ".jpg"
	}

	base := fmt.Sprintf("media/%s", uuid.New().String())
	key := base + ext
	url, err := m.store.Put(ctx, key, data, contentType)
	if err != nil {
		return err
	}

	// Variant objects share the base name, but their download URLs are
	// recorded as returned: a presigned URL cannot be re-derived by suffixing.
	thumb := imaging.Fit(img, thumbEdge, thumbEdge, imaging.Lanczos)
	medium := imaging.Fit(img, mediumEdge, mediumEdge, imaging.Lanczos)
	thumbData, err := encodeJPEG(thumb)
	if err != nil {
		return err
	}
	thumbKey := base + "_thumb" + ext
	thumbURL, err := m.store.Put(ctx, thumbKey, thumbData, "image/jpeg")
	if err != nil {
		return err
	}
	mediumData, err := encodeJPEG(medium)
	if err != nil {
		return err
	}
	mediumKey := base + "_med" + ext
	mediumURL, err := m.store.Put(ctx, mediumKey, mediumData, "image/jpeg")
	if err != nil {
		return err
	}

	sess.CompleteMedia(gen, item.ID, draft.UploadResult{
		StoragePath: key,
		URL:         url,
		ThumbPath:   thumbKey,
		ThumbURL:    thumbURL,
		MediumPath:  mediumKey,
		MediumURL:   mediumURL,
	})
	return nil
}

func (m *MediaService) processVideo(ctx context.Context, sess *draft.Session, gen int64, item draft.LocalMediaItem, file UploadFile) error {
	if len(file.Data) > maxVideoBytes {
		return fmt.Errorf("video exceeds the %d MB size limit", maxVideoBytes>>20)
	}
	seconds, err := probeVideoDuration(file.Data)
	if err != nil {
		return fmt.Errorf("unable to read video metadata: %w", err)
	}
	if seconds > maxVideoSeconds {
		return fmt.Errorf("video is %.1fs, longer than the %.0fs limit", seconds, maxVideoSeconds)
	}

	base := fmt.Sprintf("media/%s", uuid.New().String())
	key := base + ".mp4"
	url, err := m.store.Put(ctx, key, file.Data, file.ContentType)
	if err != nil {
		return err
	}

	thumbKey, thumbURL := "", ""
	if len(file.Poster) > 0 {
		if poster, err := imaging.Decode(bytes.NewReader(file.Poster)); err == nil {
			poster = imaging.Fit(poster, mediumEdge, mediumEdge, imaging.Lanczos)
			if posterData, err := encodeJPEG(poster); err == nil {
				thumbKey = base + "_poster.jpg"
				if u, err := m.store.Put(ctx, thumbKey, posterData, "image/jpeg"); err == nil {
					thumbURL = u
				} else {
					// A missing thumbnail is not worth failing the video for.
					log.Printf("[MediaService] poster upload failed for %s: %v", file.Name, err)
					thumbKey = ""
				}
			}
		}
	}

	sess.CompleteMedia(gen, item.ID, draft.UploadResult{
		StoragePath: key,
		URL:         url,
		ThumbPath:   thumbKey,
		ThumbURL:    thumbURL,
	})
	return nil
}

// probeVideoDuration reads the mp4 movie header for the duration in seconds.
func probeVideoDuration(data []byte) (float64, error) {
	info, err := mp4.Probe(bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	if info.Timescale == 0 {
		return 0, fmt.Errorf("missing timescale")
	}
	return float64(info.Duration) / float64(info.Timescale), nil
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

func classifyKind(contentType string) (draft.MediaKind, bool) {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return draft.MediaPhoto, true
	case strings.HasPrefix(contentType, "video/"):
		return draft.MediaVideo, true
	}
	return "", false
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
