package utils

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	_ "golang.org/x/image/webp"
)

var (
	ErrNoFile        = errors.New("no file uploaded")
	ErrFileTooLarge  = errors.New("file size exceeds limit")
	ErrNotAnImage    = errors.New("uploaded file is not an image")
	ErrUnknownFormat = errors.New("unsupported image format")
)

// FrameInfo is what the decoder learned from an image header.
type FrameInfo struct {
	Width  int
	Height int
	Format string
}

type IUtils interface {
	NewULIDFromTimestamp(t time.Time) (string, error)
	ValidateImageFile(file *multipart.FileHeader) error
	ReadFile(file *multipart.FileHeader) ([]byte, error)
	DecodeBase64Image(s string) ([]byte, error)
	InspectFrame(data []byte) (FrameInfo, error)
}

type utils struct {
	maxFileSize int64
}

func New() IUtils {
	return &utils{
		maxFileSize: 5 * 1024 * 1024,
	}
}

func (u *utils) NewULIDFromTimestamp(t time.Time) (string, error) {
	ms := ulid.Timestamp(t)
	entropy := ulid.Monotonic(rand.Reader, 0)

	id, err := ulid.New(ms, entropy)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

func (u *utils) ValidateImageFile(file *multipart.FileHeader) error {
	if file == nil {
		return ErrNoFile
	}

	if file.Size > u.maxFileSize {
		return ErrFileTooLarge
	}

	contentType := file.Header.Get("Content-Type")
	if contentType != "" && contentType != "application/octet-stream" && !strings.HasPrefix(contentType, "image/") {
		return ErrNotAnImage
	}

	return nil
}

func (u *utils) ReadFile(file *multipart.FileHeader) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(io.LimitReader(f, u.maxFileSize+1))
}

// DecodeBase64Image accepts plain base64 as well as a data URL such as the
// ones produced by canvas.toDataURL in the browser.
func (u *utils) DecodeBase64Image(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		comma := strings.IndexByte(s, ',')
		if comma < 0 {
			return nil, errors.New("malformed data url")
		}
		s = s[comma+1:]
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 image: %w", err)
	}
	if int64(len(data)) > u.maxFileSize {
		return nil, ErrFileTooLarge
	}
	return data, nil
}

// InspectFrame reads only the image header, enough to know the frame size for
// pixel conversions.
func (u *utils) InspectFrame(data []byte) (FrameInfo, error) {
	if len(data) == 0 {
		return FrameInfo{}, ErrNoFile
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return FrameInfo{}, ErrUnknownFormat
		}
		return FrameInfo{}, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return FrameInfo{}, fmt.Errorf("invalid frame size %dx%d", cfg.Width, cfg.Height)
	}
	return FrameInfo{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}
