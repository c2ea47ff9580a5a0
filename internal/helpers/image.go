package helpers

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"requirement-refiner/internal/models"
)

// ErrNotImage is returned when the selected file is not an image
var ErrNotImage = errors.New("selected file is not an image")

// EncodeImage converts image bytes into a transport-safe attachment.
// Encoded carries the bare base64 payload; PreviewURL is the full data URI.
func EncodeImage(data []byte) (*models.Attachment, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("image is empty")
	}

	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		return nil, fmt.Errorf("%w (detected %s)", ErrNotImage, mime.String())
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	return &models.Attachment{
		Encoded:    encoded,
		PreviewURL: fmt.Sprintf("data:%s;base64,%s", mime.String(), encoded),
		MIMEType:   mime.String(),
	}, nil
}

// LoadImage reads and encodes an image file
func LoadImage(path string) (*models.Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return EncodeImage(data)
}
