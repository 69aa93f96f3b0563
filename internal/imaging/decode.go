package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"strings"
)

// DecodeBase64Image decodes a base64-encoded image payload into an
// image.Image. The payload may be a bare base64 string or a data URL of the
// form "data:image/png;base64,....". PNG, JPEG and GIF are supported.
func DecodeBase64Image(data string) (image.Image, error) {
	payload := strings.TrimSpace(data)
	if payload == "" {
		return nil, fmt.Errorf("no image data supplied")
	}

	if strings.HasPrefix(payload, "data:image") {
		idx := strings.IndexByte(payload, ',')
		if idx < 0 {
			return nil, fmt.Errorf("malformed data URL: missing payload")
		}
		payload = payload[idx+1:]
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 image data: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}
