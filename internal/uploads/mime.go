package uploads

import (
	"fmt"
	"mime"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var allowedImageTypes = []string{
	"image/jpeg",
	"image/png",
	"image/webp",
	"image/gif",
	"image/bmp",
	"image/tiff",
	"image/heic",
}

var allowedImageDescription = buildAllowedDescription()

func buildAllowedDescription() string {
	names := make([]string, 0, len(allowedImageTypes))
	for _, value := range allowedImageTypes {
		names = append(names, strings.TrimPrefix(value, "image/"))
	}
	sort.Strings(names)
	return humanReadableList(names)
}

func humanReadableList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return fmt.Sprintf("%s or %s", items[0], items[1])
	default:
		return fmt.Sprintf("%s, or %s", strings.Join(items[:len(items)-1], ", "), items[len(items)-1])
	}
}

// detectImageType sniffs data and returns the bare media type when it is an
// accepted image format.
func detectImageType(data []byte) (string, bool) {
	detected := mimetype.Detect(data)
	for _, allowed := range allowedImageTypes {
		if detected.Is(allowed) {
			mediaType, _, err := mime.ParseMediaType(detected.String())
			if err != nil || mediaType == "" {
				return allowed, true
			}
			return strings.ToLower(mediaType), true
		}
	}
	return detected.String(), false
}
