package media

import (
	"bytes"
	"path/filepath"
	"strings"
	"time"
)

const (
	// MimeJPEG is the MIME type of every pipeline output.
	MimeJPEG = "image/jpeg"
	// MimeHEIC is the declared type of Apple HEIC photos.
	MimeHEIC = "image/heic"
	// MimeHEIF is the declared type of generic HEIF photos.
	MimeHEIF = "image/heif"
)

// File is a named binary blob with the metadata a browser attaches to a
// selected or captured photo.
type File struct {
	Name         string
	Type         string
	Size         int64
	LastModified time.Time
	Data         []byte
}

// NewFile builds a File from raw bytes, deriving Size from the data.
func NewFile(name, mimeType string, data []byte, lastModified time.Time) File {
	return File{
		Name:         name,
		Type:         mimeType,
		Size:         int64(len(data)),
		LastModified: lastModified,
		Data:         data,
	}
}

// Stem returns the file name without its final extension.
func (f File) Stem() string {
	return strings.TrimSuffix(f.Name, filepath.Ext(f.Name))
}

// Reader returns a fresh reader over the file contents.
func (f File) Reader() *bytes.Reader {
	return bytes.NewReader(f.Data)
}

// Dimensions holds image width and height
type Dimensions struct {
	Width  int
	Height int
}

// Fits reports whether both dimensions are within the bounding box.
func (d Dimensions) Fits(maxWidth, maxHeight int) bool {
	return d.Width <= maxWidth && d.Height <= maxHeight
}

// mimeTypes maps file extensions to their MIME types.
var mimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".heic": MimeHEIC,
	".heif": MimeHEIF,
}

// TypeByName returns the MIME type for a file name's extension, or
// "application/octet-stream" when the extension is not a known image type.
func TypeByName(name string) string {
	if mime, ok := mimeTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return mime
	}
	return "application/octet-stream"
}

// SniffFormat inspects the magic bytes of data and names the container
// format. Camera apps sometimes mislabel files, so this is only used for
// diagnostics, never for validation.
func SniffFormat(data []byte) string {
	header := data
	if len(header) > 32 {
		header = header[:32]
	}

	switch {
	case len(header) >= 3 && header[0] == 0xFF && header[1] == 0xD8 && header[2] == 0xFF:
		return "jpeg"
	case len(header) >= 8 && bytes.HasPrefix(header, []byte("\x89PNG")):
		return "png"
	case len(header) >= 4 && bytes.HasPrefix(header, []byte("GIF8")):
		return "gif"
	case len(header) >= 12 && bytes.HasPrefix(header, []byte("RIFF")) && string(header[8:12]) == "WEBP":
		return "webp"
	case len(header) >= 2 && header[0] == 'B' && header[1] == 'M':
		return "bmp"
	case len(header) >= 4 && (bytes.HasPrefix(header, []byte("II*\x00")) || bytes.HasPrefix(header, []byte("MM\x00*"))):
		return "tiff"
	case len(header) >= 12 && string(header[4:8]) == "ftyp":
		switch string(header[8:12]) {
		case "heic", "heix", "hevc", "hevx", "mif1", "msf1":
			return "heif"
		case "avif", "avis":
			return "avif"
		}
		return "mp4-container"
	}
	return "unknown"
}
