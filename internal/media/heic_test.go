package media

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeLibrary struct {
	results [][]byte
	err     error
	quality int
}

func (f *fakeLibrary) ToJPEG(_ context.Context, _ []byte, quality int) ([][]byte, error) {
	f.quality = quality
	return f.results, f.err
}

func TestIsConvertible(t *testing.T) {
	tests := []struct {
		name string
		file File
		want bool
	}{
		{name: "heic mime", file: File{Name: "a.bin", Type: "image/heic"}, want: true},
		{name: "heif mime", file: File{Name: "a.bin", Type: "image/heif"}, want: true},
		{name: "upper case suffix, no mime", file: File{Name: "photo.HEIC"}, want: true},
		{name: "heif suffix, octet-stream", file: File{Name: "x.heif", Type: "application/octet-stream"}, want: true},
		{name: "jpeg", file: File{Name: "x.jpg", Type: "image/jpeg"}, want: false},
		{name: "heic in stem only", file: File{Name: "heic.png", Type: "image/png"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsConvertible(tt.file); got != tt.want {
				t.Errorf("IsConvertible(%+v) = %v, want %v", tt.file, got, tt.want)
			}
		})
	}
}

func TestConvertUsesFirstResult(t *testing.T) {
	first := createTestImage(t, 64, 48, "jpeg")
	lib := &fakeLibrary{results: [][]byte{first, []byte("second")}}
	c := NewConverter(lib, nil)

	modified := time.Date(2023, 11, 2, 8, 30, 0, 0, time.UTC)
	in := NewFile("photo.HEIC", MimeHEIC, make([]byte, 3*1024*1024), modified)

	out, err := c.Convert(context.Background(), in)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if out.Name != "photo.jpg" {
		t.Errorf("Name = %q, want photo.jpg", out.Name)
	}
	if out.Type != MimeJPEG {
		t.Errorf("Type = %q, want %q", out.Type, MimeJPEG)
	}
	if !out.LastModified.Equal(modified) {
		t.Errorf("LastModified = %v, want %v", out.LastModified, modified)
	}
	if out.Size != int64(len(first)) {
		t.Errorf("Size = %d, want %d", out.Size, len(first))
	}
	if lib.quality != ConversionQuality {
		t.Errorf("quality = %d, want %d", lib.quality, ConversionQuality)
	}
}

func TestConvertFailures(t *testing.T) {
	cause := errors.New("libheif: unsupported codec")
	tests := []struct {
		name string
		conv *Converter
	}{
		{name: "library error", conv: NewConverter(&fakeLibrary{err: cause}, nil)},
		{name: "no results", conv: NewConverter(&fakeLibrary{}, nil)},
		{name: "empty first result", conv: NewConverter(&fakeLibrary{results: [][]byte{{}}}, nil)},
		{name: "no library", conv: NewConverter(nil, nil)},
		{name: "nil converter", conv: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.conv.Convert(context.Background(), File{Name: "a.heic", Type: MimeHEIC})
			var cerr *ConversionError
			if !errors.As(err, &cerr) {
				t.Fatalf("error = %v, want *ConversionError", err)
			}
			if cerr.Name != "a.heic" {
				t.Errorf("Name = %q, want a.heic", cerr.Name)
			}
		})
	}

	_, err := NewConverter(&fakeLibrary{err: cause}, nil).Convert(context.Background(), File{Name: "b.heic"})
	if !errors.Is(err, cause) {
		t.Errorf("ConversionError should wrap the library error: %v", err)
	}
}
