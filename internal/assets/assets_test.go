package assets

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
	"testing/fstest"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestLookup(t *testing.T) {
	lib := NewFS(fstest.MapFS{
		"retina_anatomy.jpg": {Data: pngBytes(t)},
		"amd_oct.jpg":        {Data: []byte("not an image")},
	})

	tests := []struct {
		name      string
		available bool
	}{
		{"retina_anatomy.jpg", true},
		{"amd_oct.jpg", false},
		{"diabetic_retinopathy.jpg", false},
		{"../etc/passwd", false},
		{"/retina_anatomy.jpg", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := lib.Lookup(tt.name)
			if img.Available != tt.available {
				t.Errorf("Lookup(%q).Available = %v, want %v", tt.name, img.Available, tt.available)
			}
			if img.Name != tt.name {
				t.Errorf("Lookup(%q).Name = %q", tt.name, img.Name)
			}
		})
	}

	img := lib.Lookup("retina_anatomy.jpg")
	if img.ContentType != "image/png" || img.Width != 4 || img.Height != 3 {
		t.Errorf("unexpected image info %+v", img)
	}
}

func TestOpen(t *testing.T) {
	data := pngBytes(t)
	lib := NewFS(fstest.MapFS{"a.png": {Data: data}, "bad.png": {Data: []byte("x")}})

	got, ct, ok := lib.Open("a.png")
	if !ok || ct != "image/png" || !bytes.Equal(got, data) {
		t.Errorf("Open(a.png) = %d bytes, %q, %v", len(got), ct, ok)
	}
	if _, _, ok := lib.Open("bad.png"); ok {
		t.Error("Open(bad.png) should be unavailable")
	}
	if _, _, ok := lib.Open("missing.png"); ok {
		t.Error("Open(missing.png) should be unavailable")
	}
}

func TestEmptyLibrary(t *testing.T) {
	lib := New("")
	if lib.Lookup("retina_anatomy.jpg").Available {
		t.Error("empty library should have nothing available")
	}
	lib = New(t.TempDir())
	if lib.Lookup("retina_anatomy.jpg").Available {
		t.Error("empty directory should have nothing available")
	}
}
