package helpers

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"path/filepath"
	"testing"
	"time"

	"go.viam.com/test"

	"ppe-monitor-go/internal/models"
)

func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestClipBounds(t *testing.T) {
	frame := image.Rect(0, 0, 200, 200)

	r, err := ClipBounds(models.Bounds{X1: 190, Y1: 190, X2: 250, Y2: 250}, frame)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, r, test.ShouldResemble, image.Rect(190, 190, 200, 200))

	r, err = ClipBounds(models.Bounds{X1: -20, Y1: 10, X2: 30, Y2: 40}, frame)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, r, test.ShouldResemble, image.Rect(0, 10, 30, 40))

	for name, b := range map[string]models.Bounds{
		"zero width":   {X1: 10, Y1: 10, X2: 10, Y2: 50},
		"zero height":  {X1: 10, Y1: 10, X2: 50, Y2: 10},
		"inverted":     {X1: 50, Y1: 50, X2: 10, Y2: 10},
		"outside":      {X1: 300, Y1: 300, X2: 400, Y2: 400},
		"touches edge": {X1: 200, Y1: 0, X2: 260, Y2: 100},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ClipBounds(b, frame)
			test.That(t, err, test.ShouldEqual, ErrEmptyCrop)
		})
	}
}

func TestCropImage(t *testing.T) {
	frame := solidImage(200, 200, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	crop, clipped, err := CropImage(frame, models.Bounds{X1: 190, Y1: 190, X2: 250, Y2: 250})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, crop.Bounds().Dx(), test.ShouldEqual, 10)
	test.That(t, crop.Bounds().Dy(), test.ShouldEqual, 10)
	test.That(t, crop.Bounds().Min, test.ShouldResemble, image.Point{})
	test.That(t, clipped, test.ShouldResemble, image.Rect(190, 190, 200, 200))

	_, _, err = CropImage(frame, models.Bounds{X1: 5, Y1: 5, X2: 5, Y2: 5})
	test.That(t, err, test.ShouldEqual, ErrEmptyCrop)

	_, _, err = CropImage(nil, models.Bounds{X2: 1, Y2: 1})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestEncodeJPEG(t *testing.T) {
	data, err := EncodeJPEG(solidImage(32, 16, color.White), MediumQuality)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, data[:2], test.ShouldResemble, []byte{0xFF, 0xD8})

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Width, test.ShouldEqual, 32)
	test.That(t, cfg.Height, test.ShouldEqual, 16)
}

func TestThumbnail(t *testing.T) {
	th := Thumbnail(solidImage(40, 80, color.White), ThumbnailSize)
	test.That(t, th.Bounds().Dx(), test.ShouldEqual, ThumbnailSize)
	test.That(t, th.Bounds().Dy(), test.ShouldEqual, ThumbnailSize)
}

func TestSnapshotName(t *testing.T) {
	ts := time.Unix(1700000000, 900_000_000)
	test.That(t, SnapshotName("NO-Hardhat", ts, 0), test.ShouldEqual, "NO-Hardhat_1700000000.jpg")
	test.That(t, SnapshotName("NO-Safety Vest", ts, 3), test.ShouldEqual, "NO-Safety Vest_1700000000_3.jpg")
}

func TestSnapshotNameStaysInDirectory(t *testing.T) {
	ts := time.Unix(1700000000, 0)
	for label, want := range map[string]string{
		"no/helmet":  "no-helmet_1700000000.jpg",
		"../x":       "..-x_1700000000.jpg",
		`a\b`:        "a-b_1700000000.jpg",
		"C:vest":     "C-vest_1700000000.jpg",
		"tab\there":  "tab-here_1700000000.jpg",
		"NO-Hardhat": "NO-Hardhat_1700000000.jpg",
	} {
		name := SnapshotName(label, ts, 0)
		test.That(t, name, test.ShouldEqual, want)
		test.That(t, filepath.Base(name), test.ShouldEqual, name)
	}
}
