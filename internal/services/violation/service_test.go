package violation

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"

	"ppe-monitor-go/internal/config"
	"ppe-monitor-go/internal/models"
	"ppe-monitor-go/internal/services/storage"
)

type memoryStore struct {
	names []string
	fail  error
}

func (m *memoryStore) Save(_ context.Context, name string, _ image.Image) (string, error) {
	if m.fail != nil {
		return "mem/" + name, m.fail
	}
	m.names = append(m.names, name)
	return "mem/" + name, nil
}

func newTestService(t *testing.T, store storage.SnapshotStore, opts ...Option) (*Service, *clock.Mock) {
	t.Helper()
	classes, err := config.DefaultClasses()
	test.That(t, err, test.ShouldBeNil)

	mock := clock.NewMock()
	mock.Set(time.Unix(1700000000, 0))

	svc, err := NewService(classes, store, append([]Option{WithClock(mock)}, opts...)...)
	test.That(t, err, test.ShouldBeNil)
	return svc, mock
}

func frame(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	return img
}

func det(label string, x1, y1, x2, y2 int) models.Detection {
	return models.Detection{Label: label, Score: 0.9, BBox: models.Bounds{X1: x1, Y1: y1, X2: x2, Y2: y2}}
}

func labels(items []models.GalleryItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Label
	}
	return out
}

func TestRecordFrameClipsToFrame(t *testing.T) {
	store := &memoryStore{}
	svc, _ := newTestService(t, store)

	records, err := svc.RecordFrame(context.Background(), frame(200, 200),
		[]models.Detection{det("NO-Hardhat", 190, 190, 250, 250)})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, records, test.ShouldHaveLength, 1)

	rec := records[0]
	test.That(t, rec.Image.Bounds().Dx(), test.ShouldEqual, 10)
	test.That(t, rec.Image.Bounds().Dy(), test.ShouldEqual, 10)
	test.That(t, rec.BBox, test.ShouldResemble, models.Bounds{X1: 190, Y1: 190, X2: 200, Y2: 200})
	test.That(t, rec.Persisted, test.ShouldBeTrue)
	test.That(t, store.names, test.ShouldResemble, []string{"NO-Hardhat_1700000000.jpg"})
}

func TestRecordFrameIgnoresNonViolations(t *testing.T) {
	store := &memoryStore{}
	svc, _ := newTestService(t, store)

	records, err := svc.RecordFrame(context.Background(), frame(100, 100), []models.Detection{
		det("Hardhat", 0, 0, 50, 50),
		det("Person", 10, 10, 90, 90),
		det("Safety Vest", 5, 5, 20, 20),
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, records, test.ShouldBeEmpty)
	test.That(t, store.names, test.ShouldBeEmpty)
	test.That(t, svc.CurrentGallery(), test.ShouldBeEmpty)
}

func TestRecordFrameSkipsEmptyCrops(t *testing.T) {
	store := &memoryStore{}
	svc, _ := newTestService(t, store)

	records, err := svc.RecordFrame(context.Background(), frame(100, 100), []models.Detection{
		det("NO-Mask", 10, 10, 10, 40),
		det("NO-Mask", 150, 150, 180, 180),
		det("NO-Mask", 40, 40, 20, 20),
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, records, test.ShouldBeEmpty)
	test.That(t, store.names, test.ShouldBeEmpty)
	test.That(t, svc.CurrentGallery(), test.ShouldBeEmpty)
}

func TestGalleryBoundedFIFO(t *testing.T) {
	svc, mock := newTestService(t, &memoryStore{})

	names := []string{"NO-Hardhat", "NO-Mask", "NO-Safety Vest", "NO-Gloves", "NO-Hardhat", "NO-Mask"}
	for _, n := range names {
		_, err := svc.RecordFrame(context.Background(), frame(50, 50), []models.Detection{det(n, 0, 0, 10, 10)})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, len(svc.CurrentGallery()), test.ShouldBeLessThanOrEqualTo, 5)
		mock.Add(time.Second)
	}

	g := svc.CurrentGallery()
	test.That(t, labels(g), test.ShouldResemble, names[1:])
	test.That(t, g[0].Timestamp.Unix(), test.ShouldEqual, int64(1700000001))
}

func TestCurrentGalleryIdempotent(t *testing.T) {
	svc, _ := newTestService(t, &memoryStore{})
	_, err := svc.RecordFrame(context.Background(), frame(50, 50), []models.Detection{
		det("NO-Hardhat", 0, 0, 10, 10),
		det("NO-Gloves", 20, 20, 30, 30),
	})
	test.That(t, err, test.ShouldBeNil)

	first := svc.CurrentGallery()
	second := svc.CurrentGallery()
	test.That(t, second, test.ShouldResemble, first)
	test.That(t, labels(first), test.ShouldResemble, []string{"NO-Hardhat", "NO-Gloves"})
}

func TestStorageFailureStillUpdatesGallery(t *testing.T) {
	store := &memoryStore{fail: errors.New("disk full")}
	svc, _ := newTestService(t, store)

	records, err := svc.RecordFrame(context.Background(), frame(50, 50), []models.Detection{
		det("NO-Hardhat", 0, 0, 10, 10),
		det("NO-Mask", 10, 10, 20, 20),
	})
	test.That(t, err, test.ShouldNotBeNil)

	var werr *StorageWriteError
	test.That(t, errors.As(err, &werr), test.ShouldBeTrue)
	test.That(t, werr.Path, test.ShouldEqual, "mem/NO-Hardhat_1700000000.jpg")
	test.That(t, err.Error(), test.ShouldContainSubstring, "NO-Mask_1700000000.jpg")

	test.That(t, records, test.ShouldHaveLength, 2)
	test.That(t, records[0].Persisted, test.ShouldBeFalse)
	test.That(t, labels(svc.CurrentGallery()), test.ShouldResemble, []string{"NO-Hardhat", "NO-Mask"})
}

func TestUniqueNames(t *testing.T) {
	store := &memoryStore{}
	svc, _ := newTestService(t, store, WithUniqueNames(true))

	_, err := svc.RecordFrame(context.Background(), frame(50, 50), []models.Detection{
		det("NO-Mask", 0, 0, 10, 10),
		det("NO-Mask", 10, 10, 20, 20),
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, store.names, test.ShouldResemble, []string{"NO-Mask_1700000000_1.jpg", "NO-Mask_1700000000_2.jpg"})
}

func TestResetClearsGallery(t *testing.T) {
	svc, _ := newTestService(t, &memoryStore{})
	_, err := svc.RecordFrame(context.Background(), frame(50, 50), []models.Detection{det("NO-Mask", 0, 0, 10, 10)})
	test.That(t, err, test.ShouldBeNil)

	svc.Reset()
	test.That(t, svc.CurrentGallery(), test.ShouldBeEmpty)
}

func TestCustomVocabulary(t *testing.T) {
	classes, err := models.NewClassSet([]string{"helmet", "no-helmet"},
		map[string]color.RGBA{"no-helmet": {R: 255, A: 255}}, color.RGBA{A: 255})
	test.That(t, err, test.ShouldBeNil)

	store := &memoryStore{}
	svc, err := NewService(classes, store, WithClock(clock.NewMock()))
	test.That(t, err, test.ShouldBeNil)

	records, err := svc.RecordFrame(context.Background(), frame(50, 50), []models.Detection{
		det("NO-Hardhat", 0, 0, 10, 10),
		det("no-helmet", 0, 0, 10, 10),
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, records, test.ShouldHaveLength, 1)
	test.That(t, records[0].Label, test.ShouldEqual, "no-helmet")
}

func TestSlashLabelIsPersistedInsideDir(t *testing.T) {
	classes, err := models.NewClassSet([]string{"no/helmet"},
		map[string]color.RGBA{"no/helmet": {R: 255, A: 255}}, color.RGBA{A: 255})
	test.That(t, err, test.ShouldBeNil)

	dir := t.TempDir()
	svc, err := NewService(classes, storage.NewLocalStore(dir, 90), WithClock(clock.NewMock()))
	test.That(t, err, test.ShouldBeNil)

	records, err := svc.RecordFrame(context.Background(), frame(50, 50),
		[]models.Detection{det("no/helmet", 0, 0, 10, 10)})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, records, test.ShouldHaveLength, 1)
	test.That(t, records[0].Persisted, test.ShouldBeTrue)
	test.That(t, records[0].Label, test.ShouldEqual, "no/helmet")

	entries, err := os.ReadDir(dir)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, entries, test.ShouldHaveLength, 1)
	test.That(t, entries[0].Name(), test.ShouldEqual, "no-helmet_0.jpg")
}

func TestThreeFrameSession(t *testing.T) {
	dir := t.TempDir()
	svc, mock := newTestService(t, storage.NewLocalStore(dir, 90))
	ctx := context.Background()

	frames := [][]models.Detection{
		{det("NO-Hardhat", 10, 10, 60, 60), det("Person", 0, 0, 100, 100)},
		{},
		{det("NO-Mask", 20, 20, 70, 70)},
	}
	for _, dets := range frames {
		_, err := svc.RecordFrame(ctx, frame(120, 120), dets)
		test.That(t, err, test.ShouldBeNil)
		mock.Add(time.Second)
	}

	test.That(t, labels(svc.CurrentGallery()), test.ShouldResemble, []string{"NO-Hardhat", "NO-Mask"})

	entries, err := os.ReadDir(dir)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, entries, test.ShouldHaveLength, 2)
	test.That(t, entries[0].Name(), test.ShouldEqual, "NO-Hardhat_1700000000.jpg")
	test.That(t, entries[1].Name(), test.ShouldEqual, "NO-Mask_1700000002.jpg")
}

func TestNewServiceValidation(t *testing.T) {
	_, err := NewService(nil, &memoryStore{})
	test.That(t, err, test.ShouldNotBeNil)

	classes, _ := config.DefaultClasses()
	_, err = NewService(classes, nil)
	test.That(t, err, test.ShouldNotBeNil)

	for _, n := range []int{0, -1, 6} {
		_, err = NewService(classes, &memoryStore{}, WithCapacity(n))
		test.That(t, err, test.ShouldNotBeNil)
	}
}

func TestSmallerGallery(t *testing.T) {
	svc, _ := newTestService(t, &memoryStore{}, WithCapacity(2))

	for _, label := range []string{"NO-Hardhat", "NO-Mask", "NO-Gloves"} {
		_, err := svc.RecordFrame(context.Background(), frame(50, 50), []models.Detection{det(label, 0, 0, 10, 10)})
		test.That(t, err, test.ShouldBeNil)
	}
	test.That(t, labels(svc.CurrentGallery()), test.ShouldResemble, []string{"NO-Mask", "NO-Gloves"})
}
