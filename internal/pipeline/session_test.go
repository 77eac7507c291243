package pipeline

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"

	"ppe-monitor-go/internal/config"
	"ppe-monitor-go/internal/models"
	"ppe-monitor-go/internal/services/capture"
	"ppe-monitor-go/internal/services/detection"
	"ppe-monitor-go/internal/services/storage"
	"ppe-monitor-go/internal/services/violation"
)

type sliceSource struct {
	frames []models.Frame
	next   int
	err    error
}

func (s *sliceSource) NextFrame(ctx context.Context) (models.Frame, error) {
	if s.next >= len(s.frames) {
		if s.err != nil {
			return models.Frame{}, s.err
		}
		return models.Frame{}, capture.ErrSourceExhausted
	}
	f := s.frames[s.next]
	s.next++
	return f, nil
}

func (s *sliceSource) Close() error { return nil }

// tickingSource advances the mock clock by interval before every frame.
type tickingSource struct {
	sliceSource
	clock    *clock.Mock
	interval time.Duration
}

func (s *tickingSource) NextFrame(ctx context.Context) (models.Frame, error) {
	s.clock.Add(s.interval)
	return s.sliceSource.NextFrame(ctx)
}

type recordingSink struct {
	rendered    []int64
	galleryLens []int
	quitAfter   int
}

func (r *recordingSink) Render(_ context.Context, frame models.Frame, _ []models.Detection, gallery []models.GalleryItem) (bool, error) {
	r.rendered = append(r.rendered, frame.ID)
	r.galleryLens = append(r.galleryLens, len(gallery))
	return r.quitAfter > 0 && len(r.rendered) >= r.quitAfter, nil
}

type memoryJournal struct {
	rows []models.ViolationRecord
}

func (j *memoryJournal) Insert(_ context.Context, _ string, rec models.ViolationRecord) (int64, error) {
	j.rows = append(j.rows, rec)
	return int64(len(j.rows)), nil
}

type countingEvents struct {
	sessions []string
	records  int
}

func (e *countingEvents) ProcessRecords(meta models.FrameMetadata, records []models.ViolationRecord) models.ProcessedViolations {
	e.sessions = append(e.sessions, meta.SessionID)
	e.records += len(records)
	return models.ProcessedViolations{TotalRecords: len(records), EventsPublished: len(records)}
}

type failingStore struct{}

func (failingStore) Save(_ context.Context, name string, _ image.Image) (string, error) {
	return name, &storage.WriteError{Path: name, Err: os.ErrPermission}
}

func newFrames(n int) []models.Frame {
	frames := make([]models.Frame, n)
	for i := range frames {
		frames[i] = models.Frame{ID: int64(i + 1), Image: image.NewRGBA(image.Rect(0, 0, 200, 200))}
	}
	return frames
}

// scripted returns the detections for each frame ID.
func scripted(script map[int64][]models.Detection) detection.Detector {
	var calls int64
	return detection.DetectorFunc(func(_ context.Context, _ image.Image) ([]models.Detection, error) {
		calls++
		return script[calls], nil
	})
}

func det(label string, x1, y1, x2, y2 int) models.Detection {
	return models.Detection{Label: label, Score: 0.9, BBox: models.Bounds{X1: x1, Y1: y1, X2: x2, Y2: y2}}
}

func newViolations(t *testing.T, store storage.SnapshotStore) (*violation.Service, *clock.Mock) {
	t.Helper()
	classes, err := config.DefaultClasses()
	test.That(t, err, test.ShouldBeNil)

	mock := clock.NewMock()
	mock.Set(time.Unix(1700000000, 0))
	svc, err := violation.NewService(classes, store, violation.WithClock(mock))
	test.That(t, err, test.ShouldBeNil)
	return svc, mock
}

func TestSessionRunsUntilSourceExhausted(t *testing.T) {
	dir := t.TempDir()
	violations, _ := newViolations(t, storage.NewLocalStore(dir, 95))

	sink := &recordingSink{}
	journal := &memoryJournal{}
	events := &countingEvents{}
	detector := scripted(map[int64][]models.Detection{
		1: {det("NO-Hardhat", 10, 10, 50, 50), det("Person", 0, 0, 100, 100)},
		2: {det("Hardhat", 10, 10, 50, 50)},
		3: {det("NO-Mask", 60, 60, 90, 90)},
	})

	sess, err := NewSession(&sliceSource{frames: newFrames(3)}, detector, violations,
		WithSinks(sink), WithJournal(journal), WithEvents(events))
	test.That(t, err, test.ShouldBeNil)

	test.That(t, sess.Run(context.Background()), test.ShouldBeNil)

	st := sess.Stats()
	test.That(t, st.Running, test.ShouldBeFalse)
	test.That(t, st.SessionID, test.ShouldNotBeEmpty)
	test.That(t, st.Frames, test.ShouldEqual, int64(3))
	test.That(t, st.Detections, test.ShouldEqual, int64(4))
	test.That(t, st.Violations, test.ShouldEqual, int64(2))
	test.That(t, st.StorageFailures, test.ShouldEqual, int64(0))
	test.That(t, st.EventsPublished, test.ShouldEqual, int64(2))

	test.That(t, sink.rendered, test.ShouldResemble, []int64{1, 2, 3})
	test.That(t, sink.galleryLens, test.ShouldResemble, []int{1, 1, 2})
	test.That(t, sess.Gallery(), test.ShouldHaveLength, 2)
	test.That(t, journal.rows, test.ShouldHaveLength, 2)
	test.That(t, events.records, test.ShouldEqual, 2)
	test.That(t, events.sessions[0], test.ShouldEqual, st.SessionID)

	entries, err := os.ReadDir(dir)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, entries, test.ShouldHaveLength, 2)
	_, err = os.Stat(filepath.Join(dir, "NO-Hardhat_1700000000.jpg"))
	test.That(t, err, test.ShouldBeNil)
}

func TestSessionFrameRate(t *testing.T) {
	violations, _ := newViolations(t, storage.NewLocalStore(t.TempDir(), 95))
	mock := clock.NewMock()
	mock.Set(time.Unix(1700000000, 0))

	sink := &recordingSink{}
	var sess *Session
	var during Stats
	source := &tickingSource{sliceSource: sliceSource{frames: newFrames(10)}, clock: mock, interval: 100 * time.Millisecond}

	sess, err := NewSession(source, scripted(nil), violations, WithClock(mock), WithSinks(FrameSinkFunc(
		func(ctx context.Context, frame models.Frame, dets []models.Detection, gallery []models.GalleryItem) (bool, error) {
			if frame.ID == 5 {
				during = sess.Stats()
			}
			return sink.Render(ctx, frame, dets, gallery)
		})))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sess.Stats().FPS, test.ShouldEqual, 0.0)

	test.That(t, sess.Run(context.Background()), test.ShouldBeNil)

	test.That(t, during.Running, test.ShouldBeTrue)
	test.That(t, during.Frames, test.ShouldEqual, int64(5))
	test.That(t, during.FPS, test.ShouldAlmostEqual, 10.0, 1e-9)

	// 10 frames plus the exhausted read: 11 ticks of 100ms.
	st := sess.Stats()
	test.That(t, st.ElapsedSeconds, test.ShouldAlmostEqual, 1.1, 1e-9)
	test.That(t, st.FPS, test.ShouldAlmostEqual, 10/1.1, 1e-9)

	// Stopped sessions keep their rate.
	mock.Add(time.Hour)
	test.That(t, sess.Stats().FPS, test.ShouldAlmostEqual, 10/1.1, 1e-9)
}

func TestSessionStopsWhenSinkQuits(t *testing.T) {
	violations, _ := newViolations(t, storage.NewLocalStore(t.TempDir(), 95))
	sink := &recordingSink{quitAfter: 2}
	source := &sliceSource{frames: newFrames(5)}

	sess, err := NewSession(source, scripted(nil), violations, WithSinks(sink))
	test.That(t, err, test.ShouldBeNil)

	test.That(t, sess.Run(context.Background()), test.ShouldBeNil)
	test.That(t, sink.rendered, test.ShouldResemble, []int64{1, 2})
	test.That(t, source.next, test.ShouldEqual, 2)
}

func TestSessionStopsOnCancel(t *testing.T) {
	violations, _ := newViolations(t, storage.NewLocalStore(t.TempDir(), 95))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sess, err := NewSession(&sliceSource{frames: newFrames(3)}, scripted(nil), violations)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sess.Run(ctx), test.ShouldBeNil)
	test.That(t, sess.Stats().Frames, test.ShouldEqual, int64(0))
}

func TestSessionDetectorErrorIsolatedToFrame(t *testing.T) {
	violations, _ := newViolations(t, storage.NewLocalStore(t.TempDir(), 95))
	var calls int
	detector := detection.DetectorFunc(func(_ context.Context, _ image.Image) ([]models.Detection, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("inference timeout")
		}
		return []models.Detection{det("NO-Gloves", 0, 0, 20, 20)}, nil
	})
	sink := &recordingSink{}

	sess, err := NewSession(&sliceSource{frames: newFrames(2)}, detector, violations, WithSinks(sink))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sess.Run(context.Background()), test.ShouldBeNil)

	st := sess.Stats()
	test.That(t, st.DetectorErrors, test.ShouldEqual, int64(1))
	test.That(t, st.Violations, test.ShouldEqual, int64(1))
	test.That(t, sink.rendered, test.ShouldResemble, []int64{1, 2})
}

func TestSessionStorageFailureDoesNotStopLoop(t *testing.T) {
	violations, _ := newViolations(t, failingStore{})
	detector := detection.DetectorFunc(func(_ context.Context, _ image.Image) ([]models.Detection, error) {
		return []models.Detection{det("NO-Safety Vest", 0, 0, 40, 40)}, nil
	})

	sess, err := NewSession(&sliceSource{frames: newFrames(3)}, detector, violations)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sess.Run(context.Background()), test.ShouldBeNil)

	st := sess.Stats()
	test.That(t, st.Frames, test.ShouldEqual, int64(3))
	test.That(t, st.StorageFailures, test.ShouldEqual, int64(3))
	test.That(t, sess.Gallery(), test.ShouldHaveLength, 3)
}

func TestSessionResetsGallery(t *testing.T) {
	violations, _ := newViolations(t, storage.NewLocalStore(t.TempDir(), 95))
	_, err := violations.RecordFrame(context.Background(), image.NewRGBA(image.Rect(0, 0, 50, 50)),
		[]models.Detection{det("NO-Mask", 0, 0, 10, 10)})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, violations.CurrentGallery(), test.ShouldHaveLength, 1)

	sess, err := NewSession(&sliceSource{}, scripted(nil), violations)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sess.Run(context.Background()), test.ShouldBeNil)
	test.That(t, sess.Gallery(), test.ShouldBeEmpty)
}

func TestSessionSourceFailure(t *testing.T) {
	violations, _ := newViolations(t, storage.NewLocalStore(t.TempDir(), 95))
	src := &sliceSource{frames: newFrames(1), err: errors.New("camera unplugged")}

	sess, err := NewSession(src, scripted(nil), violations)
	test.That(t, err, test.ShouldBeNil)
	err = sess.Run(context.Background())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "camera unplugged")
	test.That(t, sess.Stats().Frames, test.ShouldEqual, int64(1))
}

func TestNewSessionValidation(t *testing.T) {
	violations, _ := newViolations(t, storage.NewLocalStore(t.TempDir(), 95))
	_, err := NewSession(nil, scripted(nil), violations)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewSession(&sliceSource{}, nil, violations)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewSession(&sliceSource{}, scripted(nil), nil)
	test.That(t, err, test.ShouldNotBeNil)
}
