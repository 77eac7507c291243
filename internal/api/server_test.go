package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.viam.com/test"

	"ppe-monitor-go/internal/api/handlers"
	"ppe-monitor-go/internal/config"
	"ppe-monitor-go/internal/models"
	"ppe-monitor-go/internal/pipeline"
)

type fakeSession struct {
	stats   pipeline.Stats
	gallery []models.GalleryItem
}

func (f *fakeSession) Stats() pipeline.Stats          { return f.stats }
func (f *fakeSession) Gallery() []models.GalleryItem { return f.gallery }

type fakeJournal struct {
	entries   []models.ViolationEntry
	counts    map[string]int
	err       error
	lastLabel string
	lastLimit int
}

func (j *fakeJournal) Recent(_ context.Context, label string, limit int) ([]models.ViolationEntry, error) {
	j.lastLabel, j.lastLimit = label, limit
	return j.entries, j.err
}

func (j *fakeJournal) CountByLabel(_ context.Context) (map[string]int, error) {
	return j.counts, j.err
}

func testConfig() *config.Config {
	return &config.Config{MonitorID: "monitor-1", Version: "1.2.3", Port: 8000, ImageQuality: 90}
}

func newTestServer(t *testing.T, deps Dependencies) http.Handler {
	t.Helper()
	srv, err := NewServer(testConfig(), deps)
	test.That(t, err, test.ShouldBeNil)
	return srv.Handler()
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthAndInfo(t *testing.T) {
	sess := &fakeSession{stats: pipeline.Stats{SessionID: "abc", Running: true, Frames: 42}}
	h := newTestServer(t, Dependencies{Session: sess})

	rec := get(h, "/health")
	test.That(t, rec.Code, test.ShouldEqual, http.StatusOK)
	test.That(t, rec.Header().Get("X-Request-ID"), test.ShouldNotBeEmpty)

	var health handlers.HealthResponse
	test.That(t, json.Unmarshal(rec.Body.Bytes(), &health), test.ShouldBeNil)
	test.That(t, health.Status, test.ShouldEqual, "healthy")
	test.That(t, health.MonitorID, test.ShouldEqual, "monitor-1")

	rec = get(h, "/")
	var info handlers.MonitorInfoResponse
	test.That(t, json.Unmarshal(rec.Body.Bytes(), &info), test.ShouldBeNil)
	test.That(t, info.Status, test.ShouldEqual, "running")
	test.That(t, info.Version, test.ShouldEqual, "1.2.3")
	test.That(t, info.Session.Frames, test.ShouldEqual, int64(42))
}

func TestRequestIDIsPropagated(t *testing.T) {
	h := newTestServer(t, Dependencies{Session: &fakeSession{}})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	test.That(t, rec.Header().Get("X-Request-ID"), test.ShouldEqual, "req-123")
}

func TestGallery(t *testing.T) {
	ts := time.Unix(1700000000, 0).UTC()
	sess := &fakeSession{gallery: []models.GalleryItem{
		{Image: image.NewRGBA(image.Rect(0, 0, 10, 20)), Label: "NO-Hardhat", Timestamp: ts},
		{Image: image.NewRGBA(image.Rect(0, 0, 30, 40)), Label: "NO-Mask", Timestamp: ts.Add(time.Second)},
	}}
	h := newTestServer(t, Dependencies{Session: sess})

	rec := get(h, "/gallery")
	test.That(t, rec.Code, test.ShouldEqual, http.StatusOK)
	var resp handlers.GalleryResponse
	test.That(t, json.Unmarshal(rec.Body.Bytes(), &resp), test.ShouldBeNil)
	test.That(t, resp.Count, test.ShouldEqual, 2)
	test.That(t, resp.Entries[0].Label, test.ShouldEqual, "NO-Hardhat")
	test.That(t, resp.Entries[1].Width, test.ShouldEqual, 30)
	test.That(t, resp.Entries[1].ImageURL, test.ShouldEqual, "/gallery/1/image")

	rec = get(h, "/gallery/1/image")
	test.That(t, rec.Code, test.ShouldEqual, http.StatusOK)
	test.That(t, rec.Header().Get("Content-Type"), test.ShouldEqual, "image/jpeg")
	img, err := jpeg.Decode(bytes.NewReader(rec.Body.Bytes()))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Bounds().Dx(), test.ShouldEqual, 30)
	test.That(t, img.Bounds().Dy(), test.ShouldEqual, 40)

	test.That(t, get(h, "/gallery/2/image").Code, test.ShouldEqual, http.StatusNotFound)
	test.That(t, get(h, "/gallery/x/image").Code, test.ShouldEqual, http.StatusBadRequest)
}

func TestViolations(t *testing.T) {
	journal := &fakeJournal{
		entries: []models.ViolationEntry{{ID: 2, Label: "NO-Mask"}, {ID: 1, Label: "NO-Mask"}},
		counts:  map[string]int{"NO-Mask": 2, "NO-Hardhat": 5, "NO-Gloves": 2},
	}
	h := newTestServer(t, Dependencies{Session: &fakeSession{}, Journal: journal})

	rec := get(h, "/violations?label=NO-Mask&limit=1000")
	test.That(t, rec.Code, test.ShouldEqual, http.StatusOK)
	test.That(t, journal.lastLabel, test.ShouldEqual, "NO-Mask")
	test.That(t, journal.lastLimit, test.ShouldEqual, 500)
	var list handlers.ViolationListResponse
	test.That(t, json.Unmarshal(rec.Body.Bytes(), &list), test.ShouldBeNil)
	test.That(t, list.Count, test.ShouldEqual, 2)

	get(h, "/violations")
	test.That(t, journal.lastLimit, test.ShouldEqual, 50)

	test.That(t, get(h, "/violations?limit=-1").Code, test.ShouldEqual, http.StatusBadRequest)

	rec = get(h, "/violations/stats")
	test.That(t, rec.Code, test.ShouldEqual, http.StatusOK)
	var stats handlers.ViolationStatsResponse
	test.That(t, json.Unmarshal(rec.Body.Bytes(), &stats), test.ShouldBeNil)
	test.That(t, stats.Total, test.ShouldEqual, 9)
	test.That(t, stats.ByLabel, test.ShouldResemble, []handlers.LabelCount{
		{Label: "NO-Hardhat", Count: 5},
		{Label: "NO-Gloves", Count: 2},
		{Label: "NO-Mask", Count: 2},
	})

	journal.err = errors.New("database is locked")
	test.That(t, get(h, "/violations").Code, test.ShouldEqual, http.StatusInternalServerError)
}

func TestOptionalServicesDisabled(t *testing.T) {
	h := newTestServer(t, Dependencies{Session: &fakeSession{}})

	test.That(t, get(h, "/violations").Code, test.ShouldEqual, http.StatusServiceUnavailable)
	test.That(t, get(h, "/violations/stats").Code, test.ShouldEqual, http.StatusServiceUnavailable)
	test.That(t, get(h, "/stream").Code, test.ShouldEqual, http.StatusServiceUnavailable)
	test.That(t, get(h, "/ws").Code, test.ShouldEqual, http.StatusServiceUnavailable)
}

func TestStreamIsMounted(t *testing.T) {
	stream := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
		w.WriteHeader(http.StatusOK)
	})
	h := newTestServer(t, Dependencies{Session: &fakeSession{}, Stream: stream})

	rec := get(h, "/stream")
	test.That(t, rec.Code, test.ShouldEqual, http.StatusOK)
	test.That(t, rec.Header().Get("Content-Type"), test.ShouldStartWith, "multipart/x-mixed-replace")
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(t, Dependencies{Session: &fakeSession{}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/gallery", nil))
	test.That(t, rec.Code, test.ShouldEqual, http.StatusNoContent)
	test.That(t, rec.Header().Get("Access-Control-Allow-Origin"), test.ShouldEqual, "*")
}

func TestNewServerRequiresSession(t *testing.T) {
	_, err := NewServer(testConfig(), Dependencies{})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSystemEndpoints(t *testing.T) {
	sess := &fakeSession{stats: pipeline.Stats{Running: true, Frames: 240, ElapsedSeconds: 10, FPS: 24}}
	h := newTestServer(t, Dependencies{Session: sess})

	rec := get(h, "/system/stats")
	test.That(t, rec.Code, test.ShouldEqual, http.StatusOK)
	var stats handlers.SystemStats
	test.That(t, json.Unmarshal(rec.Body.Bytes(), &stats), test.ShouldBeNil)
	test.That(t, stats.MonitorID, test.ShouldEqual, "monitor-1")
	test.That(t, stats.Goroutines, test.ShouldBeGreaterThan, 0)
	test.That(t, stats.Frames, test.ShouldEqual, int64(240))
	test.That(t, stats.FPS, test.ShouldEqual, 24.0)
	test.That(t, stats.SessionSeconds, test.ShouldEqual, 10.0)

	rec = get(h, "/system/debug")
	test.That(t, rec.Code, test.ShouldEqual, http.StatusOK)
	var debug struct {
		Endpoints []string `json:"endpoints"`
	}
	test.That(t, json.Unmarshal(rec.Body.Bytes(), &debug), test.ShouldBeNil)
	test.That(t, debug.Endpoints, test.ShouldContain, "/gallery/:index/image")
	test.That(t, debug.Endpoints, test.ShouldContain, "/system/debug")
}
