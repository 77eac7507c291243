package mjpeg

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"
)

// Publisher keeps the latest annotated frame as JPEG and fans it out to HTTP viewers.
type Publisher struct {
	quality int

	jpegMutex  sync.RWMutex
	latestJPEG []byte

	notifyMutex sync.Mutex
	viewers     map[chan struct{}]struct{}
}

func NewPublisher(quality int) *Publisher {
	if quality <= 0 || quality > 100 {
		quality = 80
	}
	return &Publisher{
		quality: quality,
		viewers: make(map[chan struct{}]struct{}),
	}
}

// PublishFrame encodes mat and wakes every connected viewer.
func (p *Publisher) PublishFrame(mat gocv.Mat) error {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{gocv.IMWriteJpegQuality, p.quality})
	if err != nil {
		return fmt.Errorf("failed to encode JPEG: %w", err)
	}
	b := buf.GetBytes()
	jpegCopy := make([]byte, len(b))
	copy(jpegCopy, b)
	buf.Close()

	p.jpegMutex.Lock()
	p.latestJPEG = jpegCopy
	p.jpegMutex.Unlock()

	p.notifyViewers()
	return nil
}

// Latest returns the most recent JPEG, or nil before the first frame.
func (p *Publisher) Latest() []byte {
	p.jpegMutex.RLock()
	defer p.jpegMutex.RUnlock()
	return p.latestJPEG
}

func (p *Publisher) ViewerCount() int {
	p.notifyMutex.Lock()
	defer p.notifyMutex.Unlock()
	return len(p.viewers)
}

func (p *Publisher) notifyViewers() {
	p.notifyMutex.Lock()
	defer p.notifyMutex.Unlock()

	for notify := range p.viewers {
		select {
		case notify <- struct{}{}:
		default:
		}
	}
}

func (p *Publisher) addViewer() chan struct{} {
	notify := make(chan struct{}, 1)
	p.notifyMutex.Lock()
	p.viewers[notify] = struct{}{}
	p.notifyMutex.Unlock()
	return notify
}

func (p *Publisher) removeViewer(notify chan struct{}) {
	p.notifyMutex.Lock()
	delete(p.viewers, notify)
	p.notifyMutex.Unlock()
}

// StreamMJPEGHTTP serves a multipart/x-mixed-replace stream until the client goes away.
func (p *Publisher) StreamMJPEGHTTP(w http.ResponseWriter, r *http.Request) {
	boundary := "frame"
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+boundary)
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	notify := p.addViewer()
	defer p.removeViewer(notify)

	writePart := func(jpeg []byte) bool {
		if _, err := io.WriteString(w, "--"+boundary+"\r\n"); err != nil {
			return false
		}
		if _, err := io.WriteString(w, "Content-Type: image/jpeg\r\n"); err != nil {
			return false
		}
		if _, err := io.WriteString(w, fmt.Sprintf("Content-Length: %d\r\n\r\n", len(jpeg))); err != nil {
			return false
		}
		if _, err := w.Write(jpeg); err != nil {
			return false
		}
		if _, err := io.WriteString(w, "\r\n"); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	first := p.Latest()
	if len(first) == 0 {
		first = placeholder()
	}
	if len(first) > 0 {
		if !writePart(first) {
			return
		}
	}

	keepaliveTicker := time.NewTicker(2 * time.Second)
	defer keepaliveTicker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-notify:
		case <-keepaliveTicker.C:
		}
		if buf := p.Latest(); len(buf) > 0 {
			if !writePart(buf) {
				return
			}
		}
	}
}

func placeholder() []byte {
	mat := gocv.NewMatWithSize(360, 640, gocv.MatTypeCV8UC3)
	defer mat.Close()

	mat.SetTo(gocv.Scalar{Val1: 64, Val2: 64, Val3: 64, Val4: 0})
	textColor := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	gocv.PutText(&mat, "Waiting for frames...", image.Pt(20, 190), gocv.FontHersheySimplex, 0.8, textColor, 2)

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{gocv.IMWriteJpegQuality, 90})
	if err != nil {
		return nil
	}
	defer buf.Close()
	b := buf.GetBytes()
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (p *Publisher) Shutdown() {
	log.Info().Int("viewers", p.ViewerCount()).Msg("MJPEG publisher shutting down")
}
