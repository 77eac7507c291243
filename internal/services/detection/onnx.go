package detection

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"ppe-monitor-go/internal/models"
)

// ONNXDetector runs a YOLOv8 export through the OpenCV DNN module.
type ONNXDetector struct {
	mu        sync.Mutex
	net       gocv.Net
	classes   *models.ClassSet
	inputSize int
	minScore  float32
	nms       float32
	logger    zerolog.Logger
}

func NewONNXDetector(modelPath string, classes *models.ClassSet, inputSize int, minScore, nms float64) (*ONNXDetector, error) {
	net := gocv.ReadNetFromONNX(modelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load ONNX model from %s", modelPath)
	}
	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set DNN backend: %w", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set DNN target: %w", err)
	}

	if inputSize <= 0 {
		inputSize = 640
	}

	log.Info().
		Str("model", modelPath).
		Int("input_size", inputSize).
		Int("classes", classes.Len()).
		Msg("ONNX detector loaded")

	return &ONNXDetector{
		net:       net,
		classes:   classes,
		inputSize: inputSize,
		minScore:  float32(minScore),
		nms:       float32(nms),
		logger:    log.With().Str("service", "detection").Str("backend", "onnx").Logger(),
	}, nil
}

func (d *ONNXDetector) Detect(ctx context.Context, img image.Image) ([]models.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	src, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame: %w", err)
	}
	defer src.Close()

	lb := newLetterbox(src.Cols(), src.Rows(), d.inputSize)

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(src, &resized, image.Pt(lb.newW, lb.newH), 0, 0, gocv.InterpolationLinear)

	padded := gocv.NewMat()
	defer padded.Close()
	gocv.CopyMakeBorder(resized, &padded, lb.top, lb.bottom, lb.left, lb.right,
		gocv.BorderConstant, color.RGBA{R: 114, G: 114, B: 114, A: 0})

	blob := gocv.BlobFromImage(padded, 1.0/255.0, image.Pt(d.inputSize, d.inputSize),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.mu.Lock()
	d.net.SetInput(blob, "")
	out := d.net.Forward("")
	d.mu.Unlock()
	defer out.Close()

	dims := out.Size()
	if len(dims) != 3 {
		return nil, fmt.Errorf("unexpected output rank %d", len(dims))
	}
	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read output tensor: %w", err)
	}

	cands, err := decodeYOLOv8(data, dims[1]-4, dims[2], lb, d.minScore)
	if err != nil {
		return nil, err
	}

	keep := d.suppress(cands)
	dets := toDetections(cands, keep, d.classes, start)

	d.logger.Debug().
		Int("candidates", len(cands)).
		Int("detections", len(dets)).
		Dur("took", time.Since(start)).
		Msg("Inference complete")

	return dets, nil
}

// suppress runs per-class non-maximum suppression and returns the kept indices.
func (d *ONNXDetector) suppress(cands []candidate) []int {
	byClass := make(map[int][]int)
	for i, c := range cands {
		byClass[c.classID] = append(byClass[c.classID], i)
	}

	var keep []int
	for _, idxs := range byClass {
		boxes := make([]image.Rectangle, len(idxs))
		scores := make([]float32, len(idxs))
		for j, i := range idxs {
			boxes[j] = cands[i].box
			scores[j] = cands[i].score
		}
		for _, k := range gocv.NMSBoxes(boxes, scores, d.minScore, d.nms) {
			keep = append(keep, idxs[k])
		}
	}
	return keep
}

func (d *ONNXDetector) Close() error {
	return d.net.Close()
}
