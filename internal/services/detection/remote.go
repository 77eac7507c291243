package detection

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"

	"ppe-monitor-go/internal/helpers"
	"ppe-monitor-go/internal/models"
)

// detectMethod is the unary RPC exposed by the inference server. Requests and
// responses are google.protobuf.Struct messages.
const detectMethod = "/ppe.v1.DetectionService/Detect"

// RemoteDetector sends JPEG frames to a gRPC inference server.
type RemoteDetector struct {
	mu        sync.Mutex
	conn      *grpc.ClientConn
	grpcURL   string
	classes   *models.ClassSet
	timeout   time.Duration
	minScore  float64
	isHealthy bool
}

func NewRemoteDetector(grpcURL string, classes *models.ClassSet, timeout time.Duration, minScore float64) (*RemoteDetector, error) {
	log.Info().Str("url", grpcURL).Msg("Initializing remote detection service")

	d := &RemoteDetector{
		grpcURL:  grpcURL,
		classes:  classes,
		timeout:  timeout,
		minScore: minScore,
	}

	// Try to connect, but don't fail if it's not available
	if err := d.connect(); err != nil {
		log.Warn().Err(err).Msg("Remote detection service not available, will retry later")
	}

	return d, nil
}

func (d *RemoteDetector) connect() error {
	if d.conn != nil {
		d.conn.Close()
		d.conn = nil
	}

	conn, err := grpc.NewClient(d.grpcURL, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("failed to connect to detection service: %w", err)
	}

	// Test connection with health check
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		conn.Close()
		return fmt.Errorf("detection service health check failed: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		conn.Close()
		return fmt.Errorf("detection service not serving: %s", resp.GetStatus())
	}

	d.conn = conn
	d.isHealthy = true

	log.Info().Msg("Successfully connected to remote detection service")
	return nil
}

func (d *RemoteDetector) ensureConnection() error {
	if d.isHealthy && d.conn != nil {
		return nil
	}
	return d.connect()
}

func (d *RemoteDetector) Detect(ctx context.Context, img image.Image) ([]models.Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureConnection(); err != nil {
		return nil, fmt.Errorf("detection service unavailable: %w", err)
	}

	req, err := buildRequest(img, d.minScore)
	if err != nil {
		return nil, err
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	resp := &structpb.Struct{}
	if err := d.conn.Invoke(ctx, detectMethod, req, resp); err != nil {
		d.isHealthy = false
		return nil, fmt.Errorf("remote detection failed: %w", err)
	}

	return parseResponse(resp, d.classes, time.Now())
}

func (d *RemoteDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return nil
	}
	return d.conn.Close()
}

func buildRequest(img image.Image, minScore float64) (*structpb.Struct, error) {
	data, err := helpers.EncodeJPEG(img, helpers.HighQuality)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	return structpb.NewStruct(map[string]interface{}{
		"image":      base64.StdEncoding.EncodeToString(data),
		"width":      b.Dx(),
		"height":     b.Dy(),
		"confidence": minScore,
	})
}

// parseResponse reads {"detections": [{"class_id", "label", "score", "bbox": [x1,y1,x2,y2]}]}.
// A label is taken from the class vocabulary when class_id is present.
func parseResponse(resp *structpb.Struct, classes *models.ClassSet, ts time.Time) ([]models.Detection, error) {
	list := resp.GetFields()["detections"].GetListValue()
	if list == nil {
		return nil, nil
	}

	dets := make([]models.Detection, 0, len(list.GetValues()))
	for i, v := range list.GetValues() {
		fields := v.GetStructValue().GetFields()
		if fields == nil {
			return nil, fmt.Errorf("detection %d is not an object", i)
		}

		classID := -1
		label := fields["label"].GetStringValue()
		if cv, ok := fields["class_id"]; ok {
			classID = int(cv.GetNumberValue())
			if l, ok := classes.Label(classID); ok {
				label = l
			}
		}
		if label == "" {
			continue
		}

		coords := fields["bbox"].GetListValue().GetValues()
		if len(coords) != 4 {
			return nil, fmt.Errorf("detection %d: bbox must have 4 values, got %d", i, len(coords))
		}
		bbox := models.Bounds{
			X1: int(math.Round(coords[0].GetNumberValue())),
			Y1: int(math.Round(coords[1].GetNumberValue())),
			X2: int(math.Round(coords[2].GetNumberValue())),
			Y2: int(math.Round(coords[3].GetNumberValue())),
		}

		dets = append(dets, models.Detection{
			ClassID:   classID,
			Label:     label,
			Score:     float32(fields["score"].GetNumberValue()),
			BBox:      bbox,
			Timestamp: ts,
		})
	}
	return dets, nil
}
