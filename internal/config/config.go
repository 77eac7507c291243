package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// MaxGalleryCapacity is the number of recent violations shown on screen.
// GALLERY_CAPACITY may lower it but never raise it.
const MaxGalleryCapacity = 5

type Config struct {
	// Application
	Version     string `env:"VERSION" envDefault:"1.0.0"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	MonitorID   string `env:"MONITOR_ID" envDefault:"monitor-1"`
	Port        int    `env:"PORT" envDefault:"8000"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Logdy (lightweight web log viewer)
	LogdyEnabled bool   `env:"LOGDY_ENABLED" envDefault:"false"`
	LogdyHost    string `env:"LOGDY_HOST" envDefault:"localhost"`
	LogdyPort    int    `env:"LOGDY_PORT" envDefault:"8080"`

	// Video source: camera index ("0") or a file path / stream URL
	VideoSource string `env:"VIDEO_SOURCE" envDefault:"0"`

	// Detection
	// Backend is "onnx" for the local model or "grpc" for a remote inference server
	DetectorBackend     string        `env:"DETECTOR_BACKEND" envDefault:"onnx"`
	ModelPath           string        `env:"MODEL_PATH" envDefault:"models/ppe.onnx"`
	ModelInputSize      int           `env:"MODEL_INPUT_SIZE" envDefault:"640"`
	ConfidenceThreshold float64       `env:"CONFIDENCE_THRESHOLD" envDefault:"0.25"`
	NMSThreshold        float64       `env:"NMS_THRESHOLD" envDefault:"0.45"`
	AIGRPCURL           string        `env:"AI_GRPC_URL" envDefault:"localhost:50052"`
	AITimeout           time.Duration `env:"AI_TIMEOUT" envDefault:"5s"`

	// Class vocabulary override (YAML); empty means the built-in PPE classes
	ClassesFile string `env:"CLASSES_FILE"`

	// Violation snapshots
	ViolationsDir       string `env:"VIOLATIONS_DIR" envDefault:"violations"`
	GalleryCapacity     int    `env:"GALLERY_CAPACITY" envDefault:"5"` // at most MaxGalleryCapacity
	SnapshotUniqueNames bool   `env:"SNAPSHOT_UNIQUE_NAMES" envDefault:"false"`
	ImageQuality        int    `env:"IMAGE_QUALITY" envDefault:"95"`

	// Object store mirror of snapshots (MinIO / S3)
	ObjectStoreEnabled   bool   `env:"OBJECT_STORE_ENABLED" envDefault:"false"`
	ObjectStoreEndpoint  string `env:"OBJECT_STORE_ENDPOINT" envDefault:"localhost:9000"`
	ObjectStoreAccessKey string `env:"OBJECT_STORE_ACCESS_KEY"`
	ObjectStoreSecretKey string `env:"OBJECT_STORE_SECRET_KEY"`
	ObjectStoreBucket    string `env:"OBJECT_STORE_BUCKET" envDefault:"violations"`
	ObjectStoreUseSSL    bool   `env:"OBJECT_STORE_USE_SSL" envDefault:"false"`

	// Violation journal (SQLite); empty disables it
	JournalPath string `env:"JOURNAL_PATH"`

	// Violation events
	// Backend is "none", "nats" or "kafka"
	EventsBackend  string        `env:"EVENTS_BACKEND" envDefault:"none"`
	EventsSubject  string        `env:"EVENTS_SUBJECT" envDefault:"ppe.violations"`
	EventsCooldown time.Duration `env:"EVENTS_COOLDOWN" envDefault:"0s"`

	// NATS
	NatsURL            string        `env:"NATS_URL" envDefault:"nats://localhost:4222"`
	NatsConnectTimeout time.Duration `env:"NATS_CONNECT_TIMEOUT" envDefault:"10s"`
	NatsReconnectWait  time.Duration `env:"NATS_RECONNECT_WAIT" envDefault:"2s"`
	NatsMaxReconnects  int           `env:"NATS_MAX_RECONNECTS" envDefault:"-1"` // -1 = unlimited

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Display
	DisplayEnabled bool   `env:"DISPLAY_ENABLED" envDefault:"true"`
	WindowTitle    string `env:"WINDOW_TITLE" envDefault:"PPE Detection"`

	// HTTP API
	APIEnabled      bool          `env:"API_ENABLED" envDefault:"true"`
	StreamQuality   int           `env:"STREAM_QUALITY" envDefault:"80"`
	SwaggerHost     string        `env:"SWAGGER_HOST" envDefault:"localhost"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Source reads tolerated in a row before the session gives up
	MaxConsecutiveErrors int `env:"MAX_CONSECUTIVE_ERRORS" envDefault:"10"`
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found or error loading .env file, using environment variables and defaults")
	} else {
		log.Info().Msg("Loaded configuration from .env file")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.GalleryCapacity < 1 || c.GalleryCapacity > MaxGalleryCapacity {
		return fmt.Errorf("GALLERY_CAPACITY must be within [1,%d], got %d", MaxGalleryCapacity, c.GalleryCapacity)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("CONFIDENCE_THRESHOLD must be within [0,1], got %v", c.ConfidenceThreshold)
	}
	if c.ImageQuality < 1 || c.ImageQuality > 100 {
		return fmt.Errorf("IMAGE_QUALITY must be within [1,100], got %d", c.ImageQuality)
	}

	switch c.DetectorBackend {
	case "onnx", "grpc":
	default:
		return fmt.Errorf("unknown DETECTOR_BACKEND %q", c.DetectorBackend)
	}

	switch c.EventsBackend {
	case "none", "nats", "kafka":
	default:
		return fmt.Errorf("unknown EVENTS_BACKEND %q", c.EventsBackend)
	}

	return nil
}

// IsRunningInDocker reports whether the process appears to run inside a container.
func IsRunningInDocker() bool {
	if os.Getenv("DOCKER_CONTAINER") == "true" {
		return true
	}

	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}

	return false
}
