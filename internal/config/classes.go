package config

import (
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"ppe-monitor-go/internal/models"
)

// DefaultClassNames is the label order of the bundled PPE model.
var DefaultClassNames = []string{
	"Hardhat", "Mask", "NO-Hardhat", "NO-Mask", "NO-Safety Vest", "NO-Gloves",
	"Person", "Safety Cone", "Safety Vest", "machinery", "vehicle", "Gloves",
}

// DefaultViolationColors maps each violation label to a hex RGB colour.
var DefaultViolationColors = map[string]string{
	"NO-Hardhat":     "#FF0000",
	"NO-Mask":        "#FFFF00",
	"NO-Safety Vest": "#0000FF",
	"NO-Gloves":      "#FFA500",
}

const DefaultBoxColor = "#FFFFFF"

// ClassesFile is the YAML layout accepted by CLASSES_FILE.
//
//	names: [Hardhat, NO-Hardhat, Person]
//	default_color: "#FFFFFF"
//	violations:
//	  NO-Hardhat: "#FF0000"
type ClassesFile struct {
	Names        []string          `yaml:"names"`
	DefaultColor string            `yaml:"default_color"`
	Violations   map[string]string `yaml:"violations"`
}

// LoadClasses returns the class vocabulary from CLASSES_FILE, or the built-in PPE
// vocabulary when no file is configured.
func LoadClasses(cfg *Config) (*models.ClassSet, error) {
	if cfg.ClassesFile == "" {
		return DefaultClasses()
	}

	data, err := os.ReadFile(cfg.ClassesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read classes file: %w", err)
	}

	set, err := ParseClasses(data)
	if err != nil {
		return nil, fmt.Errorf("invalid classes file %s: %w", cfg.ClassesFile, err)
	}

	log.Info().
		Str("file", cfg.ClassesFile).
		Int("classes", set.Len()).
		Strs("violations", set.ViolationLabels()).
		Msg("Loaded class vocabulary")

	return set, nil
}

func DefaultClasses() (*models.ClassSet, error) {
	return buildClasses(ClassesFile{
		Names:        DefaultClassNames,
		DefaultColor: DefaultBoxColor,
		Violations:   DefaultViolationColors,
	})
}

func ParseClasses(data []byte) (*models.ClassSet, error) {
	var f ClassesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if f.DefaultColor == "" {
		f.DefaultColor = DefaultBoxColor
	}
	return buildClasses(f)
}

func buildClasses(f ClassesFile) (*models.ClassSet, error) {
	def, err := ParseHexColor(f.DefaultColor)
	if err != nil {
		return nil, fmt.Errorf("default_color: %w", err)
	}

	violations := make(map[string]color.RGBA, len(f.Violations))
	for label, hex := range f.Violations {
		c, err := ParseHexColor(hex)
		if err != nil {
			return nil, fmt.Errorf("violation %q: %w", label, err)
		}
		violations[label] = c
	}

	return models.NewClassSet(f.Names, violations, def)
}

func ParseHexColor(s string) (color.RGBA, error) {
	var c color.RGBA
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return c, fmt.Errorf("invalid color length: %s", s)
	}
	r, err := strconv.ParseUint(s[0:2], 16, 8)
	if err != nil {
		return c, err
	}
	g, err := strconv.ParseUint(s[2:4], 16, 8)
	if err != nil {
		return c, err
	}
	b, err := strconv.ParseUint(s[4:6], 16, 8)
	if err != nil {
		return c, err
	}
	c = color.RGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: 255}
	return c, nil
}
