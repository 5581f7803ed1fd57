// Package config loads gallery settings from the environment, an optional
// .env file and an optional YAML derivative spec file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"github.com/tendant/simple-gallery/internal/gallery"
	"github.com/tendant/simple-gallery/internal/img"
)

const DefaultDerivativeSpecs = "thmb:300:92,small:960:96,large:1960:96"

// SpecConfig is one derivative as written in DERIVATIVE_SPECS or the YAML
// spec file.
type SpecConfig struct {
	Folder       string `yaml:"folder" validate:"required,folder"`
	MaxDimension int    `yaml:"max_dimension" validate:"gt=0"`
	Quality      int    `yaml:"quality" validate:"min=1,max=100"`
}

type specFile struct {
	Derivatives []SpecConfig `yaml:"derivatives"`
}

type Config struct {
	GalleryRoot    string       `validate:"required"`
	HTTPAddr       string       `validate:"required"`
	MaxUploadBytes int64        `validate:"gt=0"`
	MaxPixels      int          `validate:"gt=0"`
	Derivatives    []SpecConfig `validate:"required,min=1,unique=Folder,dive"`
	NATSURL        string
	SubjectPrefix  string
	RegenSubject   string `validate:"required"`
	WorkerQueue    string
	RedisURL       string
	LockTTL        time.Duration `validate:"gt=0"`
	LogLevel       slog.Level
}

var folderPattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("folder", func(fl validator.FieldLevel) bool {
		return folderPattern.MatchString(fl.Field().String())
	})
	return v
}

// Load reads .env when present, then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		GalleryRoot:   getenv("GALLERY_ROOT", "./data/gallery"),
		HTTPAddr:      getenv("HTTP_ADDR", ":8080"),
		NATSURL:       getenv("NATS_URL", ""),
		SubjectPrefix: getenv("SUBJECT_PREFIX", "gallery"),
		RegenSubject:  getenv("REGENERATE_SUBJECT", "gallery.thumbnails.regenerate"),
		WorkerQueue:   getenv("WORKER_QUEUE", "gallery-workers"),
		RedisURL:      getenv("REDIS_URL", ""),
	}

	maxUpload, err := strconv.ParseInt(getenv("MAX_UPLOAD_BYTES", "20971520"), 10, 64)
	if err != nil {
		return Config{}, fmt.Errorf("invalid MAX_UPLOAD_BYTES: %w", err)
	}
	cfg.MaxUploadBytes = maxUpload

	maxPixels, err := strconv.Atoi(getenv("MAX_SOURCE_PIXELS", strconv.Itoa(img.DefaultMaxPixels)))
	if err != nil {
		return Config{}, fmt.Errorf("invalid MAX_SOURCE_PIXELS: %w", err)
	}
	cfg.MaxPixels = maxPixels

	ttl, err := time.ParseDuration(getenv("LOCK_TTL", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid LOCK_TTL: %w", err)
	}
	cfg.LockTTL = ttl

	level, err := ParseLevel(getenv("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}
	cfg.LogLevel = level

	if path := getenv("DERIVATIVE_SPECS_FILE", ""); path != "" {
		specs, err := LoadSpecFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg.Derivatives = specs
	} else {
		specs, err := ParseSpecs(getenv("DERIVATIVE_SPECS", DefaultDerivativeSpecs))
		if err != nil {
			return Config{}, fmt.Errorf("parse DERIVATIVE_SPECS: %w", err)
		}
		cfg.Derivatives = specs
	}

	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// ParseSpecs reads a comma separated list of folder:maxDimension:quality.
func ParseSpecs(value string) ([]SpecConfig, error) {
	var specs []SpecConfig
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.Split(item, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid derivative %q, expected 'folder:maxDimension:quality'", item)
		}

		maxDim, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid max dimension in %q", item)
		}
		quality, err := strconv.Atoi(strings.TrimSpace(parts[2]))
		if err != nil {
			return nil, fmt.Errorf("invalid quality in %q", item)
		}

		specs = append(specs, SpecConfig{
			Folder:       strings.TrimSpace(parts[0]),
			MaxDimension: maxDim,
			Quality:      quality,
		})
	}
	return specs, nil
}

// LoadSpecFile reads derivatives from a YAML file of the form
//
//	derivatives:
//	  - folder: thmb
//	    max_dimension: 300
//	    quality: 92
func LoadSpecFile(path string) ([]SpecConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spec file: %w", err)
	}
	var f specFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse spec file %s: %w", path, err)
	}
	return f.Derivatives, nil
}

// GallerySpecs converts the configured derivatives, keeping their order.
func (c Config) GallerySpecs() []gallery.DerivativeSpec {
	out := make([]gallery.DerivativeSpec, 0, len(c.Derivatives))
	for _, d := range c.Derivatives {
		out = append(out, gallery.DerivativeSpec{Folder: d.Folder, MaxDimension: d.MaxDimension, Quality: d.Quality})
	}
	return out
}

func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
