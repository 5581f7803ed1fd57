// pkg/schema/events.go
package schema

import "strings"

// Subject suffixes; the full subject is Subject(prefix, suffix).
const (
	SubjectAssetProcessed        = "asset.processed"
	SubjectThumbnailsRegenerated = "thumbnails.regenerated"
	SubjectAssetDeleted          = "asset.deleted"
	SubjectRegenerateResult      = "thumbnails.result"
)

func Subject(prefix, suffix string) string {
	prefix = strings.TrimSuffix(prefix, ".")
	if prefix == "" {
		return suffix
	}
	return prefix + "." + suffix
}

type FailureType string

const (
	FailureTypeRetryable  FailureType = "retryable"
	FailureTypePermanent  FailureType = "permanent"
	FailureTypeValidation FailureType = "validation"
	FailureTypeNotFound   FailureType = "not_found"
)

type Derivative struct {
	Folder       string `json:"folder"`
	RelativePath string `json:"relative_path"`
	Status       string `json:"status,omitempty"`
}

type AssetProcessed struct {
	ID          string       `json:"id"`
	Filename    string       `json:"filename"`
	Width       int          `json:"width"`
	Height      int          `json:"height"`
	Format      string       `json:"format"`
	Derivatives []Derivative `json:"derivatives"`
	HappenedAt  int64        `json:"happened_at"`
}

type ThumbnailsRegenerated struct {
	ID          string       `json:"id"`
	Filename    string       `json:"filename"`
	Derivatives []Derivative `json:"derivatives"`
	HappenedAt  int64        `json:"happened_at"`
}

type AssetDeleted struct {
	ID           string   `json:"id"`
	Filename     string   `json:"filename"`
	DeletedFiles int      `json:"deleted_files"`
	Errors       []string `json:"errors,omitempty"`
	HappenedAt   int64    `json:"happened_at"`
}

// RegenerateRequest asks a worker to heal the derivatives of one original.
type RegenerateRequest struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
}

type RegenerateResult struct {
	ID          string       `json:"id"`
	Filename    string       `json:"filename"`
	Derivatives []Derivative `json:"derivatives,omitempty"`
	Error       string       `json:"error,omitempty"`
	FailureType FailureType  `json:"failure_type,omitempty"`
	HappenedAt  int64        `json:"happened_at"`
}
