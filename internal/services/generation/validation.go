package generation

import (
	"fmt"
	"strings"
)

var validContentTypes = []string{"blog-post", "email", "social-post", "ad-copy"}

const (
	maxTopicLength    = 500
	maxToneLength     = 100
	maxAudienceLength = 200
	maxVariables      = 50
	maxVariants       = 5
)

// ValidationError represents a validation error with field context
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateGenerationRequest validates a generation request and fills
// defaults for optional fields.
func ValidateGenerationRequest(req *GenerationRequest) error {
	// Validate ContentType
	if req.ContentType == "" {
		return &ValidationError{"ContentType", "required"}
	}
	if !isValidContentType(req.ContentType) {
		return &ValidationError{"ContentType",
			fmt.Sprintf("must be one of: %s", strings.Join(validContentTypes, ", "))}
	}

	// Validate Topic
	if strings.TrimSpace(req.Topic) == "" {
		return &ValidationError{"Topic", "required"}
	}
	if len(req.Topic) > maxTopicLength {
		return &ValidationError{"Topic", fmt.Sprintf("maximum %d characters allowed", maxTopicLength)}
	}

	if len(req.Tone) > maxToneLength {
		return &ValidationError{"Tone", fmt.Sprintf("maximum %d characters allowed", maxToneLength)}
	}
	if len(req.Audience) > maxAudienceLength {
		return &ValidationError{"Audience", fmt.Sprintf("maximum %d characters allowed", maxAudienceLength)}
	}

	if len(req.Variables) > maxVariables {
		return &ValidationError{"Variables", fmt.Sprintf("maximum %d variables allowed", maxVariables)}
	}
	for name := range req.Variables {
		if strings.TrimSpace(name) == "" {
			return &ValidationError{"Variables", "variable names must not be empty"}
		}
	}

	// Validate Variants
	if req.Variants == 0 {
		req.Variants = 1 // Default
	}
	if req.Variants < 1 || req.Variants > maxVariants {
		return &ValidationError{"Variants", fmt.Sprintf("must be between 1 and %d", maxVariants)}
	}

	return nil
}

// isValidContentType checks whether the content type is supported
func isValidContentType(contentType string) bool {
	for _, ct := range validContentTypes {
		if ct == contentType {
			return true
		}
	}
	return false
}
