package generation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() GenerationRequest {
	return GenerationRequest{
		ContentType: "blog-post",
		Topic:       "Cutting cloud costs without slowing delivery",
	}
}

func TestValidateGenerationRequest(t *testing.T) {
	t.Run("Should accept a minimal valid request", func(t *testing.T) {
		req := validRequest()

		err := ValidateGenerationRequest(&req)

		require.NoError(t, err)
	})

	t.Run("Should default variants to 1", func(t *testing.T) {
		req := validRequest()
		req.Variants = 0

		err := ValidateGenerationRequest(&req)

		require.NoError(t, err)
		assert.Equal(t, 1, req.Variants, "Zero variants should default to 1")
	})

	t.Run("Should accept every supported content type", func(t *testing.T) {
		for _, contentType := range []string{"blog-post", "email", "social-post", "ad-copy"} {
			req := validRequest()
			req.ContentType = contentType

			err := ValidateGenerationRequest(&req)

			assert.NoError(t, err, "Content type %q should be valid", contentType)
		}
	})

	t.Run("Should require content type", func(t *testing.T) {
		req := validRequest()
		req.ContentType = ""

		err := ValidateGenerationRequest(&req)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "ContentType")
		assert.Contains(t, err.Error(), "required")
	})

	t.Run("Should reject unknown content type", func(t *testing.T) {
		req := validRequest()
		req.ContentType = "podcast"

		err := ValidateGenerationRequest(&req)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be one of")
		assert.Contains(t, err.Error(), "blog-post")
	})

	t.Run("Should require a topic", func(t *testing.T) {
		req := validRequest()
		req.Topic = ""

		err := ValidateGenerationRequest(&req)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "Topic")
	})

	t.Run("Should reject whitespace-only topic", func(t *testing.T) {
		req := validRequest()
		req.Topic = "   \t  "

		err := ValidateGenerationRequest(&req)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "Topic")
		assert.Contains(t, err.Error(), "required")
	})

	t.Run("Should reject overlong topic", func(t *testing.T) {
		req := validRequest()
		req.Topic = strings.Repeat("x", 501)

		err := ValidateGenerationRequest(&req)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "maximum 500 characters")
	})

	t.Run("Should reject overlong tone", func(t *testing.T) {
		req := validRequest()
		req.Tone = strings.Repeat("x", 101)

		err := ValidateGenerationRequest(&req)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "Tone")
	})

	t.Run("Should reject overlong audience", func(t *testing.T) {
		req := validRequest()
		req.Audience = strings.Repeat("x", 201)

		err := ValidateGenerationRequest(&req)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "Audience")
	})

	t.Run("Should reject too many variables", func(t *testing.T) {
		req := validRequest()
		req.Variables = make(map[string]string)
		for i := 0; i < 51; i++ {
			req.Variables[strings.Repeat("v", i+1)] = "value"
		}

		err := ValidateGenerationRequest(&req)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "maximum 50 variables")
	})

	t.Run("Should reject empty variable names", func(t *testing.T) {
		req := validRequest()
		req.Variables = map[string]string{" ": "value"}

		err := ValidateGenerationRequest(&req)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "variable names must not be empty")
	})

	t.Run("Should reject out-of-range variants", func(t *testing.T) {
		for _, variants := range []int{-1, 6, 100} {
			req := validRequest()
			req.Variants = variants

			err := ValidateGenerationRequest(&req)

			require.Error(t, err, "Variants %d should be rejected", variants)
			assert.Contains(t, err.Error(), "between 1 and 5")
		}
	})

	t.Run("Should keep explicit variants unchanged", func(t *testing.T) {
		req := validRequest()
		req.Variants = 3

		err := ValidateGenerationRequest(&req)

		require.NoError(t, err)
		assert.Equal(t, 3, req.Variants)
	})
}
