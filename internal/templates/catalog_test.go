package templates

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCatalog(t *testing.T) {
	t.Run("Should load built-in templates for every industry", func(t *testing.T) {
		catalog, err := NewCatalog()
		require.NoError(t, err)

		assert.Equal(t, []string{"finance", "healthcare", "hospitality", "retail", "technology"}, catalog.Industries())
		assert.NotEmpty(t, catalog.All())
	})

	t.Run("Should populate required fields on every built-in template", func(t *testing.T) {
		catalog, err := NewCatalog()
		require.NoError(t, err)

		for _, tpl := range catalog.All() {
			assert.NotEmpty(t, tpl.ID)
			assert.NotEmpty(t, tpl.Name)
			assert.NotEmpty(t, tpl.ContentType)
			assert.NotEmpty(t, tpl.Body)
		}
	})
}

func TestCatalogTemplates(t *testing.T) {
	catalog, err := NewCatalog()
	require.NoError(t, err)

	t.Run("Should list templates for a known industry", func(t *testing.T) {
		list, err := catalog.Templates("technology")
		require.NoError(t, err)
		assert.Len(t, list, 4)
	})

	t.Run("Should match industries case-insensitively", func(t *testing.T) {
		list, err := catalog.Templates("Technology")
		require.NoError(t, err)
		assert.NotEmpty(t, list)
	})

	t.Run("Should reject an unknown industry", func(t *testing.T) {
		_, err := catalog.Templates("aviation")
		assert.ErrorIs(t, err, ErrUnknownIndustry)
	})
}

func TestCatalogGet(t *testing.T) {
	catalog, err := NewCatalog()
	require.NoError(t, err)

	t.Run("Should return a template by ID", func(t *testing.T) {
		tpl, err := catalog.Get("tech-product-launch-blog")
		require.NoError(t, err)

		assert.Equal(t, "Product Launch Announcement", tpl.Name)
		assert.Equal(t, "blog-post", tpl.ContentType)
		assert.NotEmpty(t, tpl.Body)
	})

	t.Run("Should report unknown template IDs", func(t *testing.T) {
		_, err := catalog.Get("does-not-exist")
		assert.ErrorIs(t, err, ErrTemplateNotFound)
	})
}

func TestCatalogAll(t *testing.T) {
	t.Run("Should return templates sorted by ID", func(t *testing.T) {
		catalog, err := NewCatalog()
		require.NoError(t, err)

		all := catalog.All()
		require.NotEmpty(t, all)
		for i := 1; i < len(all); i++ {
			assert.Less(t, all[i-1].ID, all[i].ID)
		}
	})
}

func TestCatalogLoadDirectory(t *testing.T) {
	writeFile := func(t *testing.T, dir, name, content string) {
		t.Helper()
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}

	t.Run("Should add templates from a new industry", func(t *testing.T) {
		catalog, err := NewCatalog()
		require.NoError(t, err)

		dir := t.TempDir()
		writeFile(t, dir, "education.yaml", `
industry: education
templates:
  - id: edu-course-launch-email
    name: Course Launch Email
    content_type: email
    body: "Enroll in {{course_name}} today."
`)

		require.NoError(t, catalog.LoadDirectory(dir))
		assert.Contains(t, catalog.Industries(), "education")

		tpl, err := catalog.Get("edu-course-launch-email")
		require.NoError(t, err)
		assert.Equal(t, "Course Launch Email", tpl.Name)
	})

	t.Run("Should replace a built-in template with the same ID", func(t *testing.T) {
		catalog, err := NewCatalog()
		require.NoError(t, err)

		before, err := catalog.Templates("technology")
		require.NoError(t, err)

		dir := t.TempDir()
		writeFile(t, dir, "overrides.yaml", `
industry: technology
templates:
  - id: tech-product-launch-blog
    name: Custom Launch Post
    content_type: blog-post
    body: "Say hello to {{product_name}}."
`)

		require.NoError(t, catalog.LoadDirectory(dir))

		after, err := catalog.Templates("technology")
		require.NoError(t, err)
		assert.Len(t, after, len(before))

		tpl, err := catalog.Get("tech-product-launch-blog")
		require.NoError(t, err)
		assert.Equal(t, "Custom Launch Post", tpl.Name)
	})

	t.Run("Should skip subdirectories and non-YAML files", func(t *testing.T) {
		catalog, err := NewCatalog()
		require.NoError(t, err)

		dir := t.TempDir()
		writeFile(t, dir, "notes.txt", "not a template")
		require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0755))

		assert.NoError(t, catalog.LoadDirectory(dir))
	})

	t.Run("Should reject a file without an industry", func(t *testing.T) {
		catalog, err := NewCatalog()
		require.NoError(t, err)

		dir := t.TempDir()
		writeFile(t, dir, "broken.yaml", `
templates:
  - id: orphan-template
    name: Orphan
    content_type: email
    body: "hi"
`)

		assert.Error(t, catalog.LoadDirectory(dir))
	})

	t.Run("Should reject a template without a content type", func(t *testing.T) {
		catalog, err := NewCatalog()
		require.NoError(t, err)

		dir := t.TempDir()
		writeFile(t, dir, "broken.yaml", `
industry: technology
templates:
  - id: incomplete-template
    name: Incomplete
    body: "hi"
`)

		assert.Error(t, catalog.LoadDirectory(dir))
	})

	t.Run("Should fail for a missing directory", func(t *testing.T) {
		catalog, err := NewCatalog()
		require.NoError(t, err)

		assert.Error(t, catalog.LoadDirectory(filepath.Join(t.TempDir(), "missing")))
	})
}
