package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrontMatter(t *testing.T) {
	raw := "\ufeff---\r\ntitle: Hello\r\nTags: a, b\r\ndate: 2024-01-02\r\nauthor: me\r\n---\r\n\r\n# Body\r\n"

	fm, body, err := ParseFrontMatter([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "Hello", fm.Title)
	assert.Equal(t, []string{"a", "b"}, fm.Tags)
	assert.Equal(t, "2024-01-02", fm.Date)
	assert.Equal(t, map[string]any{"author": "me"}, fm.Extra)
	assert.Equal(t, "# Body\n", string(body))
}

func TestParseFrontMatter_Missing(t *testing.T) {
	_, body, err := ParseFrontMatter([]byte("# Only body\n"))
	assert.ErrorIs(t, err, errNoFrontMatter)
	assert.Equal(t, "# Only body\n", string(body))
}

func TestParseFrontMatter_Unclosed(t *testing.T) {
	_, _, err := ParseFrontMatter([]byte("---\ntitle: x\n# body\n"))
	assert.ErrorIs(t, err, errInvalidFrontMatter)
}
