package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeList(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "list.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestListLoader_Aliases(t *testing.T) {
	l := NewListLoader()
	want := map[string]string{"S.F.": "San Francisco", "NYC": "New York"}

	tests := []struct {
		name    string
		content string
	}{
		{"wrapped", "aliases:\n  S.F.: San Francisco\n  NYC: New York\n"},
		{"plain", "S.F.: San Francisco\nNYC: New York\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := l.Aliases(writeList(t, tt.content))
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestListLoader_AliasesErrors(t *testing.T) {
	l := NewListLoader()

	got, err := l.Aliases("")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = l.Aliases(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = l.Aliases(writeList(t, "- a\n- b\n"))
	assert.ErrorContains(t, err, "expected a mapping")

	got, err = l.Aliases(writeList(t, ""))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestListLoader_Stopwords(t *testing.T) {
	l := NewListLoader()

	got, err := l.Stopwords(writeList(t, "stopwords:\n  - The\n  - ' harbor '\n  - ''\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"the", "harbor"}, got)

	got, err = l.Stopwords(writeList(t, "- county\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"county"}, got)

	_, err = l.Stopwords(writeList(t, "stopwords: nope\n"))
	assert.ErrorContains(t, err, "expected a list")

	got, err = l.Stopwords("")
	require.NoError(t, err)
	assert.Nil(t, got)
}
