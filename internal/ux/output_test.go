package ux

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFormatter(t *testing.T) {
	t.Run("json formatter", func(t *testing.T) {
		var buf bytes.Buffer
		f, err := NewFormatter("json", &buf)
		require.NoError(t, err)

		err = f.Format(map[string]string{"status": "SUCCESS"})
		require.NoError(t, err)
		assert.Contains(t, buf.String(), `"status": "SUCCESS"`)
	})

	t.Run("yaml formatter", func(t *testing.T) {
		var buf bytes.Buffer
		f, err := NewFormatter("yaml", &buf)
		require.NoError(t, err)

		err = f.Format(map[string]string{"status": "SUCCESS"})
		require.NoError(t, err)
		assert.Contains(t, buf.String(), "status: SUCCESS")
	})

	t.Run("text formatter passes strings through", func(t *testing.T) {
		var buf bytes.Buffer
		f, err := NewFormatter("text", &buf)
		require.NoError(t, err)

		err = f.Format("2 manifests verified")
		require.NoError(t, err)
		assert.Equal(t, "2 manifests verified\n", buf.String())
	})

	t.Run("empty format defaults to text", func(t *testing.T) {
		var buf bytes.Buffer
		f, err := NewFormatter("", &buf)
		require.NoError(t, err)
		assert.NotNil(t, f)
	})

	t.Run("unknown format rejected", func(t *testing.T) {
		_, err := NewFormatter("xml", nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unknown format")
	})
}
