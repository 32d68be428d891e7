package styles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultStyles(t *testing.T) {
	s := DefaultStyles()
	require.NotNil(t, s)
	require.NotNil(t, s.Theme())
	assert.Equal(t, DefaultTheme().Accent, s.Theme().Accent)
	assert.True(t, s.Title.GetBold())
	assert.Contains(t, s.Citation.Render("x"), "x")
}

func TestNewStyles_NilTheme(t *testing.T) {
	s := NewStyles(nil)
	require.NotNil(t, s.Theme())
	assert.NotEqual(t, s.Theme().User, s.Theme().Accent)
}
