package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMathProcessor(t *testing.T) ContentProcessor {
	t.Helper()
	p, err := NewMathProcessor(Options{})
	require.NoError(t, err)
	return p
}

func TestMathProcessor(t *testing.T) {
	t.Run("Detect Inline Math", func(t *testing.T) {
		p := newMathProcessor(t)
		content := "The formula $E=mc^2$ is famous."

		spans := p.Detect(content)
		require.Len(t, spans, 1)
		assert.Equal(t, "$E=mc^2$", content[spans[0].Start:spans[0].End])
		assert.Equal(t, "E=mc^2", spans[0].Metadata["code"])
		assert.Equal(t, false, spans[0].Metadata["display"])
	})

	t.Run("Detect Display Math", func(t *testing.T) {
		p := newMathProcessor(t)
		content := "Before\n$$\\int_0^1 x\\,dx$$\nafter"

		spans := p.Detect(content)
		require.Len(t, spans, 1)
		assert.Equal(t, "\\int_0^1 x\\,dx", spans[0].Metadata["code"])
		assert.Equal(t, true, spans[0].Metadata["display"])
	})

	t.Run("Inline Pattern Ignores Display Delimiters", func(t *testing.T) {
		p := newMathProcessor(t)
		spans := p.Detect("$$a+b$$")
		require.Len(t, spans, 1)
		assert.Equal(t, true, spans[0].Metadata["display"])
	})

	t.Run("Preview Uses Engine Delimiters", func(t *testing.T) {
		p := newMathProcessor(t)
		inline := p.ProcessForPreview("", map[string]interface{}{"code": "E=mc^2", "display": false})
		assert.Equal(t, `\(E=mc^2\)`, inline)

		display := p.ProcessForPreview("", map[string]interface{}{"code": "a+b", "display": true})
		assert.Equal(t, `\[a+b\]`, display)
	})

	t.Run("Latex Export Byte Identical", func(t *testing.T) {
		p := newMathProcessor(t)
		content := "$E=mc^2$"

		spans := p.Detect(content)
		require.Len(t, spans, 1)
		source := content[spans[0].Start:spans[0].End]
		out := p.ProcessForExport(source, spans[0].Metadata, FormatLaTeX)
		assert.Equal(t, content, out)
	})

	t.Run("Display Export Keeps Double Dollar", func(t *testing.T) {
		p := newMathProcessor(t)
		out := p.ProcessForExport("", map[string]interface{}{"code": "a+b", "display": true}, FormatPDF)
		assert.Equal(t, "$$a+b$$", out)
	})

	t.Run("Multiple Inline Formulas", func(t *testing.T) {
		p := newMathProcessor(t)
		spans := p.Detect("$a$ and $b$ and $c$")
		assert.Len(t, spans, 3)
	})

	t.Run("Katex Engine Scripts", func(t *testing.T) {
		p, err := NewMathProcessor(Options{MathEngine: "katex"})
		require.NoError(t, err)
		scripts := p.RequiredScripts()
		require.NotEmpty(t, scripts)
		assert.Contains(t, scripts[0], "katex")
	})
}
