package processor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRenderer 测试用图表渲染器
type fakeRenderer struct {
	available bool
	svg       string
	err       error
	calls     int
}

func (f *fakeRenderer) Available() bool { return f.available }

func (f *fakeRenderer) RenderSVG(ctx context.Context, code string) (string, error) {
	f.calls++
	return f.svg, f.err
}

func TestMermaidProcessor(t *testing.T) {
	t.Run("Detect Mermaid Fence", func(t *testing.T) {
		p, err := NewMermaidProcessor(Options{})
		require.NoError(t, err)

		content := "```mermaid\ngraph TD\nA-->B\n```"
		spans := p.Detect(content)
		require.Len(t, spans, 1)
		assert.Equal(t, "graph TD\nA-->B", spans[0].Metadata["code"])
	})

	t.Run("Preview Emits Client Side Container", func(t *testing.T) {
		p, err := NewMermaidProcessor(Options{})
		require.NoError(t, err)

		out := p.ProcessForPreview("", map[string]interface{}{"code": "graph TD\nA-->B"})
		assert.Contains(t, out, `<div class="mermaid"`)
		assert.Contains(t, out, "graph TD\nA-->B")
	})

	t.Run("Pdf Export Renders Inline SVG", func(t *testing.T) {
		r := &fakeRenderer{available: true, svg: "<svg>diagram</svg>"}
		p, err := NewMermaidProcessor(Options{Mermaid: r})
		require.NoError(t, err)

		out := p.ProcessForExport("", map[string]interface{}{"code": "graph TD"}, FormatPDF)
		assert.Contains(t, out, "<svg>diagram</svg>")
		assert.Equal(t, 1, r.calls)
	})

	t.Run("Missing Tool Degrades To Placeholder", func(t *testing.T) {
		p, err := NewMermaidProcessor(Options{})
		require.NoError(t, err)

		out := p.ProcessForExport("", map[string]interface{}{"code": "graph TD"}, FormatPDF)
		assert.Contains(t, out, "[Diagram Placeholder]")
	})

	t.Run("Render Failure Degrades To Placeholder", func(t *testing.T) {
		r := &fakeRenderer{available: true, err: errors.New("boom")}
		p, err := NewMermaidProcessor(Options{Mermaid: r})
		require.NoError(t, err)

		out := p.ProcessForExport("", map[string]interface{}{"code": "graph TD"}, FormatPDF)
		assert.Contains(t, out, "[Diagram Placeholder]")
	})

	t.Run("CheckDependencies Reflects Renderer", func(t *testing.T) {
		withTool, err := NewMermaidProcessor(Options{Mermaid: &fakeRenderer{available: true}})
		require.NoError(t, err)
		assert.True(t, withTool.CheckDependencies())

		withoutTool, err := NewMermaidProcessor(Options{})
		require.NoError(t, err)
		assert.False(t, withoutTool.CheckDependencies())
	})
}

func TestPlantUMLProcessor(t *testing.T) {
	t.Run("Detect PlantUML Fence", func(t *testing.T) {
		p, err := NewPlantUMLProcessor(Options{})
		require.NoError(t, err)

		content := "```plantuml\n@startuml\nA -> B\n@enduml\n```"
		spans := p.Detect(content)
		require.Len(t, spans, 1)
		assert.Equal(t, "@startuml\nA -> B\n@enduml", spans[0].Metadata["code"])
	})

	t.Run("Preview Renders SVG When Available", func(t *testing.T) {
		r := &fakeRenderer{available: true, svg: "<svg>uml</svg>"}
		p, err := NewPlantUMLProcessor(Options{PlantUML: r})
		require.NoError(t, err)

		out := p.ProcessForPreview("", map[string]interface{}{"code": "@startuml\n@enduml"})
		assert.Contains(t, out, "<svg>uml</svg>")
	})

	t.Run("Preview Shows Escaped Source When Unavailable", func(t *testing.T) {
		p, err := NewPlantUMLProcessor(Options{})
		require.NoError(t, err)

		out := p.ProcessForPreview("", map[string]interface{}{"code": "A -> B"})
		assert.Contains(t, out, "PlantUML not available")
		assert.Contains(t, out, "A -&gt; B")
	})

	t.Run("Docx Export Uses Placeholder", func(t *testing.T) {
		p, err := NewPlantUMLProcessor(Options{PlantUML: &fakeRenderer{available: true, svg: "<svg/>"}})
		require.NoError(t, err)

		out := p.ProcessForExport("", map[string]interface{}{"code": "A -> B"}, FormatDOCX)
		assert.Contains(t, out, "[Diagram Placeholder]")
	})
}
