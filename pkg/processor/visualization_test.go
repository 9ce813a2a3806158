package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisualizationProcessor(t *testing.T) {
	p, err := NewVisualizationProcessor(Options{})
	require.NoError(t, err)

	t.Run("Detect Plotly And Chartjs Fences", func(t *testing.T) {
		content := "```plotly\n{\"data\": []}\n```\n\n```chartjs\n{\"type\": \"bar\"}\n```"
		spans := p.Detect(content)
		require.Len(t, spans, 2)
	})

	t.Run("Plotly Preview Has Container And Guarded Script", func(t *testing.T) {
		out := p.ProcessForPreview("", map[string]interface{}{"kind": "plotly", "code": `{"data": []}`})
		assert.Contains(t, out, "plotly-visualization")
		assert.Contains(t, out, "Plotly.newPlot")
		assert.Contains(t, out, "try {")
		assert.Contains(t, out, "catch (e)")
	})

	t.Run("Chartjs Preview Uses Canvas", func(t *testing.T) {
		out := p.ProcessForPreview("", map[string]interface{}{"kind": "chartjs", "code": `{"type": "bar"}`})
		assert.Contains(t, out, "<canvas")
		assert.Contains(t, out, "new Chart(ctx, chartConfig)")
	})

	t.Run("Element Ids Stable Per Content", func(t *testing.T) {
		first := p.ProcessForPreview("", map[string]interface{}{"kind": "plotly", "code": "{}"})
		second := p.ProcessForPreview("", map[string]interface{}{"kind": "plotly", "code": "{}"})
		assert.Equal(t, first, second)

		other := p.ProcessForPreview("", map[string]interface{}{"kind": "plotly", "code": `{"data": [1]}`})
		assert.NotEqual(t, first, other)
	})

	t.Run("Static Export Uses Placeholders", func(t *testing.T) {
		plotly := p.ProcessForExport("", map[string]interface{}{"kind": "plotly", "code": "{}"}, FormatPDF)
		assert.Contains(t, plotly, "[Plotly Visualization]")

		chartjs := p.ProcessForExport("", map[string]interface{}{"kind": "chartjs", "code": "{}"}, FormatDOCX)
		assert.Contains(t, chartjs, "[Chart.js Visualization]")
	})

	t.Run("Scripts Declared For Both Libraries", func(t *testing.T) {
		scripts := p.RequiredScripts()
		require.Len(t, scripts, 2)
		assert.Contains(t, scripts[0], "plotly")
		assert.Contains(t, scripts[1], "chart.js")
	})
}
