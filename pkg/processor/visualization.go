package processor

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// NameVisualization 可视化处理器名称
const NameVisualization = "visualization"

var (
	plotlyPattern  = regexp.MustCompile("(?s)```plotly\\s+(.*?)\\s+```")
	chartjsPattern = regexp.MustCompile("(?s)```chartjs\\s+(.*?)\\s+```")
)

// VisualizationProcessor 交互式可视化（Plotly / Chart.js）处理器
type VisualizationProcessor struct {
	logger *zap.Logger
}

// NewVisualizationProcessor 创建可视化处理器
func NewVisualizationProcessor(opts Options) (ContentProcessor, error) {
	return &VisualizationProcessor{logger: opts.log()}, nil
}

// Name 返回处理器名称
func (p *VisualizationProcessor) Name() string { return NameVisualization }

// Detect 检测 plotly 和 chartjs 围栏 JSON 块
func (p *VisualizationProcessor) Detect(content string) []Span {
	var spans []Span
	patterns := []struct {
		kind string
		re   *regexp.Regexp
	}{
		{"plotly", plotlyPattern},
		{"chartjs", chartjsPattern},
	}
	for _, pat := range patterns {
		for _, m := range pat.re.FindAllStringSubmatchIndex(content, -1) {
			spans = append(spans, Span{
				Start: m[0],
				End:   m[1],
				Metadata: map[string]interface{}{
					"kind": pat.kind,
					"code": strings.TrimSpace(content[m[2]:m[3]]),
				},
			})
		}
	}
	return spans
}

// elementID 从块内容派生稳定的 DOM id
func elementID(prefix, code string) string {
	h := fnv.New32a()
	h.Write([]byte(code))
	return fmt.Sprintf("%s-%08x", prefix, h.Sum32())
}

// ProcessForPreview 输出容器加内联脚本，由客户端图表库渲染
// 脚本内部 try/catch，JSON 解析失败时显示错误信息
func (p *VisualizationProcessor) ProcessForPreview(content string, metadata map[string]interface{}) string {
	kind := metaString(metadata, "kind")
	code := metaString(metadata, "code")

	switch kind {
	case "plotly":
		divID := elementID("plotly", code)
		return fmt.Sprintf(`
<div id="%[1]s" class="plotly-visualization" style="width: 100%%; height: 400px;"></div>
<script>
(function() {
    try {
        const plotlyData = %[2]s;
        Plotly.newPlot('%[1]s', plotlyData.data, plotlyData.layout || {});
    } catch (e) {
        console.error('Error rendering Plotly visualization:', e);
        document.getElementById('%[1]s').innerHTML = '<p>Error rendering visualization</p>';
    }
})();
</script>
`, divID, code)

	case "chartjs":
		canvasID := elementID("chartjs", code)
		return fmt.Sprintf(`
<div style="width: 100%%; max-width: 800px; margin: 0 auto;">
    <canvas id="%[1]s" width="800" height="400"></canvas>
</div>
<script>
(function() {
    try {
        const ctx = document.getElementById('%[1]s').getContext('2d');
        const chartConfig = %[2]s;
        new Chart(ctx, chartConfig);
    } catch (e) {
        console.error('Error rendering Chart.js visualization:', e);
        document.getElementById('%[1]s').insertAdjacentHTML('afterend', '<p>Error rendering visualization</p>');
    }
})();
</script>
`, canvasID, code)
	}

	return fmt.Sprintf("```\n%s\n```", code)
}

// ProcessForExport 静态格式降级为文字占位，不做静态图像渲染
func (p *VisualizationProcessor) ProcessForExport(content string, metadata map[string]interface{}, format string) string {
	kind := metaString(metadata, "kind")
	code := metaString(metadata, "code")

	switch format {
	case FormatHTML, FormatEPUB:
		return p.ProcessForPreview(content, metadata)
	case FormatPDF, FormatLaTeX, FormatDOCX:
		switch kind {
		case "plotly":
			return "\n\n[Plotly Visualization]\n\n"
		case "chartjs":
			return "\n\n[Chart.js Visualization]\n\n"
		}
	}

	return fmt.Sprintf("```\n%s\n```", code)
}

// RequiredScripts 返回图表库脚本
func (p *VisualizationProcessor) RequiredScripts() []string {
	return []string{
		`<script src="https://cdn.plot.ly/plotly-latest.min.js"></script>`,
		`<script src="https://cdn.jsdelivr.net/npm/chart.js"></script>`,
	}
}

// RequiredStyles 可视化没有额外样式
func (p *VisualizationProcessor) RequiredStyles() []string { return nil }

// Dependencies 可视化处理器不依赖外部工具
func (p *VisualizationProcessor) Dependencies() []string { return nil }

// CheckDependencies 总是可用
func (p *VisualizationProcessor) CheckDependencies() bool { return true }
