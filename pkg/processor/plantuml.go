package processor

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-markdown-publisher/pkg/diagram"
)

// NamePlantUML PlantUML 图表处理器名称
const NamePlantUML = "plantuml"

// plantumlPattern 围栏 plantuml 块
var plantumlPattern = regexp.MustCompile("(?s)```plantuml\\s+(.*?)\\s+```")

// PlantUMLProcessor PlantUML 图表处理器，结构与 Mermaid 处理器相同
type PlantUMLProcessor struct {
	renderer diagram.Renderer
	logger   *zap.Logger
}

// NewPlantUMLProcessor 创建 PlantUML 处理器
func NewPlantUMLProcessor(opts Options) (ContentProcessor, error) {
	return &PlantUMLProcessor{
		renderer: opts.PlantUML,
		logger:   opts.log(),
	}, nil
}

// Name 返回处理器名称
func (p *PlantUMLProcessor) Name() string { return NamePlantUML }

// Detect 检测 plantuml 围栏块
func (p *PlantUMLProcessor) Detect(content string) []Span {
	var spans []Span
	for _, m := range plantumlPattern.FindAllStringSubmatchIndex(content, -1) {
		spans = append(spans, Span{
			Start: m[0],
			End:   m[1],
			Metadata: map[string]interface{}{
				"code": strings.TrimSpace(content[m[2]:m[3]]),
			},
		})
	}
	return spans
}

// ProcessForPreview 工具可用时渲染为 SVG，否则展示源码面板
func (p *PlantUMLProcessor) ProcessForPreview(content string, metadata map[string]interface{}) string {
	code := metaString(metadata, "code")

	if svg := p.renderSVG(code); svg != "" {
		return fmt.Sprintf(`
<div class="plantuml-diagram" style="text-align: center; margin: 20px 0;">
%s
</div>
`, svg)
	}

	return fmt.Sprintf(`
<div class="plantuml-code" style="padding: 10px; border: 1px solid #ddd; background-color: #f8f8f8; margin: 10px 0;">
  <p><strong>PlantUML Diagram</strong> (PlantUML not available for rendering)</p>
  <pre><code class="language-plantuml">%s</code></pre>
</div>
`, escapeHTML(code))
}

// ProcessForExport pdf/latex 渲染为内联 SVG，不可用时降级为文字占位
func (p *PlantUMLProcessor) ProcessForExport(content string, metadata map[string]interface{}, format string) string {
	code := metaString(metadata, "code")

	switch format {
	case FormatHTML, FormatEPUB:
		return p.ProcessForPreview(content, metadata)

	case FormatPDF, FormatLaTeX:
		if svg := p.renderSVG(code); svg != "" {
			return fmt.Sprintf("\n\n%s\n\n", svg)
		}
		return "\n\n[Diagram Placeholder]\n\n"

	case FormatDOCX:
		return "\n\n[Diagram Placeholder]\n\n"
	}

	return "\n\n```\n[Diagram code removed]\n```\n\n"
}

// renderSVG 调用注入的渲染能力，失败返回空串
func (p *PlantUMLProcessor) renderSVG(code string) string {
	if p.renderer == nil || !p.renderer.Available() {
		p.logger.Warn("PlantUML 不可用，使用降级渲染")
		return ""
	}
	svg, err := p.renderer.RenderSVG(context.Background(), code)
	if err != nil {
		p.logger.Warn("PlantUML 渲染失败，使用降级渲染", zap.Error(err))
		return ""
	}
	return svg
}

// RequiredScripts PlantUML 在服务端渲染，没有脚本依赖
func (p *PlantUMLProcessor) RequiredScripts() []string { return nil }

// RequiredStyles PlantUML 没有额外样式
func (p *PlantUMLProcessor) RequiredStyles() []string { return nil }

// Dependencies 声明外部工具依赖
func (p *PlantUMLProcessor) Dependencies() []string { return []string{"plantuml"} }

// CheckDependencies 报告 PlantUML 是否可用
func (p *PlantUMLProcessor) CheckDependencies() bool {
	return p.renderer != nil && p.renderer.Available()
}
