package processor

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-markdown-publisher/pkg/diagram"
)

// NameMermaid Mermaid 图表处理器名称
const NameMermaid = "mermaid"

// mermaidPattern 围栏 mermaid 块
var mermaidPattern = regexp.MustCompile("(?s)```mermaid\\s+(.*?)\\s+```")

// MermaidProcessor Mermaid 图表处理器
// 预览始终输出客户端渲染容器；导出到 pdf/latex 时尝试用 CLI 渲染为 SVG
type MermaidProcessor struct {
	renderer diagram.Renderer
	logger   *zap.Logger
}

// NewMermaidProcessor 创建 Mermaid 处理器
func NewMermaidProcessor(opts Options) (ContentProcessor, error) {
	return &MermaidProcessor{
		renderer: opts.Mermaid,
		logger:   opts.log(),
	}, nil
}

// Name 返回处理器名称
func (p *MermaidProcessor) Name() string { return NameMermaid }

// Detect 检测 mermaid 围栏块
func (p *MermaidProcessor) Detect(content string) []Span {
	var spans []Span
	for _, m := range mermaidPattern.FindAllStringSubmatchIndex(content, -1) {
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

// ProcessForPreview 输出客户端渲染容器
// 预览路径有意不依赖 CLI，与导出路径分离
func (p *MermaidProcessor) ProcessForPreview(content string, metadata map[string]interface{}) string {
	code := metaString(metadata, "code")
	return fmt.Sprintf(`
<div class="mermaid-wrapper" style="text-align: center; margin: 20px auto; width: 100%%;">
  <div class="mermaid" style="display: inline-block; max-width: 100%%; text-align: center;">
%s
  </div>
</div>
`, code)
}

// ProcessForExport pdf/latex 渲染为内联 SVG，CLI 不可用时降级为文字占位
func (p *MermaidProcessor) ProcessForExport(content string, metadata map[string]interface{}, format string) string {
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
		// docx 不做 SVG 栅格转换
		if svg := p.renderSVG(code); svg != "" {
			return "\n\n[Diagram Image]\n\n"
		}
		return "\n\n[Diagram Placeholder]\n\n"
	}

	return "\n\n```\n[Diagram code removed]\n```\n\n"
}

// renderSVG 调用注入的渲染能力，失败返回空串
func (p *MermaidProcessor) renderSVG(code string) string {
	if p.renderer == nil || !p.renderer.Available() {
		p.logger.Warn("Mermaid CLI 不可用，使用降级渲染")
		return ""
	}
	svg, err := p.renderer.RenderSVG(context.Background(), code)
	if err != nil {
		p.logger.Warn("Mermaid 渲染失败，使用降级渲染", zap.Error(err))
		return ""
	}
	return svg
}

// RequiredScripts 返回客户端渲染脚本
func (p *MermaidProcessor) RequiredScripts() []string {
	return []string{
		`<script src="https://cdn.jsdelivr.net/npm/mermaid/dist/mermaid.min.js"></script>`,
		`<script>mermaid.initialize({startOnLoad:true});</script>`,
	}
}

// RequiredStyles Mermaid 没有额外样式
func (p *MermaidProcessor) RequiredStyles() []string { return nil }

// Dependencies 声明外部工具依赖
func (p *MermaidProcessor) Dependencies() []string { return []string{"mermaid-cli"} }

// CheckDependencies 报告 CLI 是否可用
func (p *MermaidProcessor) CheckDependencies() bool {
	return p.renderer != nil && p.renderer.Available()
}
