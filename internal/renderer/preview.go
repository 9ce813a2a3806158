// Package renderer 负责把处理后的 Markdown 组装成完整的预览 HTML 页面
package renderer

import (
	"bytes"
	"fmt"
	"strings"

	mathjax "github.com/litao91/goldmark-mathjax"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"go.uber.org/zap"
)

// 打印控制注释与对应的 HTML 标记
const (
	pageBreakComment        = "<!-- PAGE_BREAK -->"
	restartNumberingComment = "<!-- RESTART_NUMBERING -->"
	pageBreakDiv            = `<div class="page-break"></div>`
	restartNumberingDiv     = `<div class="restart-numbering"></div>`
)

// 页面基础样式，含打印控制标记的支持样式
const baseStyles = `<style>
body {
    font-family: -apple-system, "Segoe UI", "Helvetica Neue", Arial, sans-serif;
    line-height: 1.6;
    max-width: 900px;
    margin: 0 auto;
    padding: 20px;
}
.page-break {
    page-break-after: always;
    break-after: page;
}
.restart-numbering {
    counter-reset: page 1;
}
@media print {
    .page-break { height: 0; }
}
</style>`

// Renderer 预览页面渲染器
type Renderer struct {
	md     goldmark.Markdown
	logger *zap.Logger
}

// New 创建渲染器
// 处理器输出的 HTML 片段必须原样通过，因此启用 WithUnsafe；
// 未被管线接管的代码块由 chroma 高亮兜底
func New(logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				meta.Meta,
				highlighting.NewHighlighting(
					highlighting.WithStyle("github"),
				),
			),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
		logger: logger,
	}
}

// NewStandalone 创建独立模式渲染器
// 不经过内容管线时由 goldmark 直接处理 $ 数学语法
func NewStandalone(logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				meta.Meta,
				mathjax.MathJax,
				highlighting.NewHighlighting(
					highlighting.WithStyle("github"),
				),
			),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
		logger: logger,
	}
}

// BuildPreview 组装完整的预览页面
// processed 是经过内容管线重写后的 Markdown；
// scripts 与 styles 是注册表聚合的注入片段，各注入一次
func (r *Renderer) BuildPreview(processed string, scripts string, styles string) (string, error) {
	processed = convertSentinels(processed)

	var body bytes.Buffer
	ctx := parser.NewContext()
	if err := r.md.Convert([]byte(processed), &body, parser.WithContext(ctx)); err != nil {
		return "", fmt.Errorf("转换 Markdown 失败: %w", err)
	}

	title := "Document"
	if front := meta.Get(ctx); front != nil {
		if t, ok := front["title"].(string); ok && t != "" {
			title = t
		}
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	sb.WriteString("<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&sb, "<title>%s</title>\n", title)
	sb.WriteString(baseStyles)
	sb.WriteString("\n")
	if styles != "" {
		sb.WriteString(styles)
		sb.WriteString("\n")
	}
	if scripts != "" {
		sb.WriteString(scripts)
		sb.WriteString("\n")
	}
	sb.WriteString("</head>\n<body>\n")
	sb.Write(body.Bytes())
	sb.WriteString("\n</body>\n</html>\n")

	return sb.String(), nil
}

// convertSentinels 把打印控制注释转换为 HTML 标记
// 必须在 Markdown 转换前完成，避免注释被渲染器吞掉
func convertSentinels(content string) string {
	content = strings.ReplaceAll(content, pageBreakComment, pageBreakDiv)
	content = strings.ReplaceAll(content, restartNumberingComment, restartNumberingDiv)
	return content
}
