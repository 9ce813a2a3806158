package processor

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// NameImage 图片处理器名称
const NameImage = "image"

var (
	// markdownImagePattern ![alt](src "title")，标题可选
	markdownImagePattern = regexp.MustCompile(`!\[(.*?)\]\((.*?)(?:\s+"(.*?)")?\)`)
	// htmlImagePattern 原生 <img> 标签
	htmlImagePattern = regexp.MustCompile(`<img\s+[^>]*src="[^"]*"[^>]*>`)
	// svgPattern 内联 SVG
	svgPattern = regexp.MustCompile(`(?s)<svg\s+.*?</svg>`)
)

// ImageProcessor 图片与 SVG 处理器
type ImageProcessor struct {
	assetPaths map[string]string
	logger     *zap.Logger
}

// NewImageProcessor 创建图片处理器
func NewImageProcessor(opts Options) (ContentProcessor, error) {
	return &ImageProcessor{
		assetPaths: opts.AssetPaths,
		logger:     opts.log(),
	}, nil
}

// Name 返回处理器名称
func (p *ImageProcessor) Name() string { return NameImage }

// Detect 检测 Markdown 图片、HTML 图片和内联 SVG
func (p *ImageProcessor) Detect(content string) []Span {
	var spans []Span

	for _, m := range markdownImagePattern.FindAllStringSubmatchIndex(content, -1) {
		title := ""
		if m[6] >= 0 {
			title = content[m[6]:m[7]]
		}
		spans = append(spans, Span{
			Start: m[0],
			End:   m[1],
			Metadata: map[string]interface{}{
				"kind":  "markdown_image",
				"alt":   content[m[2]:m[3]],
				"src":   p.resolvePath(content[m[4]:m[5]]),
				"title": title,
			},
		})
	}

	for _, m := range htmlImagePattern.FindAllStringIndex(content, -1) {
		original := content[m[0]:m[1]]
		src, alt := parseImgAttributes(original)
		spans = append(spans, Span{
			Start: m[0],
			End:   m[1],
			Metadata: map[string]interface{}{
				"kind":     "html_image",
				"src":      p.resolvePath(src),
				"alt":      alt,
				"original": original,
			},
		})
	}

	for _, m := range svgPattern.FindAllStringIndex(content, -1) {
		spans = append(spans, Span{
			Start: m[0],
			End:   m[1],
			Metadata: map[string]interface{}{
				"kind":    "svg",
				"content": content[m[0]:m[1]],
			},
		})
	}

	return spans
}

// parseImgAttributes 用 goquery 解析 <img> 标签属性
func parseImgAttributes(tag string) (src, alt string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(tag))
	if err != nil {
		return "", ""
	}
	img := doc.Find("img").First()
	src, _ = img.Attr("src")
	alt, _ = img.Attr("alt")
	return src, alt
}

// resolvePath 应用调用方提供的资源路径映射
func (p *ImageProcessor) resolvePath(path string) string {
	if resolved, ok := p.assetPaths[path]; ok {
		p.logger.Debug("解析资源路径",
			zap.String("from", path),
			zap.String("to", resolved))
		return resolved
	}
	return path
}

// ProcessForPreview 渲染为预览 HTML
func (p *ImageProcessor) ProcessForPreview(content string, metadata map[string]interface{}) string {
	switch metaString(metadata, "kind") {
	case "markdown_image":
		alt := metaString(metadata, "alt")
		src := metaString(metadata, "src")
		title := metaString(metadata, "title")
		titleAttr := ""
		if title != "" {
			titleAttr = fmt.Sprintf(` title="%s"`, title)
		}
		return fmt.Sprintf(`<img src="%s" alt="%s"%s class="markdown-image">`, src, alt, titleAttr)
	case "html_image":
		return metaString(metadata, "original")
	case "svg":
		return metaString(metadata, "content")
	}
	return content
}

// ProcessForExport 按格式渲染
// pdf/latex 的 SVG 原样传递，交给下游处理；docx 的 SVG 降级为文字占位
func (p *ImageProcessor) ProcessForExport(content string, metadata map[string]interface{}, format string) string {
	kind := metaString(metadata, "kind")

	switch format {
	case FormatHTML, FormatEPUB:
		return p.ProcessForPreview(content, metadata)

	case FormatPDF, FormatLaTeX:
		if kind == "svg" {
			return fmt.Sprintf("\n\n%s\n\n", metaString(metadata, "content"))
		}
		if kind == "markdown_image" {
			return p.markdownImage(metadata)
		}
		return metaString(metadata, "original")

	case FormatDOCX:
		switch kind {
		case "markdown_image":
			return p.markdownImage(metadata)
		case "html_image":
			return fmt.Sprintf("![Image](%s)", metaString(metadata, "src"))
		case "svg":
			// 不做内联栅格转换
			return "\n\n[SVG Image]\n\n"
		}
	}

	return content
}

// markdownImage 输出 Markdown 图片语法，路径已解析
func (p *ImageProcessor) markdownImage(metadata map[string]interface{}) string {
	alt := metaString(metadata, "alt")
	src := metaString(metadata, "src")
	title := metaString(metadata, "title")
	if title != "" {
		return fmt.Sprintf(`![%s](%s "%s")`, alt, src, title)
	}
	return fmt.Sprintf("![%s](%s)", alt, src)
}

// RequiredScripts 图片没有脚本依赖
func (p *ImageProcessor) RequiredScripts() []string { return nil }

// RequiredStyles 图片没有额外样式
func (p *ImageProcessor) RequiredStyles() []string { return nil }

// Dependencies 图片处理器不依赖外部工具
func (p *ImageProcessor) Dependencies() []string { return nil }

// CheckDependencies 总是可用
func (p *ImageProcessor) CheckDependencies() bool { return true }
