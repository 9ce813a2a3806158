package processor

import (
	"regexp"

	"go.uber.org/zap"
)

// NameMedia 媒体处理器名称
const NameMedia = "media"

var (
	videoPattern  = regexp.MustCompile(`(?s)<video\s+.*?</video>`)
	audioPattern  = regexp.MustCompile(`(?s)<audio\s+.*?</audio>`)
	iframePattern = regexp.MustCompile(`(?s)<iframe\s+.*?</iframe>`)
)

// mediaPlaceholders 静态格式无法嵌入交互媒体时的文字占位
var mediaPlaceholders = map[string]string{
	"video":  "\n\n[Video content]\n\n",
	"audio":  "\n\n[Audio content]\n\n",
	"iframe": "\n\n[Embedded content]\n\n",
}

// MediaProcessor HTML5 媒体（video/audio/iframe）处理器
type MediaProcessor struct {
	logger *zap.Logger
}

// NewMediaProcessor 创建媒体处理器
func NewMediaProcessor(opts Options) (ContentProcessor, error) {
	return &MediaProcessor{logger: opts.log()}, nil
}

// Name 返回处理器名称
func (p *MediaProcessor) Name() string { return NameMedia }

// Detect 检测 video/audio/iframe 标签
func (p *MediaProcessor) Detect(content string) []Span {
	var spans []Span
	patterns := []struct {
		kind string
		re   *regexp.Regexp
	}{
		{"video", videoPattern},
		{"audio", audioPattern},
		{"iframe", iframePattern},
	}
	for _, pat := range patterns {
		for _, m := range pat.re.FindAllStringIndex(content, -1) {
			spans = append(spans, Span{
				Start: m[0],
				End:   m[1],
				Metadata: map[string]interface{}{
					"kind":    pat.kind,
					"content": content[m[0]:m[1]],
				},
			})
		}
	}
	return spans
}

// ProcessForPreview 预览时原样传递标签
func (p *MediaProcessor) ProcessForPreview(content string, metadata map[string]interface{}) string {
	if original := metaString(metadata, "content"); original != "" {
		return original
	}
	return content
}

// ProcessForExport html/epub 原样传递，静态格式降级为文字占位
func (p *MediaProcessor) ProcessForExport(content string, metadata map[string]interface{}, format string) string {
	switch format {
	case FormatHTML, FormatEPUB:
		return p.ProcessForPreview(content, metadata)
	case FormatPDF, FormatLaTeX, FormatDOCX:
		if placeholder, ok := mediaPlaceholders[metaString(metadata, "kind")]; ok {
			return placeholder
		}
	}
	return p.ProcessForPreview(content, metadata)
}

// RequiredScripts 媒体没有脚本依赖
func (p *MediaProcessor) RequiredScripts() []string { return nil }

// RequiredStyles 媒体没有额外样式
func (p *MediaProcessor) RequiredStyles() []string { return nil }

// Dependencies 媒体处理器不依赖外部工具
func (p *MediaProcessor) Dependencies() []string { return nil }

// CheckDependencies 总是可用
func (p *MediaProcessor) CheckDependencies() bool { return true }
