// Package processor 实现 Markdown 内容处理管线
// 每个处理器负责一类内容（代码、公式、图片、图表等）的检测与重写，
// 注册表负责把所有处理器的结果拼接成最终文档
package processor

import (
	"fmt"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-markdown-publisher/pkg/diagram"
)

// 支持的输出格式
const (
	FormatPreview = "preview"
	FormatPDF     = "pdf"
	FormatLaTeX   = "latex"
	FormatHTML    = "html"
	FormatEPUB    = "epub"
	FormatDOCX    = "docx"
)

// Span 表示检测到的内容区域
// 偏移量始终基于检测时的原始文档，满足 0 <= Start < End <= len(document)
type Span struct {
	Start    int
	End      int
	Metadata map[string]interface{}
}

// ContentProcessor 内容处理器接口
// Detect 必须是纯函数；渲染方法在外部工具缺失时必须降级而不是报错
type ContentProcessor interface {
	// Name 返回处理器的稳定名称
	Name() string

	// Detect 扫描文档，返回本处理器负责的所有区域
	Detect(content string) []Span

	// ProcessForPreview 将区域内容渲染为预览 HTML 片段
	ProcessForPreview(content string, metadata map[string]interface{}) string

	// ProcessForExport 将区域内容渲染为指定导出格式
	ProcessForExport(content string, metadata map[string]interface{}, format string) string

	// RequiredScripts 返回需要注入文档的脚本标签
	RequiredScripts() []string

	// RequiredStyles 返回需要注入文档的样式标签
	RequiredStyles() []string

	// Dependencies 返回依赖的外部工具名称
	Dependencies() []string

	// CheckDependencies 报告外部工具是否可用，不可用不是错误
	CheckDependencies() bool
}

// Factory 处理器工厂函数
type Factory func(opts Options) (ContentProcessor, error)

// Options 处理器选项
type Options struct {
	// Highlighter 语法高亮器: highlight.js / prism.js / chroma
	Highlighter string
	// MathEngine 数学公式引擎: mathjax / katex
	MathEngine string
	// AssetPaths 资源路径映射（逻辑路径 -> 实际路径）
	AssetPaths map[string]string
	// Mermaid 注入的 Mermaid 渲染能力，可以为 nil
	Mermaid diagram.Renderer
	// PlantUML 注入的 PlantUML 渲染能力，可以为 nil
	PlantUML diagram.Renderer
	// Logger 日志记录器，为 nil 时使用 nop
	Logger *zap.Logger
	// Metadata 附加元数据
	Metadata map[string]interface{}
}

// log 返回可用的日志记录器
func (o Options) log() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return zap.NewNop()
}

// 合法的配置取值
var (
	knownHighlighters = []string{"highlight.js", "prism.js", "chroma"}
	knownMathEngines  = []string{"mathjax", "katex"}
)

// normalizeChoice 校验配置取值，非法时回退默认值并给出模糊匹配建议
func normalizeChoice(value, fallback string, known []string, logger *zap.Logger, field string) string {
	if value == "" {
		return fallback
	}
	for _, k := range known {
		if value == k {
			return value
		}
	}

	fields := []zap.Field{zap.String(field, value), zap.String("fallback", fallback)}
	if matches := fuzzy.RankFindNormalizedFold(value, known); len(matches) > 0 {
		fields = append(fields, zap.String("suggestion", matches[0].Target))
	}
	logger.Warn("未知的配置取值，使用默认值", fields...)

	return fallback
}

// htmlEscaper 只转义 & < > 三个字符，与下游渲染约定一致
var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// escapeHTML 转义代码内容中的 & < >
func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// errorFragment 将渲染失败转换为可见的错误面板，嵌入原始内容
// 单个区域的失败不能中断整篇文档的处理
func errorFragment(name string, source string, err error) string {
	return fmt.Sprintf(`<div class="processor-error" style="color: red; border: 1px solid #ffcccc; background-color: #ffeeee; padding: 10px; margin: 10px 0;">
<p>%s 渲染失败: %s</p>
<pre><code>%s</code></pre>
</div>`, name, escapeHTML(err.Error()), escapeHTML(source))
}

// metaString 从元数据中取字符串值
func metaString(metadata map[string]interface{}, key string) string {
	if metadata == nil {
		return ""
	}
	if v, ok := metadata[key].(string); ok {
		return v
	}
	return ""
}

// metaBool 从元数据中取布尔值
func metaBool(metadata map[string]interface{}, key string) bool {
	if metadata == nil {
		return false
	}
	if v, ok := metadata[key].(bool); ok {
		return v
	}
	return false
}
