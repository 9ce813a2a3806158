package processor

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"go.uber.org/zap"
)

// NameCode 代码块处理器名称
const NameCode = "code"

// codeBlockPattern 围栏代码块，语言标签可选
var codeBlockPattern = regexp.MustCompile("(?s)```(\\w+)?[ \\t]*\\n(.*?)\\n```")

// excludedCodeLanguages 由专门的处理器负责的语言标签
// 两个处理器的模式可能匹配同一区域时必须在此排除
var excludedCodeLanguages = map[string]bool{
	"mermaid":  true,
	"plantuml": true,
	"plotly":   true,
	"chartjs":  true,
	"csv":      true,
}

// CodeBlockProcessor 围栏代码块处理器
type CodeBlockProcessor struct {
	highlighter string
	logger      *zap.Logger
}

// NewCodeBlockProcessor 创建代码块处理器
func NewCodeBlockProcessor(opts Options) (ContentProcessor, error) {
	logger := opts.log()
	return &CodeBlockProcessor{
		highlighter: normalizeChoice(opts.Highlighter, "highlight.js", knownHighlighters, logger, "highlighter"),
		logger:      logger,
	}, nil
}

// Name 返回处理器名称
func (p *CodeBlockProcessor) Name() string { return NameCode }

// Detect 检测围栏代码块，跳过由专门处理器负责的语言
func (p *CodeBlockProcessor) Detect(content string) []Span {
	var spans []Span
	for _, m := range codeBlockPattern.FindAllStringSubmatchIndex(content, -1) {
		language := ""
		if m[2] >= 0 {
			language = content[m[2]:m[3]]
		}
		if excludedCodeLanguages[strings.ToLower(language)] {
			continue
		}
		spans = append(spans, Span{
			Start: m[0],
			End:   m[1],
			Metadata: map[string]interface{}{
				"language": language,
				"code":     content[m[4]:m[5]],
			},
		})
	}
	return spans
}

// ProcessForPreview 渲染为高亮用的 HTML 代码块
func (p *CodeBlockProcessor) ProcessForPreview(content string, metadata map[string]interface{}) string {
	language := metaString(metadata, "language")
	code := metaString(metadata, "code")

	if p.highlighter == "chroma" {
		if highlighted, err := p.chromaHighlight(code, language); err == nil {
			return highlighted
		} else {
			p.logger.Warn("chroma 高亮失败，回退到纯文本输出",
				zap.String("language", language),
				zap.Error(err))
		}
	}

	escaped := escapeHTML(code)
	if language != "" {
		return fmt.Sprintf(`<pre><code class="language-%s">%s</code></pre>`, language, escaped)
	}
	return fmt.Sprintf(`<pre><code>%s</code></pre>`, escaped)
}

// ProcessForExport 导出时重新输出原始围栏语法，交给下游生成器做高亮
// html/epub 复用预览输出
func (p *CodeBlockProcessor) ProcessForExport(content string, metadata map[string]interface{}, format string) string {
	language := metaString(metadata, "language")
	code := metaString(metadata, "code")

	switch format {
	case FormatHTML, FormatEPUB:
		return p.ProcessForPreview(content, metadata)
	}

	if language != "" {
		return fmt.Sprintf("```%s\n%s\n```", language, code)
	}
	return fmt.Sprintf("```\n%s\n```", code)
}

// chromaHighlight 服务端高亮，输出带内联样式的 HTML
func (p *CodeBlockProcessor) chromaHighlight(code, language string) (string, error) {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", fmt.Errorf("词法分析失败: %w", err)
	}

	formatter := html.New(html.WithClasses(false), html.WithLineNumbers(false))
	var sb strings.Builder
	if err := formatter.Format(&sb, styles.Get("github"), iterator); err != nil {
		return "", fmt.Errorf("格式化失败: %w", err)
	}
	return sb.String(), nil
}

// RequiredScripts 返回客户端高亮所需的脚本
func (p *CodeBlockProcessor) RequiredScripts() []string {
	switch p.highlighter {
	case "prism.js":
		return []string{
			`<link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/prismjs@1.29.0/themes/prism.min.css">`,
			`<script src="https://cdn.jsdelivr.net/npm/prismjs@1.29.0/prism.min.js"></script>`,
		}
	case "chroma":
		// 服务端高亮不需要客户端脚本
		return nil
	default:
		return []string{
			`<link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/highlight.js@11.7.0/styles/default.min.css">`,
			`<script src="https://cdn.jsdelivr.net/npm/highlight.js@11.7.0/lib/highlight.min.js"></script>`,
			`<script>hljs.highlightAll();</script>`,
		}
	}
}

// RequiredStyles 代码块没有额外样式
func (p *CodeBlockProcessor) RequiredStyles() []string { return nil }

// Dependencies 代码块处理器不依赖外部工具
func (p *CodeBlockProcessor) Dependencies() []string { return nil }

// CheckDependencies 总是可用
func (p *CodeBlockProcessor) CheckDependencies() bool { return true }
