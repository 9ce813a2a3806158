package processor

import (
	"fmt"
	"regexp"

	"github.com/dlclark/regexp2"
	"go.uber.org/zap"
)

// NameMath 数学公式处理器名称
const NameMath = "math"

var (
	// inlineMathPattern 行内公式 $...$，不能匹配 $$
	// 需要环视断言，标准库 regexp 不支持，使用 regexp2
	inlineMathPattern = regexp2.MustCompile(`(?<!\$)\$(?!\$)(.*?)(?<!\$)\$(?!\$)`, regexp2.None)
	// displayMathPattern 块级公式 $$...$$
	displayMathPattern = regexp.MustCompile(`(?s)\$\$(.*?)\$\$`)
)

// MathProcessor LaTeX 数学公式处理器
type MathProcessor struct {
	engine string
	logger *zap.Logger
}

// NewMathProcessor 创建数学公式处理器
func NewMathProcessor(opts Options) (ContentProcessor, error) {
	logger := opts.log()
	return &MathProcessor{
		engine: normalizeChoice(opts.MathEngine, "mathjax", knownMathEngines, logger, "math_engine"),
		logger: logger,
	}, nil
}

// Name 返回处理器名称
func (p *MathProcessor) Name() string { return NameMath }

// Detect 检测行内与块级公式
func (p *MathProcessor) Detect(content string) []Span {
	var spans []Span

	// 块级公式优先检测，行内模式的环视保证不会匹配 $$ 边界
	for _, m := range displayMathPattern.FindAllStringSubmatchIndex(content, -1) {
		spans = append(spans, Span{
			Start: m[0],
			End:   m[1],
			Metadata: map[string]interface{}{
				"code":    content[m[2]:m[3]],
				"display": true,
			},
		})
	}

	m, err := inlineMathPattern.FindStringMatch(content)
	for err == nil && m != nil {
		spans = append(spans, Span{
			Start: m.Index,
			End:   m.Index + m.Length,
			Metadata: map[string]interface{}{
				"code":    m.GroupByNumber(1).String(),
				"display": false,
			},
		})
		m, err = inlineMathPattern.FindNextMatch(m)
	}
	if err != nil {
		p.logger.Debug("行内公式匹配中断", zap.Error(err))
	}

	return spans
}

// ProcessForPreview 输出引擎的行内/块级转义序列，由客户端渲染
func (p *MathProcessor) ProcessForPreview(content string, metadata map[string]interface{}) string {
	code := metaString(metadata, "code")
	if metaBool(metadata, "display") {
		return fmt.Sprintf(`\[%s\]`, code)
	}
	return fmt.Sprintf(`\(%s\)`, code)
}

// ProcessForExport pdf/latex/docx 重新输出原生 $ 语法，html/epub 复用预览形式
func (p *MathProcessor) ProcessForExport(content string, metadata map[string]interface{}, format string) string {
	code := metaString(metadata, "code")
	display := metaBool(metadata, "display")

	switch format {
	case FormatHTML, FormatEPUB:
		return p.ProcessForPreview(content, metadata)
	}

	if display {
		return fmt.Sprintf("$$%s$$", code)
	}
	return fmt.Sprintf("$%s$", code)
}

// RequiredScripts 返回所选引擎的客户端渲染脚本
func (p *MathProcessor) RequiredScripts() []string {
	if p.engine == "katex" {
		return []string{
			`<link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/katex@0.16.8/dist/katex.min.css">`,
			`<script defer src="https://cdn.jsdelivr.net/npm/katex@0.16.8/dist/katex.min.js"></script>`,
			`<script defer src="https://cdn.jsdelivr.net/npm/katex@0.16.8/dist/contrib/auto-render.min.js" onload="renderMathInElement(document.body);"></script>`,
		}
	}
	return []string{
		`<script type="text/javascript" id="MathJax-script" async src="https://cdn.jsdelivr.net/npm/mathjax@3/es5/tex-mml-chtml.js"></script>`,
		`<script>window.MathJax = {tex: {inlineMath: [['\\(', '\\)']], displayMath: [['\\[', '\\]']], processEscapes: true}};</script>`,
	}
}

// RequiredStyles 数学公式没有额外样式
func (p *MathProcessor) RequiredStyles() []string { return nil }

// Dependencies 数学公式处理器不依赖外部工具
func (p *MathProcessor) Dependencies() []string { return nil }

// CheckDependencies 总是可用
func (p *MathProcessor) CheckDependencies() bool { return true }
