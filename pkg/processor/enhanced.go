package processor

import (
	"encoding/csv"
	"fmt"
	"os"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-markdown-publisher/pkg/diagram"
)

// NameEnhancedElement 增强元素处理器名称
const NameEnhancedElement = "enhanced_element"

var (
	// tablePattern 管道表格：表头行、对齐行、至少一行数据
	// 数据行可以以换行或文件末尾结束
	tablePattern = regexp.MustCompile(`(\|[^\n]+\|\n\|[-:| ]+\|\n(?:\|[^\n]+\|(?:\n|$))+)`)
	// csvFencePattern 围栏 csv 块
	csvFencePattern = regexp.MustCompile("(?s)```csv\\s+(.*?)\\s+```")
)

// EnhancedElementProcessor 增强元素处理器
// 负责管道表格与 CSV 块；mermaid/plantuml/math 由各自的专门处理器负责，
// 这里只在构造时探测相关工具用于依赖报告
type EnhancedElementProcessor struct {
	mermaid          diagram.Renderer
	plantuml         diagram.Renderer
	mathjaxAvailable bool
	logger           *zap.Logger
}

// NewEnhancedElementProcessor 创建增强元素处理器
func NewEnhancedElementProcessor(opts Options) (ContentProcessor, error) {
	logger := opts.log()

	p := &EnhancedElementProcessor{
		mermaid:  opts.Mermaid,
		plantuml: opts.PlantUML,
		logger:   logger,
	}

	// 本地 MathJax 资源缺失时回退到 CDN，只影响依赖报告
	mathjaxPath := metaString(opts.Metadata, "mathjax_path")
	if mathjaxPath == "" {
		mathjaxPath = "resources/mathjax"
	}
	if _, err := os.Stat(mathjaxPath); err == nil {
		p.mathjaxAvailable = true
	} else {
		logger.Debug("未找到本地 MathJax 资源，数学公式使用 CDN 渲染",
			zap.String("path", mathjaxPath))
	}

	return p, nil
}

// Name 返回处理器名称
func (p *EnhancedElementProcessor) Name() string { return NameEnhancedElement }

// Detect 检测管道表格与 csv 围栏块
func (p *EnhancedElementProcessor) Detect(content string) []Span {
	var spans []Span

	for _, m := range tablePattern.FindAllStringSubmatchIndex(content, -1) {
		spans = append(spans, Span{
			Start: m[0],
			End:   m[1],
			Metadata: map[string]interface{}{
				"kind":    "table",
				"content": content[m[2]:m[3]],
			},
		})
	}

	for _, m := range csvFencePattern.FindAllStringSubmatchIndex(content, -1) {
		spans = append(spans, Span{
			Start: m[0],
			End:   m[1],
			Metadata: map[string]interface{}{
				"kind":    "csv",
				"content": strings.TrimSpace(content[m[2]:m[3]]),
			},
		})
	}

	return spans
}

// ProcessForPreview 表格渲染为带样式类的 HTML，CSV 渲染为 HTML 表格
func (p *EnhancedElementProcessor) ProcessForPreview(content string, metadata map[string]interface{}) string {
	switch metaString(metadata, "kind") {
	case "table":
		return p.tableToHTML(metaString(metadata, "content"))
	case "csv":
		return p.csvToHTML(metaString(metadata, "content"))
	}
	return content
}

// ProcessForExport 表格原样传递给下游生成器，CSV 转换为管道表格
func (p *EnhancedElementProcessor) ProcessForExport(content string, metadata map[string]interface{}, format string) string {
	kind := metaString(metadata, "kind")

	if format == FormatHTML || format == FormatEPUB {
		return p.ProcessForPreview(content, metadata)
	}

	switch kind {
	case "table":
		// 下游生成器有原生表格支持
		return content
	case "csv":
		return p.csvToPipeTable(metaString(metadata, "content"))
	}
	return content
}

// tableToHTML 解析管道表格并输出增强 HTML 表格
func (p *EnhancedElementProcessor) tableToHTML(table string) string {
	lines := strings.Split(strings.TrimSpace(table), "\n")
	if len(lines) < 3 {
		return table
	}

	alignments := parseAlignments(lines[1])
	align := func(i int) string {
		if i < len(alignments) {
			return alignments[i]
		}
		return "left"
	}

	var sb strings.Builder
	sb.WriteString("<div class=\"enhanced-table-container\">\n<table class=\"enhanced-table\">\n")

	sb.WriteString("<thead>\n<tr>\n")
	for i, cell := range splitTableRow(lines[0]) {
		fmt.Fprintf(&sb, "<th style=\"text-align: %s\">%s</th>\n", align(i), strings.TrimSpace(cell))
	}
	sb.WriteString("</tr>\n</thead>\n<tbody>\n")

	for _, row := range lines[2:] {
		sb.WriteString("<tr>\n")
		for i, cell := range splitTableRow(row) {
			fmt.Fprintf(&sb, "<td style=\"text-align: %s\">%s</td>\n", align(i), strings.TrimSpace(cell))
		}
		sb.WriteString("</tr>\n")
	}

	sb.WriteString("</tbody>\n</table>\n</div>")
	return sb.String()
}

// parseAlignments 解析表格对齐行
func parseAlignments(row string) []string {
	var alignments []string
	for _, cell := range splitTableRow(row) {
		cell = strings.TrimSpace(cell)
		switch {
		case strings.HasPrefix(cell, ":") && strings.HasSuffix(cell, ":"):
			alignments = append(alignments, "center")
		case strings.HasSuffix(cell, ":"):
			alignments = append(alignments, "right")
		default:
			alignments = append(alignments, "left")
		}
	}
	return alignments
}

// splitTableRow 去掉首尾管道后按管道切分
func splitTableRow(row string) []string {
	row = strings.TrimSpace(row)
	row = strings.TrimPrefix(row, "|")
	row = strings.TrimSuffix(row, "|")
	return strings.Split(row, "|")
}

// csvToHTML 解析 CSV 并输出 HTML 表格，首行作为表头
func (p *EnhancedElementProcessor) csvToHTML(content string) string {
	rows, err := p.parseCSV(content)
	if err != nil {
		return fmt.Sprintf(`<div class="csv-error">Error processing CSV data: %s</div>`, escapeHTML(err.Error()))
	}
	if len(rows) == 0 {
		return `<div class="csv-error">Empty CSV data</div>`
	}

	var sb strings.Builder
	sb.WriteString("<div class=\"csv-table-container\">\n<table class=\"csv-table\">\n")

	sb.WriteString("<thead>\n<tr>\n")
	for _, cell := range rows[0] {
		fmt.Fprintf(&sb, "<th>%s</th>\n", escapeHTML(cell))
	}
	sb.WriteString("</tr>\n</thead>\n<tbody>\n")

	for _, row := range rows[1:] {
		sb.WriteString("<tr>\n")
		for _, cell := range row {
			fmt.Fprintf(&sb, "<td>%s</td>\n", escapeHTML(cell))
		}
		sb.WriteString("</tr>\n")
	}

	sb.WriteString("</tbody>\n</table>\n</div>")
	return sb.String()
}

// csvToPipeTable 把 CSV 转换为管道表格供下游生成器使用
func (p *EnhancedElementProcessor) csvToPipeTable(content string) string {
	rows, err := p.parseCSV(content)
	if err != nil {
		return fmt.Sprintf("**Error processing CSV data: %s**", err.Error())
	}
	if len(rows) == 0 {
		return "**Empty CSV data**"
	}

	var lines []string
	lines = append(lines, "| "+strings.Join(rows[0], " | ")+" |")

	separators := make([]string, len(rows[0]))
	for i := range separators {
		separators[i] = "---"
	}
	lines = append(lines, "| "+strings.Join(separators, " | ")+" |")

	for _, row := range rows[1:] {
		lines = append(lines, "| "+strings.Join(row, " | ")+" |")
	}

	return strings.Join(lines, "\n")
}

// parseCSV 解析 CSV 内容，允许行字段数不一致
func (p *EnhancedElementProcessor) parseCSV(content string) ([][]string, error) {
	reader := csv.NewReader(strings.NewReader(content))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		p.logger.Error("解析 CSV 失败", zap.Error(err))
		return nil, fmt.Errorf("解析 CSV 失败: %w", err)
	}
	return rows, nil
}

// RequiredScripts 本地 MathJax 缺失时声明 CDN 脚本
func (p *EnhancedElementProcessor) RequiredScripts() []string {
	var scripts []string
	if !p.mathjaxAvailable {
		scripts = append(scripts, `<script src="https://cdn.jsdelivr.net/npm/mathjax@3/es5/tex-mml-chtml.js"></script>`)
	}
	return scripts
}

// RequiredStyles 返回表格与错误面板样式
func (p *EnhancedElementProcessor) RequiredStyles() []string {
	return []string{`<style>
.enhanced-table-container, .csv-table-container {
    overflow-x: auto;
    margin: 20px 0;
}
.enhanced-table, .csv-table {
    border-collapse: collapse;
    width: 100%;
    border: 1px solid #ddd;
}
.enhanced-table th, .enhanced-table td,
.csv-table th, .csv-table td {
    padding: 8px;
    border: 1px solid #ddd;
}
.enhanced-table thead, .csv-table thead {
    background-color: #f2f2f2;
    font-weight: bold;
}
.enhanced-table tr:nth-child(even),
.csv-table tr:nth-child(even) {
    background-color: #f9f9f9;
}
.csv-error {
    color: red;
    font-style: italic;
    padding: 10px;
    border: 1px solid #ffcccc;
    background-color: #ffeeee;
    margin: 10px 0;
}
</style>`}
}

// Dependencies 声明探测过的外部工具
func (p *EnhancedElementProcessor) Dependencies() []string {
	var deps []string
	if p.mermaid == nil || !p.mermaid.Available() {
		deps = append(deps, "@mermaid-js/mermaid-cli")
	}
	if p.plantuml == nil || !p.plantuml.Available() {
		deps = append(deps, "plantuml")
	}
	return deps
}

// CheckDependencies 部分依赖缺失也能降级工作，始终返回 true
func (p *EnhancedElementProcessor) CheckDependencies() bool { return true }
