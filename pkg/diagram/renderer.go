package diagram

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Renderer 图表渲染能力
// 处理器只依赖注入的 Renderer，不关心工具定位细节
type Renderer interface {
	// Available 报告渲染工具是否可用
	Available() bool
	// RenderSVG 将图表代码渲染为 SVG 字符串
	RenderSVG(ctx context.Context, code string) (string, error)
}

// DefaultTimeout 图表渲染默认超时时间
const DefaultTimeout = 15 * time.Second

// MermaidRenderer 基于 Mermaid CLI 的渲染器
type MermaidRenderer struct {
	tool    *Tool
	timeout time.Duration
	logger  *zap.Logger
}

// NewMermaidRenderer 创建 Mermaid 渲染器，工具探测在构造时执行一次
func NewMermaidRenderer(locator *Locator, timeout time.Duration, logger *zap.Logger) *MermaidRenderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &MermaidRenderer{
		tool:    locator.FindMermaid(),
		timeout: timeout,
		logger:  logger,
	}
}

// Available 报告 Mermaid CLI 是否可用
func (r *MermaidRenderer) Available() bool {
	return r.tool != nil
}

// RenderSVG 通过临时文件往返将 Mermaid 代码渲染为 SVG
func (r *MermaidRenderer) RenderSVG(ctx context.Context, code string) (string, error) {
	if r.tool == nil {
		return "", fmt.Errorf("mermaid CLI 不可用")
	}

	mmdFile, err := os.CreateTemp("", "mdpub-*.mmd")
	if err != nil {
		return "", fmt.Errorf("创建临时文件失败: %w", err)
	}
	mmdPath := mmdFile.Name()
	svgPath := mmdPath + ".svg"
	// 无论成功与否都清理临时文件
	defer func() {
		os.Remove(mmdPath)
		os.Remove(svgPath)
	}()

	if _, err := mmdFile.WriteString(code); err != nil {
		mmdFile.Close()
		return "", fmt.Errorf("写入临时文件失败: %w", err)
	}
	if err := mmdFile.Close(); err != nil {
		return "", fmt.Errorf("关闭临时文件失败: %w", err)
	}

	args := append(append([]string{}, r.tool.Args...),
		"-i", mmdPath,
		"-o", svgPath,
		"-b", "transparent",
		"-w", "800",
		"-H", "600",
	)

	if err := r.run(ctx, args); err != nil {
		return "", err
	}

	return readSVG(svgPath)
}

func (r *MermaidRenderer) run(ctx context.Context, args []string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.tool.Path, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		r.logger.Warn("Mermaid CLI 执行失败",
			zap.Error(err),
			zap.String("output", strings.TrimSpace(string(output))))
		return fmt.Errorf("mermaid CLI 执行失败: %w", err)
	}
	return nil
}

// PlantUMLRenderer 基于 PlantUML 的渲染器
type PlantUMLRenderer struct {
	tool    *Tool
	timeout time.Duration
	logger  *zap.Logger
}

// NewPlantUMLRenderer 创建 PlantUML 渲染器
func NewPlantUMLRenderer(locator *Locator, timeout time.Duration, logger *zap.Logger) *PlantUMLRenderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &PlantUMLRenderer{
		tool:    locator.FindPlantUML(),
		timeout: timeout,
		logger:  logger,
	}
}

// Available 报告 PlantUML 是否可用
func (r *PlantUMLRenderer) Available() bool {
	return r.tool != nil
}

// RenderSVG 通过临时文件往返将 PlantUML 代码渲染为 SVG
// PlantUML 的 -tsvg 输出与输入同名，后缀替换为 .svg
func (r *PlantUMLRenderer) RenderSVG(ctx context.Context, code string) (string, error) {
	if r.tool == nil {
		return "", fmt.Errorf("plantuml 不可用")
	}

	pumlFile, err := os.CreateTemp("", "mdpub-*.puml")
	if err != nil {
		return "", fmt.Errorf("创建临时文件失败: %w", err)
	}
	pumlPath := pumlFile.Name()
	svgPath := strings.TrimSuffix(pumlPath, ".puml") + ".svg"
	defer func() {
		os.Remove(pumlPath)
		os.Remove(svgPath)
	}()

	if _, err := pumlFile.WriteString(code); err != nil {
		pumlFile.Close()
		return "", fmt.Errorf("写入临时文件失败: %w", err)
	}
	if err := pumlFile.Close(); err != nil {
		return "", fmt.Errorf("关闭临时文件失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	args := append(append([]string{}, r.tool.Args...), "-tsvg", pumlPath)
	cmd := exec.CommandContext(ctx, r.tool.Path, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		r.logger.Warn("PlantUML 执行失败",
			zap.Error(err),
			zap.String("output", strings.TrimSpace(string(output))))
		return "", fmt.Errorf("plantuml 执行失败: %w", err)
	}

	return readSVG(svgPath)
}

// readSVG 读取渲染结果并做基本校验
func readSVG(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("读取 SVG 输出失败: %w", err)
	}
	svg := string(data)
	if !strings.Contains(svg, "<svg") || !strings.Contains(svg, "</svg>") {
		return "", fmt.Errorf("渲染输出不是有效的 SVG")
	}
	return svg, nil
}
