package diagram

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Tool 外部图表工具信息
type Tool struct {
	Name    string   // 工具名称
	Path    string   // 可执行文件路径
	Args    []string // 调用前缀参数（如 java -jar 场景）
	Version string   // 探测到的版本
}

// Locator 外部图表工具定位器
// 探测结果带缓存，重复查询不会再次执行子进程
type Locator struct {
	mu     sync.RWMutex
	tools  map[string]*Tool
	probed map[string]bool
	logger *zap.Logger
}

// NewLocator 创建工具定位器
func NewLocator(logger *zap.Logger) *Locator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Locator{
		tools:  make(map[string]*Tool),
		probed: make(map[string]bool),
		logger: logger,
	}
}

// FindMermaid 查找 Mermaid CLI
// 优先使用 PATH 中的 mmdc，失败后回退到 npx mmdc
func (l *Locator) FindMermaid() *Tool {
	l.mu.RLock()
	if l.probed["mermaid"] {
		tool := l.tools["mermaid"]
		l.mu.RUnlock()
		return tool
	}
	l.mu.RUnlock()

	tool := l.probeMermaid()

	l.mu.Lock()
	l.probed["mermaid"] = true
	l.tools["mermaid"] = tool
	l.mu.Unlock()

	return tool
}

func (l *Locator) probeMermaid() *Tool {
	if path, err := exec.LookPath("mmdc"); err == nil {
		if version, err := l.probeVersion(path, nil, "--version"); err == nil {
			l.logger.Info("找到 Mermaid CLI",
				zap.String("path", path),
				zap.String("version", version))
			return &Tool{Name: "mermaid-cli", Path: path, Version: version}
		}
	}

	// npx 回退
	if npx, err := exec.LookPath("npx"); err == nil {
		if version, err := l.probeVersion(npx, []string{"mmdc"}, "--version"); err == nil {
			l.logger.Info("通过 npx 找到 Mermaid CLI", zap.String("version", version))
			return &Tool{Name: "mermaid-cli", Path: npx, Args: []string{"mmdc"}, Version: version}
		}
	}

	l.logger.Warn("未找到 Mermaid CLI，图表将使用降级渲染")
	return nil
}

// FindPlantUML 查找 PlantUML
// 优先使用 PATH 中的 plantuml，失败后在常见安装位置查找 plantuml.jar
func (l *Locator) FindPlantUML() *Tool {
	l.mu.RLock()
	if l.probed["plantuml"] {
		tool := l.tools["plantuml"]
		l.mu.RUnlock()
		return tool
	}
	l.mu.RUnlock()

	tool := l.probePlantUML()

	l.mu.Lock()
	l.probed["plantuml"] = true
	l.tools["plantuml"] = tool
	l.mu.Unlock()

	return tool
}

func (l *Locator) probePlantUML() *Tool {
	if path, err := exec.LookPath("plantuml"); err == nil {
		if version, err := l.probeVersion(path, nil, "-version"); err == nil {
			l.logger.Info("找到 PlantUML",
				zap.String("path", path),
				zap.String("version", firstLine(version)))
			return &Tool{Name: "plantuml", Path: path, Version: firstLine(version)}
		}
	}

	// 常见 jar 安装位置
	home, _ := os.UserHomeDir()
	candidates := []string{
		filepath.Join(home, "plantuml.jar"),
		"/usr/local/bin/plantuml.jar",
		"/usr/share/plantuml/plantuml.jar",
		"/opt/plantuml/plantuml.jar",
	}
	java, javaErr := exec.LookPath("java")
	if javaErr != nil {
		l.logger.Warn("未找到 PlantUML，也未找到 java，无法使用 jar 方式")
		return nil
	}

	for _, jar := range candidates {
		if _, err := os.Stat(jar); err != nil {
			continue
		}
		version, err := l.probeVersion(java, []string{"-jar", jar}, "-version")
		if err != nil {
			continue
		}
		l.logger.Info("找到 PlantUML jar",
			zap.String("jar", jar),
			zap.String("version", firstLine(version)))
		return &Tool{Name: "plantuml", Path: java, Args: []string{"-jar", jar}, Version: firstLine(version)}
	}

	l.logger.Warn("未找到 PlantUML，图表将使用降级渲染")
	return nil
}

// probeVersion 执行版本命令验证工具可用性
func (l *Locator) probeVersion(path string, prefix []string, versionFlag string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	args := append(append([]string{}, prefix...), versionFlag)
	cmd := exec.CommandContext(ctx, path, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		l.logger.Debug("工具版本探测失败",
			zap.String("path", path),
			zap.Error(err))
		return "", fmt.Errorf("版本探测失败 %s: %w", path, err)
	}

	return strings.TrimSpace(string(output)), nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
