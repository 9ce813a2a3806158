// Package cli 实现 mdpub 命令行入口
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-markdown-publisher/internal/config"
	"github.com/nerdneilsfield/go-markdown-publisher/internal/logger"
	"github.com/nerdneilsfield/go-markdown-publisher/internal/renderer"
	"github.com/nerdneilsfield/go-markdown-publisher/pkg/diagram"
	"github.com/nerdneilsfield/go-markdown-publisher/pkg/mdz"
	"github.com/nerdneilsfield/go-markdown-publisher/pkg/plugin"
	"github.com/nerdneilsfield/go-markdown-publisher/pkg/processor"
)

var (
	// 命令行标志变量
	cfgFile        string
	formatType     string
	debugMode      bool
	checkDeps      bool
	listProcessors bool
	pluginDirs     []string
	showVersion    bool
)

// NewRootCommand 创建根命令
func NewRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mdpub [flags] input [output]",
		Short: "mdpub 是一个 Markdown 文档处理与打包工具",
		Long: `mdpub 是一个 Markdown 文档处理与打包工具。
它通过内容处理管线把代码块、数学公式、图表等内容转换为目标格式，
并支持把文档与资源打包为自包含的 MDZ 文件。

支持的输出格式:
  - preview: 预览 HTML（默认）
  - pdf/latex: 面向 LaTeX 排版的 Markdown
  - html/epub: 面向 HTML 生成器的内容
  - docx: 面向 Word 生成器的内容

输入可以是 .md 或 .mdz 文件；输出为 .html 时渲染预览页面，
为 .mdz 时打包文档。`,
		Version: fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate),
		Args: func(cmd *cobra.Command, args []string) error {
			if showVersion || checkDeps || listProcessors {
				return nil
			}
			if len(args) < 1 || len(args) > 2 {
				return fmt.Errorf("accepts 1 or 2 arg(s), received %d", len(args))
			}
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			log := logger.NewLogger(debugMode)
			defer func() {
				_ = log.Sync()
			}()

			if showVersion {
				fmt.Printf("mdpub %s (commit %s, built %s)\n", version, commit, buildDate)
				return
			}

			cfg, err := config.LoadConfig(cfgFile)
			if err != nil {
				log.Error("加载配置失败", zap.Error(err))
				os.Exit(1)
			}
			if debugMode {
				cfg.Debug = true
			}

			registry := buildRegistry(cfg, log)

			loader := plugin.NewLoader(registry, log)
			for _, dir := range append(cfg.PluginDirs, pluginDirs...) {
				loader.RegisterPluginDirectory(dir)
			}
			if n := loader.DiscoverPlugins(); n > 0 {
				log.Info("加载插件完成", zap.Int("count", n))
			}

			if checkDeps {
				printDependencyReport(registry)
				return
			}
			if listProcessors {
				printProcessorList(registry)
				return
			}

			if err := run(registry, cfg, log, args); err != nil {
				log.Error("处理失败", zap.Error(err))
				os.Exit(1)
			}
		},
	}

	rootCmd.Flags().StringVarP(&cfgFile, "config", "c", "", "配置文件路径")
	rootCmd.Flags().StringVarP(&formatType, "format", "f", "preview", "输出格式 (preview/pdf/latex/html/epub/docx)")
	rootCmd.Flags().BoolVarP(&debugMode, "debug", "d", false, "启用调试模式")
	rootCmd.Flags().BoolVar(&checkDeps, "check-deps", false, "检查各处理器的外部依赖")
	rootCmd.Flags().BoolVar(&listProcessors, "list-processors", false, "列出已注册的处理器")
	rootCmd.Flags().StringArrayVar(&pluginDirs, "plugin-dir", nil, "插件目录（可重复）")
	rootCmd.Flags().BoolVarP(&showVersion, "version", "v", false, "显示版本信息")

	return rootCmd
}

// buildRegistry 按配置组装处理器注册表
func buildRegistry(cfg *config.Config, log *zap.Logger) *processor.Registry {
	locator := diagram.NewLocator(log)
	timeout := cfg.DiagramTimeoutDuration()

	// 渲染器在工具缺失时报告不可用，处理器据此降级
	opts := processor.Options{
		Highlighter: cfg.Highlighter,
		MathEngine:  cfg.MathEngine,
		AssetPaths:  cfg.AssetPaths,
		Mermaid:     diagram.NewMermaidRenderer(locator, timeout, log),
		PlantUML:    diagram.NewPlantUMLRenderer(locator, timeout, log),
		Logger:      log,
	}

	return processor.NewDefaultRegistry(opts)
}

// run 执行主流程：读取输入、处理内容、写出结果
func run(registry *processor.Registry, cfg *config.Config, log *zap.Logger, args []string) error {
	inputPath := args[0]
	outputPath := ""
	if len(args) == 2 {
		outputPath = args[1]
	}

	content, err := readInput(inputPath, log)
	if err != nil {
		return err
	}

	// 输出 .mdz 时打包而不是渲染
	if outputPath != "" && strings.EqualFold(filepath.Ext(outputPath), ".mdz") {
		exporter := mdz.NewExporter(log)
		if !exporter.CreateFromFile(inputPath, outputPath, nil) {
			return fmt.Errorf("打包 MDZ 文件失败: %s", outputPath)
		}
		return nil
	}

	format := formatType
	if outputPath != "" && strings.EqualFold(filepath.Ext(outputPath), ".html") {
		format = processor.FormatPreview
	}

	processed := registry.ProcessContent(content, format)

	var output string
	if format == processor.FormatPreview {
		page, err := renderer.New(log).BuildPreview(processed,
			registry.RequiredScripts(), registry.RequiredStyles())
		if err != nil {
			return err
		}
		output = page
	} else {
		output = processed
	}

	if outputPath == "" {
		fmt.Print(output)
		return nil
	}
	if err := os.WriteFile(outputPath, []byte(output), 0644); err != nil {
		return fmt.Errorf("写入输出文件失败 %s: %w", outputPath, err)
	}
	log.Info("处理完成",
		zap.String("input", inputPath),
		zap.String("output", outputPath),
		zap.String("format", format))
	return nil
}

// readInput 读取输入文件，.mdz 输入先解包
// 解包用的临时目录由 Extract 自行清理
func readInput(path string, log *zap.Logger) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".mdz") {
		markdown, metadata := mdz.Extract(path, "", log)
		if metadata == nil {
			return "", fmt.Errorf("解包 MDZ 文件失败: %s", path)
		}
		return markdown, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("读取输入文件失败 %s: %w", path, err)
	}
	return string(data), nil
}
