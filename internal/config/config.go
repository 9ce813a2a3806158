package config

import (
	"time"
)

// Config 保存文档处理器的所有配置
type Config struct {
	// 语法高亮器: highlight.js / prism.js / chroma
	Highlighter string `mapstructure:"highlighter"`
	// 数学公式引擎: mathjax / katex
	MathEngine string `mapstructure:"math_engine"`
	// 资源路径映射（逻辑路径 -> 实际路径）
	AssetPaths map[string]string `mapstructure:"asset_paths"`
	// 插件目录列表
	PluginDirs []string `mapstructure:"plugin_dirs"`
	// 图表渲染超时时间（秒）
	DiagramTimeout int `mapstructure:"diagram_timeout"`
	// 导出默认页面设置
	Page PageConfig `mapstructure:"page"`
	// 调试模式
	Debug bool `mapstructure:"debug"`
}

// PageConfig 页面设置（写入 MDZ 元数据）
type PageConfig struct {
	Size        string        `mapstructure:"size"`
	Orientation string        `mapstructure:"orientation"`
	Margins     MarginsConfig `mapstructure:"margins"`
}

// MarginsConfig 页边距设置（毫米）
type MarginsConfig struct {
	Top    int `mapstructure:"top"`
	Right  int `mapstructure:"right"`
	Bottom int `mapstructure:"bottom"`
	Left   int `mapstructure:"left"`
}

// NewDefaultConfig 创建默认配置
func NewDefaultConfig() *Config {
	return &Config{
		Highlighter:    "highlight.js",
		MathEngine:     "mathjax",
		AssetPaths:     map[string]string{},
		PluginDirs:     []string{},
		DiagramTimeout: 15,
		Page: PageConfig{
			Size:        "A4",
			Orientation: "portrait",
			Margins:     MarginsConfig{Top: 25, Right: 25, Bottom: 25, Left: 25},
		},
	}
}

// DiagramTimeoutDuration 返回图表渲染超时时间
func (c *Config) DiagramTimeoutDuration() time.Duration {
	if c.DiagramTimeout <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.DiagramTimeout) * time.Second
}
