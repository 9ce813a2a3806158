package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// LoadConfig 加载配置文件
// configPath 为空时在用户配置目录和当前目录中搜索 mdpub.yaml
// 键分隔符使用 ::，asset_paths 的键是带点号的文件路径，不能按点切分
func LoadConfig(configPath string) (*Config, error) {
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "mdpub"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("mdpub")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		// 没有配置文件时使用默认配置
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return NewDefaultConfig(), nil
		}
		if configPath == "" {
			if _, statErr := os.Stat("mdpub.yaml"); os.IsNotExist(statErr) {
				return NewDefaultConfig(), nil
			}
		}
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	return &cfg, nil
}

// setDefaults 设置配置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("highlighter", "highlight.js")
	v.SetDefault("math_engine", "mathjax")
	v.SetDefault("diagram_timeout", 15)
	v.SetDefault("page::size", "A4")
	v.SetDefault("page::orientation", "portrait")
	v.SetDefault("page::margins::top", 25)
	v.SetDefault("page::margins::right", 25)
	v.SetDefault("page::margins::bottom", 25)
	v.SetDefault("page::margins::left", 25)
}
