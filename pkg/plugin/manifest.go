// Package plugin 实现处理器插件的注册与发现
// 编译期插件直接调用 RegisterProcessor；运行期插件通过目录中的
// plugin.toml 清单声明共享库，由加载器在启动时发现并加载
package plugin

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ManifestFileName 插件清单文件名
const ManifestFileName = "plugin.toml"

// Manifest 插件清单
type Manifest struct {
	// Name 插件名称，同名注册会相互覆盖
	Name string `toml:"name"`
	// Library 共享库文件名，相对于清单所在目录
	Library string `toml:"library"`
	// Priority 处理优先级，数值越小越先执行
	Priority int `toml:"priority"`
	// Description 插件描述，仅用于展示
	Description string `toml:"description"`
}

// LoadManifest 读取并校验插件清单
func LoadManifest(path string) (*Manifest, error) {
	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("解析插件清单失败 %s: %w", path, err)
	}
	if m.Name == "" {
		return nil, fmt.Errorf("插件清单缺少 name 字段: %s", path)
	}
	if m.Library == "" {
		return nil, fmt.Errorf("插件清单缺少 library 字段: %s", path)
	}
	return &m, nil
}

// findManifests 扫描目录下的插件清单
// 既接受目录根下的 plugin.toml，也接受每个子目录一个插件的布局
func findManifests(dir string) ([]string, error) {
	var manifests []string

	root := filepath.Join(dir, ManifestFileName)
	if _, err := os.Stat(root); err == nil {
		manifests = append(manifests, root)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("读取插件目录失败 %s: %w", dir, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		candidate := filepath.Join(dir, entry.Name(), ManifestFileName)
		if _, err := os.Stat(candidate); err == nil {
			manifests = append(manifests, candidate)
		}
	}
	return manifests, nil
}
