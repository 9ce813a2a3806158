package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	goplugin "plugin"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-markdown-publisher/pkg/processor"
)

// RegisterFunc 运行期插件必须导出的符号
// 符号名固定为 RegisterPlugin，签名为 func(*Loader) error
type RegisterFunc func(*Loader) error

// Loader 插件加载器
// 编译期与运行期插件最终都通过 RegisterProcessor 进入处理器注册表
type Loader struct {
	registry *processor.Registry
	dirs     []string
	logger   *zap.Logger
}

// NewLoader 创建插件加载器
func NewLoader(registry *processor.Registry, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{registry: registry, logger: logger}
}

// RegisterProcessor 注册处理器工厂，编译期插件的入口
func (l *Loader) RegisterProcessor(name string, factory processor.Factory, priority int) {
	l.registry.RegisterProcessor(name, factory, priority)
	l.logger.Info("注册插件处理器",
		zap.String("name", name), zap.Int("priority", priority))
}

// RegisterPluginDirectory 记录一个待扫描的插件目录
func (l *Loader) RegisterPluginDirectory(dir string) {
	l.dirs = append(l.dirs, dir)
}

// DiscoverPlugins 扫描所有已登记目录并加载其中的插件
// 单个插件的失败只记录日志并跳过，返回成功加载的数量
func (l *Loader) DiscoverPlugins() int {
	loaded := 0
	for _, dir := range l.dirs {
		if _, err := os.Stat(dir); err != nil {
			l.logger.Warn("插件目录不存在，已跳过", zap.String("dir", dir))
			continue
		}

		manifests, err := findManifests(dir)
		if err != nil {
			l.logger.Error("扫描插件目录失败", zap.String("dir", dir), zap.Error(err))
			continue
		}

		for _, path := range manifests {
			if err := l.loadFromManifest(path); err != nil {
				l.logger.Error("加载插件失败",
					zap.String("manifest", path), zap.Error(err))
				continue
			}
			loaded++
		}
	}
	return loaded
}

// loadFromManifest 按清单加载共享库并调用其注册符号
func (l *Loader) loadFromManifest(manifestPath string) error {
	m, err := LoadManifest(manifestPath)
	if err != nil {
		return err
	}

	libPath := filepath.Join(filepath.Dir(manifestPath), m.Library)
	if _, err := os.Stat(libPath); err != nil {
		return fmt.Errorf("插件库文件不存在: %s", libPath)
	}

	p, err := goplugin.Open(libPath)
	if err != nil {
		return fmt.Errorf("打开插件库失败 %s: %w", libPath, err)
	}

	sym, err := p.Lookup("RegisterPlugin")
	if err != nil {
		return fmt.Errorf("插件缺少 RegisterPlugin 符号 %s: %w", libPath, err)
	}

	register, ok := sym.(func(*Loader) error)
	if !ok {
		return fmt.Errorf("插件 RegisterPlugin 符号签名不匹配: %s", libPath)
	}

	if err := register(l); err != nil {
		return fmt.Errorf("插件注册失败 %s: %w", m.Name, err)
	}

	l.logger.Info("加载插件成功",
		zap.String("name", m.Name), zap.String("library", libPath))
	return nil
}
