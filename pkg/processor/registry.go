package processor

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// registration 一条处理器注册信息
type registration struct {
	factory  Factory
	priority int
	order    int // 注册顺序，脚本/样式聚合时使用
}

// Registry 内容处理器注册表
// 显式构造并按引用传递，不使用进程级单例，便于测试时隔离处理器集合
type Registry struct {
	mu        sync.RWMutex
	entries   map[string]*registration
	instances map[string]ContentProcessor
	nextOrder int
	opts      Options
	logger    *zap.Logger
}

// NewRegistry 创建空的注册表
func NewRegistry(opts Options) *Registry {
	return &Registry{
		entries:   make(map[string]*registration),
		instances: make(map[string]ContentProcessor),
		opts:      opts,
		logger:    opts.log(),
	}
}

// 内置处理器优先级，数值小者优先
const (
	PriorityEnhancedElement = 5
	PriorityMermaid         = 10
	PriorityPlantUML        = 15
	PriorityMath            = 20
	PriorityImage           = 30
	PriorityCode            = 40
	PriorityMedia           = 50
	PriorityVisualization   = 60
)

// NewDefaultRegistry 创建注册了全部内置处理器的注册表
func NewDefaultRegistry(opts Options) *Registry {
	r := NewRegistry(opts)
	r.RegisterProcessor(NameEnhancedElement, NewEnhancedElementProcessor, PriorityEnhancedElement)
	r.RegisterProcessor(NameMermaid, NewMermaidProcessor, PriorityMermaid)
	r.RegisterProcessor(NamePlantUML, NewPlantUMLProcessor, PriorityPlantUML)
	r.RegisterProcessor(NameMath, NewMathProcessor, PriorityMath)
	r.RegisterProcessor(NameImage, NewImageProcessor, PriorityImage)
	r.RegisterProcessor(NameCode, NewCodeBlockProcessor, PriorityCode)
	r.RegisterProcessor(NameMedia, NewMediaProcessor, PriorityMedia)
	r.RegisterProcessor(NameVisualization, NewVisualizationProcessor, PriorityVisualization)
	return r
}

// RegisterProcessor 注册处理器
// 同名注册会替换原有条目并使实例缓存失效
func (r *Registry) RegisterProcessor(name string, factory Factory, priority int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, exists := r.entries[name]; exists {
		r.logger.Debug("替换已注册的处理器",
			zap.String("processor", name),
			zap.Int("old_priority", old.priority),
			zap.Int("new_priority", priority))
		old.factory = factory
		old.priority = priority
		delete(r.instances, name)
		return
	}

	r.entries[name] = &registration{factory: factory, priority: priority, order: r.nextOrder}
	r.nextOrder++
}

// GetProcessor 按名称获取处理器实例
// 传入非 nil 的 opts 时重建实例并更新缓存
func (r *Registry) GetProcessor(name string, opts *Options) (ContentProcessor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.entries[name]
	if !exists {
		return nil, fmt.Errorf("处理器未注册: %s", name)
	}

	if opts == nil {
		if inst, ok := r.instances[name]; ok {
			return inst, nil
		}
	}

	useOpts := r.opts
	if opts != nil {
		useOpts = *opts
	}

	inst, err := entry.factory(useOpts)
	if err != nil {
		return nil, fmt.Errorf("创建处理器失败 %s: %w", name, err)
	}
	r.instances[name] = inst

	return inst, nil
}

// sortedNames 按优先级排序的处理器名称，优先级相同时按注册顺序
func (r *Registry) sortedNames() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ei, ej := r.entries[names[i]], r.entries[names[j]]
		if ei.priority != ej.priority {
			return ei.priority < ej.priority
		}
		return ei.order < ej.order
	})
	return names
}

// allProcessors 按优先级顺序实例化所有处理器
func (r *Registry) allProcessors() []ContentProcessor {
	r.mu.Lock()
	names := r.sortedNames()
	r.mu.Unlock()

	processors := make([]ContentProcessor, 0, len(names))
	for _, name := range names {
		inst, err := r.GetProcessor(name, nil)
		if err != nil {
			r.logger.Error("实例化处理器失败", zap.String("processor", name), zap.Error(err))
			continue
		}
		processors = append(processors, inst)
	}
	return processors
}

// ProcessContent 管线入口：检测、裁决、重写、拼接
// format 为 preview 或导出格式名（pdf/latex/html/epub/docx）
func (r *Registry) ProcessContent(content string, format string) string {
	processors := r.allProcessors()

	var edits []edit
	for _, p := range processors {
		prio := r.priorityOf(p.Name())
		for _, span := range r.safeDetect(p, content) {
			if span.Start < 0 || span.End > len(content) || span.Start >= span.End {
				r.logger.Warn("忽略越界的检测区域",
					zap.String("processor", p.Name()),
					zap.Int("start", span.Start),
					zap.Int("end", span.End))
				continue
			}
			edits = append(edits, edit{
				start:     span.Start,
				end:       span.End,
				priority:  prio,
				processor: p.Name(),
				proc:      p,
				metadata:  span.Metadata,
			})
		}
	}

	kept, dropped := resolveOverlaps(edits)
	for _, d := range dropped {
		r.logger.Debug("丢弃重叠的检测区域",
			zap.String("processor", d.processor),
			zap.Int("start", d.start),
			zap.Int("end", d.end))
	}

	// 裁决之后才渲染，落选区域不触发子进程等昂贵调用
	for i := range kept {
		source := content[kept[i].start:kept[i].end]
		kept[i].replacement = r.safeProcess(kept[i].proc, source, kept[i].metadata, format)
	}

	result, err := applyEdits(content, kept)
	if err != nil {
		r.logger.Error("拼接处理结果失败", zap.Error(err))
		return content
	}
	return result
}

// priorityOf 查询处理器优先级
func (r *Registry) priorityOf(name string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.entries[name]; ok {
		return entry.priority
	}
	return 0
}

// safeDetect 在处理器边界捕获 panic，检测失败等同于没有检测到区域
func (r *Registry) safeDetect(p ContentProcessor, content string) (spans []Span) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("处理器检测阶段 panic",
				zap.String("processor", p.Name()),
				zap.Any("panic", rec))
			spans = nil
		}
	}()
	return p.Detect(content)
}

// safeProcess 在处理器边界捕获 panic，失败时输出嵌入原文的错误面板
func (r *Registry) safeProcess(p ContentProcessor, source string, metadata map[string]interface{}, format string) (out string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("处理器渲染阶段 panic",
				zap.String("processor", p.Name()),
				zap.String("format", format),
				zap.Any("panic", rec))
			out = errorFragment(p.Name(), source, fmt.Errorf("%v", rec))
		}
	}()

	if format == FormatPreview {
		return p.ProcessForPreview(source, metadata)
	}
	return p.ProcessForExport(source, metadata, format)
}

// RequiredScripts 聚合所有处理器声明的脚本标签，按注册顺序换行拼接
func (r *Registry) RequiredScripts() string {
	var all []string
	for _, p := range r.byRegistrationOrder() {
		all = append(all, p.RequiredScripts()...)
	}
	return strings.Join(all, "\n")
}

// RequiredStyles 聚合所有处理器声明的样式标签，按注册顺序换行拼接
func (r *Registry) RequiredStyles() string {
	var all []string
	for _, p := range r.byRegistrationOrder() {
		all = append(all, p.RequiredStyles()...)
	}
	return strings.Join(all, "\n")
}

// byRegistrationOrder 按注册顺序实例化所有处理器
func (r *Registry) byRegistrationOrder() []ContentProcessor {
	r.mu.Lock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return r.entries[names[i]].order < r.entries[names[j]].order
	})
	r.mu.Unlock()

	processors := make([]ContentProcessor, 0, len(names))
	for _, name := range names {
		inst, err := r.GetProcessor(name, nil)
		if err != nil {
			continue
		}
		processors = append(processors, inst)
	}
	return processors
}

// CheckDependencies 报告每个处理器的外部依赖状态
// 处理器报告不可用不是注册表的错误状态
func (r *Registry) CheckDependencies() map[string]bool {
	status := make(map[string]bool)
	for _, p := range r.byRegistrationOrder() {
		status[p.Name()] = p.CheckDependencies()
	}
	return status
}

// ProcessorNames 返回按优先级排序的已注册处理器名称
func (r *Registry) ProcessorNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedNames()
}

// Priority 返回处理器的注册优先级
func (r *Registry) Priority(name string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[name]
	if !ok {
		return 0, false
	}
	return entry.priority, true
}
