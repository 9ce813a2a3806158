package processor

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProcessor 测试用处理器，行为完全由字段控制
type stubProcessor struct {
	name        string
	spans       []Span
	preview     string
	export      string
	scripts     []string
	styles      []string
	deps        []string
	available   bool
	panicDetect bool
	panicRender bool
	renderCalls int
}

func (s *stubProcessor) Name() string { return s.name }

func (s *stubProcessor) Detect(content string) []Span {
	if s.panicDetect {
		panic("detect exploded")
	}
	return s.spans
}

func (s *stubProcessor) ProcessForPreview(content string, metadata map[string]interface{}) string {
	s.renderCalls++
	if s.panicRender {
		panic("render exploded")
	}
	return s.preview
}

func (s *stubProcessor) ProcessForExport(content string, metadata map[string]interface{}, format string) string {
	s.renderCalls++
	if s.panicRender {
		panic("render exploded")
	}
	return s.export
}

func (s *stubProcessor) RequiredScripts() []string { return s.scripts }
func (s *stubProcessor) RequiredStyles() []string  { return s.styles }
func (s *stubProcessor) Dependencies() []string    { return s.deps }
func (s *stubProcessor) CheckDependencies() bool   { return s.available }

func stubFactory(p *stubProcessor) Factory {
	return func(opts Options) (ContentProcessor, error) {
		return p, nil
	}
}

func TestRegistry(t *testing.T) {
	t.Run("Register And Get", func(t *testing.T) {
		r := NewRegistry(Options{})
		r.RegisterProcessor("stub", stubFactory(&stubProcessor{name: "stub"}), 10)

		p, err := r.GetProcessor("stub", nil)
		require.NoError(t, err)
		assert.Equal(t, "stub", p.Name())
	})

	t.Run("Unknown Processor Returns Error", func(t *testing.T) {
		r := NewRegistry(Options{})
		_, err := r.GetProcessor("missing", nil)
		assert.Error(t, err)
	})

	t.Run("Same Name Replaces Registration", func(t *testing.T) {
		r := NewRegistry(Options{})
		r.RegisterProcessor("stub", stubFactory(&stubProcessor{name: "first"}), 10)
		r.RegisterProcessor("stub", stubFactory(&stubProcessor{name: "second"}), 30)

		p, err := r.GetProcessor("stub", nil)
		require.NoError(t, err)
		assert.Equal(t, "second", p.Name())

		priority, ok := r.Priority("stub")
		require.True(t, ok)
		assert.Equal(t, 30, priority)
	})

	t.Run("Names Sorted By Priority", func(t *testing.T) {
		r := NewRegistry(Options{})
		r.RegisterProcessor("late", stubFactory(&stubProcessor{name: "late"}), 50)
		r.RegisterProcessor("early", stubFactory(&stubProcessor{name: "early"}), 5)
		r.RegisterProcessor("mid", stubFactory(&stubProcessor{name: "mid"}), 20)

		assert.Equal(t, []string{"early", "mid", "late"}, r.ProcessorNames())
	})

	t.Run("Instance Cached Until Options Given", func(t *testing.T) {
		count := 0
		r := NewRegistry(Options{})
		r.RegisterProcessor("counted", func(opts Options) (ContentProcessor, error) {
			count++
			return &stubProcessor{name: fmt.Sprintf("counted-%d", count)}, nil
		}, 10)

		_, err := r.GetProcessor("counted", nil)
		require.NoError(t, err)
		_, err = r.GetProcessor("counted", nil)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		// 显式传入选项时重建实例
		_, err = r.GetProcessor("counted", &Options{})
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})
}

func TestProcessContent(t *testing.T) {
	t.Run("Spans Replaced In Document", func(t *testing.T) {
		content := "before MARK after"
		r := NewRegistry(Options{})
		r.RegisterProcessor("stub", stubFactory(&stubProcessor{
			name:    "stub",
			spans:   []Span{{Start: 7, End: 11}},
			preview: "<b>done</b>",
		}), 10)

		out := r.ProcessContent(content, FormatPreview)
		assert.Equal(t, "before <b>done</b> after", out)
	})

	t.Run("Higher Priority Processor Wins Overlap", func(t *testing.T) {
		content := "0123456789"
		r := NewRegistry(Options{})
		r.RegisterProcessor("low", stubFactory(&stubProcessor{
			name:    "low",
			spans:   []Span{{Start: 0, End: 8}},
			preview: "LOW",
		}), 40)
		r.RegisterProcessor("high", stubFactory(&stubProcessor{
			name:    "high",
			spans:   []Span{{Start: 4, End: 10}},
			preview: "HIGH",
		}), 10)

		out := r.ProcessContent(content, FormatPreview)
		assert.Equal(t, "0123HIGH", out)
	})

	t.Run("Losing Span Never Rendered", func(t *testing.T) {
		content := "0123456789"
		loser := &stubProcessor{
			name:    "loser",
			spans:   []Span{{Start: 0, End: 8}},
			preview: "LOW",
		}
		winner := &stubProcessor{
			name:    "winner",
			spans:   []Span{{Start: 4, End: 10}},
			preview: "HIGH",
		}
		r := NewRegistry(Options{})
		r.RegisterProcessor("loser", stubFactory(loser), 40)
		r.RegisterProcessor("winner", stubFactory(winner), 10)

		r.ProcessContent(content, FormatPreview)
		// 落选区域不触发渲染，昂贵的子进程调用不会被白白执行
		assert.Equal(t, 0, loser.renderCalls)
		assert.Equal(t, 1, winner.renderCalls)
	})

	t.Run("Detect Panic Treated As No Spans", func(t *testing.T) {
		content := "untouched"
		r := NewRegistry(Options{})
		r.RegisterProcessor("bad", stubFactory(&stubProcessor{
			name:        "bad",
			panicDetect: true,
		}), 10)

		assert.Equal(t, content, r.ProcessContent(content, FormatPreview))
	})

	t.Run("Render Panic Yields Error Fragment With Source", func(t *testing.T) {
		content := "before BROKEN after"
		r := NewRegistry(Options{})
		r.RegisterProcessor("bad", stubFactory(&stubProcessor{
			name:        "bad",
			spans:       []Span{{Start: 7, End: 13}},
			panicRender: true,
		}), 10)

		out := r.ProcessContent(content, FormatPreview)
		assert.Contains(t, out, "processor-error")
		// 错误面板必须嵌入原始内容
		assert.Contains(t, out, "BROKEN")
		assert.Contains(t, out, "before ")
		assert.Contains(t, out, " after")
	})

	t.Run("Out Of Bounds Span Ignored", func(t *testing.T) {
		content := "short"
		r := NewRegistry(Options{})
		r.RegisterProcessor("oob", stubFactory(&stubProcessor{
			name:    "oob",
			spans:   []Span{{Start: 2, End: 99}},
			preview: "X",
		}), 10)

		assert.Equal(t, content, r.ProcessContent(content, FormatPreview))
	})

	t.Run("Export Format Uses Export Path", func(t *testing.T) {
		content := "x SPAN y"
		r := NewRegistry(Options{})
		r.RegisterProcessor("stub", stubFactory(&stubProcessor{
			name:    "stub",
			spans:   []Span{{Start: 2, End: 6}},
			preview: "PREVIEW",
			export:  "EXPORT",
		}), 10)

		assert.Equal(t, "x EXPORT y", r.ProcessContent(content, FormatPDF))
	})
}

func TestRegistryAggregation(t *testing.T) {
	t.Run("Scripts And Styles Joined In Registration Order", func(t *testing.T) {
		r := NewRegistry(Options{})
		r.RegisterProcessor("b", stubFactory(&stubProcessor{
			name:    "b",
			scripts: []string{"<script>b</script>"},
			styles:  []string{"<style>b</style>"},
		}), 5)
		r.RegisterProcessor("a", stubFactory(&stubProcessor{
			name:    "a",
			scripts: []string{"<script>a</script>"},
		}), 50)

		// 聚合按注册顺序而不是优先级
		scripts := r.RequiredScripts()
		assert.Equal(t, "<script>b</script>\n<script>a</script>", scripts)
		assert.Equal(t, "<style>b</style>", r.RequiredStyles())
	})

	t.Run("CheckDependencies Reports Per Processor", func(t *testing.T) {
		r := NewRegistry(Options{})
		r.RegisterProcessor("ok", stubFactory(&stubProcessor{name: "ok", available: true}), 10)
		r.RegisterProcessor("broken", stubFactory(&stubProcessor{name: "broken"}), 20)

		status := r.CheckDependencies()
		assert.True(t, status["ok"])
		assert.False(t, status["broken"])
	})
}

func TestDefaultRegistry(t *testing.T) {
	t.Run("All Builtin Processors Registered", func(t *testing.T) {
		r := NewDefaultRegistry(Options{})
		names := r.ProcessorNames()
		assert.Equal(t, []string{
			NameEnhancedElement, NameMermaid, NamePlantUML, NameMath,
			NameImage, NameCode, NameMedia, NameVisualization,
		}, names)
	})

	t.Run("CheckDependencies Never Panics Without Tools", func(t *testing.T) {
		r := NewDefaultRegistry(Options{})
		assert.NotPanics(t, func() {
			status := r.CheckDependencies()
			assert.Len(t, status, 8)
		})
	})

	t.Run("Mermaid Fence Owned By Mermaid Not Code", func(t *testing.T) {
		content := "```mermaid\ngraph TD\nA-->B\n```\n"
		r := NewDefaultRegistry(Options{})
		out := r.ProcessContent(content, FormatPreview)
		assert.Contains(t, out, `<div class="mermaid"`)
		assert.NotContains(t, out, "language-mermaid")
	})

	t.Run("Mixed Document Round Trip", func(t *testing.T) {
		content := "# Title\n\nInline $E=mc^2$ math.\n\n```go\nfmt.Println(1)\n```\n"
		r := NewDefaultRegistry(Options{})

		preview := r.ProcessContent(content, FormatPreview)
		assert.Contains(t, preview, `\(E=mc^2\)`)
		assert.Contains(t, preview, `class="language-go"`)

		latex := r.ProcessContent(content, FormatLaTeX)
		// 导出格式还原原生语法
		assert.Contains(t, latex, "$E=mc^2$")
		assert.True(t, strings.Contains(latex, "```go\nfmt.Println(1)\n```"))
	})
}
