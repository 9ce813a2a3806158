package cli

import (
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/nerdneilsfield/go-markdown-publisher/pkg/processor"
)

// printDependencyReport 输出各处理器的外部依赖状态表
func printDependencyReport(registry *processor.Registry) {
	status := registry.CheckDependencies()

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"处理器", "外部依赖", "状态"})

	for _, name := range registry.ProcessorNames() {
		deps := "-"
		if p, err := registry.GetProcessor(name, nil); err == nil {
			if list := p.Dependencies(); len(list) > 0 {
				deps = strings.Join(list, ", ")
			}
		}

		state := color.GreenString("可用")
		if !status[name] {
			state = color.RedString("缺失")
		}
		t.AppendRow(table.Row{name, deps, state})
	}

	t.Render()
}

// printProcessorList 输出已注册处理器及其优先级
func printProcessorList(registry *processor.Registry) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"处理器", "优先级"})

	for _, name := range registry.ProcessorNames() {
		priority, _ := registry.Priority(name)
		t.AppendRow(table.Row{name, priority})
	}

	t.Render()
}
