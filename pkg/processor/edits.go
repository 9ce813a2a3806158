package processor

import (
	"fmt"
	"sort"
	"strings"
)

// edit 一次待应用的文本替换
// 替换文本在重叠裁决之后才生成，落选区域不触发渲染
type edit struct {
	start       int
	end         int
	replacement string
	// 冲突裁决依据
	priority  int
	processor string
	// 渲染所需的上下文
	proc     ContentProcessor
	metadata map[string]interface{}
}

// resolveOverlaps 把可能重叠的区域裁决为互不重叠的集合
// 裁决规则：优先级数值小者胜出；优先级相同时长区域胜出；再相同时起点靠前者胜出
// 落选区域被丢弃并记录，不做静默的未定义行为
func resolveOverlaps(edits []edit) (kept []edit, dropped []edit) {
	if len(edits) == 0 {
		return nil, nil
	}

	ranked := make([]edit, len(edits))
	copy(ranked, edits)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].priority != ranked[j].priority {
			return ranked[i].priority < ranked[j].priority
		}
		li, lj := ranked[i].end-ranked[i].start, ranked[j].end-ranked[j].start
		if li != lj {
			return li > lj
		}
		return ranked[i].start < ranked[j].start
	})

	for _, e := range ranked {
		conflict := false
		for _, k := range kept {
			if e.start < k.end && k.start < e.end {
				conflict = true
				break
			}
		}
		if conflict {
			dropped = append(dropped, e)
			continue
		}
		kept = append(kept, e)
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i].start < kept[j].start })
	return kept, dropped
}

// applyEdits 单遍拼接：复制未触及的文本，替换被编辑的区域
// 要求 edits 已按起点升序排列且互不重叠
func applyEdits(content string, edits []edit) (string, error) {
	var sb strings.Builder
	sb.Grow(len(content))

	cursor := 0
	for _, e := range edits {
		if e.start < cursor || e.end > len(content) || e.start > e.end {
			return "", fmt.Errorf("非法的编辑区域 [%d, %d)，游标 %d", e.start, e.end, cursor)
		}
		sb.WriteString(content[cursor:e.start])
		sb.WriteString(e.replacement)
		cursor = e.end
	}
	sb.WriteString(content[cursor:])

	return sb.String(), nil
}
