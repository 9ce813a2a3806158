package mdz

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"
	"go.uber.org/zap"
)

// 按扩展名区分文本与二进制资源，影响清单中的类型标注
var textAssetExtensions = map[string]bool{
	".md":   true,
	".txt":  true,
	".csv":  true,
	".json": true,
	".yaml": true,
	".yml":  true,
	".svg":  true,
	".html": true,
	".css":  true,
	".js":   true,
}

// IsTextAsset 判断资源文件是否为文本类型
func IsTextAsset(path string) bool {
	return textAssetExtensions[strings.ToLower(filepath.Ext(path))]
}

// frontMatterPattern 文件头部的 YAML front matter 块
var frontMatterPattern = regexp.MustCompile(`(?s)\A---[ \t]*\n.*?\n---[ \t]*\n?`)

// CreateFromFile 从 Markdown 文件创建 MDZ 包
// 页面设置取自文件的 YAML front matter，标题缺省为文件名；
// front matter 只进入元数据，打包的正文不再携带它
func (e *Exporter) CreateFromFile(markdownPath string, outputPath string, assets []string) bool {
	data, err := os.ReadFile(markdownPath)
	if err != nil {
		e.logger.Error("读取 Markdown 文件失败",
			zap.String("path", markdownPath), zap.Error(err))
		return false
	}

	settings := extractSettings(data)
	if _, ok := settings["title"]; !ok {
		base := filepath.Base(markdownPath)
		settings["title"] = strings.TrimSuffix(base, filepath.Ext(base))
	}

	return e.Export(stripFrontMatter(data), outputPath, settings, assets)
}

// stripFrontMatter 去掉头部的 front matter 块并裁剪首尾空白
func stripFrontMatter(source []byte) string {
	if loc := frontMatterPattern.FindIndex(source); loc != nil {
		return strings.TrimSpace(string(source[loc[1]:]))
	}
	return string(source)
}

// extractSettings 解析 front matter 中的页面设置
// 识别 title、page_size、orientation、margins，其余键原样保留
func extractSettings(source []byte) map[string]interface{} {
	settings := map[string]interface{}{}

	md := goldmark.New(goldmark.WithExtensions(meta.Meta))
	ctx := parser.NewContext()

	var buf bytes.Buffer
	if err := md.Convert(source, &buf, parser.WithContext(ctx)); err != nil {
		return settings
	}

	front := meta.Get(ctx)
	for k, v := range front {
		switch k {
		case "margins":
			if m, ok := v.(map[string]interface{}); ok {
				settings["margins"] = m
			} else {
				settings[k] = fmt.Sprintf("%v", v)
			}
		default:
			settings[k] = v
		}
	}
	return settings
}
