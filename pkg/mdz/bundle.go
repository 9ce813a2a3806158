// Package mdz 实现 MDZ 文档包的打包与解包
// MDZ 包是一个经过 zstd 压缩的 zip 文件，内含 Markdown 正文、
// 资源文件、元数据与清单，压缩字典由 zip 内容的摘要派生
package mdz

import (
	"time"

	"github.com/google/uuid"
)

// 包内固定文件名
const (
	MainFileName     = "main.md"
	MetadataFileName = "metadata.yaml"
	ManifestFileName = "manifest.json"
	AssetsDirName    = "assets"
)

// 格式常量
const (
	FormatVersion = "1.0"
	FormatName    = "mdz"
)

// Metadata 包元数据，序列化为 metadata.yaml
type Metadata struct {
	Version  string                 `yaml:"version"`
	Format   string                 `yaml:"format"`
	ID       string                 `yaml:"id"`
	Created  string                 `yaml:"created"`
	Title    string                 `yaml:"title,omitempty"`
	Settings map[string]interface{} `yaml:"settings,omitempty"`
}

// NewMetadata 创建带唯一标识的元数据
func NewMetadata(settings map[string]interface{}) *Metadata {
	return &Metadata{
		Version:  FormatVersion,
		Format:   FormatName,
		ID:       uuid.New().String(),
		Created:  time.Now().Format(time.RFC3339),
		Settings: settings,
	}
}

// 清单条目类型
const (
	TypeMarkdown = "markdown"
	TypeMetadata = "metadata"
	TypeText     = "text"
	TypeBinary   = "binary"
)

// ManifestEntry 清单中的一个文件条目
type ManifestEntry struct {
	Path string `json:"path"`
	Type string `json:"type"`
}

// Manifest 包清单，序列化为 manifest.json
// Files 必须覆盖包内除 manifest.json 以外的全部文件
type Manifest struct {
	Files []ManifestEntry `json:"files"`
	Main  string          `json:"main"`
}
