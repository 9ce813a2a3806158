package mdz

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// 容器头: 魔数 + zip 内容的 sha256 摘要
// 摘要既是完整性校验值，也是 zstd 压缩的原始字典种子
var magic = []byte("MDZ1")

const (
	magicLen  = 4
	digestLen = sha256.Size
	headerLen = magicLen + digestLen
)

// Exporter 负责把 Markdown 与资源文件打包成 MDZ 文件
type Exporter struct {
	logger *zap.Logger
}

// NewExporter 创建导出器，logger 为 nil 时使用 nop
func NewExporter(logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{logger: logger}
}

// Export 打包 Markdown 内容与资源文件，写入 outputPath
// 失败时返回 false 并记录日志，不向调用方抛出错误
func (e *Exporter) Export(markdown string, outputPath string, settings map[string]interface{}, assets []string) bool {
	if err := e.export(markdown, outputPath, settings, assets); err != nil {
		e.logger.Error("导出 MDZ 文件失败",
			zap.String("output", outputPath), zap.Error(err))
		return false
	}
	e.logger.Info("导出 MDZ 文件成功", zap.String("output", outputPath))
	return true
}

func (e *Exporter) export(markdown string, outputPath string, settings map[string]interface{}, assets []string) error {
	scratch, err := os.MkdirTemp("", "mdz-export-*")
	if err != nil {
		return fmt.Errorf("创建临时目录失败: %w", err)
	}
	defer os.RemoveAll(scratch)

	manifest := Manifest{Main: MainFileName}

	if err := os.WriteFile(filepath.Join(scratch, MainFileName), []byte(markdown), 0644); err != nil {
		return fmt.Errorf("写入正文失败: %w", err)
	}
	manifest.Files = append(manifest.Files, ManifestEntry{Path: MainFileName, Type: TypeMarkdown})

	meta := NewMetadata(settings)
	if title, ok := settings["title"].(string); ok {
		meta.Title = title
	}
	metaBytes, err := yaml.Marshal(meta)
	if err != nil {
		return fmt.Errorf("序列化元数据失败: %w", err)
	}
	if err := os.WriteFile(filepath.Join(scratch, MetadataFileName), metaBytes, 0644); err != nil {
		return fmt.Errorf("写入元数据失败: %w", err)
	}
	manifest.Files = append(manifest.Files, ManifestEntry{Path: MetadataFileName, Type: TypeMetadata})

	if len(assets) > 0 {
		assetsDir := filepath.Join(scratch, AssetsDirName)
		if err := os.MkdirAll(assetsDir, 0755); err != nil {
			return fmt.Errorf("创建资源目录失败: %w", err)
		}
		for _, asset := range assets {
			name := filepath.Base(asset)
			data, err := os.ReadFile(asset)
			if err != nil {
				// 缺失的资源跳过，不中断导出
				e.logger.Warn("资源文件不可读，已跳过",
					zap.String("asset", asset), zap.Error(err))
				continue
			}
			if err := os.WriteFile(filepath.Join(assetsDir, name), data, 0644); err != nil {
				return fmt.Errorf("写入资源文件失败 %s: %w", name, err)
			}
			// 文本与二进制资源在清单中分开标注
			assetType := TypeBinary
			if IsTextAsset(name) {
				assetType = TypeText
			}
			manifest.Files = append(manifest.Files, ManifestEntry{
				Path: AssetsDirName + "/" + name,
				Type: assetType,
			})
		}
	}

	sort.Slice(manifest.Files, func(i, j int) bool {
		return manifest.Files[i].Path < manifest.Files[j].Path
	})
	manifestBytes, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化清单失败: %w", err)
	}
	if err := os.WriteFile(filepath.Join(scratch, ManifestFileName), manifestBytes, 0644); err != nil {
		return fmt.Errorf("写入清单失败: %w", err)
	}

	zipBytes, err := zipDirectory(scratch)
	if err != nil {
		return fmt.Errorf("打包 zip 失败: %w", err)
	}

	compressed, err := compress(zipBytes)
	if err != nil {
		return fmt.Errorf("压缩失败: %w", err)
	}

	if err := os.WriteFile(outputPath, compressed, 0644); err != nil {
		return fmt.Errorf("写入输出文件失败: %w", err)
	}
	return nil
}

// Extract 解包 MDZ 文件
// outputDir 为空时解包到临时目录，正文与元数据读取完毕后删除；
// 调用方需要资源文件时必须自己提供目录
// 任何失败都返回 ("", nil)，错误只记录日志
func Extract(path string, outputDir string, logger *zap.Logger) (string, map[string]interface{}) {
	if logger == nil {
		logger = zap.NewNop()
	}
	markdown, metadata, err := extract(path, outputDir)
	if err != nil {
		logger.Error("解包 MDZ 文件失败", zap.String("path", path), zap.Error(err))
		return "", nil
	}
	return markdown, metadata
}

func extract(path string, outputDir string) (string, map[string]interface{}, error) {
	compressed, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("读取文件失败 %s: %w", path, err)
	}

	zipBytes, err := decompress(compressed)
	if err != nil {
		return "", nil, err
	}

	if outputDir == "" {
		tempDir, err := os.MkdirTemp("", "mdz-extract-*")
		if err != nil {
			return "", nil, fmt.Errorf("创建临时目录失败: %w", err)
		}
		// 所有路径上都清理临时目录
		defer os.RemoveAll(tempDir)
		outputDir = tempDir
	}

	if err := unzipTo(zipBytes, outputDir); err != nil {
		return "", nil, fmt.Errorf("解包 zip 失败: %w", err)
	}

	mainBytes, err := os.ReadFile(filepath.Join(outputDir, mainEntryName(outputDir)))
	if err != nil {
		return "", nil, fmt.Errorf("读取正文失败: %w", err)
	}

	metadata := map[string]interface{}{}
	if metaBytes, err := os.ReadFile(filepath.Join(outputDir, MetadataFileName)); err == nil {
		if err := yaml.Unmarshal(metaBytes, &metadata); err != nil {
			metadata = map[string]interface{}{}
		}
	}

	return string(mainBytes), metadata, nil
}

// mainEntryName 从清单解析正文条目，清单缺失或残缺时回退到默认名
func mainEntryName(dir string) string {
	raw, err := os.ReadFile(filepath.Join(dir, ManifestFileName))
	if err != nil {
		return MainFileName
	}
	var manifest Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil || manifest.Main == "" {
		return MainFileName
	}
	// 清单中的路径是包内相对路径，拒绝越界
	clean := filepath.Clean(filepath.FromSlash(manifest.Main))
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return MainFileName
	}
	return clean
}

// compress 给 zip 数据加上容器头并做字典压缩
func compress(zipBytes []byte) ([]byte, error) {
	digest := sha256.Sum256(zipBytes)

	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
		zstd.WithEncoderDictRaw(0, digest[:]))
	if err != nil {
		return nil, fmt.Errorf("创建压缩器失败: %w", err)
	}
	defer enc.Close()

	out := make([]byte, 0, headerLen+len(zipBytes)/2)
	out = append(out, magic...)
	out = append(out, digest[:]...)
	return enc.EncodeAll(zipBytes, out), nil
}

// decompress 校验容器头，用头中的摘要作为字典解压并验证完整性
func decompress(data []byte) ([]byte, error) {
	if len(data) < headerLen {
		return nil, fmt.Errorf("文件过短，不是有效的 MDZ 文件")
	}
	if !bytes.Equal(data[:magicLen], magic) {
		return nil, fmt.Errorf("魔数不匹配，不是有效的 MDZ 文件")
	}
	digest := data[magicLen:headerLen]

	dec, err := zstd.NewReader(nil, zstd.WithDecoderDictRaw(0, digest))
	if err != nil {
		return nil, fmt.Errorf("创建解压器失败: %w", err)
	}
	defer dec.Close()

	zipBytes, err := dec.DecodeAll(data[headerLen:], nil)
	if err != nil {
		return nil, fmt.Errorf("解压失败: %w", err)
	}

	actual := sha256.Sum256(zipBytes)
	if !bytes.Equal(actual[:], digest) {
		return nil, fmt.Errorf("校验和不匹配，文件已损坏")
	}
	return zipBytes, nil
}

// zipDirectory 把目录内容打包为 zip，条目使用相对路径
func zipDirectory(dir string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		_, err = io.Copy(w, f)
		return err
	})
	if err != nil {
		zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// unzipTo 把 zip 数据解压到目录，拒绝越界路径
func unzipTo(zipBytes []byte, dir string) error {
	zr, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	if err != nil {
		return err
	}

	for _, file := range zr.File {
		target := filepath.Join(dir, file.Name)
		// 防止 zip 路径穿越
		if !strings.HasPrefix(target, filepath.Clean(dir)+string(os.PathSeparator)) {
			return fmt.Errorf("非法的文件路径: %s", file.Name)
		}

		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}

		rc, err := file.Open()
		if err != nil {
			return err
		}

		out, err := os.Create(target)
		if err != nil {
			rc.Close()
			return err
		}

		_, err = io.Copy(out, rc)
		rc.Close()
		out.Close()
		if err != nil {
			return err
		}
	}
	return nil
}
