package reporter

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"netrecon/internal/core/model"
	"netrecon/internal/pkg/logger"

	"gopkg.in/yaml.v3"
)

// FileReporter 把报告序列化到文件
// 默认 JSON，输出路径以 .yaml/.yml 结尾时改用 YAML
type FileReporter struct {
	Path string
}

func NewFileReporter(path string) *FileReporter {
	return &FileReporter{Path: path}
}

// DefaultPath 服务对应的默认输出文件名
func DefaultPath(service string) string {
	return fmt.Sprintf("%s_enum_results.json", service)
}

func (r *FileReporter) Report(ctx context.Context, report *model.Report) error {
	var (
		data []byte
		err  error
	)

	switch strings.ToLower(filepath.Ext(r.Path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(report)
	default:
		data, err = json.MarshalIndent(report, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	if err := os.WriteFile(r.Path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", r.Path, err)
	}

	logger.Infof("report written to %s (%d results)", r.Path, len(report.Results))
	return nil
}
