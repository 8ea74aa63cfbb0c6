/**
 * 报告输出接口定义
 * @author: Sun977
 * @date: 2026.08.13
 * @description: 定义报告输出的通用接口，解耦 Console/File 输出
 */

package reporter

import (
	"context"

	"netrecon/internal/core/model"
)

// TabularData 可渲染为表格的数据接口
type TabularData interface {
	Headers() []string
	Rows() [][]string
}

// Reporter 定义报告输出的行为
type Reporter interface {
	// Report 输出一份完整报告
	Report(ctx context.Context, report *model.Report) error
}

// MultiReporter 同时向多个目标输出 (Console + File)
type MultiReporter struct {
	reporters []Reporter
}

func NewMultiReporter(reporters ...Reporter) *MultiReporter {
	return &MultiReporter{
		reporters: reporters,
	}
}

func (m *MultiReporter) Report(ctx context.Context, report *model.Report) error {
	var firstErr error
	for _, r := range m.reporters {
		if err := r.Report(ctx, report); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
