package reporter

import (
	"context"
	"fmt"

	"netrecon/internal/core/model"

	"github.com/pterm/pterm"
)

// ConsoleReporter 控制台摘要输出
// 只打印 Summary 表格和少量逐条提示，完整结果由 FileReporter 落盘
type ConsoleReporter struct{}

func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{}
}

func (r *ConsoleReporter) Report(ctx context.Context, report *model.Report) error {
	if report == nil {
		return nil
	}

	pterm.DefaultSection.Printf("%s enumeration summary", report.Service)

	if err := r.printTable(report.Summary); err != nil {
		return err
	}

	// 暴露计数单独列出，调用方配置了谓词才会有
	for name, count := range report.Summary.Exposures {
		pterm.Warning.Printf("%s: %d host(s)\n", name, count)
	}

	// 逐条提示检测到的服务，方便不看 JSON 也能定位目标
	for _, res := range report.Results {
		if res.Detected {
			pterm.Success.Printf("%s:%d %s detected\n", res.Target, res.Port, res.Service)
		}
	}

	return nil
}

func (r *ConsoleReporter) printTable(data TabularData) error {
	tableData := pterm.TableData{data.Headers()}
	tableData = append(tableData, data.Rows()...)

	err := pterm.DefaultTable.
		WithHasHeader(true).
		WithBoxed(false).
		WithData(tableData).
		Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	return nil
}
