/*
 * @author: Sun977
 * @date: 2026.08.12
 * @description: 目标清单加载与端口列表解析
 */

package target

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// ErrEmptyTargetList 目标清单为空 (致命错误，必须在任何网络活动之前中止)
type ErrEmptyTargetList struct {
	Path string
}

func (e *ErrEmptyTargetList) Error() string {
	return fmt.Sprintf("target list %s contains no targets", e.Path)
}

// LoadFile 从文件加载目标清单
// 按行分割，跳过空行和 # 注释行；目标本身是不透明字符串 (IP 或域名)，
// 有效性由各协议探测自行判定
func LoadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open target list: %w", err)
	}
	defer f.Close()

	var targets []string
	seen := make(map[string]struct{})

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		targets = append(targets, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read target list: %w", err)
	}

	if len(targets) == 0 {
		return nil, &ErrEmptyTargetList{Path: path}
	}
	return targets, nil
}

// ParsePorts 解析逗号分隔的端口列表
// 校验每个值在 [1, 65535]，去重并升序排序
func ParsePorts(spec string) ([]int, error) {
	parts := strings.Split(spec, ",")
	seen := make(map[int]struct{})
	var ports []int

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		p, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid port %q: not a number", part)
		}
		if p < 1 || p > 65535 {
			return nil, fmt.Errorf("invalid port %d: out of range [1, 65535]", p)
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		ports = append(ports, p)
	}

	if len(ports) == 0 {
		return nil, fmt.Errorf("port list %q contains no valid ports", spec)
	}
	sort.Ints(ports)
	return ports, nil
}
