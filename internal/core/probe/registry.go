package probe

import (
	"fmt"
	"sort"
	"sync"
)

// Factory 探测器工厂函数
type Factory func(opts Options) Check

// registry 按协议名注册的探测器工厂
// 各协议包在 init 或显式装配时注册自己，引擎侧没有任何按协议分支的逻辑
var (
	regMu    sync.RWMutex
	registry = make(map[string]Factory)
)

// Register 注册一个协议探测器工厂
// 重复注册同名协议视为编程错误，直接 panic (启动期即可暴露)
func Register(name string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("probe: duplicate check registered: %s", name))
	}
	registry[name] = f
}

// New 按名称构造探测器
func New(name string, opts Options) (Check, error) {
	regMu.RLock()
	f, exists := registry[name]
	regMu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("unsupported service: %s", name)
	}
	return f(opts), nil
}

// Names 返回所有已注册的协议名 (已排序，用于 --list 输出)
func Names() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
