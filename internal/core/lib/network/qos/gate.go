package qos

import (
	"context"
	"sync"
	"sync/atomic"
)

// Gate 并发闸门，带 AIMD (Additive Increase Multiplicative Decrease) 退避
// - 硬上限 max 永远不会被突破：令牌通道容量即 max
// - 连续探测失败 (超时/拒绝) 时乘性缩减当前额度，缓解目标侧压力
// - 连续成功时线性恢复，直到回到 max
//
// 与自适应限流不同的是，这里的 max 是调用方配置的全局并发上限，
// 退避只会让实际并发更低，绝不会更高
type Gate struct {
	sem             chan struct{}
	reductionNeeded int32 // 待销毁的令牌数 (欠账，在 Release 时偿还)

	currentLimit int
	minLimit     int
	maxLimit     int

	successCount int
	mu           sync.Mutex
}

// NewGate 创建并发闸门
// max <= 0 时钳制为 1 (单并发仍能保证整个任务前进)
func NewGate(max int) *Gate {
	if max <= 0 {
		max = 1
	}
	min := max / 4
	if min < 1 {
		min = 1
	}

	g := &Gate{
		sem:          make(chan struct{}, max),
		currentLimit: max,
		minLimit:     min,
		maxLimit:     max,
	}
	for i := 0; i < max; i++ {
		g.sem <- struct{}{}
	}
	return g
}

// Acquire 获取一个并发令牌，无令牌时阻塞直到释放或 context 取消
func (g *Gate) Acquire(ctx context.Context) error {
	select {
	case <-g.sem:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release 归还令牌
// 若有缩容欠账，则销毁令牌而不是归还
func (g *Gate) Release() {
	for {
		val := atomic.LoadInt32(&g.reductionNeeded)
		if val <= 0 {
			break
		}
		if atomic.CompareAndSwapInt32(&g.reductionNeeded, val, val-1) {
			return // 销毁一个令牌 (不归还通道)
		}
	}

	select {
	case g.sem <- struct{}{}:
	default:
		// Release 多于 Acquire 才会走到这里，忽略
	}
}

// OnSuccess 上报一次成功探测，线性恢复额度
// 每累计 currentLimit 次成功才 +1，恢复节奏比慢启动温和
func (g *Gate) OnSuccess() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.successCount++
	if g.successCount >= g.currentLimit {
		g.successCount = 0
		g.adjust(g.currentLimit + 1)
	}
}

// OnFailure 上报一次失败探测 (通常是超时)，乘性缩减额度
func (g *Gate) OnFailure() {
	g.mu.Lock()
	defer g.mu.Unlock()

	newLimit := int(float64(g.currentLimit) * 0.7)
	if newLimit >= g.currentLimit {
		newLimit = g.currentLimit - 1
	}
	g.adjust(newLimit)
	g.successCount = 0
}

// adjust 将额度调整到 target (钳制在 [minLimit, maxLimit])
// 调用方必须持有 g.mu
func (g *Gate) adjust(target int) {
	if target > g.maxLimit {
		target = g.maxLimit
	}
	if target < g.minLimit {
		target = g.minLimit
	}

	diff := target - g.currentLimit
	g.currentLimit = target

	if diff > 0 {
		// 扩容：注入令牌，但通道容量是 maxLimit，绝不会超发
		for i := 0; i < diff; i++ {
			select {
			case g.sem <- struct{}{}:
			default:
			}
		}
		return
	}

	// 缩容：先吃掉空闲令牌，吃不到的记欠账等 Release 时销毁
	removed := 0
	for i := 0; i < -diff; i++ {
		select {
		case <-g.sem:
			removed++
		default:
		}
	}
	if remaining := -diff - removed; remaining > 0 {
		atomic.AddInt32(&g.reductionNeeded, int32(remaining))
	}
}

// CurrentLimit 当前并发额度
func (g *Gate) CurrentLimit() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.currentLimit
}

// MaxLimit 配置的并发硬上限
func (g *Gate) MaxLimit() int {
	return g.maxLimit
}
