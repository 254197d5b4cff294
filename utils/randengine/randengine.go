// 随机数引擎，包装了golang.org/x/exp/rand
package randengine

import (
	"flag"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
)

var (
	seedOffset = flag.Uint64("rand.seed_offset", 0, "seed offset") // 种子偏移量，同一输入下换一组随机序列

	log = logrus.WithField("module", "randengine")
)

// Engine 随机数引擎
// 说明：每个智能体持有一个以自身ID为种子的引擎，仿真结果与调度顺序无关
type Engine struct {
	*rand.Rand
}

// New 创建随机数引擎，实际种子为seed加上-rand.seed_offset
func New(seed uint64) *Engine {
	return &Engine{Rand: rand.New(rand.NewSource(seed + *seedOffset))}
}

// Lag 在[0, n]中均匀取一个延迟步数（非线程安全），n<=0时为0
func (e *Engine) Lag(n int) int {
	if n <= 0 {
		return 0
	}
	return e.Intn(n + 1)
}

// Pick 均匀取一个下标（非线程安全）
// 参数：n-候选数量，必须为正
func (e *Engine) Pick(n int) int {
	if n <= 0 {
		log.Panicf("Pick: no candidates (n=%d)", n)
	}
	return e.Intn(n)
}
