package concurrent

import (
	"maps"
	"sync"

	"gopkg.in/yaml.v3"
)

// 默认分片数量
const DEFAULT_SHARD_COUNT = 32

// Option 定义配置函数的类型
type Option[K comparable, V any] func(*Map[K, V])

// WithShardCount 允许用户自定义分片数量
// count: 建议设置为 2 的幂 (如 16, 32, 64, 128)
func WithShardCount[K comparable, V any](count uint32) Option[K, V] {
	return func(m *Map[K, V]) {
		m.shardCount = count
	}
}

// Map 是我们暴露给外部的主结构体
// K: 键的类型 (必须是可比较的)
// V: 值的类型 (任意)
type Map[K comparable, V any] struct {
	shards   []*ConcurrentMapShard[K, V]
	hashFunc func(K) uint32 // 用于计算 Key 的哈希值，决定分片位置
	// 分片数量越多，锁的粒度越小，并发性能越好，但内存开销稍大
	shardCount uint32
}

// ConcurrentMapShard 是内部的分片结构
// 每个分片拥有自己的锁和原生 Map
type ConcurrentMapShard[K comparable, V any] struct {
	items        map[K]V
	sync.RWMutex // 读写锁，读写分离提高性能
}

// NewMap 创建一个新的并发 Map
// hashFunc: 需要用户传入一个函数，将 Key 转换为 uint32 整数
func NewMap[K comparable, V any](hashFunc func(K) uint32, opts ...Option[K, V]) *Map[K, V] {
	m := &Map[K, V]{
		shardCount: DEFAULT_SHARD_COUNT,
		hashFunc:   hashFunc,
	}

	// 应用用户传入的配置
	for _, opt := range opts {
		opt(m)
	}

	m.shards = make([]*ConcurrentMapShard[K, V], m.shardCount)
	for i := range m.shardCount {
		m.shards[i] = &ConcurrentMapShard[K, V]{
			items: make(map[K]V),
		}
	}
	return m
}

// getShard 根据 Key 获取对应的分片
func (m *Map[K, V]) getShard(key K) *ConcurrentMapShard[K, V] {
	hash := m.hashFunc(key)
	return m.shards[hash%m.shardCount]
}

// Set 写入键值对
func (m *Map[K, V]) Set(key K, value V) {
	shard := m.getShard(key)
	shard.Lock() // 加写锁
	defer shard.Unlock()
	shard.items[key] = value
}

// Get 读取键值对
func (m *Map[K, V]) Get(key K) (V, bool) {
	shard := m.getShard(key)
	shard.RLock() // 加读锁
	defer shard.RUnlock()
	val, ok := shard.items[key]
	return val, ok
}

// Remove 删除键值对
func (m *Map[K, V]) Remove(key K) {
	shard := m.getShard(key)
	shard.Lock()
	defer shard.Unlock()
	delete(shard.items, key)
}

// Count 统计所有元素的数量（极高并发下是近似值）
func (m *Map[K, V]) Count() int {
	count := 0
	for i := range m.shardCount {
		shard := m.shards[i]
		shard.RLock()
		count += len(shard.items)
		shard.RUnlock()
	}
	return count
}

// Keys 获取所有的 Key
func (m *Map[K, V]) Keys() []K {
	keys := make([]K, 0)
	for i := range m.shardCount {
		shard := m.shards[i]
		shard.RLock()
		for k := range shard.items {
			keys = append(keys, k)
		}
		shard.RUnlock()
	}
	return keys
}

// IterCb 接受一个回调函数 fn
// fn 返回 true 继续遍历，返回 false 停止遍历
// 一次只锁一个分片，而不是锁整个 Map
func (m *Map[K, V]) IterCb(fn func(key K, v V) bool) {
	for i := range m.shardCount {
		shard := m.shards[i]
		shard.RLock()
		for k, v := range shard.items {
			keepGoing := fn(k, v)
			if !keepGoing {
				shard.RUnlock()
				return
			}
		}
		shard.RUnlock()
	}
}

// SetIfAbsent 如果 Key 不存在，则写入值；如果存在，则什么都不做
// 返回值: (实际存储的值, 是否是新写入的)
func (m *Map[K, V]) SetIfAbsent(key K, value V) (V, bool) {
	shard := m.getShard(key)
	shard.Lock()
	defer shard.Unlock()

	oldVal, ok := shard.items[key]
	if ok {
		return oldVal, false
	}

	shard.items[key] = value
	return value, true
}

// Clear 清空 Map 中的所有数据
// 策略：直接用一个新的空 Map 替换旧 Map，旧的 map 会被 GC 回收
func (m *Map[K, V]) Clear() {
	for i := range m.shardCount {
		shard := m.shards[i]
		shard.Lock()
		shard.items = make(map[K]V)
		shard.Unlock()
	}
}

// ==========================================
// YAML 序列化支持 (gopkg.in/yaml.v3)
// ==========================================

// MarshalYAML 实现 yaml.Marshaler 接口
// 当调用 yaml.Marshal(cMap) 时会自动触发
func (m *Map[K, V]) MarshalYAML() (interface{}, error) {
	// 遍历分片，将数据快照复制到临时 Map，由 yaml 库处理序列化
	tmp := make(map[K]V)
	for i := uint32(0); i < m.shardCount; i++ {
		shard := m.shards[i]
		shard.RLock()
		maps.Copy(tmp, shard.items)
		shard.RUnlock()
	}
	return tmp, nil
}

// UnmarshalYAML 实现 yaml.Unmarshaler 接口
// 注意：这里假设 m 已经被 NewMap 初始化过（拥有 shards 和 hashFunc）
func (m *Map[K, V]) UnmarshalYAML(value *yaml.Node) error {
	tmp := make(map[K]V)
	if err := value.Decode(&tmp); err != nil {
		return err
	}
	for k, v := range tmp {
		m.Set(k, v)
	}
	return nil
}
