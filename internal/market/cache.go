package market

import "container/list"

// FacadeCache 以角色为键的有界 LRU 门面缓存。
// 刻意用显式淘汰而不是依赖 GC 回收：矩阵里的新鲜度状态
// 被意外回收会导致悄悄多发请求。
type FacadeCache struct {
	capacity int
	order    *list.List               // front = 最近使用
	items    map[int]*list.Element    // characterID -> element
	factory  func(characterID int) *Facade
}

type cacheEntry struct {
	characterID int
	facade      *Facade
}

// NewFacadeCache creates an LRU cache that builds missing facades via factory.
func NewFacadeCache(capacity int, factory func(characterID int) *Facade) *FacadeCache {
	if capacity <= 0 {
		capacity = 64
	}
	return &FacadeCache{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[int]*list.Element),
		factory:  factory,
	}
}

// Get 返回该角色的门面，缺失则构建，超容量淘汰最久未用的
func (c *FacadeCache) Get(characterID int) *Facade {
	if el, ok := c.items[characterID]; ok {
		c.order.MoveToFront(el)
		return el.Value.(*cacheEntry).facade
	}
	facade := c.factory(characterID)
	el := c.order.PushFront(&cacheEntry{characterID: characterID, facade: facade})
	c.items[characterID] = el
	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry).characterID)
	}
	return facade
}

// Len returns the number of cached facades.
func (c *FacadeCache) Len() int {
	return c.order.Len()
}
