package listcache

import (
	"context"
	"sync"
)

var _ Store = (*Memory)(nil)

// Memory はプロセス内のキャッシュです。期限切れエントリは Get 時に削除され、定期掃除は行いません。
type Memory struct {
	mu      sync.Mutex
	entries map[string]Entry
	opts    options
}

// NewMemory は Memory を生成します。
func NewMemory(opts ...Option) *Memory {
	return &Memory{
		entries: make(map[string]Entry),
		opts:    newOptions(opts),
	}
}

// Get は有効なエントリを返します。
func (m *Memory) Get(_ context.Context, key string) (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return Entry{}, false
	}
	if expired(entry, m.opts.clock.Now(), m.opts.ttl) {
		delete(m.entries, key)
		return Entry{}, false
	}
	return entry, true
}

// Set はエントリを保存します。同じキーのエントリは上書きされます。
func (m *Memory) Set(_ context.Context, key string, entry Entry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = m.opts.clock.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry
}

// Len は保持しているエントリ数を返します。期限切れで未読のエントリも含みます。
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
