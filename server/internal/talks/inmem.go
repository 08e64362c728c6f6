package talks

import (
	"context"
	"errors"
	"sync"

	"talk-share/server/internal/model"
)

var ErrNotFound = errors.New("talk not found")

// InMemoryStore 是一个基于内存的 Talk 存储实现。
type InMemoryStore struct {
	mu   sync.RWMutex
	data map[string]*model.Talk
}

func NewInMemoryStore() *InMemoryStore {
	// 第一阶段用内存 store：实现简单、调试方便。
	// 注意：重启即丢数据；多实例部署需要替换为共享存储。
	return &InMemoryStore{data: make(map[string]*model.Talk)}
}

// Get 根据标题获取 Talk，返回副本。
func (s *InMemoryStore) Get(_ context.Context, title string) (*model.Talk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	talk, ok := s.data[title]
	if !ok {
		return nil, ErrNotFound
	}

	return talk.Clone(), nil
}

// List 返回全部 Talk 的副本，顺序为 map 迭代顺序（不保证稳定）。
func (s *InMemoryStore) List(_ context.Context) ([]model.Talk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Talk, 0, len(s.data))
	for _, talk := range s.data {
		out = append(out, *talk.Clone())
	}

	return out, nil
}

// Put 创建或整体替换 Talk。替换时评论清空，存入的是副本，
// 调用方手里的指针之后怎么改都不影响存储内容。
func (s *InMemoryStore) Put(_ context.Context, talk *model.Talk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *talk
	cp.Comments = []model.Comment{}
	s.data[cp.Title] = &cp

	return nil
}

// Delete 删除 Talk，返回删除前条目是否存在。
func (s *InMemoryStore) Delete(_ context.Context, title string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.data[title]
	delete(s.data, title)

	return ok, nil
}

// AddComment 向已存在的 Talk 追加评论，保持插入顺序。
func (s *InMemoryStore) AddComment(_ context.Context, title string, c model.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	talk, ok := s.data[title]
	if !ok {
		return ErrNotFound
	}
	talk.Comments = append(talk.Comments, c)

	return nil
}
