package talks

import (
	"context"

	"talk-share/server/internal/model"
)

type Store interface {
	Get(ctx context.Context, title string) (*model.Talk, error)
	List(ctx context.Context) ([]model.Talk, error)
	Put(ctx context.Context, talk *model.Talk) error
	// Delete 返回是否真的删掉了条目：删除不存在的演讲是合法的空操作，
	// 调用方据此决定要不要触发变更广播。
	Delete(ctx context.Context, title string) (bool, error)
	AddComment(ctx context.Context, title string, c model.Comment) error
}
