package model

// Talk 一条待分享的演讲，Title 为全局唯一键。
// PUT 同名演讲时整体替换（评论清空），不做增量合并。
type Talk struct {
	Title     string    `json:"title"`
	Presenter string    `json:"presenter"`
	Summary   string    `json:"summary"`
	Comments  []Comment `json:"comments"`
}

// Comment 演讲下的一条评论，追加后不可变，只增不删。
type Comment struct {
	Author  string `json:"author"`
	Message string `json:"message"`
}

// Clone 返回深拷贝，避免调用方与存储内部共享 Comments 底层数组。
func (t *Talk) Clone() *Talk {
	cp := *t
	cp.Comments = make([]Comment, len(t.Comments))
	copy(cp.Comments, t.Comments)
	return &cp
}
