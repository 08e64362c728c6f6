package broker

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"talk-share/server/internal/router"
	"talk-share/server/internal/talks"
)

// DefaultMaxWait 单次长轮询允许挂起的时间上限，超出的请求会被收紧到该值。
const DefaultMaxWait = 120 * time.Second

type Option func(*Broker)

func WithMaxWait(d time.Duration) Option {
	return func(b *Broker) {
		if d > 0 {
			b.maxWait = d
		}
	}
}

// waiter 一次挂起的长轮询。只有先从 waiting 表里移除的一方才允许向 ch
// 发送，配合容量为 1 的通道，保证恰好解析一次且发送方永不阻塞。
type waiter struct {
	ch    chan *router.Response
	timer *time.Timer
}

// Broker 维护单调递增的版本号和挂起的长轮询等待者。
// 客户端带着上次的版本标签来问「变了没有」：不一致立即给全量列表，
// 一致且愿意等就挂起，直到变更扇出或超时。
type Broker struct {
	store talks.Store

	mu      sync.Mutex
	version int64
	waiting map[uuid.UUID]*waiter

	maxWait time.Duration
}

func New(store talks.Store, opts ...Option) *Broker {
	b := &Broker{
		store:   store,
		waiting: make(map[uuid.UUID]*waiter),
		maxWait: DefaultMaxWait,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Version 当前版本号，从 0 开始，每次有效变更加一。
func (b *Broker) Version() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.version
}

// Pending 当前挂起的等待者数量。
func (b *Broker) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.waiting)
}

func (b *Broker) tagLocked() string {
	return strconv.Quote(strconv.FormatInt(b.version, 10))
}

// TalkResponse 全量列表响应：200 + JSON 正文 + 当前版本的 ETag。
// no-store 禁止任何缓存层存这份响应，版本同步只认 ETag。
func (b *Broker) TalkResponse(ctx context.Context) (*router.Response, error) {
	b.mu.Lock()
	tag := b.tagLocked()
	b.mu.Unlock()

	return b.talkResponse(ctx, tag)
}

func (b *Broker) talkResponse(ctx context.Context, tag string) (*router.Response, error) {
	list, err := b.store.List(ctx)
	if err != nil {
		return nil, err
	}

	resp := router.JSON(http.StatusOK, list)
	resp.Header.Set("ETag", tag)
	resp.Header.Set("Cache-Control", "no-store")

	return resp, nil
}

func notModified() *router.Response {
	return &router.Response{Status: http.StatusNotModified}
}

// Respond 处理一次带版本标签的列表请求：
//  1. 标签缺失或与当前版本不一致：立即返回全量列表；
//  2. 一致且没有等待偏好：立即 304；
//  3. 一致且愿意等待：挂起，直到变更扇出、超时或客户端断开。
//
// 挂起路径会阻塞调用方的 goroutine，这正是 HTTP 处理函数期望的形态。
func (b *Broker) Respond(ctx context.Context, tag string, wait time.Duration, hasWait bool) (*router.Response, error) {
	b.mu.Lock()

	current := b.tagLocked()
	if tag != current {
		b.mu.Unlock()
		return b.talkResponse(ctx, current)
	}

	if !hasWait {
		b.mu.Unlock()
		return notModified(), nil
	}

	if wait > b.maxWait {
		wait = b.maxWait
	}

	id := uuid.New()
	w := &waiter{ch: make(chan *router.Response, 1)}
	w.timer = time.AfterFunc(wait, func() { b.expire(id) })
	b.waiting[id] = w

	b.mu.Unlock()

	select {
	case resp := <-w.ch:
		return resp, nil
	case <-ctx.Done():
		// 客户端已断开，没人会读这个响应了，把等待者摘掉释放资源即可。
		b.abandon(id)
		return notModified(), nil
	}
}

// expire 截止定时器回调。等待者若已被扇出解析，这里什么都不做。
func (b *Broker) expire(id uuid.UUID) {
	b.mu.Lock()
	w, ok := b.waiting[id]
	if ok {
		delete(b.waiting, id)
	}
	b.mu.Unlock()

	if ok {
		w.ch <- notModified()
	}
}

func (b *Broker) abandon(id uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if w, ok := b.waiting[id]; ok {
		delete(b.waiting, id)
		w.timer.Stop()
	}
}

// Updated 由变更处理函数在一次有效变更之后调用：版本号加一，
// 计算一次最新响应，扇出给当前挂起的全部等待者。
// 等待表在锁内整体换新，之后才逐个发送——先摘除再解析，
// 结构上杜绝了定时器与扇出同时解析同一个等待者的竞态。
func (b *Broker) Updated(ctx context.Context) {
	b.mu.Lock()
	b.version++
	tag := b.tagLocked()
	resolved := b.waiting
	b.waiting = make(map[uuid.UUID]*waiter)
	b.mu.Unlock()

	if len(resolved) == 0 {
		return
	}

	resp, err := b.talkResponse(ctx, tag)
	if err != nil {
		log.Error().Err(err).Msg("compute talk list for fan-out")
		resp = router.Text(http.StatusInternalServerError, err.Error())
	}

	for _, w := range resolved {
		w.timer.Stop()
		w.ch <- resp
	}

	log.Debug().Int("waiters", len(resolved)).Str("etag", tag).Msg("fan-out after update")
}
