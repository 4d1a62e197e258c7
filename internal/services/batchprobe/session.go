package batchprobe

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"netdiag/internal/domain/model"
	"netdiag/internal/platform/id"
)

// DefaultConcurrency 是同时探测的站点数上限。
const DefaultConcurrency = 16

// SiteProber 是单站点双路径探测能力（siteprobe.Prober 实现）。
type SiteProber interface {
	ProbeSite(ctx context.Context, target model.SiteTarget, emit func(model.PathUpdate)) model.SiteProbeRecord
}

// Runner 启动批量探测会话。
type Runner struct {
	Prober SiteProber
	// Concurrency 为 0 表示不限制并发。
	Concurrency int
	Log         *slog.Logger
	Now         func() time.Time
}

// Session 是一次批量探测。
//
// 并发约定：
// - 每个站点的 local/server 两个单元格各自独立写入，写入都在 mu 下完成；
// - Cancel 之后不会再有站点从 not_started 进入 pending；
// - Cancel 之后才落地的探测结果一律丢弃，已完成的记录保持不变。
type Session struct {
	id     string
	cancel context.CancelFunc
	now    func() time.Time

	mu         sync.Mutex
	records    []model.SiteProbeRecord
	cancelled  bool
	finished   bool
	createdAt  time.Time
	finishedAt time.Time

	updates chan model.SiteProbeRecord
	done    chan struct{}
}

// Start 创建会话并在后台开始探测，立即返回。
// 会话的生命周期独立于调用方的请求，调用方应传入长生命周期的 ctx。
func (r *Runner) Start(ctx context.Context, targets []model.SiteTarget) *Session {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	ctx, cancel := context.WithCancel(ctx)

	s := &Session{
		id:        id.New("batch"),
		cancel:    cancel,
		now:       now,
		records:   make([]model.SiteProbeRecord, len(targets)),
		createdAt: now().UTC(),
		// 每个站点最多产生 3 次更新（pending、local 完成、server 完成）。
		updates: make(chan model.SiteProbeRecord, 3*len(targets)+1),
		done:    make(chan struct{}),
	}
	for i, t := range targets {
		s.records[i] = model.SiteProbeRecord{
			Target: t,
			Local:  model.PathCell{State: model.StateNotStarted},
			Server: model.PathCell{State: model.StateNotStarted},
		}
	}

	log := r.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With("batch", s.id)
	log.Info("batch started", "targets", len(targets), "concurrency", r.Concurrency)

	go s.run(ctx, r.Prober, r.Concurrency, targets, log)
	return s
}

func (s *Session) run(ctx context.Context, prober SiteProber, limit int, targets []model.SiteTarget, log *slog.Logger) {
	defer s.cancel()

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, t := range targets {
		if s.isCancelled() {
			break
		}
		i, t := i, t
		g.Go(func() error {
			if !s.begin(i) {
				return nil
			}
			prober.ProbeSite(ctx, t, func(u model.PathUpdate) {
				s.apply(i, u)
			})
			return nil
		})
	}
	_ = g.Wait()
	s.finish()

	snap := s.Snapshot()
	log.Info("batch finished", "status", snap.Status, "elapsed", snap.FinishedAt.Sub(snap.CreatedAt).String())
}

// begin 在探测开始前检查取消标记，并把两条路径标记为 pending。
func (s *Session) begin(i int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled {
		return false
	}
	rec := &s.records[i]
	rec.Local.State = model.StatePending
	rec.Server.State = model.StatePending
	s.publish(*rec)
	return true
}

func (s *Session) apply(i int, u model.PathUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled {
		return
	}
	out := u.Outcome
	*s.records[i].Cell(u.Path) = model.PathCell{State: model.StateDone, Outcome: &out}
	s.publish(s.records[i])
}

// publish 须在持有 mu 时调用；缓冲区按上限预留，正常不会阻塞。
func (s *Session) publish(rec model.SiteProbeRecord) {
	if s.finished {
		return
	}
	select {
	case s.updates <- rec.Clone():
	default:
	}
}

func (s *Session) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished = true
	s.finishedAt = s.now().UTC()
	close(s.updates)
	close(s.done)
}

func (s *Session) isCancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

// ID 返回会话 ID。
func (s *Session) ID() string { return s.id }

// Updates 返回增量更新流；会话结束时关闭。
func (s *Session) Updates() <-chan model.SiteProbeRecord { return s.updates }

// Done 在会话结束（全部完成或取消后在途探测退出）时关闭。
func (s *Session) Done() <-chan struct{} { return s.done }

// Wait 阻塞到会话结束。
func (s *Session) Wait() { <-s.done }

// Cancel 请求取消：未开始的站点不再启动，在途请求尽力中止，其结果被丢弃。
// 会话已结束时调用无效果；重复调用安全。
func (s *Session) Cancel() {
	s.mu.Lock()
	if s.finished || s.cancelled {
		s.mu.Unlock()
		return
	}
	s.cancelled = true
	s.mu.Unlock()
	s.cancel()
}

// Snapshot 返回当前状态的深拷贝。
func (s *Session) Snapshot() model.BatchSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := model.BatchRunning
	switch {
	case s.cancelled:
		status = model.BatchCancelled
	case s.finished:
		status = model.BatchCompleted
	}
	out := model.BatchSnapshot{
		ID:        s.id,
		Status:    status,
		Cancelled: s.cancelled,
		CreatedAt: s.createdAt,
		Records:   make([]model.SiteProbeRecord, len(s.records)),
	}
	for i, r := range s.records {
		out.Records[i] = r.Clone()
	}
	if s.finished {
		t := s.finishedAt
		out.FinishedAt = &t
	}
	return out
}
