package batchprobe

import (
	"slices"
	"sort"
	"sync"

	"netdiag/internal/domain/model"
)

// DefaultMaxSessions 是内存中保留的会话数上限，超出后淘汰最早结束的会话。
const DefaultMaxSessions = 50

// Registry 在内存中按 ID 保存会话，不做持久化。
type Registry struct {
	mu       sync.Mutex
	max      int
	sessions map[string]*Session
	order    []string
}

func NewRegistry(max int) *Registry {
	if max <= 0 {
		max = DefaultMaxSessions
	}
	return &Registry{max: max, sessions: make(map[string]*Session)}
}

func (r *Registry) Put(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.ID()]; !ok {
		r.order = append(r.order, s.ID())
	}
	r.sessions[s.ID()] = s
	r.evictLocked()
}

// evictLocked 只淘汰已结束的会话；运行中的会话即使超额也保留。
func (r *Registry) evictLocked() {
	for len(r.order) > r.max {
		victim := slices.IndexFunc(r.order, func(sid string) bool { return finished(r.sessions[sid]) })
		if victim < 0 {
			return
		}
		delete(r.sessions, r.order[victim])
		r.order = slices.Delete(r.order, victim, victim+1)
	}
}

func finished(s *Session) bool {
	select {
	case <-s.Done():
		return true
	default:
		return false
	}
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// List 返回全部会话快照，按创建时间倒序。
func (r *Registry) List() []model.BatchSnapshot {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.order))
	for _, sid := range r.order {
		sessions = append(sessions, r.sessions[sid])
	}
	r.mu.Unlock()

	out := make([]model.BatchSnapshot, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Snapshot())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Latest 返回最近创建的会话。
func (r *Registry) Latest() (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.order) == 0 {
		return nil, false
	}
	return r.sessions[r.order[len(r.order)-1]], true
}
