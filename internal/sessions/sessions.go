// Package sessions keeps one memory engine per chat user and persists them
// through a snapshot repository.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"concept-memory/internal/engine"
	"concept-memory/internal/storage"
)

type session struct {
	eng   *engine.Engine
	dirty bool
}

// Manager serializes all access to the engines it holds. A nil repository keeps
// sessions in memory only.
type Manager struct {
	mu       sync.Mutex
	opts     engine.Options
	repo     storage.Repository
	codec    storage.Codec
	logger   *zap.Logger
	sessions map[int64]*session
}

func NewManager(opts engine.Options, repo storage.Repository, codec storage.Codec, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if codec == nil {
		codec = storage.JSONCodec{}
	}
	return &Manager{
		opts:     opts,
		repo:     repo,
		codec:    codec,
		logger:   logger,
		sessions: make(map[int64]*session),
	}
}

func key(userID int64) string { return strconv.FormatInt(userID, 10) }

// get returns the session of userID, restoring it from the repository on first use.
// Callers hold m.mu.
func (m *Manager) get(ctx context.Context, userID int64) (*session, error) {
	if s, ok := m.sessions[userID]; ok {
		return s, nil
	}
	eng := engine.New(m.opts, m.logger.With(zap.Int64("user_id", userID)))
	s := &session{eng: eng}
	if m.repo != nil {
		data, err := m.repo.Load(ctx, key(userID))
		switch {
		case errors.Is(err, storage.ErrNotFound):
		case err != nil:
			return nil, fmt.Errorf("load session %d: %w", userID, err)
		default:
			doc, err := m.codec.Decode(data)
			if err != nil {
				// An unreadable snapshot is replaced on the next save.
				m.logger.Warn("discarding unreadable snapshot", zap.Int64("user_id", userID), zap.Error(err))
				s.dirty = true
			} else {
				st := eng.Restore(doc)
				s.dirty = !st.OK()
				m.logger.Debug("session restored",
					zap.Int64("user_id", userID),
					zap.Int("records", eng.Log().Size()),
					zap.Int("problems", len(st.Problems)))
			}
		}
	}
	m.sessions[userID] = s
	return s, nil
}

// With runs fn against the engine of userID and marks the session for saving.
func (m *Manager) With(ctx context.Context, userID int64, fn func(e *engine.Engine)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.get(ctx, userID)
	if err != nil {
		return err
	}
	fn(s.eng)
	s.dirty = true
	return nil
}

// View runs fn against the engine of userID without marking it changed.
func (m *Manager) View(ctx context.Context, userID int64, fn func(e *engine.Engine)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.get(ctx, userID)
	if err != nil {
		return err
	}
	fn(s.eng)
	return nil
}

func (m *Manager) Observe(ctx context.Context, userID int64, text string) (engine.Observation, error) {
	var obs engine.Observation
	err := m.With(ctx, userID, func(e *engine.Engine) { obs = e.Observe(text) })
	return obs, err
}

func (m *Manager) Stats(ctx context.Context, userID int64) (engine.Stats, error) {
	var st engine.Stats
	err := m.View(ctx, userID, func(e *engine.Engine) { st = e.Stats() })
	return st, err
}

// Forget wipes the memory of userID and removes its stored snapshot.
func (m *Manager) Forget(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.get(ctx, userID)
	if err != nil {
		return err
	}
	s.eng.Forget()
	s.dirty = false
	if m.repo == nil {
		return nil
	}
	if err := m.repo.Delete(ctx, key(userID)); err != nil {
		return fmt.Errorf("delete session %d: %w", userID, err)
	}
	return nil
}

// Users lists the loaded sessions in ascending order.
func (m *Manager) Users() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (m *Manager) save(ctx context.Context, userID int64, s *session) error {
	data, err := m.codec.Encode(s.eng.Snapshot())
	if err != nil {
		return fmt.Errorf("encode session %d: %w", userID, err)
	}
	if err := m.repo.Save(ctx, key(userID), data); err != nil {
		return fmt.Errorf("save session %d: %w", userID, err)
	}
	s.dirty = false
	return nil
}

// SaveAll writes every changed session and reports how many were saved. It keeps
// going after a failure and returns all errors joined.
func (m *Manager) SaveAll(ctx context.Context) (int, error) {
	if m.repo == nil {
		return 0, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var (
		saved int
		errs  []error
	)
	for id, s := range m.sessions {
		if !s.dirty {
			continue
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := m.save(ctx, id, s); err != nil {
			errs = append(errs, err)
			continue
		}
		saved++
	}
	if saved > 0 {
		m.logger.Info("sessions saved", zap.Int("count", saved), zap.String("format", m.codec.Name()))
	}
	return saved, errors.Join(errs...)
}
