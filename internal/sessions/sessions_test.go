package sessions

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"concept-memory/internal/engine"
	"concept-memory/internal/storage"
)

type memRepo struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newMemRepo() *memRepo { return &memRepo{data: map[string][]byte{}} }

func (r *memRepo) Save(_ context.Context, key string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.data[key] = append([]byte(nil), data...)
	return nil
}

func (r *memRepo) Load(_ context.Context, key string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	d, ok := r.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return d, nil
}

func (r *memRepo) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, key)
	return nil
}

func TestManager_SessionsAreIndependent(t *testing.T) {
	ctx := context.Background()
	m := NewManager(engine.Options{}, nil, nil, nil)

	_, err := m.Observe(ctx, 1, "program grid user")
	require.NoError(t, err)
	_, err = m.Observe(ctx, 2, "light cycle")
	require.NoError(t, err)

	s1, err := m.Stats(ctx, 1)
	require.NoError(t, err)
	s2, err := m.Stats(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, s1.Nodes)
	assert.Equal(t, 3, s2.Nodes)
	assert.NotEqual(t, s1.SessionID, s2.SessionID)
	assert.Equal(t, []int64{1, 2}, m.Users())

	saved, err := m.SaveAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, saved)
}

func TestManager_SaveAndRestore(t *testing.T) {
	ctx := context.Background()
	for _, codec := range []storage.Codec{storage.JSONCodec{}, storage.YAMLCodec{}} {
		t.Run(codec.Name(), func(t *testing.T) {
			repo := newMemRepo()
			m := NewManager(engine.Options{MaxSize: 2}, repo, codec, nil)
			for _, text := range []string{"program grid", "grid user", "user light"} {
				_, err := m.Observe(ctx, 7, text)
				require.NoError(t, err)
			}
			var before engine.Snapshot
			require.NoError(t, m.View(ctx, 7, func(e *engine.Engine) { before = e.Snapshot() }))

			saved, err := m.SaveAll(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, saved)
			saved, err = m.SaveAll(ctx)
			require.NoError(t, err)
			assert.Zero(t, saved, "clean sessions are not written again")

			restored := NewManager(engine.Options{}, repo, codec, nil)
			var after engine.Snapshot
			require.NoError(t, restored.View(ctx, 7, func(e *engine.Engine) { after = e.Snapshot() }))
			assert.Equal(t, before.SessionID, after.SessionID)
			assert.Equal(t, before.Log, after.Log)
			assert.Equal(t, before.Graph, after.Graph)
			assert.Equal(t, 2, after.Log.MaxSize)
		})
	}
}

func TestManager_Forget(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	m := NewManager(engine.Options{SeedConcepts: []string{"grid", "user"}}, repo, nil, nil)

	_, err := m.Observe(ctx, 3, "program grid")
	require.NoError(t, err)
	_, err = m.SaveAll(ctx)
	require.NoError(t, err)
	require.Contains(t, repo.data, "3")

	require.NoError(t, m.Forget(ctx, 3))
	assert.NotContains(t, repo.data, "3")

	st, err := m.Stats(ctx, 3)
	require.NoError(t, err)
	assert.Zero(t, st.Records)
	assert.Equal(t, 2, st.Nodes, "seed concepts survive a wipe")
	assert.Equal(t, 1, st.Edges)
}

func TestManager_UnreadableSnapshotStartsFresh(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	repo.data["9"] = []byte("{broken")
	m := NewManager(engine.Options{}, repo, storage.JSONCodec{}, nil)

	st, err := m.Stats(ctx, 9)
	require.NoError(t, err)
	assert.Zero(t, st.Records)

	saved, err := m.SaveAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, saved, "broken snapshot is overwritten")
	assert.NotEqual(t, "{broken", string(repo.data["9"]))
}

func TestManager_RepositoryErrors(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	boom := errors.New("disk full")
	m := NewManager(engine.Options{}, repo, nil, nil)
	_, err := m.Observe(ctx, 1, "program grid")
	require.NoError(t, err)

	repo.err = boom
	saved, err := m.SaveAll(ctx)
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, saved)

	_, err = m.Observe(ctx, 2, "anything")
	assert.ErrorIs(t, err, boom)
}
