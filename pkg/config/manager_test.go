package config

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSection is a test implementation of the Section interface
type mockSection struct {
	id          string
	data        map[string]interface{}
	validateErr error
}

func (m *mockSection) ID() string                                { return m.id }
func (m *mockSection) Title() string                             { return m.id }
func (m *mockSection) Description() string                       { return "" }
func (m *mockSection) Data() map[string]interface{}              { return m.data }
func (m *mockSection) SetData(data map[string]interface{}) error { m.data = data; return nil }
func (m *mockSection) Validate() error                           { return m.validateErr }
func (m *mockSection) Reset()                                    { m.data = make(map[string]interface{}) }

// mockStore is a test implementation of the Store interface
type mockStore struct {
	sections map[string]map[string]interface{}
	loadErr  error
	saveErr  error
	saved    int
}

func newMockStore() *mockStore {
	return &mockStore{sections: make(map[string]map[string]interface{})}
}

func (m *mockStore) Load() error { return m.loadErr }
func (m *mockStore) Save() error {
	if m.saveErr == nil {
		m.saved++
	}
	return m.saveErr
}
func (m *mockStore) GetSection(id string) (map[string]interface{}, error) {
	if data, ok := m.sections[id]; ok {
		return data, nil
	}
	return make(map[string]interface{}), nil
}
func (m *mockStore) SetSection(id string, data map[string]interface{}) error {
	m.sections[id] = data
	return nil
}
func (m *mockStore) GetAll() (map[string]map[string]interface{}, error) { return m.sections, nil }
func (m *mockStore) SetAll(data map[string]map[string]interface{}) error {
	m.sections = data
	return nil
}

func TestManagerRegisterSection(t *testing.T) {
	store := newMockStore()
	m := NewManager(store)
	assert.Same(t, store, m.Store())
	assert.Empty(t, m.GetSections())

	for _, id := range []string{"first", "second", "third"} {
		require.NoError(t, m.RegisterSection(&mockSection{id: id}))
	}
	assert.Error(t, m.RegisterSection(&mockSection{id: "second"}))

	sections := m.GetSections()
	require.Len(t, sections, 3)
	assert.Equal(t, "first", sections[0].ID())
	assert.Equal(t, "third", sections[2].ID())

	_, ok := m.GetSection("missing")
	assert.False(t, ok)
}

func TestManagerLoadAll(t *testing.T) {
	store := newMockStore()
	store.sections["a"] = map[string]interface{}{"key": "value"}
	m := NewManager(store)
	a := &mockSection{id: "a"}
	require.NoError(t, m.RegisterSection(a))

	require.NoError(t, m.LoadAll())
	assert.Equal(t, "value", a.data["key"])

	store.loadErr = errors.New("disk gone")
	assert.ErrorContains(t, m.LoadAll(), "disk gone")
}

func TestManagerSaveAll(t *testing.T) {
	t.Run("writes every section", func(t *testing.T) {
		store := newMockStore()
		m := NewManager(store)
		require.NoError(t, m.RegisterSection(&mockSection{id: "a", data: map[string]interface{}{"k": 1}}))
		require.NoError(t, m.RegisterSection(&mockSection{id: "b", data: map[string]interface{}{"k": 2}}))

		require.NoError(t, m.SaveAll())
		assert.Equal(t, 1, store.sections["a"]["k"])
		assert.Equal(t, 2, store.sections["b"]["k"])
		assert.Equal(t, 1, store.saved)
	})

	t.Run("validation failure writes nothing", func(t *testing.T) {
		store := newMockStore()
		m := NewManager(store)
		require.NoError(t, m.RegisterSection(&mockSection{id: "ok", data: map[string]interface{}{}}))
		require.NoError(t, m.RegisterSection(&mockSection{id: "bad", validateErr: errors.New("nope")}))

		assert.ErrorContains(t, m.SaveAll(), "nope")
		assert.Empty(t, store.sections)
		assert.Zero(t, store.saved)
	})

	t.Run("store error", func(t *testing.T) {
		store := newMockStore()
		store.saveErr = errors.New("read-only")
		m := NewManager(store)
		assert.ErrorContains(t, m.SaveAll(), "read-only")
	})
}

func TestManagerResetAll(t *testing.T) {
	m := NewManager(newMockStore())
	a := &mockSection{id: "a", data: map[string]interface{}{"k": "v"}}
	require.NoError(t, m.RegisterSection(a))

	m.ResetAll()
	assert.Empty(t, a.data)
}

func TestManagerConcurrentRegistration(t *testing.T) {
	m := NewManager(newMockStore())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = m.RegisterSection(&mockSection{id: fmt.Sprintf("section%d", i)})
			m.GetSections()
		}(i)
	}
	wg.Wait()
	assert.Len(t, m.GetSections(), 10)
}
