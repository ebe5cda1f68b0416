package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expenseview/internal/core"
)

func TestRequire(t *testing.T) {
	s := NewStore()

	_, err := Require(s)
	assert.ErrorIs(t, err, ErrNoIdentity)

	_, err = Require(nil)
	assert.ErrorIs(t, err, ErrNoIdentity)

	require.NoError(t, s.Save(core.Person{ID: 4, Role: core.RoleUser, Token: "tok"}))
	p, err := Require(s)
	require.NoError(t, err)
	assert.Equal(t, int64(4), p.ID)
	assert.Equal(t, "tok", s.Token())
	assert.False(t, s.IsAdmin())

	s.Clear()
	_, err = Require(s)
	assert.ErrorIs(t, err, ErrNoIdentity)
	assert.Empty(t, s.Token())
}

func TestSaveRejectsZeroPerson(t *testing.T) {
	s := NewStore()
	assert.ErrorIs(t, s.Save(core.Person{Role: core.RoleAdmin}), ErrInvalidPerson)
	_, ok := s.CurrentPerson()
	assert.False(t, ok)
}

func TestIsAdmin(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Save(core.Person{ID: 1, Role: core.RoleAdmin}))
	assert.True(t, s.IsAdmin())
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(2)
		go func(id int64) {
			defer wg.Done()
			_ = s.Save(core.Person{ID: id})
		}(int64(i))
		go func() {
			defer wg.Done()
			_, _ = s.CurrentPerson()
		}()
	}
	wg.Wait()
	p, ok := s.CurrentPerson()
	assert.True(t, ok)
	assert.NotZero(t, p.ID)
}
