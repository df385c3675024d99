package inmemory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"studiosync/internal/repository"
	"studiosync/internal/repository/board/inmemory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func version(t *testing.T, storage *inmemory.BoardStorage, key string) int {
	t.Helper()
	v, err := storage.Version(context.Background(), key)
	require.NoError(t, err)
	return v
}

// TestBoardStorage_New тестирует создание хранилища
func TestBoardStorage_New(t *testing.T) {
	storage := inmemory.NewBoardStorage()
	assert.NotNil(t, storage)
	assert.NoError(t, storage.HealthCheck(context.Background()))
}

// TestBoardStorage_LoadMissing тестирует чтение отсутствующего ключа
func TestBoardStorage_LoadMissing(t *testing.T) {
	storage := inmemory.NewBoardStorage()

	data, err := storage.Load(context.Background(), "studiosync_kanban_v1")
	assert.Nil(t, data)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

// TestBoardStorage_SaveLoad тестирует перезапись снимка
func TestBoardStorage_SaveLoad(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewBoardStorage()

	require.NoError(t, storage.Save(ctx, "k", []byte(`[1]`)))
	require.NoError(t, storage.Save(ctx, "k", []byte(`[2]`)))

	data, err := storage.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `[2]`, string(data))
	assert.Equal(t, 2, version(t, storage, "k"))
}

// TestBoardStorage_CopiesData тестирует, что хранилище не делит буфер с вызывающим
func TestBoardStorage_CopiesData(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewBoardStorage()

	buf := []byte(`"abc"`)
	require.NoError(t, storage.Save(ctx, "k", buf))
	buf[1] = 'z'

	data, err := storage.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `"abc"`, string(data))

	data[1] = 'q'
	again, err := storage.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `"abc"`, string(again))
}

// TestBoardStorage_Delete тестирует удаление
func TestBoardStorage_Delete(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewBoardStorage()

	require.NoError(t, storage.Save(ctx, "k", []byte(`{}`)))
	require.NoError(t, storage.Delete(ctx, "k"))
	require.NoError(t, storage.Delete(ctx, "missing"))

	_, err := storage.Load(ctx, "k")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Equal(t, 0, version(t, storage, "k"))
}

// TestBoardStorage_Concurrent тестирует параллельную запись в разные ключи
func TestBoardStorage_Concurrent(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewBoardStorage()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("board-%d", i%5)
			_ = storage.Save(ctx, key, []byte(fmt.Sprintf("%d", i)))
			_, _ = storage.Load(ctx, key)
		}(i)
	}
	wg.Wait()

	total := 0
	for i := 0; i < 5; i++ {
		total += version(t, storage, fmt.Sprintf("board-%d", i))
	}
	assert.Equal(t, 50, total)
}
