package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flanksource/progress/errors"
)

func TestMemoryRecordsLinesInOrder(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.WriteLine("first"))
	require.NoError(t, m.WriteLine("second"))

	assert.Equal(t, []string{"first", "second"}, m.Lines())
	assert.Equal(t, "first\nsecond", m.String())
	assert.True(t, m.Ready())
}

func TestMemoryRejectsWritesAfterClose(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Close())
	assert.False(t, m.Ready())

	err := m.WriteLine("late")
	require.Error(t, err)
	assert.Equal(t, errors.IO, errors.KindOf(err))
}

func TestFileAppendsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	f, err := NewFile(path)
	require.NoError(t, err)

	require.NoError(t, f.WriteLine("alpha"))
	require.NoError(t, f.WriteLine("beta"))
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "alpha\nbeta\n", string(data))
}

func TestFileCloseIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	f, err := NewFile(path)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.NoError(t, f.Close())
	assert.False(t, f.Ready())
}

func TestSyncedBlocksNeverInterleave(t *testing.T) {
	m := NewMemory()
	s := NewSynced(m)

	const writers = 8
	const blocks = 50
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < blocks; j++ {
				block := []string{
					fmt.Sprintf("w%d-start", id),
					fmt.Sprintf("w%d-mid", id),
					fmt.Sprintf("w%d-end", id),
				}
				assert.NoError(t, s.WriteBlock(block))
			}
		}(i)
	}
	wg.Wait()

	lines := m.Lines()
	require.Len(t, lines, writers*blocks*3)
	for i := 0; i < len(lines); i += 3 {
		prefix := lines[i][:len(lines[i])-len("-start")]
		assert.Equal(t, prefix+"-start", lines[i])
		assert.Equal(t, prefix+"-mid", lines[i+1])
		assert.Equal(t, prefix+"-end", lines[i+2])
	}
}
