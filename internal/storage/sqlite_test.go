//go:build sqlite

package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "wdsched/pkg/logx"
)

func TestSQLiteAppendRecent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")
	st, err := Open(Config{Driver: "sqlite", Path: path}, logx.Nop())
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		require.NoError(t, st.Append(ctx, Entry{Type: fmt.Sprintf("ev%d", i), Data: []byte(`{"i":1}`)}))
	}
	require.NoError(t, st.Append(ctx, Entry{Type: "bare"}))

	got, err := st.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "ev3", got[0].Type)
	assert.Equal(t, "bare", got[1].Type)
	assert.Empty(t, got[1].Data)
	assert.False(t, got[0].At.IsZero())
}
