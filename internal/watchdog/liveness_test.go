package watchdog

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLivenessConsume(t *testing.T) {
	var l Liveness
	require.False(t, l.Consume())
	l.Mark()
	l.Mark()
	require.True(t, l.Consume())
	require.False(t, l.Consume())
}

func TestLivenessListen(t *testing.T) {
	var l Liveness
	stop := l.Listen(context.Background(), PingSignal)
	defer stop()

	require.NoError(t, syscall.Kill(os.Getpid(), PingSignal))
	require.Eventually(t, l.Consume, 2*time.Second, 5*time.Millisecond)
}
