package watchdog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuildParseArgs(t *testing.T) {
	argv := BuildArgs("./wd_process", 2*time.Second, 3, []string{"/opt/app", "-v", "x"})
	require.Equal(t, []string{"./wd_process", "2", "3", "/opt/app", "-v", "x"}, argv)

	a, err := ParseArgs(argv)
	require.NoError(t, err)
	require.Equal(t, "./wd_process", a.Self)
	require.Equal(t, 2*time.Second, a.Interval)
	require.Equal(t, 3, a.Tolerance)
	require.Equal(t, []string{"/opt/app", "-v", "x"}, a.Workload)
}

func TestFormatIntervalSubSecond(t *testing.T) {
	require.Equal(t, "250ms", FormatInterval(250*time.Millisecond))
	d, err := ParseInterval("250ms")
	require.NoError(t, err)
	require.Equal(t, 250*time.Millisecond, d)
}

func TestParseArgsRejects(t *testing.T) {
	cases := map[string][]string{
		"too few":        {"wd", "1", "2"},
		"bad interval":   {"wd", "soon", "2", "app"},
		"zero interval":  {"wd", "0", "2", "app"},
		"bad tolerance":  {"wd", "1", "many", "app"},
		"zero tolerance": {"wd", "1", "0", "app"},
	}
	for name, argv := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseArgs(argv)
			require.ErrorIs(t, err, ErrArgs)
		})
	}
}
