package subprocess

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLineReader(t *testing.T) {
	t.Run("splits lines and keeps the unterminated tail", func(t *testing.T) {
		reader := newLineReader(strings.NewReader("one\ntwo\nthree"), 16)

		var got []string

		for {
			line, oversized, err := reader.next()
			if err != nil {
				require.ErrorIs(t, err, io.EOF)

				break
			}

			require.False(t, oversized)
			got = append(got, string(line))
		}

		require.Equal(t, []string{"one", "two", "three"}, got)
	})

	t.Run("skips an oversized line and resumes after it", func(t *testing.T) {
		long := strings.Repeat("z", 200*1024)
		reader := newLineReader(strings.NewReader("ok\n"+long+"\nafter\n"), 1024)

		line, oversized, err := reader.next()
		require.NoError(t, err)
		require.False(t, oversized)
		require.Equal(t, "ok", string(line))

		line, oversized, err = reader.next()
		require.NoError(t, err)
		require.True(t, oversized)
		require.Empty(t, line)

		line, oversized, err = reader.next()
		require.NoError(t, err)
		require.False(t, oversized)
		require.Equal(t, "after", string(line))

		_, _, err = reader.next()
		require.ErrorIs(t, err, io.EOF)
	})

	t.Run("line at the limit is accepted", func(t *testing.T) {
		reader := newLineReader(strings.NewReader("abcd\nabcde\n"), 4)

		line, oversized, err := reader.next()
		require.NoError(t, err)
		require.False(t, oversized)
		require.Equal(t, "abcd", string(line))

		_, oversized, err = reader.next()
		require.NoError(t, err)
		require.True(t, oversized)
	})
}
