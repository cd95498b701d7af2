package batch

import (
	"context"
	"fmt"
	"testing"

	"github.com/mchmarny/strshort/pkg/shorten"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	inputs := []string{"aba", "zabce", "cab", "", "bbbbbba"}

	items, err := Run(context.Background(), shorten.Default(), inputs, 2)
	require.NoError(t, err)
	require.Len(t, items, len(inputs))

	for i, in := range inputs {
		assert.Equal(t, in, items[i].Input)
	}

	assert.Equal(t, "b", items[0].Output)
	assert.True(t, items[0].Valid())

	assert.False(t, items[1].Valid())
	assert.Contains(t, items[1].Error, "string is not valid")
	assert.Empty(t, items[1].Output)

	assert.Equal(t, "bb", items[2].Output)
	assert.Equal(t, "", items[3].Output)
	assert.True(t, items[3].Valid())
	assert.Equal(t, "a", items[4].Output)
}

func TestRun_ZeroLimit(t *testing.T) {
	items, err := Run(context.Background(), shorten.Default(), []string{"aa", "ab"}, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "aa", items[0].Output)
	assert.Equal(t, "c", items[1].Output)
}

func TestRun_Empty(t *testing.T) {
	items, err := Run(context.Background(), shorten.Default(), nil, 4)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, shorten.Default(), []string{"abc", "cab"}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

type countingShortener struct {
	calls chan string
}

func (c *countingShortener) Shorten(in string) (string, error) {
	c.calls <- in
	return in, nil
}

func TestRun_CallsEachInputOnce(t *testing.T) {
	inputs := make([]string, 50)
	for i := range inputs {
		inputs[i] = fmt.Sprintf("in-%d", i)
	}
	s := &countingShortener{calls: make(chan string, len(inputs))}

	items, err := Run(context.Background(), s, inputs, 8)
	require.NoError(t, err)
	close(s.calls)

	seen := map[string]int{}
	for in := range s.calls {
		seen[in]++
	}
	assert.Len(t, seen, len(inputs))
	for i, item := range items {
		assert.Equal(t, inputs[i], item.Output)
	}
}
