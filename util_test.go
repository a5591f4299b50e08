package hoard_test

import (
	"testing"

	"github.com/hoardmem/hoard"
	"github.com/stretchr/testify/require"
)

func TestAlignUp(t *testing.T) {
	require.Equal(t, 0, hoard.AlignUp(0, 8))
	require.Equal(t, 8, hoard.AlignUp(1, 8))
	require.Equal(t, 8, hoard.AlignUp(8, 8))
	require.Equal(t, 104, hoard.AlignUp(100, 8))
	require.Equal(t, 120, hoard.AlignUp(116, 8))
}

func TestAlignDown(t *testing.T) {
	require.Equal(t, 0, hoard.AlignDown(7, 8))
	require.Equal(t, 8, hoard.AlignDown(15, 8))
	require.Equal(t, 16, hoard.AlignDown(16, 8))
}

func TestPagesFor(t *testing.T) {
	require.Equal(t, 1, hoard.PagesFor(1, 4096))
	require.Equal(t, 1, hoard.PagesFor(4096, 4096))
	require.Equal(t, 2, hoard.PagesFor(4097, 4096))
	require.Equal(t, 3, hoard.PagesFor(8200, 4096))
}

func TestCheckPow2(t *testing.T) {
	require.NoError(t, hoard.CheckPow2(uint(8), "alignment"))
	require.NoError(t, hoard.CheckPow2(uint(4096), "page size"))

	err := hoard.CheckPow2(uint(100), "header size")
	require.Error(t, err)
	require.ErrorIs(t, err, hoard.PowerOfTwoError)
}
