package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPage(t *testing.T) {
	page, err := NewPage([]int{1, 2}, 5, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalPages())
	assert.Equal(t, &Pagination{Page: 1, PageSize: 2, TotalCount: 5, TotalPages: 3}, page.Pagination())
}

func TestNewPageRejectsMalformedWindow(t *testing.T) {
	cases := []struct {
		name  string
		items []int
		total int
		page  int
		size  int
	}{
		{name: "zero page", items: nil, total: 0, page: 0, size: 10},
		{name: "zero size", items: nil, total: 0, page: 1, size: 0},
		{name: "overflowing items", items: []int{1, 2, 3}, total: 3, page: 1, size: 2},
		{name: "total below items", items: []int{1, 2}, total: 1, page: 1, size: 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewPage(tc.items, tc.total, tc.page, tc.size)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidPage))
		})
	}
}

func TestPageEmptyItemsSerialiseAsEmptySlice(t *testing.T) {
	page, err := NewPage[string](nil, 4, 3, 2)
	require.NoError(t, err)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
	assert.Equal(t, 2, page.TotalPages())
}

func TestTotalPagesWithoutRecords(t *testing.T) {
	page, err := NewPage([]int{}, 0, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, page.TotalPages())
}
