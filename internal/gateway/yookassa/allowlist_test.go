package yookassa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var officialRanges = []string{
	"185.71.76.0/27", "185.71.77.0/27", "77.75.153.0/25", "77.75.156.11",
	"77.75.156.35", "77.75.154.128/25", "2a02:5180::/32",
}

func TestIPAllowList(t *testing.T) {
	list, err := NewIPAllowList(officialRanges)
	require.NoError(t, err)

	testCases := []struct {
		ip      string
		allowed bool
	}{
		{"185.71.76.1", true},
		{"185.71.76.31", true},
		{"185.71.76.32", false},
		{"77.75.156.11", true},
		{"77.75.156.12", false},
		{"77.75.154.200", true},
		{"::ffff:185.71.77.5", true},
		{"2a02:5180:0:1::15", true},
		{"2a02:5181::1", false},
		{"127.0.0.1", false},
		{"not-an-ip", false},
		{"", false},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.allowed, list.Allowed(tc.ip), tc.ip)
	}
}

func TestNewIPAllowList_Invalid(t *testing.T) {
	_, err := NewIPAllowList([]string{"185.71.76.0/99"})
	assert.Error(t, err)

	_, err = NewIPAllowList([]string{"300.1.1.1"})
	assert.Error(t, err)
}
