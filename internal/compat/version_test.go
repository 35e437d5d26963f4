package compat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want int
	}{
		{"equal", "5.10.144", "5.10.144", 0},
		{"numeric not lexical", "5.9", "5.70", -1},
		{"numeric not lexical reversed", "5.70", "5.9", 1},
		{"build suffix orders after prefix", "5.10.144-127", "5.10.144-127.601", -1},
		{"longer build wins", "5.10.144-127.601", "5.10.144-127", 1},
		{"distro suffix ignored", "5.10.144-127.601.amzn2.x86_64", "5.10.144-127.601", 0},
		{"el suffix ignored", "5.14.0-362.18.1.el9_3.x86_64", "5.14.0-362.18.1", 0},
		{"major difference dominates", "4.18.0-553", "5.14.0-70", -1},
		{"release component compares numerically", "3.10.0-1160", "3.10.0-957", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compare(tt.a, tt.b))
		})
	}
}

func TestAtLeast(t *testing.T) {
	assert.True(t, AtLeast("4.14.104-95.84.amzn2.x86_64", "4.14.104-95.84"))
	assert.True(t, AtLeast("4.14.200-155.322.amzn2.x86_64", "4.14.104-95.84"))
	assert.False(t, AtLeast("4.14.104-95.83.amzn2.x86_64", "4.14.104-95.84"))
	assert.False(t, AtLeast("4.14.104-78.84.amzn1.x86_64", "4.14.104-95.84"))
}

// A version whose components order below a threshold must never satisfy it.
func TestThresholdOrderingProperty(t *testing.T) {
	pairs := [][2]string{
		{"5.10.143-999", "5.10.144-127"},
		{"5.10.144-126.900", "5.10.144-127"},
		{"4.14.99-95.84", "4.14.104-95.84"},
		{"3.10.0-957.5.1", "3.10.0-1062"},
	}
	for _, p := range pairs {
		lower, threshold := p[0], p[1]
		assert.Equal(t, -1, Compare(lower, threshold), "%s should order below %s", lower, threshold)
		assert.False(t, AtLeast(lower, threshold))
	}
}

func TestHasSeriesPrefix(t *testing.T) {
	assert.True(t, HasSeriesPrefix("4.18.0-513.24.1.el8_9.x86_64", "4.18.0-513"))
	assert.True(t, HasSeriesPrefix("4.18.0-513", "4.18.0-513"))
	assert.False(t, HasSeriesPrefix("4.18.0-513.24.1.el8_9.x86_64", "4.18.0-51"))
	assert.False(t, HasSeriesPrefix("5.14.0-362.18.1.el9_3.x86_64", "5.14.0-36"))
	assert.True(t, HasSeriesPrefix("5.10.186-179.751.amzn2.x86_64", "5.10"))
}

func TestMajor(t *testing.T) {
	assert.Equal(t, "8", Major("8.7"))
	assert.Equal(t, "2023", Major("2023"))
	assert.Equal(t, "12", Major("12.5"))
}
