package fzf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var sampleNames = []string{
	"train/loss",
	"train/acc",
	"eval/loss",
	"eval/acc_top5",
	"optim/grad_norm",
	"optim/lr",
	"distributions/weights",
	"LR_Schedule",
}

func TestMatcherFilter(t *testing.T) {
	assert := assert.New(t)

	cases := []struct {
		name     string
		query    string
		expected []string
		hasErr   bool
	}{
		{
			name:     "empty query returns all",
			query:    "",
			expected: sampleNames,
		},
		{
			name:     "simple substring",
			query:    "loss",
			expected: []string{"train/loss", "eval/loss"},
		},
		{
			name:     "multiple terms are ANDed",
			query:    "eval acc",
			expected: []string{"eval/acc_top5"},
		},
		{
			name:     "head anchor",
			query:    "^optim",
			expected: []string{"optim/grad_norm", "optim/lr"},
		},
		{
			name:     "tail anchor",
			query:    "acc$",
			expected: []string{"train/acc"},
		},
		{
			name:     "exact whole name",
			query:    "^optim/lr$",
			expected: []string{"optim/lr"},
		},
		{
			name:     "word prefix",
			query:    "'grad",
			expected: []string{"optim/grad_norm"},
		},
		{
			name:     "word exact excludes underscore joined words",
			query:    "'acc'",
			expected: []string{"train/acc"},
		},
		{
			name:     "case-insensitive",
			query:    "lr",
			expected: []string{"optim/lr", "LR_Schedule"},
		},
		{
			name:     "negation",
			query:    "train !loss",
			expected: []string{"train/acc"},
		},
		{
			name:   "lonely quote",
			query:  "'",
			hasErr: true,
		},
		{
			name:   "anchor only",
			query:  "^",
			hasErr: true,
		},
		{
			name:   "empty negation",
			query:  "!",
			hasErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := NewMatcher(tc.query)
			if tc.hasErr {
				assert.Error(err)
				return
			}
			if !assert.NoError(err) {
				return
			}
			assert.Equal(tc.expected, m.Filter(sampleNames))
		})
	}
}

func TestContainsWordExact(t *testing.T) {
	tests := []struct {
		name   string
		s      string
		needle string
		want   bool
	}{
		{"empty needle", "loss", "", false},
		{"empty string", "", "loss", false},
		{"after slash", "train/loss", "loss", true},
		{"at start", "loss/train", "loss", true},
		{"inside word", "trainloss", "loss", false},
		{"second occurrence", "lossy/loss", "loss", true},
		{"underscore is word char", "val_loss", "loss", false},
		{"digit is word char", "loss2", "loss", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, containsWordExact(tt.s, tt.needle), "containsWordExact(%q, %q)", tt.s, tt.needle)
		})
	}
}

func TestHasWordBoundary(t *testing.T) {
	tests := []struct {
		name string
		s    string
		idx  int
		size int
		want bool
	}{
		{"whole string", "loss", 0, 4, true},
		{"after slash", "train/loss", 6, 4, true},
		{"inside word", "trainloss", 5, 4, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hasWordBoundary(tt.s, tt.idx, tt.size))
		})
	}
}
