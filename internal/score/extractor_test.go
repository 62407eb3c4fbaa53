package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name      string
		judgeText string
		want      float64
	}{
		{
			name:      "score is",
			judgeText: "The prompt accuracy score is 85% based on the match.",
			want:      8.5,
		},
		{
			name:      "score colon",
			judgeText: "Verdict: accuracy score: 42% overall.",
			want:      4.2,
		},
		{
			name:      "plain is",
			judgeText: "accuracy is 70%",
			want:      7.0,
		},
		{
			name:      "intervening words",
			judgeText: "The accuracy of this prompt compared to the reference is 95%.",
			want:      9.5,
		},
		{
			name:      "case insensitive",
			judgeText: "ACCURACY SCORE IS 60%",
			want:      6.0,
		},
		{
			name:      "perfect score",
			judgeText: "accuracy score is 100%",
			want:      10.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(tt.judgeText)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtract_NoMatch(t *testing.T) {
	tests := []struct {
		name      string
		judgeText string
	}{
		{"no percentage", "no percentage here"},
		{"percentage without accuracy", "the score is 85%"},
		{"accuracy without percentage", "the accuracy is high"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(tt.judgeText)
			require.ErrorIs(t, err, ErrParse)
		})
	}
}

func TestExtract_NoClamping(t *testing.T) {
	// out-of-range percentages pass through unclamped
	got, err := Extract("accuracy score is 150%")
	require.NoError(t, err)
	assert.Equal(t, 15.0, got)
}

func TestExtract_DecimalPercentNotRecognized(t *testing.T) {
	// only integer percentages match; "85.5%" has no digits-then-percent
	// tail anywhere in the text
	_, err := Extract("accuracy score is 85.5%")
	require.ErrorIs(t, err, ErrParse)
}
