package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDisplayKey(t *testing.T) {
	key, err := ParseDisplayKey("0001-0002-0000-0003-0001-0004-0002")
	require.NoError(t, err)
	require.Equal(t, DisplayKey{
		Survey:           1,
		Step:             2,
		Section:          3,
		SectionInstance:  1,
		Question:         4,
		QuestionInstance: 2,
	}, key)
	require.Equal(t, "0001-0002-0000-0003-0001-0004-0002", key.String())
}

func TestParseDisplayKeyDotForm(t *testing.T) {
	key, err := ParseDisplayKey("0001.0002.0000.0003.0001.0004.0002")
	require.NoError(t, err)
	// Dot input normalizes to the dash form on render.
	require.Equal(t, "0001-0002-0000-0003-0001-0004-0002", key.String())
}

func TestParseDisplayKeyRejectsMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"TooShort", "0001-0002"},
		{"TooLong", "0001-0002-0000-0003-0001-0004-00025"},
		{"MixedSeparators", "0001.0002-0000-0003-0001-0004-0002"},
		{"NonNumericField", "0001-0002-0000-00x3-0001-0004-0002"},
		{"NegativeField", "0001-0002-0000--003-0001-0004-0002"},
		{"Empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDisplayKey(tt.input)
			require.Error(t, err)
		})
	}
}

func TestDisplayKeyLevels(t *testing.T) {
	q, err := ParseDisplayKey("0001-0002-0000-0003-0001-0004-0000")
	require.NoError(t, err)

	require.False(t, q.IsStepLevel())
	require.False(t, q.IsSectionLevel())

	section := q.SectionKey()
	require.True(t, section.IsSectionLevel())
	require.Equal(t, "0001-0002-0000-0003-0001-0000-0000", section.String())

	step := q.StepKey()
	require.True(t, step.IsStepLevel())
	require.Equal(t, "0001-0002-0000-0000-0000-0000-0000", step.String())
}

func TestDisplayKeyLikePatterns(t *testing.T) {
	key, err := ParseDisplayKey("0001-0002-0000-0003-0001-0004-0000")
	require.NoError(t, err)

	require.Equal(t, "0001-0002-%-0000-0000-0000-0000", key.StepQuery())
	require.Equal(t, "0001-0002-0000-0003-%-0000-0000", key.SectionQuery())
	require.Equal(t, "0001-0002-0000-0003-0001-0004-%", key.AnswerQuery())
	require.Equal(t, "0001-0002-0000-%", key.StepPrefix())
	require.Equal(t, "0001-0002-0000-0003-0001-%", key.SectionPrefix())
}

// Lexical order over the rendered form must equal navigation order.
func TestDisplayKeyLexicalOrder(t *testing.T) {
	base := DisplayKey{Survey: 1, Step: 1, Section: 1}
	sequence := []DisplayKey{
		base,
		base.WithQuestion(1),
		base.WithQuestion(2),
		base.WithQuestion(2).WithQuestionInstance(1),
		base.WithSection(2),
		base.WithSection(2).WithSectionInstance(1),
		{Survey: 1, Step: 2},
	}
	for i := 1; i < len(sequence); i++ {
		require.Less(t, sequence[i-1].String(), sequence[i].String(),
			"expected %s < %s", sequence[i-1], sequence[i])
	}
}

func TestDisplayKeyJSONRoundTrip(t *testing.T) {
	key, err := ParseDisplayKey("0001-0002-0000-0003-0001-0004-0000")
	require.NoError(t, err)

	data, err := key.MarshalJSON()
	require.NoError(t, err)
	require.Equal(t, `"0001-0002-0000-0003-0001-0004-0000"`, string(data))

	var decoded DisplayKey
	require.NoError(t, decoded.UnmarshalJSON(data))
	require.Equal(t, key, decoded)
}
