package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ElicitSoftware/Survey-sub001/internal/surveyservice/model"
)

func strptr(s string) *string { return &s }

func answerWith(value *string) *model.Answer {
	return &model.Answer{TextValue: value}
}

func TestEvaluateOperator(t *testing.T) {
	tests := []struct {
		name         string
		operator     model.OperatorType
		value        *string
		reference    *string
		upstreamType model.QuestionType
		expected     bool
	}{
		{"BooleanTrue", model.OperatorBoolean, strptr("true"), nil, model.QuestionCheckbox, true},
		{"BooleanTrueMixedCase", model.OperatorBoolean, strptr("TRUE"), nil, model.QuestionCheckbox, true},
		{"BooleanFalse", model.OperatorBoolean, strptr("false"), nil, model.QuestionCheckbox, false},
		{"BooleanGarbage", model.OperatorBoolean, strptr("yes"), nil, model.QuestionCheckbox, false},
		{"BooleanNil", model.OperatorBoolean, nil, nil, model.QuestionCheckbox, false},

		{"EqualMatch", model.OperatorEqual, strptr("Female"), strptr("female"), model.QuestionRadio, true},
		{"EqualMismatch", model.OperatorEqual, strptr("Male"), strptr("female"), model.QuestionRadio, false},
		{"EqualNilValue", model.OperatorEqual, nil, strptr("female"), model.QuestionRadio, false},

		{"NotEqualMismatch", model.OperatorNotEqual, strptr("Male"), strptr("female"), model.QuestionRadio, true},
		{"NotEqualMatch", model.OperatorNotEqual, strptr("female"), strptr("Female"), model.QuestionRadio, false},
		// NOT_EQUAL needs a present value; absence is not inequality.
		{"NotEqualNilValue", model.OperatorNotEqual, nil, strptr("female"), model.QuestionRadio, false},

		{"FieldExist", model.OperatorFieldExist, nil, nil, model.QuestionText, true},
		{"FieldExistWithValue", model.OperatorFieldExist, strptr("x"), nil, model.QuestionText, true},

		{"ContainsHit", model.OperatorContains, strptr("a, b ,c"), strptr("B"), model.QuestionMultiCombo, true},
		{"ContainsMiss", model.OperatorContains, strptr("a,b,c"), strptr("d"), model.QuestionMultiCombo, false},
		{"ContainsNil", model.OperatorContains, nil, strptr("a"), model.QuestionMultiCombo, false},

		// The numeric ordered comparisons both evaluate value >= reference;
		// LESS_THAN reproducing that is long-standing behavior.
		{"LessThanNumericAbove", model.OperatorLessThan, strptr("5"), strptr("3"), model.QuestionNumber, true},
		{"LessThanNumericEqual", model.OperatorLessThan, strptr("3"), strptr("3"), model.QuestionNumber, true},
		{"LessThanNumericBelow", model.OperatorLessThan, strptr("2"), strptr("3"), model.QuestionNumber, false},
		{"GreaterThanNumericAbove", model.OperatorGreaterThan, strptr("5"), strptr("3"), model.QuestionNumber, true},
		{"GreaterThanNumericEqual", model.OperatorGreaterThan, strptr("3"), strptr("3"), model.QuestionNumber, true},
		{"GreaterThanNumericBelow", model.OperatorGreaterThan, strptr("2"), strptr("3"), model.QuestionNumber, false},
		{"OrderedNumericGarbage", model.OperatorLessThan, strptr("abc"), strptr("3"), model.QuestionNumber, false},
		{"OrderedNilReference", model.OperatorLessThan, strptr("2"), nil, model.QuestionNumber, false},

		// Dates: LESS_THAN is value <= reference, GREATER_THAN is value >= reference.
		{"LessThanDateBefore", model.OperatorLessThan, strptr("2020-01-01"), strptr("2021-06-15"), model.QuestionDate, true},
		{"LessThanDateEqual", model.OperatorLessThan, strptr("2021-06-15"), strptr("2021-06-15"), model.QuestionDate, true},
		{"LessThanDateAfter", model.OperatorLessThan, strptr("2022-01-01"), strptr("2021-06-15"), model.QuestionDate, false},
		{"GreaterThanDateAfter", model.OperatorGreaterThan, strptr("2022-01-01"), strptr("2021-06-15"), model.QuestionDate, true},
		{"GreaterThanDateEqual", model.OperatorGreaterThan, strptr("2021-06-15"), strptr("2021-06-15"), model.QuestionDate, true},
		{"GreaterThanDateBefore", model.OperatorGreaterThan, strptr("2020-01-01"), strptr("2021-06-15"), model.QuestionDate, false},
		{"OrderedDateGarbage", model.OperatorGreaterThan, strptr("not-a-date"), strptr("2021-06-15"), model.QuestionDate, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rel := &model.Relationship{Operator: tt.operator, ReferenceValue: tt.reference}
			got := EvaluateOperator(rel, answerWith(tt.value), tt.upstreamType)
			require.Equal(t, tt.expected, got)
		})
	}
}

func TestEvaluateOperatorDeletedAnswer(t *testing.T) {
	rel := &model.Relationship{Operator: model.OperatorFieldExist}
	require.False(t, EvaluateOperator(rel, nil, model.QuestionText))
	require.False(t, EvaluateOperator(rel, &model.Answer{Deleted: true}, model.QuestionText))
}
