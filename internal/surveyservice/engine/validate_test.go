package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ElicitSoftware/Survey-sub001/internal/surveyservice/model"
)

func float(v float64) *float64 { return &v }

func validateFixture() *model.Definition {
	groups := []*model.SelectGroup{
		{ID: 1, SurveyID: 1, Name: "yesno", Items: []model.SelectItem{
			{ID: 1, GroupID: 1, CodedValue: "Y", DisplayText: "Yes", DisplayOrder: 1},
			{ID: 2, GroupID: 1, CodedValue: "N", DisplayText: "No", DisplayOrder: 2},
		}},
	}
	return model.NewDefinition(1, nil, nil, nil, nil, nil, groups, nil)
}

func TestValidateTextValue(t *testing.T) {
	def := validateFixture()
	groupID := int64(1)

	tests := []struct {
		name     string
		question *model.Question
		value    *string
		wantErr  bool
	}{
		{"NilQuestion", nil, strptr("anything"), false},
		{"NilValue", &model.Question{Type: model.QuestionNumber}, nil, false},
		{"BlankValue", &model.Question{Type: model.QuestionNumber}, strptr("  "), false},

		{"NumberOK", &model.Question{Type: model.QuestionNumber}, strptr("42"), false},
		{"NumberGarbage", &model.Question{Type: model.QuestionNumber}, strptr("4.2"), true},
		{"NumberBelowMin", &model.Question{Type: model.QuestionNumber, MinValue: float(1)}, strptr("0"), true},
		{"NumberAboveMax", &model.Question{Type: model.QuestionNumber, MaxValue: float(25)}, strptr("26"), true},
		{"NumberInRange", &model.Question{Type: model.QuestionNumber, MinValue: float(1), MaxValue: float(25)}, strptr("25"), false},

		{"DoubleOK", &model.Question{Type: model.QuestionDouble}, strptr("3.14"), false},
		{"DoubleGarbage", &model.Question{Type: model.QuestionDouble}, strptr("pi"), true},

		{"DateOK", &model.Question{Type: model.QuestionDate}, strptr("2021-06-15"), false},
		{"DateWrongFormat", &model.Question{Type: model.QuestionDate}, strptr("15.06.2021"), true},
		{"TimeOK", &model.Question{Type: model.QuestionTime}, strptr("13:45"), false},
		{"TimeWithSeconds", &model.Question{Type: model.QuestionTime}, strptr("13:45:30"), false},
		{"TimeGarbage", &model.Question{Type: model.QuestionTime}, strptr("quarter past one"), true},

		{"EmailOK", &model.Question{Type: model.QuestionEmail}, strptr("anne@example.org"), false},
		{"EmailNoAt", &model.Question{Type: model.QuestionEmail}, strptr("anne.example.org"), true},

		{"CheckboxTrue", &model.Question{Type: model.QuestionCheckbox}, strptr("true"), false},
		{"CheckboxGarbage", &model.Question{Type: model.QuestionCheckbox}, strptr("on"), true},

		{"RadioCodedOK", &model.Question{Type: model.QuestionRadio, SelectGroupID: &groupID}, strptr("Y"), false},
		{"RadioCodedUnknown", &model.Question{Type: model.QuestionRadio, SelectGroupID: &groupID}, strptr("maybe"), true},
		{"RadioNoGroupAcceptsAll", &model.Question{Type: model.QuestionRadio}, strptr("whatever"), false},
		{"CheckboxGroupList", &model.Question{Type: model.QuestionCheckboxes, SelectGroupID: &groupID}, strptr("Y, N"), false},
		{"CheckboxGroupBadMember", &model.Question{Type: model.QuestionCheckboxes, SelectGroupID: &groupID}, strptr("Y,Z"), true},

		{"FreeText", &model.Question{Type: model.QuestionText}, strptr("anything goes"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTextValue(def, tt.question, tt.value)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
