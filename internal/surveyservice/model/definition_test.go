package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func defFixture() *Definition {
	steps := []*Step{
		{ID: 10, SurveyID: 1, DisplayOrder: 1, Name: "Intro"},
		{ID: 11, SurveyID: 1, DisplayOrder: 2, Name: "Family"},
	}
	sections := []*Section{
		{ID: 20, SurveyID: 1, DisplayOrder: 1, Name: "About you"},
		{ID: 21, SurveyID: 1, DisplayOrder: 2, Name: "Children"},
		{ID: 22, SurveyID: 1, DisplayOrder: 3, Name: "Shared"},
	}
	stepsSections := []*StepsSections{
		{ID: 30, SurveyID: 1, StepID: 10, StepDisplayOrder: 1, SectionID: 20, SectionDisplayOrder: 1,
			DisplayKey: DisplayKey{Survey: 1, Step: 1, Section: 1}},
		{ID: 31, SurveyID: 1, StepID: 10, StepDisplayOrder: 1, SectionID: 21, SectionDisplayOrder: 2,
			DisplayKey: DisplayKey{Survey: 1, Step: 1, Section: 2}},
		// The shared section is placed in both steps.
		{ID: 32, SurveyID: 1, StepID: 10, StepDisplayOrder: 1, SectionID: 22, SectionDisplayOrder: 3,
			DisplayKey: DisplayKey{Survey: 1, Step: 1, Section: 3}},
		{ID: 33, SurveyID: 1, StepID: 11, StepDisplayOrder: 2, SectionID: 22, SectionDisplayOrder: 3,
			DisplayKey: DisplayKey{Survey: 1, Step: 2, Section: 3}},
	}
	questions := []*Question{
		{ID: 40, SurveyID: 1, Type: QuestionCheckbox, Text: "Any children?"},
		{ID: 41, SurveyID: 1, Type: QuestionNumber, Text: "How many?"},
		{ID: 42, SurveyID: 1, Type: QuestionText, Text: "Name"},
		{ID: 43, SurveyID: 1, Type: QuestionText, Text: "Notes"},
	}
	sectionQuestions := []*SectionsQuestion{
		{ID: 50, SurveyID: 1, SectionID: 20, QuestionID: 40, DisplayOrder: 1},
		{ID: 51, SurveyID: 1, SectionID: 20, QuestionID: 41, DisplayOrder: 2},
		{ID: 52, SurveyID: 1, SectionID: 21, QuestionID: 42, DisplayOrder: 1},
		{ID: 53, SurveyID: 1, SectionID: 22, QuestionID: 43, DisplayOrder: 1},
	}
	relationships := []*Relationship{
		{ID: 60, SurveyID: 1, Action: ActionShow, Operator: OperatorBoolean,
			UpstreamQuestionID: 50, Downstream: Target{Kind: TargetQuestion, ID: 51}},
		{ID: 61, SurveyID: 1, Action: ActionRepeat, Operator: OperatorFieldExist,
			UpstreamQuestionID: 51, Downstream: Target{Kind: TargetSection, ID: 31}},
		{ID: 62, SurveyID: 1, Action: ActionText, Operator: OperatorFieldExist,
			UpstreamQuestionID: 50, Downstream: Target{Kind: TargetSection, ID: 31}, Token: "X"},
	}
	return NewDefinition(1, steps, sections, stepsSections, questions, sectionQuestions, nil, relationships)
}

func TestDefinitionLookups(t *testing.T) {
	def := defFixture()

	require.EqualValues(t, 1, def.SurveyID())
	require.Equal(t, "Intro", def.StepByDisplayOrder(1).Name)
	require.Nil(t, def.StepByDisplayOrder(9))
	require.Equal(t, "Children", def.Section(21).Name)
	require.EqualValues(t, 41, def.SectionQuestion(51).QuestionID)
	require.Len(t, def.StepsSections(), 4)
	require.EqualValues(t, 2, def.SectionDisplayOrder(31))
	require.EqualValues(t, 1, def.StepDisplayOrder(10))
}

func TestDefinitionRelationshipIndexes(t *testing.T) {
	def := defFixture()

	byUp := def.RelationshipsByUpstreamQuestion(50)
	require.Len(t, byUp, 2)
	require.EqualValues(t, 60, byUp[0].ID)
	require.EqualValues(t, 62, byUp[1].ID)

	require.Len(t, def.RelationshipsByDownstreamQuestion(51), 1)
	require.Len(t, def.RelationshipsByDownstreamSection(31), 2)
	require.Empty(t, def.RelationshipsByDownstreamStep(10))
	require.Empty(t, def.RelationshipsRepeatByDownstreamStep(10))
}

func TestInitialSectionQuestionsSkipsGated(t *testing.T) {
	def := defFixture()

	// sq 51 is SHOW-gated and never initial.
	initial := def.InitialSectionQuestions(def.StepsSectionsByID(30), true)
	require.Len(t, initial, 1)
	require.EqualValues(t, 50, initial[0].ID)

	// The children placement is REPEAT-gated: absent from step-triggered
	// inclusion, present when the section itself was the satisfied target.
	require.Empty(t, def.InitialSectionQuestions(def.StepsSectionsByID(31), true))
	sectionTriggered := def.InitialSectionQuestions(def.StepsSectionsByID(31), false)
	require.Len(t, sectionTriggered, 1)
	require.EqualValues(t, 52, sectionTriggered[0].ID)

	// A TEXT relationship alone gates nothing.
	sets := def.InitialStepQuestions(10)
	require.Len(t, sets, 2)
	require.EqualValues(t, 30, sets[0].Placement.ID)
	require.EqualValues(t, 32, sets[1].Placement.ID)
}

func TestLocationOfPrefersStep(t *testing.T) {
	def := defFixture()
	shared := def.SectionQuestion(53)

	// Without a preference the first placement in key order wins.
	require.EqualValues(t, 32, def.LocationOf(shared, nil).ID)

	step := int64(11)
	require.EqualValues(t, 33, def.LocationOf(shared, &step).ID)

	missing := int64(99)
	require.EqualValues(t, 32, def.LocationOf(shared, &missing).ID)
}
