/*******************************************************************************
* Copyright (C) 2026 the Elicit Survey Authors
*
* Permission is hereby granted, free of charge, to any person obtaining
* a copy of this software and associated documentation files (the
* "Software"), to deal in the Software without restriction, including
* without limitation the rights to use, copy, modify, merge, publish,
* distribute, sublicense, and/or sell copies of the Software, and to
* permit persons to whom the Software is furnished to do so, subject to
* the following conditions:
*
* The above copyright notice and this permission notice shall be
* included in all copies or substantial portions of the Software.
*
* THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
* EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
* MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
* NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE
* LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION
* OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION
* WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*
* SPDX-License-Identifier: MIT
******************************************************************************/

// Package model holds the survey domain entities shared by the definition
// snapshot, the stores and the propagation engine.
package model

import "time"

// ActionType is the effect a relationship has on its downstream target.
type ActionType string

const (
	// ActionShow makes the downstream element visible while the operator holds.
	ActionShow ActionType = "SHOW"
	// ActionRepeat materializes N copies of the downstream element where N is
	// the upstream's numeric value.
	ActionRepeat ActionType = "REPEAT"
	// ActionText substitutes a token in the downstream element's display text.
	// It never affects visibility.
	ActionText ActionType = "TEXT"
	// ActionExists is a legacy alias handled exactly like ActionShow.
	ActionExists ActionType = "EXISTS"
)

// IsValid reports whether the value is a member of the closed enum.
func (a ActionType) IsValid() bool {
	switch a {
	case ActionShow, ActionRepeat, ActionText, ActionExists:
		return true
	}
	return false
}

// Visibility reports whether the action controls downstream visibility
// (SHOW and its legacy EXISTS alias).
func (a ActionType) Visibility() bool {
	return a == ActionShow || a == ActionExists
}

// OperatorType selects the predicate a relationship applies to its upstream
// answer.
type OperatorType string

const (
	OperatorBoolean     OperatorType = "BOOLEAN"
	OperatorEqual       OperatorType = "EQUAL"
	OperatorNotEqual    OperatorType = "NOT_EQUAL"
	OperatorLessThan    OperatorType = "LESS_THAN"
	OperatorGreaterThan OperatorType = "GREATER_THAN"
	OperatorContains    OperatorType = "CONTAINS"
	OperatorFieldExist  OperatorType = "FIELD_EXIST"
)

// IsValid reports whether the value is a member of the closed enum.
func (o OperatorType) IsValid() bool {
	switch o {
	case OperatorBoolean, OperatorEqual, OperatorNotEqual, OperatorLessThan,
		OperatorGreaterThan, OperatorContains, OperatorFieldExist:
		return true
	}
	return false
}

// QuestionType is the closed set of widget/value types the core relies on.
type QuestionType string

const (
	QuestionHTML       QuestionType = "HTML"
	QuestionText       QuestionType = "TEXT"
	QuestionDate       QuestionType = "DATE"
	QuestionDateTime   QuestionType = "DATETIME"
	QuestionTime       QuestionType = "TIME"
	QuestionEmail      QuestionType = "EMAIL"
	QuestionPassword   QuestionType = "PASSWORD"
	QuestionNumber     QuestionType = "NUMBER"
	QuestionDouble     QuestionType = "DOUBLE"
	QuestionCheckbox   QuestionType = "CHECKBOX"
	QuestionCheckboxes QuestionType = "CHECKBOX_GROUP"
	QuestionRadio      QuestionType = "RADIO"
	QuestionDropdown   QuestionType = "DROPDOWN"
	QuestionMultiCombo QuestionType = "MULTI_SELECT_COMBOBOX"
)

// IsValid reports whether the value is a member of the closed enum.
func (q QuestionType) IsValid() bool {
	switch q {
	case QuestionHTML, QuestionText, QuestionDate, QuestionDateTime,
		QuestionTime, QuestionEmail, QuestionPassword, QuestionNumber,
		QuestionDouble, QuestionCheckbox, QuestionCheckboxes, QuestionRadio,
		QuestionDropdown, QuestionMultiCombo:
		return true
	}
	return false
}

// Coded reports whether the type stores coded select values. For these the
// display-text builder prefers the relationship's defaultUpstreamValue over
// the raw answer value.
func (q QuestionType) Coded() bool {
	switch q {
	case QuestionCheckbox, QuestionDropdown, QuestionHTML, QuestionNumber, QuestionRadio:
		return true
	}
	return false
}

// TargetKind discriminates the downstream level of a relationship.
type TargetKind int

const (
	TargetQuestion TargetKind = iota + 1
	TargetSection
	TargetStep
)

// Target is the tagged downstream reference of a relationship. Kind selects
// the level, ID the SectionsQuestion, StepsSections or Step row.
type Target struct {
	Kind TargetKind
	ID   int64
}

// Step is one page group of a survey.
type Step struct {
	ID           int64  `json:"id"`
	SurveyID     int64  `json:"surveyId"`
	DisplayOrder int    `json:"displayOrder"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
}

// Section is a titled block of questions. Name may contain tokens and {S#}.
type Section struct {
	ID           int64
	SurveyID     int64
	DisplayOrder int
	Name         string
	Description  string
}

// StepsSections places a section inside a step and carries the canonical
// zero-instance display key of the pair.
type StepsSections struct {
	ID                  int64
	SurveyID            int64
	StepID              int64
	StepDisplayOrder    int
	SectionID           int64
	SectionDisplayOrder int
	DisplayKey          DisplayKey
}

// Question is a survey question definition.
type Question struct {
	ID             int64
	SurveyID       int64
	Type           QuestionType
	Text           string
	ShortText      string
	ToolTip        string
	Mask           string
	Placeholder    string
	DefaultValue   *string
	Required       bool
	MinValue       *float64
	MaxValue       *float64
	ValidationText string
	SelectGroupID  *int64
	Variant        string
}

// SectionsQuestion places a question inside a section.
type SectionsQuestion struct {
	ID           int64
	SurveyID     int64
	SectionID    int64
	QuestionID   int64
	DisplayOrder int
}

// SelectGroup is an ordered list of selectable items shared by coded
// question types.
type SelectGroup struct {
	ID       int64
	SurveyID int64
	Name     string
	Items    []SelectItem
}

// SelectItem is one selectable value of a SelectGroup.
type SelectItem struct {
	ID           int64
	GroupID      int64
	CodedValue   string
	DisplayText  string
	DisplayOrder int
}

// Relationship is a dependency edge of the survey definition: when the
// operator holds for the upstream question's answer, the action is applied to
// the downstream target.
type Relationship struct {
	ID                   int64
	SurveyID             int64
	Action               ActionType
	Operator             OperatorType
	UpstreamStepID       *int64
	UpstreamQuestionID   int64 // SectionsQuestion
	Downstream           Target
	Token                string
	ReferenceValue       *string
	DefaultUpstreamValue *string
}

// Respondent is one survey participant.
type Respondent struct {
	ID            int64
	SurveyID      int64
	Token         string
	Active        bool
	Logins        int
	CreatedAt     time.Time
	FirstAccessAt *time.Time
	FinalizedAt   *time.Time
}

// Answer is a materialized element of a respondent's survey path. Section and
// step rows have QuestionID nil and a zero question field in the key;
// question rows reference their SectionsQuestion.
type Answer struct {
	ID                int64      `json:"id"`
	RespondentID      int64      `json:"respondentId"`
	SurveyID          int64      `json:"surveyId"`
	StepID            int64      `json:"stepId"`
	StepInstance      int        `json:"stepInstance"`
	SectionID         int64      `json:"sectionId"`
	SectionInstance   int        `json:"sectionInstance"`
	QuestionInstance  int        `json:"questionInstance"`
	SectionQuestionID *int64     `json:"sectionQuestionId,omitempty"`
	QuestionID        *int64     `json:"questionId,omitempty"`
	DisplayKey        DisplayKey `json:"displayKey"`
	DisplayText       string     `json:"displayText"`
	TextValue         *string    `json:"textValue"`
	Deleted           bool       `json:"-"`
	CreatedAt         time.Time  `json:"createdAt"`
	SavedAt           time.Time  `json:"savedAt"`
}

// IsSectionLevel reports whether the answer is a section row.
func (a *Answer) IsSectionLevel() bool { return a.DisplayKey.IsSectionLevel() }

// IsStepLevel reports whether the answer is a step row.
func (a *Answer) IsStepLevel() bool { return a.DisplayKey.IsStepLevel() }

// Dependent is a persisted edge recording why a downstream answer exists (or
// had its text influenced): the relationship's operator held for the upstream
// answer at insertion time. Unique per (respondent, upstream, downstream,
// relationship) among non-deleted rows.
type Dependent struct {
	ID             int64
	RespondentID   int64
	UpstreamID     int64
	DownstreamID   int64
	RelationshipID int64
	Deleted        bool
}

// AnswerPatch is the only client-writable shape: it addresses an existing
// answer by (respondent, displayKey) and supplies the new text value.
type AnswerPatch struct {
	RespondentID int64   `json:"respondentId"`
	DisplayKey   string  `json:"displayKey"`
	TextValue    *string `json:"textValue"`
}
