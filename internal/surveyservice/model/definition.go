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

package model

import "sort"

// Definition is the immutable snapshot of one survey's schema. It is built
// once at startup from a persistence loader and shared read-only across all
// respondents, so every accessor is side-effect free.
type Definition struct {
	surveyID int64

	steps             map[int64]*Step
	stepsByOrder      map[int]*Step
	sections          map[int64]*Section
	stepsSections     []*StepsSections
	stepsSectionsByID map[int64]*StepsSections
	questions         map[int64]*Question
	sectionQuestions  map[int64]*SectionsQuestion
	selectGroups      map[int64]*SelectGroup

	sectionQuestionsBySection map[int64][]*SectionsQuestion
	relationships             []*Relationship
	relationshipsByID         map[int64]*Relationship
	relsByUpstreamQuestion    map[int64][]*Relationship
	relsByDownstreamQuestion  map[int64][]*Relationship
	relsByDownstreamSection   map[int64][]*Relationship
	relsByDownstreamStep      map[int64][]*Relationship
}

// NewDefinition indexes the given schema rows into a snapshot. Lists are
// ordered by display key, display order or id; the input slices are not
// retained.
func NewDefinition(
	surveyID int64,
	steps []*Step,
	sections []*Section,
	stepsSections []*StepsSections,
	questions []*Question,
	sectionQuestions []*SectionsQuestion,
	selectGroups []*SelectGroup,
	relationships []*Relationship,
) *Definition {
	d := &Definition{
		surveyID:                  surveyID,
		steps:                     make(map[int64]*Step, len(steps)),
		stepsByOrder:              make(map[int]*Step, len(steps)),
		sections:                  make(map[int64]*Section, len(sections)),
		stepsSectionsByID:         make(map[int64]*StepsSections, len(stepsSections)),
		questions:                 make(map[int64]*Question, len(questions)),
		sectionQuestions:          make(map[int64]*SectionsQuestion, len(sectionQuestions)),
		selectGroups:              make(map[int64]*SelectGroup, len(selectGroups)),
		sectionQuestionsBySection: make(map[int64][]*SectionsQuestion),
		relationshipsByID:         make(map[int64]*Relationship, len(relationships)),
		relsByUpstreamQuestion:    make(map[int64][]*Relationship),
		relsByDownstreamQuestion:  make(map[int64][]*Relationship),
		relsByDownstreamSection:   make(map[int64][]*Relationship),
		relsByDownstreamStep:      make(map[int64][]*Relationship),
	}

	for _, s := range steps {
		d.steps[s.ID] = s
		d.stepsByOrder[s.DisplayOrder] = s
	}
	for _, s := range sections {
		d.sections[s.ID] = s
	}

	d.stepsSections = append(d.stepsSections, stepsSections...)
	sort.SliceStable(d.stepsSections, func(i, j int) bool {
		a, b := d.stepsSections[i], d.stepsSections[j]
		if a.DisplayKey != b.DisplayKey {
			return a.DisplayKey.String() < b.DisplayKey.String()
		}
		return a.ID < b.ID
	})
	for _, ss := range d.stepsSections {
		d.stepsSectionsByID[ss.ID] = ss
	}

	for _, q := range questions {
		d.questions[q.ID] = q
	}
	for _, sq := range sectionQuestions {
		d.sectionQuestions[sq.ID] = sq
		d.sectionQuestionsBySection[sq.SectionID] = append(d.sectionQuestionsBySection[sq.SectionID], sq)
	}
	for _, list := range d.sectionQuestionsBySection {
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].DisplayOrder != list[j].DisplayOrder {
				return list[i].DisplayOrder < list[j].DisplayOrder
			}
			return list[i].ID < list[j].ID
		})
	}

	for _, g := range selectGroups {
		d.selectGroups[g.ID] = g
	}

	d.relationships = append(d.relationships, relationships...)
	sort.SliceStable(d.relationships, func(i, j int) bool {
		return d.relationships[i].ID < d.relationships[j].ID
	})
	for _, r := range d.relationships {
		d.relationshipsByID[r.ID] = r
		d.relsByUpstreamQuestion[r.UpstreamQuestionID] = append(d.relsByUpstreamQuestion[r.UpstreamQuestionID], r)
		switch r.Downstream.Kind {
		case TargetQuestion:
			d.relsByDownstreamQuestion[r.Downstream.ID] = append(d.relsByDownstreamQuestion[r.Downstream.ID], r)
		case TargetSection:
			d.relsByDownstreamSection[r.Downstream.ID] = append(d.relsByDownstreamSection[r.Downstream.ID], r)
		case TargetStep:
			d.relsByDownstreamStep[r.Downstream.ID] = append(d.relsByDownstreamStep[r.Downstream.ID], r)
		}
	}

	return d
}

// SurveyID returns the survey this snapshot describes.
func (d *Definition) SurveyID() int64 { return d.surveyID }

// Step returns a step by id, or nil.
func (d *Definition) Step(id int64) *Step { return d.steps[id] }

// StepByDisplayOrder returns the step addressed by a display-key step field.
func (d *Definition) StepByDisplayOrder(order int) *Step { return d.stepsByOrder[order] }

// Section returns a section by id, or nil.
func (d *Definition) Section(id int64) *Section { return d.sections[id] }

// Question returns a question by id, or nil.
func (d *Definition) Question(id int64) *Question { return d.questions[id] }

// SectionQuestion returns a SectionsQuestion by id, or nil.
func (d *Definition) SectionQuestion(id int64) *SectionsQuestion { return d.sectionQuestions[id] }

// SelectGroup returns a select group by id, or nil.
func (d *Definition) SelectGroup(id int64) *SelectGroup { return d.selectGroups[id] }

// Relationship returns a relationship by id, or nil.
func (d *Definition) Relationship(id int64) *Relationship { return d.relationshipsByID[id] }

// StepsSections returns all step/section placements ordered by display key.
func (d *Definition) StepsSections() []*StepsSections { return d.stepsSections }

// StepsSectionsByID returns one placement by id, or nil.
func (d *Definition) StepsSectionsByID(id int64) *StepsSections { return d.stepsSectionsByID[id] }

// StepsSectionsForStep returns the placements of a step, ordered by display key.
func (d *Definition) StepsSectionsForStep(stepID int64) []*StepsSections {
	var out []*StepsSections
	for _, ss := range d.stepsSections {
		if ss.StepID == stepID {
			out = append(out, ss)
		}
	}
	return out
}

// StepsSectionsByOrder resolves the placement addressed by a display key's
// step and section fields, or nil.
func (d *Definition) StepsSectionsByOrder(stepOrder, sectionOrder int) *StepsSections {
	for _, ss := range d.stepsSections {
		if ss.StepDisplayOrder == stepOrder && ss.SectionDisplayOrder == sectionOrder {
			return ss
		}
	}
	return nil
}

// SectionQuestions returns the questions placed in a section, ordered by
// display order.
func (d *Definition) SectionQuestions(sectionID int64) []*SectionsQuestion {
	return d.sectionQuestionsBySection[sectionID]
}

// SectionQuestionByOrder resolves the question addressed by a display key's
// question field inside a section, or nil.
func (d *Definition) SectionQuestionByOrder(sectionID int64, displayOrder int) *SectionsQuestion {
	for _, sq := range d.sectionQuestionsBySection[sectionID] {
		if sq.DisplayOrder == displayOrder {
			return sq
		}
	}
	return nil
}

// LocationOf returns the placement of the section containing the given
// SectionsQuestion. When the question's section appears under several steps,
// a non-nil preferStepID selects among them.
func (d *Definition) LocationOf(sq *SectionsQuestion, preferStepID *int64) *StepsSections {
	var first *StepsSections
	for _, ss := range d.stepsSections {
		if ss.SectionID != sq.SectionID {
			continue
		}
		if preferStepID != nil && ss.StepID == *preferStepID {
			return ss
		}
		if first == nil {
			first = ss
		}
	}
	return first
}

// RelationshipsByUpstreamQuestion returns all relationships whose upstream is
// the given SectionsQuestion, ordered by id.
func (d *Definition) RelationshipsByUpstreamQuestion(sectionQuestionID int64) []*Relationship {
	return d.relsByUpstreamQuestion[sectionQuestionID]
}

// RelationshipsByDownstreamQuestion returns all relationships targeting the
// given SectionsQuestion, ordered by id.
func (d *Definition) RelationshipsByDownstreamQuestion(sectionQuestionID int64) []*Relationship {
	return d.relsByDownstreamQuestion[sectionQuestionID]
}

// RelationshipsByDownstreamSection returns all relationships targeting the
// given StepsSections placement, ordered by id.
func (d *Definition) RelationshipsByDownstreamSection(stepsSectionsID int64) []*Relationship {
	return d.relsByDownstreamSection[stepsSectionsID]
}

// RelationshipsByDownstreamStep returns all relationships targeting the given
// step, ordered by id.
func (d *Definition) RelationshipsByDownstreamStep(stepID int64) []*Relationship {
	return d.relsByDownstreamStep[stepID]
}

// RelationshipsRepeatByDownstreamStep returns the REPEAT relationships
// targeting a step. Declared by the schema but not executed by the engine;
// kept so step rows still record their repeat-linked dependents.
func (d *Definition) RelationshipsRepeatByDownstreamStep(stepID int64) []*Relationship {
	var out []*Relationship
	for _, r := range d.relsByDownstreamStep[stepID] {
		if r.Action == ActionRepeat {
			out = append(out, r)
		}
	}
	return out
}

// questionGated reports whether any non-TEXT relationship targets the
// SectionsQuestion directly.
func (d *Definition) questionGated(sectionQuestionID int64) bool {
	for _, r := range d.relsByDownstreamQuestion[sectionQuestionID] {
		if r.Action != ActionText {
			return true
		}
	}
	return false
}

// sectionGated reports whether any non-TEXT relationship targets the
// placement directly.
func (d *Definition) sectionGated(stepsSectionsID int64) bool {
	for _, r := range d.relsByDownstreamSection[stepsSectionsID] {
		if r.Action != ActionText {
			return true
		}
	}
	return false
}

// InitialSectionQuestions returns the questions of a placement that are
// "initial": not the target of any non-TEXT relationship. With
// includeSectionGate set (step-triggered inclusion) a placement that is
// itself gated yields nothing, because its visibility belongs to its own
// relationships. Section-triggered inclusion skips that check since the
// placement was the satisfied target.
func (d *Definition) InitialSectionQuestions(ss *StepsSections, includeSectionGate bool) []*SectionsQuestion {
	if includeSectionGate && d.sectionGated(ss.ID) {
		return nil
	}
	var out []*SectionsQuestion
	for _, sq := range d.sectionQuestionsBySection[ss.SectionID] {
		if d.questionGated(sq.ID) {
			continue
		}
		out = append(out, sq)
	}
	return out
}

// InitialSectionSet pairs a placement with its initial questions.
type InitialSectionSet struct {
	Placement *StepsSections
	Questions []*SectionsQuestion
}

// InitialStepQuestions returns, per placement of the step in display-key
// order, the initial questions materialized on entering the step. The
// "not yet answered by the respondent" half of the query is applied by the
// engine against the answer store, keeping this snapshot respondent-free.
func (d *Definition) InitialStepQuestions(stepID int64) []InitialSectionSet {
	var out []InitialSectionSet
	for _, ss := range d.StepsSectionsForStep(stepID) {
		if qs := d.InitialSectionQuestions(ss, true); len(qs) > 0 {
			out = append(out, InitialSectionSet{Placement: ss, Questions: qs})
		}
	}
	return out
}

// StepDisplayOrder returns the display order of a step, or zero when absent.
func (d *Definition) StepDisplayOrder(stepID int64) int {
	if s := d.steps[stepID]; s != nil {
		return s.DisplayOrder
	}
	return 0
}

// SectionDisplayOrder returns the section display order of a placement, or
// zero when absent.
func (d *Definition) SectionDisplayOrder(stepsSectionsID int64) int {
	if ss := d.stepsSectionsByID[stepsSectionsID]; ss != nil {
		return ss.SectionDisplayOrder
	}
	return 0
}
