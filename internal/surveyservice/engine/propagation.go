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

package engine

import (
	"context"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/ElicitSoftware/Survey-sub001/internal/surveyservice/model"
	"github.com/ElicitSoftware/Survey-sub001/internal/surveyservice/persistence"
)

// txOps bundles the state of one transactional engine call: the immutable
// definition snapshot, the transaction-bound store and the respondent whose
// answers are being propagated.
type txOps struct {
	ctx  context.Context
	def  *model.Definition
	s    persistence.SurveyStore
	resp *model.Respondent
}

// depStub is a dependency edge whose downstream answer is not materialized
// yet. Collected while checking satisfaction, persisted once the downstream
// row exists.
type depStub struct {
	upstream *model.Answer
	rel      *model.Relationship
}

// buildDownstreamAll drains a worklist of upstream answers, materializing
// every downstream answer whose relationships are satisfied. Explicit
// worklist instead of recursion: the dependency set is a DAG but its depth
// is data-controlled.
func (t *txOps) buildDownstreamAll(seed []*model.Answer) error {
	visited := make(map[int64]bool)
	queue := append([]*model.Answer(nil), seed...)
	for len(queue) > 0 {
		up := queue[0]
		queue = queue[1:]
		if up == nil || visited[up.ID] {
			continue
		}
		visited[up.ID] = true

		next, err := t.processUpstream(up)
		if err != nil {
			return err
		}
		queue = append(queue, next...)
	}
	return nil
}

// processUpstream applies every relationship originating at the upstream
// answer's question: SHOW/REPEAT first, TEXT afterwards, in ascending
// relationship id within each group.
func (t *txOps) processUpstream(up *model.Answer) ([]*model.Answer, error) {
	if up.SectionQuestionID == nil {
		return nil, nil
	}

	var created []*model.Answer
	var texts []*model.Relationship
	for _, rel := range t.def.RelationshipsByUpstreamQuestion(*up.SectionQuestionID) {
		if rel.UpstreamStepID != nil && *rel.UpstreamStepID != up.StepID {
			continue
		}
		if rel.Action == model.ActionText {
			texts = append(texts, rel)
			continue
		}

		satisfied, stubs, err := t.allRelationshipsSatisfied(rel, up)
		if err != nil {
			return nil, err
		}
		if !satisfied {
			continue
		}

		var out []*model.Answer
		switch {
		case rel.Action.Visibility():
			out, err = t.applyShow(rel, up, stubs)
		case rel.Action == model.ActionRepeat:
			out, err = t.applyRepeat(rel, up, stubs)
		}
		if err != nil {
			return nil, err
		}
		created = append(created, out...)
	}

	for _, rel := range texts {
		if err := t.applyText(rel, up); err != nil {
			return nil, err
		}
	}
	return created, nil
}

// allRelationshipsSatisfied walks every non-TEXT relationship targeting the
// same downstream level as rel and requires each operator to hold against
// its own upstream answer at the current instance coordinates. On success
// the collected stubs carry one dependent per relationship.
func (t *txOps) allRelationshipsSatisfied(rel *model.Relationship, up *model.Answer) (bool, []depStub, error) {
	var gates []*model.Relationship
	switch rel.Downstream.Kind {
	case model.TargetQuestion:
		gates = t.def.RelationshipsByDownstreamQuestion(rel.Downstream.ID)
	case model.TargetSection:
		gates = t.def.RelationshipsByDownstreamSection(rel.Downstream.ID)
	case model.TargetStep:
		gates = t.def.RelationshipsByDownstreamStep(rel.Downstream.ID)
	}

	var stubs []depStub
	for _, gate := range gates {
		if gate.Action == model.ActionText {
			continue
		}
		ua, err := t.upstreamAnswerForRelationship(gate, up)
		if err != nil {
			return false, nil, err
		}
		if ua == nil || !EvaluateOperator(gate, ua, t.upstreamQuestionType(gate)) {
			return false, nil, nil
		}
		stubs = append(stubs, depStub{upstream: ua, rel: gate})
	}
	return true, stubs, nil
}

// upstreamAnswerForRelationship locates the answer of a relationship's
// upstream question at the current instance coordinates: the coordinates of
// up are reused for every level the upstream question shares with it, all
// other instances are zero.
func (t *txOps) upstreamAnswerForRelationship(rel *model.Relationship, up *model.Answer) (*model.Answer, error) {
	usq := t.def.SectionQuestion(rel.UpstreamQuestionID)
	if usq == nil {
		return nil, nil
	}
	ss := t.def.LocationOf(usq, rel.UpstreamStepID)
	if ss == nil {
		return nil, nil
	}

	key := model.DisplayKey{
		Survey:   up.DisplayKey.Survey,
		Step:     ss.StepDisplayOrder,
		Section:  ss.SectionDisplayOrder,
		Question: usq.DisplayOrder,
	}
	if ss.StepID == up.StepID {
		key.StepInstance = up.StepInstance
		if ss.SectionID == up.SectionID {
			key.SectionInstance = up.SectionInstance
		}
	}

	rows, err := t.s.Answers().ByLikePattern(t.ctx, t.resp.ID, key.AnswerQuery())
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// downstreamKey clones the upstream answer's key and retargets it at the
// given placement. Instance fields are taken from the upstream's
// questionInstance only for the levels that change; levels shared with the
// upstream keep its coordinates.
func downstreamKey(up *model.Answer, ss *model.StepsSections) model.DisplayKey {
	key := up.DisplayKey
	if ss.StepID != up.StepID {
		key.Step = ss.StepDisplayOrder
		key.StepInstance = up.QuestionInstance
	}
	if ss.SectionID != up.SectionID || ss.StepID != up.StepID {
		key.Section = ss.SectionDisplayOrder
		key.SectionInstance = up.QuestionInstance
	}
	key.Question = 0
	key.QuestionInstance = 0
	return key
}

func (t *txOps) applyShow(rel *model.Relationship, up *model.Answer, stubs []depStub) ([]*model.Answer, error) {
	switch rel.Downstream.Kind {
	case model.TargetQuestion:
		return t.showQuestion(rel, up, stubs)
	case model.TargetSection:
		return t.showSection(rel, up, stubs)
	case model.TargetStep:
		return t.showStep(rel, up, stubs)
	}
	return nil, nil
}

func (t *txOps) showQuestion(rel *model.Relationship, up *model.Answer, stubs []depStub) ([]*model.Answer, error) {
	dsq := t.def.SectionQuestion(rel.Downstream.ID)
	if dsq == nil {
		return nil, nil
	}
	ss := t.def.LocationOf(dsq, &up.StepID)
	if ss == nil {
		return nil, nil
	}

	secKey := downstreamKey(up, ss)
	if _, _, err := t.ensureSectionAnswer(ss, secKey); err != nil {
		return nil, err
	}

	qKey := secKey.WithQuestion(dsq.DisplayOrder)
	qa, _, err := t.ensureQuestionAnswer(ss, dsq, qKey)
	if err != nil {
		return nil, err
	}
	if err := t.upsertDependents(stubs, qa); err != nil {
		return nil, err
	}
	if err := t.rebuildDisplayText(qa); err != nil {
		return nil, err
	}
	if t.propagates(dsq, qa) {
		return []*model.Answer{qa}, nil
	}
	return nil, nil
}

func (t *txOps) showSection(rel *model.Relationship, up *model.Answer, stubs []depStub) ([]*model.Answer, error) {
	ss := t.def.StepsSectionsByID(rel.Downstream.ID)
	if ss == nil {
		return nil, nil
	}

	secKey := downstreamKey(up, ss)
	sa, _, err := t.ensureSectionAnswer(ss, secKey)
	if err != nil {
		return nil, err
	}
	if err := t.upsertDependents(stubs, sa); err != nil {
		return nil, err
	}
	if err := t.rebuildDisplayText(sa); err != nil {
		return nil, err
	}
	return t.buildSectionInitial(ss, secKey, false)
}

func (t *txOps) showStep(rel *model.Relationship, up *model.Answer, stubs []depStub) ([]*model.Answer, error) {
	step := t.def.Step(rel.Downstream.ID)
	if step == nil {
		return nil, nil
	}

	stepKey := model.DisplayKey{
		Survey:       up.DisplayKey.Survey,
		Step:         step.DisplayOrder,
		StepInstance: up.QuestionInstance,
	}
	sa, _, err := t.ensureStepAnswer(step, stepKey)
	if err != nil {
		return nil, err
	}
	if err := t.upsertDependents(stubs, sa); err != nil {
		return nil, err
	}
	// Repeat relationships declared against the step are recorded as
	// dependents even though step repetition itself is not executed.
	for _, rrel := range t.def.RelationshipsRepeatByDownstreamStep(step.ID) {
		ua, err := t.upstreamAnswerForRelationship(rrel, up)
		if err != nil {
			return nil, err
		}
		if ua != nil {
			if err := t.upsertDependent(ua, sa, rrel); err != nil {
				return nil, err
			}
		}
	}
	if err := t.rebuildDisplayText(sa); err != nil {
		return nil, err
	}
	return t.buildStepInitial(step, stepKey)
}

func (t *txOps) applyRepeat(rel *model.Relationship, up *model.Answer, stubs []depStub) ([]*model.Answer, error) {
	n := repeatCount(up)

	switch rel.Downstream.Kind {
	case model.TargetQuestion:
		return t.repeatQuestion(rel, up, stubs, n)
	case model.TargetSection:
		return t.repeatSection(rel, up, stubs, n)
	case model.TargetStep:
		// Declared by the schema, never implemented by the engine.
		log.Printf("⚠️ UNIMPLEMENTED_REPEAT_STEP relationship %d targets step %d, skipped", rel.ID, rel.Downstream.ID)
		return nil, nil
	}
	return nil, nil
}

func (t *txOps) repeatQuestion(rel *model.Relationship, up *model.Answer, stubs []depStub, n int) ([]*model.Answer, error) {
	dsq := t.def.SectionQuestion(rel.Downstream.ID)
	if dsq == nil {
		return nil, nil
	}
	ss := t.def.LocationOf(dsq, &up.StepID)
	if ss == nil {
		return nil, nil
	}

	secKey := downstreamKey(up, ss)
	if _, _, err := t.ensureSectionAnswer(ss, secKey); err != nil {
		return nil, err
	}

	baseKey := secKey.WithQuestion(dsq.DisplayOrder)
	existing, err := t.s.Answers().ByLikePattern(t.ctx, t.resp.ID, baseKey.AnswerQuery())
	if err != nil {
		return nil, err
	}

	var out []*model.Answer
	for i := len(existing) + 1; i <= n; i++ {
		qa, _, err := t.ensureQuestionAnswer(ss, dsq, baseKey.WithQuestionInstance(i))
		if err != nil {
			return nil, err
		}
		if err := t.upsertDependents(stubs, qa); err != nil {
			return nil, err
		}
		if err := t.rebuildDisplayText(qa); err != nil {
			return nil, err
		}
		if t.propagates(dsq, qa) {
			out = append(out, qa)
		}
	}
	return out, nil
}

func (t *txOps) repeatSection(rel *model.Relationship, up *model.Answer, stubs []depStub, n int) ([]*model.Answer, error) {
	ss := t.def.StepsSectionsByID(rel.Downstream.ID)
	if ss == nil {
		return nil, nil
	}

	baseKey := downstreamKey(up, ss)
	baseKey.SectionInstance = 0
	existing, err := t.s.Answers().ByLikePattern(t.ctx, t.resp.ID, baseKey.SectionQuery())
	if err != nil {
		return nil, err
	}

	var out []*model.Answer
	for i := len(existing) + 1; i <= n; i++ {
		secKey := baseKey.WithSectionInstance(i)
		sa, _, err := t.ensureSectionAnswer(ss, secKey)
		if err != nil {
			return nil, err
		}
		if err := t.upsertDependents(stubs, sa); err != nil {
			return nil, err
		}
		if err := t.rebuildDisplayText(sa); err != nil {
			return nil, err
		}
		created, err := t.buildSectionInitial(ss, secKey, false)
		if err != nil {
			return nil, err
		}
		out = append(out, created...)
	}
	return out, nil
}

// buildStepInitial materializes the initial answers of a step at the given
// step-level key: one section row and the ungated questions per placement.
// Placements that are gated, or have no initial questions, stay absent.
func (t *txOps) buildStepInitial(step *model.Step, stepKey model.DisplayKey) ([]*model.Answer, error) {
	var out []*model.Answer
	for _, set := range t.def.InitialStepQuestions(step.ID) {
		secKey := stepKey.WithSection(set.Placement.SectionDisplayOrder)
		created, err := t.buildSectionQuestions(set.Placement, secKey, set.Questions)
		if err != nil {
			return nil, err
		}
		out = append(out, created...)
	}
	return out, nil
}

// buildSectionInitial materializes a shown or repeated section instance: the
// section row plus its initial questions.
func (t *txOps) buildSectionInitial(ss *model.StepsSections, secKey model.DisplayKey, includeSectionGate bool) ([]*model.Answer, error) {
	return t.buildSectionQuestions(ss, secKey, t.def.InitialSectionQuestions(ss, includeSectionGate))
}

func (t *txOps) buildSectionQuestions(ss *model.StepsSections, secKey model.DisplayKey, questions []*model.SectionsQuestion) ([]*model.Answer, error) {
	if len(questions) == 0 {
		return nil, nil
	}
	if _, _, err := t.ensureSectionAnswer(ss, secKey); err != nil {
		return nil, err
	}

	var out []*model.Answer
	for _, sq := range questions {
		qKey := secKey.WithQuestion(sq.DisplayOrder)
		qa, existed, err := t.ensureQuestionAnswer(ss, sq, qKey)
		if err != nil {
			return nil, err
		}
		if existed {
			continue
		}
		if t.propagates(sq, qa) {
			out = append(out, qa)
		}
	}
	return out, nil
}

// propagates reports whether a freshly written answer feeds the downstream
// build: HTML questions count as present, everything else needs a value.
func (t *txOps) propagates(sq *model.SectionsQuestion, a *model.Answer) bool {
	q := t.def.Question(sq.QuestionID)
	if q != nil && q.Type == model.QuestionHTML {
		return true
	}
	return a.TextValue != nil
}

// ensureSectionAnswer returns the section row at key, reviving a
// soft-deleted row or inserting a fresh one. existed reports that a
// non-deleted row was already present.
func (t *txOps) ensureSectionAnswer(ss *model.StepsSections, key model.DisplayKey) (*model.Answer, bool, error) {
	a, err := t.s.Answers().ByDisplayKey(t.ctx, t.resp.ID, key, true)
	if err != nil {
		return nil, false, err
	}
	if a != nil && !a.Deleted {
		return a, true, nil
	}
	if a != nil {
		a.Deleted = false
		a.SavedAt = time.Now()
		if err := t.s.Answers().Update(t.ctx, a); err != nil {
			return nil, false, err
		}
		if err := t.rebuildDisplayText(a); err != nil {
			return nil, false, err
		}
		return a, false, nil
	}

	now := time.Now()
	a = &model.Answer{
		RespondentID:    t.resp.ID,
		SurveyID:        t.def.SurveyID(),
		StepID:          ss.StepID,
		StepInstance:    key.StepInstance,
		SectionID:       ss.SectionID,
		SectionInstance: key.SectionInstance,
		DisplayKey:      key,
		CreatedAt:       now,
		SavedAt:         now,
	}
	if err := t.s.Answers().Insert(t.ctx, a); err != nil {
		return nil, false, err
	}
	if err := t.rebuildDisplayText(a); err != nil {
		return nil, false, err
	}
	return a, false, nil
}

// ensureStepAnswer is ensureSectionAnswer for step rows (section level zero).
func (t *txOps) ensureStepAnswer(step *model.Step, key model.DisplayKey) (*model.Answer, bool, error) {
	a, err := t.s.Answers().ByDisplayKey(t.ctx, t.resp.ID, key, true)
	if err != nil {
		return nil, false, err
	}
	if a != nil && !a.Deleted {
		return a, true, nil
	}
	if a != nil {
		a.Deleted = false
		a.SavedAt = time.Now()
		if err := t.s.Answers().Update(t.ctx, a); err != nil {
			return nil, false, err
		}
		if err := t.rebuildDisplayText(a); err != nil {
			return nil, false, err
		}
		return a, false, nil
	}

	now := time.Now()
	a = &model.Answer{
		RespondentID: t.resp.ID,
		SurveyID:     t.def.SurveyID(),
		StepID:       step.ID,
		StepInstance: key.StepInstance,
		DisplayKey:   key,
		CreatedAt:    now,
		SavedAt:      now,
	}
	if err := t.s.Answers().Insert(t.ctx, a); err != nil {
		return nil, false, err
	}
	if err := t.rebuildDisplayText(a); err != nil {
		return nil, false, err
	}
	return a, false, nil
}

// ensureQuestionAnswer returns the question row at key. A soft-deleted row
// is revived with its previously entered value intact; a fresh row starts
// from the question's default value.
func (t *txOps) ensureQuestionAnswer(ss *model.StepsSections, sq *model.SectionsQuestion, key model.DisplayKey) (*model.Answer, bool, error) {
	a, err := t.s.Answers().ByDisplayKey(t.ctx, t.resp.ID, key, true)
	if err != nil {
		return nil, false, err
	}
	if a != nil && !a.Deleted {
		return a, true, nil
	}
	if a != nil {
		a.Deleted = false
		a.SavedAt = time.Now()
		if err := t.s.Answers().Update(t.ctx, a); err != nil {
			return nil, false, err
		}
		if err := t.rebuildDisplayText(a); err != nil {
			return nil, false, err
		}
		return a, false, nil
	}

	var defaultValue *string
	if q := t.def.Question(sq.QuestionID); q != nil && q.DefaultValue != nil {
		v := *q.DefaultValue
		defaultValue = &v
	}

	now := time.Now()
	sqID := sq.ID
	qID := sq.QuestionID
	a = &model.Answer{
		RespondentID:      t.resp.ID,
		SurveyID:          t.def.SurveyID(),
		StepID:            ss.StepID,
		StepInstance:      key.StepInstance,
		SectionID:         ss.SectionID,
		SectionInstance:   key.SectionInstance,
		QuestionInstance:  key.QuestionInstance,
		SectionQuestionID: &sqID,
		QuestionID:        &qID,
		DisplayKey:        key,
		TextValue:         defaultValue,
		CreatedAt:         now,
		SavedAt:           now,
	}
	if err := t.s.Answers().Insert(t.ctx, a); err != nil {
		return nil, false, err
	}
	if err := t.rebuildDisplayText(a); err != nil {
		return nil, false, err
	}
	return a, false, nil
}

// upsertDependents persists one dependent per stub against the materialized
// downstream answer.
func (t *txOps) upsertDependents(stubs []depStub, down *model.Answer) error {
	for _, stub := range stubs {
		if err := t.upsertDependent(stub.upstream, down, stub.rel); err != nil {
			return err
		}
	}
	return nil
}

// upsertDependent inserts the edge or revives a soft-deleted one; an
// existing live edge is left alone, preserving the uniqueness of
// (respondent, upstream, downstream, relationship).
func (t *txOps) upsertDependent(up, down *model.Answer, rel *model.Relationship) error {
	existing, err := t.s.Dependents().FindUnique(t.ctx, t.resp.ID, up.ID, down.ID, rel.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return t.s.Dependents().Insert(t.ctx, &model.Dependent{
			RespondentID:   t.resp.ID,
			UpstreamID:     up.ID,
			DownstreamID:   down.ID,
			RelationshipID: rel.ID,
		})
	}
	if existing.Deleted {
		return t.s.Dependents().SetDeleted(t.ctx, existing.ID, false)
	}
	return nil
}

// upstreamQuestionType resolves the question type behind a relationship's
// upstream, falling back to TEXT when the definition is incomplete.
func (t *txOps) upstreamQuestionType(rel *model.Relationship) model.QuestionType {
	if sq := t.def.SectionQuestion(rel.UpstreamQuestionID); sq != nil {
		if q := t.def.Question(sq.QuestionID); q != nil {
			return q.Type
		}
	}
	return model.QuestionText
}

// repeatCount parses the upstream's value as the repeat count. Anything that
// does not parse as a non-negative integer counts as zero.
func repeatCount(up *model.Answer) int {
	if up.TextValue == nil {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(*up.TextValue))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
