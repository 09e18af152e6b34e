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
	"strconv"

	"github.com/ElicitSoftware/Survey-sub001/internal/surveyservice/model"
)

// rebuildDisplayText re-renders an answer's display text from its definition
// text and the token values carried by its live TEXT dependents.
//
// Token scope widens from the step row over the section row to the answer
// itself; a token bound at a narrower scope overrides the wider one. The
// instance tokens {Q#} and {S#} are always available.
func (t *txOps) rebuildDisplayText(a *model.Answer) error {
	base := t.baseText(a)

	tokens := map[string]string{
		"Q#": strconv.Itoa(a.QuestionInstance),
		"S#": strconv.Itoa(a.SectionInstance),
	}
	if a.IsStepLevel() {
		tokens["S#"] = strconv.Itoa(a.StepInstance)
	}

	for _, holder := range t.tokenScopes(a) {
		if err := t.collectTokens(holder, tokens); err != nil {
			return err
		}
	}

	a.DisplayText = ExpandTemplate(base, tokens)
	return t.s.Answers().Update(t.ctx, a)
}

func (t *txOps) baseText(a *model.Answer) string {
	if a.SectionQuestionID != nil {
		if sq := t.def.SectionQuestion(*a.SectionQuestionID); sq != nil {
			if q := t.def.Question(sq.QuestionID); q != nil {
				return q.Text
			}
		}
		return ""
	}
	if a.IsSectionLevel() {
		if sec := t.def.Section(a.SectionID); sec != nil {
			return sec.Name
		}
		return ""
	}
	if step := t.def.Step(a.StepID); step != nil {
		return step.Name
	}
	return ""
}

// tokenScopes returns the answers whose dependents contribute tokens, widest
// first so narrower scopes override.
func (t *txOps) tokenScopes(a *model.Answer) []*model.Answer {
	var scopes []*model.Answer
	if !a.IsStepLevel() {
		if sa, err := t.s.Answers().ByDisplayKey(t.ctx, t.resp.ID, a.DisplayKey.StepKey(), false); err == nil && sa != nil {
			scopes = append(scopes, sa)
		}
	}
	if a.SectionQuestionID != nil {
		if sa, err := t.s.Answers().ByDisplayKey(t.ctx, t.resp.ID, a.DisplayKey.SectionKey(), false); err == nil && sa != nil {
			scopes = append(scopes, sa)
		}
	}
	return append(scopes, a)
}

// collectTokens adds one entry per live TEXT dependent of holder. Coded
// upstream types substitute the relationship's defaultUpstreamValue when one
// is set, everything else substitutes the raw upstream value.
func (t *txOps) collectTokens(holder *model.Answer, tokens map[string]string) error {
	deps, err := t.s.Dependents().ByDownstream(t.ctx, t.resp.ID, holder.ID)
	if err != nil {
		return err
	}
	for _, dep := range deps {
		rel := t.def.Relationship(dep.RelationshipID)
		if rel == nil || rel.Token == "" {
			continue
		}
		up, err := t.s.Answers().ByID(t.ctx, t.resp.ID, dep.UpstreamID)
		if err != nil {
			return err
		}
		if up == nil || up.Deleted {
			continue
		}

		if t.upstreamQuestionType(rel).Coded() && rel.DefaultUpstreamValue != nil {
			tokens[rel.Token] = *rel.DefaultUpstreamValue
			continue
		}
		if up.TextValue != nil {
			tokens[rel.Token] = *up.TextValue
		}
	}
	return nil
}

// applyText evaluates one TEXT relationship against the upstream answer and
// re-renders every downstream answer it addresses. A holding operator binds
// the dependent edge first; a failing one releases it, so the downstream
// falls back to the token's default.
func (t *txOps) applyText(rel *model.Relationship, up *model.Answer) error {
	ok := EvaluateOperator(rel, up, t.upstreamQuestionType(rel))

	downs, err := t.textDownstreams(rel, up)
	if err != nil {
		return err
	}
	for _, down := range downs {
		if ok {
			if err := t.upsertDependent(up, down, rel); err != nil {
				return err
			}
		} else if err := t.releaseDependent(up, down, rel); err != nil {
			return err
		}
		if err := t.rebuildDisplayText(down); err != nil {
			return err
		}
		// A section row's tokens are in scope for every question below it.
		if down.IsSectionLevel() && rel.Downstream.Kind == model.TargetSection {
			if err := t.rebuildSectionChildren(down); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *txOps) releaseDependent(up, down *model.Answer, rel *model.Relationship) error {
	existing, err := t.s.Dependents().FindUnique(t.ctx, t.resp.ID, up.ID, down.ID, rel.ID)
	if err != nil {
		return err
	}
	if existing != nil && !existing.Deleted {
		return t.s.Dependents().SetDeleted(t.ctx, existing.ID, true)
	}
	return nil
}

func (t *txOps) rebuildSectionChildren(sectionRow *model.Answer) error {
	rows, err := t.s.Answers().ByLikePattern(t.ctx, t.resp.ID, sectionRow.DisplayKey.SectionPrefix())
	if err != nil {
		return err
	}
	for _, row := range rows {
		if row.ID == sectionRow.ID {
			continue
		}
		if err := t.rebuildDisplayText(row); err != nil {
			return err
		}
	}
	return nil
}

// textDownstreams resolves the answers a TEXT relationship addresses at the
// upstream's instance coordinates. A section target inside the upstream's own
// section binds that single instance; a foreign section binds every instance.
func (t *txOps) textDownstreams(rel *model.Relationship, up *model.Answer) ([]*model.Answer, error) {
	switch rel.Downstream.Kind {
	case model.TargetQuestion:
		dsq := t.def.SectionQuestion(rel.Downstream.ID)
		if dsq == nil {
			return nil, nil
		}
		ss := t.def.LocationOf(dsq, &up.StepID)
		if ss == nil {
			return nil, nil
		}
		key := downstreamKey(up, ss).WithQuestion(dsq.DisplayOrder)
		return t.s.Answers().ByLikePattern(t.ctx, t.resp.ID, key.AnswerQuery())

	case model.TargetSection:
		ss := t.def.StepsSectionsByID(rel.Downstream.ID)
		if ss == nil {
			return nil, nil
		}
		key := downstreamKey(up, ss)
		if ss.StepID == up.StepID && ss.SectionID == up.SectionID {
			a, err := t.s.Answers().ByDisplayKey(t.ctx, t.resp.ID, key, false)
			if err != nil || a == nil {
				return nil, err
			}
			return []*model.Answer{a}, nil
		}
		key.SectionInstance = 0
		return t.s.Answers().ByLikePattern(t.ctx, t.resp.ID, key.SectionQuery())

	case model.TargetStep:
		step := t.def.Step(rel.Downstream.ID)
		if step == nil {
			return nil, nil
		}
		key := model.DisplayKey{Survey: up.DisplayKey.Survey, Step: step.DisplayOrder}
		return t.s.Answers().ByLikePattern(t.ctx, t.resp.ID, key.StepQuery())
	}
	return nil, nil
}
