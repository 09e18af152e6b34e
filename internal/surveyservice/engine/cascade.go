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
	"time"

	"github.com/ElicitSoftware/Survey-sub001/internal/common"
	"github.com/ElicitSoftware/Survey-sub001/internal/surveyservice/model"
)

// maxCascadeDepth bounds the delete recursion. The dependency set is a DAG
// in any sane definition; the guard turns a cyclic one into an error instead
// of a stack overflow.
const maxCascadeDepth = 100

// deleteDownstream re-evaluates every dependent edge originating at up after
// its value changed and soft-deletes whatever is no longer justified.
//
// At the root (the answer whose value changed), a visibility edge whose
// operator still holds keeps its subtree, and a repeat edge keeps the
// instances at or below the new count. Below the root everything in the
// subtree goes. TEXT edges only lose the edge itself; the downstream answer
// stays and is re-rendered by the rebuild pass.
func (t *txOps) deleteDownstream(up *model.Answer, rootID int64, depth int) error {
	if depth > maxCascadeDepth {
		return common.NewInternalServerError("dependency cascade exceeded depth limit")
	}

	deps, err := t.s.Dependents().ByUpstream(t.ctx, t.resp.ID, up.ID)
	if err != nil {
		return err
	}
	for _, dep := range deps {
		rel := t.def.Relationship(dep.RelationshipID)
		if rel == nil {
			continue
		}

		if rel.Action == model.ActionText {
			if err := t.s.Dependents().SetDeleted(t.ctx, dep.ID, true); err != nil {
				return err
			}
			if err := t.refreshTextTarget(dep.DownstreamID); err != nil {
				return err
			}
			continue
		}

		down, err := t.s.Answers().ByID(t.ctx, t.resp.ID, dep.DownstreamID)
		if err != nil {
			return err
		}
		if down == nil || down.Deleted {
			continue
		}

		if up.ID == rootID {
			if rel.Action.Visibility() && EvaluateOperator(rel, up, t.upstreamQuestionType(rel)) {
				continue
			}
			if rel.Action == model.ActionRepeat && repeatInstance(rel, down) <= repeatCount(up) {
				continue
			}
		}
		if err := t.deleteAnswer(down, rootID, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// refreshTextTarget re-renders a TEXT edge's downstream answer after the
// edge was released. The answer itself survives the cascade; without the
// edge its text falls back to the token's default.
func (t *txOps) refreshTextTarget(downstreamID int64) error {
	down, err := t.s.Answers().ByID(t.ctx, t.resp.ID, downstreamID)
	if err != nil {
		return err
	}
	if down == nil || down.Deleted {
		return nil
	}
	if err := t.rebuildDisplayText(down); err != nil {
		return err
	}
	if down.IsSectionLevel() {
		return t.rebuildSectionChildren(down)
	}
	return nil
}

// repeatInstance extracts the instance number a repeat edge materialized.
func repeatInstance(rel *model.Relationship, down *model.Answer) int {
	if rel.Downstream.Kind == model.TargetSection {
		return down.SectionInstance
	}
	return down.QuestionInstance
}

// deleteAnswer soft-deletes one answer and its whole subtree: its downstream
// dependents, every row under its key prefix when it is a section or step
// row, and the dependent edges touching it. Values are kept so a later
// revive restores them.
func (t *txOps) deleteAnswer(a *model.Answer, rootID int64, depth int) error {
	if a == nil || a.Deleted {
		return nil
	}
	if depth > maxCascadeDepth {
		return common.NewInternalServerError("dependency cascade exceeded depth limit")
	}

	a.Deleted = true
	a.SavedAt = time.Now()
	if err := t.s.Answers().Update(t.ctx, a); err != nil {
		return err
	}

	if err := t.deleteDownstream(a, rootID, depth+1); err != nil {
		return err
	}

	if a.DisplayKey.Question == 0 {
		prefix := a.DisplayKey.SectionPrefix()
		if a.IsStepLevel() {
			prefix = a.DisplayKey.StepPrefix()
		}
		children, err := t.s.Answers().ByLikePattern(t.ctx, t.resp.ID, prefix)
		if err != nil {
			return err
		}
		for _, child := range children {
			if child.ID == a.ID {
				continue
			}
			if err := t.deleteAnswer(child, rootID, depth+1); err != nil {
				return err
			}
		}
	}

	incoming, err := t.s.Dependents().ByDownstream(t.ctx, t.resp.ID, a.ID)
	if err != nil {
		return err
	}
	for _, dep := range incoming {
		if err := t.s.Dependents().SetDeleted(t.ctx, dep.ID, true); err != nil {
			return err
		}
	}
	outgoing, err := t.s.Dependents().ByUpstream(t.ctx, t.resp.ID, a.ID)
	if err != nil {
		return err
	}
	for _, dep := range outgoing {
		if err := t.s.Dependents().SetDeleted(t.ctx, dep.ID, true); err != nil {
			return err
		}
		if rel := t.def.Relationship(dep.RelationshipID); rel != nil && rel.Action == model.ActionText {
			if err := t.refreshTextTarget(dep.DownstreamID); err != nil {
				return err
			}
		}
	}

	if a.DisplayKey.Question != 0 {
		if err := t.pruneEmptySection(a, rootID, depth); err != nil {
			return err
		}
	}
	return nil
}

// pruneEmptySection removes a section row once its last question-level child
// is gone. A section materialized for a single gated question would otherwise
// linger as an empty navigation entry.
func (t *txOps) pruneEmptySection(a *model.Answer, rootID int64, depth int) error {
	secRow, err := t.s.Answers().ByDisplayKey(t.ctx, t.resp.ID, a.DisplayKey.SectionKey(), false)
	if err != nil {
		return err
	}
	if secRow == nil {
		return nil
	}
	rows, err := t.s.Answers().ByLikePattern(t.ctx, t.resp.ID, secRow.DisplayKey.SectionPrefix())
	if err != nil {
		return err
	}
	for _, row := range rows {
		if row.DisplayKey.Question != 0 {
			return nil
		}
	}
	return t.deleteAnswer(secRow, rootID, depth+1)
}
