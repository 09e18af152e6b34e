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
	"fmt"

	"github.com/ElicitSoftware/Survey-sub001/internal/common"
	"github.com/ElicitSoftware/Survey-sub001/internal/surveyservice/model"
)

// BuildNavigation converts the respondent's section rows, already ordered by
// display key, into the navigation list. Previous/Next are the paths of the
// neighbouring entries.
func BuildNavigation(rows []*model.Answer) []model.NavigationItem {
	items := make([]model.NavigationItem, 0, len(rows))
	for _, a := range rows {
		items = append(items, model.NavigationItem{
			Name: a.DisplayText,
			Path: a.DisplayKey.String(),
		})
	}
	for i := range items {
		if i > 0 {
			items[i].Previous = &items[i-1].Path
		}
		if i < len(items)-1 {
			items[i].Next = &items[i+1].Path
		}
	}
	return items
}

// navResponse materializes the addressed step if needed and assembles the
// view of the addressed section: its question answers, the full navigation
// list and the entry matching the section. A key without a section addresses
// the step's first visible section.
func (t *txOps) navResponse(key model.DisplayKey) (*model.NavResponse, error) {
	step := t.def.StepByDisplayOrder(key.Step)
	if step == nil {
		return nil, common.NewErrBadRequest(fmt.Sprintf("no step at display order %d", key.Step))
	}

	seeds, err := t.buildStepInitial(step, key.StepKey())
	if err != nil {
		return nil, err
	}
	if err := t.buildDownstreamAll(seeds); err != nil {
		return nil, err
	}

	rows, err := t.s.Answers().SectionRows(t.ctx, t.resp.ID)
	if err != nil {
		return nil, err
	}
	items := BuildNavigation(rows)

	secKey := key.SectionKey()
	if key.Section == 0 {
		for _, row := range rows {
			if row.DisplayKey.Step == key.Step && row.DisplayKey.StepInstance == key.StepInstance {
				secKey = row.DisplayKey
				break
			}
		}
	}

	var current *model.NavigationItem
	path := secKey.String()
	for i := range items {
		if items[i].Path == path {
			current = &items[i]
			break
		}
	}

	under, err := t.s.Answers().ByLikePattern(t.ctx, t.resp.ID, secKey.SectionPrefix())
	if err != nil {
		return nil, err
	}
	answers := make([]*model.Answer, 0, len(under))
	for _, a := range under {
		if a.DisplayKey.Question != 0 {
			answers = append(answers, a)
		}
	}

	return &model.NavResponse{
		Step:           step,
		CurrentNavItem: current,
		Answers:        answers,
		NavItems:       items,
	}, nil
}
