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

// Package engine implements the survey propagation core: operator
// evaluation, template expansion, the dependency-driven materialization of
// answers and the public façade.
package engine

import (
	"strconv"
	"strings"
	"time"

	"github.com/ElicitSoftware/Survey-sub001/internal/surveyservice/model"
)

const dateLayout = "2006-01-02"

// EvaluateOperator applies a relationship's operator to an upstream answer.
// upstreamType is the type of the upstream question, which selects the
// date or numeric branch of the ordered comparisons. Parsing and
// type-mismatch failures yield false, never an error.
//
// The ordered comparisons are inclusive on both operators, and the numeric
// LESS_THAN branch compares greater-or-equal. Both oddities reproduce the
// historical evaluator and must not be corrected here without a schema
// migration for existing surveys.
func EvaluateOperator(rel *model.Relationship, a *model.Answer, upstreamType model.QuestionType) bool {
	if a == nil || a.Deleted {
		return false
	}

	switch rel.Operator {
	case model.OperatorBoolean:
		if a.TextValue == nil {
			return false
		}
		v := strings.TrimSpace(*a.TextValue)
		return strings.EqualFold(v, "true")

	case model.OperatorEqual:
		if a.TextValue == nil {
			return false
		}
		return strings.EqualFold(*a.TextValue, deref(rel.ReferenceValue))

	case model.OperatorNotEqual:
		if a.TextValue == nil {
			return false
		}
		return !strings.EqualFold(*a.TextValue, deref(rel.ReferenceValue))

	case model.OperatorFieldExist:
		return true

	case model.OperatorContains:
		if a.TextValue == nil {
			return false
		}
		ref := deref(rel.ReferenceValue)
		for _, part := range strings.Split(*a.TextValue, ",") {
			if strings.EqualFold(strings.TrimSpace(part), ref) {
				return true
			}
		}
		return false

	case model.OperatorLessThan, model.OperatorGreaterThan:
		return evaluateOrdered(rel, a, upstreamType)
	}

	return false
}

func evaluateOrdered(rel *model.Relationship, a *model.Answer, upstreamType model.QuestionType) bool {
	if a.TextValue == nil || rel.ReferenceValue == nil {
		return false
	}

	if upstreamType == model.QuestionDate {
		av, err := time.Parse(dateLayout, strings.TrimSpace(*a.TextValue))
		if err != nil {
			return false
		}
		rv, err := time.Parse(dateLayout, strings.TrimSpace(*rel.ReferenceValue))
		if err != nil {
			return false
		}
		if rel.Operator == model.OperatorLessThan {
			return !av.After(rv)
		}
		// GREATER_THAN: compareTo > -1 in the source, i.e. av >= rv.
		return !av.Before(rv)
	}

	av, err := strconv.ParseFloat(strings.TrimSpace(*a.TextValue), 64)
	if err != nil {
		return false
	}
	rv, err := strconv.ParseFloat(strings.TrimSpace(*rel.ReferenceValue), 64)
	if err != nil {
		return false
	}
	// Both branches compare av >= rv; for LESS_THAN this is the preserved
	// historical behavior.
	return av >= rv
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
