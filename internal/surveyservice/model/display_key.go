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

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DisplayKey is the composite address of every visible survey element.
//
// It is a 7-tuple survey-step-stepInstance-section-sectionInstance-question-
// questionInstance, rendered as seven zero-padded 4-digit decimal fields
// joined by dashes (exactly 34 characters). A zero field means "not
// applicable at this level". Lexical order over the rendered string equals
// the navigation order, which is what makes ORDER BY displaykey and the
// LIKE-pattern queries below work.
//
// DisplayKey is a value type; the With* setters return a modified copy.
type DisplayKey struct {
	Survey           int
	Step             int
	StepInstance     int
	Section          int
	SectionInstance  int
	Question         int
	QuestionInstance int
}

// DisplayKeyLength is the length of the canonical dash-separated form.
const DisplayKeyLength = 34

// ParseDisplayKey parses the canonical dash form. The historical dot form is
// accepted for legacy callers and normalized to dashes on render.
func ParseDisplayKey(s string) (DisplayKey, error) {
	if len(s) != DisplayKeyLength {
		return DisplayKey{}, fmt.Errorf("display key %q: expected %d characters, got %d", s, DisplayKeyLength, len(s))
	}

	sep := byte('-')
	if strings.ContainsRune(s, '.') {
		sep = '.'
	}

	fields := make([]int, 7)
	for i := 0; i < 7; i++ {
		start := i * 5
		if i > 0 && s[start-1] != sep {
			return DisplayKey{}, fmt.Errorf("display key %q: expected %q at position %d", s, string(sep), start-1)
		}
		v, err := strconv.Atoi(s[start : start+4])
		if err != nil || v < 0 {
			return DisplayKey{}, fmt.Errorf("display key %q: field %d is not a 4-digit number", s, i+1)
		}
		fields[i] = v
	}

	return DisplayKey{
		Survey:           fields[0],
		Step:             fields[1],
		StepInstance:     fields[2],
		Section:          fields[3],
		SectionInstance:  fields[4],
		Question:         fields[5],
		QuestionInstance: fields[6],
	}, nil
}

// String renders the canonical 34-character dash form.
func (k DisplayKey) String() string {
	return fmt.Sprintf("%04d-%04d-%04d-%04d-%04d-%04d-%04d",
		k.Survey, k.Step, k.StepInstance, k.Section, k.SectionInstance, k.Question, k.QuestionInstance)
}

// MarshalJSON renders the canonical dash form.
func (k DisplayKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON accepts the dash or dot form.
func (k *DisplayKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDisplayKey(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// WithStep returns a copy with the step field replaced.
func (k DisplayKey) WithStep(v int) DisplayKey { k.Step = v; return k }

// WithStepInstance returns a copy with the step instance replaced.
func (k DisplayKey) WithStepInstance(v int) DisplayKey { k.StepInstance = v; return k }

// WithSection returns a copy with the section field replaced.
func (k DisplayKey) WithSection(v int) DisplayKey { k.Section = v; return k }

// WithSectionInstance returns a copy with the section instance replaced.
func (k DisplayKey) WithSectionInstance(v int) DisplayKey { k.SectionInstance = v; return k }

// WithQuestion returns a copy with the question field replaced.
func (k DisplayKey) WithQuestion(v int) DisplayKey { k.Question = v; return k }

// WithQuestionInstance returns a copy with the question instance replaced.
func (k DisplayKey) WithQuestionInstance(v int) DisplayKey { k.QuestionInstance = v; return k }

// StepKey returns the step-level address: everything below the step level
// cleared.
func (k DisplayKey) StepKey() DisplayKey {
	k.Section, k.SectionInstance, k.Question, k.QuestionInstance = 0, 0, 0, 0
	return k
}

// SectionKey returns the section-level address: question fields cleared.
func (k DisplayKey) SectionKey() DisplayKey {
	k.Question, k.QuestionInstance = 0, 0
	return k
}

// IsStepLevel reports whether the key addresses a step row.
func (k DisplayKey) IsStepLevel() bool {
	return k.Section == 0 && k.Question == 0
}

// IsSectionLevel reports whether the key addresses a section row.
func (k DisplayKey) IsSectionLevel() bool {
	return k.Section != 0 && k.Question == 0
}

// StepQuery returns the LIKE pattern matching step rows of this step at any
// step instance: survey-step-%-0000-0000-0000-0000.
func (k DisplayKey) StepQuery() string {
	return fmt.Sprintf("%04d-%04d-%%-0000-0000-0000-0000", k.Survey, k.Step)
}

// SectionQuery returns the LIKE pattern matching section rows of this section
// at any section instance: survey-step-stepInstance-section-%-0000-0000.
func (k DisplayKey) SectionQuery() string {
	return fmt.Sprintf("%04d-%04d-%04d-%04d-%%-0000-0000", k.Survey, k.Step, k.StepInstance, k.Section)
}

// AnswerQuery returns the LIKE pattern matching question rows of this
// question at any question instance:
// survey-step-stepInstance-section-sectionInstance-question-%.
func (k DisplayKey) AnswerQuery() string {
	return fmt.Sprintf("%04d-%04d-%04d-%04d-%04d-%04d-%%",
		k.Survey, k.Step, k.StepInstance, k.Section, k.SectionInstance, k.Question)
}

// StepPrefix returns the LIKE pattern matching every row under this step
// instance, the step row included.
func (k DisplayKey) StepPrefix() string {
	return fmt.Sprintf("%04d-%04d-%04d-%%", k.Survey, k.Step, k.StepInstance)
}

// SectionPrefix returns the LIKE pattern matching every row under this
// section instance, the section row included.
func (k DisplayKey) SectionPrefix() string {
	return fmt.Sprintf("%04d-%04d-%04d-%04d-%04d-%%", k.Survey, k.Step, k.StepInstance, k.Section, k.SectionInstance)
}
