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

// Package persistence defines the storage contracts of the survey engine and
// hosts the PostgreSQL backend. An in-memory backend lives in the inmemory
// subpackage, a MongoDB definition loader in the mongo subpackage.
package persistence

import (
	"context"

	"github.com/ElicitSoftware/Survey-sub001/internal/surveyservice/model"
)

// AnswerStore is the respondent-scoped answer table. Lookups that take a
// pattern use the DisplayKey LIKE forms (StepQuery, SectionQuery,
// AnswerQuery and the two prefix forms).
type AnswerStore interface {
	// ByID returns an answer row by id regardless of its deleted flag, or
	// nil when absent.
	ByID(ctx context.Context, respondentID, id int64) (*model.Answer, error)
	// ByDisplayKey returns the answer at an exact key, or nil when absent.
	// With includeDeleted set, a soft-deleted row is returned as well; the
	// non-deleted row wins when both exist.
	ByDisplayKey(ctx context.Context, respondentID int64, key model.DisplayKey, includeDeleted bool) (*model.Answer, error)
	// ByLikePattern returns the non-deleted answers whose key matches the
	// pattern, ordered by display key.
	ByLikePattern(ctx context.Context, respondentID int64, pattern string) ([]*model.Answer, error)
	// ByLikePatternIncludeDeleted is ByLikePattern over all rows.
	ByLikePatternIncludeDeleted(ctx context.Context, respondentID int64, pattern string) ([]*model.Answer, error)
	// SectionRows returns every non-deleted section-level answer of the
	// respondent, ordered by display key. Feeds the navigation builder.
	SectionRows(ctx context.Context, respondentID int64) ([]*model.Answer, error)
	// Insert stores a new row and assigns its id.
	Insert(ctx context.Context, a *model.Answer) error
	// Update persists textValue, displayText, savedAt and the deleted flag.
	Update(ctx context.Context, a *model.Answer) error
	// HardDeleteWhereDeleted physically purges the respondent's soft-deleted
	// rows.
	HardDeleteWhereDeleted(ctx context.Context, respondentID int64) error
}

// DependentStore is the persisted dependency edge set.
type DependentStore interface {
	// ByUpstream returns the non-deleted edges originating at an answer.
	ByUpstream(ctx context.Context, respondentID, upstreamID int64) ([]*model.Dependent, error)
	// ByDownstream returns the non-deleted edges pointing at an answer.
	ByDownstream(ctx context.Context, respondentID, downstreamID int64) ([]*model.Dependent, error)
	// FindUnique returns the edge with the given endpoints and relationship
	// regardless of its deleted flag, or nil.
	FindUnique(ctx context.Context, respondentID, upstreamID, downstreamID, relationshipID int64) (*model.Dependent, error)
	// Insert stores a new edge and assigns its id.
	Insert(ctx context.Context, d *model.Dependent) error
	// SetDeleted flips the soft-delete flag of one edge.
	SetDeleted(ctx context.Context, id int64, deleted bool) error
	// HardDeleteWhereDeleted physically purges the respondent's soft-deleted
	// edges.
	HardDeleteWhereDeleted(ctx context.Context, respondentID int64) error
}

// RespondentStore holds the survey participants.
type RespondentStore interface {
	// ByID returns a respondent, or nil when absent.
	ByID(ctx context.Context, id int64) (*model.Respondent, error)
	// ByToken returns the respondent owning an access token, or nil.
	ByToken(ctx context.Context, token string) (*model.Respondent, error)
	// Insert stores a new respondent and assigns its id.
	Insert(ctx context.Context, r *model.Respondent) error
	// Update persists the mutable fields (active, logins, firstAccessAt,
	// finalizedAt).
	Update(ctx context.Context, r *model.Respondent) error
}

// SurveyStore bundles the three respondent-scoped stores as seen from inside
// one transaction.
type SurveyStore interface {
	Answers() AnswerStore
	Dependents() DependentStore
	Respondents() RespondentStore
}

// Database opens transactions over a SurveyStore. Every public engine call
// runs inside exactly one transaction; on error nothing of the call is
// observable.
type Database interface {
	WithTransaction(ctx context.Context, fn func(SurveyStore) error) error
}

// DefinitionLoader loads one survey's schema into an immutable snapshot at
// startup. Implemented by the PostgreSQL backend and the MongoDB loader.
type DefinitionLoader interface {
	LoadDefinition(ctx context.Context, surveyID int64) (*model.Definition, error)
}
