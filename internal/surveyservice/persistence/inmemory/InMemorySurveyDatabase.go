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

// Package persistence_inmemory holds the map-backed survey store used by
// tests and standalone demos. Transactions are collapsed to a mutex; a
// failed call is not rolled back.
package persistence_inmemory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/ElicitSoftware/Survey-sub001/internal/surveyservice/model"
	"github.com/ElicitSoftware/Survey-sub001/internal/surveyservice/persistence"
)

// InMemorySurveyDatabase implements persistence.Database over plain maps.
type InMemorySurveyDatabase struct {
	mu sync.Mutex

	answers     map[int64]*model.Answer
	dependents  map[int64]*model.Dependent
	respondents map[int64]*model.Respondent

	nextAnswerID     int64
	nextDependentID  int64
	nextRespondentID int64
}

// NewInMemorySurveyDatabase creates an empty in-memory survey database.
func NewInMemorySurveyDatabase() *InMemorySurveyDatabase {
	return &InMemorySurveyDatabase{
		answers:     make(map[int64]*model.Answer),
		dependents:  make(map[int64]*model.Dependent),
		respondents: make(map[int64]*model.Respondent),
	}
}

// WithTransaction serializes the call under the store mutex and runs fn
// against the live maps.
func (db *InMemorySurveyDatabase) WithTransaction(_ context.Context, fn func(persistence.SurveyStore) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return fn(&memStore{db: db})
}

type memStore struct {
	db *InMemorySurveyDatabase
}

func (s *memStore) Answers() persistence.AnswerStore         { return &memAnswerStore{db: s.db} }
func (s *memStore) Dependents() persistence.DependentStore   { return &memDependentStore{db: s.db} }
func (s *memStore) Respondents() persistence.RespondentStore { return &memRespondentStore{db: s.db} }

// likeMatch evaluates a SQL LIKE pattern containing only '%' wildcards
// against s, which is all the display-key patterns need.
func likeMatch(pattern, s string) bool {
	parts := strings.Split(pattern, "%")
	if !strings.HasPrefix(s, parts[0]) {
		return false
	}
	s = s[len(parts[0]):]
	for i := 1; i < len(parts)-1; i++ {
		idx := strings.Index(s, parts[i])
		if idx < 0 {
			return false
		}
		s = s[idx+len(parts[i]):]
	}
	return strings.HasSuffix(s, parts[len(parts)-1])
}

type memAnswerStore struct {
	db *InMemorySurveyDatabase
}

func (s *memAnswerStore) ByID(_ context.Context, respondentID, id int64) (*model.Answer, error) {
	a := s.db.answers[id]
	if a == nil || a.RespondentID != respondentID {
		return nil, nil
	}
	return a, nil
}

func (s *memAnswerStore) ByDisplayKey(_ context.Context, respondentID int64, key model.DisplayKey, includeDeleted bool) (*model.Answer, error) {
	var deletedHit *model.Answer
	for _, a := range s.db.answers {
		if a.RespondentID != respondentID || a.DisplayKey != key {
			continue
		}
		if !a.Deleted {
			return a, nil
		}
		deletedHit = a
	}
	if includeDeleted {
		return deletedHit, nil
	}
	return nil, nil
}

func (s *memAnswerStore) byPattern(respondentID int64, pattern string, includeDeleted bool) []*model.Answer {
	var result []*model.Answer
	for _, a := range s.db.answers {
		if a.RespondentID != respondentID {
			continue
		}
		if !includeDeleted && a.Deleted {
			continue
		}
		if likeMatch(pattern, a.DisplayKey.String()) {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DisplayKey.String() < result[j].DisplayKey.String()
	})
	return result
}

func (s *memAnswerStore) ByLikePattern(_ context.Context, respondentID int64, pattern string) ([]*model.Answer, error) {
	return s.byPattern(respondentID, pattern, false), nil
}

func (s *memAnswerStore) ByLikePatternIncludeDeleted(_ context.Context, respondentID int64, pattern string) ([]*model.Answer, error) {
	return s.byPattern(respondentID, pattern, true), nil
}

func (s *memAnswerStore) SectionRows(_ context.Context, respondentID int64) ([]*model.Answer, error) {
	var result []*model.Answer
	for _, a := range s.db.answers {
		if a.RespondentID == respondentID && !a.Deleted && a.IsSectionLevel() {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DisplayKey.String() < result[j].DisplayKey.String()
	})
	return result, nil
}

func (s *memAnswerStore) Insert(_ context.Context, a *model.Answer) error {
	s.db.nextAnswerID++
	a.ID = s.db.nextAnswerID
	s.db.answers[a.ID] = a
	return nil
}

func (s *memAnswerStore) Update(_ context.Context, a *model.Answer) error {
	s.db.answers[a.ID] = a
	return nil
}

func (s *memAnswerStore) HardDeleteWhereDeleted(_ context.Context, respondentID int64) error {
	for id, a := range s.db.answers {
		if a.RespondentID == respondentID && a.Deleted {
			delete(s.db.answers, id)
		}
	}
	return nil
}

type memDependentStore struct {
	db *InMemorySurveyDatabase
}

func (s *memDependentStore) collect(respondentID int64, keep func(*model.Dependent) bool) []*model.Dependent {
	var result []*model.Dependent
	for _, d := range s.db.dependents {
		if d.RespondentID == respondentID && !d.Deleted && keep(d) {
			result = append(result, d)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (s *memDependentStore) ByUpstream(_ context.Context, respondentID, upstreamID int64) ([]*model.Dependent, error) {
	return s.collect(respondentID, func(d *model.Dependent) bool { return d.UpstreamID == upstreamID }), nil
}

func (s *memDependentStore) ByDownstream(_ context.Context, respondentID, downstreamID int64) ([]*model.Dependent, error) {
	return s.collect(respondentID, func(d *model.Dependent) bool { return d.DownstreamID == downstreamID }), nil
}

func (s *memDependentStore) FindUnique(_ context.Context, respondentID, upstreamID, downstreamID, relationshipID int64) (*model.Dependent, error) {
	var deletedHit *model.Dependent
	for _, d := range s.db.dependents {
		if d.RespondentID != respondentID || d.UpstreamID != upstreamID ||
			d.DownstreamID != downstreamID || d.RelationshipID != relationshipID {
			continue
		}
		if !d.Deleted {
			return d, nil
		}
		deletedHit = d
	}
	return deletedHit, nil
}

func (s *memDependentStore) Insert(_ context.Context, d *model.Dependent) error {
	s.db.nextDependentID++
	d.ID = s.db.nextDependentID
	s.db.dependents[d.ID] = d
	return nil
}

func (s *memDependentStore) SetDeleted(_ context.Context, id int64, deleted bool) error {
	if d := s.db.dependents[id]; d != nil {
		d.Deleted = deleted
	}
	return nil
}

func (s *memDependentStore) HardDeleteWhereDeleted(_ context.Context, respondentID int64) error {
	for id, d := range s.db.dependents {
		if d.RespondentID == respondentID && d.Deleted {
			delete(s.db.dependents, id)
		}
	}
	return nil
}

type memRespondentStore struct {
	db *InMemorySurveyDatabase
}

func (s *memRespondentStore) ByID(_ context.Context, id int64) (*model.Respondent, error) {
	return s.db.respondents[id], nil
}

func (s *memRespondentStore) ByToken(_ context.Context, token string) (*model.Respondent, error) {
	for _, r := range s.db.respondents {
		if r.Token == token {
			return r, nil
		}
	}
	return nil, nil
}

func (s *memRespondentStore) Insert(_ context.Context, r *model.Respondent) error {
	s.db.nextRespondentID++
	r.ID = s.db.nextRespondentID
	s.db.respondents[r.ID] = r
	return nil
}

func (s *memRespondentStore) Update(_ context.Context, r *model.Respondent) error {
	s.db.respondents[r.ID] = r
	return nil
}
