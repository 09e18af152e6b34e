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
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ElicitSoftware/Survey-sub001/internal/common"
	"github.com/ElicitSoftware/Survey-sub001/internal/surveyservice/model"
	"github.com/ElicitSoftware/Survey-sub001/internal/surveyservice/persistence"
)

// Archiver receives a respondent's final answer set after a successful
// finalize. Archive failures never fail the finalize itself.
type Archiver interface {
	ArchiveRespondent(ctx context.Context, r *model.Respondent, answers []*model.Answer) error
}

// Engine is the public survey façade. Every call runs in one storage
// transaction; calls for the same respondent are serialized by a
// per-respondent mutex, so concurrent saves cannot interleave their
// cascades. Lock entries are reference-counted and dropped once the last
// holder releases, so the map does not grow with the respondent population.
type Engine struct {
	def      *model.Definition
	db       persistence.Database
	archiver Archiver

	mu    sync.Mutex
	locks map[int64]*respondentLock
}

type respondentLock struct {
	mu   sync.Mutex
	refs int
}

// New builds an engine over a definition snapshot and a database.
func New(def *model.Definition, db persistence.Database) *Engine {
	return &Engine{
		def:   def,
		db:    db,
		locks: make(map[int64]*respondentLock),
	}
}

// SetArchiver installs the post-finalize archive hook.
func (e *Engine) SetArchiver(a Archiver) { e.archiver = a }

// Definition exposes the immutable definition snapshot.
func (e *Engine) Definition() *model.Definition { return e.def }

func (e *Engine) lockRespondent(id int64) func() {
	e.mu.Lock()
	l, ok := e.locks[id]
	if !ok {
		l = &respondentLock{}
		e.locks[id] = l
	}
	l.refs++
	e.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		e.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(e.locks, id)
		}
		e.mu.Unlock()
	}
}

func (e *Engine) respondent(ctx context.Context, s persistence.SurveyStore, id int64) (*model.Respondent, error) {
	r, err := s.Respondents().ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, common.NewErrUnknownRespondent(id)
	}
	return r, nil
}

// RegisterRespondent creates a participant for the engine's survey under the
// given access token.
func (e *Engine) RegisterRespondent(ctx context.Context, token string) (*model.Respondent, error) {
	r := &model.Respondent{
		SurveyID:  e.def.SurveyID(),
		Token:     token,
		Active:    true,
		CreatedAt: time.Now(),
	}
	err := e.db.WithTransaction(ctx, func(s persistence.SurveyStore) error {
		return s.Respondents().Insert(ctx, r)
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// RespondentByToken resolves an access token.
func (e *Engine) RespondentByToken(ctx context.Context, token string) (*model.Respondent, error) {
	var r *model.Respondent
	err := e.db.WithTransaction(ctx, func(s persistence.SurveyStore) error {
		var err error
		r, err = s.Respondents().ByToken(ctx, token)
		return err
	})
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, common.NewErrNotFound("token not registered")
	}
	return r, nil
}

// Init records a respondent's first access and materializes the initial
// answers of the step the display key addresses. Calling it again is
// harmless; existing answers are left alone.
func (e *Engine) Init(ctx context.Context, respondentID int64, displayKey string) error {
	key, err := model.ParseDisplayKey(displayKey)
	if err != nil {
		return common.NewErrMalformedKey(err)
	}

	unlock := e.lockRespondent(respondentID)
	defer unlock()

	return e.db.WithTransaction(ctx, func(s persistence.SurveyStore) error {
		resp, err := e.respondent(ctx, s, respondentID)
		if err != nil {
			return err
		}
		if resp.FirstAccessAt == nil {
			now := time.Now()
			resp.FirstAccessAt = &now
		}
		resp.Logins++
		if err := s.Respondents().Update(ctx, resp); err != nil {
			return err
		}

		t := &txOps{ctx: ctx, def: e.def, s: s, resp: resp}
		step := e.def.StepByDisplayOrder(key.Step)
		if step == nil {
			return common.NewErrBadRequest(fmt.Sprintf("no step at display order %d", key.Step))
		}
		seeds, err := t.buildStepInitial(step, key.StepKey())
		if err != nil {
			return err
		}
		return t.buildDownstreamAll(seeds)
	})
}

// Navigate returns the view of the section the display key addresses,
// materializing the step on first visit.
func (e *Engine) Navigate(ctx context.Context, respondentID int64, displayKey string) (*model.NavResponse, error) {
	key, err := model.ParseDisplayKey(displayKey)
	if err != nil {
		return nil, common.NewErrMalformedKey(err)
	}

	unlock := e.lockRespondent(respondentID)
	defer unlock()

	var nav *model.NavResponse
	err = e.db.WithTransaction(ctx, func(s persistence.SurveyStore) error {
		resp, err := e.respondent(ctx, s, respondentID)
		if err != nil {
			return err
		}
		t := &txOps{ctx: ctx, def: e.def, s: s, resp: resp}
		nav, err = t.navResponse(key)
		return err
	})
	if err != nil {
		return nil, err
	}
	return nav, nil
}

// SaveAnswer writes a client value to an existing question answer and runs
// the full propagation: the answer's own text is re-rendered, downstream
// answers that lost their justification are soft-deleted, newly justified
// ones are materialized, and the view of the answer's section is returned.
func (e *Engine) SaveAnswer(ctx context.Context, patch model.AnswerPatch) (*model.NavResponse, error) {
	key, err := model.ParseDisplayKey(patch.DisplayKey)
	if err != nil {
		return nil, common.NewErrMalformedKey(err)
	}

	unlock := e.lockRespondent(patch.RespondentID)
	defer unlock()

	var nav *model.NavResponse
	err = e.db.WithTransaction(ctx, func(s persistence.SurveyStore) error {
		resp, err := e.respondent(ctx, s, patch.RespondentID)
		if err != nil {
			return err
		}
		if resp.FinalizedAt != nil {
			return common.NewErrBadRequest(fmt.Sprintf("respondent %d is finalized", resp.ID))
		}

		a, err := s.Answers().ByDisplayKey(ctx, resp.ID, key, false)
		if err != nil {
			return err
		}
		if a == nil || a.SectionQuestionID == nil {
			return common.NewErrUnknownAnswer(fmt.Sprintf("no answer at %s", key))
		}

		var q *model.Question
		if sq := e.def.SectionQuestion(*a.SectionQuestionID); sq != nil {
			q = e.def.Question(sq.QuestionID)
		}
		if err := validateTextValue(e.def, q, patch.TextValue); err != nil {
			return err
		}

		a.TextValue = patch.TextValue
		a.SavedAt = time.Now()
		if err := s.Answers().Update(ctx, a); err != nil {
			return err
		}

		t := &txOps{ctx: ctx, def: e.def, s: s, resp: resp}
		if err := t.rebuildDisplayText(a); err != nil {
			return err
		}
		if err := t.deleteDownstream(a, a.ID, 0); err != nil {
			return err
		}
		if err := t.buildDownstreamAll([]*model.Answer{a}); err != nil {
			return err
		}

		nav, err = t.navResponse(key.SectionKey())
		return err
	})
	if err != nil {
		return nil, err
	}
	return nav, nil
}

// Finalize marks the respondent's survey complete: the finalize time is
// stamped and the respondent is deactivated. Idempotent: a second call is a
// no-op. When an archiver is installed, the final answer set is handed to it
// after the transaction commits; archive failures are logged only.
func (e *Engine) Finalize(ctx context.Context, respondentID int64) error {
	unlock := e.lockRespondent(respondentID)
	defer unlock()

	var (
		resp    *model.Respondent
		answers []*model.Answer
		already bool
	)
	err := e.db.WithTransaction(ctx, func(s persistence.SurveyStore) error {
		var err error
		resp, err = e.respondent(ctx, s, respondentID)
		if err != nil {
			return err
		}
		if resp.FinalizedAt != nil {
			already = true
			return nil
		}
		now := time.Now()
		resp.FinalizedAt = &now
		resp.Active = false
		if err := s.Respondents().Update(ctx, resp); err != nil {
			return err
		}
		answers, err = s.Answers().ByLikePattern(ctx, resp.ID, "%")
		return err
	})
	if err != nil || already {
		return err
	}

	if e.archiver != nil {
		if err := e.archiver.ArchiveRespondent(ctx, resp, answers); err != nil {
			log.Printf("⚠️ archive of respondent %d failed: %v", respondentID, err)
		}
	}
	return nil
}

// RemoveDeleted physically purges the respondent's soft-deleted answers and
// dependent edges. Intended for maintenance; revival of the purged rows is
// no longer possible afterwards.
func (e *Engine) RemoveDeleted(ctx context.Context, respondentID int64) error {
	unlock := e.lockRespondent(respondentID)
	defer unlock()

	return e.db.WithTransaction(ctx, func(s persistence.SurveyStore) error {
		if _, err := e.respondent(ctx, s, respondentID); err != nil {
			return err
		}
		if err := s.Dependents().HardDeleteWhereDeleted(ctx, respondentID); err != nil {
			return err
		}
		return s.Answers().HardDeleteWhereDeleted(ctx, respondentID)
	})
}
