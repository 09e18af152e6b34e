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

package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/ElicitSoftware/Survey-sub001/internal/common"
	"github.com/ElicitSoftware/Survey-sub001/internal/surveyservice/model"
)

// PostgreSQLSurveyDatabase provides PostgreSQL-based persistence for the
// survey engine.
type PostgreSQLSurveyDatabase struct {
	db *sql.DB
}

// NewPostgreSQLSurveyBackend wraps an initialized connection pool.
func NewPostgreSQLSurveyBackend(db *sql.DB) *PostgreSQLSurveyDatabase {
	return &PostgreSQLSurveyDatabase{db: db}
}

// WithTransaction runs fn inside one transaction. Commit happens only when
// fn returns nil; any error rolls the whole call back.
func (p *PostgreSQLSurveyDatabase) WithTransaction(ctx context.Context, fn func(SurveyStore) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		logTxError(err)
		return common.NewErrStorageFailure(err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&pgSurveyStore{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		logTxError(err)
		return common.NewErrStorageFailure(err)
	}
	return nil
}

// logTxError dumps a transaction failure to the console, with SQLSTATE detail
// when the driver provides it (class 40 means a serialization conflict the
// caller can retry).
func logTxError(err error) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		fmt.Println("pq", pqErr.Code, pqErr.Code.Name(), pqErr.Message)
		return
	}
	fmt.Println(err)
}

type pgSurveyStore struct {
	tx *sql.Tx
}

func (s *pgSurveyStore) Answers() AnswerStore         { return &pgAnswerStore{tx: s.tx} }
func (s *pgSurveyStore) Dependents() DependentStore   { return &pgDependentStore{tx: s.tx} }
func (s *pgSurveyStore) Respondents() RespondentStore { return &pgRespondentStore{tx: s.tx} }

const answerColumns = `id, respondent_id, survey_id, step_id, step_instance, section_id, section_instance,
	question_instance, section_question_id, question_id, displaykey, display_text, text_value, deleted,
	created_at, saved_at`

type pgAnswerStore struct {
	tx *sql.Tx
}

func scanAnswer(row interface{ Scan(...any) error }) (*model.Answer, error) {
	var (
		a        model.Answer
		sqID     sql.NullInt64
		qID      sql.NullInt64
		key      string
		text     sql.NullString
		rendered sql.NullString
	)
	err := row.Scan(&a.ID, &a.RespondentID, &a.SurveyID, &a.StepID, &a.StepInstance, &a.SectionID,
		&a.SectionInstance, &a.QuestionInstance, &sqID, &qID, &key, &rendered, &text, &a.Deleted,
		&a.CreatedAt, &a.SavedAt)
	if err != nil {
		return nil, err
	}
	if sqID.Valid {
		a.SectionQuestionID = &sqID.Int64
	}
	if qID.Valid {
		a.QuestionID = &qID.Int64
	}
	if rendered.Valid {
		a.DisplayText = rendered.String
	}
	if text.Valid {
		a.TextValue = &text.String
	}
	a.DisplayKey, err = model.ParseDisplayKey(key)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *pgAnswerStore) ByID(ctx context.Context, respondentID, id int64) (*model.Answer, error) {
	row := s.tx.QueryRowContext(ctx,
		`SELECT `+answerColumns+` FROM survey.answers WHERE respondent_id = $1 AND id = $2`,
		respondentID, id)
	a, err := scanAnswer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		fmt.Println(err)
		return nil, common.NewInternalServerError("Failed to fetch answer. See console for information.")
	}
	return a, nil
}

func (s *pgAnswerStore) ByDisplayKey(ctx context.Context, respondentID int64, key model.DisplayKey, includeDeleted bool) (*model.Answer, error) {
	// ORDER BY deleted lets the live row win when a purged-and-recreated
	// key briefly has both.
	query := `SELECT ` + answerColumns + ` FROM survey.answers
		WHERE respondent_id = $1 AND displaykey = $2`
	if !includeDeleted {
		query += ` AND deleted = false`
	}
	query += ` ORDER BY deleted ASC LIMIT 1`

	row := s.tx.QueryRowContext(ctx, query, respondentID, key.String())
	a, err := scanAnswer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		fmt.Println(err)
		return nil, common.NewInternalServerError("Failed to fetch answer by display key. See console for information.")
	}
	return a, nil
}

func (s *pgAnswerStore) byPattern(ctx context.Context, respondentID int64, pattern string, includeDeleted bool) ([]*model.Answer, error) {
	query := `SELECT ` + answerColumns + ` FROM survey.answers
		WHERE respondent_id = $1 AND displaykey LIKE $2`
	if !includeDeleted {
		query += ` AND deleted = false`
	}
	query += ` ORDER BY displaykey ASC`

	rows, err := s.tx.QueryContext(ctx, query, respondentID, pattern)
	if err != nil {
		fmt.Println(err)
		return nil, common.NewInternalServerError("Failed to query answers. See console for information.")
	}
	defer rows.Close()

	var result []*model.Answer
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			fmt.Println(err)
			return nil, common.NewInternalServerError("Failed to scan answer. See console for information.")
		}
		result = append(result, a)
	}
	if rows.Err() != nil {
		fmt.Println(rows.Err())
		return nil, common.NewInternalServerError("Failed to iterate answers. See console for information.")
	}
	return result, nil
}

func (s *pgAnswerStore) ByLikePattern(ctx context.Context, respondentID int64, pattern string) ([]*model.Answer, error) {
	return s.byPattern(ctx, respondentID, pattern, false)
}

func (s *pgAnswerStore) ByLikePatternIncludeDeleted(ctx context.Context, respondentID int64, pattern string) ([]*model.Answer, error) {
	return s.byPattern(ctx, respondentID, pattern, true)
}

func (s *pgAnswerStore) SectionRows(ctx context.Context, respondentID int64) ([]*model.Answer, error) {
	rows, err := s.tx.QueryContext(ctx,
		`SELECT `+answerColumns+` FROM survey.answers
		WHERE respondent_id = $1 AND deleted = false AND section_id <> 0 AND question_id IS NULL
		ORDER BY displaykey ASC`, respondentID)
	if err != nil {
		fmt.Println(err)
		return nil, common.NewInternalServerError("Failed to query section rows. See console for information.")
	}
	defer rows.Close()

	var result []*model.Answer
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			fmt.Println(err)
			return nil, common.NewInternalServerError("Failed to scan section row. See console for information.")
		}
		result = append(result, a)
	}
	if rows.Err() != nil {
		fmt.Println(rows.Err())
		return nil, common.NewInternalServerError("Failed to iterate section rows. See console for information.")
	}
	return result, nil
}

func (s *pgAnswerStore) Insert(ctx context.Context, a *model.Answer) error {
	var sqID, qID sql.NullInt64
	if a.SectionQuestionID != nil {
		sqID = sql.NullInt64{Int64: *a.SectionQuestionID, Valid: true}
	}
	if a.QuestionID != nil {
		qID = sql.NullInt64{Int64: *a.QuestionID, Valid: true}
	}
	var text sql.NullString
	if a.TextValue != nil {
		text = sql.NullString{String: *a.TextValue, Valid: true}
	}

	err := s.tx.QueryRowContext(ctx,
		`INSERT INTO survey.answers (respondent_id, survey_id, step_id, step_instance, section_id,
			section_instance, question_instance, section_question_id, question_id, displaykey,
			display_text, text_value, deleted, created_at, saved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id`,
		a.RespondentID, a.SurveyID, a.StepID, a.StepInstance, a.SectionID, a.SectionInstance,
		a.QuestionInstance, sqID, qID, a.DisplayKey.String(), a.DisplayText, text, a.Deleted,
		a.CreatedAt, a.SavedAt).Scan(&a.ID)
	if err != nil {
		fmt.Println(err)
		return common.NewInternalServerError("Failed to insert answer. See console for information.")
	}
	return nil
}

func (s *pgAnswerStore) Update(ctx context.Context, a *model.Answer) error {
	var text sql.NullString
	if a.TextValue != nil {
		text = sql.NullString{String: *a.TextValue, Valid: true}
	}
	_, err := s.tx.ExecContext(ctx,
		`UPDATE survey.answers SET text_value = $1, display_text = $2, deleted = $3, saved_at = $4
		WHERE respondent_id = $5 AND id = $6`,
		text, a.DisplayText, a.Deleted, a.SavedAt, a.RespondentID, a.ID)
	if err != nil {
		fmt.Println(err)
		return common.NewInternalServerError("Failed to update answer. See console for information.")
	}
	return nil
}

func (s *pgAnswerStore) HardDeleteWhereDeleted(ctx context.Context, respondentID int64) error {
	_, err := s.tx.ExecContext(ctx,
		`DELETE FROM survey.answers WHERE respondent_id = $1 AND deleted = true`, respondentID)
	if err != nil {
		fmt.Println(err)
		return common.NewInternalServerError("Failed to purge deleted answers. See console for information.")
	}
	return nil
}

const dependentColumns = `id, respondent_id, upstream_id, downstream_id, relationship_id, deleted`

type pgDependentStore struct {
	tx *sql.Tx
}

func scanDependent(row interface{ Scan(...any) error }) (*model.Dependent, error) {
	var d model.Dependent
	if err := row.Scan(&d.ID, &d.RespondentID, &d.UpstreamID, &d.DownstreamID, &d.RelationshipID, &d.Deleted); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *pgDependentStore) byColumn(ctx context.Context, respondentID int64, column string, id int64) ([]*model.Dependent, error) {
	rows, err := s.tx.QueryContext(ctx,
		`SELECT `+dependentColumns+` FROM survey.dependents
		WHERE respondent_id = $1 AND `+column+` = $2 AND deleted = false ORDER BY id ASC`,
		respondentID, id)
	if err != nil {
		fmt.Println(err)
		return nil, common.NewInternalServerError("Failed to query dependents. See console for information.")
	}
	defer rows.Close()

	var result []*model.Dependent
	for rows.Next() {
		d, err := scanDependent(rows)
		if err != nil {
			fmt.Println(err)
			return nil, common.NewInternalServerError("Failed to scan dependent. See console for information.")
		}
		result = append(result, d)
	}
	if rows.Err() != nil {
		fmt.Println(rows.Err())
		return nil, common.NewInternalServerError("Failed to iterate dependents. See console for information.")
	}
	return result, nil
}

func (s *pgDependentStore) ByUpstream(ctx context.Context, respondentID, upstreamID int64) ([]*model.Dependent, error) {
	return s.byColumn(ctx, respondentID, "upstream_id", upstreamID)
}

func (s *pgDependentStore) ByDownstream(ctx context.Context, respondentID, downstreamID int64) ([]*model.Dependent, error) {
	return s.byColumn(ctx, respondentID, "downstream_id", downstreamID)
}

func (s *pgDependentStore) FindUnique(ctx context.Context, respondentID, upstreamID, downstreamID, relationshipID int64) (*model.Dependent, error) {
	row := s.tx.QueryRowContext(ctx,
		`SELECT `+dependentColumns+` FROM survey.dependents
		WHERE respondent_id = $1 AND upstream_id = $2 AND downstream_id = $3 AND relationship_id = $4
		ORDER BY deleted ASC LIMIT 1`,
		respondentID, upstreamID, downstreamID, relationshipID)
	d, err := scanDependent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		fmt.Println(err)
		return nil, common.NewInternalServerError("Failed to fetch dependent. See console for information.")
	}
	return d, nil
}

func (s *pgDependentStore) Insert(ctx context.Context, d *model.Dependent) error {
	err := s.tx.QueryRowContext(ctx,
		`INSERT INTO survey.dependents (respondent_id, upstream_id, downstream_id, relationship_id, deleted)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		d.RespondentID, d.UpstreamID, d.DownstreamID, d.RelationshipID, d.Deleted).Scan(&d.ID)
	if err != nil {
		fmt.Println(err)
		return common.NewInternalServerError("Failed to insert dependent. See console for information.")
	}
	return nil
}

func (s *pgDependentStore) SetDeleted(ctx context.Context, id int64, deleted bool) error {
	_, err := s.tx.ExecContext(ctx,
		`UPDATE survey.dependents SET deleted = $1 WHERE id = $2`, deleted, id)
	if err != nil {
		fmt.Println(err)
		return common.NewInternalServerError("Failed to update dependent. See console for information.")
	}
	return nil
}

func (s *pgDependentStore) HardDeleteWhereDeleted(ctx context.Context, respondentID int64) error {
	_, err := s.tx.ExecContext(ctx,
		`DELETE FROM survey.dependents WHERE respondent_id = $1 AND deleted = true`, respondentID)
	if err != nil {
		fmt.Println(err)
		return common.NewInternalServerError("Failed to purge deleted dependents. See console for information.")
	}
	return nil
}

const respondentColumns = `id, survey_id, token, active, logins, created_at, first_access_at, finalized_at`

type pgRespondentStore struct {
	tx *sql.Tx
}

func scanRespondent(row interface{ Scan(...any) error }) (*model.Respondent, error) {
	var (
		r           model.Respondent
		firstAccess sql.NullTime
		finalized   sql.NullTime
	)
	err := row.Scan(&r.ID, &r.SurveyID, &r.Token, &r.Active, &r.Logins, &r.CreatedAt, &firstAccess, &finalized)
	if err != nil {
		return nil, err
	}
	if firstAccess.Valid {
		r.FirstAccessAt = &firstAccess.Time
	}
	if finalized.Valid {
		r.FinalizedAt = &finalized.Time
	}
	return &r, nil
}

func (s *pgRespondentStore) ByID(ctx context.Context, id int64) (*model.Respondent, error) {
	row := s.tx.QueryRowContext(ctx,
		`SELECT `+respondentColumns+` FROM survey.respondents WHERE id = $1`, id)
	r, err := scanRespondent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		fmt.Println(err)
		return nil, common.NewInternalServerError("Failed to fetch respondent. See console for information.")
	}
	return r, nil
}

func (s *pgRespondentStore) ByToken(ctx context.Context, token string) (*model.Respondent, error) {
	row := s.tx.QueryRowContext(ctx,
		`SELECT `+respondentColumns+` FROM survey.respondents WHERE token = $1`, token)
	r, err := scanRespondent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		fmt.Println(err)
		return nil, common.NewInternalServerError("Failed to fetch respondent by token. See console for information.")
	}
	return r, nil
}

func (s *pgRespondentStore) Insert(ctx context.Context, r *model.Respondent) error {
	err := s.tx.QueryRowContext(ctx,
		`INSERT INTO survey.respondents (survey_id, token, active, logins, created_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		r.SurveyID, r.Token, r.Active, r.Logins, r.CreatedAt).Scan(&r.ID)
	if err != nil {
		fmt.Println(err)
		return common.NewInternalServerError("Failed to insert respondent. See console for information.")
	}
	return nil
}

func (s *pgRespondentStore) Update(ctx context.Context, r *model.Respondent) error {
	var firstAccess, finalized sql.NullTime
	if r.FirstAccessAt != nil {
		firstAccess = sql.NullTime{Time: *r.FirstAccessAt, Valid: true}
	}
	if r.FinalizedAt != nil {
		finalized = sql.NullTime{Time: *r.FinalizedAt, Valid: true}
	}
	_, err := s.tx.ExecContext(ctx,
		`UPDATE survey.respondents SET active = $1, logins = $2, first_access_at = $3, finalized_at = $4
		WHERE id = $5`,
		r.Active, r.Logins, firstAccess, finalized, r.ID)
	if err != nil {
		fmt.Println(err)
		return common.NewInternalServerError("Failed to update respondent. See console for information.")
	}
	return nil
}
