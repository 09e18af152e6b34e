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
	"fmt"

	"github.com/ElicitSoftware/Survey-sub001/internal/common"
	"github.com/ElicitSoftware/Survey-sub001/internal/surveyservice/model"
)

// PostgreSQLDefinitionLoader reads one survey's schema tables into an
// immutable Definition snapshot. Used at service startup.
type PostgreSQLDefinitionLoader struct {
	db *sql.DB
}

// NewPostgreSQLDefinitionLoader wraps an initialized connection pool.
func NewPostgreSQLDefinitionLoader(db *sql.DB) *PostgreSQLDefinitionLoader {
	return &PostgreSQLDefinitionLoader{db: db}
}

// LoadDefinition loads every schema table of the survey inside one
// transaction, so the snapshot is consistent even while the schema is being
// edited.
func (l *PostgreSQLDefinitionLoader) LoadDefinition(ctx context.Context, surveyID int64) (*model.Definition, error) {
	tx, err := l.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		fmt.Println(err)
		return nil, common.NewInternalServerError("Failed to start postgres transaction. See console for information.")
	}
	defer func() { _ = tx.Rollback() }()

	steps, err := loadSteps(ctx, tx, surveyID)
	if err != nil {
		return nil, err
	}
	sections, err := loadSections(ctx, tx, surveyID)
	if err != nil {
		return nil, err
	}
	stepsSections, err := loadStepsSections(ctx, tx, surveyID)
	if err != nil {
		return nil, err
	}
	questions, err := loadQuestions(ctx, tx, surveyID)
	if err != nil {
		return nil, err
	}
	sectionQuestions, err := loadSectionQuestions(ctx, tx, surveyID)
	if err != nil {
		return nil, err
	}
	selectGroups, err := loadSelectGroups(ctx, tx, surveyID)
	if err != nil {
		return nil, err
	}
	relationships, err := loadRelationships(ctx, tx, surveyID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		fmt.Println(err)
		return nil, common.NewInternalServerError("Failed to commit postgres transaction. See console for information.")
	}
	if len(steps) == 0 {
		return nil, common.NewErrNotFound(fmt.Sprintf("survey %d has no steps", surveyID))
	}

	return model.NewDefinition(surveyID, steps, sections, stepsSections, questions,
		sectionQuestions, selectGroups, relationships), nil
}

func loadSteps(ctx context.Context, tx *sql.Tx, surveyID int64) ([]*model.Step, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, survey_id, display_order, name, COALESCE(description, '')
		FROM survey.steps WHERE survey_id = $1 ORDER BY display_order`, surveyID)
	if err != nil {
		fmt.Println(err)
		return nil, common.NewInternalServerError("Failed to query steps. See console for information.")
	}
	defer rows.Close()

	var result []*model.Step
	for rows.Next() {
		var s model.Step
		if err := rows.Scan(&s.ID, &s.SurveyID, &s.DisplayOrder, &s.Name, &s.Description); err != nil {
			fmt.Println(err)
			return nil, common.NewInternalServerError("Failed to scan step. See console for information.")
		}
		result = append(result, &s)
	}
	return result, rows.Err()
}

func loadSections(ctx context.Context, tx *sql.Tx, surveyID int64) ([]*model.Section, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, survey_id, display_order, name, COALESCE(description, '')
		FROM survey.sections WHERE survey_id = $1 ORDER BY display_order`, surveyID)
	if err != nil {
		fmt.Println(err)
		return nil, common.NewInternalServerError("Failed to query sections. See console for information.")
	}
	defer rows.Close()

	var result []*model.Section
	for rows.Next() {
		var s model.Section
		if err := rows.Scan(&s.ID, &s.SurveyID, &s.DisplayOrder, &s.Name, &s.Description); err != nil {
			fmt.Println(err)
			return nil, common.NewInternalServerError("Failed to scan section. See console for information.")
		}
		result = append(result, &s)
	}
	return result, rows.Err()
}

func loadStepsSections(ctx context.Context, tx *sql.Tx, surveyID int64) ([]*model.StepsSections, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT ss.id, ss.survey_id, ss.step_id, st.display_order, ss.section_id, sec.display_order, ss.displaykey
		FROM survey.steps_sections ss
		JOIN survey.steps st ON st.id = ss.step_id
		JOIN survey.sections sec ON sec.id = ss.section_id
		WHERE ss.survey_id = $1 ORDER BY ss.displaykey`, surveyID)
	if err != nil {
		fmt.Println(err)
		return nil, common.NewInternalServerError("Failed to query steps_sections. See console for information.")
	}
	defer rows.Close()

	var result []*model.StepsSections
	for rows.Next() {
		var (
			ss  model.StepsSections
			key string
		)
		if err := rows.Scan(&ss.ID, &ss.SurveyID, &ss.StepID, &ss.StepDisplayOrder,
			&ss.SectionID, &ss.SectionDisplayOrder, &key); err != nil {
			fmt.Println(err)
			return nil, common.NewInternalServerError("Failed to scan steps_sections. See console for information.")
		}
		ss.DisplayKey, err = model.ParseDisplayKey(key)
		if err != nil {
			fmt.Println(err)
			return nil, common.NewInternalServerError("Failed to parse steps_sections display key. See console for information.")
		}
		result = append(result, &ss)
	}
	return result, rows.Err()
}

func loadQuestions(ctx context.Context, tx *sql.Tx, surveyID int64) ([]*model.Question, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, survey_id, type, COALESCE(text, ''), COALESCE(short_text, ''), COALESCE(tool_tip, ''),
			COALESCE(mask, ''), COALESCE(placeholder, ''), default_value, required, min_value, max_value,
			COALESCE(validation_text, ''), select_group_id, COALESCE(variant, '')
		FROM survey.questions WHERE survey_id = $1 ORDER BY id`, surveyID)
	if err != nil {
		fmt.Println(err)
		return nil, common.NewInternalServerError("Failed to query questions. See console for information.")
	}
	defer rows.Close()

	var result []*model.Question
	for rows.Next() {
		var (
			q            model.Question
			qType        string
			defaultValue sql.NullString
			minValue     sql.NullFloat64
			maxValue     sql.NullFloat64
			groupID      sql.NullInt64
		)
		if err := rows.Scan(&q.ID, &q.SurveyID, &qType, &q.Text, &q.ShortText, &q.ToolTip,
			&q.Mask, &q.Placeholder, &defaultValue, &q.Required, &minValue, &maxValue,
			&q.ValidationText, &groupID, &q.Variant); err != nil {
			fmt.Println(err)
			return nil, common.NewInternalServerError("Failed to scan question. See console for information.")
		}
		q.Type = model.QuestionType(qType)
		if defaultValue.Valid {
			q.DefaultValue = &defaultValue.String
		}
		if minValue.Valid {
			q.MinValue = &minValue.Float64
		}
		if maxValue.Valid {
			q.MaxValue = &maxValue.Float64
		}
		if groupID.Valid {
			q.SelectGroupID = &groupID.Int64
		}
		result = append(result, &q)
	}
	return result, rows.Err()
}

func loadSectionQuestions(ctx context.Context, tx *sql.Tx, surveyID int64) ([]*model.SectionsQuestion, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, survey_id, section_id, question_id, display_order
		FROM survey.sections_questions WHERE survey_id = $1 ORDER BY id`, surveyID)
	if err != nil {
		fmt.Println(err)
		return nil, common.NewInternalServerError("Failed to query sections_questions. See console for information.")
	}
	defer rows.Close()

	var result []*model.SectionsQuestion
	for rows.Next() {
		var sq model.SectionsQuestion
		if err := rows.Scan(&sq.ID, &sq.SurveyID, &sq.SectionID, &sq.QuestionID, &sq.DisplayOrder); err != nil {
			fmt.Println(err)
			return nil, common.NewInternalServerError("Failed to scan sections_questions. See console for information.")
		}
		result = append(result, &sq)
	}
	return result, rows.Err()
}

func loadSelectGroups(ctx context.Context, tx *sql.Tx, surveyID int64) ([]*model.SelectGroup, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, survey_id, name FROM survey.select_groups WHERE survey_id = $1 ORDER BY id`, surveyID)
	if err != nil {
		fmt.Println(err)
		return nil, common.NewInternalServerError("Failed to query select groups. See console for information.")
	}
	defer rows.Close()

	groups := make(map[int64]*model.SelectGroup)
	var result []*model.SelectGroup
	for rows.Next() {
		var g model.SelectGroup
		if err := rows.Scan(&g.ID, &g.SurveyID, &g.Name); err != nil {
			fmt.Println(err)
			return nil, common.NewInternalServerError("Failed to scan select group. See console for information.")
		}
		groups[g.ID] = &g
		result = append(result, &g)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	itemRows, err := tx.QueryContext(ctx,
		`SELECT si.id, si.group_id, si.coded_value, si.display_text, si.display_order
		FROM survey.select_items si
		JOIN survey.select_groups sg ON sg.id = si.group_id
		WHERE sg.survey_id = $1 ORDER BY si.group_id, si.display_order`, surveyID)
	if err != nil {
		fmt.Println(err)
		return nil, common.NewInternalServerError("Failed to query select items. See console for information.")
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var item model.SelectItem
		if err := itemRows.Scan(&item.ID, &item.GroupID, &item.CodedValue, &item.DisplayText, &item.DisplayOrder); err != nil {
			fmt.Println(err)
			return nil, common.NewInternalServerError("Failed to scan select item. See console for information.")
		}
		if g, ok := groups[item.GroupID]; ok {
			g.Items = append(g.Items, item)
		}
	}
	return result, itemRows.Err()
}

func loadRelationships(ctx context.Context, tx *sql.Tx, surveyID int64) ([]*model.Relationship, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, survey_id, action, operator, upstream_step_id, upstream_question_id,
			downstream_question_id, downstream_section_id, downstream_step_id,
			COALESCE(token, ''), reference_value, default_upstream_value
		FROM survey.relationships WHERE survey_id = $1 ORDER BY id`, surveyID)
	if err != nil {
		fmt.Println(err)
		return nil, common.NewInternalServerError("Failed to query relationships. See console for information.")
	}
	defer rows.Close()

	var result []*model.Relationship
	for rows.Next() {
		var (
			r                model.Relationship
			action, operator string
			upstreamStep     sql.NullInt64
			downQuestion     sql.NullInt64
			downSection      sql.NullInt64
			downStep         sql.NullInt64
			reference        sql.NullString
			defaultUpstream  sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.SurveyID, &action, &operator, &upstreamStep, &r.UpstreamQuestionID,
			&downQuestion, &downSection, &downStep, &r.Token, &reference, &defaultUpstream); err != nil {
			fmt.Println(err)
			return nil, common.NewInternalServerError("Failed to scan relationship. See console for information.")
		}
		r.Action = model.ActionType(action)
		r.Operator = model.OperatorType(operator)
		if upstreamStep.Valid {
			r.UpstreamStepID = &upstreamStep.Int64
		}
		if reference.Valid {
			r.ReferenceValue = &reference.String
		}
		if defaultUpstream.Valid {
			r.DefaultUpstreamValue = &defaultUpstream.String
		}
		switch {
		case downQuestion.Valid:
			r.Downstream = model.Target{Kind: model.TargetQuestion, ID: downQuestion.Int64}
		case downSection.Valid:
			r.Downstream = model.Target{Kind: model.TargetSection, ID: downSection.Int64}
		case downStep.Valid:
			r.Downstream = model.Target{Kind: model.TargetStep, ID: downStep.Int64}
		default:
			fmt.Println("relationship", r.ID, "has no downstream target, skipped")
			continue
		}
		result = append(result, &r)
	}
	return result, rows.Err()
}
