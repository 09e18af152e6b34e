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

// Package persistence_mongo loads survey definitions exported as MongoDB
// documents. It is an alternative to the PostgreSQL loader for deployments
// that author surveys in a document store; answers always live in
// PostgreSQL.
package persistence_mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ElicitSoftware/Survey-sub001/internal/common"
	"github.com/ElicitSoftware/Survey-sub001/internal/surveyservice/model"
)

// MongoDefinitionLoader reads one survey document into a Definition
// snapshot.
type MongoDefinitionLoader struct {
	collection *mongo.Collection
}

// NewMongoDefinitionLoader connects to the given URI and selects the survey
// collection.
func NewMongoDefinitionLoader(ctx context.Context, uri, database, collection string) (*MongoDefinitionLoader, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		fmt.Println(err)
		return nil, common.NewInternalServerError("Failed to connect to MongoDB. See console for information.")
	}
	if err := client.Ping(ctx, nil); err != nil {
		fmt.Println(err)
		return nil, common.NewInternalServerError("Failed to ping MongoDB. See console for information.")
	}
	return &MongoDefinitionLoader{collection: client.Database(database).Collection(collection)}, nil
}

// surveyDocument is the BSON shape of one authored survey.
type surveyDocument struct {
	SurveyID int64 `bson:"surveyId"`

	Steps []struct {
		ID           int64  `bson:"id"`
		DisplayOrder int    `bson:"displayOrder"`
		Name         string `bson:"name"`
		Description  string `bson:"description,omitempty"`
	} `bson:"steps"`

	Sections []struct {
		ID           int64  `bson:"id"`
		DisplayOrder int    `bson:"displayOrder"`
		Name         string `bson:"name"`
		Description  string `bson:"description,omitempty"`
	} `bson:"sections"`

	StepsSections []struct {
		ID         int64  `bson:"id"`
		StepID     int64  `bson:"stepId"`
		SectionID  int64  `bson:"sectionId"`
		DisplayKey string `bson:"displayKey"`
	} `bson:"stepsSections"`

	Questions []struct {
		ID             int64    `bson:"id"`
		Type           string   `bson:"type"`
		Text           string   `bson:"text,omitempty"`
		ShortText      string   `bson:"shortText,omitempty"`
		ToolTip        string   `bson:"toolTip,omitempty"`
		Mask           string   `bson:"mask,omitempty"`
		Placeholder    string   `bson:"placeholder,omitempty"`
		DefaultValue   *string  `bson:"defaultValue,omitempty"`
		Required       bool     `bson:"required,omitempty"`
		MinValue       *float64 `bson:"minValue,omitempty"`
		MaxValue       *float64 `bson:"maxValue,omitempty"`
		ValidationText string   `bson:"validationText,omitempty"`
		SelectGroupID  *int64   `bson:"selectGroupId,omitempty"`
		Variant        string   `bson:"variant,omitempty"`
	} `bson:"questions"`

	SectionsQuestions []struct {
		ID           int64 `bson:"id"`
		SectionID    int64 `bson:"sectionId"`
		QuestionID   int64 `bson:"questionId"`
		DisplayOrder int   `bson:"displayOrder"`
	} `bson:"sectionsQuestions"`

	SelectGroups []struct {
		ID    int64  `bson:"id"`
		Name  string `bson:"name"`
		Items []struct {
			ID           int64  `bson:"id"`
			CodedValue   string `bson:"codedValue"`
			DisplayText  string `bson:"displayText"`
			DisplayOrder int    `bson:"displayOrder"`
		} `bson:"items"`
	} `bson:"selectGroups"`

	Relationships []struct {
		ID                   int64   `bson:"id"`
		Action               string  `bson:"action"`
		Operator             string  `bson:"operator"`
		UpstreamStepID       *int64  `bson:"upstreamStepId,omitempty"`
		UpstreamQuestionID   int64   `bson:"upstreamQuestionId"`
		DownstreamQuestionID *int64  `bson:"downstreamQuestionId,omitempty"`
		DownstreamSectionID  *int64  `bson:"downstreamSectionId,omitempty"`
		DownstreamStepID     *int64  `bson:"downstreamStepId,omitempty"`
		Token                string  `bson:"token,omitempty"`
		ReferenceValue       *string `bson:"referenceValue,omitempty"`
		DefaultUpstreamValue *string `bson:"defaultUpstreamValue,omitempty"`
	} `bson:"relationships"`
}

// LoadDefinition fetches the survey document and indexes it into a snapshot.
func (l *MongoDefinitionLoader) LoadDefinition(ctx context.Context, surveyID int64) (*model.Definition, error) {
	var doc surveyDocument
	err := l.collection.FindOne(ctx, bson.M{"surveyId": surveyID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, common.NewErrNotFound(fmt.Sprintf("survey %d", surveyID))
	}
	if err != nil {
		fmt.Println(err)
		return nil, common.NewInternalServerError("Failed to fetch survey document. See console for information.")
	}

	steps := make([]*model.Step, 0, len(doc.Steps))
	for _, s := range doc.Steps {
		steps = append(steps, &model.Step{
			ID: s.ID, SurveyID: surveyID, DisplayOrder: s.DisplayOrder,
			Name: s.Name, Description: s.Description,
		})
	}

	sections := make([]*model.Section, 0, len(doc.Sections))
	for _, s := range doc.Sections {
		sections = append(sections, &model.Section{
			ID: s.ID, SurveyID: surveyID, DisplayOrder: s.DisplayOrder,
			Name: s.Name, Description: s.Description,
		})
	}

	stepOrders := make(map[int64]int, len(doc.Steps))
	for _, s := range doc.Steps {
		stepOrders[s.ID] = s.DisplayOrder
	}
	sectionOrders := make(map[int64]int, len(doc.Sections))
	for _, s := range doc.Sections {
		sectionOrders[s.ID] = s.DisplayOrder
	}

	stepsSections := make([]*model.StepsSections, 0, len(doc.StepsSections))
	for _, ss := range doc.StepsSections {
		key, err := model.ParseDisplayKey(ss.DisplayKey)
		if err != nil {
			fmt.Println(err)
			return nil, common.NewInternalServerError("Failed to parse steps_sections display key. See console for information.")
		}
		stepsSections = append(stepsSections, &model.StepsSections{
			ID: ss.ID, SurveyID: surveyID,
			StepID: ss.StepID, StepDisplayOrder: stepOrders[ss.StepID],
			SectionID: ss.SectionID, SectionDisplayOrder: sectionOrders[ss.SectionID],
			DisplayKey: key,
		})
	}

	questions := make([]*model.Question, 0, len(doc.Questions))
	for _, q := range doc.Questions {
		questions = append(questions, &model.Question{
			ID: q.ID, SurveyID: surveyID, Type: model.QuestionType(q.Type),
			Text: q.Text, ShortText: q.ShortText, ToolTip: q.ToolTip,
			Mask: q.Mask, Placeholder: q.Placeholder, DefaultValue: q.DefaultValue,
			Required: q.Required, MinValue: q.MinValue, MaxValue: q.MaxValue,
			ValidationText: q.ValidationText, SelectGroupID: q.SelectGroupID,
			Variant: q.Variant,
		})
	}

	sectionQuestions := make([]*model.SectionsQuestion, 0, len(doc.SectionsQuestions))
	for _, sq := range doc.SectionsQuestions {
		sectionQuestions = append(sectionQuestions, &model.SectionsQuestion{
			ID: sq.ID, SurveyID: surveyID, SectionID: sq.SectionID,
			QuestionID: sq.QuestionID, DisplayOrder: sq.DisplayOrder,
		})
	}

	selectGroups := make([]*model.SelectGroup, 0, len(doc.SelectGroups))
	for _, g := range doc.SelectGroups {
		group := &model.SelectGroup{ID: g.ID, SurveyID: surveyID, Name: g.Name}
		for _, item := range g.Items {
			group.Items = append(group.Items, model.SelectItem{
				ID: item.ID, GroupID: g.ID, CodedValue: item.CodedValue,
				DisplayText: item.DisplayText, DisplayOrder: item.DisplayOrder,
			})
		}
		selectGroups = append(selectGroups, group)
	}

	relationships := make([]*model.Relationship, 0, len(doc.Relationships))
	for _, r := range doc.Relationships {
		rel := &model.Relationship{
			ID: r.ID, SurveyID: surveyID,
			Action:               model.ActionType(r.Action),
			Operator:             model.OperatorType(r.Operator),
			UpstreamStepID:       r.UpstreamStepID,
			UpstreamQuestionID:   r.UpstreamQuestionID,
			Token:                r.Token,
			ReferenceValue:       r.ReferenceValue,
			DefaultUpstreamValue: r.DefaultUpstreamValue,
		}
		switch {
		case r.DownstreamQuestionID != nil:
			rel.Downstream = model.Target{Kind: model.TargetQuestion, ID: *r.DownstreamQuestionID}
		case r.DownstreamSectionID != nil:
			rel.Downstream = model.Target{Kind: model.TargetSection, ID: *r.DownstreamSectionID}
		case r.DownstreamStepID != nil:
			rel.Downstream = model.Target{Kind: model.TargetStep, ID: *r.DownstreamStepID}
		default:
			fmt.Println("relationship", r.ID, "has no downstream target, skipped")
			continue
		}
		relationships = append(relationships, rel)
	}

	return model.NewDefinition(surveyID, steps, sections, stepsSections, questions,
		sectionQuestions, selectGroups, relationships), nil
}
