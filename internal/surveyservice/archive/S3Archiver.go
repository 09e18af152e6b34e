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

// Package archive ships a respondent's final answer set to S3-compatible
// object storage after finalize.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/ElicitSoftware/Survey-sub001/internal/common"
	"github.com/ElicitSoftware/Survey-sub001/internal/surveyservice/model"
)

// S3Archiver writes one JSON document per finalized respondent.
type S3Archiver struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Archiver builds a client from the archive configuration. Static
// credentials and a custom endpoint (MinIO and friends) are optional; without
// them the default AWS credential chain applies.
func NewS3Archiver(ctx context.Context, cfg common.ArchiveConfig) (*S3Archiver, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Archiver{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

type archivedAnswer struct {
	DisplayKey  string  `json:"displayKey"`
	DisplayText string  `json:"displayText"`
	TextValue   *string `json:"textValue,omitempty"`
	SavedAt     string  `json:"savedAt"`
}

type archiveDocument struct {
	RespondentID int64            `json:"respondentId"`
	SurveyID     int64            `json:"surveyId"`
	FinalizedAt  string           `json:"finalizedAt"`
	Answers      []archivedAnswer `json:"answers"`
}

// ArchiveRespondent uploads the respondent's answers as
// {prefix}/survey-{surveyId}/respondent-{id}.json.
func (a *S3Archiver) ArchiveRespondent(ctx context.Context, r *model.Respondent, answers []*model.Answer) error {
	doc := archiveDocument{
		RespondentID: r.ID,
		SurveyID:     r.SurveyID,
		Answers:      make([]archivedAnswer, 0, len(answers)),
	}
	if r.FinalizedAt != nil {
		doc.FinalizedAt = r.FinalizedAt.UTC().Format(time.RFC3339)
	}
	for _, ans := range answers {
		doc.Answers = append(doc.Answers, archivedAnswer{
			DisplayKey:  ans.DisplayKey.String(),
			DisplayText: ans.DisplayText,
			TextValue:   ans.TextValue,
			SavedAt:     ans.SavedAt.UTC().Format(time.RFC3339),
		})
	}

	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	key := path.Join(a.prefix, fmt.Sprintf("survey-%d", r.SurveyID), fmt.Sprintf("respondent-%d.json", r.ID))
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			return fmt.Errorf("put s3://%s/%s: %s: %s", a.bucket, key, apiErr.ErrorCode(), apiErr.ErrorMessage())
		}
		return fmt.Errorf("put s3://%s/%s: %w", a.bucket, key, err)
	}
	return nil
}
