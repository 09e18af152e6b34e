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

// Package api exposes the survey engine over HTTP.
//
// The service is responsible for:
//   - decoding/validating request path, query and body parameters
//   - invoking the engine for respondent and answer operations
//   - mapping engine errors to appropriate HTTP error responses
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ElicitSoftware/Survey-sub001/internal/common"
	"github.com/ElicitSoftware/Survey-sub001/internal/surveyservice/engine"
	"github.com/ElicitSoftware/Survey-sub001/internal/surveyservice/model"
)

const componentName = "SURVEY"

// SurveyAPIService is the HTTP layer over one survey engine.
type SurveyAPIService struct {
	engine *engine.Engine
}

// NewSurveyAPIService creates a default api service.
func NewSurveyAPIService(e *engine.Engine) *SurveyAPIService {
	return &SurveyAPIService{engine: e}
}

// RegisterRoutes mounts every survey endpoint under the context path.
func (s *SurveyAPIService) RegisterRoutes(r chi.Router, contextPath string) {
	r.Post(contextPath+"/respondents", s.RegisterRespondent)
	r.Post(contextPath+"/respondents/{respondentId}/init", s.InitRespondent)
	r.Get(contextPath+"/respondents/{respondentId}/navigate", s.Navigate)
	r.Put(contextPath+"/respondents/{respondentId}/answers", s.SaveAnswer)
	r.Post(contextPath+"/respondents/{respondentId}/finalize", s.Finalize)
	r.Delete(contextPath+"/respondents/{respondentId}/deleted", s.RemoveDeleted)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			log.Printf("📍 [%s] Failed to encode response: %v", componentName, err)
		}
	}
}

func writeError(w http.ResponseWriter, operation string, err error) {
	log.Printf("📍 [%s] Error in %s: %v", componentName, operation, err)
	switch {
	case common.IsErrNotFound(err):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case common.IsErrBadRequest(err):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
	}
}

func respondentID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "respondentId")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, common.NewErrBadRequest("respondent id " + strconv.Quote(raw))
	}
	return id, nil
}

type registerRespondentRequest struct {
	SurveyID int64 `json:"surveyId"`
}

type respondentResponse struct {
	ID       int64  `json:"id"`
	SurveyID int64  `json:"surveyId"`
	Token    string `json:"token"`
}

// RegisterRespondent - Creates a participant and mints its access token.
func (s *SurveyAPIService) RegisterRespondent(w http.ResponseWriter, r *http.Request) {
	var req registerRespondentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "RegisterRespondent", common.NewErrBadRequest("invalid request body"))
		return
	}
	if req.SurveyID != 0 && req.SurveyID != s.engine.Definition().SurveyID() {
		writeError(w, "RegisterRespondent",
			common.NewErrBadRequest("survey "+strconv.FormatInt(req.SurveyID, 10)+" is not served here"))
		return
	}

	resp, err := s.engine.RegisterRespondent(r.Context(), uuid.NewString())
	if err != nil {
		writeError(w, "RegisterRespondent", err)
		return
	}
	writeJSON(w, http.StatusCreated, respondentResponse{
		ID:       resp.ID,
		SurveyID: resp.SurveyID,
		Token:    resp.Token,
	})
}

type initRequest struct {
	DisplayKey string `json:"displayKey"`
}

// InitRespondent - Records first access and materializes the addressed step.
func (s *SurveyAPIService) InitRespondent(w http.ResponseWriter, r *http.Request) {
	id, err := respondentID(r)
	if err != nil {
		writeError(w, "InitRespondent", err)
		return
	}
	var req initRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "InitRespondent", common.NewErrBadRequest("invalid request body"))
		return
	}
	if err := s.engine.Init(r.Context(), id, req.DisplayKey); err != nil {
		writeError(w, "InitRespondent", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Navigate - Returns the view of the section addressed by ?displayKey=.
func (s *SurveyAPIService) Navigate(w http.ResponseWriter, r *http.Request) {
	id, err := respondentID(r)
	if err != nil {
		writeError(w, "Navigate", err)
		return
	}
	key := r.URL.Query().Get("displayKey")
	nav, err := s.engine.Navigate(r.Context(), id, key)
	if err != nil {
		writeError(w, "Navigate", err)
		return
	}
	writeJSON(w, http.StatusOK, nav)
}

type saveAnswerRequest struct {
	DisplayKey string  `json:"displayKey"`
	TextValue  *string `json:"textValue"`
}

// SaveAnswer - Writes one answer value and returns the refreshed section view.
func (s *SurveyAPIService) SaveAnswer(w http.ResponseWriter, r *http.Request) {
	id, err := respondentID(r)
	if err != nil {
		writeError(w, "SaveAnswer", err)
		return
	}
	var req saveAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "SaveAnswer", common.NewErrBadRequest("invalid request body"))
		return
	}

	nav, err := s.engine.SaveAnswer(r.Context(), model.AnswerPatch{
		RespondentID: id,
		DisplayKey:   req.DisplayKey,
		TextValue:    req.TextValue,
	})
	if err != nil {
		writeError(w, "SaveAnswer", err)
		return
	}
	writeJSON(w, http.StatusOK, nav)
}

// Finalize - Marks the respondent's survey complete.
func (s *SurveyAPIService) Finalize(w http.ResponseWriter, r *http.Request) {
	id, err := respondentID(r)
	if err != nil {
		writeError(w, "Finalize", err)
		return
	}
	if err := s.engine.Finalize(r.Context(), id); err != nil {
		writeError(w, "Finalize", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveDeleted - Physically purges the respondent's soft-deleted rows.
func (s *SurveyAPIService) RemoveDeleted(w http.ResponseWriter, r *http.Request) {
	id, err := respondentID(r)
	if err != nil {
		writeError(w, "RemoveDeleted", err)
		return
	}
	if err := s.engine.RemoveDeleted(r.Context(), id); err != nil {
		writeError(w, "RemoveDeleted", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
