package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/ElicitSoftware/Survey-sub001/internal/surveyservice/engine"
	"github.com/ElicitSoftware/Survey-sub001/internal/surveyservice/model"
	inmemory "github.com/ElicitSoftware/Survey-sub001/internal/surveyservice/persistence/inmemory"
)

const (
	testStepKey     = "0001-0001-0000-0000-0000-0000-0000"
	testSectionKey  = "0001-0001-0000-0001-0000-0000-0000"
	testQuestionKey = "0001-0001-0000-0001-0000-0001-0000"
)

func apiFixture() *model.Definition {
	steps := []*model.Step{{ID: 10, SurveyID: 1, DisplayOrder: 1, Name: "About You"}}
	sections := []*model.Section{{ID: 20, SurveyID: 1, DisplayOrder: 1, Name: "About You"}}
	stepsSections := []*model.StepsSections{
		{ID: 30, SurveyID: 1, StepID: 10, StepDisplayOrder: 1, SectionID: 20, SectionDisplayOrder: 1,
			DisplayKey: model.DisplayKey{Survey: 1, Step: 1, Section: 1}},
	}
	questions := []*model.Question{
		{ID: 40, SurveyID: 1, Type: model.QuestionText, Text: "What is your first name?"},
		{ID: 41, SurveyID: 1, Type: model.QuestionNumber, Text: "How old are you?"},
	}
	sectionQuestions := []*model.SectionsQuestion{
		{ID: 50, SurveyID: 1, SectionID: 20, QuestionID: 40, DisplayOrder: 1},
		{ID: 51, SurveyID: 1, SectionID: 20, QuestionID: 41, DisplayOrder: 2},
	}
	return model.NewDefinition(1, steps, sections, stepsSections, questions, sectionQuestions, nil, nil)
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	e := engine.New(apiFixture(), inmemory.NewInMemorySurveyDatabase())
	r := chi.NewRouter()
	NewSurveyAPIService(e).RegisterRoutes(r, "/api/survey")
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func registerAndInit(t *testing.T, srv *httptest.Server) int64 {
	t.Helper()
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/survey/respondents", map[string]any{"surveyId": 1})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[respondentResponse](t, resp)
	require.NotEmpty(t, created.Token)

	resp = doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/survey/respondents/%d/init", srv.URL, created.ID),
		map[string]any{"displayKey": testStepKey})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()
	return created.ID
}

func TestRegisterRespondentRejectsForeignSurvey(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/survey/respondents", map[string]any{"surveyId": 99})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[errorBody](t, resp)
	require.Contains(t, body.Error, "not served here")
}

func TestNavigateReturnsSectionView(t *testing.T) {
	srv := newTestServer(t)
	id := registerAndInit(t, srv)

	resp, err := http.Get(fmt.Sprintf("%s/api/survey/respondents/%d/navigate?displayKey=%s",
		srv.URL, id, testSectionKey))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	nav := decode[model.NavResponse](t, resp)
	require.Equal(t, "About You", nav.Step.Name)
	require.Len(t, nav.Answers, 2)
	require.Len(t, nav.NavItems, 1)
	require.NotNil(t, nav.CurrentNavItem)
	require.Equal(t, testSectionKey, nav.CurrentNavItem.Path)
	require.Equal(t, testQuestionKey, nav.Answers[0].DisplayKey.String())
}

func TestSaveAnswerRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	id := registerAndInit(t, srv)

	resp := doJSON(t, http.MethodPut,
		fmt.Sprintf("%s/api/survey/respondents/%d/answers", srv.URL, id),
		map[string]any{"displayKey": testQuestionKey, "textValue": "Anne"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	nav := decode[model.NavResponse](t, resp)
	require.Len(t, nav.Answers, 2)
	require.NotNil(t, nav.Answers[0].TextValue)
	require.Equal(t, "Anne", *nav.Answers[0].TextValue)
}

func TestSaveAnswerInvalidValue(t *testing.T) {
	srv := newTestServer(t)
	id := registerAndInit(t, srv)

	ageKey := "0001-0001-0000-0001-0000-0002-0000"
	resp := doJSON(t, http.MethodPut,
		fmt.Sprintf("%s/api/survey/respondents/%d/answers", srv.URL, id),
		map[string]any{"displayKey": ageKey, "textValue": "not a number"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestSaveAnswerUnknownKey(t *testing.T) {
	srv := newTestServer(t)
	id := registerAndInit(t, srv)

	resp := doJSON(t, http.MethodPut,
		fmt.Sprintf("%s/api/survey/respondents/%d/answers", srv.URL, id),
		map[string]any{"displayKey": "0001-0001-0000-0001-0000-0009-0000", "textValue": "x"})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestMalformedDisplayKeyIsBadRequest(t *testing.T) {
	srv := newTestServer(t)
	id := registerAndInit(t, srv)

	resp, err := http.Get(fmt.Sprintf("%s/api/survey/respondents/%d/navigate?displayKey=garbage", srv.URL, id))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestUnknownRespondentIs404(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/survey/respondents/999/navigate?displayKey=" + testSectionKey)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestBadRespondentIDIsBadRequest(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/survey/respondents/abc/navigate?displayKey=" + testSectionKey)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestFinalizeAndRemoveDeleted(t *testing.T) {
	srv := newTestServer(t)
	id := registerAndInit(t, srv)

	req, err := http.NewRequest(http.MethodPost,
		fmt.Sprintf("%s/api/survey/respondents/%d/finalize", srv.URL, id), nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	// Writes after finalize are refused.
	resp = doJSON(t, http.MethodPut,
		fmt.Sprintf("%s/api/survey/respondents/%d/answers", srv.URL, id),
		map[string]any{"displayKey": testQuestionKey, "textValue": "Anne"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	req, err = http.NewRequest(http.MethodDelete,
		fmt.Sprintf("%s/api/survey/respondents/%d/deleted", srv.URL, id), nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()
}
