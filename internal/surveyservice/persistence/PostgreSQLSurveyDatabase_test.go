package persistence

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/ElicitSoftware/Survey-sub001/internal/common"
	"github.com/ElicitSoftware/Survey-sub001/internal/surveyservice/model"
)

var answerCols = []string{
	"id", "respondent_id", "survey_id", "step_id", "step_instance", "section_id", "section_instance",
	"question_instance", "section_question_id", "question_id", "displaykey", "display_text",
	"text_value", "deleted", "created_at", "saved_at",
}

type driverValue = driver.Value

func answerRow(id int64, key, text string, value driverValue) []driverValue {
	now := time.Now()
	return []driverValue{id, int64(7), int64(1), int64(10), 0, int64(20), 0, 0, int64(50), int64(40),
		key, text, value, false, now, now}
}

func rowsFor(cols []string, rows ...[]driverValue) *sqlmock.Rows {
	r := sqlmock.NewRows(cols)
	for _, row := range rows {
		r.AddRow(row...)
	}
	return r
}

func TestWithTransactionCommits(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	backend := NewPostgreSQLSurveyBackend(db)
	called := false
	err = backend.WithTransaction(context.Background(), func(s SurveyStore) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	require.True(t, called)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransactionRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	backend := NewPostgreSQLSurveyBackend(db)
	boom := errors.New("boom")
	err = backend.WithTransaction(context.Background(), func(s SurveyStore) error {
		return boom
	})
	require.Equal(t, boom, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransactionCommitFailureIsStorageFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("connection reset"))

	backend := NewPostgreSQLSurveyBackend(db)
	err = backend.WithTransaction(context.Background(), func(s SurveyStore) error {
		return nil
	})
	require.Error(t, err)
	require.True(t, common.IsInternalServerError(err))
	require.Contains(t, err.Error(), "STORAGE_FAILURE")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAnswerByDisplayKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	key := "0001-0001-0000-0001-0000-0001-0000"
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM survey\.answers\s+WHERE respondent_id = \$1 AND displaykey = \$2 AND deleted = false ORDER BY deleted ASC LIMIT 1`).
		WithArgs(int64(7), key).
		WillReturnRows(rowsFor(answerCols, answerRow(3, key, "What is your first name?", "Anne")))
	mock.ExpectCommit()

	backend := NewPostgreSQLSurveyBackend(db)
	err = backend.WithTransaction(context.Background(), func(s SurveyStore) error {
		k, err := model.ParseDisplayKey(key)
		require.NoError(t, err)
		a, err := s.Answers().ByDisplayKey(context.Background(), 7, k, false)
		require.NoError(t, err)
		require.NotNil(t, a)
		require.EqualValues(t, 3, a.ID)
		require.Equal(t, key, a.DisplayKey.String())
		require.NotNil(t, a.TextValue)
		require.Equal(t, "Anne", *a.TextValue)
		require.NotNil(t, a.SectionQuestionID)
		require.EqualValues(t, 50, *a.SectionQuestionID)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAnswerByDisplayKeyNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	key := "0001-0001-0000-0001-0000-0001-0000"
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM survey\.answers`).
		WithArgs(int64(7), key).
		WillReturnRows(rowsFor(answerCols))
	mock.ExpectCommit()

	backend := NewPostgreSQLSurveyBackend(db)
	err = backend.WithTransaction(context.Background(), func(s SurveyStore) error {
		k, err := model.ParseDisplayKey(key)
		require.NoError(t, err)
		a, err := s.Answers().ByDisplayKey(context.Background(), 7, k, false)
		require.NoError(t, err)
		require.Nil(t, a)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAnswerByLikePatternOrdersByKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	k1 := "0001-0001-0000-0001-0000-0001-0000"
	k2 := "0001-0001-0000-0001-0000-0002-0000"
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM survey\.answers\s+WHERE respondent_id = \$1 AND displaykey LIKE \$2 AND deleted = false ORDER BY displaykey ASC`).
		WithArgs(int64(7), "0001-0001-0000-0001-0000-%").
		WillReturnRows(rowsFor(answerCols,
			answerRow(3, k1, "Q1", nil),
			answerRow(4, k2, "Q2", nil)))
	mock.ExpectCommit()

	backend := NewPostgreSQLSurveyBackend(db)
	err = backend.WithTransaction(context.Background(), func(s SurveyStore) error {
		answers, err := s.Answers().ByLikePattern(context.Background(), 7, "0001-0001-0000-0001-0000-%")
		require.NoError(t, err)
		require.Len(t, answers, 2)
		require.Equal(t, k1, answers[0].DisplayKey.String())
		require.Nil(t, answers[0].TextValue)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAnswerInsertAssignsID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	key, err := model.ParseDisplayKey("0001-0001-0000-0001-0000-0001-0000")
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO survey\.answers (.+) RETURNING id`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectCommit()

	backend := NewPostgreSQLSurveyBackend(db)
	err = backend.WithTransaction(context.Background(), func(s SurveyStore) error {
		a := &model.Answer{
			RespondentID: 7,
			SurveyID:     1,
			StepID:       10,
			SectionID:    20,
			DisplayKey:   key,
			DisplayText:  "What is your first name?",
			CreatedAt:    time.Now(),
			SavedAt:      time.Now(),
		}
		require.NoError(t, s.Answers().Insert(context.Background(), a))
		require.EqualValues(t, 42, a.ID)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAnswerUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE survey\.answers SET text_value = \$1, display_text = \$2, deleted = \$3, saved_at = \$4\s+WHERE respondent_id = \$5 AND id = \$6`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	backend := NewPostgreSQLSurveyBackend(db)
	err = backend.WithTransaction(context.Background(), func(s SurveyStore) error {
		v := "Anne"
		a := &model.Answer{ID: 3, RespondentID: 7, TextValue: &v, DisplayText: "x", SavedAt: time.Now()}
		return s.Answers().Update(context.Background(), a)
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDependentFindUniqueAndInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	depCols := []string{"id", "respondent_id", "upstream_id", "downstream_id", "relationship_id", "deleted"}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM survey\.dependents\s+WHERE respondent_id = \$1 AND upstream_id = \$2 AND downstream_id = \$3 AND relationship_id = \$4`).
		WithArgs(int64(7), int64(3), int64(4), int64(60)).
		WillReturnRows(sqlmock.NewRows(depCols))
	mock.ExpectQuery(`INSERT INTO survey\.dependents (.+) RETURNING id`).
		WithArgs(int64(7), int64(3), int64(4), int64(60), false).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(9)))
	mock.ExpectCommit()

	backend := NewPostgreSQLSurveyBackend(db)
	err = backend.WithTransaction(context.Background(), func(s SurveyStore) error {
		d, err := s.Dependents().FindUnique(context.Background(), 7, 3, 4, 60)
		require.NoError(t, err)
		require.Nil(t, d)

		edge := &model.Dependent{RespondentID: 7, UpstreamID: 3, DownstreamID: 4, RelationshipID: 60}
		require.NoError(t, s.Dependents().Insert(context.Background(), edge))
		require.EqualValues(t, 9, edge.ID)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRespondentByToken(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	respCols := []string{"id", "survey_id", "token", "active", "logins", "created_at", "first_access_at", "finalized_at"}
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM survey\.respondents WHERE token = \$1`).
		WithArgs("abc").
		WillReturnRows(sqlmock.NewRows(respCols).
			AddRow(int64(7), int64(1), "abc", true, 2, time.Now(), time.Now(), nil))
	mock.ExpectCommit()

	backend := NewPostgreSQLSurveyBackend(db)
	err = backend.WithTransaction(context.Background(), func(s SurveyStore) error {
		r, err := s.Respondents().ByToken(context.Background(), "abc")
		require.NoError(t, err)
		require.NotNil(t, r)
		require.EqualValues(t, 7, r.ID)
		require.Equal(t, 2, r.Logins)
		require.NotNil(t, r.FirstAccessAt)
		require.Nil(t, r.FinalizedAt)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHardDeleteWhereDeleted(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM survey\.dependents WHERE respondent_id = \$1 AND deleted = true`).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM survey\.answers WHERE respondent_id = \$1 AND deleted = true`).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	backend := NewPostgreSQLSurveyBackend(db)
	err = backend.WithTransaction(context.Background(), func(s SurveyStore) error {
		require.NoError(t, s.Dependents().HardDeleteWhereDeleted(context.Background(), 7))
		require.NoError(t, s.Answers().HardDeleteWhereDeleted(context.Background(), 7))
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
