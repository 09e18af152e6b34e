package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ElicitSoftware/Survey-sub001/internal/common"
	"github.com/ElicitSoftware/Survey-sub001/internal/surveyservice/model"
)

// validateTextValue checks a client-supplied text value against the question
// type before any state change. A nil value (clearing the answer) is always
// legal.
func validateTextValue(def *model.Definition, q *model.Question, value *string) error {
	if q == nil || value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}

	invalid := func(reason string) error {
		msg := fmt.Sprintf("%q is not a valid %s value", v, q.Type)
		if reason != "" {
			msg += ": " + reason
		}
		if q.ValidationText != "" {
			msg += " (" + q.ValidationText + ")"
		}
		return common.NewErrInvalidTextValue(msg)
	}

	switch q.Type {
	case model.QuestionNumber:
		n, err := strconv.Atoi(v)
		if err != nil {
			return invalid("")
		}
		return checkRange(q, float64(n), invalid)

	case model.QuestionDouble:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return invalid("")
		}
		return checkRange(q, f, invalid)

	case model.QuestionDate:
		if _, err := time.Parse(dateLayout, v); err != nil {
			return invalid("expected yyyy-MM-dd")
		}

	case model.QuestionDateTime:
		if _, err := time.Parse("2006-01-02T15:04:05", v); err != nil {
			if _, err := time.Parse("2006-01-02 15:04:05", v); err != nil {
				return invalid("expected yyyy-MM-dd HH:mm:ss")
			}
		}

	case model.QuestionTime:
		if _, err := time.Parse("15:04:05", v); err != nil {
			if _, err := time.Parse("15:04", v); err != nil {
				return invalid("expected HH:mm")
			}
		}

	case model.QuestionEmail:
		at := strings.IndexByte(v, '@')
		if at <= 0 || at == len(v)-1 {
			return invalid("")
		}

	case model.QuestionCheckbox:
		if !strings.EqualFold(v, "true") && !strings.EqualFold(v, "false") {
			return invalid("expected true or false")
		}

	case model.QuestionRadio, model.QuestionDropdown:
		return checkCoded(def, q, []string{v}, invalid)

	case model.QuestionCheckboxes, model.QuestionMultiCombo:
		return checkCoded(def, q, strings.Split(v, ","), invalid)
	}

	return nil
}

func checkRange(q *model.Question, f float64, invalid func(string) error) error {
	if q.MinValue != nil && f < *q.MinValue {
		return invalid(fmt.Sprintf("below minimum %v", *q.MinValue))
	}
	if q.MaxValue != nil && f > *q.MaxValue {
		return invalid(fmt.Sprintf("above maximum %v", *q.MaxValue))
	}
	return nil
}

// checkCoded verifies that every coded value is a member of the question's
// select group. Questions without a group accept any value.
func checkCoded(def *model.Definition, q *model.Question, values []string, invalid func(string) error) error {
	if q.SelectGroupID == nil {
		return nil
	}
	group := def.SelectGroup(*q.SelectGroupID)
	if group == nil {
		return nil
	}
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		found := false
		for _, item := range group.Items {
			if item.CodedValue == v {
				found = true
				break
			}
		}
		if !found {
			return invalid("not in select group " + group.Name)
		}
	}
	return nil
}
