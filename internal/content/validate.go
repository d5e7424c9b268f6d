package content

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidationError lists every problem found in a document.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid content: " + strings.Join(e.Problems, "; ")
}

// Validate checks field rules and the structural invariants: week ids are
// unique within the plan, day ids are unique within their week, and only
// workout days carry exercises.
func Validate(doc *Document) error {
	var problems []string

	if err := validate.Struct(doc); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			problems = append(problems, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
		}
	}

	weekIDs := make(map[string]struct{}, len(doc.Weeks))
	for wi, w := range doc.Weeks {
		if _, dup := weekIDs[w.ID]; dup && w.ID != "" {
			problems = append(problems, fmt.Sprintf("weeks[%d]: duplicate week id %q", wi, w.ID))
		}
		weekIDs[w.ID] = struct{}{}

		dayIDs := make(map[string]struct{}, len(w.Days))
		for di, day := range w.Days {
			if _, dup := dayIDs[day.ID]; dup && day.ID != "" {
				problems = append(problems, fmt.Sprintf("weeks[%d].days[%d]: duplicate day id %q", wi, di, day.ID))
			}
			dayIDs[day.ID] = struct{}{}
			if day.Type != DayWorkout && len(day.Exercises) > 0 {
				problems = append(problems, fmt.Sprintf("weeks[%d].days[%d]: only workout days may have exercises", wi, di))
			}
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Parse decodes and validates a submitted document.
func Parse(raw []byte) (*Document, error) {
	doc, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	if err := Validate(doc); err != nil {
		return nil, err
	}
	return doc, nil
}
