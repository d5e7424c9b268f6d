package content

// Summary holds the aggregates cached on a plan. They are pure functions of
// the document and must be recomputed whenever the document changes.
type Summary struct {
	Weeks    int
	Workouts int
	Minutes  int
}

func Summarize(doc *Document) Summary {
	s := Summary{Weeks: len(doc.Weeks)}
	for _, w := range doc.Weeks {
		for _, day := range w.Days {
			if day.Type == DayWorkout {
				s.Workouts++
			}
			if day.Duration != nil {
				s.Minutes += *day.Duration
			}
		}
	}
	return s
}
