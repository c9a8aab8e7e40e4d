package policies

import "gonum.org/v1/gonum/floats"

// LinearSchedule returns length values evenly spaced from start to end, both included.
// The step is (end-start)/(length-1), a single value schedule holds only start.
func LinearSchedule(start, end float64, length int) []float64 {
	switch {
	case length <= 0:
		return []float64{}
	case length == 1:
		return []float64{start}
	}
	return floats.Span(make([]float64, length), start, end)
}

// LearningRateSchedule anneals the learning rate from alpha up to 1.0 over the training episodes
func LearningRateSchedule(alpha float64, numTraining int) []float64 {
	return LinearSchedule(alpha, 1.0, numTraining)
}

// scheduleAt indexes the schedule, negative indices count from the end.
// Out of range reads are 0.
func scheduleAt(schedule []float64, i int) float64 {
	if i < 0 {
		i += len(schedule)
	}
	if i < 0 || i >= len(schedule) {
		return 0
	}
	return schedule[i]
}
