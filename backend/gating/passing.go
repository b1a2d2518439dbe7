package gating

// DefaultPassingScore is the pass mark, in percent, for assessments that do
// not configure their own.
const DefaultPassingScore = 50

// IsPassing reports whether score out of total reaches threshold percent.
// A non-positive threshold means DefaultPassingScore. The comparison is done
// in integers so 1/2 at 50% passes and 1/3 does not.
func IsPassing(score, total, threshold int) bool {
	if total <= 0 {
		return false
	}
	if threshold <= 0 {
		threshold = DefaultPassingScore
	}
	return score*100 >= threshold*total
}

// Percentage rounds score/total to the nearest whole percent.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return (score*200 + total) / (total * 2)
}
