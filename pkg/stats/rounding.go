package stats

// RoundedAverage is total/count rounded half away from zero, or 0 when
// count is 0. Both arguments are non-negative.
func RoundedAverage(total, count int64) int64 {
	if count <= 0 {
		return 0
	}
	return (2*total + count) / (2 * count)
}

// PerMember is total/members rounded to one decimal, half away from zero.
// It is nil when the group has no members.
func PerMember(total, members int64) *float64 {
	if members <= 0 {
		return nil
	}
	tenths := (20*total + members) / (2 * members)
	v := float64(tenths) / 10
	return &v
}
