package selection

import (
	"time"

	"slotline/models"
	"slotline/services/zone"
)

// bucketCorrectionOrder is the fixed preference when the selected bucket
// is empty: afternoon, then morning, then evening.
var bucketCorrectionOrder = []models.TimeBucket{
	models.BucketAfternoon,
	models.BucketMorning,
	models.BucketEvening,
}

// BucketFor places an hour-of-day into its time-of-day period:
// before noon, noon to five, after five.
func BucketFor(hour int) models.TimeBucket {
	switch {
	case hour < 12:
		return models.BucketMorning
	case hour < 17:
		return models.BucketAfternoon
	default:
		return models.BucketEvening
	}
}

// PartitionSlots groups a day's slots by their bucket in loc.
func PartitionSlots(slots []time.Time, loc *time.Location) map[models.TimeBucket][]time.Time {
	out := make(map[models.TimeBucket][]time.Time, 3)
	for _, t := range slots {
		b := BucketFor(zone.HourOfDay(t, loc))
		out[b] = append(out[b], t)
	}
	return out
}

// CorrectBucket returns the bucket to show given the current selection
// and the day's partition. A non-empty selection is always kept; an
// explicit pick of a populated bucket is never overridden. An empty or
// unset selection snaps to the first non-empty bucket in the fixed
// preference order. Idempotent: re-evaluating the result is a no-op.
func CorrectBucket(selected models.TimeBucket, partition map[models.TimeBucket][]time.Time) (models.TimeBucket, bool) {
	if selected != "" && len(partition[selected]) > 0 {
		return selected, false
	}
	for _, b := range bucketCorrectionOrder {
		if len(partition[b]) > 0 {
			return b, b != selected
		}
	}
	return selected, false
}
