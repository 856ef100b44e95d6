package models

import "fmt"

// AppointmentMode distinguishes where the appointment takes place.
type AppointmentMode string

const (
	ModeInPerson AppointmentMode = "IN_PERSON"
	ModeMobile   AppointmentMode = "MOBILE"
)

// TimeBucket partitions a day's slots for display.
type TimeBucket string

const (
	BucketMorning   TimeBucket = "morning"   // before noon
	BucketAfternoon TimeBucket = "afternoon" // noon to five
	BucketEvening   TimeBucket = "evening"   // after five
)

// GeoPoint is a viewer location used to bias availability lookups.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// SelectionKey identifies one availability view. A new key is a new
// cache entry; the zero value of optional fields means "absent".
type SelectionKey struct {
	ProfessionalID string          `json:"professionalId"`
	ServiceID      string          `json:"serviceId"`
	Mode           AppointmentMode `json:"appointmentMode"`
	ContextMediaID string          `json:"contextMediaId,omitempty"`
	ViewerBias     *GeoPoint       `json:"viewerLocationBias,omitempty"`
}

// CacheKey renders the key for cache lookups. Viewer bias is quantized
// to 4 decimal places (~11m) so GPS jitter does not churn entries.
func (k SelectionKey) CacheKey() string {
	bias := ""
	if k.ViewerBias != nil {
		bias = fmt.Sprintf("%.4f,%.4f", k.ViewerBias.Lat, k.ViewerBias.Lng)
	}
	return fmt.Sprintf("avail:%s:%s:%s:%s:%s", k.ProfessionalID, k.ServiceID, k.Mode, k.ContextMediaID, bias)
}

// DayCacheKey renders the per-day slot cache key.
func (k SelectionKey) DayCacheKey(date string) string {
	return k.CacheKey() + ":" + date
}
