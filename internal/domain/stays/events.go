package stays

import (
	"strconv"
	"time"

	"stayregister/internal/domain/shared/daterange"
)

type StayRecorded struct {
	StayID      StayID
	OwnerID     string
	ApartmentID ApartmentID
	Range       daterange.DateRange
	At          time.Time
}

func (e StayRecorded) EventName() string     { return "stay.recorded" }
func (e StayRecorded) AggregateID() string   { return strconv.FormatInt(int64(e.StayID), 10) }
func (e StayRecorded) OccurredAt() time.Time { return e.At }

type StayRevised struct {
	StayID      StayID
	OwnerID     string
	ApartmentID ApartmentID
	Range       daterange.DateRange
	At          time.Time
}

func (e StayRevised) EventName() string     { return "stay.revised" }
func (e StayRevised) AggregateID() string   { return strconv.FormatInt(int64(e.StayID), 10) }
func (e StayRevised) OccurredAt() time.Time { return e.At }

type StayRemoved struct {
	StayID      StayID
	OwnerID     string
	ApartmentID ApartmentID
	At          time.Time
}

func (e StayRemoved) EventName() string     { return "stay.removed" }
func (e StayRemoved) AggregateID() string   { return strconv.FormatInt(int64(e.StayID), 10) }
func (e StayRemoved) OccurredAt() time.Time { return e.At }
