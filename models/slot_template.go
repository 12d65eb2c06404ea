package models

import (
	"fmt"
	"time"
)

// SlotTemplate is a recurring daily time bucket with a capacity ceiling.
type SlotTemplate struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	StartTime  string    `gorm:"type:varchar(5);not null;index" json:"start_time"`
	Capacity   int       `gorm:"not null" json:"capacity"`
	IsDelivery bool      `gorm:"not null" json:"is_delivery"`
	IsTakeaway bool      `gorm:"not null" json:"is_takeaway"`
	Active     bool      `gorm:"not null;index" json:"active"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}

// Serves reports whether the template lists ch among its channels.
func (s *SlotTemplate) Serves(ch Channel) bool {
	switch ch {
	case ChannelDelivery:
		return s.IsDelivery
	case ChannelTakeaway:
		return s.IsTakeaway
	}
	return false
}

func (s *SlotTemplate) Channels() []Channel {
	var out []Channel
	if s.IsDelivery {
		out = append(out, ChannelDelivery)
	}
	if s.IsTakeaway {
		out = append(out, ChannelTakeaway)
	}
	return out
}

// StartOn returns the instant the slot starts on the given calendar day in loc.
func (s *SlotTemplate) StartOn(day time.Time, loc *time.Location) (time.Time, error) {
	h, m, err := ParseClock(s.StartTime)
	if err != nil {
		return time.Time{}, err
	}
	y, mo, d := day.In(loc).Date()
	return time.Date(y, mo, d, h, m, 0, 0, loc), nil
}

// ParseClock parses a zero padded "HH:MM" time of day.
func ParseClock(v string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", v)
	if err != nil || len(v) != 5 {
		return 0, 0, fmt.Errorf("start time %q must be HH:MM", v)
	}
	return t.Hour(), t.Minute(), nil
}
