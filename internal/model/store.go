package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DefaultStoreImage   = "store/store/images/default.jpg"
	DefaultProductImage = "store/product/default.jpg"
)

// TimeOfDay is a wall-clock time without a date, in seconds since midnight.
type TimeOfDay int

const secondsPerDay = 24 * 60 * 60

func NewTimeOfDay(hour, minute, second int) TimeOfDay {
	return TimeOfDay(hour*3600 + minute*60 + second)
}

// TimeOfDayOf returns the clock time of t in t's location.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return NewTimeOfDay(t.Hour(), t.Minute(), t.Second())
}

// ParseTimeOfDay accepts "15:04" and "15:04:05".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return TimeOfDayOf(t), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q", s)
}

func (t TimeOfDay) Valid() bool { return t >= 0 && t < secondsPerDay }

func (t TimeOfDay) String() string {
	s := int(t)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, s%3600/60, s%60)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

type Store struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Address      Address
	Name         string
	Email        string
	Image        string
	MobileNumber string
	DeliveryFee  decimal.Decimal
	Description  string
	OpeningTime  TimeOfDay
	ClosingTime  TimeOfDay
	IsLive       bool
	OwnerName    string
	Rating       float64
	ProductCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsOpenAt reports whether t falls inside the store's operating window.
// A window whose closing time is not after its opening time wraps past midnight.
func (s *Store) IsOpenAt(t time.Time) bool {
	now := TimeOfDayOf(t)
	if s.OpeningTime < s.ClosingTime {
		return s.OpeningTime <= now && now < s.ClosingTime
	}
	return now >= s.OpeningTime || now < s.ClosingTime
}

// displayName renders a store as "name - city".
func displayName(name, city string) string {
	if city == "" {
		return name
	}
	return name + " - " + city
}

func (s *Store) DisplayName() string { return displayName(s.Name, s.Address.City) }
