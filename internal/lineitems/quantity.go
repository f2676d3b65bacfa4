package lineitems

import "time"

const (
	secondsPerHour = 60 * 60
	secondsPerDay  = 24 * secondsPerHour
)

// quantityFunc resolves the billable quantity for one unit type. A nil error
// means the returned quantity is positive.
type quantityFunc func(order OrderParams) (int, error)

var quantityResolvers = map[UnitType]quantityFunc{
	UnitDay:   dateRangeQuantity(UnitDay),
	UnitNight: dateRangeQuantity(UnitNight),
	UnitHour:  hourQuantity,
	UnitItem:  itemQuantity,
}

// ResolveQuantity returns the billable quantity of the order for the unit
// type. It fails with a *QuantityError when the order data is incomplete or
// yields a non-positive quantity, and with ErrUnsupportedUnitType for unknown
// unit types.
func ResolveQuantity(unitType UnitType, order OrderParams) (int, error) {
	resolve, ok := quantityResolvers[unitType]
	if !ok {
		return 0, ErrUnsupportedUnitType
	}
	return resolve(order)
}

func itemQuantity(order OrderParams) (int, error) {
	if order.StockReservationQuantity == nil {
		return 0, &QuantityError{UnitType: UnitItem, Fields: []string{"stockReservationQuantity"}}
	}
	if *order.StockReservationQuantity <= 0 {
		return 0, &QuantityError{UnitType: UnitItem, Reason: "stockReservationQuantity must be positive"}
	}
	return *order.StockReservationQuantity, nil
}

// hourQuantity bills every started hour: 2h30m is 3 hours.
func hourQuantity(order OrderParams) (int, error) {
	end := order.BookingDisplayEnd
	if end == nil {
		end = order.BookingEnd
	}
	var missing []string
	if order.BookingStart == nil {
		missing = append(missing, "bookingStart")
	}
	if end == nil {
		missing = append(missing, "bookingEnd")
	}
	if len(missing) > 0 {
		return 0, &QuantityError{UnitType: UnitHour, Fields: missing}
	}
	hours := CeilHours(*order.BookingStart, *end)
	if hours <= 0 {
		return 0, &QuantityError{UnitType: UnitHour, Reason: "booking end must be after booking start"}
	}
	return hours, nil
}

func dateRangeQuantity(unitType UnitType) quantityFunc {
	return func(order OrderParams) (int, error) {
		var missing []string
		if order.BookingStart == nil {
			missing = append(missing, "bookingStart")
		}
		if order.BookingEnd == nil {
			missing = append(missing, "bookingEnd")
		}
		if len(missing) > 0 {
			return 0, &QuantityError{UnitType: unitType, Fields: missing}
		}
		days := CalendarDays(*order.BookingStart, *order.BookingEnd)
		if days <= 0 {
			return 0, &QuantityError{UnitType: unitType, Reason: "booking end must be at least one calendar day after booking start"}
		}
		return days, nil
	}
}

// CeilHours returns the number of hours between start and end rounded up to
// the next whole hour. Non-positive spans return 0. The span is taken from
// Unix seconds so ranges beyond the ~292 years of time.Duration stay exact.
func CeilHours(start, end time.Time) int {
	secs := end.Unix() - start.Unix()
	nanos := end.Nanosecond() - start.Nanosecond()
	if nanos < 0 {
		secs--
		nanos += int(time.Second)
	}
	if secs < 0 || (secs == 0 && nanos == 0) {
		return 0
	}
	hours := secs / secondsPerHour
	if secs%secondsPerHour != 0 || nanos > 0 {
		hours++
	}
	return int(hours)
}

// CalendarDays counts UTC calendar days from start (inclusive) to end
// (exclusive). The same count is used for day and night units: a booking from
// 2024-01-01 to 2024-01-04 is 3 days and 3 nights.
func CalendarDays(start, end time.Time) int {
	s := start.UTC()
	e := end.UTC()
	startDay := time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, time.UTC)
	endDay := time.Date(e.Year(), e.Month(), e.Day(), 0, 0, 0, 0, time.UTC)
	days := (endDay.Unix() - startDay.Unix()) / secondsPerDay
	if days < 0 {
		return 0
	}
	return int(days)
}
