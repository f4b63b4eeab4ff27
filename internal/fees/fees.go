package fees

import (
	"errors"
	"fmt"
	"time"
)

// Default tariff: base charge plus a per-block charge for every started
// 15-minute block, minimum one block.
const (
	DefaultBaseCharge     = 10
	DefaultPerBlockCharge = 5
	blockMinutes          = 15
)

// ErrExitBeforeEntry indicates a caller contract violation.
var ErrExitBeforeEntry = errors.New("fees: exit time before entry time")

// Duration is a display-only breakdown of a parking stay.
type Duration struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

// String renders the "1h 23m" form shown on gate displays.
func (d Duration) String() string {
	return fmt.Sprintf("%dh %dm", d.Hours, d.Minutes)
}

// Calculator computes parking fees. The zero value is not usable; construct
// with NewCalculator.
type Calculator struct {
	baseCharge     int64
	perBlockCharge int64
}

// NewCalculator returns a calculator with the given tariff. Non-positive
// charges fall back to the defaults.
func NewCalculator(baseCharge, perBlockCharge int64) *Calculator {
	if baseCharge <= 0 {
		baseCharge = DefaultBaseCharge
	}
	if perBlockCharge <= 0 {
		perBlockCharge = DefaultPerBlockCharge
	}
	return &Calculator{baseCharge: baseCharge, perBlockCharge: perBlockCharge}
}

// Calculate returns the fee and display duration for a stay. Duration is
// whole elapsed minutes; billing rounds up to 15-minute blocks with a
// minimum of one block, so even a drive-through pays base plus one block.
func (c *Calculator) Calculate(entry, exit time.Time) (int64, Duration, error) {
	if exit.Before(entry) {
		return 0, Duration{}, ErrExitBeforeEntry
	}

	minutes := int(exit.Sub(entry) / time.Minute)
	if minutes < 0 {
		minutes = 0
	}

	blocks := (minutes + blockMinutes - 1) / blockMinutes
	if blocks < 1 {
		blocks = 1
	}

	fee := c.baseCharge + int64(blocks)*c.perBlockCharge
	return fee, Duration{Hours: minutes / 60, Minutes: minutes % 60}, nil
}
