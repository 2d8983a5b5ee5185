package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xaionaro-go/avframesplit"
)

// parseTime accepts either a number of seconds ("12.5") or a Go duration
// ("1m30s").
func parseTime(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, avframesplit.ErrValidation{
			Reason: fmt.Sprintf("'%s' is neither a number of seconds nor a duration", s),
		}
	}
	return d.Seconds(), nil
}
