package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/todaysafrica/newsroom/internal/config"
)

var processStart = time.Now()

// applyRuntimeSettings switches the process clock to the configured zone so
// scheduled publication times and log stamps agree with the newsroom.
func applyRuntimeSettings(cfg *config.AppConfig) error {
	if strings.TrimSpace(cfg.Timezone) == "" {
		return nil
	}
	loc, err := parseTimezoneLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	time.Local = loc
	return nil
}

// parseTimezoneLocation accepts an IANA name ("Africa/Lagos") or a fixed
// offset written "+01:00", "+0100" or "UTC+1".
func parseTimezoneLocation(raw string) (*time.Location, error) {
	tz := strings.TrimSpace(raw)
	if tz == "" {
		return time.Local, nil
	}
	if loc, err := time.LoadLocation(tz); err == nil {
		return loc, nil
	}

	offset := strings.TrimPrefix(strings.TrimPrefix(strings.ToUpper(tz), "UTC"), "GMT")
	if offset == "" || (offset[0] != '+' && offset[0] != '-') {
		return nil, fmt.Errorf("expect IANA zone (e.g. Africa/Lagos) or UTC offset (e.g. +01:00)")
	}
	sign := 1
	if offset[0] == '-' {
		sign = -1
	}
	hh, mm, ok := strings.Cut(offset[1:], ":")
	if !ok && len(hh) == 4 {
		hh, mm = hh[:2], hh[2:]
	}
	if mm == "" {
		mm = "0"
	}
	h, errH := strconv.Atoi(hh)
	m, errM := strconv.Atoi(mm)
	if errH != nil || errM != nil || h > 14 || m > 59 {
		return nil, fmt.Errorf("invalid UTC offset %q", raw)
	}
	name := fmt.Sprintf("UTC%c%02d:%02d", offset[0], h, m)
	return time.FixedZone(name, sign*(h*3600+m*60)), nil
}
