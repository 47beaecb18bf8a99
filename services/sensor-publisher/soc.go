package main

import (
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
)

// SocThermometer reads the board's own CPU temperature from the kernel
// thermal zones. On a Raspberry Pi the sensor key starts with "cpu_thermal".
type SocThermometer struct {
	key string

	// sensors is host.SensorsTemperatures, replaceable in tests.
	sensors func() ([]host.TemperatureStat, error)
}

func NewSocThermometer(key string) *SocThermometer {
	return &SocThermometer{key: key, sensors: host.SensorsTemperatures}
}

// Temperature returns the first sensor whose key has the configured prefix.
func (s *SocThermometer) Temperature() (float64, error) {
	stats, err := s.sensors()
	// gopsutil returns partial results together with warnings, so only a
	// nil slice is treated as a failed read.
	if err != nil && len(stats) == 0 {
		return 0, fmt.Errorf("read thermal sensors: %w", err)
	}
	for _, st := range stats {
		if strings.HasPrefix(st.SensorKey, s.key) {
			return st.Temperature, nil
		}
	}
	return 0, fmt.Errorf("no thermal sensor matching %q", s.key)
}
