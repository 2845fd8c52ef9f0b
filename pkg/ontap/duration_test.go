package ontap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLagTime(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"PT15S", 15},
		{"PT2M5S", 125},
		{"PT45M", 2700},
		{"PT2H30M", 9000},
		{"PT5H", 18000},
		{"P2D", 172800},
		{"P1DT2S", 86402},
		{"P3DT4H5M6S", 273906},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLagTime(tt.in, "fsxcluster"))
		})
	}
}

func TestLagTimeString(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{1, "1 second"},
		{59, "59 seconds"},
		{60, "1 minute and 0 seconds"},
		{3661, "1 hour 1 minute and 1 second"},
		{9000, "2 hours 30 minutes and 0 seconds"},
		{86400, "1 day 0 hours 0 minutes and 0 seconds"},
		{3758400, "43 days 12 hours 0 minutes and 0 seconds"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, LagTimeString(tt.in))
		})
	}
}
