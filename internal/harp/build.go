package harp

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/sweeney/harp-strings/internal/config"
	"github.com/sweeney/harp-strings/internal/pluck"
	"github.com/sweeney/harp-strings/internal/touch"
)

// Build creates an instrument with one string per entry in cfg.Strings.
// selector may be nil when no string is multiplexed.
func Build(cfg *config.Config, sampler touch.Sampler, selector touch.Selector, startTime time.Time, output pluck.Sink, logger *slog.Logger, sinks ...EventSink) (*Instrument, error) {
	if cfg.Multiplexed() && selector == nil {
		return nil, fmt.Errorf("config uses the multiplexer but no selector was given")
	}

	in := New(startTime, output, logger, sinks...)
	for _, sc := range cfg.Strings {
		opts := []touch.Option{touch.WithThreshold(uint16(sc.Threshold))}
		if sc.Mux != nil {
			opts = append(opts, touch.WithMultiplexer(*sc.Mux, selector))
		}
		sensor := touch.NewSensor(sc.Input, touch.Millis(cfg.SamplePeriodMs), sampler, opts...)

		str := in.AddString(sc.Name, sensor)
		str.SetNote(uint8(sc.Note))
		str.SetSustain(touch.Millis(sc.SustainMs))
		str.SetVelocity(uint8(cfg.Velocity))
		str.SetChannel(uint8(cfg.Channel))
	}
	return in, nil
}
