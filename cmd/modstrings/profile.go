package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"github.com/felixge/fgprof"
)

// minWallClockProfile is the shortest wall-clock profile. fgprof cannot
// export a profile that holds no samples.
const minWallClockProfile = 50 * time.Millisecond

// profileConfig holds the profiling flags of the scanning commands.
type profileConfig struct {
	fgProfile  string
	cpuProfile string
}

func (p *profileConfig) register(fs *flag.FlagSet) {
	fs.StringVar(&p.fgProfile, "fgprof", "", "write an fgprof wall-clock profile to this file")
	fs.StringVar(&p.cpuProfile, "cpuprofile", "", "write a CPU profile to this file")
}

// start begins the requested profiles. The returned stop function ends
// them and joins their errors.
func (p *profileConfig) start() (func() error, error) {
	var stops []func() error
	stopAll := func() error {
		var errs []error
		for i := len(stops) - 1; i >= 0; i-- {
			errs = append(errs, stops[i]())
		}
		return errors.Join(errs...)
	}

	if p.fgProfile != "" {
		fgFile, err := os.Create(p.fgProfile)
		if err != nil {
			return nil, err
		}
		started := time.Now()
		stopFG := fgprof.Start(fgFile, fgprof.FormatPprof)
		stops = append(stops, func() error {
			if d := time.Since(started); d < minWallClockProfile {
				time.Sleep(minWallClockProfile - d)
			}
			return errors.Join(stopWallClock(stopFG), fgFile.Close())
		})
	}

	if p.cpuProfile != "" {
		cpuFile, err := os.Create(p.cpuProfile)
		if err != nil {
			return nil, errors.Join(err, stopAll())
		}
		if err := pprof.StartCPUProfile(cpuFile); err != nil {
			return nil, errors.Join(err, cpuFile.Close(), stopAll())
		}
		stops = append(stops, func() error {
			pprof.StopCPUProfile()
			return cpuFile.Close()
		})
	}
	return stopAll, nil
}

// stopWallClock stops an fgprof profile, reporting a panic during export
// as an error.
func stopWallClock(stop func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fgprof: %v", r)
		}
	}()
	return stop()
}
