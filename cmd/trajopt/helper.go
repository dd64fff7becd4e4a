package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ChristopherRabotin/trajopt"
	kitlog "github.com/go-kit/log"
)

const dateFormatFilename = "2006-01-02-15.04.05"

// setup holds what every command needs: configuration, logger, ephemeris and simulator.
type setup struct {
	conf     trajopt.Config
	logger   kitlog.Logger
	eph      trajopt.Ephemeris
	degraded bool
	sim      *trajopt.Simulator
}

func newSetup(metrics *trajopt.Metrics) (*setup, error) {
	conf, err := trajopt.LoadConfig(configDir)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		conf.LogLevel = logLevel
	}
	s := &setup{conf: conf, logger: trajopt.NewLogger(conf.LogLevel)}
	bodies, err := trajopt.BodiesFromStrings(append(append([]string{}, conf.Mission.Bodies...), conf.Mission.Origin, conf.Mission.Target))
	if err != nil {
		return nil, err
	}
	end := conf.Mission.Start.Add(conf.Mission.MaxDuration)
	if conf.Mission.End.Before(end) {
		end = conf.Mission.End
	}
	s.eph, s.degraded, err = trajopt.SelectEphemeris(conf.Ephemeris, bodies, conf.Mission.Start, end, s.logger)
	if err != nil {
		return nil, err
	}
	s.sim, err = trajopt.NewSimulator(s.eph, conf.Mission, conf.Termination, s.logger, metrics)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// createOutput creates a stamped file in the output directory.
func createOutput(dir, prefix, ext string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	name := fmt.Sprintf("%s-%s.%s", prefix, time.Now().UTC().Format(dateFormatFilename), ext)
	return os.Create(filepath.Join(dir, name))
}

// writeOutput creates the file and closes it after write.
func writeOutput(dir, prefix, ext string, write func(f *os.File) error) (string, error) {
	f, err := createOutput(dir, prefix, ext)
	if err != nil {
		return "", err
	}
	if err := write(f); err != nil {
		f.Close()
		return "", err
	}
	return f.Name(), f.Close()
}
