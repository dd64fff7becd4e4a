package main

import (
	"fmt"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ChristopherRabotin/trajopt"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	population, generations int
	seed                    int64
	outputDir               string
	chromosomeStr           string
	bodyName, dateStr       string
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Search the best maneuver plan",
	Long: `Runs the genetic algorithm and writes, in the output directory, the report (JSON and YAML),
the fitness history, the trace of the best plan and its Cosmographia catalog.`,
	Args: cobra.NoArgs,
	RunE: runOptimize,
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Simulate one maneuver plan",
	Long: `Simulates the plan "vx,vy,t1,dv1x,dv1y,t2,dv2x,dv2y" (m/s and days) with the trace step and
prints its outcome and fitness. With --out, the trace is also written as CSV.`,
	Args: cobra.NoArgs,
	RunE: runSimulate,
}

var ephemerisCmd = &cobra.Command{
	Use:   "ephemeris",
	Short: "Print heliocentric positions",
	Long:  `Prints the heliocentric position in meters of one body, or of all mission bodies, at a UTC date.`,
	Args:  cobra.NoArgs,
	RunE:  runEphemeris,
}

func init() {
	optimizeCmd.Flags().IntVar(&population, "population", 0, "population size (overrides optimizer.population)")
	optimizeCmd.Flags().IntVar(&generations, "generations", 0, "number of generations (overrides optimizer.generations)")
	optimizeCmd.Flags().Int64Var(&seed, "seed", 0, "random seed (overrides optimizer.seed)")
	optimizeCmd.Flags().StringVar(&outputDir, "out", "", "output directory (overrides general.output_path)")
	simulateCmd.Flags().StringVar(&chromosomeStr, "chromosome", "", "comma separated genes")
	simulateCmd.Flags().StringVar(&outputDir, "out", "", "write the trace CSV in this directory")
	simulateCmd.MarkFlagRequired("chromosome")
	ephemerisCmd.Flags().StringVar(&bodyName, "body", "", "body name, all mission bodies if empty")
	ephemerisCmd.Flags().StringVar(&dateStr, "date", "", "RFC 3339 date, mission start if empty")
}

func runOptimize(cmd *cobra.Command, args []string) error {
	reg := prometheus.NewRegistry()
	metrics := trajopt.NewMetrics(reg)
	s, err := newSetup(metrics)
	if err != nil {
		return err
	}
	conf := s.conf
	if cmd.Flags().Changed("population") {
		conf.Optimizer.Population = population
	}
	if cmd.Flags().Changed("generations") {
		conf.Optimizer.Generations = generations
	}
	if cmd.Flags().Changed("seed") {
		conf.Optimizer.Seed = seed
	}
	if outputDir == "" {
		outputDir = conf.OutputPath
	}
	logger := level.Info(s.logger)
	if conf.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", trajopt.MetricsHandler(reg))
		srv := &http.Server{Addr: conf.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				level.Error(s.logger).Log("subsys", "metrics", "err", err)
			}
		}()
		defer srv.Close()
		logger.Log("subsys", "metrics", "address", conf.MetricsAddr)
	}

	opt, err := trajopt.NewOptimizer(s.sim, conf.Fitness, conf.Optimizer, s.logger, metrics)
	if err != nil {
		return err
	}
	rslt, err := opt.Optimize(cmd.Context(), conf.Optimizer.Population, conf.Optimizer.Generations, conf.Optimizer.Seed)
	if err != nil {
		return err
	}

	rpt := trajopt.NewReport(rslt, s.eph, s.degraded, conf.Optimizer.Seed, conf.Optimizer.Population)
	for ext, write := range map[string]func(f *os.File) error{
		"json": func(f *os.File) error { return rpt.WriteJSON(f) },
		"yaml": func(f *os.File) error { return rpt.WriteYAML(f) },
	} {
		name, err := writeOutput(outputDir, "report", ext, write)
		if err != nil {
			return err
		}
		logger.Log("subsys", "export", "file", name)
	}
	name, err := writeOutput(outputDir, "history", "csv", func(f *os.File) error { return trajopt.WriteHistoryCSV(f, rslt.History) })
	if err != nil {
		return err
	}
	logger.Log("subsys", "export", "file", name)

	_, trace, err := s.sim.WithStep(conf.Mission.TraceStep).SimulateTrace(rslt.Best)
	if err != nil {
		return err
	}
	name, err = writeOutput(outputDir, "trajectory", "csv", func(f *os.File) error { return trajopt.WriteTraceCSV(f, trace) })
	if err != nil {
		return err
	}
	logger.Log("subsys", "export", "file", name)
	if err := trajopt.WriteCosmographia(outputDir, "best", trace); err != nil {
		return err
	}
	fmt.Printf("Best solution: %s\nfitness=%.3f %s\n", rslt.Best, rslt.BestFitness, describe(rslt.Outcome))
	return nil
}

func runSimulate(cmd *cobra.Command, args []string) error {
	c, err := trajopt.ParseChromosome(chromosomeStr)
	if err != nil {
		return err
	}
	s, err := newSetup(nil)
	if err != nil {
		return err
	}
	if !s.conf.Optimizer.Bounds.Contains(c) {
		level.Warn(s.logger).Log("subsys", "cli", "msg", "chromosome outside of the search bounds", "chromosome", c)
	}
	o, trace, err := s.sim.WithStep(s.conf.Mission.TraceStep).SimulateTrace(c)
	if err != nil {
		return err
	}
	fmt.Printf("%s\nfitness=%.3f %s\n", c, s.conf.Fitness.Evaluate(o), describe(o))
	if outputDir != "" {
		name, err := writeOutput(outputDir, "trajectory", "csv", func(f *os.File) error { return trajopt.WriteTraceCSV(f, trace) })
		if err != nil {
			return err
		}
		level.Info(s.logger).Log("subsys", "export", "file", name)
	}
	return nil
}

func runEphemeris(cmd *cobra.Command, args []string) error {
	s, err := newSetup(nil)
	if err != nil {
		return err
	}
	dt := s.conf.Mission.Start
	if dateStr != "" {
		if dt, err = time.Parse(time.RFC3339, dateStr); err != nil {
			return fmt.Errorf("%w: date: %s", trajopt.ErrInvalidConfig, err)
		}
	}
	names := append(append([]string{}, s.conf.Mission.Bodies...), s.conf.Mission.Origin, s.conf.Mission.Target)
	if bodyName != "" {
		names = []string{bodyName}
	}
	bodies, err := trajopt.BodiesFromStrings(names)
	if err != nil {
		return err
	}
	fmt.Printf("# %s ephemeris at %s\n", s.eph.Name(), dt.UTC().Format(time.RFC3339))
	for _, b := range bodies {
		R, err := s.eph.Position(b, dt)
		if err != nil {
			return err
		}
		lon := trajopt.Rad2deg(math.Atan2(R.Y, R.X))
		fmt.Printf("%-8s x=%.6e y=%.6e z=%.6e m (%.4f AU, lon %.3f deg)\n", strings.ToLower(b.Name), R.X, R.Y, R.Z, r3.Norm(R)/trajopt.AU, lon)
	}
	return nil
}

func describe(o trajopt.Outcome) string {
	return fmt.Sprintf("status=%s (%s) min=%.4f AU Δv=%.0f m/s days=%.0f", o.Status, o.Reason, o.MinDistance/trajopt.AU, o.TotalDeltaV, o.MissionDays)
}
