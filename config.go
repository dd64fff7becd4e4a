package trajopt

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrInvalidConfig is returned for any configuration error, before any simulation starts.
var ErrInvalidConfig = errors.New("invalid configuration")

// ConfigEnv is the environment variable holding the directory of conf.toml.
const ConfigEnv = "TRAJOPT_CONFIG"

// Config is the full configuration of a run.
type Config struct {
	Mission     MissionConfig
	Ephemeris   EphemerisConfig
	Termination Termination
	Fitness     Fitness
	Optimizer   OptimizerConfig
	OutputPath  string
	MetricsAddr string
	LogLevel    string
}

// MissionConfig defines the simulated mission.
type MissionConfig struct {
	Origin, Target    string
	Bodies            []string
	Start, End        time.Time
	Step, TraceStep   time.Duration
	MaxDuration       time.Duration
	DepartureVicinity float64 // m
	Integrator        string
	TraceEvery        int
}

// OptimizerConfig defines the genetic algorithm.
type OptimizerConfig struct {
	Population       int
	Generations      int
	Seed             int64
	Elites           int
	Tournament       int
	MutationRate     float64
	MutationStrength float64
	MutationFloor    float64
	Seeded           int
	Seeding          string // fixed, hohmann or lambert
	Workers          int
	LogEvery         int
	Bounds           Bounds
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.output_path", ".")
	v.SetDefault("log.level", "info")
	v.SetDefault("metrics.address", "")

	v.SetDefault("mission.origin", "earth")
	v.SetDefault("mission.target", "jupiter")
	v.SetDefault("mission.bodies", []string{"sun", "earth", "mars", "jupiter"})
	v.SetDefault("mission.start", "2028-03-03T00:00:00Z")
	v.SetDefault("mission.end", "2035-12-31T23:59:59Z")
	v.SetDefault("mission.step", "2h")
	v.SetDefault("mission.trace_step", "1h")
	v.SetDefault("mission.max_duration", "28800h") // 1200 days
	v.SetDefault("mission.departure_vicinity", 5e7)
	v.SetDefault("mission.integrator", "euler")
	v.SetDefault("mission.trace_every", 12)

	v.SetDefault("ephemeris.source", "vsop87")
	v.SetDefault("ephemeris.directory", "")
	v.SetDefault("ephemeris.cadence", "24h")
	v.SetDefault("ephemeris.frame", "ecliptic")

	term := DefaultTermination()
	v.SetDefault("termination.min_steps", term.MinSteps)
	v.SetDefault("termination.sample_every", term.SampleEvery)
	v.SetDefault("termination.escape_factor", term.EscapeFactor)
	v.SetDefault("termination.past_factor", term.PastFactor)
	v.SetDefault("termination.recede_distance_au", term.RecedeDistance/AU)
	v.SetDefault("termination.recede_factor", term.RecedeFactor)

	fit := DefaultFitness()
	v.SetDefault("fitness.penalty", fit.Penalty)
	v.SetDefault("fitness.distance_weight", fit.DistanceWeight)
	v.SetDefault("fitness.fuel_weight", fit.FuelWeight)
	v.SetDefault("fitness.time_weight", fit.TimeWeight)
	v.SetDefault("fitness.reference_distance_au", fit.ReferenceDistance/AU)
	v.SetDefault("fitness.reference_delta_v", fit.ReferenceDeltaV)
	v.SetDefault("fitness.reference_days", fit.ReferenceDays)
	v.SetDefault("fitness.capture_radius_au", fit.CaptureRadius/AU)
	v.SetDefault("fitness.bonus_scale", fit.BonusScale)
	v.SetDefault("fitness.bonus_offset", fit.BonusOffset)

	opt := DefaultOptimizerConfig()
	v.SetDefault("optimizer.population", opt.Population)
	v.SetDefault("optimizer.generations", opt.Generations)
	v.SetDefault("optimizer.seed", opt.Seed)
	v.SetDefault("optimizer.elites", opt.Elites)
	v.SetDefault("optimizer.tournament", opt.Tournament)
	v.SetDefault("optimizer.mutation_rate", opt.MutationRate)
	v.SetDefault("optimizer.mutation_strength", opt.MutationStrength)
	v.SetDefault("optimizer.mutation_floor", opt.MutationFloor)
	v.SetDefault("optimizer.seeded", opt.Seeded)
	v.SetDefault("optimizer.seeding", opt.Seeding)
	v.SetDefault("optimizer.workers", opt.Workers)
	v.SetDefault("optimizer.log_every", opt.LogEvery)
	for i, name := range GeneNames {
		v.SetDefault("optimizer.bounds."+name, []float64{opt.Bounds[i].Min, opt.Bounds[i].Max})
	}
}

// LoadConfig reads conf.toml from the provided directory, or from the TRAJOPT_CONFIG directory
// if empty, and then from the working directory. A missing file yields the defaults.
// Any key may be overridden with a TRAJOPT_ prefixed environment variable, e.g. TRAJOPT_OPTIMIZER_SEED.
func LoadConfig(dir string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigName("conf")
	v.SetConfigType("toml")
	if dir == "" {
		dir = os.Getenv(ConfigEnv)
	}
	if dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(".")
	v.SetEnvPrefix("trajopt")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("%w: %s", ErrInvalidConfig, err)
		}
	}
	return configFromViper(v)
}

func configFromViper(v *viper.Viper) (Config, error) {
	var conf Config
	conf.OutputPath = v.GetString("general.output_path")
	conf.MetricsAddr = v.GetString("metrics.address")
	conf.LogLevel = v.GetString("log.level")

	start, end := v.GetTime("mission.start"), v.GetTime("mission.end")
	if start.IsZero() || end.IsZero() {
		return conf, fmt.Errorf("%w: mission.start and mission.end must be RFC 3339 dates", ErrInvalidConfig)
	}
	conf.Mission = MissionConfig{
		Origin:            v.GetString("mission.origin"),
		Target:            v.GetString("mission.target"),
		Bodies:            v.GetStringSlice("mission.bodies"),
		Start:             start.UTC(),
		End:               end.UTC(),
		Step:              v.GetDuration("mission.step"),
		TraceStep:         v.GetDuration("mission.trace_step"),
		MaxDuration:       v.GetDuration("mission.max_duration"),
		DepartureVicinity: v.GetFloat64("mission.departure_vicinity"),
		Integrator:        v.GetString("mission.integrator"),
		TraceEvery:        v.GetInt("mission.trace_every"),
	}
	conf.Ephemeris = EphemerisConfig{
		Source:    v.GetString("ephemeris.source"),
		Directory: v.GetString("ephemeris.directory"),
		Cadence:   v.GetDuration("ephemeris.cadence"),
		Frame:     v.GetString("ephemeris.frame"),
	}
	conf.Termination = Termination{
		MinSteps:       v.GetInt("termination.min_steps"),
		SampleEvery:    v.GetInt("termination.sample_every"),
		EscapeFactor:   v.GetFloat64("termination.escape_factor"),
		PastFactor:     v.GetFloat64("termination.past_factor"),
		RecedeDistance: v.GetFloat64("termination.recede_distance_au") * AU,
		RecedeFactor:   v.GetFloat64("termination.recede_factor"),
	}
	conf.Fitness = Fitness{
		Penalty:           v.GetFloat64("fitness.penalty"),
		DistanceWeight:    v.GetFloat64("fitness.distance_weight"),
		FuelWeight:        v.GetFloat64("fitness.fuel_weight"),
		TimeWeight:        v.GetFloat64("fitness.time_weight"),
		ReferenceDistance: v.GetFloat64("fitness.reference_distance_au") * AU,
		ReferenceDeltaV:   v.GetFloat64("fitness.reference_delta_v"),
		ReferenceDays:     v.GetFloat64("fitness.reference_days"),
		CaptureRadius:     v.GetFloat64("fitness.capture_radius_au") * AU,
		BonusScale:        v.GetFloat64("fitness.bonus_scale"),
		BonusOffset:       v.GetFloat64("fitness.bonus_offset"),
	}
	conf.Optimizer = OptimizerConfig{
		Population:       v.GetInt("optimizer.population"),
		Generations:      v.GetInt("optimizer.generations"),
		Seed:             v.GetInt64("optimizer.seed"),
		Elites:           v.GetInt("optimizer.elites"),
		Tournament:       v.GetInt("optimizer.tournament"),
		MutationRate:     v.GetFloat64("optimizer.mutation_rate"),
		MutationStrength: v.GetFloat64("optimizer.mutation_strength"),
		MutationFloor:    v.GetFloat64("optimizer.mutation_floor"),
		Seeded:           v.GetInt("optimizer.seeded"),
		Seeding:          v.GetString("optimizer.seeding"),
		Workers:          v.GetInt("optimizer.workers"),
		LogEvery:         v.GetInt("optimizer.log_every"),
	}
	for i, name := range GeneNames {
		bnd, err := floatPair(v.Get("optimizer.bounds." + name))
		if err != nil {
			return conf, fmt.Errorf("%w: optimizer.bounds.%s: %s", ErrInvalidConfig, name, err)
		}
		conf.Optimizer.Bounds[i] = Interval{bnd[0], bnd[1]}
	}
	return conf, conf.Validate()
}

// floatPair converts a decoded TOML array into a [min, max] pair.
func floatPair(raw interface{}) ([2]float64, error) {
	var out [2]float64
	switch vals := raw.(type) {
	case []float64:
		if len(vals) != 2 {
			return out, fmt.Errorf("expected 2 values, got %d", len(vals))
		}
		copy(out[:], vals)
	case []interface{}:
		if len(vals) != 2 {
			return out, fmt.Errorf("expected 2 values, got %d", len(vals))
		}
		for i, val := range vals {
			switch f := val.(type) {
			case float64:
				out[i] = f
			case int64:
				out[i] = float64(f)
			case int:
				out[i] = float64(f)
			default:
				return out, fmt.Errorf("value %v is not a number", val)
			}
		}
	default:
		return out, fmt.Errorf("expected an array of two numbers, got %T", raw)
	}
	return out, nil
}

// Validate returns an ErrInvalidConfig wrapped error for the first invalid setting.
func (c Config) Validate() error {
	if _, err := BodyFromString(c.Mission.Origin); err != nil {
		return fmt.Errorf("mission.origin: %w", err)
	}
	if _, err := BodyFromString(c.Mission.Target); err != nil {
		return fmt.Errorf("mission.target: %w", err)
	}
	if _, err := BodiesFromStrings(c.Mission.Bodies); err != nil {
		return fmt.Errorf("mission.bodies: %w", err)
	}
	if !c.Mission.End.After(c.Mission.Start) {
		return fmt.Errorf("%w: mission ends before it starts", ErrInvalidConfig)
	}
	if c.Mission.Step <= 0 || c.Mission.TraceStep <= 0 {
		return fmt.Errorf("%w: step sizes must be positive", ErrInvalidConfig)
	}
	if c.Mission.MaxDuration < c.Mission.Step {
		return fmt.Errorf("%w: max duration %s is shorter than one step", ErrInvalidConfig, c.Mission.MaxDuration)
	}
	if c.Mission.DepartureVicinity < 0 || math.IsNaN(c.Mission.DepartureVicinity) {
		return fmt.Errorf("%w: departure vicinity must be non-negative", ErrInvalidConfig)
	}
	if _, err := IntegratorFromString(c.Mission.Integrator); err != nil {
		return err
	}
	if _, err := FrameFromString(c.Ephemeris.Frame); err != nil {
		return err
	}
	switch strings.ToLower(c.Ephemeris.Source) {
	case "circular", "horizons", "vsop87", "":
	default:
		return fmt.Errorf("%w: unknown ephemeris source %q", ErrInvalidConfig, c.Ephemeris.Source)
	}
	if strings.EqualFold(c.Ephemeris.Source, "vsop87") && c.Ephemeris.Cadence <= 0 {
		return fmt.Errorf("%w: ephemeris cadence must be positive", ErrInvalidConfig)
	}
	if c.Mission.TraceEvery <= 0 {
		return fmt.Errorf("%w: trace_every must be positive", ErrInvalidConfig)
	}
	if err := c.Termination.Validate(); err != nil {
		return err
	}
	if err := c.Fitness.Validate(); err != nil {
		return err
	}
	return c.Optimizer.Validate()
}

// Validate checks the optimizer settings.
func (c OptimizerConfig) Validate() error {
	if c.Population <= 0 || c.Generations <= 0 {
		return fmt.Errorf("%w: population (%d) and generations (%d) must be positive", ErrInvalidConfig, c.Population, c.Generations)
	}
	if c.Elites < 0 || c.Seeded < 0 {
		return fmt.Errorf("%w: elites and seeded counts may not be negative", ErrInvalidConfig)
	}
	if c.Tournament < 1 {
		return fmt.Errorf("%w: tournament size must be at least 1", ErrInvalidConfig)
	}
	if c.MutationRate < 0 || c.MutationRate > 1 {
		return fmt.Errorf("%w: mutation rate %f not in [0, 1]", ErrInvalidConfig, c.MutationRate)
	}
	if c.MutationStrength < 0 || c.MutationFloor < 0 {
		return fmt.Errorf("%w: mutation noise scales may not be negative", ErrInvalidConfig)
	}
	if _, err := SeedingFromString(c.Seeding); err != nil {
		return err
	}
	return c.Bounds.Validate()
}
