package config

import (
	"fmt"
	"time"

	"github.com/OCAP2/artillery/internal/match"
	"github.com/OCAP2/artillery/internal/physics"
	"github.com/OCAP2/artillery/internal/search"
	"github.com/OCAP2/artillery/internal/turn"
	"github.com/OCAP2/artillery/pkg/core"
	"github.com/spf13/viper"
)

// FileName is the config file read from the config directory.
const FileName = "artillery.cfg.json"

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds settings for the in-memory SQLite backend and its disk dumps.
type SQLiteConfig struct {
	Path         string
	DumpInterval time.Duration
}

// PostgresConfig holds connection settings for the Postgres backend.
type PostgresConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// DSN renders the connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		c.Host, c.Port, c.Username, c.Password, c.Database)
}

// StorageConfig selects and configures the recording backend.
type StorageConfig struct {
	Type     string
	Memory   MemoryConfig
	SQLite   SQLiteConfig
	Postgres PostgresConfig
}

// OTelConfig mirrors otel.Config without the log writer, which main supplies.
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// InfluxConfig holds InfluxDB connection settings.
type InfluxConfig struct {
	Enabled    bool
	URL        string
	Token      string
	Org        string
	Bucket     string
	BackupPath string
}

// GraylogConfig holds the GELF endpoint.
type GraylogConfig struct {
	Enabled bool
	Address string
}

// RunConfig controls the headless frame loop.
type RunConfig struct {
	Turns      uint
	Realtime   bool
	FPS        int
	StatusFile string
}

// kindConfig is one entry of the projectiles list.
type kindConfig struct {
	Name            string  `mapstructure:"name"`
	Damage          float64 `mapstructure:"damage"`
	Cost            int     `mapstructure:"cost"`
	ExplosionRadius float64 `mapstructure:"explosionRadius"`
	Behavior        string  `mapstructure:"behavior"`
	InterceptRange  float64 `mapstructure:"interceptRange"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// SetDefaults registers every default. Load calls it; commands that run without a config file
// call it directly.
func SetDefaults() {
	m := match.DefaultConfig()

	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./artillerylogs")

	viper.SetDefault("match.name", m.Name)
	viper.SetDefault("match.seed", m.Seed)
	viper.SetDefault("match.planets", m.Planets)
	viper.SetDefault("match.teams", m.Teams)
	viper.SetDefault("match.minRadius", m.MinRadius)
	viper.SetDefault("match.maxRadius", m.MaxRadius)
	viper.SetDefault("match.worldRadius", m.WorldRadius)
	viper.SetDefault("match.planetGap", m.PlanetGap)
	viper.SetDefault("match.mountsPerPlanet", m.MountsPerPlanet)
	viper.SetDefault("match.aiTeams", []int{1, 2})
	viper.SetDefault("match.projectileLifetime", m.ProjectileLifetime.String())
	viper.SetDefault("match.maxTurns", 0)

	viper.SetDefault("terrain.segments", m.Terrain.Segments)
	viper.SetDefault("terrain.maxCraters", m.Terrain.MaxCraters)
	viper.SetDefault("terrain.maxMountains", m.Terrain.MaxMountains)

	viper.SetDefault("mount.maxHealth", m.Mount.MaxHealth)
	viper.SetDefault("mount.maxAP", m.Mount.MaxAP)
	viper.SetDefault("mount.startAP", m.Mount.StartAP)
	viper.SetDefault("mount.apPerTurn", m.Mount.APPerTurn)

	viper.SetDefault("physics.timeStep", m.Physics.TimeStep)
	viper.SetDefault("physics.damping", m.Physics.Damping)
	viper.SetDefault("physics.bounds", m.Physics.Bounds)

	viper.SetDefault("gravity.g", m.Gravity.G)
	viper.SetDefault("gravity.massPerRadius", m.Gravity.MassPerRadius)

	viper.SetDefault("ballistics.maxSteps", m.Ballistics.MaxSteps)

	viper.SetDefault("search.attempts", m.Search.Attempts)
	viper.SetDefault("search.maxSpeed", m.Search.MaxSpeed)
	viper.SetDefault("search.targetAttempts", m.Search.TargetAttempts)
	viper.SetDefault("search.aimNoiseAngle", m.Search.AimNoiseAngle)
	viper.SetDefault("search.aimNoiseSpeed", m.Search.AimNoiseSpeed)

	viper.SetDefault("turn.executionDuration", m.Turn.ExecutionDuration.String())
	viper.SetDefault("turn.resolutionDelay", m.Turn.ResolutionDelay.String())

	viper.SetDefault("run.turns", 20)
	viper.SetDefault("run.realtime", false)
	viper.SetDefault("run.fps", 60)
	viper.SetDefault("run.statusFile", "")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./recordings")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.path", "./artillery.db")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.postgres.host", "localhost")
	viper.SetDefault("storage.postgres.port", "5432")
	viper.SetDefault("storage.postgres.username", "postgres")
	viper.SetDefault("storage.postgres.password", "postgres")
	viper.SetDefault("storage.postgres.database", "artillery")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "artillery")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "artillery")
	viper.SetDefault("influx.bucket", "match_data")
	viper.SetDefault("influx.backupPath", "./influx_backup.lp.lz4")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetMatchConfig assembles a full match configuration, starting from the stock values.
func GetMatchConfig() (match.Config, error) {
	cfg := match.DefaultConfig()
	cfg.Name = viper.GetString("match.name")
	cfg.Seed = viper.GetInt64("match.seed")
	cfg.Planets = viper.GetInt("match.planets")
	cfg.Teams = viper.GetInt("match.teams")
	cfg.MinRadius = viper.GetFloat64("match.minRadius")
	cfg.MaxRadius = viper.GetFloat64("match.maxRadius")
	cfg.WorldRadius = viper.GetFloat64("match.worldRadius")
	cfg.PlanetGap = viper.GetFloat64("match.planetGap")
	cfg.MountsPerPlanet = viper.GetInt("match.mountsPerPlanet")
	cfg.MaxTurns = viper.GetUint("match.maxTurns")

	cfg.AITeams = nil
	for _, t := range viper.GetIntSlice("match.aiTeams") {
		cfg.AITeams = append(cfg.AITeams, core.TeamID(t))
	}

	lifetime, err := duration("match.projectileLifetime")
	if err != nil {
		return cfg, err
	}
	cfg.ProjectileLifetime = lifetime

	cfg.Terrain.Segments = viper.GetInt("terrain.segments")
	cfg.Terrain.MaxCraters = viper.GetInt("terrain.maxCraters")
	cfg.Terrain.MaxMountains = viper.GetInt("terrain.maxMountains")

	cfg.Mount.MaxHealth = viper.GetFloat64("mount.maxHealth")
	cfg.Mount.MaxAP = viper.GetInt("mount.maxAP")
	cfg.Mount.StartAP = viper.GetInt("mount.startAP")
	cfg.Mount.APPerTurn = viper.GetInt("mount.apPerTurn")

	cfg.Gravity.G = viper.GetFloat64("gravity.g")
	cfg.Gravity.MassPerRadius = viper.GetFloat64("gravity.massPerRadius")
	cfg.Ballistics.MaxSteps = viper.GetInt("ballistics.maxSteps")

	cfg.Physics = GetPhysicsConfig()
	cfg.Search = GetSearchConfig()
	if cfg.Turn, err = GetTurnConfig(); err != nil {
		return cfg, err
	}
	if cfg.Kinds, err = GetProjectileKinds(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// GetPhysicsConfig returns the world tunables.
func GetPhysicsConfig() physics.Config {
	cfg := physics.DefaultConfig()
	cfg.TimeStep = viper.GetFloat64("physics.timeStep")
	cfg.Damping = viper.GetFloat64("physics.damping")
	cfg.Bounds = viper.GetFloat64("physics.bounds")
	return cfg
}

// GetSearchConfig returns the firing-solution search tunables.
func GetSearchConfig() search.Config {
	cfg := search.DefaultConfig()
	cfg.Attempts = viper.GetInt("search.attempts")
	cfg.MaxSpeed = viper.GetFloat64("search.maxSpeed")
	cfg.TargetAttempts = viper.GetInt("search.targetAttempts")
	cfg.AimNoiseAngle = viper.GetFloat64("search.aimNoiseAngle")
	cfg.AimNoiseSpeed = viper.GetFloat64("search.aimNoiseSpeed")
	return cfg
}

// GetTurnConfig returns the phase timings.
func GetTurnConfig() (turn.Config, error) {
	exec, err := duration("turn.executionDuration")
	if err != nil {
		return turn.Config{}, err
	}
	delay, err := duration("turn.resolutionDelay")
	if err != nil {
		return turn.Config{}, err
	}
	return turn.Config{ExecutionDuration: exec, ResolutionDelay: delay}, nil
}

// GetProjectileKinds returns the configured kinds table, or the stock table when none is set.
func GetProjectileKinds() ([]match.Kind, error) {
	if !viper.IsSet("projectiles") {
		return match.DefaultKinds(), nil
	}
	var raw []kindConfig
	if err := viper.UnmarshalKey("projectiles", &raw); err != nil {
		return nil, fmt.Errorf("projectiles: %w", err)
	}
	kinds := make([]match.Kind, 0, len(raw))
	for _, k := range raw {
		b, err := match.ParseBehavior(k.Behavior)
		if err != nil {
			return nil, fmt.Errorf("projectile %q: %w", k.Name, err)
		}
		kinds = append(kinds, match.Kind{
			Name:            k.Name,
			Damage:          k.Damage,
			Cost:            k.Cost,
			ExplosionRadius: k.ExplosionRadius,
			Behavior:        b,
			InterceptRange:  k.InterceptRange,
		})
	}
	return kinds, nil
}

// GetStorageConfig returns the recording backend settings.
func GetStorageConfig() (StorageConfig, error) {
	dump, err := duration("storage.sqlite.dumpInterval")
	if err != nil {
		return StorageConfig{}, err
	}
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			Path:         viper.GetString("storage.sqlite.path"),
			DumpInterval: dump,
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("storage.postgres.host"),
			Port:     viper.GetString("storage.postgres.port"),
			Username: viper.GetString("storage.postgres.username"),
			Password: viper.GetString("storage.postgres.password"),
			Database: viper.GetString("storage.postgres.database"),
		},
	}, nil
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() (OTelConfig, error) {
	timeout, err := duration("otel.batchTimeout")
	if err != nil {
		return OTelConfig{}, err
	}
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: timeout,
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}, nil
}

// GetInfluxConfig returns the InfluxDB settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled: viper.GetBool("influx.enabled"),
		URL: fmt.Sprintf("%s://%s:%s",
			viper.GetString("influx.protocol"),
			viper.GetString("influx.host"),
			viper.GetString("influx.port"),
		),
		Token:      viper.GetString("influx.token"),
		Org:        viper.GetString("influx.org"),
		Bucket:     viper.GetString("influx.bucket"),
		BackupPath: viper.GetString("influx.backupPath"),
	}
}

// GetGraylogConfig returns the GELF settings.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetRunConfig returns the frame loop settings.
func GetRunConfig() RunConfig {
	return RunConfig{
		Turns:      viper.GetUint("run.turns"),
		Realtime:   viper.GetBool("run.realtime"),
		FPS:        viper.GetInt("run.fps"),
		StatusFile: viper.GetString("run.statusFile"),
	}
}

func duration(key string) (time.Duration, error) {
	d, err := time.ParseDuration(viper.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
