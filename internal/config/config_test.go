package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OCAP2/artillery/internal/match"
	"github.com/OCAP2/artillery/pkg/core"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0644))
	return dir
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"logLevel": "debug",
		"match": { "seed": 99, "planets": 6, "aiTeams": [2] },
		"storage": { "type": "sqlite", "postgres": { "host": "10.0.0.1", "port": "5433" } }
	}`)

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, int64(99), viper.GetInt64("match.seed"))
	assert.Equal(t, 6, viper.GetInt("match.planets"))
	assert.Equal(t, "sqlite", viper.GetString("storage.type"))
	assert.Equal(t, "10.0.0.1", viper.GetString("storage.postgres.host"))
	assert.Equal(t, "5433", viper.GetString("storage.postgres.port"))
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load(writeConfig(t, `{}`))
	require.NoError(t, err)

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./artillerylogs", viper.GetString("logsDir"))
	assert.Equal(t, "localhost", viper.GetString("storage.postgres.host"))
	assert.Equal(t, "5432", viper.GetString("storage.postgres.port"))
	assert.Equal(t, "artillery", viper.GetString("storage.postgres.database"))
	assert.Equal(t, false, viper.GetBool("graylog.enabled"))
	assert.Equal(t, "localhost:12201", viper.GetString("graylog.address"))
	assert.Equal(t, "memory", viper.GetString("storage.type"))
	assert.Equal(t, "./recordings", viper.GetString("storage.memory.outputDir"))
	assert.Equal(t, true, viper.GetBool("storage.memory.compressOutput"))
	assert.Equal(t, "3m", viper.GetString("storage.sqlite.dumpInterval"))
	assert.Equal(t, false, viper.GetBool("otel.enabled"))
	assert.Equal(t, "artillery", viper.GetString("otel.serviceName"))
	assert.Equal(t, "5s", viper.GetString("otel.batchTimeout"))
	assert.Equal(t, "", viper.GetString("otel.endpoint"))
	assert.Equal(t, true, viper.GetBool("otel.insecure"))
	assert.Equal(t, "8s", viper.GetString("match.projectileLifetime"))
	assert.Equal(t, "5s", viper.GetString("turn.executionDuration"))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestGetString(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testKey", "testValue")
	assert.Equal(t, "testValue", GetString("testKey"))
}

func TestGetInt(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testInt", 42)
	assert.Equal(t, 42, GetInt("testInt"))
}

func TestGetBool(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testBool", true)
	assert.True(t, GetBool("testBool"))
}

func TestGetMatchConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	SetDefaults()

	cfg, err := GetMatchConfig()
	require.NoError(t, err)

	def := match.DefaultConfig()
	assert.Equal(t, def.Seed, cfg.Seed)
	assert.Equal(t, def.Planets, cfg.Planets)
	assert.Equal(t, def.AITeams, cfg.AITeams)
	assert.Equal(t, def.ProjectileLifetime, cfg.ProjectileLifetime)
	assert.Equal(t, def.Physics, cfg.Physics)
	assert.Equal(t, def.Search, cfg.Search)
	assert.Equal(t, def.Turn, cfg.Turn)
	assert.Equal(t, def.Kinds, cfg.Kinds)
	assert.Equal(t, def.Terrain, cfg.Terrain)
	assert.Equal(t, def.Mount, cfg.Mount)
}

func TestGetMatchConfig_Overrides(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{
		"match": { "seed": 7, "teams": 3, "planets": 5, "aiTeams": [1, 3], "maxTurns": 12 },
		"turn": { "executionDuration": "2s", "resolutionDelay": "250ms" },
		"search": { "attempts": 10 },
		"projectiles": [
			{ "name": "pebble", "damage": 5, "cost": 1, "explosionRadius": 8, "behavior": "explode" },
			{ "name": "shield", "cost": 2, "explosionRadius": 5, "behavior": "Intercept", "interceptRange": 50 }
		]
	}`)))

	cfg, err := GetMatchConfig()
	require.NoError(t, err)

	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, 3, cfg.Teams)
	assert.Equal(t, []core.TeamID{1, 3}, cfg.AITeams)
	assert.Equal(t, uint(12), cfg.MaxTurns)
	assert.Equal(t, 2*time.Second, cfg.Turn.ExecutionDuration)
	assert.Equal(t, 250*time.Millisecond, cfg.Turn.ResolutionDelay)
	assert.Equal(t, 10, cfg.Search.Attempts)

	require.Len(t, cfg.Kinds, 2)
	assert.Equal(t, "pebble", cfg.Kinds[0].Name)
	assert.Equal(t, match.Explode, cfg.Kinds[0].Behavior)
	assert.Equal(t, match.Intercept, cfg.Kinds[1].Behavior)
	assert.Equal(t, 50.0, cfg.Kinds[1].InterceptRange)
}

func TestGetMatchConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad duration", `{"turn": {"executionDuration": "soon"}}`},
		{"bad behavior", `{"projectiles": [{"name": "x", "behavior": "teleport"}]}`},
		{"invalid layout", `{"match": {"teams": 5, "planets": 2}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Cleanup(viper.Reset)
			require.NoError(t, Load(writeConfig(t, tt.body)))
			_, err := GetMatchConfig()
			assert.Error(t, err)
		})
	}
}

func TestGetStorageConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	SetDefaults()
	viper.Set("storage.sqlite.dumpInterval", "30s")

	cfg, err := GetStorageConfig()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Type)
	assert.Equal(t, 30*time.Second, cfg.SQLite.DumpInterval)
	assert.Equal(t, "host=localhost port=5432 user=postgres password=postgres dbname=artillery sslmode=disable", cfg.Postgres.DSN())
}

func TestGetOTelConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	SetDefaults()

	cfg, err := GetOTelConfig()
	require.NoError(t, err)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 5*time.Second, cfg.BatchTimeout)

	viper.Set("otel.batchTimeout", "never")
	_, err = GetOTelConfig()
	assert.Error(t, err)
}

func TestGetInfluxAndGraylogConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	SetDefaults()

	in := GetInfluxConfig()
	assert.Equal(t, "http://localhost:8086", in.URL)
	assert.Equal(t, "match_data", in.Bucket)

	gl := GetGraylogConfig()
	assert.False(t, gl.Enabled)
	assert.Equal(t, "localhost:12201", gl.Address)

	run := GetRunConfig()
	assert.Equal(t, uint(20), run.Turns)
	assert.Equal(t, 60, run.FPS)
}
