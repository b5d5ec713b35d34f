package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcrtd/rcrt/pkg/config"
)

func TestDatabaseConfig_SetDefaults(t *testing.T) {
	c := &config.DatabaseConfig{Driver: "postgres"}
	c.SetDefaults()
	assert.Equal(t, 25, c.MaxConns)
	assert.Equal(t, 5, c.MaxIdle)
	assert.Equal(t, 5432, c.Port)
	assert.Equal(t, "disable", c.SSLMode)
}

func TestDatabaseConfig_Validate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     config.DatabaseConfig
		wantErr bool
	}{
		{"missing driver", config.DatabaseConfig{Database: "x"}, true},
		{"invalid driver", config.DatabaseConfig{Driver: "oracle", Database: "x"}, true},
		{"missing database name", config.DatabaseConfig{Driver: "sqlite3"}, true},
		{"postgres requires host", config.DatabaseConfig{Driver: "postgres", Database: "x"}, true},
		{"sqlite needs no host", config.DatabaseConfig{Driver: "sqlite3", Database: ":memory:"}, false},
		{"postgres with host is valid", config.DatabaseConfig{Driver: "postgres", Database: "x", Host: "db"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDatabaseConfig_DialectNormalizesSqlite(t *testing.T) {
	c := &config.DatabaseConfig{Driver: "sqlite3"}
	assert.Equal(t, "sqlite", c.Dialect())
	assert.False(t, c.HasNativeVectorOps())

	pg := &config.DatabaseConfig{Driver: "postgres"}
	assert.True(t, pg.HasNativeVectorOps())
}

func TestDatabaseConfig_DSN(t *testing.T) {
	c := &config.DatabaseConfig{Driver: "sqlite3", Database: "/tmp/rcrt.db"}
	assert.Equal(t, "/tmp/rcrt.db", c.DSN())

	mysql := &config.DatabaseConfig{Driver: "mysql", Host: "db", Port: 3306, Database: "rcrt", Username: "u", Password: "p"}
	assert.Contains(t, mysql.DSN(), "u:p@tcp(db:3306)/rcrt")
}

func TestHygieneConfig_SetDefaults(t *testing.T) {
	c := &config.HygieneConfig{}
	c.SetDefaults()
	assert.Equal(t, 30*time.Second, c.CycleInterval)
	assert.Equal(t, 500, c.BatchSize)
}

func TestHygieneConfig_CronOverridesIntervalDefault(t *testing.T) {
	c := &config.HygieneConfig{CycleCron: "*/30 * * * *"}
	c.SetDefaults()
	assert.Zero(t, c.CycleInterval, "setting a cron expression must not also default in an interval")
	require.NoError(t, c.Validate())
}

func TestHygieneConfig_Validate_RequiresIntervalOrCron(t *testing.T) {
	c := &config.HygieneConfig{BatchSize: 10}
	assert.Error(t, c.Validate())
}

func TestAssemblyConfig_SetDefaults(t *testing.T) {
	c := &config.AssemblyConfig{}
	c.SetDefaults()
	assert.Equal(t, 8000, c.MaxContextTokens)
	assert.Equal(t, 4, c.BeamWidth)
	assert.InDelta(t, 1.0, c.Alpha+c.Beta+c.Gamma, 1e-9)
}

func TestAssemblyConfig_Validate_WeightsMustSumToOne(t *testing.T) {
	c := &config.AssemblyConfig{MaxContextTokens: 100, BeamWidth: 1, SemanticSeedK: 1, HopRadius: 1, NodeCap: 1, WorkerConcurrency: 1, Alpha: 0.5, Beta: 0.5, Gamma: 0.5}
	assert.Error(t, c.Validate())
}

func TestAssemblyConfig_Validate_AcceptsDefaults(t *testing.T) {
	c := &config.AssemblyConfig{}
	c.SetDefaults()
	assert.NoError(t, c.Validate())
}
