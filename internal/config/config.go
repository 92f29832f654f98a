package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

var singleConfig *Config = nil

type Config struct {
	Database *dbConfig
	Service  *svcConfig
	Runner   *runnerConfig
}

type dbConfig struct {
	Type     string `envconfig:"DB_TYPE" default:"sqlite"`
	Hostname string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"simrunner.db"`
	User     string `envconfig:"DB_USER" default:"admin"`
	Password string `envconfig:"DB_PASS" default:"adminpass"`
}

type svcConfig struct {
	Address        string `envconfig:"SIMRUNNER_ADDRESS" default:":8319"`
	MetricsAddress string `envconfig:"SIMRUNNER_METRICS_ADDRESS" default:":8320"`
	LogLevel       string `envconfig:"SIMRUNNER_LOG_LEVEL" default:"info"`
}

type runnerConfig struct {
	// Backend selects the execution environment: "local" or "slurm".
	Backend      string `envconfig:"SIMRUNNER_BACKEND" default:"local"`
	LammpsBinary string `envconfig:"SIMRUNNER_LAMMPS_BINARY" default:"lmp"`
	WorkdirRoot  string `envconfig:"SIMRUNNER_WORKDIR_ROOT" default:".simrunner/runs"`

	PollInterval         time.Duration `envconfig:"SIMRUNNER_POLL_INTERVAL" default:"5s"`
	PollJitter           time.Duration `envconfig:"SIMRUNNER_POLL_JITTER" default:"500ms"`
	MaxTransientFailures int           `envconfig:"SIMRUNNER_MAX_TRANSIENT_FAILURES" default:"3"`
	DefaultWaitTimeout   time.Duration `envconfig:"SIMRUNNER_DEFAULT_WAIT_TIMEOUT" default:"1h"`

	Slurm slurmConfig
}

type slurmConfig struct {
	Partition string `envconfig:"SIMRUNNER_SLURM_PARTITION" default:""`
	Walltime  string `envconfig:"SIMRUNNER_SLURM_WALLTIME" default:"01:00:00"`
	// SSHHost, when set, prefixes every scheduler command with "ssh <host>"
	// and stages the workdir to RemoteDir before submission.
	SSHHost   string `envconfig:"SIMRUNNER_SLURM_SSH_HOST" default:""`
	RemoteDir string `envconfig:"SIMRUNNER_SLURM_REMOTE_DIR" default:"simrunner_runs"`
}

func New() (*Config, error) {
	if singleConfig == nil {
		singleConfig = new(Config)
		if err := envconfig.Process("", singleConfig); err != nil {
			return nil, err
		}
	}
	return singleConfig, nil
}

// NewDefault returns a configuration populated with defaults only,
// ignoring the environment. Used by tests.
func NewDefault() *Config {
	cfg := new(Config)
	cfg.Database = &dbConfig{Type: "sqlite", Name: "simrunner.db"}
	cfg.Service = &svcConfig{Address: ":8319", MetricsAddress: ":8320", LogLevel: "info"}
	cfg.Runner = &runnerConfig{
		Backend:              "local",
		LammpsBinary:         "lmp",
		WorkdirRoot:          ".simrunner/runs",
		PollInterval:         5 * time.Second,
		PollJitter:           500 * time.Millisecond,
		MaxTransientFailures: 3,
		DefaultWaitTimeout:   time.Hour,
		Slurm:                slurmConfig{Walltime: "01:00:00", RemoteDir: "simrunner_runs"},
	}
	return cfg
}
