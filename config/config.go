package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/errs"
	"github.com/HannahMarsh/PrettyLogger"
	"github.com/ilyakaznacheev/cleanenv"
)

type Network struct {
	// Size 0 means the topology is read from TopologyFile.
	Size         int    `yaml:"size" env:"ETHP2P_NETWORK_SIZE"`
	Degree       int    `yaml:"degree" env:"ETHP2P_NETWORK_DEGREE"`
	TopologyFile string `yaml:"topologyFile" env:"ETHP2P_NETWORK_TOPOLOGY_FILE"`
	NodeWeights  string `yaml:"nodeWeights" env:"ETHP2P_NETWORK_NODE_WEIGHTS"`
	EdgeWeights  string `yaml:"edgeWeights" env:"ETHP2P_NETWORK_EDGE_WEIGHTS"`
	// Stake is the empirical distribution sampled in stake mode.
	Stake []float64 `yaml:"stake"`
}

type Protocols struct {
	BroadcastMode           string    `yaml:"broadcastMode" env:"ETHP2P_BROADCAST_MODE"`
	ExcludeSimpleBroadcast  bool      `yaml:"excludeSimpleBroadcast" env:"ETHP2P_EXCLUDE_SIMPLE_BROADCAST"`
	DandelionSpreadingProba []float64 `yaml:"dandelionSpreadingProbas" env:"ETHP2P_DANDELION_SPREADING_PROBAS"`
	TORArms                 int       `yaml:"torArms" env:"ETHP2P_TOR_ARMS"`
	TORHops                 int       `yaml:"torHops" env:"ETHP2P_TOR_HOPS"`
	OnionRoutingRelayers    []int     `yaml:"onionRoutingRelayers" env:"ETHP2P_ONION_ROUTING_RELAYERS"`
}

type Adversary struct {
	Ratios           []float64 `yaml:"ratios" env:"ETHP2P_ADVERSARY_RATIOS"`
	Active           bool      `yaml:"active" env:"ETHP2P_ADVERSARY_ACTIVE"`
	CentralityMetric string    `yaml:"centralityMetric" env:"ETHP2P_ADVERSARY_CENTRALITY_METRIC"`
	UseNodeWeights   bool      `yaml:"useNodeWeights" env:"ETHP2P_ADVERSARY_USE_NODE_WEIGHTS"`
}

type Simulation struct {
	MessageFraction   float64  `yaml:"messageFraction" env:"ETHP2P_MESSAGE_FRACTION"`
	CoverageThreshold float64  `yaml:"coverageThreshold" env:"ETHP2P_COVERAGE_THRESHOLD"`
	MaxTrials         int      `yaml:"maxTrials" env:"ETHP2P_MAX_TRIALS"`
	Estimators        []string `yaml:"estimators" env:"ETHP2P_ESTIMATORS"`
	Trials            int      `yaml:"trials" env:"ETHP2P_TRIALS"`
	// Seed 0 draws a fresh seed for every trial.
	Seed int64 `yaml:"seed" env:"ETHP2P_SEED"`
}

type Output struct {
	CSV      string `yaml:"csv" env:"ETHP2P_OUTPUT_CSV"`
	JSON     string `yaml:"json" env:"ETHP2P_OUTPUT_JSON"`
	Postgres string `yaml:"postgres" env:"ETHP2P_OUTPUT_POSTGRES_DSN"`
	Workers  int    `yaml:"workers" env:"ETHP2P_WORKERS"`
}

type Config struct {
	Network    Network    `yaml:"network"`
	Protocols  Protocols  `yaml:"protocols"`
	Adversary  Adversary  `yaml:"adversary"`
	Simulation Simulation `yaml:"simulation"`
	Output     Output     `yaml:"output"`
}

var GlobalConfig *Config

// InitGlobal loads config.yml and the environment into GlobalConfig.
func InitGlobal() (err error) {
	if GlobalConfig, err = Load("config.yml"); err != nil {
		return PrettyLogger.WrapError(err, "config.InitGlobal(): global config error")
	}
	return nil
}

// Load reads the named file from ./config, or from this package's
// directory, then applies environment overrides and validates the result.
func Load(file string) (*Config, error) {
	cfg := &Config{}
	if err := readConfig(cfg, file); err != nil {
		return nil, err
	}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, PrettyLogger.WrapError(err, "config.Load(): failed to read environment")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readConfig(cfg *Config, file string) error {
	var dir string
	var err error
	if filepath.IsAbs(file) {
		if err = cleanenv.ReadConfig(file, cfg); err != nil {
			return PrettyLogger.WrapError(err, "config.readConfig(): failed to read %s", file)
		}
		return nil
	}
	if dir, err = os.Getwd(); err != nil {
		return PrettyLogger.WrapError(err, "config.readConfig(): failed to get working directory")
	} else if err = cleanenv.ReadConfig(filepath.Join(dir, "config", file), cfg); err != nil {
		if _, currentFile, _, ok := runtime.Caller(0); !ok {
			return PrettyLogger.NewError("Failed to get current file path")
		} else if err = cleanenv.ReadConfig(filepath.Join(filepath.Dir(currentFile), file), cfg); err != nil {
			return PrettyLogger.WrapError(err, "config.readConfig(): failed to read %s", file)
		}
	}
	return nil
}

// Validate rejects values no simulation can run with.
func (cfg *Config) Validate() error {
	const op = "config.Validate()"
	n := cfg.Network
	if n.Size < 0 {
		return errs.Config(op, "network size must not be negative, got %d", n.Size)
	}
	if n.Size == 0 && n.TopologyFile == "" {
		return errs.Config(op, "network size 0 needs a topology file")
	}
	if n.Size > 0 && (n.Degree < 1 || n.Degree >= n.Size) {
		return errs.Config(op, "degree must be in [1, %d), got %d", n.Size, n.Degree)
	}
	if cfg.Protocols.BroadcastMode != "all" && cfg.Protocols.BroadcastMode != "sqrt" {
		return errs.Config(op, "unknown broadcast mode %q", cfg.Protocols.BroadcastMode)
	}
	for _, p := range cfg.Protocols.DandelionSpreadingProba {
		if p < 0 || p > 1 {
			return errs.Config(op, "spreading probability %v is outside [0, 1]", p)
		}
	}
	if cfg.Protocols.TORArms < 0 || cfg.Protocols.TORHops < 0 {
		return errs.Config(op, "tor arms and hops must not be negative")
	}
	for _, r := range cfg.Protocols.OnionRoutingRelayers {
		if r < 1 {
			return errs.Config(op, "onion routing needs at least one relayer, got %d", r)
		}
	}
	if len(cfg.Adversary.Ratios) == 0 {
		return errs.Config(op, "no adversary ratio given")
	}
	for _, r := range cfg.Adversary.Ratios {
		if r < 0 || r >= 1 {
			return errs.Config(op, "adversary ratio %v is outside [0, 1)", r)
		}
	}
	s := cfg.Simulation
	if s.MessageFraction <= 0 || s.MessageFraction > 1 {
		return errs.Config(op, "message fraction %v is outside (0, 1]", s.MessageFraction)
	}
	if s.CoverageThreshold <= 0 || s.CoverageThreshold > 1 {
		return errs.Config(op, "coverage threshold %v is outside (0, 1]", s.CoverageThreshold)
	}
	if s.MaxTrials < 1 || s.Trials < 1 {
		return errs.Config(op, "max trials and trials must be positive")
	}
	if len(s.Estimators) == 0 {
		return errs.Config(op, "no estimator given")
	}
	if cfg.Output.Workers < 0 {
		return errs.Config(op, "workers must not be negative, got %d", cfg.Output.Workers)
	}
	return nil
}
