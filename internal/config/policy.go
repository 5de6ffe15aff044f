package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// PolicyConfig carries alerting defaults applied when a covenant's alert
// configuration leaves a knob unset, plus batch tuning for compliance runs.
type PolicyConfig struct {
	DefaultApproachingThreshold float64        `mapstructure:"defaultApproachingThreshold"`
	DefaultTrendPeriod          int            `mapstructure:"defaultTrendPeriod"`
	DefaultTrendThreshold       float64        `mapstructure:"defaultTrendThreshold"`
	Evaluation                  EvaluationKnob `mapstructure:"evaluation"`
	Dispatch                    DispatchKnob   `mapstructure:"dispatch"`
}

type EvaluationKnob struct {
	BatchSize   int `mapstructure:"batchSize"`
	WorkerCount int `mapstructure:"workerCount"`
}

type DispatchKnob struct {
	MaxAttempts  int           `mapstructure:"maxAttempts"`
	RetryBackoff time.Duration `mapstructure:"retryBackoff"`
}

func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		DefaultApproachingThreshold: 10,
		DefaultTrendPeriod:          4,
		DefaultTrendThreshold:       0.05,
		Evaluation: EvaluationKnob{
			BatchSize:   50,
			WorkerCount: 4,
		},
		Dispatch: DispatchKnob{
			MaxAttempts:  3,
			RetryBackoff: 5 * time.Minute,
		},
	}
}

// PolicyHolder hot-reloads covenant.yml and swaps the config atomically.
type PolicyHolder struct {
	current atomic.Value // holds PolicyConfig
}

func NewPolicyHolder() (*PolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("covenant")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/covena/config") // Volume-mounted config
	v.AddConfigPath("/etc/covena")            // System config
	v.AddConfigPath(".")                      // Current directory (dev mode)

	v.SetEnvPrefix("COVENA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPolicyConfig()
	v.SetDefault("policy.defaultApproachingThreshold", defaults.DefaultApproachingThreshold)
	v.SetDefault("policy.defaultTrendPeriod", defaults.DefaultTrendPeriod)
	v.SetDefault("policy.defaultTrendThreshold", defaults.DefaultTrendThreshold)
	v.SetDefault("policy.evaluation.batchSize", defaults.Evaluation.BatchSize)
	v.SetDefault("policy.evaluation.workerCount", defaults.Evaluation.WorkerCount)
	v.SetDefault("policy.dispatch.maxAttempts", defaults.Dispatch.MaxAttempts)
	v.SetDefault("policy.dispatch.retryBackoff", defaults.Dispatch.RetryBackoff)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg PolicyConfig
	if err := v.UnmarshalKey("policy", &cfg); err != nil {
		return nil, err
	}
	if err := validatePolicyConfig(cfg); err != nil {
		return nil, err
	}

	holder := &PolicyHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PolicyConfig
		if err := v.UnmarshalKey("policy", &updated); err != nil {
			log.Printf("[covenant-policy] reload failed: %v", err)
			return
		}
		if err := validatePolicyConfig(updated); err != nil {
			log.Printf("[covenant-policy] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[covenant-policy] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *PolicyHolder) Get() PolicyConfig {
	return h.current.Load().(PolicyConfig)
}

// NewStaticPolicyHolder returns a holder pinned to cfg, for tests.
func NewStaticPolicyHolder(cfg PolicyConfig) *PolicyHolder {
	holder := &PolicyHolder{}
	holder.current.Store(cfg)
	return holder
}

func validatePolicyConfig(cfg PolicyConfig) error {
	if cfg.DefaultApproachingThreshold < 0 || cfg.DefaultApproachingThreshold > 100 {
		return errors.New("policy.defaultApproachingThreshold must be within [0, 100]")
	}
	if cfg.DefaultTrendPeriod < 2 {
		return errors.New("policy.defaultTrendPeriod must be at least 2")
	}
	if cfg.Evaluation.BatchSize <= 0 {
		return errors.New("policy.evaluation.batchSize must be positive")
	}
	if cfg.Evaluation.WorkerCount <= 0 {
		return errors.New("policy.evaluation.workerCount must be positive")
	}
	return nil
}
