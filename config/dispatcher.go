package config

import "time"

// DispatcherConfig contains the application dispatcher worker pool configuration.
type DispatcherConfig struct {
	// Workers is the number of concurrent application runs.
	Workers int `env:"DISPATCHER_WORKERS" envDefault:"4"`

	// QueueSize is the capacity of the pending run queue. When the queue is
	// full, new submissions are rejected rather than buffered unboundedly.
	QueueSize int `env:"DISPATCHER_QUEUE_SIZE" envDefault:"64"`

	// RunTimeout is the maximum wall-clock duration for a single automation run.
	RunTimeout time.Duration `env:"DISPATCHER_RUN_TIMEOUT" envDefault:"15m"`

	// ResultSummaryExpr is an optional JMESPath expression applied to the raw
	// runner result to extract the summary stored on the application record.
	// When empty, the raw result is stored as-is.
	ResultSummaryExpr string `env:"RESULT_SUMMARY_EXPR" envDefault:""`
}

// Sanitize applies guardrails to dispatcher configuration values.
func (d *DispatcherConfig) Sanitize() {
	if d.Workers < 1 {
		d.Workers = 1
	}
	if d.QueueSize < 1 {
		d.QueueSize = 1
	}
	if d.RunTimeout < 30*time.Second {
		d.RunTimeout = 30 * time.Second
	}
}

// RunnerConfig contains configuration for the external browser automation agent.
type RunnerConfig struct {
	// AgentURL is the base URL of the browser automation agent service.
	AgentURL string `env:"RUNNER_AGENT_URL" envDefault:"http://localhost:9090"`

	// RequestTimeout bounds a single HTTP request to the agent. The overall
	// run is additionally bounded by DispatcherConfig.RunTimeout.
	RequestTimeout time.Duration `env:"RUNNER_REQUEST_TIMEOUT" envDefault:"20m"`
}

// Sanitize applies guardrails to runner configuration values.
func (r *RunnerConfig) Sanitize() {
	if r.RequestTimeout < time.Minute {
		r.RequestTimeout = time.Minute
	}
}
