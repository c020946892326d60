package processing

type Config struct {
	// Parallelism is the number of workers transcribing concurrently.
	// Each job holds one downloaded file and one WAV on disk while it
	// runs, so this also bounds temp-dir usage.
	Parallelism int `yaml:"parallelism" env:"PROCESSING_PARALLELISM" env-default:"2"`

	// RetainCompleted is the number of terminal (complete or troubled)
	// jobs kept in memory for the API; older ones are pruned as new
	// jobs are enqueued. The history store keeps the durable record.
	RetainCompleted int `yaml:"retain_completed" env:"PROCESSING_RETAIN_COMPLETED" env-default:"100"`
}
