package kafka

import "time"

// WriterConfig tunes batching and timeouts of the outcome writer. It is
// embedded in the kafka.producer section of the YAML config.
type WriterConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" default:"3" validate:"min=1"`
	Linger       time.Duration `yaml:"linger" default:"200ms"`
	BatchBytes   int           `yaml:"batch_bytes" default:"1048576" validate:"min=1"`
	BatchSize    int           `yaml:"batch_size" default:"200" validate:"min=1"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
}

// ProducerOption configures Producer.
type ProducerOption func(*ProducerConfig)

// ProducerConfig holds producer configuration.
type ProducerConfig struct {
	Brokers      []string
	RequiredAcks int
	Compression  string
	Writer       WriterConfig
}

func WithBrokers(brokers []string) ProducerOption {
	return func(c *ProducerConfig) {
		c.Brokers = brokers
	}
}

// WithCompression sets the codec: gzip, snappy, lz4 or zstd.
func WithCompression(compression string) ProducerOption {
	return func(c *ProducerConfig) {
		c.Compression = compression
	}
}

// WithRequiredAcks sets required acknowledgements (-1 = all).
func WithRequiredAcks(acks int) ProducerOption {
	return func(c *ProducerConfig) {
		c.RequiredAcks = acks
	}
}

// WithWriter replaces the batching settings. Zero fields keep their defaults.
func WithWriter(w WriterConfig) ProducerOption {
	return func(c *ProducerConfig) {
		if w.MaxAttempts > 0 {
			c.Writer.MaxAttempts = w.MaxAttempts
		}
		if w.Linger > 0 {
			c.Writer.Linger = w.Linger
		}
		if w.BatchBytes > 0 {
			c.Writer.BatchBytes = w.BatchBytes
		}
		if w.BatchSize > 0 {
			c.Writer.BatchSize = w.BatchSize
		}
		if w.WriteTimeout > 0 {
			c.Writer.WriteTimeout = w.WriteTimeout
		}
		if w.ReadTimeout > 0 {
			c.Writer.ReadTimeout = w.ReadTimeout
		}
	}
}
