package config

// Store backend names recognized in configuration files.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// GeneratorSettings is the recognized generator configuration.
type GeneratorSettings struct {
	// CapacityPerFile is the number of primes per checkpoint file.
	CapacityPerFile int

	// FilePrefix and FileExtension name the checkpoint files.
	FilePrefix    string
	FileExtension string

	// Directory is the storage directory for the file backend, or the
	// database path for the sqlite backend.
	Directory string

	// Store selects the backend: "file", "sqlite", or "memory".
	Store string

	// Workers bounds the trial-division worker pool (0 = NumCPU).
	Workers int

	// CacheBudget bounds the in-memory prime cache (0 = unbounded).
	CacheBudget int
}

// Generator extracts generator settings from a Config.
func Generator(c Config) GeneratorSettings {
	return GeneratorSettings{
		CapacityPerFile: c.Int("capacity_per_file", 10000),
		FilePrefix:      c.String("file_prefix", "PrimeNumbers"),
		FileExtension:   c.String("file_extension", ".txt"),
		Directory:       c.String("directory", "."),
		Store:           c.String("store", StoreFile),
		Workers:         c.Int("workers", 0),
		CacheBudget:     c.Int("cache_budget", 0),
	}
}
