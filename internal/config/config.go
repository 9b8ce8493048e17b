package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/umls-graph-syncer/internal/platform/envutil"
	"github.com/yungbote/umls-graph-syncer/internal/platform/logger"
)

// Neo4j holds connection settings for the target graph database.
type Neo4j struct {
	URI            string
	User           string
	Password       string
	Database       string
	TimeoutSeconds int
	MaxPoolSize    int
}

// Config is the immutable run configuration. It is loaded once in main and
// threaded explicitly through every component; nothing reads ambient state.
type Config struct {
	// Credentials for the UTS download API.
	UMLSAPIKey string

	// Extraction filters and preferred-name selection.
	Language      string
	SABFilter     []string
	SuppressFlags []string
	SABPriority   []string

	// Parallelism and store batching.
	MaxParallelWorkers int
	BatchSize          int

	// Directories.
	ImportDir   string
	DownloadDir string

	Neo4j Neo4j
}

// fileOverrides is the optional YAML shape pointed at by SYNCER_CONFIG_FILE.
// Only the list-valued filter settings can be overridden from file; everything
// else stays env-driven.
type fileOverrides struct {
	Language      string   `yaml:"language"`
	SABFilter     []string `yaml:"sab_filter"`
	SuppressFlags []string `yaml:"suppress_flags"`
	SABPriority   []string `yaml:"sab_priority"`
}

func defaultSABFilter() []string {
	return []string{"RXNORM", "SNOMEDCT_US", "MTH", "MSH", "LNC"}
}

func defaultSABPriority() []string {
	return []string{
		"RXNORM", "SNOMEDCT_US", "MTH", "MSH", "LNC", "GO", "HGNC",
		"NCBI", "OMIM", "ICD10CM", "CPT",
	}
}

func Load(log *logger.Logger) (Config, error) {
	cfg := Config{
		UMLSAPIKey:         envutil.GetEnv("UMLS_API_KEY", "", log),
		Language:           envutil.GetEnv("UMLS_LANGUAGE", "ENG", log),
		SABFilter:          envutil.GetEnvAsSlice("UMLS_SAB_FILTER", defaultSABFilter(), log),
		SuppressFlags:      envutil.GetEnvAsSlice("UMLS_SUPPRESS_FLAGS", []string{"O", "E"}, log),
		SABPriority:        envutil.GetEnvAsSlice("UMLS_SAB_PRIORITY", defaultSABPriority(), log),
		MaxParallelWorkers: envutil.GetEnvAsInt("MAX_PARALLEL_WORKERS", 4, log),
		BatchSize:          envutil.GetEnvAsInt("GRAPH_BATCH_SIZE", 10000, log),
		ImportDir:          envutil.GetEnv("NEO4J_IMPORT_DIR", "", log),
		DownloadDir:        envutil.GetEnv("UMLS_DOWNLOAD_DIR", "./umls_download", log),
		Neo4j: Neo4j{
			URI:            envutil.GetEnv("NEO4J_URI", "neo4j://localhost:7687", log),
			User:           envutil.GetEnv("NEO4J_USER", "neo4j", log),
			Password:       envutil.GetEnv("NEO4J_PASSWORD", "password", log),
			Database:       envutil.GetEnv("NEO4J_DATABASE", "neo4j", log),
			TimeoutSeconds: envutil.GetEnvAsInt("NEO4J_TIMEOUT_SECONDS", 10, log),
			MaxPoolSize:    envutil.GetEnvAsInt("NEO4J_MAX_POOL_SIZE", 50, log),
		},
	}

	if path := envutil.GetEnv("SYNCER_CONFIG_FILE", "", log); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, fmt.Errorf("config: apply %s: %w", path, err)
		}
		if log != nil {
			log.Info("applied config file overrides", "path", path)
		}
	}

	if cfg.MaxParallelWorkers < 1 {
		cfg.MaxParallelWorkers = 1
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var ov fileOverrides
	if err := yaml.Unmarshal(raw, &ov); err != nil {
		return err
	}
	if ov.Language != "" {
		c.Language = ov.Language
	}
	if len(ov.SABFilter) > 0 {
		c.SABFilter = ov.SABFilter
	}
	if len(ov.SuppressFlags) > 0 {
		c.SuppressFlags = ov.SuppressFlags
	}
	if len(ov.SABPriority) > 0 {
		c.SABPriority = ov.SABPriority
	}
	return nil
}
