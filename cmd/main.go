package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yungbote/umls-graph-syncer/internal/changeset"
	"github.com/yungbote/umls-graph-syncer/internal/config"
	"github.com/yungbote/umls-graph-syncer/internal/download"
	"github.com/yungbote/umls-graph-syncer/internal/graph"
	"github.com/yungbote/umls-graph-syncer/internal/platform/logger"
	"github.com/yungbote/umls-graph-syncer/internal/platform/neo4jdb"
	"github.com/yungbote/umls-graph-syncer/internal/rrf"
	"github.com/yungbote/umls-graph-syncer/internal/snapshot"
	"github.com/yungbote/umls-graph-syncer/internal/syncer"
)

const usage = `usage: umls-graph-syncer <command> [flags]

commands:
  full-import       generate bulk-import CSVs and the neo4j-admin command
  init-meta         create constraints and the version marker after a bulk import
  incremental-sync  converge an initialized database onto a new release
`

func main() {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(2)
	}

	cfg, err := config.Load(log)
	if err != nil {
		log.Error("config load failed", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	switch os.Args[1] {
	case "full-import":
		err = runFullImport(ctx, cfg, log, os.Args[2:])
	case "init-meta":
		err = runInitMeta(ctx, cfg, log, os.Args[2:])
	case "incremental-sync":
		err = runIncrementalSync(ctx, cfg, log, os.Args[2:])
	default:
		fmt.Print(usage)
		os.Exit(2)
	}
	if err != nil {
		log.Error("command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func versionFlag(name string, args []string) (string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	version := fs.String("version", "", "UMLS release version (e.g. 2025AA)")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if *version == "" {
		return "", fmt.Errorf("%s: -version is required", name)
	}
	return *version, nil
}

// extractSnapshot downloads the release when needed and parses it into load
// records, returning the META dir so callers can reach the change lists.
func extractSnapshot(ctx context.Context, cfg config.Config, log *logger.Logger, version string) (string, *snapshot.RecordSet, error) {
	metaDir, err := download.New(cfg.UMLSAPIKey, cfg.DownloadDir, log).Fetch(ctx, version)
	if err != nil {
		return "", nil, err
	}
	snap, err := rrf.NewParser(metaDir, cfg, log).ParseAll(ctx)
	if err != nil {
		return "", nil, err
	}
	return metaDir, snapshot.Build(snap), nil
}

func writeSnapshot(cfg config.Config, log *logger.Logger, rs *snapshot.RecordSet, version string) error {
	if cfg.ImportDir == "" {
		return fmt.Errorf("NEO4J_IMPORT_DIR is required")
	}
	w, err := snapshot.NewWriter(cfg.ImportDir, log)
	if err != nil {
		return err
	}
	return w.WriteAll(rs, version)
}

func runFullImport(ctx context.Context, cfg config.Config, log *logger.Logger, args []string) error {
	version, err := versionFlag("full-import", args)
	if err != nil {
		return err
	}
	_, rs, err := extractSnapshot(ctx, cfg, log, version)
	if err != nil {
		return err
	}
	if err := writeSnapshot(cfg, log, rs, version); err != nil {
		return err
	}

	fmt.Println("Stop the target database, then run:")
	fmt.Println()
	fmt.Println(snapshot.BulkImportCommand(cfg.Neo4j.Database))
	fmt.Println()
	fmt.Printf("After restarting the database, run: umls-graph-syncer init-meta -version %s\n", version)
	return nil
}

func runInitMeta(ctx context.Context, cfg config.Config, log *logger.Logger, args []string) error {
	version, err := versionFlag("init-meta", args)
	if err != nil {
		return err
	}
	client, err := neo4jdb.New(cfg.Neo4j, log)
	if err != nil {
		return err
	}
	defer client.Close(ctx)

	store := graph.NewNeo4jStore(client, log, cfg.BatchSize)
	eng := syncer.New(store, log)
	if err := store.EnsureConstraints(ctx); err != nil {
		return err
	}
	if err := store.SetVersion(ctx, version, eng.RunID()); err != nil {
		return err
	}
	log.Info("metadata initialized, database ready for incremental syncs", "version", version)
	return nil
}

func runIncrementalSync(ctx context.Context, cfg config.Config, log *logger.Logger, args []string) error {
	version, err := versionFlag("incremental-sync", args)
	if err != nil {
		return err
	}
	client, err := neo4jdb.New(cfg.Neo4j, log)
	if err != nil {
		return err
	}
	defer client.Close(ctx)

	store := graph.NewNeo4jStore(client, log, cfg.BatchSize)

	// Pre-flight: refuse to sync a database that was never initialized.
	current, err := store.Version(ctx)
	if err != nil {
		return err
	}
	if current == "" {
		return fmt.Errorf("no version marker found; run full-import and init-meta first")
	}
	log.Info("starting incremental sync", "from_version", current, "to_version", version)

	metaDir, rs, err := extractSnapshot(ctx, cfg, log, version)
	if err != nil {
		return err
	}
	if cfg.ImportDir != "" {
		if err := writeSnapshot(cfg, log, rs, version); err != nil {
			return err
		}
	}

	deletions, err := changeset.ReadDeletions(filepath.Join(metaDir, changeset.DeletedCUIFile), log)
	if err != nil {
		return err
	}
	merges, err := changeset.ReadMerges(filepath.Join(metaDir, changeset.MergedCUIFile), log)
	if err != nil {
		return err
	}

	eng := syncer.New(store, log)
	changes := syncer.ChangeSet{Deletions: deletions, Merges: merges}
	if err := eng.Sync(ctx, rs, changes, version); err != nil {
		return err
	}
	log.Info("incremental sync complete", "version", version)
	return nil
}
