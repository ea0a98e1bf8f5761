package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/erenbertr/op3-sub001/internal/config"
	_ "github.com/erenbertr/op3-sub001/internal/database"
	"github.com/erenbertr/op3-sub001/internal/services/chat"
	"github.com/erenbertr/op3-sub001/internal/services/provider"
	"github.com/erenbertr/op3-sub001/internal/services/stats"
	"github.com/erenbertr/op3-sub001/internal/services/user"
	"github.com/erenbertr/op3-sub001/internal/services/workspace"
	runtimeconfig "github.com/erenbertr/op3-sub001/pkg/config"
	"github.com/erenbertr/op3-sub001/pkg/encryption"
	"github.com/erenbertr/op3-sub001/pkg/logger"
	"github.com/erenbertr/op3-sub001/pkg/storage"
)

var (
	Version   = "dev"     // Default version for development
	GitCommit = "unknown" // Git commit hash
	BuildTime = "unknown" // Build timestamp
)

var (
	configFile     = pflag.String("config", "config.yaml", "Configuration file path")
	testConfigFlag = pflag.Bool("test-config", false, "Test the storage configuration and exit")
	versionFlag    = pflag.Bool("version", false, "Show version information and exit")
)

func printVersionInfo() {
	fmt.Printf("op3 server v%s\n", Version)
	fmt.Printf("Built: %s, from commit: %s\n", BuildTime, GitCommit)
	fmt.Printf("Go version: %s\n", runtime.Version())
	fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

func main() {
	pflag.Parse()

	if *versionFlag {
		printVersionInfo()
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := logger.New("server", Version)

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Read-only configuration probe: connect, ping, report, exit.
	if *testConfigFlag {
		probeCtx, probeCancel := context.WithTimeout(ctx, 30*time.Second)
		defer probeCancel()

		result := storage.TestConfig(probeCtx, cfg.Storage)
		if !result.Success {
			log.Errorf("Configuration test failed: %s", result.Message)
			os.Exit(1)
		}
		log.Infof("Configuration test passed: %s", result.Message)
		os.Exit(0)
	}

	server := &Server{
		config:  cfg,
		runtime: runtimeconfig.New(),
		logger:  log,
		store:   storage.NewManager(storage.WithLogger(log)),
	}

	if err := server.Run(ctx); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}

type Server struct {
	config  *config.Config
	runtime *runtimeconfig.Config
	logger  *logger.Logger
	store   *storage.Manager

	users      *user.Service
	providers  *provider.Service
	workspaces *workspace.Service
	chats      *chat.Service
	stats      *stats.Service
}

func (s *Server) Run(ctx context.Context) error {
	s.logger.Infof("Starting op3 server on %s:%d", s.config.Server.Host, s.config.Server.Port)

	s.runtime.Update(s.config.Flatten())

	if err := s.store.Configure(s.config.Storage); err != nil {
		return fmt.Errorf("failed to configure storage: %w", err)
	}

	// Provision every table up front. First use would self-heal anyway,
	// but failing here surfaces a broken schema before traffic arrives.
	if err := s.provisionTables(ctx); err != nil {
		return err
	}

	encryptor := encryption.NewSecretManager()
	s.users = user.NewService(s.store, s.logger)
	s.providers = provider.NewService(s.store, s.logger, encryptor)
	s.workspaces = workspace.NewService(s.store, s.logger)
	s.chats = chat.NewService(s.store, s.logger)
	s.stats = stats.NewService(s.store, s.logger)

	s.logger.Info("Server started successfully")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	reloadCh := make(chan os.Signal, 1)
	signal.Notify(reloadCh, syscall.SIGHUP)

	for {
		select {
		case <-reloadCh:
			s.reloadConfig()
		case <-sigCh:
			s.logger.Info("Received shutdown signal")
			return s.shutdown()
		case <-ctx.Done():
			s.logger.Info("Context cancelled")
			return s.shutdown()
		}
	}
}

// provisionTables runs the idempotent provisioning path for every table the
// domain services own.
func (s *Server) provisionTables(ctx context.Context) error {
	tables := []*storage.TableDefinition{
		user.Table,
		provider.KeysTable,
		provider.ModelsTable,
		workspace.Table,
		workspace.GroupsTable,
		chat.SessionsTable,
		chat.MessagesTable,
		stats.Table,
	}

	for _, table := range tables {
		if err := s.store.EnsureProvisioned(ctx, table); err != nil {
			return fmt.Errorf("failed to provision table %q: %w", table.Name, err)
		}
	}

	s.logger.Infof("Provisioned %d tables on %s", len(tables), s.config.Storage.Kind)
	return nil
}

// reloadConfig re-reads the configuration file on SIGHUP. Storage settings
// cannot change while the process runs; a changed restart key is reported
// and ignored until the operator restarts.
func (s *Server) reloadConfig() {
	s.logger.Info("Reloading configuration")

	cfg, err := config.Load(*configFile)
	if err != nil {
		s.logger.Errorf("Failed to reload config, keeping current settings: %v", err)
		return
	}

	previous := s.runtime.GetAll()
	s.runtime.Update(cfg.Flatten())
	if s.runtime.RequiresRestart(previous) {
		s.logger.Warn("Changed settings include storage or server keys; restart required for them to take effect")
		return
	}

	s.config.Logging = cfg.Logging
	s.logger.Info("Configuration reloaded")
}

func (s *Server) shutdown() error {
	s.logger.Info("Starting graceful shutdown")

	if err := s.store.Close(); err != nil {
		s.logger.Errorf("Error closing storage connection: %v", err)
		return err
	}

	s.logger.Info("Server shutdown complete")
	return nil
}
