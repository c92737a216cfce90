package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/routeact/routeact/codeact"
	"github.com/routeact/routeact/config"
	"github.com/routeact/routeact/llm"
	"github.com/routeact/routeact/pipeline"
	"github.com/routeact/routeact/react"
	"github.com/routeact/routeact/registry"
	"github.com/routeact/routeact/route"
	"github.com/routeact/routeact/synth"
)

// exampleRequests is the demonstration battery the root command runs:
// one single-tool task, one composite task, one database task.
var exampleRequests = []string{
	"What's the weather in Lisbon?",
	"What's the weather in Porto and calculate the sum of 10 and 5?",
	"List the tables in the travel database",
}

var (
	cfgFile string
	envFile string
)

// Execute is the CLI entry point.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRootCmd wires the cobra tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "routeact",
		Short:         "Adaptive task executor over subprocess tool services",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runExamples,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "routeact.yaml", "path to the configuration file")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "path to the dotenv file with API keys")

	root.AddCommand(newServeCmd())
	return root
}

func runExamples(cmd *cobra.Command, args []string) error {
	// Secrets come from the environment; the dotenv file is a convenience
	// and its absence is fine.
	_ = godotenv.Load(envFile)
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is not set")
	}
	if os.Getenv("OPENWEATHER_API_KEY") == "" {
		return fmt.Errorf("OPENWEATHER_API_KEY is not set")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync()
	log := &zapLogf{sugar: logger.Sugar()}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	orch, cleanup, err := buildOrchestrator(cfg, apiKey, log)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	failed := 0
	for _, request := range exampleRequests {
		fmt.Printf("\n> %s\n", request)
		st, err := orch.Run(ctx, request)
		if err != nil {
			failed++
			log.sugar.Errorw("task failed", "request", request, "error", err)
			fmt.Printf("[failed: %v]\n", err)
			continue
		}
		log.sugar.Infow("task done",
			"strategy", string(st.Strategy),
			"complexity", string(st.Complexity),
			"candidates", st.CandidateNames(),
		)
		fmt.Println(st.FinalAnswer)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d example tasks failed", failed, len(exampleRequests))
	}
	return nil
}

func buildOrchestrator(cfg config.Config, apiKey string, log *zapLogf) (*pipeline.Orchestrator, func(), error) {
	var modelOpts []llm.AnthropicOption
	if cfg.Model.Name != "" {
		modelOpts = append(modelOpts, llm.WithModel(cfg.Model.Name))
	}
	if cfg.Model.MaxTokens > 0 {
		modelOpts = append(modelOpts, llm.WithMaxTokens(int64(cfg.Model.MaxTokens)))
	}
	modelOpts = append(modelOpts, llm.WithLogger(log))
	completer, err := llm.NewAnthropic(apiKey, modelOpts...)
	if err != nil {
		return nil, nil, err
	}

	services := make([]registry.Service, 0, len(cfg.Services))
	for _, spec := range cfg.Services {
		svc := registry.NewMCPService(spec.Name, spec.Command, spec.Args...)
		if len(spec.Env) > 0 {
			svc.SetEnv(spec.Env)
		}
		services = append(services, svc)
	}
	reg := registry.New(services...)
	reg.SetLogger(log)

	discoverCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := reg.Discover(discoverCtx); err != nil {
		return nil, nil, err
	}
	log.sugar.Infow("tools discovered", "tools", reg.Names())

	retriever, err := buildRetriever(cfg, reg)
	if err != nil {
		reg.Close()
		return nil, nil, err
	}

	retry := llm.RetryPolicy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay.Std(),
	}
	orch := &pipeline.Orchestrator{
		Registry: reg,
		Router: &route.Router{
			Registry:      reg,
			Retriever:     retriever,
			MaxCandidates: cfg.Retrieval.MaxCandidates,
			Logger:        log,
		},
		React: &react.Executor{Completer: completer, Logger: log},
		CodeAct: &codeact.Executor{
			Completer: completer,
			Engine:    codeact.NewGojaEngine(),
			Budget:    cfg.ScriptBudget.Std(),
			Logger:    log,
		},
		Synth:  &synth.Synthesizer{Completer: completer, Retry: retry, Logger: log},
		Logger: log,
	}
	cleanup := func() {
		if closer, ok := retriever.(interface{ Close() error }); ok {
			closer.Close()
		}
		reg.Close()
	}
	return orch, cleanup, nil
}

func buildRetriever(cfg config.Config, reg *registry.Registry) (route.Retriever, error) {
	switch cfg.Retrieval.Engine {
	case "", "keyword":
		return route.NewKeywordRetriever(reg.All(), route.DefaultKeywordHints()), nil
	case "index":
		return route.NewIndexRetriever(reg.All(), route.DefaultKeywordHints(), cfg.Retrieval.MinScore)
	default:
		return nil, fmt.Errorf("unknown retrieval engine %q", cfg.Retrieval.Engine)
	}
}

// zapLogf adapts zap to the Logf interface the leaf packages accept.
type zapLogf struct {
	sugar *zap.SugaredLogger
}

func (l *zapLogf) Logf(format string, args ...any) {
	l.sugar.Infof(format, args...)
}
