package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matiasleandrokruk/promptlab/internal/console"
	"github.com/matiasleandrokruk/promptlab/internal/domain/profile"
	"github.com/matiasleandrokruk/promptlab/internal/domain/session"
	"github.com/matiasleandrokruk/promptlab/internal/infra/config"
	"github.com/matiasleandrokruk/promptlab/internal/infra/eventbus"
	"github.com/matiasleandrokruk/promptlab/internal/infra/llm"
	"github.com/matiasleandrokruk/promptlab/internal/infra/logging"
	"github.com/matiasleandrokruk/promptlab/internal/version"
)

const profileSourceTimeout = 5 * time.Second

// providerFactory builds a provider by name; tests replace it with stubs.
type providerFactory func(name string, opts llm.Options) (llm.LLMProvider, error)

// app carries the streams, the loaded configuration and the global flags
// shared by every command.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	envFile   string
	provider  string
	model     string
	logLevel  string
	cfg       config.Config
	logger    *slog.Logger
	newLLM    providerFactory
	retryBase time.Duration
}

func newApp(in io.Reader, out, errOut io.Writer) *app {
	return &app{in: in, out: out, errOut: errOut, newLLM: llm.New}
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "promptlab",
		Short:         "Chat, classify, extract and search with LLM providers",
		Long:          "promptlab talks to Groq, OpenRouter, Mistral, OpenAI or Ollama: a profiles chatbot, one-shot questions, structured extraction and semantic search over a PDF.",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.loadConfig()
		},
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)
	root.SetVersionTemplate(version.String() + "\n")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return &usageError{err: err} })

	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file read before the environment")
	root.PersistentFlags().StringVarP(&a.provider, "provider", "p", "", "chat provider (groq, openrouter, mistral, openai, ollama); overrides LLM_PROVIDER")
	root.PersistentFlags().StringVarP(&a.model, "model", "m", "", "chat model; overrides MODEL_NAME")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error; overrides LOG_LEVEL")

	root.AddCommand(
		a.askCommand(),
		a.chatCommand(),
		a.classifyCommand(),
		a.extractCommand(),
		a.searchCommand(),
		a.profilesCommand(),
		a.serveCommand(),
		a.mcpCommand(),
		a.tokenCommand(),
		a.versionCommand(),
	)
	return root
}

func (a *app) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return err
		},
	}
}

// loadConfig reads .env and the environment, then applies the global flags.
func (a *app) loadConfig() error {
	cfg, err := config.Load(a.envFile)
	if err != nil {
		return err
	}
	if a.provider != "" {
		cfg.LLMProvider = strings.ToLower(a.provider)
	}
	if a.model != "" {
		cfg.Model = a.model
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logging.New(a.errOut, cfg.LogLevel, cfg.LogFormat)
	return nil
}

// chatProvider builds the configured chat provider wrapped with retries.
// A missing key is a *config.ConfigError unless askKey is set and stdin is a
// terminal, in which case the key is read without echo.
func (a *app) chatProvider(askKey bool) (llm.LLMProvider, error) {
	name := a.cfg.LLMProvider
	key, err := a.cfg.RequireProviderKey(name)
	if err != nil {
		if !askKey {
			return nil, err
		}
		key, err = console.ReadSecret(a.in, a.errOut, fmt.Sprintf("Enter API key for %s: ", name))
		if err != nil || key == "" {
			return nil, &config.ConfigError{Var: config.KeyVar(name), Msg: "not set and no key entered"}
		}
		a.cfg = a.cfg.WithProviderKey(name, key)
	}
	return a.build(name, key, a.cfg.ChatModel(name), "")
}

// embedProvider builds the configured embedding provider wrapped with retries.
func (a *app) embedProvider() (llm.LLMProvider, error) {
	name := a.cfg.EmbedProvider
	key, err := a.cfg.RequireProviderKey(name)
	if err != nil {
		return nil, err
	}
	return a.build(name, key, a.cfg.ChatModel(name), a.cfg.EmbedModel)
}

func (a *app) build(name, key, model, embedModel string) (llm.LLMProvider, error) {
	p, err := a.newLLM(name, llm.Options{
		APIKey:        key,
		Model:         model,
		EmbedModel:    embedModel,
		BaseURL:       a.cfg.LLMBaseURL,
		OllamaBaseURL: a.cfg.OllamaBaseURL,
		Timeout:       a.cfg.Timeout(),
	})
	if err != nil {
		return nil, err
	}
	return llm.NewRetryingProvider(p, a.cfg.LLMMaxRetries, a.retryBase, a.logger), nil
}

// contextSource returns the profile source, or nil when PROFILE_SOURCE=none.
func (a *app) contextSource() session.ContextSource {
	if a.cfg.ProfileSource == "none" {
		return nil
	}
	return profile.SourceFor(a.profileOptions())
}

func (a *app) profileOptions() profile.Options {
	return profile.Options{
		Kind:        a.cfg.ProfileSource,
		MongoURL:    a.cfg.MongoURL,
		DBName:      a.cfg.DBName,
		Collection:  a.cfg.CollectionName,
		SQLitePath:  a.cfg.SQLitePath,
		DatabaseURL: a.cfg.DatabaseURL,
		Timeout:     profileSourceTimeout,
	}
}

func (a *app) sessionConfig(bus eventbus.EventBus) session.Config {
	return session.Config{
		Model:       a.cfg.ChatModel(a.cfg.LLMProvider),
		HistoryMode: session.ParseHistoryMode(a.cfg.HistoryMode),
		Bus:         bus,
		Logger:      a.logger,
	}
}

// readInput returns args joined by spaces, or one line of stdin when there
// are no args, or fallback when both are empty.
func (a *app) readInput(args []string, fallback string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if console.IsTerminal(a.in) {
		return fallback, nil
	}
	line, err := console.ReadLine(a.in)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(line) == "" {
		return fallback, nil
	}
	return line, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
