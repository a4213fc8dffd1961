// Package main provides the CLI entry point for cortex-chat.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/normanking/cortexchat/internal/audio"
	"github.com/normanking/cortexchat/internal/bus"
	"github.com/normanking/cortexchat/internal/config"
	"github.com/normanking/cortexchat/internal/discovery"
	"github.com/normanking/cortexchat/internal/llm"
	"github.com/normanking/cortexchat/internal/logging"
	"github.com/normanking/cortexchat/internal/models"
	"github.com/normanking/cortexchat/internal/session"
	"github.com/normanking/cortexchat/internal/stt"
	"github.com/normanking/cortexchat/internal/tts"
)

// Version information (set at build time)
var version = "dev"

type flags struct {
	configPath     string
	model          string
	captureSeconds int
	sampleRate     int
	logLevel       string
}

func main() {
	f := &flags{}

	rootCmd := &cobra.Command{
		Use:   "cortex-chat",
		Short: "Talk to a local language model from the terminal",
		Long: `cortex-chat is an interactive assistant for local language models.

Pick an installed model, then converse by typing or by speaking into the
microphone. Replies are printed and, when a speech engine is available,
read out loud. Everything runs against local engines: Ollama for the
model, whisper for transcription, piper for speech.`,
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(f)
		},
	}

	rootCmd.Flags().StringVarP(&f.configPath, "config", "c", "", "config file (default ~/.cortexchat/config.yaml)")
	rootCmd.Flags().StringVarP(&f.model, "model", "m", "", "model to use; skips the selection prompt when installed")
	rootCmd.Flags().IntVar(&f.captureSeconds, "capture-seconds", 0, "microphone capture window in seconds")
	rootCmd.Flags().IntVar(&f.sampleRate, "sample-rate", 0, "microphone sample rate in Hz")
	rootCmd.Flags().StringVar(&f.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(f *flags) error {
	_ = godotenv.Load()

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	applyFlags(cfg, f)

	logCfg := logging.DefaultConfig()
	if cfg.Logging.Dir != "" {
		logCfg.LogDir = cfg.Logging.Dir
	}
	if cfg.Logging.Level != "" {
		logCfg.Level = logging.LogLevel(cfg.Logging.Level)
	}
	logCfg.Console = cfg.Logging.Console

	logger, err := logging.New(logCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logger.Close()

	eventBus := bus.NewEventBus()

	audioMgr := audio.NewManager(&audio.AudioConfig{
		InputDevice:    cfg.Audio.InputDevice,
		OutputDevice:   cfg.Audio.OutputDevice,
		SampleRate:     cfg.Audio.SampleRate,
		Channels:       cfg.Audio.Channels,
		BitDepth:       cfg.Audio.BitDepth,
		CaptureSeconds: cfg.Audio.CaptureSeconds,
		SilenceRMS:     cfg.Audio.SilenceRMS,
		Recorder:       cfg.Audio.Recorder,
		Player:         cfg.Audio.Player,
	}, eventBus, logger.Component("audio"))

	llmProvider := buildLLMProvider(cfg, logger.Component("llm"))
	sttProvider := buildSTTProvider(cfg, logger.Component("stt"))
	speaker := buildTTSProvider(cfg, logger.Component("tts"), audioMgr)

	transcriber := session.NewEngineTranscriber(sttProvider, stt.NewTranscriptFilter(nil), cfg.STT.Language)

	execOpts := session.ExecutorOptions{
		Capturer:       audioMgr,
		Transcriber:    transcriber,
		Responder:      session.NewEngineResponder(llmProvider),
		EventBus:       eventBus,
		Out:            os.Stdout,
		Logger:         logger.Zerolog(),
		CaptureSeconds: cfg.Audio.CaptureSeconds,
	}
	if speaker != nil {
		execOpts.Speaker = speaker
	}

	registry, engine := buildRegistry(cfg)

	prober := discovery.NewProber(2*time.Second, logger.Zerolog())
	prober.Add(llmProvider.Name(), llmProvider.Health)
	prober.Add(sttProvider.Name(), sttProvider.Health)
	if speaker != nil {
		prober.Add(speaker.Name(), speaker.Health)
	}
	prober.Add("microphone", func(ctx context.Context) error {
		if !audioMgr.CaptureAvailable() {
			return audio.ErrNoRecorder
		}
		return nil
	})

	orch := session.NewOrchestrator(session.OrchestratorOptions{
		Executor:       session.NewExecutor(execOpts),
		Registry:       registry,
		Input:          os.Stdin,
		Out:            os.Stdout,
		EventBus:       eventBus,
		Prober:         prober,
		Logger:         logger.Zerolog(),
		Engine:         engine,
		DefaultModel:   cfg.LLM.DefaultModel,
		VoiceAvailable: audioMgr.CaptureAvailable(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := orch.Run(ctx); err != nil {
		zlog := logger.Zerolog()
		zlog.Error().Err(err).Msg("Session failed")
		return err
	}
	return nil
}

func applyFlags(cfg *config.Config, f *flags) {
	if f.model != "" {
		cfg.LLM.DefaultModel = f.model
	}
	if f.captureSeconds > 0 {
		cfg.Audio.CaptureSeconds = f.captureSeconds
	}
	if f.sampleRate > 0 {
		cfg.Audio.SampleRate = f.sampleRate
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}
}

func buildLLMProvider(cfg *config.Config, logger zerolog.Logger) llm.Provider {
	lc := llm.DefaultConfig()
	lc.Provider = cfg.LLM.Provider
	if cfg.LLM.Endpoint != "" {
		lc.Endpoint = cfg.LLM.Endpoint
	}
	lc.Model = cfg.LLM.DefaultModel
	lc.APIKey = cfg.LLM.APIKey
	lc.SystemPrompt = cfg.LLM.SystemPrompt
	if cfg.LLM.Timeout > 0 {
		lc.Timeout = cfg.LLM.Timeout
	}

	switch cfg.LLM.Provider {
	case "openai", "openai-compat":
		return llm.NewOpenAICompatProvider(lc, logger)
	default:
		return llm.NewOllamaProvider(lc, logger)
	}
}

func buildSTTProvider(cfg *config.Config, logger zerolog.Logger) stt.Provider {
	switch cfg.STT.Provider {
	case "whisper-cpp":
		sc := stt.DefaultWhisperCppConfig()
		if cfg.STT.BinPath != "" {
			sc.BinPath = cfg.STT.BinPath
		}
		if cfg.STT.ModelPath != "" {
			sc.ModelPath = cfg.STT.ModelPath
		}
		if cfg.STT.ModelSize != "" {
			sc.ModelSize = cfg.STT.ModelSize
		}
		if cfg.STT.Language != "" {
			sc.Language = cfg.STT.Language
		}
		if cfg.STT.NumThreads > 0 {
			sc.NumThreads = cfg.STT.NumThreads
		}
		return stt.NewWhisperCppProvider(sc, logger)
	case "vosk":
		sc := stt.DefaultVoskConfig()
		if cfg.STT.Endpoint != "" {
			sc.ServerURL = cfg.STT.Endpoint
		}
		if cfg.Audio.SampleRate > 0 {
			sc.SampleRate = cfg.Audio.SampleRate
		}
		return stt.NewVoskProvider(sc, logger)
	default:
		sc := stt.DefaultWhisperServerConfig()
		if cfg.STT.Endpoint != "" {
			sc.ServerURL = cfg.STT.Endpoint
		}
		if cfg.STT.Language != "" {
			sc.Language = cfg.STT.Language
		}
		return stt.NewWhisperServerProvider(sc, logger)
	}
}

// buildTTSProvider returns nil when no speech output can work here, in
// which case replies stay text only.
func buildTTSProvider(cfg *config.Config, logger zerolog.Logger, audioMgr *audio.Manager) tts.Provider {
	switch cfg.TTS.Provider {
	case "say":
		sc := tts.DefaultSayConfig()
		if cfg.TTS.Voice != "" {
			sc.Voice = cfg.TTS.Voice
		}
		p := tts.NewSayProvider(logger, sc)
		if !p.IsAvailable() {
			logger.Warn().Msg("say is not available on this platform, replies will be text only")
			return nil
		}
		return p
	case "piper-server":
		if !audioMgr.PlaybackAvailable() {
			logger.Warn().Msg("No audio player found, replies will be text only")
			return nil
		}
		pc := tts.DefaultPiperServerConfig()
		if cfg.TTS.Endpoint != "" {
			pc.ServerURL = cfg.TTS.Endpoint
		}
		return tts.NewPiperServerProvider(pc, audioMgr.Play, logger)
	default:
		if !audioMgr.PlaybackAvailable() {
			logger.Warn().Msg("No audio player found, replies will be text only")
			return nil
		}
		pc := tts.DefaultPiperConfig()
		if cfg.TTS.BinPath != "" {
			pc.BinaryPath = cfg.TTS.BinPath
		}
		if cfg.TTS.Voice != "" {
			pc.Voice = cfg.TTS.Voice
		}
		if cfg.TTS.Speed > 0 {
			pc.Speed = cfg.TTS.Speed
		}
		p := tts.NewPiperProvider(logger, pc, audioMgr.Play)
		if !p.IsAvailable() {
			logger.Warn().Msg("piper binary not found, replies will be text only")
			return nil
		}
		return p
	}
}

// buildRegistry picks the model discovery source. Ollama installs are
// enumerated live; openai-compatible servers get a static listing seeded
// from configuration since there is nothing local to scan.
func buildRegistry(cfg *config.Config) (*models.Registry, string) {
	registry := models.NewRegistry()

	switch cfg.LLM.Provider {
	case "openai", "openai-compat":
		var seed []models.ModelInfo
		if cfg.LLM.DefaultModel != "" {
			seed = append(seed, models.ModelInfo{
				ID:   cfg.LLM.DefaultModel,
				Name: cfg.LLM.DefaultModel,
			})
		}
		registry.Register(models.NewStaticProvider("openai", seed))
		return registry, "openai"
	default:
		registry.Register(models.NewOllamaProvider(cfg.LLM.Endpoint))
		return registry, "ollama"
	}
}
