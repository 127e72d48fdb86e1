// Arthur is a wake-word voice assistant: it listens for its name,
// records the request that follows, answers through a conversational
// backend, and speaks the reply. Alarms and timers are handled locally.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/normanking/arthur/internal/audio"
	"github.com/normanking/arthur/internal/config"
	"github.com/normanking/arthur/internal/llm"
	"github.com/normanking/arthur/internal/logging"
	"github.com/normanking/arthur/internal/schedule"
	"github.com/normanking/arthur/internal/session"
	"github.com/normanking/arthur/internal/stt"
	"github.com/normanking/arthur/internal/tts"
	"github.com/normanking/arthur/internal/wake"
	"github.com/normanking/arthur/internal/weather"
)

func main() {
	listDevices := flag.Bool("list-devices", false, "print capture devices and exit")
	textMode := flag.Bool("text", false, "type requests instead of speaking them")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if *listDevices {
		if err := printDevices(); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logCfg := logging.DefaultConfig()
	if *debug {
		logCfg.Level = logging.LevelDebug
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logging:", err)
		os.Exit(1)
	}
	defer logger.Close()

	log := logger.Component("main")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
		cancel()
	}()

	config.Watch(func(_ *config.Config) {
		log.Info().Msg("Configuration file changed, restart to apply")
	})

	if *textMode {
		if err := runTextMode(ctx, logger, cfg); err != nil {
			log.Fatal().Err(err).Msg("Text mode failed")
		}
		return
	}

	if err := run(ctx, logger, cfg); err != nil {
		log.Fatal().Err(err).Msg("Assistant failed")
	}
}

func run(ctx context.Context, logger *logging.Logger, cfg *config.Config) error {
	log := logger.Component("main")

	classifier, err := wake.NewPorcupineClassifier(wake.PorcupineConfig{
		AccessKey:   cfg.Wake.AccessKey,
		KeywordPath: cfg.Wake.KeywordPath,
		Sensitivity: cfg.Wake.Sensitivity,
	})
	if err != nil {
		return fmt.Errorf("wake classifier: %w (set wake.access_key and wake.keyword_path, or use --text)", err)
	}
	defer classifier.Close()

	if classifier.SampleRate() != cfg.Audio.SampleRate || classifier.FrameLength() != cfg.Audio.FrameSize {
		log.Warn().
			Int("engineRate", classifier.SampleRate()).
			Int("engineFrame", classifier.FrameLength()).
			Msg("Audio settings overridden by wake engine requirements")
		cfg.Audio.SampleRate = classifier.SampleRate()
		cfg.Audio.FrameSize = classifier.FrameLength()
	}

	device, err := audio.NewDevice(logger.Component("audio"), cfg.Audio.InputDevice)
	if err != nil {
		return fmt.Errorf("capture device: %w", err)
	}
	defer device.Close()

	if err := device.StartMonitor(cfg.Audio.SampleRate, cfg.Audio.FrameSize); err != nil {
		return fmt.Errorf("capture device: %w", err)
	}

	transcriber, err := buildTranscriber(logger, cfg)
	if err != nil {
		return err
	}
	backend := buildBackend(logger, cfg)
	speaker := buildSpeaker(logger, cfg)

	// Fail fast on dead collaborators before entering the loop.
	checkCtx, checkCancel := context.WithTimeout(ctx, 10*time.Second)
	defer checkCancel()
	if err := transcriber.Health(checkCtx); err != nil {
		return fmt.Errorf("stt provider %s: %w", transcriber.Name(), err)
	}
	if err := backend.Health(checkCtx); err != nil {
		return fmt.Errorf("conversation backend: %w", err)
	}
	if err := speaker.Health(checkCtx); err != nil {
		return fmt.Errorf("tts speaker %s: %w", speaker.Name(), err)
	}

	state := session.NewState()
	history := session.NewHistory(cfg.Assistant.MaxHistory, cfg.Assistant.ContextTurns)
	book := schedule.NewBook()
	wthr := weather.NewClient(logger.Component("weather"), weather.Config{})
	commands := session.NewCommands(logger.Component("commands"), book, wthr, history, cfg.Assistant.Canned)

	monitor := wake.NewMonitor(logger.Zerolog(), classifier, device, state)

	segmenter := audio.NewSegmenter(logger.Component("audio"), audio.SegmenterConfig{
		SampleRate:     cfg.Audio.SampleRate,
		FrameSize:      cfg.Audio.FrameSize,
		Threshold:      cfg.Audio.VADThreshold,
		SilenceDur:     cfg.Audio.SilenceDur,
		MinSpeechDur:   cfg.Audio.MinSpeechDur,
		MaxRecordDur:   cfg.Audio.MaxRecordDur,
		FlushFrames:    cfg.Audio.FlushFrames,
		MinClipBytes:   cfg.Audio.MinClipBytes,
		DebounceFrames: 2,
	})

	orch := session.NewOrchestrator(logger.Zerolog(), session.Options{
		SampleRate:   cfg.Audio.SampleRate,
		FrameSize:    cfg.Audio.FrameSize,
		SystemPrompt: systemPrompt(cfg),
	}, session.Deps{
		State:       state,
		History:     history,
		Commands:    commands,
		Capturer:    deviceCapturer{device},
		Segmenter:   segmenter,
		Transcriber: transcriber,
		Backend:     backend,
		Speaker:     speaker,
		Events:      monitor.Events(),
	})

	scheduler := schedule.NewScheduler(logger.Zerolog(), book, orch)

	var wg sync.WaitGroup
	for _, task := range []func(context.Context){monitor.Run, scheduler.Run, orch.Run} {
		wg.Add(1)
		go func(run func(context.Context)) {
			defer wg.Done()
			run(ctx)
		}(task)
	}

	log.Info().Str("wakePhrase", cfg.Wake.Phrase).Msg("Arthur is listening")
	<-ctx.Done()
	wg.Wait()
	return nil
}

// runTextMode reads requests from stdin, bypassing the audio pipeline.
// Useful on machines without a microphone and for trying out backends.
func runTextMode(ctx context.Context, logger *logging.Logger, cfg *config.Config) error {
	log := logger.Component("text-mode")

	backend := buildBackend(logger, cfg)
	history := session.NewHistory(cfg.Assistant.MaxHistory, cfg.Assistant.ContextTurns)
	book := schedule.NewBook()
	wthr := weather.NewClient(logger.Component("weather"), weather.Config{})
	commands := session.NewCommands(logger.Component("commands"), book, wthr, history, cfg.Assistant.Canned)

	scheduler := schedule.NewScheduler(logger.Zerolog(), book, printNotifier{})
	go scheduler.Run(ctx)

	fmt.Println("Arthur text mode. Type a request, or ctrl-d to quit.")
	scanner := bufio.NewScanner(os.Stdin)
	prompt := systemPrompt(cfg)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if ctx.Err() != nil {
			return nil
		}

		if reply, handled := commands.Handle(ctx, text); handled {
			fmt.Println(reply)
			continue
		}

		reply, err := backend.Chat(ctx, history.Messages(prompt, text))
		if err != nil {
			log.Error().Err(err).Msg("Backend exchange failed")
			fmt.Println("Sorry, I'm having trouble thinking right now.")
			continue
		}
		fmt.Println(reply)
		history.Add(text, reply)
	}
}

type printNotifier struct{}

func (printNotifier) Announce(_ context.Context, text string) {
	fmt.Println("\n*** " + text)
}

// deviceCapturer adapts the concrete audio device to the orchestrator's
// Capturer interface.
type deviceCapturer struct {
	device *audio.Device
}

func (c deviceCapturer) AcquireRecorder(sampleRate, frameLen int) (session.Recording, error) {
	rec, err := c.device.AcquireRecorder(sampleRate, frameLen)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func buildTranscriber(logger *logging.Logger, cfg *config.Config) (stt.Provider, error) {
	zl := logger.Component("stt")
	switch cfg.STT.Provider {
	case "whisper-api", "":
		return stt.NewWhisperAPIProvider(zl, stt.WhisperAPIConfig{
			APIKey: cfg.STT.APIKey,
			Model:  cfg.STT.Model,
		}), nil
	case "whisper-server":
		return stt.NewWhisperServerProvider(zl, stt.WhisperServerConfig{
			BaseURL: cfg.STT.ServerURL,
			Timeout: cfg.STT.Timeout,
		}), nil
	case "deepgram":
		return stt.NewDeepgramProvider(zl, stt.DeepgramConfig{
			APIKey:   cfg.STT.DeepgramAPIKey,
			Language: cfg.STT.Language,
		}), nil
	default:
		return nil, fmt.Errorf("unknown stt provider %q", cfg.STT.Provider)
	}
}

func buildBackend(logger *logging.Logger, cfg *config.Config) llm.Provider {
	zl := logger.Component("llm")

	build := func(name string) llm.Provider {
		switch name {
		case "openai":
			return llm.NewOpenAIProvider(zl, llm.OpenAIConfig{
				APIKey:      cfg.LLM.APIKey,
				Model:       cfg.LLM.OpenAIModel,
				MaxTokens:   cfg.LLM.MaxTokens,
				Temperature: cfg.LLM.Temperature,
			})
		default:
			return llm.NewOllamaProvider(zl, llm.OllamaConfig{
				BaseURL:     cfg.LLM.OllamaURL,
				Model:       cfg.LLM.OllamaModel,
				MaxTokens:   cfg.LLM.MaxTokens,
				Temperature: cfg.LLM.Temperature,
				Timeout:     cfg.LLM.Timeout,
			})
		}
	}

	primary := build(cfg.LLM.Provider)
	if cfg.LLM.Fallback == "" || cfg.LLM.Fallback == cfg.LLM.Provider {
		return primary
	}
	return llm.NewChain(zl, primary, build(cfg.LLM.Fallback))
}

func buildSpeaker(logger *logging.Logger, cfg *config.Config) tts.Speaker {
	zl := logger.Component("tts")
	if cfg.TTS.Provider == "openai" {
		return tts.NewOpenAISpeaker(zl, tts.OpenAISpeakerConfig{
			APIKey: cfg.TTS.APIKey,
			Model:  cfg.TTS.Model,
			Voice:  cfg.TTS.Voice,
		})
	}
	return tts.NewProcessSpeaker(zl, tts.ProcessConfig{
		Command: cfg.TTS.Command,
		Voice:   cfg.TTS.Voice,
		Rate:    cfg.TTS.Rate,
	})
}

func systemPrompt(cfg *config.Config) string {
	prompt := cfg.LLM.SystemPrompt
	if cfg.LLM.Persona != "" {
		prompt += "\n" + cfg.LLM.Persona
	}
	return prompt
}

func printDevices() error {
	devices, err := audio.ListInputDevices()
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Println("no capture devices found")
		return nil
	}
	for _, d := range devices {
		marker := " "
		if d.IsDefault {
			marker = "*"
		}
		fmt.Printf("%s %2d  %-40s  %d ch  %.0f Hz\n", marker, d.Index, d.Name, d.MaxInputChannels, d.DefaultSampleRate)
	}
	fmt.Println("\n* default device; set audio.input_device in ~/.arthur/config.yaml to override")
	return nil
}
