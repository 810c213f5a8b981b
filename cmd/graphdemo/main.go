// Command graphdemo wires a small sine -> output graph through
// either a real device (via PortAudio, with fallback) or the headless
// dummy backend, and runs it for a configurable duration.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/waveframe/engine/backend"
	"github.com/waveframe/engine/engine"
	"github.com/waveframe/engine/graph"
	"github.com/waveframe/engine/node/testnode"
)

// demoConfig is the optional YAML file shape; any field left unset keeps
// the value main sets before loading the file (the flag value, or 48000 Hz
// and 512 frames per buffer).
type demoConfig struct {
	SampleRate      float64 `yaml:"sample_rate"`
	FramesPerBuffer int     `yaml:"frames_per_buffer"`
	Freq            float64 `yaml:"freq"`
	Amp             float64 `yaml:"amp"`
	HardClip        bool    `yaml:"hard_clip"`
	UseDevice       bool    `yaml:"use_device"`
}

func main() {
	configPath := pflag.StringP("config", "c", "", "Path to a YAML config file.")
	duration := pflag.DurationP("duration", "d", 3*time.Second, "How long to run before exiting.")
	useDevice := pflag.Bool("device", false, "Open a real audio device instead of the dummy backend.")
	freq := pflag.Float64P("freq", "f", 440.0, "Sine frequency in Hz.")
	amp := pflag.Float64P("amp", "a", 0.2, "Sine amplitude, 0..1.")
	help := pflag.Bool("help", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - minimal realtime audio graph demo\n\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	logger := log.Default()

	dc := demoConfig{SampleRate: 48000, FramesPerBuffer: 512, Freq: *freq, Amp: *amp, UseDevice: *useDevice}
	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			logger.Fatal("reading config", "path", *configPath, "err", err)
		}
		if err := yaml.Unmarshal(data, &dc); err != nil {
			logger.Fatal("parsing config", "path", *configPath, "err", err)
		}
	}

	if err := run(dc, *duration, logger); err != nil {
		logger.Fatal("graphdemo failed", "err", err)
	}
}

func run(dc demoConfig, duration time.Duration, logger *log.Logger) error {
	cfg := engine.DefaultConfig()
	cfg.NGraphInputs = 0
	cfg.NGraphOutputs = 1
	cfg.MaxBlockFrames = dc.FramesPerBuffer
	cfg.HardClipOutputs = dc.HardClip
	cfg.SampleRate = dc.SampleRate

	ctx := engine.New(cfg, logger)
	g := ctx.Graph()

	sine := ctx.AddNode("sine", 0, 1, 0, &testnode.Sine{
		NOut:       1,
		Freq:       dc.Freq,
		Amp:        dc.Amp,
		SampleRate: dc.SampleRate,
	})
	edge := graph.Edge{Src: sine, SrcChannel: 0, Dst: g.OutputID(), DstChannel: 0}
	if err := g.AddEdge(edge); err != nil {
		return fmt.Errorf("wiring demo graph: %w", err)
	}

	if err := ctx.Activate(); err != nil {
		return fmt.Errorf("activate: %w", err)
	}
	defer ctx.Deactivate()

	var be backend.Backend
	var closeBackend func() error
	if dc.UseDevice {
		pab, err := backend.NewPortAudioBackend()
		if err != nil {
			logger.Warn("portaudio unavailable, falling back to dummy backend", "err", err)
			be = backend.NewDummyBackend()
		} else {
			be = pab
			closeBackend = pab.Close
		}
	} else {
		be = backend.NewDummyBackend()
	}

	sel := backend.DeviceSelection{
		SampleRate:        dc.SampleRate,
		FramesPerBuffer:   dc.FramesPerBuffer,
		NumOutputChannels: cfg.NGraphOutputs,
	}
	stream, err := be.OpenStream(sel, backend.FallbackToDefault|backend.FallbackToDummy, ctx.Executor().Process)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	logger.Info("stream open", "duration", duration, "freq", dc.Freq)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case <-time.After(duration):
	case <-sig:
		logger.Info("interrupted")
	}

	if err := stream.Close(); err != nil {
		logger.Warn("closing stream", "err", err)
	}
	if closeBackend != nil {
		if err := closeBackend(); err != nil {
			logger.Warn("closing backend", "err", err)
		}
	}
	return nil
}
