package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pion/webrtc/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/croisantti/nutriwhisper-bot/internal/audio"
	"github.com/croisantti/nutriwhisper-bot/internal/coach"
	"github.com/croisantti/nutriwhisper-bot/internal/config"
	"github.com/croisantti/nutriwhisper-bot/internal/playback"
	"github.com/croisantti/nutriwhisper-bot/internal/realtime"
	"github.com/croisantti/nutriwhisper-bot/internal/voiceui"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	var logger *zap.Logger
	if cfg.LogPretty {
		logger, _ = zap.NewDevelopment()
	} else {
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("nutriwhisper starting",
		zap.String("model", cfg.RealtimeModel),
		zap.String("transport", cfg.Transport),
		zap.String("captureDevice", cfg.CaptureDevice),
	)

	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				logger.Warn("metrics server", zap.Error(err))
			}
		}()
	}

	prefs, err := coach.LoadPreferences(cfg.PreferencesPath)
	if err != nil {
		logger.Fatal("load preferences", zap.Error(err))
	}
	prompt := coach.PersonalizedPrompt(coach.DefaultSystemPrompt, prefs)

	sink, closeSink := playbackSink(cfg, logger)
	defer closeSink()
	player := playback.NewPlayer(sink, cfg.PlaybackSec, logger)
	defer player.Close()

	tracker := voiceui.NewTracker()

	chat := realtime.New(cfg, logger, realtime.Options{
		SystemPrompt: prompt,
		OnTranscript: func(delta string) {
			fmt.Print(delta)
		},
		OnMessage: func(ev realtime.ServerEvent) {
			before := tracker.State()
			tracker.HandleEvent(ev)
			if after := tracker.State(); after != before {
				fmt.Printf("\n[%s]\n", after)
			}
			// On the WebSocket transport assistant audio arrives as events.
			if cfg.Transport == "websocket" && ev.Type == realtime.TypeAudioDelta && ev.Delta != "" {
				if pcm, err := audio.DecodeChunk(ev.Delta); err == nil {
					player.EnqueuePCM(audio.Int16ToBytes(pcm))
				}
			}
		},
		OnTrack: func(track *webrtc.TrackRemote) {
			player.PlayTrack(track)
		},
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tracker.SetConnecting()
	fmt.Println("[connecting]")
	if err := chat.Init(ctx); err != nil {
		tracker.SetDisconnected()
		logger.Fatal("voice session failed", zap.Error(err))
	}
	tracker.SetConnected()
	fmt.Println("[connected] speak, type a message, or /quit")

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if line == "/quit" {
				cancel()
				return
			}
			if err := chat.SendTextMessage(line); err != nil {
				logger.Warn("send text message", zap.Error(err))
			}
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down")
	chat.Disconnect()
	tracker.SetDisconnected()
	fmt.Println("\n[idle]")
}

// playbackSink opens an ffplay subprocess fed s16le 24kHz mono on stdin.
// When ffplay is unavailable the assistant audio is discarded.
func playbackSink(cfg *config.Config, logger *zap.Logger) (io.Writer, func()) {
	bin := cfg.FFplayBin
	if bin == "" {
		bin = "ffplay"
	}
	cmd := exec.Command(bin,
		"-hide_banner", "-loglevel", "error",
		"-f", "s16le",
		"-ar", fmt.Sprint(audio.SampleRate),
		"-ch_layout", "mono",
		"-nodisp",
		"-i", "pipe:0",
	)
	stdin, err := cmd.StdinPipe()
	if err == nil {
		err = cmd.Start()
	}
	if err != nil {
		logger.Warn("playback disabled, ffplay unavailable", zap.Error(err))
		return io.Discard, func() {}
	}
	return stdin, func() {
		stdin.Close()
		cmd.Wait()
	}
}
