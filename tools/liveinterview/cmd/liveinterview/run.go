package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/candorlabs/liveinterview/pkg/config"
	"github.com/candorlabs/liveinterview/pkg/records"
	"github.com/candorlabs/liveinterview/runtime/audio"
	"github.com/candorlabs/liveinterview/runtime/capture"
	"github.com/candorlabs/liveinterview/runtime/device"
	"github.com/candorlabs/liveinterview/runtime/events"
	"github.com/candorlabs/liveinterview/runtime/logger"
	metrics "github.com/candorlabs/liveinterview/runtime/metrics/prometheus"
	"github.com/candorlabs/liveinterview/runtime/playback"
	"github.com/candorlabs/liveinterview/runtime/session"
	"github.com/candorlabs/liveinterview/runtime/streaming"
	"github.com/candorlabs/liveinterview/runtime/telemetry"
	"github.com/candorlabs/liveinterview/runtime/version"
)

// shutdownTimeout bounds the graceful disconnect and exporter shutdown.
const shutdownTimeout = 5 * time.Second

func newRunCmd() *cobra.Command {
	var (
		src     contextSource
		noAudio bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Join a live interview",
		Long: `Connect to the interview backend, stream microphone audio (and camera
stills with --camera), play the interviewer and print the transcript.

Lines typed on stdin are sent as chat messages. Ctrl+C disconnects.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInterview(cmd, src, noAudio)
		},
	}

	cmd.Flags().IntVar(&src.InterviewID, "interview-id", 0, "Interview record to load context from")
	cmd.Flags().StringVar(&src.ResumeFile, "resume-file", "", "Resume text file, used with --job-file")
	cmd.Flags().StringVar(&src.JobFile, "job-file", "", "Job description text file, used with --resume-file")
	cmd.Flags().BoolVar(&noAudio, "no-audio", false, "Use silent null audio devices")
	cmd.Flags().Bool("camera", false, "Send periodic camera stills")
	cmd.Flags().String("server-url", "", "Interview backend WebSocket URL")
	cmd.Flags().String("records-url", "", "Records service base URL")
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address")
	cmd.Flags().String("otlp-endpoint", "", "Export traces to this OTLP/HTTP endpoint")
	cmd.Flags().String("transcript-dir", "", "Write the transcript here on exit")
	return cmd
}

func runInterview(cmd *cobra.Command, src contextSource, noAudio bool) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := logger.Configure(cfg.Logging.Spec()); err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		logger.SetVerbose(true)
	}

	logger.Info("Starting liveinterview", version.LogAttrs()...)

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tracing, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer shutdownWithTimeout(tracing.Shutdown)

	client := records.NewClient(cfg.Records.BaseURL, cfg.Records.Timeout)
	contextMsg, err := resolveContext(ctx, client, src)
	if err != nil {
		return fmt.Errorf("failed to resolve interview context: %w", err)
	}

	store, closeStore, err := openStore(cfg.Resumption)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	bus := events.NewEventBus()
	defer bus.Close()
	out := newConsole(cmd.OutOrStdout())
	bus.SubscribeAll(out.Handle)

	if cfg.Metrics.Addr != "" {
		exporter := metrics.NewExporter(cfg.Metrics.Addr)
		addr, err := exporter.Start()
		if err != nil {
			return fmt.Errorf("failed to start metrics exporter: %w", err)
		}
		logger.Info("Metrics exporter listening", "addr", addr)
		defer shutdownWithTimeout(exporter.Shutdown)
		bus.SubscribeAll(metrics.NewMetricsListener().Handle)
	}
	if tracing != nil {
		bus.SubscribeAll(tracing.Listener.OnEvent)
	}

	mic, timeline, play, err := openAudio(cfg.Audio, noAudio)
	if err != nil {
		return err
	}

	sessionCfg := session.Config{
		URL: cfg.Server.URL,
		Dialer: streaming.NewWebSocketDialer(streaming.ConnConfig{
			DialTimeout:  cfg.Server.DialTimeout,
			PingInterval: cfg.Server.PingInterval,
			Logger:       logger.Component("streaming"),
		}),
		Store:         store,
		Context:       contextMsg,
		Policy:        cfg.Reconnect.Policy(),
		SendQueueSize: cfg.Audio.SendQueueSize,
		Microphone: capture.NewPipeline(mic,
			capture.WithBlockSize(cfg.Audio.BlockSize),
			capture.WithFallbackRate(cfg.Audio.FallbackSendRate)),
		Output:        timeline,
		LatencyMargin: cfg.Audio.LatencyMargin,
		Bus:           bus,
	}
	if src.InterviewID > 0 {
		sessionCfg.InterviewID = strconv.Itoa(src.InterviewID)
	}
	if cfg.Camera.Enabled {
		sessionCfg.Camera = capture.NewCameraSampler(
			device.NewFFmpegCamera(cfg.Camera.StillConfig()),
			cfg.Camera.Interval,
			cfg.Camera.FrameConfig())
	}

	ctrl, err := session.NewController(sessionCfg)
	if err != nil {
		return err
	}
	if tracing != nil {
		tracing.Listener.StartSession(ctx, ctrl.SessionID(), sessionCfg.InterviewID)
		defer tracing.Listener.EndSession(ctrl.SessionID())
	}
	if src.InterviewID > 0 {
		markStatus(ctx, client, src.InterviewID, records.StatusInProgress)
	}

	runCtx, stop := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return ctrl.Run(gctx) })
	g.Go(func() error { return play(gctx) })
	select {
	case <-ctrl.Started():
	case <-gctx.Done():
	}
	go readChat(gctx, cmd.InOrStdin(), ctrl)

	if err := ctrl.Connect(ctx); err != nil {
		stop()
		_ = g.Wait()
		return fmt.Errorf("failed to connect: %w", err)
	}

	if isTerminal(cmd.InOrStdin()) {
		out.Printf("* Type a message and press Enter to send it. Ctrl+C ends the interview.\n")
	}

	select {
	case <-ctx.Done():
		out.Printf("* Disconnecting...\n")
	case <-out.Finished():
	case <-gctx.Done():
	}

	disconnectCtx, cancelDisconnect := context.WithTimeout(context.Background(), shutdownTimeout)
	if err := ctrl.Disconnect(disconnectCtx); err != nil && !errors.Is(err, session.ErrClosed) {
		logger.Warn("Disconnect failed", "error", err)
	}
	cancelDisconnect()

	state, stateErr := ctrl.State(context.Background())
	stop()
	runErr := g.Wait()
	out.Flush()

	if err := exportTranscript(out, ctrl, cfg.Transcript, src.InterviewID); err != nil {
		logger.Warn("Transcript export failed", "error", err)
	}
	if src.InterviewID > 0 && out.Ended() {
		markStatus(context.Background(), client, src.InterviewID, records.StatusCompleted)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	if stateErr == nil && state.Status == session.StatusError {
		return state.Err
	}
	return nil
}

// openAudio returns the microphone, the playback timeline and the speaker
// loop. Without PortAudio support the null devices are used instead.
func openAudio(cfg config.AudioConfig, noAudio bool) (capture.Source, *playback.Timeline, func(context.Context) error, error) {
	if noAudio || !cfg.Enabled {
		return nullAudio(cfg)
	}

	mic, err := device.NewMicrophone()
	if errors.Is(err, device.ErrPortAudioDisabled) {
		logger.Warn("Audio devices unavailable in this build, using silent devices")
		return nullAudio(cfg)
	}
	if err != nil {
		return nil, nil, nil, err
	}
	rate, err := device.DefaultOutputRate()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to query output device: %w", err)
	}
	timeline := playback.NewTimeline(rate)
	speaker, err := device.NewSpeaker(timeline)
	if err != nil {
		return nil, nil, nil, err
	}
	return mic, timeline, speaker.Run, nil
}

func nullAudio(cfg config.AudioConfig) (capture.Source, *playback.Timeline, func(context.Context) error, error) {
	rate := cfg.FallbackSendRate
	if rate <= 0 {
		rate = audio.SampleRate16kHz
	}
	timeline := playback.NewTimeline(audio.SampleRate24kHz)
	speaker := device.NewNullSpeaker(timeline, device.DefaultDrainPeriod)
	play := func(ctx context.Context) error {
		speaker.Run(ctx)
		return nil
	}
	return device.NullMicrophone{Rate: rate}, timeline, play, nil
}

func shutdownWithTimeout(fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		logger.Warn("Shutdown failed", "error", err)
	}
}

func isTerminal(in io.Reader) bool {
	f, ok := in.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// readChat sends each non-empty stdin line as a chat message.
func readChat(ctx context.Context, in io.Reader, ctrl *session.Controller) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := ctrl.SendText(ctx, line); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("Message not sent", "error", err)
		}
	}
}

func markStatus(ctx context.Context, client *records.Client, interviewID int, status string) {
	if err := client.UpdateInterviewStatus(ctx, interviewID, status); err != nil {
		logger.Warn("Failed to update interview status", "interview_id", interviewID, "status", status, "error", err)
	}
}

func exportTranscript(out *console, ctrl *session.Controller, cfg config.TranscriptConfig, interviewID int) error {
	if cfg.OutputDir == "" || ctrl.Transcript().Len() == 0 {
		return nil
	}
	prefix := "session-" + ctrl.SessionID()
	if interviewID > 0 {
		prefix = "interview-" + strconv.Itoa(interviewID)
	}
	jsonlPath, textPath, err := ctrl.Transcript().Export(cfg.OutputDir, prefix)
	if err != nil {
		return err
	}
	out.Printf("* Transcript saved to %s and %s\n", textPath, jsonlPath)
	return nil
}
