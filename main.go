package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	"dikt/audio"
	"dikt/beep"
	"dikt/doctor"
	"dikt/hotkey"
	"dikt/inject"
	"dikt/log"
	"dikt/pipeline"
	"dikt/settings"
	"dikt/shutdown"
	"dikt/transcriber"
)

var version = "dev"

var (
	transcriptsMu sync.Mutex
	transcripts   int
)

var shutdownOnce sync.Once

type appRuntime struct {
	cancel     context.CancelFunc
	dispatcher *transcriber.Dispatcher
}

func (a *appRuntime) gracefulShutdown() {
	shutdownOnce.Do(func() {
		a.cancel()
		if !a.dispatcher.Shutdown(time.Second) {
			log.Warn("shutdown: abandoning in-flight transcription")
		}
		transcriptsMu.Lock()
		n := transcripts
		transcriptsMu.Unlock()
		if n > 0 {
			log.SessionEnd(n)
		}
		log.Close()
		tuiMu.Lock()
		p := tuiProgram
		tuiMu.Unlock()
		if p != nil {
			p.Quit()
		}
		os.Exit(0)
	})
}

func deviceLineText(name string) string {
	suffix := ""
	if name == "" {
		name = "system default"
	} else if audio.IsBluetooth(name) {
		suffix = " (BT!)"
	}
	return "mic: " + name + suffix
}

func modeLineText(cfg settings.Config) string {
	providerLabel := cfg.Provider
	if cfg.Model != "" {
		providerLabel += "/" + cfg.Model
	}
	if cfg.Language != "" {
		providerLabel += " (" + cfg.Language + ")"
	}
	return fmt.Sprintf("[%s | %s]", cfg.Format, providerLabel)
}

// cueForState maps pipeline transitions to audible cues.
func cueForState(state pipeline.State, kind pipeline.Kind) {
	switch state {
	case pipeline.StateRecording:
		beep.Play(beep.CueRecord)
	case pipeline.StateTranscribing:
		beep.Play(beep.CueStop)
	case pipeline.StateReady:
		if kind == pipeline.KindInjectionBlocked {
			beep.Play(beep.CueError)
		} else {
			beep.Play(beep.CueReady)
		}
	case pipeline.StateError:
		beep.Play(beep.CueError)
	case pipeline.StateIdle:
		if kind != pipeline.KindNone {
			beep.Play(beep.CueError)
		}
	}
}

func run() {
	configFlag := flag.String("config", "", "Config file path (default: dikt.yaml in the user config dir)")
	comboFlag := flag.String("combo", "", "Hotkey combo, e.g. ctrl+alt+space (overrides config)")
	providerFlag := flag.String("provider", "", "Transcription provider: gemini, elevenlabs, or groq")
	modelFlag := flag.String("model", "", "Provider model override")
	langFlag := flag.String("lang", "", "Language code for transcription, e.g. khm, eng")
	formatFlag := flag.String("format", "", "Upload format: flac or wav")
	deviceFlag := flag.String("device", "", "Use named microphone device")
	setupFlag := flag.Bool("setup", false, "Select microphone device interactively")
	logPathFlag := flag.String("logpath", "", "Log directory path (default: OS-specific location, use ./ for current dir)")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	doctorFlag := flag.Bool("doctor", false, "Run system diagnostics and exit")
	crashFlag := flag.Bool("crash", false, "Trigger synthetic panic for testing crash logging")
	testFlag := flag.Bool("test", false, "Test mode (headless, stdin-driven)")
	tuiFlag := flag.Bool("tui", true, "Run with terminal UI")
	flag.Parse()

	// Resolve log directory early
	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)

	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	if *crashFlag {
		panic("TEST CRASH: synthetic panic to verify crash logging")
	}

	if *versionFlag {
		fmt.Printf("dikt %s\n", version)
		os.Exit(0)
	}

	if *doctorFlag {
		os.Exit(doctor.Run())
	}

	store, err := settings.Load(*configFlag, settings.Overrides{
		Combo:    *comboFlag,
		Provider: *providerFlag,
		Model:    *modelFlag,
		Language: *langFlag,
		Format:   *formatFlag,
		Device:   *deviceFlag,
	})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	cfg := store.Current()

	switch cfg.Format {
	case "flac", "wav":
	default:
		fmt.Printf("Error: unknown format %q (use flac or wav)\n", cfg.Format)
		os.Exit(1)
	}

	combo, err := hotkey.Parse(cfg.Combo)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if _, err := transcriber.ParseKind(cfg.Provider); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	log.SessionStart(cfg.Provider, cfg.Model, cfg.Format)

	if *testFlag {
		args := flag.Args()
		if len(args) == 0 {
			fmt.Fprintln(os.Stderr, "Usage: dikt -test <wav-file>")
			os.Exit(1)
		}
		runTestMode(args[0], store)
		return
	}

	if err := inject.Init(); err != nil {
		fmt.Printf("Warning: injection init failed: %v\n", err)
		fmt.Println("Fix with: sudo chmod 660 /dev/uinput && sudo chgrp input /dev/uinput")
	}

	audioCtx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Printf("Error initializing audio context: %v\n", err)
		os.Exit(1)
	}
	defer audioCtx.Close()

	var selectedDevice *audio.DeviceInfo
	if cfg.Device != "" {
		selectedDevice, err = audio.FindDevice(audioCtx, cfg.Device)
		if err != nil {
			log.Warnf("device lookup failed: %v", err)
			fmt.Printf("Warning: %v\n", err)
			fmt.Println("Falling back to default device")
			selectedDevice = nil
		}
	} else if *setupFlag {
		selectedDevice, err = audio.SelectDevice(audioCtx)
		if err != nil {
			log.Warnf("device selection failed: %v", err)
			fmt.Printf("Warning: device selection failed: %v\n", err)
			fmt.Println("Falling back to default device")
			selectedDevice = nil
		}
	}

	captureConfig := audio.CaptureConfig{
		SampleRate: pipeline.SampleRate,
		Channels:   pipeline.Channels,
	}
	capture, err := audioCtx.NewCapture(selectedDevice, captureConfig)
	if err != nil {
		log.Errorf("capture device init error: %v", err)
		fmt.Printf("Error initializing capture device: %v\n", err)
		os.Exit(1)
	}
	recorder := audio.NewRecorder(capture)
	defer recorder.SetDevice(nil)

	hk, err := hotkey.New(combo)
	if err != nil {
		log.Errorf("hotkey init error: %v", err)
		fmt.Printf("Error initializing hotkey: %v\n", err)
		os.Exit(1)
	}
	if err := hk.Start(); err != nil {
		log.Errorf("hotkey register error: %v", err)
		fmt.Printf("Error registering hotkey: %v\n", err)
		os.Exit(1)
	}
	defer hk.Stop()

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The dispatcher posts results back into the machine; the TUI taps the
	// stream to show the last transcript before the machine consumes it.
	var machine *pipeline.Machine
	dispatcher := transcriber.NewDispatcher(func(ev pipeline.Event) {
		if t, ok := ev.(pipeline.Transcribed); ok && t.Err == nil && t.Text != "" {
			transcriptsMu.Lock()
			transcripts++
			transcriptsMu.Unlock()
			tuiSend(TranscriptMsg{Text: t.Text})
		}
		machine.Post(ev)
	})

	app := &appRuntime{cancel: cancel, dispatcher: dispatcher}

	logSink := pipeline.SinkFunc(func(state pipeline.State, kind pipeline.Kind) {
		kindStr := ""
		if kind != pipeline.KindNone {
			kindStr = kind.String()
		}
		log.StateChange(state.String(), kindStr)
	})
	beepSink := pipeline.SinkFunc(cueForState)
	tuiSink := pipeline.SinkFunc(func(state pipeline.State, kind pipeline.Kind) {
		tuiSend(StateMsg{State: state, Kind: kind})
	})

	machine = pipeline.NewMachine(recorder, dispatcher, inject.New(), store,
		pipeline.Options{MinDuration: cfg.MinDuration},
		logSink, beepSink, tuiSink)

	if *tuiFlag {
		tuiMu.Lock()
		tuiProgram = NewTUIProgram()
		tuiMu.Unlock()

		go func() {
			if _, err := tuiProgram.Run(); err != nil {
				log.Errorf("TUI error: %v", err)
				os.Exit(1)
			}
			app.gracefulShutdown()
		}()
	}

	deviceName := ""
	if selectedDevice != nil {
		deviceName = selectedDevice.Name
	}
	tuiSend(ModeLineMsg{Text: modeLineText(cfg)})
	tuiSend(DeviceLineMsg{Text: deviceLineText(deviceName)})
	tuiSend(ComboLineMsg{Text: combo.String()})

	// Live reloads: combo, device, and the mode line follow the config file.
	// Provider/model/language changes need no plumbing here; the machine
	// snapshots them per submission.
	store.Subscribe(func(c settings.Config) {
		if newCombo, err := hotkey.Parse(c.Combo); err != nil {
			log.Warnf("config reload: bad combo %q: %v", c.Combo, err)
		} else if newCombo.String() != hk.Combo().String() {
			if err := hk.SetCombo(newCombo); err != nil {
				log.Warnf("config reload: set combo: %v", err)
			} else {
				log.Info("hotkey combo changed to " + newCombo.String())
				tuiSend(ComboLineMsg{Text: newCombo.String()})
			}
		}
		tuiSend(ModeLineMsg{Text: modeLineText(c)})
	})

	// preferredDevice remembers the user's choice so we can auto-reconnect
	preferredDevice := deviceName
	currentDevice := deviceName

	switchDevice := func(dev *audio.DeviceInfo) {
		name := ""
		if dev != nil {
			name = dev.Name
		}
		newCapture, err := audioCtx.NewCapture(dev, captureConfig)
		if err != nil {
			log.Errorf("capture device reinit error: %v", err)
			return
		}
		recorder.SetDevice(newCapture)
		currentDevice = name
		tuiSend(DeviceLineMsg{Text: deviceLineText(name)})
	}

	// Poll for device changes (hotplug)
	go func() {
		var last []string
		ticker := time.NewTicker(3 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
			}
			devices, err := audioCtx.Devices()
			if err != nil {
				continue
			}
			names := make([]string, len(devices))
			for i := range devices {
				names[i] = devices[i].Name
			}
			if slices.Equal(last, names) {
				continue
			}
			last = names
			if currentDevice != "" && !slices.Contains(names, currentDevice) {
				// Selected device disappeared, fall back to default
				log.Info("device_disconnected: " + currentDevice)
				switchDevice(nil)
			} else if currentDevice == "" && preferredDevice != "" && slices.Contains(names, preferredDevice) {
				// Preferred device reappeared, auto-reconnect
				log.Info("device_reconnected: " + preferredDevice)
				if dev, err := audio.FindDevice(audioCtx, preferredDevice); err == nil {
					switchDevice(dev)
				}
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)
	go func() {
		<-sigChan
		app.gracefulShutdown()
	}()

	go beep.Init()

	// Hotkey edges feed the machine; it ignores anything that does not fit
	// its current state.
	go func() {
		for {
			select {
			case <-runCtx.Done():
				return
			case <-hk.Keydown():
				log.Info("hotkey_down on " + recorder.DeviceName())
				machine.Post(pipeline.RecordStart{})
			case <-hk.Keyup():
				log.Info("hotkey_up")
				machine.Post(pipeline.RecordStop{})
			}
		}
	}()

	machine.Run(runCtx)
}
