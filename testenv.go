package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"dikt/audio"
	"dikt/beep"
	"dikt/hotkey"
	"dikt/inject"
	"dikt/log"
	"dikt/pipeline"
	"dikt/settings"
	"dikt/transcriber"
)

// runTestMode drives the pipeline headlessly: a fake capture device replays a
// WAV file and stdin commands stand in for the hotkey.
func runTestMode(wavPath string, store *settings.Store) {
	beep.Disable()
	defer log.Close()

	if err := inject.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: injection init failed: %v\n", err)
	}

	fakeCtx, err := audio.NewFakeContext(wavPath, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading WAV: %v\n", err)
		os.Exit(1)
	}

	capture, err := fakeCtx.NewCapture(nil, audio.CaptureConfig{
		SampleRate: pipeline.SampleRate, Channels: pipeline.Channels,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating capture: %v\n", err)
		os.Exit(1)
	}
	recorder := audio.NewRecorder(capture)

	hk := hotkey.NewFake()
	settled := make(chan struct{}, 1)

	var machine *pipeline.Machine
	dispatcher := transcriber.NewDispatcher(func(ev pipeline.Event) {
		if t, ok := ev.(pipeline.Transcribed); ok && t.Err == nil && t.Text != "" {
			transcriptsMu.Lock()
			transcripts++
			transcriptsMu.Unlock()
			fmt.Println(t.Text)
		}
		machine.Post(ev)
	})

	logSink := pipeline.SinkFunc(func(state pipeline.State, kind pipeline.Kind) {
		kindStr := ""
		if kind != pipeline.KindNone {
			kindStr = kind.String()
		}
		log.StateChange(state.String(), kindStr)
	})
	// A recording cycle has settled once the machine reports a result state
	// or bounces back to idle with a failure kind.
	settleSink := pipeline.SinkFunc(func(state pipeline.State, kind pipeline.Kind) {
		done := state == pipeline.StateReady || state == pipeline.StateError ||
			(state == pipeline.StateIdle && kind != pipeline.KindNone)
		if done {
			select {
			case settled <- struct{}{}:
			default:
			}
		}
	})

	machine = pipeline.NewMachine(recorder, dispatcher, inject.New(), store,
		pipeline.Options{MinDuration: store.Current().MinDuration},
		logSink, settleSink)

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go machine.Run(runCtx)

	go func() {
		for {
			select {
			case <-runCtx.Done():
				return
			case <-hk.Keydown():
				machine.Post(pipeline.RecordStart{})
			case <-hk.Keyup():
				machine.Post(pipeline.RecordStop{})
			}
		}
	}()

	// Stdin driver: KEYDOWN/KEYUP simulate the combo, WAIT blocks until the
	// current cycle settles, SLEEP n pauses n milliseconds, QUIT exits.
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		cmd := strings.TrimSpace(scanner.Text())
		switch cmd {
		case "KEYDOWN":
			hk.SimPress()
		case "KEYUP":
			hk.SimRelease()
		case "WAIT":
			<-settled
		case "QUIT":
			transcriptsMu.Lock()
			n := transcripts
			transcriptsMu.Unlock()
			log.SessionEnd(n)
			os.Exit(0)
		default:
			if strings.HasPrefix(cmd, "SLEEP ") {
				if ms, err := strconv.Atoi(cmd[6:]); err == nil {
					time.Sleep(time.Duration(ms) * time.Millisecond)
				}
			}
		}
	}
	os.Exit(0)
}
