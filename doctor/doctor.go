package doctor

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	cb "github.com/atotto/clipboard"

	"dikt/audio"
	"dikt/encoder"
	"dikt/hotkey"
	"dikt/inject"
	"dikt/settings"
	"dikt/transcriber"
)

// Run executes interactive diagnostic checks and returns an exit code (0=all pass, 1=any fail).
func Run() int {
	resetTerminal()
	setupInterruptHandler()

	fmt.Println("dikt doctor - interactive system diagnostics")
	fmt.Println("=============================================")

	allPass := true

	if !checkHotkey() {
		allPass = false
	}
	if allPass && !checkMicAndTranscription() {
		allPass = false
	}
	if allPass && !checkInjection() {
		allPass = false
	}

	fmt.Println()
	if allPass {
		fmt.Println("All checks passed!")
	} else {
		fmt.Println("Some checks failed. See details above.")
	}

	if allPass {
		return 0
	}
	return 1
}

func checkHotkey() bool {
	fmt.Println()
	fmt.Println("[1/3] Hotkey detection")

	combo := hotkey.Default()
	fmt.Printf("Press %s...\n", combo)

	hk, err := hotkey.New(combo)
	if err != nil {
		fmt.Printf("  FAIL: could not create listener: %v\n", err)
		return false
	}
	if err := hk.Start(); err != nil {
		fmt.Printf("  FAIL: could not register hotkey: %v\n", err)
		return false
	}
	defer hk.Stop()

	select {
	case <-hk.Keydown():
		fmt.Println("  PASS: hotkey detected")
		// Wait for keyup to avoid triggering next step
		select {
		case <-hk.Keyup():
		case <-time.After(5 * time.Second):
		}
		// Reset terminal after hotkey - it may leave terminal in raw mode
		resetTerminal()
		return true
	case <-time.After(10 * time.Second):
		fmt.Println("  FAIL: timeout waiting for hotkey")
		return false
	}
}

func checkMicAndTranscription() bool {
	fmt.Println()
	fmt.Println("[2/3] Microphone and transcription")

	reader := bufio.NewReader(os.Stdin)

	audioCtx, err := audio.NewContext()
	if err != nil {
		fmt.Printf("  FAIL: cannot connect to audio: %v\n", err)
		return false
	}
	defer audioCtx.Close()

	devices, err := audioCtx.Devices()
	if err != nil {
		fmt.Printf("  FAIL: cannot list devices: %v\n", err)
		return false
	}
	if len(devices) == 0 {
		fmt.Println("  FAIL: no capture devices found")
		return false
	}

	var device *audio.DeviceInfo
	if len(devices) == 1 {
		device = &devices[0]
		fmt.Printf("Using device: %s\n", device.Name)
	} else {
		fmt.Println()
		fmt.Println("Select input device:")
		for i, d := range devices {
			fmt.Printf("  %d. %s\n", i+1, d.Name)
		}
		fmt.Printf("Choice [1-%d]: ", len(devices))

		devChoice, _ := reader.ReadString('\n')
		devChoice = strings.TrimSpace(devChoice)
		idx := 0
		if devChoice != "" {
			fmt.Sscanf(devChoice, "%d", &idx)
			idx--
		}
		if idx < 0 || idx >= len(devices) {
			fmt.Printf("  FAIL: invalid choice\n")
			return false
		}
		device = &devices[idx]
		fmt.Printf("Selected: %s\n", device.Name)
	}
	if audio.IsBluetooth(device.Name) {
		fmt.Println("  Warning: bluetooth microphone, capture quality may be reduced")
	}

	fmt.Println()
	fmt.Println("Select transcription provider:")
	fmt.Println("  1. Gemini")
	fmt.Println("  2. ElevenLabs")
	fmt.Println("  3. Groq")
	fmt.Print("Choice [1/2/3]: ")

	choice, _ := reader.ReadString('\n')
	choice = strings.TrimSpace(choice)

	var kind transcriber.Kind
	switch choice {
	case "1", "":
		kind = transcriber.KindGemini
	case "2":
		kind = transcriber.KindElevenLabs
	case "3":
		kind = transcriber.KindGroq
	default:
		fmt.Printf("  FAIL: invalid choice %q\n", choice)
		return false
	}

	apiKey := settings.Credential(kind.String())
	if apiKey != "" {
		fmt.Printf("Using %s API key from environment\n", kind)
	} else {
		fmt.Printf("Enter %s API key: ", kind)
		apiKey, _ = reader.ReadString('\n')
		apiKey = strings.TrimSpace(apiKey)
		if apiKey == "" {
			fmt.Println("  FAIL: API key required")
			return false
		}
	}

	fmt.Print("Language code [khm]: ")
	language, _ := reader.ReadString('\n')
	language = strings.TrimSpace(language)
	if language == "" {
		language = "khm"
	}

	trans, err := transcriber.New(kind, "", apiKey)
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}

	fmt.Println()
	fmt.Print("Press Enter and speak for 3 seconds...")
	reader.ReadString('\n')

	stop := make(chan struct{})
	go func() {
		time.Sleep(3 * time.Second)
		close(stop)
	}()

	pcm, err := recordAudio(audioCtx, device, stop)
	if err != nil {
		fmt.Printf("  FAIL: recording error: %v\n", err)
		return false
	}
	if len(pcm) == 0 {
		fmt.Println("  FAIL: no audio captured")
		return false
	}

	encoded, err := encoder.Encode("flac", pcm)
	if err != nil {
		fmt.Printf("  FAIL: encode error: %v\n", err)
		return false
	}
	fmt.Printf("  Recorded %.1f KB, transcribing...\n", float64(len(encoded))/1024)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	result, err := trans.Transcribe(ctx, encoded, "flac", language)
	if err != nil {
		fmt.Printf("  FAIL: transcription error: %v\n", err)
		return false
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		text = "(no speech detected)"
	}

	fmt.Printf("\n  Transcribed text: %s\n\n", text)

	// Ask user to confirm - fresh reader to clear any buffered input
	confirmReader := bufio.NewReader(os.Stdin)
	fmt.Print("Is this correct? [y/n]: ")
	confirm, _ := confirmReader.ReadString('\n')
	confirm = strings.TrimSpace(strings.ToLower(confirm))

	if confirm == "y" || confirm == "yes" {
		fmt.Println("  PASS: transcription verified by user")
		return true
	}

	fmt.Println("  FAIL: transcription not confirmed")
	return false
}

func recordAudio(ctx audio.Context, device *audio.DeviceInfo, stop <-chan struct{}) ([]byte, error) {
	var pcmBuf []byte
	var bufMu sync.Mutex
	var stopped bool
	done := make(chan struct{})

	config := audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	}

	captureDevice, err := ctx.NewCapture(device, config)
	if err != nil {
		return nil, err
	}

	captureDevice.SetCallback(func(data []byte, frameCount uint32) {
		bufMu.Lock()
		if stopped {
			bufMu.Unlock()
			return
		}
		pcmBuf = append(pcmBuf, data...)
		bufMu.Unlock()
	})

	if err := captureDevice.Start(); err != nil {
		captureDevice.Close()
		return nil, err
	}

	fmt.Print("  Recording")
	ticker := time.NewTicker(500 * time.Millisecond)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	<-stop
	close(done)

	captureDevice.Stop()
	fmt.Println(" done")
	captureDevice.Close()

	bufMu.Lock()
	stopped = true
	raw := pcmBuf
	bufMu.Unlock()

	return raw, nil
}

func checkInjection() bool {
	fmt.Println()
	fmt.Println("[3/3] Text injection")

	if err := inject.Init(); err != nil {
		fmt.Printf("  Warning: injection init: %v\n", err)
	}

	prior, priorErr := cb.ReadAll()

	fmt.Println("Focus on a text editor window...")
	for i := 5; i > 0; i-- {
		fmt.Printf("  %d...\n", i)
		time.Sleep(1 * time.Second)
	}

	testStr := "dikt-doctor-test"
	if err := inject.New().Insert(testStr); err != nil {
		fmt.Printf("  FAIL: injection failed: %v\n", err)
		return false
	}

	// Reset terminal and use fresh reader for confirmation
	resetTerminal()
	confirmReader := bufio.NewReader(os.Stdin)
	fmt.Println()
	fmt.Printf("Did the text %q appear? [y/n]: ", testStr)
	confirm, _ := confirmReader.ReadString('\n')
	confirm = strings.TrimSpace(strings.ToLower(confirm))

	if confirm != "y" && confirm != "yes" {
		fmt.Println("  FAIL: injection not confirmed")
		return false
	}
	fmt.Println("  PASS: injection verified by user")

	if priorErr != nil {
		fmt.Println("  Skipping clipboard preservation check (clipboard unreadable)")
		return true
	}

	fmt.Println()
	fmt.Println("  Verifying clipboard preservation...")
	// The paste fallback restores the prior clipboard shortly after
	// pasting. Give it time to run, then compare.
	time.Sleep(1500 * time.Millisecond)

	after, err := cb.ReadAll()
	if err != nil {
		fmt.Printf("  FAIL: could not read clipboard: %v\n", err)
		return false
	}
	if after != prior {
		fmt.Printf("  FAIL: clipboard not preserved (got %q)\n", after)
		return false
	}
	fmt.Println("  PASS: clipboard preservation verified")
	return true
}
