// Command client is a reference capture device. It reads trigger lines from
// stdin, sends them to the relay server and plays the spoken reply.
//
//	c <image path>   read or describe a captured image
//	v <question>     ask about the last capture
//	a <audio path>   ask with a recorded question
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lukasbauer/samaksh/internal/client"
	"github.com/lukasbauer/samaksh/internal/device"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	serverURL := getenv("SERVER_URL", "http://localhost:8080")
	player := strings.Fields(getenv("PLAYER_CMD", "mpg123 -q"))
	timeout := client.DefaultTimeout
	if v := os.Getenv("CLIENT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			timeout = d
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := client.New(client.Config{BaseURL: serverURL, Timeout: timeout})
	if err := c.NewSession(ctx); err != nil {
		logger.Printf("session: %v (using shared session)", err)
	}

	d := device.NewDispatcher(device.DefaultDebounce, logger)
	h := &handlers{client: c, player: player, logger: logger}
	d.Register(device.KindCapture, h.capture)
	d.Register(device.KindVoice, h.voice)
	d.Register(kindVoiceAudio, h.voiceAudio)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	logger.Printf("client ready, server %s", serverURL)
	for {
		select {
		case <-ctx.Done():
			d.Wait()
			return
		case line, ok := <-lines:
			if !ok {
				d.Wait()
				return
			}
			kind, payload, err := parseLine(line)
			if err != nil {
				logger.Printf("input: %v", err)
				continue
			}
			if kind == "" {
				continue
			}
			d.Trigger(ctx, kind, payload)
		}
	}
}

const kindVoiceAudio device.Kind = "voice_audio"

// parseLine maps a stdin line to a trigger. Blank lines yield an empty kind.
func parseLine(line string) (device.Kind, string, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", "", nil
	}
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	var kind device.Kind
	switch cmd {
	case "c":
		kind = device.KindCapture
	case "v":
		kind = device.KindVoice
	case "a":
		kind = kindVoiceAudio
	default:
		return "", "", fmt.Errorf("unknown command %q", cmd)
	}
	if arg == "" {
		return "", "", fmt.Errorf("command %q needs an argument", cmd)
	}
	return kind, arg, nil
}

type handlers struct {
	client *client.Client
	player []string
	logger *log.Logger
}

func (h *handlers) capture(ctx context.Context, path string) error {
	image, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}
	res, err := h.client.Process(ctx, image, "capture")
	if err != nil {
		return err
	}
	if res.Text != nil {
		h.logger.Printf("text (%s): %s", res.Language, *res.Text)
	} else {
		h.logger.Printf("scene: %s", res.Description)
	}
	return h.play(ctx, res.AudioURL)
}

func (h *handlers) voice(ctx context.Context, question string) error {
	res, err := h.client.Query(ctx, question)
	if err != nil {
		return err
	}
	h.logger.Printf("answer: %s", res.Answer)
	return h.play(ctx, res.AudioURL)
}

func (h *handlers) voiceAudio(ctx context.Context, path string) error {
	audio, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read audio: %w", err)
	}
	res, err := h.client.QueryVoice(ctx, audio, "")
	if err != nil {
		return err
	}
	h.logger.Printf("heard %q, answer: %s", res.Question, res.Answer)
	return h.play(ctx, res.AudioURL)
}

func (h *handlers) play(ctx context.Context, audioURL string) error {
	if audioURL == "" {
		return nil
	}
	f, err := os.CreateTemp("", "reply-*.mp3")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(f.Name())

	if err := h.client.Download(ctx, audioURL, f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write audio: %w", err)
	}
	if len(h.player) == 0 {
		return nil
	}

	args := append(append([]string{}, h.player[1:]...), f.Name())
	cmd := exec.CommandContext(ctx, h.player[0], args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("play audio: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
