package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/anime-shed/nutrivision-go/internal/config"
	"github.com/anime-shed/nutrivision-go/internal/container"
	"github.com/anime-shed/nutrivision-go/internal/logger"
	"github.com/anime-shed/nutrivision-go/internal/service"
	"github.com/anime-shed/nutrivision-go/pkg/validation"
)

const help = `Enter the path of a meal photo (.jpg, .jpeg, .png) to analyze it.
  :temp <0..1>     sampling temperature
  :preset <name>   prompt preset (%s)
  :prompt <text>   custom instruction, empty to clear
  :quit            exit`

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func mainImpl() error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	// keep the terminal for results; logs only when something goes wrong
	logger.SetLevel("error")

	c, err := container.NewContainer(cfg)
	if err != nil {
		return err
	}

	rl, err := readline.New("meal> ")
	if err != nil {
		return err
	}
	defer func() {
		_ = rl.Close()
	}()

	s := newSession(c.Service(), cfg.DefaultTemperature)
	fmt.Fprintf(rl.Stdout(), help+"\n", strings.Join(s.svc.Presets(), ", "))

	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF or interrupt
			break
		}
		if s.handle(context.Background(), line, rl.Stdout()) {
			break
		}
	}
	return nil
}

type session struct {
	svc         service.MealAnalysisService
	temperature float64
	preset      string
	instruction string
}

func newSession(svc service.MealAnalysisService, temperature float64) *session {
	return &session{svc: svc, temperature: temperature}
}

// handle runs one input line and reports whether the session should end
func (s *session) handle(ctx context.Context, line string, out io.Writer) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	if !strings.HasPrefix(line, ":") {
		s.analyze(ctx, line, out)
		return false
	}

	command, arg, _ := strings.Cut(line[1:], " ")
	arg = strings.TrimSpace(arg)
	switch command {
	case "quit", "q", "exit":
		return true
	case "temp":
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			fmt.Fprintf(out, "temperature must be a number, got %q\n", arg)
			return false
		}
		s.temperature = validation.ClampTemperature(v)
		fmt.Fprintf(out, "temperature set to %.2f\n", s.temperature)
	case "preset":
		s.preset = arg
		fmt.Fprintf(out, "preset set to %q\n", arg)
	case "prompt":
		s.instruction = arg
		if arg == "" {
			fmt.Fprintln(out, "custom instruction cleared")
		} else {
			fmt.Fprintln(out, "custom instruction set")
		}
	case "help":
		fmt.Fprintf(out, help+"\n", strings.Join(s.svc.Presets(), ", "))
	default:
		fmt.Fprintf(out, "unknown command :%s (try :help)\n", command)
	}
	return false
}

func (s *session) analyze(ctx context.Context, path string, out io.Writer) {
	path = strings.Trim(path, `"'`)
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(out, "cannot open %s: %v\n", path, err)
		return
	}
	defer f.Close()

	temperature := s.temperature
	resp := s.svc.AnalyzeUpload(ctx, service.UploadRequest{
		Options: service.Options{
			Instruction: s.instruction,
			Preset:      s.preset,
			Temperature: &temperature,
			Source:      service.SourceConsole,
		},
		Filename: path,
		Data:     f,
	})

	for _, issue := range resp.QualityIssues {
		fmt.Fprintf(out, "note: %s\n", issue.Message)
	}
	fmt.Fprintln(out, resp.Result)
}

