package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pvcse/config"
	"pvcse/fixture"
	"pvcse/meetings"
	"pvcse/minutes"
	"pvcse/output"
	"pvcse/render"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		output.NewFormatter(os.Stderr).Fail(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pvcse",
		Short:         "Turn recorded works council meetings into minutes",
		Long:          "Transcribe a meeting recording with speaker diarization, name the speakers, edit the discussion and export the minutes (PV) as PDF.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newTranscribeCmd())
	root.AddCommand(newExportCmd())
	root.AddCommand(newDoctorCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the minutes editing API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if addr != "" {
				cfg.Addr = addr
			}

			svc, closeDB, err := newService(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeDB()

			output.NewFormatter(os.Stdout).Listening(cfg.Addr)
			return runServer(cfg, svc)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
	return cmd
}

func newTranscribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transcribe <audio>",
		Short: "Transcribe a recording and keep it as the session to export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			svc, closeDB, err := newService(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeDB()

			staged, err := stageAudio(args[0])
			if err != nil {
				return err
			}

			f := output.NewFormatter(os.Stdout)
			f.Transcribing(args[0], cfg.Provider)
			start := time.Now()
			m, err := svc.Transcribe(cmd.Context(), svc.Create().ID, staged)
			if err != nil {
				return err
			}
			f.TranscribeDone(m.Session.Transcript.Len(), time.Since(start), m.Source)
			f.Speakers(m.Session.Mapping.Labels())
			f.FixtureWritten(cfg.FixturePath())
			return nil
		},
	}
}

func newExportCmd() *cobra.Command {
	var (
		fixturePath  string
		speakers     []string
		participants []string
		format       string
		outPath      string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Build minutes from a recorded transcript and export them",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if fixturePath == "" {
				fixturePath = cfg.FixturePath()
			}

			t, found, err := fixture.Load(fixturePath)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("%w: fixture %s not found, run 'pvcse transcribe' first", minutes.ErrAcquisition, fixturePath)
			}

			sess, err := buildSession(t, speakers, participants)
			if err != nil {
				return err
			}

			f, err := render.ParseFormat(format)
			if err != nil {
				return err
			}
			r, err := render.For(f, render.Options{Title: cfg.Title})
			if err != nil {
				return err
			}
			if outPath == "" {
				outPath = r.FileName()
			}
			if err := writeFile(outPath, func(w io.Writer) error { return r.Render(w, sess.Document) }); err != nil {
				return err
			}
			output.NewFormatter(os.Stdout).Exported(outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&fixturePath, "fixture", "", "Recorded transcript (default: data dir fixture)")
	cmd.Flags().StringArrayVarP(&speakers, "speaker", "s", nil, "Speaker name as LABEL=Name (repeatable)")
	cmd.Flags().StringArrayVarP(&participants, "participant", "p", nil, "Participant who did not speak (repeatable)")
	cmd.Flags().StringVarP(&format, "format", "f", "pdf", "Export format: pdf|word|markdown|json")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Output file (default: pv_cse.<ext>)")
	return cmd
}

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check prerequisites",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			f := output.NewFormatter(os.Stdout)
			failed := 0
			check := func(name string, problem error, detail string) {
				if !f.Check(name, problem, detail) {
					failed++
				}
			}

			check("provider", cfg.Validate(), cfg.Provider)
			switch cfg.Provider {
			case config.ProviderWhisperx:
				path, err := exec.LookPath("whisperx")
				if err != nil {
					err = errors.New("not in PATH, install it with pip install whisperx")
				}
				check("whisperx", err, path)
				var tokenErr error
				if cfg.HFToken == "" {
					tokenErr = errors.New("diarization needs PVCSE_HF_TOKEN")
				}
				check("hugging face token", tokenErr, "set")
			case config.ProviderMock:
				_, found, err := fixture.Load(cfg.FixturePath())
				if err == nil && !found {
					err = fmt.Errorf("%s missing, transcribe once with a live provider", cfg.FixturePath())
				}
				check("replay fixture", err, cfg.FixturePath())
			}
			check("data directory", nil, cfg.DataDir)

			f.CheckSummary(failed)
			return nil
		},
	}
}

// buildSession applies LABEL=Name pairs and participants in order, the same
// way the editing API does.
func buildSession(t minutes.Transcript, speakers, participants []string) (minutes.Session, error) {
	sess := minutes.NewSession(t)
	for _, s := range speakers {
		label, name, ok := strings.Cut(s, "=")
		if !ok {
			return sess, fmt.Errorf("speaker %q: expected LABEL=Name", s)
		}
		next, _, err := sess.Rename(strings.TrimSpace(label), strings.TrimSpace(name))
		if err != nil {
			return sess, err
		}
		sess = next
	}
	for _, p := range participants {
		sess, _ = sess.AddParticipant(p)
	}
	return sess, nil
}

// stageAudio copies the recording to a temporary artifact the service may
// delete once transcription ends.
func stageAudio(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !slices.Contains(meetings.SupportedAudio, ext) {
		return "", fmt.Errorf("unsupported audio type %q, expected one of %s", ext, strings.Join(meetings.SupportedAudio, ", "))
	}

	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening audio file: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "pvcse-*"+ext)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("staging audio: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("staging audio: %w", err)
	}
	return tmp.Name(), nil
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
