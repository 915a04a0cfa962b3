package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/briangreenhill/voicept/internal/app"
	"github.com/briangreenhill/voicept/internal/config"
	"github.com/briangreenhill/voicept/internal/fitness"
	"github.com/briangreenhill/voicept/internal/guidance"
	"github.com/briangreenhill/voicept/internal/narration"
	"github.com/briangreenhill/voicept/internal/notify"
	"github.com/briangreenhill/voicept/internal/session"
	"github.com/briangreenhill/voicept/internal/speech"
	"github.com/briangreenhill/voicept/internal/store"
)

// cliSession namespaces the profile the CLI works on.
const cliSession = "cli"

// env holds what commands need from the outside world.
type env struct {
	out    io.Writer
	logger zerolog.Logger

	loadConfig func() (*config.Config, error)
	readConfig func() (*config.Config, error)
	openStore  func(ctx context.Context, cfg *config.Config) (store.Backend, error)
	guidance   func(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (guidance.Client, error)
	synth      func(ctx context.Context, cfg *config.Config) (speech.Synthesizer, error)
}

func newEnv(out io.Writer, logger zerolog.Logger) *env {
	return &env{
		out:        out,
		logger:     logger,
		loadConfig: config.Load,
		readConfig: config.Read,
		openStore:  store.Open,
		guidance: func(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (guidance.Client, error) {
			return app.ProvideGuidance(ctx, cfg, logger)
		},
		synth: app.ProvideSynthesizer,
	}
}

func newRootCommand(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:          "voicept",
		Short:        "Voice personal trainer",
		SilenceUsage: true,
	}
	root.AddCommand(
		newProfileCommand(e),
		newProgramCommand(e),
		newGuideCommand(e),
		newResetCommand(e),
	)
	return root
}

// withHost runs fn against the CLI session, backed by the configured store.
func (e *env) withHost(ctx context.Context, cfg *config.Config, deps session.Deps, fn func(*session.Host) error) error {
	kv, err := e.openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer kv.Close()

	deps.Cache = store.NewProfileCache(kv, e.logger)
	deps.Logger = e.logger
	m := session.NewManager(deps)
	defer m.Shutdown()

	h, err := m.Get(ctx, cliSession)
	if err != nil {
		return err
	}
	return fn(h)
}

func newProfileCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage the health profile",
	}

	var file string
	set := &cobra.Command{
		Use:   "set",
		Short: "Submit a health profile from a YAML or JSON file and generate the program",
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			var in fitness.ProfileInput
			if err := yaml.Unmarshal(data, &in); err != nil {
				return fmt.Errorf("parse %s: %w", file, err)
			}
			cfg, err := e.readConfig()
			if err != nil {
				return err
			}
			return e.withHost(cmd.Context(), cfg, session.Deps{}, func(h *session.Host) error {
				profile, program, err := h.SubmitProfile(cmd.Context(), in)
				if err != nil {
					return err
				}
				fmt.Fprintf(e.out, "BMI %.1f, waist-to-height %.2f\n\n", profile.BMI, profile.WaistToHeightRatio)
				return printProgram(e.out, program)
			})
		},
	}
	set.Flags().StringVarP(&file, "file", "f", "profile.yaml", "profile file")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the saved health profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := e.readConfig()
			if err != nil {
				return err
			}
			return e.withHost(cmd.Context(), cfg, session.Deps{}, func(h *session.Host) error {
				profile, err := h.Profile()
				if err != nil {
					return noProfile(err)
				}
				enc := yaml.NewEncoder(e.out)
				if err := enc.Encode(profile.ProfileInput); err != nil {
					return err
				}
				if err := enc.Close(); err != nil {
					return err
				}
				fmt.Fprintf(e.out, "bmi: %.1f\nwaistToHeightRatio: %.2f\n", profile.BMI, profile.WaistToHeightRatio)
				return nil
			})
		},
	}

	cmd.AddCommand(set, show)
	return cmd
}

func newProgramCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "program",
		Short: "Print the weekly workout program",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := e.readConfig()
			if err != nil {
				return err
			}
			return e.withHost(cmd.Context(), cfg, session.Deps{}, func(h *session.Host) error {
				program, err := h.Program()
				if err != nil {
					return noProfile(err)
				}
				return printProgram(e.out, program)
			})
		},
	}
}

func newResetCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Forget the saved profile and program",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := e.readConfig()
			if err != nil {
				return err
			}
			return e.withHost(cmd.Context(), cfg, session.Deps{}, func(h *session.Host) error {
				if err := h.Reset(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(e.out, "Profile cleared.")
				return nil
			})
		},
	}
}

func newGuideCommand(e *env) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "guide <day> [exercise]",
		Short: "Fetch trainer guidance for a day or one exercise, optionally narrating it to a file",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			day, ok := fitness.ParseDay(args[0])
			if !ok {
				return fmt.Errorf("unknown day %q", args[0])
			}
			exercise := -1
			if len(args) == 2 {
				n, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("exercise must be a number: %w", err)
				}
				exercise = n
			}

			cfg, err := e.loadConfig()
			if err != nil {
				return err
			}
			guide, err := e.guidance(ctx, cfg, e.logger)
			if err != nil {
				return err
			}
			deps := session.Deps{Guide: guide, GuidanceTimeout: cfg.Guidance.Timeout}
			if out != "" {
				synth, err := e.synth(ctx, cfg)
				if err != nil {
					return err
				}
				if synth == nil {
					return errors.New("speech is disabled (SPEECH_BACKEND=none)")
				}
				deps.Synth = synth
			}

			return e.withHost(ctx, cfg, deps, func(h *session.Host) error {
				sub := h.Subscribe()
				defer sub.Unsubscribe()
				defer h.Close()

				var st narration.State
				if exercise >= 0 {
					st, err = h.PlayExercise(day, exercise)
				} else {
					st, err = h.PlayDay(day)
				}
				if err != nil {
					return noProfile(err)
				}

				st, err = await(ctx, h, sub, nil, func(s narration.State) bool {
					return s.Phase == narration.Ready || s.Phase == narration.Failed
				})
				if err != nil {
					return err
				}
				if st.Phase == narration.Failed {
					return errors.New(narration.NoticeFor(st.Failure).Message)
				}
				fmt.Fprintf(e.out, "%s\n\n%s\n", st.Target.Label(), st.Captions())

				if out == "" {
					return nil
				}
				return narrate(ctx, h, sub, out, e.out)
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the narration audio to this file")
	return cmd
}

// narrate plays the held guidance and writes its audio to path.
func narrate(ctx context.Context, h *session.Host, sub *notify.Subscription, path string, out io.Writer) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	sink := speech.NewWriterSink(f)

	st, err := h.Play()
	if err != nil {
		return err
	}
	if st.Phase == narration.Failed {
		return errors.New(narration.NoticeFor(st.Failure).Message)
	}

	st, err = await(ctx, h, sub, sink, func(s narration.State) bool {
		return s.Phase != narration.Playing && s.Phase != narration.Paused
	})
	if err != nil {
		return err
	}
	if st.Phase == narration.Failed {
		return errors.New(narration.NoticeFor(st.Failure).Message)
	}
	fmt.Fprintf(out, "\nWrote %d bytes of audio to %s\n", sink.Written(), path)
	return nil
}

// await reads sub until done accepts a phase, forwarding audio to sink.
func await(ctx context.Context, h *session.Host, sub *notify.Subscription, sink speech.Sink, done func(narration.State) bool) (narration.State, error) {
	for {
		select {
		case <-ctx.Done():
			return h.Snapshot(), ctx.Err()
		case m, open := <-sub.C:
			if !open {
				return h.Snapshot(), errors.New("session ended")
			}
			switch m.Type {
			case notify.TypeAudio:
				if sink != nil {
					if err := sink.WriteAudio(m.Utterance, m.MIMEType, m.Audio); err != nil {
						return h.Snapshot(), err
					}
				}
			case notify.TypePhase:
				if done(*m.State) {
					return *m.State, nil
				}
			}
		}
	}
}

func noProfile(err error) error {
	if errors.Is(err, session.ErrNoProfile) {
		return errors.New("no health profile yet, run: voicept profile set -f profile.yaml")
	}
	return err
}

func printProgram(w io.Writer, program fitness.WorkoutProgram) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, day := range program {
		names := make([]string, 0, len(day.Exercises))
		for _, ex := range day.Exercises {
			names = append(names, fmt.Sprintf("%s %dx%s", ex.Name, ex.Sets, ex.Reps))
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i, day.Day, day.WorkoutName, strings.Join(names, ", "))
	}
	return tw.Flush()
}
