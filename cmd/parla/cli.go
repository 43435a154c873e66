package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrWong99/parla/internal/config"
	"github.com/MrWong99/parla/internal/interference"
	"github.com/MrWong99/parla/internal/progress"
	"github.com/MrWong99/parla/internal/scoring"
)

func newScoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score <target> <transcript>",
		Short: "Score a transcript against a target phrase",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := scoring.NewAnalyzer().Analyze(args[1], args[0])
			printAnalysis(cmd.OutOrStdout(), a)
			return nil
		},
	}
}

func printAnalysis(w io.Writer, a scoring.Analysis) {
	rows := []string{
		row("score", scoreStyle(a.Score).Render(strconv.Itoa(a.Score))),
		row("missing", listOrDash(a.Missing)),
		row("extra", listOrDash(a.Extra)),
	}
	for _, nm := range a.NearMisses {
		kind := "spelling"
		if nm.Phonetic {
			kind = "sound"
		}
		rows = append(rows, row("near miss", fmt.Sprintf("%s → %s %s", nm.Expected, nm.Heard, styleMuted.Render("("+kind+")"))))
	}
	_, _ = fmt.Fprintln(w, panel("Pronunciation", rows...))
}

func newDetectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect <transcript>...",
		Short: "Detect native-language interference in a transcript",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := interference.Detect(strings.Join(args, " "))
			printInterference(cmd.OutOrStdout(), r)
			return nil
		},
	}
}

func printInterference(w io.Writer, r interference.Result) {
	if !r.Detected {
		_, _ = fmt.Fprintln(w, panel("Interference", styleGood.Render("none detected")))
		return
	}
	level := styleWarn
	if r.Confidence == interference.ConfidenceHigh {
		level = styleBad
	}
	_, _ = fmt.Fprintln(w, panel("Interference",
		row("confidence", level.Render(string(r.Confidence))),
		row("words", strings.Join(r.MatchedTerms, ", ")),
		row("feedback", r.Feedback),
		row("tip", styleMuted.Render(r.Tip)),
	))
}

func newModesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "modes",
		Short: "List the exercise modes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts.configPath)
			if err != nil {
				return err
			}
			var rows []string
			for _, m := range cfg.AllModes() {
				desc := fmt.Sprintf("%d prompts", m.Target)
				switch {
				case len(m.Windows) > 0:
					ws := make([]string, len(m.Windows))
					for i, w := range m.Windows {
						ws[i] = w.String()
					}
					desc = "window " + strings.Join(ws, " / ")
				case m.ResponseWindow > 0:
					desc += fmt.Sprintf(", %s to answer", m.ResponseWindow)
				}
				rows = append(rows, row(m.Name, desc+" "+styleMuted.Render(m.Title)))
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), panel("Modes", rows...))
			return nil
		},
	}
}

func newProgressCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show the learner's progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withProgress(cmd.Context(), opts.configPath, func(svc *progress.Service) error {
				p, err := svc.Load(cmd.Context())
				if err != nil {
					return err
				}
				printProgress(cmd.OutOrStdout(), p, svc.Ledger().CurrentDate())
				return nil
			})
		},
	}

	var yes bool
	reset := &cobra.Command{
		Use:   "reset",
		Short: "Erase the learner's progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fmt.Errorf("refusing to reset without --yes")
			}
			return withProgress(cmd.Context(), opts.configPath, func(svc *progress.Service) error {
				if err := svc.Reset(cmd.Context()); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), styleGood.Render("progress reset"))
				return nil
			})
		},
	}
	reset.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	cmd.AddCommand(reset)
	return cmd
}

// withProgress opens the configured store for the duration of fn.
func withProgress(ctx context.Context, configPath string, fn func(*progress.Service) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	reg := config.NewRegistry()
	registerBuiltins(reg)
	store, err := reg.OpenStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if store.Close != nil {
		defer store.Close()
	}
	return fn(progress.NewService(store.Store, progress.WithRecordKey(cfg.Storage.RecordKey)))
}

func printProgress(w io.Writer, p progress.UserProgress, today string) {
	st := progress.Status(p)
	rows := []string{
		row("level", fmt.Sprintf("%d %s", st.Level, styleMuted.Render(st.Title))),
		row("xp", fmt.Sprintf("%d (%d to next level)", p.XP, st.XPToNext)),
		row("streak", fmt.Sprintf("%d days", p.Streak)),
		row("phrases", strconv.Itoa(p.TotalPhrases)),
		row("speaking time", (time.Duration(p.TotalSeconds) * time.Second).String()),
	}
	if d, ok := progress.TodayRecord(p, today); ok {
		rows = append(rows, row("today", fmt.Sprintf("%d phrases, %s", d.PhrasesCompleted, strings.Join(d.ModesUsed, ", "))))
	} else {
		rows = append(rows, row("today", styleMuted.Render("no practice yet")))
	}
	_, _ = fmt.Fprintln(w, panel("Progress", rows...))
}

func listOrDash(xs []string) string {
	if len(xs) == 0 {
		return styleMuted.Render("-")
	}
	return strings.Join(xs, ", ")
}
