package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aatumaykin/microbot/internal/app/builders"
	"github.com/aatumaykin/microbot/internal/channels"
	"github.com/aatumaykin/microbot/internal/config"
	"github.com/aatumaykin/microbot/internal/cron"
	"github.com/aatumaykin/microbot/internal/logger"
)

const cliChat = "0"

func newScheduleCmd(load configLoader) *cobra.Command {
	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage scheduled directives",
	}
	scheduleCmd.AddCommand(
		newScheduleAddCmd(load),
		newScheduleListCmd(load),
		newScheduleRemoveCmd(load),
		newScheduleCheckCmd(load),
	)
	return scheduleCmd
}

func newScheduleAddCmd(load configLoader) *cobra.Command {
	var (
		when string
		chat string
		typ  string
		id   string
	)

	cmd := &cobra.Command{
		Use:   "add --cron <expr|phrase> [--chat id] [--type msg] [--id id] <content...>",
		Short: "Add a scheduled directive",
		Long: `Add a directive to the store. --cron takes a 5-field cron expression or a
phrase such as "every day at 9am" or "tomorrow at 18:30".`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			cronBuilder := builders.NewCronBuilder(cfg, logger.Nop())
			now := cronBuilder.Clock().Now(cmd.Context(), cfg.App.Timezone).Time(time.UTC)

			expr, kind, err := cron.NormalizeScheduleArgs(map[string]any{"cron": when, "type": typ}, now)
			if err != nil {
				return fmt.Errorf("invalid schedule %q: %s", when, cron.UserMessage(err))
			}
			if !cron.KnownType(kind) {
				return fmt.Errorf("unknown directive type: %s", kind)
			}

			content := strings.Join(args, " ")
			if strings.ContainsAny(content, "\r\n") {
				return fmt.Errorf("content must be a single line")
			}
			if id == "" {
				id = strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
			}
			if strings.Contains(id, "|") || strings.Contains(chat, "|") {
				return fmt.Errorf("id and chat must not contain '|'")
			}

			d := cron.Directive{ID: id, Cron: expr, Chat: chat, Type: kind, Content: content}
			if err := cronBuilder.Storage().Append(d); err != nil {
				return fmt.Errorf("failed to save directive: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Directive added: %s\n", d.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "  cron: %s\n  type: %s\n  chat: %s\n  content: %s\n", d.Cron, d.Type, d.Chat, d.Content)
			return nil
		},
	}
	cmd.Flags().StringVar(&when, "cron", "", "Cron expression or natural phrase")
	cmd.Flags().StringVar(&chat, "chat", cliChat, "Chat id that receives the directive output")
	cmd.Flags().StringVar(&typ, "type", cron.TypeMsg, "Directive type: msg, reminder, cmd, tool, agent or a once_ variant")
	cmd.Flags().StringVar(&id, "id", "", "Directive id (random when empty)")
	_ = cmd.MarkFlagRequired("cron")
	return cmd
}

func newScheduleListCmd(load configLoader) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List scheduled directives",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			directives, err := cron.NewStorage(cfg.App.DataDir, logger.Nop()).List()
			if err != nil {
				return fmt.Errorf("failed to read directives: %w", err)
			}
			return writeDirectives(cmd.OutOrStdout(), format, directives)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table, json or yaml")
	return cmd
}

func writeDirectives(out io.Writer, format string, directives []cron.Directive) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(directives)
	case "yaml":
		return yaml.NewEncoder(out).Encode(directives)
	case "table", "":
		if len(directives) == 0 {
			fmt.Fprintln(out, "No directives.")
			return nil
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCRON\tCHAT\tTYPE\tCONTENT")
		for _, d := range directives {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", d.ID, d.Cron, d.Chat, d.Type, d.Content)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(out, "Total: %d\n", len(directives))
		return nil
	default:
		return fmt.Errorf("unknown format %q (expected: table, json, yaml)", format)
	}
}

func newScheduleRemoveCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a scheduled directive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if err := cron.NewStorage(cfg.App.DataDir, logger.Nop()).Remove(args[0]); err != nil {
				if errors.Is(err, cron.ErrDirectiveNotFound) {
					return fmt.Errorf("directive %s not found (see 'microbot schedule list')", args[0])
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Directive removed: %s\n", args[0])
			return nil
		},
	}
}

func newScheduleCheckCmd(load configLoader) *cobra.Command {
	var apply bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Show which directives are due, or run one pass with --apply",
		Long: `Evaluate the directive store against the current time.

By default this is a dry run: the pass works on a scratch copy of the store
and the checkpoint, nothing is sent and nothing is executed.

With --apply the pass is real. Due directives fire as they would under serve
(commands and tools run, replies go to the log instead of a chat), the live
checkpoint advances and fired one-shot directives are removed. A running serve
process will not deliver what an applied check consumed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			log, err := logger.New(logger.Config{Level: cfg.Logging.Level, Format: "text", Output: "stderr"})
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer log.Close()

			run, label, verb := runDryCheck, "Dry run", "would fire"
			if apply {
				run, label, verb = runCheck, "Pass", "fired"
			}
			result, err := run(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s at %s: %d ticks, %d fired, %d removed, %d errors\n",
				label, result.Now, result.Ticks, len(result.Fired), len(result.Removed), result.Errors)
			for _, f := range result.Fired {
				fmt.Fprintf(out, "  %s %s (%s) for %s\n", verb, f.ID, f.Type, f.Tick)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "fire due directives and advance the live checkpoint")
	return cmd
}

// previewFirer reports every due directive as fired without side effects.
type previewFirer struct{}

func (previewFirer) Fire(context.Context, cron.Directive) (bool, error) {
	return true, nil
}

// runDryCheck runs a pass over scratch copies of the store and the checkpoint.
func runDryCheck(ctx context.Context, cfg *config.Config, log *logger.Logger) (cron.PassResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	scratch, err := os.MkdirTemp("", "microbot-check-")
	if err != nil {
		return cron.PassResult{}, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(scratch)

	for _, name := range []string{cron.SchedulesFilename, cron.StateFilename} {
		if err := copyFile(filepath.Join(cfg.App.DataDir, name), filepath.Join(scratch, name)); err != nil {
			return cron.PassResult{}, err
		}
	}

	dry := *cfg
	dry.App.DataDir = scratch
	cronBuilder := builders.NewCronBuilder(&dry, log)

	reconciler, err := cron.NewReconciler(cron.ReconcilerConfig{
		Timezone:       cfg.App.Timezone,
		CatchupMinutes: cfg.Schedule.CatchupMinutes,
		Store:          cronBuilder.Storage(),
		Checkpoints:    cron.NewCheckpointStore(scratch, log),
		Clock:          cronBuilder.Clock(),
		Firer:          previewFirer{},
		Logger:         log,
	})
	if err != nil {
		return cron.PassResult{}, err
	}
	return reconciler.RunPass(ctx)
}

// copyFile copies src to dst. A missing src is not an error.
func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return nil
}

// runCheck assembles the reconciler the way serve does, with a logging sender,
// and runs one live pass.
func runCheck(ctx context.Context, cfg *config.Config, log *logger.Logger) (cron.PassResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cronBuilder := builders.NewCronBuilder(cfg, log)
	toolsBuilder := builders.NewToolsBuilder(cfg, log, cronBuilder.Clock(), cronBuilder.Storage())
	registry, err := toolsBuilder.RegisterAllTools()
	if err != nil {
		return cron.PassResult{}, err
	}
	gateway, err := toolsBuilder.BuildGateway(registry, nil)
	if err != nil {
		return cron.PassResult{}, err
	}

	sender := channels.NewLogSender(log)
	deps := builders.ExecutorDeps{Sender: sender, Tools: gateway}
	if shell := toolsBuilder.Shell(); shell != nil {
		deps.Commands = shell
	}

	provider, model, err := builders.NewLLMBuilder(cfg, log).Build()
	if err != nil {
		return cron.PassResult{}, err
	}
	agentLoop, err := builders.NewAgentBuilder(cfg, log, provider, model).
		BuildLoop(gateway, registry, sender, nil)
	if err != nil {
		return cron.PassResult{}, err
	}
	deps.Agent = agentLoop

	journal, err := cronBuilder.Journal()
	if err != nil {
		return cron.PassResult{}, err
	}
	defer journal.Close()

	reconciler, _, err := cronBuilder.BuildReconciler(deps, journal, nil)
	if err != nil {
		return cron.PassResult{}, err
	}
	return reconciler.RunPass(ctx)
}
