// Command eldercare runs the elder-care agent chain from the command line.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"eldercare-mcp/internal/app"
	"eldercare-mcp/internal/config"
	"eldercare-mcp/internal/core"
	"eldercare-mcp/internal/eventbus"
	"eldercare-mcp/internal/logging"
	"eldercare-mcp/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type cli struct {
	configPath string
	cfg        *config.Config
}

func newRootCommand() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:          "eldercare",
		Short:        "Elder-care multi-agent event broker",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			c.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "path to a YAML config file")

	root.AddCommand(
		c.simulateCommand(),
		c.eventsCommand(),
		c.patientCommand(),
		c.watchCommand(),
		c.configCommand(),
	)
	return root
}

func (c *cli) open(ctx context.Context) (*app.App, error) {
	logger := logging.New(c.cfg.Log, os.Stderr)
	return app.New(ctx, c.cfg, func(o *app.Options) { o.Logger = logger })
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) simulateCommand() *cobra.Command {
	var (
		patient  string
		patients []string
		reading  struct {
			sys, dia, hr, glucose, spo2, temp, rr float64
			notes                                 string
		}
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Feed a vitals reading through the agent chain",
		Long: "Feed a vitals reading through the agent chain. Without vitals flags a\n" +
			"hypertensive crisis (190/115, HR 95) is simulated.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			var v *core.Vitals
			flags := cmd.Flags()
			set := func(name string, val float64) *float64 {
				if flags.Changed(name) {
					return core.Float(val)
				}
				return nil
			}
			if flags.Changed("bp-systolic") || flags.Changed("bp-diastolic") || flags.Changed("heart-rate") ||
				flags.Changed("blood-glucose") || flags.Changed("spo2") || flags.Changed("temperature") ||
				flags.Changed("respiratory-rate") || flags.Changed("notes") {
				v = &core.Vitals{
					SystolicBP:      set("bp-systolic", reading.sys),
					DiastolicBP:     set("bp-diastolic", reading.dia),
					HeartRate:       set("heart-rate", reading.hr),
					BloodGlucose:    set("blood-glucose", reading.glucose),
					SpO2:            set("spo2", reading.spo2),
					Temperature:     set("temperature", reading.temp),
					RespiratoryRate: set("respiratory-rate", reading.rr),
					Notes:           reading.notes,
				}
			}

			if len(patients) == 0 {
				return printJSON(cmd, a.Simulate(cmd.Context(), patient, v))
			}

			results := make([]app.Simulation, len(patients))
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(4)
			for i, id := range patients {
				g.Go(func() error {
					results[i] = a.Simulate(ctx, id, v)
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			return printJSON(cmd, results)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&patient, "patient", "p", "", "patient id; empty picks a known patient")
	f.StringSliceVar(&patients, "patients", nil, "simulate several patients concurrently")
	f.Float64Var(&reading.sys, "bp-systolic", 0, "systolic blood pressure (mmHg)")
	f.Float64Var(&reading.dia, "bp-diastolic", 0, "diastolic blood pressure (mmHg)")
	f.Float64Var(&reading.hr, "heart-rate", 0, "heart rate (bpm)")
	f.Float64Var(&reading.glucose, "blood-glucose", 0, "blood glucose (mg/dL)")
	f.Float64Var(&reading.spo2, "spo2", 0, "oxygen saturation (%)")
	f.Float64Var(&reading.temp, "temperature", 0, "body temperature (C)")
	f.Float64Var(&reading.rr, "respiratory-rate", 0, "respiratory rate (breaths/min)")
	f.StringVar(&reading.notes, "notes", "", "free-text notes")
	cmd.MarkFlagsMutuallyExclusive("patient", "patients")
	return cmd
}

func (c *cli) eventsCommand() *cobra.Command {
	var (
		patient string
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List recorded events, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			events, err := a.Store.ListEvents(cmd.Context(), patient, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd, events)
		},
	}
	cmd.Flags().StringVarP(&patient, "patient", "p", "", "only events for this patient")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of events")
	return cmd
}

func (c *cli) patientCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patient",
		Short: "Manage patients",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add <id> [name]",
		Short: "Register a patient",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			p := store.Patient{ID: args[0], CreatedAt: time.Now().UTC()}
			if len(args) > 1 {
				p.Name = args[1]
			}
			if err := a.Store.AddPatient(cmd.Context(), p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "patient %s registered\n", p.ID)
			return nil
		},
	})
	return cmd
}

func (c *cli) watchCommand() *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print records mirrored onto the Redis event bus",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.New(c.cfg.Log, os.Stderr)
			bus := eventbus.NewRedisBus(c.cfg.RedisOptions(), logger)
			defer bus.Close()

			pattern := eventbus.TopicPrefix + "*"
			if target != "" {
				pattern = eventbus.Topic(target)
			}
			events, err := bus.SubscribePattern(cmd.Context(), pattern)
			if err != nil {
				return err
			}
			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case ev, ok := <-events:
					if !ok {
						return nil
					}
					if err := printJSON(cmd, ev); err != nil {
						return err
					}
				}
			}
		},
	}
	cmd.Flags().StringVarP(&target, "target", "t", "", "only records addressed to this agent")
	return cmd
}

func (c *cli) configCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.cfg.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
