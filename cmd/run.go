package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/cita-scheduler/internal/application/usecases"
	"github.com/example/cita-scheduler/internal/config"
	"github.com/example/cita-scheduler/internal/domain/cita"
	"github.com/example/cita-scheduler/internal/infrastructure/anticaptcha"
	"github.com/example/cita-scheduler/internal/infrastructure/natsnotify"
	"github.com/example/cita-scheduler/internal/infrastructure/pwsession"
	"github.com/example/cita-scheduler/internal/infrastructure/rodsession"
	"github.com/example/cita-scheduler/internal/infrastructure/webhooksite"
	"github.com/example/cita-scheduler/internal/journal"
	"github.com/example/cita-scheduler/internal/scheduler"
)

var errNotBooked = errors.New("no appointment booked")

type runFlags struct {
	profile  string
	cycles   int
	driver   string
	headless bool
	remote   string
	probe    bool
}

func newRunCmd() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Try to book an appointment, cycle after cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			f.apply(cmd, &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			log := newLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
			slog.SetDefault(log)

			intent, err := config.LoadProfile(cfg.ProfilePath)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			out, err := run(ctx, cfg, intent, f.probe, cmd.InOrStdin(), cmd.OutOrStdout(), log)
			if err != nil {
				return err
			}
			if !out.Success {
				return fmt.Errorf("%w after %d attempts (run %s)", errNotBooked, out.Attempts, out.RunID)
			}
			if out.Code != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "booked: code=%s run=%s attempts=%d\n", out.Code, out.RunID, out.Attempts)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&f.profile, "profile", "", "booking profile YAML (overrides CITA_PROFILE)")
	cmd.Flags().IntVar(&f.cycles, "cycles", 0, "maximum booking cycles (overrides CITA_CYCLES)")
	cmd.Flags().StringVar(&f.driver, "driver", "", "browser driver: rod or playwright (overrides CITA_DRIVER)")
	cmd.Flags().BoolVar(&f.headless, "headless", false, "run the browser headless (overrides CITA_HEADLESS)")
	cmd.Flags().StringVar(&f.remote, "remote", "", "connect to a running browser instead of launching one")
	cmd.Flags().BoolVar(&f.probe, "probe", false, "stop after the instructions page")
	return cmd
}

func (f runFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if f.profile != "" {
		cfg.ProfilePath = f.profile
	}
	if f.cycles > 0 {
		cfg.Cycles = f.cycles
	}
	if f.driver != "" {
		cfg.Driver = f.driver
	}
	if cmd.Flags().Changed("headless") {
		cfg.Headless = f.headless
	}
	if f.remote != "" {
		cfg.RemoteURL = f.remote
	}
}

func run(ctx context.Context, cfg config.Config, intent cita.Intent, probe bool, in io.Reader, out io.Writer, log *slog.Logger) (cita.Outcome, error) {
	page, err := openPage(ctx, cfg, log)
	if err != nil {
		return cita.Outcome{}, err
	}

	store, err := journal.Open(ctx, journal.Config{DatabaseURL: cfg.DatabaseURL, SQLitePath: cfg.JournalSQLite})
	if err != nil {
		_ = page.Close()
		return cita.Outcome{}, err
	}
	defer store.Close()

	s := &scheduler.Scheduler{
		Page:           page,
		Journal:        store,
		PortalURL:      cfg.PortalURL,
		InitialRetries: cfg.InitialRetries,
		InitialBackoff: cfg.InitialBackoff,
		Logger:         log,
		Book: usecases.BookAttempt{
			Human: newLinePrompter(in, out),
			Artifacts: &usecases.Artifacts{
				Dir:     cfg.ArtifactsDir,
				Enabled: intent.SaveArtifacts,
				Logger:  log,
			},
			Probe: probe,
		},
	}
	if intent.CaptchaAPIKey != "" {
		c := anticaptcha.New(cfg.AntiCaptchaURL, intent.CaptchaAPIKey)
		c.Logger = log
		s.Book.Captcha = c
	}
	if intent.SMSWebhookToken != "" {
		c := webhooksite.New(cfg.WebhookURL)
		c.Logger = log
		s.Book.Codes = c
	}
	if cfg.NATSURL != "" {
		n, err := natsnotify.New(natsnotify.Config{URL: cfg.NATSURL, Subject: cfg.NATSSubject})
		if err != nil {
			log.Warn("nats unavailable, outcome will not be published", "error", err)
		} else {
			defer n.Close()
			s.Notifier = n
		}
	}

	log.Info("starting", "province", intent.Province, "operation", intent.Operation, "cycles", cfg.Cycles, "driver", cfg.Driver)
	return s.Run(ctx, intent, cfg.Cycles), nil
}

func openPage(ctx context.Context, cfg config.Config, log *slog.Logger) (cita.PageSession, error) {
	if cfg.Driver == "playwright" {
		p, err := pwsession.Open(ctx, pwsession.Config{
			RemoteURL: cfg.RemoteURL,
			Headless:  cfg.Headless,
			UserAgent: cfg.UserAgent,
			Logger:    log,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	p, err := rodsession.Open(ctx, rodsession.Config{
		RemoteURL: cfg.RemoteURL,
		Headless:  cfg.Headless,
		UserAgent: cfg.UserAgent,
		Logger:    log,
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}
