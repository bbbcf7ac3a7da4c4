package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"

	"github.com/healthsphere/admin/internal/dashboard"
	"github.com/healthsphere/admin/internal/platform/apiclient"
	"github.com/healthsphere/admin/internal/platform/middleware"
	"github.com/healthsphere/admin/internal/platform/sandbox"
	"github.com/healthsphere/admin/internal/reference"
)

func sandboxCmd() *cobra.Command {
	var (
		port  string
		seed  int64
		empty bool
	)
	cmd := &cobra.Command{
		Use:   "sandbox",
		Short: "Run an in-memory hospital backend with generated data",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			catalog, err := reference.Load(cfg.ReferenceFile)
			if err != nil {
				return err
			}

			if port == "" {
				port = cfg.SandboxPort
			}
			if !cmd.Flags().Changed("seed") {
				seed = cfg.SandboxSeed
			}

			seedCfg := sandbox.DefaultSeedConfig()
			seedCfg.Seed = seed
			seedCfg.Departments = catalog.Departments
			srv := sandbox.NewServer(sandbox.NewStore(), seedCfg, sandbox.AuthConfig{
				Key:      cfg.APISigningKey,
				Issuer:   cfg.APITokenIssuer,
				Audience: cfg.APITokenAudience,
			}, logger)
			if !empty {
				result, err := srv.Seed()
				if err != nil {
					return err
				}
				logger.Info().
					Int("wards", result.Wards).
					Int("patients", result.Patients).
					Int("employees", result.Doctors).
					Int("treatments", result.Treatments).
					Int64("seed", seed).
					Msg("sandbox seeded")
			}

			e := echo.New()
			e.HideBanner = true
			e.HidePort = true
			e.Use(middleware.Recovery(logger))
			e.Use(middleware.RequestID())
			e.Use(middleware.Logger(logger))
			srv.RegisterRoutes(e)

			go func() {
				logger.Info().Str("addr", ":"+port).Msg("starting sandbox backend")
				if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
					logger.Fatal().Err(err).Msg("sandbox error")
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return e.Shutdown(ctx)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (defaults to SANDBOX_PORT)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "data generator seed (defaults to SANDBOX_SEED)")
	cmd.Flags().BoolVar(&empty, "empty", false, "start without generated data")
	return cmd
}

func calendarCmd() *cobra.Command {
	var (
		month  string
		doctor string
		week   bool
	)
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Print the treatment calendar of a month or week",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			client := newClient(cfg, logger, nil)

			snap, err := dashboard.Load(cmd.Context(), dashboard.ClientSource{Client: client}, logger)
			if err != nil {
				return err
			}
			view := dashboard.ViewMonth
			if week {
				view = dashboard.ViewWeek
			}
			filter := dashboard.CalendarFilter{Doctor: doctor}
			grid := dashboard.Build(view, dashboard.ParseMonth(month), filter.Treatments(snap), snap)
			printGrid(cmd.OutOrStdout(), grid)
			return nil
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "month as YYYY-MM or a day as YYYY-MM-DD (defaults to today)")
	cmd.Flags().StringVar(&doctor, "doctor", "", "only show treatments of this doctor id")
	cmd.Flags().BoolVar(&week, "week", false, "show the week containing --month instead of the whole month")
	return cmd
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that the backend answers its health endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client := newClient(cfg, newLogger(cfg), nil)
			out := cmd.OutOrStdout()
			if err := client.Health(cmd.Context()); err != nil {
				fmt.Fprintf(out, "%s %s: %s\n", color.New(color.FgRed).Sprint("FAIL"), cfg.APIBaseURL, apiclient.Message(err))
				return err
			}
			fmt.Fprintf(out, "%s %s\n", color.New(color.FgGreen).Sprint("OK"), cfg.APIBaseURL)
			return nil
		},
	}
}

// hexColor parses "#rrggbb".
func hexColor(s string) (r, g, b int, ok bool) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff), true
}

func paint(hex, text string) string {
	r, g, b, ok := hexColor(hex)
	if !ok {
		return text
	}
	return color.RGB(r, g, b).Sprint(text)
}

// printGrid writes one block per week with each day's treatments listed
// under it, followed by the doctor legend.
func printGrid(w io.Writer, grid dashboard.Grid) {
	fmt.Fprintln(w, grid.Title)
	for _, row := range grid.Weeks() {
		fmt.Fprintln(w)
		for i, cell := range row {
			marker := " "
			if cell.Today {
				marker = "*"
			}
			day := fmt.Sprintf("%s %s %02d.%02d.", marker, dashboard.Weekdays[i], cell.Day, int(cell.Date.Month()))
			if cell.OtherMonth {
				day = color.New(color.Faint).Sprint(day)
			}
			fmt.Fprintln(w, day)
			for _, entry := range cell.Entries {
				fmt.Fprintf(w, "    %s %s (%s)\n", paint(entry.Color, "■"), entry.Label, entry.DoctorName)
			}
		}
	}
	if len(grid.Legend) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Legend:")
	for _, item := range grid.Legend {
		fmt.Fprintf(w, "  %s %s\n", paint(item.Color, "■"), item.Name)
	}
}
