package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/cita-scheduler/internal/config"
	"github.com/example/cita-scheduler/internal/domain/cita"
)

func newCheckCmd() *cobra.Command {
	var profile string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a booking profile without opening a browser",
		RunE: func(cmd *cobra.Command, args []string) error {
			if profile == "" {
				cfg, err := config.FromEnv()
				if err != nil {
					return err
				}
				profile = cfg.ProfilePath
			}
			in, err := config.LoadProfile(profile)
			if err != nil {
				return err
			}
			describe(cmd, in)
			return nil
		},
	}
	cmd.Flags().StringVar(&profile, "profile", "", "booking profile YAML (overrides CITA_PROFILE)")
	return cmd
}

func describe(cmd *cobra.Command, in cita.Intent) {
	w := cmd.OutOrStdout()
	d, _ := cita.Describe(in.Operation)
	province, _ := cita.LookupProvince(in.Province)
	fmt.Fprintf(w, "operation: %s (%s)\n", d.Name, d.Code)
	fmt.Fprintf(w, "province:  %s (%s)\n", province, in.Province)
	fmt.Fprintf(w, "entry:     %s\n", cita.FastForwardURL(cita.DefaultPortalURL, in.Province, in.Operation))
	if len(in.Offices) > 0 {
		fmt.Fprintf(w, "offices:   %s\n", strings.Join(in.Offices, ","))
	}
	if len(in.ExceptOffices) > 0 {
		fmt.Fprintf(w, "except:    %s\n", strings.Join(in.ExceptOffices, ","))
	}
	if !in.Dates.IsZero() {
		fmt.Fprintf(w, "dates:     %s .. %s\n", formatDate(in.Dates.Min), formatDate(in.Dates.Max))
	}
	if in.Times.Min != "" || in.Times.Max != "" {
		fmt.Fprintf(w, "times:     %s .. %s\n", in.Times.Min, in.Times.Max)
	}
	fmt.Fprintf(w, "auto:      office=%t captcha=%t\n", in.AutoOffice, in.AutoCaptcha)
	if in.AutoCaptcha && in.CaptchaAPIKey == "" {
		fmt.Fprintln(w, "warning:   auto_captcha is on but anticaptcha_api_key is empty; captcha stages will fail")
	}
	if in.SMSWebhookToken == "" {
		fmt.Fprintln(w, "note:      no sms_webhook_token; SMS codes will be asked for on the terminal")
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(cita.DateLayout)
}
