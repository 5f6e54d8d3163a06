// Package cli: notify.go implements the "coolutils notify" command.
//
// The notify command emails a short message from a mailbox to itself. It is
// meant to be chained after long-running jobs:
//
//	make release && coolutils notify "release built" || coolutils notify "release failed"
//
// The password is never passed on the command line. It is read from the
// environment variable named by --password-env or notify.passwordEnv.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/coolutils/internal/model"
	"github.com/mmr-tortoise/coolutils/internal/notify"
)

// notifyFlags holds the flag values for the notify command.
type notifyFlags struct {
	server      string
	address     string
	passwordEnv string
	subject     string
}

// notifier is replaced in tests to point at a fake SMTP server.
var notifier = &notify.Notifier{}

// NewNotifyCommand creates the "notify" cobra command.
func NewNotifyCommand() *cobra.Command {
	flags := &notifyFlags{}

	cmd := &cobra.Command{
		Use:   "notify <message>",
		Short: "Email a message to yourself",
		Long: `Send <message> as a plain-text email from --address to itself.

The server is "host" (port 25) or "host:port". STARTTLS is used when the
server offers it, and PLAIN authentication when a password is available.

Examples:
  coolutils notify --server smtp.example.com:587 --address me@example.com \
    --password-env SMTP_PASSWORD --subject "backup" "nightly backup done"
  coolutils notify "tests finished"   # server and address from config`,

		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runNotify(cmd, flags, args[0])
		},
	}

	cmd.Flags().StringVar(&flags.server, "server", "", "SMTP server as host or host:port")
	cmd.Flags().StringVar(&flags.address, "address", "", "Mailbox address used as sender and recipient")
	cmd.Flags().StringVar(&flags.passwordEnv, "password-env", "",
		"Name of the environment variable holding the mailbox password")
	cmd.Flags().StringVar(&flags.subject, "subject", "", "Subject line")

	return cmd
}

// runNotify merges flags over configuration, then sends the message.
func runNotify(cmd *cobra.Command, flags *notifyFlags, message string) error {
	// Step 1: Merge flags over the notify section of the configuration.
	settings := cfg.Notify
	if flags.server != "" {
		settings.Server = flags.server
	}
	if flags.address != "" {
		settings.Address = flags.address
	}
	if flags.passwordEnv != "" {
		settings.PasswordEnv = flags.passwordEnv
	}
	if cmd.Flags().Changed("subject") {
		settings.Subject = flags.subject
	}

	// Step 2: Validate the server and mailbox.
	if settings.Server == "" {
		return model.NewCLIError(model.ExitGeneralError,
			"no SMTP server: use --server or set notify.server in the configuration file")
	}
	server, err := notify.ParseServer(settings.Server)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "invalid --server", err)
	}

	mailbox := notify.Mailbox{Address: settings.Address, Password: settings.Password()}
	if err := mailbox.Validate(); err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "invalid --address", err)
	}
	if settings.PasswordEnv != "" && mailbox.Password == "" {
		if _, ok := os.LookupEnv(settings.PasswordEnv); !ok {
			VerboseLog("environment variable %s is not set, sending without authentication", settings.PasswordEnv)
		}
	}

	// Step 3: Send.
	VerboseLog("sending notification via %s", server.Addr())
	if err := notifier.NotifySelf(cmd.Context(), server, mailbox, message, settings.Subject); err != nil {
		return model.WrapCLIError(model.ExitNotifyFailed, "failed to send notification", err)
	}

	return printNotifyResult(cmd.OutOrStdout(), server, mailbox.Address, settings.Subject)
}

// printNotifyResult confirms delivery in text or JSON format.
func printNotifyResult(w io.Writer, server notify.Server, address, subject string) error {
	if IsJSONOutput() {
		return printJSON(w, struct {
			Server  string `json:"server"`
			Address string `json:"address"`
			Subject string `json:"subject"`
			Sent    bool   `json:"sent"`
		}{Server: server.Addr(), Address: address, Subject: subject, Sent: true})
	}
	fmt.Fprintf(w, "Sent notification to %s via %s\n", address, server.Addr())
	return nil
}
