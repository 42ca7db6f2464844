package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"overtime-approval-backend/config"
	"overtime-approval-backend/initializers"
	overtimeapprovalhandler "overtime-approval-backend/lib/overtime-approval"
	overtimejobs "overtime-approval-backend/lib/overtime-jobs"
	authutils "overtime-approval-backend/lib/utils/auth-utils"
	"overtime-approval-backend/models"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "overtime-jobs",
		Short: "Run overtime approval jobs on demand",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			initializers.InitServices()
		},
	}
	root.AddCommand(&cobra.Command{
		Use:   "expire",
		Short: "Cancel pending approvals past their deadline",
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := overtimejobs.Instance.RunExpireJob(cmd.Context())
			drainNotifications(cmd.Context())
			if err != nil {
				return err
			}
			return printSummary(summary)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "remind",
		Short: "Remind approvers of approvals pending for 3 days or more",
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := overtimejobs.Instance.RunReminderJob(cmd.Context())
			drainNotifications(cmd.Context())
			if err != nil {
				return err
			}
			return printSummary(summary)
		},
	})

	root.AddCommand(tokenCommand())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		log.WithError(err).Error("job failed")
		os.Exit(1)
	}
}

const drainTimeout = 30 * time.Second

// drainNotifications keeps the process alive until async dispatches are stored.
func drainNotifications(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
	defer cancel()
	if err := overtimeapprovalhandler.Instance.WaitNotifications(ctx); err != nil {
		log.WithError(err).Error("exiting with undelivered notifications")
	}
}

// tokenCommand issues a session token for integrations such as the work record
// module, which calls the create route on behalf of a service user.
func tokenCommand() *cobra.Command {
	var userID, name, role string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed session token",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.InitConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return errors.New("--user is required")
			}
			if !models.UserRole(role).IsValid() {
				return errors.Errorf("unknown role %q", role)
			}
			token, err := authutils.GetToken(userID, name, models.UserRole(role))
			if err != nil {
				return errors.Wrap(err, "failed to sign token")
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "subject user id")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&role, "role", string(models.EmployeeRole), "user role")
	return cmd
}

func printSummary(summary interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
