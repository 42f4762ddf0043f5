// Copyright 2026 The Orgsvc Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/orgsvc/orgsvc/internal/config"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "orgsvc",
		Short: "Organization directory service",
		Long: `Organization directory service.

Every organization owns one collection named org_<name> in the master
database. Configure the service through environment variables or a .env
file in the working directory:

MONGODB_URL            // example: mongodb://localhost:27017
DATABASE_NAME          // example: org_master_db
STORE_DRIVER           // mongo or memory
JWT_SECRET_KEY         // required
JWT_EXPIRE_MINUTES     // example: 30
SERVER_PORT            // example: 8000
RECONCILE_GRACE        // example: 10m
`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "ensure-indexes",
			Short: "Create the indexes of the master database",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runEnsureIndexes(cmd.Context())
			},
		},
		newReconcileCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newReconcileCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Drop organization collections that no directory entry points at",
		Long: `Compares the org_ collections of the master database with the
directory. Collections without an active entry are dropped, whatever they
hold, once their metadata is older than RECONCILE_GRACE; younger ones are
reported as pending. Entries whose collection is missing are reported.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd.Context(), dryRun)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report orphans without dropping them")
	return cmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}
