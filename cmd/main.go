/*
Copyright 2025 Faregate Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/faregate/faregate"
	"github.com/faregate/faregate/config"
	"github.com/faregate/faregate/database"
	"github.com/faregate/faregate/internal/notification"
)

// Faregate wraps the root Cobra command for the CLI.
type Faregate struct {
	cmd *cobra.Command
}

// faregateInstance holds the runtime engine and its configuration, shared
// across subcommands through the persistent pre-run hook.
type faregateInstance struct {
	faregate *faregate.Faregate
	cnf      *config.Configuration
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads configuration and initializes the engine before any
// subcommand executes.
func preRun(app *faregateInstance) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig("faregate.json")
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		newFaregate, err := setupFaregate(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.faregate = newFaregate
		app.cnf = cnf

		return nil
	}
}

// setupFaregate connects the data source and builds the engine.
func setupFaregate(cfg *config.Configuration) (*faregate.Faregate, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return &faregate.Faregate{}, fmt.Errorf("error getting datasource: %v", err)
	}

	newFaregate, err := faregate.NewFaregate(db)
	if err != nil {
		return &faregate.Faregate{}, fmt.Errorf("error creating faregate: %v", err)
	}
	return newFaregate, nil
}

// NewCLI builds the faregate command tree.
func NewCLI() *Faregate {
	var configFile string
	f := &faregateInstance{}

	var rootCmd = &cobra.Command{
		Use:   "faregate",
		Short: "Transit fare ledger",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./faregate.json", "Configuration file for faregate")

	rootCmd.PersistentPreRunE = preRun(f)

	rootCmd.AddCommand(serverCommands(f))
	rootCmd.AddCommand(workerCommands(f))
	rootCmd.AddCommand(migrateCommands(f))

	return &Faregate{cmd: rootCmd}
}

func (w Faregate) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
