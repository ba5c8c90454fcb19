package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var validateConfigPath string

// validateCmd compiles a model without running it
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a model file for configuration errors",
	Run: func(cmd *cobra.Command, args []string) {
		if err := validateModel(validateConfigPath, os.Stdout); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

func validateModel(path string, out io.Writer) error {
	if path == "" {
		return fmt.Errorf("--config is required")
	}
	model, err := loadModel(path)
	if err != nil {
		return err
	}
	entry := model.Steps[model.Entry].ID
	_, err = fmt.Fprintf(out, "%s: ok (%d resources, %d steps, entry %q, horizon %g)\n",
		path, len(model.Resources), len(model.Steps), entry, model.Horizon)
	return err
}

func init() {
	validateCmd.Flags().StringVar(&validateConfigPath, "config", "", "Path to the YAML model file")
	rootCmd.AddCommand(validateCmd)
}
