package main

import (
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cyramp/cyrscan/internal/common"
	"github.com/cyramp/cyrscan/internal/workbook"
)

// errRejected marks a validation that completed with a negative answer.
var errRejected = errors.New("rejected")

type commandContext struct {
	envFile     string
	workbookDir string
	jsonOutput  bool

	cfg    *common.Config
	logger *slog.Logger
	loader *workbook.Loader
}

func (c *commandContext) ensureConfig() (*common.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := common.LoadConfig(c.envFile)
	if err != nil {
		return nil, err
	}
	if c.workbookDir != "" {
		cfg.Workbook.Dir = c.workbookDir
	}
	c.cfg = cfg
	c.logger = common.NewLogger(cfg.Logging, os.Stderr)
	return cfg, nil
}

func (c *commandContext) ensureLoader() (*workbook.Loader, error) {
	if c.loader != nil {
		return c.loader, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	parser, err := workbook.NewParser(workbook.LayoutFromConfig(cfg.Workbook))
	if err != nil {
		return nil, err
	}
	timeout := cfg.Workbook.IOTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	c.loader = workbook.NewLoader(
		workbook.NewLocator(cfg.Workbook.Dir, c.logger),
		workbook.NewSource(cfg.Workbook.TempDir, c.logger),
		parser, timeout, c.logger,
	)
	return c.loader, nil
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "cyrscan",
		Short:         "Inspect job workbooks the way the scanning backend sees them",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&ctx.envFile, "env", ".env", "Environment file to load")
	rootCmd.PersistentFlags().StringVarP(&ctx.workbookDir, "dir", "d", "", "Job workbook directory (overrides WORKBOOK_DIR)")
	rootCmd.PersistentFlags().BoolVar(&ctx.jsonOutput, "json", false, "Print JSON instead of tables")

	rootCmd.AddCommand(newValidateCommand(ctx))
	rootCmd.AddCommand(newPartsCommand(ctx))
	rootCmd.AddCommand(newWorkbooksCommand(ctx))
	rootCmd.AddCommand(newPackagingPreviewCommand(ctx))

	return rootCmd
}
