package main

import (
	"fmt"

	"go.gitsync.dev/gitsync/internal/config"
	"go.gitsync.dev/gitsync/internal/silog"
)

type configCmd struct {
	Validate configValidateCmd `cmd:"" help:"Load a configuration file and report whether it is well-formed."`
}

type configValidateCmd struct {
	Path string `arg:"" type:"existingfile" help:"Path to the gitsync configuration file."`
}

func (cmd *configValidateCmd) Run(log *silog.Logger) error {
	cfg, err := config.Load(cmd.Path)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log.Infof("%s is valid: sourceDir=%s targetDir=%s", cmd.Path, cfg.SourceDir, cfg.TargetDir)
	return nil
}
