package main

import (
	"context"
	"errors"
	"fmt"

	"go.gitsync.dev/gitsync/internal/confirm"
	"go.gitsync.dev/gitsync/internal/config"
	"go.gitsync.dev/gitsync/internal/engine"
	"go.gitsync.dev/gitsync/internal/plugin"
	"go.gitsync.dev/gitsync/internal/silog"
)

type syncCmd struct {
	Config string `arg:"" type:"existingfile" help:"Path to the gitsync configuration file."`

	DryRun bool `help:"Report what would sync without touching the target repository."`
	Yes    bool `short:"y" help:"Skip the confirmation prompt before a run that may create conflict branches."`
}

func (cmd *syncCmd) Run(ctx context.Context, log *silog.Logger) error {
	cfg, err := config.Load(cmd.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.DryRun = cmd.DryRun

	confirmFn := confirm.Prompt
	if cmd.Yes || cmd.DryRun {
		confirmFn = confirm.AutoAccept
	}
	if ok, err := confirmFn(
		fmt.Sprintf("Sync %s into %s?", cfg.SourceDir, cfg.TargetDir),
		"", "",
	); err != nil {
		return fmt.Errorf("confirm sync: %w", err)
	} else if !ok {
		log.Info("Sync cancelled.")
		return nil
	}

	plugins, closePlugins, err := loadPlugins(ctx, cfg.Plugins)
	if err != nil {
		return err
	}
	defer closePlugins()

	result, err := engine.Run(ctx, cfg, log, plugins)
	if err != nil {
		if errors.Is(err, engine.ErrConflict) {
			fmt.Println(engine.ConflictSummary(cfg.TargetDir, cfg.TargetSubdir, result.Conflicts))
			return errors.New("sync finished with unresolved conflicts")
		}

		fmt.Println(engine.ErrorRecovery(log.Level() == silog.LevelDebug, result.InitHash, result.InitHashKnown))
		return fmt.Errorf("sync failed: %w", err)
	}

	log.Info(engine.CountLine(result.New, result.Exists, result.Source, result.Target))
	log.Info(engine.BranchCountLine(result.Branches))
	if !cfg.NoTags {
		log.Info(engine.TagCountLine(result.Tags))
	}

	return nil
}

func loadPlugins(ctx context.Context, paths []string) ([]*plugin.Plugin, func(), error) {
	if len(paths) == 0 {
		return nil, func() {}, nil
	}

	plugins := make([]*plugin.Plugin, 0, len(paths))
	closeAll := func() {
		for _, p := range plugins {
			_ = p.Close()
		}
	}

	for _, path := range paths {
		p, err := plugin.Load(ctx, path)
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("load plugin %s: %w", path, err)
		}
		plugins = append(plugins, p)
	}
	return plugins, closeAll, nil
}
