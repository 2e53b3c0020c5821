package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"sei/convert"
	"sei/state"
)

// Run is "watch" command action.
func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("watch")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no directory to watch has been specified")
	}
	if src, err = filepath.Abs(src); err != nil {
		return err
	}
	if fi, err := os.Stat(src); err != nil || !fi.IsDir() {
		return fmt.Errorf("%s is not a directory", src)
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		dst = src
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}

	// destinations are always refreshed, identical results are never written
	env.Overwrite = true
	env.NoDirs = cmd.Bool("nodirs") || env.Cfg.Document.NoDirs
	if dst == src {
		// rewritten documents must land exactly where they came from
		env.NoDirs = false
		env.Cfg.Document.FileNameTransliterate = false
		log.Info("Rewriting documents in place", zap.String("dir", src))
	}

	w, err := New(src, dst, env.Cfg.Watch.Debounce, convert.ProcessPath, log)
	if err != nil {
		return err
	}
	defer w.Close()

	log.Info("Initial processing", zap.String("source", src), zap.String("destination", dst), zap.String("session", env.Session))
	if err := convert.Process(ctx, src, dst, log); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		log.Warn("Initial processing finished with errors", zap.Error(err))
	}

	log.Info("Watching for changes", zap.Duration("debounce", env.Cfg.Watch.Debounce))
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("Watching stopped", zap.Duration("uptime", env.Uptime()))
	return nil
}
