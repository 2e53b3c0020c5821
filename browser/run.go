package browser

import (
	"context"
	"errors"
	"net/url"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"sei/state"
)

// Run is "live" command action.
func Run(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("live")

	target := cmd.Args().Get(0)
	if len(target) == 0 {
		return errors.New("no page address has been specified")
	}
	if u, err := url.Parse(target); err != nil || len(u.Scheme) == 0 {
		log.Debug("Assuming https", zap.String("url", target))
		target = "https://" + target
	}

	excluded, editable := env.Filter()
	opts := Options{
		Headless:     env.Cfg.Live.Headless || cmd.Bool("headless"),
		Bin:          env.Cfg.Live.BrowserBin,
		ControlURL:   env.Cfg.Live.ControlURL,
		ExcludedTags: excluded,
		EditableAttr: editable,
	}
	if cmd.IsSet("browser-bin") {
		opts.Bin = cmd.String("browser-bin")
	}
	if cmd.IsSet("control-url") {
		opts.ControlURL = cmd.String("control-url")
	}

	log.Info("Live session starting", zap.String("url", target), zap.Bool("headless", opts.Headless), zap.String("session", env.Session))
	defer func() {
		log.Info("Live session ended", zap.Duration("uptime", env.Uptime()))
	}()
	return Watch(ctx, target, env.Rewriter, opts, log)
}
