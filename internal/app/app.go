package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/five82/tern/internal/prefs"
	"github.com/five82/tern/internal/ui"
)

// Run boots the tern TUI until the context is cancelled or the user quits.
func Run(ctx context.Context, opts Options) error {
	notices := ui.NewNoticeQueue()

	sess, err := Open(opts, notices)
	if err != nil {
		return err
	}
	defer sess.Close()

	userPrefs, _ := prefs.Load(opts.PrefsPath)

	scope := strings.TrimSpace(opts.Scope)
	if scope == "" {
		scope = userPrefs.LastScope
	}

	pollCtx, stopPoller := context.WithCancel(ctx)
	pollerDone := StartPoller(pollCtx, sess.Store, sess.Clock, sess.Config.RefreshInterval, sess.Logger.Named("poller"))
	defer func() {
		stopPoller()
		<-pollerDone
	}()

	// Do initial fetch to populate store before UI starts
	if scope != "" {
		if err := sess.Store.Fetch(ctx, scope); err != nil && !ignorable(err) {
			sess.Logger.Warn("initial fetch failed", zap.String("scope", scope), zap.Error(err))
		}
	}

	uiOpts := ui.Options{
		Context:   ctx,
		Store:     sess.Store,
		Notices:   notices,
		Logger:    sess.Logger.Named("ui"),
		Prefs:     userPrefs,
		PrefsPath: opts.PrefsPath,
		LogFile:   sess.Config.LogFile,
		APIURL:    sess.Config.APIURL,
	}
	if err := ui.Run(uiOpts); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}
