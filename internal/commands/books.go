package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/kasboek/internal/accounts"
	"github.com/cleared-dev/kasboek/internal/auditlog"
	"github.com/cleared-dev/kasboek/internal/config"
	"github.com/cleared-dev/kasboek/internal/ledger"
	"github.com/cleared-dev/kasboek/internal/logger"
	"github.com/cleared-dev/kasboek/internal/model"
	"github.com/cleared-dev/kasboek/internal/store"
)

// schemeFetchTimeout bounds downloading the chart of accounts.
const schemeFetchTimeout = 30 * time.Second

// books is an opened bookkeeping directory.
type books struct {
	root   string
	cfg    *config.Config
	log    zerolog.Logger
	store  *store.Store
	ledger *ledger.Ledger
	now    func() time.Time
}

// openBooks loads the config, the chart of accounts and the saved state of
// the directory given by --dir.
func openBooks(cmd *cobra.Command) (*books, error) {
	dir, err := cmd.Flags().GetString("dir")
	if err != nil {
		return nil, err
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	cfg, err := config.Load(filepath.Join(root, config.FileName))
	if err != nil {
		return nil, fmt.Errorf("not a kasboek directory (run kasboek init): %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logger.New(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	st, err := store.Open(config.Resolve(root, cfg.Storage.Database))
	if err != nil {
		return nil, err
	}

	cmd.SetContext(logger.WithContext(cmd.Context(), log))
	b := &books{root: root, cfg: cfg, log: log, store: st, now: time.Now}
	if err := b.load(cmd.Context()); err != nil {
		_ = st.Close()
		return nil, err
	}
	return b, nil
}

func (b *books) load(ctx context.Context) error {
	scheme, err := b.store.LoadScheme()
	if errors.Is(err, store.ErrNotFound) {
		scheme, err = loadScheme(ctx, b.root, b.cfg)
		if err == nil {
			err = b.store.SaveScheme(scheme)
		}
	}
	if err != nil {
		return fmt.Errorf("loading chart of accounts: %w", err)
	}
	registry := accounts.NewRegistry(logger.WithComponent(b.log, "accounts"))
	registry.Load(scheme)

	state, err := b.store.LoadState()
	if errors.Is(err, store.ErrNotFound) {
		state, err = model.NewAccountingState(b.cfg.Business.Name), nil
	}
	if err != nil {
		return fmt.Errorf("loading state: %w", err)
	}

	b.ledger = ledger.New(state, registry, b.cfg.Business.Currency, b.log)
	if err := b.ledger.CheckIntegrity(); err != nil {
		return err
	}
	return nil
}

// loadScheme returns the chart of accounts the config selects: a JSON file,
// a URL, or the built-in scheme.
func loadScheme(ctx context.Context, root string, cfg *config.Config) ([]model.Account, error) {
	var (
		scheme []model.Account
		source = "built-in"
		err    error
	)
	switch {
	case cfg.Accounts.SchemeFile != "":
		source = cfg.Accounts.SchemeFile
		scheme, err = accounts.LoadFile(config.Resolve(root, cfg.Accounts.SchemeFile))
	case cfg.Accounts.SchemeURL != "":
		source = cfg.Accounts.SchemeURL
		fetchCtx, cancel := context.WithTimeout(ctx, schemeFetchTimeout)
		defer cancel()
		scheme, err = accounts.Fetch(fetchCtx, http.DefaultClient, cfg.Accounts.SchemeURL)
	default:
		scheme = accounts.DefaultScheme()
	}
	if err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx)
	log.Info().Str("source", source).Int("accounts", len(scheme)).Msg("chart of accounts loaded")
	return scheme, nil
}

// apply runs c, records it in the audit log and saves the state when it
// was applied.
func (b *books) apply(c ledger.Command) error {
	applyErr := b.ledger.Apply(c)
	if err := auditlog.Append(b.root, []auditlog.Entry{auditlog.FromCommand(c, b.now(), applyErr)}); err != nil {
		b.log.Warn().Err(err).Msg("failed to write audit log")
	}
	if applyErr != nil {
		return applyErr
	}
	return b.save()
}

// audit records an action that is not a ledger command.
func (b *books) audit(command, target string, details any, actionErr error) {
	e := auditlog.New(command, target, details, b.now(), actionErr)
	if err := auditlog.Append(b.root, []auditlog.Entry{e}); err != nil {
		b.log.Warn().Err(err).Msg("failed to write audit log")
	}
}

func (b *books) save() error {
	if err := b.store.SaveState(b.ledger.State()); err != nil {
		return fmt.Errorf("saving state: %w", err)
	}
	return nil
}

func (b *books) close() {
	if err := b.store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing database: %v\n", err)
	}
}
