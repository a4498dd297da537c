package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bimakw/chain-analytics/internal/bootstrap"
	"github.com/bimakw/chain-analytics/internal/config"
	"github.com/bimakw/chain-analytics/internal/domain/entities"
	"github.com/bimakw/chain-analytics/internal/infrastructure/logging"
)

type searchFlags struct {
	days           int
	whaleThreshold float64
	self           bool
	chainID        int64
	timeout        time.Duration
	pretty         bool
	verbose        bool
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var flags searchFlags

	cmd := &cobra.Command{
		Use:   "search <address> [query-type]",
		Short: "Analyze a wallet's on-chain history",
		Long: "Runs one wallet search and prints the result envelope as JSON.\n" +
			"Query types: token_activity, portfolio, counterparty, whale, transaction_stats, comprehensive (default).",
		Args:         cobra.RangeArgs(1, 2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			params := entities.SearchParams{
				Address:       args[0],
				QueryType:     entities.QueryComprehensive,
				TimeframeDays: flags.days,
				ChainID:       flags.chainID,
				Self:          flags.self,
			}
			if len(args) == 2 {
				params.QueryType = entities.QueryType(args[1])
			}
			if cmd.Flags().Changed("whale-threshold") {
				params.WhaleThresholdUSD = &flags.whaleThreshold
			}
			return run(cmd.Context(), params, flags)
		},
	}

	cmd.Flags().IntVarP(&flags.days, "days", "d", 0, "timeframe in days (default from SEARCH_DEFAULT_TIMEFRAME_DAYS)")
	cmd.Flags().Float64Var(&flags.whaleThreshold, "whale-threshold", 0, "whale threshold in USD")
	cmd.Flags().BoolVar(&flags.self, "self", false, "analyze your own wallet (lower default whale threshold)")
	cmd.Flags().Int64Var(&flags.chainID, "chain-id", 0, "expected chain id")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 0, "overall search timeout (default API_SEARCH_TIMEOUT)")
	cmd.Flags().BoolVar(&flags.pretty, "pretty", false, "indent the JSON output")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "log at the configured level instead of errors only")

	return cmd
}

func run(ctx context.Context, params entities.SearchParams, flags searchFlags) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !flags.verbose {
		cfg.Log.Level = "error"
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	engine, err := bootstrap.NewEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer engine.Close()

	timeout := flags.timeout
	if timeout <= 0 {
		timeout = cfg.API.SearchTimeout
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := engine.Search.Search(ctx, params)
	if err != nil {
		logger.Error("Search failed", zap.Error(err))
		return err
	}

	var out []byte
	if flags.pretty {
		out, err = sonic.ConfigStd.MarshalIndent(result, "", "  ")
	} else {
		out, err = sonic.Marshal(result)
	}
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	_, err = fmt.Fprintln(os.Stdout, string(out))
	return err
}
