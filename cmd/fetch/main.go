package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"marketdash/internal/app"
	"marketdash/internal/config"
	"marketdash/internal/logging"
	"marketdash/internal/provider"
)

const usage = `usage: fetch [flags] <op>

ops:
  markets            quotes for every asset class
  popular            ranked trending stock categories
  snapshot           headline index quotes
  class              quotes for one asset class (-class)
  stock-compare      quote and daily closes (-symbol)
  predict            sentiment prediction (-symbol)
  compare            predictions for up to two tickers (-symbols)
  filter             AI stock filter (-cap, -risk; needs GEMINI_API_KEY)
`

func main() {
	var (
		configPath string
		symbol     string
		symbolsCSV string
		class      string
		marketCap  string
		riskLevel  string
		timeout    int
		logLevel   string
	)
	flag.StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "path to config.yaml (optional)")
	flag.StringVar(&symbol, "symbol", "AAPL", "symbol for stock-compare and predict")
	flag.StringVar(&symbolsCSV, "symbols", "AAPL,MSFT", "comma-separated tickers for compare")
	flag.StringVar(&class, "class", string(provider.Cryptocurrencies), "asset class for the class op")
	flag.StringVar(&marketCap, "cap", "Large", "market cap for filter (Large, Mid, Small)")
	flag.StringVar(&riskLevel, "risk", "Low", "risk level for filter (Low, Medium, High)")
	flag.IntVar(&timeout, "timeout", 60, "overall timeout seconds")
	flag.StringVar(&logLevel, "log-level", "warn", "log level")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(logLevel, "console")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
	defer cancel()

	out, err := run(ctx, flag.Arg(0), cfg, logger, options{
		symbol:    symbol,
		symbols:   app.SplitList(symbolsCSV),
		class:     provider.AssetClass(class),
		marketCap: marketCap,
		riskLevel: riskLevel,
	})
	if err != nil {
		log.Fatalf("%s: %v", flag.Arg(0), err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		log.Fatalf("encode: %v", err)
	}
}

type options struct {
	symbol    string
	symbols   []string
	class     provider.AssetClass
	marketCap string
	riskLevel string
}

func run(ctx context.Context, op string, cfg config.Config, logger *zap.Logger, opts options) (any, error) {
	switch op {
	case "markets", "popular", "snapshot", "class", "stock-compare":
		fetcher, err := app.NewFetcher(cfg, logger)
		if err != nil {
			return nil, err
		}
		switch op {
		case "markets":
			return fetcher.Markets(ctx), nil
		case "popular":
			return fetcher.Popular(ctx), nil
		case "snapshot":
			return fetcher.MarketSnapshot(ctx), nil
		case "class":
			return fetcher.FetchAssetClass(ctx, opts.class), nil
		default:
			return fetcher.CompareStock(ctx, opts.symbol)
		}

	case "predict", "compare":
		client := app.NewPredictor(cfg, logger)
		if op == "predict" {
			return client.FetchPrediction(ctx, opts.symbol)
		}
		return client.Compare(ctx, opts.symbols...), nil

	case "filter":
		filter, err := app.NewFilter(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return filter.FilterStocks(ctx, app.Candidates(cfg), opts.marketCap, opts.riskLevel)

	default:
		return nil, fmt.Errorf("unknown op %q", op)
	}
}
