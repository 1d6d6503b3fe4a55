// Command evaluate scores a stored predictions snapshot against its actuals
// and prints the metrics with a side-by-side listing.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"StockCast/internal/di"
	"StockCast/internal/usecase"
	"StockCast/pkg/config"
	applogger "StockCast/pkg/logger"
	"StockCast/pkg/metrics"

	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	predictions := flag.String("predictions", "", "predictions snapshot location")
	actuals := flag.String("actuals", "", "actuals snapshot location")
	timeout := flag.Duration("timeout", time.Minute, "download timeout")
	flag.Parse()

	if *predictions == "" || *actuals == "" {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	lgr := applogger.Nop()
	awsCfg, err := di.ProvideAWSConfig(cfg)
	if err != nil {
		log.Fatalf("aws config: %v", err)
	}
	blobs, err := di.ProvideBlobStore(cfg, awsCfg, lgr)
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	eval := usecase.NewEvaluator(blobs, metrics.Nop{}, lgr)
	cmp, err := eval.Load(ctx, *predictions, *actuals)
	if err != nil {
		log.Fatalf("evaluate: %v", err)
	}
	fmt.Print(cmp.Report())
}
