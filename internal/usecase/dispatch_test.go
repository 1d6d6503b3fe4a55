package usecase

import (
	"context"
	"strings"
	"testing"

	"StockCast/internal/domain/models"
	"StockCast/internal/repository"
	"StockCast/pkg/config"
	applogger "StockCast/pkg/logger"
	"StockCast/pkg/metrics"

	"github.com/aws/aws-sdk-go-v2/aws"
)

func TestDispatchDelegatedJobEnvironment(t *testing.T) {
	ctx := context.Background()
	lgr := applogger.Nop()

	catalog, err := repository.NewSQLiteCatalog(":memory:", lgr)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	defer catalog.Close()
	if err := catalog.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	delegate := &captureSubmitter{}
	d := NewDispatcher(DispatcherDeps{
		Families:     config.DefaultFamilies(),
		WindowLength: 30,
		Blobs:        repository.NewS3BlobStore(aws.Config{Region: "us-east-1"}, "bucket", "", lgr),
		Delegated:    delegate,
		Catalog:      catalog,
		Metrics:      metrics.Nop{},
		Log:          lgr,
	})

	loc := "s3://bucket/training/processed/stock_data_AAPL_2024-08-01_x.csv"
	subs, err := d.Dispatch(ctx, loc, []string{models.FamilyLSTM, models.FamilyRandomForest})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(subs) != 2 || len(delegate.specs) != 2 {
		t.Fatalf("subs = %+v", subs)
	}

	spec := delegate.specs[0]
	if !strings.HasSuffix(spec.Name, "-lstm") || len(spec.Name) > 63 {
		t.Fatalf("job name = %s", spec.Name)
	}
	if spec.OutputPath != "s3://bucket/model_output/lstm/" {
		t.Fatalf("output = %s", spec.OutputPath)
	}
	want := map[string]string{
		"FILE_KEY":      "training/processed/stock_data_AAPL_2024-08-01_x.csv",
		"BUCKET_NAME":   "bucket",
		"WINDOW_LENGTH": "30",
	}
	for k, v := range want {
		if spec.Env[k] != v {
			t.Fatalf("env[%s] = %q, want %q", k, spec.Env[k], v)
		}
	}
	if subs[0].JobID != "job-lstm" || subs[1].JobID != "job-random_forest" {
		t.Fatalf("job ids = %s, %s", subs[0].JobID, subs[1].JobID)
	}

	runs, _ := catalog.ListRuns(ctx, "", 10)
	if len(runs) != 2 {
		t.Fatalf("runs = %d", len(runs))
	}
	for _, r := range runs {
		if r.Status != models.RunSubmitted {
			t.Fatalf("run = %+v", r)
		}
	}
}
