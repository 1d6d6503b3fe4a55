package repository

import (
	"context"
	"fmt"
	"time"

	"StockCast/internal/domain/errs"
	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	applogger "StockCast/pkg/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
)

// SageMakerAPI is the subset of the SageMaker client used here.
type SageMakerAPI interface {
	CreateTrainingJob(ctx context.Context, in *sagemaker.CreateTrainingJobInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateTrainingJobOutput, error)
}

// SageMakerResources are the fixed resources of every delegated job.
type SageMakerResources struct {
	RoleARN       string
	InstanceType  string
	InstanceCount int32
	VolumeSizeGB  int32
	MaxRuntime    time.Duration
}

// SageMakerSubmitter starts delegated training jobs. It returns as soon as
// the job is created.
type SageMakerSubmitter struct {
	api SageMakerAPI
	res SageMakerResources
	l   *applogger.Logger
}

var _ domrepo.JobSubmitter = (*SageMakerSubmitter)(nil)

func NewSageMakerSubmitter(api SageMakerAPI, res SageMakerResources, l *applogger.Logger) *SageMakerSubmitter {
	return &SageMakerSubmitter{api: api, res: res, l: l}
}

func (s *SageMakerSubmitter) Submit(ctx context.Context, spec *models.TrainingJobSpec) (string, error) {
	if spec.Image == "" {
		return "", errs.New(errs.MalformedInput, "no training image configured for %s", spec.Family)
	}
	if s.res.RoleARN == "" {
		return "", errs.New(errs.MalformedInput, "no execution role configured")
	}

	in := &sagemaker.CreateTrainingJobInput{
		TrainingJobName: aws.String(spec.Name),
		AlgorithmSpecification: &types.AlgorithmSpecification{
			TrainingImage:     aws.String(spec.Image),
			TrainingInputMode: types.TrainingInputModeFile,
		},
		RoleArn: aws.String(s.res.RoleARN),
		InputDataConfig: []types.Channel{{
			ChannelName: aws.String("training"),
			DataSource: &types.DataSource{
				S3DataSource: &types.S3DataSource{
					S3DataType:             types.S3DataTypeS3Prefix,
					S3Uri:                  aws.String(spec.Dataset),
					S3DataDistributionType: types.S3DataDistributionFullyReplicated,
				},
			},
			ContentType: aws.String("text/csv"),
			InputMode:   types.TrainingInputModeFile,
		}},
		OutputDataConfig: &types.OutputDataConfig{
			S3OutputPath: aws.String(spec.OutputPath),
		},
		ResourceConfig: &types.ResourceConfig{
			InstanceType:   types.TrainingInstanceType(s.res.InstanceType),
			InstanceCount:  aws.Int32(s.res.InstanceCount),
			VolumeSizeInGB: aws.Int32(s.res.VolumeSizeGB),
		},
		StoppingCondition: &types.StoppingCondition{
			MaxRuntimeInSeconds: aws.Int32(int32(s.res.MaxRuntime / time.Second)),
		},
		Environment: spec.Env,
	}

	out, err := s.api.CreateTrainingJob(ctx, in)
	if err != nil {
		s.l.Error("sagemaker create_training_job error",
			applogger.String("job", spec.Name),
			applogger.String("family", spec.Family),
			applogger.Error(err))
		return "", fmt.Errorf("create training job %s: %w", spec.Name, err)
	}

	jobID := spec.Name
	if out != nil && out.TrainingJobArn != nil {
		jobID = *out.TrainingJobArn
	}
	s.l.Info("training job created",
		applogger.String("job", spec.Name),
		applogger.String("family", spec.Family),
		applogger.String("arn", jobID))
	return jobID, nil
}
