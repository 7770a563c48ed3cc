// Package vision wraps the image analysis provider used by the skills.
package vision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/rekognition"
	"github.com/aws/aws-sdk-go/service/rekognition/rekognitioniface"

	"github.com/skillskit/skills-server/internal/skills"
)

const DefaultRegion = "us-east-1"

// Label is a detected object or concept.
type Label struct {
	Name       string
	Confidence float64
}

// BoundingBox is expressed as ratios of the image width and height.
type BoundingBox struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// Face is a detected face.
type Face struct {
	Box        BoundingBox
	AgeLow     int
	AgeHigh    int
	Confidence float64
}

// Provider detects labels and faces in image bytes.
type Provider interface {
	DetectLabels(ctx context.Context, image []byte, maxLabels int, minConfidence float64) ([]Label, error)
	DetectFaces(ctx context.Context, image []byte) ([]Face, error)
}

// Config selects the AWS region and, optionally, static credentials and a
// custom endpoint.
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
}

type Rekognition struct {
	api    rekognitioniface.RekognitionAPI
	logger *slog.Logger
}

// NewRekognition creates a Rekognition provider. Without static keys the
// default AWS credential chain is used.
func NewRekognition(cfg Config, logger *slog.Logger) (*Rekognition, error) {
	region := cfg.Region
	if region == "" {
		region = DefaultRegion
	}
	awsCfg := &aws.Config{Region: aws.String(region)}
	if cfg.AccessKeyID != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}
	return NewRekognitionWithAPI(rekognition.New(sess), logger), nil
}

// NewRekognitionWithAPI wraps an existing client.
func NewRekognitionWithAPI(api rekognitioniface.RekognitionAPI, logger *slog.Logger) *Rekognition {
	return &Rekognition{api: api, logger: logger}
}

func (r *Rekognition) DetectLabels(ctx context.Context, image []byte, maxLabels int, minConfidence float64) ([]Label, error) {
	out, err := r.api.DetectLabelsWithContext(ctx, &rekognition.DetectLabelsInput{
		Image:         &rekognition.Image{Bytes: image},
		MaxLabels:     aws.Int64(int64(maxLabels)),
		MinConfidence: aws.Float64(minConfidence),
	})
	if err != nil {
		return nil, r.classify("DetectLabels", err)
	}

	labels := make([]Label, 0, len(out.Labels))
	for _, l := range out.Labels {
		if aws.StringValue(l.Name) == "" {
			continue
		}
		labels = append(labels, Label{
			Name:       aws.StringValue(l.Name),
			Confidence: aws.Float64Value(l.Confidence),
		})
	}
	return labels, nil
}

func (r *Rekognition) DetectFaces(ctx context.Context, image []byte) ([]Face, error) {
	out, err := r.api.DetectFacesWithContext(ctx, &rekognition.DetectFacesInput{
		Image:      &rekognition.Image{Bytes: image},
		Attributes: aws.StringSlice([]string{rekognition.AttributeAll}),
	})
	if err != nil {
		return nil, r.classify("DetectFaces", err)
	}

	faces := make([]Face, 0, len(out.FaceDetails))
	for _, fd := range out.FaceDetails {
		if fd.BoundingBox == nil {
			continue
		}
		f := Face{
			Box: BoundingBox{
				Left:   aws.Float64Value(fd.BoundingBox.Left),
				Top:    aws.Float64Value(fd.BoundingBox.Top),
				Width:  aws.Float64Value(fd.BoundingBox.Width),
				Height: aws.Float64Value(fd.BoundingBox.Height),
			},
			Confidence: aws.Float64Value(fd.Confidence),
		}
		if fd.AgeRange != nil {
			f.AgeLow = int(aws.Int64Value(fd.AgeRange.Low))
			f.AgeHigh = int(aws.Int64Value(fd.AgeRange.High))
		}
		faces = append(faces, f)
	}
	return faces, nil
}

// classify maps provider failures to skills error codes.
func (r *Rekognition) classify(op string, err error) error {
	wrapped := fmt.Errorf("rekognition %s: %w", op, err)

	var aerr awserr.Error
	if !errors.As(err, &aerr) {
		r.logger.Error("rekognition call failed", "op", op, "error", err)
		return skills.NewTransientError(skills.CodeInvocations, wrapped)
	}

	r.logger.Error("rekognition call failed", "op", op, "aws_code", aerr.Code(), "error", aerr.Message())

	switch aerr.Code() {
	case rekognition.ErrCodeAccessDeniedException,
		"UnrecognizedClientException",
		"InvalidSignatureException",
		"ExpiredTokenException":
		return skills.NewError(skills.CodeExternalAuth, wrapped)
	case rekognition.ErrCodeThrottlingException,
		rekognition.ErrCodeProvisionedThroughputExceededException,
		rekognition.ErrCodeInternalServerError:
		return skills.NewTransientError(skills.CodeInvocations, wrapped)
	case rekognition.ErrCodeInvalidImageFormatException:
		return skills.NewError(skills.CodeInvalidFileFormat, wrapped)
	case rekognition.ErrCodeImageTooLargeException:
		return skills.NewError(skills.CodeInvalidFileSize, wrapped)
	case rekognition.ErrCodeInvalidParameterException:
		return skills.NewError(skills.CodeFileProcessing, wrapped)
	default:
		return skills.NewError(skills.CodeInvocations, wrapped)
	}
}
