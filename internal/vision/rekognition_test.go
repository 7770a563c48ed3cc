package vision

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/rekognition"
	"github.com/aws/aws-sdk-go/service/rekognition/rekognitioniface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillskit/skills-server/internal/logging"
	"github.com/skillskit/skills-server/internal/skills"
)

type fakeRekognition struct {
	rekognitioniface.RekognitionAPI

	labelsInput *rekognition.DetectLabelsInput
	labels      *rekognition.DetectLabelsOutput
	faces       *rekognition.DetectFacesOutput
	err         error
}

func (f *fakeRekognition) DetectLabelsWithContext(ctx aws.Context, in *rekognition.DetectLabelsInput, opts ...request.Option) (*rekognition.DetectLabelsOutput, error) {
	f.labelsInput = in
	return f.labels, f.err
}

func (f *fakeRekognition) DetectFacesWithContext(ctx aws.Context, in *rekognition.DetectFacesInput, opts ...request.Option) (*rekognition.DetectFacesOutput, error) {
	return f.faces, f.err
}

func TestDetectLabels(t *testing.T) {
	fake := &fakeRekognition{labels: &rekognition.DetectLabelsOutput{
		Labels: []*rekognition.Label{
			{Name: aws.String("Dog"), Confidence: aws.Float64(98.5)},
			{Name: aws.String(""), Confidence: aws.Float64(90)},
			{Name: aws.String("Beach"), Confidence: aws.Float64(71)},
		},
	}}
	r := NewRekognitionWithAPI(fake, logging.Discard())

	labels, err := r.DetectLabels(context.Background(), []byte("img"), 100, 70)
	require.NoError(t, err)

	assert.Equal(t, []Label{{Name: "Dog", Confidence: 98.5}, {Name: "Beach", Confidence: 71}}, labels)
	assert.Equal(t, int64(100), aws.Int64Value(fake.labelsInput.MaxLabels))
	assert.Equal(t, 70.0, aws.Float64Value(fake.labelsInput.MinConfidence))
	assert.Equal(t, []byte("img"), fake.labelsInput.Image.Bytes)
}

func TestDetectFaces(t *testing.T) {
	fake := &fakeRekognition{faces: &rekognition.DetectFacesOutput{
		FaceDetails: []*rekognition.FaceDetail{
			{
				BoundingBox: &rekognition.BoundingBox{Left: aws.Float64(0.1), Top: aws.Float64(0.2), Width: aws.Float64(0.3), Height: aws.Float64(0.4)},
				AgeRange:    &rekognition.AgeRange{Low: aws.Int64(25), High: aws.Int64(35)},
				Confidence:  aws.Float64(99),
			},
			{Confidence: aws.Float64(50)},
		},
	}}
	r := NewRekognitionWithAPI(fake, logging.Discard())

	faces, err := r.DetectFaces(context.Background(), []byte("img"))
	require.NoError(t, err)
	require.Len(t, faces, 1)
	assert.Equal(t, BoundingBox{Left: 0.1, Top: 0.2, Width: 0.3, Height: 0.4}, faces[0].Box)
	assert.Equal(t, 25, faces[0].AgeLow)
	assert.Equal(t, 35, faces[0].AgeHigh)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		code      skills.Code
		transient bool
	}{
		{name: "access denied", err: awserr.New(rekognition.ErrCodeAccessDeniedException, "denied", nil), code: skills.CodeExternalAuth},
		{name: "bad signature", err: awserr.New("InvalidSignatureException", "bad", nil), code: skills.CodeExternalAuth},
		{name: "throttled", err: awserr.New(rekognition.ErrCodeThrottlingException, "slow down", nil), code: skills.CodeInvocations, transient: true},
		{name: "throughput", err: awserr.New(rekognition.ErrCodeProvisionedThroughputExceededException, "slow down", nil), code: skills.CodeInvocations, transient: true},
		{name: "bad format", err: awserr.New(rekognition.ErrCodeInvalidImageFormatException, "format", nil), code: skills.CodeInvalidFileFormat},
		{name: "too large", err: awserr.New(rekognition.ErrCodeImageTooLargeException, "size", nil), code: skills.CodeInvalidFileSize},
		{name: "other aws", err: awserr.New("SomethingElse", "x", nil), code: skills.CodeInvocations},
		{name: "network", err: errors.New("connection reset"), code: skills.CodeInvocations, transient: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := NewRekognitionWithAPI(&fakeRekognition{err: tc.err}, logging.Discard())
			_, err := r.DetectLabels(context.Background(), nil, 1, 1)
			require.Error(t, err)
			assert.Equal(t, tc.code, skills.CodeOf(err))
			assert.Equal(t, tc.transient, skills.IsTransient(err))
			assert.True(t, errors.Is(err, tc.err))
		})
	}
}

func TestNewRekognition_Session(t *testing.T) {
	r, err := NewRekognition(Config{Region: "eu-west-1", AccessKeyID: "AKID", SecretAccessKey: "secret", Endpoint: "http://localhost:4566"}, logging.Discard())
	require.NoError(t, err)
	assert.NotNil(t, r.api)
}
