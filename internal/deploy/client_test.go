package deploy

import (
	"testing"
	"time"

	"cloud.google.com/go/deploy/apiv1/deploypb"
	"github.com/stretchr/testify/assert"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/reillywatson/dorametrics/internal/dora"
)

func TestMatchesPipeline(t *testing.T) {
	name := "projects/p/locations/us-east4/deliveryPipelines/Backend-Prod"

	assert.True(t, MatchesPipeline(name, ""))
	assert.True(t, MatchesPipeline(name, "prod"))
	assert.True(t, MatchesPipeline(name, "BACKEND"))
	assert.False(t, MatchesPipeline(name, "staging"))
}

func TestReleaseToRecord(t *testing.T) {
	created := time.Date(2024, 5, 2, 15, 4, 5, 0, time.UTC)

	record, ok := ReleaseToRecord(&deploypb.Release{
		Name:        "projects/p/locations/us-east4/deliveryPipelines/backend-prod/releases/rel-20240502-1",
		RenderState: deploypb.Release_SUCCEEDED,
		CreateTime:  timestamppb.New(created),
	})
	assert.True(t, ok)
	assert.Equal(t, dora.ReleaseRecord{
		ID:          "rel-20240502-1",
		Name:        "rel-20240502-1",
		ReleaseDate: "2024-05-02T15:04:05Z",
	}, record)

	tests := []struct {
		name    string
		release *deploypb.Release
	}{
		{"nil", nil},
		{"failed", &deploypb.Release{Name: "r/failed", RenderState: deploypb.Release_FAILED, CreateTime: timestamppb.New(created)}},
		{"in progress", &deploypb.Release{Name: "r/pending", RenderState: deploypb.Release_IN_PROGRESS, CreateTime: timestamppb.New(created)}},
		{"undated", &deploypb.Release{Name: "r/undated", RenderState: deploypb.Release_SUCCEEDED}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ReleaseToRecord(tt.release)
			assert.False(t, ok)
		})
	}
}
