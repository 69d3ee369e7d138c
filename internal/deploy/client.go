package deploy

import (
	"context"
	"fmt"
	"strings"
	"time"

	deploy "cloud.google.com/go/deploy/apiv1"
	"cloud.google.com/go/deploy/apiv1/deploypb"
	"github.com/m-mizutani/goerr/v2"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/iterator"

	"github.com/reillywatson/dorametrics/internal/dora"
)

// DeployClient reads Google Cloud Deploy releases as a deployment history
type DeployClient struct {
	deployClient   *deploy.CloudDeployClient
	projectID      string
	region         string
	pipelineFilter string
	log            logrus.FieldLogger
}

// NewDeployClient creates a new DeployClient with Application Default Credentials
func NewDeployClient(ctx context.Context, projectID, region, pipelineFilter string, log logrus.FieldLogger) (*DeployClient, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	deployClient, err := deploy.NewCloudDeployClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create deploy client")
	}

	return &DeployClient{
		deployClient:   deployClient,
		projectID:      projectID,
		region:         region,
		pipelineFilter: pipelineFilter,
		log:            log.WithField("component", "clouddeploy"),
	}, nil
}

// Close cleans up the client connections
func (c *DeployClient) Close() error {
	return c.deployClient.Close()
}

// FetchReleases gets successful releases from the delivery pipelines matching the
// pipeline filter. project overrides the configured Google Cloud project when set.
func (c *DeployClient) FetchReleases(ctx context.Context, project string) ([]dora.ReleaseRecord, error) {
	projectID := c.projectID
	if project != "" {
		projectID = project
	}
	parent := fmt.Sprintf("projects/%s/locations/%s", projectID, c.region)

	pipelineIt := c.deployClient.ListDeliveryPipelines(ctx, &deploypb.ListDeliveryPipelinesRequest{
		Parent: parent,
	})

	var pipelines []string
	for {
		pipeline, err := pipelineIt.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, dora.UpstreamError(err, "failed to list delivery pipelines", goerr.V("parent", parent))
		}

		if MatchesPipeline(pipeline.Name, c.pipelineFilter) {
			pipelines = append(pipelines, pipeline.Name)
		}
	}

	if len(pipelines) == 0 {
		c.log.WithFields(logrus.Fields{
			"parent": parent,
			"filter": c.pipelineFilter,
		}).Warn("no delivery pipelines matched")
		return []dora.ReleaseRecord{}, nil
	}

	var records []dora.ReleaseRecord
	for _, pipelineName := range pipelines {
		releaseIt := c.deployClient.ListReleases(ctx, &deploypb.ListReleasesRequest{
			Parent: pipelineName,
		})

		total := 0
		kept := 0
		for {
			release, err := releaseIt.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				return nil, dora.UpstreamError(err, "failed to list releases", goerr.V("pipeline", pipelineName))
			}

			total++
			if record, ok := ReleaseToRecord(release); ok {
				records = append(records, record)
				kept++
			}
		}

		c.log.WithFields(logrus.Fields{
			"pipeline": pipelineName,
			"total":    total,
			"kept":     kept,
		}).Debug("listed pipeline releases")
	}

	return records, nil
}

// MatchesPipeline reports whether a delivery pipeline name contains filter, ignoring
// case. An empty filter matches every pipeline.
func MatchesPipeline(name, filter string) bool {
	if filter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(filter))
}

// ReleaseToRecord converts a successfully rendered release. Failed, pending and
// undated releases are not deployments and report false.
func ReleaseToRecord(release *deploypb.Release) (dora.ReleaseRecord, bool) {
	if release == nil || release.RenderState != deploypb.Release_SUCCEEDED || release.CreateTime == nil {
		return dora.ReleaseRecord{}, false
	}

	// Format: projects/PROJECT/locations/REGION/deliveryPipelines/PIPELINE/releases/RELEASE_ID
	nameParts := strings.Split(release.Name, "/")
	releaseID := nameParts[len(nameParts)-1]

	return dora.ReleaseRecord{
		ID:          releaseID,
		Name:        releaseID,
		ReleaseDate: release.CreateTime.AsTime().UTC().Format(time.RFC3339),
	}, true
}
